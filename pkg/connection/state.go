package connection

// State represents the lifecycle state of a connection
type State int

const (
	// Disconnected means no socket is open and none is being opened
	Disconnected State = iota
	// Connecting means the socket is being established or the protocol
	// handshake has not completed yet
	Connecting
	// Connected means the handshake completed and a socket id was assigned;
	// only this state permits immediate message transmission
	Connected
	// Disconnecting means a teardown was requested and is in progress
	Disconnecting
	// All is a pseudo-state used to bind a listener to every transition
	All
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	case Disconnecting:
		return "DISCONNECTING"
	case All:
		return "ALL"
	default:
		return "UNKNOWN"
	}
}

// StateChange describes a single transition between connection states
type StateChange struct {
	Previous State
	Current  State
}

// StateChangeListener receives connection lifecycle transitions
type StateChangeListener interface {
	OnConnectionStateChange(change StateChange)
}

// StateChangeListenerFunc adapts a plain function to StateChangeListener
type StateChangeListenerFunc func(change StateChange)

// OnConnectionStateChange implements StateChangeListener
func (f StateChangeListenerFunc) OnConnectionStateChange(change StateChange) {
	f(change)
}
