package connection

// MessageHandler consumes inbound protocol messages that the connection does
// not handle itself (everything except the pusher: handshake/liveness events).
// The connection delivers messages from a single goroutine, so handlers see
// state changes and messages in arrival order.
type MessageHandler interface {
	HandleMessage(event string, message []byte)
}

// MessageHandlerFunc adapts a plain function to MessageHandler
type MessageHandlerFunc func(event string, message []byte)

// HandleMessage implements MessageHandler
func (f MessageHandlerFunc) HandleMessage(event string, message []byte) {
	f(event, message)
}

// Connection is the read-side surface consumed by channel bookkeeping
type Connection interface {
	// State returns the current lifecycle state
	State() State

	// SocketID returns the server-assigned socket identifier, empty until
	// the handshake completes
	SocketID() string

	// Bind registers a listener for transitions into the given state (or All).
	// It returns a binding id usable with Unbind.
	Bind(state State, listener StateChangeListener) string

	// Unbind removes a previously registered listener binding
	Unbind(state State, bindingID string)
}

// InternalConnection extends Connection with the outbound path used when
// rendered wire payloads are transmitted
type InternalConnection interface {
	Connection

	// SendMessage queues a raw payload for transmission
	SendMessage(message string) error
}

var _ InternalConnection = (*WebSocketConnection)(nil)
