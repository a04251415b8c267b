package channelspec

// ChannelState represents the subscription lifecycle of a single channel
type ChannelState int

const (
	// Unsubscribed means no subscribe request is currently in flight
	Unsubscribed ChannelState = iota
	// SubscribeSent means the subscribe request was handed to the connection
	// and no acknowledgement has arrived yet
	SubscribeSent
	// Subscribed means the server acknowledged the subscription
	Subscribed
)

// String returns a human-readable state name
func (s ChannelState) String() string {
	switch s {
	case Unsubscribed:
		return "UNSUBSCRIBED"
	case SubscribeSent:
		return "SUBSCRIBE_SENT"
	case Subscribed:
		return "SUBSCRIBED"
	default:
		return "UNKNOWN"
	}
}
