package channelspec

// Event is a single message delivered on a channel. Data holds the payload as
// text: object payloads arrive as raw JSON, double-encoded payloads are
// unwrapped once.
type Event struct {
	Channel string
	Name    string
	Data    string
}

// SubscriptionEventListener receives events for the names it was bound to
type SubscriptionEventListener interface {
	OnEvent(event Event)
}

// SubscriptionEventListenerFunc adapts a plain function to
// SubscriptionEventListener
type SubscriptionEventListenerFunc func(event Event)

// OnEvent implements SubscriptionEventListener
func (f SubscriptionEventListenerFunc) OnEvent(event Event) {
	f(event)
}

// ChannelEventListener additionally observes the subscription acknowledgement
type ChannelEventListener interface {
	SubscriptionEventListener

	// OnSubscriptionSucceeded fires once the server confirms the subscription
	OnSubscriptionSucceeded(channelName string)
}

// PrivateChannelEventListener additionally observes authorization failures.
// Listeners that do not implement it simply never hear about them.
type PrivateChannelEventListener interface {
	ChannelEventListener

	// OnAuthenticationFailure fires when the authorization exchange for a
	// restricted channel fails; the subscription is not established and is
	// not retried automatically
	OnAuthenticationFailure(message string, err error)
}
