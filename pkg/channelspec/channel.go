package channelspec

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bitechdev/ChannelSpec/pkg/logger"
	"github.com/bitechdev/ChannelSpec/pkg/protocol"
)

var channelNamePattern = regexp.MustCompile(`^[A-Za-z0-9_\-=@,.;]+$`)

// Channel is the consumer surface of a subscription
type Channel interface {
	// Name returns the channel name
	Name() string

	// State returns the current subscription state
	State() ChannelState

	// IsSubscribed reports whether the server acknowledged the subscription
	IsSubscribed() bool

	// Bind registers a listener for a named event. It returns a binding id
	// usable with Unbind; bindings may be created at any time, including
	// before the subscription is established.
	Bind(eventName string, listener SubscriptionEventListener) (string, error)

	// Unbind removes a previously created binding. Unknown ids are ignored.
	Unbind(eventName, bindingID string)
}

// InternalChannel extends Channel with the hooks driven by subscription
// bookkeeping
type InternalChannel interface {
	Channel

	// SubscribeMessage renders the wire payload that subscribes the channel.
	// Restricted channels run their authorization exchange here.
	SubscribeMessage() (string, error)

	// UnsubscribeMessage renders the wire payload that unsubscribes the
	// channel
	UnsubscribeMessage() (string, error)

	// UpdateState moves the channel through its subscription lifecycle
	UpdateState(state ChannelState)

	// HandleMessage dispatches an inbound message addressed to this channel
	HandleMessage(event string, message []byte)

	// SetEventListener attaches the listener that observes the subscription
	// lifecycle
	SetEventListener(listener ChannelEventListener)

	// EventListener returns the attached lifecycle listener, nil when none
	EventListener() ChannelEventListener
}

// PublicChannel is a channel that anyone may subscribe to without
// authorization
type PublicChannel struct {
	name string

	mu       sync.Mutex
	state    ChannelState
	listener ChannelEventListener
	bindings map[string]map[string]SubscriptionEventListener
}

var _ InternalChannel = (*PublicChannel)(nil)

// NewPublicChannel creates an unrestricted channel. Names carrying a
// restricted prefix are rejected so a missing authorization cannot go
// unnoticed.
func NewPublicChannel(name string) (*PublicChannel, error) {
	if strings.HasPrefix(name, protocol.PrivateChannelPrefix) || strings.HasPrefix(name, protocol.PresenceChannelPrefix) {
		return nil, fmt.Errorf("%w: %q requires a restricted channel type", ErrInvalidChannelName, name)
	}
	return newChannel(name)
}

// newChannel validates the name only; prefix rules belong to the typed
// constructors
func newChannel(name string) (*PublicChannel, error) {
	if name == "" {
		return nil, ErrChannelNameRequired
	}
	if !channelNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: %q contains forbidden characters", ErrInvalidChannelName, name)
	}
	return &PublicChannel{
		name:     name,
		state:    Unsubscribed,
		bindings: make(map[string]map[string]SubscriptionEventListener),
	}, nil
}

// Name returns the channel name
func (c *PublicChannel) Name() string {
	return c.name
}

// State returns the current subscription state
func (c *PublicChannel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsSubscribed reports whether the server acknowledged the subscription
func (c *PublicChannel) IsSubscribed() bool {
	return c.State() == Subscribed
}

// Bind registers a listener for a named event
func (c *PublicChannel) Bind(eventName string, listener SubscriptionEventListener) (string, error) {
	if eventName == "" {
		return "", ErrEventNameRequired
	}
	if protocol.IsInternalEvent(eventName) {
		return "", fmt.Errorf("%w: %s", ErrInternalEventBinding, eventName)
	}
	if listener == nil {
		return "", ErrNilListener
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	bindingID := uuid.NewString()
	if c.bindings[eventName] == nil {
		c.bindings[eventName] = make(map[string]SubscriptionEventListener)
	}
	c.bindings[eventName][bindingID] = listener
	return bindingID, nil
}

// Unbind removes a previously created binding
func (c *PublicChannel) Unbind(eventName, bindingID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bindings[eventName], bindingID)
}

// SubscribeMessage renders the subscribe payload
func (c *PublicChannel) SubscribeMessage() (string, error) {
	return protocol.RenderSubscribe(c.name)
}

// UnsubscribeMessage renders the unsubscribe payload
func (c *PublicChannel) UnsubscribeMessage() (string, error) {
	return protocol.RenderUnsubscribe(c.name)
}

// UpdateState moves the channel through its subscription lifecycle. Entering
// Subscribed notifies the lifecycle listener.
func (c *PublicChannel) UpdateState(state ChannelState) {
	c.mu.Lock()
	c.state = state
	listener := c.listener
	c.mu.Unlock()

	if state == Subscribed {
		logger.Debug("[ChannelSpec] Subscribed to channel %s", c.name)
		if listener != nil {
			listener.OnSubscriptionSucceeded(c.name)
		}
	}
}

// HandleMessage dispatches an inbound message to the listeners bound to its
// event name and to the lifecycle listener, which hears every event on the
// channel. A listener registered both ways is notified once. The subscription
// acknowledgement moves the state instead of being dispatched.
func (c *PublicChannel) HandleMessage(event string, message []byte) {
	if event == protocol.EventSubscriptionSucceeded {
		c.UpdateState(Subscribed)
		return
	}

	c.mu.Lock()
	targets := make([]SubscriptionEventListener, 0, len(c.bindings[event])+1)
	for _, listener := range c.bindings[event] {
		targets = append(targets, listener)
	}
	if c.listener != nil {
		bound := false
		for _, listener := range targets {
			if listener == SubscriptionEventListener(c.listener) {
				bound = true
				break
			}
		}
		if !bound {
			targets = append(targets, c.listener)
		}
	}
	c.mu.Unlock()

	if len(targets) == 0 {
		return
	}
	evt := Event{
		Channel: c.name,
		Name:    event,
		Data:    protocol.ExtractData(message),
	}
	for _, listener := range targets {
		listener.OnEvent(evt)
	}
}

// SetEventListener attaches the listener that observes the subscription
// lifecycle
func (c *PublicChannel) SetEventListener(listener ChannelEventListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listener = listener
}

// EventListener returns the attached lifecycle listener
func (c *PublicChannel) EventListener() ChannelEventListener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener
}
