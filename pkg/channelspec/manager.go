// Package channelspec implements channel subscription bookkeeping on top of a
// message connection: channels are registered once, their subscribe payloads
// are sent as soon as the connection allows, inbound traffic is routed to the
// owning channel and restricted channels run an authorization exchange before
// anything reaches the wire.
package channelspec

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bitechdev/ChannelSpec/pkg/auth"
	"github.com/bitechdev/ChannelSpec/pkg/connection"
	"github.com/bitechdev/ChannelSpec/pkg/logger"
	"github.com/bitechdev/ChannelSpec/pkg/metrics"
	"github.com/bitechdev/ChannelSpec/pkg/protocol"
)

// Manager tracks the channels subscribed on one connection. Subscribes issued
// while the connection is down are queued and flushed exactly once when the
// connection comes up; a channel whose authorization fails stays registered
// but is not retried until the caller subscribes it again.
type Manager struct {
	conn connection.InternalConnection

	mu       sync.Mutex
	channels map[string]InternalChannel
	pending  map[string]InternalChannel
}

var (
	_ connection.StateChangeListener = (*Manager)(nil)
	_ connection.MessageHandler      = (*Manager)(nil)
)

// NewManager creates subscription bookkeeping bound to the given connection
func NewManager(conn connection.InternalConnection) (*Manager, error) {
	if conn == nil {
		return nil, ErrNilConnection
	}
	m := &Manager{
		conn:     conn,
		channels: make(map[string]InternalChannel),
		pending:  make(map[string]InternalChannel),
	}
	conn.Bind(connection.Connected, m)
	return m, nil
}

// Subscribe registers a channel and its listener. Event bindings are in place
// before any wire traffic, so no early message can be missed. When the
// connection is not established yet the subscribe payload is queued.
func (m *Manager) Subscribe(channel InternalChannel, listener ChannelEventListener, eventNames ...string) error {
	if channel == nil {
		return ErrNilChannel
	}

	m.mu.Lock()
	if _, exists := m.channels[channel.Name()]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, channel.Name())
	}
	for _, eventName := range eventNames {
		if _, err := channel.Bind(eventName, listener); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	channel.SetEventListener(listener)
	m.channels[channel.Name()] = channel
	metrics.GetProvider().UpdateActiveChannels(len(m.channels))

	var notify func()
	if m.conn.State() == connection.Connected {
		logger.Debug("[ChannelSpec] Subscribing to channel %s", channel.Name())
		notify = m.sendSubscribeLocked(channel)
	} else {
		m.pending[channel.Name()] = channel
		metrics.GetProvider().RecordSubscriptionAttempt(channelKind(channel.Name()), "queued")
		logger.Debug("[ChannelSpec] Connection not established, queued subscribe for %s", channel.Name())
	}
	m.mu.Unlock()

	if notify != nil {
		notify()
	}
	return nil
}

// Unsubscribe removes a channel from the bookkeeping. The unsubscribe payload
// is sent only while the connection is established; either way the channel
// stops receiving messages immediately.
func (m *Manager) Unsubscribe(channelName string) error {
	if channelName == "" {
		return ErrChannelNameRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	channel, exists := m.channels[channelName]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channelName)
	}
	delete(m.channels, channelName)
	delete(m.pending, channelName)
	metrics.GetProvider().UpdateActiveChannels(len(m.channels))
	logger.Debug("[ChannelSpec] Unsubscribing from channel %s", channelName)

	if m.conn.State() == connection.Connected {
		message, err := channel.UnsubscribeMessage()
		if err != nil {
			logger.Warn("[ChannelSpec] Failed to render unsubscribe for %s: %v", channelName, err)
		} else if err := m.conn.SendMessage(message); err != nil {
			logger.Warn("[ChannelSpec] Failed to send unsubscribe for %s: %v", channelName, err)
		}
	}
	channel.UpdateState(Unsubscribed)
	return nil
}

// HandleMessage routes an inbound message to the channel named in it.
// Messages without a channel, or for a channel that is no longer registered,
// are dropped.
func (m *Manager) HandleMessage(event string, message []byte) {
	channelName, present := protocol.ExtractChannel(message)
	if !present {
		logger.Debug("[ChannelSpec] Dropping %s without channel", event)
		return
	}

	m.mu.Lock()
	channel, exists := m.channels[channelName]
	m.mu.Unlock()
	if !exists {
		logger.Debug("[ChannelSpec] Dropping %s for unknown channel %s", event, channelName)
		return
	}
	channel.HandleMessage(event, message)
}

// OnConnectionStateChange flushes queued subscribes when the connection comes
// up. Each queued channel gets exactly one attempt per flush; only transport
// failures requeue.
func (m *Manager) OnConnectionStateChange(change connection.StateChange) {
	if change.Current != connection.Connected {
		return
	}

	m.mu.Lock()
	queued := make([]InternalChannel, 0, len(m.pending))
	for _, channel := range m.pending {
		queued = append(queued, channel)
	}
	m.pending = make(map[string]InternalChannel)
	sort.Slice(queued, func(i, j int) bool { return queued[i].Name() < queued[j].Name() })

	if len(queued) > 0 {
		logger.Info("[ChannelSpec] Connection established, sending %d queued subscribe(s)", len(queued))
	}
	notifies := make([]func(), 0, len(queued))
	for _, channel := range queued {
		if notify := m.sendSubscribeLocked(channel); notify != nil {
			notifies = append(notifies, notify)
		}
	}
	m.mu.Unlock()

	for _, notify := range notifies {
		notify()
	}
}

// Clear forgets every channel and queued subscribe. Messages arriving for the
// forgotten channels are dropped from here on.
func (m *Manager) Clear() {
	m.mu.Lock()
	count := len(m.channels)
	m.channels = make(map[string]InternalChannel)
	m.pending = make(map[string]InternalChannel)
	metrics.GetProvider().UpdateActiveChannels(0)
	m.mu.Unlock()

	if count > 0 {
		logger.Debug("[ChannelSpec] Cleared %d channel subscription(s)", count)
	}
}

// Channel returns the registered channel with the given name, nil when none
func (m *Manager) Channel(name string) Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel, exists := m.channels[name]; exists {
		return channel
	}
	return nil
}

// Count returns the number of registered channels
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels)
}

// sendSubscribeLocked renders and sends one subscribe payload. It is called
// with m.mu held and returns the listener notification to run after the lock
// is released, nil when there is nothing to deliver.
//
// An authorization failure is final: the channel stays registered in
// Unsubscribed state and is not requeued. A transport failure requeues the
// channel for the next flush.
func (m *Manager) sendSubscribeLocked(channel InternalChannel) func() {
	kind := channelKind(channel.Name())

	message, err := channel.SubscribeMessage()
	if err != nil {
		logger.Warn("[ChannelSpec] Authorization failed for channel %s: %v", channel.Name(), err)
		metrics.GetProvider().RecordSubscriptionAttempt(kind, "auth_failed")
		listener := channel.EventListener()
		return func() { notifyAuthFailure(listener, err) }
	}

	if err := m.conn.SendMessage(message); err != nil {
		logger.Warn("[ChannelSpec] Failed to send subscribe for channel %s, requeueing: %v", channel.Name(), err)
		metrics.GetProvider().RecordSubscriptionAttempt(kind, "send_failed")
		m.pending[channel.Name()] = channel
		return nil
	}

	channel.UpdateState(SubscribeSent)
	metrics.GetProvider().RecordSubscriptionAttempt(kind, "sent")
	return nil
}

func notifyAuthFailure(listener ChannelEventListener, err error) {
	private, ok := listener.(PrivateChannelEventListener)
	if !ok {
		return
	}
	message := err.Error()
	var authErr *auth.AuthorizationError
	if errors.As(err, &authErr) {
		message = authErr.Message
	}
	private.OnAuthenticationFailure(message, err)
}

func channelKind(name string) string {
	switch {
	case strings.HasPrefix(name, protocol.PresenceChannelPrefix):
		return "presence"
	case strings.HasPrefix(name, protocol.PrivateChannelPrefix):
		return "private"
	default:
		return "public"
	}
}
