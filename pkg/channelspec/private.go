package channelspec

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/bitechdev/ChannelSpec/pkg/auth"
	"github.com/bitechdev/ChannelSpec/pkg/connection"
	"github.com/bitechdev/ChannelSpec/pkg/logger"
	"github.com/bitechdev/ChannelSpec/pkg/protocol"
)

const (
	defaultTriggerRate  = 10
	defaultTriggerBurst = 10
)

// PrivateChannel is a channel that requires a per-socket authorization before
// the server accepts the subscription. It also carries client events.
type PrivateChannel struct {
	*PublicChannel

	conn       connection.InternalConnection
	authorizer auth.Authorizer
	limiter    *rate.Limiter
}

var _ InternalChannel = (*PrivateChannel)(nil)

// RestrictedChannelOption configures a private or presence channel
type RestrictedChannelOption func(*PrivateChannel)

// WithTriggerLimit overrides the client event rate limit
func WithTriggerLimit(eventsPerSecond float64, burst int) RestrictedChannelOption {
	return func(c *PrivateChannel) {
		if eventsPerSecond > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(eventsPerSecond), burst)
		}
	}
}

// NewPrivateChannel creates a restricted channel. The name must carry the
// private channel prefix.
func NewPrivateChannel(name string, conn connection.InternalConnection, authorizer auth.Authorizer, opts ...RestrictedChannelOption) (*PrivateChannel, error) {
	if name != "" && !strings.HasPrefix(name, protocol.PrivateChannelPrefix) {
		return nil, fmt.Errorf("%w: %q lacks the %q prefix", ErrInvalidChannelName, name, protocol.PrivateChannelPrefix)
	}
	return newRestrictedChannel(name, conn, authorizer, opts...)
}

func newRestrictedChannel(name string, conn connection.InternalConnection, authorizer auth.Authorizer, opts ...RestrictedChannelOption) (*PrivateChannel, error) {
	if conn == nil {
		return nil, ErrNilConnection
	}
	if authorizer == nil {
		return nil, ErrNilAuthorizer
	}
	base, err := newChannel(name)
	if err != nil {
		return nil, err
	}
	c := &PrivateChannel{
		PublicChannel: base,
		conn:          conn,
		authorizer:    authorizer,
		limiter:       rate.NewLimiter(defaultTriggerRate, defaultTriggerBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SubscribeMessage runs the authorization exchange and renders the subscribe
// payload carrying the returned signature. Failures are reported as
// *auth.AuthorizationError.
func (c *PrivateChannel) SubscribeMessage() (string, error) {
	signature, channelData, err := c.authorize()
	if err != nil {
		return "", err
	}
	return protocol.RenderSubscribeAuthorized(c.Name(), signature, channelData)
}

func (c *PrivateChannel) authorize() (signature, channelData string, err error) {
	response, err := c.authorizer.Authorize(c.Name(), c.conn.SocketID())
	if err != nil {
		var authErr *auth.AuthorizationError
		if errors.As(err, &authErr) {
			return "", "", err
		}
		return "", "", &auth.AuthorizationError{Message: "authorization failed", Err: err}
	}
	signature, channelData, err = protocol.ParseAuthResponse(response)
	if err != nil {
		return "", "", &auth.AuthorizationError{Message: "malformed authorization response", Err: err}
	}
	return signature, channelData, nil
}

// Trigger sends a client event on the channel. The event name must carry the
// client event prefix, the subscription must be acknowledged and the
// connection must be established. Data must be valid JSON; empty data sends
// an empty object.
func (c *PrivateChannel) Trigger(eventName, data string) error {
	if !protocol.IsClientEvent(eventName) {
		return fmt.Errorf("%w: %q", ErrInvalidTriggerEvent, eventName)
	}
	if c.State() != Subscribed {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, c.Name())
	}
	if c.conn.State() != connection.Connected {
		return ErrNotConnected
	}
	if !c.limiter.Allow() {
		logger.Warn("[ChannelSpec] Client event %s on %s dropped, rate exceeded", eventName, c.Name())
		return ErrTriggerRateExceeded
	}

	if data == "" {
		data = "{}"
	}
	message, err := protocol.RenderClientEvent(c.Name(), eventName, data)
	if err != nil {
		return err
	}
	return c.conn.SendMessage(message)
}
