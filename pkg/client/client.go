// Package client is the top-level entry point: it assembles a connection,
// subscription bookkeeping and an optional authorizer behind one facade.
package client

import (
	"fmt"

	"github.com/bitechdev/ChannelSpec/pkg/auth"
	"github.com/bitechdev/ChannelSpec/pkg/channelspec"
	"github.com/bitechdev/ChannelSpec/pkg/config"
	"github.com/bitechdev/ChannelSpec/pkg/connection"
	"github.com/bitechdev/ChannelSpec/pkg/logger"
)

// Conn is the connection surface the client drives. *connection.WebSocketConnection
// satisfies it; tests substitute their own.
type Conn interface {
	connection.InternalConnection

	Connect() error
	Disconnect() error
	SetMessageHandler(handler connection.MessageHandler)
}

var _ Conn = (*connection.WebSocketConnection)(nil)

// Client subscribes channels on a single connection
type Client struct {
	appKey     string
	conn       Conn
	manager    *channelspec.Manager
	authorizer auth.Authorizer

	triggerRate  float64
	triggerBurst int
}

// New creates a client for the given application key. Without further options
// it connects to the default cluster over TLS.
func New(appKey string, opts ...Option) (*Client, error) {
	if appKey == "" {
		return nil, fmt.Errorf("application key is required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	authorizer := o.authorizer
	if authorizer == nil && o.authEndpoint != "" {
		var err error
		authorizer, err = auth.NewHTTPAuthorizer(o.authEndpoint, o.authOpts...)
		if err != nil {
			return nil, err
		}
	}

	conn := o.conn
	if conn == nil {
		url := connection.BuildURL(appKey, connection.URLOptions{
			Host:    o.host,
			Port:    o.port,
			Cluster: o.cluster,
			UseTLS:  o.useTLS,
		})
		var err error
		conn, err = connection.NewWebSocketConnection(url, o.connOptions()...)
		if err != nil {
			return nil, err
		}
	}

	manager, err := channelspec.NewManager(conn)
	if err != nil {
		return nil, err
	}
	conn.SetMessageHandler(manager)

	return &Client{
		appKey:       appKey,
		conn:         conn,
		manager:      manager,
		authorizer:   authorizer,
		triggerRate:  o.triggerRate,
		triggerBurst: o.triggerBurst,
	}, nil
}

// NewFromConfig creates a client from the loaded configuration
func NewFromConfig(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	opts := []Option{
		WithCluster(cfg.Client.Cluster),
		WithTLS(cfg.Client.UseTLS),
		WithHandshakeTimeout(cfg.Client.HandshakeTimeout),
		WithActivityTimeout(cfg.Client.ActivityTimeout),
		WithPongTimeout(cfg.Client.PongTimeout),
		WithSendBufferSize(cfg.Client.SendBufferSize),
		WithTriggerLimit(cfg.Client.ClientEventRate, cfg.Client.ClientEventBurst),
	}
	if cfg.Client.Host != "" {
		opts = append(opts, WithHost(cfg.Client.Host))
	}
	if cfg.Client.Port != 0 {
		opts = append(opts, WithPort(cfg.Client.Port))
	}
	if cfg.Auth.Endpoint != "" {
		authorizer, err := auth.NewHTTPAuthorizerFromConfig(cfg.Auth)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithAuthorizer(authorizer))
	}
	return New(cfg.Client.AppKey, opts...)
}

// Connect opens the connection. Queued subscriptions are sent once the server
// completes the handshake.
func (c *Client) Connect() error {
	return c.conn.Connect()
}

// Disconnect forgets every subscription and closes the connection
func (c *Client) Disconnect() error {
	logger.Debug("[Client] Disconnecting, dropping %d subscription(s)", c.manager.Count())
	c.manager.Clear()
	return c.conn.Disconnect()
}

// ConnectionState returns the current connection state
func (c *Client) ConnectionState() connection.State {
	return c.conn.State()
}

// SocketID returns the server-assigned socket id, empty while disconnected
func (c *Client) SocketID() string {
	return c.conn.SocketID()
}

// BindConnection registers a listener for connection state transitions
func (c *Client) BindConnection(state connection.State, listener connection.StateChangeListener) string {
	return c.conn.Bind(state, listener)
}

// UnbindConnection releases a connection listener binding
func (c *Client) UnbindConnection(state connection.State, bindingID string) {
	c.conn.Unbind(state, bindingID)
}

// Subscribe subscribes an unrestricted channel. Restricted names are rejected;
// use SubscribePrivate or SubscribePresence for those.
func (c *Client) Subscribe(channelName string, listener channelspec.ChannelEventListener, eventNames ...string) (channelspec.Channel, error) {
	channel, err := channelspec.NewPublicChannel(channelName)
	if err != nil {
		return nil, err
	}
	if err := c.manager.Subscribe(channel, listener, eventNames...); err != nil {
		return nil, err
	}
	return channel, nil
}

// SubscribePrivate subscribes a private channel through the configured
// authorizer
func (c *Client) SubscribePrivate(channelName string, listener channelspec.PrivateChannelEventListener, eventNames ...string) (*channelspec.PrivateChannel, error) {
	if c.authorizer == nil {
		return nil, fmt.Errorf("an authorizer is required for private channels")
	}
	channel, err := channelspec.NewPrivateChannel(channelName, c.conn, c.authorizer, c.restrictedOptions()...)
	if err != nil {
		return nil, err
	}
	if err := c.manager.Subscribe(channel, listener, eventNames...); err != nil {
		return nil, err
	}
	return channel, nil
}

// SubscribePresence subscribes a presence channel through the configured
// authorizer
func (c *Client) SubscribePresence(channelName string, listener channelspec.PrivateChannelEventListener, eventNames ...string) (*channelspec.PresenceChannel, error) {
	if c.authorizer == nil {
		return nil, fmt.Errorf("an authorizer is required for presence channels")
	}
	channel, err := channelspec.NewPresenceChannel(channelName, c.conn, c.authorizer, c.restrictedOptions()...)
	if err != nil {
		return nil, err
	}
	if err := c.manager.Subscribe(channel, listener, eventNames...); err != nil {
		return nil, err
	}
	return channel, nil
}

// Unsubscribe removes a subscription by channel name
func (c *Client) Unsubscribe(channelName string) error {
	return c.manager.Unsubscribe(channelName)
}

// Channel returns the subscribed channel with the given name, nil when none
func (c *Client) Channel(channelName string) channelspec.Channel {
	return c.manager.Channel(channelName)
}

// ChannelCount returns the number of subscribed channels
func (c *Client) ChannelCount() int {
	return c.manager.Count()
}

func (c *Client) restrictedOptions() []channelspec.RestrictedChannelOption {
	return []channelspec.RestrictedChannelOption{
		channelspec.WithTriggerLimit(c.triggerRate, c.triggerBurst),
	}
}
