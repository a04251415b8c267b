package connection

import (
	"crypto/tls"
	"time"
)

// Option configures a WebSocketConnection
type Option func(*WebSocketConnection)

// WithHandshakeTimeout bounds the WebSocket dial
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(c *WebSocketConnection) {
		if timeout > 0 {
			c.handshakeTimeout = timeout
		}
	}
}

// WithActivityTimeout sets the quiet period after which the connection probes
// the server. The server may negotiate it down during the handshake.
func WithActivityTimeout(timeout time.Duration) Option {
	return func(c *WebSocketConnection) {
		if timeout > 0 {
			c.activityTimeout = timeout
		}
	}
}

// WithPongTimeout bounds the wait for traffic after a liveness probe
func WithPongTimeout(timeout time.Duration) Option {
	return func(c *WebSocketConnection) {
		if timeout > 0 {
			c.pongTimeout = timeout
		}
	}
}

// WithSendBufferSize sizes the outbound queue
func WithSendBufferSize(size int) Option {
	return func(c *WebSocketConnection) {
		if size > 0 {
			c.sendBufferSize = size
		}
	}
}

// WithMessageHandler binds the consumer of inbound channel traffic
func WithMessageHandler(handler MessageHandler) Option {
	return func(c *WebSocketConnection) {
		c.handler = handler
	}
}

// WithErrorHandler registers a callback for server error events
func WithErrorHandler(handler func(message string, code int, err error)) Option {
	return func(c *WebSocketConnection) {
		c.errorHandler = handler
	}
}

// WithTLSConfig overrides the TLS settings used for wss endpoints
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *WebSocketConnection) {
		c.tlsConfig = cfg
	}
}
