package client

import (
	"crypto/tls"
	"time"

	"github.com/bitechdev/ChannelSpec/pkg/auth"
	"github.com/bitechdev/ChannelSpec/pkg/connection"
)

type options struct {
	cluster string
	host    string
	port    int
	useTLS  bool

	handshakeTimeout time.Duration
	activityTimeout  time.Duration
	pongTimeout      time.Duration
	sendBufferSize   int
	tlsConfig        *tls.Config
	errorHandler     func(message string, code int, err error)

	triggerRate  float64
	triggerBurst int

	authorizer   auth.Authorizer
	authEndpoint string
	authOpts     []auth.Option

	conn Conn
}

func defaultOptions() options {
	return options{
		cluster:      "mt1",
		useTLS:       true,
		triggerRate:  10,
		triggerBurst: 10,
	}
}

func (o options) connOptions() []connection.Option {
	var opts []connection.Option
	if o.handshakeTimeout > 0 {
		opts = append(opts, connection.WithHandshakeTimeout(o.handshakeTimeout))
	}
	if o.activityTimeout > 0 {
		opts = append(opts, connection.WithActivityTimeout(o.activityTimeout))
	}
	if o.pongTimeout > 0 {
		opts = append(opts, connection.WithPongTimeout(o.pongTimeout))
	}
	if o.sendBufferSize > 0 {
		opts = append(opts, connection.WithSendBufferSize(o.sendBufferSize))
	}
	if o.tlsConfig != nil {
		opts = append(opts, connection.WithTLSConfig(o.tlsConfig))
	}
	if o.errorHandler != nil {
		opts = append(opts, connection.WithErrorHandler(o.errorHandler))
	}
	return opts
}

// Option configures a Client
type Option func(*options)

// WithCluster selects the server cluster
func WithCluster(cluster string) Option {
	return func(o *options) {
		if cluster != "" {
			o.cluster = cluster
		}
	}
}

// WithHost overrides the server host; it wins over the cluster
func WithHost(host string) Option {
	return func(o *options) {
		o.host = host
	}
}

// WithPort overrides the server port
func WithPort(port int) Option {
	return func(o *options) {
		o.port = port
	}
}

// WithTLS toggles transport encryption
func WithTLS(useTLS bool) Option {
	return func(o *options) {
		o.useTLS = useTLS
	}
}

// WithTLSConfig overrides the TLS settings for encrypted transport
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *options) {
		o.tlsConfig = cfg
	}
}

// WithHandshakeTimeout bounds the connection dial
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.handshakeTimeout = timeout
	}
}

// WithActivityTimeout sets the quiet period before the connection probes the
// server
func WithActivityTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.activityTimeout = timeout
	}
}

// WithPongTimeout bounds the wait for traffic after a liveness probe
func WithPongTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.pongTimeout = timeout
	}
}

// WithSendBufferSize sizes the outbound queue
func WithSendBufferSize(size int) Option {
	return func(o *options) {
		o.sendBufferSize = size
	}
}

// WithErrorHandler registers a callback for server error events
func WithErrorHandler(handler func(message string, code int, err error)) Option {
	return func(o *options) {
		o.errorHandler = handler
	}
}

// WithTriggerLimit sets the client event rate applied to restricted channels
func WithTriggerLimit(eventsPerSecond float64, burst int) Option {
	return func(o *options) {
		if eventsPerSecond > 0 && burst > 0 {
			o.triggerRate = eventsPerSecond
			o.triggerBurst = burst
		}
	}
}

// WithAuthorizer supplies the authorizer used for restricted channels
func WithAuthorizer(authorizer auth.Authorizer) Option {
	return func(o *options) {
		o.authorizer = authorizer
	}
}

// WithAuthEndpoint builds an HTTP authorizer for the given endpoint
func WithAuthEndpoint(endpoint string, opts ...auth.Option) Option {
	return func(o *options) {
		o.authEndpoint = endpoint
		o.authOpts = opts
	}
}

// WithConnection substitutes the connection, bypassing URL construction
func WithConnection(conn Conn) Option {
	return func(o *options) {
		o.conn = conn
	}
}
