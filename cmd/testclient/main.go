package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/bitechdev/ChannelSpec/pkg/channelspec"
	"github.com/bitechdev/ChannelSpec/pkg/client"
	"github.com/bitechdev/ChannelSpec/pkg/config"
	"github.com/bitechdev/ChannelSpec/pkg/connection"
	"github.com/bitechdev/ChannelSpec/pkg/errortracking"
	"github.com/bitechdev/ChannelSpec/pkg/harness"
	"github.com/bitechdev/ChannelSpec/pkg/logger"
	"github.com/bitechdev/ChannelSpec/pkg/metrics"
	"github.com/bitechdev/ChannelSpec/pkg/middleware"
	"github.com/bitechdev/ChannelSpec/pkg/protocol"
	"github.com/bitechdev/ChannelSpec/pkg/tracing"
)

func main() {
	// Load configuration
	cfgMgr := config.NewManager()
	if err := cfgMgr.Load(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cfg, err := cfgMgr.GetConfig()
	if err != nil {
		log.Fatalf("Failed to get configuration: %v", err)
	}

	// Initialize logger with configuration
	logger.Init(cfg.Logger.Dev)
	if cfg.Logger.Path != "" {
		logger.UpdateLoggerPath(cfg.Logger.Path, cfg.Logger.Dev)
	}
	logger.Info("ChannelSpec test client starting")

	if cfg.Client.AppKey == "" {
		logger.Error("client.app_key is required (set CHANNELSPEC_CLIENT_APP_KEY or a config file)")
		os.Exit(1)
	}

	// Initialize error tracking
	tracker, err := errortracking.NewProviderFromConfig(cfg.ErrorTracking)
	if err != nil {
		logger.Error("Failed to initialize error tracking: %v", err)
		os.Exit(1)
	}
	logger.InitErrorTracking(tracker)
	defer func() {
		if err := logger.CloseErrorTracking(); err != nil {
			logger.Warn("Failed to close error tracking: %v", err)
		}
	}()

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.SetProvider(metrics.NewPrometheusProvider(&metrics.Config{
			Enabled:   true,
			Namespace: cfg.Metrics.Namespace,
		}))
	}

	// Initialize tracing
	shutdownTracer, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Endpoint:       cfg.Tracing.Endpoint,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Error("Failed to initialize tracing: %v", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.Warn("Failed to shut down tracer: %v", err)
		}
	}()

	// The harness signs its own subscriptions unless an external auth
	// endpoint is configured
	if cfg.Auth.Endpoint == "" {
		cfg.Auth.Endpoint = localAuthURL(cfg.Harness.Addr)
		logger.Info("Using local auth endpoint %s", cfg.Auth.Endpoint)
	}

	// Create router
	r := mux.NewRouter()
	r.Handle("/metrics", metrics.GetProvider().Handler()).Methods(http.MethodGet)

	authEndpoint := harness.NewAuthEndpoint(cfg.Client.AppKey, cfg.Harness.AppSecret)
	authLimiter := middleware.NewRateLimiter(20, 40)
	sizeLimiter := middleware.NewRequestSizeLimiter(64 * 1024)
	r.Handle("/pusher/auth",
		sizeLimiter.Middleware(authLimiter.Middleware(authEndpoint))).Methods(http.MethodPost)

	srv, err := harness.NewGracefulServer(harness.ServerConfig{
		Addr:    cfg.Harness.Addr,
		Handler: r,
		GZIP:    true,
	})
	if err != nil {
		logger.Error("Failed to create server: %v", err)
		os.Exit(1)
	}
	r.Handle("/healthz", srv.HealthCheckHandler()).Methods(http.MethodGet)
	r.Handle("/readyz", srv.ReadinessHandler()).Methods(http.MethodGet)

	// Create the pub/sub client
	cl, err := client.NewFromConfig(cfg)
	if err != nil {
		logger.Error("Failed to create client: %v", err)
		os.Exit(1)
	}

	cl.BindConnection(connection.All, connection.StateChangeListenerFunc(func(change connection.StateChange) {
		logger.Info("Connection %s -> %s", change.Previous, change.Current)
	}))

	// Subscriptions queue until the handshake completes
	for _, name := range cfg.Harness.Channels {
		if err := watchChannel(cl, name, cfg.Harness.Events); err != nil {
			logger.Error("Failed to subscribe to %s: %v", name, err)
			os.Exit(1)
		}
	}

	if err := cl.Connect(); err != nil {
		logger.Error("Failed to connect: %v", err)
		os.Exit(1)
	}

	srv.OnShutdown(func(ctx context.Context) error {
		return cl.Disconnect()
	})

	logger.Info("Harness listening on %s, watching %d channel(s)", cfg.Harness.Addr, cl.ChannelCount())
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server failed: %v", err)
		os.Exit(1)
	}
}

// localAuthURL derives the harness auth endpoint from its listen address
func localAuthURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/pusher/auth"
}

// watchChannel subscribes the named channel with a logging listener bound to
// the configured event names. The channel type follows from the name prefix.
func watchChannel(cl *client.Client, name string, events []string) error {
	listener := &logListener{channel: name}
	switch {
	case strings.HasPrefix(name, protocol.PresenceChannelPrefix):
		_, err := cl.SubscribePresence(name, listener, events...)
		return err
	case strings.HasPrefix(name, protocol.PrivateChannelPrefix):
		_, err := cl.SubscribePrivate(name, listener, events...)
		return err
	default:
		_, err := cl.Subscribe(name, listener, events...)
		return err
	}
}

// logListener prints everything a watched channel delivers
type logListener struct {
	channel string
}

func (l *logListener) OnEvent(event channelspec.Event) {
	logger.Info("[%s] %s: %s", event.Channel, event.Name, event.Data)
}

func (l *logListener) OnSubscriptionSucceeded(channelName string) {
	logger.Info("[%s] Subscription established", channelName)
}

func (l *logListener) OnAuthenticationFailure(message string, err error) {
	logger.Error("[%s] Authorization failed: %s (%v)", l.channel, message, err)
}
