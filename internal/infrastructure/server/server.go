package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/Gingaoyuzhan/Ging-IDE/internal/api/http"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/api/middleware"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/events"
	resthttp "github.com/Gingaoyuzhan/Ging-IDE/internal/http"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/config"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/logging"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/monitoring"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/infrastructure/tracing"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/providers/chat"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/providers/terminal"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/service"
	"github.com/Gingaoyuzhan/Ging-IDE/internal/ws"
)

// ShutdownGrace is the default time allowed for Shutdown.
const ShutdownGrace = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	bus      *events.Bus
	sessions *terminal.Registry
	relay    *chat.Relay
	registry *service.Registry
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// Option customizes a Server.
type Option func(*options)

type options struct {
	spawner  terminal.Spawner
	streamer chat.Streamer
	envSync  bool
}

// WithSpawner replaces the PTY spawner.
func WithSpawner(s terminal.Spawner) Option {
	return func(o *options) { o.spawner = s }
}

// WithStreamer replaces the provider HTTP client.
func WithStreamer(s chat.Streamer) Option {
	return func(o *options) { o.streamer = s }
}

// WithoutEnvMirror stops runtime config changes from being copied into the
// process environment.
func WithoutEnvMirror() Option {
	return func(o *options) { o.envSync = false }
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *logging.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := options{envSync: true}
	for _, opt := range opts {
		opt(&o)
	}

	logger.Info("Initializing session relay",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("provider", cfg.AI.Provider),
		zap.Bool("settings_file", cfg.AI.SettingsFile != ""),
	)

	// Metrics first; every component reports into them.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(reg)

	tracer := tracing.New("relay", logger.Component("tracing"))
	bus := events.NewBus(metrics, logger.Component("events"))

	spawner := o.spawner
	if spawner == nil {
		spawner = terminal.NewPTYSpawner(logger.Component("pty"))
	}
	sessions := terminal.NewRegistry(terminal.Options{
		Spawner:     spawner,
		Publisher:   bus,
		Metrics:     metrics,
		Logger:      logger.Component("terminal"),
		DefaultCols: int(cfg.Terminal.DefaultCols),
		DefaultRows: int(cfg.Terminal.DefaultRows),
		ReadBuffer:  cfg.Terminal.ReadBuffer,
	})

	ai := cfg.AI
	if ai.SettingsFile != "" {
		settings, err := config.LoadSettings(ai.SettingsFile)
		if err != nil {
			logger.Warn("Failed to load provider settings", zap.String("path", ai.SettingsFile), zap.Error(err))
		} else {
			ai = ai.Merge(settings)
		}
	}
	var storeOpts []chat.StoreOption
	if o.envSync {
		storeOpts = append(storeOpts, chat.WithEnvMirror())
	}
	store := chat.NewConfigStore(chat.ProviderConfig{
		Provider: ai.Provider,
		APIKey:   ai.APIKey,
		BaseURL:  ai.BaseURL,
		Model:    ai.Model,
	}, storeOpts...)

	streamer := o.streamer
	var client *chat.Client
	if streamer == nil {
		client = chat.NewClient(chat.ClientConfig{
			HeaderTimeout:     cfg.HTTPClient.HeaderTimeout,
			Retries:           cfg.HTTPClient.Retries,
			RequestsPerSecond: cfg.HTTPClient.RequestsPerSecond,
		}, logger.Component("provider"))
		streamer = client
	}
	relay := chat.NewRelay(chat.RelayOptions{
		Config:    store,
		Client:    streamer,
		Publisher: bus,
		Metrics:   metrics,
		Tracer:    tracer,
		Logger:    logger.Component("chat"),
	})

	core := service.NewCore(sessions, relay, metrics, logger.Logger)
	serviceRegistry := service.NewRegistry()
	for _, p := range []service.Provider{service.NewTerminalProvider(core), service.NewChatProvider(core)} {
		if err := serviceRegistry.Register(p); err != nil {
			return nil, fmt.Errorf("register %s provider: %w", p.Definition().ID, err)
		}
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.FromConfig(cfg.RateLimit)))
	}

	resthttp.NewHandlers(core, serviceRegistry).Register(router)

	wsHandler := ws.NewHandler(serviceRegistry, bus, cfg.Events.SubscriberBuffer, metrics, logger.Component("ws"))
	router.GET("/stream", wsHandler.HandleConnection)

	sources := apihttp.Sources{Sessions: sessions, Streams: relay, Subscribers: bus}
	if client != nil {
		sources.Breakers = client
	}
	aggregator := apihttp.NewMetricsAggregator(metrics, sources)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	router.GET("/metrics/summary", aggregator.GetAggregatedMetrics)

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		bus:      bus,
		sessions: sessions,
		relay:    relay,
		registry: serviceRegistry,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", s.http.Addr, err)
	}
	return nil
}

// WatchSettings applies every change of the provider settings file to the
// live configuration. It returns when ctx is done, immediately if no file is
// configured.
func (s *Server) WatchSettings(ctx context.Context) error {
	path := s.config.AI.SettingsFile
	if path == "" {
		return nil
	}

	log := s.logger.Component("settings")
	return config.WatchSettings(ctx, path, log, func(settings config.ProviderSettings) {
		cfg, err := s.relay.Config().Update(func(cur chat.ProviderConfig) chat.ProviderConfig {
			merged := config.AIConfig{
				Provider: cur.Provider,
				APIKey:   cur.APIKey,
				BaseURL:  cur.BaseURL,
				Model:    cur.Model,
			}.Merge(settings)
			return chat.ProviderConfig{
				Provider: merged.Provider,
				APIKey:   merged.APIKey,
				BaseURL:  merged.BaseURL,
				Model:    merged.Model,
			}
		})
		if err != nil {
			log.Warn("Failed to apply provider settings", zap.Error(err))
			return
		}
		log.Info("Provider settings reloaded",
			zap.String("provider", cfg.Provider),
			zap.String("model", cfg.Model))
	})
}

// Shutdown stops accepting requests, ends every chat stream and terminal
// session, then releases the bus and tracer.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.relay.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("chat relay shutdown: %w", err))
	}
	s.sessions.Close()
	s.bus.Close()
	s.tracer.Close()

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
