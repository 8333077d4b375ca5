package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/harun/aphelion/internal/config"
	"github.com/harun/aphelion/internal/logger"
	"github.com/harun/aphelion/internal/metrics"
	"github.com/harun/aphelion/internal/tracing"
	"github.com/harun/aphelion/pkg/agent"
	"github.com/harun/aphelion/pkg/checkpoint"
	"github.com/harun/aphelion/pkg/gateway"
	"github.com/harun/aphelion/pkg/session"
	"github.com/rs/zerolog"
)

// Daemon wires the agent run loop to its collaborators
type Daemon struct {
	config *config.Config
	logger *logger.Logger
	log    zerolog.Logger
	loader *config.Loader

	// Collaborators
	gateway agent.Gateway
	client  *gateway.Client // nil when Options.Gateway is set
	store   *session.Store
	metrics *metrics.Metrics

	// Services
	metricsServer *http.Server
	metricsAddr   string
	tracer        *tracing.Provider

	// Internal
	eventLoop *EventLoop
	lifecycle *LifecycleManager
	maxCycles int
	version   string
	sleep     agent.SleepFunc
	sessionID string
	done      chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

// Options customizes a daemon beyond its config
type Options struct {
	// Loader enables log level hot reload from the config file
	Loader *config.Loader

	// MaxCycles stops the agent after N cycles, 0 runs until stopped
	MaxCycles int

	// UserAgent is sent with every gateway request
	UserAgent string

	// Version is reported as the trace service version
	Version string

	// Gateway replaces the HTTP gateway client
	Gateway agent.Gateway

	// Generator replaces the configured session generator
	Generator session.Generator

	// Sleep replaces the loop's wait function
	Sleep agent.SleepFunc
}

// Status describes a running daemon
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
	SessionID string
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger, opts Options) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config:    cfg,
		logger:    log,
		log:       log.Component("daemon"),
		loader:    opts.Loader,
		gateway:   opts.Gateway,
		metrics:   metrics.NewMetrics(),
		maxCycles: opts.MaxCycles,
		version:   opts.Version,
		sleep:     opts.Sleep,
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}

	if d.gateway == nil {
		client, err := NewGatewayClient(cfg, opts.UserAgent, log.Component("gateway"))
		if err != nil {
			cancel()
			return nil, err
		}
		d.client = client
		d.gateway = client
	}

	generator := opts.Generator
	if generator == nil {
		generator = d.sessionGenerator()
	}
	d.store = session.NewStore(session.StoreConfig{
		Path:      cfg.Session.Path,
		Generator: generator,
		Logger:    log.Component("session"),
	})

	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// NewGatewayClient builds the HTTP gateway client described by cfg. A token is required.
func NewGatewayClient(cfg *config.Config, userAgent string, log zerolog.Logger) (*gateway.Client, error) {
	if err := config.NewValidator().ValidateToken(cfg.Gateway.Token); err != nil {
		return nil, err
	}

	client, err := gateway.NewClient(gateway.Config{
		BaseURL:            cfg.Gateway.APIURL,
		Token:              cfg.Gateway.Token,
		Timeout:            cfg.Gateway.Timeout,
		RateLimit:          cfg.Gateway.RateLimit,
		Burst:              cfg.Gateway.Burst,
		UserAgent:          userAgent,
		SubscribedServices: cfg.Session.SubscribedServices,
		Logger:             log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway client: %w", err)
	}
	return client, nil
}

// sessionGenerator picks remote creation when configured and the gateway supports it
func (d *Daemon) sessionGenerator() session.Generator {
	if !d.config.Session.RemoteCreate {
		return session.LocalGenerator{}
	}
	if creator, ok := d.gateway.(session.Creator); ok {
		return session.RemoteGenerator{Creator: creator}
	}
	d.log.Warn().Msg("Gateway cannot create sessions, falling back to local session ids")
	return session.LocalGenerator{}
}

// Start loads the session, builds the run loop and starts it in the background.
// A failed Start cancels the daemon context, so the Daemon cannot be started again.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	d.log.Info().Msg("Starting Aphelion daemon")

	if err := d.start(); err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		d.cancel()
		return err
	}

	d.log.Info().
		Str("session_id", d.sessionID).
		Msg("Daemon started successfully")

	return nil
}

func (d *Daemon) start() error {
	if err := d.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	sessionID, err := d.store.LoadOrCreate(d.ctx)
	if err != nil {
		d.stopLifecycle()
		return fmt.Errorf("failed to load session: %w", err)
	}
	if d.store.Created() {
		d.metrics.RecordSessionCreated()
	}

	loop, err := d.buildLoop(sessionID)
	if err != nil {
		d.stopLifecycle()
		return fmt.Errorf("failed to build agent loop: %w", err)
	}

	if d.config.Tracing.Enabled {
		if err := d.startTracing(); err != nil {
			d.stopLifecycle()
			return fmt.Errorf("failed to start tracing: %w", err)
		}
	}

	if d.config.Metrics.Enabled {
		if err := d.startMetricsServer(); err != nil {
			d.stopTracing()
			d.stopLifecycle()
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	d.watchConfig()

	d.mu.Lock()
	d.sessionID = sessionID
	d.eventLoop = NewEventLoop(d, loop)
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(d.done)
		d.eventLoop.Run(d.ctx)
	}()

	return nil
}

// buildLoop assembles scheduler, executor and loop for sessionID
func (d *Daemon) buildLoop(sessionID string) (*agent.Loop, error) {
	cfg := d.config

	gw := d.gateway
	if d.client != nil {
		gw = d.client.ForSession(sessionID)
	}

	policy, err := checkpoint.ParseRecordPolicy(cfg.Checkpoint.RecordOn)
	if err != nil {
		return nil, err
	}

	executor, err := agent.NewExecutor(agent.ExecutorConfig{
		Gateway:      gw,
		Scheduler:    checkpoint.NewScheduler(cfg.Checkpoint.Interval, time.Now()),
		RecordPolicy: policy,
		SessionID:    sessionID,
		Query:        cfg.Agent.Query,
		ToolName:     cfg.Agent.Tool,
		ToolParams:   cfg.Agent.ToolParams,
		Summary:      cfg.Agent.Summary,
		Logger:       d.logger.Component("executor"),
	})
	if err != nil {
		return nil, err
	}

	pacer, err := agent.NewPacer(cfg.Agent.Schedule, cfg.Agent.PacingInterval)
	if err != nil {
		return nil, err
	}

	return agent.NewLoop(agent.LoopConfig{
		Executor:     executor,
		Pacer:        pacer,
		ErrorBackoff: cfg.Agent.ErrorBackoff,
		CycleTimeout: cfg.Agent.CycleTimeout,
		MaxCycles:    d.maxCycles,
		SessionID:    sessionID,
		Sleep:        d.sleep,
		Recorder:     d.metrics,
		Logger:       d.logger.Component("agent"),
	})
}

// startTracing installs the OpenTelemetry provider used for cycle spans
func (d *Daemon) startTracing() error {
	cfg := d.config.Tracing

	provider, err := tracing.Init(d.ctx, tracing.Config{
		ServiceName: "aphelion-agent",
		Version:     d.version,
		Endpoint:    cfg.Endpoint,
		Insecure:    cfg.Insecure,
		SampleRatio: cfg.SampleRatio,
	})
	if err != nil {
		return err
	}
	d.tracer = provider

	d.log.Info().
		Str("endpoint", cfg.Endpoint).
		Float64("sample_ratio", cfg.SampleRatio).
		Msg("Tracing enabled")
	return nil
}

func (d *Daemon) stopTracing() {
	if d.tracer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.tracer.Shutdown(ctx); err != nil {
		d.log.Error().Err(err).Msg("Failed to flush traces")
	}
	d.tracer = nil
}

// startMetricsServer serves /metrics and /healthz on the configured address
func (d *Daemon) startMetricsServer() error {
	ln, err := net.Listen("tcp", d.config.Metrics.Address)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	d.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	d.metricsAddr = ln.Addr().String()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	d.log.Info().Str("address", d.metricsAddr).Msg("Metrics server started")
	return nil
}

// watchConfig hot-reloads the log level; other settings take effect on restart
func (d *Daemon) watchConfig() {
	if d.loader == nil {
		return
	}

	err := d.loader.Watch(func(cfg *config.Config, err error) {
		if err != nil {
			d.log.Warn().Err(err).Msg("Ignoring invalid config change")
			return
		}
		if err := d.logger.SetLevel(cfg.Logging.Level); err != nil {
			d.log.Warn().Err(err).Msg("Failed to apply log level")
			return
		}
		d.log.Info().Str("level", cfg.Logging.Level).Msg("Config reloaded")
	})
	if err != nil {
		d.log.Debug().Err(err).Msg("Config hot reload disabled")
	}
}

// Stop cancels the loop, waits for the in-flight cycle to finish and releases resources
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	d.log.Info().Msg("Stopping Aphelion daemon")

	// Cancel context; a cycle already in progress runs to completion
	d.cancel()

	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.metricsServer.Shutdown(shutdownCtx); err != nil {
			d.log.Error().Err(err).Msg("Failed to stop metrics server")
		}
		cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info().Msg("All goroutines stopped")
	case <-time.After(d.stopTimeout()):
		d.log.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	d.stopTracing()
	d.stopLifecycle()

	d.log.Info().Msg("Daemon stopped successfully")

	return nil
}

// stopTimeout covers one full cycle plus slack
func (d *Daemon) stopTimeout() time.Duration {
	timeout := d.config.Agent.CycleTimeout
	if timeout <= 0 {
		timeout = agent.DefaultCycleTimeout
	}
	return timeout + 5*time.Second
}

func (d *Daemon) stopLifecycle() {
	if err := d.lifecycle.Stop(); err != nil {
		d.log.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}
}

// Done is closed once the agent loop has returned
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until ctx is cancelled (e.g. by SIGINT/SIGTERM) or the loop
// finishes on its own, then stops the daemon.
func (d *Daemon) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		d.log.Info().Msg("Received shutdown signal")
	case <-d.done:
	}
	return d.Stop()
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running:   d.running,
		SessionID: d.sessionID,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// SessionID returns the session id loaded by Start
func (d *Daemon) SessionID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sessionID
}

// MetricsAddr returns the address the metrics server listens on
func (d *Daemon) MetricsAddr() string {
	return d.metricsAddr
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetMetrics returns the daemon metrics
func (d *Daemon) GetMetrics() *metrics.Metrics {
	return d.metrics
}

// GetSessionStore returns the session store
func (d *Daemon) GetSessionStore() *session.Store {
	return d.store
}
