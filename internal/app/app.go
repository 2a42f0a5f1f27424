// Package app wires together the HTTP server, WebSocket hub, the field model
// client, and either the live batch job runner or the demo runner. It owns
// the daemon's lifecycle and is the single source of truth for the current
// operating state.
package app

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/large-farva/fieldline-engine/internal/classify"
	"github.com/large-farva/fieldline-engine/internal/config"
	"github.com/large-farva/fieldline-engine/internal/demo"
	"github.com/large-farva/fieldline-engine/internal/magfield"
	"github.com/large-farva/fieldline-engine/internal/observability"
	"github.com/large-farva/fieldline-engine/internal/orbit"
	"github.com/large-farva/fieldline-engine/internal/ws"
)

// Options holds everything the App needs from the caller.
type Options struct {
	Logger     *log.Logger
	Cfg        config.Config
	Bind       string
	ConfigPath string
}

// App is the top-level daemon process. It manages the HTTP server, the
// WebSocket event hub, the model client, and the active runner (batch job
// runner or demo).
type App struct {
	log        *log.Logger
	bind       string
	configPath string
	server     *http.Server

	cfgMu sync.RWMutex
	cfg   config.Config

	startedAt time.Time
	state     atomic.Value // current state string (BOOTING, IDLE, etc.)

	wsHub   *ws.Hub
	metrics *observability.Collector

	// Live-mode components; all nil when demo mode is enabled.
	model      *magfield.Client
	classifier *classify.Classifier
	jobs       *JobRunner

	stats classificationStats
}

// classificationStats aggregates everything classified since startup, both
// single-point requests and batch rows.
type classificationStats struct {
	mu        sync.Mutex
	Points    int64
	Rows      int64
	Closed    int64
	Open      int64
	IMF       int64
	Jobs      int64
	LastJobAt string
}

// New creates an App in the BOOTING state. Call Run to start serving.
func New(opts Options) (*App, error) {
	a := &App{
		log:        opts.Logger,
		cfg:        opts.Cfg,
		bind:       opts.Bind,
		configPath: opts.ConfigPath,
		startedAt:  time.Now(),
		wsHub:      ws.NewHub(),
	}
	a.state.Store("BOOTING")

	collector, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return nil, err
	}
	a.metrics = collector

	if !a.cfg.Demo.Enabled {
		if err := a.buildLiveComponents(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// buildLiveComponents constructs the model client, classifier, and batch job
// runner from the current configuration.
func (a *App) buildLiveComponents() error {
	cfg := a.getConfig()

	variant, err := magfield.ParseVariant(cfg.Model.ExternalField)
	if err != nil {
		return err
	}
	client, err := magfield.NewClient(magfield.ClientOptions{
		Addr:        cfg.Model.Addr,
		Variant:     variant,
		CoordSystem: cfg.Model.CoordSystem,
		Verbose:     cfg.Model.Verbose,
		DialTimeout: time.Duration(cfg.Model.DialTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	a.model = client

	a.classifier = classify.New(client, a.log, a.wsHub, a.metrics)
	a.classifier.SetStopAltitude(cfg.Model.StopAltitudeKm)

	batch := orbit.NewBatch(a.classifier, a.log, a.wsHub, a.metrics)
	a.jobs = NewJobRunner(batch, a.wsHub, a.log, a.metrics)
	a.jobs.SetJobCallback(a.recordJob)
	return nil
}

// Run starts the HTTP server, WebSocket hub, heartbeat ticker, and either
// the batch job runner or the demo runner. It blocks until the context is
// cancelled or the server returns an error.
func (a *App) Run(ctx context.Context) error {
	cfg := a.getConfig()

	bind := a.bind
	if bind == "" && cfg.Server.Bind != "" {
		bind = cfg.Server.Bind
	}
	if bind == "" {
		bind = "0.0.0.0:8080"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/version", a.handleVersion)
	mux.HandleFunc("/api/config", a.handleConfig)
	mux.HandleFunc("/api/classify", a.handleClassify)
	mux.HandleFunc("/api/trace", a.handleTrace)
	mux.HandleFunc("/api/batch", a.handleBatch)
	mux.HandleFunc("/api/jobs", a.handleJobs)
	mux.HandleFunc("/api/jobs/cancel", a.handleJobCancel)
	mux.HandleFunc("/api/summary", a.handleSummary)
	mux.HandleFunc("/api/orbit/generate", a.handleOrbitGenerate)
	mux.Handle("/metrics", a.metrics.Handler())
	mux.Handle("/ws", a.wsHub.Handler())

	a.server = &http.Server{
		Addr:              bind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	a.log.Printf("listening on http://%s", bind)

	go a.wsHub.Run(ctx)
	a.transition("IDLE")
	go a.heartbeatLoop(ctx)

	if cfg.Demo.Enabled {
		r := demo.New(a.wsHub)
		if cfg.Demo.IntervalSeconds > 0 {
			r.Interval = time.Duration(cfg.Demo.IntervalSeconds) * time.Second
		}
		go r.Run(ctx, a.transition)
	} else {
		go a.jobs.Run(ctx, a.transition)
	}

	go func() {
		<-ctx.Done()
		a.log.Printf("shutdown requested")
		if a.model != nil {
			_ = a.model.Close()
		}
		_ = a.server.Shutdown(context.Background())
	}()

	return a.server.Serve(ln)
}

// getConfig returns a copy of the current configuration.
func (a *App) getConfig() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// transition atomically updates the daemon state and broadcasts the change
// to all connected WebSocket clients.
func (a *App) transition(newState string) {
	old := a.state.Load().(string)
	if old == newState {
		return
	}
	a.state.Store(newState)

	a.emit("fieldlined", map[string]any{
		"type": "state",
		"from": old,
		"to":   newState,
	})
}

// heartbeatLoop sends a periodic heartbeat event so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			ev := map[string]any{
				"type":           "heartbeat",
				"ts":             time.Now().UTC().Format(time.RFC3339Nano),
				"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
				"state":          a.state.Load().(string),
			}
			a.wsHub.BroadcastJSON(ev)
		}
	}
}

// emit stamps a payload with a timestamp and component name, then pushes it
// to every connected WebSocket client.
func (a *App) emit(component string, payload map[string]any) {
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	payload["component"] = component
	a.wsHub.BroadcastJSON(payload)
}

// recordPoint folds one interactive classification into the running totals.
func (a *App) recordPoint(res classify.Result) {
	a.stats.mu.Lock()
	defer a.stats.mu.Unlock()
	a.stats.Points++
	switch res.Classification {
	case classify.Closed:
		a.stats.Closed++
	case classify.Open:
		a.stats.Open++
	default:
		a.stats.IMF++
	}
}

// recordJob folds a finished batch job into the running totals.
func (a *App) recordJob(job *Job) {
	a.stats.mu.Lock()
	defer a.stats.mu.Unlock()
	a.stats.Jobs++
	a.stats.LastJobAt = job.Finished
	if job.Summary != nil {
		a.stats.Rows += int64(job.Summary.Rows)
		a.stats.Closed += int64(job.Summary.Closed)
		a.stats.Open += int64(job.Summary.Open)
		a.stats.IMF += int64(job.Summary.IMF)
	}
}
