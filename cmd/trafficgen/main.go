// Command trafficgen simulates a population of shoppers against an
// e-commerce API and streams every step they take to a message bus.
//
// Usage:
//
//	trafficgen -config configs/trafficgen.yaml [flags]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trafficgen/internal/action"
	"trafficgen/internal/catalog"
	"trafficgen/internal/collector"
	"trafficgen/internal/config"
	"trafficgen/internal/logging"
	"trafficgen/internal/metrics"
	"trafficgen/internal/progress"
	"trafficgen/internal/pubsub"
	"trafficgen/internal/ratelimit"
	"trafficgen/internal/scheduler"
	"trafficgen/internal/session"
	"trafficgen/internal/shop"
	"trafficgen/internal/sink"
)

const (
	ExitSuccess = 0
	ExitError   = 2
)

// catalogTimeout bounds the blocking catalog fetch before any session starts.
const catalogTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to YAML config file (required)")
	users := flag.Int("users", 0, "number of simulated users (overrides simulation.users)")
	concurrency := flag.Int("concurrency", 0, "max concurrent users (overrides simulation.max_concurrent)")
	maxTicks := flag.Int("max-ticks", -1, "top-level steps per user (overrides simulation.max_ticks)")
	output := flag.String("output", "text", "output format: text, json")
	quiet := flag.Bool("quiet", false, "suppress progress output during the run")
	verbose := flag.Bool("verbose", false, "enable debug logging with request/response dumps")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "error: --config is required")
		flag.Usage()
		return ExitError
	}
	if *output != "text" && *output != "json" {
		fmt.Fprintf(os.Stderr, "error: --output must be 'text' or 'json', got %q\n", *output)
		return ExitError
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}

	// CLI flags override config file values
	if *users > 0 {
		cfg.Simulation.Users = *users
	}
	if *concurrency > 0 {
		cfg.Simulation.MaxConcurrent = *concurrency
	}
	if *maxTicks >= 0 {
		cfg.Simulation.MaxTicks = maxTicks
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	log, shipper, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	endpoints, err := shop.ResolveEndpoints(cfg.Target.Endpoints)
	if err != nil {
		log.Error("resolving endpoints", zap.Error(err))
		return ExitError
	}
	shopOpts := shop.Options{
		BaseURL:   cfg.Target.BaseURL,
		Endpoints: endpoints,
		Timeout:   cfg.Target.Timeout,
		Transport: shop.NewTransport(cfg.Simulation.MaxConcurrent),
		Limiter:   ratelimit.NewRateLimiter(cfg.Target.MaxRPS),
	}
	if *verbose {
		shopOpts.Debug = shop.NewDebugLogger(log.Named("http"))
	}

	cat, err := loadCatalog(ctx, cfg, shopOpts, filepath.Dir(*configPath), log.Named("catalog"))
	if err != nil {
		log.Error("loading catalog", zap.Error(err))
		return ExitError
	}

	publisher, err := sink.NewPublisher(cfg.Bus, log)
	if err != nil {
		log.Error("creating event publisher", zap.String("driver", cfg.Bus.Driver), zap.Error(err))
		return ExitError
	}
	bus := sink.NewAsync(publisher, sink.Options{
		BufferSize:     cfg.Bus.BufferSize,
		BatchSize:      cfg.Bus.BatchSize,
		FlushInterval:  cfg.Bus.FlushInterval,
		PublishTimeout: cfg.Bus.PublishTimeout,
		MaxAttempts:    cfg.Bus.MaxAttempts,
		Logger:         log.Named("sink"),
	})

	coll := collector.NewCollector()
	recorder := metrics.NewRecorder()
	events := sink.Tee{coll, recorder, bus}

	exec := action.NewExecutor(action.Options{
		Catalog: cat,
		Sink:    events,
		Profile: cfg.Profile,
		Logger:  log.Named("action"),
	})
	factory := &session.Factory{
		Config: session.Config{
			Model:    session.NewModel(cfg.Transitions),
			Executor: exec,
			MaxTicks: cfg.Simulation.Ticks(),
			Pause:    cfg.Simulation.Pause,
			Logger:   log.Named("session"),
		},
		Profile: cfg.Profile,
		Shop:    shopOpts,
		Seed:    cfg.Simulation.Seed,
	}

	sched := scheduler.New(scheduler.Options{
		MaxConcurrent: cfg.Simulation.MaxConcurrent,
		Stagger:       cfg.Simulation.Stagger,
		Sink:          events,
		Logger:        log.Named("scheduler"),
	})

	var metricsSrv *metrics.Server
	if cfg.Metrics.Addr != "" {
		recorder.Gauge("active_sessions", "Sessions currently running.", func() float64 {
			return float64(sched.Active())
		})
		recorder.Gauge("events_dropped_total", "Events the bus sink dropped because its buffer was full.", func() float64 {
			return float64(bus.Stats().Dropped)
		})
		metricsSrv = metrics.NewServer(recorder, log.Named("metrics"))
		metricsSrv.AddReadinessCheck("catalog", func() error {
			if cat.Empty() {
				return catalog.ErrEmpty
			}
			return nil
		})
		if err := metricsSrv.Start(cfg.Metrics.Addr); err != nil {
			log.Error("starting metrics server", zap.Error(err))
			return ExitError
		}
	}

	prog := progress.NewProgress(coll, sched, cfg.Simulation.Users, *quiet)
	prog.Printf("Traffic generator starting: %d users, %d concurrent, %d max ticks, target %s",
		cfg.Simulation.Users, cfg.Simulation.MaxConcurrent, cfg.Simulation.Ticks(), cfg.Target.BaseURL)
	prog.Start()

	stats := sched.Run(ctx, cfg.Simulation.Users, func(i int) (scheduler.Session, error) {
		return factory.New(i)
	})

	prog.Stop()
	coll.Close()
	if ctx.Err() != nil {
		log.Warn("interrupted", zap.Int("skipped", stats.Skipped))
	}

	shutdown(log, bus, shipper, metricsSrv)

	summary := coll.Summary()
	if *output == "json" {
		collector.FormatJSON(os.Stdout, summary)
	} else {
		collector.FormatText(os.Stdout, summary)
	}
	return ExitSuccess
}

// newLogger builds the process logger. With logging.ship the records are
// also published to the bus topic.
func newLogger(cfg *config.Config) (*zap.Logger, *logging.Shipper, error) {
	if !cfg.Logging.Ship {
		return logging.New(cfg.Logging, os.Stderr), nil, nil
	}
	client, err := pubsub.NewClient(pubsub.Options{
		Endpoint:         cfg.Bus.Endpoint,
		DomainID:         cfg.Bus.DomainID,
		ProjectID:        cfg.Bus.ProjectID,
		CredentialID:     cfg.Bus.CredentialID,
		CredentialSecret: cfg.Bus.CredentialSecret,
		Timeout:          cfg.Bus.PublishTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("log shipping: %w", err)
	}
	shipper := logging.NewShipper(client, cfg.Bus.Topic, logging.ShipperOptions{
		BufferSize:     cfg.Bus.BufferSize,
		BatchSize:      cfg.Bus.BatchSize,
		FlushInterval:  cfg.Bus.FlushInterval,
		PublishTimeout: cfg.Bus.PublishTimeout,
	})
	return logging.New(cfg.Logging, os.Stderr, shipper.Core(logging.Level(cfg.Logging))), shipper, nil
}

// loadCatalog fetches products and categories before any session starts.
// When the API cannot be read the seed file is tried; an empty catalog is
// only fatal when catalog.required is set.
func loadCatalog(ctx context.Context, cfg *config.Config, opts shop.Options, baseDir string, log *zap.Logger) (*catalog.Catalog, error) {
	client, err := shop.NewClient(opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, catalogTimeout)
	defer cancel()

	cat, err := catalog.Load(ctx, client)
	switch {
	case err == nil:
		log.Info("catalog loaded", zap.Int("products", cat.Len()), zap.Int("categories", len(cat.Categories())))
		return cat, nil
	case cat != nil:
		log.Warn("categories unavailable, deriving them from products", zap.Error(err))
		return cat, nil
	}
	log.Warn("catalog fetch failed", zap.Error(err))

	if cfg.Catalog.SeedFile != "" {
		seeded, serr := catalog.LoadFile(cfg.Catalog.SeedFile, baseDir)
		if serr == nil {
			log.Info("catalog seeded from file", zap.String("file", cfg.Catalog.SeedFile), zap.Int("products", seeded.Len()))
			return seeded, nil
		}
		err = errors.Join(err, serr)
	}
	if cfg.Catalog.Required {
		return nil, err
	}
	log.Warn("continuing with an empty catalog; product actions fall back to the default product")
	return catalog.New(nil, nil), nil
}

// shutdown drains the event and log pipelines so nothing queued is lost.
func shutdown(log *zap.Logger, bus *sink.Async, shipper *logging.Shipper, metricsSrv *metrics.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := bus.Close(ctx); err != nil {
		log.Warn("closing event sink", zap.Error(err))
	}
	st := bus.Stats()
	log.Info("event sink closed",
		zap.Int64("published", st.Published), zap.Int64("dropped", st.Dropped), zap.Int64("failed", st.Failed))

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			log.Warn("stopping metrics server", zap.Error(err))
		}
	}
	if shipper != nil {
		log.Sync()
		if err := shipper.Close(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "log shipping: %v\n", err)
		}
	}
}
