package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mindmesh/mindmesh/config"
	"github.com/mindmesh/mindmesh/pkg/actor"
	"github.com/mindmesh/mindmesh/pkg/analysis"
	"github.com/mindmesh/mindmesh/pkg/api"
	"github.com/mindmesh/mindmesh/pkg/concept"
	"github.com/mindmesh/mindmesh/pkg/eventbus"
	"github.com/mindmesh/mindmesh/pkg/knowledge"
	"github.com/mindmesh/mindmesh/pkg/logger"
	"github.com/mindmesh/mindmesh/pkg/metrics"
	"github.com/mindmesh/mindmesh/pkg/telemetry/tracing"
	"github.com/mindmesh/mindmesh/pkg/version"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file")
	versionFlag = flag.Bool("version", false, "Print version information")
	helpFlag    = flag.Bool("help", false, "Print help information")

	// CLI overrides
	serverPort = flag.Int("port", 0, "Override introspection server port")
	logLevel   = flag.String("log-level", "", "Override log level")
	debugMode  = flag.Bool("debug", false, "Enable debug mode")
)

func main() {
	flag.Parse()

	if *helpFlag {
		printHelp()
		os.Exit(0)
	}
	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath, buildOverrides())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration:\n%s\n", err)
		os.Exit(1)
	}

	logCfg := &logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	if cfg.App.Debug || *debugMode {
		logCfg.Level = logger.DebugLevel
	}
	log := logger.New(logCfg)
	logger.SetGlobal(log)

	log.Info("Starting MindMesh",
		"version", version.Version,
		"gitCommit", version.GitCommit,
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)
	log.Debug("Configuration loaded", "config", cfg.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Tracing
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Name, version.Version)
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Metrics
	metricsManager := metrics.NewManager(metrics.Config{
		Enabled:                cfg.Metrics.Enabled,
		Port:                   cfg.Metrics.Port,
		Path:                   cfg.Metrics.Path,
		HandlerDurationBuckets: metrics.DefaultConfig().HandlerDurationBuckets,
		IngestDurationBuckets:  metrics.DefaultConfig().IngestDurationBuckets,
		HTTPDurationBuckets:    metrics.DefaultConfig().HTTPDurationBuckets,
	})
	if metricsManager.Enabled() {
		go func() {
			log.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := metricsManager.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				log.Error("Metrics server error", "error", err)
			}
		}()
	}

	// Lifecycle event bus
	var bus *eventbus.Bus
	if cfg.Events.Enabled {
		bus = eventbus.New()
	}

	// Knowledge graph
	conceptParams := conceptParamsFrom(cfg)
	graph, err := knowledge.New(knowledge.Config{
		Workers:             cfg.Engine.Workers,
		InitialCapacity:     cfg.Engine.InitialCapacity,
		MailboxCapacity:     cfg.Engine.MailboxCapacity,
		MaintenanceInterval: cfg.Maintenance.Interval,
		LearnEvery:          cfg.Maintenance.LearnEvery,
		Concept:             conceptParams,
	},
		knowledge.WithLogger(log.With("component", "knowledge")),
		knowledge.WithMetrics(metricsManager),
		knowledge.WithEventBus(bus),
		knowledge.WithEngineOptions(
			actor.WithLogger(log.With("component", "engine")),
			actor.WithMetrics(metricsManager),
		),
	)
	if err != nil {
		log.Error("Failed to create knowledge graph", "error", err)
		os.Exit(1)
	}

	// Analysis front-end
	analyzer, err := analysis.New(analysis.Config{
		WindowSize:     cfg.Ingestion.WindowSize,
		MinTokenLength: cfg.Ingestion.MinTokenLength,
		RateLimit:      cfg.Ingestion.RateLimit,
	}, graph,
		analysis.WithLogger(log.With("component", "analysis")),
		analysis.WithMetrics(metricsManager),
	)
	if err != nil {
		log.Error("Failed to create analyzer", "error", err)
		os.Exit(1)
	}

	// Ingest documents given as positional arguments.
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error("Failed to read document", "path", path, "error", err)
			continue
		}
		report, err := analyzer.IngestDocument(ctx, string(data))
		if err != nil {
			log.Error("Failed to ingest document", "path", path, "error", err)
			continue
		}
		log.Info("Document ingested",
			"path", path,
			"concepts", report.Concepts,
			"relations", report.Relations,
		)
	}
	graph.WaitAll()

	// Periodic maintenance
	go func() {
		interval := cfg.Maintenance.Interval
		if interval <= 0 {
			interval = time.Minute
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				graph.RunMaintenance()
			case <-ctx.Done():
				return
			}
		}
	}()

	// Introspection server
	var httpServer *api.HTTPServer
	serverErrChan := make(chan error, 1)
	if cfg.Server.Enabled {
		handlers := &api.Handlers{
			Graph:    graph,
			Analyzer: analyzer,
			Metrics:  metricsManager,
		}
		if bus != nil {
			handlers.Events = api.NewEventStream(bus, "", cfg.Events.SubscriberBuffer, log)
		}
		httpServer = api.NewHTTPServer(&cfg.Server, log, handlers)
		go func() {
			if err := httpServer.Start(); err != nil {
				serverErrChan <- err
			}
		}()
	}

	// Hot-reload log level on config file changes.
	var watcher *config.Watcher
	if *configPath != "" {
		watcher, err = config.NewWatcher(*configPath, config.NewLoader())
		if err != nil {
			log.Warn("Config watcher unavailable", "error", err)
		} else {
			watcher.OnChange(func(next *config.Config) {
				hot := config.ExtractHotReloadable(next)
				log.SetLevel(logger.ParseLevel(hot.LogLevel))
				graph.Tune(hot.MaintenanceInterval, hot.LearnEvery)
				analyzer.SetRateLimit(hot.IngestionRateLimit)
				log.Info("Configuration reloaded",
					"level", hot.LogLevel,
					"maintenance_interval", hot.MaintenanceInterval,
					"learn_every", hot.LearnEvery,
					"ingest_rate_limit", hot.IngestionRateLimit,
				)
			})
			go func() {
				if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
					log.Warn("Config watcher stopped", "error", err)
				}
			}()
		}
	}

	log.Info("MindMesh is running",
		"concepts", graph.ConceptCount(),
		"http_port", cfg.Server.Port,
		"metrics_port", cfg.Metrics.Port,
	)

	select {
	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErrChan:
		log.Error("Introspection server error", "error", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down introspection server", "error", err)
		}
	}
	if watcher != nil {
		_ = watcher.Stop()
	}

	log.Info("Stopping knowledge graph")
	graph.Shutdown()

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error shutting down tracing", "error", err)
	}
	_ = log.Close()
}

// conceptParamsFrom merges config overrides over the built-in defaults.
func conceptParamsFrom(cfg *config.Config) concept.Params {
	p := concept.DefaultParams()
	if cfg.Concept.PropagationThreshold > 0 {
		p.PropagationThreshold = cfg.Concept.PropagationThreshold
	}
	if cfg.Concept.MinActivation > 0 {
		p.MinActivation = cfg.Concept.MinActivation
	}
	if cfg.Concept.DecayRate > 0 {
		p.DecayRate = cfg.Concept.DecayRate
	}
	if cfg.Concept.EnergyDecayRate > 0 {
		p.EnergyDecayRate = cfg.Concept.EnergyDecayRate
	}
	if cfg.Concept.RecentWindow > 0 {
		p.RecentWindow = cfg.Concept.RecentWindow
	}
	if cfg.Concept.StaleWindow > 0 {
		p.StaleWindow = cfg.Concept.StaleWindow
	}
	return p
}

func buildOverrides() map[string]interface{} {
	overrides := make(map[string]interface{})

	if *serverPort != 0 {
		overrides["server.port"] = *serverPort
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}
	if *debugMode {
		overrides["app.debug"] = true
	}

	return overrides
}

func printVersion() {
	fmt.Printf("MindMesh - Concurrent Knowledge Graph Engine\n")
	fmt.Printf("Version:    %s\n", version.Version)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
	fmt.Printf("Go Version: %s\n", version.GoVersion)
}

func printHelp() {
	fmt.Printf("MindMesh - concurrent, actor-based knowledge graph engine\n\n")
	fmt.Printf("Usage: mindmesh [options] [document...]\n\n")
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  mindmesh                               # Run with default config\n")
	fmt.Printf("  mindmesh -config config.yaml           # Use specific config file\n")
	fmt.Printf("  mindmesh corpus.txt notes.txt          # Ingest documents at startup\n")
	fmt.Printf("  mindmesh -log-level debug -port 9090   # Override specific options\n")
}
