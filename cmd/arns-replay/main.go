package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arns/config"
	"arns/core/events"
	"arns/core/state"
	"arns/native/names"
	"arns/native/params"
	"arns/observability"
	"arns/observability/logging"
	telemetry "arns/observability/otel"
	"arns/storage"
)

type options struct {
	configFile   string
	scriptFile   string
	metricsAddr  string
	memory       bool
	otlpEndpoint string
	otlpInsecure bool
}

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	scriptFile := flag.String("script", "", "Path to the YAML command script")
	metricsAddr := flag.String("metrics", "", "Serve /metrics on this address and keep serving after the replay until interrupted")
	memory := flag.Bool("memory", false, "Keep snapshots in memory instead of LevelDB")
	logFile := flag.String("log-file", "", "Also write logs to this rotating file")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error")
	otlpEndpoint := flag.String("otlp-endpoint", os.Getenv("ARNS_OTLP_ENDPOINT"), "Export replay traces to this OTLP/HTTP collector")
	otlpInsecure := flag.Bool("otlp-insecure", false, "Use plain HTTP for the OTLP exporter")
	flag.Parse()

	logger, closer := logging.SetupWithOptions(logging.Options{
		Service: "arns-replay",
		Env:     strings.TrimSpace(os.Getenv("ARNS_ENV")),
		Level:   logging.ParseLevel(*logLevel),
		File:    *logFile,
	})
	defer closer.Close()
	logger = logger.With(slog.String("run_id", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, logger, options{
		configFile:   *configFile,
		scriptFile:   *scriptFile,
		metricsAddr:  *metricsAddr,
		memory:       *memory,
		otlpEndpoint: *otlpEndpoint,
		otlpInsecure: *otlpInsecure,
	})
	if err != nil {
		logger.Error("Replay failed", slog.Any("error", err))
		closer.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	if strings.TrimSpace(opts.scriptFile) == "" {
		return errors.New("-script is required")
	}
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	runtime, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build config: %w", err)
	}
	script, err := LoadScript(opts.scriptFile)
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "arns-replay",
		Environment: cfg.NetworkName,
		Endpoint:    strings.TrimSpace(opts.otlpEndpoint),
		Insecure:    opts.otlpInsecure,
		Headers:     telemetry.ParseHeaders(os.Getenv("ARNS_OTLP_HEADERS")),
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Trace flush failed", slog.Any("error", err))
		}
	}()

	var db storage.Database
	if opts.memory {
		db = storage.NewMemDB()
	} else {
		dir := filepath.Join(cfg.DataDir, "registry")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("prepare data directory: %w", err)
		}
		level, err := storage.NewLevelDB(dir)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		db = level
	}
	defer db.Close()
	store := state.NewStore(db, logger)

	engine, err := names.NewEngine(runtime.Names)
	if err != nil {
		return err
	}
	pauses, err := params.NewStore(params.NewDBState(db)).ResolvePauses(runtime.Pauses)
	if err != nil {
		return fmt.Errorf("resolve pauses: %w", err)
	}
	engine.SetPauses(pauses)
	engine.SetObserver(observability.Names())
	engine.SetEmitter(events.MultiEmitter{observability.Events(), logEmitter{logger: logger}})

	var server *http.Server
	if addr := strings.TrimSpace(opts.metricsAddr); addr != "" {
		server = &http.Server{Addr: addr, Handler: metricsRouter(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server stopped", slog.Any("error", err))
			}
		}()
		logger.Info("Serving metrics", slog.String("address", addr))
	}

	reg, height, err := store.Latest()
	switch {
	case errors.Is(err, state.ErrNoSnapshot):
		reg, err = state.NewRegistry(runtime.Genesis)
		if err != nil {
			return fmt.Errorf("genesis registry: %w", err)
		}
		if err := seedBalances(reg, script.Balances, engine); err != nil {
			return err
		}
		logger.Info("Starting from genesis", slog.String("network", cfg.NetworkName))
	case err != nil:
		return fmt.Errorf("load snapshot: %w", err)
	default:
		logger.Info("Resuming from snapshot", slog.Uint64("height", height))
	}

	reg, summary, err := replay(ctx, logger, engine, reg, script.Steps)
	if err != nil {
		return err
	}
	if summary.Height < height {
		summary.Height = height
	}
	digest, err := store.Save(summary.Height, reg)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	root, err := state.RecordsRoot(reg)
	if err != nil {
		return err
	}
	logger.Info("Replay complete",
		slog.Int("applied", summary.Applied),
		slog.Int("rejected", summary.Rejected),
		slog.Uint64("height", summary.Height))
	fmt.Printf("height=%d applied=%d rejected=%d digest=%s records_root=%s\n",
		summary.Height, summary.Applied, summary.Rejected, hex.EncodeToString(digest[:]), hex.EncodeToString(root[:]))

	if server != nil {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
	return nil
}

func metricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// logEmitter writes every registry event to the debug log.
type logEmitter struct {
	logger *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	if l.logger == nil || evt == nil {
		return
	}
	payload := evt.Event()
	attrs := make([]any, 0, len(payload.Attributes)+1)
	attrs = append(attrs, slog.String("type", payload.Type))
	for _, key := range sortedKeys(payload.Attributes) {
		attrs = append(attrs, slog.String(key, payload.Attributes[key]))
	}
	l.logger.Debug("Registry event", attrs...)
}
