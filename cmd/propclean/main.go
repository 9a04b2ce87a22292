// Command propclean runs the property-sale cleaning pipeline against a
// configured sales table. It can also seed the table from a CSV export
// (-load) or just check a config (-validate).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"propclean/internal/audit"
	"propclean/internal/config"
	"propclean/internal/loader"
	"propclean/internal/metrics"
	"propclean/internal/metrics/datadog"
	"propclean/internal/pipeline"
	"propclean/internal/storage"

	// register all backends with the storage factory.
	// config specifies which to use but we build in support for all of them.
	_ "propclean/internal/storage/all"
)

func main() {
	// Best effort; a missing .env just means the environment is already set.
	_ = godotenv.Load()

	os.Exit(runMain(context.Background(), os.Args[1:], os.Stdout, os.Stderr, defaultDeps()))
}

// appDeps are the side-effecting collaborators of runMain, injectable so CLI
// tests run without files, databases or metrics endpoints.
type appDeps struct {
	readFile    func(string) ([]byte, error)
	unmarshal   func([]byte, any) error
	newRepo     func(context.Context, storage.Config) (storage.Repository, error)
	newRecorder func(context.Context, storage.Repository, string, *zap.Logger) (audit.Recorder, error)
	load        func(context.Context, storage.Repository, config.Pipeline, *zap.Logger) (loader.Result, error)
	run         func(context.Context, pipeline.Env, config.Pipeline) error
	initMetrics func(context.Context, string, string) (func(), error)
}

func defaultDeps() appDeps {
	return appDeps{
		readFile:    os.ReadFile,
		unmarshal:   json.Unmarshal,
		newRepo:     storage.New,
		newRecorder: audit.New,
		load:        loader.Load,
		run: func(ctx context.Context, env pipeline.Env, cfg config.Pipeline) error {
			return pipeline.NewRunner(env, cfg).Run(ctx)
		},
		initMetrics: initMetrics,
	}
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("propclean", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfgPath := fs.String("config", "", "pipeline config JSON path")
	doLoad := fs.Bool("load", false, "seed the sales table from the configured CSV before cleaning")
	validate := fs.Bool("validate", false, "validate the configuration and exit")
	metricsBackendFlg := fs.String("metrics-backend", "", "metrics backend to use (none|datadog); overrides env METRICS_BACKEND")
	verbose := fs.Bool("v", false, "enable debug logs")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*cfgPath) == "" {
		fmt.Fprintln(stderr, "usage: propclean -config path/to/pipeline.json [-load] [-validate]")
		return 2
	}

	raw, err := deps.readFile(*cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "read config: %v\n", err)
		return 1
	}

	var cfg config.Pipeline
	if err := deps.unmarshal(raw, &cfg); err != nil {
		fmt.Fprintf(stderr, "parse config: %v\n", err)
		return 1
	}
	cfg.ApplyDefaults()

	issues := config.ValidatePipeline(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(stderr, "configuration is invalid: %s\n", *cfgPath)
		return 1
	}
	if *validate {
		fmt.Fprintf(stdout, "configuration is valid: %s\n", *cfgPath)
		return 0
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// Decide metrics backend: flag, then env, then none.
	backendName := *metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	cleanup, err := deps.initMetrics(ctx, jobName(cfg), backendName)
	if err != nil {
		fmt.Fprintf(stderr, "init metrics: %v\n", err)
		return 1
	}
	defer cleanup()

	repo, err := deps.newRepo(ctx, storage.Config{
		Kind: cfg.Storage.Kind,
		DSN:  os.ExpandEnv(cfg.Storage.DSN),
	})
	if err != nil {
		fmt.Fprintf(stderr, "storage: %v\n", err)
		return 1
	}
	defer repo.Close()

	if *doLoad {
		res, err := deps.load(ctx, repo, cfg, logger)
		if err != nil {
			fmt.Fprintf(stderr, "load: %v\n", err)
			return 1
		}
		logger.Info("load finished",
			zap.Int64("rows", res.RowsInserted),
			zap.Int("bad_lines", res.BadLines),
			zap.Bool("skipped", res.Skipped))
	}

	recorder := audit.Nop()
	if cfg.Audit.Enabled {
		recorder, err = deps.newRecorder(ctx, repo, cfg.Audit.Table, logger)
		if err != nil {
			fmt.Fprintf(stderr, "audit: %v\n", err)
			return 1
		}
	}

	env := pipeline.Env{
		Repo:      repo,
		Table:     cfg.Table.Name,
		Columns:   cfg.Table.Columns,
		BatchSize: cfg.Runtime.BatchSize,
		Audit:     recorder,
		Logger:    logger,
	}

	start := time.Now()
	if err := deps.run(ctx, env, cfg); err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	logger.Info("pipeline finished",
		zap.String("job", jobName(cfg)),
		zap.Duration("duration", time.Since(start).Truncate(time.Millisecond)))

	fmt.Fprintln(stdout, "ok")
	return 0
}

func jobName(cfg config.Pipeline) string {
	if cfg.Job != "" {
		return cfg.Job
	}
	return "propclean"
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		zcfg.Development = true
	}
	return zcfg.Build()
}

// metricsBackend is the slice of the Datadog backend the CLI needs for
// shutdown. Narrow on purpose so tests can fake it.
type metricsBackend interface {
	Close() error
}

// Seams for initMetrics tests.
var (
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		return datadog.NewBackend(ctx, opts)
	}
	setMetricsBackend = func(b any) {
		metrics.SetBackend(b.(metrics.Backend))
	}
	logPrintf = log.Printf
)

// initMetrics wires the process-wide metrics backend and returns a cleanup
// that flushes it. The cleanup is always non-nil and safe to call.
func initMetrics(ctx context.Context, jobName, backendName string) (func(), error) {
	switch backendName {
	case "", "none", "noop":
		// metrics disabled; the nop backend stays installed
		return func() {}, nil

	case "datadog", "dd":
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName:    jobName,
			Tags:       datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
			FlushEvery: time.Minute,
		})
		if err != nil {
			return func() {}, err
		}
		setMetricsBackend(b)
		return func() {
			// Close stops the periodic flush loop and submits one final time.
			if err := b.Close(); err != nil {
				logPrintf("metrics: datadog close error: %v", err)
			}
		}, nil

	default:
		return func() {}, fmt.Errorf("unknown metrics backend %q (none|datadog)", backendName)
	}
}
