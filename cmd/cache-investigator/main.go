package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	investigator "github.com/always-cache/cache-investigator"
	"github.com/always-cache/cache-investigator/metrics"
	"github.com/always-cache/cache-investigator/oracle/anthropic"
	"github.com/always-cache/cache-investigator/oracle/openai"
	"github.com/always-cache/cache-investigator/probe"
	"github.com/always-cache/cache-investigator/report"
	"github.com/always-cache/cache-investigator/server"
	"github.com/always-cache/cache-investigator/store"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	configFilenameFlag string
	maxIterationsFlag  int
	timeoutFlag        time.Duration
	oracleTimeoutFlag  time.Duration
	providerFlag       string
	modelFlag          string
	apiKeyFlag         string
	jsonFlag           bool
	verboseFlag        bool
	verbosityTraceFlag bool
	dbFilenameFlag     string
	rpsFlag            float64
	compactAfterFlag   int
	userAgentFlag      string
	serveAddrFlag      string
	metricsAddrFlag    string
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to YAML config file")
	flag.IntVar(&maxIterationsFlag, "max-iterations", investigator.DefaultMaxIterations, "Maximum number of oracle round-trips")
	flag.DurationVar(&timeoutFlag, "timeout", investigator.DefaultTimeout, "Timeout of each request to the site")
	flag.DurationVar(&oracleTimeoutFlag, "oracle-timeout", 0, "Timeout of each oracle call (0 for none)")
	flag.StringVar(&providerFlag, "provider", "anthropic", "Oracle provider (anthropic or openai)")
	flag.StringVar(&modelFlag, "model", "", "Model to use (provider default if empty)")
	flag.StringVar(&apiKeyFlag, "api-key", "", "API key (defaults to ANTHROPIC_API_KEY or OPENAI_API_KEY)")
	flag.BoolVar(&jsonFlag, "json", false, "Print the result as JSON")
	flag.BoolVar(&verboseFlag, "v", false, "Verbosity: debug logging, tool inputs and outputs")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&dbFilenameFlag, "db", "investigations.db", "Run DB file name (use 'memory' for in-memory db, 'none' to disable)")
	flag.Float64Var(&rpsFlag, "rps", 5, "Maximum requests per second to the site")
	flag.IntVar(&compactAfterFlag, "compact-after", 0, "Shorten tool results older than this many turns (0 to disable)")
	flag.StringVar(&userAgentFlag, "user-agent", probe.DefaultUserAgent, "User-Agent sent to the site")
	flag.StringVar(&serveAddrFlag, "serve", "", "Serve stored runs on this address instead of investigating")
	flag.StringVar(&metricsAddrFlag, "metrics-addr", "", "Expose Prometheus metrics on this address during the run")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stderr)")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <url>\n       %s -serve :8080 [flags]\n\n", os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	if configFilenameFlag != "" {
		config, err := getConfig(configFilenameFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot read config: %v\n", err)
			os.Exit(1)
		}
		explicit := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		config.apply(explicit)
	}

	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx))
}

func setupLogging() {
	logLevel := zerolog.InfoLevel
	if verboseFlag {
		logLevel = zerolog.DebugLevel
	}
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// stdout carries the report, logs go to stderr
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()
}

func run(ctx context.Context) int {
	runs, err := openStore(dbFilenameFlag)
	if err != nil {
		log.Error().Err(err).Msg("Cannot open run DB")
		return 1
	}

	if serveAddrFlag != "" {
		if runs == nil {
			log.Error().Msg("-serve needs a run DB, -db must not be 'none'")
			return 1
		}
		return serve(ctx, serveAddrFlag, server.New(server.Config{Store: runs}))
	}

	if flag.NArg() != 1 {
		flag.Usage()
		return 1
	}
	target, err := investigator.ParseTarget(flag.Arg(0))
	if err != nil {
		log.Error().Err(err).Msg("Invalid URL")
		return 1
	}

	oracle, err := newOracle(providerFlag, modelFlag, apiKeyFlag)
	if err != nil {
		log.Error().Err(err).Msg("Cannot set up oracle")
		return 1
	}

	runMetrics := metrics.New(prometheus.DefaultRegisterer)
	if metricsAddrFlag != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddrFlag, mux); err != nil {
				log.Warn().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	fetcher := probe.NewHTTPClient(probe.Config{
		UserAgent:         userAgentFlag,
		RequestsPerSecond: rpsFlag,
	})
	inv, err := investigator.New(investigator.Config{
		BaseURL:       target.String(),
		Oracle:        oracle,
		MaxIterations: maxIterationsFlag,
		Timeout:       timeoutFlag,
		OracleTimeout: oracleTimeoutFlag,
		CompactAfter:  compactAfterFlag,
		Verbose:       verboseFlag || verbosityTraceFlag,
		Fetcher:       fetcher,
		Observer:      investigator.Observers{progress{verbose: verboseFlag || verbosityTraceFlag}, runMetrics},
	})
	if err != nil {
		log.Error().Err(err).Msg("Cannot start investigation")
		return 1
	}

	result, runErr := inv.Run(ctx)
	doc := report.FromResult(result)
	if runs != nil {
		if err := saveRun(runs, doc); err != nil {
			log.Warn().Err(err).Msg("Could not store run")
		} else {
			log.Info().Str("run", doc.ID).Str("db", dbFilenameFlag).Msg("Run stored")
		}
	}

	if jsonFlag {
		err = report.JSON(os.Stdout, doc)
	} else {
		err = report.Text(os.Stdout, doc)
	}
	if err != nil {
		log.Error().Err(err).Msg("Cannot write report")
		return 1
	}

	switch {
	case runErr != nil && ctx.Err() != nil:
		log.Error().Msg("Investigation interrupted")
		return 1
	case runErr != nil:
		log.Error().Err(runErr).Msg("Investigation failed")
		return 1
	}
	return 0
}

func openStore(filename string) (store.Store, error) {
	switch filename {
	case "none":
		return nil, nil
	case "memory":
		return store.NewMemStore(), nil
	default:
		return store.NewSQLiteStore(filename)
	}
}

func saveRun(runs store.Store, doc report.Document) error {
	var buf bytes.Buffer
	if err := report.JSON(&buf, doc); err != nil {
		return err
	}
	return runs.Save(store.Run{
		RunInfo: store.RunInfo{
			ID:         doc.ID,
			BaseURL:    doc.BaseURL,
			State:      string(doc.State),
			Confidence: string(doc.Summary.Confidence),
			Iterations: doc.Iterations,
			StartedAt:  doc.StartedAt,
			FinishedAt: doc.FinishedAt,
		},
		Report: buf.Bytes(),
	})
}

func newOracle(provider, model, apiKey string) (investigator.Oracle, error) {
	switch strings.ToLower(provider) {
	case "anthropic":
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is not set (or use -api-key)")
		}
		return anthropic.New(anthropic.Config{APIKey: apiKey, Model: model})
	case "openai":
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("OPENAI_API_KEY is not set (or use -api-key)")
		}
		return openai.New(openai.Config{APIKey: apiKey, Model: model})
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

func serve(ctx context.Context, addr string, handler http.Handler) int {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.Info().Msgf("Serving stored runs on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Server failed")
		return 1
	}
	return 0
}
