package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ratewatch/internal/config"
	"github.com/kailas-cloud/ratewatch/internal/domain"
	logpkg "github.com/kailas-cloud/ratewatch/internal/logger"
	"github.com/kailas-cloud/ratewatch/internal/metrics"
	"github.com/kailas-cloud/ratewatch/internal/presenter"
	chiTransport "github.com/kailas-cloud/ratewatch/internal/transport/chi"
	"github.com/kailas-cloud/ratewatch/internal/transport/github"
	"github.com/kailas-cloud/ratewatch/internal/usecase/aggregate"
	"github.com/kailas-cloud/ratewatch/internal/usecase/poll"
	"github.com/kailas-cloud/ratewatch/internal/usecase/quota"
	"github.com/kailas-cloud/ratewatch/internal/usecase/token"
	"github.com/kailas-cloud/ratewatch/internal/version"
)

const credentialsHelp = `Provide either GITHUB_TOKEN or both GITHUB_APP_ID and GITHUB_APP_PRIVATE_KEY_PATH

Examples:
  export GITHUB_TOKEN=ghp_xxxxx
  ratewatch

  OR

  export GITHUB_APP_ID=123456
  export GITHUB_APP_INSTALLATION_ID=987654
  export GITHUB_APP_PRIVATE_KEY_PATH=/path/to/key.pem
  ratewatch
`

// maxRenderReserve caps the share of the write timeout kept for rendering.
const maxRenderReserve = 5 * time.Second

// options are the command line flags.
type options struct {
	configPath     string
	inline         config.AccountConfig
	accountsDir    string
	watch          bool
	interval       int
	prometheusPort int
	json           bool
	version        bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.version {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	env := config.GetEnv()
	cfg, err := config.Load(env, opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to load config: %v\n", err)
		return 1
	}
	opts.apply(&cfg)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	accounts, err := config.LoadAccounts(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		if errors.Is(err, domain.ErrConfig) && len(cfg.Accounts) == 0 && cfg.AccountsDir == "" {
			fmt.Fprint(stderr, credentialsHelp)
		}
		return 1
	}

	logger.Info("Starting ratewatch",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("accounts", len(accounts)),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Bool("watch", cfg.Watch.Enabled),
	)

	// Self-metrics live on their own registry; quota gauges are built per scrape.
	selfReg := prometheus.NewRegistry()
	selfReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(selfReg)

	checker := buildChecker(cfg, accounts, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case cfg.HTTP.Port > 0:
		return serve(ctx, cfg, checker, selfReg, stdout, logger)
	case cfg.Watch.Enabled:
		return watch(ctx, cfg, checker, opts.json, stdout, logger)
	default:
		loop := poll.New(checker, newRenderer(opts.json, false), stdout, logger)
		if err := loop.Once(ctx); err != nil {
			logger.Error("Failed to write report", zap.Error(err))
			return 1
		}
		return 0
	}
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("ratewatch", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&opts.configPath, "config", "", "Path to YAML config file (default: config/<ENV>.yaml if present)")
	fs.StringVar(&opts.inline.Token, "token", "", "GitHub Personal Access Token (or use GITHUB_TOKEN env var)")
	fs.StringVar(&opts.inline.AppID, "app-id", "", "GitHub App ID (or use GITHUB_APP_ID env var)")
	fs.StringVar(&opts.inline.InstallationID, "installation-id", "",
		"GitHub App Installation ID (or use GITHUB_APP_INSTALLATION_ID env var)")
	fs.StringVar(&opts.inline.PrivateKeyPath, "private-key", "",
		"Path to GitHub App private key (or use GITHUB_APP_PRIVATE_KEY_PATH env var)")
	fs.StringVar(&opts.accountsDir, "accounts-dir", "", "Directory with one JSON credential file per account")
	fs.BoolVar(&opts.watch, "watch", false, "Continuously monitor rate limits")
	fs.IntVar(&opts.interval, "interval", 0, "Interval in seconds for watch mode (default: 60)")
	fs.IntVar(&opts.prometheusPort, "prometheus-port", 0, "Export Prometheus metrics on specified port")
	fs.BoolVar(&opts.json, "json", false, "Output in JSON format")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected arguments: %v", fs.Args())
		fmt.Fprintln(output, err)
		fs.Usage()
		return options{}, err
	}
	return opts, nil
}

// apply overlays flags on cfg. The GITHUB_* environment is consulted only
// when the config file defines no accounts of its own.
func (o options) apply(cfg *config.Config) {
	if o.watch {
		cfg.Watch.Enabled = true
	}
	if o.interval > 0 {
		cfg.Watch.IntervalSec = o.interval
	}
	if o.prometheusPort > 0 {
		cfg.HTTP.Port = o.prometheusPort
	}
	if o.accountsDir != "" {
		cfg.AccountsDir = o.accountsDir
	}

	inline := o.inline
	if len(cfg.Accounts) == 0 && cfg.AccountsDir == "" {
		inline = config.InlineFromEnv(inline)
	}
	cfg.Inline = &inline
}

// buildChecker wires one API client and token handle per account.
func buildChecker(cfg config.Config, accounts []domain.Account, logger *zap.Logger) *aggregate.Service {
	minter := token.New(logger)
	quotaSvc := quota.New(minter, logger)

	targets := make([]*quota.Target, 0, len(accounts))
	for _, acc := range accounts {
		client := github.NewClient(&github.Config{
			APIURL:     cfg.GitHub.APIURL,
			GraphQLURL: cfg.GitHub.GraphQLURL,
			Timeout:    time.Duration(cfg.GitHub.TimeoutSec) * time.Second,
			UserAgent:  version.UserAgent(),
			Logger:     logger.With(zap.String("account", acc.Name())),
		})
		targets = append(targets, &quota.Target{
			Handle: token.NewHandle(acc, client),
			API:    client,
		})
	}

	return aggregate.New(quotaSvc, targets, logger).
		WithMaxConcurrency(cfg.GitHub.MaxConcurrency)
}

func newRenderer(asJSON, omitGraphQL bool) poll.Renderer {
	if asJSON {
		return presenter.NewJSON()
	}
	text := presenter.NewText()
	if omitGraphQL {
		text = text.WithoutGraphQL()
	}
	return text
}

func watch(
	ctx context.Context,
	cfg config.Config,
	checker *aggregate.Service,
	asJSON bool,
	stdout io.Writer,
	logger *zap.Logger,
) int {
	interval := time.Duration(cfg.Watch.IntervalSec) * time.Second
	renderer := newRenderer(asJSON, checker.Len() > 1)
	loop := poll.New(checker, renderer, stdout, logger).WithInterval(interval)

	fmt.Fprintf(stdout, "Monitoring GitHub API rate limits every %d seconds...\n", cfg.Watch.IntervalSec)
	fmt.Fprint(stdout, "Press Ctrl+C to stop\n\n")

	if err := loop.Run(ctx); err != nil {
		logger.Error("Watch loop failed", zap.Error(err))
		return 1
	}
	fmt.Fprint(stdout, "\n\nMonitoring stopped\n")
	return 0
}

func serve(
	ctx context.Context,
	cfg config.Config,
	checker *aggregate.Service,
	self prometheus.Gatherer,
	stdout io.Writer,
	logger *zap.Logger,
) int {
	srv := newMetricsServer(cfg, checker, self, logger)

	fmt.Fprintf(stdout, "Prometheus metrics server started on http://0.0.0.0:%d%s\n",
		cfg.HTTP.Port, chiTransport.MetricsPath)
	fmt.Fprint(stdout, "Press Ctrl+C to stop\n\n")

	if err := srv.Run(ctx); err != nil {
		logger.Error("HTTP server error", zap.Error(err))
		return 1
	}
	fmt.Fprint(stdout, "\n\nMetrics server stopped\n")
	return 0
}

// newMetricsServer wires the scrape handler behind the router. Each scrape's
// poll cycle ends before the write deadline so the exposition always goes out.
func newMetricsServer(
	cfg config.Config,
	checker presenter.Checker,
	self prometheus.Gatherer,
	logger *zap.Logger,
) *chiTransport.Server {
	writeTimeout := time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second
	handler := presenter.Handler(checker, self, scrapeTimeout(writeTimeout), logger)

	return chiTransport.NewServer(chiTransport.Config{
		Port:         cfg.HTTP.Port,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: writeTimeout,
		ShutdownWait: time.Duration(cfg.HTTP.ShutdownSec) * time.Second,
	}, chiTransport.NewMetricsRouter(handler, logger), logger)
}

// scrapeTimeout leaves a fifth of the write timeout, at most a few seconds,
// for gathering and writing the exposition.
func scrapeTimeout(write time.Duration) time.Duration {
	if write <= 0 {
		return 0
	}
	return write - min(write/5, maxRenderReserve)
}
