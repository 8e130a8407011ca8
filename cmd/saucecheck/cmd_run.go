package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/bridge"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/config"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/driver"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/httpdriver"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/scenario"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/storefront"
)

var errScenariosFailed = errors.New("scenarios failed")

type runOptions struct {
	suite   string
	name    string
	driver  string
	baseURL string
	local   bool
}

func NewRunCommand(root *RootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run acceptance scenarios",
		Long: `Run the scenario catalog, optionally filtered by suite and name.

With --local the bundled storefront is started on a free port and the run
targets it instead of the configured base URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.suite, "suite", "", "only run this suite")
	cmd.Flags().StringVar(&opts.name, "name", "", "only run scenarios whose name contains this")
	cmd.Flags().StringVar(&opts.driver, "driver", "", "driver override (chrome|http)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "base URL override")
	cmd.Flags().BoolVar(&opts.local, "local", false, "run against the bundled storefront")
	return cmd
}

func runScenarios(cmd *cobra.Command, root *RootOptions, opts *runOptions) error {
	cfg := *root.cfg
	if opts.driver != "" {
		cfg.Driver = opts.driver
	}
	if opts.baseURL != "" {
		cfg.BaseURL = opts.baseURL
	}
	log := root.log

	selected := scenario.Select(scenario.Catalog(), opts.suite, opts.name)
	if len(selected) == 0 {
		return fmt.Errorf("no scenarios match suite %q name %q", opts.suite, opts.name)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.local {
		base, shutdown, err := startLocalStorefront(&cfg, log)
		if err != nil {
			return err
		}
		defer shutdown()
		cfg.BaseURL = base
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	factory, closeFactory, err := newFactory(&cfg, log)
	if err != nil {
		return err
	}
	defer closeFactory()

	log.Info("running scenarios", "count", len(selected), "driver", cfg.Driver, "base", cfg.BaseURL)
	results := scenario.NewRunnerFromConfig(&cfg, factory, log).RunAll(ctx, selected)
	if err := scenario.WriteReport(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if s := scenario.Summarize(results); s.Failed > 0 || len(results) < len(selected) {
		return errScenariosFailed
	}
	return nil
}

func newFactory(cfg *config.RuntimeConfig, log *slog.Logger) (driver.Factory, func(), error) {
	switch cfg.Driver {
	case config.DriverHTTP:
		return &httpdriver.Factory{Base: cfg.BaseURL, Log: log}, func() {}, nil
	case config.DriverChrome:
		b, err := bridge.Start(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// startLocalStorefront serves the reference storefront on a free loopback
// port and returns its base URL.
func startLocalStorefront(cfg *config.RuntimeConfig, log *slog.Logger) (string, func(), error) {
	fx, err := scenario.FixtureFrom(cfg.FixturePath)()
	if err != nil {
		return "", nil, err
	}
	srv, err := storefront.NewServer(storefront.NewStore(fx, storefront.WithGlitch(cfg.Glitch)), log)
	if err != nil {
		return "", nil, err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("listen: %w", err)
	}
	hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("local storefront stopped", "err", err)
		}
	}()

	base := "http://" + ln.Addr().String() + "/"
	log.Info("local storefront listening", "url", base, "products", len(fx.Products))
	return base, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(ctx)
	}, nil
}

