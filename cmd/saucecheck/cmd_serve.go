package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/surajb0710/cypress-testing-sauce-demo/internal/scenario"
	"github.com/surajb0710/cypress-testing-sauce-demo/internal/storefront"
)

func NewServeCommand(root *RootOptions) *cobra.Command {
	var glitch time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reference storefront",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("glitch") {
				cfg.Glitch = glitch
			}
			fx, err := scenario.FixtureFrom(cfg.FixturePath)()
			if err != nil {
				return err
			}
			srv, err := storefront.NewServer(storefront.NewStore(fx, storefront.WithGlitch(cfg.Glitch)), root.log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg.ListenAddr(), srv.Handler(), root)
		},
	}
	cmd.Flags().DurationVar(&glitch, "glitch", 0, "login delay for performance_glitch_user")
	return cmd
}

func serve(ctx context.Context, addr string, h http.Handler, root *RootOptions) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		root.log.Info("storefront listening", "addr", addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		root.log.Info("shutting down storefront")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
