package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/render"
	"github.com/aluiziolira/go-scrape-listings/scraper"
	"github.com/aluiziolira/go-scrape-listings/server"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /api/scrape over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	renderer, err := render.New(cfg)
	if err != nil {
		return fmt.Errorf("initialising renderer: %w", err)
	}
	s, err := scraper.NewScraper(cfg, renderer)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}
	s.OnPage = func(page *models.PageResult, limit int) {
		slog.Debug("page recorded",
			slog.String("url", page.URL),
			slog.Int("page", page.PageNumber),
			slog.Int("limit", limit),
			slog.Int("items", page.ProductsCount),
		)
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	timeout := time.Duration(0)
	if cfg.RunTimeout > 0 {
		timeout = cfg.RunTimeout + time.Minute
	}
	api := server.New(s, s.Metrics.Registry, timeout)

	slog.Info("api server listening",
		slog.String("addr", cfg.ListenAddr),
		slog.String("renderer", cfg.Renderer),
	)
	if err := server.ListenAndServe(ctx, cfg.ListenAddr, api.Handler()); err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	slog.Info("api server stopped")
	return nil
}
