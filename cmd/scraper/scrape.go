package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/pipeline"
	"github.com/aluiziolira/go-scrape-listings/render"
	"github.com/aluiziolira/go-scrape-listings/scraper"
)

type scrapeOptions struct {
	dumpDir    string
	noProgress bool
}

func newScrapeCmd(cfg *config.Config) *cobra.Command {
	opts := &scrapeOptions{}
	cmd := &cobra.Command{
		Use:   "scrape [listing-url...]",
		Short: "Scrape one or more paginated listings into a single output file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd.Context(), cfg, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cfg.MaxPages, "pages", cfg.MaxPages, "Maximum pages per listing (0 lets the detected total govern)")
	flags.IntVar(&cfg.Parallelism, "parallel", cfg.Parallelism, "Output pipeline workers")
	flags.StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "Output file path")
	flags.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: csv, json, or dual")
	flags.BoolVar(&cfg.DiscountedOnly, "discounted-only", cfg.DiscountedOnly, "Only write items with a markdown")
	flags.StringVar(&opts.dumpDir, "dump-html", "", "Directory to write each page's rendered markup to")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "Disable the page progress bar")
	return cmd
}

func runScrape(parent context.Context, cfg *config.Config, opts *scrapeOptions, urls []string) error {
	if len(urls) == 0 {
		urls = []string{cfg.BaseURL}
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	cfg.KeepMarkup = opts.dumpDir != ""
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.dumpDir != "" {
		if err := os.MkdirAll(opts.dumpDir, 0o755); err != nil {
			return fmt.Errorf("create dump directory: %w", err)
		}
	}

	renderer, err := render.New(cfg)
	if err != nil {
		return fmt.Errorf("initialising renderer: %w", err)
	}
	s, err := scraper.NewScraper(cfg, renderer)
	if err != nil {
		return fmt.Errorf("initialising scraper: %w", err)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Start(cfg.Parallelism)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	showProgress := !opts.noProgress && isTerminal(os.Stderr)
	startTime := time.Now()
	results := make([]*models.ScrapeResult, 0, len(urls))
	for i, target := range urls {
		if ctx.Err() != nil {
			break
		}
		slog.Info("starting scrape",
			slog.String("base_url", target),
			slog.Int("pages", cfg.MaxPages),
			slog.String("renderer", cfg.Renderer),
		)

		bar := newPageBar(showProgress, target)
		listing := i + 1
		s.OnPage = func(page *models.PageResult, limit int) {
			bar.update(page.PageNumber, limit)
			if opts.dumpDir != "" {
				if err := dumpMarkup(opts.dumpDir, listing, page); err != nil {
					slog.Warn("dump markup failed", slog.Int("page", page.PageNumber), slog.Any("error", err))
				}
			}
		}

		result := s.Run(ctx, target, cfg.MaxPages)
		bar.finish()
		results = append(results, result)

		if !result.Success {
			slog.Error("scraping failed", slog.String("base_url", target), slog.String("error", result.Error))
			continue
		}
		if result.Partial {
			slog.Warn("scrape incomplete", slog.String("base_url", target), slog.String("error", result.Error))
		}
		if err := p.Process(result.AllProducts...); err != nil {
			slog.Error("queue items", slog.Any("error", err))
			break
		}
	}

	if err := p.Close(); err != nil {
		return fmt.Errorf("pipeline shutdown failed: %w", err)
	}

	metrics := p.GetMetrics()
	totalItems, _ := metrics["processed_items"].(int64)
	if totalItems > 0 {
		if err := writer.Validate(); err != nil {
			return fmt.Errorf("output validation failed: %w", err)
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	duration := time.Since(startTime)
	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(totalItems) / duration.Seconds()
	}
	printSummary(results, duration, itemsPerSec, cfg.OutputFile, metrics)

	for _, result := range results {
		if result.Success {
			return nil
		}
	}
	return fmt.Errorf("no listing scraped successfully")
}

func dumpMarkup(dir string, listing int, page *models.PageResult) error {
	if page.Markup == "" {
		return nil
	}
	name := filepath.Join(dir, fmt.Sprintf("listing-%02d-page-%02d.html", listing, page.PageNumber))
	return os.WriteFile(name, []byte(page.Markup), 0o644)
}

// pageBar is a progress bar that tolerates being disabled.
type pageBar struct {
	bar *progressbar.ProgressBar
}

func newPageBar(enabled bool, target string) *pageBar {
	if !enabled {
		return &pageBar{}
	}
	return &pageBar{bar: progressbar.NewOptions(1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(shortTarget(target)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)}
}

func (b *pageBar) update(page, limit int) {
	if b.bar == nil {
		return
	}
	if limit < page {
		limit = page
	}
	b.bar.ChangeMax(limit)
	_ = b.bar.Set(page)
}

func (b *pageBar) finish() {
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
}

func shortTarget(target string) string {
	const width = 40
	if len(target) <= width {
		return target
	}
	return "..." + target[len(target)-width+3:]
}
