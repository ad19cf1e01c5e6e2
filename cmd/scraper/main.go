package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	// environment values become flag defaults, explicit flags win
	cfg := config.DefaultConfig()
	envErr := config.ApplyEnv(cfg)

	root := &cobra.Command{
		Use:          "scraper",
		Short:        "Scrape paginated product listings into CSV or JSONL",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return fmt.Errorf("invalid environment: %w", envErr)
			}
			logger, level := newLogger(cfg.Verbose)
			slog.SetDefault(logger)
			slog.SetLogLoggerLevel(level.Level())
			return nil
		},
	}

	registerFlags(root, cfg)
	root.AddCommand(newScrapeCmd(cfg), newServeCmd(cfg))
	return root
}

// registerFlags binds the settings shared by every command. The render API key is only
// read from SCRAPER_RENDER_API_KEY so it never shows up in process listings.
func registerFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable verbose logging")
	flags.StringVar(&cfg.Renderer, "renderer", cfg.Renderer, "Rendering backend: proxy or chrome")
	flags.StringVar(&cfg.RenderEndpoint, "render-endpoint", cfg.RenderEndpoint, "Rendering proxy API endpoint")
	flags.StringVar(&cfg.CountryCode, "country", cfg.CountryCode, "Proxy exit country code")
	flags.BoolVar(&cfg.StealthProxy, "stealth-proxy", cfg.StealthProxy, "Request the stealth proxy pool")
	flags.BoolVar(&cfg.PremiumProxy, "premium-proxy", cfg.PremiumProxy, "Request the premium proxy pool")
	flags.BoolVar(&cfg.BlockResources, "block-resources", cfg.BlockResources, "Ask the proxy to skip images and fonts")
	flags.Float64Var(&cfg.RequestsPerSecond, "rps", cfg.RequestsPerSecond, "Render calls per second (0 for unlimited)")
	flags.StringVar(&cfg.ChromePath, "chrome-path", cfg.ChromePath, "Chrome executable for the chrome renderer")
	flags.StringVar(&cfg.SiteOrigin, "site-origin", cfg.SiteOrigin, "Origin used to resolve relative product links")
	flags.StringVar(&cfg.OffsetParam, "offset-param", cfg.OffsetParam, "Query parameter carrying the item offset")
	flags.IntVar(&cfg.PageCeiling, "page-ceiling", cfg.PageCeiling, "Upper bound on detected pages")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Base render timeout")
	flags.DurationVar(&cfg.RunTimeout, "run-timeout", cfg.RunTimeout, "Deadline for one listing run (0 disables)")
	flags.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Retries per page fetch")
	flags.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Retry backoff step")
	flags.DurationVar(&cfg.RetryBackoffMax, "retry-backoff-max", cfg.RetryBackoffMax, "Maximum retry backoff")
	flags.IntVar(&cfg.MinMarkupBytes, "min-markup", cfg.MinMarkupBytes, "Reject rendered pages shorter than this many bytes")
	flags.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User agent for render requests")
	flags.BoolVar(&cfg.RotateUserAgent, "rotate-user-agent", cfg.RotateUserAgent, "Randomise the user agent per request")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		return pipeline.NewDualWriter(filename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(results []*models.ScrapeResult, duration time.Duration, itemsPerSec float64, outputFile string, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	totalItems := int64(0)
	if processed, ok := metrics["processed_items"].(int64); ok {
		totalItems = processed
	}

	var succeeded, partial, pages, raw, requests, retries, escalations int
	for _, result := range results {
		if result.Success {
			succeeded++
		}
		if result.Partial {
			partial++
		}
		pages += result.TotalPages
		raw += result.RawProducts
		requests += result.RequestCount
		retries += result.RetryCount
		escalations += result.EscalationCount
	}

	fmt.Printf("  Listings:      %d (%d ok, %d partial)\n", len(results), succeeded, partial)
	fmt.Printf("  Pages:         %d\n", pages)
	fmt.Printf("  Raw items:     %d\n", raw)
	fmt.Printf("  Total items:   %d\n", totalItems)
	fmt.Printf("  Requests:      %d\n", requests)
	fmt.Printf("  Retries:       %d\n", retries)
	fmt.Printf("  Escalations:   %d\n", escalations)
	for _, result := range results {
		if result.Error != "" {
			fmt.Printf("  Error:         %s: %s\n", result.BaseURL, result.Error)
		}
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %v\n", valErrors)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Items/sec:     %.2f\n", itemsPerSec)
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
