package config

import (
	"fmt"
	"net/url"
	"time"
)

// Renderer backends.
const (
	RendererProxy  = "proxy"
	RendererChrome = "chrome"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL     string
	SiteOrigin  string
	MaxPages    int // caller bound; 0 means the detected total governs
	PageCeiling int
	OffsetParam string

	Renderer          string
	RenderEndpoint    string
	APIKey            string
	CountryCode       string
	StealthProxy      bool
	PremiumProxy      bool
	BlockResources    bool
	RequestsPerSecond float64
	ChromePath        string

	Timeout          time.Duration
	RunTimeout       time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	RetryBackoffMax  time.Duration
	PageDelayBase    time.Duration
	PageDelayStep    time.Duration
	EscalationDelays []time.Duration
	MinMarkupBytes   int
	KeepMarkup       bool

	Parallelism        int
	PipelineBufferSize int
	BatchSize          int
	DedupeMaxSize      int
	OutputFile         string
	OutputFormat       string // csv, json, or dual
	DiscountedOnly     bool

	UserAgent       string
	RotateUserAgent bool
	Verbose         bool
	MetricsAddr     string
	ListenAddr      string
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://www.homedepot.com/b/Appliances-Refrigerators-French-Door-Refrigerators/Special-Buys/N-5yc1vZc3ooZ1z11ao3",
		SiteOrigin:  "https://www.homedepot.com",
		MaxPages:    0,
		PageCeiling: 10,
		OffsetParam: "Nao",

		Renderer:          RendererProxy,
		RenderEndpoint:    "https://app.scrapingbee.com/api/v1/",
		CountryCode:       "us",
		StealthProxy:      true,
		PremiumProxy:      true,
		BlockResources:    false,
		RequestsPerSecond: 1,

		Timeout:          120 * time.Second,
		RunTimeout:       30 * time.Minute,
		MaxRetries:       2,
		RetryBackoff:     10 * time.Second,
		RetryBackoffMax:  30 * time.Second,
		PageDelayBase:    6 * time.Second,
		PageDelayStep:    time.Second,
		EscalationDelays: []time.Duration{10 * time.Second, 15 * time.Second},
		MinMarkupBytes:   1024,

		Parallelism:        4,
		PipelineBufferSize: 512,
		BatchSize:          64,
		DedupeMaxSize:      100000,
		OutputFile:         "output/products.csv",
		OutputFormat:       "csv",

		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RotateUserAgent: true,
		ListenAddr:      ":8080",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL != "" {
		if err := validateHTTPURL("base URL", c.BaseURL); err != nil {
			return err
		}
	}
	if err := validateHTTPURL("site origin", c.SiteOrigin); err != nil {
		return err
	}

	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.PageCeiling <= 0 {
		return fmt.Errorf("page ceiling must be positive")
	}
	if c.OffsetParam == "" {
		return fmt.Errorf("offset param cannot be empty")
	}

	switch c.Renderer {
	case RendererProxy:
		if err := validateHTTPURL("render endpoint", c.RenderEndpoint); err != nil {
			return err
		}
		if c.APIKey == "" {
			return fmt.Errorf("render API key is required for the proxy renderer")
		}
	case RendererChrome:
	default:
		return fmt.Errorf("renderer must be %s or %s", RendererProxy, RendererChrome)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("run timeout cannot be negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.PageDelayBase < 0 {
		return fmt.Errorf("page delay base cannot be negative")
	}
	if c.PageDelayStep <= 0 {
		return fmt.Errorf("page delay step must be positive")
	}
	if len(c.EscalationDelays) != 2 {
		return fmt.Errorf("escalation delays must list exactly two durations")
	}
	for _, d := range c.EscalationDelays {
		if d < 0 {
			return fmt.Errorf("escalation delay cannot be negative")
		}
	}
	if c.MinMarkupBytes < 0 {
		return fmt.Errorf("min markup bytes cannot be negative")
	}

	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

func validateHTTPURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", name)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}
