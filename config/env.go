package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key with time.ParseDuration.
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// ApplyEnv overrides cfg with SCRAPER_* environment variables.
func ApplyEnv(cfg *Config) error {
	if v, ok := EnvString("SCRAPER_RENDER_API_KEY"); ok {
		cfg.APIKey = v
	}
	if v, ok := EnvString("SCRAPER_RENDER_ENDPOINT"); ok {
		cfg.RenderEndpoint = v
	}
	if v, ok := EnvString("SCRAPER_RENDERER"); ok {
		cfg.Renderer = strings.ToLower(v)
	}
	if v, ok := EnvString("SCRAPER_SITE_ORIGIN"); ok {
		cfg.SiteOrigin = v
	}
	if v, ok := EnvString("SCRAPER_OUTPUT"); ok {
		cfg.OutputFile = v
	}
	if v, ok := EnvString("SCRAPER_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := EnvString("SCRAPER_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := EnvString("SCRAPER_CHROME_PATH"); ok {
		cfg.ChromePath = v
	}

	if v, ok, err := EnvInt("SCRAPER_PAGES"); err != nil {
		return err
	} else if ok {
		cfg.MaxPages = v
	}
	if v, ok, err := EnvInt("SCRAPER_PAGE_CEILING"); err != nil {
		return err
	} else if ok {
		cfg.PageCeiling = v
	}
	if v, ok, err := EnvInt("SCRAPER_MAX_RETRIES"); err != nil {
		return err
	} else if ok {
		cfg.MaxRetries = v
	}
	if v, ok, err := EnvDuration("SCRAPER_TIMEOUT"); err != nil {
		return err
	} else if ok {
		cfg.Timeout = v
	}
	if v, ok, err := EnvDuration("SCRAPER_RUN_TIMEOUT"); err != nil {
		return err
	} else if ok {
		cfg.RunTimeout = v
	}
	return nil
}
