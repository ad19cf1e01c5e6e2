package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-listings/render"
)

// blockPhrases mark bot-block and challenge pages, matched case-insensitively.
var blockPhrases = []string{
	"access denied",
	"are you a robot",
	"verify you are human",
	"verifying you are human",
	"please verify you are a human",
	"unusual traffic",
	"checking your browser",
	"pardon our interruption",
	"request blocked",
	"captcha-delivery",
}

// Fetcher performs one render call per page and classifies the outcome.
type Fetcher struct {
	renderer render.Renderer
	minBytes int
	timeout  time.Duration
	metrics  *Metrics
}

// NewFetcher wraps renderer; bodies shorter than minBytes are rejected. timeout is the base
// render budget that each level scales.
func NewFetcher(renderer render.Renderer, minBytes int, timeout time.Duration, metrics *Metrics) *Fetcher {
	return &Fetcher{renderer: renderer, minBytes: minBytes, timeout: timeout, metrics: metrics}
}

// Fetch renders target at the given patience level and returns its markup.
func (f *Fetcher) Fetch(ctx context.Context, target string, level Level) (string, error) {
	f.metrics.IncRequest(level.String())

	resp, err := f.renderer.Render(ctx, target, level.OptionsWithTimeout(f.timeout))
	if err != nil {
		return "", classifyError(err, 0)
	}
	f.metrics.ObserveDuration(resp.Duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyError(nil, resp.StatusCode)
	}
	if len(resp.Body) < f.minBytes {
		return "", ErrMarkupTooShort{Length: len(resp.Body), Min: f.minBytes}
	}
	if phrase, ok := blockedBy(resp.Body); ok {
		return "", ErrBlocked{Phrase: phrase}
	}
	return resp.Body, nil
}

func blockedBy(markup string) (string, bool) {
	lower := strings.ToLower(markup)
	for _, phrase := range blockPhrases {
		if strings.Contains(lower, phrase) {
			return phrase, true
		}
	}
	return "", false
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, render.ErrMissingCredential) {
		return ErrConfiguration{Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusUnauthorized:
			return ErrConfiguration{Err: fmt.Errorf("render service rejected credential: %w", wrapped)}
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
		if err == nil {
			return ErrHTTPStatus{StatusCode: statusCode}
		}
	}

	return err
}
