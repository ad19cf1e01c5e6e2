// Package render turns a listing URL into fully rendered markup, either through a remote
// rendering proxy or a local headless browser.
package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aluiziolira/go-scrape-listings/config"
)

// ErrMissingCredential is returned when the rendering proxy has no API key configured.
var ErrMissingCredential = errors.New("render API key not configured")

// Step is one entry in a progressive loading script. Exactly one of Wait or ScrollY is meaningful.
type Step struct {
	Wait    time.Duration
	ScrollY int
}

// WaitStep pauses the page script for d.
func WaitStep(d time.Duration) Step { return Step{Wait: d} }

// ScrollStep scrolls the page to vertical position y.
func ScrollStep(y int) Step { return Step{ScrollY: y} }

// MarshalJSON encodes a step as a single proxy instruction, {"wait":ms} or {"scroll_y":px}.
func (s Step) MarshalJSON() ([]byte, error) {
	if s.Wait > 0 {
		return json.Marshal(map[string]int64{"wait": s.Wait.Milliseconds()})
	}
	return json.Marshal(map[string]int{"scroll_y": s.ScrollY})
}

// Options describes how patiently a page is rendered.
type Options struct {
	InitialWait        time.Duration
	WaitForNetworkIdle bool
	WaitFor            string // CSS selector that signals content is present
	Steps              []Step
	Timeout            time.Duration
}

// Response is the rendered page as returned by a backend.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
}

// Renderer fetches a target and returns its rendered markup. Implementations issue exactly
// one upstream render per call and never retry; a non-2xx upstream answer is reported
// through Response.StatusCode rather than an error.
type Renderer interface {
	Render(ctx context.Context, target string, opts Options) (*Response, error)
}

// New returns the backend selected by cfg.Renderer.
func New(cfg *config.Config) (Renderer, error) {
	switch cfg.Renderer {
	case config.RendererChrome:
		return NewChromeRenderer(cfg.ChromePath, cfg.UserAgent), nil
	case config.RendererProxy, "":
		return NewProxyRenderer(cfg)
	default:
		return nil, fmt.Errorf("unknown renderer %q", cfg.Renderer)
	}
}
