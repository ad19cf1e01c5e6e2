package render

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-scrape-listings/config"
)

const (
	maxRenderedBody = 32 << 20
	// the upstream render budget is enforced remotely; the HTTP client waits a little longer
	clientTimeoutSlack = 15 * time.Second
)

// ProxyRenderer renders pages through a ScrapingBee-compatible HTTP API.
type ProxyRenderer struct {
	endpoint       *url.URL
	apiKey         string
	countryCode    string
	stealthProxy   bool
	premiumProxy   bool
	blockResources bool
	userAgent      string
	rotateUA       bool

	limiter   *rate.Limiter
	transport http.RoundTripper
}

// NewProxyRenderer builds a renderer from cfg. A missing API key is reported per call as
// ErrMissingCredential so that callers can surface it as a configuration failure.
func NewProxyRenderer(cfg *config.Config) (*ProxyRenderer, error) {
	endpoint, err := url.Parse(cfg.RenderEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parse render endpoint: %w", err)
	}
	if endpoint.Host == "" {
		return nil, fmt.Errorf("render endpoint must include a host")
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &ProxyRenderer{
		endpoint:       endpoint,
		apiKey:         cfg.APIKey,
		countryCode:    cfg.CountryCode,
		stealthProxy:   cfg.StealthProxy,
		premiumProxy:   cfg.PremiumProxy,
		blockResources: cfg.BlockResources,
		userAgent:      cfg.UserAgent,
		rotateUA:       cfg.RotateUserAgent,
		limiter:        rate.NewLimiter(limit, 1),
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}, nil
}

// WithTransport replaces the HTTP transport used for render calls.
func (p *ProxyRenderer) WithTransport(rt http.RoundTripper) {
	p.transport = rt
}

// Render issues one render call for target.
func (p *ProxyRenderer) Render(ctx context.Context, target string, opts Options) (*Response, error) {
	if p.apiKey == "" {
		return nil, ErrMissingCredential
	}
	apiURL, err := p.requestURL(target, opts)
	if err != nil {
		return nil, err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	collector := p.newCollector(opts.Timeout + clientTimeoutSlack)
	reqCtx := colly.NewContext()
	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put("status", strconv.Itoa(r.StatusCode))
		r.Ctx.Put("body", string(r.Body))
	})

	type outcome struct {
		resp *Response
		err  error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		err := collector.Request(http.MethodGet, apiURL, nil, reqCtx, nil)
		status, _ := strconv.Atoi(reqCtx.Get("status"))
		if err != nil && status == 0 {
			done <- outcome{err: err}
			return
		}
		done <- outcome{resp: &Response{
			StatusCode: status,
			Body:       reqCtx.Get("body"),
			Duration:   time.Since(start),
		}}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		slog.Debug("render call finished",
			slog.String("target", target),
			slog.Int("status", out.resp.StatusCode),
			slog.Int("bytes", len(out.resp.Body)),
			slog.Duration("duration", out.resp.Duration),
		)
		return out.resp, nil
	}
}

func (p *ProxyRenderer) newCollector(timeout time.Duration) *colly.Collector {
	collector := colly.NewCollector(
		colly.AllowedDomains(p.endpoint.Hostname()),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(maxRenderedBody),
		colly.UserAgent(p.userAgent),
	)
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(timeout)
	collector.WithTransport(p.transport)
	if p.rotateUA {
		extensions.RandomUserAgent(collector)
	}
	return collector
}

func (p *ProxyRenderer) requestURL(target string, opts Options) (string, error) {
	q := url.Values{}
	q.Set("api_key", p.apiKey)
	q.Set("url", target)
	q.Set("render_js", "true")
	q.Set("stealth_proxy", strconv.FormatBool(p.stealthProxy))
	q.Set("premium_proxy", strconv.FormatBool(p.premiumProxy))
	if p.countryCode != "" {
		q.Set("country_code", p.countryCode)
	}
	if opts.InitialWait > 0 {
		q.Set("wait", strconv.FormatInt(opts.InitialWait.Milliseconds(), 10))
	}
	if opts.WaitForNetworkIdle {
		q.Set("wait_browser", "networkidle2")
	}
	if opts.WaitFor != "" {
		q.Set("wait_for", opts.WaitFor)
	}
	if len(opts.Steps) > 0 {
		scenario, err := json.Marshal(struct {
			Instructions []Step `json:"instructions"`
		}{Instructions: opts.Steps})
		if err != nil {
			return "", fmt.Errorf("encode js scenario: %w", err)
		}
		q.Set("js_scenario", string(scenario))
	}
	q.Set("block_resources", strconv.FormatBool(p.blockResources))
	if opts.Timeout > 0 {
		q.Set("timeout", strconv.FormatInt(opts.Timeout.Milliseconds(), 10))
	}

	u := *p.endpoint
	u.RawQuery = q.Encode()
	return u.String(), nil
}
