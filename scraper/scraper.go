package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/pagination"
	"github.com/aluiziolira/go-scrape-listings/parser"
	"github.com/aluiziolira/go-scrape-listings/pipeline"
	"github.com/aluiziolira/go-scrape-listings/render"
)

// Page outcome labels for metrics.
const (
	outcomeItems  = "items"
	outcomeEmpty  = "empty"
	outcomeFailed = "failed"
)

// Scraper walks a paginated listing one page at a time.
type Scraper struct {
	cfg       *config.Config
	fetcher   *Fetcher
	extractor *parser.Extractor
	detector  *pagination.Detector
	retry     *retryPolicy
	Metrics   *Metrics

	// OnPage, when set, is called after each page is recorded with the page limit in force.
	OnPage func(page *models.PageResult, limit int)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewScraper builds a scraper that renders pages through renderer.
func NewScraper(cfg *config.Config, renderer render.Renderer) (*Scraper, error) {
	extractor, err := parser.NewExtractor(cfg.SiteOrigin)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics()
	return &Scraper{
		cfg:       cfg,
		fetcher:   NewFetcher(renderer, cfg.MinMarkupBytes, cfg.Timeout, metrics),
		extractor: extractor,
		detector:  pagination.NewDetector(cfg.PageCeiling, cfg.OffsetParam),
		retry:     newRetryPolicy(cfg),
		Metrics:   metrics,
		sleep:     sleepContext,
	}, nil
}

// Run scrapes baseURL and every continuation page up to maxPages (0 lets the detected
// total govern). It never returns an error: failures are reported on the result.
func (s *Scraper) Run(ctx context.Context, baseURL string, maxPages int) *models.ScrapeResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if baseURL == "" {
		baseURL = s.cfg.BaseURL
	}
	if maxPages <= 0 {
		maxPages = s.cfg.MaxPages
	}
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	stats := &models.ScrapeResult{StartTime: time.Now()}
	finish := func(result *models.ScrapeResult) *models.ScrapeResult {
		result.StartTime = stats.StartTime
		result.EndTime = time.Now()
		result.RequestCount = stats.RequestCount
		result.RetryCount = stats.RetryCount
		result.EscalationCount = stats.EscalationCount
		result.DetectedPages = stats.DetectedPages
		return result
	}

	if err := checkTarget(baseURL); err != nil {
		return finish(s.failure(baseURL, ErrConfiguration{Err: err}))
	}

	slog.Info("scrape started", slog.String("url", baseURL), slog.Int("max_pages", maxPages))

	markup, err := s.fetchWithRetry(ctx, baseURL, LevelStandard, 1, stats)
	if err != nil {
		return finish(s.failure(baseURL, err))
	}
	first := s.newPage(1, baseURL, markup, s.extract(markup, 1))
	pages := []*models.PageResult{first}
	s.recordPage(first, 1)

	perPage := first.ProductsCount
	if perPage == 0 {
		slog.Warn("first page yielded no items; skipping pagination", slog.String("url", baseURL))
		stats.DetectedPages = 1
		return finish(s.assemble(baseURL, pages, false, ""))
	}

	det := s.detector.Detect(markup, perPage)
	// pager controls count from the listing's first page; skip the pages before the start offset
	startOffset, _ := pagination.OffsetOf(baseURL, s.cfg.OffsetParam)
	limit := det.Total - startOffset/perPage
	if limit < 1 {
		limit = 1
	}
	stats.DetectedPages = limit
	if maxPages > 0 && maxPages < limit {
		limit = maxPages
	}
	slog.Info("pagination detected",
		slog.Int("per_page", perPage),
		slog.Int("detected_pages", det.Total),
		slog.Int("from_text", det.Text),
		slog.Int("from_controls", det.Controls),
		slog.Int("from_count", det.Count),
		slog.Int("start_offset", startOffset),
		slog.Int("limit", limit),
	)

	offset := startOffset + perPage

	var (
		partial bool
		errMsg  string
		fatal   error
	)
	for n := 2; n <= limit; n++ {
		if err := s.sleep(ctx, s.pageDelay(n)); err != nil {
			partial, errMsg = true, fmt.Sprintf("stopped before page %d: %v", n, err)
			break
		}
		target, err := pagination.WithOffset(baseURL, s.cfg.OffsetParam, offset)
		if err != nil {
			partial, errMsg = true, fmt.Sprintf("build page %d target: %v", n, err)
			break
		}

		page, err := s.scrapePage(ctx, n, target, stats)
		if page == nil {
			partial, errMsg = true, fmt.Sprintf("stopped during page %d: %v", n, err)
			break
		}
		pages = append(pages, page)
		s.recordPage(page, limit)
		if err != nil {
			partial, errMsg = true, fmt.Sprintf("page %d failed: %v", n, err)
			var cfgErr ErrConfiguration
			if errors.As(err, &cfgErr) {
				fatal = err
			}
			slog.Error("page failed; stopping",
				slog.Int("page", n),
				slog.Bool("configuration", fatal != nil),
				slog.Any("error", err),
			)
			break
		}

		offset += page.ProductsCount
		if page.ProductsCount == 0 || page.ProductsCount < perPage {
			slog.Info("terminal page reached",
				slog.Int("page", n),
				slog.Int("items", page.ProductsCount),
				slog.Int("per_page", perPage),
			)
			break
		}
	}

	result := s.assemble(baseURL, pages, partial, errMsg)
	if fatal != nil {
		// pages gathered so far stay on the result
		result.Success = false
	}
	return finish(result)
}

// scrapePage fetches page n, escalating patience while it comes back empty. A nil page means
// the run was canceled. A non-nil page with an error is an empty page recorded after the
// fetch failed for good.
func (s *Scraper) scrapePage(ctx context.Context, n int, target string, stats *models.ScrapeResult) (*models.PageResult, error) {
	markup, fetchErr := s.fetchWithRetry(ctx, target, LevelPagination, n, stats)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if fetchErr != nil && !isRetryable(fetchErr) {
		return s.newPage(n, target, "", nil), fetchErr
	}

	var items []*models.Item
	if fetchErr == nil {
		items = s.extract(markup, n)
	}

	for i, level := range []Level{LevelExtended, LevelUltraExtended} {
		if len(items) > 0 {
			break
		}
		slog.Warn("page empty; escalating",
			slog.Int("page", n),
			slog.String("level", level.String()),
			slog.Duration("delay", s.escalationDelay(i)),
		)
		if err := s.sleep(ctx, s.escalationDelay(i)); err != nil {
			return nil, err
		}
		stats.EscalationCount++
		stats.RequestCount++
		s.Metrics.IncEscalation(level.String())

		escalated, err := s.fetcher.Fetch(ctx, target, level)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.Metrics.IncError(errorTypeLabel(err))
			slog.Warn("escalated fetch failed", slog.Int("page", n), slog.String("level", level.String()), slog.Any("error", err))
			continue
		}
		markup, fetchErr = escalated, nil
		items = s.extract(markup, n)
	}

	page := s.newPage(n, target, markup, items)
	if len(items) == 0 && fetchErr != nil {
		return page, fetchErr
	}
	return page, nil
}

func (s *Scraper) fetchWithRetry(ctx context.Context, target string, level Level, n int, stats *models.ScrapeResult) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retry.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.retry.backoff(attempt)
			stats.RetryCount++
			s.Metrics.IncRetries()
			slog.Warn("retrying page",
				slog.Int("page", n),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", delay),
			)
			if err := s.sleep(ctx, delay); err != nil {
				return "", err
			}
		}

		stats.RequestCount++
		markup, err := s.fetcher.Fetch(ctx, target, level)
		if err == nil {
			return markup, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		lastErr = err
		category := errorTypeLabel(err)
		s.Metrics.IncError(category)
		slog.Error("page fetch error",
			slog.Int("page", n),
			slog.String("url", target),
			slog.String("level", level.String()),
			slog.String("category", category),
			slog.Any("error", err),
		)
		if !isRetryable(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("giving up after %d attempts: %w", s.retry.maxRetries+1, lastErr)
}

func (s *Scraper) extract(markup string, n int) []*models.Item {
	items, err := s.extractor.Extract(markup)
	if err != nil {
		slog.Error("extract page", slog.Int("page", n), slog.Any("error", err))
		return nil
	}
	if len(items) == 0 && parser.HasListingIndicators(markup) {
		slog.Warn("listing markup present but no items extracted", slog.Int("page", n))
	}
	s.Metrics.AddItems(len(items))
	return items
}

func (s *Scraper) newPage(n int, target, markup string, items []*models.Item) *models.PageResult {
	page := &models.PageResult{
		Products:      items,
		PageNumber:    n,
		ProductsCount: len(items),
		URL:           target,
	}
	if page.Products == nil {
		page.Products = []*models.Item{}
	}
	if s.cfg.KeepMarkup {
		page.Markup = markup
	}
	return page
}

func (s *Scraper) recordPage(page *models.PageResult, limit int) {
	outcome := outcomeItems
	if page.ProductsCount == 0 {
		outcome = outcomeEmpty
	}
	s.Metrics.IncPage(outcome)
	slog.Info("page scraped",
		slog.Int("page", page.PageNumber),
		slog.Int("items", page.ProductsCount),
		slog.String("url", page.URL),
	)
	if s.OnPage != nil {
		s.OnPage(page, limit)
	}
}

func (s *Scraper) assemble(baseURL string, pages []*models.PageResult, partial bool, errMsg string) *models.ScrapeResult {
	for i, page := range pages {
		if i+1 < len(pages) {
			page.HasNextPage = true
			page.NextPageURL = pages[i+1].URL
		}
	}
	result := pipeline.Merge(baseURL, pages)
	result.Partial = partial
	result.Error = errMsg
	slog.Info("scrape finished",
		slog.String("url", baseURL),
		slog.Int("pages", result.TotalPages),
		slog.Int("products", result.TotalProducts),
		slog.Int("raw_products", result.RawProducts),
		slog.Bool("partial", partial),
	)
	return result
}

func (s *Scraper) failure(baseURL string, err error) *models.ScrapeResult {
	s.Metrics.IncPage(outcomeFailed)
	slog.Error("scrape failed", slog.String("url", baseURL), slog.Any("error", err))
	return &models.ScrapeResult{
		Success:     false,
		BaseURL:     baseURL,
		Pages:       []*models.PageResult{},
		AllProducts: []*models.Item{},
		Error:       err.Error(),
	}
}

func (s *Scraper) pageDelay(n int) time.Duration {
	return s.cfg.PageDelayBase + time.Duration(n)*s.cfg.PageDelayStep
}

func (s *Scraper) escalationDelay(i int) time.Duration {
	if i < len(s.cfg.EscalationDelays) {
		return s.cfg.EscalationDelays[i]
	}
	return 0
}

func checkTarget(raw string) error {
	if raw == "" {
		return errors.New("base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base url must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("base url must include a host")
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryPolicy spaces attempts at the same page linearly, capped at max.
type retryPolicy struct {
	maxRetries int
	base       time.Duration
	max        time.Duration
}

func newRetryPolicy(cfg *config.Config) *retryPolicy {
	return &retryPolicy{
		maxRetries: cfg.MaxRetries,
		base:       cfg.RetryBackoff,
		max:        cfg.RetryBackoffMax,
	}
}

func (rp *retryPolicy) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rp.base
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(attempt)
	if rp.max > 0 && delay > rp.max {
		delay = rp.max
	}
	return delay
}
