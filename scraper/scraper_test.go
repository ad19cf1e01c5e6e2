package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-listings/config"
	"github.com/aluiziolira/go-scrape-listings/models"
	"github.com/aluiziolira/go-scrape-listings/pagination"
	"github.com/aluiziolira/go-scrape-listings/render"
)

const testBaseURL = "https://www.homedepot.com/b/Fridges/N-5yc1v"

type fakeCall struct {
	target  string
	offset  int
	level   Level
	timeout time.Duration
}

type fakeRenderer struct {
	mu     sync.Mutex
	calls  []fakeCall
	handle func(call fakeCall) (*render.Response, error)
}

func (f *fakeRenderer) Render(_ context.Context, target string, opts render.Options) (*render.Response, error) {
	offset, _ := pagination.OffsetOf(target, "Nao")
	call := fakeCall{target: target, offset: offset, level: levelFor(opts), timeout: opts.Timeout}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	return f.handle(call)
}

func (f *fakeRenderer) levels() []Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Level, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.level
	}
	return out
}

func levelFor(opts render.Options) Level {
	for l := LevelStandard; l <= LevelUltraExtended; l++ {
		if l.Options().InitialWait == opts.InitialWait {
			return l
		}
	}
	return Level(-1)
}

func listing(firstID, n int, extra string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="results">`)
	for i := 0; i < n; i++ {
		id := firstID + i
		fmt.Fprintf(&b, `<div data-product-id="%d"><h3>Refrigerator model %d</h3><span class="price">$%d.00</span><a href="/p/fridge/%d">View</a></div>`, id, id, 500+i, id)
	}
	b.WriteString(`</div>`)
	b.WriteString(extra)
	b.WriteString(`</body></html>`)
	return b.String()
}

const threePageControls = `<nav class="pagination">
<a href="/b/Fridges/N-5yc1v?Nao=0">1</a>
<a href="/b/Fridges/N-5yc1v?Nao=24">2</a>
<a href="/b/Fridges/N-5yc1v?Nao=48">3</a>
</nav>`

const emptyListing = `<html><body><div class="sui-grid"></div></body></html>`

func ok(body string) (*render.Response, error) {
	return &render.Response{StatusCode: http.StatusOK, Body: body, Duration: time.Second}, nil
}

func status(code int) (*render.Response, error) {
	return &render.Response{StatusCode: code, Body: "error"}, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = testBaseURL
	cfg.MinMarkupBytes = 0
	cfg.MaxRetries = 2
	cfg.RunTimeout = 0
	return cfg
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestScraper(t *testing.T, cfg *config.Config, r render.Renderer) (*Scraper, *sleepRecorder) {
	t.Helper()
	s, err := NewScraper(cfg, r)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	rec := &sleepRecorder{}
	s.sleep = rec.sleep
	return s, rec
}

func assertContiguous(t *testing.T, result *models.ScrapeResult) {
	t.Helper()
	for i, page := range result.Pages {
		if page.PageNumber != i+1 {
			t.Fatalf("page %d has number %d", i, page.PageNumber)
		}
		last := i == len(result.Pages)-1
		if page.HasNextPage == last {
			t.Fatalf("page %d: hasNextPage=%v, last=%v", page.PageNumber, page.HasNextPage, last)
		}
		if !last && page.NextPageURL != result.Pages[i+1].URL {
			t.Fatalf("page %d: next url %q, want %q", page.PageNumber, page.NextPageURL, result.Pages[i+1].URL)
		}
	}
}

func TestRunFollowsPagination(t *testing.T) {
	r := &fakeRenderer{handle: func(c fakeCall) (*render.Response, error) {
		if c.offset == 0 {
			return ok(listing(1000, 24, threePageControls))
		}
		return ok(listing(1000+c.offset, 24, ""))
	}}
	cfg := testConfig()
	s, rec := newTestScraper(t, cfg, r)

	result := s.Run(context.Background(), testBaseURL, 0)

	if !result.Success || result.Partial {
		t.Fatalf("expected full success, got %+v", result)
	}
	if result.TotalPages != 3 || result.DetectedPages != 3 {
		t.Fatalf("expected 3 pages, got total=%d detected=%d", result.TotalPages, result.DetectedPages)
	}
	if result.TotalProducts != 72 || result.RawProducts != 72 {
		t.Fatalf("expected 72 products, got total=%d raw=%d", result.TotalProducts, result.RawProducts)
	}
	assertContiguous(t, result)

	prev := -1
	for _, page := range result.Pages {
		offset, _ := pagination.OffsetOf(page.URL, "Nao")
		if offset <= prev {
			t.Fatalf("offset %d for page %d is not above %d", offset, page.PageNumber, prev)
		}
		prev = offset
	}

	levels := r.levels()
	want := []Level{LevelStandard, LevelPagination, LevelPagination}
	if fmt.Sprint(levels) != fmt.Sprint(want) {
		t.Fatalf("levels = %v, want %v", levels, want)
	}

	if len(rec.delays) != 2 {
		t.Fatalf("expected 2 inter-page delays, got %v", rec.delays)
	}
	if rec.delays[0] != s.pageDelay(2) || rec.delays[1] != s.pageDelay(3) || rec.delays[1] <= rec.delays[0] {
		t.Fatalf("expected strictly increasing page delays, got %v", rec.delays)
	}
}

func TestRunFirstPageEmpty(t *testing.T) {
	r := &fakeRenderer{handle: func(fakeCall) (*render.Response, error) {
		return ok(emptyListing)
	}}
	s, _ := newTestScraper(t, testConfig(), r)

	result := s.Run(context.Background(), testBaseURL, 0)

	if !result.Success || result.TotalPages != 1 || result.TotalProducts != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(r.calls) != 1 {
		t.Fatalf("expected a single fetch, got %d", len(r.calls))
	}
	if result.Pages[0].HasNextPage {
		t.Fatal("single page must not have a next page")
	}
}

func TestRunEscalatesEmptyPage(t *testing.T) {
	tests := []struct {
		name      string
		ultraSize int
		wantPages int
		wantNext  bool
	}{
		{name: "short page after escalation is terminal", ultraSize: 10, wantPages: 2, wantNext: false},
		{name: "full page after escalation continues", ultraSize: 24, wantPages: 3, wantNext: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRenderer{handle: func(c fakeCall) (*render.Response, error) {
				switch {
				case c.offset == 0:
					return ok(listing(1000, 24, threePageControls))
				case c.offset == 24 && c.level == LevelUltraExtended:
					return ok(listing(2000, tt.ultraSize, ""))
				case c.offset == 24:
					return ok(emptyListing)
				}
				return ok(listing(3000, 24, ""))
			}}
			cfg := testConfig()
			s, rec := newTestScraper(t, cfg, r)

			result := s.Run(context.Background(), testBaseURL, 0)

			if !result.Success || result.Partial {
				t.Fatalf("expected success, got %+v", result)
			}
			if result.TotalPages != tt.wantPages {
				t.Fatalf("expected %d pages, got %d", tt.wantPages, result.TotalPages)
			}
			page2 := result.Pages[1]
			if page2.ProductsCount != tt.ultraSize {
				t.Fatalf("expected page 2 to hold %d items, got %d", tt.ultraSize, page2.ProductsCount)
			}
			if page2.HasNextPage != tt.wantNext {
				t.Fatalf("page 2 hasNextPage = %v, want %v", page2.HasNextPage, tt.wantNext)
			}
			assertContiguous(t, result)

			levels := r.levels()
			want := []Level{LevelStandard, LevelPagination, LevelExtended, LevelUltraExtended}
			if fmt.Sprint(levels[:4]) != fmt.Sprint(want) {
				t.Fatalf("levels = %v, want prefix %v", levels, want)
			}
			if result.EscalationCount != 2 {
				t.Fatalf("expected 2 escalations, got %d", result.EscalationCount)
			}
			if rec.delays[1] != cfg.EscalationDelays[0] || rec.delays[2] != cfg.EscalationDelays[1] {
				t.Fatalf("unexpected escalation delays %v", rec.delays)
			}
			if tt.wantPages == 3 {
				if offset, _ := pagination.OffsetOf(result.Pages[2].URL, "Nao"); offset != 48 {
					t.Fatalf("expected page 3 at offset 48, got %d", offset)
				}
			}
		})
	}
}

func TestRunEmptyAfterEscalationIsTerminal(t *testing.T) {
	r := &fakeRenderer{handle: func(c fakeCall) (*render.Response, error) {
		if c.offset == 0 {
			return ok(listing(1000, 24, threePageControls))
		}
		return ok(emptyListing)
	}}
	s, _ := newTestScraper(t, testConfig(), r)

	result := s.Run(context.Background(), testBaseURL, 0)

	if !result.Success || result.Partial || result.Error != "" {
		t.Fatalf("expected clean success, got %+v", result)
	}
	if result.TotalPages != 2 || result.Pages[1].ProductsCount != 0 {
		t.Fatalf("expected empty terminal page 2, got %+v", result.Pages)
	}
	if len(r.calls) != 4 {
		t.Fatalf("expected 4 fetches, got %d", len(r.calls))
	}
	assertContiguous(t, result)
}

func TestRunFirstPageFailure(t *testing.T) {
	r := &fakeRenderer{handle: func(fakeCall) (*render.Response, error) {
		return status(http.StatusServiceUnavailable)
	}}
	cfg := testConfig()
	s, rec := newTestScraper(t, cfg, r)

	result := s.Run(context.Background(), testBaseURL, 0)

	if result.Success {
		t.Fatal("expected failure")
	}
	if len(result.Pages) != 0 || result.TotalPages != 0 {
		t.Fatalf("expected no pages, got %d", len(result.Pages))
	}
	if result.Error == "" {
		t.Fatal("expected error message")
	}
	if len(r.calls) != cfg.MaxRetries+1 {
		t.Fatalf("expected %d attempts, got %d", cfg.MaxRetries+1, len(r.calls))
	}
	if result.RetryCount != cfg.MaxRetries {
		t.Fatalf("expected %d retries, got %d", cfg.MaxRetries, result.RetryCount)
	}
	if len(rec.delays) != 2 || rec.delays[0] != 10*time.Second || rec.delays[1] != 20*time.Second {
		t.Fatalf("expected linear backoff, got %v", rec.delays)
	}
}

func TestRunMissingCredential(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = ""
	renderer, err := render.NewProxyRenderer(cfg)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	s, rec := newTestScraper(t, cfg, renderer)

	result := s.Run(context.Background(), testBaseURL, 0)

	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Error, "configuration") {
		t.Fatalf("expected configuration error, got %q", result.Error)
	}
	if len(rec.delays) != 0 {
		t.Fatalf("configuration errors must not be retried, slept %v", rec.delays)
	}
}

func TestRunInvalidBaseURL(t *testing.T) {
	r := &fakeRenderer{handle: func(fakeCall) (*render.Response, error) {
		return ok(listing(1, 1, ""))
	}}
	s, _ := newTestScraper(t, testConfig(), r)

	result := s.Run(context.Background(), "ftp://example.com/list", 0)

	if result.Success || len(r.calls) != 0 {
		t.Fatalf("expected configuration failure without fetching, got %+v", result)
	}
}

func TestRunPartialOnLaterFailure(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		wantCalls int
	}{
		{name: "retryable failure escalates", code: http.StatusServiceUnavailable, wantCalls: 1 + 3 + 2},
		{name: "not found stops immediately", code: http.StatusNotFound, wantCalls: 1 + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRenderer{handle: func(c fakeCall) (*render.Response, error) {
				if c.offset == 0 {
					return ok(listing(1000, 24, threePageControls))
				}
				return status(tt.code)
			}}
			s, _ := newTestScraper(t, testConfig(), r)

			result := s.Run(context.Background(), testBaseURL, 0)

			if !result.Success || !result.Partial {
				t.Fatalf("expected partial success, got success=%v partial=%v", result.Success, result.Partial)
			}
			if !strings.Contains(result.Error, "page 2") {
				t.Fatalf("expected error to name page 2, got %q", result.Error)
			}
			if result.TotalPages != 2 || result.Pages[1].ProductsCount != 0 {
				t.Fatalf("expected failed page recorded empty, got %+v", result.Pages)
			}
			if result.TotalProducts != 24 {
				t.Fatalf("expected page 1 products kept, got %d", result.TotalProducts)
			}
			if len(r.calls) != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, len(r.calls))
			}
			assertContiguous(t, result)
		})
	}
}

func TestRunConfigurationErrorMidRun(t *testing.T) {
	r := &fakeRenderer{handle: func(c fakeCall) (*render.Response, error) {
		if c.offset == 0 {
			return ok(listing(1000, 24, threePageControls))
		}
		return status(http.StatusUnauthorized)
	}}
	s, rec := newTestScraper(t, testConfig(), r)

	result := s.Run(context.Background(), testBaseURL, 0)

	if result.Success {
		t.Fatalf("expected failure on credential rejection, got success (partial=%v)", result.Partial)
	}
	if !strings.Contains(result.Error, "page 2") || !strings.Contains(result.Error, "credential") {
		t.Fatalf("expected error to name page 2 and the credential, got %q", result.Error)
	}
	if result.TotalPages != 2 || result.TotalProducts != 24 {
		t.Fatalf("expected gathered pages kept, got pages=%d products=%d", result.TotalPages, result.TotalProducts)
	}
	// no retries and no escalation for a rejected credential
	if len(r.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(r.calls))
	}
	if len(rec.delays) != 1 {
		t.Fatalf("expected only the page delay, got %v", rec.delays)
	}
	assertContiguous(t, result)
}

const fivePageControls = `<nav class="pagination">
<a href="/b/Fridges/N-5yc1v?Nao=0">1</a>
<a href="/b/Fridges/N-5yc1v?Nao=24">2</a>
<a href="/b/Fridges/N-5yc1v?Nao=48">3</a>
<a href="/b/Fridges/N-5yc1v?Nao=72">4</a>
<a href="/b/Fridges/N-5yc1v?Nao=96">5</a>
</nav>`

func TestRunStartsMidListing(t *testing.T) {
	r := &fakeRenderer{handle: func(c fakeCall) (*render.Response, error) {
		if c.offset == 48 {
			return ok(listing(1048, 24, fivePageControls))
		}
		return ok(listing(1000+c.offset, 24, ""))
	}}
	s, _ := newTestScraper(t, testConfig(), r)

	result := s.Run(context.Background(), testBaseURL+"?Nao=48", 0)

	if !result.Success || result.Partial {
		t.Fatalf("expected full success, got %+v", result)
	}
	if result.TotalPages != 3 || result.DetectedPages != 3 {
		t.Fatalf("expected the 3 remaining pages, got total=%d detected=%d", result.TotalPages, result.DetectedPages)
	}
	var offsets []int
	for _, c := range r.calls {
		offsets = append(offsets, c.offset)
	}
	if fmt.Sprint(offsets) != "[48 72 96]" {
		t.Fatalf("fetched offsets %v, want [48 72 96]", offsets)
	}
	assertContiguous(t, result)
}

func TestRunRetryRecovers(t *testing.T) {
	var failures int
	r := &fakeRenderer{}
	r.handle = func(c fakeCall) (*render.Response, error) {
		if c.offset == 0 && failures < 1 {
			failures++
			return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
		}
		return ok(listing(1000, 5, ""))
	}
	s, _ := newTestScraper(t, testConfig(), r)

	result := s.Run(context.Background(), testBaseURL, 0)

	if !result.Success || result.TotalProducts != 5 {
		t.Fatalf("expected recovery, got %+v", result)
	}
	if result.RetryCount != 1 || result.RequestCount != 2 {
		t.Fatalf("expected 1 retry over 2 requests, got retries=%d requests=%d", result.RetryCount, result.RequestCount)
	}
}

func TestRunRespectsMaxPages(t *testing.T) {
	r := &fakeRenderer{handle: func(c fakeCall) (*render.Response, error) {
		if c.offset == 0 {
			return ok(listing(1000, 24, threePageControls))
		}
		return ok(listing(1000+c.offset, 24, ""))
	}}
	s, _ := newTestScraper(t, testConfig(), r)

	result := s.Run(context.Background(), testBaseURL, 2)

	if result.TotalPages != 2 || len(r.calls) != 2 {
		t.Fatalf("expected 2 pages from 2 calls, got pages=%d calls=%d", result.TotalPages, len(r.calls))
	}
	if result.DetectedPages != 3 {
		t.Fatalf("expected detected total to stay 3, got %d", result.DetectedPages)
	}
	assertContiguous(t, result)
}

func TestRunCancelAfterFirstPage(t *testing.T) {
	r := &fakeRenderer{handle: func(c fakeCall) (*render.Response, error) {
		return ok(listing(1000+c.offset, 24, threePageControls))
	}}
	s, _ := newTestScraper(t, testConfig(), r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.OnPage = func(page *models.PageResult, _ int) {
		if page.PageNumber == 1 {
			cancel()
		}
	}

	result := s.Run(ctx, testBaseURL, 0)

	if !result.Success || !result.Partial {
		t.Fatalf("expected partial success, got %+v", result)
	}
	if result.TotalPages != 1 || len(r.calls) != 1 {
		t.Fatalf("expected to stop after page 1, got pages=%d calls=%d", result.TotalPages, len(r.calls))
	}
	if result.Pages[0].HasNextPage {
		t.Fatal("last recorded page must not have a next page")
	}
}

func TestRunDeduplicatesAcrossPages(t *testing.T) {
	r := &fakeRenderer{handle: func(c fakeCall) (*render.Response, error) {
		if c.offset == 0 {
			return ok(listing(1000, 24, threePageControls))
		}
		// overlaps the last four items of page 1
		return ok(listing(1020, 24, ""))
	}}
	cfg := testConfig()
	cfg.KeepMarkup = true
	s, _ := newTestScraper(t, cfg, r)

	result := s.Run(context.Background(), testBaseURL, 2)

	if result.RawProducts != 48 || result.TotalProducts != 44 {
		t.Fatalf("expected 48 raw and 44 unique, got raw=%d total=%d", result.RawProducts, result.TotalProducts)
	}
	if result.Pages[0].Markup == "" {
		t.Fatal("expected markup to be kept")
	}
}

func TestFetcherClassifiesBodies(t *testing.T) {
	tests := []struct {
		name     string
		resp     *render.Response
		err      error
		minBytes int
		expected string
	}{
		{name: "blocked", resp: &render.Response{StatusCode: 200, Body: "<html><h1>Access Denied</h1></html>"}, expected: "blocked"},
		{name: "too short", resp: &render.Response{StatusCode: 200, Body: "<html></html>"}, minBytes: 1024, expected: "markup_too_short"},
		{name: "unauthorized", resp: &render.Response{StatusCode: http.StatusUnauthorized}, expected: "configuration"},
		{name: "server error", resp: &render.Response{StatusCode: http.StatusBadGateway}, expected: "http_status"},
		{name: "missing credential", err: render.ErrMissingCredential, expected: "configuration"},
		{name: "deadline", err: context.DeadlineExceeded, expected: "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRenderer{handle: func(fakeCall) (*render.Response, error) { return tt.resp, tt.err }}
			f := NewFetcher(r, tt.minBytes, 0, nil)
			_, err := f.Fetch(context.Background(), testBaseURL, LevelStandard)
			if got := errorTypeLabel(err); got != tt.expected {
				t.Fatalf("label = %q (err %v), want %q", got, err, tt.expected)
			}
		})
	}
}

func TestRetryPolicyBackoff(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RetryBackoff = 200 * time.Millisecond
	cfg.RetryBackoffMax = 500 * time.Millisecond
	rp := newRetryPolicy(cfg)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 200 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 500 * time.Millisecond},
		{10, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := rp.backoff(tt.attempt); got != tt.expected {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "unauthorized", err: nil, statusCode: http.StatusUnauthorized, expected: "configuration"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: nil, statusCode: http.StatusInternalServerError, expected: "http_status"},
		{name: "missing credential", err: render.ErrMissingCredential, statusCode: 0, expected: "configuration"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if isRetryable(ErrConfiguration{Err: errors.New("no key")}) {
		t.Error("configuration errors must not be retried")
	}
	if isRetryable(ErrNotFound{Err: errors.New("gone")}) {
		t.Error("not found must not be retried")
	}
	if !isRetryable(ErrHTTPStatus{StatusCode: 503}) {
		t.Error("server errors should be retried")
	}
	if !isRetryable(ErrBlocked{Phrase: "captcha"}) {
		t.Error("block pages should be retried")
	}
}

func TestLevelOptionsEscalate(t *testing.T) {
	order := []Level{LevelPagination, LevelExtended, LevelUltraExtended}
	for i := 1; i < len(order); i++ {
		prev, next := order[i-1].Options(), order[i].Options()
		if next.InitialWait <= prev.InitialWait || len(next.Steps) <= len(prev.Steps) {
			t.Errorf("%s is not more patient than %s", order[i], order[i-1])
		}
	}
	if LevelStandard.Options().InitialWait >= LevelPagination.Options().InitialWait {
		t.Error("pagination level should wait longer than standard")
	}
	if Level(99).Options().InitialWait != LevelStandard.Options().InitialWait {
		t.Error("unknown levels should fall back to standard")
	}

	tests := []struct {
		base     time.Duration
		level    Level
		expected time.Duration
	}{
		{0, LevelStandard, 120 * time.Second},
		{0, LevelPagination, 120 * time.Second},
		{0, LevelExtended, 150 * time.Second},
		{0, LevelUltraExtended, 180 * time.Second},
		{40 * time.Second, LevelStandard, 40 * time.Second},
		{40 * time.Second, LevelPagination, 40 * time.Second},
		{40 * time.Second, LevelExtended, 50 * time.Second},
		{40 * time.Second, LevelUltraExtended, 60 * time.Second},
		{40 * time.Second, Level(99), 40 * time.Second},
	}
	for _, tt := range tests {
		if got := tt.level.OptionsWithTimeout(tt.base).Timeout; got != tt.expected {
			t.Errorf("%s with base %s: timeout = %s, want %s", tt.level, tt.base, got, tt.expected)
		}
	}
}

func TestRunUsesConfiguredTimeout(t *testing.T) {
	r := &fakeRenderer{handle: func(c fakeCall) (*render.Response, error) {
		if c.offset == 0 {
			return ok(listing(1000, 24, threePageControls))
		}
		return ok(emptyListing)
	}}
	cfg := testConfig()
	cfg.Timeout = 60 * time.Second
	s, _ := newTestScraper(t, cfg, r)

	s.Run(context.Background(), testBaseURL, 2)

	want := []time.Duration{60 * time.Second, 60 * time.Second, 75 * time.Second, 90 * time.Second}
	if len(r.calls) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(r.calls))
	}
	for i, c := range r.calls {
		if c.timeout != want[i] {
			t.Fatalf("call %d (%s): timeout = %s, want %s", i, c.level, c.timeout, want[i])
		}
	}
}
