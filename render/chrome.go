package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// waitForBudget bounds how long the browser waits for the content selector before
// capturing whatever has rendered.
const waitForBudget = 20 * time.Second

// ChromeRenderer renders pages with a local headless Chrome, one browser per call.
type ChromeRenderer struct {
	execPath  string
	userAgent string
	headless  bool
}

// NewChromeRenderer returns a headless renderer. An empty execPath lets chromedp locate Chrome.
func NewChromeRenderer(execPath, userAgent string) *ChromeRenderer {
	return &ChromeRenderer{execPath: execPath, userAgent: userAgent, headless: true}
}

// Render navigates to target, runs the loading script and returns the document markup.
func (c *ChromeRenderer) Render(ctx context.Context, target string, opts Options) (*Response, error) {
	start := time.Now()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", c.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if c.userAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(c.userAgent))
	}
	if c.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(c.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))
	defer cancelBrowser()

	resp, err := chromedp.RunResponse(browserCtx, chromedp.Navigate(target))
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", target, err)
	}
	status := 200
	if resp != nil {
		status = int(resp.Status)
	}

	var markup string
	err = chromedp.Run(browserCtx, c.loadActions(opts, &markup)...)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", target, err)
	}

	return &Response{
		StatusCode: status,
		Body:       markup,
		Duration:   time.Since(start),
	}, nil
}

func (c *ChromeRenderer) loadActions(opts Options, markup *string) []chromedp.Action {
	var actions []chromedp.Action
	if opts.InitialWait > 0 {
		actions = append(actions, chromedp.Sleep(opts.InitialWait))
	}
	if opts.WaitFor != "" {
		selector := opts.WaitFor
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			waitCtx, cancel := context.WithTimeout(ctx, waitForBudget)
			defer cancel()
			// a missing selector is not fatal; the extractor decides what the page holds
			_ = chromedp.WaitReady(selector, chromedp.ByQuery).Do(waitCtx)
			return nil
		}))
	}
	for _, step := range opts.Steps {
		if step.Wait > 0 {
			actions = append(actions, chromedp.Sleep(step.Wait))
			continue
		}
		actions = append(actions, chromedp.Evaluate(fmt.Sprintf("window.scrollTo(0, %d)", step.ScrollY), nil))
	}
	return append(actions, chromedp.OuterHTML("html", markup, chromedp.ByQuery))
}
