package models

import "time"

// PageResult is the fetch and extract outcome for one logical listing page.
type PageResult struct {
	Products      []*Item `json:"products"`
	PageNumber    int     `json:"pageNumber"`
	ProductsCount int     `json:"productsCount"`
	HasNextPage   bool    `json:"hasNextPage"`
	NextPageURL   string  `json:"nextPageUrl,omitempty"`
	URL           string  `json:"url"`

	// Markup is only populated when the scraper is configured to keep it.
	Markup string `json:"-"`
}

// ScrapeResult aggregates one paginated run.
type ScrapeResult struct {
	Success       bool          `json:"success"`
	BaseURL       string        `json:"baseUrl"`
	TotalPages    int           `json:"totalPages"`
	TotalProducts int           `json:"totalProducts"`
	RawProducts   int           `json:"rawProducts"`
	DetectedPages int           `json:"detectedPages"`
	Partial       bool          `json:"partial,omitempty"`
	Pages         []*PageResult `json:"pages"`
	AllProducts   []*Item       `json:"allProducts"`
	Error         string        `json:"error,omitempty"`

	StartTime       time.Time `json:"-"`
	EndTime         time.Time `json:"-"`
	RequestCount    int       `json:"-"`
	RetryCount      int       `json:"-"`
	EscalationCount int       `json:"-"`
}

// Duration returns the wall-clock time of the run.
func (r *ScrapeResult) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
