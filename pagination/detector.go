package pagination

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultCeiling bounds detected page totals when no ceiling is configured.
const DefaultCeiling = 10

var (
	pageOfRe       = regexp.MustCompile(`(?i)page\s+\d+\s+of\s+(\d+)`)
	identifierAttr = regexp.MustCompile(`data-product-id\s*=`)
)

// controlSelectors match pagination links and buttons across listing layouts.
var controlSelectors = []string{
	`[data-testid*="pagination"] a`,
	`[data-testid*="pagination"] button`,
	`.pagination a`,
	`.pagination button`,
	`.pagination span`,
	`[role="navigation"] a`,
	`[aria-label*="page"]`,
	`[class*="pagination"] a`,
	`[class*="pagination"] button`,
	`[class*="pager"] a`,
}

// Detection is the reconciled page total together with each signal it came from.
// A signal that found nothing is zero.
type Detection struct {
	Total    int
	Text     int
	Controls int
	Count    int
}

// Detector estimates how many pages a listing spans from its first page.
type Detector struct {
	Ceiling     int
	OffsetParam string
}

// NewDetector returns a Detector; a non-positive ceiling falls back to DefaultCeiling.
func NewDetector(ceiling int, offsetParam string) *Detector {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Detector{Ceiling: ceiling, OffsetParam: offsetParam}
}

// DetectTotalPages returns the estimated page total, at least 1 and at most the ceiling.
func (d *Detector) DetectTotalPages(markup string, perPage int) int {
	return d.Detect(markup, perPage).Total
}

// Detect evaluates every signal against the first page's markup.
func (d *Detector) Detect(markup string, perPage int) Detection {
	if perPage <= 0 {
		return Detection{Total: 1}
	}

	var det Detection
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup)); err == nil {
		det.Text = pagesFromText(doc.Text())
		det.Controls = d.pagesFromControls(doc, perPage)
	}
	det.Count = ceilDiv(len(identifierAttr.FindAllStringIndex(markup, -1)), perPage)

	det.Total = max(1, det.Text, det.Controls, det.Count)
	if det.Total > d.ceiling() {
		det.Total = d.ceiling()
	}
	return det
}

func (d *Detector) ceiling() int {
	if d.Ceiling <= 0 {
		return DefaultCeiling
	}
	return d.Ceiling
}

func pagesFromText(text string) int {
	best := 0
	for _, m := range pageOfRe.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > best {
			best = n
		}
	}
	return best
}

func (d *Detector) pagesFromControls(doc *goquery.Document, perPage int) int {
	best := 0
	selectors := append(controlSelectors[:len(controlSelectors):len(controlSelectors)], fmt.Sprintf(`a[href*="%s="]`, d.OffsetParam))
	for _, selector := range selectors {
		doc.Find(selector).Each(func(_ int, control *goquery.Selection) {
			if n, err := strconv.Atoi(strings.TrimSpace(control.Text())); err == nil && n > best {
				best = n
			}
			href, ok := control.Attr("href")
			if !ok {
				return
			}
			offset, ok := OffsetOf(href, d.OffsetParam)
			if !ok || offset%perPage != 0 {
				return
			}
			if page := offset/perPage + 1; page > best {
				best = page
			}
		})
	}
	return best
}

func ceilDiv(n, d int) int {
	if n <= 0 || d <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
