package parser

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// Extractor turns rendered listing markup into item records.
type Extractor struct {
	strategies []Strategy
	fallback   Strategy
}

// NewExtractor builds an extractor that resolves relative links against origin.
func NewExtractor(origin string) (*Extractor, error) {
	base, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse site origin: %w", err)
	}
	return &Extractor{
		strategies: []Strategy{
			IdentifierStrategy{Origin: base},
			StructuredDataStrategy{Origin: base},
			GridStrategy{Origin: base},
		},
		fallback: PatternStrategy{Origin: base},
	}, nil
}

// Extract returns the plausible items found in markup, in document order.
// An item found by more than one strategy keeps the first strategy's record.
func (e *Extractor) Extract(markup string) ([]*models.Item, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	var found []*models.Item
	seen := make(map[string]struct{})
	run := func(strategy Strategy) {
		candidates := strategy.Extract(doc, markup)
		kept := 0
		for _, item := range candidates {
			if !IsPlausible(item) {
				continue
			}
			if !models.IsGeneratedID(item.SKU) {
				if _, ok := seen[item.SKU]; ok {
					continue
				}
				seen[item.SKU] = struct{}{}
			}
			found = append(found, item)
			kept++
		}
		slog.Debug("extraction strategy",
			slog.String("strategy", strategy.Name()),
			slog.Int("candidates", len(candidates)),
			slog.Int("kept", kept),
		)
	}

	for _, strategy := range e.strategies {
		run(strategy)
	}
	if len(found) == 0 {
		run(e.fallback)
	}
	return found, nil
}
