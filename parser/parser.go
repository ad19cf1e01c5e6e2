package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aluiziolira/go-scrape-listings/models"
)

var (
	currencyPattern = regexp.MustCompile(`\$[0-9,]+\.?[0-9]*`)
	saveAmountRe    = regexp.MustCompile(`\$([\d,]+\.?\d*)`)
	savePercentRe   = regexp.MustCompile(`\((\d+)%\)`)
	itemKeywordsRe  = regexp.MustCompile(`(?i)product|item|sku|buy|add to cart|reviews?|rating`)
)

// listingIndicators are substrings that appear on rendered listing pages.
var listingIndicators = []string{
	"data-product-id",
	"sui-grid",
	"product-pod",
	"search-results",
	"browse-search",
	"product-card",
	"data-sku",
}

// IsPlausible reports whether an extracted item is worth keeping at all.
func IsPlausible(item *models.Item) bool {
	if item == nil {
		return false
	}
	title := strings.TrimSpace(item.Title)
	if title == "" || title == models.UnknownTitle {
		return false
	}
	return strings.TrimSpace(item.Price) != "" || strings.TrimSpace(item.URL) != ""
}

// ValidateItem ensures an item may appear in a final result set.
func ValidateItem(item *models.Item) error {
	if item == nil {
		return fmt.Errorf("item is nil")
	}
	title := strings.TrimSpace(item.Title)
	if title == "" || title == models.UnknownTitle {
		return fmt.Errorf("item missing title")
	}
	if models.IsGeneratedID(item.SKU) {
		return fmt.Errorf("item missing identifier for %s", item.Title)
	}
	if strings.TrimSpace(item.Price) == "" && strings.TrimSpace(item.URL) == "" {
		return fmt.Errorf("item missing price and url for %s", item.Title)
	}
	return nil
}

// HasListingIndicators reports whether markup looks like a rendered listing page.
func HasListingIndicators(markup string) bool {
	for _, indicator := range listingIndicators {
		if strings.Contains(markup, indicator) {
			return true
		}
	}
	return false
}

// NormalizeText collapses runs of whitespace into single spaces.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// FindPrice returns the first currency amount in text.
func FindPrice(text string) string {
	return currencyPattern.FindString(text)
}

// ParseSavings pulls the absolute and percentage savings out of a "Save $X (Y%)" text.
func ParseSavings(text string) (amount, percent string) {
	if m := saveAmountRe.FindStringSubmatch(text); m != nil {
		amount = "$" + m[1]
	}
	if m := savePercentRe.FindStringSubmatch(text); m != nil {
		percent = m[1] + "%"
	}
	return amount, percent
}
