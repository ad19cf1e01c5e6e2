package parser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// Strategy locates item containers in a parsed listing page.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, markup string) []*models.Item
}

// IdentifierStrategy reads every element that carries an explicit item identifier attribute.
type IdentifierStrategy struct {
	Origin *url.URL
}

func (s IdentifierStrategy) Name() string { return "identifier" }

func (s IdentifierStrategy) Extract(doc *goquery.Document, _ string) []*models.Item {
	var items []*models.Item
	const marked = "[data-product-id], [data-sku]"
	doc.Find(marked).Each(func(_ int, sel *goquery.Selection) {
		// nested markers belong to the outer container
		if sel.ParentsFiltered(marked).Length() > 0 {
			return
		}
		items = append(items, extractItem(sel, s.Origin))
	})
	return items
}

// StructuredDataStrategy maps linked-data Product blocks directly.
type StructuredDataStrategy struct {
	Origin *url.URL
}

func (s StructuredDataStrategy) Name() string { return "structured-data" }

func (s StructuredDataStrategy) Extract(doc *goquery.Document, _ string) []*models.Item {
	var items []*models.Item
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(sel.Text()), &payload); err != nil {
			return
		}
		for _, node := range collectProducts(payload) {
			if item := s.fromNode(node); item != nil {
				items = append(items, item)
			}
		}
	})
	return items
}

func (s StructuredDataStrategy) fromNode(node map[string]any) *models.Item {
	title := NormalizeText(stringField(node, "name"))
	sku := firstNonEmpty(stringField(node, "sku"), stringField(node, "productID"), stringField(node, "mpn"))
	if title == "" || sku == "" {
		return nil
	}

	item := &models.Item{
		SKU:   sku,
		Title: title,
		Brand: brandName(node["brand"]),
		Image: imageURL(node["image"]),
		Price: offerPrice(node["offers"]),
	}
	if link := stringField(node, "url"); link != "" {
		item.URL = resolveURL(s.Origin, link)
	}
	if rating, ok := node["aggregateRating"].(map[string]any); ok {
		item.Rating = scalarString(rating["ratingValue"])
		item.ReviewCount = firstNonEmpty(scalarString(rating["reviewCount"]), scalarString(rating["ratingCount"]))
	}
	return item
}

// collectProducts walks a decoded JSON-LD payload for Product nodes in document order.
func collectProducts(v any) []map[string]any {
	var out []map[string]any
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, elem := range t {
				walk(elem)
			}
		case map[string]any:
			if isProductType(t["@type"]) {
				out = append(out, t)
				return
			}
			for _, key := range []string{"@graph", "itemListElement", "item", "mainEntity"} {
				if child, ok := t[key]; ok {
					walk(child)
				}
			}
		}
	}
	walk(v)
	return out
}

func isProductType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, "Product")
	case []any:
		for _, elem := range t {
			if s, ok := elem.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

func brandName(v any) string {
	switch t := v.(type) {
	case string:
		return NormalizeText(t)
	case map[string]any:
		return NormalizeText(stringField(t, "name"))
	}
	return ""
}

func imageURL(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			return imageURL(t[0])
		}
	case map[string]any:
		return firstNonEmpty(stringField(t, "url"), stringField(t, "contentUrl"))
	}
	return ""
}

func offerPrice(v any) string {
	switch t := v.(type) {
	case []any:
		for _, elem := range t {
			if price := offerPrice(elem); price != "" {
				return price
			}
		}
	case map[string]any:
		raw := firstNonEmpty(scalarString(t["price"]), scalarString(t["lowPrice"]))
		if raw == "" {
			return ""
		}
		if strings.HasPrefix(raw, "$") {
			return raw
		}
		if f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64); err == nil {
			return fmt.Sprintf("$%.2f", f)
		}
		return "$" + raw
	}
	return ""
}

func stringField(node map[string]any, key string) string {
	return strings.TrimSpace(scalarString(node[key]))
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var gridSelectors = []string{
	".sui-grid",
	"[data-testid='product-grid']",
	".search-results",
	".browse-search__pod-container",
	".plp-grid",
}

// GridStrategy evaluates the children of known grid containers with LooksLikeItem.
type GridStrategy struct {
	Origin *url.URL
}

func (s GridStrategy) Name() string { return "grid" }

func (s GridStrategy) Extract(doc *goquery.Document, _ string) []*models.Item {
	var items []*models.Item
	for _, selector := range gridSelectors {
		doc.Find(selector).Each(func(_ int, container *goquery.Selection) {
			container.ChildrenFiltered("div, article, li, section").Each(func(_ int, candidate *goquery.Selection) {
				if LooksLikeItem(candidate) {
					items = append(items, extractItem(candidate, s.Origin))
				}
			})
		})
	}
	return items
}

// LooksLikeItem is the container heuristic: a currency amount, an image or detail link or
// identifier, item-related wording, and a bounded amount of text.
func LooksLikeItem(sel *goquery.Selection) bool {
	text := sel.Text()
	if !currencyPattern.MatchString(text) {
		return false
	}
	hasAnchor := sel.Find("img").Length() > 0 ||
		sel.Find(detailLink).Length() > 0 ||
		sel.Is("[data-product-id]") ||
		sel.Find("[data-product-id]").Length() > 0
	if !hasAnchor {
		return false
	}
	if !itemKeywordsRe.MatchString(text) {
		return false
	}
	return len(text) > 50 && len(text) < 3000
}

// identifierPatterns find item ids in raw markup together with a selector template
// that resolves the id back to a DOM element.
var identifierPatterns = []struct {
	re       *regexp.Regexp
	selector string
}{
	{regexp.MustCompile(`data-product-id\s*=\s*["']?([\w-]+)`), `[data-product-id="%s"]`},
	{regexp.MustCompile(`data-sku\s*=\s*["']?([\w-]+)`), `[data-sku="%s"]`},
	{regexp.MustCompile(`"productId"\s*:\s*"?(\d{6,})`), `a[href*="%s"]`},
	{regexp.MustCompile(`/p/[^"'\s]*/(\d{9})\b`), `a[href*="%s"]`},
}

const maxContainerDepth = 8

// PatternStrategy scans raw markup for identifier-looking substrings.
type PatternStrategy struct {
	Origin *url.URL
}

func (s PatternStrategy) Name() string { return "pattern" }

func (s PatternStrategy) Extract(doc *goquery.Document, markup string) []*models.Item {
	var items []*models.Item
	seen := make(map[string]struct{})
	for _, pattern := range identifierPatterns {
		for _, m := range pattern.re.FindAllStringSubmatch(markup, -1) {
			id := m[1]
			if _, ok := seen[id]; ok {
				continue
			}
			el := doc.Find(fmt.Sprintf(pattern.selector, id)).First()
			if el.Length() == 0 {
				continue
			}
			container := enclosingItem(el)
			if container == nil {
				continue
			}
			seen[id] = struct{}{}
			item := extractItem(container, s.Origin)
			item.SKU = id
			items = append(items, item)
		}
	}
	return items
}

func enclosingItem(sel *goquery.Selection) *goquery.Selection {
	current := sel
	for depth := 0; depth < maxContainerDepth && current.Length() > 0; depth++ {
		if goquery.NodeName(current) == "body" {
			return nil
		}
		if LooksLikeItem(current) {
			return current
		}
		current = current.Parent()
	}
	return nil
}
