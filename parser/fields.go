package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-listings/models"
)

const (
	brandSelector  = `[data-testid="attribute-brandname-inline"], [data-testid="attribute-product-brand"]`
	labelSelector  = `[data-testid="attribute-product-label"]`
	dollarSelector = ".sui-font-display.sui-text-3xl, .sui-font-display.sui-text-4xl"
	centsSelector  = ".sui-font-display.sui-text-xs"
	detailLink     = `a[href*="/p/"]`
)

var (
	priceFallbackSelectors = []string{
		`[data-testid*="price"]`,
		".price",
		".product-price",
		`[class*="price__current"]`,
		".text-price",
	}
	titleAttrSelectors = []string{
		`[data-testid*="title"], [data-testid*="name"]`,
		".product-title, .product-name",
	}
	pickupSelectors = []string{
		`[data-component*="FulfillmentPodStore"]`,
		`[data-testid*="Pickup"]`,
		`[data-testid*="Store"]`,
		".pickup-availability",
	}
	deliverySelectors = []string{
		`[data-component*="FulfillmentPodShipping"]`,
		`[data-testid*="Delivery"]`,
		`[data-testid*="Shipping"]`,
		".delivery-option",
	}
	ratingSelectors = []string{
		`[data-testid="rating"]`,
		`[itemprop="ratingValue"]`,
		`[aria-label*="out of 5"]`,
	}
	reviewCountSelectors = []string{
		`[data-testid="review-count"]`,
		`[itemprop="reviewCount"]`,
	}

	nonDigitRe    = regexp.MustCompile(`\D`)
	pickupLabelRe = regexp.MustCompile(`(?i)^\s*pickup\s*:?\s*`)
	deliveryLabel = regexp.MustCompile(`(?i)^\s*(?:delivery|shipping)\s*:?\s*`)
	pickupTextRe  = regexp.MustCompile(`(?i)\bpickup\b:?\s*(.*?)\s*(?:\b(?:delivery|shipping)\b|$)`)
	deliveryRe    = regexp.MustCompile(`(?i)\b(?:delivery|shipping)\b:?\s*(.*?)\s*(?:\bpickup\b|$)`)
)

const maxFulfillmentLen = 120

// identifierAttrs are the attributes that carry a site-provided item id.
var identifierAttrs = []string{"data-product-id", "data-sku"}

// extractItem normalises one item container into a record.
func extractItem(sel *goquery.Selection, origin *url.URL) *models.Item {
	brand := firstText(sel, brandSelector)
	label := firstText(sel, labelSelector)

	price, oldPrice, saveAmount, savePercent := extractPrices(sel)

	return &models.Item{
		SKU:            extractIdentifier(sel),
		Title:          extractTitle(sel, brand, label),
		Brand:          brand,
		Label:          label,
		Price:          price,
		OldPrice:       oldPrice,
		SaveAmount:     saveAmount,
		SavePercentage: savePercent,
		Image:          extractImage(sel),
		URL:            extractURL(sel, origin),
		Rating:         firstTextOf(sel, ratingSelectors),
		ReviewCount:    firstTextOf(sel, reviewCountSelectors),
		Pickup:         extractFulfillment(sel, pickupSelectors, pickupLabelRe, pickupTextRe),
		Delivery:       extractFulfillment(sel, deliverySelectors, deliveryLabel, deliveryRe),
	}
}

func extractIdentifier(sel *goquery.Selection) string {
	for _, attr := range identifierAttrs {
		if v := strings.TrimSpace(sel.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	for _, attr := range identifierAttrs {
		if v := strings.TrimSpace(sel.Find("[" + attr + "]").First().AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return models.NewGeneratedID()
}

func extractTitle(sel *goquery.Selection, brand, label string) string {
	switch {
	case brand != "" && label != "":
		return brand + " " + label
	case label != "":
		return label
	case brand != "":
		return brand
	}

	candidates := []string{
		sel.Find("img").First().AttrOr("alt", ""),
		sel.Find("a").First().AttrOr("title", ""),
		sel.Find("h1, h2, h3, h4").First().Text(),
	}
	for _, selector := range titleAttrSelectors {
		candidates = append(candidates, sel.Find(selector).First().Text())
	}
	for _, candidate := range candidates {
		candidate = NormalizeText(candidate)
		if len(candidate) > 3 {
			return candidate
		}
	}
	return models.UnknownTitle
}

func extractPrices(sel *goquery.Selection) (price, oldPrice, saveAmount, savePercent string) {
	dollars := strings.TrimSpace(sel.Find(dollarSelector).First().Text())
	dollars = strings.ReplaceAll(strings.TrimPrefix(dollars, "$"), ",", "")
	if dollars != "" {
		cents := nonDigitRe.ReplaceAllString(sel.Find(centsSelector).Last().Text(), "")
		if cents == "" {
			cents = "00"
		}
		price = "$" + dollars + "." + cents
	}
	if price == "" {
		for _, selector := range priceFallbackSelectors {
			if match := FindPrice(sel.Find(selector).First().Text()); match != "" {
				price = match
				break
			}
		}
	}

	struck := NormalizeText(sel.Find(".sui-line-through").First().Text())
	if match := FindPrice(struck); match != "" {
		oldPrice = match
	} else {
		oldPrice = struck
	}

	if saveText := sel.Find(".sui-text-success").Text(); saveText != "" {
		saveAmount, savePercent = ParseSavings(saveText)
	}
	return price, oldPrice, saveAmount, savePercent
}

func extractImage(sel *goquery.Selection) string {
	img := sel.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	var src string
	for _, attr := range []string{"src", "data-src", "data-lazy"} {
		if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
			src = v
			break
		}
	}
	if src == "" {
		for _, attr := range []string{"data-srcset", "srcset"} {
			if v := firstSrcsetEntry(img.AttrOr(attr, "")); v != "" {
				src = v
				break
			}
		}
	}
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	return src
}

func firstSrcsetEntry(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func extractURL(sel *goquery.Selection, origin *url.URL) string {
	href := strings.TrimSpace(sel.Find("a[href]").First().AttrOr("href", ""))
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		href = strings.TrimSpace(sel.Find(detailLink).First().AttrOr("href", ""))
	}
	if href == "" {
		return ""
	}
	return resolveURL(origin, href)
}

func resolveURL(origin *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() || origin == nil {
		return href
	}
	return origin.ResolveReference(ref).String()
}

func extractFulfillment(sel *goquery.Selection, selectors []string, label, fallback *regexp.Regexp) string {
	for _, selector := range selectors {
		found := sel.Find(selector).First()
		if found.Length() == 0 {
			continue
		}
		return truncate(label.ReplaceAllString(NormalizeText(found.Text()), ""))
	}
	if m := fallback.FindStringSubmatch(NormalizeText(sel.Text())); m != nil {
		return truncate(m[1])
	}
	return ""
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxFulfillmentLen {
		return text
	}
	return strings.TrimSpace(string(runes[:maxFulfillmentLen]))
}

func firstText(sel *goquery.Selection, selector string) string {
	return NormalizeText(sel.Find(selector).First().Text())
}

func firstTextOf(sel *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		if text := firstText(sel, selector); text != "" {
			return text
		}
	}
	return ""
}
