// Package models defines data structures for the scraper.
package models

import (
	"strings"

	"github.com/google/uuid"
)

// UnknownTitle is the sentinel title assigned when no title candidate is found.
const UnknownTitle = "Unknown Product"

const generatedIDPrefix = "temp-"

// Item represents one product record extracted from a listing page.
type Item struct {
	SKU            string `csv:"sku" json:"sku"`
	Title          string `csv:"title" json:"title"`
	Brand          string `csv:"brand" json:"brand,omitempty"`
	Label          string `csv:"label" json:"label,omitempty"`
	Price          string `csv:"price" json:"price,omitempty"`
	OldPrice       string `csv:"old_price" json:"oldPrice,omitempty"`
	SaveAmount     string `csv:"save_amount" json:"saveAmount,omitempty"`
	SavePercentage string `csv:"save_percentage" json:"savePercentage,omitempty"`
	Image          string `csv:"image" json:"image,omitempty"`
	URL            string `csv:"url" json:"url,omitempty"`
	Rating         string `csv:"rating" json:"rating,omitempty"`
	ReviewCount    string `csv:"review_count" json:"reviewCount,omitempty"`
	Pickup         string `csv:"pickup" json:"pickup,omitempty"`
	Delivery       string `csv:"delivery" json:"delivery,omitempty"`
}

// NewGeneratedID returns a placeholder identifier for items without a site-provided one.
func NewGeneratedID() string {
	return generatedIDPrefix + uuid.NewString()
}

// IsGeneratedID reports whether id is empty or a placeholder from NewGeneratedID.
func IsGeneratedID(id string) bool {
	id = strings.TrimSpace(id)
	return id == "" || strings.HasPrefix(id, generatedIDPrefix)
}

// IsDiscounted reports whether the item carries any markdown information.
func (i *Item) IsDiscounted() bool {
	return i.OldPrice != "" || i.SaveAmount != "" || i.SavePercentage != ""
}
