package parser

import (
	"testing"

	"github.com/aluiziolira/go-scrape-listings/models"
)

func TestValidateItem(t *testing.T) {
	tests := []struct {
		name    string
		item    *models.Item
		wantErr bool
	}{
		{
			name: "valid item",
			item: &models.Item{
				SKU:   "318776123",
				Title: "Acme 36 in. French Door Refrigerator",
				Price: "$1,299.00",
				URL:   "https://www.homedepot.com/p/318776123",
			},
			wantErr: false,
		},
		{
			name:    "url without price",
			item:    &models.Item{SKU: "1", Title: "Fridge", URL: "https://example.com/p/1"},
			wantErr: false,
		},
		{
			name:    "price without url",
			item:    &models.Item{SKU: "1", Title: "Fridge", Price: "$10.00"},
			wantErr: false,
		},
		{
			name:    "nil item",
			item:    nil,
			wantErr: true,
		},
		{
			name:    "sentinel title",
			item:    &models.Item{SKU: "1", Title: models.UnknownTitle, Price: "$10.00"},
			wantErr: true,
		},
		{
			name:    "blank title",
			item:    &models.Item{SKU: "1", Title: "   ", Price: "$10.00"},
			wantErr: true,
		},
		{
			name:    "generated identifier",
			item:    &models.Item{SKU: models.NewGeneratedID(), Title: "Fridge", Price: "$10.00"},
			wantErr: true,
		},
		{
			name:    "empty identifier",
			item:    &models.Item{Title: "Fridge", Price: "$10.00"},
			wantErr: true,
		},
		{
			name:    "missing price and url",
			item:    &models.Item{SKU: "1", Title: "Fridge"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateItem(tt.item)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateItem() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsPlausible(t *testing.T) {
	tests := []struct {
		name     string
		item     *models.Item
		expected bool
	}{
		{"title and price", &models.Item{Title: "Fridge", Price: "$1.00"}, true},
		{"title and url", &models.Item{Title: "Fridge", URL: "https://example.com"}, true},
		{"generated id is still plausible", &models.Item{SKU: models.NewGeneratedID(), Title: "Fridge", Price: "$1.00"}, true},
		{"sentinel title", &models.Item{Title: models.UnknownTitle, Price: "$1.00"}, false},
		{"no price or url", &models.Item{Title: "Fridge"}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPlausible(tt.item); got != tt.expected {
				t.Errorf("IsPlausible() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFindPrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "$899.00", expected: "$899.00"},
		{name: "thousands separator", input: "Now $2,199.99 was $2,499", expected: "$2,199.99"},
		{name: "whole dollars", input: "only $45 today", expected: "$45"},
		{name: "no currency", input: "call for price", expected: ""},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPrice(tt.input); got != tt.expected {
				t.Errorf("FindPrice(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseSavings(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantAmount  string
		wantPercent string
	}{
		{name: "amount and percent", input: "Save $300.00 (15%)", wantAmount: "$300.00", wantPercent: "15%"},
		{name: "amount only", input: "Save $1,050", wantAmount: "$1,050", wantPercent: ""},
		{name: "percent only", input: "You save (20%)", wantAmount: "", wantPercent: "20%"},
		{name: "neither", input: "Special Buy", wantAmount: "", wantPercent: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, percent := ParseSavings(tt.input)
			if amount != tt.wantAmount || percent != tt.wantPercent {
				t.Errorf("ParseSavings(%q) = (%q, %q), want (%q, %q)", tt.input, amount, percent, tt.wantAmount, tt.wantPercent)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Acme \n\t Fridge  ", "Acme Fridge"},
		{"single", "single"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeText(tt.input); got != tt.expected {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestHasListingIndicators(t *testing.T) {
	if !HasListingIndicators(`<div class="sui-grid"><div data-product-id="1"></div></div>`) {
		t.Error("expected listing markup to be recognised")
	}
	if HasListingIndicators(`<html><body><h1>Access Denied</h1></body></html>`) {
		t.Error("expected block page not to be recognised as a listing")
	}
}
