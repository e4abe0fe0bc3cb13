package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"brazilian currency with grouping", "R$ 1.234,56", 1234.56},
		{"plain decimal", "19.90", 19.9},
		{"comma decimal", "19,90", 19.9},
		{"currency prefix", "R$49,90", 49.9},
		{"percent sign stripped", "15%", 15},
		{"integer", "120", 120},
		{"grouped thousands with dot decimal", "1,234.56", 1234.56},
		{"empty", "", 0},
		{"garbage", "abc", 0},
		{"whitespace", "   ", 0},
		{"czech koruna", "249 Kč", 249},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParsePrice(tt.raw), 1e-9)
		})
	}
}

func TestParseImages(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"json list", `["http://a/1.jpg", "http://a/2.jpg"]`, []string{"http://a/1.jpg", "http://a/2.jpg"}},
		{"python repr list", `['http://a/1.jpg', 'http://a/2.jpg']`, []string{"http://a/1.jpg", "http://a/2.jpg"}},
		{"comma separated", "http://a/1.jpg, http://a/2.jpg", []string{"http://a/1.jpg", "http://a/2.jpg"}},
		{"single value", "http://a/1.jpg", []string{"http://a/1.jpg"}},
		{"malformed bracket resolves empty", "[not a list", nil},
		{"empty", "", nil},
		{"list of empties", `["", " "]`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseImages(tt.raw))
		})
	}
}

func TestSmartSplit(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"comma separated", "fever, headache, cold", []string{"fever", "headache", "cold"}},
		{"semicolons and newlines", "fever;headache\ncold", []string{"fever", "headache", "cold"}},
		{"camel boundary", "Relieves painReduces fever", []string{"Relieves pain", "Reduces fever"}},
		{"single term", "paracetamol", []string{"paracetamol"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SmartSplit(tt.raw))
		})
	}
}

func TestFromRow(t *testing.T) {
	row := Row{
		"title":      "  Aspirin 500mg ",
		"brand":      "Bayer",
		"category":   "",
		"price":      "R$ 12,50",
		"url":        "https://shop.example/aspirin",
		"images":     `["https://img.example/a.jpg"]`,
		"uses":       "pain, fever",
		"breadcrumb": `["Health", "Medicine", "Analgesics"]`,
	}

	p := FromRow(row)

	assert.Equal(t, "Aspirin 500mg", p.Title)
	assert.Equal(t, "Bayer", p.Brand)
	assert.Equal(t, "R$ 12,50", p.RawPrice)
	assert.Equal(t, []string{"https://img.example/a.jpg"}, p.Images)
	assert.Equal(t, []string{"pain", "fever"}, p.Uses)
	// Category backfilled from the breadcrumb trail.
	assert.Equal(t, "Analgesics", p.Category)
	// Unmapped columns land in Extra.
	assert.Contains(t, p.Extra, "breadcrumb")
}

func TestSearchText(t *testing.T) {
	p := Product{
		Title:       "Aspirin",
		Brand:       "Bayer",
		Category:    "Analgesics",
		Uses:        []string{"pain", "fever"},
		Composition: []string{"acetylsalicylic acid"},
	}
	assert.Equal(t, "Aspirin Bayer Analgesics pain fever acetylsalicylic acid", p.SearchText())
}

func TestPriceText(t *testing.T) {
	assert.Equal(t, "12.50 Kč", PriceText(12.5))
	assert.Equal(t, "Unavailable", PriceText(0))
}
