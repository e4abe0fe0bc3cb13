package catalog

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Row is a raw tabular row keyed by column name.
type Row map[string]string

// Product is a normalized catalog record. Unmapped columns are preserved in
// Extra for forward compatibility but never indexed.
type Product struct {
	Title       string
	Brand       string
	Category    string
	URL         string
	Description string
	// RawPrice is the price as it appeared in the feed, possibly
	// currency-formatted. Use ParsePrice for the numeric value.
	RawPrice    string
	Images      []string
	Composition []string
	Uses        []string
	SideEffects []string
	Extra       map[string]string
}

// FromRow builds a Product from a row whose keys have already been renamed to
// canonical field names by MapColumns.
func FromRow(row Row) Product {
	p := Product{
		Title:       strings.TrimSpace(row[FieldTitle]),
		Brand:       strings.TrimSpace(row[FieldBrand]),
		Category:    strings.TrimSpace(row[FieldCategory]),
		URL:         strings.TrimSpace(row[FieldURL]),
		Description: strings.TrimSpace(row[FieldDescription]),
		RawPrice:    strings.TrimSpace(row[FieldPrice]),
		Images:      ParseImages(row[FieldImages]),
		Composition: SmartSplit(row[FieldComposition]),
		Uses:        SmartSplit(row[FieldUses]),
		SideEffects: SmartSplit(row[FieldSideEffects]),
	}

	canonical := map[string]bool{
		FieldTitle: true, FieldBrand: true, FieldCategory: true,
		FieldPrice: true, FieldURL: true, FieldDescription: true,
		FieldImages: true, FieldComposition: true, FieldUses: true,
		FieldSideEffects: true,
	}
	for k, v := range row {
		if !canonical[k] {
			if p.Extra == nil {
				p.Extra = make(map[string]string)
			}
			p.Extra[k] = v
		}
	}

	// Some feeds carry the category only in a breadcrumb trail.
	if p.Category == "" {
		if bc := ParseImages(p.Extra["breadcrumb"]); len(bc) > 0 {
			p.Category = strings.TrimSpace(bc[len(bc)-1])
		}
	}

	return p
}

// SearchText concatenates the fields worth embedding for this product.
func (p Product) SearchText() string {
	parts := []string{p.Title, p.Brand, p.Category}
	parts = append(parts, p.Uses...)
	parts = append(parts, p.Composition...)
	fields := parts[:0]
	for _, s := range parts {
		if s != "" {
			fields = append(fields, s)
		}
	}
	return strings.Join(fields, " ")
}

// ParseImages normalizes an image field to an ordered list of strings.
// Accepted inputs: a bracketed list literal (JSON or Python repr), a
// comma-separated string, or a single value. A malformed bracketed value
// resolves to an empty list, never an error.
func ParseImages(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	if strings.HasPrefix(s, "[") {
		var items []string
		if err := json.Unmarshal([]byte(s), &items); err == nil {
			return trimNonEmpty(items)
		}
		// Python-style repr with single quotes.
		if err := json.Unmarshal([]byte(strings.ReplaceAll(s, "'", `"`)), &items); err == nil {
			return trimNonEmpty(items)
		}
		return nil
	}

	if strings.Contains(s, ",") {
		return trimNonEmpty(strings.Split(s, ","))
	}
	return []string{s}
}

func trimNonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if t := strings.TrimSpace(it); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParsePrice converts a possibly currency-formatted price string to a float.
// Currency symbols and percent signs are stripped and the decimal separator
// normalized; when both '.' and ',' appear, the rightmost is taken as the
// decimal separator. Unparseable input yields 0.0.
func ParsePrice(raw string) float64 {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	var dec, grp byte
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			dec, grp = '.', ','
		} else {
			dec, grp = ',', '.'
		}
	case lastComma >= 0:
		dec = ','
	case lastDot >= 0:
		dec = '.'
	}

	if grp != 0 {
		s = strings.ReplaceAll(s, string(grp), "")
	}
	if dec != 0 {
		// Only the last occurrence is the decimal point; earlier ones
		// are grouping separators.
		if i := strings.LastIndexByte(s, dec); i >= 0 {
			s = strings.ReplaceAll(s[:i], string(dec), "") + "." + s[i+1:]
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// PriceText renders a display price string, matching the storefront format.
func PriceText(price float64) string {
	if price > 0 {
		return fmt.Sprintf("%.2f Kč", price)
	}
	return "Unavailable"
}

var (
	splitSeps      = regexp.MustCompile(`[,.\n;]+`)
	camelBoundary  = regexp.MustCompile(`([a-z])([A-Z])`)
	boundaryMarker = "\x00"
)

// SmartSplit breaks free text into list entries. Text with explicit
// separators splits on them; otherwise it splits on lowercase-to-uppercase
// boundaries, which handles feeds that concatenate phrases without
// punctuation.
func SmartSplit(text string) []string {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}

	var parts []string
	if strings.ContainsAny(s, ",.\n;") {
		parts = splitSeps.Split(s, -1)
	} else {
		marked := camelBoundary.ReplaceAllString(s, "$1"+boundaryMarker+"$2")
		parts = strings.Split(marked, boundaryMarker)
	}
	return trimNonEmpty(parts)
}
