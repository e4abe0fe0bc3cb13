// Package catalog defines the product record model and the normalization,
// schema-mapping and validation steps applied to raw feed rows.
package catalog

import (
	"fmt"
	"strings"
)

// Canonical field names.
const (
	FieldTitle       = "title"
	FieldBrand       = "brand"
	FieldCategory    = "category"
	FieldPrice       = "price"
	FieldURL         = "url"
	FieldDescription = "description"
	FieldImages      = "images"
	FieldComposition = "composition"
	FieldUses        = "uses"
	FieldSideEffects = "side_effects"
)

// RequiredFields are the columns every feed must map to.
var RequiredFields = []string{FieldTitle, FieldBrand, FieldCategory, FieldPrice, FieldURL}

// columnAliases maps canonical names to accepted column names, in priority
// order. The first alias present in the header wins.
var columnAliases = []struct {
	canonical string
	aliases   []string
}{
	{FieldTitle, []string{"product_name", "title", "product_title", "name"}},
	{FieldPrice, []string{"final_price", "price", "selling_price", "valor"}},
	{FieldImages, []string{"image_urls", "main_image", "images", "img"}},
	{FieldBrand, []string{"brand", "marca", "manufacturer"}},
	{FieldCategory, []string{"category", "root_category", "category_name"}},
	{FieldURL, []string{"url", "product_url", "link"}},
	{FieldDescription, []string{"description", "desc", "product_description"}},
	{FieldComposition, []string{"composition"}},
	{FieldUses, []string{"uses"}},
	{FieldSideEffects, []string{"side_effects"}},
}

// SchemaError reports required fields that no column mapped to.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mapping incomplete, missing required fields: %s", strings.Join(e.Missing, ", "))
}

// MapColumns detects canonical fields in a header row and returns a rename
// map from the normalized original column name to the canonical name.
// Header matching is case and surrounding-whitespace insensitive.
//
// Returns a *SchemaError if any required field has no matching column; the
// caller must abort the job in that case.
func MapColumns(headers []string) (map[string]string, error) {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[NormalizeHeader(h)] = true
	}

	mapping := make(map[string]string)
	mapped := make(map[string]bool)
	for _, ca := range columnAliases {
		for _, alias := range ca.aliases {
			if present[alias] {
				mapping[alias] = ca.canonical
				mapped[ca.canonical] = true
				break
			}
		}
	}

	var missing []string
	for _, f := range RequiredFields {
		if !mapped[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	return mapping, nil
}

// NormalizeHeader lowercases and trims a column name.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
