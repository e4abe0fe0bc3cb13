package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapColumns(t *testing.T) {
	headers := []string{"Product_Name", " selling_price ", "image_urls", "marca", "root_category", "product_url", "desc"}

	mapping, err := MapColumns(headers)
	require.NoError(t, err)

	assert.Equal(t, "title", mapping["product_name"])
	assert.Equal(t, "price", mapping["selling_price"])
	assert.Equal(t, "images", mapping["image_urls"])
	assert.Equal(t, "brand", mapping["marca"])
	assert.Equal(t, "category", mapping["root_category"])
	assert.Equal(t, "url", mapping["product_url"])
	assert.Equal(t, "description", mapping["desc"])
}

func TestMapColumnsAliasPriority(t *testing.T) {
	// product_name outranks name when both are present.
	mapping, err := MapColumns([]string{"product_name", "name", "brand", "category", "price", "url"})
	require.NoError(t, err)

	assert.Equal(t, "title", mapping["product_name"])
	_, nameMapped := mapping["name"]
	assert.False(t, nameMapped)
}

func TestMapColumnsMissingRequired(t *testing.T) {
	_, err := MapColumns([]string{"title", "brand", "url"})

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.ElementsMatch(t, []string{"category", "price"}, schemaErr.Missing)
	assert.Contains(t, schemaErr.Error(), "category")
}

func TestDecodeCSV(t *testing.T) {
	feed := "title,brand,category,price,url\n" +
		"Aspirin,Bayer,Health,12.50,https://shop.example/a\n" +
		"Ibuprofen,Advil,Health,9.90,https://shop.example/b\n"

	header, rows, err := DecodeCSV(strings.NewReader(feed))
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "brand", "category", "price", "url"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, "Aspirin", rows[0]["title"])
	assert.Equal(t, "https://shop.example/b", rows[1]["url"])
}

func TestDecodeCSVWithBOM(t *testing.T) {
	feed := "\xEF\xBB\xBFtitle,brand\nAspirin,Bayer\n"

	header, rows, err := DecodeCSV(strings.NewReader(feed))
	require.NoError(t, err)
	assert.Equal(t, "title", header[0])
	assert.Equal(t, "Aspirin", rows[0]["title"])
}

func TestDecodeCSVLatin1(t *testing.T) {
	// "Ibuprofène" encoded as Latin-1: 0xE8 for è.
	feed := "title,brand\nIbuprof\xe8ne,UPSA\n"

	_, rows, err := DecodeCSV(strings.NewReader(feed))
	require.NoError(t, err)
	assert.Equal(t, "Ibuprofène", rows[0]["title"])
}

func TestDecodeCSVSkipsBadRows(t *testing.T) {
	feed := "title,brand\nAspirin,Bayer\nonly-one-field\nIbuprofen,Advil\n"

	_, rows, err := DecodeCSV(strings.NewReader(feed))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestDecodeCSVEmpty(t *testing.T) {
	_, _, err := DecodeCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, _, err = DecodeCSV(strings.NewReader("title,brand\n"))
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestDecodeCSVBinary(t *testing.T) {
	_, _, err := DecodeCSV(strings.NewReader("PK\x00\x00binary"))
	assert.ErrorIs(t, err, ErrBadEncoding)
}

func TestRenameColumns(t *testing.T) {
	row := Row{"product_name": "Aspirin", "extra_col": "x"}
	out := RenameColumns(row, map[string]string{"product_name": "title"})

	assert.Equal(t, "Aspirin", out["title"])
	assert.Equal(t, "x", out["extra_col"])
	_, old := out["product_name"]
	assert.False(t, old)
}
