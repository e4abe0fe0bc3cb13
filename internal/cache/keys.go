package cache

import "strings"

// Key builders. Queries are normalized to trimmed lowercase so that cache
// identity matches query identity.

// NormalizeQuery lowercases and trims a query for use as a cache key.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// EnvelopeKey is the direct suggestion-envelope cache key for a query.
func EnvelopeKey(q string) string {
	return "autocomplete:" + NormalizeQuery(q)
}

// TypoKey maps a query to the canonical query it last resolved to.
func TypoKey(q string) string {
	return "autocomplete:typo_cache:" + NormalizeQuery(q)
}

// ImageKey caches a resolved thumbnail reference by source URL.
func ImageKey(sourceURL string) string {
	return "image-cache:" + sourceURL
}

// JobKey is the upload job status record key.
func JobKey(jobID string) string {
	return "upload:" + jobID + ":status"
}

// CancelKey flags an upload job for cooperative cancellation.
func CancelKey(jobID string) string {
	return "upload:" + jobID + ":cancel"
}

// RankingSearches is the sorted set of top search queries for a tenant.
func RankingSearches(clientID string) string {
	return "ranking:searches:" + clientID
}

// RankingClicks is the list of recently clicked products for a tenant.
func RankingClicks(clientID string) string {
	return "ranking:clicks:" + clientID
}

// RankingBrands is the sorted set of top brands for a tenant.
func RankingBrands(clientID string) string {
	return "ranking:brands:" + clientID
}

// RankingCategories is the sorted set of top categories for a tenant.
func RankingCategories(clientID string) string {
	return "ranking:categories:" + clientID
}
