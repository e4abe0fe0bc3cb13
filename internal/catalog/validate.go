package catalog

import "strings"

// Skip reasons reported by Validate. These end up verbatim in the ingestion
// error report.
const (
	ReasonMissingTitle = "missing title"
	ReasonInvalidURL   = "missing or invalid product url"
	ReasonNoImages     = "missing or empty image list"
	ReasonBadFirstImg  = "first image is not a plausible url"
)

// Validate checks the per-record invariants: non-empty title, a URL carrying
// a scheme marker, and a non-empty image list whose first entry looks like a
// URL. Violations return (false, reason); the reason is retained for the
// error report.
func Validate(p Product) (bool, string) {
	if strings.TrimSpace(p.Title) == "" {
		return false, ReasonMissingTitle
	}

	url := strings.TrimSpace(p.URL)
	if url == "" || !strings.Contains(url, "http") {
		return false, ReasonInvalidURL
	}

	if len(p.Images) == 0 {
		return false, ReasonNoImages
	}
	first := strings.TrimSpace(p.Images[0])
	if first == "" || !strings.Contains(first, "http") {
		return false, ReasonBadFirstImg
	}

	return true, ""
}
