package imaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/fyrsmithlabs/catalogd/internal/cache"
)

// ErrNoOGImage indicates the page carries no og:image meta tag.
var ErrNoOGImage = errors.New("no og:image found")

// ScrapeOGImage fetches a product page and extracts its og:image URL. It is
// the query-time backfill for products indexed without a usable image.
// Results are cached under the page URL.
func (r *Resolver) ScrapeOGImage(ctx context.Context, pageURL string) (string, error) {
	key := cache.ImageKey(pageURL)
	if img, ok := r.cache.Get(ctx, key); ok {
		return img, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		return "", fmt.Errorf("%w: content type %q", ErrNoOGImage, ct)
	}

	img, err := findOGImage(resp.Body)
	if err != nil {
		return "", err
	}

	r.cache.Set(ctx, key, img, r.config.CacheTTL)
	return img, nil
}

func findOGImage(body io.Reader) (string, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoOGImage, err)
	}

	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			var property, content string
			for _, a := range n.Attr {
				switch a.Key {
				case "property":
					property = a.Val
				case "content":
					content = a.Val
				}
			}
			if property == "og:image" && content != "" {
				found = content
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if found == "" {
		return "", ErrNoOGImage
	}
	return found, nil
}
