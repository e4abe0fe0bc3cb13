// Package imaging fetches product images, normalizes them to JPEG thumbnails
// and publishes them to object storage, with a cache in front so that a
// source URL is only processed once.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/catalogd/internal/cache"
	"github.com/fyrsmithlabs/catalogd/internal/objectstore"
)

var (
	// ErrFetch indicates the source URL could not be fetched.
	ErrFetch = errors.New("fetching image failed")

	// ErrNotImage indicates the response was not an image.
	ErrNotImage = errors.New("response is not an image")

	// ErrDecode indicates the image bytes could not be decoded.
	ErrDecode = errors.New("decoding image failed")

	// ErrUpload indicates the thumbnail could not be stored.
	ErrUpload = errors.New("uploading thumbnail failed")
)

// Some upstream catalogs refuse requests without a browser user agent.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Config holds thumbnail pipeline settings.
type Config struct {
	// ThumbnailSize is the bounding box edge for resized thumbnails.
	ThumbnailSize int
	JPEGQuality   int
	// FetchInterval spaces upstream fetches to avoid 429 responses.
	FetchInterval time.Duration
	FetchTimeout  time.Duration
	CacheTTL      time.Duration
}

func (c *Config) applyDefaults() {
	if c.ThumbnailSize == 0 {
		c.ThumbnailSize = 700
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = 85
	}
	if c.FetchInterval == 0 {
		c.FetchInterval = 200 * time.Millisecond
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 5 * time.Second
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 24 * time.Hour
	}
}

// Resolver turns source image URLs into hosted thumbnail URLs.
type Resolver struct {
	config  Config
	cache   cache.Cache
	store   objectstore.Uploader
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config, c cache.Cache, store objectstore.Uploader, logger *zap.Logger) *Resolver {
	cfg.applyDefaults()
	return &Resolver{
		config:  cfg,
		cache:   c,
		store:   store,
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		limiter: rate.NewLimiter(rate.Every(cfg.FetchInterval), 1),
		logger:  logger,
	}
}

// Resolve fetches sourceURL, resizes it into a JPEG thumbnail, uploads it
// under the given id and returns the hosted URL. Results are cached by
// source URL, so repeated rows with the same image cost one fetch.
func (r *Resolver) Resolve(ctx context.Context, sourceURL, id string) (string, error) {
	key := cache.ImageKey(sourceURL)
	if hosted, ok := r.cache.Get(ctx, key); ok {
		return hosted, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	data, err := r.fetch(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	thumb := imaging.Fit(img, r.config.ThumbnailSize, r.config.ThumbnailSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(r.config.JPEGQuality)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	hosted, err := r.store.Upload(ctx, "products/thumbs/"+id+".jpg", buf.Bytes(), "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpload, err)
	}

	r.cache.Set(ctx, key, hosted, r.config.CacheTTL)
	return hosted, nil
}

func (r *Resolver) fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "image") {
		return nil, fmt.Errorf("%w: content type %q", ErrNotImage, ct)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return buf.Bytes(), nil
}
