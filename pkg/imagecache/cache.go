// Package imagecache mirrors remote images into a local directory so
// HTML archives keep rendering after the originals expire.
package imagecache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"vkdump/pkg/logger"
)

// DefaultTimeout bounds a single image download
const DefaultTimeout = 15 * time.Second

var knownImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// Cache downloads images into a directory, keyed by URL hash. Fetching
// the same URL twice reuses the stored file.
type Cache struct {
	dir        string
	httpClient *http.Client
	logger     logger.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// Option configures a Cache
type Option func(*Cache)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) {
		c.httpClient = client
	}
}

// WithTimeout bounds each image download
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates an image cache rooted at dir, creating it if needed
func New(dir string, log logger.Logger, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &Cache{
		dir: dir,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:   log,
		inFlight: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache, nil
}

// Dir returns the cache directory path
func (c *Cache) Dir() string {
	return c.dir
}

// Fetch downloads the image at rawURL into the cache and returns the
// href to use in place of the original: the cached file referenced
// relative to the cache directory's parent, or the original URL when
// downloading fails for any reason.
func (c *Cache) Fetch(ctx context.Context, rawURL string) string {
	if rawURL == "" {
		return rawURL
	}

	filename := cacheKey(rawURL) + extensionFor(rawURL)
	target := filepath.Join(c.dir, filename)
	href := path.Join(filepath.Base(c.dir), filename)

	if _, err := os.Stat(target); err == nil {
		return href
	}

	if err := c.download(ctx, rawURL, target); err != nil {
		c.logger.WarnWithFields("Image download failed, keeping original URL", map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		})
		return rawURL
	}

	return href
}

// download performs one image fetch and stores it at target
func (c *Cache) download(ctx context.Context, rawURL, target string) error {
	c.mu.Lock()
	if _, busy := c.inFlight[target]; busy {
		c.mu.Unlock()
		// Another worker is fetching this URL. The archive degrades
		// gracefully either way, so don't wait on it.
		return fmt.Errorf("download already in progress")
	}
	c.inFlight[target] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, target)
		c.mu.Unlock()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("not an image: content type %q", contentType)
	}

	tmp, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move image into cache: %w", err)
	}

	return nil
}

// cacheKey derives the stable file name stem for a URL
func cacheKey(rawURL string) string {
	sum := md5.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// extensionFor picks a file extension from the URL path, defaulting to
// .jpg when the path carries no recognizable image suffix
func extensionFor(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	if knownImageExtensions[ext] {
		return ext
	}
	return ".jpg"
}
