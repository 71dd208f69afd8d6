package imagecache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vkdump/pkg/logger"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "archive_files")
	cache, err := New(dir, logger.GetLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return cache
}

func TestFetchStoresImage(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	cache := newTestCache(t)
	imageURL := server.URL + "/photo.jpg"

	href := cache.Fetch(context.Background(), imageURL)
	if href == imageURL {
		t.Fatal("Fetch() returned original URL, want cached href")
	}
	if !strings.HasPrefix(href, "archive_files/") {
		t.Errorf("href = %q, want path under cache directory", href)
	}
	if !strings.HasSuffix(href, ".jpg") {
		t.Errorf("href = %q, want .jpg extension", href)
	}

	stored := filepath.Join(cache.Dir(), filepath.Base(href))
	data, err := os.ReadFile(stored)
	if err != nil {
		t.Fatalf("cached file missing: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("cached content = %q, want original bytes", data)
	}
}

func TestFetchIsIdempotent(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	cache := newTestCache(t)
	imageURL := server.URL + "/img.png"

	first := cache.Fetch(context.Background(), imageURL)
	second := cache.Fetch(context.Background(), imageURL)

	if first != second {
		t.Errorf("hrefs differ between fetches: %q vs %q", first, second)
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}
}

func TestFetchRejectsNonImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not an image</html>"))
	}))
	defer server.Close()

	cache := newTestCache(t)
	imageURL := server.URL + "/page"

	href := cache.Fetch(context.Background(), imageURL)
	if href != imageURL {
		t.Errorf("href = %q, want original URL on non-image response", href)
	}

	entries, err := os.ReadDir(cache.Dir())
	if err != nil {
		t.Fatalf("failed to read cache dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("cache dir has %d entries, want 0", len(entries))
	}
}

func TestFetchDegradesOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cache := newTestCache(t)
	imageURL := server.URL + "/broken.jpg"

	if href := cache.Fetch(context.Background(), imageURL); href != imageURL {
		t.Errorf("href = %q, want original URL on server error", href)
	}
}

func TestFetchEmptyURL(t *testing.T) {
	cache := newTestCache(t)
	if href := cache.Fetch(context.Background(), ""); href != "" {
		t.Errorf("href = %q, want empty string", href)
	}
}

func TestWithTimeout(t *testing.T) {
	cache, err := New(t.TempDir(), logger.GetLogger(), WithTimeout(3*time.Second))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if cache.httpClient.Timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", cache.httpClient.Timeout)
	}

	// Zero keeps the default
	cache, err = New(t.TempDir(), logger.GetLogger(), WithTimeout(0))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if cache.httpClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want default", cache.httpClient.Timeout)
	}
}

func TestExtensionFor(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"http://host/a.png", ".png"},
		{"http://host/a.JPEG", ".jpeg"},
		{"http://host/a.webp?size=100", ".webp"},
		{"http://host/a", ".jpg"},
		{"http://host/a.tiff", ".jpg"},
	}

	for _, tc := range cases {
		if got := extensionFor(tc.url); got != tc.want {
			t.Errorf("extensionFor(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
