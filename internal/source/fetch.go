package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "calwidget/internal/log"
)

// FetchResult is the outcome of fetching one ICS feed.
type FetchResult struct {
	Body      []byte
	FromCache bool
}

// cacheMeta holds conditional-request metadata for a cached feed body.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads ICS feeds with ETag / Last-Modified conditional
// requests and a disk cache. The cached body doubles as a stale fallback
// when the network is down, so a flaky connection degrades to old data
// instead of an empty widget.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher storing per-feed cache directories under
// cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		cacheDir: cacheDir,
	}
}

// Fetch retrieves one feed body, serving from cache on 304 and falling back
// to a cached body on network errors or non-OK responses.
func (f *Fetcher) Fetch(ctx context.Context, feedID, feedURL string) (FetchResult, error) {
	if feedURL == "" {
		return FetchResult{}, errors.New("feed URL is empty")
	}

	cachePath := filepath.Join(f.cacheDir, cacheKey(feedID, feedURL))
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := loadCacheMeta(cachePath)
	cachedBody, _ := os.ReadFile(filepath.Join(cachePath, "body.ics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("feed fetch network error, using cached body", err,
				"feed", feedID, "url", redactURL(feedURL))
			return FetchResult{Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, readErr
		}
		newMeta := cacheMeta{
			URL:          feedURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("feed cache save failed", err, "feed", feedID)
		}
		appLog.Debug("feed fetch ok", "feed", feedID, "url", redactURL(feedURL), "bytes", len(body))
		return FetchResult{Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, errors.New("304 Not Modified but no cached body")
		}
		appLog.Debug("feed not modified, using cache", "feed", feedID)
		return FetchResult{Body: cachedBody, FromCache: true}, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("feed fetch non-OK, using cached body", errors.New(resp.Status),
				"feed", feedID, "status", resp.StatusCode)
			return FetchResult{Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, errors.New(resp.Status)
	}
}

// cacheKey derives a filesystem-safe directory name for a feed. The feed ID
// is preferred; a URL hash covers feeds configured without one.
func cacheKey(feedID, feedURL string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return -1
		}
	}, feedID)
	if cleaned != "" {
		return cleaned
	}
	sum := sha256.Sum256([]byte(feedURL))
	return hex.EncodeToString(sum[:8])
}

func loadCacheMeta(cachePath string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func saveCache(cachePath string, meta cacheMeta, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.ics"), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL hides path and query of a feed URL for logging; private ICS
// URLs routinely embed tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
