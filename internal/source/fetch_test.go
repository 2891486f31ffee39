package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFetcherConditionalRequests(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	ctx := context.Background()

	res, err := f.Fetch(ctx, "feed", srv.URL)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if res.FromCache {
		t.Error("first fetch must come from the network")
	}

	res, err = f.Fetch(ctx, "feed", srv.URL)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !res.FromCache {
		t.Error("second fetch must be served from cache via 304")
	}
	if len(res.Body) == 0 {
		t.Error("cached body is empty")
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}
}

func TestFetcherStaleFallbackOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	}))

	f := NewFetcher(t.TempDir())
	ctx := context.Background()

	if _, err := f.Fetch(ctx, "feed", srv.URL); err != nil {
		t.Fatalf("warm-up fetch: %v", err)
	}

	srv.Close()
	res, err := f.Fetch(ctx, "feed", srv.URL)
	if err != nil {
		t.Fatalf("expected stale fallback, got %v", err)
	}
	if !res.FromCache || len(res.Body) == 0 {
		t.Errorf("fallback result = %+v, want cached body", res)
	}
}

func TestFetcherEmptyURL(t *testing.T) {
	f := NewFetcher(t.TempDir())
	if _, err := f.Fetch(context.Background(), "feed", ""); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestCacheKey(t *testing.T) {
	if got := cacheKey("my-feed_1", "https://x"); got != "my-feed_1" {
		t.Errorf("cacheKey = %q, want the cleaned feed ID", got)
	}
	// Unsafe characters are stripped, not substituted.
	if got := cacheKey("a/b c", "https://x"); got != "abc" {
		t.Errorf("cacheKey = %q, want %q", got, "abc")
	}
	// Without an ID, the key is derived from the URL and stable.
	k1 := cacheKey("", "https://example.com/cal.ics")
	k2 := cacheKey("", "https://example.com/cal.ics")
	if k1 == "" || k1 != k2 {
		t.Errorf("URL-derived key unstable: %q vs %q", k1, k2)
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://example.com/private/cal.ics?token=abcd")
	if got != "https://example.com/...(redacted)" {
		t.Errorf("redactURL = %q", got)
	}
	if got := redactURL("not a url"); got != "ics://...(redacted)" {
		t.Errorf("redactURL(garbage) = %q", got)
	}
}
