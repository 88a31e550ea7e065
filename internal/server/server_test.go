package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-persian/internal/config"
)

// -----------------------------------------------------------------------------
// Unit Tests (White-Box Testing of Feed Handler Logic)
// -----------------------------------------------------------------------------

// TestHandler_ServingFeed verifies that the feed handler correctly writes
// the standard HTTP headers and body content when data is available.
func TestHandler_ServingFeed(t *testing.T) {
	// Setup
	srv := New(config.DefaultPort, config.KindUTC)
	expectedICS := []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR")

	// Pre-load data into the atomic cache
	srv.Update(expectedICS)

	// Execute
	req := httptest.NewRequest(http.MethodGet, config.RouteFeed, nil)
	w := httptest.NewRecorder()
	srv.handleFeedRequest(w, req)

	// Assertions
	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))
	assert.Equal(t, config.MimeNoSniff, resp.Header.Get(config.HeaderXContentType))
	assert.Contains(t, resp.Header.Get(config.HeaderCacheControl), "no-cache")

	// ETag should be generated automatically
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, expectedICS, body)
}

// TestHandler_Caching verifies that the server respects ETag headers (If-None-Match)
// and returns 304 Not Modified to save bandwidth.
func TestHandler_Caching(t *testing.T) {
	srv := New(config.DefaultPort, config.KindUTC)
	data := []byte("DATA_VERSION_1")
	srv.Update(data)

	// Step 1: Initial Request to get the ETag
	req1 := httptest.NewRequest(http.MethodGet, config.RouteFeed, nil)
	w1 := httptest.NewRecorder()
	srv.handleFeedRequest(w1, req1)

	etag := w1.Result().Header.Get(config.HeaderETag)
	require.NotEmpty(t, etag, "Server must provide an ETag")

	// Step 2: Second Request providing the known ETag
	req2 := httptest.NewRequest(http.MethodGet, config.RouteFeed, nil)
	req2.Header.Set(config.HeaderIfNoneMatch, etag)
	w2 := httptest.NewRecorder()

	srv.handleFeedRequest(w2, req2)
	resp2 := w2.Result()
	defer func() { _ = resp2.Body.Close() }()

	// Assertions
	assert.Equal(t, http.StatusNotModified, resp2.StatusCode)
	body, _ := io.ReadAll(resp2.Body)
	assert.Empty(t, body, "Body must be empty on 304 Not Modified")
}

// TestHandler_HeadOmitsBody ensures HEAD requests serve headers only.
func TestHandler_HeadOmitsBody(t *testing.T) {
	srv := New(config.DefaultPort, config.KindUTC)
	srv.Update([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR"))

	req := httptest.NewRequest(http.MethodHead, config.RouteFeed, nil)
	w := httptest.NewRecorder()
	srv.handleFeedRequest(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(config.HeaderETag))

	body, _ := io.ReadAll(resp.Body)
	assert.Empty(t, body)
}

// TestHandler_Initializing verifies the 503 behavior when data is not yet ready.
func TestHandler_Initializing(t *testing.T) {
	srv := New(config.DefaultPort, config.KindUTC)
	// Note: We intentionally do NOT call srv.Update() here.

	req := httptest.NewRequest(http.MethodGet, config.RouteFeed, nil)
	w := httptest.NewRecorder()

	srv.handleFeedRequest(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, config.RetryAfterSeconds, resp.Header.Get(config.HeaderRetryAfter))
}

// -----------------------------------------------------------------------------
// Routing Tests
// -----------------------------------------------------------------------------

// TestRoutes_FeedGating ensures the ICS route only exists when a feed source
// is configured.
func TestRoutes_FeedGating(t *testing.T) {
	withFeed := New(config.DefaultPort, config.KindUTC)
	withFeed.Feed = true
	withFeed.Update([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR"))

	w := httptest.NewRecorder()
	withFeed.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, config.RouteFeed, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	without := New(config.DefaultPort, config.KindUTC)
	w = httptest.NewRecorder()
	without.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, config.RouteFeed, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestRoutes_MethodNotAllowed ensures the read-only API rejects writes.
func TestRoutes_MethodNotAllowed(t *testing.T) {
	srv := New(config.DefaultPort, config.KindUTC)

	req := httptest.NewRequest(http.MethodPost, config.RouteConvert, nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

// -----------------------------------------------------------------------------
// Concurrency Tests (Race Detection)
// -----------------------------------------------------------------------------

// TestServer_RaceCondition validates the thread-safety of atomic.Pointer usage.
// It runs high-frequency writers and readers concurrently to trigger race conditions.
// Run this with `go test -race`.
func TestServer_RaceCondition(t *testing.T) {
	srv := New(config.DefaultPort, config.KindUTC)
	var wg sync.WaitGroup

	// Duration of the stress test
	duration := 500 * time.Millisecond
	end := time.Now().Add(duration)

	// Writer Routines: Stress atomic.Pointer.Store
	// We spawn multiple writers to ensure multiple updates happen efficiently.
	for w := 0; w < 5; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			i := 0
			for time.Now().Before(end) {
				data := fmt.Sprintf("VERSION:%d-%d", id, i)
				srv.Update([]byte(data))
				i++
				// Tiny sleep to yield processor and allow interleaving
				time.Sleep(1 * time.Microsecond)
			}
		}(w)
	}

	// Reader Routines: Stress atomic.Pointer.Load through the handler
	for r := 0; r < 20; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) {
				req := httptest.NewRequest(http.MethodGet, config.RouteFeed, nil)
				w := httptest.NewRecorder()

				srv.handleFeedRequest(w, req)

				// Validates that we don't get partial writes or crashes.
				code := w.Code
				if code != http.StatusOK && code != http.StatusServiceUnavailable {
					t.Errorf("Unexpected status code during race test: %d", code)
				}
			}
		}()
	}

	wg.Wait()
}

// -----------------------------------------------------------------------------
// Integration Tests (Real TCP Lifecycle)
// -----------------------------------------------------------------------------

// TestStart_PortValidation ensures Start refuses to bind out-of-range ports.
func TestStart_PortValidation(t *testing.T) {
	srv := New(0, config.KindUTC)

	err := srv.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrPortRange)
}

// TestServer_Lifecycle spins up the actual TCP listener to verify network binding
// and graceful shutdown logic.
func TestServer_Lifecycle(t *testing.T) {
	// The listener address is assembled from the configured number, so an
	// ephemeral ":0" bind would not round-trip. Use a high port instead.
	const port = 18099

	srv := New(port, config.KindUTC)
	srv.Feed = true
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	// Start server in background
	go func() {
		errChan <- srv.Start(ctx)
	}()

	base := fmt.Sprintf("http://%s:%d", config.LocalhostBindAddr, port)

	// Wait for server to be responsive (TCP bind takes a few milliseconds)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + config.RouteHealthz)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 50*time.Millisecond, "Server failed to bind/listen in time")

	// 1. Check Initial Feed State (503)
	resp, err := http.Get(base + config.RouteFeed)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()

	// 2. Conversion API answers over the real listener, falling back to the
	// configured default kind.
	resp, err = http.Get(base + config.RouteConvert + "?at=2024-11-09T22:38:28Z")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// 3. Update Data
	srv.Update([]byte("BEGIN:VCALENDAR\nEND:VCALENDAR"))

	// 4. Check Served Content (200)
	resp, err = http.Get(base + config.RouteFeed)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, config.MimeTextCalendar, resp.Header.Get(config.HeaderContentType))

	body, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")

	// 5. Test Shutdown
	cancel() // Trigger context cancellation

	select {
	case err := <-errChan:
		// Start() returns nil on graceful shutdown
		assert.NoError(t, err, "Server should shutdown gracefully without error")
	case <-time.After(5 * time.Second):
		t.Fatal("Server shutdown timed out")
	}
}
