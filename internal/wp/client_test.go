package wp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/convergo/drafting-platform/internal/apperr"
	"github.com/convergo/drafting-platform/pkg/logger"
)

func newTestClient(baseURL string, timeout time.Duration) *Client {
	return NewClient(baseURL, "editor", "abcd efgh ijkl", DefaultRetryPolicy(timeout), logger.NewNop())
}

func TestCreateDraftSuccess(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		require.Equal(t, "/wp-json/wp/v2/posts", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		// Display spacing in the app password must be stripped.
		require.Equal(t, "Basic ZWRpdG9yOmFiY2RlZmdoaWprbA==", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "draft", body["status"])
		require.Equal(t, "My Title", body["title"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":123,"link":"https://blog.example/?p=123"}`)
	}))
	defer server.Close()

	result, err := newTestClient(server.URL, time.Second).
		CreateDraft(context.Background(), "My Title", "<p>hello</p>", "req-1")
	require.NoError(t, err)
	require.Equal(t, 123, result.ID)
	require.Equal(t, "https://blog.example/?p=123", result.Link)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreateDraftRetriesOn503(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"id":7}`)
	}))
	defer server.Close()

	result, err := newTestClient(server.URL, time.Second).
		CreateDraft(context.Background(), "T", "<p>B</p>", "req-2")
	require.NoError(t, err)
	require.Equal(t, 7, result.ID)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCreateDraftNoRetryOn401(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, time.Second).
		CreateDraft(context.Background(), "T", "<p>B</p>", "req-3")
	require.Error(t, err)
	require.Equal(t, apperr.KindWPAuthFailed, apperr.KindOf(err))
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreateDraftNoRetryOn403(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, time.Second).
		CreateDraft(context.Background(), "T", "<p>B</p>", "req-4")
	require.Equal(t, apperr.KindWPForbidden, apperr.KindOf(err))
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreateDraftNoRetryOn404(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, time.Second).
		CreateDraft(context.Background(), "T", "<p>B</p>", "req-5")
	require.Equal(t, apperr.KindWPDraftFailed, apperr.KindOf(err))
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreateDraftRetryExhaustion(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, time.Second).
		CreateDraft(context.Background(), "T", "<p>B</p>", "req-6")
	require.Equal(t, apperr.KindWPDraftFailed, apperr.KindOf(err))
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCreateDraftTimeoutIsRetryable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			time.Sleep(500 * time.Millisecond)
		}
		fmt.Fprint(w, `{"id":9}`)
	}))
	defer server.Close()

	result, err := newTestClient(server.URL, 100*time.Millisecond).
		CreateDraft(context.Background(), "T", "<p>B</p>", "req-7")
	require.NoError(t, err)
	require.Equal(t, 9, result.ID)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCreateDraftConnectionDropNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		fmt.Fprint(w, `{"id":3}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, time.Second).
		CreateDraft(context.Background(), "T", "<p>B</p>", "req-9")
	require.Equal(t, apperr.KindWPDraftFailed, apperr.KindOf(err))
	// Unlike a timeout, a dropped connection aborts on the first attempt.
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreateDraftMissingPostID(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, time.Second).
		CreateDraft(context.Background(), "T", "<p>B</p>", "req-8")
	require.Equal(t, apperr.KindWPDraftFailed, apperr.KindOf(err))
	// Malformed success bodies are not retried.
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIsRetryableStatus(t *testing.T) {
	for _, status := range []int{408, 429, 500, 502, 503, 599} {
		require.True(t, IsRetryableStatus(status), "status %d", status)
	}
	for _, status := range []int{200, 400, 401, 403, 404, 422} {
		require.False(t, IsRetryableStatus(status), "status %d", status)
	}
}
