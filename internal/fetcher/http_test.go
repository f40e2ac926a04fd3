package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/skylab-research/atlas-cli/internal/model"
)

func testFetcher(server *httptest.Server) *HTTPFetcher {
	host := server.Listener.Addr().String()
	return NewHTTPFetcher(HTTPOptions{
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		RateLimiters: map[string]*rate.Limiter{
			host: rate.NewLimiter(rate.Inf, 1),
		},
	})
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "atlas-cli/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	body, err := testFetcher(server).Download(context.Background(), server.URL)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, `{"id": 1}`, string(data))
}

func TestDownload_NotFoundIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := testFetcher(server).Download(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrTransport))
}

func TestDownload_RetriesOn500(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	body, err := testFetcher(server).Download(context.Background(), server.URL)
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownload_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := testFetcher(server).Download(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownloadToFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("line one\nline two\n"))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "results.json")
	n, err := testFetcher(server).DownloadToFile(context.Background(), server.URL, path)
	require.NoError(t, err)
	assert.Equal(t, int64(18), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", string(data))

	// No temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadToFile_ErrorLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "results.json")
	_, err := testFetcher(server).DownloadToFile(context.Background(), server.URL, path)
	require.Error(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLimiterFor_FallsBackForUnknownHost(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	lim := f.limiterFor("https://example.org/path")
	require.NotNil(t, lim)

	u, err := url.Parse("https://atlas.ripe.net/api/v2/")
	require.NoError(t, err)
	assert.Same(t, f.limiters[u.Host], f.limiterFor(u.String()))
}
