package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("payload"))
		case "/headers":
			w.Write([]byte(r.Header.Get("Cookie") + "|" + r.Header.Get("User-Agent")))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(Options{Cookie: "JSESSIONID=abc"})

	resp, err := c.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "payload", string(resp.Body))

	resp, err = c.Fetch(context.Background(), srv.URL+"/headers")
	require.NoError(t, err)
	parts := strings.SplitN(string(resp.Body), "|", 2)
	assert.Equal(t, "JSESSIONID=abc", parts[0])
	assert.True(t, strings.HasPrefix(parts[1], "pandabundle/"), "user agent %q", parts[1])

	resp, err = c.Fetch(context.Background(), srv.URL+"/missing")
	require.NoError(t, err, "a 404 is not a transport error")
	assert.False(t, resp.OK)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("finally"))
	}))
	defer srv.Close()

	c := NewClient(Options{Retries: 3, RetryWaitMin: time.Millisecond, RetryWaitMax: 2 * time.Millisecond})
	resp, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, "finally", string(resp.Body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Options{})
	resp, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := NewClient(Options{Timeout: time.Second})
	_, err := c.Fetch(context.Background(), addr)
	assert.Error(t, err)
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := NewClient(Options{Rate: 0.001})
	_, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err, "first request uses the initial token")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Fetch(ctx, srv.URL)
	assert.Error(t, err)
}

func TestFetcherFunc(t *testing.T) {
	f := FetcherFunc(func(_ context.Context, url string) (Response, error) {
		return Response{OK: true, Status: 200, Body: []byte(url)}, nil
	})
	resp, err := f.Fetch(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "x", string(resp.Body))
}
