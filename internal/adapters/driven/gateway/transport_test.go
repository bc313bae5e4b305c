package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
)

// fastClient returns a transport whose limiter does not slow tests.
func fastClient(t *testing.T) *HTTPClient {
	t.Helper()
	c := NewHTTPClient(5 * time.Second)
	c.limiter.SetLimit(1000)
	c.limiter.SetBurst(1000)
	return c
}

func TestPostJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Test"))
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := fastClient(t)
	body, err := c.PostJSON(context.Background(), srv.URL, map[string]string{"X-Test": "secret"}, map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(body))
}

func TestPostJSON_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := fastClient(t)
	_, err := c.PostJSON(context.Background(), srv.URL, nil, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostJSON_TransientExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := fastClient(t)
	_, err := c.PostJSON(context.Background(), srv.URL, nil, struct{}{})
	require.Error(t, err)
	assert.Equal(t, int32(maxAttempts), calls.Load())

	var remote *domain.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, domain.KindTransient, remote.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, remote.Status)
}

func TestPostJSON_ConfigurationErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := fastClient(t)
	_, err := c.PostJSON(context.Background(), srv.URL, nil, struct{}{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var remote *domain.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, domain.KindConfiguration, remote.Kind)
	assert.True(t, domain.IsConfiguration(err))
}

func TestPostJSON_ContentErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	c := fastClient(t)
	_, err := c.PostJSON(context.Background(), srv.URL, nil, struct{}{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var remote *domain.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, domain.KindContent, remote.Kind)
}

func TestPostJSON_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Refuse all connections.

	c := fastClient(t)
	_, err := c.PostJSON(context.Background(), srv.URL, nil, struct{}{})
	require.Error(t, err)

	var remote *domain.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, domain.KindTransient, remote.Kind)
	assert.Equal(t, 0, remote.Status)
}

func TestPostJSON_CancellationPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can detect the
		// client disconnect and cancel the request context.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	c := fastClient(t)
	_, err := c.PostJSON(ctx, srv.URL, nil, struct{}{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var remote *domain.RemoteError
	assert.False(t, errors.As(err, &remote))
}

func TestGet_ClassifiesStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no such model"))
	}))
	defer srv.Close()

	c := fastClient(t)
	_, err := c.Get(context.Background(), srv.URL, nil)
	require.Error(t, err)

	var remote *domain.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, domain.KindConfiguration, remote.Kind)
	assert.Contains(t, remote.Message, "no such model")
}
