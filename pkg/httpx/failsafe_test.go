package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{Name: "test", MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func get(url string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestExecutorRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exec := NewExecutor(srv.Client(), fastConfig())
	resp, err := exec.Do(context.Background(), get(srv.URL))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestExecutorDoesNotRetryNotImplemented(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotImplemented)
	}))
	defer srv.Close()

	exec := NewExecutor(srv.Client(), fastConfig())
	resp, err := exec.Do(context.Background(), get(srv.URL))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(nil, assert.AnError))
	assert.True(t, ShouldRetry(&http.Response{StatusCode: http.StatusTooManyRequests}, nil))
	assert.False(t, ShouldRetry(&http.Response{StatusCode: http.StatusBadRequest}, nil))
	assert.False(t, ShouldRetry(&http.Response{StatusCode: http.StatusNotImplemented}, nil))
}

type trackedBody struct {
	closed atomic.Bool
}

func (b *trackedBody) Read([]byte) (int, error) { return 0, io.EOF }

func (b *trackedBody) Close() error {
	b.closed.Store(true)
	return nil
}

type scriptedTransport struct {
	statuses []int
	bodies   []*trackedBody
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	idx := len(s.bodies)
	status := s.statuses[len(s.statuses)-1]
	if idx < len(s.statuses) {
		status = s.statuses[idx]
	}
	body := &trackedBody{}
	s.bodies = append(s.bodies, body)
	return &http.Response{StatusCode: status, Body: body, Request: req, Header: http.Header{}}, nil
}

func TestExecutorClosesRetriedResponseBodies(t *testing.T) {
	tr := &scriptedTransport{statuses: []int{http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusOK}}
	exec := NewExecutor(&http.Client{Transport: tr}, fastConfig())

	resp, err := exec.Do(context.Background(), get("http://tool.invalid/compare"))
	require.NoError(t, err)
	require.Len(t, tr.bodies, 3)
	assert.True(t, tr.bodies[0].closed.Load())
	assert.True(t, tr.bodies[1].closed.Load())
	assert.False(t, tr.bodies[2].closed.Load(), "caller owns the final body")
	resp.Body.Close()
}

func TestExecutorClosesBodiesWhenRetriesExhausted(t *testing.T) {
	tr := &scriptedTransport{statuses: []int{http.StatusBadGateway}}
	cfg := fastConfig()
	cfg.Breaker = false
	exec := NewExecutor(&http.Client{Transport: tr}, cfg)

	_, err := exec.Do(context.Background(), get("http://tool.invalid/compare"))
	require.Error(t, err)
	require.Len(t, tr.bodies, 3)
	for i, b := range tr.bodies {
		assert.True(t, b.closed.Load(), "body %d left open", i)
	}
}
