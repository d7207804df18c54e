package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/constellation-network/sdk-go/pkg/config"
	"github.com/constellation-network/sdk-go/pkg/errs"
)

func testConfig() config.ClientConfig {
	cfg := config.Default()
	cfg.RequestTimeout = 2 * time.Second
	cfg.RetryAttempts = 3
	cfg.RetryBaseDelay = time.Millisecond
	return cfg
}

func TestRequestSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := New(testConfig(), nil)
	resp, err := tr.Request(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	require.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestRequestRetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := New(testConfig(), nil)
	resp, err := tr.Request(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestRequestDoesNotRetry4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tr := New(testConfig(), nil)
	_, err := tr.Request(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err)
	sdkErr, ok := err.(*errs.Error)
	require.True(t, ok)
	require.Equal(t, errs.KindHTTPError, sdkErr.Kind)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestRequestExhaustsRetriesOnPersistent5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := New(testConfig(), nil)
	_, err := tr.Request(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err)
}

func TestRequestRespectsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := New(testConfig(), nil)
	_, err := tr.Request(ctx, http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err)
}
