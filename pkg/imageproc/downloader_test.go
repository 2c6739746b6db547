package imageproc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igposter/pkg/config"
	"igposter/pkg/errors"
	"igposter/pkg/logger"
	"igposter/pkg/retry"
)

func testDownloader(t *testing.T) *Downloader {
	t.Helper()
	cfg := config.DefaultConfig()
	d := NewDownloader(&cfg.Download, cfg.HTTP.UserAgent, logger.NewTestLogger())
	d.backoff = &retry.ConstantBackoff{Delay: time.Millisecond}
	return d
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image bytes"))
	}))
	defer server.Close()

	data, err := testDownloader(t).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), data)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("eventually"))
	}))
	defer server.Close()

	data, err := testDownloader(t).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("eventually"), data)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testDownloader(t).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryImage, errors.CategoryOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchExhaustsAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testDownloader(t).Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryImage, errors.CategoryOf(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetryableFetch(t *testing.T) {
	assert.False(t, retryableFetch(nil))
	assert.False(t, retryableFetch(context.Canceled))
	assert.False(t, retryableFetch(&statusError{code: 404}))
	assert.True(t, retryableFetch(&statusError{code: 503}))
	assert.True(t, retryableFetch(assert.AnError))
}
