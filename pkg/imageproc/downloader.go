package imageproc

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"igposter/pkg/config"
	"igposter/pkg/errors"
	"igposter/pkg/logger"
	"igposter/pkg/retry"
)

// Downloader fetches a remote source image over HTTP. Transient failures
// are retried with exponential backoff; this is the only retried network
// path in the program.
type Downloader struct {
	client   *http.Client
	attempts int
	backoff  retry.BackoffStrategy
	log      logger.Logger
}

// statusError carries the HTTP status of a failed fetch for the retry predicate
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("download of %s failed with status %d", e.url, e.code)
}

// NewDownloader creates a downloader from the download configuration
func NewDownloader(cfg *config.DownloadConfig, userAgent string, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		attempts: cfg.RetryAttempts,
		backoff:  retry.DefaultExponentialBackoff(),
		log:      log.WithField("user_agent", userAgent),
	}
}

// Fetch downloads the image bytes from the given URL
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	cfg := &retry.Config{
		MaxAttempts: d.attempts,
		Backoff:     d.backoff,
		RetryIf:     retryableFetch,
		Context:     ctx,
		Logger:      d.log,
	}

	data, err := retry.DoWithResult(func() ([]byte, error) {
		return d.fetchOnce(ctx, url)
	}, cfg)
	if err != nil {
		return nil, errors.NewImageError(fmt.Sprintf("cannot download image from %q", url), err)
	}

	d.log.InfoWithFields("image downloaded", map[string]interface{}{
		"url":   url,
		"bytes": len(data),
	})

	return data, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg,image/png,image/webp,*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, url: url}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	d.log.DebugWithFields("fetched image", map[string]interface{}{
		"url":      url,
		"bytes":    len(data),
		"duration": time.Since(start),
	})

	return data, nil
}

// retryableFetch retries network errors and retryable HTTP statuses only
func retryableFetch(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *statusError
	if stderrors.As(err, &se) {
		return errors.IsRetryableStatusCode(se.code)
	}

	// Plain transport errors are worth another attempt
	return true
}
