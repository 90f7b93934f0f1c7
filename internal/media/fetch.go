package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chatline/chatline/internal/retry"
)

// StatusError is a non-2xx answer from the media host.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("media host returned status %d", e.Code)
}

// Pending reports whether the gateway is still processing the attachment.
func (e *StatusError) Pending() bool {
	return e.Code == http.StatusNotFound || e.Code == http.StatusConflict
}

// Download is a fetched attachment.
type Download struct {
	Data        []byte
	ContentType string
	// ContentLength is the declared length, -1 when the header is absent.
	ContentLength int64
}

// FetcherConfig configures Fetcher.
type FetcherConfig struct {
	// AllowedPrefix rejects URLs that do not start with it. Empty allows any URL.
	AllowedPrefix string
	Attempts      int
	Delay         time.Duration
	MaxBytes      int64
}

// Fetcher downloads gateway attachments, retrying while the gateway reports
// the media as not ready yet.
type Fetcher struct {
	client *http.Client
	cfg    FetcherConfig
	logger *slog.Logger
}

func NewFetcher(log *slog.Logger, client *http.Client, cfg FetcherConfig) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 200 * 1024 * 1024
	}
	return &Fetcher{
		client: client,
		cfg:    cfg,
		logger: log.With(slog.String("service", "media_fetch")),
	}
}

// Fetch downloads rawURL with the given headers. 404 and 409 are retried with
// a fixed delay; any other non-2xx fails at once. Both end in ErrMediaUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, headers http.Header) (Download, error) {
	if strings.TrimSpace(rawURL) == "" || (f.cfg.AllowedPrefix != "" && !strings.HasPrefix(rawURL, f.cfg.AllowedPrefix)) {
		return Download{}, fmt.Errorf("%w: %q", ErrInvalidMediaURL, rawURL)
	}
	policy := retry.Policy{
		Attempts: f.cfg.Attempts,
		Delay:    f.cfg.Delay,
		Retryable: func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.Pending()
		},
		OnRetry: func(attempt int, err error) {
			f.logger.Info("media not ready, retrying", slog.Int("attempt", attempt), slog.Any("error", err))
		},
	}
	dl, err := retry.Do(ctx, policy, func(ctx context.Context, _ int) (Download, error) {
		return f.get(ctx, rawURL, headers)
	})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return Download{}, fmt.Errorf("%w: %w", ErrMediaUnavailable, err)
		}
		return Download{}, err
	}
	return dl, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string, headers http.Header) (Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Download{}, fmt.Errorf("%w: %w", ErrInvalidMediaURL, err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Download{}, fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Download{}, &StatusError{Code: resp.StatusCode}
	}
	data, err := ReadCapped(resp.Body, f.cfg.MaxBytes)
	if err != nil {
		return Download{}, err
	}
	length := int64(-1)
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			length = n
		}
	}
	return Download{
		Data:          data,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: length,
	}, nil
}
