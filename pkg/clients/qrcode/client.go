package qrcode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/config"
	"github.com/mamadbah2/seedbank/internal/metrics"
)

var (
	// ErrRetriesExhausted is returned when every attempt hit a rate limit, a 5xx or a transport error.
	ErrRetriesExhausted = errors.New("qr generator retries exhausted")
	// ErrRejected is returned for 4xx responses other than 429. These are not retried.
	ErrRejected = errors.New("qr generator rejected request")
)

const (
	minRetryWait = 500 * time.Millisecond
	maxRetryWait = 8 * time.Second
)

// Client renders lot codes as QR images.
type Client interface {
	Generate(ctx context.Context, data string) ([]byte, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	size       int
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewClient builds a QR client using the provided configuration values.
func NewClient(cfg config.QRConfig, m *metrics.Metrics, logger *zap.Logger) *APIClient {
	return newClient(cfg.BaseURL, cfg.Size, cfg.Attempts, minRetryWait, maxRetryWait, m, logger)
}

func newClient(baseURL string, size, attempts int, minWait, maxWait time.Duration, m *metrics.Metrics, logger *zap.Logger) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if attempts < 1 {
		attempts = 1
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(15 * time.Second).
		SetRetryCount(attempts - 1).
		SetRetryWaitTime(minWait).
		SetRetryMaxWaitTime(maxWait).
		AddRetryCondition(retryable)

	return &APIClient{
		httpClient: restyClient,
		size:       size,
		metrics:    m,
		logger:     logger,
	}
}

// retryable limits retries to transport errors, rate limiting and server errors.
func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	code := resp.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Generate returns a PNG encoding data.
func (c *APIClient) Generate(ctx context.Context, data string) ([]byte, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"size":   fmt.Sprintf("%dx%d", c.size, c.size),
			"format": "png",
			"data":   data,
		}).
		Get("/create-qr-code/")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.metrics.ObserveQR("exhausted")
		c.logger.Warn("qr generation failed", zap.String("data", data), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		c.metrics.ObserveQR("exhausted")
		c.logger.Warn("qr generation gave up", zap.String("data", data), zap.Int("status", code), zap.Int("attempts", resp.Request.Attempt))
		return nil, fmt.Errorf("%w: last status %d", ErrRetriesExhausted, code)
	case code >= http.StatusBadRequest:
		c.metrics.ObserveQR("rejected")
		return nil, fmt.Errorf("%w: status %d", ErrRejected, code)
	}

	c.metrics.ObserveQR("ok")
	return resp.Body(), nil
}
