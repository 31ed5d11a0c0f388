package clients

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"carbonstream/internal/models"
)

// HTTPDoer defines the http.Client interface subset used by the fetcher.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// CarbonClientConfig holds the two upstream endpoint URLs and retry policy.
type CarbonClientConfig struct {
	IntensityURL     string
	GenerationMixURL string
	MaxAttempts      int
	BaseDelay        time.Duration
	AttemptTimeout   time.Duration
}

// CarbonClient fetches raw payloads from the grid carbon-intensity API,
// retrying transport failures with bounded exponential backoff.
type CarbonClient struct {
	cfg     CarbonClientConfig
	client  HTTPDoer
	retrier *Retrier
}

// NewCarbonClient builds the upstream client.
func NewCarbonClient(cfg CarbonClientConfig, client HTTPDoer, logger *zap.Logger) *CarbonClient {
	return &CarbonClient{
		cfg:     cfg,
		client:  client,
		retrier: NewRetrier(cfg.MaxAttempts, cfg.BaseDelay, cfg.AttemptTimeout, logger),
	}
}

// FetchIntensity returns the raw carbon-intensity payload.
func (c *CarbonClient) FetchIntensity(ctx context.Context) ([]byte, error) {
	return c.retrier.Do(ctx, c.cfg.IntensityURL, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, c.cfg.IntensityURL)
	})
}

// FetchGenerationMix returns the raw generation-mix payload.
func (c *CarbonClient) FetchGenerationMix(ctx context.Context) ([]byte, error) {
	return c.retrier.Do(ctx, c.cfg.GenerationMixURL, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, c.cfg.GenerationMixURL)
	})
}

func (c *CarbonClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &models.TransportError{Endpoint: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.TransportError{Endpoint: url, Err: err}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &models.TransportError{Endpoint: url, StatusCode: resp.StatusCode}
	}
	return body, nil
}

// NewDefaultHTTPClient returns an *http.Client with an overall timeout; each
// attempt is additionally bounded by the retrier's per-attempt context.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
