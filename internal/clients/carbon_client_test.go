package clients

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"

	"carbonstream/internal/models"
)

type fakeDoer struct {
	responses []*http.Response
	errs      []error
	requests  []*http.Request
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, errors.New("no response scripted")
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func newTestClient(doer HTTPDoer, maxAttempts int) *CarbonClient {
	c := NewCarbonClient(CarbonClientConfig{
		IntensityURL:     "https://upstream.test/intensity",
		GenerationMixURL: "https://upstream.test/generation",
		MaxAttempts:      maxAttempts,
		BaseDelay:        2 * time.Second,
		AttemptTimeout:   10 * time.Second,
	}, doer, zap.NewNop())
	c.retrier.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestFetchIntensityReturnsBody(t *testing.T) {
	doer := &fakeDoer{responses: []*http.Response{jsonResponse(200, `{"data":[]}`)}}
	c := newTestClient(doer, 1)

	body, err := c.FetchIntensity(context.Background())
	if err != nil {
		t.Fatalf("fetch intensity: %v", err)
	}
	if string(body) != `{"data":[]}` {
		t.Fatalf("unexpected body %q", body)
	}
	if got := doer.requests[0].URL.String(); got != "https://upstream.test/intensity" {
		t.Fatalf("unexpected request URL %s", got)
	}
	if accept := doer.requests[0].Header.Get("Accept"); accept != "application/json" {
		t.Fatalf("expected Accept header, got %q", accept)
	}
}

func TestFetchTreatsNon2xxAsTransportError(t *testing.T) {
	doer := &fakeDoer{responses: []*http.Response{jsonResponse(502, `bad gateway`)}}
	c := newTestClient(doer, 1)

	_, err := c.FetchGenerationMix(context.Background())
	var transport *models.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if transport.StatusCode != 502 {
		t.Fatalf("expected status 502, got %d", transport.StatusCode)
	}
}

func TestFetchWrapsNetworkErrors(t *testing.T) {
	netErr := errors.New("connection reset")
	doer := &fakeDoer{errs: []error{netErr}}
	c := newTestClient(doer, 1)

	_, err := c.FetchIntensity(context.Background())
	var transport *models.TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !errors.Is(err, netErr) {
		t.Fatalf("expected wrapped network error, got %v", err)
	}
}

func TestFetchRetriesTransportFailuresOnly(t *testing.T) {
	doer := &fakeDoer{responses: []*http.Response{
		jsonResponse(500, `oops`),
		jsonResponse(200, `{"data":[{"from":"2025-12-09T14:00Z"}]}`),
	}}
	c := newTestClient(doer, 3)

	body, err := c.FetchIntensity(context.Background())
	if err != nil {
		t.Fatalf("expected recovery on second attempt, got %v", err)
	}
	if len(doer.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(doer.requests))
	}
	if len(body) == 0 {
		t.Fatalf("expected body from retried fetch")
	}
}
