package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/infra/observability"
	"github.com/boddenberg/logistica-web-go/internal/proxy"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client")

const service = "backend"

// maxErrorBody caps how much of a rejected answer is kept for inspection.
const maxErrorBody = 1 << 20

// BackendClient makes JSON calls to the logistics backend for page rendering.
// It shares the backend circuit breaker with the proxy endpoints.
type BackendClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewBackendClient creates a new BackendClient.
func NewBackendClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, metrics *observability.Metrics, logger *zap.Logger) *BackendClient {
	return &BackendClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		metrics:    metrics,
		logger:     logger,
	}
}

// GetJSON fetches path and decodes the answer into out.
func (c *BackendClient) GetJSON(ctx context.Context, s *domain.Session, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, s, http.MethodGet, path, nil, out)
}

// SendJSON encodes in as the request body and decodes the answer into out.
// out may be nil when the answer is not needed.
func (c *BackendClient) SendJSON(ctx context.Context, s *domain.Session, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}
	return c.do(ctx, s, method, path, body, out)
}

func (c *BackendClient) do(ctx context.Context, s *domain.Session, method, path string, body []byte, out any) error {
	ctx, span := tracer.Start(ctx, "BackendClient."+method)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("backend.path", path),
	)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header = proxy.ComposeHeaders(s, nil)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	result, err := c.cb.Execute(func() (any, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		c.metrics.IncrUpstreamError(service)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &domain.ErrCircuitOpen{Service: service}
		}
		c.logger.Error("backend call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return &domain.ErrExternalService{Service: service, Err: err}
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("backend rejected call",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return &domain.ErrUpstream{Service: service, Status: resp.StatusCode, Body: raw}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ErrExternalService{Service: service, Err: fmt.Errorf("decode %s: %w", path, err)}
	}
	return nil
}
