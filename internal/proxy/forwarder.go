// Package proxy forwards browser calls to the backend and OSRM. Every proxied
// resource is described once in the Resources table and served by the same
// Forwarder: headers come from ComposeHeaders, the upstream status and body are
// relayed verbatim, and transport failures become a JSON error envelope.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/infra/observability"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("proxy")

// Outbound is a fully built upstream call.
type Outbound struct {
	Resource string
	Method   string
	URL      string
	Header   http.Header
	Body     []byte
	Binary   bool
}

// Relay is the upstream answer as it will be written back to the browser.
type Relay struct {
	Status             int
	Body               []byte
	ContentType        string
	ContentDisposition string
}

// TransportError reports a failed exchange with an upstream. Status holds the
// upstream status when it answered before the failure, zero otherwise.
type TransportError struct {
	Upstream string
	Status   int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Upstream, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Upstream, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Forwarder issues calls against one upstream base URL.
type Forwarder struct {
	name       string
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewForwarder creates a Forwarder for the upstream called name.
func NewForwarder(name, baseURL string, httpClient *http.Client, breaker *gobreaker.CircuitBreaker, metrics *observability.Metrics, logger *zap.Logger) *Forwarder {
	return &Forwarder{
		name:       name,
		baseURL:    baseURL,
		httpClient: httpClient,
		breaker:    breaker,
		metrics:    metrics,
		logger:     logger,
	}
}

// Name is the upstream label.
func (f *Forwarder) Name() string {
	return f.name
}

// BaseURL is the upstream base URL.
func (f *Forwarder) BaseURL() string {
	return f.baseURL
}

// Breaker exposes the upstream circuit breaker (health reporting).
func (f *Forwarder) Breaker() *gobreaker.CircuitBreaker {
	return f.breaker
}

// Forward proxies the browser request r to res, authenticated as s.
// The inbound body is forwarded as raw bytes.
func (f *Forwarder) Forward(ctx context.Context, s *domain.Session, res Resource, id string, r *http.Request) (*Relay, error) {
	target, err := res.Target(f.baseURL, r.Method, id, r.URL.RawQuery)
	if err != nil {
		return nil, err
	}

	var body []byte
	if r.Body != nil {
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "body", Message: "corpo da requisição ilegível"}
		}
	}

	return f.Do(ctx, Outbound{
		Resource: res.Name,
		Method:   r.Method,
		URL:      target,
		Header:   ComposeHeaders(s, r),
		Body:     body,
		Binary:   res.Binary,
	})
}

// Do performs out once. No retries: a failure is reported to the caller as is.
func (f *Forwarder) Do(ctx context.Context, out Outbound) (*Relay, error) {
	ctx, span := tracer.Start(ctx, "Forwarder.Do")
	defer span.End()
	span.SetAttributes(
		attribute.String("proxy.upstream", f.name),
		attribute.String("proxy.resource", out.Resource),
		attribute.String("http.method", out.Method),
	)

	start := time.Now()

	var bodyReader io.Reader
	if len(out.Body) > 0 {
		bodyReader = bytes.NewReader(out.Body)
	}
	req, err := http.NewRequestWithContext(ctx, out.Method, out.URL, bodyReader)
	if err != nil {
		return nil, f.fail(span, out, 0, err)
	}
	if out.Header != nil {
		req.Header = out.Header.Clone()
	}

	result, err := f.breaker.Execute(func() (any, error) {
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			f.metrics.IncrUpstreamError(f.name)
			f.logger.Warn("proxy: circuit open",
				zap.String("upstream", f.name),
				zap.String("resource", out.Resource),
			)
			span.SetStatus(codes.Error, "circuit open")
			return nil, &domain.ErrCircuitOpen{Service: f.name}
		}
		return nil, f.fail(span, out, 0, err)
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, f.fail(span, out, resp.StatusCode, err)
	}

	relay := &Relay{
		Status:      resp.StatusCode,
		Body:        payload,
		ContentType: resp.Header.Get("Content-Type"),
	}
	switch {
	case resp.StatusCode == http.StatusNoContent:
		relay.Body = nil
		relay.ContentType = ""
	case out.Binary:
		relay.ContentDisposition = resp.Header.Get("Content-Disposition")
		if relay.ContentType == "" {
			relay.ContentType = "application/pdf"
		}
	case relay.ContentType == "":
		relay.ContentType = jsonContentType
	}

	f.metrics.ObserveProxy(out.Resource, out.Method, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	f.logger.Debug("proxy: relayed",
		zap.String("upstream", f.name),
		zap.String("resource", out.Resource),
		zap.String("method", out.Method),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(payload)),
	)

	return relay, nil
}

func (f *Forwarder) fail(span trace.Span, out Outbound, status int, err error) error {
	f.metrics.IncrUpstreamError(f.name)
	f.logger.Error("proxy: upstream call failed",
		zap.String("upstream", f.name),
		zap.String("resource", out.Resource),
		zap.String("method", out.Method),
		zap.Int("status", status),
		zap.Error(err),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return &TransportError{Upstream: f.name, Status: status, Err: err}
}
