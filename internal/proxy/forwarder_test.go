package proxy_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/infra/observability"
	"github.com/boddenberg/logistica-web-go/internal/infra/resilience"
	"github.com/boddenberg/logistica-web-go/internal/proxy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captured struct {
	method string
	path   string
	query  string
	auth   []string
	ctype  string
	body   string
}

func newForwarder(t *testing.T, baseURL string) (*proxy.Forwarder, *observability.Metrics) {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	fwd := proxy.NewForwarder("backend", baseURL, &http.Client{Timeout: 2 * time.Second},
		resilience.NewCircuitBreaker("backend-test", logger), metrics, logger)
	return fwd, metrics
}

func serve(t *testing.T, fwd *proxy.Forwarder, res proxy.Resource, id string, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	relay, err := fwd.Forward(r.Context(), &domain.Session{AccessToken: "tok"}, res, id, r)
	if err != nil {
		proxy.WriteFailure(rec, err)
		return rec
	}
	proxy.WriteRelay(rec, relay)
	return rec
}

func TestForward_StatusAndBodyRelayedVerbatim(t *testing.T) {
	for _, status := range []int{200, 201, 400, 401, 404, 500} {
		body := `{"detail":"status ` + http.StatusText(status) + `"}`
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
		}))

		fwd, metrics := newForwarder(t, backend.URL)
		rec := serve(t, fwd, mustResource(t, "produtos"), "", httptest.NewRequest(http.MethodGet, "/api/proxy/produtos", nil))

		assert.Equal(t, status, rec.Code)
		assert.Equal(t, body, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, 1.0, metrics.CounterValue("logistica_proxy_requests_total", "produtos", "GET", strconv.Itoa(status)))

		backend.Close()
	}
}

func TestForward_NoContentHasNoBodyOrContentType(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer backend.Close()

	fwd, _ := newForwarder(t, backend.URL)
	rec := serve(t, fwd, mustResource(t, "rota"), "7", httptest.NewRequest(http.MethodDelete, "/api/proxy/rotas/7", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
	assert.Empty(t, rec.Header().Get("Content-Type"))
}

func TestForward_RequestShape(t *testing.T) {
	var got atomic.Pointer[captured]
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got.Store(&captured{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Values("Authorization"),
			ctype:  r.Header.Get("Content-Type"),
			body:   string(b),
		})
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1}`)
	}))
	defer backend.Close()

	fwd, _ := newForwarder(t, backend.URL+"/api")

	t.Run("write goes to admin path with raw body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPatch, "/api/proxy/rotas/3", strings.NewReader(`{"status":"CONCLUIDA"}`))
		r.Header.Set("Authorization", "Bearer spoofed")
		rec := serve(t, fwd, mustResource(t, "rota"), "3", r)

		require.Equal(t, http.StatusCreated, rec.Code)
		c := got.Load()
		assert.Equal(t, http.MethodPatch, c.method)
		assert.Equal(t, "/api/logistics/rotas-admin/3/", c.path)
		assert.Equal(t, []string{"Bearer tok"}, c.auth)
		assert.Equal(t, "application/json", c.ctype)
		assert.Equal(t, `{"status":"CONCLUIDA"}`, c.body)
	})

	t.Run("read goes to public path with default limit", func(t *testing.T) {
		serve(t, fwd, mustResource(t, "rotas"), "", httptest.NewRequest(http.MethodGet, "/api/proxy/rotas", nil))

		c := got.Load()
		assert.Equal(t, "/api/logistics/rotas/", c.path)
		assert.Equal(t, "limit=500", c.query)
		assert.Empty(t, c.ctype)
	})

	t.Run("explicit limit preserved", func(t *testing.T) {
		serve(t, fwd, mustResource(t, "rotas"), "", httptest.NewRequest(http.MethodGet, "/api/proxy/rotas?limit=10", nil))

		assert.Equal(t, "limit=10", got.Load().query)
	})

	t.Run("multipart content type forwarded", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/proxy/produtos", strings.NewReader("--b\r\n"))
		r.Header.Set("Content-Type", "multipart/form-data; boundary=b")
		serve(t, fwd, mustResource(t, "produtos"), "", r)

		assert.Equal(t, "multipart/form-data; boundary=b", got.Load().ctype)
	})
}

func TestForward_BinaryReport(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="rotas.pdf"`)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer backend.Close()

	fwd, _ := newForwarder(t, backend.URL)
	rec := serve(t, fwd, mustResource(t, "rotas_relatorio_pdf"), "",
		httptest.NewRequest(http.MethodPost, "/api/proxy/rotas/relatorio-pdf", strings.NewReader(`{"ids":[1]}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="rotas.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
}

func TestForward_TransportFailureEnvelope(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := backend.URL
	backend.Close()

	fwd, metrics := newForwarder(t, url)
	rec := serve(t, fwd, mustResource(t, "pedidos"), "", httptest.NewRequest(http.MethodGet, "/api/proxy/pedidos", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var env proxy.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Erro ao comunicar com o servidor", env.Error)
	assert.NotEmpty(t, env.Detalhes)
	assert.Equal(t, 1.0, metrics.CounterValue("logistica_upstream_errors_total", "backend"))
}

func TestForward_CircuitOpen(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := backend.URL
	backend.Close()

	fwd, _ := newForwarder(t, url)
	res := mustResource(t, "pedidos")
	for i := 0; i < 5; i++ {
		serve(t, fwd, res, "", httptest.NewRequest(http.MethodGet, "/api/proxy/pedidos", nil))
	}

	rec := serve(t, fwd, res, "", httptest.NewRequest(http.MethodGet, "/api/proxy/pedidos", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var env proxy.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Serviço temporariamente indisponível", env.Error)
}

func TestForward_MissingIDIsValidation(t *testing.T) {
	var hits atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits.Add(1) }))
	defer backend.Close()

	fwd, _ := newForwarder(t, backend.URL)
	rec := serve(t, fwd, mustResource(t, "pedido"), "", httptest.NewRequest(http.MethodGet, "/api/proxy/pedidos/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, hits.Load())
}

func TestFailureStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, proxy.FailureStatus(&domain.ErrValidation{Message: "x"}))
	assert.Equal(t, http.StatusServiceUnavailable, proxy.FailureStatus(&domain.ErrCircuitOpen{Service: "backend"}))
	assert.Equal(t, http.StatusBadGateway, proxy.FailureStatus(&proxy.TransportError{Upstream: "osrm", Status: 502, Err: io.ErrUnexpectedEOF}))
	assert.Equal(t, http.StatusInternalServerError, proxy.FailureStatus(&proxy.TransportError{Upstream: "osrm", Err: io.EOF}))
}
