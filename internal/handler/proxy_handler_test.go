package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seenRequest struct {
	Method string
	URI    string
	Auth   string
	Type   string
	Body   string
}

// recordingBackend answers every call with status/body and remembers the
// last request it saw.
type recordingBackend struct {
	mu     sync.Mutex
	last   seenRequest
	status int
	body   string
}

func (b *recordingBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.last = seenRequest{r.Method, r.URL.RequestURI(), r.Header.Get("Authorization"), r.Header.Get("Content-Type"), string(raw)}
	status, body := b.status, b.body
	b.mu.Unlock()

	if status != http.StatusNoContent {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (b *recordingBackend) seen() seenRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

func TestProxy_StatusPassthrough(t *testing.T) {
	for _, status := range []int{200, 201, 400, 401, 404, 500} {
		backend := &recordingBackend{status: status, body: `{"detail":"x"}`}
		h := newHarness(t, backend)

		rec := h.do(t, httptest.NewRequest(http.MethodGet, "/api/proxy/produtos", nil), admin)

		assert.Equal(t, status, rec.Code)
		assert.JSONEq(t, `{"detail":"x"}`, rec.Body.String())
	}
}

func TestProxy_NoContent(t *testing.T) {
	backend := &recordingBackend{status: http.StatusNoContent}
	h := newHarness(t, backend)

	rec := h.do(t, httptest.NewRequest(http.MethodDelete, "/api/proxy/pedidos/12", nil), admin)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Type"))
	assert.Equal(t, "/logistics/pedidos-admin/12/", backend.seen().URI)
	assert.Empty(t, backend.seen().Type, "bodyless DELETE gets no default content type")
}

func TestProxy_RouteReadWriteSplit(t *testing.T) {
	backend := &recordingBackend{status: http.StatusOK, body: `{}`}
	h := newHarness(t, backend)

	h.do(t, httptest.NewRequest(http.MethodGet, "/api/proxy/rotas/5", nil), admin)
	assert.Equal(t, "/logistics/rotas/5/", backend.seen().URI)

	h.do(t, httptest.NewRequest(http.MethodPatch, "/api/proxy/rotas/5", strings.NewReader(`{"status":"EM_EXECUCAO"}`)), admin)
	seen := backend.seen()
	assert.Equal(t, "/logistics/rotas-admin/5/", seen.URI)
	assert.Equal(t, "Bearer admin-token", seen.Auth)
	assert.Equal(t, "application/json", seen.Type)
	assert.Equal(t, `{"status":"EM_EXECUCAO"}`, seen.Body)
}

func TestProxy_RouteListLimit(t *testing.T) {
	backend := &recordingBackend{status: http.StatusOK, body: `[]`}
	h := newHarness(t, backend)

	h.do(t, httptest.NewRequest(http.MethodGet, "/api/proxy/rotas", nil), admin)
	assert.Equal(t, "/logistics/rotas/?limit=500", backend.seen().URI)

	h.do(t, httptest.NewRequest(http.MethodGet, "/api/proxy/rotas?limit=10", nil), admin)
	assert.Equal(t, "/logistics/rotas/?limit=10", backend.seen().URI)
}

func TestProxy_AnonymousCallHasNoToken(t *testing.T) {
	backend := &recordingBackend{status: http.StatusCreated, body: `{"id":1}`}
	h := newHarness(t, backend)

	rec := h.do(t, httptest.NewRequest(http.MethodPost, "/api/proxy/signup", strings.NewReader(`{"email":"a@b.c"}`)), nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, backend.seen().Auth)
	assert.Equal(t, "/accounts/signup/", backend.seen().URI)
}

func TestProxy_MethodNotInTable(t *testing.T) {
	h := newHarness(t, &recordingBackend{status: http.StatusOK})

	rec := h.do(t, httptest.NewRequest(http.MethodDelete, "/api/proxy/me", nil), admin)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProxy_BackendDown(t *testing.T) {
	h := newHarness(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// drop the connection so the client sees a transport error
		hj, ok := w.(http.Hijacker)
		if !ok {
			return
		}
		if conn, _, err := hj.Hijack(); err == nil {
			_ = conn.Close()
		}
	}))

	rec := h.do(t, httptest.NewRequest(http.MethodGet, "/api/proxy/pedidos", nil), admin)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var env map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Erro ao comunicar com o servidor", env["error"])
	assert.NotEmpty(t, env["detalhes"])
}

// ============================================================
// OSRM
// ============================================================

func TestOSRM_SingleCoordinateRejectedLocally(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, httptest.NewRequest(http.MethodPost, "/api/osrm/route",
		strings.NewReader(`{"coords":[{"lat":-23.5,"lng":-46.6}]}`)), admin)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "São necessárias pelo menos 2 coordenadas")
	assert.Zero(t, h.osrmHits.Load())
}

func TestOSRM_TwoCoordinatesReachOSRM(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, httptest.NewRequest(http.MethodPost, "/api/osrm/route",
		strings.NewReader(`{"coords":[{"lat":-23.5,"lng":-46.6},{"lat":-23.6,"lng":-46.7}]}`)), admin)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"code":"Ok","routes":[{"distance":1234.5}]}`, rec.Body.String())
	assert.Equal(t, int32(1), h.osrmHits.Load())
	assert.Equal(t, "/route/v1/driving/-46.6,-23.5;-46.7,-23.6?overview=full&geometries=geojson", h.osrmPath.Load())
}
