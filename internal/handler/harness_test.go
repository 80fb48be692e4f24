package handler_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/handler"
	"github.com/boddenberg/logistica-web-go/internal/infra/client"
	"github.com/boddenberg/logistica-web-go/internal/infra/observability"
	"github.com/boddenberg/logistica-web-go/internal/infra/resilience"
	"github.com/boddenberg/logistica-web-go/internal/proxy"
	"github.com/boddenberg/logistica-web-go/internal/service"
	"github.com/boddenberg/logistica-web-go/internal/session"
	"github.com/boddenberg/logistica-web-go/internal/web"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// harness wires the real router against fake backend and OSRM servers.
type harness struct {
	router   http.Handler
	sessions *session.Manager
	metrics  *observability.Metrics
	osrmHits atomic.Int32
	osrmPath atomic.Value
}

func newHarness(t *testing.T, backend http.Handler) *harness {
	t.Helper()
	h := &harness{}

	if backend == nil {
		backend = http.NotFoundHandler()
	}
	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	osrmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.osrmHits.Add(1)
		h.osrmPath.Store(r.URL.RequestURI())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":1234.5}]}`))
	}))
	t.Cleanup(osrmSrv.Close)

	logger := zap.NewNop()
	h.metrics = observability.NewMetrics()
	httpClient := &http.Client{Timeout: 5 * time.Second}

	backendCB := resilience.NewCircuitBreaker("backend", logger)
	osrmCB := resilience.NewCircuitBreaker("osrm", logger)

	codec, err := session.NewCodec("test-secret", time.Hour)
	require.NoError(t, err)
	h.sessions = session.NewManager(codec, false, logger)

	backendClient := client.NewBackendClient(httpClient, backendSrv.URL, backendCB, h.metrics, logger)

	h.router = handler.NewRouter(handler.Deps{
		Auth:      service.NewAuthService(backendClient, logger),
		Orders:    service.NewOrderService(backendClient, resilience.Config{MaxConcurrency: 4}, h.metrics, logger),
		Dashboard: service.NewDashboardService(backendClient, h.metrics, logger),
		Catalog:   service.NewCatalog(backendClient),
		Backend:   proxy.NewForwarder("backend", backendSrv.URL, httpClient, backendCB, h.metrics, logger),
		OSRM:      proxy.NewForwarder("osrm", osrmSrv.URL, httpClient, osrmCB, h.metrics, logger),
		Sessions:  h.sessions,
		Pages:     web.NewPages(),
		Metrics:   h.metrics,
		Logger:    logger,
	})
	return h
}

// cookie seals s the way sign-in does.
func (h *harness) cookie(t *testing.T, s *domain.Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, h.sessions.Issue(rec, s))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func (h *harness) do(t *testing.T, req *http.Request, s *domain.Session) *httptest.ResponseRecorder {
	t.Helper()
	if s != nil {
		req.AddCookie(h.cookie(t, s))
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

var (
	admin = &domain.Session{UserID: "1", Name: "Admin", AccessToken: "admin-token", IsSuperuser: true}
	clerk = &domain.Session{
		UserID:      "2",
		Name:        "Clerk",
		AccessToken: "clerk-token",
		Permissions: []domain.ScreenID{domain.ScreenPedidos},
		Profile:     &domain.ProfileRef{ID: 3, Name: "Pedidos"},
	}
)
