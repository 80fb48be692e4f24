package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/gate"
	"github.com/boddenberg/logistica-web-go/internal/infra/observability"
	"github.com/boddenberg/logistica-web-go/internal/proxy"
	"github.com/boddenberg/logistica-web-go/internal/service"
	"github.com/boddenberg/logistica-web-go/internal/session"
	"github.com/boddenberg/logistica-web-go/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Auth      *service.AuthService
	Orders    *service.OrderService
	Dashboard *service.DashboardService
	Catalog   *service.Catalog
	Backend   *proxy.Forwarder
	OSRM      *proxy.Forwarder
	Sessions  *session.Manager
	Pages     *web.Pages
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.Backend, d.OSRM))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/assets/app.css", web.StylesheetHandler)

	// Every page path, routed or not, passes the access gate.
	pageGuard := []func(http.Handler) http.Handler{
		SecurityHeaders(SecurityHeadersConfig{ContentSecurityPolicy: pageCSP}),
		gate.Middleware(d.Metrics, logger),
	}
	r.NotFound(notFoundHandler(
		chi.Chain(append([]func(http.Handler) http.Handler{SessionMiddleware(d.Sessions)}, pageGuard...)...).
			HandlerFunc(pageNotFound),
	))

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(d.Sessions))

		// =============================================
		// JSON API used by the browser
		// =============================================
		r.Route("/api", func(r chi.Router) {
			r.Route("/auth", func(r chi.Router) {
				r.Get("/session", sessionHandler())
				r.Post("/session", sessionUpdateHandler(d.Auth, d.Sessions, logger))
				r.Post("/signin", signInHandler(d.Auth, d.Sessions, logger))
				r.Post("/signout", signOutHandler(d.Sessions))
			})

			r.Post("/osrm/route", osrmRouteHandler(d.OSRM, logger))

			r.Route("/proxy", func(r chi.Router) {
				mountProxy(r, d.Backend, logger)
			})
		})

		// =============================================
		// Pages (behind the access gate)
		// =============================================
		env := &pageEnv{pages: d.Pages, sessions: d.Sessions, logger: logger}
		r.Post("/sair", signOutPageHandler(env))

		r.Group(func(r chi.Router) {
			r.Use(pageGuard...)

			r.Get("/", loginPageHandler(env))
			r.Post("/", loginFormHandler(d.Auth, env))

			r.Get(domain.HomePath, homePageHandler(d.Dashboard, env, false))
			r.Get(domain.DefaultHomePath, homePageHandler(d.Dashboard, env, true))

			r.Get("/rotas", listPageHandler(env, web.PageRotas, "Rotas", d.Catalog.Routes))
			r.Get("/pedidos", listPageHandler(env, web.PagePedidos, "Pedidos", d.Orders.List))
			r.Get("/pedidos/novo", orderFormPageHandler(d.Catalog, env))
			r.Post("/pedidos/novo", orderCreatePageHandler(d.Orders, d.Catalog, env))
			r.Post("/pedidos/dividir", orderSplitPageHandler(d.Orders, d.Catalog, env))
			r.Get("/produtos", listPageHandler(env, web.PageProdutos, "Produtos", d.Catalog.Products))
			r.Get("/usuarios", listPageHandler(env, web.PageUsuarios, "Usuários", d.Catalog.Users))
			r.Get("/perfil", profilePageHandler(d.Catalog, env))
		})
	})

	return r
}

// notFoundHandler answers unrouted paths: API paths get a JSON 404, page
// paths go through pages (the gated not-found page).
func notFoundHandler(pages http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			writeError(w, http.StatusNotFound, "Recurso não encontrado")
			return
		}
		pages.ServeHTTP(w, r)
	}
}

func pageNotFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Página não encontrada", http.StatusNotFound)
}

// ============================================================
// Operational
// ============================================================

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// healthzHandler reports each upstream by the state of its circuit breaker.
// It never calls the upstreams itself.
func healthzHandler(upstreams ...*proxy.Forwarder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "logistica-web", Status: "healthy", LastChecked: now},
		}
		for _, u := range upstreams {
			if u == nil {
				continue
			}
			state := u.Breaker().State()
			status := "healthy"
			switch state {
			case gobreaker.StateOpen:
				status = "unhealthy"
			case gobreaker.StateHalfOpen:
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: u.Name(), Status: status, Breaker: state.String(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overallStatus = "degraded"
				break
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}
