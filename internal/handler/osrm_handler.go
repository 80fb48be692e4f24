package handler

import (
	"io"
	"net/http"

	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/proxy"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// OSRM — POST /api/osrm/route
// ============================================================

// osrmRouteHandler validates the coordinates locally and only then asks
// OSRM for the driving route. The OSRM answer is relayed verbatim.
func osrmRouteHandler(fwd *proxy.Forwarder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/osrm/route")
		defer span.End()

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			proxy.WriteFailure(w, &domain.ErrValidation{Field: "coords", Message: "corpo da requisição ilegível"})
			return
		}
		req, err := proxy.ParseRouteRequest(body)
		if err != nil {
			logger.Debug("osrm: rejected request", zap.Error(err))
			proxy.WriteFailure(w, err)
			return
		}
		span.SetAttributes(attribute.Int("osrm.coords", len(req.Coords)))

		relay, err := fwd.Do(ctx, proxy.Outbound{
			Resource: "osrm_route",
			Method:   http.MethodGet,
			URL:      req.Target(fwd.BaseURL()),
		})
		if err != nil {
			proxy.WriteFailure(w, err)
			return
		}
		proxy.WriteRelay(w, relay)
	}
}
