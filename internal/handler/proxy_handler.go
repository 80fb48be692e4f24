package handler

import (
	"net/http"

	"github.com/boddenberg/logistica-web-go/internal/proxy"
	"github.com/boddenberg/logistica-web-go/internal/session"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Proxy — /api/proxy/*
// ============================================================

// mountProxy registers every resource of the proxy table on r.
func mountProxy(r chi.Router, fwd *proxy.Forwarder, logger *zap.Logger) {
	for _, res := range proxy.Resources {
		h := proxyHandler(fwd, res, logger)
		for _, method := range res.Methods {
			r.MethodFunc(method, res.Route, h)
		}
	}
}

func proxyHandler(fwd *proxy.Forwarder, res proxy.Resource, logger *zap.Logger) http.HandlerFunc {
	spanName := "/api/proxy" + res.Route
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+spanName)
		defer span.End()
		span.SetAttributes(attribute.String("proxy.resource", res.Name))

		sess := session.FromContext(ctx)
		relay, err := fwd.Forward(ctx, sess, res, chi.URLParam(r, "id"), r)
		if err != nil {
			logger.Debug("proxy call failed",
				zap.String("resource", res.Name),
				zap.Bool("authenticated", sess.HasToken()),
				zap.Error(err),
			)
			proxy.WriteFailure(w, err)
			return
		}
		proxy.WriteRelay(w, relay)
	}
}
