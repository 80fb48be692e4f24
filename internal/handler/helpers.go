package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/logistica-web-go/internal/advisor"
	"github.com/boddenberg/logistica-web-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

// maxBodyBytes caps request bodies this service parses itself. Proxied
// bodies are streamed to the backend untouched.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return &domain.ErrValidation{Message: "JSON inválido"}
	}
	return nil
}

// errorStatus maps domain errors to an HTTP status and a message fit for
// staff: backend rejections keep their own message.
func errorStatus(err error) (int, string) {
	var validation *domain.ErrValidation
	var unauthorized *domain.ErrUnauthorized
	var circuitOpen *domain.ErrCircuitOpen
	var upstream *domain.ErrUpstream

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized, unauthorized.Error()
	case errors.As(err, &circuitOpen):
		return http.StatusServiceUnavailable, "Serviço temporariamente indisponível"
	case errors.As(err, &upstream):
		msg := advisor.Message(upstream.Body)
		if msg == "" {
			msg = http.StatusText(upstream.Status)
		}
		return upstream.Status, msg
	}
	return http.StatusInternalServerError, "Erro ao comunicar com o servidor"
}

// handleServiceError maps domain errors to JSON responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status, msg := errorStatus(err)
	switch {
	case status >= 500:
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	case status == http.StatusUnauthorized:
		logger.Warn("unauthorized", zap.String("error", err.Error()))
	default:
		logger.Debug("request rejected", zap.Int("status", status), zap.String("error", err.Error()))
	}
	writeError(w, status, msg)
}
