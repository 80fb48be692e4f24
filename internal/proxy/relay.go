package proxy

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/logistica-web-go/internal/domain"
)

// ErrorEnvelope is the body written when a call fails on our side.
type ErrorEnvelope struct {
	Error    string `json:"error"`
	Detalhes string `json:"detalhes,omitempty"`
}

// WriteRelay writes the upstream answer back verbatim. A 204 is written
// without body and without Content-Type.
func WriteRelay(w http.ResponseWriter, rl *Relay) {
	if rl.Status == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if rl.ContentType != "" {
		w.Header().Set("Content-Type", rl.ContentType)
	}
	if rl.ContentDisposition != "" {
		w.Header().Set("Content-Disposition", rl.ContentDisposition)
	}
	w.WriteHeader(rl.Status)
	_, _ = w.Write(rl.Body)
}

// FailureStatus maps a Forward/Do error to the status written locally.
func FailureStatus(err error) int {
	var validation *domain.ErrValidation
	var circuitOpen *domain.ErrCircuitOpen
	var transport *TransportError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &circuitOpen):
		return http.StatusServiceUnavailable
	case errors.As(err, &transport) && transport.Status >= http.StatusBadRequest:
		return transport.Status
	}
	return http.StatusInternalServerError
}

// WriteFailure writes the {error, detalhes} envelope for err.
func WriteFailure(w http.ResponseWriter, err error) {
	status := FailureStatus(err)

	env := ErrorEnvelope{Error: "Erro ao comunicar com o servidor", Detalhes: err.Error()}
	var validation *domain.ErrValidation
	var circuitOpen *domain.ErrCircuitOpen
	switch {
	case errors.As(err, &validation):
		env = ErrorEnvelope{Error: validation.Message}
	case errors.As(err, &circuitOpen):
		env.Error = "Serviço temporariamente indisponível"
	}

	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
