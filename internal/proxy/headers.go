package proxy

import (
	"net/http"

	"github.com/boddenberg/logistica-web-go/internal/domain"
)

const jsonContentType = "application/json"

// ComposeHeaders builds the outbound header set for a backend call.
//
//   - a session token becomes "Authorization: Bearer <token>";
//   - an inbound Content-Type is forwarded verbatim (multipart boundaries included);
//   - otherwise POST, PUT and PATCH default to application/json.
//
// Nothing else is added. Both arguments may be nil.
func ComposeHeaders(s *domain.Session, r *http.Request) http.Header {
	h := make(http.Header, 2)
	if s.HasToken() {
		h.Set("Authorization", "Bearer "+s.AccessToken)
	}
	if r == nil {
		return h
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		h.Set("Content-Type", ct)
		return h
	}
	if carriesBody(r.Method) {
		h.Set("Content-Type", jsonContentType)
	}
	return h
}

func carriesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func isWrite(method string) bool {
	return carriesBody(method) || method == http.MethodDelete
}
