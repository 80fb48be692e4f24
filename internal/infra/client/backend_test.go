package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/infra/client"
	"github.com/boddenberg/logistica-web-go/internal/infra/observability"
	"github.com/boddenberg/logistica-web-go/internal/infra/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newClient(baseURL string) *client.BackendClient {
	logger := zap.NewNop()
	return client.NewBackendClient(http.DefaultClient, baseURL,
		resilience.NewCircuitBreaker("backend-client-test", logger), observability.NewMetrics(), logger)
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/logistics/rotas/", r.URL.Path)
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"count": 1, "results": [{"id": 4, "nome": "Zona Sul", "status": "EM_EXECUCAO", "capacidade_max": "1200.50"}]}`)
	}))
	defer srv.Close()

	var page domain.Page[domain.Route]
	err := newClient(srv.URL+"/api/").GetJSON(context.Background(), &domain.Session{AccessToken: "tok"},
		"/logistics/rotas/", url.Values{"limit": {"500"}}, &page)

	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, domain.RouteInProgress, page.Results[0].Status)
	assert.InDelta(t, 1200.5, float64(page.Results[0].Capacity), 0.001)
}

func TestSendJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"), "nil session sends no token")

		var creds domain.Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ana@example.com", creds.Email)

		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"access": "jwt-token"}`)
	}))
	defer srv.Close()

	var pair domain.TokenPair
	err := newClient(srv.URL).SendJSON(context.Background(), nil, http.MethodPost, "/accounts/token/",
		domain.Credentials{Email: "ana@example.com", Password: "x"}, &pair)

	require.NoError(t, err)
	assert.Equal(t, "jwt-token", pair.Access)
}

func TestNon2xxKeepsRawBody(t *testing.T) {
	const body = `{"code": "familias_incompativeis", "detail": "Famílias incompatíveis"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	err := newClient(srv.URL).SendJSON(context.Background(), nil, http.MethodPost, "/logistics/pedidos-admin/", map[string]any{}, nil)

	var upstream *domain.ErrUpstream
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadRequest, upstream.Status)
	assert.JSONEq(t, body, string(upstream.Body))
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	err := newClient(base).GetJSON(context.Background(), nil, "/accounts/me", nil, &domain.Me{})

	var ext *domain.ErrExternalService
	assert.ErrorAs(t, err, &ext)
}

func TestUpstreamErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	for i := 0; i < 10; i++ {
		err := c.GetJSON(context.Background(), nil, "/logistics/pedidos/", nil, nil)
		var upstream *domain.ErrUpstream
		require.ErrorAs(t, err, &upstream, "call %d", i)
	}
}
