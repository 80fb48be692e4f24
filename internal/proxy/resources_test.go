package proxy_test

import (
	"net/http"
	"testing"

	"github.com/boddenberg/logistica-web-go/internal/proxy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const backend = "http://backend.test/api"

func mustResource(t *testing.T, name string) proxy.Resource {
	t.Helper()
	res, ok := proxy.LookupResource(name)
	require.True(t, ok, "resource %s", name)
	return res
}

func TestTarget_RouteReadWriteSplit(t *testing.T) {
	rota := mustResource(t, "rota")

	read, err := rota.Target(backend, http.MethodGet, "12", "")
	require.NoError(t, err)
	assert.Equal(t, "http://backend.test/api/logistics/rotas/12/", read)

	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		write, err := rota.Target(backend, method, "12", "")
		require.NoError(t, err)
		assert.Equal(t, "http://backend.test/api/logistics/rotas-admin/12/", write, method)
		assert.NotEqual(t, read, write)
	}
}

func TestTarget_RouteCollectionDefaultLimit(t *testing.T) {
	rotas := mustResource(t, "rotas")

	got, err := rotas.Target(backend, http.MethodGet, "", "")
	require.NoError(t, err)
	assert.Equal(t, "http://backend.test/api/logistics/rotas/?limit=500", got)

	got, err = rotas.Target(backend, http.MethodGet, "", "status=PLANEJADA")
	require.NoError(t, err)
	assert.Equal(t, "http://backend.test/api/logistics/rotas/?limit=500&status=PLANEJADA", got)

	got, err = rotas.Target(backend, http.MethodGet, "", "limit=10&offset=20")
	require.NoError(t, err)
	assert.Equal(t, "http://backend.test/api/logistics/rotas/?limit=10&offset=20", got, "explicit limit passes through verbatim")

	got, err = rotas.Target(backend, http.MethodPost, "", "")
	require.NoError(t, err)
	assert.Equal(t, "http://backend.test/api/logistics/rotas-admin/", got, "writes get no default query")
}

func TestTarget_QueryPassthrough(t *testing.T) {
	resumo := mustResource(t, "dashboard_resumo")

	got, err := resumo.Target(backend+"/", http.MethodGet, "", "inicio=2026-01-01&fim=2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, "http://backend.test/api/logistics/dashboard/resumo/?inicio=2026-01-01&fim=2026-01-31", got)
}

func TestTarget_EscapesAndRequiresID(t *testing.T) {
	produto := mustResource(t, "produto")

	got, err := produto.Target(backend, http.MethodGet, "a/b", "")
	require.NoError(t, err)
	assert.Equal(t, "http://backend.test/api/logistics/produtos/a%2Fb/", got)

	_, err = produto.Target(backend, http.MethodGet, "", "")
	assert.Error(t, err)
}

func TestResources_TableShape(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range proxy.Resources {
		assert.False(t, seen[r.Route], "duplicate route %s", r.Route)
		seen[r.Route] = true
		assert.NotEmpty(t, r.Methods, r.Name)
		assert.NotEmpty(t, r.ReadPath, r.Name)
	}

	pdf := mustResource(t, "rotas_relatorio_pdf")
	assert.True(t, pdf.Binary)
	assert.Equal(t, "/logistics/pedidos-admin/dividir/", mustResource(t, "pedidos_dividir").PathFor(http.MethodPost))
	assert.Equal(t, "/accounts/me", mustResource(t, "me").PathFor(http.MethodPut))
}
