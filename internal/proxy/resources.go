package proxy

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/logistica-web-go/internal/domain"
)

// Resource describes one proxied backend resource.
type Resource struct {
	// Name labels metrics and spans.
	Name string
	// Route is the chi pattern mounted under /api/proxy.
	Route string
	// ReadPath serves GET/HEAD; WritePath serves mutating verbs and falls back
	// to ReadPath when empty. "{id}" is replaced by the route's id parameter.
	ReadPath  string
	WritePath string
	Methods   []string
	// DefaultQuery is added to GET calls for keys the caller did not send.
	DefaultQuery url.Values
	// Binary relays the body as a download (PDF report).
	Binary bool
}

// Resources is the proxied surface exposed to the browser.
var Resources = []Resource{
	{Name: "me", Route: "/me", ReadPath: "/accounts/me",
		Methods: []string{http.MethodGet, http.MethodPut}},
	{Name: "signup", Route: "/signup", ReadPath: "/accounts/signup/",
		Methods: []string{http.MethodPost}},
	{Name: "usuarios", Route: "/usuarios", ReadPath: "/accounts/users/",
		Methods: []string{http.MethodGet, http.MethodPost}},
	{Name: "perfis", Route: "/perfis", ReadPath: "/accounts/profiles/",
		Methods: []string{http.MethodGet, http.MethodPost}},
	{Name: "perfis_telas", Route: "/perfis/telas", ReadPath: "/accounts/profiles/screens/",
		Methods: []string{http.MethodGet}},
	{Name: "perfil", Route: "/perfis/{id}", ReadPath: "/accounts/profiles/{id}/",
		Methods: []string{http.MethodGet, http.MethodPut, http.MethodDelete}},
	{Name: "produtos", Route: "/produtos", ReadPath: "/logistics/produtos/",
		Methods: []string{http.MethodGet, http.MethodPost}},
	{Name: "produto", Route: "/produtos/{id}", ReadPath: "/logistics/produtos/{id}/",
		Methods: []string{http.MethodGet, http.MethodPut, http.MethodDelete}},
	{Name: "familias", Route: "/familias", ReadPath: "/logistics/familias/",
		Methods: []string{http.MethodGet, http.MethodPost}},
	{Name: "familia", Route: "/familias/{id}", ReadPath: "/logistics/familias/{id}/",
		Methods: []string{http.MethodGet, http.MethodPut}},
	{Name: "restricoes_familias", Route: "/restricoes-familias", ReadPath: "/logistics/restricoes-familias/",
		Methods: []string{http.MethodGet, http.MethodPost}},
	{Name: "restricao_familia", Route: "/restricoes-familias/{id}", ReadPath: "/logistics/restricoes-familias/{id}/",
		Methods: []string{http.MethodDelete, http.MethodPatch}},
	{Name: "rotas", Route: "/rotas", ReadPath: "/logistics/rotas/", WritePath: "/logistics/rotas-admin/",
		Methods:      []string{http.MethodGet, http.MethodPost},
		DefaultQuery: url.Values{"limit": {"500"}}},
	{Name: "rotas_relatorio_pdf", Route: "/rotas/relatorio-pdf", ReadPath: "/logistics/rotas/relatorio-pdf/",
		Methods: []string{http.MethodPost}, Binary: true},
	{Name: "rota", Route: "/rotas/{id}", ReadPath: "/logistics/rotas/{id}/", WritePath: "/logistics/rotas-admin/{id}/",
		Methods: []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete}},
	{Name: "pedidos", Route: "/pedidos", ReadPath: "/logistics/pedidos/", WritePath: "/logistics/pedidos-admin/",
		Methods: []string{http.MethodGet, http.MethodPost}},
	{Name: "pedidos_dividir", Route: "/pedidos/dividir", ReadPath: "/logistics/pedidos-admin/dividir/",
		Methods: []string{http.MethodPost}},
	{Name: "pedido", Route: "/pedidos/{id}", ReadPath: "/logistics/pedidos/{id}/", WritePath: "/logistics/pedidos-admin/{id}/",
		Methods: []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete}},
	{Name: "dashboard_resumo", Route: "/dashboard/resumo", ReadPath: "/logistics/dashboard/resumo/",
		Methods: []string{http.MethodGet}},
	{Name: "otimizar_rota_genetico", Route: "/otimizar-rota-genetico", ReadPath: "/logistics/otimizar-rota-genetico/",
		Methods: []string{http.MethodPost}},
}

// LookupResource finds a resource by name.
func LookupResource(name string) (Resource, bool) {
	for _, r := range Resources {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}

// PathFor picks the backend path template for method.
func (r Resource) PathFor(method string) string {
	if isWrite(method) && r.WritePath != "" {
		return r.WritePath
	}
	return r.ReadPath
}

// Target builds the backend URL for a call. rawQuery is passed through
// verbatim unless a GET needs default parameters added.
func (r Resource) Target(baseURL, method, id, rawQuery string) (string, error) {
	tmpl := r.PathFor(method)
	if strings.Contains(tmpl, "{id}") {
		if id == "" {
			return "", &domain.ErrValidation{Field: "id", Message: "identificador obrigatório"}
		}
		tmpl = strings.ReplaceAll(tmpl, "{id}", url.PathEscape(id))
	}

	query := rawQuery
	if method == http.MethodGet && len(r.DefaultQuery) > 0 {
		q, err := url.ParseQuery(rawQuery)
		if err != nil {
			return "", &domain.ErrValidation{Field: "query", Message: "query string inválida"}
		}
		added := false
		for k, vs := range r.DefaultQuery {
			if _, ok := q[k]; !ok {
				q[k] = append([]string(nil), vs...)
				added = true
			}
		}
		if added {
			query = q.Encode()
		}
	}

	target := strings.TrimRight(baseURL, "/") + tmpl
	if query != "" {
		target += "?" + query
	}
	return target, nil
}
