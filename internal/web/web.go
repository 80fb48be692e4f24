// Package web holds the embedded page templates and stylesheet.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/boddenberg/logistica-web-go/internal/domain"
)

//go:embed templates/*.html assets/app.css
var files embed.FS

// Page names.
const (
	PageLogin     = "login"
	PageInicio    = "inicio"
	PageRotas     = "rotas"
	PagePedidos   = "pedidos"
	PagePedidoNew = "pedido_novo"
	PageDividido  = "pedido_dividido"
	PageProdutos  = "produtos"
	PageUsuarios  = "usuarios"
	PagePerfil    = "perfil"
)

var layoutPages = []string{
	PageInicio, PageRotas, PagePedidos, PagePedidoNew, PageDividido,
	PageProdutos, PageUsuarios, PagePerfil,
}

// NavItem is one entry of the side menu.
type NavItem struct {
	Title  string
	Path   string
	Active bool
}

// PageData is what every template receives. Data carries the page-specific
// payload.
type PageData struct {
	Title   string
	Session *domain.Session
	Nav     []NavItem
	Notice  string
	Error   string
	Data    any
}

// Pages renders the parsed templates.
type Pages struct {
	tmpl map[string]*template.Template
}

var funcs = template.FuncMap{
	"num": func(v any) string {
		switch n := v.(type) {
		case domain.FlexFloat:
			return formatNumber(float64(n))
		case float64:
			return formatNumber(n)
		case *float64:
			if n == nil {
				return ""
			}
			return formatNumber(*n)
		case int:
			return strconv.Itoa(n)
		}
		return fmt.Sprint(v)
	},
	"delivery":    func(o domain.Order) string { return o.DeliveryStatus() },
	"statusLabel": func(s domain.RouteStatus) string { return s.Label() },
	"join":        strings.Join,
}

// NewPages parses every template. It panics on a malformed template, which
// can only happen at build time.
func NewPages() *Pages {
	p := &Pages{tmpl: make(map[string]*template.Template, len(layoutPages)+1)}
	p.tmpl[PageLogin] = template.Must(template.New("login.html").Funcs(funcs).ParseFS(files, "templates/login.html"))
	for _, name := range layoutPages {
		p.tmpl[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(files, "templates/layout.html", "templates/"+name+".html"))
	}
	return p
}

// Render executes page into a buffer first so a template error never leaves
// a half-written response.
func (p *Pages) Render(w http.ResponseWriter, status int, page string, data PageData) error {
	tmpl, ok := p.tmpl[page]
	if !ok {
		return fmt.Errorf("web: unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("web: render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// Nav builds the menu for s: the home variant plus every permitted screen.
func Nav(s *domain.Session, current string) []NavItem {
	owner, _ := domain.ScreenForPath(current)
	var items []NavItem
	for _, screen := range domain.Screens() {
		path := screen.Path
		if screen.ID == domain.ScreenInicio {
			path = domain.HomeFor(s)
		} else if !s.Permits(screen.ID) {
			continue
		}
		items = append(items, NavItem{
			Title:  screen.Title,
			Path:   path,
			Active: owner.ID == screen.ID,
		})
	}
	return items
}

// StylesheetHandler serves the embedded stylesheet.
func StylesheetHandler(w http.ResponseWriter, r *http.Request) {
	data, err := files.ReadFile("assets/app.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
