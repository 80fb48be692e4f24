package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/service"
	"github.com/boddenberg/logistica-web-go/internal/session"
	"github.com/boddenberg/logistica-web-go/internal/web"

	"go.uber.org/zap"
)

// orderFormRows is how many item rows the new-order form offers.
const orderFormRows = 6

var loginErrors = map[string]string{
	"credenciais":  "E-mail ou senha inválidos.",
	"campos":       "Informe e-mail e senha.",
	"indisponivel": "Serviço de autenticação indisponível. Tente novamente.",
	"sessao":       "Sua sessão expirou. Entre novamente.",
}

type pageEnv struct {
	pages    *web.Pages
	sessions *session.Manager
	logger   *zap.Logger
}

type homeData struct {
	Dashboard *domain.Dashboard
	Simple    bool
}

type orderFormData struct {
	Draft      *domain.OrderDraft
	Rows       []domain.DraftItem
	Products   []domain.Product
	Suggestion *domain.SplitSuggestion
	Payload    string
}

func (e *pageEnv) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any, errMsg string) {
	sess := session.FromContext(r.Context())
	pd := web.PageData{
		Title:   title,
		Session: sess,
		Nav:     web.Nav(sess, r.URL.Path),
		Notice:  notice(r.URL.Query()),
		Error:   errMsg,
		Data:    data,
	}
	if err := e.pages.Render(w, status, page, pd); err != nil {
		e.logger.Error("page render failed", zap.String("page", page), zap.Error(err))
		http.Error(w, "template render failed", http.StatusInternalServerError)
	}
}

// loadFailed handles a backend failure behind a page. An expired backend
// token sends the user back to sign in; anything else is shown on the page
// with the backend's status and message.
func (e *pageEnv) loadFailed(w http.ResponseWriter, r *http.Request, page, title string, data any, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusUnauthorized {
		e.sessions.Clear(w)
		http.Redirect(w, r, domain.LoginPath+"?erro=sessao", http.StatusSeeOther)
		return
	}
	e.logger.Warn("page data load failed", zap.String("page", page), zap.Int("status", status), zap.Error(err))
	e.render(w, r, status, page, title, data, msg)
}

func notice(q url.Values) string {
	switch {
	case q.Get("acesso") == "negado":
		return "Você não tem acesso a essa tela."
	case q.Get("criado") != "":
		return "Pedido #" + q.Get("criado") + " cadastrado."
	}
	return ""
}

// ============================================================
// Login — GET / and POST /
// ============================================================

func loginPageHandler(env *pageEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess := session.FromContext(r.Context()); sess != nil {
			http.Redirect(w, r, domain.HomeFor(sess), http.StatusFound)
			return
		}
		data := web.PageData{Title: "Entrar", Error: loginErrors[r.URL.Query().Get("erro")]}
		if err := env.pages.Render(w, http.StatusOK, web.PageLogin, data); err != nil {
			env.logger.Error("login render failed", zap.Error(err))
			http.Error(w, "template render failed", http.StatusInternalServerError)
		}
	}
}

func loginFormHandler(authSvc *service.AuthService, env *pageEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /")
		defer span.End()

		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, "/?erro=campos", http.StatusSeeOther)
			return
		}

		sess, err := authSvc.SignIn(ctx, domain.Credentials{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		})
		if err != nil {
			var validation *domain.ErrValidation
			var unauthorized *domain.ErrUnauthorized
			code := "indisponivel"
			switch {
			case errors.As(err, &validation):
				code = "campos"
			case errors.As(err, &unauthorized):
				code = "credenciais"
			default:
				env.logger.Error("sign-in failed", zap.Error(err))
			}
			http.Redirect(w, r, "/?erro="+code, http.StatusSeeOther)
			return
		}

		if err := env.sessions.Issue(w, sess); err != nil {
			env.logger.Error("session issue failed", zap.Error(err))
			http.Redirect(w, r, "/?erro=indisponivel", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, domain.HomeFor(sess), http.StatusSeeOther)
	}
}

// ============================================================
// Sign-out — POST /sair
// ============================================================

func signOutPageHandler(env *pageEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env.sessions.Clear(w)
		http.Redirect(w, r, domain.LoginPath, http.StatusSeeOther)
	}
}

// ============================================================
// Home — GET /inicio and GET /inicio/padrao
// ============================================================

func homePageHandler(dashboard *service.DashboardService, env *pageEnv, simple bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET "+r.URL.Path)
		defer span.End()

		d, err := dashboard.Summary(ctx, session.FromContext(ctx))
		if err != nil {
			env.loadFailed(w, r, web.PageInicio, "Início", homeData{Simple: simple}, err)
			return
		}
		env.render(w, r, http.StatusOK, web.PageInicio, "Início", homeData{Dashboard: d, Simple: simple}, "")
	}
}

// ============================================================
// Lists — GET /rotas, /pedidos, /produtos, /usuarios
// ============================================================

func listPageHandler[T any](env *pageEnv, page, title string, load func(context.Context, *domain.Session) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET "+r.URL.Path)
		defer span.End()

		items, err := load(ctx, session.FromContext(ctx))
		if err != nil {
			env.loadFailed(w, r, page, title, []T(nil), err)
			return
		}
		env.render(w, r, http.StatusOK, page, title, items, "")
	}
}

// ============================================================
// Profile — GET /perfil
// ============================================================

func profilePageHandler(catalog *service.Catalog, env *pageEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /perfil")
		defer span.End()

		me, err := catalog.Me(ctx, session.FromContext(ctx))
		if err != nil {
			env.loadFailed(w, r, web.PagePerfil, "Meu perfil", (*domain.Me)(nil), err)
			return
		}
		env.render(w, r, http.StatusOK, web.PagePerfil, "Meu perfil", me, "")
	}
}

// ============================================================
// New order — GET/POST /pedidos/novo
// ============================================================

func orderFormPageHandler(catalog *service.Catalog, env *pageEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /pedidos/novo")
		defer span.End()

		data := orderFormData{Draft: &domain.OrderDraft{}, Rows: formRows(nil)}
		products, err := catalog.Products(ctx, session.FromContext(ctx))
		if err != nil {
			env.loadFailed(w, r, web.PagePedidoNew, "Novo pedido", data, err)
			return
		}
		data.Products = products
		env.render(w, r, http.StatusOK, web.PagePedidoNew, "Novo pedido", data, "")
	}
}

func orderCreatePageHandler(orders *service.OrderService, catalog *service.Catalog, env *pageEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /pedidos/novo")
		defer span.End()
		sess := session.FromContext(ctx)

		draft, err := parseOrderForm(w, r)
		if err != nil {
			renderOrderForm(ctx, w, r, env, catalog, http.StatusBadRequest, orderFormData{Draft: draft}, err)
			return
		}

		res, err := orders.Create(ctx, sess, draft)
		switch {
		case err != nil:
			renderOrderForm(ctx, w, r, env, catalog, 0, orderFormData{Draft: draft}, err)
		case res.Order != nil:
			http.Redirect(w, r, "/pedidos?criado="+strconv.Itoa(res.Order.ID), http.StatusSeeOther)
		case res.Suggestion != nil:
			payload, _ := json.Marshal(draft)
			data := orderFormData{Draft: draft, Suggestion: res.Suggestion, Payload: string(payload)}
			renderOrderForm(ctx, w, r, env, catalog, http.StatusUnprocessableEntity, data, nil)
		default:
			msg := res.Rejection
			if msg == "" {
				msg = "O pedido foi recusado pelo servidor."
			}
			renderOrderForm(ctx, w, r, env, catalog, http.StatusUnprocessableEntity, orderFormData{Draft: draft},
				&domain.ErrValidation{Message: msg})
		}
	}
}

// ============================================================
// Split order — POST /pedidos/dividir
// ============================================================

func orderSplitPageHandler(orders *service.OrderService, catalog *service.Catalog, env *pageEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /pedidos/dividir")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var draft domain.OrderDraft
		if err := r.ParseForm(); err != nil || json.Unmarshal([]byte(r.PostFormValue("payload")), &draft) != nil {
			renderOrderForm(ctx, w, r, env, catalog, http.StatusBadRequest, orderFormData{Draft: &draft},
				&domain.ErrValidation{Message: "Pedido original não encontrado. Preencha o formulário novamente."})
			return
		}

		out, err := orders.Split(ctx, session.FromContext(ctx), &draft)
		if err != nil {
			renderOrderForm(ctx, w, r, env, catalog, 0, orderFormData{Draft: &draft}, err)
			return
		}
		env.render(w, r, http.StatusCreated, web.PageDividido, "Pedido dividido", out, "")
	}
}

// renderOrderForm re-renders the form with what the user typed. status 0
// means "derive it from err".
func renderOrderForm(ctx context.Context, w http.ResponseWriter, r *http.Request, env *pageEnv, catalog *service.Catalog, status int, data orderFormData, err error) {
	msg := ""
	if err != nil {
		var s int
		s, msg = errorStatus(err)
		if s == http.StatusUnauthorized {
			env.loadFailed(w, r, web.PagePedidoNew, "Novo pedido", data, err)
			return
		}
		if status == 0 {
			status = s
		}
	}
	if status == 0 {
		status = http.StatusOK
	}
	if data.Draft == nil {
		data.Draft = &domain.OrderDraft{}
	}
	data.Rows = formRows(data.Draft.Items)

	if products, perr := catalog.Products(ctx, session.FromContext(ctx)); perr == nil {
		data.Products = products
	} else {
		env.logger.Warn("order form: products unavailable", zap.Error(perr))
	}
	env.render(w, r, status, web.PagePedidoNew, "Novo pedido", data, msg)
}

func formRows(items []domain.DraftItem) []domain.DraftItem {
	rows := make([]domain.DraftItem, 0, max(orderFormRows, len(items)))
	rows = append(rows, items...)
	for len(rows) < orderFormRows {
		rows = append(rows, domain.DraftItem{})
	}
	return rows
}

// parseOrderForm reads the new-order form. Item rows are the parallel
// "produto" and "quantidade" lists; blank rows are skipped.
func parseOrderForm(w http.ResponseWriter, r *http.Request) (*domain.OrderDraft, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return &domain.OrderDraft{}, &domain.ErrValidation{Message: "Formulário inválido"}
	}
	f := r.PostForm

	draft := &domain.OrderDraft{
		NF:       strings.TrimSpace(f.Get("nf")),
		Customer: strings.TrimSpace(f.Get("cliente")),
		Address:  strings.TrimSpace(f.Get("endereco")),
		City:     strings.TrimSpace(f.Get("cidade")),
	}

	var err error
	if draft.Lat, err = optionalFloat(f.Get("latitude"), "latitude"); err != nil {
		return draft, err
	}
	if draft.Lng, err = optionalFloat(f.Get("longitude"), "longitude"); err != nil {
		return draft, err
	}

	products, quantities := f["produto"], f["quantidade"]
	for i, raw := range products {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.Atoi(raw)
		if err != nil {
			return draft, &domain.ErrValidation{Field: "produto", Message: "Produto inválido"}
		}
		item := domain.DraftItem{ProductID: id}
		if i < len(quantities) {
			q, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(quantities[i]), ",", "."), 64)
			if err != nil {
				return draft, &domain.ErrValidation{Field: "quantidade", Message: "Quantidade inválida"}
			}
			item.Quantity = q
		}
		draft.Items = append(draft.Items, item)
	}
	return draft, nil
}

func optionalFloat(raw, field string) (*float64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &domain.ErrValidation{Field: field, Message: "Coordenada inválida"}
	}
	return &v, nil
}
