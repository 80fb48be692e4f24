package domain

import "strings"

// ScreenID names an admin area of the application.
type ScreenID string

const (
	ScreenInicio   ScreenID = "inicio"
	ScreenRotas    ScreenID = "rotas"
	ScreenPedidos  ScreenID = "pedidos"
	ScreenProdutos ScreenID = "produtos"
	ScreenUsuarios ScreenID = "usuarios"
)

const (
	HomePath        = "/inicio"
	DefaultHomePath = "/inicio/padrao"
	LoginPath       = "/"
)

// Screen is a gated area: its canonical path and the path prefixes it owns.
type Screen struct {
	ID       ScreenID
	Title    string
	Path     string
	Prefixes []string
}

var screens = []Screen{
	{ID: ScreenInicio, Title: "Início", Path: HomePath, Prefixes: []string{"/inicio"}},
	{ID: ScreenRotas, Title: "Rotas", Path: "/rotas", Prefixes: []string{"/rotas"}},
	{ID: ScreenPedidos, Title: "Pedidos", Path: "/pedidos", Prefixes: []string{"/pedidos"}},
	{ID: ScreenProdutos, Title: "Produtos", Path: "/produtos", Prefixes: []string{"/produtos", "/familias", "/restricoes-familias"}},
	{ID: ScreenUsuarios, Title: "Usuários", Path: "/usuarios", Prefixes: []string{"/usuarios", "/perfis"}},
}

// Screens returns the static screen table.
func Screens() []Screen {
	out := make([]Screen, len(screens))
	copy(out, screens)
	return out
}

// LookupScreen finds a screen by id.
func LookupScreen(id ScreenID) (Screen, bool) {
	for _, s := range screens {
		if s.ID == id {
			return s, true
		}
	}
	return Screen{}, false
}

// ScreenForPath maps a request path to the screen that owns it.
// Matching is per path segment: "/perfis" owns "/perfis/3" but not "/perfil".
func ScreenForPath(path string) (Screen, bool) {
	for _, s := range screens {
		for _, prefix := range s.Prefixes {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return s, true
			}
		}
	}
	return Screen{}, false
}

// HomeFor returns the home variant a session lands on.
func HomeFor(s *Session) string {
	if s.IsDefaultProfile() {
		return DefaultHomePath
	}
	return HomePath
}
