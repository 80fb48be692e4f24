// Package advisor reads backend rejection bodies. It recognizes the
// "incompatible families" shape returned when an order mixes products that
// cannot share a truck and turns it into a split suggestion for the user.
//
// Everything here is pure inspection: no backend calls, no mutation.
package advisor

import (
	"fmt"
	"strings"

	"github.com/boddenberg/logistica-web-go/internal/domain"
)

// IncompatibleFamilies is the error code the backend uses for mixed-family orders.
const IncompatibleFamilies = "familias_incompativeis"

// DefaultSplitMessage is shown when the rejection carries no readable message.
const DefaultSplitMessage = "Os produtos deste pedido pertencem a famílias incompatíveis e não podem seguir no mesmo veículo."

// Inspect looks for a split suggestion in a failed order-creation body.
// It returns nil when the body is not JSON or carries no incompatibility marker.
func Inspect(body []byte) *domain.SplitSuggestion {
	root, err := Parse(body)
	if err != nil {
		return nil
	}

	marker, ok := root.Find(isMarker)
	if !ok {
		return nil
	}

	return &domain.SplitSuggestion{
		Message:   splitMessage(root, marker),
		Conflicts: conflicts(lookup(root, marker, "conflitos")),
		Groups:    groups(lookup(root, marker, "grupos")),
	}
}

func isMarker(v Value) bool {
	if v.Kind != Object {
		return false
	}
	for _, key := range []string{"code", "error"} {
		if f, ok := v.Get(key); ok && f.Contains(IncompatibleFamilies) {
			return true
		}
	}
	if f, ok := v.Get("pode_dividir"); ok && f.Kind == Bool && f.Bool {
		return true
	}
	return false
}

func splitMessage(root, marker Value) string {
	candidates := []struct {
		from Value
		key  string
	}{
		{marker, "detail"},
		{root, "detail"},
		{marker, "message"},
		{marker, "non_field_errors"},
	}
	for _, c := range candidates {
		if f, ok := c.from.Get(c.key); ok {
			if s := f.FirstString(); s != "" {
				return s
			}
		}
	}
	return DefaultSplitMessage
}

// lookup prefers the marker's own field and falls back to the first object
// anywhere in the document carrying it.
func lookup(root, marker Value, key string) Value {
	if f, ok := marker.Get(key); ok {
		return f
	}
	holder, ok := root.Find(func(n Value) bool {
		_, has := n.Get(key)
		return has
	})
	if !ok {
		return Value{}
	}
	f, _ := holder.Get(key)
	return f
}

func conflicts(v Value) []string {
	out := []string{}
	switch v.Kind {
	case String:
		if s := strings.TrimSpace(v.Str); s != "" {
			out = append(out, s)
		}
	case Array:
		for _, e := range v.Arr {
			if s := conflictLabel(e); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func conflictLabel(v Value) string {
	switch v.Kind {
	case String:
		return strings.TrimSpace(v.Str)
	case Array, Object:
		var parts []string
		if v.Kind == Array {
			for _, e := range v.Arr {
				if s := e.Scalar(); s != "" {
					parts = append(parts, s)
				}
			}
		} else {
			for _, m := range v.Obj {
				if s := m.Value.Scalar(); s != "" {
					parts = append(parts, s)
				}
			}
		}
		return strings.Join(parts, " x ")
	}
	return ""
}

func groups(v Value) []domain.SplitGroup {
	out := []domain.SplitGroup{}
	if v.Kind != Array {
		return out
	}
	for i, e := range v.Arr {
		if e.Kind != Object {
			continue
		}
		g := domain.SplitGroup{Index: i + 1}
		if f, ok := e.GetAny("indice", "index"); ok {
			if n, ok := f.Float(); ok {
				g.Index = int(n)
			}
		}
		if f, ok := e.GetAny("titulo", "title"); ok {
			g.Title = f.Scalar()
		}
		if g.Title == "" {
			g.Title = fmt.Sprintf("Grupo %d", g.Index)
		}
		if f, ok := e.GetAny("familias", "families"); ok {
			g.Families = names(f)
		}
		if f, ok := e.GetAny("itens", "items"); ok {
			g.Items = items(f)
		}
		out = append(out, g)
	}
	return out
}

func names(v Value) []string {
	out := []string{}
	collect := func(e Value) {
		if s := e.Scalar(); s != "" {
			out = append(out, s)
			return
		}
		if f, ok := e.GetAny("nome", "name"); ok {
			if s := f.Scalar(); s != "" {
				out = append(out, s)
			}
		}
	}
	if v.Kind == Array {
		for _, e := range v.Arr {
			collect(e)
		}
		return out
	}
	collect(v)
	return out
}

func items(v Value) []domain.SplitItem {
	out := []domain.SplitItem{}
	if v.Kind != Array {
		return out
	}
	for _, e := range v.Arr {
		if e.Kind != Object {
			continue
		}
		var it domain.SplitItem
		if f, ok := e.GetAny("produto_nome", "nome", "descricao", "produto", "produto_id"); ok {
			it.Product = f.Scalar()
		}
		if f, ok := e.GetAny("quantidade", "quantity"); ok {
			it.Quantity, _ = f.Float()
		}
		out = append(out, it)
	}
	return out
}
