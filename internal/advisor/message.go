package advisor

import "strings"

var messageKeys = map[string]bool{
	"detail":           true,
	"non_field_errors": true,
	"message":          true,
	"error":            true,
}

// Message extracts a human-readable message from a backend error body.
// "detail" wins; otherwise the first string found depth-first is used, and
// field errors are prefixed with the field name ("nome: campo obrigatório").
// Bodies that are not JSON (proxy error pages) yield "", meaning "no message".
func Message(body []byte) string {
	root, err := Parse(body)
	if err != nil {
		return ""
	}
	if f, ok := root.Get("detail"); ok {
		if s := f.FirstString(); s != "" {
			return s
		}
	}
	return fieldMessage(root)
}

func fieldMessage(v Value) string {
	switch v.Kind {
	case String:
		return strings.TrimSpace(v.Str)
	case Array:
		for _, e := range v.Arr {
			if s := fieldMessage(e); s != "" {
				return s
			}
		}
	case Object:
		for _, m := range v.Obj {
			s := m.Value.FirstString()
			if s == "" {
				continue
			}
			if messageKeys[m.Key] {
				return s
			}
			return m.Key + ": " + s
		}
	}
	return ""
}
