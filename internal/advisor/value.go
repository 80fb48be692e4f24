package advisor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	Null Kind = iota
	String
	Number
	Bool
	Array
	Object
)

// Value is a decoded JSON document. Objects keep their members in document
// order so depth-first searches are deterministic.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	Arr  []Value
	Obj  []Member
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// maxDepth bounds nesting; json.Decoder.Token applies no limit of its own.
const maxDepth = 512

var errTooDeep = errors.New("advisor: JSON nested too deeply")

// Parse decodes a complete JSON document.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decode(dec, 0)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, errors.New("advisor: trailing data after JSON value")
	}
	return v, nil
}

func decode(dec *json.Decoder, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, errTooDeep
	}
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			arr := []Value{}
			for dec.More() {
				v, err := decode(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{Kind: Array, Arr: arr}, nil
		case '{':
			obj := []Member{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("advisor: object key is %T", kt)
				}
				v, err := decode(dec, depth+1)
				if err != nil {
					return Value{}, err
				}
				obj = append(obj, Member{Key: key, Value: v})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{Kind: Object, Obj: obj}, nil
		}
		return Value{}, fmt.Errorf("advisor: unexpected delimiter %q", t)
	case string:
		return Value{Kind: String, Str: t}, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: Number, Num: f}, nil
	case bool:
		return Value{Kind: Bool, Bool: t}, nil
	case nil:
		return Value{Kind: Null}, nil
	}
	return Value{}, fmt.Errorf("advisor: unexpected token %T", tok)
}

// Get returns the first member named key. Non-objects have no members.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != Object {
		return Value{}, false
	}
	for _, m := range v.Obj {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// GetAny returns the first present member among keys, in key order.
func (v Value) GetAny(keys ...string) (Value, bool) {
	for _, k := range keys {
		if f, ok := v.Get(k); ok {
			return f, true
		}
	}
	return Value{}, false
}

// Find walks the value depth-first, pre-order, and returns the first node
// matching pred.
func (v Value) Find(pred func(Value) bool) (Value, bool) {
	if pred(v) {
		return v, true
	}
	switch v.Kind {
	case Array:
		for _, e := range v.Arr {
			if found, ok := e.Find(pred); ok {
				return found, true
			}
		}
	case Object:
		for _, m := range v.Obj {
			if found, ok := m.Value.Find(pred); ok {
				return found, true
			}
		}
	}
	return Value{}, false
}

// FirstString returns the first non-blank string found depth-first.
func (v Value) FirstString() string {
	found, ok := v.Find(func(n Value) bool {
		return n.Kind == String && strings.TrimSpace(n.Str) != ""
	})
	if !ok {
		return ""
	}
	return strings.TrimSpace(found.Str)
}

// Contains reports whether any string at or below v contains token.
func (v Value) Contains(token string) bool {
	_, ok := v.Find(func(n Value) bool {
		return n.Kind == String && strings.Contains(n.Str, token)
	})
	return ok
}

// Scalar renders strings and numbers as text; other kinds yield "".
func (v Value) Scalar() string {
	switch v.Kind {
	case String:
		return strings.TrimSpace(v.Str)
	case Number:
		return formatNumber(v.Num)
	}
	return ""
}

// Float reads numbers and numeric strings.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case Number:
		return v.Num, true
	case String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
