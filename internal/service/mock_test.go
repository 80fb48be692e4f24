package service_test

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/boddenberg/logistica-web-go/internal/domain"
)

// --- Mocks ---

// mockBackend answers from a route table keyed by "METHOD path".
// A reply is either a JSON body or an error.
type mockBackend struct {
	mu      sync.Mutex
	replies map[string]reply
	calls   []call
}

type reply struct {
	body string
	err  error
}

type call struct {
	key   string
	token string
	query url.Values
	in    any
}

func newMockBackend() *mockBackend {
	return &mockBackend{replies: map[string]reply{}}
}

func (m *mockBackend) on(key, body string) *mockBackend {
	m.replies[key] = reply{body: body}
	return m
}

func (m *mockBackend) fail(key string, err error) *mockBackend {
	m.replies[key] = reply{err: err}
	return m
}

func (m *mockBackend) GetJSON(_ context.Context, s *domain.Session, path string, query url.Values, out any) error {
	return m.answer(call{key: "GET " + path, token: token(s), query: query}, out)
}

func (m *mockBackend) SendJSON(_ context.Context, s *domain.Session, method, path string, in, out any) error {
	return m.answer(call{key: method + " " + path, token: token(s), in: in}, out)
}

func (m *mockBackend) answer(c call, out any) error {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	r, ok := m.replies[c.key]
	m.mu.Unlock()

	if !ok {
		return &domain.ErrUpstream{Service: "backend", Status: 404, Body: []byte(`{"detail":"not found"}`)}
	}
	if r.err != nil {
		return r.err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal([]byte(r.body), out)
}

func (m *mockBackend) called(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.key == key {
			n++
		}
	}
	return n
}

func (m *mockBackend) last(key string) (call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].key == key {
			return m.calls[i], true
		}
	}
	return call{}, false
}

func token(s *domain.Session) string {
	if s == nil {
		return ""
	}
	return s.AccessToken
}
