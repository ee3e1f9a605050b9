package ratelimit_test

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/url-shortener/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMultipartNotSupported = errors.New("multipart not supported in mock")

// mockHumaContext implements huma.Context for testing scope resolution.
type mockHumaContext struct {
	method    string
	operation *huma.Operation
}

func (m *mockHumaContext) Operation() *huma.Operation {
	return m.operation
}
func (m *mockHumaContext) Context() context.Context          { return context.Background() }
func (m *mockHumaContext) TLS() *tls.ConnectionState         { return nil }
func (m *mockHumaContext) Version() huma.ProtoVersion        { return huma.ProtoVersion{} }
func (m *mockHumaContext) Method() string                    { return m.method }
func (m *mockHumaContext) Host() string                      { return "" }
func (m *mockHumaContext) RemoteAddr() string                { return "" }
func (m *mockHumaContext) URL() url.URL                      { return url.URL{} }
func (m *mockHumaContext) Param(_ string) string             { return "" }
func (m *mockHumaContext) Query(_ string) string             { return "" }
func (m *mockHumaContext) Header(_ string) string            { return "" }
func (m *mockHumaContext) EachHeader(_ func(string, string)) {}
func (m *mockHumaContext) BodyReader() io.Reader             { return nil }
func (m *mockHumaContext) GetMultipartForm() (*multipart.Form, error) {
	return nil, errMultipartNotSupported
}
func (m *mockHumaContext) SetReadDeadline(_ time.Time) error { return nil }
func (m *mockHumaContext) SetStatus(_ int)                   {}
func (m *mockHumaContext) Status() int                       { return 0 }
func (m *mockHumaContext) AppendHeader(_, _ string)          {}
func (m *mockHumaContext) SetHeader(_, _ string)             {}
func (m *mockHumaContext) BodyWriter() io.Writer             { return nil }

func operationWith(cfg any) *huma.Operation {
	return &huma.Operation{Metadata: map[string]any{ratelimit.MetadataKey: cfg}}
}

func TestMethodScopeResolver(t *testing.T) {
	resolver := ratelimit.NewMethodScopeResolver()

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		assert.Equal(t, []ratelimit.Scope{ratelimit.ScopeGlobal, ratelimit.ScopeRead},
			resolver.Resolve(&mockHumaContext{method: method}), method)
	}

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		assert.Equal(t, []ratelimit.Scope{ratelimit.ScopeGlobal, ratelimit.ScopeWrite},
			resolver.Resolve(&mockHumaContext{method: method}), method)
	}
}

func TestOperationScopeResolver(t *testing.T) {
	resolver := ratelimit.NewOperationScopeResolver()

	tests := []struct {
		name      string
		method    string
		operation *huma.Operation
		want      []ratelimit.Scope
	}{
		{
			name:   "no operation uses method",
			method: http.MethodGet,
			want:   []ratelimit.Scope{ratelimit.ScopeGlobal, ratelimit.ScopeRead},
		},
		{
			name:      "unrelated metadata uses method",
			method:    http.MethodPost,
			operation: &huma.Operation{Metadata: map[string]any{"other": "value"}},
			want:      []ratelimit.Scope{ratelimit.ScopeGlobal, ratelimit.ScopeWrite},
		},
		{
			name:      "account endpoint counts against auth",
			method:    http.MethodPost,
			operation: operationWith(ratelimit.EndpointConfig{Scope: ratelimit.ScopeAuth}),
			want:      []ratelimit.Scope{ratelimit.ScopeGlobal, ratelimit.ScopeAuth},
		},
		{
			name:   "route limits without scope use method",
			method: http.MethodPost,
			operation: operationWith(ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{{Window: time.Minute, Max: 10}},
			}),
			want: []ratelimit.Scope{ratelimit.ScopeGlobal, ratelimit.ScopeWrite},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &mockHumaContext{method: tt.method, operation: tt.operation}

			assert.Equal(t, tt.want, resolver.Resolve(ctx))
		})
	}
}

func TestGetEndpointConfig(t *testing.T) {
	t.Run("missing or mistyped config", func(t *testing.T) {
		assert.Nil(t, ratelimit.GetEndpointConfig(&mockHumaContext{}))
		assert.Nil(t, ratelimit.GetEndpointConfig(&mockHumaContext{operation: &huma.Operation{}}))
		assert.Nil(t, ratelimit.GetEndpointConfig(&mockHumaContext{operation: operationWith("wrong type")}))
	})

	t.Run("returns config", func(t *testing.T) {
		cfg := ratelimit.GetEndpointConfig(&mockHumaContext{
			operation: operationWith(ratelimit.EndpointConfig{Disabled: true}),
		})

		require.NotNil(t, cfg)
		assert.True(t, cfg.Disabled)
	})
}
