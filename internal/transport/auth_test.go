package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type testResolver struct {
	tokenToTenant map[string]string
	err           error
}

func (r *testResolver) ResolveTenant(_ context.Context, token string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	tenant, ok := r.tokenToTenant[token]
	if !ok {
		return "", ErrUnauthorized
	}
	return tenant, nil
}

func TestAuthMiddleware(t *testing.T) {
	resolver := &testResolver{tokenToTenant: map[string]string{"token": "tenant1"}}

	handler := AuthMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := TenantFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "tenant1", tenantID)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		resolver *testResolver
		header   string
		message  string
	}{
		{name: "resolver error", resolver: &testResolver{err: errors.New("invalid")}, header: "Bearer token", message: "invalid bearer token"},
		{name: "unknown token", resolver: &testResolver{}, header: "Bearer other", message: "invalid bearer token"},
		{name: "missing header", resolver: &testResolver{}, message: "missing bearer token"},
		{name: "basic scheme", resolver: &testResolver{}, header: "Basic dXNlcjpwYXNz", message: "missing bearer token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AuthMiddleware(tt.resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			require.Equal(t, "unauthorized", body.Error.Code)
			require.Equal(t, tt.message, body.Error.Message)
		})
	}
}

func TestStaticTenant(t *testing.T) {
	handler := StaticTenant("default")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := TenantFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "default", tenantID)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
