package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/arbiter/pkg/api"
	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/config"
	"mercator-hq/arbiter/pkg/telemetry/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys() []config.APIKeyConfig {
	return []config.APIKeyConfig{
		{Name: "ops", Key: "sk-ops"},
		{Name: "acme-agent", Key: "sk-acme", Tenants: []string{"acme"}},
		{Name: "retired", Key: "sk-old", Disabled: true},
	}
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(testKeys())
	require.Equal(t, 3, v.Len())

	key, err := v.Validate("sk-acme")
	require.NoError(t, err)
	assert.Equal(t, "acme-agent", key.Name)
	assert.True(t, key.AllowsTenant("acme"))
	assert.False(t, key.AllowsTenant("globex"))
	assert.True(t, key.Restricted())

	_, err = v.Validate("sk-nope")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = v.Validate("")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = v.Validate("sk-old")
	assert.ErrorIs(t, err, ErrDisabledKey)

	v.Replace([]config.APIKeyConfig{{Name: "new", Key: "sk-new"}})
	_, err = v.Validate("sk-ops")
	assert.ErrorIs(t, err, ErrInvalidKey)
	key, err = v.Validate("sk-new")
	require.NoError(t, err)
	assert.True(t, key.AllowsTenant("anyone"))
	assert.False(t, key.Restricted())
}

func TestMiddleware(t *testing.T) {
	var seen *Key
	var principal string
	handler := Middleware(NewValidator(testKeys()), "X-API-Key", logging.Discard())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = KeyFromContext(r.Context())
			principal = logging.GetPrincipal(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

	tests := []struct {
		name    string
		headers map[string]string
		status  int
		key     string
	}{
		{name: "header", headers: map[string]string{"X-API-Key": "sk-ops"}, status: http.StatusNoContent, key: "ops"},
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer sk-acme"}, status: http.StatusNoContent, key: "acme-agent"},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "unknown", headers: map[string]string{"X-API-Key": "sk-guess"}, status: http.StatusUnauthorized},
		{name: "disabled", headers: map[string]string{"X-API-Key": "sk-old"}, status: http.StatusUnauthorized},
		{name: "basic scheme", headers: map[string]string{"Authorization": "Basic sk-ops"}, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, principal = nil, ""
			req := httptest.NewRequest(http.MethodPost, "/v1/decisions", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusUnauthorized {
				require.NotNil(t, seen)
				assert.Equal(t, tt.key, seen.Name)
				assert.Equal(t, tt.key, principal)
				return
			}
			assert.Nil(t, seen)
			assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
			var body api.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, api.CodeUnauthorized, body.Error.Code)
		})
	}
}

func TestCheckTenant(t *testing.T) {
	assert.NoError(t, CheckTenant(context.Background(), "acme"), "no key means auth is disabled")

	v := NewValidator(testKeys())
	restricted, err := v.Validate("sk-acme")
	require.NoError(t, err)
	ctx := context.WithValue(context.Background(), keyContextKey, restricted)

	assert.NoError(t, CheckTenant(ctx, "acme"))
	err = CheckTenant(ctx, "globex")
	var forbidden *apperrors.ForbiddenError
	require.True(t, errors.As(err, &forbidden))
	assert.Equal(t, "globex", forbidden.TenantID)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	status, _ := api.StatusFor(err)
	assert.Equal(t, http.StatusForbidden, status)
}
