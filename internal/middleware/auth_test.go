package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xelth-com/centerhub/internal/auth"
)

type stubValidator map[string]auth.Principal

func (s stubValidator) Validate(_ context.Context, token string) (auth.Principal, error) {
	switch token {
	case "revoked":
		return auth.Principal{}, auth.ErrTokenRevoked
	case "broken":
		return auth.Principal{}, context.DeadlineExceeded
	}
	p, ok := s[token]
	if !ok {
		return auth.Principal{}, auth.ErrInvalidToken
	}
	return p, nil
}

var validator = stubValidator{
	"center": {Role: auth.RoleCenter, CenterID: "riyadh"},
	"admin":  {Role: auth.RoleAdmin, UserID: "admin"},
}

func echoCenter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := auth.PrincipalFrom(r.Context())
		w.Write([]byte(p.CenterID + "|" + string(p.Role)))
	})
}

func do(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAuth(t *testing.T) {
	h := Auth(validator)(echoCenter())

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"malformed", "Token center", http.StatusUnauthorized, ""},
		{"invalid", "Bearer nope", http.StatusUnauthorized, ""},
		{"revoked", "Bearer revoked", http.StatusUnauthorized, ""},
		{"backend down", "Bearer broken", http.StatusServiceUnavailable, ""},
		{"center", "Bearer center", http.StatusOK, "riyadh|center"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(h, tt.header)
			assert.Equal(t, tt.status, rr.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rr.Body.String())
			}
		})
	}
}

func TestAuth_WebsocketQueryToken(t *testing.T) {
	h := Auth(validator)(echoCenter())

	req := httptest.NewRequest(http.MethodGet, "/ws/activities?token=admin", nil)
	req.Header.Set("Upgrade", "websocket")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// plain requests must use the header
	req = httptest.NewRequest(http.MethodGet, "/api/x?token=admin", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminOnly(t *testing.T) {
	h := Auth(validator)(AdminOnly(echoCenter()))

	assert.Equal(t, http.StatusForbidden, do(h, "Bearer center").Code)
	assert.Equal(t, http.StatusOK, do(h, "Bearer admin").Code)
	assert.Equal(t, http.StatusUnauthorized, do(AdminOnly(echoCenter()), "").Code)
}
