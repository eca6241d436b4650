package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		header string
		want   []Role
	}{
		{"no header", "secret", "", []Role{RoleViewer}},
		{"admin", "secret", "Bearer secret", []Role{RoleAdmin}},
		{"wrong token", "secret", "Bearer other", []Role{RoleViewer}},
		{"no admin configured", "", "", []Role{RoleAdmin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			a := NewAuthenticator(WithAdminToken(tt.token)).Authenticate(r)
			assert.Equal(t, tt.want, a.Roles())
		})
	}
}

func TestContext(t *testing.T) {
	assert.Equal(t, "anonymous", FromContext(context.Background()).Principal())
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer x")
	a := NewAuthenticator(WithAdminToken("x")).Authenticate(r)
	ctx := AddToContext(context.Background(), a)
	assert.Equal(t, "admin", FromContext(ctx).Principal())
}

func TestAuthenticateWithTokenHash(t *testing.T) {
	a := NewAuthenticator(WithAdminTokenHash(
		"2BB80D537B1DA3E38BD30361AA855686BDE0EACD7162FEF6A25FE97BF527A25B"))
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer secret")
	assert.Equal(t, []Role{RoleAdmin}, a.Authenticate(r).Roles())
}
