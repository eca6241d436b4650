// Package auth resolves the caller of an API request.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/mpapenbr/async-race-service/pkg/utils"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

var ErrPermissionDenied = errors.New("permission denied")

type Authentication interface {
	Principal() string
	Roles() []Role
}

type authentication struct {
	principal string
	roles     []Role
}

func (a *authentication) Principal() string { return a.principal }
func (a *authentication) Roles() []Role     { return a.roles }

var (
	anonymous = &authentication{principal: "anonymous", roles: []Role{RoleViewer}}
	open      = &authentication{principal: "anonymous", roles: []Role{RoleAdmin}}
)

type (
	Option        func(*Authenticator)
	Authenticator struct {
		adminHash string
	}
)

// WithAdminToken sets the bearer token granting the admin role.
// Without a token every caller is admin.
func WithAdminToken(token string) Option {
	return func(a *Authenticator) {
		if token != "" {
			a.adminHash = utils.HashToken(token)
		}
	}
}

// WithAdminTokenHash is like WithAdminToken but takes the sha256 hex digest
// of the token, so the plain token does not have to be configured.
func WithAdminTokenHash(hash string) Option {
	return func(a *Authenticator) {
		a.adminHash = strings.ToLower(hash)
	}
}

func NewAuthenticator(opts ...Option) *Authenticator {
	ret := &Authenticator{}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Authenticate maps the request to an authentication. Unknown or missing
// tokens fall back to the viewer role.
func (a *Authenticator) Authenticate(r *http.Request) Authentication {
	if a.adminHash == "" {
		return open
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return anonymous
	}
	if subtle.ConstantTimeCompare([]byte(utils.HashToken(token)), []byte(a.adminHash)) == 1 {
		return &authentication{principal: "admin", roles: []Role{RoleAdmin}}
	}
	return anonymous
}

type authKey struct{}

func AddToContext(ctx context.Context, a Authentication) context.Context {
	return context.WithValue(ctx, authKey{}, a)
}

// FromContext returns the stored authentication or the anonymous viewer.
func FromContext(ctx context.Context) Authentication {
	if a, ok := ctx.Value(authKey{}).(Authentication); ok {
		return a
	}
	return anonymous
}
