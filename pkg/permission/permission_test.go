package permission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/async-race-service/pkg/auth"
)

type testAuth struct {
	roles []auth.Role
}

func (a testAuth) Principal() string   { return "test" }
func (a testAuth) Roles() []auth.Role { return a.roles }

func TestHasPermission(t *testing.T) {
	ope, err := NewOpaPermissionEvaluator()
	require.NoError(t, err)

	admin := testAuth{roles: []auth.Role{auth.RoleAdmin}}
	viewer := testAuth{roles: []auth.Role{auth.RoleViewer}}
	nobody := testAuth{}

	tests := []struct {
		name string
		a    auth.Authentication
		perm Permission
		want bool
	}{
		{"admin read", admin, PermissionRead, true},
		{"admin race control", admin, PermissionRaceControl, true},
		{"admin garage write", admin, PermissionGarageWrite, true},
		{"viewer read", viewer, PermissionRead, true},
		{"viewer race control", viewer, PermissionRaceControl, false},
		{"viewer garage write", viewer, PermissionGarageWrite, false},
		{"no roles", nobody, PermissionRead, false},
		{"unknown action", admin, Permission("drop-tables"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ope.HasPermission(context.Background(), tt.a, tt.perm))
		})
	}
}
