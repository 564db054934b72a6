// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/aegis/internal/access"
	"github.com/taibuivan/aegis/internal/platform/sec"
	"github.com/taibuivan/aegis/internal/rbac"
	"github.com/taibuivan/aegis/internal/users/auth"
)

type fixture struct {
	controller *access.Controller
	users      *auth.MemoryUserRepository
	rbac       *rbac.Service
}

// newFixture wires a controller over in-memory stores with a two-level
// hierarchy: admin (users:read, users:write) ← editor (posts:write).
func newFixture(t *testing.T) (*fixture, map[string]string) {
	t.Helper()
	ctx := context.Background()

	store := rbac.NewMemoryStore()
	rbacService := rbac.NewService(store, store.Permissions())

	admin, err := rbacService.CreateRole(ctx, rbac.CreateRoleInput{Name: "admin"})
	require.NoError(t, err)
	editor, err := rbacService.CreateRole(ctx, rbac.CreateRoleInput{Name: "editor", ParentID: &admin.ID})
	require.NoError(t, err)

	ids := map[string]string{"admin": admin.ID, "editor": editor.ID}
	for role, codes := range map[string][]string{
		"admin":  {"users:read", "users:write"},
		"editor": {"posts:write"},
	} {
		var permissionIDs []string
		for _, code := range codes {
			permission, err := rbacService.CreatePermission(ctx, rbac.CreatePermissionInput{Code: code})
			require.NoError(t, err)
			permissionIDs = append(permissionIDs, permission.ID)
		}
		_, err := rbacService.AssignPermissions(ctx, ids[role], permissionIDs)
		require.NoError(t, err)
	}

	users := auth.NewMemoryUserRepository()
	return &fixture{
		controller: access.NewController(users, rbacService),
		users:      users,
		rbac:       rbacService,
	}, ids
}

// seedUser creates an active account attached to the given role.
func seedUser(t *testing.T, f *fixture, id string, roleID *string) {
	t.Helper()
	require.NoError(t, f.users.Create(context.Background(), &auth.User{
		ID:       id,
		Username: "user-" + id,
		Email:    id + "@example.com",
		RoleID:   roleID,
		Status:   auth.StatusActive,
	}))
}

func claimsFor(subject string) *sec.Claims {
	return &sec.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject, ID: "jti-" + subject},
		TokenType:        sec.TokenAccess,
	}
}

/*
TestController_AuthorizeAll verifies the composed decision: inherited grants
count, and one missing permission denies the whole set.
*/
func TestController_AuthorizeAll(t *testing.T) {
	f, ids := newFixture(t)
	ctx := context.Background()

	editorRole := ids["editor"]
	seedUser(t, f, "u-editor", &editorRole)

	// Direct grant.
	require.NoError(t, f.controller.AuthorizeAll(ctx, claimsFor("u-editor"), "posts:write"))

	// Inherited from the parent role.
	require.NoError(t, f.controller.AuthorizeAll(ctx, claimsFor("u-editor"), "users:read"))

	// Full set, mixed direct and inherited.
	require.NoError(t, f.controller.AuthorizeAll(ctx, claimsFor("u-editor"), "posts:write", "users:read", "users:write"))

	// One unknown permission denies everything.
	err := f.controller.AuthorizeAll(ctx, claimsFor("u-editor"), "posts:write", "billing:admin")
	assert.Error(t, err)

	// Empty required set only demands an authenticated active account.
	require.NoError(t, f.controller.AuthorizeAll(ctx, claimsFor("u-editor")))
}

/*
TestController_AuthorizeAny verifies the at-least-one predicate.
*/
func TestController_AuthorizeAny(t *testing.T) {
	f, ids := newFixture(t)
	ctx := context.Background()

	editorRole := ids["editor"]
	seedUser(t, f, "u-editor", &editorRole)

	require.NoError(t, f.controller.AuthorizeAny(ctx, claimsFor("u-editor"), "billing:admin", "posts:write"))
	assert.Error(t, f.controller.AuthorizeAny(ctx, claimsFor("u-editor"), "billing:admin", "billing:read"))
	require.NoError(t, f.controller.AuthorizeAny(ctx, claimsFor("u-editor")))
}

/*
TestController_Rejections covers the authentication-side failures: anonymous
callers, unknown subjects, inactive accounts, and role-less users.
*/
func TestController_Rejections(t *testing.T) {
	f, ids := newFixture(t)
	ctx := context.Background()

	// Anonymous.
	assert.Error(t, f.controller.AuthorizeAll(ctx, nil, "posts:write"))

	// Token subject without a backing account.
	assert.Error(t, f.controller.AuthorizeAll(ctx, claimsFor("ghost"), "posts:write"))

	// Suspended account with a perfectly good role.
	adminRole := ids["admin"]
	seedUser(t, f, "u-frozen", &adminRole)
	require.NoError(t, f.users.UpdateStatus(ctx, "u-frozen", auth.StatusSuspended))
	assert.Error(t, f.controller.AuthorizeAll(ctx, claimsFor("u-frozen"), "users:read"))

	// No role: authenticated, but every permission check fails.
	seedUser(t, f, "u-bare", nil)
	require.NoError(t, f.controller.AuthorizeAll(ctx, claimsFor("u-bare")))
	assert.Error(t, f.controller.AuthorizeAll(ctx, claimsFor("u-bare"), "posts:write"))
	assert.Error(t, f.controller.AuthorizeAny(ctx, claimsFor("u-bare"), "posts:write"))
}
