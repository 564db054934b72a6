// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/aegis/internal/rbac"
	"github.com/taibuivan/aegis/pkg/pointer"
)

func newTestService() *rbac.Service {
	store := rbac.NewMemoryStore()
	return rbac.NewService(store, store.Permissions())
}

// mustCreateRole is a test helper creating a role under an optional parent.
func mustCreateRole(t *testing.T, service *rbac.Service, name string, parentID *string) *rbac.Role {
	t.Helper()
	role, err := service.CreateRole(context.Background(), rbac.CreateRoleInput{
		Name:     name,
		ParentID: parentID,
	})
	require.NoError(t, err)
	return role
}

// mustCreatePermission is a test helper creating a catalog permission.
func mustCreatePermission(t *testing.T, service *rbac.Service, code string) *rbac.Permission {
	t.Helper()
	permission, err := service.CreatePermission(context.Background(), rbac.CreatePermissionInput{Code: code})
	require.NoError(t, err)
	return permission
}

// grant assigns the full direct permission set of a role.
func grant(t *testing.T, service *rbac.Service, roleID string, permissionIDs ...string) {
	t.Helper()
	_, err := service.AssignPermissions(context.Background(), roleID, permissionIDs)
	require.NoError(t, err)
}

/*
TestService_CreateRole verifies level derivation at creation: roots start at
level 0 and children sit one below their parent.
*/
func TestService_CreateRole(t *testing.T) {
	service := newTestService()

	admin := mustCreateRole(t, service, "admin", nil)
	assert.Equal(t, 0, admin.Level)
	assert.Nil(t, admin.ParentID)

	manager := mustCreateRole(t, service, "manager", &admin.ID)
	assert.Equal(t, 1, manager.Level)
	require.NotNil(t, manager.ParentID)
	assert.Equal(t, admin.ID, *manager.ParentID)

	clerk := mustCreateRole(t, service, "clerk", &manager.ID)
	assert.Equal(t, 2, clerk.Level)
}

/*
TestService_CreateRole_Failures covers duplicate names, missing parents, and
validation rejections.
*/
func TestService_CreateRole_Failures(t *testing.T) {
	service := newTestService()
	mustCreateRole(t, service, "admin", nil)

	_, err := service.CreateRole(context.Background(), rbac.CreateRoleInput{Name: "admin"})
	assert.ErrorIs(t, err, rbac.ErrDuplicateName)

	bogus := "01900000-0000-7000-8000-000000000000"
	_, err = service.CreateRole(context.Background(), rbac.CreateRoleInput{Name: "orphan", ParentID: &bogus})
	assert.ErrorIs(t, err, rbac.ErrParentNotFound)

	_, err = service.CreateRole(context.Background(), rbac.CreateRoleInput{Name: "   "})
	assert.Error(t, err)
}

/*
TestService_SetParent_CyclePrevention verifies that a role can never become
its own ancestor, directly or transitively, and that a rejected move leaves
the hierarchy untouched.
*/
func TestService_SetParent_CyclePrevention(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	admin := mustCreateRole(t, service, "admin", nil)
	manager := mustCreateRole(t, service, "manager", &admin.ID)
	clerk := mustCreateRole(t, service, "clerk", &manager.ID)

	// Self-parenting.
	_, err := service.SetParent(ctx, admin.ID, &admin.ID)
	assert.ErrorIs(t, err, rbac.ErrCycleDetected)

	// Direct child as parent.
	_, err = service.SetParent(ctx, admin.ID, &manager.ID)
	assert.ErrorIs(t, err, rbac.ErrCycleDetected)

	// Transitive descendant as parent.
	_, err = service.SetParent(ctx, admin.ID, &clerk.ID)
	assert.ErrorIs(t, err, rbac.ErrCycleDetected)

	// Hierarchy must be unchanged after the rejections.
	issues, err := service.ValidateIntegrity(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)

	reloaded, err := service.GetRole(ctx, admin.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.ParentID)
	assert.Equal(t, 0, reloaded.Level)
}

/*
TestService_SetParent_LevelCascade verifies that moving a subtree recomputes
the level of every descendant.
*/
func TestService_SetParent_LevelCascade(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	root := mustCreateRole(t, service, "root", nil)
	middle := mustCreateRole(t, service, "middle", &root.ID)
	leaf := mustCreateRole(t, service, "leaf", &middle.ID)
	other := mustCreateRole(t, service, "other", nil)

	// Move the middle subtree under the other root.
	moved, err := service.SetParent(ctx, middle.ID, &other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, moved.Level)

	reloadedLeaf, err := service.GetRole(ctx, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloadedLeaf.Level)

	// Detach to root: the whole subtree shifts up.
	moved, err = service.SetParent(ctx, middle.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, moved.Level)

	reloadedLeaf, err = service.GetRole(ctx, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloadedLeaf.Level)

	issues, err := service.ValidateIntegrity(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

/*
TestService_EffectivePermissions verifies the union of direct and inherited
grants, including deduplication across the chain.
*/
func TestService_EffectivePermissions(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	admin := mustCreateRole(t, service, "admin", nil)
	manager := mustCreateRole(t, service, "manager", &admin.ID)
	clerk := mustCreateRole(t, service, "clerk", &manager.ID)

	usersRead := mustCreatePermission(t, service, "users:read")
	usersWrite := mustCreatePermission(t, service, "users:write")
	reportsRead := mustCreatePermission(t, service, "reports:read")

	grant(t, service, admin.ID, usersRead.ID, usersWrite.ID)
	grant(t, service, manager.ID, reportsRead.ID)
	// Duplicate grant down the chain must not duplicate in the result.
	grant(t, service, clerk.ID, usersRead.ID)

	effective, err := service.EffectivePermissions(ctx, clerk.ID)
	require.NoError(t, err)

	codes := make([]string, 0, len(effective))
	for _, permission := range effective {
		codes = append(codes, permission.Code)
	}
	assert.Equal(t, []string{"reports:read", "users:read", "users:write"}, codes)

	// The root only sees its own grants.
	effective, err = service.EffectivePermissions(ctx, admin.ID)
	require.NoError(t, err)
	assert.Len(t, effective, 2)

	_, err = service.EffectivePermissions(ctx, "missing")
	assert.ErrorIs(t, err, rbac.ErrRoleNotFound)
}

/*
TestService_HierarchyPath verifies root-first ordering of the ancestor chain.
*/
func TestService_HierarchyPath(t *testing.T) {
	service := newTestService()

	admin := mustCreateRole(t, service, "admin", nil)
	manager := mustCreateRole(t, service, "manager", &admin.ID)
	clerk := mustCreateRole(t, service, "clerk", &manager.ID)

	path, err := service.HierarchyPath(context.Background(), clerk.ID)
	require.NoError(t, err)
	require.Len(t, path, 3)

	assert.Equal(t, "admin", path[0].Name)
	assert.Equal(t, "manager", path[1].Name)
	assert.Equal(t, "clerk", path[2].Name)
	assert.Equal(t, 0, path[0].Level)
	assert.Equal(t, 2, path[2].Level)
}

/*
TestService_FindRolesGranting verifies direct/inherited classification and
the nearest-ancestor source attribution.
*/
func TestService_FindRolesGranting(t *testing.T) {
	service := newTestService()

	admin := mustCreateRole(t, service, "admin", nil)
	manager := mustCreateRole(t, service, "manager", &admin.ID)
	mustCreateRole(t, service, "unrelated", nil)

	usersRead := mustCreatePermission(t, service, "users:read")
	grant(t, service, admin.ID, usersRead.ID)

	granting, err := service.FindRolesGranting(context.Background(), "users:read")
	require.NoError(t, err)
	require.Len(t, granting, 2)

	// Sorted by name: admin first.
	assert.Equal(t, "admin", granting[0].Name)
	assert.True(t, granting[0].Direct)
	assert.Empty(t, granting[0].InheritedFrom)

	assert.Equal(t, "manager", granting[1].Name)
	assert.False(t, granting[1].Direct)
	assert.Equal(t, "admin", granting[1].InheritedFrom)

	_ = manager

	// Unknown code yields an empty result, not an error.
	granting, err = service.FindRolesGranting(context.Background(), "nothing:here")
	require.NoError(t, err)
	assert.Empty(t, granting)
}

/*
TestService_DeleteRole verifies that children are re-parented to the deleted
role's parent and their levels are recomputed.
*/
func TestService_DeleteRole(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	root := mustCreateRole(t, service, "root", nil)
	middle := mustCreateRole(t, service, "middle", &root.ID)
	leaf := mustCreateRole(t, service, "leaf", &middle.ID)

	require.NoError(t, service.DeleteRole(ctx, middle.ID))

	reloaded, err := service.GetRole(ctx, leaf.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ParentID)
	assert.Equal(t, root.ID, *reloaded.ParentID)
	assert.Equal(t, 1, reloaded.Level)

	issues, err := service.ValidateIntegrity(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)

	assert.ErrorIs(t, service.DeleteRole(ctx, middle.ID), rbac.ErrRoleNotFound)
}

/*
TestService_IntegrityAndFixLevels verifies defect detection on a corrupted
store and the top-down level repair.
*/
func TestService_IntegrityAndFixLevels(t *testing.T) {
	store := rbac.NewMemoryStore()
	service := rbac.NewService(store, store.Permissions())
	ctx := context.Background()

	admin := mustCreateRole(t, service, "admin", nil)
	manager := mustCreateRole(t, service, "manager", &admin.ID)

	// Corrupt the cached level behind the service's back.
	require.NoError(t, store.UpdateLevels(ctx, map[string]int{manager.ID: 7}))

	issues, err := service.ValidateIntegrity(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, rbac.IssueIncorrectLevel, issues[0].Kind)
	assert.Equal(t, 7, issues[0].CurrentLevel)
	assert.Equal(t, 1, issues[0].ExpectedLevel)

	// Inject a dangling parent reference directly through the store.
	orphan := &rbac.Role{ID: "orphan-id", Name: "orphan", ParentID: pointer.To("gone"), Level: 1}
	require.NoError(t, store.Create(ctx, orphan))

	issues, err = service.ValidateIntegrity(ctx)
	require.NoError(t, err)
	kinds := make(map[string]bool)
	for _, issue := range issues {
		kinds[issue.Kind] = true
	}
	assert.True(t, kinds[rbac.IssueMissingParent])

	// Repair the level defect; the orphan is outside every root's subtree
	// and is left alone.
	fixed, err := service.FixLevels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	reloaded, err := service.GetRole(ctx, manager.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Level)

	// A second pass has nothing to do.
	fixed, err = service.FixLevels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fixed)
}

/*
TestService_AssignPermissions verifies the full-replacement semantics and
the all-or-nothing validation of referenced permissions.
*/
func TestService_AssignPermissions(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	role := mustCreateRole(t, service, "editor", nil)
	first := mustCreatePermission(t, service, "posts:read")
	second := mustCreatePermission(t, service, "posts:write")

	grant(t, service, role.ID, first.ID, second.ID)

	// Replacement drops permissions missing from the new set.
	assigned, err := service.AssignPermissions(ctx, role.ID, []string{second.ID})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "posts:write", assigned[0].Code)

	direct, err := service.RolePermissions(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, direct, 1)
	assert.Equal(t, "posts:write", direct[0].Code)

	// One unknown ID rejects the whole assignment.
	_, err = service.AssignPermissions(ctx, role.ID, []string{first.ID, "missing"})
	assert.ErrorIs(t, err, rbac.ErrPermissionNotFound)

	direct, err = service.RolePermissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Len(t, direct, 1)
}

/*
TestService_RemovePermission verifies single-grant revocation and its error
on a grant that does not exist.
*/
func TestService_RemovePermission(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	role := mustCreateRole(t, service, "editor", nil)
	permission := mustCreatePermission(t, service, "posts:read")
	grant(t, service, role.ID, permission.ID)

	require.NoError(t, service.RemovePermission(ctx, role.ID, permission.ID))
	assert.ErrorIs(t, service.RemovePermission(ctx, role.ID, permission.ID), rbac.ErrPermissionNotFound)
}

/*
TestService_HierarchyTree verifies the rendered forest: child nesting, direct
grants, and top-down permission accumulation.
*/
func TestService_HierarchyTree(t *testing.T) {
	service := newTestService()

	admin := mustCreateRole(t, service, "admin", nil)
	manager := mustCreateRole(t, service, "manager", &admin.ID)

	usersRead := mustCreatePermission(t, service, "users:read")
	reportsRead := mustCreatePermission(t, service, "reports:read")
	grant(t, service, admin.ID, usersRead.ID)
	grant(t, service, manager.ID, reportsRead.ID)

	trees, err := service.HierarchyTree(context.Background())
	require.NoError(t, err)
	require.Len(t, trees, 1)

	root := trees[0]
	assert.Equal(t, "admin", root.Name)
	assert.Equal(t, []string{"users:read"}, root.DirectPermissions)
	assert.Equal(t, []string{"users:read"}, root.AllPermissions)

	require.Len(t, root.Children, 1)
	child := root.Children[0]
	assert.Equal(t, "manager", child.Name)
	assert.Equal(t, []string{"reports:read"}, child.DirectPermissions)
	assert.Equal(t, []string{"reports:read", "users:read"}, child.AllPermissions)
}

/*
TestService_RoleDetail verifies the assembled read model: direct versus
inherited split, parent name, path, and children.
*/
func TestService_RoleDetail(t *testing.T) {
	service := newTestService()

	admin := mustCreateRole(t, service, "admin", nil)
	manager := mustCreateRole(t, service, "manager", &admin.ID)
	clerk := mustCreateRole(t, service, "clerk", &manager.ID)

	usersRead := mustCreatePermission(t, service, "users:read")
	reportsRead := mustCreatePermission(t, service, "reports:read")
	grant(t, service, admin.ID, usersRead.ID)
	grant(t, service, manager.ID, reportsRead.ID)

	detail, err := service.RoleDetail(context.Background(), manager.ID)
	require.NoError(t, err)

	assert.Equal(t, "manager", detail.Role.Name)
	assert.Equal(t, "admin", detail.ParentName)

	require.Len(t, detail.DirectPermissions, 1)
	assert.Equal(t, "reports:read", detail.DirectPermissions[0].Code)

	require.Len(t, detail.InheritedPermissions, 1)
	assert.Equal(t, "users:read", detail.InheritedPermissions[0].Code)

	require.Len(t, detail.AllPermissions, 2)

	require.Len(t, detail.HierarchyPath, 2)
	assert.Equal(t, "admin", detail.HierarchyPath[0].Name)

	require.Len(t, detail.Children, 1)
	assert.Equal(t, clerk.ID, detail.Children[0].ID)
}

/*
TestService_PermissionCatalog covers creation, duplicate codes, format
validation, and deletion semantics of the permission catalog.
*/
func TestService_PermissionCatalog(t *testing.T) {
	service := newTestService()
	ctx := context.Background()

	created := mustCreatePermission(t, service, "users:read")
	assert.NotEmpty(t, created.ID)

	_, err := service.CreatePermission(ctx, rbac.CreatePermissionInput{Code: "users:read"})
	assert.ErrorIs(t, err, rbac.ErrDuplicateCode)

	_, err = service.CreatePermission(ctx, rbac.CreatePermissionInput{Code: "Not A Code"})
	assert.Error(t, err)

	// Deleting a permission removes it from role grants as well.
	role := mustCreateRole(t, service, "viewer", nil)
	grant(t, service, role.ID, created.ID)

	require.NoError(t, service.DeletePermission(ctx, created.ID))

	direct, err := service.RolePermissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Empty(t, direct)

	assert.ErrorIs(t, service.DeletePermission(ctx, created.ID), rbac.ErrPermissionNotFound)
}
