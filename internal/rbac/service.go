// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/taibuivan/aegis/internal/platform/validate"
	"github.com/taibuivan/aegis/pkg/uuid"
)

// Validation limits for the role and permission catalogs.
const (
	maxNameLength        = 50
	maxDescriptionLength = 255
)

// Service implements the role hierarchy use cases.
//
// # Concurrency
//
// All hierarchy mutations (create, re-parent, delete, grant changes) are
// serialized through a single mutex: cycle checks and level cascades are
// computed against a snapshot, and interleaving two mutations could validate
// against stale parents. Reads never take the mutex; the stores guarantee
// that each mutation lands atomically.
type Service struct {
	mutationLock sync.Mutex
	roles        RoleStore
	permissions  PermissionStore
}

// NewService constructs a new rbac [Service] with necessary dependencies.
func NewService(roles RoleStore, permissions PermissionStore) *Service {
	return &Service{
		roles:       roles,
		permissions: permissions,
	}
}

// # Hierarchy Snapshot

// hierarchy is an in-memory index of the full role forest, rebuilt per
// operation that needs structural reasoning.
type hierarchy struct {
	byID     map[string]*Role
	children map[string][]*Role
}

// loadHierarchy fetches every role and indexes parent/child edges.
func (service *Service) loadHierarchy(context context.Context) (*hierarchy, error) {
	allRoles, err := service.roles.List(context)
	if err != nil {
		return nil, fmt.Errorf("rbac_service_load_hierarchy_failed: %w", err)
	}

	index := &hierarchy{
		byID:     make(map[string]*Role, len(allRoles)),
		children: make(map[string][]*Role),
	}
	for position := range allRoles {
		role := &allRoles[position]
		index.byID[role.ID] = role
	}
	for position := range allRoles {
		role := &allRoles[position]
		if role.ParentID != nil {
			index.children[*role.ParentID] = append(index.children[*role.ParentID], role)
		}
	}

	// Deterministic child ordering for trees and cascades.
	for parentID := range index.children {
		sort.Slice(index.children[parentID], func(i, j int) bool {
			return index.children[parentID][i].Name < index.children[parentID][j].Name
		})
	}

	return index, nil
}

// roots returns the top-level roles sorted by name.
func (index *hierarchy) roots() []*Role {
	var result []*Role
	for _, role := range index.byID {
		if role.ParentID == nil {
			result = append(result, role)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// isAncestor walks the parent chain of candidate and reports whether
// ancestorID appears in it. The visited guard terminates even if the stored
// chain already contains a cycle.
func (index *hierarchy) isAncestor(ancestorID, candidateID string) bool {
	visited := make(map[string]bool)
	current := index.byID[candidateID]
	for current != nil && current.ParentID != nil {
		parentID := *current.ParentID
		if parentID == ancestorID {
			return true
		}
		if visited[parentID] {
			return false
		}
		visited[parentID] = true
		current = index.byID[parentID]
	}
	return false
}

// cascadeLevels assigns baseLevel to the role and recomputes the depth of
// every descendant, returning the full role-to-level map for the subtree.
func (index *hierarchy) cascadeLevels(roleID string, baseLevel int) map[string]int {
	levels := make(map[string]int)

	var walk func(id string, level int)
	walk = func(id string, level int) {
		if _, seen := levels[id]; seen {
			// Defective stored cycle: stop rather than recurse forever.
			return
		}
		levels[id] = level
		for _, child := range index.children[id] {
			walk(child.ID, level+1)
		}
	}
	walk(roleID, baseLevel)

	return levels
}

// # Role Lifecycle

// CreateRoleInput holds the data required to create a role.
type CreateRoleInput struct {
	Name        string
	Description string
	ParentID    *string
}

/*
CreateRole validates and persists a new role, optionally under a parent.

Description: The role's level is derived at creation: 0 for roots, the
parent's level plus one otherwise. Names are unique across the whole catalog,
not per subtree.

Parameters:
  - context: context.Context
  - input: CreateRoleInput

Returns:
  - *Role: Created entity
  - error: ErrDuplicateName, ErrParentNotFound, or storage failures
*/
func (service *Service) CreateRole(context context.Context, input CreateRoleInput) (*Role, error) {
	validator := &validate.Validator{}
	if err := validator.
		Required("name", input.Name).
		MaxLen("name", input.Name, maxNameLength).
		MaxLen("description", input.Description, maxDescriptionLength).
		Err(); err != nil {
		return nil, err
	}

	service.mutationLock.Lock()
	defer service.mutationLock.Unlock()

	// Verify name uniqueness. Return a client-safe Conflict err.
	if _, err := service.roles.GetByName(context, input.Name); err == nil {
		return nil, ErrDuplicateName
	}

	// Derive the level from the parent, if any.
	level := 0
	if input.ParentID != nil {
		parent, err := service.roles.Get(context, *input.ParentID)
		if err != nil {
			if errors.Is(err, ErrRoleNotFound) {
				return nil, ErrParentNotFound
			}
			return nil, fmt.Errorf("rbac_service_create_role_failed: %w", err)
		}
		level = parent.Level + 1
	}

	// Time-sortable ID to prevent PG index fragmentation.
	role := &Role{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		ParentID:    input.ParentID,
		Level:       level,
	}

	if err := service.roles.Create(context, role); err != nil {
		return nil, fmt.Errorf("rbac_service_create_role_failed: %w", err)
	}

	return role, nil
}

// GetRole returns a single role by ID.
func (service *Service) GetRole(context context.Context, id string) (*Role, error) {
	return service.roles.Get(context, id)
}

// ListRoles returns the full role catalog sorted by level, then name.
func (service *Service) ListRoles(context context.Context) ([]Role, error) {
	allRoles, err := service.roles.List(context)
	if err != nil {
		return nil, fmt.Errorf("rbac_service_list_roles_failed: %w", err)
	}

	sort.Slice(allRoles, func(i, j int) bool {
		if allRoles[i].Level != allRoles[j].Level {
			return allRoles[i].Level < allRoles[j].Level
		}
		return allRoles[i].Name < allRoles[j].Name
	})

	return allRoles, nil
}

// UpdateRoleInput holds the mutable role fields. Nil fields are left unchanged.
type UpdateRoleInput struct {
	Name        *string
	Description *string
}

/*
UpdateRole renames a role or updates its description.

Parameters:
  - context: context.Context
  - id: string
  - input: UpdateRoleInput

Returns:
  - *Role: Updated entity
  - error: ErrRoleNotFound, ErrDuplicateName, or storage failures
*/
func (service *Service) UpdateRole(context context.Context, id string, input UpdateRoleInput) (*Role, error) {
	service.mutationLock.Lock()
	defer service.mutationLock.Unlock()

	role, err := service.roles.Get(context, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && *input.Name != role.Name {
		validator := &validate.Validator{}
		if err := validator.
			Required("name", *input.Name).
			MaxLen("name", *input.Name, maxNameLength).
			Err(); err != nil {
			return nil, err
		}
		if _, err := service.roles.GetByName(context, *input.Name); err == nil {
			return nil, ErrDuplicateName
		}
		role.Name = *input.Name
	}
	if input.Description != nil {
		validator := &validate.Validator{}
		if err := validator.MaxLen("description", *input.Description, maxDescriptionLength).Err(); err != nil {
			return nil, err
		}
		role.Description = *input.Description
	}

	if err := service.roles.Update(context, role); err != nil {
		return nil, fmt.Errorf("rbac_service_update_role_failed: %w", err)
	}

	return role, nil
}

/*
SetParent moves a role under a new parent, or detaches it to a root.

Description: Rejects any re-parenting that would make the role its own
ancestor, then recomputes the level of the role and every descendant and
applies the whole change atomically. On rejection the hierarchy is untouched.

Parameters:
  - context: context.Context
  - roleID: string
  - parentID: *string (nil detaches the role)

Returns:
  - *Role: Updated entity
  - error: ErrRoleNotFound, ErrParentNotFound, ErrCycleDetected, or storage failures
*/
func (service *Service) SetParent(context context.Context, roleID string, parentID *string) (*Role, error) {
	service.mutationLock.Lock()
	defer service.mutationLock.Unlock()

	index, err := service.loadHierarchy(context)
	if err != nil {
		return nil, err
	}

	role, found := index.byID[roleID]
	if !found {
		return nil, ErrRoleNotFound
	}

	baseLevel := 0
	if parentID != nil {
		parent, found := index.byID[*parentID]
		if !found {
			return nil, ErrParentNotFound
		}

		// A role may not become its own parent or be moved under any of
		// its descendants.
		if parent.ID == role.ID || index.isAncestor(role.ID, parent.ID) {
			return nil, ErrCycleDetected
		}

		baseLevel = parent.Level + 1
	}

	// Recompute the subtree depths against the new attachment point.
	role.ParentID = parentID
	levels := index.cascadeLevels(role.ID, baseLevel)

	if err := service.roles.UpdateParent(context, roleID, parentID, levels); err != nil {
		return nil, fmt.Errorf("rbac_service_set_parent_failed: %w", err)
	}

	role.Level = baseLevel
	return role, nil
}

/*
DeleteRole removes a role from the hierarchy.

Description: Children of the deleted role are re-parented to its parent
(or become roots) and their subtree levels are recomputed, so no role is
ever left pointing at a missing parent.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: ErrRoleNotFound or storage failures
*/
func (service *Service) DeleteRole(context context.Context, id string) error {
	service.mutationLock.Lock()
	defer service.mutationLock.Unlock()

	index, err := service.loadHierarchy(context)
	if err != nil {
		return err
	}

	role, found := index.byID[id]
	if !found {
		return ErrRoleNotFound
	}

	// Children move up one generation; their levels shift accordingly.
	baseLevel := 0
	if role.ParentID != nil {
		if parent, found := index.byID[*role.ParentID]; found {
			baseLevel = parent.Level + 1
		}
	}

	levels := make(map[string]int)
	for _, child := range index.children[id] {
		for descendantID, level := range index.cascadeLevels(child.ID, baseLevel) {
			levels[descendantID] = level
		}
	}

	if err := service.roles.Delete(context, id, role.ParentID, levels); err != nil {
		return fmt.Errorf("rbac_service_delete_role_failed: %w", err)
	}

	return nil
}

// # Permission Resolution

/*
EffectivePermissions resolves the full permission set of a role: its direct
grants plus everything inherited from its ancestor chain.

Description: The walk carries a visited guard, so a defective stored cycle
degrades to a partial result instead of an infinite loop.

Parameters:
  - context: context.Context
  - roleID: string

Returns:
  - []Permission: Deduplicated permissions sorted by code
  - error: ErrRoleNotFound or storage failures
*/
func (service *Service) EffectivePermissions(context context.Context, roleID string) ([]Permission, error) {
	index, err := service.loadHierarchy(context)
	if err != nil {
		return nil, err
	}
	if _, found := index.byID[roleID]; !found {
		return nil, ErrRoleNotFound
	}

	collected := make(map[string]Permission)
	visited := make(map[string]bool)

	current := roleID
	for current != "" && !visited[current] {
		visited[current] = true

		direct, err := service.permissions.ListForRole(context, current)
		if err != nil {
			return nil, fmt.Errorf("rbac_service_effective_permissions_failed: %w", err)
		}
		for _, permission := range direct {
			collected[permission.ID] = permission
		}

		role := index.byID[current]
		if role == nil || role.ParentID == nil {
			break
		}
		current = *role.ParentID
	}

	return sortPermissions(collected), nil
}

/*
HierarchyPath returns the chain from the hierarchy root down to the role
itself, inclusive.

Parameters:
  - context: context.Context
  - roleID: string

Returns:
  - []PathEntry: Root first, the role itself last
  - error: ErrRoleNotFound or storage failures
*/
func (service *Service) HierarchyPath(context context.Context, roleID string) ([]PathEntry, error) {
	index, err := service.loadHierarchy(context)
	if err != nil {
		return nil, err
	}

	role, found := index.byID[roleID]
	if !found {
		return nil, ErrRoleNotFound
	}

	// Collect leaf-to-root, then reverse.
	var path []PathEntry
	visited := make(map[string]bool)
	for current := role; current != nil && !visited[current.ID]; {
		visited[current.ID] = true
		path = append(path, PathEntry{ID: current.ID, Name: current.Name, Level: current.Level})
		if current.ParentID == nil {
			break
		}
		current = index.byID[*current.ParentID]
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return path, nil
}

/*
HierarchyTree renders the complete role forest with direct and resolved
permissions at every node.

Parameters:
  - context: context.Context

Returns:
  - []*TreeNode: One tree per root role, sorted by name
  - error: Storage failures
*/
func (service *Service) HierarchyTree(context context.Context) ([]*TreeNode, error) {
	index, err := service.loadHierarchy(context)
	if err != nil {
		return nil, err
	}

	grants, err := service.permissions.ListGrants(context)
	if err != nil {
		return nil, fmt.Errorf("rbac_service_hierarchy_tree_failed: %w", err)
	}

	// Top-down build: each node's resolved set is its parent's resolved set
	// plus its own direct grants.
	var build func(role *Role, inherited map[string]bool) *TreeNode
	build = func(role *Role, inherited map[string]bool) *TreeNode {
		resolved := make(map[string]bool, len(inherited))
		for code := range inherited {
			resolved[code] = true
		}

		direct := make([]string, 0, len(grants[role.ID]))
		for _, permission := range grants[role.ID] {
			direct = append(direct, permission.Code)
			resolved[permission.Code] = true
		}
		sort.Strings(direct)

		node := &TreeNode{
			ID:                role.ID,
			Name:              role.Name,
			Description:       role.Description,
			Level:             role.Level,
			DirectPermissions: direct,
			AllPermissions:    sortedCodes(resolved),
			Children:          []*TreeNode{},
		}
		for _, child := range index.children[role.ID] {
			node.Children = append(node.Children, build(child, resolved))
		}
		return node
	}

	trees := []*TreeNode{}
	for _, root := range index.roots() {
		trees = append(trees, build(root, nil))
	}

	return trees, nil
}

/*
RoleDetail assembles the full read model for one role: its direct grants,
inherited grants, hierarchy path, and children.

Parameters:
  - context: context.Context
  - roleID: string

Returns:
  - *RoleDetail: Hydrated view
  - error: ErrRoleNotFound or storage failures
*/
func (service *Service) RoleDetail(context context.Context, roleID string) (*RoleDetail, error) {
	index, err := service.loadHierarchy(context)
	if err != nil {
		return nil, err
	}

	role, found := index.byID[roleID]
	if !found {
		return nil, ErrRoleNotFound
	}

	direct, err := service.permissions.ListForRole(context, roleID)
	if err != nil {
		return nil, fmt.Errorf("rbac_service_role_detail_failed: %w", err)
	}

	all, err := service.EffectivePermissions(context, roleID)
	if err != nil {
		return nil, err
	}

	// Inherited = resolved minus direct.
	directIDs := make(map[string]bool, len(direct))
	for _, permission := range direct {
		directIDs[permission.ID] = true
	}
	inherited := []Permission{}
	for _, permission := range all {
		if !directIDs[permission.ID] {
			inherited = append(inherited, permission)
		}
	}

	path, err := service.HierarchyPath(context, roleID)
	if err != nil {
		return nil, err
	}

	detail := &RoleDetail{
		Role:                 *role,
		DirectPermissions:    sortPermissionSlice(direct),
		InheritedPermissions: inherited,
		AllPermissions:       all,
		HierarchyPath:        path,
		Children:             []PathEntry{},
	}
	if role.ParentID != nil {
		if parent, found := index.byID[*role.ParentID]; found {
			detail.ParentName = parent.Name
		}
	}
	for _, child := range index.children[roleID] {
		detail.Children = append(detail.Children, PathEntry{ID: child.ID, Name: child.Name, Level: child.Level})
	}

	return detail, nil
}

/*
FindRolesGranting reports every role that holds the given permission code,
directly or through inheritance, and where each inherited grant comes from.

Parameters:
  - context: context.Context
  - permissionCode: string

Returns:
  - []GrantInfo: Sorted by role name; empty when no role grants the code
  - error: Storage failures
*/
func (service *Service) FindRolesGranting(context context.Context, permissionCode string) ([]GrantInfo, error) {
	index, err := service.loadHierarchy(context)
	if err != nil {
		return nil, err
	}

	grants, err := service.permissions.ListGrants(context)
	if err != nil {
		return nil, fmt.Errorf("rbac_service_find_roles_granting_failed: %w", err)
	}

	hasDirect := func(roleID string) bool {
		for _, permission := range grants[roleID] {
			if permission.Code == permissionCode {
				return true
			}
		}
		return false
	}

	// nearestSource walks the ancestor chain and names the closest role
	// granting the code directly.
	nearestSource := func(role *Role) string {
		visited := make(map[string]bool)
		current := role
		for current != nil && current.ParentID != nil && !visited[current.ID] {
			visited[current.ID] = true
			parent := index.byID[*current.ParentID]
			if parent == nil {
				return ""
			}
			if hasDirect(parent.ID) {
				return parent.Name
			}
			current = parent
		}
		return ""
	}

	results := []GrantInfo{}
	for _, role := range index.byID {
		direct := hasDirect(role.ID)
		source := ""
		if !direct {
			source = nearestSource(role)
			if source == "" {
				continue
			}
		}
		results = append(results, GrantInfo{
			RoleID:        role.ID,
			Name:          role.Name,
			Level:         role.Level,
			Direct:        direct,
			InheritedFrom: source,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

// # Integrity Maintenance

/*
ValidateIntegrity scans the stored hierarchy for structural defects.

Description: Reports circular parent chains, parents that reference missing
roles, and cached levels that disagree with the parent chain. The scan is
read-only.

Parameters:
  - context: context.Context

Returns:
  - []IntegrityIssue: Empty when the hierarchy is sound
  - error: Storage failures
*/
func (service *Service) ValidateIntegrity(context context.Context) ([]IntegrityIssue, error) {
	index, err := service.loadHierarchy(context)
	if err != nil {
		return nil, err
	}

	issues := []IntegrityIssue{}
	for _, role := range index.byID {

		// Circular reference detection via a visited walk.
		visited := make(map[string]bool)
		current := role
		for current != nil {
			if visited[current.ID] {
				issues = append(issues, IntegrityIssue{
					Kind:        IssueCircularReference,
					RoleID:      role.ID,
					RoleName:    role.Name,
					Description: "Role has circular reference in hierarchy",
				})
				break
			}
			visited[current.ID] = true
			if current.ParentID == nil {
				break
			}
			current = index.byID[*current.ParentID]
		}

		// Dangling parent reference.
		if role.ParentID != nil {
			if _, found := index.byID[*role.ParentID]; !found {
				issues = append(issues, IntegrityIssue{
					Kind:        IssueMissingParent,
					RoleID:      role.ID,
					RoleName:    role.Name,
					Description: "Role references a parent that does not exist",
				})
				continue
			}
		}

		// Level consistency against the parent.
		expectedLevel := 0
		if role.ParentID != nil {
			expectedLevel = index.byID[*role.ParentID].Level + 1
		}
		if role.Level != expectedLevel {
			issues = append(issues, IntegrityIssue{
				Kind:          IssueIncorrectLevel,
				RoleID:        role.ID,
				RoleName:      role.Name,
				CurrentLevel:  role.Level,
				ExpectedLevel: expectedLevel,
				Description:   fmt.Sprintf("Role level %d doesn't match expected %d", role.Level, expectedLevel),
			})
		}
	}

	sort.Slice(issues, func(i, j int) bool {
		if issues[i].RoleName != issues[j].RoleName {
			return issues[i].RoleName < issues[j].RoleName
		}
		return issues[i].Kind < issues[j].Kind
	})
	return issues, nil
}

/*
FixLevels repairs cached levels by walking every root and reassigning depths
top-down.

Parameters:
  - context: context.Context

Returns:
  - int: Number of roles whose level was corrected
  - error: Storage failures
*/
func (service *Service) FixLevels(context context.Context) (int, error) {
	service.mutationLock.Lock()
	defer service.mutationLock.Unlock()

	index, err := service.loadHierarchy(context)
	if err != nil {
		return 0, err
	}

	corrections := make(map[string]int)
	for _, root := range index.roots() {
		for roleID, expectedLevel := range index.cascadeLevels(root.ID, 0) {
			if index.byID[roleID].Level != expectedLevel {
				corrections[roleID] = expectedLevel
			}
		}
	}

	if len(corrections) == 0 {
		return 0, nil
	}

	if err := service.roles.UpdateLevels(context, corrections); err != nil {
		return 0, fmt.Errorf("rbac_service_fix_levels_failed: %w", err)
	}

	return len(corrections), nil
}

// # Permission Catalog

// CreatePermissionInput holds the data required to create a permission.
type CreatePermissionInput struct {
	Code        string
	Description string
}

/*
CreatePermission validates and persists a new permission.

Parameters:
  - context: context.Context
  - input: CreatePermissionInput

Returns:
  - *Permission: Created entity
  - error: ErrDuplicateCode, validation errors, or storage failures
*/
func (service *Service) CreatePermission(context context.Context, input CreatePermissionInput) (*Permission, error) {
	validator := &validate.Validator{}
	if err := validator.
		Required("code", input.Code).
		Permission("code", input.Code).
		MaxLen("description", input.Description, maxDescriptionLength).
		Err(); err != nil {
		return nil, err
	}

	if _, err := service.permissions.GetByCode(context, input.Code); err == nil {
		return nil, ErrDuplicateCode
	}

	permission := &Permission{
		ID:          uuid.New(),
		Code:        input.Code,
		Description: input.Description,
	}

	if err := service.permissions.Create(context, permission); err != nil {
		return nil, fmt.Errorf("rbac_service_create_permission_failed: %w", err)
	}

	return permission, nil
}

// GetPermission returns a single permission by ID.
func (service *Service) GetPermission(context context.Context, id string) (*Permission, error) {
	return service.permissions.Get(context, id)
}

// ListPermissions returns the full permission catalog sorted by code.
func (service *Service) ListPermissions(context context.Context) ([]Permission, error) {
	all, err := service.permissions.List(context)
	if err != nil {
		return nil, fmt.Errorf("rbac_service_list_permissions_failed: %w", err)
	}
	return sortPermissionSlice(all), nil
}

// DeletePermission removes a permission and every grant referencing it.
func (service *Service) DeletePermission(context context.Context, id string) error {
	service.mutationLock.Lock()
	defer service.mutationLock.Unlock()

	if _, err := service.permissions.Get(context, id); err != nil {
		return err
	}
	if err := service.permissions.Delete(context, id); err != nil {
		return fmt.Errorf("rbac_service_delete_permission_failed: %w", err)
	}
	return nil
}

/*
AssignPermissions replaces a role's complete direct grant set.

Description: Full replacement, not a merge: permissions missing from the
input are revoked. Every referenced permission must exist or the whole
operation is rejected.

Parameters:
  - context: context.Context
  - roleID: string
  - permissionIDs: []string

Returns:
  - []Permission: The role's new direct grants
  - error: ErrRoleNotFound, ErrPermissionNotFound, or storage failures
*/
func (service *Service) AssignPermissions(context context.Context, roleID string, permissionIDs []string) ([]Permission, error) {
	service.mutationLock.Lock()
	defer service.mutationLock.Unlock()

	if _, err := service.roles.Get(context, roleID); err != nil {
		return nil, err
	}

	// All-or-nothing: verify every permission before touching the grants.
	assigned := make([]Permission, 0, len(permissionIDs))
	for _, permissionID := range permissionIDs {
		permission, err := service.permissions.Get(context, permissionID)
		if err != nil {
			return nil, err
		}
		assigned = append(assigned, *permission)
	}

	if err := service.permissions.Replace(context, roleID, permissionIDs); err != nil {
		return nil, fmt.Errorf("rbac_service_assign_permissions_failed: %w", err)
	}

	return sortPermissionSlice(assigned), nil
}

/*
RemovePermission revokes a single direct grant from a role.

Parameters:
  - context: context.Context
  - roleID: string
  - permissionID: string

Returns:
  - error: ErrRoleNotFound, ErrPermissionNotFound (no such grant), or storage failures
*/
func (service *Service) RemovePermission(context context.Context, roleID, permissionID string) error {
	service.mutationLock.Lock()
	defer service.mutationLock.Unlock()

	if _, err := service.roles.Get(context, roleID); err != nil {
		return err
	}

	removed, err := service.permissions.Remove(context, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("rbac_service_remove_permission_failed: %w", err)
	}
	if !removed {
		return ErrPermissionNotFound
	}
	return nil
}

// RolePermissions returns only the role's direct grants, sorted by code.
func (service *Service) RolePermissions(context context.Context, roleID string) ([]Permission, error) {
	if _, err := service.roles.Get(context, roleID); err != nil {
		return nil, err
	}

	direct, err := service.permissions.ListForRole(context, roleID)
	if err != nil {
		return nil, fmt.Errorf("rbac_service_role_permissions_failed: %w", err)
	}
	return sortPermissionSlice(direct), nil
}

// # Sorting Helpers

func sortPermissions(collected map[string]Permission) []Permission {
	result := make([]Permission, 0, len(collected))
	for _, permission := range collected {
		result = append(result, permission)
	}
	return sortPermissionSlice(result)
}

func sortPermissionSlice(permissions []Permission) []Permission {
	sort.Slice(permissions, func(i, j int) bool { return permissions[i].Code < permissions[j].Code })
	return permissions
}

func sortedCodes(codes map[string]bool) []string {
	result := make([]string, 0, len(codes))
	for code := range codes {
		result = append(result, code)
	}
	sort.Strings(result)
	return result
}
