// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of [RoleStore] and
// [PermissionStore].
//
// It backs the unit tests and local development without a database. All data
// is lost on restart; nothing here is durable.
//
// # Concurrency
//
// A single RWMutex guards the maps. Compound mutations (parent rewires,
// level cascades, grant replacement) hold the write lock for their whole
// duration, giving readers the same before-or-after atomicity the Postgres
// stores get from transactions.
type MemoryStore struct {
	lock        sync.RWMutex
	roles       map[string]Role
	permissions map[string]Permission
	grants      map[string]map[string]bool // roleID -> permissionID set
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roles:       make(map[string]Role),
		permissions: make(map[string]Permission),
		grants:      make(map[string]map[string]bool),
	}
}

// # RoleStore Implementation

// Create persists a new role.
func (store *MemoryStore) Create(_ context.Context, role *Role) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	for _, existing := range store.roles {
		if existing.Name == role.Name {
			return ErrDuplicateName
		}
	}

	now := time.Now()
	if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}
	role.UpdatedAt = now

	store.roles[role.ID] = *role
	return nil
}

// Get returns the role with the given ID.
func (store *MemoryStore) Get(_ context.Context, id string) (*Role, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	role, found := store.roles[id]
	if !found {
		return nil, ErrRoleNotFound
	}
	return &role, nil
}

// GetByName returns the role with the given unique name.
func (store *MemoryStore) GetByName(_ context.Context, name string) (*Role, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	for _, role := range store.roles {
		if role.Name == name {
			copied := role
			return &copied, nil
		}
	}
	return nil, ErrRoleNotFound
}

// List returns every role.
func (store *MemoryStore) List(_ context.Context) ([]Role, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	roles := make([]Role, 0, len(store.roles))
	for _, role := range store.roles {
		roles = append(roles, role)
	}
	return roles, nil
}

// Update persists name and description changes.
func (store *MemoryStore) Update(_ context.Context, role *Role) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	stored, found := store.roles[role.ID]
	if !found {
		return ErrRoleNotFound
	}

	for id, existing := range store.roles {
		if id != role.ID && existing.Name == role.Name {
			return ErrDuplicateName
		}
	}

	stored.Name = role.Name
	stored.Description = role.Description
	stored.UpdatedAt = time.Now()
	store.roles[role.ID] = stored
	return nil
}

// UpdateParent rewires a role and applies the recomputed subtree levels.
func (store *MemoryStore) UpdateParent(_ context.Context, roleID string, parentID *string, levels map[string]int) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	role, found := store.roles[roleID]
	if !found {
		return ErrRoleNotFound
	}

	now := time.Now()
	role.ParentID = parentID
	role.UpdatedAt = now
	store.roles[roleID] = role

	store.applyLevels(levels, now)
	return nil
}

// UpdateLevels applies corrected levels.
func (store *MemoryStore) UpdateLevels(_ context.Context, levels map[string]int) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	store.applyLevels(levels, time.Now())
	return nil
}

// Delete removes a role, re-parents its children, and applies levels.
func (store *MemoryStore) Delete(_ context.Context, roleID string, reparentTo *string, levels map[string]int) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	if _, found := store.roles[roleID]; !found {
		return ErrRoleNotFound
	}

	now := time.Now()
	for id, role := range store.roles {
		if role.ParentID != nil && *role.ParentID == roleID {
			role.ParentID = reparentTo
			role.UpdatedAt = now
			store.roles[id] = role
		}
	}

	store.applyLevels(levels, now)
	delete(store.roles, roleID)
	delete(store.grants, roleID)
	return nil
}

// applyLevels must be called with the write lock held.
func (store *MemoryStore) applyLevels(levels map[string]int, now time.Time) {
	for roleID, level := range levels {
		if role, found := store.roles[roleID]; found {
			role.Level = level
			role.UpdatedAt = now
			store.roles[roleID] = role
		}
	}
}

// # PermissionStore Implementation

// CreatePermission persists a new permission.
//
// The method name differs from [PermissionStore.Create] because MemoryStore
// implements both contracts; [MemoryStore.Permissions] adapts the name.
func (store *MemoryStore) CreatePermission(_ context.Context, permission *Permission) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	for _, existing := range store.permissions {
		if existing.Code == permission.Code {
			return ErrDuplicateCode
		}
	}

	if permission.CreatedAt.IsZero() {
		permission.CreatedAt = time.Now()
	}
	store.permissions[permission.ID] = *permission
	return nil
}

// GetPermission returns the permission with the given ID.
func (store *MemoryStore) GetPermission(_ context.Context, id string) (*Permission, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	permission, found := store.permissions[id]
	if !found {
		return nil, ErrPermissionNotFound
	}
	return &permission, nil
}

// GetPermissionByCode returns the permission with the given unique code.
func (store *MemoryStore) GetPermissionByCode(_ context.Context, code string) (*Permission, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	for _, permission := range store.permissions {
		if permission.Code == code {
			copied := permission
			return &copied, nil
		}
	}
	return nil, ErrPermissionNotFound
}

// ListAllPermissions returns every permission.
func (store *MemoryStore) ListAllPermissions(_ context.Context) ([]Permission, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	permissions := make([]Permission, 0, len(store.permissions))
	for _, permission := range store.permissions {
		permissions = append(permissions, permission)
	}
	return permissions, nil
}

// DeletePermission removes a permission and its grants.
func (store *MemoryStore) DeletePermission(_ context.Context, id string) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	if _, found := store.permissions[id]; !found {
		return ErrPermissionNotFound
	}
	delete(store.permissions, id)
	for roleID := range store.grants {
		delete(store.grants[roleID], id)
	}
	return nil
}

// ListForRole returns a role's direct grants.
func (store *MemoryStore) ListForRole(_ context.Context, roleID string) ([]Permission, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	var permissions []Permission
	for permissionID := range store.grants[roleID] {
		if permission, found := store.permissions[permissionID]; found {
			permissions = append(permissions, permission)
		}
	}
	return permissions, nil
}

// ListGrants returns every role's direct grants.
func (store *MemoryStore) ListGrants(_ context.Context) (map[string][]Permission, error) {
	store.lock.RLock()
	defer store.lock.RUnlock()

	grants := make(map[string][]Permission, len(store.grants))
	for roleID, permissionIDs := range store.grants {
		for permissionID := range permissionIDs {
			if permission, found := store.permissions[permissionID]; found {
				grants[roleID] = append(grants[roleID], permission)
			}
		}
	}
	return grants, nil
}

// Replace swaps a role's complete direct grant set.
func (store *MemoryStore) Replace(_ context.Context, roleID string, permissionIDs []string) error {
	store.lock.Lock()
	defer store.lock.Unlock()

	replacement := make(map[string]bool, len(permissionIDs))
	for _, permissionID := range permissionIDs {
		replacement[permissionID] = true
	}
	store.grants[roleID] = replacement
	return nil
}

// Remove deletes a single grant.
func (store *MemoryStore) Remove(_ context.Context, roleID, permissionID string) (bool, error) {
	store.lock.Lock()
	defer store.lock.Unlock()

	if !store.grants[roleID][permissionID] {
		return false, nil
	}
	delete(store.grants[roleID], permissionID)
	return true, nil
}

// # Contract Adapters

// memoryPermissionStore renames the permission methods onto the
// [PermissionStore] contract, since [MemoryStore] already uses Create/Get/
// List/Delete for roles.
type memoryPermissionStore struct {
	store *MemoryStore
}

// Permissions exposes the store through the [PermissionStore] contract.
func (store *MemoryStore) Permissions() PermissionStore {
	return memoryPermissionStore{store: store}
}

func (adapter memoryPermissionStore) Create(context context.Context, permission *Permission) error {
	return adapter.store.CreatePermission(context, permission)
}

func (adapter memoryPermissionStore) Get(context context.Context, id string) (*Permission, error) {
	return adapter.store.GetPermission(context, id)
}

func (adapter memoryPermissionStore) GetByCode(context context.Context, code string) (*Permission, error) {
	return adapter.store.GetPermissionByCode(context, code)
}

func (adapter memoryPermissionStore) List(context context.Context) ([]Permission, error) {
	return adapter.store.ListAllPermissions(context)
}

func (adapter memoryPermissionStore) Delete(context context.Context, id string) error {
	return adapter.store.DeletePermission(context, id)
}

func (adapter memoryPermissionStore) ListForRole(context context.Context, roleID string) ([]Permission, error) {
	return adapter.store.ListForRole(context, roleID)
}

func (adapter memoryPermissionStore) ListGrants(context context.Context) (map[string][]Permission, error) {
	return adapter.store.ListGrants(context)
}

func (adapter memoryPermissionStore) Replace(context context.Context, roleID string, permissionIDs []string) error {
	return adapter.store.Replace(context, roleID, permissionIDs)
}

func (adapter memoryPermissionStore) Remove(context context.Context, roleID, permissionID string) (bool, error) {
	return adapter.store.Remove(context, roleID, permissionID)
}
