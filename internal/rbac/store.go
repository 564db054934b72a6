// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"context"
)

// # Role Data Access

// RoleStore defines the data access contract for the role catalog.
//
// Mutations that touch levels take the complete recomputed level map and
// must apply it together with the structural change, so concurrent readers
// only ever observe the hierarchy fully before or fully after the change.
type RoleStore interface {

	/*
		Create persists a brand-new role.

		Parameters:
		  - context: context.Context
		  - role: *Role

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, role *Role) error

	/*
		Get returns the role with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Role: Hydrated entity
		  - error: ErrRoleNotFound or retrieval failures
	*/
	Get(context context.Context, id string) (*Role, error)

	/*
		GetByName returns the role with the given unique name.

		Parameters:
		  - context: context.Context
		  - name: string

		Returns:
		  - *Role: Hydrated entity
		  - error: ErrRoleNotFound or retrieval failures
	*/
	GetByName(context context.Context, name string) (*Role, error)

	/*
		List returns every role in the catalog.

		Parameters:
		  - context: context.Context

		Returns:
		  - []Role: All roles, unordered
		  - error: Retrieval failures
	*/
	List(context context.Context) ([]Role, error)

	/*
		Update persists changes to the role's name and description.

		Parameters:
		  - context: context.Context
		  - role: *Role

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, role *Role) error

	/*
		UpdateParent atomically rewires a role under a new parent and applies
		the recomputed levels for the role and all of its descendants.

		Parameters:
		  - context: context.Context
		  - roleID: string
		  - parentID: *string (nil detaches the role to a root)
		  - levels: map[string]int (role ID to recomputed level)

		Returns:
		  - error: Persistence failures
	*/
	UpdateParent(context context.Context, roleID string, parentID *string, levels map[string]int) error

	/*
		UpdateLevels applies corrected levels to the given roles.

		Parameters:
		  - context: context.Context
		  - levels: map[string]int (role ID to corrected level)

		Returns:
		  - error: Persistence failures
	*/
	UpdateLevels(context context.Context, levels map[string]int) error

	/*
		Delete removes a role, re-parents its children to the given ancestor,
		and applies the recomputed descendant levels, all atomically.

		Parameters:
		  - context: context.Context
		  - roleID: string
		  - reparentTo: *string (new parent for orphaned children, nil for root)
		  - levels: map[string]int (recomputed levels for former descendants)

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, roleID string, reparentTo *string, levels map[string]int) error
}

// # Permission Data Access

// PermissionStore defines the data access contract for the permission
// catalog and the role-permission grant table.
type PermissionStore interface {

	/*
		Create persists a brand-new permission.

		Parameters:
		  - context: context.Context
		  - permission: *Permission

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, permission *Permission) error

	/*
		Get returns the permission with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Permission: Hydrated entity
		  - error: ErrPermissionNotFound or retrieval failures
	*/
	Get(context context.Context, id string) (*Permission, error)

	/*
		GetByCode returns the permission with the given unique code.

		Parameters:
		  - context: context.Context
		  - code: string

		Returns:
		  - *Permission: Hydrated entity
		  - error: ErrPermissionNotFound or retrieval failures
	*/
	GetByCode(context context.Context, code string) (*Permission, error)

	/*
		List returns every permission in the catalog.

		Parameters:
		  - context: context.Context

		Returns:
		  - []Permission: All permissions, unordered
		  - error: Retrieval failures
	*/
	List(context context.Context) ([]Permission, error)

	/*
		Delete removes a permission and all grants referencing it.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, id string) error

	/*
		ListForRole returns the permissions granted directly to one role.

		Parameters:
		  - context: context.Context
		  - roleID: string

		Returns:
		  - []Permission: Direct grants only, no inheritance
		  - error: Retrieval failures
	*/
	ListForRole(context context.Context, roleID string) ([]Permission, error)

	/*
		ListGrants returns the direct grants of every role in one call.

		Parameters:
		  - context: context.Context

		Returns:
		  - map[string][]Permission: Role ID to its direct permissions
		  - error: Retrieval failures
	*/
	ListGrants(context context.Context) (map[string][]Permission, error)

	/*
		Replace swaps a role's complete direct grant set for the given
		permissions in a single atomic operation.

		Parameters:
		  - context: context.Context
		  - roleID: string
		  - permissionIDs: []string

		Returns:
		  - error: Persistence failures
	*/
	Replace(context context.Context, roleID string, permissionIDs []string) error

	/*
		Remove deletes a single grant from a role.

		Parameters:
		  - context: context.Context
		  - roleID: string
		  - permissionID: string

		Returns:
		  - bool: Whether a grant was actually removed
		  - error: Persistence failures
	*/
	Remove(context context.Context, roleID, permissionID string) (bool, error)
}
