// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// PostgreSQL implementations of the rbac storage contracts.
//
// # Architecture
//
// Repositories here are strictly separated from domain logic. They implement
// the domain-defined interfaces ([RoleStore], [PermissionStore]) using the
// [pgxpool.Pool] connection manager. Mutations that must be observed
// atomically (parent rewires, level cascades, grant replacement) run inside
// a single transaction.
//
// # err Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain error
// sentinels to avoid leaking storage implementation details.

package rbac

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/aegis/internal/platform/dberr"
)

// # Role Store

// PostgresRoleStore implements the RoleStore interface using pgx.
type PostgresRoleStore struct {
	pool *pgxpool.Pool
}

// NewRoleStore creates a new PostgreSQL implementation of the RoleStore.
func NewRoleStore(pool *pgxpool.Pool) *PostgresRoleStore {
	return &PostgresRoleStore{pool: pool}
}

/*
Create persists a new role record into the rbac.role table.

Parameters:
  - context: context.Context
  - role: *Role (Entity to persist)

Returns:
  - error: ErrDuplicateName on a name collision, or connectivity errors
*/
func (store *PostgresRoleStore) Create(context context.Context, role *Role) error {
	const query = `
		INSERT INTO rbac.role (
			id, name, description, parentid, level, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}
	role.UpdatedAt = now

	_, err := store.pool.Exec(context, query,
		role.ID,
		role.Name,
		role.Description,
		role.ParentID,
		role.Level,
		role.CreatedAt,
		role.UpdatedAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("postgres_role_store_create_failed: %w", err)
	}

	return nil
}

/*
Get retrieves a role record by its primary key.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Role: Hydrated entity
  - error: ErrRoleNotFound or database errors
*/
func (store *PostgresRoleStore) Get(context context.Context, id string) (*Role, error) {
	const query = `
		SELECT id, name, description, parentid, level, createdat, updatedat
		FROM rbac.role
		WHERE id = $1`

	return store.scanRole(store.pool.QueryRow(context, query, id), "postgres_role_store_get_failed")
}

/*
GetByName retrieves a role record by its unique name.

Parameters:
  - context: context.Context
  - name: string

Returns:
  - *Role: Hydrated entity
  - error: ErrRoleNotFound or database errors
*/
func (store *PostgresRoleStore) GetByName(context context.Context, name string) (*Role, error) {
	const query = `
		SELECT id, name, description, parentid, level, createdat, updatedat
		FROM rbac.role
		WHERE name = $1`

	return store.scanRole(store.pool.QueryRow(context, query, name), "postgres_role_store_get_by_name_failed")
}

/*
List retrieves every role in the catalog.

Parameters:
  - context: context.Context

Returns:
  - []Role: All roles
  - error: Database errors
*/
func (store *PostgresRoleStore) List(context context.Context) ([]Role, error) {
	const query = `
		SELECT id, name, description, parentid, level, createdat, updatedat
		FROM rbac.role`

	rows, err := store.pool.Query(context, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_role_store_list_failed: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(
			&role.ID,
			&role.Name,
			&role.Description,
			&role.ParentID,
			&role.Level,
			&role.CreatedAt,
			&role.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_role_store_list_scan_failed: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_role_store_list_rows_failed: %w", err)
	}

	return roles, nil
}

/*
Update persists the role's mutable fields (name, description).

Parameters:
  - context: context.Context
  - role: *Role

Returns:
  - error: ErrDuplicateName, ErrRoleNotFound, or database errors
*/
func (store *PostgresRoleStore) Update(context context.Context, role *Role) error {
	const query = `
		UPDATE rbac.role
		SET name = $2, description = $3, updatedat = $4
		WHERE id = $1`

	role.UpdatedAt = time.Now()

	tag, err := store.pool.Exec(context, query, role.ID, role.Name, role.Description, role.UpdatedAt)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("postgres_role_store_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}

	return nil
}

/*
UpdateParent rewires a role under a new parent and applies the recomputed
subtree levels in one transaction.

Parameters:
  - context: context.Context
  - roleID: string
  - parentID: *string
  - levels: map[string]int

Returns:
  - error: Database errors
*/
func (store *PostgresRoleStore) UpdateParent(context context.Context, roleID string, parentID *string, levels map[string]int) error {
	transaction, err := store.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_role_store_update_parent_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	now := time.Now()

	if _, err := transaction.Exec(context,
		`UPDATE rbac.role SET parentid = $2, updatedat = $3 WHERE id = $1`,
		roleID, parentID, now,
	); err != nil {
		return fmt.Errorf("postgres_role_store_update_parent_failed: %w", err)
	}

	if err := applyLevels(context, transaction, levels, now); err != nil {
		return err
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_role_store_update_parent_commit_failed: %w", err)
	}

	return nil
}

/*
UpdateLevels applies corrected levels to the given roles in one transaction.

Parameters:
  - context: context.Context
  - levels: map[string]int

Returns:
  - error: Database errors
*/
func (store *PostgresRoleStore) UpdateLevels(context context.Context, levels map[string]int) error {
	transaction, err := store.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_role_store_update_levels_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	if err := applyLevels(context, transaction, levels, time.Now()); err != nil {
		return err
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_role_store_update_levels_commit_failed: %w", err)
	}

	return nil
}

/*
Delete removes a role, re-parents its children, and applies the recomputed
descendant levels in one transaction.

Parameters:
  - context: context.Context
  - roleID: string
  - reparentTo: *string
  - levels: map[string]int

Returns:
  - error: ErrRoleNotFound or database errors
*/
func (store *PostgresRoleStore) Delete(context context.Context, roleID string, reparentTo *string, levels map[string]int) error {
	transaction, err := store.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_role_store_delete_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	now := time.Now()

	// Move children up one generation before the FK target disappears.
	if _, err := transaction.Exec(context,
		`UPDATE rbac.role SET parentid = $2, updatedat = $3 WHERE parentid = $1`,
		roleID, reparentTo, now,
	); err != nil {
		return fmt.Errorf("postgres_role_store_delete_reparent_failed: %w", err)
	}

	if err := applyLevels(context, transaction, levels, now); err != nil {
		return err
	}

	// Grants referencing the role vanish with it (ON DELETE CASCADE).
	tag, err := transaction.Exec(context, `DELETE FROM rbac.role WHERE id = $1`, roleID)
	if err != nil {
		return fmt.Errorf("postgres_role_store_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_role_store_delete_commit_failed: %w", err)
	}

	return nil
}

// applyLevels writes the recomputed levels inside an open transaction.
func applyLevels(context context.Context, transaction pgx.Tx, levels map[string]int, now time.Time) error {
	for roleID, level := range levels {
		if _, err := transaction.Exec(context,
			`UPDATE rbac.role SET level = $2, updatedat = $3 WHERE id = $1`,
			roleID, level, now,
		); err != nil {
			return fmt.Errorf("postgres_role_store_apply_levels_failed: %w", err)
		}
	}
	return nil
}

// scanRole hydrates a single role row and maps pgx.ErrNoRows.
func (store *PostgresRoleStore) scanRole(row pgx.Row, wrapCode string) (*Role, error) {
	role := &Role{}
	err := row.Scan(
		&role.ID,
		&role.Name,
		&role.Description,
		&role.ParentID,
		&role.Level,
		&role.CreatedAt,
		&role.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("%s: %w", wrapCode, err)
	}

	return role, nil
}

// # Permission Store

// PostgresPermissionStore implements the PermissionStore interface using pgx.
type PostgresPermissionStore struct {
	pool *pgxpool.Pool
}

// NewPermissionStore creates a new PostgreSQL implementation of the PermissionStore.
func NewPermissionStore(pool *pgxpool.Pool) *PostgresPermissionStore {
	return &PostgresPermissionStore{pool: pool}
}

/*
Create persists a new permission record into the rbac.permission table.

Parameters:
  - context: context.Context
  - permission: *Permission

Returns:
  - error: ErrDuplicateCode on a code collision, or connectivity errors
*/
func (store *PostgresPermissionStore) Create(context context.Context, permission *Permission) error {
	const query = `
		INSERT INTO rbac.permission (id, code, description, createdat)
		VALUES ($1, $2, $3, $4)`

	if permission.CreatedAt.IsZero() {
		permission.CreatedAt = time.Now()
	}

	_, err := store.pool.Exec(context, query,
		permission.ID,
		permission.Code,
		permission.Description,
		permission.CreatedAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("postgres_permission_store_create_failed: %w", err)
	}

	return nil
}

/*
Get retrieves a permission record by its primary key.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Permission: Hydrated entity
  - error: ErrPermissionNotFound or database errors
*/
func (store *PostgresPermissionStore) Get(context context.Context, id string) (*Permission, error) {
	const query = `
		SELECT id, code, description, createdat
		FROM rbac.permission
		WHERE id = $1`

	return store.scanPermission(store.pool.QueryRow(context, query, id), "postgres_permission_store_get_failed")
}

/*
GetByCode retrieves a permission record by its unique code.

Parameters:
  - context: context.Context
  - code: string

Returns:
  - *Permission: Hydrated entity
  - error: ErrPermissionNotFound or database errors
*/
func (store *PostgresPermissionStore) GetByCode(context context.Context, code string) (*Permission, error) {
	const query = `
		SELECT id, code, description, createdat
		FROM rbac.permission
		WHERE code = $1`

	return store.scanPermission(store.pool.QueryRow(context, query, code), "postgres_permission_store_get_by_code_failed")
}

/*
List retrieves every permission in the catalog.

Parameters:
  - context: context.Context

Returns:
  - []Permission: All permissions
  - error: Database errors
*/
func (store *PostgresPermissionStore) List(context context.Context) ([]Permission, error) {
	const query = `
		SELECT id, code, description, createdat
		FROM rbac.permission`

	rows, err := store.pool.Query(context, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_permission_store_list_failed: %w", err)
	}
	defer rows.Close()

	return collectPermissions(rows, "postgres_permission_store_list_scan_failed")
}

/*
Delete removes a permission; the grant rows follow via ON DELETE CASCADE.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: ErrPermissionNotFound or database errors
*/
func (store *PostgresPermissionStore) Delete(context context.Context, id string) error {
	tag, err := store.pool.Exec(context, `DELETE FROM rbac.permission WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres_permission_store_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPermissionNotFound
	}
	return nil
}

/*
ListForRole retrieves the permissions granted directly to one role.

Parameters:
  - context: context.Context
  - roleID: string

Returns:
  - []Permission: Direct grants only
  - error: Database errors
*/
func (store *PostgresPermissionStore) ListForRole(context context.Context, roleID string) ([]Permission, error) {
	const query = `
		SELECT p.id, p.code, p.description, p.createdat
		FROM rbac.permission p
		INNER JOIN rbac.rolepermission rp ON rp.permissionid = p.id
		WHERE rp.roleid = $1`

	rows, err := store.pool.Query(context, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("postgres_permission_store_list_for_role_failed: %w", err)
	}
	defer rows.Close()

	return collectPermissions(rows, "postgres_permission_store_list_for_role_scan_failed")
}

/*
ListGrants retrieves every direct grant in a single join query.

Parameters:
  - context: context.Context

Returns:
  - map[string][]Permission: Role ID to its direct permissions
  - error: Database errors
*/
func (store *PostgresPermissionStore) ListGrants(context context.Context) (map[string][]Permission, error) {
	const query = `
		SELECT rp.roleid, p.id, p.code, p.description, p.createdat
		FROM rbac.rolepermission rp
		INNER JOIN rbac.permission p ON p.id = rp.permissionid`

	rows, err := store.pool.Query(context, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_permission_store_list_grants_failed: %w", err)
	}
	defer rows.Close()

	grants := make(map[string][]Permission)
	for rows.Next() {
		var roleID string
		var permission Permission
		if err := rows.Scan(&roleID, &permission.ID, &permission.Code, &permission.Description, &permission.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres_permission_store_list_grants_scan_failed: %w", err)
		}
		grants[roleID] = append(grants[roleID], permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_permission_store_list_grants_rows_failed: %w", err)
	}

	return grants, nil
}

/*
Replace swaps a role's complete direct grant set inside one transaction.

Parameters:
  - context: context.Context
  - roleID: string
  - permissionIDs: []string

Returns:
  - error: Database errors
*/
func (store *PostgresPermissionStore) Replace(context context.Context, roleID string, permissionIDs []string) error {
	transaction, err := store.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_permission_store_replace_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	if _, err := transaction.Exec(context,
		`DELETE FROM rbac.rolepermission WHERE roleid = $1`, roleID,
	); err != nil {
		return fmt.Errorf("postgres_permission_store_replace_clear_failed: %w", err)
	}

	for _, permissionID := range permissionIDs {
		if _, err := transaction.Exec(context,
			`INSERT INTO rbac.rolepermission (roleid, permissionid) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			roleID, permissionID,
		); err != nil {
			return fmt.Errorf("postgres_permission_store_replace_insert_failed: %w", err)
		}
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_permission_store_replace_commit_failed: %w", err)
	}

	return nil
}

/*
Remove deletes a single grant row.

Parameters:
  - context: context.Context
  - roleID: string
  - permissionID: string

Returns:
  - bool: Whether a grant was actually removed
  - error: Database errors
*/
func (store *PostgresPermissionStore) Remove(context context.Context, roleID, permissionID string) (bool, error) {
	tag, err := store.pool.Exec(context,
		`DELETE FROM rbac.rolepermission WHERE roleid = $1 AND permissionid = $2`,
		roleID, permissionID,
	)
	if err != nil {
		return false, fmt.Errorf("postgres_permission_store_remove_failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// scanPermission hydrates a single permission row and maps pgx.ErrNoRows.
func (store *PostgresPermissionStore) scanPermission(row pgx.Row, wrapCode string) (*Permission, error) {
	permission := &Permission{}
	err := row.Scan(
		&permission.ID,
		&permission.Code,
		&permission.Description,
		&permission.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("%s: %w", wrapCode, err)
	}

	return permission, nil
}

// collectPermissions drains a permission result set.
func collectPermissions(rows pgx.Rows, wrapCode string) ([]Permission, error) {
	var permissions []Permission
	for rows.Next() {
		var permission Permission
		if err := rows.Scan(&permission.ID, &permission.Code, &permission.Description, &permission.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", wrapCode, err)
		}
		permissions = append(permissions, permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", wrapCode, err)
	}

	return permissions, nil
}
