// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package rbac implements hierarchical role-based access control.

Roles form a forest: every role has at most one parent and inherits the
permissions of its entire ancestor chain. The package owns the role and
permission catalogs, the hierarchy mutations (create, re-parent, delete),
and the resolution queries built on top of them (effective permissions,
hierarchy paths, grant lookups, integrity checks).

Architecture:

  - Service: Orchestrates hierarchy logic and serializes mutations.
  - Stores: Abstracted interfaces for Postgres (primary) and memory (tests, dev).
  - Levels: Each role caches its depth; mutations cascade recomputed depths
    to every descendant in a single store call.
*/
package rbac

import "time"

// # Core Entities

// Role is a named node in the permission hierarchy.
//
// Level caches the role's depth: 0 for roots, parent.Level+1 otherwise.
// It is derived data; the parent reference is the source of truth.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ParentID    *string   `json:"parent_id,omitempty"`
	Level       int       `json:"level"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission is a single grantable capability, identified by a
// resource:action code.
type Permission struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// # Resolution Views

// PathEntry is one hop in a role's hierarchy path, ordered root first.
type PathEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// TreeNode is a role with its resolved permissions and children, used to
// render the full hierarchy.
type TreeNode struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Description       string      `json:"description,omitempty"`
	Level             int         `json:"level"`
	DirectPermissions []string    `json:"direct_permissions"`
	AllPermissions    []string    `json:"all_permissions"`
	Children          []*TreeNode `json:"children"`
}

// RoleDetail is the full read model for a single role: its own grants, the
// grants it inherits, and its position in the hierarchy.
type RoleDetail struct {
	Role                 Role         `json:"role"`
	ParentName           string       `json:"parent_name,omitempty"`
	DirectPermissions    []Permission `json:"direct_permissions"`
	InheritedPermissions []Permission `json:"inherited_permissions"`
	AllPermissions       []Permission `json:"all_permissions"`
	HierarchyPath        []PathEntry  `json:"hierarchy_path"`
	Children             []PathEntry  `json:"children"`
}

// GrantInfo describes how one role comes to hold a permission.
type GrantInfo struct {
	RoleID string `json:"role_id"`
	Name   string `json:"name"`
	Level  int    `json:"level"`

	// Direct is true when the role holds the permission itself rather than
	// through an ancestor.
	Direct bool `json:"direct"`

	// InheritedFrom names the nearest ancestor granting the permission.
	// Empty for direct grants.
	InheritedFrom string `json:"inherited_from,omitempty"`
}

// # Integrity Reporting

// Integrity issue kinds reported by ValidateIntegrity.
const (
	IssueCircularReference = "circular_reference"
	IssueMissingParent     = "missing_parent"
	IssueIncorrectLevel    = "incorrect_level"
)

// IntegrityIssue is a single defect found in the stored hierarchy.
type IntegrityIssue struct {
	Kind          string `json:"kind"`
	RoleID        string `json:"role_id"`
	RoleName      string `json:"role_name"`
	CurrentLevel  int    `json:"current_level,omitempty"`
	ExpectedLevel int    `json:"expected_level,omitempty"`
	Description   string `json:"description"`
}
