// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package access composes token verification, principal lookup, and role
hierarchy resolution into a single authorization decision.

# Architecture

The [Controller] sits between the HTTP middleware and the rbac domain. The
middleware verifies the token and hands over the claims; the controller
resolves the subject into an account, walks the account's role up the
hierarchy, and evaluates the required-permission predicate. A request is
authorized only when both halves hold: a cryptographically valid, unrevoked
token AND a role chain that grants the demanded permissions.
*/
package access

import (
	"context"
	"fmt"

	"github.com/taibuivan/aegis/internal/platform/apperr"
	"github.com/taibuivan/aegis/internal/platform/sec"
	"github.com/taibuivan/aegis/internal/rbac"
	"github.com/taibuivan/aegis/internal/users/auth"
	"github.com/taibuivan/aegis/pkg/slice"
)

// # Contracts

// PrincipalSource resolves an authenticated subject into an account.
type PrincipalSource interface {
	FindByID(context context.Context, id string) (*auth.User, error)
}

// PermissionResolver walks a role's ancestor chain into its effective
// permission set. Satisfied by the rbac service.
type PermissionResolver interface {
	EffectivePermissions(context context.Context, roleID string) ([]rbac.Permission, error)
}

// Controller implements the authorization decision for the middleware's
// Authorizer contract.
type Controller struct {
	principals PrincipalSource
	resolver   PermissionResolver
}

// NewController constructs a new [Controller].
func NewController(principals PrincipalSource, resolver PermissionResolver) *Controller {
	return &Controller{principals: principals, resolver: resolver}
}

// # Authorization Decision

/*
AuthorizeAll fails unless the caller holds every listed permission.

Description: Resolves the subject into an active account, unions the direct
and inherited grants of its role, and demands the full required set. An
empty required set authorizes any authenticated active account.

Parameters:
  - context: context.Context
  - claims: *sec.Claims (nil means anonymous)
  - permissions: ...string

Returns:
  - error: apperr.Unauthorized, apperr.Forbidden, or resolution failures
*/
func (controller *Controller) AuthorizeAll(context context.Context, claims *sec.Claims, permissions ...string) error {
	granted, err := controller.effectiveSet(context, claims)
	if err != nil {
		return err
	}

	for _, permission := range permissions {
		if !granted[permission] {
			return apperr.Forbidden("Insufficient permissions")
		}
	}
	return nil
}

/*
AuthorizeAny fails unless the caller holds at least one listed permission.

Parameters:
  - context: context.Context
  - claims: *sec.Claims (nil means anonymous)
  - permissions: ...string

Returns:
  - error: apperr.Unauthorized, apperr.Forbidden, or resolution failures
*/
func (controller *Controller) AuthorizeAny(context context.Context, claims *sec.Claims, permissions ...string) error {
	granted, err := controller.effectiveSet(context, claims)
	if err != nil {
		return err
	}

	if len(permissions) == 0 {
		return nil
	}

	for _, permission := range permissions {
		if granted[permission] {
			return nil
		}
	}
	return apperr.Forbidden("Insufficient permissions")
}

// effectiveSet authenticates the claims against the account store and
// resolves the account's role into its effective permission set. A user
// without a role authenticates fine but holds no permissions.
func (controller *Controller) effectiveSet(context context.Context, claims *sec.Claims) (map[string]bool, error) {
	if claims == nil || claims.Subject == "" {
		return nil, apperr.Unauthorized("Authentication required")
	}

	user, err := controller.principals.FindByID(context, claims.Subject)
	if err != nil {
		// The token outlived its account; treat it like any other bad token.
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	if user.Status != auth.StatusActive {
		return nil, apperr.Unauthorized("Account is not active")
	}

	if user.RoleID == nil {
		return map[string]bool{}, nil
	}

	resolved, err := controller.resolver.EffectivePermissions(context, *user.RoleID)
	if err != nil {
		return nil, fmt.Errorf("access_controller_resolve_failed: %w", err)
	}

	codes := slice.Map(resolved, func(permission rbac.Permission) string { return permission.Code })
	granted := make(map[string]bool, len(codes))
	for _, code := range codes {
		granted[code] = true
	}
	return granted, nil
}
