// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"net/http"

	"github.com/taibuivan/aegis/internal/platform/apperr"
)

// Domain error sentinels. Handlers pass them straight to respond.Error;
// services compare with errors.Is (AppError matches by code).
var (
	// ErrRoleNotFound means the referenced role does not exist.
	ErrRoleNotFound = apperr.New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)

	// ErrParentNotFound means the referenced parent role does not exist.
	ErrParentNotFound = apperr.New("PARENT_NOT_FOUND", "Parent role not found", http.StatusNotFound)

	// ErrDuplicateName means another role already carries the requested name.
	ErrDuplicateName = apperr.New("DUPLICATE_NAME", "Role name is already taken", http.StatusConflict)

	// ErrCycleDetected means the requested re-parenting would make a role
	// its own ancestor. The hierarchy is left untouched.
	ErrCycleDetected = apperr.New("CYCLE_DETECTED", "Setting this parent would create a circular reference", http.StatusConflict)

	// ErrPermissionNotFound means the referenced permission does not exist.
	ErrPermissionNotFound = apperr.New("PERMISSION_NOT_FOUND", "Permission not found", http.StatusNotFound)

	// ErrDuplicateCode means another permission already carries the requested code.
	ErrDuplicateCode = apperr.New("DUPLICATE_CODE", "Permission code is already taken", http.StatusConflict)
)
