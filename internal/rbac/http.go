// Copyright (c) 2026 Aegis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/aegis/internal/platform/constants"
	"github.com/taibuivan/aegis/internal/platform/middleware"
	requestutil "github.com/taibuivan/aegis/internal/platform/request"
	"github.com/taibuivan/aegis/internal/platform/respond"
	"github.com/taibuivan/aegis/pkg/pagination"
)

// Handler implements the HTTP layer for role hierarchy and permission
// catalog management. Every endpoint is gated by an administrative
// permission resolved through the hierarchy itself.
type Handler struct {
	service    *Service
	authorizer middleware.Authorizer
}

// NewHandler constructs a new rbac [Handler].
func NewHandler(service *Service, authorizer middleware.Authorizer) *Handler {
	return &Handler{service: service, authorizer: authorizer}
}

// RoleRoutes returns a [chi.Router] configured with the role hierarchy endpoints.
func (handler *Handler) RoleRoutes() chi.Router {
	router := chi.NewRouter()

	readGate := middleware.RequirePermissions(handler.authorizer, constants.PermRolesRead)
	writeGate := middleware.RequirePermissions(handler.authorizer, constants.PermRolesWrite)

	router.Group(func(router chi.Router) {
		router.Use(readGate)

		router.Get("/", handler.listRoles)
		router.Get("/tree", handler.getTree)
		router.Get("/validate", handler.validateHierarchy)
		router.Get("/granting/{code}", handler.findGranting)
		router.Get("/{id}", handler.getRole)
		router.Get("/{id}/path", handler.getPath)
		router.Get("/{id}/permissions", handler.listRolePermissions)
		router.Get("/{id}/permissions/effective", handler.listEffectivePermissions)
	})

	router.Group(func(router chi.Router) {
		router.Use(writeGate)

		router.Post("/", handler.createRole)
		router.Post("/fix-levels", handler.fixLevels)
		router.Patch("/{id}", handler.updateRole)
		router.Delete("/{id}", handler.deleteRole)
		router.Put("/{id}/parent", handler.setParent)
		router.Put("/{id}/permissions", handler.assignPermissions)
		router.Delete("/{id}/permissions/{permissionID}", handler.removePermission)
	})

	return router
}

// PermissionRoutes returns a [chi.Router] configured with the permission
// catalog endpoints.
func (handler *Handler) PermissionRoutes() chi.Router {
	router := chi.NewRouter()

	readGate := middleware.RequirePermissions(handler.authorizer, constants.PermPermissionsRead)
	writeGate := middleware.RequirePermissions(handler.authorizer, constants.PermPermissionsWrite)

	router.Group(func(router chi.Router) {
		router.Use(readGate)

		router.Get("/", handler.listPermissions)
		router.Get("/{id}", handler.getPermission)
	})

	router.Group(func(router chi.Router) {
		router.Use(writeGate)

		router.Post("/", handler.createPermission)
		router.Delete("/{id}", handler.deletePermission)
	})

	return router
}

// # Role Endpoints

// createRoleRequest defines the expected JSON payload for role creation.
type createRoleRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id"`
}

/*
POST /api/v1/roles.

Description: Creates a new role, optionally attached under a parent.

Request:
  - body: createRoleRequest

Response:
  - 201: Role: Created role with its derived level
  - 400: Validation: Invalid name or description
  - 404: ErrParentNotFound: Referenced parent does not exist
  - 409: ErrDuplicateName: Role name already taken
*/
func (handler *Handler) createRole(writer http.ResponseWriter, request *http.Request) {
	var input createRoleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.service.CreateRole(request.Context(), CreateRoleInput{
		Name:        input.Name,
		Description: input.Description,
		ParentID:    input.ParentID,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, role)
}

/*
GET /api/v1/roles.

Description: Lists all roles ordered by level, then name.

Response:
  - 200: []Role: Flat role listing
*/
func (handler *Handler) listRoles(writer http.ResponseWriter, request *http.Request) {
	roles, err := handler.service.ListRoles(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, roles)
}

/*
GET /api/v1/roles/{id}.

Description: Retrieves the full read model of a role: direct, inherited, and
effective permissions plus its position in the hierarchy.

Response:
  - 200: RoleDetail
  - 404: ErrRoleNotFound
*/
func (handler *Handler) getRole(writer http.ResponseWriter, request *http.Request) {
	detail, err := handler.service.RoleDetail(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, detail)
}

// updateRoleRequest defines the expected JSON payload for partial role updates.
type updateRoleRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

/*
PATCH /api/v1/roles/{id}.

Description: Applies partial updates to a role's name and description.
Hierarchy placement is changed through the parent endpoint instead.

Request:
  - body: updateRoleRequest

Response:
  - 200: Role: The updated role
  - 404: ErrRoleNotFound
  - 409: ErrDuplicateName
*/
func (handler *Handler) updateRole(writer http.ResponseWriter, request *http.Request) {
	var input updateRoleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.service.UpdateRole(request.Context(), requestutil.ID(request, "id"), UpdateRoleInput{
		Name:        input.Name,
		Description: input.Description,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, role)
}

/*
DELETE /api/v1/roles/{id}.

Description: Deletes a role. Its children are re-attached to the deleted
role's parent and their levels recomputed.

Response:
  - 204: No Content
  - 404: ErrRoleNotFound
*/
func (handler *Handler) deleteRole(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.DeleteRole(request.Context(), requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// setParentRequest defines the payload to move a role. A null parent_id
// detaches the role to the root level.
type setParentRequest struct {
	ParentID *string `json:"parent_id"`
}

/*
PUT /api/v1/roles/{id}/parent.

Description: Moves a role (and its entire subtree) under a new parent, or
detaches it to the root. Moves that would make a role its own ancestor are
rejected.

Request:
  - body: setParentRequest

Response:
  - 200: Role: The role at its new position
  - 404: ErrRoleNotFound/ErrParentNotFound
  - 409: ErrCycleDetected: Move would create a circular reference
*/
func (handler *Handler) setParent(writer http.ResponseWriter, request *http.Request) {
	var input setParentRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	role, err := handler.service.SetParent(request.Context(), requestutil.ID(request, "id"), input.ParentID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, role)
}

/*
GET /api/v1/roles/{id}/path.

Description: Returns the ancestor chain of a role from the root down to the
role itself.

Response:
  - 200: []PathEntry
  - 404: ErrRoleNotFound
*/
func (handler *Handler) getPath(writer http.ResponseWriter, request *http.Request) {
	path, err := handler.service.HierarchyPath(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, path)
}

/*
GET /api/v1/roles/tree.

Description: Renders the complete role forest with direct and accumulated
permissions per node.

Response:
  - 200: []TreeNode
*/
func (handler *Handler) getTree(writer http.ResponseWriter, request *http.Request) {
	tree, err := handler.service.HierarchyTree(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, tree)
}

/*
GET /api/v1/roles/granting/{code}.

Description: Lists every role that holds the given permission, marking
whether the grant is direct or inherited, and from which ancestor.

Response:
  - 200: []GrantInfo: Possibly empty
*/
func (handler *Handler) findGranting(writer http.ResponseWriter, request *http.Request) {
	granting, err := handler.service.FindRolesGranting(request.Context(), chi.URLParam(request, "code"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, granting)
}

// # Hierarchy Maintenance Endpoints

// integrityResponse reports the outcome of a hierarchy consistency scan.
type integrityResponse struct {
	Valid  bool             `json:"valid"`
	Issues []IntegrityIssue `json:"issues"`
}

/*
GET /api/v1/roles/validate.

Description: Scans the hierarchy for circular references, dangling parents,
and stale cached levels.

Response:
  - 200: integrityResponse
*/
func (handler *Handler) validateHierarchy(writer http.ResponseWriter, request *http.Request) {
	issues, err := handler.service.ValidateIntegrity(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, integrityResponse{Valid: len(issues) == 0, Issues: issues})
}

// fixLevelsResponse reports how many cached levels were rewritten.
type fixLevelsResponse struct {
	Fixed int `json:"fixed"`
}

/*
POST /api/v1/roles/fix-levels.

Description: Recomputes every role's level top-down from the roots and
persists the corrections.

Response:
  - 200: fixLevelsResponse
*/
func (handler *Handler) fixLevels(writer http.ResponseWriter, request *http.Request) {
	fixed, err := handler.service.FixLevels(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, fixLevelsResponse{Fixed: fixed})
}

// # Role Grant Endpoints

/*
GET /api/v1/roles/{id}/permissions.

Description: Lists the permissions granted directly to a role, excluding
anything inherited.

Response:
  - 200: []Permission
  - 404: ErrRoleNotFound
*/
func (handler *Handler) listRolePermissions(writer http.ResponseWriter, request *http.Request) {
	permissions, err := handler.service.RolePermissions(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, permissions)
}

/*
GET /api/v1/roles/{id}/permissions/effective.

Description: Lists the full resolved permission set of a role, direct grants
unioned with everything inherited from its ancestor chain.

Response:
  - 200: []Permission
  - 404: ErrRoleNotFound
*/
func (handler *Handler) listEffectivePermissions(writer http.ResponseWriter, request *http.Request) {
	permissions, err := handler.service.EffectivePermissions(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, permissions)
}

// assignPermissionsRequest defines the full replacement grant set for a role.
type assignPermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids"`
}

/*
PUT /api/v1/roles/{id}/permissions.

Description: Replaces the role's direct grants with the given set. The
assignment is all-or-nothing: one unknown permission ID rejects the request.

Request:
  - body: assignPermissionsRequest

Response:
  - 200: []Permission: The new direct grant set
  - 404: ErrRoleNotFound/ErrPermissionNotFound
*/
func (handler *Handler) assignPermissions(writer http.ResponseWriter, request *http.Request) {
	var input assignPermissionsRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	assigned, err := handler.service.AssignPermissions(request.Context(), requestutil.ID(request, "id"), input.PermissionIDs)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, assigned)
}

/*
DELETE /api/v1/roles/{id}/permissions/{permissionID}.

Description: Revokes a single direct grant from a role.

Response:
  - 204: No Content
  - 404: ErrRoleNotFound/ErrPermissionNotFound: Role missing or grant absent
*/
func (handler *Handler) removePermission(writer http.ResponseWriter, request *http.Request) {
	roleID := requestutil.ID(request, "id")
	permissionID := chi.URLParam(request, "permissionID")

	if err := handler.service.RemovePermission(request.Context(), roleID, permissionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Permission Catalog Endpoints

// createPermissionRequest defines the expected JSON payload for permission creation.
type createPermissionRequest struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

/*
POST /api/v1/permissions.

Description: Registers a new permission in the catalog. Codes follow the
resource:action form.

Request:
  - body: createPermissionRequest

Response:
  - 201: Permission
  - 400: Validation: Malformed code
  - 409: ErrDuplicateCode
*/
func (handler *Handler) createPermission(writer http.ResponseWriter, request *http.Request) {
	var input createPermissionRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	permission, err := handler.service.CreatePermission(request.Context(), CreatePermissionInput{
		Code:        input.Code,
		Description: input.Description,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, permission)
}

/*
GET /api/v1/permissions.

Description: Lists the permission catalog ordered by code, paginated through
the standard page/limit query parameters.

Response:
  - 200: []Permission with pagination metadata
*/
func (handler *Handler) listPermissions(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	permissions, err := handler.service.ListPermissions(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	total := len(permissions)
	start := min(params.Offset(), total)
	end := min(start+params.Limit, total)

	respond.Paginated(writer, permissions[start:end], pagination.NewMeta(params.Page, params.Limit, total))
}

/*
GET /api/v1/permissions/{id}.

Description: Retrieves a single catalog permission.

Response:
  - 200: Permission
  - 404: ErrPermissionNotFound
*/
func (handler *Handler) getPermission(writer http.ResponseWriter, request *http.Request) {
	permission, err := handler.service.GetPermission(request.Context(), requestutil.ID(request, "id"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, permission)
}

/*
DELETE /api/v1/permissions/{id}.

Description: Removes a permission from the catalog along with every role
grant that references it.

Response:
  - 204: No Content
  - 404: ErrPermissionNotFound
*/
func (handler *Handler) deletePermission(writer http.ResponseWriter, request *http.Request) {
	if err := handler.service.DeletePermission(request.Context(), requestutil.ID(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
