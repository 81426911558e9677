package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"plancore/api/internal/httpx"
	"plancore/api/internal/ids"
	"plancore/api/internal/models"
	"plancore/api/internal/repository"
)

type roleResponse struct {
	ID          string               `json:"id"`
	Code        string               `json:"code"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"isSystem"`
	IsActive    bool                 `json:"isActive"`
	Permissions []permissionResponse `json:"permissions,omitempty"`
}

type permissionResponse struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Module   string `json:"module"`
	IsActive bool   `json:"isActive"`
}

func (h HandlerSet) ListRoles(c *gin.Context) {
	roles, err := h.roles.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list roles")
		httpx.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	items := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		permissions, err := h.roles.PermissionsByRole(c.Request.Context(), role.ID)
		if err != nil {
			h.log.Error().Err(err).Str("role_id", role.ID).Msg("list role permissions")
			httpx.Error(c, http.StatusInternalServerError, "internal server error")
			return
		}
		items = append(items, toRoleResponse(role, permissions))
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

type createRoleRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h HandlerSet) CreateRole(c *gin.Context) {
	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, "code and name are required")
		return
	}

	role := models.Role{
		ID:          ids.New(),
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		IsSystem:    false,
		IsActive:    true,
	}

	if err := h.roles.Create(c.Request.Context(), role); err != nil {
		h.log.Error().Err(err).Str("code", req.Code).Msg("create role")
		httpx.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	c.JSON(http.StatusCreated, toRoleResponse(role, nil))
}

type updateRoleRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsActive    bool   `json:"isActive"`
}

func (h HandlerSet) UpdateRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, "code and name are required")
		return
	}

	role := models.Role{
		ID:          c.Param("id"),
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	}

	if err := h.roles.Update(c.Request.Context(), role); err != nil {
		h.roleUpdateError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) DeleteRole(c *gin.Context) {
	if err := h.roles.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.roleUpdateError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type replacePermissionsRequest struct {
	PermissionIDs []string `json:"permissionIds"`
}

// ReplaceRolePermissions swaps the role's permission set wholesale. Takes
// effect on each principal's next request; tokens stay valid.
func (h HandlerSet) ReplaceRolePermissions(c *gin.Context) {
	var req replacePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, "permissionIds is required")
		return
	}

	if err := h.roles.ReplacePermissions(c.Request.Context(), c.Param("id"), req.PermissionIDs); err != nil {
		h.roleUpdateError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) ListPermissions(c *gin.Context) {
	permissions, err := h.roles.ListPermissions(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list permissions")
		httpx.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	// Grouped by module for the admin UI.
	grouped := make(map[string][]permissionResponse)
	for _, p := range permissions {
		grouped[p.Module] = append(grouped[p.Module], toPermissionResponse(p))
	}

	c.JSON(http.StatusOK, gin.H{"modules": grouped})
}

func (h HandlerSet) roleUpdateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrRoleNotFound):
		httpx.Error(c, http.StatusNotFound, "role not found")
	case errors.Is(err, repository.ErrSystemRole):
		httpx.Error(c, http.StatusConflict, "system roles cannot be modified this way")
	default:
		h.log.Error().Err(err).Str("role_id", c.Param("id")).Msg("update role")
		httpx.Error(c, http.StatusInternalServerError, "internal server error")
	}
}

func toRoleResponse(role models.Role, permissions []models.Permission) roleResponse {
	resp := roleResponse{
		ID:          role.ID,
		Code:        role.Code,
		Name:        role.Name,
		Description: role.Description,
		IsSystem:    role.IsSystem,
		IsActive:    role.IsActive,
	}
	for _, p := range permissions {
		resp.Permissions = append(resp.Permissions, toPermissionResponse(p))
	}
	return resp
}

func toPermissionResponse(p models.Permission) permissionResponse {
	return permissionResponse{
		ID:       p.ID,
		Code:     p.Code,
		Name:     p.Name,
		Module:   p.Module,
		IsActive: p.IsActive,
	}
}
