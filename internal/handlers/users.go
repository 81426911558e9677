package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"plancore/api/internal/httpx"
	"plancore/api/internal/repository"
)

type adminUserResponse struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	FullName         string `json:"fullName"`
	RoleCode         string `json:"roleCode"`
	IsActive         bool   `json:"isActive"`
	IsLocked         bool   `json:"isLocked"`
	FailedLoginCount int    `json:"failedLoginCount"`
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	limit, offset := pageParams(c, 50, 200)

	users, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list users")
		httpx.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	items := make([]adminUserResponse, 0, len(users))
	for _, user := range users {
		items = append(items, adminUserResponse{
			ID:               user.ID,
			Username:         user.Username,
			Email:            user.Email,
			FullName:         user.FullName,
			RoleCode:         user.Role.Code,
			IsActive:         user.IsActive,
			IsLocked:         user.IsLocked,
			FailedLoginCount: user.FailedLoginCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) UnlockUser(c *gin.Context) {
	if err := h.users.Unlock(c.Request.Context(), c.Param("id")); err != nil {
		h.userUpdateError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) ActivateUser(c *gin.Context) {
	if err := h.users.SetActive(c.Request.Context(), c.Param("id"), true); err != nil {
		h.userUpdateError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) DeactivateUser(c *gin.Context) {
	if err := h.users.SetActive(c.Request.Context(), c.Param("id"), false); err != nil {
		h.userUpdateError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) userUpdateError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrUserNotFound) {
		httpx.Error(c, http.StatusNotFound, "user not found")
		return
	}
	h.log.Error().Err(err).Str("user_id", c.Param("id")).Msg("update user")
	httpx.Error(c, http.StatusInternalServerError, "internal server error")
}

func pageParams(c *gin.Context, defaultLimit int, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= maxLimit {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}
	return limit, offset
}
