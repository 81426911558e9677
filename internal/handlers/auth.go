package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"plancore/api/internal/httpx"
	"plancore/api/internal/middleware"
	"plancore/api/internal/models"
	"plancore/api/internal/service"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"tokenType"`
	User      userResponse `json:"user"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	RoleCode string `json:"roleCode"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Error(c, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), service.LoginInput{
		Login:     req.Username,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.Error(c, http.StatusUnauthorized, "invalid username or password")
		case errors.Is(err, service.ErrAccountLocked):
			httpx.Error(c, http.StatusForbidden, "account is locked")
		case errors.Is(err, service.ErrAccountInactive):
			httpx.Error(c, http.StatusForbidden, "account is inactive")
		default:
			h.log.Error().Err(err).Str("login", req.Username).Msg("login failed")
			httpx.Error(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		User:      toUserResponse(result.User),
	})
}

// Me returns the current principal together with its resolved authorities.
func (h HandlerSet) Me(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		httpx.Error(c, http.StatusUnauthorized, "authentication required")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":      principal.UserID,
		"username":    principal.Username,
		"roleCode":    principal.RoleCode,
		"authorities": middleware.AuthoritiesFrom(c),
	})
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		RoleCode: user.Role.Code,
	}
}
