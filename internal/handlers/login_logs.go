package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"plancore/api/internal/httpx"
)

type loginLogResponse struct {
	ID           string    `json:"id"`
	UserID       *string   `json:"userId"`
	Username     string    `json:"username"`
	LoginType    string    `json:"loginType"`
	IPAddress    string    `json:"ipAddress"`
	UserAgent    string    `json:"userAgent"`
	FailedReason string    `json:"failedReason,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (h HandlerSet) ListLoginLogs(c *gin.Context) {
	limit, offset := pageParams(c, 50, 500)

	entries, err := h.loginLogs.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list login logs")
		httpx.Error(c, http.StatusInternalServerError, "internal server error")
		return
	}

	items := make([]loginLogResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, loginLogResponse{
			ID:           entry.ID,
			UserID:       entry.UserID,
			Username:     entry.Username,
			LoginType:    string(entry.LoginType),
			IPAddress:    entry.IPAddress,
			UserAgent:    entry.UserAgent,
			FailedReason: entry.FailedReason,
			CreatedAt:    entry.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
