package httpx

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorEnvelope is the uniform failure body for every 4xx/5xx produced by
// the auth boundary.
type ErrorEnvelope struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

// Error writes the envelope without aborting the handler chain.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, envelope(c, status, message))
}

// AbortError writes the envelope and stops the handler chain.
func AbortError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope(c, status, message))
}

func envelope(c *gin.Context, status int, message string) ErrorEnvelope {
	return ErrorEnvelope{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      c.Request.URL.Path,
	}
}
