package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kocrou/internal/http/middleware"
)

// ListLogs returns the 100 newest journal entries, optionally by ?type=.
func (a *App) ListLogs(c *gin.Context) {
	logs, err := a.activity(middleware.GetRequestID(c)).List(c.Request.Context(), c.Query("type"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (a *App) ClearLogs(c *gin.Context) {
	n, err := a.activity(middleware.GetRequestID(c)).Clear(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": n, "message": "Journal vidé."})
}
