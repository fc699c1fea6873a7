package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "API Kocrou en ligne"})
}

func (a *App) DBCheck(c *gin.Context) {
	if a.DB == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "base de données non connectée"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := a.DB.PingContext(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "échec de connexion à la base: " + err.Error()})
		return
	}
	counts, err := a.allocator(c).CountByStatus(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "connexion base de données OK", "reservations": counts})
}

// Routes lists the mounted routes of the engine passed at construction.
func Routes(r *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		routes := r.Routes()
		out := make([]gin.H, 0, len(routes))
		for _, rt := range routes {
			out = append(out, gin.H{"method": rt.Method, "path": rt.Path})
		}
		c.JSON(http.StatusOK, gin.H{"routes": out})
	}
}
