package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *App) ListUsers(c *gin.Context) {
	users, err := a.users(c).List(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "total": len(users), "data": users})
}

func (a *App) PromoteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := a.users(c).Promote(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Utilisateur promu admin ✅", "data": u})
}

func (a *App) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := a.users(c).Delete(c.Request.Context(), actor(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Utilisateur supprimé."})
}
