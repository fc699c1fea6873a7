package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kocrou/internal/domain/models"
)

func (a *App) GetSettings(c *gin.Context) {
	s, err := a.settings(c).Get(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (a *App) UpdateSettings(c *gin.Context) {
	var p models.SettingsPatch
	if !BindJSONOrError(c, &p) {
		return
	}
	s, err := a.settings(c).Update(c.Request.Context(), p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Paramètres mis à jour avec succès ✅", "data": s})
}
