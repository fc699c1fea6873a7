package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
	"kocrou/internal/http/middleware"
	"kocrou/internal/services"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *App) Register(c *gin.Context) {
	var req registerRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	u, err := a.auth(middleware.GetRequestID(c)).Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Inscription réussie ✅",
		"user":    gin.H{"id": u.ID, "name": u.Name, "email": u.Email},
	})
}

func (a *App) Login(c *gin.Context) {
	var req loginRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		RespondError(c, http.StatusBadRequest, "e-mail et mot de passe requis", nil)
		return
	}
	rid := middleware.GetRequestID(c)
	sess, err := a.auth(rid).Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if domain.IsUnauthorized(err) {
			a.activity(rid).Record(c.Request.Context(), services.ActivityEntry{
				Type:      models.LogSecurity,
				Action:    "Échec de connexion",
				Details:   "Mot de passe incorrect pour " + strings.ToLower(strings.TrimSpace(req.Email)),
				IPAddress: c.ClientIP(),
				UserAgent: c.Request.UserAgent(),
			})
		}
		RespondDomainError(c, err)
		return
	}
	a.activity(rid).Record(c.Request.Context(), services.ActivityEntry{
		Actor:     &domain.Actor{UserID: sess.User.ID, Email: sess.User.Email, Name: sess.User.Name, IsAdmin: sess.User.IsAdmin},
		Type:      models.LogLogin,
		Action:    "Connexion",
		Details:   "Connexion de " + sess.User.Email,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	c.JSON(http.StatusOK, gin.H{
		"message":      "Connexion réussie ✅",
		"token":        sess.Token,
		"refreshToken": sess.RefreshToken,
		"user":         sess.User,
	})
}

func (a *App) Refresh(c *gin.Context) {
	var req refreshRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		RespondError(c, http.StatusBadRequest, "Refresh token manquant.", nil)
		return
	}
	token, err := a.auth(middleware.GetRequestID(c)).Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if domain.IsUnauthorized(err) || domain.IsNotFound(err) {
			RespondError(c, http.StatusUnauthorized, "Token invalide ou expiré.", nil)
			return
		}
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "message": "Token régénéré avec succès."})
}

func (a *App) Me(c *gin.Context) {
	u, err := a.auth(middleware.GetRequestID(c)).Profile(c.Request.Context(), actor(c).UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u.ToPublic()})
}
