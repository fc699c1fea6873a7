package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kocrou/internal/domain"
)

const actorKey = "actor"

// Authenticator resolves a bearer token to the calling user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Actor, error)
}

// Protect requires a valid access token from the Authorization header or,
// for EventSource clients that cannot set headers, the token query param.
func Protect(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := auth.Authenticate(c.Request.Context(), bearerToken(c))
		if err != nil {
			var ue domain.UnauthorizedError
			if errors.As(err, &ue) {
				abortAuth(c, http.StatusUnauthorized, ue.Code, authMessage(ue.Code))
				return
			}
			abortAuth(c, http.StatusInternalServerError, "", "erreur lors de la vérification du token")
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// AdminOnly must run after Protect.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok || !actor.IsAdmin {
			abortAuth(c, http.StatusForbidden, domain.CodeAdminRequired, "accès réservé aux administrateurs")
			return
		}
		c.Next()
	}
}

func CurrentActor(c *gin.Context) (domain.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return domain.Actor{}, false
	}
	actor, ok := v.(domain.Actor)
	return actor, ok
}

func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(c.Query("token"))
}

func authMessage(code string) string {
	switch code {
	case domain.CodeNoToken:
		return "accès refusé : aucun token fourni"
	case domain.CodeTokenExpired:
		return "session expirée, veuillez vous reconnecter"
	case domain.CodeUserNotFound:
		return "utilisateur introuvable"
	default:
		return "token invalide"
	}
}

func abortAuth(c *gin.Context, status int, code, message string) {
	payload := gin.H{"message": message, "request_id": GetRequestID(c)}
	if code != "" {
		payload["errorCode"] = code
	}
	c.AbortWithStatusJSON(status, payload)
}
