package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
	"kocrou/internal/services"
)

var activityIgnoredPrefixes = []string{"/api/reports"}

// ActivityRecorder is satisfied by services.ActivityService.
type ActivityRecorder interface {
	Record(ctx context.Context, e services.ActivityEntry)
}

// ActivityLogger journals every mutating request made by an admin. It runs
// after the handler and never changes the response.
func ActivityLogger(newRecorder func(requestID string) ActivityRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		actor, ok := CurrentActor(c)
		if !ok || !actor.IsAdmin || c.Request.Method == http.MethodGet {
			return
		}
		path := c.Request.URL.Path
		for _, p := range activityIgnoredPrefixes {
			if strings.HasPrefix(path, p) {
				return
			}
		}

		logType := models.LogInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			logType = models.LogError
		}
		action := c.Request.Method + " " + c.Request.URL.RequestURI()
		newRecorder(GetRequestID(c)).Record(c.Request.Context(), services.ActivityEntry{
			Actor:     &actor,
			Type:      logType,
			Action:    action,
			Details:   fmt.Sprintf("Admin %s a effectué une requête %s (statut %d)", displayName(actor), action, c.Writer.Status()),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
	}
}

func displayName(a domain.Actor) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}
