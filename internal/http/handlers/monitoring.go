package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kocrou/internal/events"
	"kocrou/internal/http/middleware"
	"kocrou/internal/presence"
	"kocrou/internal/utils"
)

const (
	defaultStreamPing = 25 * time.Second
	recentLimit       = 10
)

type monitoringUpdate struct {
	AdminCount int              `json:"adminCount"`
	Admins     []presence.Admin `json:"admins"`
}

func (a *App) connectedAdmins(ctx context.Context) []presence.Admin {
	if a.Presence == nil {
		return []presence.Admin{}
	}
	admins, err := a.Presence.List(ctx)
	if err != nil {
		utils.LogEvent("", "monitoring", "presence_list_failed", err.Error())
		return []presence.Admin{}
	}
	return admins
}

// Monitoring returns the connected admins and the latest confirmed bookings.
func (a *App) Monitoring(c *gin.Context) {
	admins := a.connectedAdmins(c.Request.Context())
	recent, err := a.allocator(c).RecentConfirmed(c.Request.Context(), recentLimit)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	streams := 0
	if a.Hub != nil {
		streams = a.Hub.Subscribers()
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"connectedAdmins":    len(admins),
		"admins":             admins,
		"openStreams":        streams,
		"recentReservations": recent,
	})
}

// MonitoringPing refreshes the caller's presence heartbeat.
func (a *App) MonitoringPing(c *gin.Context) {
	if a.Presence != nil {
		if err := a.Presence.Touch(c.Request.Context(), actor(c).UserID); err != nil {
			RespondDomainError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "at": a.now()})
}

// MonitoringStream is the admin dashboard's Server-Sent Events channel. The
// connection counts as presence until it closes; every reservation event and
// presence change is forwarded.
func (a *App) MonitoringStream(c *gin.Context) {
	if a.Hub == nil {
		RespondError(c, http.StatusServiceUnavailable, "flux de monitoring indisponible", nil)
		return
	}
	rid := middleware.GetRequestID(c)
	who := actor(c)

	feed, unsubscribe := a.Hub.Subscribe()
	defer unsubscribe()

	if a.Presence != nil {
		now := a.now()
		if err := a.Presence.Join(c.Request.Context(), presence.Admin{
			UserID: who.UserID, Name: who.Name, Email: who.Email, ConnectedAt: now, LastSeen: now,
		}); err != nil {
			utils.LogEvent(rid, "monitoring", "presence_join_failed", err.Error())
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := a.Presence.Leave(ctx, who.UserID); err != nil {
				utils.LogEvent(rid, "monitoring", "presence_leave_failed", err.Error())
			}
			a.broadcastPresence(ctx)
		}()
	}
	a.broadcastPresence(c.Request.Context())
	utils.LogFields(rid, "monitoring", "stream_open", "user_id", who.UserID)

	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	interval := a.StreamPing
	if interval <= 0 {
		interval = defaultStreamPing
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-feed:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Payload)
			return true
		case <-ticker.C:
			if a.Presence != nil {
				_ = a.Presence.Touch(ctx, who.UserID)
			}
			c.SSEvent("ping", a.now())
			return true
		}
	})
	utils.LogFields(rid, "monitoring", "stream_closed", "user_id", who.UserID)
}

func (a *App) presenceUpdate(ctx context.Context) monitoringUpdate {
	admins := a.connectedAdmins(ctx)
	return monitoringUpdate{AdminCount: len(admins), Admins: admins}
}

func (a *App) broadcastPresence(ctx context.Context) {
	if a.Events == nil {
		return
	}
	a.Events.Emit(events.MonitoringUpdate, a.presenceUpdate(ctx))
}
