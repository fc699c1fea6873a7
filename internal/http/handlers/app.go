package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"kocrou/internal/events"
	"kocrou/internal/http/middleware"
	"kocrou/internal/presence"
	"kocrou/internal/services"
)

// Pinger reports database reachability for /api/db-check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// App holds the stores and collaborators shared by every request. Services
// are built per request so their logs carry the request id.
type App struct {
	Trips        services.TripStore
	Reservations services.ReservationStore
	Users        services.UserStore
	Logs         services.ActivityStore
	Settings     services.SettingsStore

	Events   events.Sink
	Hub      *events.Hub
	Presence presence.Registry
	DB       Pinger

	JWTSecret        []byte
	JWTRefreshSecret []byte

	// StreamPing is the SSE keep-alive interval.
	StreamPing time.Duration
	Now        func() time.Time
}

func (a *App) ledger(c *gin.Context) services.LedgerService {
	return services.LedgerService{Trips: a.Trips, RequestID: middleware.GetRequestID(c)}
}

func (a *App) allocator(c *gin.Context) services.ReservationService {
	return services.ReservationService{
		Reservations: a.Reservations,
		Trips:        a.Trips,
		Events:       a.Events,
		RequestID:    middleware.GetRequestID(c),
		Now:          a.Now,
	}
}

func (a *App) auth(requestID string) services.AuthService {
	return services.AuthService{
		Users:         a.Users,
		Secret:        a.JWTSecret,
		RefreshSecret: a.JWTRefreshSecret,
		RequestID:     requestID,
		Now:           a.Now,
	}
}

// Authenticator adapts AuthService to the Protect middleware.
func (a *App) Authenticator() middleware.Authenticator {
	return a.auth("")
}

func (a *App) users(c *gin.Context) services.UserService {
	return services.UserService{Users: a.Users, RequestID: middleware.GetRequestID(c)}
}

func (a *App) activity(requestID string) services.ActivityService {
	return services.ActivityService{Logs: a.Logs, RequestID: requestID}
}

// ActivityRecorder builds the recorder used by the activity middleware.
func (a *App) ActivityRecorder(requestID string) middleware.ActivityRecorder {
	return a.activity(requestID)
}

func (a *App) settings(c *gin.Context) services.SettingsService {
	return services.SettingsService{Settings: a.Settings, RequestID: middleware.GetRequestID(c)}
}

func (a *App) docs(c *gin.Context) services.DocsService {
	return services.DocsService{Reservations: a.Reservations, Settings: a.Settings, RequestID: middleware.GetRequestID(c)}
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
