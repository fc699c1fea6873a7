package services

import (
	"context"
	"strings"

	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
	"kocrou/internal/utils"
)

const activityListLimit = 100

// ActivityService writes and reads the admin journal. Recording never fails
// the caller's action; errors are logged.
type ActivityService struct {
	Logs      ActivityStore
	RequestID string
}

type ActivityEntry struct {
	Actor     *domain.Actor
	Type      models.LogType
	Action    string
	Details   string
	IPAddress string
	UserAgent string
}

func (s ActivityService) Record(ctx context.Context, e ActivityEntry) {
	if s.Logs == nil {
		return
	}
	if !e.Type.Valid() {
		e.Type = models.LogInfo
	}
	l := models.ActivityLog{
		Type:      e.Type,
		Action:    truncate(e.Action, 255),
		Details:   e.Details,
		IPAddress: truncate(e.IPAddress, 64),
		UserAgent: truncate(e.UserAgent, 512),
	}
	if e.Actor != nil && e.Actor.UserID > 0 {
		id := e.Actor.UserID
		l.UserID = &id
	}
	if err := s.Logs.Insert(ctx, &l); err != nil {
		utils.LogEvent(s.RequestID, "activity", "record_failed", err.Error())
	}
}

// List returns the 100 newest entries; type "all" or empty means every type.
func (s ActivityService) List(ctx context.Context, logType string) ([]models.ActivityLog, error) {
	t := models.LogType(strings.TrimSpace(logType))
	if t == "all" {
		t = ""
	}
	if t != "" && !t.Valid() {
		return nil, domain.ValidationError{Field: "type", Msg: "type de journal inconnu: " + string(t)}
	}
	return s.Logs.List(ctx, t, activityListLimit)
}

func (s ActivityService) Clear(ctx context.Context) (int64, error) {
	n, err := s.Logs.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	utils.LogFields(s.RequestID, "activity", "clear", "deleted", n)
	return n, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
