package models

import "time"

type LogType string

const (
	LogLogin             LogType = "login"
	LogTripUpdate        LogType = "trajet_update"
	LogTripDelete        LogType = "trajet_delete"
	LogReservationCancel LogType = "reservation_cancel"
	LogInfo              LogType = "info"
	LogWarning           LogType = "warning"
	LogError             LogType = "error"
	LogSecurity          LogType = "security"
)

func (t LogType) Valid() bool {
	switch t {
	case LogLogin, LogTripUpdate, LogTripDelete, LogReservationCancel, LogInfo, LogWarning, LogError, LogSecurity:
		return true
	}
	return false
}

// ActivityLog is a journal line for admin and system actions.
type ActivityLog struct {
	ID        int64     `json:"_id"`
	UserID    *int64    `json:"userId,omitempty"`
	UserName  string    `json:"userName,omitempty"`
	UserEmail string    `json:"userEmail,omitempty"`
	Type      LogType   `json:"type"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
}
