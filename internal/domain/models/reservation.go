package models

import (
	"strings"
	"time"
)

type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "confirmée"
	StatusCancelled ReservationStatus = "annulée"
	StatusPending   ReservationStatus = "en_attente"
	StatusValidated ReservationStatus = "validée"
)

// ActiveStatuses count against capacity and seat uniqueness.
var ActiveStatuses = []ReservationStatus{StatusConfirmed, StatusValidated}

func (s ReservationStatus) IsActive() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusPending, StatusValidated:
		return true
	}
	return false
}

// TripTerms is the commercial snapshot copied at booking time. Later trip
// edits never reach it.
type TripTerms struct {
	TripID        int64     `json:"_id"`
	Company       string    `json:"compagnie"`
	Origin        string    `json:"villeDepart"`
	Destination   string    `json:"villeArrivee"`
	DepartureDate time.Time `json:"dateDepart"`
	DepartureTime string    `json:"heureDepart,omitempty"`
	Price         int64     `json:"prix"`
}

// UserRef is the populated owner on admin listings.
type UserRef struct {
	ID    int64  `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Reservation struct {
	ID         int64             `json:"_id"`
	UserID     int64             `json:"user"`
	Trip       TripTerms         `json:"trajet"`
	Seat       int               `json:"seat"`
	Status     ReservationStatus `json:"statut"`
	ReservedAt time.Time         `json:"dateReservation"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	Owner      *UserRef          `json:"userInfo,omitempty"`
}

// SegmentRequest selects a sub-route on reserve.
type SegmentRequest struct {
	Origin      string `json:"depart"`
	Destination string `json:"arrivee"`
}

func (s *SegmentRequest) Empty() bool {
	return s == nil || (strings.TrimSpace(s.Origin) == "" && strings.TrimSpace(s.Destination) == "")
}

// ReservationFilter narrows the admin listing. Limit 0 returns everything.
type ReservationFilter struct {
	Status      ReservationStatus
	Company     string
	Origin      string
	Destination string
	User        string
	Day         *time.Time
	Page        int
	Limit       int
}
