package events

import "strconv"

// TripSnapshot is the trip part of a reservation event.
type TripSnapshot struct {
	ID          int64  `json:"_id"`
	Origin      string `json:"villeDepart"`
	Destination string `json:"villeArrivee"`
	Company     string `json:"compagnie"`
	Remaining   int    `json:"placesRestantes"`
}

type ReservationEvent struct {
	ReservationID int64        `json:"reservationId"`
	Trip          TripSnapshot `json:"trajet"`
	Seat          int          `json:"seat"`
	UserID        int64        `json:"userId,omitempty"`
}

// EventKey keeps every event of one trip on the same partition.
func (e ReservationEvent) EventKey() string {
	return "trip-" + strconv.FormatInt(e.Trip.ID, 10)
}
