package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultCompany     = "Kocrou Transport & Frères"
	MinTripPrice       = int64(1000)
	MinSegmentPrice    = int64(200)
	MinSeats           = 10
	MaxSeats           = 60
	DefaultVehicleType = "Autocar"
)

// VehicleTypes lists the canonical vehicle names accepted on a trip.
var VehicleTypes = []string{"Autocar", "Minibus", "Bus VIP", "Autre"}

// Segment is a priced sub-route of a trip.
type Segment struct {
	ID          int64  `json:"_id"`
	Origin      string `json:"depart"`
	Destination string `json:"arrivee"`
	Price       int64  `json:"prix"`
}

// Trip is the capacity ledger unit.
type Trip struct {
	ID            int64     `json:"_id"`
	Company       string    `json:"compagnie"`
	Origin        string    `json:"villeDepart"`
	Destination   string    `json:"villeArrivee"`
	DepartureDate time.Time `json:"dateDepart"`
	DepartureTime string    `json:"heureDepart"`
	ArrivalTime   string    `json:"heureArrivee,omitempty"`
	Price         int64     `json:"prix"`
	Segments      []Segment `json:"segments"`
	TotalPrice    int64     `json:"prixTotal"`
	TotalSeats    int       `json:"nombrePlaces"`
	Remaining     int       `json:"placesRestantes"`
	VehicleType   string    `json:"typeVehicule"`
	Active        bool      `json:"actif"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Description renders "Origin → Destination (vehicle)".
func (t Trip) Description() string {
	return fmt.Sprintf("%s → %s (%s)", t.Origin, t.Destination, t.VehicleType)
}

func (t Trip) Kind() string {
	if len(t.Segments) > 0 {
		return "Trajet avec segments"
	}
	return "Trajet simple"
}

// TripInput is the operator payload for a new trip.
type TripInput struct {
	Company       string    `json:"compagnie"`
	Origin        string    `json:"villeDepart"`
	Destination   string    `json:"villeArrivee"`
	DepartureDate string    `json:"dateDepart"`
	DepartureTime string    `json:"heureDepart"`
	ArrivalTime   string    `json:"heureArrivee"`
	Price         *int64    `json:"prix"`
	TotalSeats    *int      `json:"nombrePlaces"`
	VehicleType   string    `json:"typeVehicule"`
	Segments      []Segment `json:"segments"`
}

// TripPatch supports PATCH-style updates via key presence.
type TripPatch struct {
	Company       *string    `json:"compagnie"`
	Origin        *string    `json:"villeDepart"`
	Destination   *string    `json:"villeArrivee"`
	DepartureDate *string    `json:"dateDepart"`
	DepartureTime *string    `json:"heureDepart"`
	ArrivalTime   *string    `json:"heureArrivee"`
	Price         *int64     `json:"prix"`
	TotalSeats    *int       `json:"nombrePlaces"`
	VehicleType   *string    `json:"typeVehicule"`
	Segments      *[]Segment `json:"segments"`
}

// SegmentPatch updates a single segment.
type SegmentPatch struct {
	Origin      *string `json:"depart"`
	Destination *string `json:"arrivee"`
	Price       *int64  `json:"prix"`
}

// TripFilter narrows trip listings.
type TripFilter struct {
	Origin      string
	Destination string
	ActiveOnly  bool
}

// RouteKey normalizes endpoints the way the store compares them.
func RouteKey(origin, destination string) string {
	return strings.ToLower(strings.TrimSpace(origin)) + "|" + strings.ToLower(strings.TrimSpace(destination))
}

// NormalizeVehicleType maps any casing to a canonical vehicle name.
func NormalizeVehicleType(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultVehicleType, true
	}
	for _, known := range VehicleTypes {
		if strings.EqualFold(known, v) {
			return known, true
		}
	}
	return "", false
}
