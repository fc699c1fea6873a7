package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
	"kocrou/internal/utils"
)

const defaultSeats = models.MinSeats

// LedgerService owns trips and their remaining capacity.
type LedgerService struct {
	Trips     TripStore
	RequestID string
}

func (s LedgerService) Create(ctx context.Context, in models.TripInput) (models.Trip, error) {
	if in.Price == nil {
		return models.Trip{}, domain.ValidationError{Field: "prix", Msg: "les champs villeDepart, villeArrivee et prix sont obligatoires"}
	}
	if strings.TrimSpace(in.DepartureDate) == "" {
		return models.Trip{}, domain.ValidationError{Field: "dateDepart", Msg: "la date de départ est obligatoire"}
	}
	day, err := utils.ParseDeparture(in.DepartureDate)
	if err != nil {
		return models.Trip{}, domain.ValidationError{Field: "dateDepart", Msg: "date de départ invalide", Err: err}
	}

	seats := defaultSeats
	if in.TotalSeats != nil {
		seats = *in.TotalSeats
	}
	t := models.Trip{
		Company:       in.Company,
		Origin:        in.Origin,
		Destination:   in.Destination,
		DepartureDate: day,
		DepartureTime: in.DepartureTime,
		ArrivalTime:   in.ArrivalTime,
		Price:         *in.Price,
		Segments:      in.Segments,
		TotalSeats:    seats,
		VehicleType:   in.VehicleType,
		Active:        true,
	}
	if err := normalizeTrip(&t); err != nil {
		return models.Trip{}, err
	}
	t.Remaining = t.TotalSeats

	if err := s.ensureFreeDay(ctx, t, 0); err != nil {
		return models.Trip{}, err
	}
	if err := s.Trips.Insert(ctx, &t); err != nil {
		return models.Trip{}, err
	}
	utils.LogEvent(s.RequestID, "ledger", "create", fmt.Sprintf("trip_id=%d route=%s", t.ID, models.RouteKey(t.Origin, t.Destination)))
	return t, nil
}

// Update merges the patch onto the stored trip. A larger total never raises
// remaining; a smaller one clamps it.
func (s LedgerService) Update(ctx context.Context, id int64, p models.TripPatch) (models.Trip, error) {
	t, err := s.activeTrip(ctx, id)
	if err != nil {
		return models.Trip{}, err
	}

	setString(&t.Company, p.Company)
	setString(&t.Origin, p.Origin)
	setString(&t.Destination, p.Destination)
	setString(&t.DepartureTime, p.DepartureTime)
	setString(&t.ArrivalTime, p.ArrivalTime)
	setString(&t.VehicleType, p.VehicleType)
	if p.DepartureDate != nil {
		day, err := utils.ParseDeparture(*p.DepartureDate)
		if err != nil {
			return models.Trip{}, domain.ValidationError{Field: "dateDepart", Msg: "date de départ invalide", Err: err}
		}
		t.DepartureDate = day
	}
	if p.Price != nil {
		t.Price = *p.Price
	}
	if p.TotalSeats != nil {
		t.TotalSeats = *p.TotalSeats
	}
	replace := p.Segments != nil
	if replace {
		t.Segments = *p.Segments
	}
	if err := normalizeTrip(&t); err != nil {
		return models.Trip{}, err
	}
	if t.Remaining > t.TotalSeats {
		t.Remaining = t.TotalSeats
	}

	if err := s.ensureFreeDay(ctx, t, t.ID); err != nil {
		return models.Trip{}, err
	}
	if err := s.Trips.Update(ctx, &t, replace); err != nil {
		return models.Trip{}, err
	}
	utils.LogEvent(s.RequestID, "ledger", "update", "trip_id="+strconv.FormatInt(t.ID, 10))
	return t, nil
}

// AdjustRemaining moves remaining by delta, clamped to [0, total].
func (s LedgerService) AdjustRemaining(ctx context.Context, id int64, delta int) (models.Trip, error) {
	if _, err := s.Trips.AdjustRemaining(ctx, id, delta); err != nil {
		return models.Trip{}, err
	}
	return s.Trips.GetByID(ctx, id)
}

func (s LedgerService) Get(ctx context.Context, id int64) (models.Trip, error) {
	return s.Trips.GetByID(ctx, id)
}

func (s LedgerService) List(ctx context.Context, f models.TripFilter) ([]models.Trip, error) {
	return s.Trips.List(ctx, f)
}

func (s LedgerService) Retire(ctx context.Context, id int64) (models.Trip, error) {
	t, err := s.Trips.GetByID(ctx, id)
	if err != nil {
		return models.Trip{}, err
	}
	if err := s.Trips.Retire(ctx, id); err != nil {
		return models.Trip{}, err
	}
	t.Active = false
	utils.LogEvent(s.RequestID, "ledger", "retire", "trip_id="+strconv.FormatInt(id, 10))
	return t, nil
}

func (s LedgerService) AddSegment(ctx context.Context, tripID int64, seg models.Segment) (models.Trip, error) {
	t, err := s.activeTrip(ctx, tripID)
	if err != nil {
		return models.Trip{}, err
	}
	seg, err = normalizeSegment(seg)
	if err != nil {
		return models.Trip{}, err
	}
	if err := s.Trips.InsertSegment(ctx, tripID, &seg); err != nil {
		return models.Trip{}, err
	}
	t.Segments = append(t.Segments, seg)
	return t, nil
}

func (s LedgerService) UpdateSegment(ctx context.Context, tripID, segmentID int64, p models.SegmentPatch) (models.Trip, error) {
	t, err := s.activeTrip(ctx, tripID)
	if err != nil {
		return models.Trip{}, err
	}
	idx := -1
	for i := range t.Segments {
		if t.Segments[i].ID == segmentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Trip{}, domain.NotFoundError{Resource: "segment"}
	}
	seg := t.Segments[idx]
	setString(&seg.Origin, p.Origin)
	setString(&seg.Destination, p.Destination)
	if p.Price != nil {
		seg.Price = *p.Price
	}
	seg, err = normalizeSegment(seg)
	if err != nil {
		return models.Trip{}, err
	}
	if err := s.Trips.UpdateSegment(ctx, tripID, seg); err != nil {
		return models.Trip{}, err
	}
	t.Segments[idx] = seg
	return t, nil
}

func (s LedgerService) DeleteSegment(ctx context.Context, tripID, segmentID int64) (models.Trip, error) {
	if _, err := s.activeTrip(ctx, tripID); err != nil {
		return models.Trip{}, err
	}
	ok, err := s.Trips.DeleteSegment(ctx, tripID, segmentID)
	if err != nil {
		return models.Trip{}, err
	}
	if !ok {
		return models.Trip{}, domain.NotFoundError{Resource: "segment"}
	}
	return s.Trips.GetByID(ctx, tripID)
}

// activeTrip loads a trip that can still be edited. Retired trips read as
// missing.
func (s LedgerService) activeTrip(ctx context.Context, id int64) (models.Trip, error) {
	t, err := s.Trips.GetByID(ctx, id)
	if err != nil {
		return models.Trip{}, err
	}
	if !t.Active {
		return models.Trip{}, domain.TripNotFound()
	}
	return t, nil
}

// RepairRemaining re-derives remaining from active reservations.
func (s LedgerService) RepairRemaining(ctx context.Context) (int64, error) {
	n, err := s.Trips.RepairRemaining(ctx)
	if err != nil {
		return 0, err
	}
	utils.LogEvent(s.RequestID, "ledger", "repair", "trips_fixed="+strconv.FormatInt(n, 10))
	return n, nil
}

// FindSegment matches a sub-route by trimmed, case-insensitive endpoints.
func FindSegment(t models.Trip, origin, destination string) (models.Segment, bool) {
	o := strings.TrimSpace(origin)
	d := strings.TrimSpace(destination)
	for _, seg := range t.Segments {
		if strings.EqualFold(strings.TrimSpace(seg.Origin), o) && strings.EqualFold(strings.TrimSpace(seg.Destination), d) {
			return seg, true
		}
	}
	return models.Segment{}, false
}

func (s LedgerService) ensureFreeDay(ctx context.Context, t models.Trip, excludeID int64) error {
	start, end := utils.DayBounds(t.DepartureDate)
	existing, err := s.Trips.FindSameDay(ctx, t.Origin, t.Destination, start, end, excludeID)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.DuplicateTrip(t.Origin, t.Destination, utils.FormatFrenchDate(existing.DepartureDate))
	}
	return nil
}

// normalizeTrip trims input, fills defaults, validates and recomputes the
// derived total price.
func normalizeTrip(t *models.Trip) error {
	t.Company = utils.NormalizeSpace(t.Company)
	if t.Company == "" {
		t.Company = models.DefaultCompany
	}
	t.Origin = utils.NormalizeSpace(t.Origin)
	t.Destination = utils.NormalizeSpace(t.Destination)
	if t.Origin == "" || t.Destination == "" {
		return domain.InconsistentRoute("les villes de départ et d'arrivée sont obligatoires")
	}
	if strings.EqualFold(t.Origin, t.Destination) {
		return domain.InconsistentRoute("la ville d'arrivée doit être différente de la ville de départ")
	}
	if t.Price < models.MinTripPrice {
		return domain.ValidationError{Field: "prix", Msg: "le prix minimum est de " + utils.FormatFCFA(models.MinTripPrice)}
	}
	if t.TotalSeats < models.MinSeats || t.TotalSeats > models.MaxSeats {
		return domain.ValidationError{
			Field: "nombrePlaces",
			Msg:   fmt.Sprintf("le nombre de places doit être compris entre %d et %d", models.MinSeats, models.MaxSeats),
		}
	}
	t.DepartureTime = strings.TrimSpace(t.DepartureTime)
	if !utils.ValidClock(t.DepartureTime) {
		return domain.ValidationError{Field: "heureDepart", Msg: "heure de départ invalide (HH:mm)"}
	}
	t.ArrivalTime = strings.TrimSpace(t.ArrivalTime)
	if t.ArrivalTime != "" && !utils.ValidClock(t.ArrivalTime) {
		return domain.ValidationError{Field: "heureArrivee", Msg: "heure d'arrivée invalide (HH:mm)"}
	}
	vt, ok := models.NormalizeVehicleType(t.VehicleType)
	if !ok {
		return domain.ValidationError{Field: "typeVehicule", Msg: "type de véhicule inconnu: " + t.VehicleType}
	}
	t.VehicleType = vt
	if t.DepartureDate.IsZero() {
		return domain.ValidationError{Field: "dateDepart", Msg: "la date de départ est obligatoire"}
	}

	segs := make([]models.Segment, 0, len(t.Segments))
	for _, seg := range t.Segments {
		n, err := normalizeSegment(seg)
		if err != nil {
			return err
		}
		segs = append(segs, n)
	}
	t.Segments = segs
	// The total mirrors the base price; segment prices are never summed.
	t.TotalPrice = t.Price
	return nil
}

func normalizeSegment(seg models.Segment) (models.Segment, error) {
	seg.Origin = utils.NormalizeSpace(seg.Origin)
	seg.Destination = utils.NormalizeSpace(seg.Destination)
	if seg.Origin == "" || seg.Destination == "" {
		return seg, domain.InconsistentRoute("chaque segment doit avoir un départ et une arrivée")
	}
	if strings.EqualFold(seg.Origin, seg.Destination) {
		return seg, domain.InconsistentRoute("un segment ne peut pas avoir le même départ et la même arrivée")
	}
	if seg.Price < models.MinSegmentPrice {
		return seg, domain.ValidationError{Field: "segments.prix", Msg: "le prix minimum d'un segment est de " + utils.FormatFCFA(models.MinSegmentPrice)}
	}
	return seg, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
