package services

import (
	"context"
	"fmt"
	"time"

	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
	"kocrou/internal/events"
	"kocrou/internal/utils"
)

const recentConfirmedDefault = 10

// ReservationService allocates seats and keeps trip capacity in step with
// reservation status.
type ReservationService struct {
	Reservations ReservationStore
	Trips        TripStore
	Events       events.Sink
	RequestID    string
	Now          func() time.Time
}

type ReserveInput struct {
	TripID  int64                  `json:"trajetId"`
	UserID  int64                  `json:"-"`
	Segment *models.SegmentRequest `json:"segment"`
	Seat    int                    `json:"seat"`
}

func (s ReservationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s ReservationService) sink() events.Sink {
	if s.Events != nil {
		return s.Events
	}
	return events.Discard{}
}

func (s ReservationService) Reserve(ctx context.Context, in ReserveInput) (models.Reservation, error) {
	if in.Seat <= 0 {
		return models.Reservation{}, domain.InvalidSeat("le numéro de siège doit être un entier positif")
	}
	trip, err := s.Trips.GetByID(ctx, in.TripID)
	if err != nil {
		return models.Reservation{}, err
	}
	if !trip.Active {
		return models.Reservation{}, domain.TripNotFound()
	}
	if in.Seat > trip.TotalSeats {
		return models.Reservation{}, domain.InvalidSeat(fmt.Sprintf("le siège %d n'existe pas sur ce trajet (1 à %d)", in.Seat, trip.TotalSeats))
	}
	if trip.Remaining <= 0 {
		return models.Reservation{}, domain.CapacityExhausted()
	}

	terms := termsFor(trip, in.Segment)
	held, err := s.Reservations.SeatHeld(ctx, trip.ID, in.Seat)
	if err != nil {
		return models.Reservation{}, err
	}
	if held {
		return models.Reservation{}, domain.SeatTaken(in.Seat)
	}

	now := s.now()
	res := models.Reservation{
		UserID:     in.UserID,
		Trip:       terms,
		Seat:       in.Seat,
		Status:     models.StatusConfirmed,
		ReservedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	// The pre-checks above only give friendly errors; the store decides.
	remaining, err := s.Reservations.Reserve(ctx, &res)
	if err != nil {
		utils.LogFields(s.RequestID, "allocator", "reserve_rejected", "trip_id", trip.ID, "seat", in.Seat, "err", err)
		return models.Reservation{}, err
	}

	utils.LogFields(s.RequestID, "allocator", "reserve", "reservation_id", res.ID, "trip_id", trip.ID, "seat", res.Seat, "remaining", remaining)
	s.sink().Emit(events.ReservationCreated, reservationEvent(res, trip, remaining))
	return res, nil
}

// termsFor snapshots the commercial terms: a matching segment wins over the
// base route.
func termsFor(trip models.Trip, seg *models.SegmentRequest) models.TripTerms {
	terms := models.TripTerms{
		TripID:        trip.ID,
		Company:       trip.Company,
		Origin:        trip.Origin,
		Destination:   trip.Destination,
		DepartureDate: trip.DepartureDate,
		DepartureTime: trip.DepartureTime,
		Price:         trip.Price,
	}
	if seg.Empty() {
		return terms
	}
	if found, ok := FindSegment(trip, seg.Origin, seg.Destination); ok {
		terms.Origin = found.Origin
		terms.Destination = found.Destination
		terms.Price = found.Price
	}
	return terms
}

// Cancel keeps the record and gives the seat back when it was holding one.
// Cancelling twice is a no-op.
func (s ReservationService) Cancel(ctx context.Context, id int64) (models.Reservation, error) {
	prev, err := s.Reservations.UpdateStatus(ctx, id, models.StatusCancelled)
	if err != nil {
		return models.Reservation{}, err
	}
	if prev.Status == models.StatusCancelled {
		return prev, nil
	}

	res := prev
	res.Status = models.StatusCancelled
	res.UpdatedAt = s.now()
	utils.LogFields(s.RequestID, "allocator", "cancel", "reservation_id", id, "previous", string(prev.Status))
	s.release(ctx, res, prev.Status.IsActive())
	return res, nil
}

// Validate marks a reservation as used. Cancelled reservations cannot be
// validated.
func (s ReservationService) Validate(ctx context.Context, id int64) (models.Reservation, error) {
	prev, err := s.Reservations.UpdateStatus(ctx, id, models.StatusValidated, models.StatusConfirmed, models.StatusPending)
	if err != nil {
		return models.Reservation{}, err
	}
	switch prev.Status {
	case models.StatusValidated:
		return prev, nil
	case models.StatusConfirmed, models.StatusPending:
	default:
		return models.Reservation{}, domain.ValidationError{
			Field: "statut",
			Msg:   "impossible de valider une réservation " + string(prev.Status),
		}
	}
	res := prev
	res.Status = models.StatusValidated
	res.UpdatedAt = s.now()
	utils.LogFields(s.RequestID, "allocator", "validate", "reservation_id", id, "previous", string(prev.Status))
	return res, nil
}

// Delete removes the record for its owner or an admin. Other callers get a
// not-found so ids cannot be probed.
func (s ReservationService) Delete(ctx context.Context, actor domain.Actor, id int64) (models.Reservation, error) {
	existing, err := s.Reservations.GetByID(ctx, id)
	if err != nil {
		return models.Reservation{}, err
	}
	if !actor.IsAdmin && existing.UserID != actor.UserID {
		return models.Reservation{}, domain.ReservationNotFound()
	}

	removed, err := s.Reservations.Delete(ctx, id)
	if err != nil {
		return models.Reservation{}, err
	}
	utils.LogFields(s.RequestID, "allocator", "delete", "reservation_id", id, "by", actor.UserID, "status", string(removed.Status))
	s.release(ctx, removed, removed.Status.IsActive())
	return removed, nil
}

// release runs after a committed cancel or delete: it gives the unit of
// capacity back when the reservation held one, then announces the removal
// with the trip as it stands now. A failed restore leaves remaining
// under-counted and is only logged.
func (s ReservationService) release(ctx context.Context, res models.Reservation, wasActive bool) {
	tripID := res.Trip.TripID
	remaining := -1
	if wasActive {
		n, err := s.Trips.AdjustRemaining(ctx, tripID, 1)
		if err != nil {
			utils.LogEvent(s.RequestID, "allocator", "restore_failed",
				fmt.Sprintf("reservation_id=%d trip_id=%d err=%v", res.ID, tripID, err))
		} else {
			remaining = n
		}
	}

	trip, err := s.Trips.GetByID(ctx, tripID)
	if err != nil {
		// Trip row gone: fall back to the booking's own copy.
		trip = models.Trip{ID: tripID, Company: res.Trip.Company, Origin: res.Trip.Origin, Destination: res.Trip.Destination}
	}
	if remaining < 0 {
		remaining = trip.Remaining
	}
	s.sink().Emit(events.ReservationDeleted, reservationEvent(res, trip, remaining))
}

func reservationEvent(res models.Reservation, trip models.Trip, remaining int) events.ReservationEvent {
	return events.ReservationEvent{
		ReservationID: res.ID,
		Trip: events.TripSnapshot{
			ID:          trip.ID,
			Origin:      trip.Origin,
			Destination: trip.Destination,
			Company:     trip.Company,
			Remaining:   remaining,
		},
		Seat:   res.Seat,
		UserID: res.UserID,
	}
}

func (s ReservationService) ListSeats(ctx context.Context, tripID int64) ([]int, error) {
	if _, err := s.Trips.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.Reservations.ListSeats(ctx, tripID)
}

func (s ReservationService) Get(ctx context.Context, actor domain.Actor, id int64) (models.Reservation, error) {
	res, err := s.Reservations.GetByID(ctx, id)
	if err != nil {
		return models.Reservation{}, err
	}
	if !actor.IsAdmin && res.UserID != actor.UserID {
		return models.Reservation{}, domain.ReservationNotFound()
	}
	return res, nil
}

func (s ReservationService) ListByUser(ctx context.Context, userID int64) ([]models.Reservation, error) {
	return s.Reservations.ListByUser(ctx, userID)
}

// ListAll serves the admin table. A zero limit returns every match on one page.
func (s ReservationService) ListAll(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, domain.Pagination, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.Pagination{}, domain.ValidationError{Field: "statut", Msg: "statut inconnu: " + string(f.Status)}
	}
	if f.Limit > 0 && f.Page < 1 {
		f.Page = 1
	}
	out, total, err := s.Reservations.List(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return out, domain.NewPagination(f.Page, f.Limit, total), nil
}

func (s ReservationService) RecentConfirmed(ctx context.Context, n int) ([]models.Reservation, error) {
	if n <= 0 {
		n = recentConfirmedDefault
	}
	return s.Reservations.RecentConfirmed(ctx, n)
}

func (s ReservationService) CountByStatus(ctx context.Context) (map[models.ReservationStatus]int, error) {
	return s.Reservations.CountByStatus(ctx)
}
