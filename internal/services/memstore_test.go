package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
	"kocrou/internal/utils"
)

// memState mirrors the MySQL constraints: the active-seat unique index, the
// conditional decrement and the route/day unique key.
type memState struct {
	mu        sync.Mutex
	trips     map[int64]*models.Trip
	res       map[int64]*models.Reservation
	nextTrip  int64
	nextRes   int64
	nextSeg   int64
	adjustErr error
}

// memTrips and memReservations are the two store views over one state, the
// way both repositories share one database.
type memTrips struct{ *memState }

type memReservations struct{ *memState }

func newMemState() *memState {
	return &memState{trips: map[int64]*models.Trip{}, res: map[int64]*models.Reservation{}}
}

func copyTrip(t *models.Trip) models.Trip {
	out := *t
	out.Segments = append([]models.Segment{}, t.Segments...)
	return out
}

func routeDay(t *models.Trip) string {
	start, _ := utils.DayBounds(t.DepartureDate)
	return models.RouteKey(t.Origin, t.Destination) + "|" + start.Format("2006-01-02")
}

func (m *memState) routeDayTaken(t *models.Trip) bool {
	key := routeDay(t)
	for _, other := range m.trips {
		if other.ID != t.ID && other.Active && routeDay(other) == key {
			return true
		}
	}
	return false
}

func (m memTrips) Insert(_ context.Context, t *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Active && m.routeDayTaken(t) {
		return domain.DuplicateTrip(t.Origin, t.Destination, "")
	}
	m.nextTrip++
	t.ID = m.nextTrip
	for i := range t.Segments {
		m.nextSeg++
		t.Segments[i].ID = m.nextSeg
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	stored := copyTrip(t)
	m.trips[t.ID] = &stored
	return nil
}

func (m memTrips) Update(_ context.Context, t *models.Trip, replaceSegments bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.trips[t.ID]
	if !ok {
		return domain.TripNotFound()
	}
	if m.routeDayTaken(t) {
		return domain.DuplicateTrip(t.Origin, t.Destination, "")
	}
	remaining := cur.Remaining
	if t.TotalSeats < remaining {
		remaining = t.TotalSeats
	}
	segs := cur.Segments
	if replaceSegments {
		for i := range t.Segments {
			m.nextSeg++
			t.Segments[i].ID = m.nextSeg
		}
		segs = append([]models.Segment{}, t.Segments...)
	}
	next := copyTrip(t)
	next.Remaining = remaining
	next.Segments = segs
	next.Active = cur.Active
	m.trips[t.ID] = &next
	t.Remaining = remaining
	return nil
}

func (m memTrips) GetByID(_ context.Context, id int64) (models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return models.Trip{}, domain.TripNotFound()
	}
	return copyTrip(t), nil
}

func (m memTrips) List(_ context.Context, f models.TripFilter) ([]models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Trip{}
	for _, t := range m.trips {
		if f.ActiveOnly && !t.Active {
			continue
		}
		if f.Origin != "" && !strings.Contains(strings.ToLower(t.Origin), strings.ToLower(f.Origin)) {
			continue
		}
		if f.Destination != "" && !strings.Contains(strings.ToLower(t.Destination), strings.ToLower(f.Destination)) {
			continue
		}
		out = append(out, copyTrip(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m memTrips) FindSameDay(_ context.Context, origin, destination string, start, end time.Time, excludeID int64) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := models.RouteKey(origin, destination)
	for _, t := range m.trips {
		if !t.Active || t.ID == excludeID || models.RouteKey(t.Origin, t.Destination) != key {
			continue
		}
		if !t.DepartureDate.Before(start) && t.DepartureDate.Before(end) {
			found := copyTrip(t)
			return &found, nil
		}
	}
	return nil, nil
}

func (m memTrips) AdjustRemaining(_ context.Context, id int64, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.adjustErr != nil {
		return 0, m.adjustErr
	}
	t, ok := m.trips[id]
	if !ok {
		return 0, domain.TripNotFound()
	}
	t.Remaining += delta
	if t.Remaining > t.TotalSeats {
		t.Remaining = t.TotalSeats
	}
	if t.Remaining < 0 {
		t.Remaining = 0
	}
	return t.Remaining, nil
}

func (m memTrips) Retire(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok || !t.Active {
		return domain.TripNotFound()
	}
	t.Active = false
	return nil
}

func (m memTrips) InsertSegment(_ context.Context, tripID int64, s *models.Segment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[tripID]
	if !ok {
		return domain.TripNotFound()
	}
	m.nextSeg++
	s.ID = m.nextSeg
	t.Segments = append(t.Segments, *s)
	return nil
}

func (m memTrips) UpdateSegment(_ context.Context, tripID int64, s models.Segment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[tripID]
	if !ok {
		return domain.TripNotFound()
	}
	for i := range t.Segments {
		if t.Segments[i].ID == s.ID {
			t.Segments[i] = s
		}
	}
	return nil
}

func (m memTrips) DeleteSegment(_ context.Context, tripID, segmentID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[tripID]
	if !ok {
		return false, nil
	}
	for i := range t.Segments {
		if t.Segments[i].ID == segmentID {
			t.Segments = append(t.Segments[:i], t.Segments[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m memTrips) RepairRemaining(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var fixed int64
	for _, t := range m.trips {
		want := t.TotalSeats - m.activeCount(t.ID)
		if want < 0 {
			want = 0
		}
		if t.Remaining != want {
			t.Remaining = want
			fixed++
		}
	}
	return fixed, nil
}

func (m *memState) activeCount(tripID int64) int {
	n := 0
	for _, r := range m.res {
		if r.Trip.TripID == tripID && r.Status.IsActive() {
			n++
		}
	}
	return n
}

func (m *memState) seatHeldLocked(tripID int64, seat int, skip int64) bool {
	for _, r := range m.res {
		if r.ID != skip && r.Trip.TripID == tripID && r.Status.IsActive() && r.Seat == seat {
			return true
		}
	}
	return false
}

// Reserve is atomic under the store mutex like the SQL transaction.
func (m memReservations) Reserve(_ context.Context, r *models.Reservation) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[r.Trip.TripID]
	if !ok {
		return 0, domain.TripNotFound()
	}
	if r.Status.IsActive() && m.seatHeldLocked(t.ID, r.Seat, 0) {
		return 0, domain.SeatTaken(r.Seat)
	}
	if !t.Active || t.Remaining <= 0 {
		return 0, domain.CapacityExhausted()
	}
	t.Remaining--
	m.nextRes++
	r.ID = m.nextRes
	stored := *r
	m.res[r.ID] = &stored
	return t.Remaining, nil
}

func (m memReservations) SeatHeld(_ context.Context, tripID int64, seat int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seatHeldLocked(tripID, seat, 0), nil
}

func (m memReservations) GetByID(_ context.Context, id int64) (models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.res[id]
	if !ok {
		return models.Reservation{}, domain.ReservationNotFound()
	}
	return *r, nil
}

func (m memReservations) UpdateStatus(_ context.Context, id int64, to models.ReservationStatus, from ...models.ReservationStatus) (models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.res[id]
	if !ok {
		return models.Reservation{}, domain.ReservationNotFound()
	}
	prev := *r
	if prev.Status == to {
		return prev, nil
	}
	if len(from) > 0 {
		allowed := false
		for _, f := range from {
			if f == prev.Status {
				allowed = true
			}
		}
		if !allowed {
			return prev, nil
		}
	}
	if !prev.Status.IsActive() && to.IsActive() {
		if m.seatHeldLocked(r.Trip.TripID, r.Seat, r.ID) {
			return models.Reservation{}, domain.SeatTaken(r.Seat)
		}
		t := m.trips[r.Trip.TripID]
		if t == nil || t.Remaining <= 0 {
			return models.Reservation{}, domain.CapacityExhausted()
		}
		t.Remaining--
	}
	r.Status = to
	return prev, nil
}

func (m memReservations) Delete(_ context.Context, id int64) (models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.res[id]
	if !ok {
		return models.Reservation{}, domain.ReservationNotFound()
	}
	delete(m.res, id)
	return *r, nil
}

func (m memReservations) ListSeats(_ context.Context, tripID int64) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int]bool{}
	out := []int{}
	for _, r := range m.res {
		if r.Trip.TripID == tripID && r.Status.IsActive() && !seen[r.Seat] {
			seen[r.Seat] = true
			out = append(out, r.Seat)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (m *memState) sortedReservations(keep func(*models.Reservation) bool) []models.Reservation {
	out := []models.Reservation{}
	for _, r := range m.res {
		if keep(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m memReservations) ListByUser(_ context.Context, userID int64) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedReservations(func(r *models.Reservation) bool { return r.UserID == userID }), nil
}

func (m memReservations) List(_ context.Context, f models.ReservationFilter) ([]models.Reservation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sortedReservations(func(r *models.Reservation) bool {
		return f.Status == "" || r.Status == f.Status
	})
	total := len(all)
	if f.Limit > 0 {
		start := (f.Page - 1) * f.Limit
		if start > total {
			start = total
		}
		end := start + f.Limit
		if end > total {
			end = total
		}
		all = all[start:end]
	}
	return all, total, nil
}

func (m memReservations) RecentConfirmed(_ context.Context, n int) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sortedReservations(func(r *models.Reservation) bool { return r.Status == models.StatusConfirmed })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m memReservations) CountByStatus(_ context.Context) (map[models.ReservationStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[models.ReservationStatus]int{}
	for _, r := range m.res {
		out[r.Status]++
	}
	return out, nil
}

// remainingAndActive reads both halves of the conservation equation at once.
func (m *memState) remainingAndActive(tripID int64) (int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.trips[tripID]
	return t.Remaining, m.activeCount(tripID), t.TotalSeats
}

// recordingSink collects emitted events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []string
	last   any
}

func (r *recordingSink) Emit(name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
	r.last = payload
}

func (r *recordingSink) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.events...)
}
