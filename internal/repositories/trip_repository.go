package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "kocrou/internal/config"
	intdb "kocrou/internal/db"
	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
	"kocrou/internal/utils"
)

const tripColumns = `id, compagnie, ville_depart, ville_arrivee, date_depart, heure_depart,
	COALESCE(heure_arrivee, ''), prix, prix_total, nombre_places, places_restantes,
	type_vehicule, actif, created_at, updated_at`

type TripRepository struct {
	DB *sql.DB
}

func (r TripRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (models.Trip, error) {
	var t models.Trip
	err := row.Scan(
		&t.ID, &t.Company, &t.Origin, &t.Destination, &t.DepartureDate, &t.DepartureTime,
		&t.ArrivalTime, &t.Price, &t.TotalPrice, &t.TotalSeats, &t.Remaining,
		&t.VehicleType, &t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	t.Segments = []models.Segment{}
	return t, err
}

// Insert stores the trip and its segments in one transaction.
func (r TripRepository) Insert(ctx context.Context, t *models.Trip) error {
	tx, err := r.db().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO trips (
			compagnie, ville_depart, ville_arrivee, date_depart, heure_depart, heure_arrivee,
			prix, prix_total, nombre_places, places_restantes, type_vehicule, actif
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.Company, t.Origin, t.Destination, t.DepartureDate, t.DepartureTime, intdb.NullIfEmpty(t.ArrivalTime),
		t.Price, t.TotalPrice, t.TotalSeats, t.Remaining, t.VehicleType, t.Active,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err, "uniq_trip_route_day") {
			return domain.DuplicateTrip(t.Origin, t.Destination, utils.FormatFrenchDate(t.DepartureDate))
		}
		return fmt.Errorf("insert trip: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("trip id: %w", err)
	}
	t.ID = id

	if err := insertSegments(ctx, tx, id, t.Segments); err != nil {
		return err
	}
	return tx.Commit()
}

func insertSegments(ctx context.Context, q intdb.Querier, tripID int64, segments []models.Segment) error {
	for i := range segments {
		res, err := q.ExecContext(ctx, `
			INSERT INTO trip_segments (trip_id, position, depart, arrivee, prix)
			VALUES (?, ?, ?, ?, ?)
		`, tripID, i, segments[i].Origin, segments[i].Destination, segments[i].Price)
		if err != nil {
			return fmt.Errorf("insert segment: %w", err)
		}
		if id, err := res.LastInsertId(); err == nil {
			segments[i].ID = id
		}
	}
	return nil
}

// Update writes the merged trip. remaining can only shrink toward the new
// total here; it is never raised by an edit.
func (r TripRepository) Update(ctx context.Context, t *models.Trip, replaceSegments bool) error {
	tx, err := r.db().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		UPDATE trips SET
			compagnie=?, ville_depart=?, ville_arrivee=?, date_depart=?, heure_depart=?, heure_arrivee=?,
			prix=?, prix_total=?, places_restantes=LEAST(places_restantes, ?), nombre_places=?, type_vehicule=?
		WHERE id=?
	`,
		t.Company, t.Origin, t.Destination, t.DepartureDate, t.DepartureTime, intdb.NullIfEmpty(t.ArrivalTime),
		t.Price, t.TotalPrice, t.TotalSeats, t.TotalSeats, t.VehicleType,
		t.ID,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err, "uniq_trip_route_day") {
			return domain.DuplicateTrip(t.Origin, t.Destination, utils.FormatFrenchDate(t.DepartureDate))
		}
		return fmt.Errorf("update trip: %w", err)
	}

	if replaceSegments {
		if _, err := tx.ExecContext(ctx, `DELETE FROM trip_segments WHERE trip_id=?`, t.ID); err != nil {
			return fmt.Errorf("clear segments: %w", err)
		}
		if err := insertSegments(ctx, tx, t.ID, t.Segments); err != nil {
			return err
		}
	}

	if err := tx.QueryRowContext(ctx, `SELECT places_restantes FROM trips WHERE id=?`, t.ID).Scan(&t.Remaining); err != nil {
		return fmt.Errorf("read remaining: %w", err)
	}
	return tx.Commit()
}

// GetByID returns the trip with its ordered segments.
func (r TripRepository) GetByID(ctx context.Context, id int64) (models.Trip, error) {
	if id <= 0 {
		return models.Trip{}, domain.TripNotFound()
	}
	db := r.db()
	t, err := scanTrip(db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Trip{}, domain.TripNotFound()
		}
		return models.Trip{}, fmt.Errorf("get trip: %w", err)
	}
	segs, err := r.segmentsFor(ctx, []int64{id})
	if err != nil {
		return models.Trip{}, err
	}
	if s, ok := segs[id]; ok {
		t.Segments = s
	}
	return t, nil
}

// List returns trips newest first, filtered by endpoint substrings.
func (r TripRepository) List(ctx context.Context, f models.TripFilter) ([]models.Trip, error) {
	where := []string{"1=1"}
	args := []any{}
	if s := strings.TrimSpace(f.Origin); s != "" {
		where = append(where, "ville_depart LIKE ?")
		args = append(args, "%"+s+"%")
	}
	if s := strings.TrimSpace(f.Destination); s != "" {
		where = append(where, "ville_arrivee LIKE ?")
		args = append(args, "%"+s+"%")
	}
	if f.ActiveOnly {
		where = append(where, "actif=1")
	}

	rows, err := r.db().QueryContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at DESC, id DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	out := []models.Trip{}
	ids := []int64{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		out = append(out, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	segs, err := r.segmentsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if s, ok := segs[out[i].ID]; ok {
			out[i].Segments = s
		}
	}
	return out, nil
}

func (r TripRepository) segmentsFor(ctx context.Context, tripIDs []int64) (map[int64][]models.Segment, error) {
	out := map[int64][]models.Segment{}
	if len(tripIDs) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(tripIDs))
	for _, id := range tripIDs {
		args = append(args, id)
	}
	rows, err := r.db().QueryContext(ctx, `
		SELECT id, trip_id, depart, arrivee, prix
		FROM trip_segments
		WHERE trip_id IN (`+intdb.Placeholders(len(args))+`)
		ORDER BY trip_id ASC, position ASC, id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s      models.Segment
			tripID int64
		)
		if err := rows.Scan(&s.ID, &tripID, &s.Origin, &s.Destination, &s.Price); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		out[tripID] = append(out[tripID], s)
	}
	return out, rows.Err()
}

// FindSameDay looks for another active trip on the same route and calendar day.
func (r TripRepository) FindSameDay(ctx context.Context, origin, destination string, start, end time.Time, excludeID int64) (*models.Trip, error) {
	t, err := scanTrip(r.db().QueryRowContext(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE actif=1
		  AND LOWER(TRIM(ville_depart))=?
		  AND LOWER(TRIM(ville_arrivee))=?
		  AND date_depart >= ? AND date_depart < ?
		  AND id <> ?
		LIMIT 1
	`,
		strings.ToLower(strings.TrimSpace(origin)),
		strings.ToLower(strings.TrimSpace(destination)),
		start, end, excludeID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find same day trip: %w", err)
	}
	return &t, nil
}

// AdjustRemaining applies delta clamped to [0, total] and returns the new
// value. The read shares the update's transaction so it sees this write only.
func (r TripRepository) AdjustRemaining(ctx context.Context, id int64, delta int) (int, error) {
	tx, err := r.db().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	remaining, err := adjustRemaining(ctx, tx, id, delta)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit remaining: %w", err)
	}
	return remaining, nil
}

func adjustRemaining(ctx context.Context, q intdb.Querier, id int64, delta int) (int, error) {
	if _, err := q.ExecContext(ctx, `
		UPDATE trips
		SET places_restantes = GREATEST(0, LEAST(nombre_places, places_restantes + ?))
		WHERE id=?
	`, delta, id); err != nil {
		return 0, fmt.Errorf("adjust remaining: %w", err)
	}
	var remaining int
	if err := q.QueryRowContext(ctx, `SELECT places_restantes FROM trips WHERE id=?`, id).Scan(&remaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.TripNotFound()
		}
		return 0, fmt.Errorf("read remaining: %w", err)
	}
	return remaining, nil
}

// decrementRemaining is the compare-and-swap half of a reservation: it only
// succeeds while the trip is active and still has a free seat.
func decrementRemaining(ctx context.Context, q intdb.Querier, id int64) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE trips
		SET places_restantes = places_restantes - 1
		WHERE id=? AND actif=1 AND places_restantes > 0
	`, id)
	if err != nil {
		return false, fmt.Errorf("decrement remaining: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement rows affected: %w", err)
	}
	return n == 1, nil
}

// Retire soft-deletes a trip; its route/day slot becomes free again.
func (r TripRepository) Retire(ctx context.Context, id int64) error {
	res, err := r.db().ExecContext(ctx, `UPDATE trips SET actif=0 WHERE id=? AND actif=1`, id)
	if err != nil {
		return fmt.Errorf("retire trip: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.TripNotFound()
	}
	return nil
}

func (r TripRepository) InsertSegment(ctx context.Context, tripID int64, s *models.Segment) error {
	var pos int
	if err := r.db().QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position)+1, 0) FROM trip_segments WHERE trip_id=?`, tripID).Scan(&pos); err != nil {
		return fmt.Errorf("segment position: %w", err)
	}
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO trip_segments (trip_id, position, depart, arrivee, prix)
		VALUES (?, ?, ?, ?, ?)
	`, tripID, pos, s.Origin, s.Destination, s.Price)
	if err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	s.ID, _ = res.LastInsertId()
	return nil
}

func (r TripRepository) UpdateSegment(ctx context.Context, tripID int64, s models.Segment) error {
	if _, err := r.db().ExecContext(ctx, `
		UPDATE trip_segments SET depart=?, arrivee=?, prix=? WHERE id=? AND trip_id=?
	`, s.Origin, s.Destination, s.Price, s.ID, tripID); err != nil {
		return fmt.Errorf("update segment: %w", err)
	}
	return nil
}

func (r TripRepository) DeleteSegment(ctx context.Context, tripID, segmentID int64) (bool, error) {
	res, err := r.db().ExecContext(ctx, `DELETE FROM trip_segments WHERE id=? AND trip_id=?`, segmentID, tripID)
	if err != nil {
		return false, fmt.Errorf("delete segment: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RepairRemaining recomputes remaining = total - active reservations for every
// trip. It heals under-counts left by a failed capacity restore.
func (r TripRepository) RepairRemaining(ctx context.Context) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		UPDATE trips t
		LEFT JOIN (
			SELECT trip_id, COUNT(*) AS n
			FROM reservations
			WHERE active_seat IS NOT NULL
			GROUP BY trip_id
		) a ON a.trip_id = t.id
		SET t.places_restantes = GREATEST(0, t.nombre_places - COALESCE(a.n, 0))
		WHERE t.places_restantes <> GREATEST(0, t.nombre_places - COALESCE(a.n, 0))
	`)
	if err != nil {
		return 0, fmt.Errorf("repair remaining: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
