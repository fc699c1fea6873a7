package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	intconfig "kocrou/internal/config"
	intdb "kocrou/internal/db"
	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
)

const mysqlForeignKeyMissing = 1452

const reservationColumns = `r.id, r.user_id, r.trip_id, r.compagnie, r.ville_depart, r.ville_arrivee,
	r.date_depart, COALESCE(r.heure_depart, ''), r.prix, r.seat, r.statut,
	r.date_reservation, r.created_at, r.updated_at,
	COALESCE(u.name, ''), COALESCE(u.email, '')`

const reservationFrom = ` FROM reservations r LEFT JOIN users u ON u.id = r.user_id`

type ReservationRepository struct {
	DB *sql.DB
}

func (r ReservationRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func scanReservation(row rowScanner) (models.Reservation, error) {
	var (
		res       models.Reservation
		userID    sql.NullInt64
		departure sql.NullTime
		status    string
		name      string
		email     string
	)
	err := row.Scan(
		&res.ID, &userID, &res.Trip.TripID, &res.Trip.Company, &res.Trip.Origin, &res.Trip.Destination,
		&departure, &res.Trip.DepartureTime, &res.Trip.Price, &res.Seat, &status,
		&res.ReservedAt, &res.CreatedAt, &res.UpdatedAt,
		&name, &email,
	)
	if err != nil {
		return res, err
	}
	res.Status = models.ReservationStatus(status)
	if departure.Valid {
		res.Trip.DepartureDate = departure.Time
	}
	if userID.Valid {
		res.UserID = userID.Int64
		res.Owner = &models.UserRef{ID: userID.Int64, Name: name, Email: email}
	}
	return res, nil
}

// Reserve inserts the reservation and takes one unit of trip capacity in the
// same transaction. Either both happen or neither does.
func (r ReservationRepository) Reserve(ctx context.Context, res *models.Reservation) (int, error) {
	tx, err := r.db().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var userID any
	if res.UserID > 0 {
		userID = res.UserID
	}
	out, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (
			user_id, trip_id, compagnie, ville_depart, ville_arrivee, date_depart, heure_depart,
			prix, seat, statut, date_reservation
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		userID, res.Trip.TripID, res.Trip.Company, res.Trip.Origin, res.Trip.Destination,
		res.Trip.DepartureDate, intdb.NullIfEmpty(res.Trip.DepartureTime),
		res.Trip.Price, res.Seat, string(res.Status), res.ReservedAt,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err, "uniq_active_seat") {
			return 0, domain.SeatTaken(res.Seat)
		}
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlForeignKeyMissing {
			return 0, domain.TripNotFound()
		}
		return 0, fmt.Errorf("insert reservation: %w", err)
	}
	id, err := out.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reservation id: %w", err)
	}

	ok, err := decrementRemaining(ctx, tx, res.Trip.TripID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.CapacityExhausted()
	}

	var remaining int
	if err := tx.QueryRowContext(ctx, `SELECT places_restantes FROM trips WHERE id=?`, res.Trip.TripID).Scan(&remaining); err != nil {
		return 0, fmt.Errorf("read remaining: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reservation: %w", err)
	}
	res.ID = id
	return remaining, nil
}

// SeatHeld reports whether an active reservation already holds the seat on
// the trip, whichever leg it was booked for.
func (r ReservationRepository) SeatHeld(ctx context.Context, tripID int64, seat int) (bool, error) {
	var n int
	err := r.db().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE trip_id=? AND active_seat=?
	`, tripID, seat).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("seat held: %w", err)
	}
	return n > 0, nil
}

func (r ReservationRepository) GetByID(ctx context.Context, id int64) (models.Reservation, error) {
	res, err := scanReservation(r.db().QueryRowContext(ctx,
		`SELECT `+reservationColumns+reservationFrom+` WHERE r.id=? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reservation{}, domain.ReservationNotFound()
		}
		return models.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// UpdateStatus moves a reservation to `to` when its current status is one of
// from (any status when from is empty) and returns the record as it was
// before. The row is locked so concurrent transitions serialize. Turning an
// inactive reservation active takes a unit of capacity in the same
// transaction.
func (r ReservationRepository) UpdateStatus(ctx context.Context, id int64, to models.ReservationStatus, from ...models.ReservationStatus) (models.Reservation, error) {
	tx, err := r.db().BeginTx(ctx, nil)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+reservationFrom+` WHERE r.id=? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reservation{}, domain.ReservationNotFound()
		}
		return models.Reservation{}, fmt.Errorf("lock reservation: %w", err)
	}
	if res.Status == to || !statusIn(res.Status, from) {
		return res, nil
	}
	if _, err := tx.ExecContext(ctx, `UPDATE reservations SET statut=? WHERE id=?`, string(to), id); err != nil {
		if intdb.IsDuplicateKey(err, "uniq_active_seat") {
			return models.Reservation{}, domain.SeatTaken(res.Seat)
		}
		return models.Reservation{}, fmt.Errorf("update status: %w", err)
	}
	if !res.Status.IsActive() && to.IsActive() {
		ok, err := decrementRemaining(ctx, tx, res.Trip.TripID)
		if err != nil {
			return models.Reservation{}, err
		}
		if !ok {
			return models.Reservation{}, domain.CapacityExhausted()
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Reservation{}, fmt.Errorf("commit status: %w", err)
	}
	return res, nil
}

func statusIn(s models.ReservationStatus, set []models.ReservationStatus) bool {
	if len(set) == 0 {
		return true
	}
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Delete removes the row and returns it as it was.
func (r ReservationRepository) Delete(ctx context.Context, id int64) (models.Reservation, error) {
	tx, err := r.db().BeginTx(ctx, nil)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+reservationFrom+` WHERE r.id=? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Reservation{}, domain.ReservationNotFound()
		}
		return models.Reservation{}, fmt.Errorf("lock reservation: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id=?`, id); err != nil {
		return models.Reservation{}, fmt.Errorf("delete reservation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Reservation{}, fmt.Errorf("commit delete: %w", err)
	}
	return res, nil
}

// ListSeats returns seats held by active reservations on the trip, ascending.
func (r ReservationRepository) ListSeats(ctx context.Context, tripID int64) ([]int, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT DISTINCT active_seat FROM reservations
		WHERE trip_id=? AND active_seat IS NOT NULL
		ORDER BY active_seat ASC
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	defer rows.Close()

	seats := []int{}
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

func (r ReservationRepository) ListByUser(ctx context.Context, userID int64) ([]models.Reservation, error) {
	return r.query(ctx, `WHERE r.user_id=? ORDER BY r.created_at DESC, r.id DESC`, userID)
}

// RecentConfirmed feeds the monitoring dashboard.
func (r ReservationRepository) RecentConfirmed(ctx context.Context, n int) ([]models.Reservation, error) {
	if n <= 0 {
		n = 10
	}
	return r.query(ctx, `WHERE r.statut=? ORDER BY r.date_reservation DESC, r.id DESC LIMIT ?`,
		string(models.StatusConfirmed), n)
}

// List serves the admin listing. It returns the page and the full match count.
func (r ReservationRepository) List(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, int, error) {
	where := []string{"1=1"}
	args := []any{}
	like := func(col, v string) {
		if s := strings.TrimSpace(v); s != "" {
			where = append(where, col+" LIKE ?")
			args = append(args, "%"+s+"%")
		}
	}
	if f.Status != "" {
		where = append(where, "r.statut=?")
		args = append(args, string(f.Status))
	}
	like("r.compagnie", f.Company)
	like("r.ville_depart", f.Origin)
	like("r.ville_arrivee", f.Destination)
	if s := strings.TrimSpace(f.User); s != "" {
		where = append(where, "(u.name LIKE ? OR u.email LIKE ?)")
		args = append(args, "%"+s+"%", "%"+s+"%")
	}
	if f.Day != nil {
		where = append(where, "r.date_depart >= ? AND r.date_depart < ?")
		args = append(args, *f.Day, f.Day.AddDate(0, 0, 1))
	}
	clause := `WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := r.db().QueryRowContext(ctx, `SELECT COUNT(*)`+reservationFrom+` `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}

	tail := clause + ` ORDER BY r.created_at DESC, r.id DESC`
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		tail += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, (page-1)*f.Limit)
	}
	out, err := r.query(ctx, tail, args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r ReservationRepository) query(ctx context.Context, tail string, args ...any) ([]models.Reservation, error) {
	rows, err := r.db().QueryContext(ctx, `SELECT `+reservationColumns+reservationFrom+` `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	out := []models.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// CountByStatus feeds the monitoring summary.
func (r ReservationRepository) CountByStatus(ctx context.Context) (map[models.ReservationStatus]int, error) {
	rows, err := r.db().QueryContext(ctx, `SELECT statut, COUNT(*) FROM reservations GROUP BY statut`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	out := map[models.ReservationStatus]int{}
	for rows.Next() {
		var (
			s string
			n int
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out[models.ReservationStatus(s)] = n
	}
	return out, rows.Err()
}
