package services

import (
	"context"
	"time"

	"kocrou/internal/domain/models"
)

// TripStore is the persistence side of the ledger. repositories.TripRepository
// satisfies it against MySQL.
type TripStore interface {
	Insert(ctx context.Context, t *models.Trip) error
	Update(ctx context.Context, t *models.Trip, replaceSegments bool) error
	GetByID(ctx context.Context, id int64) (models.Trip, error)
	List(ctx context.Context, f models.TripFilter) ([]models.Trip, error)
	FindSameDay(ctx context.Context, origin, destination string, start, end time.Time, excludeID int64) (*models.Trip, error)
	AdjustRemaining(ctx context.Context, id int64, delta int) (int, error)
	Retire(ctx context.Context, id int64) error
	InsertSegment(ctx context.Context, tripID int64, s *models.Segment) error
	UpdateSegment(ctx context.Context, tripID int64, s models.Segment) error
	DeleteSegment(ctx context.Context, tripID, segmentID int64) (bool, error)
	RepairRemaining(ctx context.Context) (int64, error)
}

// ReservationStore must make Reserve atomic: the insert and the capacity
// decrement commit together or not at all.
type ReservationStore interface {
	Reserve(ctx context.Context, r *models.Reservation) (int, error)
	SeatHeld(ctx context.Context, tripID int64, seat int) (bool, error)
	GetByID(ctx context.Context, id int64) (models.Reservation, error)
	UpdateStatus(ctx context.Context, id int64, to models.ReservationStatus, from ...models.ReservationStatus) (models.Reservation, error)
	Delete(ctx context.Context, id int64) (models.Reservation, error)
	ListSeats(ctx context.Context, tripID int64) ([]int, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Reservation, error)
	List(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, int, error)
	RecentConfirmed(ctx context.Context, n int) ([]models.Reservation, error)
	CountByStatus(ctx context.Context) (map[models.ReservationStatus]int, error)
}

type UserStore interface {
	Insert(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id int64) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	SetAdmin(ctx context.Context, id int64, admin bool) error
	Delete(ctx context.Context, id int64) error
}

type ActivityStore interface {
	Insert(ctx context.Context, l *models.ActivityLog) error
	List(ctx context.Context, logType models.LogType, limit int) ([]models.ActivityLog, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type SettingsStore interface {
	Get(ctx context.Context, defaults models.Settings) (models.Settings, error)
	Save(ctx context.Context, s models.Settings) error
}
