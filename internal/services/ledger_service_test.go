package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
)

func int64p(v int64) *int64 { return &v }
func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func newLedger() (LedgerService, *memState) {
	state := newMemState()
	return LedgerService{Trips: memTrips{state}}, state
}

func tripInput(origin, destination, day string) models.TripInput {
	return models.TripInput{
		Origin:        origin,
		Destination:   destination,
		DepartureDate: day,
		DepartureTime: "08:00",
		Price:         int64p(5000),
		TotalSeats:    intp(30),
	}
}

func TestCreateTripDerivesFields(t *testing.T) {
	ledger, _ := newLedger()
	in := tripInput("  Abidjan ", "Yamoussoukro", "2026-11-02")
	in.VehicleType = "bus vip"
	in.Segments = []models.Segment{
		{Origin: "Abidjan", Destination: "Toumodi", Price: 2000},
		{Origin: "Toumodi", Destination: "Yamoussoukro", Price: 3000},
	}

	trip, err := ledger.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Abidjan", trip.Origin)
	assert.Equal(t, models.DefaultCompany, trip.Company)
	assert.Equal(t, "Bus VIP", trip.VehicleType)
	assert.Equal(t, 30, trip.Remaining)
	assert.Equal(t, int64(5000), trip.TotalPrice, "total mirrors the base price, segments are not summed")
	assert.True(t, trip.Active)
	assert.Len(t, trip.Segments, 2)
}

func TestCreateTripDefaultsSeats(t *testing.T) {
	ledger, _ := newLedger()
	in := tripInput("Abidjan", "Bouaké", "2026-11-02")
	in.TotalSeats = nil

	trip, err := ledger.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.MinSeats, trip.TotalSeats)
	assert.Equal(t, models.MinSeats, trip.Remaining)
}

func TestCreateTripValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.TripInput)
		route  bool
	}{
		{"missing origin", func(in *models.TripInput) { in.Origin = " " }, true},
		{"same endpoints", func(in *models.TripInput) { in.Destination = "ABIDJAN" }, true},
		{"missing price", func(in *models.TripInput) { in.Price = nil }, false},
		{"price below floor", func(in *models.TripInput) { in.Price = int64p(999) }, false},
		{"too few seats", func(in *models.TripInput) { in.TotalSeats = intp(9) }, false},
		{"too many seats", func(in *models.TripInput) { in.TotalSeats = intp(61) }, false},
		{"bad clock", func(in *models.TripInput) { in.DepartureTime = "8h" }, false},
		{"missing date", func(in *models.TripInput) { in.DepartureDate = "" }, false},
		{"unknown vehicle", func(in *models.TripInput) { in.VehicleType = "Train" }, false},
		{"cheap segment", func(in *models.TripInput) {
			in.Segments = []models.Segment{{Origin: "Abidjan", Destination: "Dabou", Price: 150}}
		}, false},
		{"segment same endpoints", func(in *models.TripInput) {
			in.Segments = []models.Segment{{Origin: "Dabou", Destination: "dabou", Price: 500}}
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger, state := newLedger()
			in := tripInput("Abidjan", "Bouaké", "2026-11-02")
			tc.mutate(&in)

			_, err := ledger.Create(context.Background(), in)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err), "want validation error, got %T %v", err, err)
			assert.Equal(t, tc.route, errors.Is(err, domain.ErrInconsistentRoute))
			assert.Empty(t, state.trips)
		})
	}
}

func TestCreateTripDuplicateSameDay(t *testing.T) {
	ledger, _ := newLedger()
	ctx := context.Background()

	_, err := ledger.Create(ctx, tripInput("Abidjan", "Bouaké", "2026-11-02"))
	require.NoError(t, err)

	_, err = ledger.Create(ctx, tripInput("abidjan", "BOUAKÉ", "2026-11-02 18:30:00"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateTrip)
	assert.True(t, domain.IsConflict(err))

	_, err = ledger.Create(ctx, tripInput("Abidjan", "Bouaké", "2026-11-03"))
	assert.NoError(t, err, "next day is a different slot")
}

func TestRetiredTripFreesItsSlot(t *testing.T) {
	ledger, _ := newLedger()
	ctx := context.Background()

	first, err := ledger.Create(ctx, tripInput("Abidjan", "Bouaké", "2026-11-02"))
	require.NoError(t, err)
	retired, err := ledger.Retire(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, retired.Active)

	_, err = ledger.Create(ctx, tripInput("Abidjan", "Bouaké", "2026-11-02"))
	assert.NoError(t, err)

	_, err = ledger.Retire(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrTripNotFound)
}

func TestUpdateTripClampsRemaining(t *testing.T) {
	ledger, state := newLedger()
	ctx := context.Background()

	trip, err := ledger.Create(ctx, tripInput("Abidjan", "Bouaké", "2026-11-02"))
	require.NoError(t, err)
	state.trips[trip.ID].Remaining = 25

	updated, err := ledger.Update(ctx, trip.ID, models.TripPatch{TotalSeats: intp(20)})
	require.NoError(t, err)
	assert.Equal(t, 20, updated.TotalSeats)
	assert.Equal(t, 20, updated.Remaining)

	updated, err = ledger.Update(ctx, trip.ID, models.TripPatch{TotalSeats: intp(40)})
	require.NoError(t, err)
	assert.Equal(t, 40, updated.TotalSeats)
	assert.Equal(t, 20, updated.Remaining, "raising the total never raises remaining")
}

func TestUpdateTripPatchSemantics(t *testing.T) {
	ledger, _ := newLedger()
	ctx := context.Background()

	in := tripInput("Abidjan", "Bouaké", "2026-11-02")
	in.Segments = []models.Segment{{Origin: "Abidjan", Destination: "Tiébissou", Price: 4000}}
	trip, err := ledger.Create(ctx, in)
	require.NoError(t, err)

	updated, err := ledger.Update(ctx, trip.ID, models.TripPatch{Price: int64p(6000), Company: strp("UTB")})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), updated.Price)
	assert.Equal(t, int64(6000), updated.TotalPrice)
	assert.Equal(t, "UTB", updated.Company)
	assert.Equal(t, "Bouaké", updated.Destination)
	assert.Len(t, updated.Segments, 1, "segments kept when not supplied")

	empty := []models.Segment{}
	updated, err = ledger.Update(ctx, trip.ID, models.TripPatch{Segments: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.Segments)
}

func TestUpdateTripDuplicateExcludesItself(t *testing.T) {
	ledger, _ := newLedger()
	ctx := context.Background()

	a, err := ledger.Create(ctx, tripInput("Abidjan", "Bouaké", "2026-11-02"))
	require.NoError(t, err)
	_, err = ledger.Create(ctx, tripInput("Abidjan", "Bouaké", "2026-11-03"))
	require.NoError(t, err)

	_, err = ledger.Update(ctx, a.ID, models.TripPatch{DepartureTime: strp("09:30")})
	assert.NoError(t, err)

	_, err = ledger.Update(ctx, a.ID, models.TripPatch{DepartureDate: strp("2026-11-03")})
	assert.ErrorIs(t, err, domain.ErrDuplicateTrip)
}

func TestAdjustRemainingClamps(t *testing.T) {
	ledger, _ := newLedger()
	ctx := context.Background()

	trip, err := ledger.Create(ctx, tripInput("Abidjan", "Bouaké", "2026-11-02"))
	require.NoError(t, err)

	got, err := ledger.AdjustRemaining(ctx, trip.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 30, got.Remaining)

	got, err = ledger.AdjustRemaining(ctx, trip.ID, -100)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Remaining)

	_, err = ledger.AdjustRemaining(ctx, 999, 1)
	assert.ErrorIs(t, err, domain.ErrTripNotFound)
}

func TestSegmentOperations(t *testing.T) {
	ledger, _ := newLedger()
	ctx := context.Background()

	trip, err := ledger.Create(ctx, tripInput("Abidjan", "Bouaké", "2026-11-02"))
	require.NoError(t, err)

	trip, err = ledger.AddSegment(ctx, trip.ID, models.Segment{Origin: "Abidjan", Destination: "Toumodi", Price: 2500})
	require.NoError(t, err)
	require.Len(t, trip.Segments, 1)
	segID := trip.Segments[0].ID

	trip, err = ledger.UpdateSegment(ctx, trip.ID, segID, models.SegmentPatch{Price: int64p(2700)})
	require.NoError(t, err)
	assert.Equal(t, int64(2700), trip.Segments[0].Price)
	assert.Equal(t, int64(5000), trip.TotalPrice)

	_, err = ledger.UpdateSegment(ctx, trip.ID, segID, models.SegmentPatch{Price: int64p(100)})
	assert.True(t, domain.IsValidation(err))

	trip, err = ledger.DeleteSegment(ctx, trip.ID, segID)
	require.NoError(t, err)
	assert.Empty(t, trip.Segments)

	_, err = ledger.DeleteSegment(ctx, trip.ID, segID)
	assert.True(t, domain.IsNotFound(err))
}

func TestSegmentEditsOnRetiredTrip(t *testing.T) {
	ledger, _ := newLedger()
	ctx := context.Background()

	in := tripInput("Abidjan", "Bouaké", "2026-11-02")
	in.Segments = []models.Segment{{Origin: "Abidjan", Destination: "Toumodi", Price: 2500}}
	trip, err := ledger.Create(ctx, in)
	require.NoError(t, err)
	segID := trip.Segments[0].ID
	_, err = ledger.Retire(ctx, trip.ID)
	require.NoError(t, err)

	_, err = ledger.AddSegment(ctx, trip.ID, models.Segment{Origin: "Toumodi", Destination: "Bouaké", Price: 3000})
	assert.ErrorIs(t, err, domain.ErrTripNotFound)
	_, err = ledger.UpdateSegment(ctx, trip.ID, segID, models.SegmentPatch{Price: int64p(2700)})
	assert.ErrorIs(t, err, domain.ErrTripNotFound)
	_, err = ledger.DeleteSegment(ctx, trip.ID, segID)
	assert.ErrorIs(t, err, domain.ErrTripNotFound)

	stored, err := ledger.Get(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, stored.Segments, 1)
	assert.Equal(t, int64(2500), stored.Segments[0].Price)
}

func TestFindSegmentIsCaseInsensitive(t *testing.T) {
	trip := models.Trip{Segments: []models.Segment{
		{ID: 1, Origin: "Abidjan", Destination: "Toumodi", Price: 2000},
		{ID: 2, Origin: "Toumodi", Destination: "Yamoussoukro", Price: 3000},
	}}

	seg, ok := FindSegment(trip, " toumodi", "YAMOUSSOUKRO ")
	require.True(t, ok)
	assert.Equal(t, int64(2), seg.ID)

	_, ok = FindSegment(trip, "Abidjan", "Yamoussoukro")
	assert.False(t, ok)
}
