package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	intconfig "kocrou/internal/config"
	"kocrou/internal/domain/models"
	h "kocrou/internal/http/handlers"
	"kocrou/internal/repositories"
	"kocrou/internal/services"
)

var (
	userCols = []string{"id", "name", "email", "password_hash", "is_admin", "created_at", "updated_at"}
	tripCols = []string{
		"id", "compagnie", "ville_depart", "ville_arrivee", "date_depart", "heure_depart",
		"heure_arrivee", "prix", "prix_total", "nombre_places", "places_restantes",
		"type_vehicule", "actif", "created_at", "updated_at",
	}
	testSecret = []byte("router-test-secret")
)

type harness struct {
	engine *gin.Engine
	mock   sqlmock.Sqlmock
	db     *sql.DB
}

func newHarness(t *testing.T) harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	app := &h.App{
		Trips:            repositories.TripRepository{DB: db},
		Reservations:     repositories.ReservationRepository{DB: db},
		Users:            repositories.UserRepository{DB: db},
		Settings:         repositories.SettingsRepository{DB: db},
		DB:               db,
		JWTSecret:        testSecret,
		JWTRefreshSecret: testSecret,
	}
	return harness{engine: NewRouter(intconfig.Env{}, app), mock: mock, db: db}
}

func tokenFor(t *testing.T, id int64, admin bool) string {
	t.Helper()
	tok, err := services.AuthService{Secret: testSecret}.AccessToken(models.User{ID: id, Email: "u@example.ci", IsAdmin: admin})
	require.NoError(t, err)
	return tok
}

func (hs harness) expectUser(id int64, admin bool, hash string) {
	now := time.Now()
	hs.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(id, "Awa", "u@example.ci", hash, admin, now, now))
}

func (hs harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	hs.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	hs := newHarness(t)
	w := hs.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestLoginReturnsTokens(t *testing.T) {
	hs := newHarness(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	hs.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).WithArgs("awa@example.ci").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(5), "Awa", "awa@example.ci", string(hash), false, now, now))

	w := hs.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "Awa@example.ci", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Connexion réussie ✅", body["message"])
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["refreshToken"])
	require.NoError(t, hs.mock.ExpectationsWereMet())
}

func TestRefreshWithoutToken(t *testing.T) {
	hs := newHarness(t)
	w := hs.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Refresh token manquant.", decode(t, w)["message"])
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	hs := newHarness(t)
	w := hs.do(http.MethodGet, "/api/reservations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "NO_TOKEN", decode(t, w)["errorCode"])
}

func TestAdminRoutesRejectUsers(t *testing.T) {
	hs := newHarness(t)
	hs.expectUser(2, false, "x")
	w := hs.do(http.MethodGet, "/api/reservations/admin/reservations", tokenFor(t, 2, false), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ADMIN_REQUIRED", decode(t, w)["errorCode"])
}

func TestCreateReservationRequiresTrip(t *testing.T) {
	hs := newHarness(t)
	hs.expectUser(2, false, "x")
	w := hs.do(http.MethodPost, "/api/reservations", tokenFor(t, 2, false), map[string]any{"seat": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "L'ID du trajet est requis.", decode(t, w)["message"])
}

func TestCreateReservationRejectsSeatBeforeLookup(t *testing.T) {
	hs := newHarness(t)
	hs.expectUser(2, false, "x")
	w := hs.do(http.MethodPost, "/api/reservations", tokenFor(t, 2, false), map[string]any{"trajetId": 9, "seat": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decode(t, w)["code"])
	require.NoError(t, hs.mock.ExpectationsWereMet())
}

func TestReservedSeats(t *testing.T) {
	hs := newHarness(t)
	hs.expectUser(2, false, "x")
	now := time.Now()
	hs.mock.ExpectQuery(regexp.QuoteMeta("FROM trips WHERE id=?")).WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(tripCols).AddRow(
			int64(9), "UTB", "Abidjan", "Bouaké", now, "07:30", "", int64(8000), int64(8000), 30, 27,
			"Autocar", true, now, now))
	hs.mock.ExpectQuery("FROM trip_segments").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "trip_id", "depart", "arrivee", "prix"}))
	hs.mock.ExpectQuery("SELECT DISTINCT active_seat").WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"active_seat"}).AddRow(1).AddRow(4).AddRow(7))

	w := hs.do(http.MethodGet, "/api/reservations/trajet/9", tokenFor(t, 2, false), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, "[1,4,7]", w.Body.String())
	require.NoError(t, hs.mock.ExpectationsWereMet())
}

func TestReservedSeatsUnknownTrip(t *testing.T) {
	hs := newHarness(t)
	hs.expectUser(2, false, "x")
	hs.mock.ExpectQuery(regexp.QuoteMeta("FROM trips WHERE id=?")).WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(tripCols))

	w := hs.do(http.MethodGet, "/api/reservations/trajet/404", tokenFor(t, 2, false), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminListRejectsBadDate(t *testing.T) {
	hs := newHarness(t)
	hs.expectUser(1, true, "x")
	w := hs.do(http.MethodGet, "/api/reservations/admin/reservations?dateDepart=14-03-2026", tokenFor(t, 1, true), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(decode(t, w)["message"].(string), "dateDepart"))
}

func TestSettingsArePublic(t *testing.T) {
	hs := newHarness(t)
	hs.mock.ExpectQuery("FROM settings WHERE id=").
		WillReturnRows(sqlmock.NewRows([]string{"company_name", "logo", "contact_email", "phone", "address", "working_hours"}).
			AddRow("Kocrou Transport & Frères", "", "contact@kocrou.ci", "", "Abidjan", ""))

	w := hs.do(http.MethodGet, "/api/settings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Abidjan", decode(t, w)["address"])
}

func TestUnknownRoute(t *testing.T) {
	hs := newHarness(t)
	w := hs.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
