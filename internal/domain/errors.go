package domain

import (
	"errors"
	"fmt"
)

// Sentinels for the booking core. They are always returned wrapped in one of
// the kind types below so both errors.Is and the Is* helpers work.
var (
	ErrTripNotFound        = errors.New("trajet introuvable")
	ErrReservationNotFound = errors.New("réservation introuvable")
	ErrCapacityExhausted   = errors.New("aucune place disponible")
	ErrSeatTaken           = errors.New("ce siège est déjà réservé")
	ErrInvalidSeat         = errors.New("numéro de siège invalide")
	ErrDuplicateTrip       = errors.New("un trajet identique existe déjà à cette date")
	ErrInconsistentRoute   = errors.New("villes de départ et d'arrivée incohérentes")
)

var (
	ErrUserNotFound       = errors.New("utilisateur introuvable")
	ErrEmailTaken         = errors.New("cet e-mail est déjà utilisé")
	ErrInvalidCredentials = errors.New("identifiants invalides")
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Resource == "" {
		return "introuvable"
	}
	return fmt.Sprintf("%s introuvable", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Field != "" {
		return fmt.Sprintf("%s invalide", e.Field)
	}
	return "données invalides"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	case e.Resource != "":
		return fmt.Sprintf("conflit sur %s", e.Resource)
	default:
		return "conflit"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// UnauthorizedError is returned when the caller identity cannot be established.
type UnauthorizedError struct {
	Code string
	Err  error
}

func (e UnauthorizedError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "accès refusé"
}

func (e UnauthorizedError) Unwrap() error { return e.Err }

// ForbiddenError is returned when the identity is known but lacks a privilege.
type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "accès interdit"
}

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "erreur interne"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsUnauthorized(err error) bool {
	var target UnauthorizedError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

// Helpers used by the ledger and the allocator.

func TripNotFound() error {
	return NotFoundError{Resource: "trajet", Err: ErrTripNotFound}
}

func ReservationNotFound() error {
	return NotFoundError{Resource: "réservation", Err: ErrReservationNotFound}
}

func CapacityExhausted() error {
	return ConflictError{Resource: "trajet", Err: ErrCapacityExhausted}
}

func SeatTaken(seat int) error {
	return ConflictError{Resource: "siège", Msg: fmt.Sprintf("le siège %d est déjà réservé", seat), Err: ErrSeatTaken}
}

func InvalidSeat(msg string) error {
	return ValidationError{Field: "seat", Msg: msg, Err: ErrInvalidSeat}
}

func DuplicateTrip(origin, destination, day string) error {
	return ConflictError{
		Resource: "trajet",
		Msg:      fmt.Sprintf("un trajet %s → %s prévu le %s existe déjà", origin, destination, day),
		Err:      ErrDuplicateTrip,
	}
}

func InconsistentRoute(msg string) error {
	return ValidationError{Field: "route", Msg: msg, Err: ErrInconsistentRoute}
}

// Auth failure codes surfaced to clients as errorCode.
const (
	CodeNoToken            = "NO_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeAdminRequired      = "ADMIN_REQUIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
)
