package services

import (
	"context"
	"strconv"

	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
	"kocrou/internal/utils"
)

// UserService backs the admin user screens.
type UserService struct {
	Users     UserStore
	RequestID string
}

func (s UserService) List(ctx context.Context) ([]models.User, error) {
	return s.Users.List(ctx)
}

func (s UserService) Promote(ctx context.Context, id int64) (models.User, error) {
	if err := s.Users.SetAdmin(ctx, id, true); err != nil {
		return models.User{}, err
	}
	utils.LogEvent(s.RequestID, "users", "promote", "user_id="+strconv.FormatInt(id, 10))
	return s.Users.GetByID(ctx, id)
}

// Delete removes an account. Admins cannot delete themselves; their
// reservations stay with an empty owner.
func (s UserService) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if actor.UserID == id {
		return domain.ValidationError{Field: "id", Msg: "impossible de supprimer votre propre compte"}
	}
	if err := s.Users.Delete(ctx, id); err != nil {
		return err
	}
	utils.LogEvent(s.RequestID, "users", "delete", "user_id="+strconv.FormatInt(id, 10))
	return nil
}
