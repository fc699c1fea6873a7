package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
	"kocrou/internal/utils"
)

const (
	AccessTokenTTL  = 7 * 24 * time.Hour
	RefreshTokenTTL = 30 * 24 * time.Hour

	minNameLength     = 2
	minPasswordLength = 6
	refreshTokenKind  = "refresh"
)

// Claims are carried by both token kinds; refresh tokens only fill the id.
type Claims struct {
	UserID  int64  `json:"id"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
	Kind    string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

type AuthService struct {
	Users         UserStore
	Secret        []byte
	RefreshSecret []byte
	RequestID     string
	Now           func() time.Time
}

type Session struct {
	Token        string            `json:"token"`
	RefreshToken string            `json:"refreshToken"`
	User         models.PublicUser `json:"user"`
}

func (s AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s AuthService) refreshSecret() []byte {
	if len(s.RefreshSecret) > 0 {
		return s.RefreshSecret
	}
	return s.Secret
}

func (s AuthService) Register(ctx context.Context, name, email, password string) (models.User, error) {
	name = utils.NormalizeSpace(name)
	email = utils.NormalizeEmail(email)
	if len([]rune(name)) < minNameLength {
		return models.User{}, domain.ValidationError{Field: "name", Msg: "le nom doit contenir au moins 2 caractères"}
	}
	if !utils.ValidEmail(email) {
		return models.User{}, domain.ValidationError{Field: "email", Msg: "veuillez entrer un e-mail valide"}
	}
	if len(password) < minPasswordLength {
		return models.User{}, domain.ValidationError{Field: "password", Msg: "le mot de passe doit contenir au moins 6 caractères"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, domain.InternalError{Msg: "échec du hachage du mot de passe", Err: err}
	}
	u := models.User{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.Users.Insert(ctx, &u); err != nil {
		return models.User{}, err
	}
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	utils.LogEvent(s.RequestID, "auth", "register", "user_id="+strconv.FormatInt(u.ID, 10))
	return u, nil
}

func (s AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.Users.GetByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, domain.UnauthorizedError{Code: domain.CodeInvalidCredentials, Err: domain.ErrInvalidCredentials}
	}
	token, err := s.AccessToken(u)
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.RefreshToken(u)
	if err != nil {
		return Session{}, err
	}
	utils.LogEvent(s.RequestID, "auth", "login", "user_id="+strconv.FormatInt(u.ID, 10))
	return Session{Token: token, RefreshToken: refresh, User: u.ToPublic()}, nil
}

// Refresh trades a refresh token for a new access token.
func (s AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", domain.ValidationError{Field: "refreshToken", Msg: "refresh token manquant"}
	}
	claims, err := s.parse(refreshToken, s.refreshSecret())
	if err != nil {
		return "", err
	}
	if claims.Kind != refreshTokenKind {
		return "", domain.UnauthorizedError{Code: domain.CodeTokenInvalid, Err: errors.New("token invalide ou expiré")}
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	return s.AccessToken(u)
}

func (s AuthService) AccessToken(u models.User) (string, error) {
	return s.sign(Claims{UserID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin}, s.Secret, AccessTokenTTL)
}

func (s AuthService) RefreshToken(u models.User) (string, error) {
	return s.sign(Claims{UserID: u.ID, Kind: refreshTokenKind}, s.refreshSecret(), RefreshTokenTTL)
}

func (s AuthService) sign(c Claims, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(c.UserID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		return "", domain.InternalError{Msg: "échec de création du token", Err: err}
	}
	return signed, nil
}

func (s AuthService) parse(token string, secret []byte) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, domain.UnauthorizedError{Code: domain.CodeTokenExpired, Err: errors.New("token expiré")}
		}
		return Claims{}, domain.UnauthorizedError{Code: domain.CodeTokenInvalid, Err: errors.New("token invalide")}
	}
	return claims, nil
}

// Authenticate resolves an access token to the current user. The user is
// reloaded so a demoted or deleted account loses access immediately.
func (s AuthService) Authenticate(ctx context.Context, token string) (domain.Actor, error) {
	if token == "" {
		return domain.Actor{}, domain.UnauthorizedError{Code: domain.CodeNoToken, Err: errors.New("accès refusé : aucun token fourni")}
	}
	claims, err := s.parse(token, s.Secret)
	if err != nil {
		return domain.Actor{}, err
	}
	if claims.Kind == refreshTokenKind {
		return domain.Actor{}, domain.UnauthorizedError{Code: domain.CodeTokenInvalid, Err: errors.New("token invalide")}
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.Actor{}, domain.UnauthorizedError{Code: domain.CodeUserNotFound, Err: domain.ErrUserNotFound}
		}
		return domain.Actor{}, err
	}
	return domain.Actor{UserID: u.ID, Email: u.Email, Name: u.Name, IsAdmin: u.IsAdmin}, nil
}

func (s AuthService) Profile(ctx context.Context, userID int64) (models.User, error) {
	return s.Users.GetByID(ctx, userID)
}
