package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/repositories"
	"busticket/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTokenTTL = 24 * time.Hour

type AuthService struct {
	Users     repositories.UserRepository
	JWTSecret string
	TokenTTL  time.Duration
	Now       func() time.Time
	RequestID string
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates a passenger account and returns a session token.
func (s AuthService) Register(ctx context.Context, in RegisterInput) (models.User, string, error) {
	in.Name = utils.NormalizeSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validate.Struct(in); err != nil {
		return models.User{}, "", validationError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, "", domain.InternalError{Msg: "hash password", Err: err}
	}
	u := models.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Role:         domain.RolePassenger,
		PasswordHash: string(hash),
	}
	id, err := s.Users.Create(ctx, u)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return models.User{}, "", domain.ConflictError{Resource: "user", Msg: "email already registered", Err: err}
		}
		return models.User{}, "", domain.InternalError{Msg: "create user", Err: err}
	}
	u.ID = id

	token, err := s.IssueToken(u)
	if err != nil {
		return models.User{}, "", err
	}
	utils.LogEvent(s.RequestID, "auth", "register", "user registered")
	return u, token, nil
}

// Login checks credentials. Unknown email and wrong password look the same.
func (s AuthService) Login(ctx context.Context, in LoginInput) (models.User, string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(in); err != nil {
		return models.User{}, "", validationError(err)
	}
	u, err := s.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, "", domain.UnauthorizedError{Msg: "invalid email or password"}
	}
	if err != nil {
		return models.User{}, "", domain.InternalError{Msg: "load user", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return models.User{}, "", domain.UnauthorizedError{Msg: "invalid email or password"}
	}
	token, err := s.IssueToken(u)
	if err != nil {
		return models.User{}, "", err
	}
	return u, token, nil
}

// IssueToken signs an HS256 token carrying user_id and role.
func (s AuthService) IssueToken(u models.User) (string, error) {
	if s.JWTSecret == "" {
		return "", domain.InternalError{Msg: "jwt secret not configured"}
	}
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := nowOr(s.Now)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"role":    u.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(s.JWTSecret))
	if err != nil {
		return "", domain.InternalError{Msg: "sign token", Err: err}
	}
	return signed, nil
}
