// Package auth owns credentials: registration, login and session tokens.
package auth

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"gator-forum/internal/config"
	"gator-forum/internal/models"
	"gator-forum/internal/utils"

	"github.com/google/uuid"
)

const MinPasswordLength = 8

// MaxPasswordLength is the most bcrypt will hash.
const MaxPasswordLength = 72

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// UserRepository is the storage the credential service needs.
type UserRepository interface {
	// InsertUser fails with DUPLICATE_EMAIL when the email is taken.
	InsertUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned by Register and Login.
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      models.Profile `json:"user"`
}

type Service struct {
	users       UserRepository
	tokens      *TokenIssuer
	cost        int
	registerTTL time.Duration
	loginTTL    time.Duration
	admins      map[string]bool
	logger      *slog.Logger
}

func NewService(users UserRepository, cfg *config.AuthConfig, logger *slog.Logger) (*Service, error) {
	tokens, err := NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, err
	}
	admins := make(map[string]bool, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		admins[normalizeEmail(email)] = true
	}
	return &Service{
		users:       users,
		tokens:      tokens,
		cost:        cfg.BcryptCost,
		registerTTL: cfg.RegisterTTL,
		loginTTL:    cfg.LoginTTL,
		admins:      admins,
		logger:      logger,
	}, nil
}

// Register creates a user and returns a short-lived session.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)

	if username == "" || email == "" || in.Password == "" {
		return nil, utils.NewValidationError("All fields (username, email and password) are required")
	}
	if !emailPattern.MatchString(email) {
		return nil, utils.NewValidationError("Please fill a valid email address")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, utils.NewValidationError("Password must be at least 8 characters")
	}
	if len(in.Password) > MaxPasswordLength {
		return nil, utils.NewValidationError("Password must be at most 72 bytes")
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !utils.IsErrorCode(err, utils.ErrUserNotFound) {
		return nil, utils.NewUnexpectedError("failed to look up email", err)
	}
	if existing != nil {
		return nil, utils.NewAppError(utils.ErrDuplicateEmail, "User with this email already exists", nil)
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, utils.NewUnexpectedError("failed to hash password", err)
	}

	user := &models.User{
		ID:             uuid.New(),
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		IsAdmin:        s.admins[email],
		CreatedAt:      time.Now().UTC(),
	}
	// Hashing is slow enough for the caller to give up meanwhile.
	if err := ctx.Err(); err != nil {
		return nil, utils.NewUnexpectedError("request expired before the user was saved", err)
	}
	if err := s.users.InsertUser(ctx, user); err != nil {
		if _, ok := utils.AsAppError(err); ok {
			return nil, err
		}
		return nil, utils.NewUnexpectedError("failed to save user", err)
	}

	s.logger.Info("user registered", "user", user.ID, "admin", user.IsAdmin)
	return s.session(user, s.registerTTL)
}

// Login checks the password and returns a long-lived session.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, utils.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if utils.IsErrorCode(err, utils.ErrUserNotFound) {
			return nil, err
		}
		return nil, utils.NewUnexpectedError("failed to look up user", err)
	}

	ok, err := CheckPassword(user.HashedPassword, in.Password)
	if err != nil {
		return nil, utils.NewUnexpectedError("failed to compare password", err)
	}
	if !ok {
		s.logger.Debug("login rejected", "user", user.ID)
		return nil, utils.NewAppError(utils.ErrInvalidCredentials, "Invalid credentials", nil)
	}

	return s.session(user, s.loginTTL)
}

// Verify returns the user id carried by a valid, unexpired token.
func (s *Service) Verify(token string) (uuid.UUID, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}

// User loads the full user record; the gate uses it for the admin check.
func (s *Service) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		if _, ok := utils.AsAppError(err); ok {
			return nil, err
		}
		return nil, utils.NewUnexpectedError("failed to load user", err)
	}
	return user, nil
}

func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	user, err := s.User(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.Profile, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, utils.NewUnexpectedError("failed to list users", err)
	}
	out := make([]models.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out, nil
}

func (s *Service) session(user *models.User, ttl time.Duration) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, ttl)
	if err != nil {
		return nil, utils.NewUnexpectedError("failed to sign token", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user.Profile()}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
