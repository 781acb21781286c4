package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/auth"
	"github.com/nebula-auto-parts/storefront/internal/model"
	"github.com/nebula-auto-parts/storefront/internal/repository"
)

const invalidCredentials = "invalid email or password"

// AuthService registers users, checks credentials and issues tokens.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                                 ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and a freshly issued token.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput is a sign-up form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Gender   string
	Address  string
}

// Register creates a password account and logs it in.
//
// Name, email and password are required. The email is stored lower-cased;
// one that is already registered is a validation error and no second user
// is created.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	gender, err := normalizeGender(in.Gender)
	if err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(in.Phone),
		Gender:       gender,
		Address:      strings.TrimSpace(in.Address),
		Role:         model.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: registering %s: %w", email, err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return s.issue(user)
}

// Login checks an email and password. An unknown email and a wrong
// password fail the same way so callers cannot tell which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.Unauthorized(invalidCredentials)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login failed", slog.String("userID", user.ID))
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return s.issue(user)
}

// LoginOrRegisterGoogle handles a completed Google sign-in.
//
// The account is found by Google subject first, then by email (which
// links a Google login to an existing password account). When neither
// matches a new account is created.
func (s *AuthService) LoginOrRegisterGoogle(ctx context.Context, gu *auth.GoogleUser) (*AuthResult, error) {
	if gu == nil {
		return nil, fmt.Errorf("service/auth: Google user must not be nil")
	}

	user, err := s.users.GetByGoogleID(ctx, gu.Sub)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up Google account %s: %w", gu.Sub, err)
	}

	// An unverified address must not claim an existing account by email,
	// nor reserve one for a new account.
	if !gu.EmailVerified {
		return nil, apperror.ValidationFailed("email", "Google email address is not verified")
	}

	email := strings.ToLower(strings.TrimSpace(gu.Email))
	sub := gu.Sub

	user, err = s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		user.GoogleID = &sub
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: linking Google account to %s: %w", user.ID, err)
		}
		s.logger.Info("Google account linked", slog.String("userID", user.ID))

	case errors.Is(err, apperror.ErrNotFound):
		name := strings.TrimSpace(gu.Name)
		if name == "" {
			name, _, _ = strings.Cut(email, "@")
		}
		user = &model.User{
			GoogleID: &sub,
			Name:     name,
			Email:    email,
			Role:     model.RoleUser,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating Google user %s: %w", email, err)
		}
		s.logger.Info("user registered via Google", slog.String("userID", user.ID))

	default:
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	return s.issue(user)
}

// EnsureAdmin makes sure an admin account exists for email. A missing
// account is created with password; an existing one is promoted and keeps
// its password.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*model.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if user.IsAdmin() {
			return user, nil
		}
		user.Role = model.RoleAdmin
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: promoting %s: %w", email, err)
		}
		s.logger.Info("user promoted to admin", slog.String("userID", user.ID))
		return user, nil

	case errors.Is(err, apperror.ErrNotFound):
		hash, err := s.passwords.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("service/auth: hashing admin password: %w", err)
		}
		user = &model.User{
			Name:         "Administrator",
			Email:        email,
			PasswordHash: hash,
			Role:         model.RoleAdmin,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating admin %s: %w", email, err)
		}
		s.logger.Info("admin account created", slog.String("userID", user.ID))
		return user, nil

	default:
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
}

// GetUserByID returns the user behind an authenticated request.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(auth.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
