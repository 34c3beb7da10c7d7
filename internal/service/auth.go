// Package service contains the business logic layer.
//
// Handlers parse HTTP and write responses; services enforce the rules and
// orchestrate repositories and external clients; repositories talk to the
// store. Services return domain errors from internal/apperror — the
// translation to status codes happens at the HTTP boundary.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sakif/study-helper/internal/apperror"
	"github.com/sakif/study-helper/internal/auth"
	"github.com/sakif/study-helper/internal/model"
	"github.com/sakif/study-helper/internal/repository"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// emailPattern is a shape check, not full RFC validation: something,
// an @, something, a dot, something. Anything stricter rejects real
// addresses.
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// AuthService handles registration, login, and account management.
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

// AuthResult bundles the account and its freshly issued bearer token, so
// the handler can respond with both in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a new account and issues its first token.
//
// Validation happens before hashing: email shape, then password length.
// The email is lowercased and trimmed so uniqueness is effectively
// case-insensitive. A duplicate registration fails with ErrDuplicate.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "please provide email and password")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperror.ValidationFailed("email", "please provide a valid email")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// ErrDuplicate propagates as-is; the handler maps it to 400.
		return nil, err
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies credentials and issues a token.
//
// Unknown email and wrong password return the identical Unauthenticated
// message, so a caller can't probe which emails are registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "please provide email and password")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Unauthenticated("invalid email or password")
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthenticated("invalid email or password")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the account for the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetByID(ctx, id)
}

// UpdatePassword re-verifies the current password and stores a new hash
// with a fresh salt. Outstanding tokens stay valid — there is no
// revocation list.
func (s *AuthService) UpdatePassword(ctx context.Context, user *model.User, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apperror.ValidationFailed("password", "please provide current and new password")
	}
	if len(newPassword) < MinPasswordLength {
		return apperror.ValidationFailed("newPassword",
			fmt.Sprintf("new password must be at least %d characters", MinPasswordLength))
	}

	if err := s.passwords.Verify(user.PasswordHash, currentPassword); err != nil {
		return apperror.Unauthenticated("current password is incorrect")
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("service/auth: hashing new password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("service/auth: updating password for user %s: %w", user.ID, err)
	}

	s.logger.Info("password updated", slog.String("userID", user.ID))
	return nil
}

// DeleteAccount verifies the password one last time and removes the
// account. History entries go with it (store-level cascade).
func (s *AuthService) DeleteAccount(ctx context.Context, user *model.User, password string) error {
	if password == "" {
		return apperror.ValidationFailed("password", "please provide your password to confirm deletion")
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return apperror.Unauthenticated("password is incorrect")
	}

	if err := s.users.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("service/auth: deleting user %s: %w", user.ID, err)
	}

	s.logger.Info("account deleted", slog.String("userID", user.ID))
	return nil
}
