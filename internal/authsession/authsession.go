// Package authsession binds upstream shopper accounts to storefront
// sessions. The upstream bearer token and a cached profile live in the
// key-value store per session, the way the storefront keeps everything else
// a shopper's browser used to hold.
package authsession

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/yourflorist/storefront/pkg/errors"
	"github.com/yourflorist/storefront/pkg/florist"
	"github.com/yourflorist/storefront/pkg/kv"
	"github.com/yourflorist/storefront/pkg/logger"
)

type upstream interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, input florist.RegisterInput) (*florist.User, error)
	CurrentUser(ctx context.Context, token string) (*florist.User, error)
	UpdateProfile(ctx context.Context, token string, update florist.ProfileUpdate) (*florist.User, error)
	ChangePassword(ctx context.Context, token, userID, currentPassword, newPassword string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error
}

type keyValueStore interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	Del(ctx context.Context, keys ...string) error
	AuthTokenKey(sessionID string) string
	ProfileKey(sessionID string) string
	SessionTTL() time.Duration
}

// Service manages the signed-in state of shopper sessions.
type Service struct {
	api   upstream
	store keyValueStore
	logg  *logger.Logger
}

// NewService wires the auth session service.
func NewService(api upstream, store keyValueStore, logg *logger.Logger) *Service {
	return &Service{api: api, store: store, logg: logg}
}

// Login exchanges credentials for an upstream token, resolves the profile
// and binds both to the session.
func (s *Service) Login(ctx context.Context, sessionID, email, password string) (*florist.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "email and password are required")
	}

	token, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	user, err := s.api.CurrentUser(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.bind(ctx, sessionID, token, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Register creates the account upstream and signs the shopper in with the
// same credentials.
func (s *Service) Register(ctx context.Context, sessionID string, input florist.RegisterInput) (*florist.User, error) {
	user, err := s.api.Register(ctx, input)
	if err != nil {
		return nil, err
	}

	token, err := s.api.Login(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	if err := s.bind(ctx, sessionID, token, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout forgets the session's token and cached profile. The upstream has
// no revocation endpoint; dropping the token is the whole operation.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	err := s.store.Del(ctx, s.store.AuthTokenKey(sessionID), s.store.ProfileKey(sessionID))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "clearing auth session")
	}
	return nil
}

// CurrentUser revalidates the session's token upstream. An authentication
// failure ends the signed-in state; a transient upstream failure falls back
// to the cached profile so a flaky network does not log shoppers out.
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*florist.User, error) {
	token, err := s.Token(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	user, err := s.api.CurrentUser(ctx, token)
	if err == nil {
		s.cacheProfile(ctx, sessionID, user)
		return user, nil
	}

	if coded := apperrors.As(err); coded != nil {
		switch coded.Code() {
		case apperrors.CodeUnauthorized, apperrors.CodeForbidden:
			if logoutErr := s.Logout(ctx, sessionID); logoutErr != nil {
				s.logg.Error(ctx, "clearing session after auth failure", logoutErr)
			}
			return nil, err
		}
	}

	if cached := s.cachedProfile(ctx, sessionID); cached != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "profile refresh failed, serving cached profile")
		return cached, nil
	}
	return nil, err
}

// Token returns the session's upstream bearer token, or CodeUnauthorized
// when the shopper is not signed in.
func (s *Service) Token(ctx context.Context, sessionID string) (string, error) {
	var token string
	err := s.store.GetJSON(ctx, s.store.AuthTokenKey(sessionID), &token)
	if errors.Is(err, kv.ErrNotFound) || (err == nil && token == "") {
		return "", apperrors.New(apperrors.CodeUnauthorized, "not signed in")
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, err, "loading auth token")
	}
	return token, nil
}

// UpdateProfile patches the upstream profile and refreshes the cache.
func (s *Service) UpdateProfile(ctx context.Context, sessionID string, update florist.ProfileUpdate) (*florist.User, error) {
	token, err := s.Token(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	user, err := s.api.UpdateProfile(ctx, token, update)
	if err != nil {
		return nil, err
	}
	s.cacheProfile(ctx, sessionID, user)
	return user, nil
}

// ChangePassword rotates the signed-in shopper's password.
func (s *Service) ChangePassword(ctx context.Context, sessionID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apperrors.New(apperrors.CodeValidation, "current and new passwords are required")
	}

	token, err := s.Token(ctx, sessionID)
	if err != nil {
		return err
	}
	user, err := s.CurrentUser(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.api.ChangePassword(ctx, token, user.ID.String(), currentPassword, newPassword)
}

// RequestPasswordReset starts the email reset flow; no session required.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.New(apperrors.CodeValidation, "email is required")
	}
	return s.api.RequestPasswordReset(ctx, email)
}

// ConfirmPasswordReset completes the reset flow with the emailed token.
func (s *Service) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" || newPassword == "" {
		return apperrors.New(apperrors.CodeValidation, "reset token and new password are required")
	}
	return s.api.ConfirmPasswordReset(ctx, resetToken, newPassword)
}

func (s *Service) bind(ctx context.Context, sessionID, token string, user *florist.User) error {
	ttl := s.store.SessionTTL()
	if err := s.store.SetJSON(ctx, s.store.AuthTokenKey(sessionID), token, ttl); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "saving auth token")
	}
	s.cacheProfile(ctx, sessionID, user)
	return nil
}

// cacheProfile is best-effort; the upstream remains the source of truth.
func (s *Service) cacheProfile(ctx context.Context, sessionID string, user *florist.User) {
	if user == nil {
		return
	}
	if err := s.store.SetJSON(ctx, s.store.ProfileKey(sessionID), user, s.store.SessionTTL()); err != nil {
		s.logg.Error(ctx, "caching shopper profile", err)
	}
}

func (s *Service) cachedProfile(ctx context.Context, sessionID string) *florist.User {
	var user florist.User
	if err := s.store.GetJSON(ctx, s.store.ProfileKey(sessionID), &user); err != nil {
		return nil
	}
	if user.ID == "" {
		return nil
	}
	return &user
}
