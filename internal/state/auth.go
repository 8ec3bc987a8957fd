package state

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/softrack-city/softrack/internal/api"
	"github.com/softrack-city/softrack/internal/models"
)

type loginCheck struct {
	Identifier string `validate:"notblank"`
	Password   string `validate:"required"`
}

// Login exchanges credentials for a token and stores it.
func (s *Store) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	if err := validationError(check(loginCheck{Identifier: identifier, Password: password}, "")); err != nil {
		return nil, err
	}

	token, err := s.gateway.Login(ctx, api.Credentials{Identifier: identifier, Password: password})
	if err != nil {
		s.logger.Warn("Login failed", zap.String("identifier", identifier), zap.Error(err))
		return nil, err
	}
	if err := s.session.SetToken(ctx, token); err != nil {
		return nil, err
	}

	user, _, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Logged in", zap.Int64("user_id", user.ID))
	return user, nil
}

// Register creates an account after checking the form locally.
func (s *Store) Register(ctx context.Context, reg api.Registration) error {
	if err := validationError(check(reg, "")); err != nil {
		return err
	}
	if err := s.gateway.Register(ctx, reg); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return nil
}

// Logout ends the session on the backend and always forgets the local token,
// even when the backend call fails.
func (s *Store) Logout(ctx context.Context) error {
	var logoutErr error
	if _, token, err := s.session.Current(ctx); err == nil {
		if err := s.gateway.Logout(ctx, token); err != nil {
			s.logger.Warn("Backend logout failed", zap.Error(err))
			logoutErr = backendErr(err)
		}
	}
	if err := s.session.Clear(ctx); err != nil {
		return err
	}
	return logoutErr
}

// CurrentUser returns the signed-in user, or ErrSessionExpired.
func (s *Store) CurrentUser(ctx context.Context) (*models.User, error) {
	user, _, err := s.authorize(ctx)
	return user, err
}
