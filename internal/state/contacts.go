package state

import (
	"context"

	"go.uber.org/zap"

	"github.com/softrack-city/softrack/internal/models"
)

// RegisterContact checks draft and, if it is complete, creates it on the
// backend in the background. The caller does not wait for the request; a
// failure is only logged. On success the contact becomes selectable.
func (s *Store) RegisterContact(ctx context.Context, draft models.ContactPerson) error {
	err := validationError(check(newContactCheck{
		Name:     draft.Name,
		LastName: draft.LastName,
		Email:    draft.Email,
		Phone:    draft.Phone.String(),
	}, ""))
	if err != nil {
		return err
	}

	_, token, err := s.authorize(ctx)
	if err != nil {
		return err
	}

	draft.ID = 0
	ctx = context.WithoutCancel(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		created, err := s.gateway.CreateContact(ctx, token, draft)
		if err != nil {
			s.logger.Error("Failed to register contact",
				zap.String("contact", draft.FullName()),
				zap.Error(err))
			return
		}

		s.mu.Lock()
		s.contacts = append(s.contacts, *created)
		s.mu.Unlock()

		s.logger.Info("Registered contact", zap.Int64("contact_id", created.ID))
	}()
	return nil
}
