package state

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/softrack-city/softrack/internal/listview"
	"github.com/softrack-city/softrack/internal/models"
)

type DialogMode int

const (
	DialogClosed DialogMode = iota
	DialogAdd
	DialogEdit
)

func (m DialogMode) String() string {
	switch m {
	case DialogAdd:
		return "add"
	case DialogEdit:
		return "edit"
	default:
		return "closed"
	}
}

// Dialog is the editor's mode and the record it started from.
type Dialog struct {
	Mode   DialogMode
	Target models.SoftwareAsset
}

// BeginAdd opens the editor for a new asset.
func (s *Store) BeginAdd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialog = Dialog{Mode: DialogAdd}
}

// BeginEdit opens the editor on a copy of asset.
func (s *Store) BeginEdit(asset models.SoftwareAsset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialog = Dialog{Mode: DialogEdit, Target: asset.Clone()}
}

func (s *Store) CloseDialog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialog = Dialog{}
}

func (s *Store) Dialog() Dialog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.dialog
	d.Target = d.Target.Clone()
	return d
}

// Save sends draft to the backend as a create or an update, depending on
// how the editor was opened. On success the stored record replaces the local
// one and the editor closes. On failure nothing local changes and the editor
// stays open.
func (s *Store) Save(ctx context.Context, draft models.SoftwareAsset) (*models.SoftwareAsset, error) {
	s.mu.Lock()
	if s.dialog.Mode == DialogClosed {
		s.mu.Unlock()
		return nil, ErrDialogClosed
	}
	if s.saving {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	dialog := s.dialog
	s.saving = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	if err := validateContacts(draft.Contacts); err != nil {
		return nil, err
	}

	_, token, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}

	payload := draft.WithoutSentinels()

	var saved *models.SoftwareAsset
	switch dialog.Mode {
	case DialogAdd:
		payload.ID = 0
		saved, err = s.gateway.CreateSoftware(ctx, token, payload)
	case DialogEdit:
		payload.ID = dialog.Target.ID
		saved, err = s.gateway.UpdateSoftware(ctx, token, payload)
	}
	if err != nil {
		s.logger.Error("Failed to save software",
			zap.String("mode", dialog.Mode.String()),
			zap.Int64("software_id", payload.ID),
			zap.Error(err))
		return nil, backendErr(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.software = upsert(s.software, *saved)
	s.dialog = Dialog{}

	s.logger.Info("Saved software",
		zap.String("mode", dialog.Mode.String()),
		zap.Int64("software_id", saved.ID))

	out := saved.Clone()
	return &out, nil
}

// validateContacts checks every contact that will be persisted. Entries that
// are still unresolved placeholders are dropped before sending, so they are
// not checked.
func validateContacts(contacts []models.ContactPerson) error {
	var fields []FieldError
	for i, p := range contacts {
		if !p.Valid() {
			continue
		}
		fields = append(fields, check(contactCheck{
			Name:     p.Name,
			LastName: p.LastName,
			Email:    p.Email,
			Phone:    p.Phone.String(),
		}, fmt.Sprintf("contact %d", i+1))...)
	}
	return validationError(fields)
}

func upsert(assets []models.SoftwareAsset, asset models.SoftwareAsset) []models.SoftwareAsset {
	out := make([]models.SoftwareAsset, 0, len(assets)+1)
	replaced := false
	for _, a := range assets {
		if a.ID == asset.ID {
			out = append(out, asset)
			replaced = true
			continue
		}
		out = append(out, a)
	}
	if !replaced {
		out = append(out, asset)
	}
	return out
}

// Remove deletes asset. It disappears from the local collection before the
// request is sent and comes back if the backend refuses. After a successful
// delete the collection is re-fetched.
func (s *Store) Remove(ctx context.Context, asset models.SoftwareAsset) error {
	_, token, err := s.authorize(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	index := slices.IndexFunc(s.software, func(a models.SoftwareAsset) bool { return a.ID == asset.ID })
	removed := asset
	if index >= 0 {
		removed = s.software[index]
		s.software = slices.Delete(slices.Clone(s.software), index, index+1)
	}
	s.mu.Unlock()

	if err := s.gateway.DeleteSoftware(ctx, token, asset.ID); err != nil {
		if index >= 0 {
			s.mu.Lock()
			s.software = restore(s.software, removed, index, func(a models.SoftwareAsset) bool { return a.ID == removed.ID })
			s.mu.Unlock()
		}
		s.logger.Error("Failed to delete software, restored local list",
			zap.Int64("software_id", asset.ID),
			zap.Error(err))
		return backendErr(err)
	}

	s.mu.Lock()
	if s.selectedID == asset.ID {
		s.selectedID = 0
	}
	s.mu.Unlock()

	fresh, err := s.gateway.ListSoftware(ctx, token)
	if err != nil {
		// the delete went through; keep the local removal
		s.logger.Warn("Failed to refresh software after delete", zap.Error(err))
		return nil
	}

	s.mu.Lock()
	s.software = fresh
	s.mu.Unlock()
	return nil
}

// ExpiringSoon returns the assets whose expiration falls within window days
// of now, including those already expired.
func (s *Store) ExpiringSoon(now time.Time, window int) []models.SoftwareAsset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SoftwareAsset
	for _, a := range s.software {
		if listview.IsExpirationApproaching(a, now, window) {
			out = append(out, a)
		}
	}
	return out
}
