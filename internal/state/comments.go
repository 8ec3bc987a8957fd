package state

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/softrack-city/softrack/internal/api"
	"github.com/softrack-city/softrack/internal/models"
)

const (
	MinSatisfaction = 1
	MaxSatisfaction = 10
)

// CommentDraft is a comment being written for the selected asset.
type CommentDraft struct {
	Content      string `validate:"notblank"`
	Satisfaction int
}

// ClampSatisfaction forces a rating into [1, 10].
func ClampSatisfaction(v int) int {
	return min(max(v, MinSatisfaction), MaxSatisfaction)
}

// CommentsFor returns the comments attached to one asset.
func (s *Store) CommentsFor(softwareID int64) []models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Comment
	for _, c := range s.comments {
		if c.SoftwareID == softwareID {
			out = append(out, c)
		}
	}
	return out
}

// AddComment posts draft against the selected asset, then reloads that
// asset's comments from the backend.
func (s *Store) AddComment(ctx context.Context, draft CommentDraft) error {
	selected, ok := s.Selected()
	if !ok {
		return ErrNoSelection
	}
	if err := validationError(check(draft, "")); err != nil {
		return err
	}

	user, token, err := s.authorize(ctx)
	if err != nil {
		return err
	}

	comment := api.NewComment{
		SoftwareID:   selected.ID,
		UserID:       user.ID,
		UserName:     user.Username,
		Content:      strings.TrimSpace(draft.Content),
		Satisfaction: ClampSatisfaction(draft.Satisfaction),
	}
	if err := s.gateway.CreateComment(ctx, token, comment); err != nil {
		s.logger.Error("Failed to add comment",
			zap.Int64("software_id", selected.ID),
			zap.Error(err))
		return backendErr(err)
	}

	if err := s.refreshComments(ctx, token, selected.ID); err != nil {
		return fmt.Errorf("comment saved but reloading comments failed: %w", backendErr(err))
	}
	return nil
}

// DeleteComment removes one of the current user's comments. It is removed
// locally first, restored if the backend refuses, and the asset's comments
// are reloaded once the delete succeeds.
func (s *Store) DeleteComment(ctx context.Context, commentID int64) error {
	user, token, err := s.authorize(ctx)
	if err != nil {
		return err
	}

	byID := func(c models.Comment) bool { return c.ID == commentID }

	s.mu.Lock()
	index := slices.IndexFunc(s.comments, byID)
	if index < 0 {
		s.mu.Unlock()
		return fmt.Errorf("comment %d not found", commentID)
	}
	target := s.comments[index]
	if target.UserID != user.ID {
		s.mu.Unlock()
		return ErrForbidden
	}
	softwareID := target.SoftwareID
	s.comments = slices.Delete(slices.Clone(s.comments), index, index+1)
	s.mu.Unlock()

	if err := s.gateway.DeleteComment(ctx, token, commentID); err != nil {
		s.mu.Lock()
		s.comments = restore(s.comments, target, index, byID)
		s.mu.Unlock()
		s.logger.Error("Failed to delete comment, restored local list",
			zap.Int64("comment_id", commentID),
			zap.Error(err))
		return backendErr(err)
	}

	if err := s.refreshComments(ctx, token, softwareID); err != nil {
		s.logger.Warn("Failed to refresh comments after delete",
			zap.Int64("software_id", softwareID),
			zap.Error(err))
	}
	return nil
}

// refreshComments replaces the comments of one asset with what the backend
// holds.
func (s *Store) refreshComments(ctx context.Context, token string, softwareID int64) error {
	fresh, err := s.gateway.ListSoftwareComments(ctx, token, softwareID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Comment, 0, len(s.comments)+len(fresh))
	for _, c := range s.comments {
		if c.SoftwareID != softwareID {
			out = append(out, c)
		}
	}
	for _, c := range fresh {
		// the per-asset endpoint does not always echo the parent id
		c.SoftwareID = softwareID
		out = append(out, c)
	}
	s.comments = out
	return nil
}
