package api

import (
	"context"
	"net/http"

	"github.com/softrack-city/softrack/internal/models"
)

// NewComment is the payload for POST /comments/.
type NewComment struct {
	SoftwareID   int64  `json:"software_id"`
	UserID       int64  `json:"user_id"`
	UserName     string `json:"user_name"`
	Content      string `json:"content"`
	Satisfaction int    `json:"satisfaction_rate"`
}

func (c *Client) ListComments(ctx context.Context, token string) ([]models.Comment, error) {
	return list[models.Comment](ctx, c, token, "comments")
}

// ListSoftwareComments returns the comments attached to one asset.
func (c *Client) ListSoftwareComments(ctx context.Context, token string, softwareID int64) ([]models.Comment, error) {
	var comments []models.Comment
	r := request{
		method:   http.MethodGet,
		segments: []string{"software", id(softwareID), "comments"},
		token:    token,
	}
	if err := c.do(ctx, r, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment posts a comment. The backend only routes the collection with
// a trailing slash.
func (c *Client) CreateComment(ctx context.Context, token string, comment NewComment) error {
	r := request{
		method:   http.MethodPost,
		segments: []string{"comments"},
		trailing: true,
		token:    token,
		body:     comment,
	}
	return c.do(ctx, r, nil)
}

func (c *Client) DeleteComment(ctx context.Context, token string, commentID int64) error {
	return c.do(ctx, request{method: http.MethodDelete, segments: []string{"comments", id(commentID)}, token: token}, nil)
}
