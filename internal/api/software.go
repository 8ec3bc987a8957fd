package api

import (
	"context"
	"net/http"

	"github.com/softrack-city/softrack/internal/models"
)

// ListSoftware returns every software asset.
func (c *Client) ListSoftware(ctx context.Context, token string) ([]models.SoftwareAsset, error) {
	return list[models.SoftwareAsset](ctx, c, token, "software")
}

// CreateSoftware posts a new asset and returns the record the backend stored.
func (c *Client) CreateSoftware(ctx context.Context, token string, asset models.SoftwareAsset) (*models.SoftwareAsset, error) {
	var created models.SoftwareAsset
	r := request{
		method:   http.MethodPost,
		segments: []string{"software"},
		token:    token,
		body:     asset,
	}
	if err := c.do(ctx, r, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateSoftware replaces the asset with the same id.
func (c *Client) UpdateSoftware(ctx context.Context, token string, asset models.SoftwareAsset) (*models.SoftwareAsset, error) {
	var updated models.SoftwareAsset
	r := request{
		method:   http.MethodPut,
		segments: []string{"software", id(asset.ID)},
		token:    token,
		body:     asset,
	}
	if err := c.do(ctx, r, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteSoftware(ctx context.Context, token string, softwareID int64) error {
	return c.do(ctx, request{method: http.MethodDelete, segments: []string{"software", id(softwareID)}, token: token}, nil)
}

// Analytics fetches the aggregate dashboard figures.
func (c *Client) Analytics(ctx context.Context, token string) (*models.Analytics, error) {
	var a models.Analytics
	if err := c.do(ctx, request{method: http.MethodGet, segments: []string{"analytics"}, token: token}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
