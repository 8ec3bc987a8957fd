package api

import (
	"context"
	"net/http"

	"github.com/softrack-city/softrack/internal/models"
)

// list fetches a whole collection resource.
func list[T any](ctx context.Context, c *Client, token, resource string) ([]T, error) {
	var items []T
	if err := c.do(ctx, request{method: http.MethodGet, segments: []string{resource}, token: token}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) ListDivisions(ctx context.Context, token string) ([]models.Division, error) {
	return list[models.Division](ctx, c, token, "divisions")
}

func (c *Client) ListDepartments(ctx context.Context, token string) ([]models.Department, error) {
	return list[models.Department](ctx, c, token, "departments")
}

func (c *Client) ListVendors(ctx context.Context, token string) ([]models.Vendor, error) {
	return list[models.Vendor](ctx, c, token, "vendors")
}

func (c *Client) ListGLAccounts(ctx context.Context, token string) ([]models.GLAccount, error) {
	return list[models.GLAccount](ctx, c, token, "gl-accounts")
}

func (c *Client) ListSoftwareToOperate(ctx context.Context, token string) ([]models.SoftwareDependency, error) {
	return list[models.SoftwareDependency](ctx, c, token, "software-to-operate")
}

func (c *Client) ListHardwareToOperate(ctx context.Context, token string) ([]models.HardwareDependency, error) {
	return list[models.HardwareDependency](ctx, c, token, "hardware-to-operate")
}

func (c *Client) ListContacts(ctx context.Context, token string) ([]models.ContactPerson, error) {
	return list[models.ContactPerson](ctx, c, token, "contact-people")
}

// CreateContact registers a contact person and returns the stored record.
func (c *Client) CreateContact(ctx context.Context, token string, contact models.ContactPerson) (*models.ContactPerson, error) {
	var created models.ContactPerson
	r := request{
		method:   http.MethodPost,
		segments: []string{"contact-people"},
		token:    token,
		body:     contact,
	}
	if err := c.do(ctx, r, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
