package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/softrack-city/softrack/internal/models"
)

// ContractUpload describes one file to attach to an asset.
type ContractUpload struct {
	SoftwareID int64
	UserID     int64
	Name       string
	Size       int64
	UploadedAt time.Time
	File       io.Reader
}

// UploadContract sends the file as multipart form data and returns the
// contract record, including the URL the backend stored it under.
func (c *Client) UploadContract(ctx context.Context, token string, upload ContractUpload) (*models.Contract, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("contract_file", upload.Name)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, upload.File); err != nil {
		return nil, fmt.Errorf("copy contract file: %w", err)
	}

	uploadedAt := upload.UploadedAt.UTC().Format(time.RFC3339)
	fields := []struct{ key, value string }{
		{"name", upload.Name},
		{"user_id", strconv.FormatInt(upload.UserID, 10)},
		{"uploaded_at", uploadedAt},
		{"size", strconv.FormatInt(upload.Size, 10)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f.key, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	var created models.Contract
	r := request{
		method:      http.MethodPost,
		segments:    []string{"software", id(upload.SoftwareID), "contracts"},
		token:       token,
		rawBody:     &buf,
		contentType: w.FormDataContentType(),
	}
	if err := c.do(ctx, r, &created); err != nil {
		return nil, err
	}

	// the backend only echoes the URL, fill in what we already know
	if created.Name == "" {
		created.Name = upload.Name
	}
	if created.SoftwareID == 0 {
		created.SoftwareID = upload.SoftwareID
	}
	if created.UserID == 0 {
		created.UserID = upload.UserID
	}
	if created.Size == 0 {
		created.Size = upload.Size
	}
	if created.UploadedAt == "" {
		created.UploadedAt = uploadedAt
	}
	return &created, nil
}

// ListContracts returns the contracts attached to one asset.
func (c *Client) ListContracts(ctx context.Context, token string, softwareID int64) ([]models.Contract, error) {
	var contracts []models.Contract
	r := request{
		method:   http.MethodGet,
		segments: []string{"contracts", id(softwareID)},
		token:    token,
	}
	if err := c.do(ctx, r, &contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

func (c *Client) DeleteContract(ctx context.Context, token string, contractID int64) error {
	return c.do(ctx, request{method: http.MethodDelete, segments: []string{"contracts", id(contractID)}, token: token}, nil)
}
