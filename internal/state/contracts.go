package state

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/softrack-city/softrack/internal/api"
	"github.com/softrack-city/softrack/internal/models"
)

// Contracts lists the contracts attached to an asset.
func (s *Store) Contracts(ctx context.Context, softwareID int64) ([]models.Contract, error) {
	_, token, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	contracts, err := s.gateway.ListContracts(ctx, token, softwareID)
	if err != nil {
		return nil, backendErr(err)
	}
	return contracts, nil
}

// UploadContract attaches the PDF at path to the selected asset.
func (s *Store) UploadContract(ctx context.Context, path string) (*models.Contract, error) {
	selected, ok := s.Selected()
	if !ok {
		return nil, ErrNoSelection
	}

	notPDF := &ValidationError{Fields: []FieldError{{Field: "file", Message: "Please upload a PDF file"}}}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, notPDF
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open contract: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat contract: %w", err)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read contract: %w", err)
	}
	if http.DetectContentType(head[:n]) != "application/pdf" {
		return nil, notPDF
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind contract: %w", err)
	}

	user, token, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}

	contract, err := s.gateway.UploadContract(ctx, token, api.ContractUpload{
		SoftwareID: selected.ID,
		UserID:     user.ID,
		Name:       filepath.Base(path),
		Size:       info.Size(),
		UploadedAt: time.Now(),
		File:       f,
	})
	if err != nil {
		s.logger.Error("Failed to upload contract",
			zap.Int64("software_id", selected.ID),
			zap.String("file", filepath.Base(path)),
			zap.Error(err))
		return nil, backendErr(err)
	}
	return contract, nil
}

func (s *Store) DeleteContract(ctx context.Context, contractID int64) error {
	_, token, err := s.authorize(ctx)
	if err != nil {
		return err
	}
	if err := s.gateway.DeleteContract(ctx, token, contractID); err != nil {
		return backendErr(err)
	}
	return nil
}

// Analytics fetches the aggregate figures for the dashboard.
func (s *Store) Analytics(ctx context.Context) (*models.Analytics, error) {
	_, token, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.gateway.Analytics(ctx, token)
	if err != nil {
		return nil, backendErr(err)
	}
	return a, nil
}
