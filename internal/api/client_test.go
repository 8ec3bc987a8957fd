package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/softrack-city/softrack/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/api/v1", zap.NewNop(), WithTimeout(5*time.Second))
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		trailing bool
		segments []string
		want     string
	}{
		{name: "collection", base: "http://127.0.0.1:8000/api/v1", segments: []string{"software"}, want: "http://127.0.0.1:8000/api/v1/software"},
		{name: "base with slash", base: "http://127.0.0.1:8000/api/v1/", segments: []string{"software", "4"}, want: "http://127.0.0.1:8000/api/v1/software/4"},
		{name: "trailing slash kept", base: "http://127.0.0.1:8000/api/v1", trailing: true, segments: []string{"comments"}, want: "http://127.0.0.1:8000/api/v1/comments/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildURL(tt.base, tt.trailing, tt.segments...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListSoftwareSendsBearerToken(t *testing.T) {
	var gotAuth, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 3, "software_name": "Tyler Munis", "software_vendor": [{"id": 1, "name": "Tyler"}]}]`))
	})

	assets, err := client.ListSoftware(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, assets, 1)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/api/v1/software", gotPath)
	assert.Equal(t, "Tyler Munis", assets[0].Name)
	assert.Equal(t, []string{"Tyler"}, models.RefNames(assets[0].Vendors))
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := client.DeleteSoftware(context.Background(), "expired", 9)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestStatusErrorKeepsBackendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "software_name is required"}`))
	})

	_, err := client.CreateSoftware(context.Background(), "tok", models.SoftwareAsset{})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "software_name is required", statusErr.Message)
	assert.False(t, errors.Is(err, ErrUnauthorized))
}

func TestUpdateSoftwareUsesPut(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"id": 12, "software_name": "GIS Viewer", "software_version": "2.1"}`))
	})

	updated, err := client.UpdateSoftware(context.Background(), "tok", models.SoftwareAsset{ID: 12, Name: "GIS Viewer", Version: "2.1"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/v1/software/12", gotPath)
	assert.Equal(t, "GIS Viewer", gotBody["software_name"])
	assert.Equal(t, "2.1", updated.Version)
}

func TestCreateCommentUsesTrailingSlash(t *testing.T) {
	var gotPath string
	var got NewComment
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	})

	err := client.CreateComment(context.Background(), "tok", NewComment{SoftwareID: 4, UserID: 2, UserName: "jdoe", Content: "works", Satisfaction: 8})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/comments/", gotPath)
	assert.Equal(t, int64(4), got.SoftwareID)
	assert.Equal(t, 8, got.Satisfaction)
}

func TestListContactsAcceptsNumericPhone(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 1, "contact_name": "Ana", "contact_lastname": "Ruiz", "contact_phone_number": 5551234}]`))
	})

	contacts, err := client.ListContacts(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "5551234", contacts[0].Phone.String())
}

func TestUploadContractSendsMultipart(t *testing.T) {
	fields := map[string]string{}
	var fileName, fileBody, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		f, header, err := r.FormFile("contract_file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		fileName = header.Filename
		fileBody = string(data)
		_, _ = w.Write([]byte(`{"contract_url": "/media/contracts/lease.pdf"}`))
	})

	uploadedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	contract, err := client.UploadContract(context.Background(), "tok", ContractUpload{
		SoftwareID: 7,
		UserID:     2,
		Name:       "lease.pdf",
		Size:       8,
		UploadedAt: uploadedAt,
		File:       strings.NewReader("%PDF-1.4"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/software/7/contracts", gotPath)
	assert.Equal(t, "lease.pdf", fileName)
	assert.Equal(t, "%PDF-1.4", fileBody)
	assert.Equal(t, "lease.pdf", fields["name"])
	assert.Equal(t, "2", fields["user_id"])
	assert.Equal(t, "8", fields["size"])
	assert.Equal(t, "2025-03-01T12:00:00Z", fields["uploaded_at"])

	assert.Equal(t, "/media/contracts/lease.pdf", contract.URL)
	assert.Equal(t, int64(7), contract.SoftwareID)
	assert.Equal(t, "lease.pdf", contract.Name)
}

func TestLogin(t *testing.T) {
	t.Run("returns token", func(t *testing.T) {
		var got Credentials
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"access_token": "abc"}`))
		})

		token, err := client.Login(context.Background(), Credentials{Identifier: "jdoe", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, "abc", token)
		assert.Equal(t, "jdoe", got.Identifier)
	})

	t.Run("empty token is an error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		})

		_, err := client.Login(context.Background(), Credentials{Identifier: "jdoe", Password: "secret"})
		assert.Error(t, err)
	})
}

func TestAnalyticsDecodes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/analytics", r.URL.Path)
		_, _ = w.Write([]byte(`{"totalSpending": 1200.5, "activeSoftware": 3, "highestRated": {"software__software_name": "Laserfiche", "satisfaction_rate": 9}}`))
	})

	a, err := client.Analytics(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 1200.5, a.TotalSpending)
	assert.Equal(t, 3, a.ActiveSoftware)
	assert.Equal(t, "Laserfiche", a.HighestRated.Name)
}

func TestDecodeErrorIsReported(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := client.ListVendors(context.Background(), "tok")
	assert.Error(t, err)
}
