package state

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/softrack-city/softrack/internal/api"
	"github.com/softrack-city/softrack/internal/models"
	"github.com/softrack-city/softrack/internal/session"
)

// fakeBackend serves a small in-memory version of the REST API and records
// every request it sees.
type fakeBackend struct {
	mu       sync.Mutex
	software []models.SoftwareAsset
	comments []models.Comment
	calls    []string
	bodies   map[string][]byte
	// "METHOD /path" -> status to answer with instead of handling
	fail map[string]int
	// blocks the handler for "METHOD /path" until closed
	hold map[string]chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		software: []models.SoftwareAsset{
			{ID: 1, Name: "Laserfiche", Status: models.StatusActive},
			{ID: 2, Name: "ArcGIS", Status: models.StatusActive},
		},
		comments: []models.Comment{
			{ID: 10, SoftwareID: 1, UserID: 7, UserName: "ops", Content: "stable", Satisfaction: 8},
			{ID: 11, SoftwareID: 1, UserID: 8, UserName: "other", Content: "slow", Satisfaction: 3},
			{ID: 12, SoftwareID: 2, UserID: 7, UserName: "ops", Content: "fine", Satisfaction: 6},
		},
		bodies: map[string][]byte{},
		fail:   map[string]int{},
		hold:   map[string]chan struct{}{},
	}
}

func (b *fakeBackend) count(call string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (b *fakeBackend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	call := r.Method + " " + path
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.calls = append(b.calls, call)
	b.bodies[call] = body
	status, failing := b.fail[call]
	hold := b.hold[call]
	b.mu.Unlock()

	if hold != nil {
		<-hold
	}
	if failing {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message": "refused"}`))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	write := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	switch {
	case call == "GET /software":
		write(b.software)
	case call == "POST /software":
		var a models.SoftwareAsset
		_ = json.Unmarshal(body, &a)
		a.ID = 100
		b.software = append(b.software, a)
		write(a)
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/software/"):
		var a models.SoftwareAsset
		_ = json.Unmarshal(body, &a)
		for i := range b.software {
			if b.software[i].ID == a.ID {
				b.software[i] = a
			}
		}
		write(a)
	case call == "DELETE /software/1":
		b.software = b.software[1:]
		w.WriteHeader(http.StatusNoContent)
	case call == "GET /comments":
		write(b.comments)
	case call == "POST /comments/":
		var c models.Comment
		_ = json.Unmarshal(body, &c)
		c.ID = int64(50 + len(b.comments))
		b.comments = append(b.comments, c)
		w.WriteHeader(http.StatusCreated)
	case call == "GET /software/1/comments":
		var out []models.Comment
		for _, c := range b.comments {
			if c.SoftwareID == 1 {
				out = append(out, c)
			}
		}
		write(out)
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/comments/"):
		kept := b.comments[:0]
		for _, c := range b.comments {
			if "/comments/"+itoa(c.ID) != path {
				kept = append(kept, c)
			}
		}
		b.comments = kept
		w.WriteHeader(http.StatusNoContent)
	case call == "GET /vendors":
		write([]models.Vendor{{ID: 1, Name: "Esri"}})
	case call == "POST /contact-people":
		var p models.ContactPerson
		_ = json.Unmarshal(body, &p)
		p.ID = 77
		write(p)
	case call == "POST /login":
		write(map[string]string{"access_token": "fresh-token"})
	case call == "POST /logout":
		w.WriteHeader(http.StatusOK)
	case call == "POST /software/1/contracts":
		write(map[string]string{"contract_url": "/media/contract.pdf"})
	case call == "GET /contracts/1":
		write([]models.Contract{{ID: 4, SoftwareID: 1, Name: "msa.pdf", Size: 2048}})
	case call == "GET /analytics":
		write(map[string]any{"totalSoftware": 2, "activeSoftware": 2, "averageSatisfaction": 5.7})
	default:
		write([]any{})
	}
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

type fakeSession struct {
	mu      sync.Mutex
	user    *models.User
	token   string
	err     error
	cleared bool
}

func (f *fakeSession) Current(context.Context) (*models.User, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, "", f.err
	}
	return f.user, f.token, nil
}

func (f *fakeSession) SetToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.err = nil
	return nil
}

func (f *fakeSession) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = true
	f.token = ""
	f.err = session.ErrNotAuthenticated
	return nil
}

func newTestStore(t *testing.T) (*Store, *fakeBackend, *fakeSession) {
	t.Helper()
	backend := newFakeBackend()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	sess := &fakeSession{user: &models.User{ID: 7, Username: "ops"}, token: "tok"}
	client := api.NewClient(server.URL+"/api/v1", zap.NewNop())
	store := New(client, sess, zap.NewNop())
	store.Initialize(context.Background())
	return store, backend, sess
}

func TestInitializeIsolatesFailures(t *testing.T) {
	backend := newFakeBackend()
	backend.fail["GET /vendors"] = http.StatusInternalServerError
	server := httptest.NewServer(backend)
	defer server.Close()

	core, logs := observer.New(zapcore.ErrorLevel)
	sess := &fakeSession{user: &models.User{ID: 7}, token: "tok"}
	store := New(api.NewClient(server.URL+"/api/v1", zap.NewNop()), sess, zap.New(core))

	assert.True(t, store.Loading())
	store.Initialize(context.Background())
	assert.False(t, store.Loading())

	assert.Len(t, store.Software(), 2)
	assert.Len(t, store.Comments(), 3)
	assert.Empty(t, store.Vendors())
	assert.Equal(t, 9, backend.total(), "every collection is fetched")

	entries := logs.FilterMessage("Failed to load collection").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "vendors", entries[0].ContextMap()["collection"])
}

func TestSaveCreatesAndStripsSentinels(t *testing.T) {
	store, backend, _ := newTestStore(t)

	store.BeginAdd()
	draft := models.SoftwareAsset{
		Name:        "Granicus",
		Departments: []models.Department{{ID: 3, Name: "Clerk"}, {ID: models.SentinelID, Name: ""}},
		Vendors:     []models.Vendor{{ID: models.SentinelID, Name: ""}},
		Contacts:    []models.ContactPerson{{ID: models.SentinelID}},
	}

	saved, err := store.Save(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, int64(100), saved.ID)
	assert.Equal(t, DialogClosed, store.Dialog().Mode)

	var sent map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(backend.bodies["POST /software"], &sent))
	assert.JSONEq(t, `[{"id": 3, "name": "Clerk"}]`, string(sent["software_department"]))
	assert.JSONEq(t, `[]`, string(sent["software_vendor"]))
	assert.JSONEq(t, `[]`, string(sent["software_department_contact_people"]))
	assert.NotContains(t, string(backend.bodies["POST /software"]), "-1")

	all := store.Software()
	require.Len(t, all, 3)
	assert.Equal(t, "Granicus", all[2].Name)
}

func TestSaveUpdateReplacesByID(t *testing.T) {
	store, backend, _ := newTestStore(t)

	original := store.Software()[1]
	store.BeginEdit(original)

	edited := original.Clone()
	edited.Version = "11.2"
	_, err := store.Save(context.Background(), edited)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.count("PUT /software/2"))
	all := store.Software()
	require.Len(t, all, 2)
	assert.Equal(t, "11.2", all[1].Version)
}

func TestSaveRejectsIncompleteContact(t *testing.T) {
	store, backend, _ := newTestStore(t)
	calls := backend.total()

	store.BeginAdd()
	_, err := store.Save(context.Background(), models.SoftwareAsset{
		Name:     "Granicus",
		Contacts: []models.ContactPerson{{ID: 4, Name: "Ana", LastName: "Ruiz", Phone: "555"}},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "contact 1 Email", verr.Fields[0].Field)

	assert.Equal(t, calls, backend.total(), "no request on validation failure")
	assert.Equal(t, DialogAdd, store.Dialog().Mode, "editor stays open")
}

func TestSaveFailureLeavesStateAndDialog(t *testing.T) {
	store, backend, _ := newTestStore(t)
	backend.fail["POST /software"] = http.StatusBadRequest

	store.BeginAdd()
	_, err := store.Save(context.Background(), models.SoftwareAsset{Name: "Broken"})
	require.Error(t, err)

	var statusErr *api.StatusError
	assert.True(t, errors.As(err, &statusErr))
	assert.Len(t, store.Software(), 2)
	assert.Equal(t, DialogAdd, store.Dialog().Mode)
}

func TestSaveRequiresOpenDialog(t *testing.T) {
	store, _, _ := newTestStore(t)
	_, err := store.Save(context.Background(), models.SoftwareAsset{Name: "x"})
	assert.ErrorIs(t, err, ErrDialogClosed)
}

func TestSaveRejectsConcurrentSave(t *testing.T) {
	store, backend, _ := newTestStore(t)
	release := make(chan struct{})
	backend.hold["POST /software"] = release

	store.BeginAdd()
	done := make(chan error, 1)
	go func() {
		_, err := store.Save(context.Background(), models.SoftwareAsset{Name: "First"})
		done <- err
	}()

	require.Eventually(t, func() bool { return backend.count("POST /software") == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err := store.Save(context.Background(), models.SoftwareAsset{Name: "Second"})
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
}

func TestSaveUnauthorizedIsSessionExpiry(t *testing.T) {
	store, backend, _ := newTestStore(t)
	backend.fail["POST /software"] = http.StatusUnauthorized

	store.BeginAdd()
	_, err := store.Save(context.Background(), models.SoftwareAsset{Name: "x"})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestRemoveRollsBackOnFailure(t *testing.T) {
	store, backend, _ := newTestStore(t)
	backend.fail["DELETE /software/1"] = http.StatusInternalServerError
	before := store.Software()

	err := store.Remove(context.Background(), before[0])
	require.Error(t, err)

	assert.Equal(t, before, store.Software())
	assert.Equal(t, 1, backend.count("GET /software"), "no refresh after a failed delete")
}

func TestRemoveRollbackKeepsConcurrentChanges(t *testing.T) {
	store, backend, _ := newTestStore(t)
	release := make(chan struct{})
	backend.hold["DELETE /software/1"] = release
	backend.fail["DELETE /software/1"] = http.StatusInternalServerError

	target := store.Software()[0]
	done := make(chan error, 1)
	go func() { done <- store.Remove(context.Background(), target) }()
	require.Eventually(t, func() bool { return backend.count("DELETE /software/1") == 1 }, 2*time.Second, 5*time.Millisecond)

	store.BeginAdd()
	_, err := store.Save(context.Background(), models.SoftwareAsset{Name: "Granicus"})
	require.NoError(t, err)

	close(release)
	require.Error(t, <-done)

	var ids []int64
	for _, a := range store.Software() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []int64{1, 2, 100}, ids, "removed record is back in place, the new one survives")
}

func TestRemoveIsOptimisticThenRefreshes(t *testing.T) {
	store, backend, _ := newTestStore(t)
	release := make(chan struct{})
	backend.hold["DELETE /software/1"] = release

	target := store.Software()[0]
	done := make(chan error, 1)
	go func() { done <- store.Remove(context.Background(), target) }()

	require.Eventually(t, func() bool { return backend.count("DELETE /software/1") == 1 }, 2*time.Second, 5*time.Millisecond)
	visible := store.Software()
	require.Len(t, visible, 1, "removed before the backend answers")
	assert.Equal(t, int64(2), visible[0].ID)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 2, backend.count("GET /software"), "initial load plus one refresh")
	assert.Len(t, store.Software(), 1)
}

func TestAddComment(t *testing.T) {
	t.Run("empty content makes no call", func(t *testing.T) {
		store, backend, _ := newTestStore(t)
		store.Select(store.Software()[0])
		calls := backend.total()

		err := store.AddComment(context.Background(), CommentDraft{Content: "   ", Satisfaction: 5})
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, calls, backend.total())
	})

	t.Run("requires selection", func(t *testing.T) {
		store, _, _ := newTestStore(t)
		err := store.AddComment(context.Background(), CommentDraft{Content: "hi"})
		assert.ErrorIs(t, err, ErrNoSelection)
	})

	t.Run("one create then one refresh", func(t *testing.T) {
		store, backend, _ := newTestStore(t)
		store.Select(store.Software()[0])

		err := store.AddComment(context.Background(), CommentDraft{Content: "Renewal went well", Satisfaction: 14})
		require.NoError(t, err)

		assert.Equal(t, 1, backend.count("POST /comments/"))
		assert.Equal(t, 1, backend.count("GET /software/1/comments"))

		var sent api.NewComment
		require.NoError(t, json.Unmarshal(backend.bodies["POST /comments/"], &sent))
		assert.Equal(t, MaxSatisfaction, sent.Satisfaction, "rating is clamped")
		assert.Equal(t, int64(7), sent.UserID)
		assert.Equal(t, int64(1), sent.SoftwareID)

		comments := store.CommentsFor(1)
		assert.Len(t, comments, 3)
		assert.Len(t, store.CommentsFor(2), 1, "other assets untouched")
	})

	t.Run("unauthorized", func(t *testing.T) {
		store, backend, _ := newTestStore(t)
		backend.fail["POST /comments/"] = http.StatusUnauthorized
		store.Select(store.Software()[0])

		err := store.AddComment(context.Background(), CommentDraft{Content: "hi", Satisfaction: 5})
		assert.ErrorIs(t, err, ErrSessionExpired)
		assert.Equal(t, 0, backend.count("GET /software/1/comments"))
	})
}

func TestDeleteComment(t *testing.T) {
	t.Run("only the author", func(t *testing.T) {
		store, backend, _ := newTestStore(t)
		err := store.DeleteComment(context.Background(), 11)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, 0, backend.count("DELETE /comments/11"))
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		store, backend, _ := newTestStore(t)
		backend.fail["DELETE /comments/10"] = http.StatusInternalServerError
		before := store.Comments()

		err := store.DeleteComment(context.Background(), 10)
		require.Error(t, err)
		assert.Equal(t, before, store.Comments())
	})

	t.Run("rollback keeps comments that arrived meanwhile", func(t *testing.T) {
		store, backend, _ := newTestStore(t)
		store.Select(store.Software()[0])
		release := make(chan struct{})
		backend.hold["DELETE /comments/10"] = release
		backend.fail["DELETE /comments/10"] = http.StatusInternalServerError

		done := make(chan error, 1)
		go func() { done <- store.DeleteComment(context.Background(), 10) }()
		require.Eventually(t, func() bool { return backend.count("DELETE /comments/10") == 1 }, 2*time.Second, 5*time.Millisecond)

		require.NoError(t, store.AddComment(context.Background(), CommentDraft{Content: "new", Satisfaction: 7}))

		close(release)
		require.Error(t, <-done)

		var ids []int64
		for _, c := range store.CommentsFor(1) {
			ids = append(ids, c.ID)
		}
		assert.Equal(t, []int64{10, 11, 53}, ids, "no duplicate and the new comment survives")
		assert.Len(t, store.CommentsFor(2), 1)
	})

	t.Run("removes and refreshes", func(t *testing.T) {
		store, backend, _ := newTestStore(t)

		require.NoError(t, store.DeleteComment(context.Background(), 10))
		assert.Equal(t, 1, backend.count("GET /software/1/comments"))

		comments := store.CommentsFor(1)
		require.Len(t, comments, 1)
		assert.Equal(t, int64(11), comments[0].ID)
	})
}

func TestOperationsWithoutSessionReportExpiry(t *testing.T) {
	store, backend, sess := newTestStore(t)
	sess.err = session.ErrNotAuthenticated
	calls := backend.total()

	err := store.Remove(context.Background(), store.Software()[0])
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Len(t, store.Software(), 2)
	assert.Equal(t, calls, backend.total())
}

func TestRegisterContact(t *testing.T) {
	store, backend, _ := newTestStore(t)

	err := store.RegisterContact(context.Background(), models.ContactPerson{Name: "Ana", LastName: "Ruiz", Email: "not-an-email", Phone: "555"})
	assert.ErrorIs(t, err, ErrValidation)

	err = store.RegisterContact(context.Background(), models.ContactPerson{Name: "Ana", LastName: "Ruiz", Email: "ana@city.gov", Phone: "5551234"})
	require.NoError(t, err)
	store.Wait()

	assert.Equal(t, 1, backend.count("POST /contact-people"))
	contacts := store.Contacts()
	require.NotEmpty(t, contacts)
	assert.Equal(t, int64(77), contacts[len(contacts)-1].ID)
}

func TestUploadContract(t *testing.T) {
	store, backend, _ := newTestStore(t)
	store.Select(store.Software()[0])
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0644))
	_, err := store.UploadContract(context.Background(), txt)
	assert.ErrorIs(t, err, ErrValidation)

	fake := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(fake, []byte("plain text pretending"), 0644))
	_, err = store.UploadContract(context.Background(), fake)
	assert.ErrorIs(t, err, ErrValidation)

	pdf := filepath.Join(dir, "lease.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4\n%fake body\n"), 0644))
	contract, err := store.UploadContract(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, "/media/contract.pdf", contract.URL)
	assert.Equal(t, "lease.pdf", contract.Name)
	assert.Equal(t, 1, backend.count("POST /software/1/contracts"))
}

func TestLoginAndLogout(t *testing.T) {
	store, backend, sess := newTestStore(t)

	_, err := store.Login(context.Background(), "", "pw")
	assert.ErrorIs(t, err, ErrValidation)

	user, err := store.Login(context.Background(), "ops", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "fresh-token", sess.token)

	require.NoError(t, store.Logout(context.Background()))
	assert.True(t, sess.cleared)
	assert.Equal(t, 1, backend.count("POST /logout"))
}

func TestRegisterValidatesForm(t *testing.T) {
	store, backend, _ := newTestStore(t)
	calls := backend.total()

	err := store.Register(context.Background(), api.Registration{
		FirstName:       "Jane",
		LastName:        "Doe",
		Email:           "jane@city.gov",
		Username:        "jdoe",
		Password:        "short",
		ConfirmPassword: "other",
	})
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
	assert.Equal(t, calls, backend.total())
}

func TestExpiringSoon(t *testing.T) {
	store, _, _ := newTestStore(t)
	store.mu.Lock()
	store.software = []models.SoftwareAsset{
		{ID: 1, Name: "soon", ExpirationDate: "2025-06-10"},
		{ID: 2, Name: "later", ExpirationDate: "2025-12-10"},
		{ID: 3, Name: "lapsed", ExpirationDate: "2024-12-10"},
	}
	store.mu.Unlock()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	got := store.ExpiringSoon(now, 30)
	require.Len(t, got, 2)
	assert.Equal(t, "soon", got[0].Name)
	assert.Equal(t, "lapsed", got[1].Name)
}

func TestContractsAndAnalytics(t *testing.T) {
	store, backend, _ := newTestStore(t)
	ctx := context.Background()

	contracts, err := store.Contracts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, "msa.pdf", contracts[0].Name)

	require.NoError(t, store.DeleteContract(ctx, 4))
	assert.Equal(t, 1, backend.count("DELETE /contracts/4"))

	a, err := store.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, a.TotalSoftware)
	assert.InDelta(t, 5.7, a.AverageSatisfaction, 0.0001)

	backend.mu.Lock()
	backend.fail["GET /analytics"] = http.StatusUnauthorized
	backend.mu.Unlock()
	_, err = store.Analytics(ctx)
	assert.ErrorIs(t, err, ErrSessionExpired)
}
