// Package state owns every collection fetched from the backend and is the
// only place they are mutated. Screens read copies and call the Store's
// operations, which talk to the backend and reconcile the local view with
// what it returns.
package state

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/softrack-city/softrack/internal/api"
	"github.com/softrack-city/softrack/internal/models"
)

var (
	// ErrSessionExpired means the backend rejected the token, or there is no
	// usable token. Callers should send the user back to the login screen.
	ErrSessionExpired = errors.New("session expired, please log in again")
	ErrNoSelection    = errors.New("no software selected")
	ErrDialogClosed   = errors.New("editor is not open")
	ErrBusy           = errors.New("a save is already in progress")
	ErrForbidden      = errors.New("only the author can delete this comment")
)

// Gateway is the backend. *api.Client implements it.
type Gateway interface {
	ListSoftware(ctx context.Context, token string) ([]models.SoftwareAsset, error)
	CreateSoftware(ctx context.Context, token string, asset models.SoftwareAsset) (*models.SoftwareAsset, error)
	UpdateSoftware(ctx context.Context, token string, asset models.SoftwareAsset) (*models.SoftwareAsset, error)
	DeleteSoftware(ctx context.Context, token string, softwareID int64) error

	ListComments(ctx context.Context, token string) ([]models.Comment, error)
	ListSoftwareComments(ctx context.Context, token string, softwareID int64) ([]models.Comment, error)
	CreateComment(ctx context.Context, token string, comment api.NewComment) error
	DeleteComment(ctx context.Context, token string, commentID int64) error

	ListDivisions(ctx context.Context, token string) ([]models.Division, error)
	ListDepartments(ctx context.Context, token string) ([]models.Department, error)
	ListVendors(ctx context.Context, token string) ([]models.Vendor, error)
	ListGLAccounts(ctx context.Context, token string) ([]models.GLAccount, error)
	ListSoftwareToOperate(ctx context.Context, token string) ([]models.SoftwareDependency, error)
	ListHardwareToOperate(ctx context.Context, token string) ([]models.HardwareDependency, error)
	ListContacts(ctx context.Context, token string) ([]models.ContactPerson, error)
	CreateContact(ctx context.Context, token string, contact models.ContactPerson) (*models.ContactPerson, error)

	UploadContract(ctx context.Context, token string, upload api.ContractUpload) (*models.Contract, error)
	ListContracts(ctx context.Context, token string, softwareID int64) ([]models.Contract, error)
	DeleteContract(ctx context.Context, token string, contractID int64) error

	Login(ctx context.Context, creds api.Credentials) (string, error)
	Register(ctx context.Context, reg api.Registration) error
	Logout(ctx context.Context, token string) error
	Analytics(ctx context.Context, token string) (*models.Analytics, error)
}

var _ Gateway = (*api.Client)(nil)

// Session is the token holder. *session.Store implements it.
type Session interface {
	Current(ctx context.Context) (*models.User, string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type Store struct {
	gateway Gateway
	session Session
	logger  *zap.Logger

	mu sync.RWMutex

	software          []models.SoftwareAsset
	comments          []models.Comment
	divisions         []models.Division
	departments       []models.Department
	vendors           []models.Vendor
	glAccounts        []models.GLAccount
	softwareToOperate []models.SoftwareDependency
	hardwareToOperate []models.HardwareDependency
	contacts          []models.ContactPerson

	loading    bool
	selectedID int64
	dialog     Dialog
	saving     bool

	// background contact registrations
	pending sync.WaitGroup
}

// New creates an empty Store. Call Initialize to populate it.
func New(gateway Gateway, session Session, logger *zap.Logger) *Store {
	return &Store{
		gateway: gateway,
		session: session,
		logger:  logger.Named("state"),
		loading: true,
	}
}

// Initialize fetches every collection in parallel. A failed fetch is logged
// and leaves its collection empty; it never affects the others.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	token := ""
	if _, t, err := s.session.Current(ctx); err != nil {
		s.logger.Warn("Loading without a session", zap.Error(err))
	} else {
		token = t
	}

	// plain Group: one failure must not cancel the other fetches
	var g errgroup.Group
	load := func(name string, fetch func() error) {
		g.Go(func() error {
			if err := fetch(); err != nil {
				s.logger.Error("Failed to load collection",
					zap.String("collection", name),
					zap.Error(err))
			}
			return nil
		})
	}

	load("software", into(s, &s.software, func() ([]models.SoftwareAsset, error) {
		return s.gateway.ListSoftware(ctx, token)
	}))
	load("comments", into(s, &s.comments, func() ([]models.Comment, error) {
		return s.gateway.ListComments(ctx, token)
	}))
	load("divisions", into(s, &s.divisions, func() ([]models.Division, error) {
		return s.gateway.ListDivisions(ctx, token)
	}))
	load("departments", into(s, &s.departments, func() ([]models.Department, error) {
		return s.gateway.ListDepartments(ctx, token)
	}))
	load("vendors", into(s, &s.vendors, func() ([]models.Vendor, error) {
		return s.gateway.ListVendors(ctx, token)
	}))
	load("gl-accounts", into(s, &s.glAccounts, func() ([]models.GLAccount, error) {
		return s.gateway.ListGLAccounts(ctx, token)
	}))
	load("software-to-operate", into(s, &s.softwareToOperate, func() ([]models.SoftwareDependency, error) {
		return s.gateway.ListSoftwareToOperate(ctx, token)
	}))
	load("hardware-to-operate", into(s, &s.hardwareToOperate, func() ([]models.HardwareDependency, error) {
		return s.gateway.ListHardwareToOperate(ctx, token)
	}))
	load("contact-people", into(s, &s.contacts, func() ([]models.ContactPerson, error) {
		return s.gateway.ListContacts(ctx, token)
	}))

	_ = g.Wait()

	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// into returns a loader that stores the fetched items in dst, or empties dst
// when the fetch fails.
func into[T any](s *Store, dst *[]T, fetch func() ([]T, error)) func() error {
	return func() error {
		items, err := fetch()
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			*dst = nil
			return err
		}
		*dst = items
		return nil
	}
}

// Loading is true until Initialize has settled every fetch.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) Software() []models.SoftwareAsset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.software)
}

func (s *Store) Comments() []models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.comments)
}

func (s *Store) Divisions() []models.Division {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.divisions)
}

func (s *Store) Departments() []models.Department {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.departments)
}

func (s *Store) Vendors() []models.Vendor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.vendors)
}

func (s *Store) GLAccounts() []models.GLAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.glAccounts)
}

func (s *Store) SoftwareToOperate() []models.SoftwareDependency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.softwareToOperate)
}

func (s *Store) HardwareToOperate() []models.HardwareDependency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.hardwareToOperate)
}

func (s *Store) Contacts() []models.ContactPerson {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.contacts)
}

// Select marks the asset the detail view and comment operations act on.
func (s *Store) Select(asset models.SoftwareAsset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = asset.ID
}

// Selected returns the selected asset as currently held in the collection.
func (s *Store) Selected() (models.SoftwareAsset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findSoftware(s.selectedID)
}

func (s *Store) findSoftware(id int64) (models.SoftwareAsset, bool) {
	if id == 0 {
		return models.SoftwareAsset{}, false
	}
	for _, a := range s.software {
		if a.ID == id {
			return a, true
		}
	}
	return models.SoftwareAsset{}, false
}

// Wait blocks until background work started by RegisterContact finishes.
func (s *Store) Wait() {
	s.pending.Wait()
}

// authorize returns the current user and token, or ErrSessionExpired.
func (s *Store) authorize(ctx context.Context) (*models.User, string, error) {
	user, token, err := s.session.Current(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	return user, token, nil
}

// backendErr turns a 401 into ErrSessionExpired and leaves other errors as
// they are.
func backendErr(err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	return err
}

// restore puts item back at index after a failed delete. Entries added or
// replaced in the meantime are kept. Nothing is inserted if an entry
// matching same is already present.
func restore[T any](items []T, item T, index int, same func(T) bool) []T {
	if slices.ContainsFunc(items, same) {
		return items
	}
	index = min(index, len(items))
	return slices.Insert(slices.Clone(items), index, item)
}
