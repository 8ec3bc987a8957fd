// Package listview derives the visible page of software from the full
// collection and the user's search, filter, sort and page selections. It never
// modifies the collection it is given.
package listview

import (
	"slices"
	"strings"
	"time"

	"github.com/softrack-city/softrack/internal/models"
)

// DefaultPageSize is the number of assets shown per page.
const DefaultPageSize = 9

// DefaultExpirationWindow is how many days ahead an expiration is flagged.
const DefaultExpirationWindow = 30

type ViewMode int

const (
	ListMode ViewMode = iota
	GridMode
)

func (v ViewMode) Toggle() ViewMode {
	if v == ListMode {
		return GridMode
	}
	return ListMode
}

func (v ViewMode) String() string {
	if v == GridMode {
		return "grid"
	}
	return "list"
}

// Filter holds the independent predicates. An unset predicate matches
// everything.
type Filter struct {
	Search      string
	Status      string
	Departments []int64
	Divisions   []int64
	Vendors     []int64
}

// Active reports whether any predicate is set.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Search) != "" ||
		f.Status != "" ||
		len(f.Departments) > 0 ||
		len(f.Divisions) > 0 ||
		len(f.Vendors) > 0
}

// Matches reports whether a satisfies every set predicate.
func (f Filter) Matches(a models.SoftwareAsset) bool {
	if term := strings.TrimSpace(f.Search); term != "" {
		if !strings.Contains(strings.ToLower(a.Name), strings.ToLower(term)) {
			return false
		}
	}
	if f.Status != "" && models.NormalizeStatus(a.Status) != models.NormalizeStatus(f.Status) {
		return false
	}
	return anyOf(a.Departments, f.Departments) &&
		anyOf(a.Divisions, f.Divisions) &&
		anyOf(a.Vendors, f.Vendors)
}

func anyOf[T any](refs []models.Ref[T], ids []int64) bool {
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if models.HasRef(refs, id) {
			return true
		}
	}
	return false
}

// Apply returns the assets matching f, in their original order.
func Apply(assets []models.SoftwareAsset, f Filter) []models.SoftwareAsset {
	out := make([]models.SoftwareAsset, 0, len(assets))
	for _, a := range assets {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	return out
}

// IsExpirationApproaching reports whether a expires within window days of
// now. Already expired assets count. An asset without a readable expiration
// date is never flagged.
func IsExpirationApproaching(a models.SoftwareAsset, now time.Time, window int) bool {
	days, err := models.DaysUntil(a.ExpirationDate, now)
	if err != nil {
		return false
	}
	return days <= window
}

// Page is one derived page of results.
type Page struct {
	Items []models.SoftwareAsset
	Index int
	Count int
	Total int
}

// Model is the UI-local list state.
type Model struct {
	Filter   Filter
	Sort     Sort
	Page     int
	PageSize int
	Mode     ViewMode
}

func New(pageSize int) *Model {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Model{PageSize: pageSize}
}

// SetFilter replaces the filter and returns to the first page.
func (m *Model) SetFilter(f Filter) {
	m.Filter = f
	m.Page = 0
}

// SortBy toggles direction for the current key or starts ascending on a new
// one.
func (m *Model) SortBy(key SortKey) {
	m.Sort = m.Sort.Toggle(key)
}

func (m *Model) NextPage() { m.Page++ }

func (m *Model) PrevPage() {
	if m.Page > 0 {
		m.Page--
	}
}

// Derive filters, sorts and paginates all. The page index is clamped to the
// pages that exist, and the clamped value is kept.
func (m *Model) Derive(all []models.SoftwareAsset) Page {
	visible := SortAssets(Apply(all, m.Filter), m.Sort)
	items, index, count := Paginate(visible, m.Page, m.PageSize)
	m.Page = index
	return Page{
		Items: items,
		Index: index,
		Count: count,
		Total: len(visible),
	}
}

// ExportSet is what an export of "everything" should contain: the whole
// filtered set when a filter is active, otherwise the full collection.
func (m *Model) ExportSet(all []models.SoftwareAsset) []models.SoftwareAsset {
	if !m.Filter.Active() {
		return slices.Clone(all)
	}
	return SortAssets(Apply(all, m.Filter), m.Sort)
}

// Paginate returns the items on page index, the clamped index and the page
// count.
func Paginate[T any](items []T, index, size int) ([]T, int, int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	count := (len(items) + size - 1) / size
	index = min(max(index, 0), max(count-1, 0))

	start := index * size
	end := min(start+size, len(items))
	if start >= end {
		return nil, index, count
	}
	return items[start:end], index, count
}
