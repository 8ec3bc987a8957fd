package listview

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softrack-city/softrack/internal/models"
)

func names(assets []models.SoftwareAsset) []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.Name)
	}
	return out
}

func amount(v float64) *float64 { return &v }

func fixture() []models.SoftwareAsset {
	return []models.SoftwareAsset{
		{
			ID: 1, Name: "Laserfiche", Status: models.StatusActive,
			ExpirationDate: "2025-07-10", LastUpdated: "2024-01-05", Licenses: 40,
			AnnualAmount: amount(12000),
			Departments:  []models.Department{{ID: 10, Name: "Clerk"}},
			Vendors:      []models.Vendor{{ID: 100, Name: "Laserfiche Inc"}},
		},
		{
			ID: 2, Name: "ArcGIS", Status: models.StatusActive,
			ExpirationDate: "2026-01-01", LastUpdated: "2023-11-20T10:00:00Z", Licenses: 5,
			Departments: []models.Department{{ID: 11, Name: "Planning"}},
			Divisions:   []models.Division{{ID: 20, Name: "GIS"}},
			Vendors:     []models.Vendor{{ID: 101, Name: "Esri"}},
		},
		{
			ID: 3, Name: "Tyler Munis", Status: "I",
			ExpirationDate: "not a date", LastUpdated: "2024-06-30", Licenses: 120,
			AnnualAmount: amount(90000),
			Departments:  []models.Department{{ID: 10, Name: "Clerk"}, {ID: 12, Name: "Finance"}},
			Vendors:      []models.Vendor{{ID: 102, Name: "Tyler"}},
		},
		{
			ID: 4, Name: "arcgis pro", Status: models.StatusInactive,
			ExpirationDate: "2025-05-01", LastUpdated: "2022-02-02", Licenses: 5,
			AnnualAmount: amount(3000),
			Divisions:    []models.Division{{ID: 20, Name: "GIS"}},
			Vendors:      []models.Vendor{{ID: 101, Name: "Esri"}},
		},
	}
}

func TestIsExpirationApproaching(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		expiration string
		want       bool
	}{
		{expiration: "2025-07-01", want: true},  // 30 days
		{expiration: "2025-07-02", want: false}, // 31 days
		{expiration: "2025-06-01", want: true},
		{expiration: "2025-01-01", want: true}, // already expired
		{expiration: "2025-06-20T23:59:59Z", want: true},
		{expiration: "", want: false},
		{expiration: "soon", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.expiration, func(t *testing.T) {
			a := models.SoftwareAsset{ExpirationDate: tt.expiration}
			assert.Equal(t, tt.want, IsExpirationApproaching(a, now, DefaultExpirationWindow))
		})
	}
}

func TestFilterIsConjunctive(t *testing.T) {
	all := fixture()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "empty filter", filter: Filter{}, want: []string{"Laserfiche", "ArcGIS", "Tyler Munis", "arcgis pro"}},
		{name: "search is case-insensitive", filter: Filter{Search: "ARCGIS"}, want: []string{"ArcGIS", "arcgis pro"}},
		{name: "status accepts short codes", filter: Filter{Status: models.StatusInactive}, want: []string{"Tyler Munis", "arcgis pro"}},
		{name: "any department", filter: Filter{Departments: []int64{10, 11}}, want: []string{"Laserfiche", "ArcGIS", "Tyler Munis"}},
		{name: "division", filter: Filter{Divisions: []int64{20}}, want: []string{"ArcGIS", "arcgis pro"}},
		{name: "vendor and status", filter: Filter{Vendors: []int64{101}, Status: models.StatusActive}, want: []string{"ArcGIS"}},
		{name: "search and department", filter: Filter{Search: "tyler", Departments: []int64{11}}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(all, tt.filter)
			assert.Equal(t, tt.want, names(got))
			for _, a := range got {
				assert.True(t, tt.filter.Matches(a))
			}
		})
	}
}

func TestApplyDoesNotModifySource(t *testing.T) {
	all := fixture()
	before := names(all)
	_ = SortAssets(Apply(all, Filter{Search: "a"}), Sort{Key: SortName, Descending: true})
	assert.Equal(t, before, names(all))
}

func TestSortToggle(t *testing.T) {
	var s Sort
	s = s.Toggle(SortName)
	assert.Equal(t, Sort{Key: SortName}, s)

	s = s.Toggle(SortName)
	assert.Equal(t, Sort{Key: SortName, Descending: true}, s)

	s = s.Toggle(SortName)
	assert.False(t, s.Descending)

	s = s.Toggle(SortName).Toggle(SortExpiration)
	assert.Equal(t, Sort{Key: SortExpiration}, s, "a new key starts ascending")
}

func TestSortAssets(t *testing.T) {
	all := fixture()

	tests := []struct {
		name string
		sort Sort
		want []string
	}{
		{name: "none keeps order", sort: Sort{}, want: []string{"Laserfiche", "ArcGIS", "Tyler Munis", "arcgis pro"}},
		{name: "name ignores case", sort: Sort{Key: SortName}, want: []string{"ArcGIS", "arcgis pro", "Laserfiche", "Tyler Munis"}},
		{name: "expiration chronological, bad date last", sort: Sort{Key: SortExpiration}, want: []string{"arcgis pro", "Laserfiche", "ArcGIS", "Tyler Munis"}},
		{name: "expiration descending keeps bad date last", sort: Sort{Key: SortExpiration, Descending: true}, want: []string{"ArcGIS", "Laserfiche", "arcgis pro", "Tyler Munis"}},
		{name: "last updated mixes precisions", sort: Sort{Key: SortLastUpdated}, want: []string{"arcgis pro", "ArcGIS", "Laserfiche", "Tyler Munis"}},
		{name: "licenses stable on ties", sort: Sort{Key: SortLicenses}, want: []string{"ArcGIS", "arcgis pro", "Laserfiche", "Tyler Munis"}},
		{name: "amount missing last", sort: Sort{Key: SortAnnualAmount, Descending: true}, want: []string{"Tyler Munis", "Laserfiche", "arcgis pro", "ArcGIS"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(SortAssets(all, tt.sort)))
		})
	}
}

func TestPaginate(t *testing.T) {
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	page, index, count := Paginate(items, 0, 9)
	assert.Equal(t, 3, count)
	assert.Equal(t, 0, index)
	assert.Len(t, page, 9)

	page, index, _ = Paginate(items, 2, 9)
	assert.Equal(t, 2, index)
	assert.Equal(t, []int{18, 19}, page)

	_, index, _ = Paginate(items, 7, 9)
	assert.Equal(t, 2, index)

	_, index, _ = Paginate(items, -1, 9)
	assert.Equal(t, 0, index)

	page, index, count = Paginate([]int{}, 3, 9)
	assert.Empty(t, page)
	assert.Equal(t, 0, index)
	assert.Equal(t, 0, count)
}

func TestDeriveClampsPageWhenFilterNarrows(t *testing.T) {
	var all []models.SoftwareAsset
	for i := 1; i <= 20; i++ {
		name := fmt.Sprintf("App %02d", i)
		if i%5 == 0 {
			name = fmt.Sprintf("Suite %02d", i)
		}
		all = append(all, models.SoftwareAsset{ID: int64(i), Name: name})
	}

	m := New(9)
	m.Page = 2
	page := m.Derive(all)
	require.Equal(t, 3, page.Count)
	assert.Equal(t, 2, page.Index)
	assert.Len(t, page.Items, 2)

	// narrowing without SetFilter must still clamp
	m.Filter = Filter{Search: "suite"}
	page = m.Derive(all)
	assert.Equal(t, 1, page.Count)
	assert.Equal(t, 0, page.Index)
	assert.Equal(t, 0, m.Page)
	assert.Equal(t, 4, page.Total)
	assert.Len(t, page.Items, 4)
}

func TestExportSet(t *testing.T) {
	all := fixture()
	m := New(2)
	m.Page = 1

	assert.Len(t, m.ExportSet(all), len(all), "no filter exports everything")

	m.SetFilter(Filter{Vendors: []int64{101}})
	got := m.ExportSet(all)
	assert.Equal(t, []string{"ArcGIS", "arcgis pro"}, names(got), "whole filtered set, not just the page")
}

func TestViewModeToggle(t *testing.T) {
	assert.Equal(t, GridMode, ListMode.Toggle())
	assert.Equal(t, ListMode, GridMode.Toggle())
	assert.Equal(t, "grid", GridMode.String())
}
