package listview

import (
	"cmp"
	"slices"
	"strings"

	"github.com/softrack-city/softrack/internal/models"
)

type SortKey string

const (
	SortNone         SortKey = ""
	SortName         SortKey = "name"
	SortVersion      SortKey = "version"
	SortStatus       SortKey = "status"
	SortExpiration   SortKey = "expiration"
	SortLastUpdated  SortKey = "last_updated"
	SortLicenses     SortKey = "licenses"
	SortAnnualAmount SortKey = "annual_amount"
	SortYearsOfUse   SortKey = "years_of_use"
)

// SortKeys lists the sortable columns in display order.
var SortKeys = []SortKey{
	SortName,
	SortVersion,
	SortStatus,
	SortLastUpdated,
	SortExpiration,
	SortLicenses,
	SortAnnualAmount,
	SortYearsOfUse,
}

func (k SortKey) Label() string {
	switch k {
	case SortName:
		return "Name"
	case SortVersion:
		return "Version"
	case SortStatus:
		return "Status"
	case SortExpiration:
		return "Expiration"
	case SortLastUpdated:
		return "Last Updated"
	case SortLicenses:
		return "Licenses"
	case SortAnnualAmount:
		return "Annual Amount"
	case SortYearsOfUse:
		return "Years of Use"
	default:
		return "None"
	}
}

type Sort struct {
	Key        SortKey
	Descending bool
}

// Toggle returns the sort after the user picks key: the same key flips
// direction, a different key starts ascending.
func (s Sort) Toggle(key SortKey) Sort {
	if s.Key == key {
		return Sort{Key: key, Descending: !s.Descending}
	}
	return Sort{Key: key}
}

// sortValue is one asset's value for a key. Missing values (no amount, an
// unreadable date) always sort after present ones, in either direction.
type sortValue struct {
	missing bool
	num     float64
	str     string
}

func valueOf(a models.SoftwareAsset, key SortKey) sortValue {
	switch key {
	case SortName:
		return sortValue{str: strings.ToLower(a.Name)}
	case SortVersion:
		return sortValue{missing: a.Version == "", str: strings.ToLower(a.Version)}
	case SortStatus:
		return sortValue{str: models.NormalizeStatus(a.Status)}
	case SortExpiration:
		return dateValue(a.ExpirationDate)
	case SortLastUpdated:
		return dateValue(a.LastUpdated)
	case SortLicenses:
		return sortValue{num: float64(a.Licenses)}
	case SortAnnualAmount:
		if a.AnnualAmount == nil {
			return sortValue{missing: true}
		}
		return sortValue{num: *a.AnnualAmount}
	case SortYearsOfUse:
		if a.YearsOfUse == nil {
			return sortValue{missing: true}
		}
		return sortValue{num: float64(*a.YearsOfUse)}
	default:
		return sortValue{}
	}
}

func dateValue(s string) sortValue {
	t, err := models.ParseDate(s)
	if err != nil {
		return sortValue{missing: true}
	}
	return sortValue{num: float64(t.Unix())}
}

// SortAssets returns a stably sorted copy of assets.
func SortAssets(assets []models.SoftwareAsset, s Sort) []models.SoftwareAsset {
	out := slices.Clone(assets)
	if s.Key == SortNone {
		return out
	}

	slices.SortStableFunc(out, func(a, b models.SoftwareAsset) int {
		va, vb := valueOf(a, s.Key), valueOf(b, s.Key)
		switch {
		case va.missing && vb.missing:
			return 0
		case va.missing:
			return 1
		case vb.missing:
			return -1
		}

		c := cmp.Compare(va.num, vb.num)
		if c == 0 {
			c = cmp.Compare(va.str, vb.str)
		}
		if s.Descending {
			return -c
		}
		return c
	})
	return out
}
