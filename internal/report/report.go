// Package report flattens software assets into tabular exports.
package report

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/softrack-city/softrack/internal/models"
)

// RelationSeparator joins the members of a relation column.
const RelationSeparator = "; "

// Headers is the fixed column order of every export.
var Headers = []string{
	"id",
	"software_name",
	"software_description",
	"software_version",
	"software_department",
	"software_divisions_using",
	"software_department_contact_people",
	"software_vendor",
	"software_years_of_use",
	"software_last_updated",
	"software_expiration_date",
	"software_is_hosted",
	"software_is_tech_supported",
	"software_is_cloud_based",
	"software_maintenance_support",
	"software_number_of_licenses",
	"software_to_operate",
	"hardware_to_operate",
	"software_gl_accounts",
	"software_operational_status",
	"software_annual_amount",
	"software_comments",
}

// Row returns a's values in Headers order.
func Row(a models.SoftwareAsset) []string {
	return []string{
		strconv.FormatInt(a.ID, 10),
		a.Name,
		a.Description,
		a.Version,
		names(a.Departments),
		names(a.Divisions),
		contacts(a.Contacts),
		names(a.Vendors),
		optionalInt(a.YearsOfUse),
		models.FormatDate(a.LastUpdated),
		models.FormatDate(a.ExpirationDate),
		a.Hosted,
		a.TechSupported,
		a.CloudBased,
		a.Maintenance,
		strconv.Itoa(a.Licenses),
		names(a.SoftwareDependencies),
		names(a.HardwareDependencies),
		names(a.GLAccounts),
		a.Status,
		optionalAmount(a.AnnualAmount),
		a.Comments,
	}
}

func names[T any](refs []models.Ref[T]) string {
	return strings.Join(models.RefNames(models.ValidRefs(refs)), RelationSeparator)
}

func contacts(people []models.ContactPerson) string {
	out := make([]string, 0, len(people))
	for _, p := range people {
		if !p.Valid() {
			continue
		}
		out = append(out, fmt.Sprintf("%s %s (%s)", p.Name, p.LastName, p.Email))
	}
	return strings.Join(out, RelationSeparator)
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optionalAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// quote wraps v in double quotes. Embedded quotes are doubled so free text
// cannot end the field early.
func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// CSV renders the header line followed by one fully quoted line per asset.
func CSV(assets []models.SoftwareAsset) string {
	var b strings.Builder
	b.WriteString(strings.Join(Headers, ","))
	b.WriteString("\n")

	fields := make([]string, len(Headers))
	for _, a := range assets {
		for i, v := range Row(a) {
			fields[i] = quote(v)
		}
		b.WriteString(strings.Join(fields, ","))
		b.WriteString("\n")
	}
	return b.String()
}

func WriteCSV(w io.Writer, assets []models.SoftwareAsset) error {
	_, err := io.WriteString(w, CSV(assets))
	return err
}

var whitespace = regexp.MustCompile(`\s+`)

// FileName is the export name for a single asset, e.g. "tyler_munis_report.csv".
func FileName(a models.SoftwareAsset) string {
	return strings.ToLower(whitespace.ReplaceAllString(a.Name, "_")) + "_report.csv"
}

// AllFileName is the export name for a multi-asset CSV.
const AllFileName = "all_software.csv"
