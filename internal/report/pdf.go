package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/softrack-city/softrack/internal/models"
)

// AnalyticsFileName is the default name for the analytics PDF.
const AnalyticsFileName = "software_portfolio_analytics.pdf"

const (
	marginX     = 10.0
	titleY      = 10.0
	firstRowY   = 20.0
	rowHeight   = 6.0
	valueOffset = 70.0
	maxValueLen = 120
)

// page lays out label/value rows at fixed positions, starting a new page
// when the current one is full.
type page struct {
	pdf       *fpdf.Fpdf
	tr        func(string) string
	y, bottom float64
}

func newPage(orientation, title string) *page {
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(false, 0)
	_, height := pdf.GetPageSize()

	p := &page{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		bottom: height - marginX,
	}
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(marginX, titleY, p.tr(title))
	pdf.SetFont("Helvetica", "", 9)
	p.y = firstRowY
	return p
}

func (p *page) row(label, value string) {
	if p.y > p.bottom {
		p.pdf.AddPage()
		p.y = titleY
	}
	if r := []rune(value); len(r) > maxValueLen {
		value = string(r[:maxValueLen]) + "..."
	}
	p.pdf.Text(marginX, p.y, p.tr(label))
	p.pdf.Text(marginX+valueOffset, p.y, p.tr(value))
	p.y += rowHeight
}

func (p *page) heading(text string) {
	if p.y+rowHeight > p.bottom {
		p.pdf.AddPage()
		p.y = titleY
	}
	p.pdf.SetFont("Helvetica", "B", 11)
	p.pdf.Text(marginX, p.y, p.tr(text))
	p.pdf.SetFont("Helvetica", "", 9)
	p.y += rowHeight
}

func (p *page) gap() {
	p.y += rowHeight / 2
}

func (p *page) output(w io.Writer) error {
	if err := p.pdf.Error(); err != nil {
		return fmt.Errorf("failed to lay out PDF: %w", err)
	}
	if err := p.pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// PDF writes the same table as CSV, one block of column/value rows per asset.
func PDF(w io.Writer, assets []models.SoftwareAsset) error {
	p := newPage("L", "Software Report")
	for _, a := range assets {
		p.heading(a.Name)
		for i, v := range Row(a) {
			p.row(Headers[i], v)
		}
		p.gap()
	}
	return p.output(w)
}

// AnalyticsRows returns the metric/value pairs of the analytics report.
func AnalyticsRows(a models.Analytics) [][2]string {
	rows := [][2]string{
		{"Metric", "Value"},
		{"Total Software Spending", money(a.TotalSpending)},
		{"Average Satisfaction Rate", fmt.Sprintf("%s/10", number(a.AverageSatisfaction))},
		{"Active Software", fmt.Sprintf("%d/%d", a.ActiveSoftware, a.TotalSoftware)},
		{"Expiring Soon", strconv.Itoa(a.ExpiringSoon)},
		{"Most Expensive Software", fmt.Sprintf("%s (%s)", a.MostExpensive.Name, money(a.MostExpensive.AnnualAmount))},
		{"Cheapest Software", fmt.Sprintf("%s (%s)", a.Cheapest.Name, money(a.Cheapest.AnnualAmount))},
		{"Average Software Cost", money(a.AverageCost)},
		{"Highest Rated Software", fmt.Sprintf("%s (%s/10)", a.HighestRated.Name, number(a.HighestRated.Satisfaction))},
		{"Lowest Rated Software", fmt.Sprintf("%s (%s/10)", a.LowestRated.Name, number(a.LowestRated.Satisfaction))},
		{"Active Licenses", strconv.Itoa(a.ActiveLicenses)},
		{"Inactive Licenses", strconv.Itoa(a.InactiveLicenses)},
	}
	for i, v := range a.Vendors {
		rows = append(rows, [2]string{
			fmt.Sprintf("Vendor %d", i+1),
			fmt.Sprintf("%s (%d products)", v.Name, v.Products),
		})
	}
	return rows
}

// AnalyticsPDF writes the analytics figures as metric/value rows.
func AnalyticsPDF(w io.Writer, a models.Analytics) error {
	p := newPage("P", "Software Analytics Report")
	for _, r := range AnalyticsRows(a) {
		p.row(r[0], r[1])
	}
	return p.output(w)
}

func money(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
