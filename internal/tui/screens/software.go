package screens

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/softrack-city/softrack/internal/listview"
	"github.com/softrack-city/softrack/internal/models"
	"github.com/softrack-city/softrack/internal/report"
)

type softwareMode int

const (
	softwareModeList softwareMode = iota
	softwareModeSearch
	softwareModeFilter
	softwareModeDelete
)

var statusOptions = []string{"", models.StatusActive, models.StatusInactive}

// Software is the main list of assets.
type Software struct {
	deps   Deps
	width  int
	height int

	view    *listview.Model
	page    listview.Page
	cursor  int
	mode    softwareMode
	search  textinput.Model
	spinner spinner.Model
	loaded  bool
	loading bool
	err     error
	message string

	// across the whole collection, not just the current page
	expiringSoon int
}

func NewSoftware(deps Deps) *Software {
	ti := textinput.New()
	ti.Placeholder = "Search by name"
	ti.CharLimit = 100
	ti.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Software{
		deps:    deps,
		view:    listview.New(deps.Config.PageSize),
		search:  ti,
		spinner: sp,
	}
}

func (s *Software) SetSize(width, height int) {
	s.width = width
	s.height = height
}

func (s *Software) SetNotice(notice string) {
	s.message = notice
}

// Invalidate forces a full reload the next time the screen mounts.
func (s *Software) Invalidate() {
	s.loaded = false
}

type softwareLoadedMsg struct{}

type softwareActionMsg struct {
	message string
	err     error
}

func (s *Software) Init() tea.Cmd {
	s.mode = softwareModeList
	s.err = nil
	s.derive()
	if s.loaded {
		return checkSession(s.deps.Store)
	}
	s.loading = true
	return tea.Batch(checkSession(s.deps.Store), s.spinner.Tick, s.loadData)
}

func (s *Software) loadData() tea.Msg {
	ctx, cancel := requestContext()
	defer cancel()
	s.deps.Store.Initialize(ctx)
	return softwareLoadedMsg{}
}

func (s *Software) derive() {
	s.page = s.view.Derive(s.deps.Store.Software())
	s.expiringSoon = len(s.deps.Store.ExpiringSoon(time.Now(), s.deps.Config.ExpirationWindowDays))
	if s.cursor >= len(s.page.Items) {
		s.cursor = max(0, len(s.page.Items)-1)
	}
}

func (s *Software) current() (models.SoftwareAsset, bool) {
	if len(s.page.Items) == 0 {
		return models.SoftwareAsset{}, false
	}
	return s.page.Items[s.cursor], true
}

func (s *Software) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case softwareLoadedMsg:
		s.loading = false
		s.loaded = true
		s.derive()
		return nil

	case softwareActionMsg:
		s.err = msg.err
		if msg.err == nil {
			s.message = msg.message
		}
		s.derive()
		return sessionGate(msg.err)

	case spinner.TickMsg:
		if !s.loading {
			return nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return cmd

	case RefreshMsg:
		s.loaded = false
		return s.Init()

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.mode == softwareModeSearch {
		var cmd tea.Cmd
		s.search, cmd = s.search.Update(msg)
		return cmd
	}
	return nil
}

func (s *Software) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch s.mode {
	case softwareModeSearch:
		return s.handleSearchKey(msg)
	case softwareModeFilter:
		return s.handleFilterKey(msg)
	case softwareModeDelete:
		return s.handleDeleteKey(msg)
	}
	return s.handleListKey(msg)
}

func (s *Software) handleListKey(msg tea.KeyMsg) tea.Cmd {
	if s.loading {
		if msg.String() == "q" {
			return tea.Quit
		}
		return nil
	}

	s.message = ""
	switch key := msg.String(); key {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.page.Items)-1 {
			s.cursor++
		}
	case "right", "l", "n":
		s.view.NextPage()
		s.cursor = 0
		s.derive()
	case "left", "h", "p":
		s.view.PrevPage()
		s.cursor = 0
		s.derive()
	case "/":
		s.mode = softwareModeSearch
		s.search.SetValue(s.view.Filter.Search)
		s.search.Focus()
		return textinput.Blink
	case "f":
		s.mode = softwareModeFilter
	case "1", "2", "3", "4", "5", "6", "7", "8":
		idx := int(key[0] - '1')
		s.view.SortBy(listview.SortKeys[idx])
		s.derive()
	case "g":
		s.view.Mode = s.view.Mode.Toggle()
	case "a":
		s.deps.Store.BeginAdd()
		return Navigate(ScreenEditor)
	case "e":
		if a, ok := s.current(); ok {
			s.deps.Store.BeginEdit(a)
			return Navigate(ScreenEditor)
		}
	case "d":
		if _, ok := s.current(); ok {
			s.mode = softwareModeDelete
		}
	case "enter":
		if a, ok := s.current(); ok {
			s.deps.Store.Select(a)
			return NavigateWithSoftware(ScreenDetail, a.ID)
		}
	case "x":
		return s.export(s.view.ExportSet(s.deps.Store.Software()), report.AllFileName, false)
	case "X":
		return s.export(s.view.ExportSet(s.deps.Store.Software()), "all_software.pdf", true)
	case "c":
		if a, ok := s.current(); ok {
			return s.export([]models.SoftwareAsset{a}, report.FileName(a), false)
		}
	case "A":
		return Navigate(ScreenAnalytics)
	case "r":
		return Refresh()
	case "L":
		return s.logout()
	case "q":
		return tea.Quit
	}
	return nil
}

func (s *Software) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter", "esc":
		s.mode = softwareModeList
		s.search.Blur()
		return nil
	}

	var cmd tea.Cmd
	s.search, cmd = s.search.Update(msg)
	f := s.view.Filter
	f.Search = s.search.Value()
	s.view.SetFilter(f)
	s.cursor = 0
	s.derive()
	return cmd
}

func (s *Software) handleFilterKey(msg tea.KeyMsg) tea.Cmd {
	f := s.view.Filter
	store := s.deps.Store

	switch msg.String() {
	case "s":
		f.Status = cycleString(statusOptions, f.Status)
	case "d":
		f.Departments = cycleRef(store.Departments(), f.Departments)
	case "i":
		f.Divisions = cycleRef(store.Divisions(), f.Divisions)
	case "v":
		f.Vendors = cycleRef(store.Vendors(), f.Vendors)
	case "c":
		f = listview.Filter{Search: f.Search}
	case "enter", "esc", "f":
		s.mode = softwareModeList
		return nil
	default:
		return nil
	}

	s.view.SetFilter(f)
	s.cursor = 0
	s.derive()
	return nil
}

func (s *Software) handleDeleteKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		s.mode = softwareModeList
		if a, ok := s.current(); ok {
			s.message = fmt.Sprintf("Deleting %s...", a.Name)
			return s.remove(a)
		}
	case "n", "N", "esc":
		s.mode = softwareModeList
	}
	return nil
}

// remove runs the delete. The Store drops the asset from its collection
// before the request goes out and puts it back if the request fails.
func (s *Software) remove(a models.SoftwareAsset) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		if err := s.deps.Store.Remove(ctx, a); err != nil {
			return softwareActionMsg{err: fmt.Errorf("could not delete %s: %w", a.Name, err)}
		}
		return softwareActionMsg{message: fmt.Sprintf("Deleted %s", a.Name)}
	}
}

func (s *Software) export(assets []models.SoftwareAsset, name string, pdf bool) tea.Cmd {
	dir := s.deps.Config.ReportsOutput
	return func() tea.Msg {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return softwareActionMsg{err: err}
		}
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return softwareActionMsg{err: err}
		}
		defer f.Close()

		if pdf {
			err = report.PDF(f, assets)
		} else {
			err = report.WriteCSV(f, assets)
		}
		if err != nil {
			return softwareActionMsg{err: err}
		}
		return softwareActionMsg{message: fmt.Sprintf("Exported %d records to %s", len(assets), path)}
	}
}

func (s *Software) logout() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		notice := "Logged out"
		if err := s.deps.Store.Logout(ctx); err != nil {
			notice = fmt.Sprintf("Logged out locally (%v)", err)
		}
		return NavigateMsg{Screen: ScreenLogin, Notice: notice}
	}
}

func cycleString(options []string, current string) string {
	for i, o := range options {
		if o == current {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

// cycleRef steps a single-id filter through the reference table, wrapping
// back to "unset" after the last entry.
func cycleRef[T any](table []models.Ref[T], current []int64) []int64 {
	if len(table) == 0 {
		return nil
	}
	if len(current) == 0 {
		return []int64{table[0].ID}
	}
	for i, r := range table {
		if r.ID == current[0] {
			if i+1 < len(table) {
				return []int64{table[i+1].ID}
			}
			return nil
		}
	}
	return nil
}

func refLabel[T any](table []models.Ref[T], ids []int64) string {
	if len(ids) == 0 {
		return "all"
	}
	var names []string
	for _, r := range table {
		for _, id := range ids {
			if r.ID == id {
				names = append(names, r.Name)
			}
		}
	}
	return strings.Join(names, ", ")
}

func (s *Software) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("SOFTWARE"))
	b.WriteString("\n")

	if s.loading {
		b.WriteString(s.spinner.View())
		b.WriteString(" Loading...\n")
		return b.String()
	}

	writeError(&b, s.err)
	writeMessage(&b, s.message)
	if banner := expiringBanner(s.expiringSoon, s.deps.Config.ExpirationWindowDays); banner != "" {
		b.WriteString(WarningStyle.Render(banner))
		b.WriteString("\n\n")
	}

	store := s.deps.Store
	f := s.view.Filter
	status := f.Status
	if status == "" {
		status = "all"
	}
	sortLabel := s.view.Sort.Key.Label()
	if s.view.Sort.Key != listview.SortNone {
		if s.view.Sort.Descending {
			sortLabel += " ↓"
		} else {
			sortLabel += " ↑"
		}
	}
	b.WriteString(DimStyle.Render(fmt.Sprintf(
		"Search: %q  Status: %s  Department: %s  Division: %s  Vendor: %s  Sort: %s",
		f.Search, status,
		refLabel(store.Departments(), f.Departments),
		refLabel(store.Divisions(), f.Divisions),
		refLabel(store.Vendors(), f.Vendors),
		sortLabel,
	)))
	b.WriteString("\n\n")

	switch s.mode {
	case softwareModeSearch:
		b.WriteString("Search: ")
		b.WriteString(s.search.View())
		b.WriteString("\n\n")
	case softwareModeFilter:
		b.WriteString(WarningStyle.Render("Filter: [s] status  [d] department  [i] division  [v] vendor  [c] clear  [enter] done"))
		b.WriteString("\n\n")
	case softwareModeDelete:
		if a, ok := s.current(); ok {
			b.WriteString(WarningStyle.Render(fmt.Sprintf("Delete '%s'? This cannot be undone. (y/n)", a.Name)))
			b.WriteString("\n\n")
		}
	}

	if len(s.page.Items) == 0 {
		b.WriteString(DimStyle.Render("No software matches."))
		b.WriteString("\n")
	} else if s.view.Mode == listview.GridMode {
		b.WriteString(s.gridView())
	} else {
		b.WriteString(s.listView())
	}

	b.WriteString("\n")
	b.WriteString(DimStyle.Render(fmt.Sprintf("Page %d of %d (%d records)", s.page.Index+1, max(s.page.Count, 1), s.page.Total)))
	b.WriteString("\n")

	help := "[/] Search  [f] Filter  [1-8] Sort  [g] Grid/List  [←/→] Page  [enter] Details  [a] Add  [e] Edit  [d] Delete\n" +
		"[x] Export CSV  [X] Export PDF  [c] Export selected  [A] Analytics  [r] Refresh  [L] Logout  [q] Quit"
	b.WriteString(HelpStyle.Render(help))

	return b.String()
}

func expiringBanner(n, window int) string {
	switch n {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("⚠ 1 license expires within %d days or has already expired", window)
	default:
		return fmt.Sprintf("⚠ %d licenses expire within %d days or have already expired", n, window)
	}
}

func (s *Software) expiring(a models.SoftwareAsset) bool {
	return listview.IsExpirationApproaching(a, time.Now(), s.deps.Config.ExpirationWindowDays)
}

func (s *Software) listView() string {
	var b strings.Builder
	header := fmt.Sprintf("  %-28s %-10s %-9s %-12s %-12s %8s", "Name", "Version", "Status", "Updated", "Expires", "Licenses")
	b.WriteString(DimStyle.Render(header))
	b.WriteString("\n")

	for i, a := range s.page.Items {
		cursor := "  "
		style := NormalStyle
		if i == s.cursor {
			cursor = "> "
			style = SelectedStyle
		}

		line := fmt.Sprintf("%s%-28s %-10s %-9s %-12s %-12s %8d",
			cursor,
			truncate(a.Name, 28),
			truncate(orDash(a.Version), 10),
			models.NormalizeStatus(a.Status),
			orDash(models.FormatDate(a.LastUpdated)),
			orDash(models.FormatDate(a.ExpirationDate)),
			a.Licenses,
		)
		b.WriteString(style.Render(line))
		if s.expiring(a) {
			b.WriteString(" ")
			b.WriteString(WarningStyle.Render("⚠ expiring"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Software) gridView() string {
	columns := 3
	if s.width > 0 {
		columns = max(1, min(3, s.width/34))
	}

	var rows []string
	var row []string
	for i, a := range s.page.Items {
		style := CardStyle
		if i == s.cursor {
			style = SelectedCardStyle
		}

		body := fmt.Sprintf("%s\n%s\n%s\nExpires %s",
			truncate(a.Name, 26),
			DimStyle.Render(truncate(orDash(a.Description), 26)),
			models.NormalizeStatus(a.Status),
			orDash(models.FormatDate(a.ExpirationDate)),
		)
		if s.expiring(a) {
			body += "\n" + WarningStyle.Render("⚠ expiring")
		}
		row = append(row, style.Render(body))

		if len(row) == columns {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...) + "\n"
}
