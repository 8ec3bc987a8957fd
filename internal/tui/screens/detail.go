package screens

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/softrack-city/softrack/internal/models"
	"github.com/softrack-city/softrack/internal/state"
)

type detailMode int

const (
	detailModeView detailMode = iota
	detailModeComment
	detailModeUpload
	detailModeConfirmDelete
)

type detailPane int

const (
	paneComments detailPane = iota
	paneContracts
)

// Detail shows one asset with its comments and contracts.
type Detail struct {
	deps   Deps
	width  int
	height int

	softwareID int64
	asset      models.SoftwareAsset
	found      bool
	user       *models.User
	contracts  []models.Contract

	mode         detailMode
	pane         detailPane
	cursor       int
	comment      textarea.Model
	satisfaction int
	path         textinput.Model
	busy         bool
	err          error
	message      string
}

func NewDetail(deps Deps) *Detail {
	comment := textarea.New()
	comment.Placeholder = "Share your experience with this software"
	comment.CharLimit = 1000
	comment.ShowLineNumbers = false
	comment.SetWidth(60)
	comment.SetHeight(4)
	path := newInput("/path/to/contract.pdf", 500)
	path.Width = 60

	return &Detail{
		deps:         deps,
		comment:      comment,
		path:         path,
		satisfaction: state.MaxSatisfaction,
	}
}

func (d *Detail) SetSize(width, height int) {
	d.width = width
	d.height = height
}

func (d *Detail) SetSoftware(id int64) {
	d.softwareID = id
}

type detailLoadedMsg struct {
	user      *models.User
	contracts []models.Contract
	err       error
}

type detailActionMsg struct {
	message string
	reload  bool
	err     error
}

func (d *Detail) Init() tea.Cmd {
	d.mode = detailModeView
	d.pane = paneComments
	d.cursor = 0
	d.err = nil
	d.message = ""
	d.lookup()
	return tea.Batch(checkSession(d.deps.Store), d.loadData)
}

// lookup refreshes the asset from the Store and keeps the selection on it.
func (d *Detail) lookup() {
	d.found = false
	for _, a := range d.deps.Store.Software() {
		if a.ID == d.softwareID {
			d.asset = a
			d.found = true
			d.deps.Store.Select(a)
			return
		}
	}
}

func (d *Detail) loadData() tea.Msg {
	ctx, cancel := requestContext()
	defer cancel()

	user, err := d.deps.Store.CurrentUser(ctx)
	if err != nil {
		return detailLoadedMsg{err: err}
	}
	contracts, err := d.deps.Store.Contracts(ctx, d.softwareID)
	return detailLoadedMsg{user: user, contracts: contracts, err: err}
}

func (d *Detail) comments() []models.Comment {
	return d.deps.Store.CommentsFor(d.softwareID)
}

func (d *Detail) paneLen() int {
	if d.pane == paneContracts {
		return len(d.contracts)
	}
	return len(d.comments())
}

func (d *Detail) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case detailLoadedMsg:
		d.user = msg.user
		d.contracts = msg.contracts
		d.err = msg.err
		return sessionGate(msg.err)

	case detailActionMsg:
		d.busy = false
		d.err = msg.err
		if msg.err == nil {
			d.message = msg.message
		}
		d.lookup()
		if d.cursor >= d.paneLen() {
			d.cursor = max(0, d.paneLen()-1)
		}
		if cmd := sessionGate(msg.err); cmd != nil {
			return cmd
		}
		if msg.reload {
			return d.loadData
		}
		return nil

	case RefreshMsg:
		return d.Init()

	case tea.KeyMsg:
		return d.handleKey(msg)
	}

	switch d.mode {
	case detailModeComment:
		var cmd tea.Cmd
		d.comment, cmd = d.comment.Update(msg)
		return cmd
	case detailModeUpload:
		var cmd tea.Cmd
		d.path, cmd = d.path.Update(msg)
		return cmd
	}
	return nil
}

func (d *Detail) handleKey(msg tea.KeyMsg) tea.Cmd {
	if d.busy {
		return nil
	}

	switch d.mode {
	case detailModeComment:
		return d.handleCommentKey(msg)
	case detailModeUpload:
		return d.handleUploadKey(msg)
	case detailModeConfirmDelete:
		return d.handleConfirmKey(msg)
	}

	d.message = ""
	switch msg.String() {
	case "esc", "q", "backspace":
		return Navigate(ScreenSoftware)
	case "tab":
		if d.pane == paneComments {
			d.pane = paneContracts
		} else {
			d.pane = paneComments
		}
		d.cursor = 0
	case "up", "k":
		if d.cursor > 0 {
			d.cursor--
		}
	case "down", "j":
		if d.cursor < d.paneLen()-1 {
			d.cursor++
		}
	case "c":
		d.mode = detailModeComment
		d.comment.Reset()
		d.satisfaction = state.MaxSatisfaction
		return d.comment.Focus()
	case "u":
		d.mode = detailModeUpload
		d.path.SetValue("")
		d.path.Focus()
		return textinput.Blink
	case "e":
		if d.found {
			d.deps.Store.BeginEdit(d.asset)
			return Navigate(ScreenEditor)
		}
	case "d":
		if d.paneLen() > 0 {
			d.mode = detailModeConfirmDelete
		}
	case "r":
		return Refresh()
	}
	return nil
}

func (d *Detail) handleCommentKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		d.mode = detailModeView
		d.comment.Blur()
		return nil
	case "ctrl+up", "pgup":
		d.satisfaction = state.ClampSatisfaction(d.satisfaction + 1)
		return nil
	case "ctrl+down", "pgdown":
		d.satisfaction = state.ClampSatisfaction(d.satisfaction - 1)
		return nil
	case "ctrl+s":
		draft := state.CommentDraft{Content: d.comment.Value(), Satisfaction: d.satisfaction}
		d.busy = true
		return func() tea.Msg {
			ctx, cancel := requestContext()
			defer cancel()
			if err := d.deps.Store.AddComment(ctx, draft); err != nil {
				return detailActionMsg{err: err}
			}
			return detailActionMsg{message: "Comment added"}
		}
	}

	var cmd tea.Cmd
	d.comment, cmd = d.comment.Update(msg)
	return cmd
}

func (d *Detail) handleUploadKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		d.mode = detailModeView
		d.path.Blur()
		return nil
	case "enter":
		path := strings.TrimSpace(d.path.Value())
		d.busy = true
		return func() tea.Msg {
			ctx, cancel := requestContext()
			defer cancel()
			contract, err := d.deps.Store.UploadContract(ctx, path)
			if err != nil {
				return detailActionMsg{err: err}
			}
			return detailActionMsg{message: fmt.Sprintf("Uploaded %s", contract.Name), reload: true}
		}
	}

	var cmd tea.Cmd
	d.path, cmd = d.path.Update(msg)
	return cmd
}

func (d *Detail) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		d.mode = detailModeView
		d.busy = true
		if d.pane == paneContracts {
			c := d.contracts[d.cursor]
			return func() tea.Msg {
				ctx, cancel := requestContext()
				defer cancel()
				if err := d.deps.Store.DeleteContract(ctx, c.ID); err != nil {
					return detailActionMsg{err: err}
				}
				return detailActionMsg{message: fmt.Sprintf("Deleted %s", c.Name), reload: true}
			}
		}
		c := d.comments()[d.cursor]
		return func() tea.Msg {
			ctx, cancel := requestContext()
			defer cancel()
			if err := d.deps.Store.DeleteComment(ctx, c.ID); err != nil {
				return detailActionMsg{err: err}
			}
			return detailActionMsg{message: "Comment deleted"}
		}
	case "n", "N", "esc":
		d.mode = detailModeView
	}
	return nil
}

func (d *Detail) View() string {
	var b strings.Builder

	if !d.found {
		b.WriteString(TitleStyle.Render("SOFTWARE"))
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render("This software is no longer available."))
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("[esc] Back"))
		return b.String()
	}

	a := d.asset
	b.WriteString(TitleStyle.Render(strings.ToUpper(a.Name)))
	b.WriteString("\n")
	if a.Description != "" {
		b.WriteString(SubtitleStyle.Render(a.Description))
		b.WriteString("\n")
	}

	writeError(&b, d.err)
	writeMessage(&b, d.message)

	rows := [][2]string{
		{"Version", orDash(a.Version)},
		{"Status", orDash(models.NormalizeStatus(a.Status))},
		{"Last updated", orDash(models.FormatDate(a.LastUpdated))},
		{"Expires", orDash(models.FormatDate(a.ExpirationDate))},
		{"Licenses", strconv.Itoa(a.Licenses)},
		{"Annual amount", amount(a.AnnualAmount)},
		{"Years of use", optionalInt(a.YearsOfUse)},
		{"Hosted", orDash(a.Hosted)},
		{"Cloud based", orDash(a.CloudBased)},
		{"Tech supported", orDash(a.TechSupported)},
		{"Maintenance", orDash(a.Maintenance)},
		{"Departments", orDash(strings.Join(models.RefNames(models.ValidRefs(a.Departments)), ", "))},
		{"Divisions", orDash(strings.Join(models.RefNames(models.ValidRefs(a.Divisions)), ", "))},
		{"Vendors", orDash(strings.Join(models.RefNames(models.ValidRefs(a.Vendors)), ", "))},
		{"GL accounts", orDash(strings.Join(models.RefNames(models.ValidRefs(a.GLAccounts)), ", "))},
		{"Software to operate", orDash(strings.Join(models.RefNames(models.ValidRefs(a.SoftwareDependencies)), ", "))},
		{"Hardware to operate", orDash(strings.Join(models.RefNames(models.ValidRefs(a.HardwareDependencies)), ", "))},
		{"Contacts", orDash(contactNames(a.Contacts))},
	}
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("%-20s %s\n", DimStyle.Render(r[0]), r[1]))
	}
	if a.Comments != "" {
		b.WriteString("\n")
		b.WriteString(a.Comments)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(d.commentsView())
	b.WriteString("\n")
	b.WriteString(d.contractsView())

	switch d.mode {
	case detailModeComment:
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Satisfaction: %d/10 (pgup/pgdown)\n", d.satisfaction))
		b.WriteString(d.comment.View())
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("[ctrl+s] Post  [esc] Cancel"))
		return b.String()
	case detailModeUpload:
		b.WriteString("\nContract PDF: ")
		b.WriteString(d.path.View())
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("[enter] Upload  [esc] Cancel"))
		return b.String()
	case detailModeConfirmDelete:
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render("Delete the highlighted item? (y/n)"))
		b.WriteString("\n")
	}

	if d.busy {
		b.WriteString(DimStyle.Render("Working..."))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("[tab] Comments/Contracts  [c] Comment  [u] Upload contract  [d] Delete  [e] Edit  [r] Refresh  [esc] Back"))
	return b.String()
}

func (d *Detail) commentsView() string {
	var b strings.Builder
	comments := d.comments()

	header := fmt.Sprintf("Comments (%d)", len(comments))
	if d.pane == paneComments {
		header = SelectedStyle.Render(header)
	}
	b.WriteString(header)
	b.WriteString("\n")

	if len(comments) == 0 {
		b.WriteString(DimStyle.Render("  No comments yet."))
		b.WriteString("\n")
	}
	for i, c := range comments {
		cursor := "  "
		style := NormalStyle
		if d.pane == paneComments && i == d.cursor {
			cursor = "> "
			style = SelectedStyle
		}
		author := c.UserName
		if d.user != nil && c.UserID == d.user.ID {
			author += " (you)"
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%s  %d/10  %s", cursor, author, c.Satisfaction, DimStyle.Render(models.FormatDate(c.CreatedAt)))))
		b.WriteString("\n")
		b.WriteString("    ")
		b.WriteString(c.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func (d *Detail) contractsView() string {
	var b strings.Builder

	header := fmt.Sprintf("Contracts (%d)", len(d.contracts))
	if d.pane == paneContracts {
		header = SelectedStyle.Render(header)
	}
	b.WriteString(header)
	b.WriteString("\n")

	if len(d.contracts) == 0 {
		b.WriteString(DimStyle.Render("  No contracts uploaded."))
		b.WriteString("\n")
	}
	for i, c := range d.contracts {
		cursor := "  "
		style := NormalStyle
		if d.pane == paneContracts && i == d.cursor {
			cursor = "> "
			style = SelectedStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%-40s %8s  %s", cursor, truncate(c.Name, 40), fileSize(c.Size), orDash(models.FormatDate(c.UploadedAt)))))
		b.WriteString("\n")
		if c.URL != "" {
			b.WriteString(DimStyle.Render("    " + c.URL))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func contactNames(contacts []models.ContactPerson) string {
	var names []string
	for _, p := range contacts {
		if p.Valid() {
			names = append(names, p.FullName())
		}
	}
	return strings.Join(names, ", ")
}

func amount(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func fileSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
