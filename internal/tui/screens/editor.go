package screens

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/softrack-city/softrack/internal/models"
	"github.com/softrack-city/softrack/internal/state"
)

const (
	fieldName = iota
	fieldDescription
	fieldVersion
	fieldYearsOfUse
	fieldLastUpdated
	fieldExpiration
	fieldStatus
	fieldLicenses
	fieldAnnualAmount
	fieldHosted
	fieldCloudBased
	fieldTechSupported
	fieldMaintenance
	fieldDepartments
	fieldDivisions
	fieldVendors
	fieldGLAccounts
	fieldSoftwareDeps
	fieldHardwareDeps
	fieldContacts
	fieldComments
	editorFieldCount
)

var editorLabels = [editorFieldCount]string{
	"Name",
	"Description",
	"Version",
	"Years of use",
	"Last updated (yyyy-mm-dd)",
	"Expiration date (yyyy-mm-dd)",
	"Status (Active/Inactive)",
	"Number of licenses",
	"Annual amount",
	"Hosted (INT/EXT)",
	"Cloud based (YES/NO)",
	"Tech supported (YES/NO)",
	"Maintenance support (YES/NO)",
	"Departments",
	"Divisions using",
	"Vendors",
	"GL accounts",
	"Software to operate",
	"Hardware to operate",
	"Contact people",
	"Comments",
}

const (
	contactFieldName = iota
	contactFieldLastName
	contactFieldEmail
	contactFieldPhone
	contactFieldCount
)

var contactLabels = [contactFieldCount]string{"First name", "Last name", "Email", "Phone number"}

// Editor is the add/edit form for one asset. Relation fields take
// comma-separated names matched against the loaded lookup tables.
type Editor struct {
	deps   Deps
	width  int
	height int

	dialog  state.Dialog
	inputs  []textinput.Model
	focus   int
	offset  int
	contact []textinput.Model
	adding  bool
	busy    bool
	err     error
	message string
}

func NewEditor(deps Deps) *Editor {
	e := &Editor{deps: deps}
	for _, label := range editorLabels {
		ti := newInput(label, 500)
		ti.Width = 60
		e.inputs = append(e.inputs, ti)
	}
	for _, label := range contactLabels {
		e.contact = append(e.contact, newInput(label, 150))
	}
	return e
}

func (e *Editor) SetSize(width, height int) {
	e.width = width
	e.height = height
}

type editorSavedMsg struct {
	asset *models.SoftwareAsset
	err   error
}

type contactRegisteredMsg struct {
	name string
	err  error
}

func (e *Editor) Init() tea.Cmd {
	e.dialog = e.deps.Store.Dialog()
	e.busy = false
	e.adding = false
	e.err = nil
	e.message = ""
	e.offset = 0

	values := formValues(e.dialog.Target)
	for i := range e.inputs {
		e.inputs[i].SetValue(values[i])
	}
	if e.dialog.Mode == state.DialogAdd {
		e.inputs[fieldStatus].SetValue(models.StatusActive)
	}
	e.focusOn(0)
	return tea.Batch(checkSession(e.deps.Store), textinput.Blink)
}

func (e *Editor) fields() []textinput.Model {
	if e.adding {
		return e.contact
	}
	return e.inputs
}

func (e *Editor) focusOn(i int) {
	fields := e.fields()
	e.focus = (i + len(fields)) % len(fields)
	for j := range fields {
		if j == e.focus {
			fields[j].Focus()
		} else {
			fields[j].Blur()
		}
	}
}

func (e *Editor) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case editorSavedMsg:
		e.busy = false
		if msg.err != nil {
			e.err = msg.err
			return sessionGate(msg.err)
		}
		return NavigateWithNotice(ScreenSoftware, fmt.Sprintf("Saved %s", msg.asset.Name))

	case contactRegisteredMsg:
		e.busy = false
		e.err = msg.err
		if msg.err != nil {
			return sessionGate(msg.err)
		}
		e.message = fmt.Sprintf("Registering %s. The contact becomes available once the backend confirms it.", msg.name)
		e.adding = false
		e.appendContact(msg.name)
		e.focusOn(fieldContacts)
		return nil

	case tea.KeyMsg:
		return e.handleKey(msg)
	}

	fields := e.fields()
	var cmd tea.Cmd
	fields[e.focus], cmd = fields[e.focus].Update(msg)
	return cmd
}

func (e *Editor) handleKey(msg tea.KeyMsg) tea.Cmd {
	if e.busy {
		return nil
	}

	switch msg.String() {
	case "esc":
		if e.adding {
			e.adding = false
			e.focusOn(fieldContacts)
			return nil
		}
		e.deps.Store.CloseDialog()
		return Navigate(ScreenSoftware)
	case "tab", "down":
		e.focusOn(e.focus + 1)
		e.scroll()
		return nil
	case "shift+tab", "up":
		e.focusOn(e.focus - 1)
		e.scroll()
		return nil
	case "ctrl+n":
		if !e.adding {
			e.adding = true
			for i := range e.contact {
				e.contact[i].SetValue("")
			}
			e.focusOn(0)
		}
		return nil
	case "ctrl+s", "enter":
		if msg.String() == "enter" && e.focus != len(e.fields())-1 {
			e.focusOn(e.focus + 1)
			e.scroll()
			return nil
		}
		if e.adding {
			return e.registerContact()
		}
		return e.save()
	}

	fields := e.fields()
	var cmd tea.Cmd
	fields[e.focus], cmd = fields[e.focus].Update(msg)
	return cmd
}

// scroll keeps the focused field inside the visible window.
func (e *Editor) scroll() {
	visible := e.visibleFields()
	if e.focus < e.offset {
		e.offset = e.focus
	}
	if e.focus >= e.offset+visible {
		e.offset = e.focus - visible + 1
	}
}

func (e *Editor) visibleFields() int {
	if e.height <= 0 {
		return editorFieldCount
	}
	return max(3, (e.height-10)/2)
}

func (e *Editor) save() tea.Cmd {
	values := make([]string, len(e.inputs))
	for i, in := range e.inputs {
		values[i] = in.Value()
	}

	draft, err := buildDraft(values, lookups{
		departments:  e.deps.Store.Departments(),
		divisions:    e.deps.Store.Divisions(),
		vendors:      e.deps.Store.Vendors(),
		glAccounts:   e.deps.Store.GLAccounts(),
		softwareDeps: e.deps.Store.SoftwareToOperate(),
		hardwareDeps: e.deps.Store.HardwareToOperate(),
		contacts:     e.deps.Store.Contacts(),
	})
	if err != nil {
		e.err = err
		return nil
	}

	e.busy = true
	e.err = nil
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		saved, err := e.deps.Store.Save(ctx, draft)
		return editorSavedMsg{asset: saved, err: err}
	}
}

func (e *Editor) registerContact() tea.Cmd {
	draft := models.ContactPerson{
		Name:     strings.TrimSpace(e.contact[contactFieldName].Value()),
		LastName: strings.TrimSpace(e.contact[contactFieldLastName].Value()),
		Email:    strings.TrimSpace(e.contact[contactFieldEmail].Value()),
		Phone:    models.FlexString(strings.TrimSpace(e.contact[contactFieldPhone].Value())),
	}

	e.busy = true
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		err := e.deps.Store.RegisterContact(ctx, draft)
		return contactRegisteredMsg{name: draft.FullName(), err: err}
	}
}

func (e *Editor) appendContact(name string) {
	current := strings.TrimSpace(e.inputs[fieldContacts].Value())
	if current != "" {
		current += ", "
	}
	e.inputs[fieldContacts].SetValue(current + name)
}

func (e *Editor) View() string {
	var b strings.Builder

	title := "ADD SOFTWARE"
	if e.dialog.Mode == state.DialogEdit {
		title = "EDIT " + strings.ToUpper(e.dialog.Target.Name)
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")

	writeValidation(&b, e.err)
	writeMessage(&b, e.message)

	if e.adding {
		b.WriteString(SubtitleStyle.Render("Register a new contact person"))
		b.WriteString("\n")
		for i, in := range e.contact {
			b.WriteString(contactLabels[i])
			b.WriteString("\n")
			b.WriteString(in.View())
			b.WriteString("\n")
		}
		b.WriteString(HelpStyle.Render("[tab] Next field  [ctrl+s] Register  [esc] Back to form"))
		return b.String()
	}

	end := min(editorFieldCount, e.offset+e.visibleFields())
	if e.offset > 0 {
		b.WriteString(DimStyle.Render("  ↑ more"))
		b.WriteString("\n")
	}
	for i := e.offset; i < end; i++ {
		label := editorLabels[i]
		if i == e.focus {
			b.WriteString(SelectedStyle.Render(label))
		} else {
			b.WriteString(label)
		}
		if hint := e.hint(i); hint != "" {
			b.WriteString(" ")
			b.WriteString(DimStyle.Render(hint))
		}
		b.WriteString("\n")
		b.WriteString(e.inputs[i].View())
		b.WriteString("\n")
	}
	if end < editorFieldCount {
		b.WriteString(DimStyle.Render("  ↓ more"))
		b.WriteString("\n")
	}

	if e.busy {
		b.WriteString(DimStyle.Render("Saving..."))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("[tab/↑↓] Move  [ctrl+s] Save  [ctrl+n] New contact  [esc] Cancel"))
	return b.String()
}

// hint lists a few known names for relation fields.
func (e *Editor) hint(field int) string {
	var names []string
	store := e.deps.Store
	switch field {
	case fieldDepartments:
		names = models.RefNames(store.Departments())
	case fieldDivisions:
		names = models.RefNames(store.Divisions())
	case fieldVendors:
		names = models.RefNames(store.Vendors())
	case fieldGLAccounts:
		names = models.RefNames(store.GLAccounts())
	case fieldSoftwareDeps:
		names = models.RefNames(store.SoftwareToOperate())
	case fieldHardwareDeps:
		names = models.RefNames(store.HardwareToOperate())
	case fieldContacts:
		for _, p := range store.Contacts() {
			names = append(names, p.FullName())
		}
	default:
		return ""
	}
	if len(names) == 0 {
		return "(none loaded)"
	}
	if len(names) > 4 {
		return "e.g. " + strings.Join(names[:4], ", ") + ", ..."
	}
	return "e.g. " + strings.Join(names, ", ")
}

func writeValidation(b *strings.Builder, err error) {
	var verr *state.ValidationError
	if !errors.As(err, &verr) {
		writeError(b, err)
		return
	}
	for _, f := range verr.Fields {
		b.WriteString(ErrorStyle.Render("• " + f.Message))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

type lookups struct {
	departments  []models.Department
	divisions    []models.Division
	vendors      []models.Vendor
	glAccounts   []models.GLAccount
	softwareDeps []models.SoftwareDependency
	hardwareDeps []models.HardwareDependency
	contacts     []models.ContactPerson
}

// formValues renders an asset into the editor's text fields.
func formValues(a models.SoftwareAsset) [editorFieldCount]string {
	var v [editorFieldCount]string
	v[fieldName] = a.Name
	v[fieldDescription] = a.Description
	v[fieldVersion] = a.Version
	if a.YearsOfUse != nil {
		v[fieldYearsOfUse] = strconv.Itoa(*a.YearsOfUse)
	}
	v[fieldLastUpdated] = models.FormatDate(a.LastUpdated)
	v[fieldExpiration] = models.FormatDate(a.ExpirationDate)
	v[fieldStatus] = models.NormalizeStatus(a.Status)
	if a.Licenses != 0 {
		v[fieldLicenses] = strconv.Itoa(a.Licenses)
	}
	if a.AnnualAmount != nil {
		v[fieldAnnualAmount] = strconv.FormatFloat(*a.AnnualAmount, 'f', 2, 64)
	}
	v[fieldHosted] = a.Hosted
	v[fieldCloudBased] = a.CloudBased
	v[fieldTechSupported] = a.TechSupported
	v[fieldMaintenance] = a.Maintenance
	v[fieldDepartments] = strings.Join(models.RefNames(models.ValidRefs(a.Departments)), ", ")
	v[fieldDivisions] = strings.Join(models.RefNames(models.ValidRefs(a.Divisions)), ", ")
	v[fieldVendors] = strings.Join(models.RefNames(models.ValidRefs(a.Vendors)), ", ")
	v[fieldGLAccounts] = strings.Join(models.RefNames(models.ValidRefs(a.GLAccounts)), ", ")
	v[fieldSoftwareDeps] = strings.Join(models.RefNames(models.ValidRefs(a.SoftwareDependencies)), ", ")
	v[fieldHardwareDeps] = strings.Join(models.RefNames(models.ValidRefs(a.HardwareDependencies)), ", ")
	v[fieldContacts] = contactNames(a.Contacts)
	v[fieldComments] = a.Comments
	return v
}

// buildDraft parses the editor's text fields. Relation names that match
// nothing in the lookup tables are kept as unresolved entries, which are
// dropped when the draft is saved.
func buildDraft(values []string, l lookups) (models.SoftwareAsset, error) {
	get := func(i int) string { return strings.TrimSpace(values[i]) }

	var fields []state.FieldError
	a := models.SoftwareAsset{
		Name:          get(fieldName),
		Description:   get(fieldDescription),
		Version:       get(fieldVersion),
		Status:        models.NormalizeStatus(get(fieldStatus)),
		Hosted:        strings.ToUpper(get(fieldHosted)),
		CloudBased:    strings.ToUpper(get(fieldCloudBased)),
		TechSupported: strings.ToUpper(get(fieldTechSupported)),
		Maintenance:   strings.ToUpper(get(fieldMaintenance)),
		Comments:      get(fieldComments),
	}

	if a.Name == "" {
		fields = append(fields, state.FieldError{Field: "Name", Message: "Name is required"})
	}

	if s := get(fieldYearsOfUse); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			fields = append(fields, state.FieldError{Field: "Years of use", Message: "Years of use must be a whole number"})
		} else {
			a.YearsOfUse = &n
		}
	}
	if s := get(fieldLicenses); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			fields = append(fields, state.FieldError{Field: "Number of licenses", Message: "Number of licenses must be a whole number"})
		} else {
			a.Licenses = n
		}
	}
	if s := get(fieldAnnualAmount); s != "" {
		f, err := strconv.ParseFloat(strings.TrimPrefix(s, "$"), 64)
		if err != nil || f < 0 {
			fields = append(fields, state.FieldError{Field: "Annual amount", Message: "Annual amount must be a number"})
		} else {
			a.AnnualAmount = &f
		}
	}

	for _, d := range []struct {
		field int
		label string
		dst   *string
	}{
		{fieldLastUpdated, "Last updated", &a.LastUpdated},
		{fieldExpiration, "Expiration date", &a.ExpirationDate},
	} {
		s := get(d.field)
		if s == "" {
			fields = append(fields, state.FieldError{Field: d.label, Message: d.label + " is required"})
			continue
		}
		if _, err := models.ParseDate(s); err != nil {
			fields = append(fields, state.FieldError{Field: d.label, Message: d.label + " must be a date like 2025-12-31"})
			continue
		}
		*d.dst = s
	}

	a.Departments = resolve(l.departments, get(fieldDepartments))
	a.Divisions = resolve(l.divisions, get(fieldDivisions))
	a.Vendors = resolve(l.vendors, get(fieldVendors))
	a.GLAccounts = resolve(l.glAccounts, get(fieldGLAccounts))
	a.SoftwareDependencies = resolve(l.softwareDeps, get(fieldSoftwareDeps))
	a.HardwareDependencies = resolve(l.hardwareDeps, get(fieldHardwareDeps))
	a.Contacts = resolveContacts(l.contacts, get(fieldContacts))

	if len(fields) > 0 {
		return a, &state.ValidationError{Fields: fields}
	}
	return a, nil
}

func splitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func resolve[T any](table []models.Ref[T], s string) []models.Ref[T] {
	var out []models.Ref[T]
	for _, name := range splitNames(s) {
		out = append(out, models.FindRefByName(table, name))
	}
	return out
}

func resolveContacts(table []models.ContactPerson, s string) []models.ContactPerson {
	var out []models.ContactPerson
	for _, name := range splitNames(s) {
		found := models.ContactPerson{ID: models.SentinelID, Name: name}
		for _, p := range table {
			if p.FullName() == name {
				found = p
				break
			}
		}
		out = append(out, found)
	}
	return out
}
