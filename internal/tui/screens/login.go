package screens

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/softrack-city/softrack/internal/api"
	"github.com/softrack-city/softrack/internal/models"
	"github.com/softrack-city/softrack/internal/session"
)

type loginMode int

const (
	loginModeLogin loginMode = iota
	loginModeRegister
)

const (
	regFirstName = iota
	regLastName
	regEmail
	regUsername
	regPassword
	regConfirm
	regFieldCount
)

var registerLabels = []string{"First name", "Last name", "Email", "Username", "Password", "Confirm password"}

type Login struct {
	deps   Deps
	width  int
	height int

	mode     loginMode
	inputs   []textinput.Model
	register []textinput.Model
	focus    int
	busy     bool
	err      error
	message  string
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 40
	return ti
}

func newPasswordInput(placeholder string) textinput.Model {
	ti := newInput(placeholder, 128)
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	return ti
}

func NewLogin(deps Deps) *Login {
	l := &Login{
		deps: deps,
		inputs: []textinput.Model{
			newInput("Username or email", 150),
			newPasswordInput("Password"),
		},
	}
	for i, label := range registerLabels {
		if i == regPassword || i == regConfirm {
			l.register = append(l.register, newPasswordInput(label))
			continue
		}
		l.register = append(l.register, newInput(label, 150))
	}
	return l
}

func (l *Login) SetSize(width, height int) {
	l.width = width
	l.height = height
}

// SetNotice shows a message above the form, e.g. why the user was sent here.
func (l *Login) SetNotice(notice string) {
	l.message = notice
}

type loginResultMsg struct {
	user *models.User
	err  error
}

type registerResultMsg struct {
	err error
}

func (l *Login) Init() tea.Cmd {
	l.mode = loginModeLogin
	l.busy = false
	l.err = nil
	l.focusOn(0)
	return textinput.Blink
}

func (l *Login) active() []textinput.Model {
	if l.mode == loginModeRegister {
		return l.register
	}
	return l.inputs
}

func (l *Login) focusOn(i int) {
	fields := l.active()
	l.focus = (i + len(fields)) % len(fields)
	for j := range fields {
		if j == l.focus {
			fields[j].Focus()
		} else {
			fields[j].Blur()
		}
	}
}

func (l *Login) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loginResultMsg:
		l.busy = false
		if msg.err != nil {
			l.err = msg.err
			return nil
		}
		l.inputs[1].SetValue("")
		return NavigateWithNotice(ScreenSoftware, fmt.Sprintf("Welcome, %s", msg.user.DisplayName()))

	case registerResultMsg:
		l.busy = false
		if msg.err != nil {
			l.err = msg.err
			return nil
		}
		l.inputs[0].SetValue(l.register[regUsername].Value())
		for i := range l.register {
			l.register[i].SetValue("")
		}
		l.mode = loginModeLogin
		l.focusOn(1)
		l.message = "Account created. Log in to continue."
		return nil

	case tea.KeyMsg:
		if cmd, handled := l.handleKey(msg); handled {
			return cmd
		}
	}

	fields := l.active()
	var cmd tea.Cmd
	fields[l.focus], cmd = fields[l.focus].Update(msg)
	return cmd
}

func (l *Login) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if l.busy {
		return nil, true
	}
	switch msg.String() {
	case "tab", "down":
		l.focusOn(l.focus + 1)
		return nil, true
	case "shift+tab", "up":
		l.focusOn(l.focus - 1)
		return nil, true
	case "ctrl+r":
		if l.mode == loginModeLogin {
			l.mode = loginModeRegister
		} else {
			l.mode = loginModeLogin
		}
		l.err = nil
		l.message = ""
		l.focusOn(0)
		return nil, true
	case "enter":
		if l.focus < len(l.active())-1 {
			l.focusOn(l.focus + 1)
			return nil, true
		}
		l.busy = true
		l.err = nil
		l.message = ""
		if l.mode == loginModeRegister {
			return l.submitRegister(), true
		}
		return l.submitLogin(), true
	}
	return nil, false
}

func (l *Login) submitLogin() tea.Cmd {
	identifier := strings.TrimSpace(l.inputs[0].Value())
	password := l.inputs[1].Value()
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		user, err := l.deps.Store.Login(ctx, identifier, password)
		return loginResultMsg{user: user, err: err}
	}
}

func (l *Login) submitRegister() tea.Cmd {
	reg := api.Registration{
		FirstName:       strings.TrimSpace(l.register[regFirstName].Value()),
		LastName:        strings.TrimSpace(l.register[regLastName].Value()),
		Email:           strings.TrimSpace(l.register[regEmail].Value()),
		Username:        strings.TrimSpace(l.register[regUsername].Value()),
		Password:        l.register[regPassword].Value(),
		ConfirmPassword: l.register[regConfirm].Value(),
	}
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		return registerResultMsg{err: l.deps.Store.Register(ctx, reg)}
	}
}

// passwordHints lists what the typed password still lacks. Nothing is shown
// until a password has been typed, and a mismatch only once confirm is filled.
func passwordHints(password, confirm string) []string {
	if password == "" {
		return nil
	}
	if confirm == "" {
		return session.PasswordProblems(password)
	}
	return session.ValidatePassword(password, confirm)
}

func (l *Login) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("SOFTRACK"))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render("Software asset tracking"))
	b.WriteString("\n\n")

	writeValidation(&b, l.err)
	if l.message != "" {
		b.WriteString(WarningStyle.Render(l.message))
		b.WriteString("\n\n")
	}

	if l.mode == loginModeRegister {
		b.WriteString("Create an account\n\n")
		for i, in := range l.register {
			b.WriteString(fmt.Sprintf("%-18s %s\n", registerLabels[i]+":", in.View()))
		}
		hints := passwordHints(l.register[regPassword].Value(), l.register[regConfirm].Value())
		if len(hints) > 0 {
			b.WriteString("\n")
		}
		for _, h := range hints {
			b.WriteString(DimStyle.Render("  • " + h))
			b.WriteString("\n")
		}
	} else {
		b.WriteString("Log in\n\n")
		b.WriteString(fmt.Sprintf("%-18s %s\n", "User:", l.inputs[0].View()))
		b.WriteString(fmt.Sprintf("%-18s %s\n", "Password:", l.inputs[1].View()))
	}

	if l.busy {
		b.WriteString("\n")
		b.WriteString(DimStyle.Render("Contacting server..."))
		b.WriteString("\n")
	}

	help := "[tab] Next field  [enter] Submit  [ctrl+r] Switch to register  [ctrl+c] Quit"
	if l.mode == loginModeRegister {
		help = "[tab] Next field  [enter] Submit  [ctrl+r] Back to login  [ctrl+c] Quit"
	}
	b.WriteString(HelpStyle.Render(help))

	return b.String()
}
