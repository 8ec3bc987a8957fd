package screens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/softrack-city/softrack/internal/config"
	"github.com/softrack-city/softrack/internal/state"
)

// requestTimeout bounds every backend round trip started from a screen.
const requestTimeout = 60 * time.Second

// Screen names used with Navigate.
const (
	ScreenLogin     = "login"
	ScreenSoftware  = "software"
	ScreenDetail    = "detail"
	ScreenEditor    = "editor"
	ScreenAnalytics = "analytics"
)

// NavigateMsg is sent when navigation to another screen is requested
type NavigateMsg struct {
	Screen     string
	SoftwareID *int64
	Notice     string
}

func Navigate(screen string) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Screen: screen}
	}
}

func NavigateWithSoftware(screen string, softwareID int64) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Screen: screen, SoftwareID: &softwareID}
	}
}

// NavigateWithNotice navigates and shows notice on arrival.
func NavigateWithNotice(screen, notice string) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Screen: screen, Notice: notice}
	}
}

// RefreshMsg is sent when data should be refreshed
type RefreshMsg struct{}

func Refresh() tea.Cmd {
	return func() tea.Msg {
		return RefreshMsg{}
	}
}

// Deps is what every screen needs.
type Deps struct {
	Store  *state.Store
	Config *config.Config
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// sessionGate sends the user to the login screen when err means the session
// is gone. It returns nil for any other error.
func sessionGate(err error) tea.Cmd {
	if errors.Is(err, state.ErrSessionExpired) {
		return NavigateWithNotice(ScreenLogin, "Your session has expired. Please log in again.")
	}
	return nil
}

// checkSession is run when a screen mounts.
func checkSession(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		if _, err := store.CurrentUser(ctx); err != nil {
			return NavigateMsg{Screen: ScreenLogin}
		}
		return nil
	}
}

func writeError(b *strings.Builder, err error) {
	if err == nil {
		return
	}
	b.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", err)))
	b.WriteString("\n\n")
}

func writeMessage(b *strings.Builder, message string) {
	if message == "" {
		return
	}
	b.WriteString(SuccessStyle.Render(message))
	b.WriteString("\n\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginBottom(1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	NormalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1).
			Width(30)

	SelectedCardStyle = CardStyle.
				BorderForeground(lipgloss.Color("212"))
)
