package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/softrack-city/softrack/internal/tui/screens"
)

type Screen int

const (
	ScreenLogin Screen = iota
	ScreenSoftware
	ScreenDetail
	ScreenEditor
	ScreenAnalytics
)

type App struct {
	deps          screens.Deps
	currentScreen Screen
	width         int
	height        int

	// Screen models
	login     *screens.Login
	software  *screens.Software
	detail    *screens.Detail
	editor    *screens.Editor
	analytics *screens.Analytics
}

func NewApp(deps screens.Deps) *App {
	return &App{
		deps:          deps,
		currentScreen: ScreenLogin,
	}
}

func (a *App) Init() tea.Cmd {
	a.login = screens.NewLogin(a.deps)
	a.software = screens.NewSoftware(a.deps)
	a.detail = screens.NewDetail(a.deps)
	a.editor = screens.NewEditor(a.deps)
	a.analytics = screens.NewAnalytics(a.deps)

	if _, err := a.deps.Store.CurrentUser(context.Background()); err == nil {
		a.currentScreen = ScreenSoftware
		return a.software.Init()
	}
	return a.login.Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		// Let individual screens handle q, most of them have text inputs

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.login.SetSize(msg.Width, msg.Height)
		a.software.SetSize(msg.Width, msg.Height)
		a.detail.SetSize(msg.Width, msg.Height)
		a.editor.SetSize(msg.Width, msg.Height)
		a.analytics.SetSize(msg.Width, msg.Height)

	case screens.NavigateMsg:
		return a.handleNavigation(msg)
	}

	// Update current screen
	var cmd tea.Cmd
	switch a.currentScreen {
	case ScreenLogin:
		cmd = a.login.Update(msg)
	case ScreenSoftware:
		cmd = a.software.Update(msg)
	case ScreenDetail:
		cmd = a.detail.Update(msg)
	case ScreenEditor:
		cmd = a.editor.Update(msg)
	case ScreenAnalytics:
		cmd = a.analytics.Update(msg)
	}

	return a, cmd
}

func (a *App) handleNavigation(msg screens.NavigateMsg) (tea.Model, tea.Cmd) {
	switch msg.Screen {
	case screens.ScreenLogin:
		a.currentScreen = ScreenLogin
		a.software.Invalidate()
		cmd := a.login.Init()
		a.login.SetNotice(msg.Notice)
		return a, cmd
	case screens.ScreenSoftware:
		a.currentScreen = ScreenSoftware
		cmd := a.software.Init()
		if msg.Notice != "" {
			a.software.SetNotice(msg.Notice)
		}
		return a, cmd
	case screens.ScreenDetail:
		if msg.SoftwareID == nil {
			return a, nil
		}
		a.currentScreen = ScreenDetail
		a.detail.SetSoftware(*msg.SoftwareID)
		return a, a.detail.Init()
	case screens.ScreenEditor:
		a.currentScreen = ScreenEditor
		return a, a.editor.Init()
	case screens.ScreenAnalytics:
		a.currentScreen = ScreenAnalytics
		return a, a.analytics.Init()
	}
	return a, nil
}

func (a *App) View() string {
	var content string

	switch a.currentScreen {
	case ScreenLogin:
		content = a.login.View()
	case ScreenSoftware:
		content = a.software.View()
	case ScreenDetail:
		content = a.detail.View()
	case ScreenEditor:
		content = a.editor.View()
	case ScreenAnalytics:
		content = a.analytics.View()
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Height(a.height).
		Render(content)
}

func Run(deps screens.Deps) error {
	app := NewApp(deps)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
