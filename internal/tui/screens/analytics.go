package screens

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/softrack-city/softrack/internal/models"
	"github.com/softrack-city/softrack/internal/report"
)

type Analytics struct {
	deps   Deps
	width  int
	height int

	data    *models.Analytics
	spinner spinner.Model
	loading bool
	err     error
	message string
}

func NewAnalytics(deps Deps) *Analytics {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &Analytics{deps: deps, spinner: sp}
}

func (a *Analytics) SetSize(width, height int) {
	a.width = width
	a.height = height
}

type analyticsLoadedMsg struct {
	data *models.Analytics
	err  error
}

type analyticsExportedMsg struct {
	path string
	err  error
}

func (a *Analytics) Init() tea.Cmd {
	a.loading = true
	a.err = nil
	a.message = ""
	return tea.Batch(a.spinner.Tick, a.loadData)
}

func (a *Analytics) loadData() tea.Msg {
	ctx, cancel := requestContext()
	defer cancel()
	data, err := a.deps.Store.Analytics(ctx)
	return analyticsLoadedMsg{data: data, err: err}
}

func (a *Analytics) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case analyticsLoadedMsg:
		a.loading = false
		a.data = msg.data
		a.err = msg.err
		return sessionGate(msg.err)

	case analyticsExportedMsg:
		a.err = msg.err
		if msg.err == nil {
			a.message = fmt.Sprintf("Saved %s", msg.path)
		}
		return nil

	case spinner.TickMsg:
		if !a.loading {
			return nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return cmd

	case RefreshMsg:
		return a.Init()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "backspace":
			return Navigate(ScreenSoftware)
		case "r":
			return Refresh()
		case "p":
			if a.data != nil {
				return a.export(*a.data)
			}
		}
	}
	return nil
}

func (a *Analytics) export(data models.Analytics) tea.Cmd {
	dir := a.deps.Config.ReportsOutput
	return func() tea.Msg {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return analyticsExportedMsg{err: err}
		}
		path := filepath.Join(dir, report.AnalyticsFileName)
		f, err := os.Create(path)
		if err != nil {
			return analyticsExportedMsg{err: err}
		}
		defer f.Close()
		if err := report.AnalyticsPDF(f, data); err != nil {
			return analyticsExportedMsg{err: err}
		}
		return analyticsExportedMsg{path: path}
	}
}

func (a *Analytics) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("SOFTWARE PORTFOLIO ANALYTICS"))
	b.WriteString("\n")

	if a.loading {
		b.WriteString(a.spinner.View())
		b.WriteString(" Loading...\n")
		return b.String()
	}

	writeError(&b, a.err)
	writeMessage(&b, a.message)

	if a.data != nil {
		rows := report.AnalyticsRows(*a.data)
		var content strings.Builder
		for i, r := range rows {
			if i == 0 {
				content.WriteString(DimStyle.Render(fmt.Sprintf("%-28s %s", r[0], r[1])))
			} else {
				content.WriteString(fmt.Sprintf("%-28s %s", r[0], r[1]))
			}
			if i < len(rows)-1 {
				content.WriteString("\n")
			}
		}
		b.WriteString(BoxStyle.Render(content.String()))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render("[p] Export PDF  [r] Refresh  [esc] Back"))
	return b.String()
}
