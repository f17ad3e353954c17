package viz

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/timelag/internal/workflow"
)

type page int

const (
	pageReport page = iota
	pageCumulative
	pageFlux
	pageProfile
	numPages
)

var pageTitles = [numPages]string{"Report", "Time lag", "Flux", "Profile"}

// Viewer is a Bubble Tea model paging through one or more results.
type Viewer struct {
	results []*workflow.Result
	theme   Theme
	styles  Styles
	current int
	page    page
	size    PlotSize
}

func NewViewer(th Theme, results ...*workflow.Result) Viewer {
	return Viewer{
		results: results,
		theme:   th,
		styles:  NewStyles(th),
		size:    DefaultPlotSize(),
	}
}

func (v Viewer) Init() tea.Cmd {
	return nil
}

func (v Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return v, tea.Quit
		case "tab", "right", "l":
			v.page = (v.page + 1) % numPages
		case "shift+tab", "left", "h":
			v.page = (v.page + numPages - 1) % numPages
		case "1", "2", "3", "4":
			v.page = page(msg.String()[0] - '1')
		case "down", "j", "n":
			if len(v.results) > 0 {
				v.current = (v.current + 1) % len(v.results)
			}
		case "up", "k", "p":
			if len(v.results) > 0 {
				v.current = (v.current + len(v.results) - 1) % len(v.results)
			}
		}
	case tea.WindowSizeMsg:
		// leave room for the y-axis labels, tabs and help line
		v.size.Width = max(msg.Width-16, 20)
		v.size.Height = max(msg.Height-10, 5)
	}
	return v, nil
}

func (v Viewer) tabs() string {
	parts := make([]string, numPages)
	for i, title := range pageTitles {
		if page(i) == v.page {
			parts[i] = v.styles.ActiveTab.Render(title)
		} else {
			parts[i] = v.styles.Tab.Render(title)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (v Viewer) View() string {
	if len(v.results) == 0 {
		return v.styles.Muted.Render("no results") + "\n"
	}
	res := v.results[v.current]

	var body string
	switch v.page {
	case pageReport:
		body = Report(res, v.theme)
	case pageCumulative:
		body = CumulativeFluxPlot(res, v.size)
	case pageFlux:
		body = FluxPlot(res, v.size)
	case pageProfile:
		body = ProfilePlot(res, v.size)
	}
	if body == "" {
		body = v.styles.Muted.Render("nothing to plot")
	}

	var s strings.Builder
	s.WriteString(v.styles.Title.Render(res.Experiment))
	if len(v.results) > 1 {
		s.WriteString(v.styles.Muted.Render("  (" + strconv.Itoa(v.current+1) + "/" + strconv.Itoa(len(v.results)) + ")"))
	}
	s.WriteString("\n" + v.tabs() + "\n\n")
	s.WriteString(body + "\n\n")
	help := "tab/←→: page  1-4: jump  q: quit"
	if len(v.results) > 1 {
		help = "tab/←→: page  ↑↓: experiment  1-4: jump  q: quit"
	}
	s.WriteString(v.styles.Help.Render(help))
	return s.String()
}
