package preview

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/upwatch/internal/formatter"
	"github.com/amishk599/upwatch/internal/model"
)

type viewMode int

const (
	modeCard viewMode = iota
	modeMessage
)

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")) // bright blue

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Width(18)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// featureTitles are the card labels for each feature.
var featureTitles = map[model.FeatureName]string{
	model.FeatureHourlyRate:      "Hourly Rate",
	model.FeatureBudget:          "Budget",
	model.FeatureExperienceLevel: "Experience Level",
	model.FeatureProjectType:     "Project Type",
	model.FeatureDuration:        "Duration",
	model.FeatureHoursPerWeek:    "Hours per Week",
	model.FeatureLocation:        "Location",
}

// refreshedMsg is sent when an async re-fetch completes.
type refreshedMsg struct {
	job model.Job
	err error
}

type viewModel struct {
	topic      string
	job        model.Job
	fetchFn    FetchFunc
	timeout    time.Duration
	mode       viewMode
	viewport   viewport.Model
	width      int
	height     int
	ready      bool
	refreshing bool
	fetchedAt  time.Time
	errMsg     string
	wantQuit   bool
}

func newViewModel(topic string, job model.Job, timeout time.Duration, fetchFn FetchFunc) viewModel {
	return viewModel{
		topic:     topic,
		job:       job,
		fetchFn:   fetchFn,
		timeout:   timeout,
		fetchedAt: time.Now(),
	}
}

func (m viewModel) Init() tea.Cmd {
	return nil
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Header (1) + border (2) + status bar (1).
		w, h := max(m.width-4, 20), max(m.height-4, 5)
		if !m.ready {
			m.viewport = viewport.New(w, h)
			m.ready = true
		} else {
			m.viewport.Width = w
			m.viewport.Height = h
		}
		m.viewport.SetContent(m.render())
		return m, nil

	case refreshedMsg:
		m.refreshing = false
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("refresh failed: %v", msg.err)
		} else {
			m.errMsg = ""
			m.job = msg.job
			m.fetchedAt = time.Now()
		}
		m.viewport.SetContent(m.render())
		m.viewport.SetYOffset(0)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.wantQuit = true
			return m, tea.Quit
		case "esc", "backspace":
			return m, tea.Quit
		case "tab", "m":
			if m.mode == modeCard {
				m.mode = modeMessage
			} else {
				m.mode = modeCard
			}
			m.viewport.SetContent(m.render())
			m.viewport.SetYOffset(0)
			return m, nil
		case "o":
			openURL(m.job.Link)
			return m, nil
		case "r":
			if m.fetchFn == nil || m.refreshing {
				return m, nil
			}
			m.refreshing = true
			return m, m.refreshCmd()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m viewModel) refreshCmd() tea.Cmd {
	fetchFn, timeout := m.fetchFn, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		job, err := fetchFn(ctx)
		return refreshedMsg{job: job, err: err}
	}
}

func (m viewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := fmt.Sprintf("Newest listing for %q", m.topic)
	if m.mode == modeMessage {
		header += "  [notification]"
	}
	if m.refreshing {
		header += "  (refreshing...)"
	}

	content := borderStyle.Width(m.width - 2).Render(m.viewport.View())
	status := fmt.Sprintf(" fetched %s  tab card/notification  o open  r refresh  ↑/↓ scroll  esc back  q quit",
		m.fetchedAt.Format("15:04:05"))

	return headerStyle.Render(header) + "\n" + content + "\n" + statusBarStyle.Width(m.width).Render(status)
}

func (m viewModel) render() string {
	var b strings.Builder
	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n\n")
	}
	if m.mode == modeMessage {
		b.WriteString(formatter.FormatNotification(m.job, m.topic))
		return b.String()
	}
	b.WriteString(renderCard(m.job, m.viewport.Width))
	return b.String()
}

// renderCard lays out a job as labelled fields followed by the wrapped description.
func renderCard(j model.Job, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(j.Title))
	b.WriteByte('\n')

	for _, f := range j.Features.Present() {
		b.WriteString(labelStyle.Render(featureTitles[f.Name]))
		b.WriteString(f.Value)
		b.WriteByte('\n')
	}
	b.WriteString(labelStyle.Render("Link"))
	b.WriteString(j.Link)
	b.WriteString("\n\n")

	b.WriteString(dividerStyle.Render(strings.Repeat("─", max(width-2, 10))))
	b.WriteByte('\n')
	for _, para := range strings.Split(strings.ReplaceAll(j.Description, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		b.WriteString(bodyStyle.Render(wordWrap(para, max(width-2, 20))))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	if url == "" {
		return
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunJobView shows job full-screen. fetchFn, when non-nil, backs the refresh key.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed esc to return to the picker.
func RunJobView(topic string, job model.Job, timeout time.Duration, fetchFn FetchFunc) (bool, error) {
	p := tea.NewProgram(newViewModel(topic, job, timeout, fetchFn), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	return result.(viewModel).wantQuit, nil
}
