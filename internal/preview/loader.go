package preview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/upwatch/internal/model"
)

// ErrCancelled is returned by RunLoader when the user aborts the fetch.
var ErrCancelled = errors.New("cancelled")

// FetchFunc retrieves the current top job of a topic.
type FetchFunc func(ctx context.Context) (model.Job, error)

type fetchDoneMsg struct {
	job model.Job
	err error
}

type loaderModel struct {
	topic   string
	fetchFn FetchFunc
	timeout time.Duration
	spinner spinner.Model
	result  model.Job
	err     error
	done    bool
}

func newLoaderModel(topic string, timeout time.Duration, fetchFn FetchFunc) loaderModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	return loaderModel{
		topic:   topic,
		fetchFn: fetchFn,
		timeout: timeout,
		spinner: s,
	}
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doFetch(), m.spinner.Tick)
}

func (m loaderModel) doFetch() tea.Cmd {
	fetchFn, timeout := m.fetchFn, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		job, err := fetchFn(ctx)
		return fetchDoneMsg{job: job, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fetchDoneMsg:
		m.result = msg.job
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = ErrCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Fetching the newest %q listing...\n", m.spinner.View(), m.topic)
}

// RunLoader shows a spinner while fetchFn runs. It renders inline (no alt screen).
func RunLoader(topic string, timeout time.Duration, fetchFn FetchFunc) (model.Job, error) {
	p := tea.NewProgram(newLoaderModel(topic, timeout, fetchFn))
	result, err := p.Run()
	if err != nil {
		return model.Job{}, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
