package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/bountybot/internal/model"
)

const fetchTimeout = time.Minute

type fetchDoneMsg struct {
	listings []model.Listing
	err      error
}

type loaderModel struct {
	source  string
	fetchFn func(ctx context.Context) ([]model.Listing, error)
	spinner spinner.Model
	result  []model.Listing
	err     error
	done    bool
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doFetch(), m.spinner.Tick)
}

func (m loaderModel) doFetch() tea.Cmd {
	fetchFn := m.fetchFn
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		listings, err := fetchFn(ctx)
		return fetchDoneMsg{listings: listings, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fetchDoneMsg:
		m.result = msg.listings
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
			m.err = fmt.Errorf("cancelled")
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Fetching bounties from %s...\n", m.spinner.View(), m.source)
}

func newLoader(source string, fetchFn func(ctx context.Context) ([]model.Listing, error)) loaderModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	return loaderModel{
		source:  source,
		fetchFn: fetchFn,
		spinner: s,
	}
}

// RunLoader shows a spinner while fetching listings. It renders inline (no alt screen).
func RunLoader(source string, fetchFn func(ctx context.Context) ([]model.Listing, error)) ([]model.Listing, error) {
	p := tea.NewProgram(newLoader(source, fetchFn))
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
