package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"

	"github.com/fennewald/battle-snakes/session"
)

const maxRows = 20

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#43b047"))
	headStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e55b3c"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

type sessionsMsg struct {
	list []session.Summary
	at   time.Time
}

type errMsg struct{ err error }

type tickMsg time.Time

type model struct {
	client *http.Client
	base   string
	every  time.Duration

	sessions []session.Summary
	polled   time.Time
	polls    int
	err      error
}

func newModel(client *http.Client, base string, every time.Duration) model {
	return model{client: client, base: strings.TrimRight(base, "/"), every: every}
}

func (m model) Init() tea.Cmd {
	return fetchCmd(m.client, m.base)
}

func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchCmd(client *http.Client, base string) tea.Cmd {
	return func() tea.Msg {
		list, err := fetchSessions(context.Background(), client, base)
		if err != nil {
			return errMsg{err}
		}
		return sessionsMsg{list: list, at: time.Now()}
	}
}

func fetchSessions(ctx context.Context, client *http.Client, base string) ([]session.Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/sessions", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /sessions: %s", resp.Status)
	}
	var list []session.Summary
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return list, nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, fetchCmd(m.client, m.base)
		}
	case tickMsg:
		return m, fetchCmd(m.client, m.base)
	case sessionsMsg:
		m.sessions = msg.list
		m.polled = msg.at
		m.polls++
		m.err = nil
		return m, tickCmd(m.every)
	case errMsg:
		m.err = msg.err
		return m, tickCmd(m.every)
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("snaketop  %s  %d live", m.base, len(m.sessions))))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errStyle.Render("error: "+m.err.Error()) + "\n\n")
	}

	b.WriteString(headStyle.Render(fmt.Sprintf("%-36s %-10s %5s %6s %6s %6s %-5s", "GAME", "RULESET", "TURN", "HEALTH", "LENGTH", "SNAKES", "MOVE")))
	b.WriteString("\n")
	for i, s := range m.sessions {
		if i == maxRows {
			b.WriteString(dimStyle.Render(fmt.Sprintf("... %d more", len(m.sessions)-maxRows)) + "\n")
			break
		}
		move := s.LastMove
		if move == "" {
			move = "-"
		}
		fmt.Fprintf(&b, "%-36s %-10s %5d %6d %6d %6d %-5s\n", s.GameID, s.Ruleset, s.Turn, s.Health, s.Length, s.Snakes, move)
	}

	status := "waiting for first poll"
	if !m.polled.IsZero() {
		status = fmt.Sprintf("polled %s  (%d polls)", m.polled.Format(time.TimeOnly), m.polls)
	}
	b.WriteString("\n" + dimStyle.Render(status+"  r refresh  q quit") + "\n")
	return b.String()
}
