package resultsconsole

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/domain/contest"
	"votebot/internal/ports"
	"votebot/internal/usecase/voting"
)

const (
	maxListedContests = 50
	maxAuditLines     = 8
)

// ResultsSource is the subset of the voting service the console reads and acts on.
type ResultsSource interface {
	ListContests(ctx context.Context, onlyArchived bool, limit int) ([]ports.Contest, error)
	Results(ctx context.Context, contestID uint64) (voting.ContestResults, error)
	StopContest(ctx context.Context, contestID uint64) (ports.Contest, error)
	PublishBoard(ctx context.Context, contestID uint64, chatRef string) (ports.BoardPost, error)
}

type ResultsOptions struct {
	OnlyArchived    bool
	BoardChatRef    string
	TimePolicy      contest.TimePolicy
	RefreshInterval time.Duration
}

type resultsModel struct {
	ctx             context.Context
	source          ResultsSource
	onlyArchived    bool
	boardChatRef    string
	policy          contest.TimePolicy
	refreshInterval time.Duration

	contests      []ports.Contest
	selectedIndex int
	results       voting.ContestResults
	hasResults    bool
	status        string
	auditLogs     []string
}

type contestsLoadedMsg struct {
	items []ports.Contest
	err   error
}

type resultsLoadedMsg struct {
	contestID uint64
	results   voting.ContestResults
	err       error
}

type tickMsg struct{}

type actionDoneMsg struct {
	action    string
	contestID uint64
	result    string
	err       error
}

func NewResultsModel(ctx context.Context, source ResultsSource, options ResultsOptions) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}

	return &resultsModel{
		ctx:             ctx,
		source:          source,
		onlyArchived:    options.OnlyArchived,
		boardChatRef:    strings.TrimSpace(options.BoardChatRef),
		policy:          options.TimePolicy,
		refreshInterval: interval,
		status:          "loading",
	}
}

func (m *resultsModel) Init() tea.Cmd {
	return tea.Batch(m.loadContestsCmd(), m.tickCmd())
}

func (m *resultsModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadContestsCmd(), m.tickCmd())
	case contestsLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.contests = msg.items
		if len(m.contests) == 0 {
			m.selectedIndex = 0
			m.hasResults = false
			m.status = "no contests"
			return m, nil
		}
		if m.selectedIndex >= len(m.contests) {
			m.selectedIndex = len(m.contests) - 1
		}
		m.status = fmt.Sprintf("refreshed, %d contests", len(m.contests))
		return m, m.loadSelectedResultsCmd()
	case resultsLoadedMsg:
		selected, ok := m.selectedContest()
		if !ok || selected.ContestID != msg.contestID {
			return m, nil
		}
		if msg.err != nil {
			m.hasResults = false
			m.status = "results failed: " + msg.err.Error()
			return m, nil
		}
		m.results = msg.results
		m.hasResults = true
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = fmt.Sprintf("%s done: %s", msg.action, msg.result)
		}
		m.appendAuditLog(msg.action, msg.contestID, msg.result, msg.err)
		return m, m.loadContestsCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadContestsCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadSelectedResultsCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.contests)-1 {
				m.selectedIndex++
				return m, m.loadSelectedResultsCmd()
			}
			return m, nil
		case "s":
			return m, m.stopCmd()
		case "p":
			return m, m.publishCmd()
		}
	}
	return m, nil
}

func (m *resultsModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Contest Results"))
	builder.WriteString("\n")
	scope := "all"
	if m.onlyArchived {
		scope = "archived"
	}
	builder.WriteString(dimStyle.Render(fmt.Sprintf("scope=%s board=%s refresh=%s", scope, firstNonEmpty(m.boardChatRef, "-"), m.refreshInterval)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Contests"))
	builder.WriteString("\n")
	if len(m.contests) == 0 {
		builder.WriteString(dimStyle.Render("- no contests"))
		builder.WriteString("\n\n")
	} else {
		for index, item := range m.contests {
			line := fmt.Sprintf("#%d [%s] %s %s → %s", item.ContestID, contestState(item), item.Name,
				m.policy.Format(item.StartAt), m.policy.Format(item.EndAt))
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Standings"))
	builder.WriteString("\n")
	if !m.hasResults {
		builder.WriteString(dimStyle.Render("- no results"))
		builder.WriteString("\n\n")
	} else {
		builder.WriteString(fmt.Sprintf("Total votes: %d\n", m.results.TotalVotes))
		for _, result := range m.results.Results {
			builder.WriteString(fmt.Sprintf("%2d. %-24s %s %6.2f%% %s\n",
				result.Rank, result.Name, contest.ProgressBar(result.Percentage), result.Percentage,
				contest.FormatCompactCount(result.Votes)))
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Audit Log"))
	builder.WriteString("\n")
	if len(m.auditLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line + "\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: ↑/k ↓/j move  g refresh  s stop  p publish board  q quit"))
	return builder.String()
}

func (m *resultsModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *resultsModel) loadContestsCmd() tea.Cmd {
	return func() tea.Msg {
		items, err := m.source.ListContests(m.ctx, m.onlyArchived, maxListedContests)
		return contestsLoadedMsg{items: items, err: err}
	}
}

func (m *resultsModel) loadSelectedResultsCmd() tea.Cmd {
	selected, ok := m.selectedContest()
	if !ok {
		return nil
	}
	contestID := selected.ContestID
	return func() tea.Msg {
		results, err := m.source.Results(m.ctx, contestID)
		return resultsLoadedMsg{contestID: contestID, results: results, err: err}
	}
}

func (m *resultsModel) stopCmd() tea.Cmd {
	selected, ok := m.selectedContest()
	if !ok {
		m.status = "no contest selected"
		return nil
	}
	if !selected.IsActive {
		m.status = "contest is not active"
		return nil
	}

	contestID := selected.ContestID
	m.status = "stopping"
	return func() tea.Msg {
		stopped, err := m.source.StopContest(m.ctx, contestID)
		if err != nil {
			return actionDoneMsg{action: "stop", contestID: contestID, err: err}
		}
		return actionDoneMsg{action: "stop", contestID: contestID, result: "ended " + m.policy.Format(stopped.EndAt)}
	}
}

func (m *resultsModel) publishCmd() tea.Cmd {
	selected, ok := m.selectedContest()
	if !ok {
		m.status = "no contest selected"
		return nil
	}

	contestID := selected.ContestID
	m.status = "publishing"
	return func() tea.Msg {
		post, err := m.source.PublishBoard(m.ctx, contestID, m.boardChatRef)
		if err != nil {
			return actionDoneMsg{action: "publish", contestID: contestID, err: err}
		}
		return actionDoneMsg{action: "publish", contestID: contestID, result: fmt.Sprintf("%s/%d", post.ChatRef, post.MessageID)}
	}
}

func (m *resultsModel) selectedContest() (ports.Contest, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.contests) {
		return ports.Contest{}, false
	}
	return m.contests[m.selectedIndex], true
}

func (m *resultsModel) appendAuditLog(action string, contestID uint64, result string, opErr error) {
	outcome := strings.TrimSpace(result)
	if opErr != nil {
		outcome = "error: " + opErr.Error()
	}
	if outcome == "" {
		outcome = "ok"
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s contest=%d action=%s result=%s", timestamp, contestID, action, outcome)
	m.auditLogs = append([]string{line}, m.auditLogs...)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[:maxAuditLines]
	}

	logging.Info(m.ctx, "results console action",
		slog.Uint64("contest_id", contestID),
		slog.String("action", action),
		slog.String("result", outcome),
	)
}

func contestState(c ports.Contest) string {
	switch {
	case c.IsArchived:
		return "archived"
	case c.IsActive:
		return "active"
	default:
		return "stopped"
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if normalized := strings.TrimSpace(value); normalized != "" {
			return normalized
		}
	}
	return ""
}
