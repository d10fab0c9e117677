package cli

import (
	"fmt"
	"os"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/tbecker/braincli/internal/workflow"
)

const pollInterval = 100 * time.Millisecond

// Theme holds the color scheme for terminal output.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// stdoutIsTerminal reports whether styled, interactive output makes
// sense.
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// saveStages is the save pipeline in display order.
var saveStages = []workflow.Stage{
	workflow.StagePersisting,
	workflow.StageRegenerating,
	workflow.StageSynthesizing,
	workflow.StageRescoring,
}

// stageLabels are the human-readable stage names.
var stageLabels = map[workflow.Stage]string{
	workflow.StagePersisting:   "Saving answers",
	workflow.StageRegenerating: "Regenerating artifacts",
	workflow.StageSynthesizing: "Updating business brain",
	workflow.StageRescoring:    "Recomputing completion",
}

// tickMsg triggers polling the session snapshot.
type tickMsg time.Time

// saveDoneMsg carries the result of the background save.
type saveDoneMsg struct {
	err error
}

// saveModel is the bubbletea model for the save pipeline. The save runs
// in a command goroutine; the model only polls the session's public
// stage, so the indicator freezes on the failing stage's label when a
// stage errors out.
type saveModel struct {
	session  *workflow.Session
	save     func() error
	snapshot workflow.Snapshot
	progress progress.Model
	theme    Theme
	saveErr  error
	settled  bool
}

func newSaveModel(session *workflow.Session, save func() error) saveModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return saveModel{
		session:  session,
		save:     save,
		snapshot: session.Snapshot(),
		progress: prog,
		theme:    defaultTheme,
	}
}

func (m saveModel) Init() tea.Cmd {
	runSave := func() tea.Msg {
		return saveDoneMsg{err: m.save()}
	}
	return tea.Batch(tickCmd(), m.progress.Init(), runSave)
}

func (m saveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		// Cancellation is disallowed mid-save; swallow key presses
		// until the pipeline settles.
		if m.settled && (msg.String() == "ctrl+c" || msg.String() == "q" || msg.String() == "enter") {
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		m.snapshot = m.session.Snapshot()
		if m.settled {
			return m, tea.Quit
		}
		return m, tickCmd()

	case saveDoneMsg:
		m.saveErr = msg.err
		m.settled = true
		m.snapshot = m.session.Snapshot()
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m saveModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m saveModel) renderContent() string {
	if m.settled {
		return m.finalView()
	}

	stage := m.snapshot.Stage
	pos := stageIndex(stage)
	pct := float64(pos) / float64(len(saveStages))

	label := stageLabels[stage]
	if label == "" {
		label = string(stage)
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", label))
	bar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("step %d/%d", min(pos+1, len(saveStages)), len(saveStages))
	hint := m.theme.hintStyle().Render("Saving cannot be cancelled")

	return fmt.Sprintf("%s %s %s\n%s\n", status, bar, counts, hint)
}

func (m saveModel) finalView() string {
	if m.saveErr != nil {
		failed := stageLabels[m.snapshot.FailedStage]
		if failed == "" {
			failed = string(m.snapshot.FailedStage)
		}
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s failed: %s\n", failed, m.snapshot.Err)) +
			m.theme.hintStyle().Render("Your answers are kept; fix the issue and save again.\n")
	}

	out := m.theme.completedStyle().Render("✓ Saved and regenerated") + "\n"
	out += fmt.Sprintf("  Completion: %d%%\n", m.snapshot.Completion.Overall)
	return out
}

func stageIndex(stage workflow.Stage) int {
	for i, s := range saveStages {
		if s == stage {
			return i
		}
	}
	return 0
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runSaveProgress runs the interactive save UI. Falls back to a plain
// blocking save when stdout is not a terminal.
func runSaveProgress(session *workflow.Session) error {
	if !stdoutIsTerminal() {
		return session.Save(rootCmd.Context())
	}

	model := newSaveModel(session, func() error {
		return session.Save(rootCmd.Context())
	})
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(saveModel); ok && m.saveErr != nil {
		return m.saveErr
	}
	return nil
}
