// Package tui renders pipeline progress in the terminal.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bankclean/bankclean/internal/engine"
	"github.com/bankclean/bankclean/internal/integrity"
	"github.com/bankclean/bankclean/internal/report"
)

// Messages delivered from the engine callbacks.
type (
	StageStartedMsg struct{ Stage string }
	StageDoneMsg    struct{ Stage, Detail string }
	FilterStageMsg  struct{ Summary integrity.StageSummary }
	CompletedMsg    struct{ Report *report.RunReport }
	FailedMsg       struct {
		Stage string
		Err   error
	}
)

type stageState int

const (
	statePending stageState = iota
	stateRunning
	stateDone
	stateFailed
)

// RunModel is the bubbletea model for a pipeline run.
type RunModel struct {
	spinner spinner.Model
	stages  []string
	states  map[string]stageState
	details map[string]string
	filter  []integrity.StageSummary
	report  *report.RunReport
	err     error
	failed  string

	done      bool
	cancelled bool
	width     int
}

// NewRunModel creates a model listing the pipeline stages.
func NewRunModel() RunModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(highlightStyle))
	return RunModel{
		spinner: s,
		stages:  engine.Stages,
		states:  make(map[string]stageState, len(engine.Stages)),
		details: make(map[string]string, len(engine.Stages)),
		width:   100,
	}
}

func (m RunModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if !m.done {
				m.cancelled = true
			}
			return m, tea.Quit
		case "enter":
			if m.done {
				return m, tea.Quit
			}
		}
		return m, nil

	case StageStartedMsg:
		m.states[msg.Stage] = stateRunning
		return m, nil

	case StageDoneMsg:
		m.states[msg.Stage] = stateDone
		m.details[msg.Stage] = msg.Detail
		return m, nil

	case FilterStageMsg:
		m.filter = append(m.filter, msg.Summary)
		return m, nil

	case CompletedMsg:
		m.report = msg.Report
		m.done = true
		return m, nil

	case FailedMsg:
		m.err = msg.Err
		m.failed = msg.Stage
		if msg.Stage != "" {
			m.states[msg.Stage] = stateFailed
		}
		m.done = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m RunModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("bankclean run"))
	b.WriteString("\n\n")

	for _, stage := range m.stages {
		var icon string
		switch m.states[stage] {
		case stateRunning:
			icon = m.spinner.View()
		case stateDone:
			icon = successStyle.Render("OK")
		case stateFailed:
			icon = errStyle.Render("XX")
		default:
			icon = dimStyle.Render("..")
		}
		line := fmt.Sprintf("  %s %-10s", icon, stage)
		if d := m.details[stage]; d != "" {
			line += " " + dimStyle.Render(d)
		}
		b.WriteString(line + "\n")
	}

	if len(m.filter) > 0 {
		b.WriteString("\n")
		b.WriteString(SummaryTable(m.filter))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render(fmt.Sprintf("  Run failed at %s: %v", m.failed, m.err)))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  q: quit"))
	case m.report != nil:
		b.WriteString(successStyle.Render("  " + m.report.Summary()))
		b.WriteString("\n")
		for _, w := range m.report.Warnings {
			b.WriteString(errStyle.Render("  warning: "+w) + "\n")
		}
		b.WriteString(dimStyle.Render("  enter/q: quit"))
	default:
		b.WriteString(dimStyle.Render("  q: cancel run"))
	}
	b.WriteString("\n")
	return b.String()
}

// SummaryTable renders clean and orphaned counts per integrity stage.
func SummaryTable(stages []integrity.StageSummary) string {
	rows := make([][]string, 0, len(stages))
	for _, s := range stages {
		rows = append(rows, []string{
			s.Stage,
			strconv.Itoa(s.Input),
			strconv.Itoa(s.Clean),
			strconv.Itoa(s.Orphaned),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("STAGE", "INPUT", "CLEAN", "ORPHANED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 3 && rows[row][3] != "0" {
				return cellStyle.Foreground(lipgloss.Color("214"))
			}
			return cellStyle
		})
	return t.String()
}

// Done returns true when the run has finished.
func (m RunModel) Done() bool {
	return m.done
}

// Cancelled returns true if the user quit before the run finished.
func (m RunModel) Cancelled() bool {
	return m.cancelled
}

// Report returns the final report, if the run completed.
func (m RunModel) Report() *report.RunReport {
	return m.report
}

// Callbacks adapts engine progress into messages for send, typically
// (*tea.Program).Send.
func Callbacks(send func(tea.Msg)) engine.Callbacks {
	return engine.Callbacks{
		OnStageStart: func(_, stage string) { send(StageStartedMsg{Stage: stage}) },
		OnStageDone: func(_, stage, detail string) {
			send(StageDoneMsg{Stage: stage, Detail: detail})
		},
		OnFilterStage: func(_ string, s integrity.StageSummary) { send(FilterStageMsg{Summary: s}) },
		OnComplete:    func(r *report.RunReport) { send(CompletedMsg{Report: r}) },
		OnError: func(_, stage string, err error) {
			send(FailedMsg{Stage: stage, Err: err})
		},
	}
}
