package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/bankclean/bankclean/internal/dataset"
	"github.com/bankclean/bankclean/internal/integrity"
	"github.com/bankclean/bankclean/internal/validation"
)

// File names written next to the output tables.
const (
	JSONFile = "report.json"
	TextFile = "report.txt"
)

// RunReport is the record of one pipeline run.
type RunReport struct {
	Version     string                   `json:"version"`
	RunID       string                   `json:"run_id"`
	Status      string                   `json:"status"`
	StartedAt   time.Time                `json:"started_at"`
	CompletedAt time.Time                `json:"completed_at"`
	Source      SourceSummary            `json:"source"`
	Outputs     []string                 `json:"outputs"`
	Tables      []TableCount             `json:"tables"`
	Stages      []integrity.StageSummary `json:"stages"`
	Audits      []dataset.NullAudit      `json:"audits"`
	Validation  *validation.Result       `json:"validation,omitempty"`
	ArtifactURI string                   `json:"artifact_uri,omitempty"`
	Warnings    []string                 `json:"warnings,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// SourceSummary describes where the raw tables came from.
type SourceSummary struct {
	Type     string `json:"type"`
	Location string `json:"location"`
	Tables   int    `json:"tables"`
}

// TableCount is the row count of one written table.
type TableCount struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// New starts a report for a run.
func New(runID string, startedAt time.Time) *RunReport {
	return &RunReport{Version: "1", RunID: runID, StartedAt: startedAt}
}

// AddTables records row counts and null audits of the written tables.
func (r *RunReport) AddTables(tables []*dataset.Table) {
	for _, t := range tables {
		r.Tables = append(r.Tables, TableCount{Name: t.Name, Rows: t.Len()})
		r.Audits = append(r.Audits, dataset.Audit(t))
	}
}

// Orphaned returns the total orphaned rows across stages.
func (r *RunReport) Orphaned() int {
	n := 0
	for _, s := range r.Stages {
		n += s.Orphaned
	}
	return n
}

// Summary is a one-line description of the run.
func (r *RunReport) Summary() string {
	validation := "n/a"
	if r.Validation != nil {
		validation = r.Validation.Status
	}
	return fmt.Sprintf("run %s %s: %d tables, %d orphaned rows, validation %s",
		r.RunID, r.Status, len(r.Tables), r.Orphaned(), validation)
}

// Marshal returns the indented JSON form of the report.
func Marshal(report *RunReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling report: %w", err)
	}
	return data, nil
}

// WriteJSON writes the report as JSON.
func WriteJSON(report *RunReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := Marshal(report)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON reads a report from a JSON file.
func ReadJSON(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &RunReport{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

// WriteText writes the report as human-readable text.
func WriteText(report *RunReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return os.WriteFile(path, []byte(FormatText(report)), 0o644)
}

// FormatText renders the report as human-readable text.
func FormatText(report *RunReport) string {
	var b strings.Builder

	b.WriteString("=== bankclean Run Report ===\n")
	b.WriteString(fmt.Sprintf("Run:       %s\n", report.RunID))
	b.WriteString(fmt.Sprintf("Status:    %s\n", report.Status))
	b.WriteString(fmt.Sprintf("Started:   %s\n", report.StartedAt.Format(time.RFC3339)))
	if !report.CompletedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Completed: %s (%s)\n", report.CompletedAt.Format(time.RFC3339),
			report.CompletedAt.Sub(report.StartedAt).Round(time.Millisecond)))
	}
	if report.Error != "" {
		b.WriteString(fmt.Sprintf("Error:     %s\n", report.Error))
	}
	b.WriteString("\n")

	b.WriteString("Source:\n")
	b.WriteString(fmt.Sprintf("  Type:     %s\n", report.Source.Type))
	b.WriteString(fmt.Sprintf("  Location: %s\n", report.Source.Location))
	b.WriteString(fmt.Sprintf("  Tables:   %d\n\n", report.Source.Tables))

	if len(report.Stages) > 0 {
		b.WriteString("Integrity stages:\n")
		rows := [][]string{{"stage", "input", "clean", "orphaned", "violations"}}
		for _, s := range report.Stages {
			rows = append(rows, []string{
				s.Stage,
				fmt.Sprint(s.Input),
				fmt.Sprint(s.Clean),
				fmt.Sprint(s.Orphaned),
				formatViolations(s.Violations),
			})
		}
		writeAligned(&b, rows)
		b.WriteString("\n")
	}

	if len(report.Tables) > 0 {
		b.WriteString("Tables:\n")
		rows := [][]string{{"table", "rows"}}
		for _, t := range report.Tables {
			rows = append(rows, []string{t.Name, fmt.Sprint(t.Rows)})
		}
		writeAligned(&b, rows)
		b.WriteString("\n")
	}

	if len(report.Audits) > 0 {
		b.WriteString("Missing values:\n")
		b.WriteString(FormatAudits(report.Audits))
		b.WriteString("\n")
	}

	if report.Validation != nil {
		b.WriteString(fmt.Sprintf("Validation: %s\n", report.Validation.Status))
		for _, t := range report.Validation.Tables {
			b.WriteString(fmt.Sprintf("  %s: %s\n", t.Name, t.Status))
			if t.PartitionCheck != nil && t.PartitionCheck.Message != "" {
				b.WriteString(fmt.Sprintf("    %s\n", t.PartitionCheck.Message))
			}
			if t.ReferenceCheck != nil {
				for _, m := range t.ReferenceCheck.Messages {
					b.WriteString(fmt.Sprintf("    %s\n", m))
				}
			}
		}
		b.WriteString("\n")
	}

	if len(report.Outputs) > 0 {
		b.WriteString("Outputs:\n")
		for _, o := range report.Outputs {
			b.WriteString(fmt.Sprintf("  %s\n", o))
		}
	}
	if report.ArtifactURI != "" {
		b.WriteString(fmt.Sprintf("Artifacts: %s\n", report.ArtifactURI))
	}
	for _, w := range report.Warnings {
		b.WriteString(fmt.Sprintf("Warning: %s\n", w))
	}

	return b.String()
}

// FormatAudits renders null audits, listing only columns with missing values.
func FormatAudits(audits []dataset.NullAudit) string {
	var b strings.Builder
	for _, a := range audits {
		missing := a.Missing()
		if len(missing) == 0 {
			b.WriteString(fmt.Sprintf("  %s: none (%d rows)\n", a.Table, a.Rows))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s (%d rows):\n", a.Table, a.Rows))
		rows := make([][]string, 0, len(missing))
		for _, m := range missing {
			rows = append(rows, []string{"  " + m.Column, fmt.Sprint(m.Count)})
		}
		writeAligned(&b, rows)
	}
	return b.String()
}

func formatViolations(v map[string]int) string {
	cols := make([]string, 0, len(v))
	for c := range v {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("%s=%d", c, v[c]))
	}
	return strings.Join(parts, " ")
}

// writeAligned pads columns by display width so accented labels line up.
func writeAligned(b *strings.Builder, rows [][]string) {
	var widths []int
	for _, r := range rows {
		for i, cell := range r {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for _, r := range rows {
		b.WriteString("  ")
		for i, cell := range r {
			if i == len(r)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]+2))
		}
		b.WriteString("\n")
	}
}
