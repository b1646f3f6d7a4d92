package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bankclean/bankclean/internal/engine"
	"github.com/bankclean/bankclean/internal/report"
)

// Run executes a pipeline run behind the progress view. Quitting the view
// before the run ends cancels it.
func Run(ctx context.Context, eng *engine.Engine, opts ...tea.ProgramOption) (*report.RunReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewRunModel(), opts...)

	type result struct {
		report *report.RunReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		r, err := eng.Run(ctx, Callbacks(p.Send))
		done <- result{r, err}
	}()

	_, perr := p.Run()
	cancel()
	res := <-done
	if perr != nil {
		return res.report, fmt.Errorf("running progress view: %w", perr)
	}
	return res.report, res.err
}
