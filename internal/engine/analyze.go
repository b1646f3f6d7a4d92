package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/bankclean/bankclean/internal/analysis"
	"github.com/bankclean/bankclean/internal/macro"
)

// MacroClient returns the configured macro-index client.
func (e *Engine) MacroClient() *macro.Client {
	if e.Macro != nil {
		return e.Macro
	}
	cfg := e.Config.Macro
	return macro.NewClient(cfg.BaseURL, time.Duration(cfg.TimeoutSeconds)*time.Second, cfg.Retries, e.Logger)
}

// Analyze computes the descriptive aggregates over the clean partition in
// dir. Each requested series is fetched over the transaction period range
// and compared with the monthly activity; a series that cannot be fetched
// fails the analysis.
func (e *Engine) Analyze(ctx context.Context, dir string, series []macro.Series) (*analysis.Report, error) {
	ds, err := e.ReadOutput(ctx, dir, PartitionClean)
	if err != nil {
		return nil, err
	}
	r := analysis.Analyze(ds)
	if len(series) == 0 {
		return r, nil
	}

	periods := make([]string, 0, len(r.Monthly))
	for _, m := range r.Monthly {
		periods = append(periods, m.Month)
	}
	from, to, ok := macro.PeriodRange(periods)
	if !ok {
		e.Logger.Warn("no transaction periods to compare with macro series")
		return r, nil
	}

	client := e.MacroClient()
	names := make([]string, 0, len(series))
	values := make(map[string]map[string]float64, len(series))
	for _, s := range series {
		obs, err := client.Fetch(ctx, s, from, to)
		if err != nil {
			return nil, fmt.Errorf("macro %s: %w", s.Name, err)
		}
		e.Logger.Debug("macro series fetched", "series", s.Name, "observations", len(obs))
		names = append(names, s.Name)
		values[s.Name] = macro.Monthly(obs)
	}
	r.AddMacro(names, values)
	return r, nil
}
