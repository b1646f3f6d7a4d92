package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bankclean/bankclean/internal/aws"
	"github.com/bankclean/bankclean/internal/bank"
	"github.com/bankclean/bankclean/internal/config"
	"github.com/bankclean/bankclean/internal/dataset"
	"github.com/bankclean/bankclean/internal/integrity"
	"github.com/bankclean/bankclean/internal/lock"
	"github.com/bankclean/bankclean/internal/logging"
	"github.com/bankclean/bankclean/internal/macro"
	"github.com/bankclean/bankclean/internal/normalize"
	"github.com/bankclean/bankclean/internal/notify"
	"github.com/bankclean/bankclean/internal/report"
	"github.com/bankclean/bankclean/internal/schema"
	"github.com/bankclean/bankclean/internal/source"
	"github.com/bankclean/bankclean/internal/state"
	"github.com/bankclean/bankclean/internal/target"
	"github.com/bankclean/bankclean/internal/validation"
)

// Pipeline stages, in execution order.
const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StageIntegrity = "integrity"
	StageAudit     = "audit"
	StageValidate  = "validate"
	StageWrite     = "write"
	StageUpload    = "upload"
	StageNotify    = "notify"
)

// Stages lists the pipeline stages in order.
var Stages = []string{
	StageLoad, StageNormalize, StageIntegrity, StageAudit,
	StageValidate, StageWrite, StageUpload, StageNotify,
}

// ErrRunning is returned when a run is requested while another is in progress.
var ErrRunning = errors.New("a run is already in progress")

// Callbacks receive progress synchronously from the goroutine running the
// pipeline. Any of them may be nil.
type Callbacks struct {
	OnStageStart  func(runID, stage string)
	OnStageDone   func(runID, stage, detail string)
	OnFilterStage func(runID string, s integrity.StageSummary)
	OnComplete    func(r *report.RunReport)
	OnError       func(runID, stage string, err error)
}

// Engine is the pipeline orchestrator shared by the CLI and the API server.
type Engine struct {
	Config *config.Config
	Schema *schema.Schema
	Logger *slog.Logger

	// Reader replaces the reader built from Config.Source when set.
	Reader source.Reader
	// Sink replaces the sinks built from Config.Output when set.
	Sink target.Sink
	// AWS replaces the client built from Config.AWS when set.
	AWS aws.Client
	// Publisher replaces the broker connection built from Config.Notify when set.
	Publisher notify.Publisher
	// Macro replaces the macro-index client built from Config.Macro when set.
	Macro *macro.Client

	Now   func() time.Time
	NewID func() string

	statePath string

	mu      sync.Mutex
	running string
	last    *report.RunReport
	// background tracks runs launched by Start.
	background sync.WaitGroup
}

// New creates a new Engine with the given config and logger.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Config:    cfg,
		Schema:    schema.Bank(),
		Logger:    logger,
		Now:       time.Now,
		NewID:     uuid.NewString,
		statePath: config.ExpandHome(state.DefaultPath),
	}
}

// SetStatePath overrides where the last-run state is kept.
func (e *Engine) SetStatePath(path string) {
	e.statePath = path
}

// LoadState reads the last-run state from disk.
func (e *Engine) LoadState() (*state.State, error) {
	return state.Load(e.statePath)
}

// Running returns the id of the run in progress, if any.
func (e *Engine) Running() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running, e.running != ""
}

// LastReport returns the report of the most recent run, from memory or from
// the report file recorded in the state.
func (e *Engine) LastReport() (*report.RunReport, error) {
	e.mu.Lock()
	last := e.last
	e.mu.Unlock()
	if last != nil {
		return last, nil
	}

	st, err := e.LoadState()
	if err != nil {
		return nil, err
	}
	if st.LastRun == nil || st.LastRun.ReportPath == "" {
		return nil, nil
	}
	return report.ReadJSON(st.LastRun.ReportPath)
}

func (e *Engine) begin(runID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running != "" {
		return false
	}
	e.running = runID
	return true
}

func (e *Engine) end(r *report.RunReport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = ""
	if r != nil {
		e.last = r
	}
}

// Run executes the full pipeline and blocks until it ends.
func (e *Engine) Run(ctx context.Context, cb Callbacks) (*report.RunReport, error) {
	runID := e.NewID()
	if !e.begin(runID) {
		return nil, ErrRunning
	}
	r, err := e.run(ctx, runID, cb)
	e.end(r)
	return r, err
}

// Start runs the pipeline in the background and returns its run id. The run
// is cancelled with ctx, which must outlive the call.
func (e *Engine) Start(ctx context.Context, cb Callbacks) (string, error) {
	runID := e.NewID()
	if !e.begin(runID) {
		return "", ErrRunning
	}
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		r, _ := e.run(ctx, runID, cb)
		e.end(r)
	}()
	return runID, nil
}

// Wait blocks until every run launched by Start has ended, or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) run(ctx context.Context, runID string, cb Callbacks) (*report.RunReport, error) {
	logger := logging.WithRun(e.Logger, runID)
	outDir := e.Config.Output.Dir

	lockPath := lock.Path(outDir)
	if err := lock.Acquire(lockPath); err != nil {
		if cb.OnError != nil {
			cb.OnError(runID, StageLoad, err)
		}
		return nil, err
	}
	defer func() {
		if err := lock.Release(lockPath); err != nil {
			logger.Warn("releasing lock", "error", err)
		}
	}()

	rep := report.New(runID, e.Now())
	rep.Source = e.sourceSummary()
	e.record(logger, rep, state.StatusRunning, "")

	p := &pipeline{engine: e, logger: logger, cb: cb, report: rep}
	stage, err := p.execute(ctx)
	rep.CompletedAt = e.Now()
	if err != nil {
		rep.Status = state.StatusFailed
		rep.Error = err.Error()
		logger.Error("run failed", "stage", stage, "error", err)
		if cb.OnError != nil {
			cb.OnError(runID, stage, err)
		}
	} else {
		rep.Status = state.StatusCompleted
		logger.Info("run completed", "orphaned", rep.Orphaned(), "duration", rep.CompletedAt.Sub(rep.StartedAt))
	}

	reportPath, werr := writeReport(rep, outDir)
	if werr != nil {
		logger.Warn("writing report", "error", werr)
		reportPath = ""
	}
	e.record(logger, rep, rep.Status, reportPath)

	if err == nil && cb.OnComplete != nil {
		cb.OnComplete(rep)
	}
	return rep, err
}

func (e *Engine) record(logger *slog.Logger, rep *report.RunReport, status, reportPath string) {
	st, err := e.LoadState()
	if err != nil {
		logger.Warn("loading state", "error", err)
		st = state.New()
	}
	run := state.Run{
		ID:          rep.RunID,
		Status:      status,
		StartedAt:   rep.StartedAt,
		CompletedAt: rep.CompletedAt,
		OutputDir:   e.Config.Output.Dir,
		ReportPath:  reportPath,
		ArtifactURI: rep.ArtifactURI,
		Error:       rep.Error,
	}
	if rep.Validation != nil {
		run.ValidationStatus = rep.Validation.Status
	}
	st.Record(run)
	if err := st.Save(e.statePath); err != nil {
		logger.Warn("saving state", "error", err)
	}
}

func writeReport(rep *report.RunReport, dir string) (string, error) {
	path := filepath.Join(dir, report.JSONFile)
	if err := report.WriteJSON(rep, path); err != nil {
		return "", err
	}
	if err := report.WriteText(rep, filepath.Join(dir, report.TextFile)); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

func (e *Engine) sourceSummary() report.SourceSummary {
	src := e.Config.Source
	loc := src.Dir
	if src.Type != config.SourceCSV {
		loc = fmt.Sprintf("%s:%d/%s", src.Host, src.Port, src.Database)
	}
	return report.SourceSummary{Type: src.Type, Location: loc, Tables: len(bank.RawTables)}
}

// today returns the reference date for age computation.
func (e *Engine) today() (time.Time, error) {
	return e.Config.Normalize.Today(e.Now)
}

func (e *Engine) reader() (source.Reader, error) {
	if e.Reader != nil {
		return e.Reader, nil
	}
	return source.New(e.Config.Source)
}

// sink returns the configured sinks. The CSV sink under Output.Dir is always
// present; MongoDB is added when a connection string is configured.
func (e *Engine) sink(ctx context.Context) (target.Sink, error) {
	if e.Sink != nil {
		return e.Sink, nil
	}
	csvSink, err := target.NewCSVSink(e.Config.Output.Dir)
	if err != nil {
		return nil, err
	}
	sinks := target.Multi{csvSink}
	if m := e.Config.Output.MongoDB; m.ConnectionString != "" {
		ms, err := target.NewMongoSink(ctx, m.ConnectionString, m.Database)
		if err != nil {
			if cerr := sinks.Close(ctx); cerr != nil {
				e.Logger.Warn("closing sinks", "error", cerr)
			}
			return nil, err
		}
		sinks = append(sinks, ms)
	}
	return sinks, nil
}

// LoadRaw reads every raw table from the configured source.
func (e *Engine) LoadRaw(ctx context.Context) (normalize.Raw, error) {
	r, err := e.reader()
	if err != nil {
		return nil, err
	}
	if err := r.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to source: %w", err)
	}
	defer r.Close()

	tables, err := source.LoadAll(ctx, r, bank.RawTables, e.Config.Source.TableName)
	if err != nil {
		return nil, err
	}
	return normalize.Raw(tables), nil
}

// Normalize loads and normalizes the raw tables without filtering them.
func (e *Engine) Normalize(ctx context.Context) (*bank.Dataset, error) {
	raw, err := e.LoadRaw(ctx)
	if err != nil {
		return nil, err
	}
	today, err := e.today()
	if err != nil {
		return nil, err
	}
	return normalize.New(today, e.Logger).Normalize(raw)
}

// WriteTables writes tables to the configured sinks and closes them.
func (e *Engine) WriteTables(ctx context.Context, tables []*dataset.Table) (string, error) {
	s, err := e.sink(ctx)
	if err != nil {
		return "", err
	}
	werr := target.WriteAll(ctx, s, tables)
	cerr := s.Close(ctx)
	if werr != nil {
		return "", werr
	}
	if cerr != nil {
		return "", fmt.Errorf("closing sinks: %w", cerr)
	}
	return s.Location(), nil
}

// Filter runs the integrity stages over ds.
func (e *Engine) Filter(ds *bank.Dataset, onStage func(integrity.StageSummary)) (*integrity.Result, error) {
	f := integrity.New(e.Schema, e.Logger)
	f.OnStageDone = onStage
	return f.Run(ds)
}

// Validate re-checks the partitions in tables.
func (e *Engine) Validate(tables []*dataset.Table) (*validation.Result, error) {
	v := validation.NewValidator(e.Schema, tables)
	v.Now = e.Now
	return v.Validate()
}
