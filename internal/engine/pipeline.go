package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bankclean/bankclean/internal/aws"
	"github.com/bankclean/bankclean/internal/bank"
	"github.com/bankclean/bankclean/internal/dataset"
	"github.com/bankclean/bankclean/internal/integrity"
	"github.com/bankclean/bankclean/internal/normalize"
	"github.com/bankclean/bankclean/internal/notify"
	"github.com/bankclean/bankclean/internal/report"
	"github.com/bankclean/bankclean/internal/validation"
)

// pipeline carries the intermediate results of one run.
type pipeline struct {
	engine *Engine
	logger *slog.Logger
	cb     Callbacks
	report *report.RunReport

	raw     normalize.Raw
	dataset *bank.Dataset
	result  *integrity.Result
	tables  []*dataset.Table
}

// execute runs every stage and returns the failing stage with its error.
func (p *pipeline) execute(ctx context.Context) (string, error) {
	steps := []struct {
		name string
		fn   func(context.Context) (string, error)
	}{
		{StageLoad, p.load},
		{StageNormalize, p.normalize},
		{StageIntegrity, p.filter},
		{StageAudit, p.audit},
		{StageValidate, p.validate},
		{StageWrite, p.write},
		{StageUpload, p.upload},
		{StageNotify, p.notify},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return s.name, err
		}
		if p.cb.OnStageStart != nil {
			p.cb.OnStageStart(p.report.RunID, s.name)
		}
		start := time.Now()
		detail, err := s.fn(ctx)
		if err != nil {
			return s.name, fmt.Errorf("%s: %w", s.name, err)
		}
		p.logger.Info("stage complete", "stage", s.name, "detail", detail, "elapsed", time.Since(start))
		if p.cb.OnStageDone != nil {
			p.cb.OnStageDone(p.report.RunID, s.name, detail)
		}
	}
	return "", nil
}

func (p *pipeline) load(ctx context.Context) (string, error) {
	raw, err := p.engine.LoadRaw(ctx)
	if err != nil {
		return "", err
	}
	p.raw = raw
	rows := 0
	for _, t := range raw {
		rows += t.Len()
	}
	return fmt.Sprintf("%d tables, %d rows", len(raw), rows), nil
}

func (p *pipeline) normalize(_ context.Context) (string, error) {
	today, err := p.engine.today()
	if err != nil {
		return "", err
	}
	ds, err := normalize.New(today, p.logger).Normalize(p.raw)
	if err != nil {
		return "", err
	}
	p.dataset = ds
	p.raw = nil
	return fmt.Sprintf("ages as of %s", today.Format("2006-01-02")), nil
}

func (p *pipeline) filter(_ context.Context) (string, error) {
	f := integrity.New(p.engine.Schema, p.logger)
	f.OnStageStart = func(stage string) {
		p.logger.Debug("integrity stage started", "stage", stage)
	}
	f.OnStageDone = func(s integrity.StageSummary) {
		if p.cb.OnFilterStage != nil {
			p.cb.OnFilterStage(p.report.RunID, s)
		}
	}
	res, err := f.Run(p.dataset)
	if err != nil {
		return "", err
	}
	p.result = res
	p.report.Stages = res.Stages
	return fmt.Sprintf("%d orphaned rows", p.report.Orphaned()), nil
}

func (p *pipeline) audit(_ context.Context) (string, error) {
	p.tables = append(p.dataset.Tables(), p.result.Tables()...)
	p.report.AddTables(p.tables)
	missing := 0
	for _, a := range p.report.Audits {
		missing += a.Total()
		if a.Total() > 0 {
			args := []any{"table", a.Table, "rows", a.Rows}
			for _, m := range a.Missing() {
				args = append(args, m.Column, m.Count)
			}
			p.logger.Debug("null audit", args...)
		}
	}
	return fmt.Sprintf("%d missing cells", missing), nil
}

func (p *pipeline) validate(_ context.Context) (string, error) {
	res, err := p.engine.Validate(p.tables)
	if err != nil {
		return "", err
	}
	p.report.Validation = res
	if res.Status != validation.StatusPass {
		p.logger.Warn("validation did not pass", "status", res.Status, "tables", res.Failed())
	}
	return res.Status, nil
}

func (p *pipeline) write(ctx context.Context) (string, error) {
	loc, err := p.engine.WriteTables(ctx, p.tables)
	if err != nil {
		return "", err
	}
	p.report.Outputs = []string{loc}
	return loc, nil
}

// upload publishes the CSV outputs and the report when a bucket is
// configured. Failures are recorded as warnings.
func (p *pipeline) upload(ctx context.Context) (string, error) {
	cfg := p.engine.Config.AWS
	if cfg.S3Bucket == "" {
		return "skipped", nil
	}
	client := p.engine.AWS
	if client == nil {
		c, err := aws.NewRealClient(ctx, cfg.Profile, cfg.Region)
		if err != nil {
			p.warn("upload", err)
			return "failed", nil
		}
		client = c
	}
	if _, err := aws.Preflight(ctx, client, cfg.S3Bucket); err != nil {
		p.warn("upload", err)
		return "failed", nil
	}

	files := make([]string, 0, len(p.tables))
	for _, t := range p.tables {
		files = append(files, filepath.Join(p.engine.Config.Output.Dir, t.Name+".csv"))
	}
	u := aws.NewArtifactUploader(client, cfg.S3Bucket, cfg.S3Prefix)
	p.report.ArtifactURI = u.RunPrefix(p.report.RunID)
	body, err := report.Marshal(p.report)
	if err != nil {
		return "", err
	}
	res, err := u.UploadRun(ctx, aws.RunArtifacts{RunID: p.report.RunID, Files: files, Report: body})
	if err != nil {
		p.report.ArtifactURI = ""
		p.warn("upload", err)
		return "failed", nil
	}
	p.report.ArtifactURI = res.RunURI
	return res.RunURI, nil
}

// notify announces the run when a broker is configured. Failures are
// recorded as warnings.
func (p *pipeline) notify(ctx context.Context) (string, error) {
	pub := p.engine.Publisher
	if pub == nil {
		cfg := p.engine.Config.Notify
		if cfg.URL == "" {
			return "skipped", nil
		}
		c, err := notify.Dial(cfg.URL, cfg.Exchange)
		if err != nil {
			p.warn("notify", err)
			return "failed", nil
		}
		defer c.Close()
		pub = c
	}

	ev := notify.RunEvent{
		RunID:       p.report.RunID,
		Status:      "completed",
		CompletedAt: p.engine.Now(),
		Clean:       make(map[string]int),
		Orphaned:    make(map[string]int),
		ArtifactURI: p.report.ArtifactURI,
	}
	if p.report.Validation != nil {
		ev.Validation = p.report.Validation.Status
	}
	for _, s := range p.report.Stages {
		ev.Clean[s.Stage] = s.Clean
		ev.Orphaned[s.Stage] = s.Orphaned
	}
	if err := pub.Publish(ctx, ev); err != nil {
		p.warn("notify", err)
		return "failed", nil
	}
	return "published", nil
}

func (p *pipeline) warn(stage string, err error) {
	p.logger.Warn(stage+" failed", "error", err)
	p.report.Warnings = append(p.report.Warnings, fmt.Sprintf("%s: %v", stage, err))
}
