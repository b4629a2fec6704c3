package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos"
	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/audit"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/georesolve"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/normalize"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/parsers"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/payload"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/taxonomy"
	"github.com/Kailou1991/ahis-001-sub001/internal/observability"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/kobo"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/redisx"
)

// SourceResult is the outcome of one FormSource within a run.
type SourceResult struct {
	SourceUID  string                    `json:"source_uid"`
	SourceName string                    `json:"source_name"`
	Parser     string                    `json:"parser"`
	RunID      uuid.UUID                 `json:"run_id"`
	Status     domain.SyncStatus         `json:"status"`
	Message    string                    `json:"message"`
	Counts     audit.Counts              `json:"counts"`
	Quarantine []*domain.QuarantineEntry `json:"-"`
	Messages   []string                  `json:"-"`
}

// RunResult aggregates one RunAll call. It is owned by the caller; nothing
// is carried over between runs.
type RunResult struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Sources    []SourceResult `json:"sources"`
	Error      string         `json:"error,omitempty"`
}

func (r RunResult) Totals() audit.Counts {
	var t audit.Counts
	for _, s := range r.Sources {
		t.Processed += s.Counts.Processed
		t.Created += s.Counts.Created
		t.Updated += s.Counts.Updated
		t.Unchanged += s.Counts.Unchanged
		t.Skipped += s.Counts.Skipped
		t.Failed += s.Counts.Failed
		t.Quarantined += s.Counts.Quarantined
	}
	return t
}

// Failures counts sources whose run ended in FAILURE.
func (r RunResult) Failures() int {
	n := 0
	for _, s := range r.Sources {
		if s.Status == domain.SyncStatusFailure {
			n++
		}
	}
	return n
}

type Deps struct {
	DB       *gorm.DB
	Repos    repos.Set
	Fetcher  kobo.Fetcher
	Registry *parsers.Registry
	// Optional.
	Aliases     *normalize.Table
	Locker      redisx.Locker
	Events      redisx.Publisher
	Concurrency int
	Now         func() time.Time
}

type Orchestrator struct {
	db          *gorm.DB
	log         *logger.Logger
	repos       repos.Set
	fetcher     kobo.Fetcher
	registry    *parsers.Registry
	geo         *georesolve.Resolver
	taxonomy    *taxonomy.Normalizer
	audit       *audit.Log
	locker      redisx.Locker
	events      redisx.Publisher
	concurrency int
	now         func() time.Time
}

func New(d Deps, baseLog *logger.Logger) (*Orchestrator, error) {
	if d.DB == nil {
		return nil, fmt.Errorf("orchestrator: db required")
	}
	if d.Fetcher == nil {
		return nil, fmt.Errorf("orchestrator: fetcher required")
	}
	if d.Registry == nil {
		d.Registry = parsers.Default()
	}
	if d.Locker == nil {
		d.Locker = redisx.NewLocalLocker()
	}
	if d.Concurrency < 1 {
		d.Concurrency = 1
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Orchestrator{
		db:          d.DB,
		log:         baseLog.With("service", "SyncOrchestrator"),
		repos:       d.Repos,
		fetcher:     d.Fetcher,
		registry:    d.Registry,
		geo:         georesolve.New(d.Repos.Regions, d.Repos.Departments, d.Repos.Communes, baseLog),
		taxonomy:    taxonomy.New(d.Aliases, d.Repos.Species, d.Repos.Diseases, baseLog),
		audit:       audit.NewLog(d.Repos.SyncRuns, d.Repos.Quarantine, baseLog),
		locker:      d.Locker,
		events:      d.Events,
		concurrency: d.Concurrency,
		now:         d.Now,
	}, nil
}

// RunAll syncs every active FormSource once. A failing source is recorded
// and never stops the others.
func (o *Orchestrator) RunAll(ctx context.Context) RunResult {
	ctx, span := observability.StartSpan(ctx, "sync.run_all")
	res := RunResult{StartedAt: o.now().UTC()}

	sources, err := o.repos.FormSources.ListActive(dbctx.Context{Ctx: ctx})
	if err != nil {
		o.log.Error("list active sources failed", "error", err)
		res.Error = err.Error()
		res.FinishedAt = o.now().UTC()
		observability.EndSpan(span, err)
		return res
	}
	o.log.Info("sync started", "sources", len(sources), "concurrency", o.concurrency)

	res.Sources = make([]SourceResult, len(sources))
	if o.concurrency == 1 {
		for i, src := range sources {
			res.Sources[i] = o.RunSource(ctx, src)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.concurrency)
		for i, src := range sources {
			g.Go(func() error {
				res.Sources[i] = o.RunSource(gctx, src)
				return nil
			})
		}
		_ = g.Wait()
	}

	res.FinishedAt = o.now().UTC()
	t := res.Totals()
	o.log.Info("sync finished",
		"sources", len(sources),
		"failures", res.Failures(),
		"processed", t.Processed,
		"quarantined", t.Quarantined,
		"duration", res.FinishedAt.Sub(res.StartedAt).String(),
	)
	observability.EndSpan(span, nil)
	return res
}

// RunSource syncs one FormSource under its lock and writes its run record.
func (o *Orchestrator) RunSource(ctx context.Context, src *domain.FormSource) SourceResult {
	ctx, span := observability.StartSpan(ctx, "sync.source", "source.uid", src.UID, "source.parser", src.Parser)
	log := o.log.With("source_uid", src.UID, "parser", src.Parser)
	run := audit.NewRun(src, o.now())

	err := o.process(ctx, src, run, log)
	var rec *domain.SyncRunRecord
	if err != nil {
		log.Warn("source run failed", "error", err)
		rec = run.Failure(err, o.now())
	} else {
		rec = run.Success(o.now())
	}

	// The record is written even when ctx was cancelled mid-run.
	writeCtx := context.WithoutCancel(ctx)
	if werr := o.db.WithContext(writeCtx).Transaction(func(tx *gorm.DB) error {
		return o.audit.Write(dbctx.Context{Ctx: writeCtx, Tx: tx}, run, rec)
	}); werr != nil {
		log.Error("write run record failed", "error", werr)
		err = errors.Join(err, werr)
	}
	o.publish(writeCtx, rec, log)
	observability.EndSpan(span, err)

	return SourceResult{
		SourceUID:  src.UID,
		SourceName: src.Name,
		Parser:     src.Parser,
		RunID:      rec.ID,
		Status:     rec.Status,
		Message:    rec.Message,
		Counts:     run.Counts(),
		Quarantine: run.QuarantineEntries(),
		Messages:   run.Messages(),
	}
}

func (o *Orchestrator) process(ctx context.Context, src *domain.FormSource, run *audit.Run, log *logger.Logger) error {
	parser, ok := o.registry.Get(src.Parser)
	if !ok {
		return o.registry.Validate(src.Parser)
	}

	unlock, err := o.locker.Lock(ctx, src.UID)
	if err != nil {
		return fmt.Errorf("acquire source lock: %w", err)
	}
	defer unlock()

	fetchCtx, fetchSpan := observability.StartSpan(ctx, "sync.fetch", "source.uid", src.UID)
	raws, err := o.fetcher.Fetch(fetchCtx, src.UID, src.Token, src.BaseURL)
	observability.EndSpan(fetchSpan, err)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", src.UID, err)
	}
	log.Info("submissions fetched", "count", len(raws))

	pc := &parsers.Context{
		Ctx:      ctx,
		DB:       o.db,
		Source:   src,
		Geo:      o.geo,
		Taxonomy: o.taxonomy,
		Run:      run,
		Log:      log,
		Now:      o.now,
	}
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted after %d of %d submissions: %w", run.Counts().Processed, len(raws), err)
		}
		run.Message(parsers.Dispatch(parser, pc, payload.Normalize(raw))...)
	}
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, rec *domain.SyncRunRecord, log *logger.Logger) {
	if o.events == nil {
		return
	}
	ev := redisx.RunEvent{
		RunID:       rec.ID.String(),
		SourceUID:   rec.SourceUID,
		Status:      string(rec.Status),
		Processed:   rec.Processed,
		Created:     rec.Created,
		Updated:     rec.Updated,
		Unchanged:   rec.Unchanged,
		Skipped:     rec.Skipped,
		Failed:      rec.Failed,
		Quarantined: rec.Quarantined,
		Message:     rec.Message,
	}
	if rec.FinishedAt != nil {
		ev.FinishedAt = *rec.FinishedAt
	}
	if err := o.events.Publish(ctx, ev); err != nil {
		log.Warn("publish run event failed", "error", err)
	}
}

var ErrRunInProgress = errors.New("sync already running")

// Scheduler serializes RunAll calls from the ticker and from manual triggers.
// A trigger that arrives while a run is going is refused.
type Scheduler struct {
	orch     *Orchestrator
	interval time.Duration
	log      *logger.Logger
	mu       sync.Mutex
	running  bool
}

func NewScheduler(orch *Orchestrator, interval time.Duration, baseLog *logger.Logger) *Scheduler {
	return &Scheduler{orch: orch, interval: interval, log: baseLog.With("component", "SyncScheduler")}
}

// Trigger runs the sync now unless one is already running.
func (s *Scheduler) Trigger(ctx context.Context) (RunResult, error) {
	if !s.begin() {
		return RunResult{}, ErrRunInProgress
	}
	defer s.end()
	return s.orch.RunAll(ctx), nil
}

// Start ticks every interval until ctx is done. A zero interval disables it.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := s.Trigger(ctx)
				if err != nil {
					s.log.Warn("scheduled sync skipped", "error", err)
					continue
				}
				s.log.Info("scheduled sync done", "sources", len(res.Sources), "failures", res.Failures())
			}
		}
	}()
}

func (s *Scheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
