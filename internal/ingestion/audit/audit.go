package audit

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos"
	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/upsert"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

// maxMessageLen bounds the SyncRunRecord message column content.
const maxMessageLen = 4000

type Counts struct {
	Processed   int `json:"processed"`
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Unchanged   int `json:"unchanged"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	Quarantined int `json:"quarantined"`
}

// Quarantine describes one rejected or ambiguous submission or entry.
type Quarantine struct {
	ExternalID string
	Region     string
	Department string
	Commune    string
	SpeciesRaw string
	DiseaseRaw string
	Reason     string
	Severity   domain.QuarantineSeverity
	Payload    []byte
}

// Run collects the outcome of one pipeline run for one FormSource. It is
// created by the orchestrator per source and never shared across runs.
type Run struct {
	Source    *domain.FormSource
	StartedAt time.Time

	mu         sync.Mutex
	counts     Counts
	messages   []string
	quarantine []*domain.QuarantineEntry
}

func NewRun(src *domain.FormSource, startedAt time.Time) *Run {
	return &Run{Source: src, StartedAt: startedAt.UTC()}
}

func (r *Run) Processed() {
	r.mu.Lock()
	r.counts.Processed++
	r.mu.Unlock()
}

// Record counts one upsert outcome.
func (r *Run) Record(o upsert.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch o {
	case upsert.Created:
		r.counts.Created++
	case upsert.Updated:
		r.counts.Updated++
	case upsert.Unchanged:
		r.counts.Unchanged++
	case upsert.Skipped:
		r.counts.Skipped++
	}
}

func (r *Run) Failed() {
	r.mu.Lock()
	r.counts.Failed++
	r.mu.Unlock()
}

func (r *Run) Message(msgs ...string) {
	r.mu.Lock()
	r.messages = append(r.messages, msgs...)
	r.mu.Unlock()
}

// Quarantine stores q and returns the human-readable line for it.
func (r *Run) Quarantine(q Quarantine) string {
	if q.Severity == "" {
		q.Severity = domain.SeverityRejected
	}
	entry := &domain.QuarantineEntry{
		ExternalID: q.ExternalID,
		Region:     q.Region,
		Department: q.Department,
		Commune:    q.Commune,
		SpeciesRaw: q.SpeciesRaw,
		DiseaseRaw: q.DiseaseRaw,
		Reason:     q.Reason,
		Severity:   q.Severity,
	}
	if len(q.Payload) > 0 {
		entry.Payload = datatypes.JSON(q.Payload)
	}
	if r.Source != nil {
		entry.FormSourceID = r.Source.ID
		entry.Parser = r.Source.Parser
	}
	r.mu.Lock()
	r.quarantine = append(r.quarantine, entry)
	r.counts.Quarantined++
	r.mu.Unlock()
	return fmt.Sprintf("[%s] quarantined (%s): %s", q.ExternalID, q.Severity, q.Reason)
}

func (r *Run) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts
}

func (r *Run) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func (r *Run) QuarantineEntries() []*domain.QuarantineEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.QuarantineEntry(nil), r.quarantine...)
}

// Success builds the SUCCESS record; the message carries the processed count.
func (r *Run) Success(finished time.Time) *domain.SyncRunRecord {
	c := r.Counts()
	rec := r.record(domain.SyncStatusSuccess, finished)
	rec.Message = fmt.Sprintf("%d records processed", c.Processed)
	return rec
}

// Failure builds the FAILURE record carrying the error text.
func (r *Run) Failure(err error, finished time.Time) *domain.SyncRunRecord {
	rec := r.record(domain.SyncStatusFailure, finished)
	if err != nil {
		rec.Message = truncate(err.Error(), maxMessageLen)
	}
	return rec
}

func (r *Run) record(status domain.SyncStatus, finished time.Time) *domain.SyncRunRecord {
	c := r.Counts()
	fin := finished.UTC()
	rec := &domain.SyncRunRecord{
		ID:          uuid.New(),
		RanAt:       r.StartedAt,
		FinishedAt:  &fin,
		Status:      status,
		Processed:   c.Processed,
		Created:     c.Created,
		Updated:     c.Updated,
		Unchanged:   c.Unchanged,
		Skipped:     c.Skipped,
		Failed:      c.Failed,
		Quarantined: c.Quarantined,
	}
	if r.Source != nil {
		rec.FormSourceID = r.Source.ID
		rec.SourceUID = r.Source.UID
	}
	return rec
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Log persists run records and their quarantine entries.
type Log struct {
	runs       repos.SyncRunRepo
	quarantine repos.QuarantineRepo
	log        *logger.Logger
}

func NewLog(runs repos.SyncRunRepo, quarantine repos.QuarantineRepo, baseLog *logger.Logger) *Log {
	return &Log{runs: runs, quarantine: quarantine, log: baseLog.With("service", "AuditLog")}
}

// Write appends rec and links every quarantine entry of run to it.
func (l *Log) Write(dbc dbctx.Context, run *Run, rec *domain.SyncRunRecord) error {
	if _, err := l.runs.Create(dbc, rec); err != nil {
		return fmt.Errorf("write sync run: %w", err)
	}
	entries := run.QuarantineEntries()
	for _, e := range entries {
		e.SyncRunID = rec.ID
	}
	if _, err := l.quarantine.Create(dbc, entries); err != nil {
		return fmt.Errorf("write quarantine: %w", err)
	}
	l.log.Info("sync run recorded",
		"source_uid", rec.SourceUID,
		"status", rec.Status,
		"processed", rec.Processed,
		"created", rec.Created,
		"updated", rec.Updated,
		"unchanged", rec.Unchanged,
		"skipped", rec.Skipped,
		"failed", rec.Failed,
		"quarantined", rec.Quarantined,
	)
	return nil
}
