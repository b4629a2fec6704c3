package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos"
	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos/testutil"
	"github.com/Kailou1991/ahis-001-sub001/internal/domain"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
	"github.com/Kailou1991/ahis-001-sub001/internal/platform/redisx"
)

type fakeFetcher struct {
	mu    sync.Mutex
	data  map[string]string
	errs  map[string]error
	calls map[string]int
	block chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, uid, token, baseURL string) ([]map[string]any, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[uid]++
	body, err := f.data[uid], f.errs[uid]
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var out []map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeFetcher) Calls(uid string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[uid]
}

const vaccinations = `[{
	"_id": 42, "Campagne": "2024-2025", "Type_de_campagne": "masse",
	"Grp4/region": "DAKAR", "Grp4/departement": "pikine",
	"Grp5": [{"Grp5/commune": "guediawaye", "Grp5/maladie_masse": "PPR", "Grp5/espece": "ovins", "Grp5/vaccine_public": "10", "Grp5/vaccine_prive": "5"}]
}]`

const outbreaks = `[
	{"_id": 1, "region": "KAOLACK", "departement": "NIORO", "commune": "Paoskoto", "date_foyer": "2024-02-01", "maladie": "PPR", "espece": "caprins"},
	{"_id": 2, "region": "KAOLACK", "departement": "NIORO", "maladie": "PPR", "espece": "caprins"},
	{"_id": 3, "departement": "NIORO", "date_foyer": "2024-02-02", "maladie": "PPR"}
]`

type fixture struct {
	set     repos.Set
	orch    *Orchestrator
	fetcher *fakeFetcher
	events  *redisx.MemoryPublisher
}

func setup(t *testing.T, concurrency int, sources ...*domain.FormSource) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	for _, src := range sources {
		if _, err := set.FormSources.UpsertByUID(dbctx.Context{Ctx: context.Background()}, src); err != nil {
			t.Fatalf("seed source %s: %v", src.UID, err)
		}
	}
	f := &fakeFetcher{data: map[string]string{}, errs: map[string]error{}}
	events := &redisx.MemoryPublisher{}
	orch, err := New(Deps{
		DB:          db,
		Repos:       set,
		Fetcher:     f,
		Events:      events,
		Concurrency: concurrency,
	}, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{set: set, orch: orch, fetcher: f, events: events}
}

func source(uid, parser string, active bool) *domain.FormSource {
	return &domain.FormSource{Name: "form " + uid, UID: uid, Token: "tok-" + uid, Parser: parser, Active: active}
}

func byUID(res RunResult) map[string]SourceResult {
	out := map[string]SourceResult{}
	for _, s := range res.Sources {
		out[s.SourceUID] = s
	}
	return out
}

func TestRunAllIsolatesFailingSource(t *testing.T) {
	fx := setup(t, 1,
		source("vacc", "vaccination", true),
		source("down", "outbreak", true),
		source("old", "vaccination", false),
	)
	fx.fetcher.data["vacc"] = vaccinations
	fx.fetcher.errs["down"] = errors.New("kobo http 503: unavailable")

	res := fx.orch.RunAll(context.Background())
	if len(res.Sources) != 2 {
		t.Fatalf("expected 2 active sources, got %d", len(res.Sources))
	}
	if fx.fetcher.Calls("old") != 0 {
		t.Fatalf("inactive source must not be fetched")
	}
	got := byUID(res)
	if s := got["vacc"]; s.Status != domain.SyncStatusSuccess || s.Message != "1 records processed" || s.Counts.Created != 1 {
		t.Fatalf("vacc result: %+v", s)
	}
	if s := got["down"]; s.Status != domain.SyncStatusFailure || !strings.Contains(s.Message, "503") {
		t.Fatalf("down result: %+v", s)
	}
	if res.Failures() != 1 {
		t.Fatalf("failures: %d", res.Failures())
	}

	runs, err := fx.set.SyncRuns.ListRecent(dbctx.Context{Ctx: context.Background()}, "", 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 run records, got %d", len(runs))
	}
	if evs := fx.events.Events(); len(evs) != 2 {
		t.Fatalf("expected 2 run events, got %d", len(evs))
	}
}

func TestRunPersistsQuarantineLinkedToRun(t *testing.T) {
	fx := setup(t, 1, source("foyers", "outbreak", true))
	fx.fetcher.data["foyers"] = outbreaks

	res := fx.orch.RunAll(context.Background())
	s := byUID(res)["foyers"]
	if s.Status != domain.SyncStatusSuccess || s.Counts.Processed != 3 || s.Counts.Created != 1 || s.Counts.Quarantined != 2 {
		t.Fatalf("result: %+v", s)
	}
	entries, err := fx.set.Quarantine.ListByRun(dbctx.Context{Ctx: context.Background()}, s.RunID)
	if err != nil {
		t.Fatalf("ListByRun: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 persisted entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Parser != "outbreak" || len(e.Payload) == 0 {
			t.Fatalf("entry: %+v", e)
		}
	}

	// A second run writes a new record and converges on the same facts.
	res2 := fx.orch.RunAll(context.Background())
	s2 := byUID(res2)["foyers"]
	if s2.RunID == s.RunID || s2.Counts.Unchanged != 1 || s2.Counts.Created != 0 {
		t.Fatalf("second run: %+v", s2)
	}
}

func TestUnknownParserFailsSource(t *testing.T) {
	fx := setup(t, 1, source("x", "census", true))
	res := fx.orch.RunAll(context.Background())
	s := byUID(res)["x"]
	if s.Status != domain.SyncStatusFailure || !strings.Contains(s.Message, "unknown parser") {
		t.Fatalf("result: %+v", s)
	}
	if fx.fetcher.Calls("x") != 0 {
		t.Fatalf("source with unknown parser must not be fetched")
	}
}

func TestRunAllConcurrentSources(t *testing.T) {
	var srcs []*domain.FormSource
	for _, uid := range []string{"a", "b", "c", "d"} {
		srcs = append(srcs, source(uid, "outbreak", true))
	}
	fx := setup(t, 3, srcs...)
	for _, uid := range []string{"a", "b", "c", "d"} {
		body := outbreaks
		for _, n := range []string{"1", "2", "3"} {
			body = strings.Replace(body, `"_id": `+n+`,`, `"_id": "`+uid+`-`+n+`",`, 1)
		}
		fx.fetcher.data[uid] = body
	}

	res := fx.orch.RunAll(context.Background())
	if len(res.Sources) != 4 || res.Failures() != 0 {
		t.Fatalf("result: %+v", res)
	}
	if tot := res.Totals(); tot.Created != 4 || tot.Quarantined != 8 {
		t.Fatalf("totals: %+v", tot)
	}
}

func TestSchedulerRefusesOverlappingRun(t *testing.T) {
	fx := setup(t, 1, source("slow", "outbreak", true))
	fx.fetcher.data["slow"] = `[]`
	fx.fetcher.block = make(chan struct{})
	sched := NewScheduler(fx.orch, 0, testutil.Logger(t))

	done := make(chan RunResult)
	go func() {
		res, _ := sched.Trigger(context.Background())
		done <- res
	}()
	deadline := time.Now().Add(2 * time.Second)
	for fx.fetcher.Calls("slow") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := sched.Trigger(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	close(fx.fetcher.block)
	if res := <-done; len(res.Sources) != 1 || res.Sources[0].Status != domain.SyncStatusSuccess {
		t.Fatalf("first run: %+v", res)
	}
}
