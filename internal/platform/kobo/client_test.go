package kobo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kailou1991/ahis-001-sub001/internal/platform/logger"
)

func testClient(maxRetries int) *Client {
	return NewClient(Config{
		Timeout:        2 * time.Second,
		MaxRetries:     maxRetries,
		MaxPages:       10,
		InitialBackoff: time.Millisecond,
	}, logger.Nop())
}

func TestFetchFollowsPagesAndSendsToken(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token secret" {
			t.Errorf("authorization header: %q", got)
		}
		if r.URL.Path != "/api/v2/assets/aXyZ/data.json" {
			t.Errorf("path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("start") == "" {
			fmt.Fprintf(w, `{"count": 3, "next": "%s/api/v2/assets/aXyZ/data.json?start=2", "results": [{"_id": 1}, {"_id": 2, "n": 12345678901}]}`, srv.URL)
			return
		}
		fmt.Fprint(w, `{"count": 3, "next": null, "results": [{"_id": 3}]}`)
	}))
	defer srv.Close()

	recs, err := testClient(0).Fetch(context.Background(), "aXyZ", "secret", srv.URL+"/")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	n, ok := recs[1]["n"].(json.Number)
	if !ok || n.String() != "12345678901" {
		t.Fatalf("numbers must stay json.Number, got %T %v", recs[1]["n"], recs[1]["n"])
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"results": [{"_id": 1}]}`)
	}))
	defer srv.Close()

	recs, err := testClient(2).Fetch(context.Background(), "u", "t", srv.URL)
	if err != nil || len(recs) != 1 {
		t.Fatalf("Fetch: %v (%d records)", err, len(recs))
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestFetchSingleAttemptWithoutRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "busy", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(0).Fetch(context.Background(), "u", "t", srv.URL)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected HTTPError 502, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", calls.Load())
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(3).Fetch(context.Background(), "u", "t", srv.URL)
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("401 must not be retried, got %d calls", calls.Load())
	}
}

func TestFetchMalformedJSON(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"results": [`)
	}))
	defer srv.Close()

	if _, err := testClient(3).Fetch(context.Background(), "u", "t", srv.URL); err == nil {
		t.Fatalf("expected decode error")
	}
	if calls.Load() != 1 {
		t.Fatalf("decode errors must not be retried, got %d calls", calls.Load())
	}
}

func TestFetchRequiresUID(t *testing.T) {
	if _, err := testClient(0).Fetch(context.Background(), " ", "t", ""); err == nil {
		t.Fatalf("expected error for empty uid")
	}
}

func TestFetchRejectsListingWithoutResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"detail": "Not found."}`)
	}))
	defer srv.Close()

	if _, err := testClient(0).Fetch(context.Background(), "u", "t", srv.URL); err == nil {
		t.Fatalf("expected error for a body without results")
	}
}

func TestFetchEmptyResultsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count": 0, "next": null, "results": []}`)
	}))
	defer srv.Close()

	recs, err := testClient(0).Fetch(context.Background(), "u", "t", srv.URL)
	if err != nil || len(recs) != 0 {
		t.Fatalf("empty form: %v %d", err, len(recs))
	}
}

func TestFetchDoesNotFollowNextToAnotherHost(t *testing.T) {
	var foreignCalls atomic.Int32
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignCalls.Add(1)
		fmt.Fprint(w, `{"results": []}`)
	}))
	defer foreign.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"next": "%s/steal?start=1", "results": [{"_id": 1}]}`, foreign.URL)
	}))
	defer srv.Close()

	if _, err := testClient(0).Fetch(context.Background(), "u", "secret", srv.URL); err == nil {
		t.Fatalf("expected error for a cross-host next link")
	}
	if foreignCalls.Load() != 0 {
		t.Fatalf("token must not be sent to another host, got %d calls", foreignCalls.Load())
	}
}

func TestFetchResolvesRelativeNext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") == "" {
			fmt.Fprint(w, `{"next": "/api/v2/assets/u/data.json?start=1", "results": [{"_id": 1}]}`)
			return
		}
		fmt.Fprint(w, `{"next": null, "results": [{"_id": 2}]}`)
	}))
	defer srv.Close()

	recs, err := testClient(0).Fetch(context.Background(), "u", "t", srv.URL)
	if err != nil || len(recs) != 2 {
		t.Fatalf("relative next: %v %d", err, len(recs))
	}
}
