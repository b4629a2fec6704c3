package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos"
	"github.com/Kailou1991/ahis-001-sub001/internal/http/response"
	"github.com/Kailou1991/ahis-001-sub001/internal/ingestion/orchestrator"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
)

// Trigger runs one sync; orchestrator.Scheduler satisfies it.
type Trigger interface {
	Trigger(ctx context.Context) (orchestrator.RunResult, error)
}

type SyncHandler struct {
	trigger    Trigger
	runs       repos.SyncRunRepo
	quarantine repos.QuarantineRepo
}

func NewSyncHandler(trigger Trigger, runs repos.SyncRunRepo, quarantine repos.QuarantineRepo) *SyncHandler {
	return &SyncHandler{trigger: trigger, runs: runs, quarantine: quarantine}
}

// POST /api/sync
func (h *SyncHandler) RunSync(c *gin.Context) {
	// A dropped client does not abort the run.
	res, err := h.trigger.Trigger(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, orchestrator.ErrRunInProgress) {
		response.RespondError(c, http.StatusConflict, "sync_in_progress", err)
		return
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "sync_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"result": res, "totals": res.Totals(), "failures": res.Failures()})
}

// GET /api/sync/runs?source=<uid>&limit=N
func (h *SyncHandler) ListRuns(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}
	runs, err := h.runs.ListRecent(dbctx.Context{Ctx: c.Request.Context()}, c.Query("source"), limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_runs_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}

// GET /api/sync/runs/:id/quarantine
func (h *SyncHandler) ListQuarantine(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	run, err := h.runs.GetByID(dbc, runID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_run_failed", err)
		return
	}
	if run == nil {
		response.RespondError(c, http.StatusNotFound, "run_not_found", fmt.Errorf("run %s not found", runID))
		return
	}
	entries, err := h.quarantine.ListByRun(dbc, runID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_quarantine_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"run": run, "quarantine": entries})
}
