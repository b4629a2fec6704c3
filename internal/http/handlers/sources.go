package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kailou1991/ahis-001-sub001/internal/data/repos"
	"github.com/Kailou1991/ahis-001-sub001/internal/http/response"
	"github.com/Kailou1991/ahis-001-sub001/internal/pkg/dbctx"
)

type SourceHandler struct {
	sources repos.FormSourceRepo
}

func NewSourceHandler(sources repos.FormSourceRepo) *SourceHandler {
	return &SourceHandler{sources: sources}
}

// GET /api/sources
func (h *SourceHandler) ListSources(c *gin.Context) {
	list, err := h.sources.List(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_sources_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"sources": list})
}
