package handlers

import (
	"errors"
	"net/http"

	"github.com/eshaffer321/ledger-tagger/internal/api/dto"
	"github.com/eshaffer321/ledger-tagger/internal/domain/ledger"
	"github.com/eshaffer321/ledger-tagger/internal/infrastructure/storage"
	"github.com/gin-gonic/gin"
)

// RunsHandler handles run-related HTTP requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns recent runs, newest first.
func (h *RunsHandler) List(c *gin.Context) {
	limit := ParseIntParam(c, "limit", 20)

	runs, err := h.repo.ListRuns(limit)
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.StoreUnavailable("runs"))
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(c, http.StatusOK, response)
}

// Get handles GET /api/runs/:id - returns a single run.
func (h *RunsHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		h.WriteError(c, http.StatusBadRequest, dto.MissingRunID())
		return
	}

	run, err := h.repo.GetRun(id)
	if errors.Is(err, storage.ErrNotFound) {
		h.WriteError(c, http.StatusNotFound, dto.RunNotFound(id))
		return
	}
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.StoreUnavailable("runs"))
		return
	}

	h.WriteJSON(c, http.StatusOK, toRunResponse(*run))
}

// Updates handles GET /api/runs/:id/updates - returns the updates a run
// proposed. applied=true restricts the list to updates sent to the ledger.
func (h *RunsHandler) Updates(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.repo.GetRun(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.WriteError(c, http.StatusNotFound, dto.RunNotFound(id))
			return
		}
		h.WriteError(c, http.StatusInternalServerError, dto.StoreUnavailable("runs"))
		return
	}

	records, err := h.repo.GetUpdates(id)
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.StoreUnavailable("updates"))
		return
	}

	appliedOnly := ParseBoolParam(c, "applied", false)
	response := dto.UpdateListResponse{RunID: id, Updates: make([]dto.UpdateResponse, 0, len(records))}
	for _, r := range records {
		if appliedOnly && !r.Applied {
			continue
		}
		response.Updates = append(response.Updates, toUpdateResponse(r))
	}
	response.Count = len(response.Updates)

	h.WriteJSON(c, http.StatusOK, response)
}

func toRunResponse(run storage.Run) dto.RunResponse {
	resp := dto.RunResponse{
		ID:          run.ID,
		StartedAt:   formatTime(run.StartedAt),
		DryRun:      run.DryRun,
		RetagMode:   run.RetagMode,
		Status:      run.Status,
		Stats:       run.Stats,
		UpdateCount: run.UpdateCount,
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = formatTime(*run.CompletedAt)
	}
	return resp
}

func toUpdateResponse(r storage.UpdateRecord) dto.UpdateResponse {
	resp := dto.UpdateResponse{
		ID:            r.ID,
		TransactionID: r.TransactionID,
		Outcome:       r.Outcome,
		Kind:          r.Kind,
		Applied:       r.Applied,
		Proposed:      make([]dto.EntryResponse, 0, len(r.Proposed)),
		CreatedAt:     formatTime(r.CreatedAt),
	}
	if r.Original != nil {
		original := toEntryResponse(r.Original)
		resp.Original = &original
	}
	for _, p := range r.Proposed {
		resp.Proposed = append(resp.Proposed, toEntryResponse(p))
	}
	return resp
}

func toEntryResponse(t *ledger.Transaction) dto.EntryResponse {
	return dto.EntryResponse{
		ID:       t.ID,
		Date:     t.Date.Format("2006-01-02"),
		Merchant: t.Merchant,
		Amount:   t.Amount.Decimal().StringFixed(2),
		Category: t.Category,
		Note:     t.Note,
	}
}
