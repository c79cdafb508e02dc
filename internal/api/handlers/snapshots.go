package handlers

import (
	"net/http"

	"github.com/eshaffer321/ledger-tagger/internal/api/dto"
	"github.com/eshaffer321/ledger-tagger/internal/infrastructure/storage"
	"github.com/gin-gonic/gin"
)

// SnapshotsHandler lists stored ledger snapshots.
type SnapshotsHandler struct {
	*Base
}

// NewSnapshotsHandler creates a new snapshots handler.
func NewSnapshotsHandler(repo storage.Repository) *SnapshotsHandler {
	return &SnapshotsHandler{Base: NewBase(repo)}
}

// List handles GET /api/snapshots.
func (h *SnapshotsHandler) List(c *gin.Context) {
	infos, err := h.repo.ListSnapshots(ParseIntParam(c, "limit", 20))
	if err != nil {
		h.WriteError(c, http.StatusInternalServerError, dto.StoreUnavailable("snapshots"))
		return
	}

	response := dto.SnapshotListResponse{
		Snapshots: make([]dto.SnapshotResponse, 0, len(infos)),
		Count:     len(infos),
	}
	for _, info := range infos {
		response.Snapshots = append(response.Snapshots, dto.SnapshotResponse{
			Epoch:            info.Epoch,
			TransactionCount: info.TransactionCount,
			CreatedAt:        formatTime(info.CreatedAt),
		})
	}

	h.WriteJSON(c, http.StatusOK, response)
}
