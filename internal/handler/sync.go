package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"nabil-inventory-api/internal/service"
	"nabil-inventory-api/pkg/apierror"
	"nabil-inventory-api/pkg/response"
)

// SyncHandler handles manual sync, export, and import requests.
type SyncHandler struct {
	coordinator *service.SyncCoordinator
	inv         *service.InventoryService
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(coordinator *service.SyncCoordinator, inv *service.InventoryService) *SyncHandler {
	return &SyncHandler{coordinator: coordinator, inv: inv}
}

// ManualSync handles POST /api/v1/sync. Unlike background pushes, failures
// here surface to the caller.
func (h *SyncHandler) ManualSync(w http.ResponseWriter, r *http.Request) {
	err := h.coordinator.ManualSync(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSyncBusy):
			response.Error(w, apierror.Conflict("sync already in progress"))
		case errors.Is(err, service.ErrNoSession):
			response.Error(w, apierror.Unauthorized("login required"))
		default:
			response.Error(w, apierror.BadGateway("cloud sync failed, please try again later"))
		}
		return
	}

	response.OK(w, map[string]string{"status": "synced"})
}

// Export handles GET /api/v1/export: streams the full dataset as a
// date-stamped, human-inspectable JSON attachment.
func (h *SyncHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := service.EncodeSnapshot(h.inv.State())
	if err != nil {
		response.Error(w, apierror.InternalError("failed to build export"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename=%q`, service.ExportFilename(time.Now())))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import handles POST /api/v1/import: a full-dataset replace from a backup
// file, following the same overwrite-and-reload path as a cloud pull.
func (h *SyncHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, apierror.BadRequest("failed to read request body"))
		return
	}
	defer r.Body.Close()

	snap, err := service.DecodeSnapshot(body)
	if err != nil {
		response.Error(w, apierror.BadRequest(err.Error()))
		return
	}

	if err := h.coordinator.Import(r.Context(), snap); err != nil {
		switch {
		case errors.Is(err, service.ErrSyncBusy):
			response.Error(w, apierror.Conflict("sync already in progress"))
		case errors.Is(err, service.ErrNoSession):
			response.Error(w, apierror.Unauthorized("login required"))
		default:
			response.Error(w, err)
		}
		return
	}

	response.OK(w, map[string]interface{}{
		"status":     "imported",
		"categories": len(snap.Categories),
		"products":   len(snap.Products),
		"sales":      len(snap.Sales),
	})
}
