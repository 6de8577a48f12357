package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloudgovern/policyaudit/internal/api/dto"
	"github.com/cloudgovern/policyaudit/internal/domain/snapshot"
	"github.com/cloudgovern/policyaudit/internal/pkg/errors"
	"github.com/cloudgovern/policyaudit/internal/pkg/logger"
	"github.com/cloudgovern/policyaudit/internal/pkg/utils"
	"github.com/cloudgovern/policyaudit/internal/services"
)

// SnapshotHandler serves stored assessment snapshots and deltas
type SnapshotHandler struct {
	service *services.AssessmentService
	repo    snapshot.Repository
	logger  *logger.Logger
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(service *services.AssessmentService, repo snapshot.Repository, log *logger.Logger) *SnapshotHandler {
	return &SnapshotHandler{service: service, repo: repo, logger: log}
}

// List returns snapshot metadata for a tenant, newest first
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		utils.WriteError(w, errors.BadRequest("tenant_id query parameter is required"))
		return
	}

	params := utils.ParsePaginationParams(r.URL.Query().Get("page"), r.URL.Query().Get("page_size"))

	snaps, err := h.repo.List(r.Context(), tenantID, params.PageSize)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to list snapshots")
		writeServiceError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.ToSnapshotMetaDTOs(snaps))
}

// Get returns one snapshot by ID, record payloads included
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, snap)
}

// Latest returns the most recent snapshot for a tenant
func (h *SnapshotHandler) Latest(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		utils.WriteError(w, errors.BadRequest("tenant_id query parameter is required"))
		return
	}

	snap, err := h.repo.Latest(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if snap == nil {
		utils.WriteError(w, errors.NotFound("snapshot"))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, snap)
}

// Delta computes the change report between two stored snapshots
func (h *SnapshotHandler) Delta(w http.ResponseWriter, r *http.Request) {
	fromID := r.URL.Query().Get("from")
	toID := r.URL.Query().Get("to")
	if fromID == "" || toID == "" {
		utils.WriteError(w, errors.BadRequest("from and to query parameters are required"))
		return
	}

	result, err := h.service.DeltaBetween(r.Context(), fromID, toID)
	if err != nil {
		h.logger.ErrorWithErr(err, "Delta computation failed")
		writeServiceError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, result)
}

// Coverage matches the latest snapshot's records against the baseline catalog
func (h *SnapshotHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		utils.WriteError(w, errors.BadRequest("tenant_id query parameter is required"))
		return
	}

	snap, err := h.repo.Latest(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if snap == nil {
		utils.WriteError(w, errors.NotFound("snapshot"))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, h.service.Coverage(snap.Assignments))
}
