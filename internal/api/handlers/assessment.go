package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/cloudgovern/policyaudit/internal/api/dto"
	"github.com/cloudgovern/policyaudit/internal/normalizer"
	"github.com/cloudgovern/policyaudit/internal/pkg/errors"
	"github.com/cloudgovern/policyaudit/internal/pkg/logger"
	"github.com/cloudgovern/policyaudit/internal/pkg/utils"
	"github.com/cloudgovern/policyaudit/internal/pkg/validator"
	"github.com/cloudgovern/policyaudit/internal/services"
)

// AssessmentHandler runs on-demand assessments over submitted records
type AssessmentHandler struct {
	service   *services.AssessmentService
	resolver  *normalizer.StaticResolver
	logger    *logger.Logger
	validator *validator.Validator
}

// NewAssessmentHandler creates a new assessment handler. The resolver may be
// nil when the service normalizes through a live governance API resolver;
// request-supplied definitions are then ignored.
func NewAssessmentHandler(service *services.AssessmentService, resolver *normalizer.StaticResolver, log *logger.Logger, val *validator.Validator) *AssessmentHandler {
	return &AssessmentHandler{service: service, resolver: resolver, logger: log, validator: val}
}

// Run normalizes, classifies and scores the submitted assignments, and
// optionally persists the resulting snapshot and diffs it against the
// tenant's latest one.
func (h *AssessmentHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req dto.RunAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	if h.resolver != nil {
		for _, def := range req.ToDefinitions() {
			h.resolver.Add(def)
		}
	}

	result, err := h.service.Run(r.Context(), req.ToServiceInput())
	if err != nil {
		h.logger.ErrorWithErr(err, "Assessment run failed")
		writeServiceError(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusOK, result)
}

// writeServiceError maps a service error to an HTTP response
func writeServiceError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		utils.WriteError(w, appErr)
		return
	}
	utils.WriteError(w, errors.Internal("Internal server error", err))
}
