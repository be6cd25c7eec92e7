package distribution

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/virala/virala-api/internal/pkg/response"
)

type Handler struct {
	svc          *Service
	defaultBatch int
}

func NewHandler(svc *Service, defaultBatchSize int) *Handler {
	return &Handler{svc: svc, defaultBatch: defaultBatchSize}
}

type runRequest struct {
	MaxSize int `json:"max_size"`
}

// Run triggers a distribution batch immediately
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.ContentLength > 0 {
		if err := response.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, "Invalid request body")
			return
		}
	}

	maxSize := req.MaxSize
	if maxSize <= 0 {
		maxSize = h.defaultBatch
	}
	if maxSize > 500 {
		maxSize = 500
	}

	result, err := h.svc.RunBatch(r.Context(), maxSize)
	if err != nil {
		if errors.Is(err, ErrDistributionDisabled) {
			response.ServiceUnavailable(w, "On-chain distribution is not configured")
			return
		}
		log.Error().Err(err).Msg("Distribution run failed")
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// ListBatches returns recent distribution batches
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	batches, err := h.svc.ListBatches(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list distribution batches")
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"batches": batches})
}

// GetBatch returns one batch by id
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid batch id")
		return
	}

	batch, err := h.svc.GetBatch(r.Context(), batchID)
	if err != nil {
		log.Error().Err(err).Str("batch_id", batchID.String()).Msg("Failed to get distribution batch")
		response.InternalError(w)
		return
	}
	if batch == nil {
		response.NotFound(w, "Batch not found")
		return
	}

	response.OK(w, batch)
}

// Routes mounts the admin distribution endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/distribute", h.Run)
	r.Get("/batches", h.ListBatches)
	r.Get("/batches/{id}", h.GetBatch)
	return r
}
