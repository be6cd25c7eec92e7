package referral

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/virala/virala-api/internal/domain/user"
	"github.com/virala/virala-api/internal/middleware"
	"github.com/virala/virala-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Stats returns the authenticated user's referral stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	stats, err := h.svc.GetStats(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, stats)
}

// TierTable returns the static tier configuration
func (h *Handler) TierTable(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]interface{}{"tiers": Tiers()})
}

// Leaderboard returns the top referrers
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	entries, err := h.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"leaderboard": entries})
}

// ResolveCode reports whether a referral code is usable
func (h *Handler) ResolveCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		response.BadRequest(w, "missing referral code")
		return
	}

	valid, err := h.svc.ResolveCode(r.Context(), code)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"code": code, "valid": valid})
}

// Routes mounts referral endpoints. Tier table, leaderboard and code
// resolution are public; stats requires auth.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/tiers", h.TierTable)
	r.Get("/leaderboard", h.Leaderboard)
	r.Get("/code/{code}", h.ResolveCode)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/stats", h.Stats)
	})
	return r
}
