package reward

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/virala/virala-api/internal/middleware"
	"github.com/virala/virala-api/internal/pkg/response"
	"github.com/virala/virala-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type claimRequest struct {
	PostID     string `json:"post_id" validate:"required,uuid"`
	Type       string `json:"type" validate:"required,claim_type"`
	CampaignID string `json:"campaign_id" validate:"omitempty,uuid"`
}

type airdropRequest struct {
	UserIDs     []string `json:"user_ids" validate:"required,min=1,max=500,dive,uuid"`
	Amount      string   `json:"amount" validate:"required"`
	Description string   `json:"description" validate:"max=500"`
}

// Balance returns the authenticated user's balance aggregation
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, balance)
}

// Claim credits an ad view/engagement reward for a post
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req claimRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	postID, err := uuid.Parse(req.PostID)
	if err != nil {
		response.BadRequest(w, "invalid post_id")
		return
	}

	var campaignID uuid.NullUUID
	if req.CampaignID != "" {
		id, err := uuid.Parse(req.CampaignID)
		if err != nil {
			response.BadRequest(w, "invalid campaign_id")
			return
		}
		campaignID = uuid.NullUUID{UUID: id, Valid: true}
	}

	tx, err := h.svc.Claim(r.Context(), userID, postID, TxType(req.Type), campaignID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyClaimed):
			response.Conflict(w, "reward already claimed for this post")
		case errors.Is(err, ErrInvalidClaimType), errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "invalid claim")
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "user not found")
		default:
			response.InternalError(w)
		}
		return
	}

	payload := map[string]interface{}{
		"reward": map[string]interface{}{
			"type":    tx.Type,
			"amount":  tx.Amount,
			"post_id": req.PostID,
		},
	}
	if balance, err := h.svc.GetBalance(r.Context(), userID); err == nil {
		payload["balance"] = balance.Balance
	}

	response.OK(w, payload)
}

// History returns the user's paginated transaction history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	filter := HistoryFilter{
		Type:   TxType(r.URL.Query().Get("type")),
		Cursor: r.URL.Query().Get("cursor"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filter.Limit = parsed
		}
	}
	if filter.Type != "" {
		if err := validator.ValidateVar(string(filter.Type), "reward_type"); err != nil {
			response.BadRequest(w, "invalid type filter")
			return
		}
	}

	transactions, nextCursor, err := h.svc.GetHistory(r.Context(), userID, filter)
	if err != nil {
		if errors.Is(err, ErrInvalidCursor) {
			response.BadRequest(w, "invalid cursor")
			return
		}
		response.InternalError(w)
		return
	}

	response.WithMeta(w, map[string]interface{}{"transactions": transactions}, response.Meta{
		Limit:      filter.Limit,
		NextCursor: nextCursor,
		HasMore:    nextCursor != "",
	})
}

// SignupBonus grants the one-time welcome credit to the caller
func (h *Handler) SignupBonus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	tx, err := h.svc.IssueSignupBonus(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyClaimed):
			response.Conflict(w, "signup bonus already granted")
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "user not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]interface{}{
		"reward": map[string]interface{}{
			"type":   tx.Type,
			"amount": tx.Amount,
		},
	})
}

// Airdrop bulk-credits a token amount to a list of users (admin)
func (h *Handler) Airdrop(w http.ResponseWriter, r *http.Request) {
	var req airdropRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.BadRequest(w, "invalid amount")
		return
	}

	userIDs := make([]uuid.UUID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "invalid user id: "+raw)
			return
		}
		userIDs = append(userIDs, id)
	}

	result, err := h.svc.Airdrop(r.Context(), userIDs, amount, req.Description)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			response.BadRequest(w, "amount must be greater than zero")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// parseAmount parses a positive token amount with at most 8 fractional digits
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() || d.Exponent() < -8 {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Routes mounts the user-facing reward endpoints
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/balance", h.Balance)
	r.Post("/claim", h.Claim)
	r.Get("/history", h.History)
	r.Get("/transactions", h.History)
	r.Post("/signup-bonus", h.SignupBonus)
	return r
}
