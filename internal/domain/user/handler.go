package user

import (
	"errors"
	"net/http"

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

type profileResponse struct {
	ID             uuid.UUID       `json:"id"`
	Email          string          `json:"email"`
	Role           Role            `json:"role"`
	WalletAddress  string          `json:"wallet_address,omitempty"`
	ReferralCode   string          `json:"referral_code"`
	Balance        decimal.Decimal `json:"balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`
}

// Me returns the authenticated user's profile
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	u, err := h.svc.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, profileResponse{
		ID:             u.ID,
		Email:          u.Email,
		Role:           u.Role,
		WalletAddress:  u.WalletAddress.String,
		ReferralCode:   u.ReferralCode,
		Balance:        u.OffChainBalance,
		TotalEarned:    u.TotalEarned,
		TotalWithdrawn: u.TotalWithdrawn,
	})
}

type linkWalletRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required,eth_address"`
}

// LinkWallet stores the authenticated user's settlement address
func (h *Handler) LinkWallet(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req linkWalletRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	address, err := h.svc.LinkWallet(r.Context(), userID, req.WalletAddress)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAddress):
			response.BadRequest(w, "Invalid wallet address")
		case errors.Is(err, ErrUserNotFound):
			response.NotFound(w, "User not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]string{"wallet_address": address})
}

// Routes mounts the user directory endpoints, all authenticated
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/me", h.Me)
	r.Post("/wallet", h.LinkWallet)
	return r
}
