package withdrawal

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/virala/virala-api/internal/domain/user"
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

type withdrawRequest struct {
	Amount        string `json:"amount" validate:"required"`
	WalletAddress string `json:"wallet_address" validate:"omitempty,eth_address"`
}

// Withdraw queues a withdrawal of off-chain tokens to a wallet
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req withdrawRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Exponent() < -8 {
		response.BadRequest(w, "invalid amount")
		return
	}

	result, err := h.svc.Request(r.Context(), userID, amount, req.WalletAddress)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "amount must be greater than zero")
		case errors.Is(err, ErrAmountOutOfBounds):
			response.BadRequest(w, "amount is outside the allowed withdrawal bounds")
		case errors.Is(err, ErrInsufficientBalance):
			response.Conflict(w, "insufficient balance")
		case errors.Is(err, ErrNoWalletLinked):
			response.BadRequest(w, "no wallet address linked to this account")
		case errors.Is(err, ErrInvalidAddress):
			response.BadRequest(w, "invalid wallet address")
		case errors.Is(err, user.ErrUserNotFound):
			response.NotFound(w, "user not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}
