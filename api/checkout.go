package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/smileshop/keystore/services"
	"github.com/smileshop/keystore/utils"
)

type CheckoutHandler struct {
	checkout *services.CheckoutService
}

func CreateCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type CreateOrderRequest struct {
	UserID uint   `json:"user_id"`
	GameID uint   `json:"game_id"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
}

type CreateOrderResponse struct {
	Order      interface{} `json:"order"`
	PaymentURL string      `json:"payment_url"`
	PaymentID  string      `json:"payment_id,omitempty"`
}

const maxOrderBodyBytes = 1 << 20

// HandleCreateOrder reserves a key for the authenticated buyer and starts
// the payment. The buyer identity comes from the auth middleware; a body
// user_id that disagrees with it is rejected.
func (h *CheckoutHandler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	if err := utils.ValidateRequestSize(r, maxOrderBodyBytes); err != nil {
		writeError(w, err)
		return
	}

	buyerIDStr := utils.GetBuyerID(r.Context())
	if buyerIDStr == "" {
		writeError(w, utils.ErrUnauthorized)
		return
	}
	buyerID, err := strconv.ParseUint(buyerIDStr, 10, 32)
	if err != nil {
		writeError(w, utils.ErrUnauthorized)
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.UserID == 0 || req.GameID == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing user_id or game_id"})
		return
	}
	if req.UserID != uint(buyerID) {
		writeError(w, utils.ErrForbidden)
		return
	}
	if verr := utils.ValidateEmail(req.Email, "email"); verr != nil {
		writeError(w, utils.NewAPIErrorWithDetails(utils.ErrInvalidRequest.Code, utils.ErrInvalidRequest.Message, verr.Error()))
		return
	}
	if verr := utils.ValidatePhone(req.Phone, "phone"); verr != nil {
		writeError(w, utils.NewAPIErrorWithDetails(utils.ErrInvalidRequest.Code, utils.ErrInvalidRequest.Message, verr.Error()))
		return
	}

	result, err := h.checkout.Purchase(r.Context(), req.GameID, uint(buyerID), req.Email, req.Phone)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CreateOrderResponse{
		Order:      result.Order,
		PaymentURL: result.PaymentURL,
		PaymentID:  result.PaymentID,
	})
}

func (h *CheckoutHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/orders", h.HandleCreateOrder).Methods("POST")
}
