package api

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/smileshop/keystore/models"
	"github.com/smileshop/keystore/services"
	"github.com/smileshop/keystore/utils"
)

// NotificationVerifier checks the token on an inbound processor callback.
type NotificationVerifier interface {
	VerifyNotification(fields map[string]interface{}, claimedToken string) bool
}

type WebhookHandler struct {
	verifier NotificationVerifier
	webhooks *services.WebhookService
	logger   *utils.Logger
}

func CreateWebhookHandler(verifier NotificationVerifier, webhooks *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		webhooks: webhooks,
		logger:   utils.NewLogger("webhook-api"),
	}
}

type webhookAck struct {
	OK bool `json:"ok"`
}

// HandleTBankWebhook is the processor-facing notification endpoint. Only a
// malformed payload (400) or a bad signature (403) is rejected; every other
// outcome answers 200 so the processor does not retry conditions that
// cannot resolve themselves.
func (h *WebhookHandler) HandleTBankWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, utils.ErrWebhookInvalidPayload)
		return
	}

	n, err := services.ParseNotification(body)
	if err != nil {
		h.logger.Warn(r.Context(), "rejected malformed notification", map[string]interface{}{
			"error": err.Error(),
		})
		writeError(w, utils.ErrWebhookInvalidPayload)
		return
	}

	if !h.verifier.VerifyNotification(n.Fields, n.Token) {
		// A bad token is either tampering or a terminal misconfiguration;
		// both deserve a loud log line.
		h.logger.Error(r.Context(), "rejected notification with invalid signature", map[string]interface{}{
			"correlation_id": n.CorrelationID,
			"payment_id":     n.PaymentID,
		})
		h.webhooks.Record(r.Context(), n, models.WebhookOutcomeRejected)
		writeError(w, utils.ErrWebhookInvalidSignature)
		return
	}

	h.webhooks.Process(r.Context(), n)

	writeJSON(w, http.StatusOK, webhookAck{OK: true})
}

func (h *WebhookHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/webhooks/tbank", h.HandleTBankWebhook).Methods("POST")
}
