package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/smileshop/keystore/models"
	"github.com/smileshop/keystore/security"
	"github.com/smileshop/keystore/utils"
	"gorm.io/gorm"
)

const statusConfirmed = "CONFIRMED"

// Notification is a parsed processor callback. Fields keeps the full
// decoded payload for signature verification, with numbers preserved as
// json.Number so the canonical string matches what the processor signed.
type Notification struct {
	CorrelationID string
	Status        string
	Success       bool
	PaymentID     string
	Token         string
	Fields        map[string]interface{}
}

// ParseNotification decodes an inbound webhook body. Returns an error only
// for malformed payloads: unparseable JSON or missing OrderId/Status.
func ParseNotification(body []byte) (*Notification, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("unparseable notification body: %w", err)
	}

	orderID, _ := fields["OrderId"].(string)
	status, _ := fields["Status"].(string)
	if orderID == "" || status == "" {
		return nil, errors.New("notification is missing OrderId or Status")
	}

	success, _ := fields["Success"].(bool)
	token, _ := fields["Token"].(string)

	n := &Notification{
		CorrelationID: orderID,
		Status:        status,
		Success:       success,
		Token:         token,
		Fields:        fields,
	}
	if v, ok := fields["PaymentId"]; ok {
		n.PaymentID = security.Flatten(v)
	}

	return n, nil
}

type WebhookService struct {
	orders      OrderStore
	events      WebhookEventStore
	fulfillment *FulfillmentService
	logger      *utils.Logger
}

func CreateWebhookService(orders OrderStore, events WebhookEventStore, fulfillment *FulfillmentService) *WebhookService {
	return &WebhookService{
		orders:      orders,
		events:      events,
		fulfillment: fulfillment,
		logger:      utils.NewLogger("webhook"),
	}
}

// Process handles a signature-verified notification and returns what became
// of it. It never returns an error: every internal failure is logged and
// swallowed so the processor sees a success and stops retrying.
func (s *WebhookService) Process(ctx context.Context, n *Notification) models.WebhookOutcome {
	outcome := s.process(ctx, n)
	s.Record(ctx, n, outcome)
	return outcome
}

func (s *WebhookService) process(ctx context.Context, n *Notification) models.WebhookOutcome {
	if !n.Success || n.Status != statusConfirmed {
		s.logger.Info(ctx, "non-final payment status, nothing to do", map[string]interface{}{
			"correlation_id": n.CorrelationID,
			"status":         n.Status,
			"success":        n.Success,
		})
		return models.WebhookOutcomeSkipped
	}

	buyerID, gameID, err := models.ParseCorrelationID(n.CorrelationID)
	if err != nil {
		utils.LogError(ctx, err, "unusable correlation id in confirmed notification", map[string]interface{}{
			"correlation_id": n.CorrelationID,
		})
		return models.WebhookOutcomeSkipped
	}

	order, err := s.orders.FindLatestByBuyerAndGame(ctx, buyerID, gameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn(ctx, "no order matches confirmed notification", map[string]interface{}{
				"correlation_id": n.CorrelationID,
				"buyer_id":       buyerID,
				"game_id":        gameID,
			})
		} else {
			utils.LogError(ctx, err, "order lookup failed for confirmed notification", map[string]interface{}{
				"correlation_id": n.CorrelationID,
			})
		}
		return models.WebhookOutcomeSkipped
	}

	if err := s.fulfillment.Fulfill(ctx, order); err != nil {
		if errors.Is(err, ErrAlreadyFulfilled) {
			s.logger.Info(ctx, "duplicate delivery for fulfilled order", map[string]interface{}{
				"order_id":       order.ID,
				"correlation_id": n.CorrelationID,
			})
			return models.WebhookOutcomeDuplicate
		}
		if errors.Is(err, ErrOrderFailed) {
			s.logger.Warn(ctx, "confirmed notification for a released order", map[string]interface{}{
				"order_id":       order.ID,
				"correlation_id": n.CorrelationID,
			})
			return models.WebhookOutcomeSkipped
		}
		utils.LogError(ctx, err, "fulfillment failed", map[string]interface{}{
			"order_id":       order.ID,
			"correlation_id": n.CorrelationID,
		})
		return models.WebhookOutcomeError
	}

	return models.WebhookOutcomeFulfilled
}

// Record persists the notification to the audit trail. Best effort only.
func (s *WebhookService) Record(ctx context.Context, n *Notification, outcome models.WebhookOutcome) {
	event := &models.WebhookEvent{
		ID:            uuid.NewString(),
		Provider:      "tbank",
		PaymentID:     n.PaymentID,
		CorrelationID: n.CorrelationID,
		Status:        n.Status,
		Outcome:       outcome,
		Payload:       models.JSON(n.Fields),
	}
	if err := s.events.Create(ctx, event); err != nil {
		utils.LogError(ctx, err, "failed to record webhook event", map[string]interface{}{
			"correlation_id": n.CorrelationID,
		})
	}
}
