package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smileshop/keystore/models"
	"github.com/smileshop/keystore/notify"
	"github.com/smileshop/keystore/resilience"
	"github.com/smileshop/keystore/utils"
)

// ErrAlreadyFulfilled signals that a duplicate delivery lost the
// compare-and-set race and no notification was sent.
var ErrAlreadyFulfilled = errors.New("order already fulfilled")

// ErrOrderFailed signals that the order was released (its key returned to
// the pool), so there is nothing left to deliver.
var ErrOrderFailed = errors.New("order is marked failed")

type FulfillmentService struct {
	orders OrderStore
	games  GameStore
	sender notify.Sender
	retry  *resilience.RetryConfig
	logger *utils.Logger
}

func CreateFulfillmentService(orders OrderStore, games GameStore, sender notify.Sender) *FulfillmentService {
	return &FulfillmentService{
		orders: orders,
		games:  games,
		sender: sender,
		retry: &resilience.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   50 * time.Millisecond,
			MaxDelay:    2 * time.Second,
			Multiplier:  2.0,
			Jitter:      true,
		},
		logger: utils.NewLogger("fulfillment"),
	}
}

// Fulfill delivers the purchased key by email, at most once per order. The
// order status is flipped to fulfilled atomically before the send, so a
// retried webhook can never trigger a second delivery. A send failure is
// reported to the caller but does not revert the status decision.
func (s *FulfillmentService) Fulfill(ctx context.Context, order *models.Order) error {
	ok, err := s.orders.MarkFulfilled(ctx, order.ID)
	if err != nil {
		return utils.WrapError(err, "failed to update order status")
	}
	if !ok {
		if current, lookupErr := s.orders.GetByID(ctx, order.ID); lookupErr == nil && current.Status == models.OrderStatusFailed {
			return ErrOrderFailed
		}
		return ErrAlreadyFulfilled
	}

	title := "your game"
	if game, err := s.games.GetByID(ctx, order.GameID); err == nil {
		title = game.Title
	}

	htmlBody, textBody, err := notify.RenderGameKeyEmail(notify.GameKeyEmailParams{
		UserName:     userNameFromEmail(order.Email),
		GameTitle:    title,
		GameKey:      order.Key,
		Price:        order.Price,
		PurchaseDate: order.CreatedAt,
	})
	if err != nil {
		return utils.WrapError(err, "failed to render key notification")
	}

	msg := &notify.Message{
		To:       order.Email,
		Subject:  notify.SubjectForGame(title),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}

	// Sending twice is acceptable, not sending at all is not.
	err = resilience.Retry(ctx, s.retry, func(ctx context.Context) error {
		return s.sender.Send(ctx, msg)
	})
	if err != nil {
		return utils.WrapError(err, "failed to send key notification")
	}

	s.logger.Info(ctx, "game key delivered", map[string]interface{}{
		"order_id": order.ID,
		"game_id":  order.GameID,
	})

	return nil
}

func userNameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
