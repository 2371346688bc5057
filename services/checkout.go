package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smileshop/keystore/models"
	"github.com/smileshop/keystore/providers"
	"github.com/smileshop/keystore/utils"
	"gorm.io/gorm"
)

// PaymentProvider is the outbound side of the payment processor.
type PaymentProvider interface {
	BuildInitRequest(order *models.Order, game *models.Game, email, phone string) *providers.InitRequest
	Init(ctx context.Context, req *providers.InitRequest) (*providers.InitResult, error)
}

type PurchaseResult struct {
	Order      *models.Order `json:"order"`
	PaymentURL string        `json:"payment_url"`
	PaymentID  string        `json:"payment_id"`
}

type CheckoutService struct {
	games    GameStore
	orders   OrderStore
	provider PaymentProvider
	logger   *utils.Logger
}

func CreateCheckoutService(games GameStore, orders OrderStore, provider PaymentProvider) *CheckoutService {
	return &CheckoutService{
		games:    games,
		orders:   orders,
		provider: provider,
		logger:   utils.NewLogger("checkout"),
	}
}

// Reserve atomically pops the first key from the game's pool and creates a
// reserved order carrying the price captured at this moment. The row lock
// guarantees two concurrent reservations never receive the same key; the
// loser of the race for the last key gets ErrOutOfStock.
func (s *CheckoutService) Reserve(ctx context.Context, gameID, buyerID uint, email string) (*models.Order, error) {
	var order *models.Order

	err := s.games.WithTransaction(ctx, func(txCtx context.Context) error {
		game, err := s.games.GetByIDForUpdate(txCtx, gameID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrItemNotFound
			}
			return err
		}

		if game.Price <= 0 {
			return utils.ErrInvalidPrice
		}
		if len(game.Keys) == 0 {
			return utils.ErrOutOfStock
		}

		key := game.Keys[0]
		if err := s.games.UpdateKeys(txCtx, gameID, game.Keys[1:]); err != nil {
			return err
		}

		now := time.Now()
		order = &models.Order{
			ID:            uuid.NewString(),
			BuyerID:       buyerID,
			GameID:        gameID,
			Email:         email,
			Key:           key,
			Price:         game.Price,
			Status:        models.OrderStatusReserved,
			CorrelationID: models.NewCorrelationID(buyerID, gameID, now),
		}

		return s.orders.Create(txCtx, order)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// Purchase runs the full buyer-facing flow: reserve a key, build and submit
// the signed payment-initiation request, and hand back the redirect URL.
// When initiation fails the reservation is compensated: the key goes back
// to the front of the pool and the order is marked failed.
func (s *CheckoutService) Purchase(ctx context.Context, gameID, buyerID uint, email, phone string) (*PurchaseResult, error) {
	if email == "" {
		return nil, utils.ErrMissingEmail
	}

	order, err := s.Reserve(ctx, gameID, buyerID, email)
	if err != nil {
		return nil, err
	}

	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		s.Release(ctx, order)
		return nil, err
	}

	req := s.provider.BuildInitRequest(order, game, email, phone)

	result, err := s.provider.Init(ctx, req)
	if err != nil {
		utils.LogError(ctx, err, "payment initiation failed", map[string]interface{}{
			"order_id":       order.ID,
			"correlation_id": order.CorrelationID,
		})
		s.Release(ctx, order)
		// Wrap the sentinel so the handler maps the failure to 502/504
		// instead of a generic 500.
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", utils.ErrProviderTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", utils.ErrPaymentInitFailed, err)
	}

	if err := s.orders.SetPaymentID(ctx, order.ID, result.PaymentID); err != nil {
		utils.LogError(ctx, err, "failed to record processor payment id", map[string]interface{}{
			"order_id": order.ID,
		})
	}
	order.PaymentID = result.PaymentID

	s.logger.Info(ctx, "payment initiated", map[string]interface{}{
		"order_id":       order.ID,
		"correlation_id": order.CorrelationID,
		"payment_id":     result.PaymentID,
	})

	return &PurchaseResult{
		Order:      order,
		PaymentURL: result.PaymentURL,
		PaymentID:  result.PaymentID,
	}, nil
}

// Release returns a reserved key to the front of the pool and marks the
// order failed. Best effort: a release failure is logged, not surfaced,
// since the buyer-facing request has already failed.
func (s *CheckoutService) Release(ctx context.Context, order *models.Order) {
	err := s.games.WithTransaction(ctx, func(txCtx context.Context) error {
		game, err := s.games.GetByIDForUpdate(txCtx, order.GameID)
		if err != nil {
			return err
		}

		keys := make(models.StringList, 0, len(game.Keys)+1)
		keys = append(keys, order.Key)
		keys = append(keys, game.Keys...)
		if err := s.games.UpdateKeys(txCtx, order.GameID, keys); err != nil {
			return err
		}

		return s.orders.MarkFailed(txCtx, order.ID)
	})
	if err != nil {
		utils.LogError(ctx, err, "failed to release reserved key", map[string]interface{}{
			"order_id": order.ID,
			"game_id":  order.GameID,
		})
	}
}
