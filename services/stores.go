package services

import (
	"context"

	"github.com/smileshop/keystore/models"
)

// Store interfaces are defined on the consumer side so tests can inject
// in-memory fakes; the gorm-backed stores satisfy them.

type GameStore interface {
	GetByID(ctx context.Context, id uint) (*models.Game, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Game, error)
	UpdateKeys(ctx context.Context, id uint, keys models.StringList) error
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	FindLatestByBuyerAndGame(ctx context.Context, buyerID, gameID uint) (*models.Order, error)
	MarkFulfilled(ctx context.Context, id string) (bool, error)
	MarkFailed(ctx context.Context, id string) error
	SetPaymentID(ctx context.Context, id, paymentID string) error
}

type WebhookEventStore interface {
	Create(ctx context.Context, event *models.WebhookEvent) error
}
