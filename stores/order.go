package stores

import (
	"context"
	"errors"
	"time"

	"github.com/smileshop/keystore/models"
	"gorm.io/gorm"
)

type OrderStore struct {
	BaseStore
}

func CreateOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{BaseStore: BaseStore{db: db}}
}

func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	return s.GetDB(ctx).Create(order).Error
}

func (s *OrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.GetDB(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindLatestByBuyerAndGame returns the most recent order for the buyer/game
// pair. The correlation id is not the primary key, so this is how a
// notification is joined back to its order.
func (s *OrderStore) FindLatestByBuyerAndGame(ctx context.Context, buyerID, gameID uint) (*models.Order, error) {
	var order models.Order
	err := s.GetDB(ctx).
		Where("buyer_id = ? AND game_id = ?", buyerID, gameID).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkFulfilled flips the order to fulfilled if and only if it has not been
// fulfilled yet. Returns false when another delivery already won the race;
// the caller must not send the key again in that case.
func (s *OrderStore) MarkFulfilled(ctx context.Context, id string) (bool, error) {
	now := time.Now()
	result := s.GetDB(ctx).Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, []string{
			string(models.OrderStatusReserved),
			string(models.OrderStatusConfirmed),
		}).
		Updates(map[string]interface{}{
			"status":       models.OrderStatusFulfilled,
			"fulfilled_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *OrderStore) MarkFailed(ctx context.Context, id string) error {
	return s.GetDB(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", models.OrderStatusFailed).Error
}

func (s *OrderStore) SetPaymentID(ctx context.Context, id, paymentID string) error {
	return s.GetDB(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("payment_id", paymentID).Error
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
