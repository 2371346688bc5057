package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type OrderStatus string

const (
	// OrderStatusReserved means a key is held for the buyer but payment is
	// not yet confirmed.
	OrderStatusReserved  OrderStatus = "reserved"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusFailed    OrderStatus = "failed"
)

type Order struct {
	ID            string      `json:"id" gorm:"primaryKey;type:uuid"`
	BuyerID       uint        `json:"buyer_id" gorm:"not null;index:idx_orders_buyer_game"`
	GameID        uint        `json:"game_id" gorm:"not null;index:idx_orders_buyer_game"`
	Email         string      `json:"email" gorm:"not null"`
	Key           string      `json:"key" gorm:"not null"`
	Price         float64     `json:"price" gorm:"not null"`
	Status        OrderStatus `json:"status" gorm:"not null;default:'reserved'"`
	CorrelationID string      `json:"correlation_id" gorm:"not null;index"`
	PaymentID     string      `json:"payment_id"`
	FulfilledAt   *time.Time  `json:"fulfilled_at"`
	CreatedAt     time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

// NewCorrelationID builds the opaque order reference sent to the processor
// as OrderId and echoed back in the notification. Format:
// <unix-millis>-<buyerID>-<gameID>. The webhook handler re-derives the
// buyer/game pair from it without a processor-side foreign key.
func NewCorrelationID(buyerID, gameID uint, now time.Time) string {
	return fmt.Sprintf("%d-%d-%d", now.UnixMilli(), buyerID, gameID)
}

// ParseCorrelationID extracts (buyerID, gameID) from an echoed OrderId.
func ParseCorrelationID(correlationID string) (buyerID, gameID uint, err error) {
	parts := strings.Split(correlationID, "-")
	if len(parts) < 3 {
		return 0, 0, fmt.Errorf("malformed correlation id %q", correlationID)
	}

	buyer, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed buyer id in correlation id %q", correlationID)
	}
	game, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed game id in correlation id %q", correlationID)
	}

	return uint(buyer), uint(game), nil
}
