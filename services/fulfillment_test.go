package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smileshop/keystore/models"
)

func seedOrder(t *testing.T, orders *fakeOrderStore, status models.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            "ord-1",
		BuyerID:       7,
		GameID:        1,
		Email:         "buyer@example.com",
		Key:           "A",
		Price:         899,
		Status:        status,
		CorrelationID: "171234-7-1",
		CreatedAt:     time.Unix(1700000000, 0),
	}
	if err := orders.Create(context.Background(), order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestFulfillmentService_Fulfill_SendsKeyOnce(t *testing.T) {
	games := newFakeGameStore(newTestGame(1, 899))
	orders := newFakeOrderStore()
	sender := &fakeSender{}
	svc := CreateFulfillmentService(orders, games, sender)

	order := seedOrder(t, orders, models.OrderStatusReserved)

	if err := svc.Fulfill(context.Background(), order); err != nil {
		t.Fatalf("Fulfill() error = %v", err)
	}

	if sender.sentCount() != 1 {
		t.Fatalf("sent messages = %d, want 1", sender.sentCount())
	}

	msg := sender.sent[0]
	if msg.To != "buyer@example.com" {
		t.Errorf("To = %q, want %q", msg.To, "buyer@example.com")
	}
	if !strings.Contains(msg.TextBody, "A") || !strings.Contains(msg.HTMLBody, "A") {
		t.Error("message bodies do not contain the purchased key")
	}
	if !strings.Contains(msg.Subject, "Cyber Quest") {
		t.Errorf("Subject = %q, want it to mention the game title", msg.Subject)
	}

	stored, _ := orders.GetByID(context.Background(), order.ID)
	if stored.Status != models.OrderStatusFulfilled {
		t.Errorf("status = %q, want %q", stored.Status, models.OrderStatusFulfilled)
	}
}

func TestFulfillmentService_Fulfill_SecondCallIsNoOp(t *testing.T) {
	games := newFakeGameStore(newTestGame(1, 899))
	orders := newFakeOrderStore()
	sender := &fakeSender{}
	svc := CreateFulfillmentService(orders, games, sender)

	order := seedOrder(t, orders, models.OrderStatusReserved)

	if err := svc.Fulfill(context.Background(), order); err != nil {
		t.Fatalf("first Fulfill() error = %v", err)
	}
	err := svc.Fulfill(context.Background(), order)
	if !errors.Is(err, ErrAlreadyFulfilled) {
		t.Errorf("second Fulfill() error = %v, want ErrAlreadyFulfilled", err)
	}

	if sender.sentCount() != 1 {
		t.Errorf("sent messages = %d, want exactly 1", sender.sentCount())
	}
}

func TestFulfillmentService_Fulfill_FailedOrderNotDelivered(t *testing.T) {
	games := newFakeGameStore(newTestGame(1, 899))
	orders := newFakeOrderStore()
	sender := &fakeSender{}
	svc := CreateFulfillmentService(orders, games, sender)

	order := seedOrder(t, orders, models.OrderStatusFailed)

	err := svc.Fulfill(context.Background(), order)
	if !errors.Is(err, ErrOrderFailed) {
		t.Errorf("Fulfill() error = %v, want ErrOrderFailed", err)
	}
	if sender.sentCount() != 0 {
		t.Errorf("sent messages = %d, want 0", sender.sentCount())
	}
}

func TestFulfillmentService_Fulfill_SendFailureKeepsStatus(t *testing.T) {
	games := newFakeGameStore(newTestGame(1, 899))
	orders := newFakeOrderStore()
	sender := &fakeSender{sendErr: errSendFailed}
	svc := CreateFulfillmentService(orders, games, sender)

	order := seedOrder(t, orders, models.OrderStatusReserved)

	err := svc.Fulfill(context.Background(), order)
	if err == nil {
		t.Fatal("Fulfill() expected error when sender fails")
	}
	if !errors.Is(err, errSendFailed) {
		t.Errorf("Fulfill() error = %v, want wrapped send failure", err)
	}

	// The status decision is not reverted; retries are an external concern.
	stored, _ := orders.GetByID(context.Background(), order.ID)
	if stored.Status != models.OrderStatusFulfilled {
		t.Errorf("status = %q, want %q", stored.Status, models.OrderStatusFulfilled)
	}
}
