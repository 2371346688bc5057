package services

import (
	"context"
	"testing"

	"github.com/smileshop/keystore/models"
)

func newWebhookFixture(t *testing.T, orderStatus models.OrderStatus) (*WebhookService, *fakeOrderStore, *fakeSender, *fakeWebhookEventStore) {
	t.Helper()
	games := newFakeGameStore(newTestGame(1, 899))
	orders := newFakeOrderStore()
	sender := &fakeSender{}
	events := &fakeWebhookEventStore{}
	fulfillment := CreateFulfillmentService(orders, games, sender)
	svc := CreateWebhookService(orders, events, fulfillment)

	seedOrder(t, orders, orderStatus)

	return svc, orders, sender, events
}

func confirmedNotification() *Notification {
	return &Notification{
		CorrelationID: "171234-7-1",
		Status:        "CONFIRMED",
		Success:       true,
		PaymentID:     "pmt-123",
		Fields:        map[string]interface{}{"OrderId": "171234-7-1", "Status": "CONFIRMED", "Success": true},
	}
}

func TestParseNotification_ValidPayload(t *testing.T) {
	body := []byte(`{"TerminalKey":"term1","OrderId":"171234-7-1","Success":true,"Status":"CONFIRMED","PaymentId":123456,"Amount":89900,"Token":"abc"}`)

	n, err := ParseNotification(body)
	if err != nil {
		t.Fatalf("ParseNotification() error = %v", err)
	}
	if n.CorrelationID != "171234-7-1" {
		t.Errorf("CorrelationID = %q", n.CorrelationID)
	}
	if !n.Success || n.Status != "CONFIRMED" {
		t.Errorf("Success/Status = %v/%q", n.Success, n.Status)
	}
	if n.PaymentID != "123456" {
		t.Errorf("PaymentID = %q, want %q", n.PaymentID, "123456")
	}
	if n.Token != "abc" {
		t.Errorf("Token = %q", n.Token)
	}
}

func TestParseNotification_MalformedJSON(t *testing.T) {
	if _, err := ParseNotification([]byte(`not json`)); err == nil {
		t.Error("ParseNotification() expected error for invalid JSON")
	}
}

func TestParseNotification_MissingRequiredFields(t *testing.T) {
	cases := []string{
		`{"Status":"CONFIRMED"}`,
		`{"OrderId":"171234-7-1"}`,
		`{}`,
	}
	for _, c := range cases {
		if _, err := ParseNotification([]byte(c)); err == nil {
			t.Errorf("ParseNotification(%s) expected error", c)
		}
	}
}

func TestWebhookService_Process_ConfirmedFulfills(t *testing.T) {
	svc, orders, sender, events := newWebhookFixture(t, models.OrderStatusReserved)

	outcome := svc.Process(context.Background(), confirmedNotification())
	if outcome != models.WebhookOutcomeFulfilled {
		t.Errorf("outcome = %q, want %q", outcome, models.WebhookOutcomeFulfilled)
	}
	if sender.sentCount() != 1 {
		t.Errorf("sent messages = %d, want 1", sender.sentCount())
	}

	stored, _ := orders.GetByID(context.Background(), "ord-1")
	if stored.Status != models.OrderStatusFulfilled {
		t.Errorf("order status = %q, want fulfilled", stored.Status)
	}

	if len(events.events) != 1 || events.events[0].Outcome != models.WebhookOutcomeFulfilled {
		t.Errorf("audit events = %+v, want one fulfilled record", events.events)
	}
}

func TestWebhookService_Process_DuplicateDeliverySendsOnce(t *testing.T) {
	svc, _, sender, _ := newWebhookFixture(t, models.OrderStatusReserved)

	first := svc.Process(context.Background(), confirmedNotification())
	second := svc.Process(context.Background(), confirmedNotification())

	if first != models.WebhookOutcomeFulfilled {
		t.Errorf("first outcome = %q, want fulfilled", first)
	}
	if second != models.WebhookOutcomeDuplicate {
		t.Errorf("second outcome = %q, want duplicate", second)
	}
	if sender.sentCount() != 1 {
		t.Errorf("sent messages = %d, want exactly 1", sender.sentCount())
	}
}

func TestWebhookService_Process_NonFinalStatusSkipped(t *testing.T) {
	svc, orders, sender, _ := newWebhookFixture(t, models.OrderStatusReserved)

	n := confirmedNotification()
	n.Status = "AUTHORIZED"

	if outcome := svc.Process(context.Background(), n); outcome != models.WebhookOutcomeSkipped {
		t.Errorf("outcome = %q, want skipped", outcome)
	}
	if sender.sentCount() != 0 {
		t.Errorf("sent messages = %d, want 0", sender.sentCount())
	}

	stored, _ := orders.GetByID(context.Background(), "ord-1")
	if stored.Status != models.OrderStatusReserved {
		t.Errorf("order status = %q, want untouched reserved", stored.Status)
	}
}

func TestWebhookService_Process_UnsuccessfulSkipped(t *testing.T) {
	svc, _, sender, _ := newWebhookFixture(t, models.OrderStatusReserved)

	n := confirmedNotification()
	n.Success = false

	if outcome := svc.Process(context.Background(), n); outcome != models.WebhookOutcomeSkipped {
		t.Errorf("outcome = %q, want skipped", outcome)
	}
	if sender.sentCount() != 0 {
		t.Errorf("sent messages = %d, want 0", sender.sentCount())
	}
}

func TestWebhookService_Process_NoMatchingOrderSkipped(t *testing.T) {
	svc, _, sender, _ := newWebhookFixture(t, models.OrderStatusReserved)

	n := confirmedNotification()
	n.CorrelationID = "171234-99-42"

	if outcome := svc.Process(context.Background(), n); outcome != models.WebhookOutcomeSkipped {
		t.Errorf("outcome = %q, want skipped", outcome)
	}
	if sender.sentCount() != 0 {
		t.Errorf("sent messages = %d, want 0", sender.sentCount())
	}
}

func TestWebhookService_Process_MalformedCorrelationIDSkipped(t *testing.T) {
	svc, _, sender, _ := newWebhookFixture(t, models.OrderStatusReserved)

	n := confirmedNotification()
	n.CorrelationID = "garbage"

	if outcome := svc.Process(context.Background(), n); outcome != models.WebhookOutcomeSkipped {
		t.Errorf("outcome = %q, want skipped", outcome)
	}
	if sender.sentCount() != 0 {
		t.Errorf("sent messages = %d, want 0", sender.sentCount())
	}
}

func TestWebhookService_Process_ReleasedOrderSkippedNotDuplicate(t *testing.T) {
	svc, orders, sender, _ := newWebhookFixture(t, models.OrderStatusFailed)

	if outcome := svc.Process(context.Background(), confirmedNotification()); outcome != models.WebhookOutcomeSkipped {
		t.Errorf("outcome = %q, want skipped for a released order", outcome)
	}
	if sender.sentCount() != 0 {
		t.Errorf("sent messages = %d, want 0", sender.sentCount())
	}

	stored, _ := orders.GetByID(context.Background(), "ord-1")
	if stored.Status != models.OrderStatusFailed {
		t.Errorf("order status = %q, want untouched failed", stored.Status)
	}
}

func TestWebhookService_Process_SendFailureStillSwallowed(t *testing.T) {
	games := newFakeGameStore(newTestGame(1, 899))
	orders := newFakeOrderStore()
	sender := &fakeSender{sendErr: errSendFailed}
	events := &fakeWebhookEventStore{}
	svc := CreateWebhookService(orders, events, CreateFulfillmentService(orders, games, sender))
	seedOrder(t, orders, models.OrderStatusReserved)

	outcome := svc.Process(context.Background(), confirmedNotification())
	if outcome != models.WebhookOutcomeError {
		t.Errorf("outcome = %q, want error outcome", outcome)
	}
}
