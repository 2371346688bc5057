package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smileshop/keystore/models"
	"github.com/smileshop/keystore/notify"
	"github.com/smileshop/keystore/providers"
	"gorm.io/gorm"
)

// In-memory fakes implementing the consumer-side store interfaces. The game
// fake serializes whole transactions with a mutex, mirroring the row lock
// the real store takes.

type fakeGameStore struct {
	mu    sync.Mutex
	games map[uint]*models.Game
}

func newFakeGameStore(games ...*models.Game) *fakeGameStore {
	s := &fakeGameStore{games: make(map[uint]*models.Game)}
	for _, g := range games {
		s.games[g.ID] = g
	}
	return s
}

func (s *fakeGameStore) GetByID(ctx context.Context, id uint) (*models.Game, error) {
	g, ok := s.games[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return g, nil
}

func (s *fakeGameStore) GetByIDForUpdate(ctx context.Context, id uint) (*models.Game, error) {
	return s.GetByID(ctx, id)
}

func (s *fakeGameStore) UpdateKeys(ctx context.Context, id uint, keys models.StringList) error {
	g, ok := s.games[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	g.Keys = keys
	return nil
}

func (s *fakeGameStore) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	seq    int64
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[string]*models.Order)}
}

func (s *fakeOrderStore) Create(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	cp := *order
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Unix(s.seq, 0)
	}
	s.orders[order.ID] = &cp
	return nil
}

func (s *fakeOrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeOrderStore) FindLatestByBuyerAndGame(ctx context.Context, buyerID, gameID uint) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Order
	for _, o := range s.orders {
		if o.BuyerID != buyerID || o.GameID != gameID {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *fakeOrderStore) MarkFulfilled(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if o.Status == models.OrderStatusFulfilled || o.Status == models.OrderStatusFailed {
		return false, nil
	}
	o.Status = models.OrderStatusFulfilled
	return true, nil
}

func (s *fakeOrderStore) MarkFailed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Status = models.OrderStatusFailed
	return nil
}

func (s *fakeOrderStore) SetPaymentID(ctx context.Context, id, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.PaymentID = paymentID
	return nil
}

func (s *fakeOrderStore) byStatus(status models.OrderStatus) []*models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Order
	for _, o := range s.orders {
		if o.Status == status {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out
}

type fakeWebhookEventStore struct {
	mu     sync.Mutex
	events []*models.WebhookEvent
}

func (s *fakeWebhookEventStore) Create(ctx context.Context, event *models.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

type fakeProvider struct {
	initErr    error
	initResult *providers.InitResult
	initCalls  int
}

func (p *fakeProvider) BuildInitRequest(order *models.Order, game *models.Game, email, phone string) *providers.InitRequest {
	return &providers.InitRequest{
		TerminalKey: "term1",
		Amount:      providers.MinorUnits(order.Price),
		OrderID:     order.CorrelationID,
	}
}

func (p *fakeProvider) Init(ctx context.Context, req *providers.InitRequest) (*providers.InitResult, error) {
	p.initCalls++
	if p.initErr != nil {
		return nil, p.initErr
	}
	if p.initResult != nil {
		return p.initResult, nil
	}
	return &providers.InitResult{PaymentURL: "https://pay.example/redirect", PaymentID: "pmt-1"}, nil
}

type fakeSender struct {
	mu      sync.Mutex
	sendErr error
	sent    []*notify.Message
}

func (s *fakeSender) Send(ctx context.Context, msg *notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

var errSendFailed = errors.New("smtp unavailable")
