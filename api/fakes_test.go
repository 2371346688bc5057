package api

import (
	"context"
	"sync"
	"time"

	"github.com/smileshop/keystore/models"
	"github.com/smileshop/keystore/notify"
	"github.com/smileshop/keystore/providers"
	"gorm.io/gorm"
)

type memGameStore struct {
	mu    sync.Mutex
	games map[uint]*models.Game
}

func newMemGameStore(games ...*models.Game) *memGameStore {
	s := &memGameStore{games: make(map[uint]*models.Game)}
	for _, g := range games {
		s.games[g.ID] = g
	}
	return s
}

func (s *memGameStore) GetByID(ctx context.Context, id uint) (*models.Game, error) {
	g, ok := s.games[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return g, nil
}

func (s *memGameStore) GetByIDForUpdate(ctx context.Context, id uint) (*models.Game, error) {
	return s.GetByID(ctx, id)
}

func (s *memGameStore) UpdateKeys(ctx context.Context, id uint, keys models.StringList) error {
	g, ok := s.games[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	g.Keys = keys
	return nil
}

func (s *memGameStore) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

type memOrderStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	seq    int64
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: make(map[string]*models.Order)}
}

func (s *memOrderStore) Create(ctx context.Context, order *models.Order) error {
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

func (s *memOrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memOrderStore) FindLatestByBuyerAndGame(ctx context.Context, buyerID, gameID uint) (*models.Order, error) {
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

func (s *memOrderStore) MarkFulfilled(ctx context.Context, id string) (bool, error) {
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

func (s *memOrderStore) MarkFailed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Status = models.OrderStatusFailed
	return nil
}

func (s *memOrderStore) SetPaymentID(ctx context.Context, id, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.PaymentID = paymentID
	return nil
}

type memWebhookEventStore struct {
	mu     sync.Mutex
	events []*models.WebhookEvent
}

func (s *memWebhookEventStore) Create(ctx context.Context, event *models.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

type memSender struct {
	mu   sync.Mutex
	sent []*notify.Message
}

func (s *memSender) Send(ctx context.Context, msg *notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *memSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type stubProvider struct {
	initErr    error
	initResult *providers.InitResult
}

func (p *stubProvider) BuildInitRequest(order *models.Order, game *models.Game, email, phone string) *providers.InitRequest {
	return &providers.InitRequest{
		TerminalKey: "term1",
		Amount:      providers.MinorUnits(order.Price),
		OrderID:     order.CorrelationID,
	}
}

func (p *stubProvider) Init(ctx context.Context, req *providers.InitRequest) (*providers.InitResult, error) {
	if p.initErr != nil {
		return nil, p.initErr
	}
	if p.initResult != nil {
		return p.initResult, nil
	}
	return &providers.InitResult{PaymentURL: "https://pay.example/redirect", PaymentID: "pmt-1"}, nil
}
