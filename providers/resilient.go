package providers

import (
	"context"
	"time"

	"github.com/smileshop/keystore/models"
	"github.com/smileshop/keystore/resilience"
	"github.com/smileshop/keystore/utils"
)

// ResilientProvider wraps a TBankProvider with a circuit breaker so a
// struggling acquiring endpoint fails checkout fast instead of tying up
// request handlers until the HTTP timeout.
type ResilientProvider struct {
	inner   *TBankProvider
	breaker *resilience.CircuitBreaker
}

func NewResilientProvider(inner *TBankProvider) *ResilientProvider {
	logger := utils.NewLogger("provider")
	breaker := resilience.CreateCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "tbank-init",
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		HalfOpenMax: 3,
		OnStateChange: func(name string, from, to resilience.CircuitState) {
			logger.Warn(context.Background(), "circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return &ResilientProvider{inner: inner, breaker: breaker}
}

func (p *ResilientProvider) BuildInitRequest(order *models.Order, game *models.Game, email, phone string) *InitRequest {
	return p.inner.BuildInitRequest(order, game, email, phone)
}

// Init is not retried: a repeated Init for the same OrderId can open a
// second payment session at the processor.
func (p *ResilientProvider) Init(ctx context.Context, req *InitRequest) (*InitResult, error) {
	var result *InitResult
	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		var initErr error
		result, initErr = p.inner.Init(ctx, req)
		return initErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *ResilientProvider) VerifyNotification(fields map[string]interface{}, claimedToken string) bool {
	return p.inner.VerifyNotification(fields, claimedToken)
}
