package providers

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/smileshop/keystore/config"
	"github.com/smileshop/keystore/models"
	"github.com/smileshop/keystore/security"
)

type ReceiptItem struct {
	Name     string `json:"Name"`
	Price    int64  `json:"Price"`
	Quantity int    `json:"Quantity"`
	Amount   int64  `json:"Amount"`
	Tax      string `json:"Tax"`
}

type Receipt struct {
	Email    string        `json:"Email"`
	Phone    string        `json:"Phone,omitempty"`
	Taxation string        `json:"Taxation"`
	Items    []ReceiptItem `json:"Items"`
}

type InitRequest struct {
	TerminalKey string                 `json:"TerminalKey"`
	Amount      int64                  `json:"Amount"`
	OrderID     string                 `json:"OrderId"`
	Description string                 `json:"Description,omitempty"`
	Token       string                 `json:"Token"`
	Data        map[string]interface{} `json:"DATA,omitempty"`
	Receipt     *Receipt               `json:"Receipt,omitempty"`
}

type InitResponse struct {
	Success    bool   `json:"Success"`
	ErrorCode  string `json:"ErrorCode"`
	Message    string `json:"Message"`
	Details    string `json:"Details"`
	PaymentURL string `json:"PaymentURL"`
	PaymentID  string `json:"PaymentId"`
}

// InitResult is what the checkout flow needs back from a successful Init.
type InitResult struct {
	PaymentURL string
	PaymentID  string
}

type InitError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *InitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tbank init failed (code %s): %s", e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("tbank init failed with HTTP status %d", e.StatusCode)
}

// TBankProvider builds, signs and submits payment-initiation requests and
// verifies inbound notification tokens with the same canonicalization.
type TBankProvider struct {
	terminalKey string
	initURL     string
	signer      *security.TokenSigner
	client      *resty.Client
}

func NewTBankProvider(cfg config.TBankConfig) (*TBankProvider, error) {
	signer, err := security.NewTokenSigner(cfg.Password, security.SecretAsField)
	if err != nil {
		return nil, err
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "keystore/1.0")

	return &TBankProvider{
		terminalKey: cfg.TerminalKey,
		initURL:     cfg.InitURL,
		signer:      signer,
		client:      client,
	}, nil
}

// MinorUnits converts a major-unit price to integer kopecks, rounding half
// away from zero.
func MinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

// BuildInitRequest assembles the signed Init payload for a reserved order.
// DATA and Receipt are excluded from the token base, matching the v2
// protocol; absent fields never enter the canonical string.
func (p *TBankProvider) BuildInitRequest(order *models.Order, game *models.Game, email, phone string) *InitRequest {
	amount := MinorUnits(order.Price)
	description := fmt.Sprintf("Purchase of a digital key for %s", game.Title)

	data := map[string]interface{}{
		"connection_type": "Widget",
		"Email":           email,
	}
	if phone != "" {
		data["Phone"] = phone
	}

	receipt := &Receipt{
		Email:    email,
		Phone:    normalizePhone(phone),
		Taxation: "osn",
		Items: []ReceiptItem{
			{
				Name:     fmt.Sprintf("Digital key: %s", game.Title),
				Price:    amount,
				Quantity: 1,
				Amount:   amount,
				Tax:      "vat20",
			},
		},
	}

	signFields := map[string]interface{}{
		"TerminalKey": p.terminalKey,
		"Amount":      amount,
		"OrderId":     order.CorrelationID,
		"Description": description,
	}

	return &InitRequest{
		TerminalKey: p.terminalKey,
		Amount:      amount,
		OrderID:     order.CorrelationID,
		Description: description,
		Token:       p.signer.Sign(signFields),
		Data:        data,
		Receipt:     receipt,
	}
}

// Init submits the signed request to the processor and returns the redirect
// URL. Network errors, non-2xx responses and Success=false all surface as
// initiation failures; the caller decides what to do with the reservation.
func (p *TBankProvider) Init(ctx context.Context, req *InitRequest) (*InitResult, error) {
	var initResp InitResponse

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&initResp).
		Post(p.initURL)
	if err != nil {
		return nil, fmt.Errorf("tbank init request: %w", err)
	}

	if resp.IsError() {
		return nil, &InitError{StatusCode: resp.StatusCode()}
	}

	if !initResp.Success {
		return nil, &InitError{
			StatusCode: resp.StatusCode(),
			ErrorCode:  initResp.ErrorCode,
			Message:    firstNonEmpty(initResp.Message, initResp.Details, "unknown processor error"),
		}
	}

	return &InitResult{
		PaymentURL: initResp.PaymentURL,
		PaymentID:  initResp.PaymentID,
	}, nil
}

// VerifyNotification checks the token on an inbound notification. All
// payload fields except Token participate in the base.
func (p *TBankProvider) VerifyNotification(fields map[string]interface{}, claimedToken string) bool {
	return p.signer.Verify(fields, claimedToken)
}

func normalizePhone(phone string) string {
	if phone == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range phone {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
