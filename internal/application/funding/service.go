// Package funding computes withdrawal quotes and forwards withdraw and deposit
// requests. Balances and settlement stay with the trading platform.
package funding

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-trade-client/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	FeeRate   = decimal.RequireFromString("0.09")
	MinAmount = decimal.NewFromInt(15)
)

const (
	MethodName    = "Tether (USDT TRC20)"
	MethodNetwork = "Tron (TRC20)"
)

const (
	MsgInvalidAmount = "Enter a valid amount"
	MsgMinimum       = "Minimum amount is 15 USDT"
	MsgInsufficient  = "Insufficient balance"
	MsgAddress       = "Please enter a valid address"
	MsgPassword      = "Please enter your password"
	MsgTxID          = "Please enter a valid transaction ID"
)

// Quote is the fee breakdown for a withdrawal amount. When Error is set, Fee and
// Receive are zero.
type Quote struct {
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	Receive       decimal.Decimal
	MaxReceivable decimal.Decimal
	Error         string
}

// MarshalJSON renders money with two decimals, as shown on the page.
func (q Quote) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount        string `json:"amount"`
		Fee           string `json:"fee"`
		Receive       string `json:"receive"`
		MaxReceivable string `json:"max_receivable"`
		Error         string `json:"error,omitempty"`
	}{
		Amount:        q.Amount.StringFixed(2),
		Fee:           q.Fee.StringFixed(2),
		Receive:       q.Receive.StringFixed(2),
		MaxReceivable: q.MaxReceivable.StringFixed(2),
		Error:         q.Error,
	})
}

// QuoteWithdraw prices amount against the available balance.
func QuoteWithdraw(amount, available string) Quote {
	avail := parseBalance(available)
	q := Quote{MaxReceivable: avail.Mul(decimal.NewFromInt(1).Sub(FeeRate))}

	n, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		q.Error = MsgInvalidAmount
		return q
	}
	q.Amount = n
	switch {
	case n.LessThan(MinAmount):
		q.Error = MsgMinimum
	case n.GreaterThan(avail):
		q.Error = MsgInsufficient
	default:
		q.Fee = n.Mul(FeeRate)
		q.Receive = n.Sub(q.Fee)
	}
	return q
}

func parseBalance(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

type Upstream interface {
	Withdraw(ctx context.Context, body domain.WithdrawRequest) error
	ConfirmDeposit(ctx context.Context, body domain.DepositRequest) error
}

type Service interface {
	Quote(in domain.QuoteInput) Quote
	Withdraw(ctx context.Context, in domain.WithdrawInput) (Quote, error)
	Deposit(ctx context.Context, txID string) error
}

type service struct {
	api Upstream
	log *zap.Logger
}

func NewService(api Upstream, log *zap.Logger) Service {
	return &service{api: api, log: log}
}

func (s *service) Quote(in domain.QuoteInput) Quote {
	return QuoteWithdraw(in.Amount, in.Available)
}

// Withdraw submits the request only when the quote is clean and the address and
// password are present.
func (s *service) Withdraw(ctx context.Context, in domain.WithdrawInput) (Quote, error) {
	q := QuoteWithdraw(in.Amount, in.Available)
	if q.Error != "" {
		return q, domain.Invalid(q.Error)
	}
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return q, domain.Invalid(MsgAddress)
	}
	if in.Password == "" {
		return q, domain.Invalid(MsgPassword)
	}

	req := domain.WithdrawRequest{
		Amount:    q.Amount.InexactFloat64(),
		NetAmount: q.Receive.InexactFloat64(),
		Password:  in.Password,
		ChargeP:   FeeRate.InexactFloat64(),
		ChargeA:   0,
		Method: domain.WithdrawMethod{
			Name:    MethodName,
			Network: MethodNetwork,
			Address: address,
		},
	}
	if err := s.api.Withdraw(ctx, req); err != nil {
		return q, err
	}
	s.log.Info("withdraw requested", zap.String("amount", q.Amount.StringFixed(2)))
	return q, nil
}

func (s *service) Deposit(ctx context.Context, txID string) error {
	txID = strings.TrimSpace(txID)
	if txID == "" {
		return domain.Invalid(MsgTxID)
	}
	return s.api.ConfirmDeposit(ctx, domain.DepositRequest{TxID: txID})
}
