package api

import (
	"context"
	"net/http"

	"github.com/go-trade-client/internal/domain"
)

// Withdraw submits a withdrawal request.
func (c *Client) Withdraw(ctx context.Context, body domain.WithdrawRequest) error {
	req, err := jsonRequest("funding.withdraw", http.MethodPost, "/withdraw", body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// ConfirmDeposit reports an on-chain deposit by its transaction id.
func (c *Client) ConfirmDeposit(ctx context.Context, body domain.DepositRequest) error {
	req, err := jsonRequest("funding.deposit", http.MethodPost, "/deposit/binance", body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}
