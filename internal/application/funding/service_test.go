package funding

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-trade-client/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAPI struct{ mock.Mock }

func (m *mockAPI) Withdraw(ctx context.Context, body domain.WithdrawRequest) error {
	return m.Called(ctx, body).Error(0)
}
func (m *mockAPI) ConfirmDeposit(ctx context.Context, body domain.DepositRequest) error {
	return m.Called(ctx, body).Error(0)
}

func TestQuoteWithdraw_FeeArithmetic(t *testing.T) {
	q := QuoteWithdraw("100", "500")
	assert.Empty(t, q.Error)
	assert.Equal(t, "9.00", q.Fee.StringFixed(2))
	assert.Equal(t, "91.00", q.Receive.StringFixed(2))
}

func TestQuoteWithdraw_MaxReceivable(t *testing.T) {
	assert.Equal(t, "182.00", QuoteWithdraw("", "200").MaxReceivable.StringFixed(2))
	assert.Equal(t, "0.00", QuoteWithdraw("20", "garbage").MaxReceivable.StringFixed(2))
}

func TestQuoteWithdraw_Errors(t *testing.T) {
	cases := []struct {
		amount, available, want string
	}{
		{"", "100", MsgInvalidAmount},
		{"abc", "100", MsgInvalidAmount},
		{"14.99", "100", MsgMinimum},
		{"-20", "100", MsgMinimum},
		{"100.01", "100", MsgInsufficient},
		{"15", "10", MsgInsufficient},
	}
	for _, tc := range cases {
		q := QuoteWithdraw(tc.amount, tc.available)
		assert.Equal(t, tc.want, q.Error, "%+v", tc)
		assert.True(t, q.Fee.IsZero(), "%+v", tc)
		assert.True(t, q.Receive.IsZero(), "%+v", tc)
	}
}

func TestQuoteWithdraw_Boundaries(t *testing.T) {
	q := QuoteWithdraw("15", "15")
	assert.Empty(t, q.Error)
	assert.Equal(t, "1.35", q.Fee.StringFixed(2))
	assert.Equal(t, "13.65", q.Receive.StringFixed(2))
}

func TestQuote_JSON(t *testing.T) {
	b, err := json.Marshal(QuoteWithdraw("100", "200"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"100.00","fee":"9.00","receive":"91.00","max_receivable":"182.00"}`, string(b))

	b, err = json.Marshal(QuoteWithdraw("5", "200"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"5.00","fee":"0.00","receive":"0.00","max_receivable":"182.00","error":"Minimum amount is 15 USDT"}`, string(b))
}

func TestWithdraw_Payload(t *testing.T) {
	api := &mockAPI{}
	api.On("Withdraw", mock.Anything, domain.WithdrawRequest{
		Amount:    100,
		NetAmount: 91,
		Password:  "secret",
		ChargeP:   0.09,
		ChargeA:   0,
		Method:    domain.WithdrawMethod{Name: "Tether (USDT TRC20)", Network: "Tron (TRC20)", Address: "TXyz"},
	}).Return(nil).Once()

	q, err := NewService(api, zap.NewNop()).Withdraw(context.Background(), domain.WithdrawInput{
		Amount: "100", Available: "250", Address: " TXyz ", Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "91.00", q.Receive.StringFixed(2))
	api.AssertExpectations(t)
}

func TestWithdraw_BlockedWithoutCall(t *testing.T) {
	cases := []struct {
		in   domain.WithdrawInput
		want string
	}{
		{domain.WithdrawInput{Amount: "10", Available: "100", Address: "a", Password: "p"}, MsgMinimum},
		{domain.WithdrawInput{Amount: "200", Available: "100", Address: "a", Password: "p"}, MsgInsufficient},
		{domain.WithdrawInput{Amount: "50", Available: "100", Address: " ", Password: "p"}, MsgAddress},
		{domain.WithdrawInput{Amount: "50", Available: "100", Address: "a"}, MsgPassword},
	}
	for _, tc := range cases {
		api := &mockAPI{}
		_, err := NewService(api, zap.NewNop()).Withdraw(context.Background(), tc.in)
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, tc.want, ve.Message)
		assert.Empty(t, api.Calls)
	}
}

func TestWithdraw_UpstreamMessage(t *testing.T) {
	api := &mockAPI{}
	api.On("Withdraw", mock.Anything, mock.Anything).Return(&domain.UpstreamError{Status: 400, Message: "Wrong password"})

	_, err := NewService(api, zap.NewNop()).Withdraw(context.Background(), domain.WithdrawInput{
		Amount: "20", Available: "20", Address: "a", Password: "x",
	})
	assert.Equal(t, "Wrong password", domain.UserMessage(err, "An error occurred"))
}

func TestDeposit(t *testing.T) {
	api := &mockAPI{}
	api.On("ConfirmDeposit", mock.Anything, domain.DepositRequest{TxID: "0xabc"}).Return(nil).Once()
	svc := NewService(api, zap.NewNop())

	require.NoError(t, svc.Deposit(context.Background(), " 0xabc "))
	err := svc.Deposit(context.Background(), "   ")
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, MsgTxID, ve.Message)
	api.AssertExpectations(t)
}
