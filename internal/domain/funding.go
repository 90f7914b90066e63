package domain

// WithdrawMethod describes the payout rail.
type WithdrawMethod struct {
	Name    string `json:"name"`
	Network string `json:"network"`
	Address string `json:"address"`
}

// WithdrawRequest is the upstream body of POST withdraw.
type WithdrawRequest struct {
	Amount    float64        `json:"amount"`
	NetAmount float64        `json:"net_amount"`
	Password  string         `json:"password"`
	ChargeP   float64        `json:"charge_p"`
	ChargeA   float64        `json:"charge_a"`
	Method    WithdrawMethod `json:"method"`
}

// WithdrawInput is what the page submits to the gateway.
type WithdrawInput struct {
	Amount    string `json:"amount"`
	Available string `json:"available"`
	Address   string `json:"address" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

// QuoteInput asks for the fee breakdown of an amount.
type QuoteInput struct {
	Amount    string `json:"amount"`
	Available string `json:"available"`
}

// DepositRequest confirms an on-chain deposit by transaction id.
type DepositRequest struct {
	TxID string `json:"txId"`
}
