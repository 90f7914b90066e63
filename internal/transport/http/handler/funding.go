package handler

import (
	"net/http"

	"github.com/go-trade-client/internal/application/funding"
	"github.com/go-trade-client/internal/domain"
)

// FundingHandler serves withdraw quotes, withdrawals and deposit confirmations.
type FundingHandler struct {
	svc funding.Service
}

func NewFundingHandler(svc funding.Service) *FundingHandler { return &FundingHandler{svc: svc} }

// Quote always answers 200; an unusable amount is reported inside the quote.
func (h *FundingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var in domain.QuoteInput
	if !decodeJSON(w, r, &in) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Quote(in))
}

func (h *FundingHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var in domain.WithdrawInput
	if !decodeJSON(w, r, &in) {
		return
	}
	q, err := h.svc.Withdraw(r.Context(), in)
	if err != nil {
		httpError(w, err, "An error occurred")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Quote   funding.Quote `json:"quote"`
		Message string        `json:"message"`
	}{q, "Withdraw request submitted successfully"})
}

func (h *FundingHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var in domain.DepositRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.svc.Deposit(r.Context(), in.TxID); err != nil {
		httpError(w, err, "An error occurred")
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Deposit confirmed"})
}
