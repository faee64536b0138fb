package models

import (
	"time"

	"github.com/google/uuid"
)

// Credit ledger entry_type values. At most one of each per request_id.
const (
	CreditEntryGenerationCharge = "generation_charge"
	CreditEntryGenerationRefund = "generation_refund"
)

type CreditLedger struct {
	ID           uuid.UUID `json:"id"`
	AccountID    uuid.UUID `json:"account_id"`
	RequestID    uuid.UUID `json:"request_id"`
	EntryType    string    `json:"entry_type"`
	Amount       int       `json:"amount"`
	BalanceAfter *int      `json:"balance_after,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
