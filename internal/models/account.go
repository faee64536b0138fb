package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the metered requester. IsAdmin accounts are exempt from charges.
type Account struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	CreditBalance int       `json:"credit_balance"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
