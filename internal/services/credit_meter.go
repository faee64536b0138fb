package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/betslipai/backend/internal/ledger"
	"github.com/betslipai/backend/internal/models"
)

// CreditStore is the balance store behind the meter. Charge must be a single
// conditional decrement; Refund must be idempotent per requestID.
type CreditStore interface {
	Charge(ctx context.Context, accountID, requestID uuid.UUID, amount int) (int, error)
	Refund(ctx context.Context, accountID, requestID uuid.UUID, amount int) (refunded bool, balance int, err error)
	Balance(ctx context.Context, accountID uuid.UUID) (int, error)
}

// RefundQueue durably retries refunds the store could not apply inline.
type RefundQueue interface {
	EnqueueRefund(ctx context.Context, accountID, requestID uuid.UUID, amount int) error
}

// CreditMeter grants or denies a generation and hands back a Charge that can
// be kept or reversed exactly once.
type CreditMeter struct {
	Store  CreditStore
	Queue  RefundQueue
	Logger *slog.Logger
}

func NewCreditMeter(store CreditStore, queue RefundQueue, logger *slog.Logger) *CreditMeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CreditMeter{Store: store, Queue: queue, Logger: logger}
}

// Authorize charges cost to the account. Exempt accounts are granted without
// touching the store. A denial returns *InsufficientCreditsError.
func (m *CreditMeter) Authorize(ctx context.Context, acc *models.Account, requestID uuid.UUID, cost int) (*Charge, error) {
	if acc == nil {
		return nil, ErrAuthenticationRequired
	}
	c := &Charge{
		RequestID: requestID,
		AccountID: acc.ID,
		Cost:      cost,
		meter:     m,
	}
	if acc.IsAdmin {
		c.Exempt = true
		c.BalanceAfter = acc.CreditBalance
		return c, nil
	}

	bal, err := m.Store.Charge(ctx, acc.ID, requestID, cost)
	if errors.Is(err, ledger.ErrInsufficientCredits) {
		current, berr := m.Store.Balance(ctx, acc.ID)
		if berr != nil {
			current = acc.CreditBalance
		}
		return nil, &InsufficientCreditsError{Balance: current, Required: cost}
	}
	if err != nil {
		return nil, fmt.Errorf("authorize charge: %w", err)
	}
	c.BalanceAfter = bal
	return c, nil
}

type chargeState int

const (
	chargeHeld chargeState = iota
	chargeKept
	chargeReversed
)

// Charge is the handle for one authorized generation.
type Charge struct {
	RequestID    uuid.UUID
	AccountID    uuid.UUID
	Cost         int
	Exempt       bool
	BalanceAfter int

	meter  *CreditMeter
	mu     sync.Mutex
	state  chargeState
	queued bool
}

// Keep finalizes the charge. It reports false if the charge was already settled.
func (c *Charge) Keep() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != chargeHeld {
		return false
	}
	c.state = chargeKept
	return true
}

// Reverse refunds the charge at most once. It reports whether credits were
// returned (or queued for return). Exempt charges and settled charges are no-ops.
func (c *Charge) Reverse(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != chargeHeld {
		return false, nil
	}
	c.state = chargeReversed
	if c.Exempt {
		return false, nil
	}

	refunded, bal, err := c.meter.Store.Refund(ctx, c.AccountID, c.RequestID, c.Cost)
	if err == nil {
		if !refunded {
			// Already refunded elsewhere; bal may not reflect that refund.
			if cur, berr := c.meter.Store.Balance(ctx, c.AccountID); berr == nil {
				bal = cur
			} else {
				c.meter.Logger.Warn("read balance after duplicate refund", "request_id", c.RequestID, "error", berr)
				return false, nil
			}
		}
		c.BalanceAfter = bal
		return refunded, nil
	}

	c.meter.Logger.Warn("inline refund failed, queueing", "request_id", c.RequestID, "account_id", c.AccountID, "error", err)
	if c.meter.Queue == nil {
		return false, fmt.Errorf("refund credits: %w", err)
	}
	if qerr := c.meter.Queue.EnqueueRefund(ctx, c.AccountID, c.RequestID, c.Cost); qerr != nil {
		c.meter.Logger.Error("refund lost: store and queue both failed",
			"request_id", c.RequestID, "account_id", c.AccountID, "amount", c.Cost, "error", qerr)
		return false, fmt.Errorf("enqueue refund: %w", qerr)
	}
	c.queued = true
	c.BalanceAfter += c.Cost
	return true, nil
}

// Queued reports whether the refund was handed to the durable queue.
func (c *Charge) Queued() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queued
}
