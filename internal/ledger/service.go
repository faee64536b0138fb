package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/betslipai/backend/internal/models"
)

// ErrInsufficientCredits is returned when the conditional decrement matches no row.
var ErrInsufficientCredits = errors.New("insufficient credits")

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AccountRepo is the minimal account repository interface for the ledger.
type AccountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	DeductCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
	AddCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
}

// EntryRepo is the minimal credit_ledger interface for the ledger.
type EntryRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, c *models.CreditLedger) error
	CreateOnceTx(ctx context.Context, tx pgx.Tx, c *models.CreditLedger) (bool, error)
}

// Service moves credits between an account balance and the credit_ledger.
// Each call runs in its own transaction so the balance and its ledger row
// commit together.
type Service struct {
	Pool     TxBeginner
	Accounts AccountRepo
	Entries  EntryRepo
}

func NewService(pool TxBeginner, accounts AccountRepo, entries EntryRepo) *Service {
	return &Service{Pool: pool, Accounts: accounts, Entries: entries}
}

// Charge deducts amount for requestID and writes a generation_charge entry.
// The balance is never read and then written; the UPDATE carries the condition.
func (s *Service) Charge(ctx context.Context, accountID, requestID uuid.UUID, amount int) (int, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin charge tx: %w", err)
	}
	defer tx.Rollback(ctx)

	newBalance, err := s.Accounts.DeductCredits(ctx, tx, accountID, amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrInsufficientCredits
	}
	if err != nil {
		return 0, fmt.Errorf("deduct credits: %w", err)
	}

	entry := &models.CreditLedger{
		ID:           uuid.New(),
		AccountID:    accountID,
		RequestID:    requestID,
		EntryType:    models.CreditEntryGenerationCharge,
		Amount:       amount,
		BalanceAfter: intPtr(newBalance),
	}
	if err := s.Entries.CreateTx(ctx, tx, entry); err != nil {
		return 0, fmt.Errorf("insert charge entry: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit charge tx: %w", err)
	}
	return newBalance, nil
}

// Refund returns amount for requestID. A second refund for the same request
// writes nothing and reports refunded=false.
func (s *Service) Refund(ctx context.Context, accountID, requestID uuid.UUID, amount int) (refunded bool, balance int, err error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("begin refund tx: %w", err)
	}
	defer tx.Rollback(ctx)

	newBalance, err := s.Accounts.AddCredits(ctx, tx, accountID, amount)
	if err != nil {
		return false, 0, fmt.Errorf("add credits: %w", err)
	}
	inserted, err := s.Entries.CreateOnceTx(ctx, tx, &models.CreditLedger{
		ID:           uuid.New(),
		AccountID:    accountID,
		RequestID:    requestID,
		EntryType:    models.CreditEntryGenerationRefund,
		Amount:       amount,
		BalanceAfter: intPtr(newBalance),
	})
	if err != nil {
		return false, 0, fmt.Errorf("insert refund entry: %w", err)
	}
	if !inserted {
		// Already refunded: the deferred rollback discards the increment.
		return false, 0, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("commit refund tx: %w", err)
	}
	return true, newBalance, nil
}

// Balance returns the current balance of the account.
func (s *Service) Balance(ctx context.Context, accountID uuid.UUID) (int, error) {
	acc, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acc.CreditBalance, nil
}

func intPtr(n int) *int { return &n }
