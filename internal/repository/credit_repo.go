package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/betslipai/backend/internal/models"
)

type CreditRepo struct {
	pool *pgxpool.Pool
}

func NewCreditRepo(pool *pgxpool.Pool) *CreditRepo {
	return &CreditRepo{pool: pool}
}

// CreateTx inserts a ledger entry inside the given transaction.
func (r *CreditRepo) CreateTx(ctx context.Context, tx pgx.Tx, c *models.CreditLedger) error {
	return tx.QueryRow(ctx, `
		INSERT INTO credit_ledger (id, account_id, request_id, entry_type, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, c.ID, c.AccountID, c.RequestID, c.EntryType, c.Amount, c.BalanceAfter).Scan(&c.CreatedAt)
}

// CreateOnceTx inserts the entry unless one with the same (request_id, entry_type)
// already exists. Reports whether a row was written.
func (r *CreditRepo) CreateOnceTx(ctx context.Context, tx pgx.Tx, c *models.CreditLedger) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO credit_ledger (id, account_id, request_id, entry_type, amount, balance_after)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (request_id, entry_type) DO NOTHING
	`, c.ID, c.AccountID, c.RequestID, c.EntryType, c.Amount, c.BalanceAfter)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CreditRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.CreditLedger, error) {
	return r.list(ctx, `
		SELECT id, account_id, request_id, entry_type, amount, balance_after, created_at
		FROM credit_ledger WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
}

func (r *CreditRepo) ListByRequestID(ctx context.Context, requestID uuid.UUID) ([]*models.CreditLedger, error) {
	return r.list(ctx, `
		SELECT id, account_id, request_id, entry_type, amount, balance_after, created_at
		FROM credit_ledger WHERE request_id = $1 ORDER BY created_at
	`, requestID)
}

func (r *CreditRepo) list(ctx context.Context, query string, arg uuid.UUID) ([]*models.CreditLedger, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CreditLedger
	for rows.Next() {
		var c models.CreditLedger
		if err := rows.Scan(&c.ID, &c.AccountID, &c.RequestID, &c.EntryType, &c.Amount, &c.BalanceAfter, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}
