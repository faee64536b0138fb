package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// RefundCreditsArgs is a refund the request path could not apply inline.
type RefundCreditsArgs struct {
	AccountID uuid.UUID `json:"account_id"`
	RequestID uuid.UUID `json:"request_id"`
	Amount    int       `json:"amount"`
}

func (RefundCreditsArgs) Kind() string { return "refund_credits" }

// InsertOpts makes duplicate enqueues for the same request collapse into one job.
func (RefundCreditsArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 25,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	}
}

// Refunder defines the contract the worker needs; it must be idempotent per request.
type Refunder interface {
	Refund(ctx context.Context, accountID, requestID uuid.UUID, amount int) (refunded bool, balance int, err error)
}

type RefundWorker struct {
	river.WorkerDefaults[RefundCreditsArgs]
	refunder Refunder
	logger   *slog.Logger
}

func NewRefundWorker(r Refunder, logger *slog.Logger) *RefundWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefundWorker{refunder: r, logger: logger}
}

func (w *RefundWorker) Timeout(*river.Job[RefundCreditsArgs]) time.Duration { return 30 * time.Second }

// Work retries the refund. An already-refunded request completes the job.
func (w *RefundWorker) Work(ctx context.Context, job *river.Job[RefundCreditsArgs]) error {
	args := job.Args
	if args.Amount <= 0 {
		return river.JobCancel(fmt.Errorf("refund amount must be positive, got %d", args.Amount))
	}
	refunded, balance, err := w.refunder.Refund(ctx, args.AccountID, args.RequestID, args.Amount)
	if err != nil {
		return fmt.Errorf("refund credits for request %s: %w", args.RequestID, err)
	}
	if refunded {
		w.logger.Info("queued refund applied", "request_id", args.RequestID, "account_id", args.AccountID, "amount", args.Amount, "balance", balance)
	} else {
		w.logger.Info("queued refund already applied", "request_id", args.RequestID)
	}
	return nil
}

// InsertFunc enqueues a refund job; main wires it to the River client.
type InsertFunc func(ctx context.Context, args RefundCreditsArgs) error

// RefundQueue adapts an InsertFunc to the credit meter's queue interface.
type RefundQueue struct {
	insert InsertFunc
}

func NewRefundQueue(insert InsertFunc) *RefundQueue {
	return &RefundQueue{insert: insert}
}

func (q *RefundQueue) EnqueueRefund(ctx context.Context, accountID, requestID uuid.UUID, amount int) error {
	return q.insert(ctx, RefundCreditsArgs{AccountID: accountID, RequestID: requestID, Amount: amount})
}
