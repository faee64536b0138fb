package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/betslipai/backend/internal/events"
	"github.com/betslipai/backend/internal/llm"
	"github.com/betslipai/backend/internal/models"
)

// State is a step of the per-request state machine.
type State string

const (
	StateInitiated      State = "INITIATED"
	StateAuthorized     State = "AUTHORIZED"
	StateFixturesReady  State = "FIXTURES_READY"
	StatePromptSent     State = "PROMPT_SENT"
	StateResponseParsed State = "RESPONSE_PARSED"
	StateReconciled     State = "RECONCILED"
	StateCompleted      State = "COMPLETED"
	StateRefundedFailed State = "REFUNDED_FAILED"
	StateDenied         State = "DENIED"
)

// FixtureSource supplies the full fixture list.
type FixtureSource interface {
	ListAll(ctx context.Context) ([]models.Fixture, error)
}

// Authorizer is the credit meter as seen by the generator.
type Authorizer interface {
	Authorize(ctx context.Context, acc *models.Account, requestID uuid.UUID, cost int) (*Charge, error)
}

// Recorder receives pipeline metrics.
type Recorder interface {
	ObserveGeneration(state, kind string, d time.Duration)
	AddCredits(direction string, n int)
}

// GenerationRequest is one call to Generate.
type GenerationRequest struct {
	RequestID uuid.UUID
	Account   *models.Account
	TargetOdd float64
}

// Result is returned by Generate on success and failure alike.
type Result struct {
	RequestID          uuid.UUID
	State              State
	Trace              []State
	Charge             *Charge
	Betslips           []models.Betslip
	FixturesConsidered int
	CandidatesParsed   int
	Refunded           bool
}

func (r *Result) enter(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

// Metadata returns the response metadata for the result.
func (r *Result) Metadata(model string) ResultMetadata {
	return ResultMetadata{
		RequestID:          r.RequestID.String(),
		FixturesConsidered: r.FixturesConsidered,
		CandidatesParsed:   r.CandidatesParsed,
		Model:              model,
		Refunded:           r.Refunded,
	}
}

// Generator runs the pipeline. Every failure after authorization is settled
// by a single reversal of the charge in settle.
type Generator struct {
	Meter      Authorizer
	Fixtures   FixtureSource
	LLM        llm.Client
	Model      llm.ModelConfig
	Policy     PromptPolicy
	Reconciler Reconciler

	Cost        int
	MaxFixtures int
	MaxBetslips int

	GenerationTimeout time.Duration
	SettleTimeout     time.Duration
	RefundEmptyResult bool

	Now     func() time.Time
	Events  events.Publisher
	Metrics Recorder
	Logger  *slog.Logger
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// Generate validates, charges, generates, and settles one request. The
// returned Result is never nil.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) (res *Result, err error) {
	started := g.now()
	if req.RequestID == uuid.Nil {
		req.RequestID = uuid.New()
	}
	res = &Result{RequestID: req.RequestID}
	res.enter(StateInitiated)
	log := g.logger().With("request_id", req.RequestID)

	if req.Account == nil {
		res.enter(StateDenied)
		g.observe(res, ErrAuthenticationRequired, started)
		return res, ErrAuthenticationRequired
	}
	log = log.With("account_id", req.Account.ID)
	if !ValidTargetOdd(req.TargetOdd) {
		err := fmt.Errorf("%w: target odd %v", ErrInvalidInput, req.TargetOdd)
		res.enter(StateDenied)
		g.observe(res, err, started)
		return res, err
	}

	charge, err := g.Meter.Authorize(ctx, req.Account, req.RequestID, g.Cost)
	if err != nil {
		res.enter(StateDenied)
		log.Info("generation denied", "error", err)
		g.observe(res, err, started)
		return res, err
	}
	res.Charge = charge
	res.enter(StateAuthorized)
	if !charge.Exempt {
		g.addCredits("charged", charge.Cost)
		g.publish(ctx, events.TypeCreditsCharged, res, charge.Cost)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("generation panicked", "panic", r)
			err = fmt.Errorf("%w: panic: %v", ErrInternal, r)
		}
		g.settle(ctx, res, err, log)
		g.observe(res, err, started)
	}()

	all, err := g.Fixtures.ListAll(ctx)
	if err != nil {
		return res, fmt.Errorf("list fixtures: %w", err)
	}
	_, manifest, err := SelectFixtures(all, g.now(), g.MaxFixtures)
	if err != nil {
		return res, err
	}
	res.FixturesConsidered = len(manifest)
	res.enter(StateFixturesReady)

	prompt, err := BuildPrompt(req.TargetOdd, manifest, g.Policy)
	if err != nil {
		return res, err
	}

	// The call runs to completion even if the client goes away so the charge
	// is always settled against a real outcome.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.generationTimeout())
	defer cancel()
	res.enter(StatePromptSent)
	raw, err := g.LLM.Generate(callCtx, prompt, g.Model)
	if err != nil {
		return res, err
	}

	candidates, err := ParseCandidates(raw, g.MaxBetslips)
	if err != nil {
		log.Warn("generation output rejected", "error", err, "bytes", len(raw))
		return res, err
	}
	res.CandidatesParsed = len(candidates)
	res.enter(StateResponseParsed)

	res.Betslips = g.Reconciler.Reconcile(candidates, manifest)
	res.enter(StateReconciled)
	return res, nil
}

func (g *Generator) generationTimeout() time.Duration {
	if g.GenerationTimeout > 0 {
		return g.GenerationTimeout
	}
	return 60 * time.Second
}

// settle keeps or reverses the charge. It is the only place a refund starts.
func (g *Generator) settle(ctx context.Context, res *Result, err error, log *slog.Logger) {
	timeout := g.SettleTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	charge := res.Charge
	reverse := err != nil || (g.RefundEmptyResult && len(res.Betslips) == 0)
	if !reverse {
		charge.Keep()
		res.enter(StateCompleted)
		log.Info("generation completed", "betslips", len(res.Betslips), "trace", res.Trace)
		g.publish(sctx, events.TypeGenerationCompleted, res, 0)
		return
	}

	refunded, rerr := charge.Reverse(sctx)
	if rerr != nil {
		log.Error("refund failed", "error", rerr, "cost", charge.Cost)
	}
	res.Refunded = refunded
	if refunded {
		g.addCredits("refunded", charge.Cost)
		g.publish(sctx, events.TypeCreditsRefunded, res, charge.Cost)
	}

	if err != nil {
		failedAt := res.State
		res.enter(StateRefundedFailed)
		log.Warn("generation failed", "kind", KindOf(err), "failed_at", failedAt, "refunded", refunded, "error", err)
		return
	}
	res.enter(StateCompleted)
	log.Info("generation completed with no betslips, refunded", "refunded", refunded)
	g.publish(sctx, events.TypeGenerationCompleted, res, 0)
}

func (g *Generator) observe(res *Result, err error, started time.Time) {
	if g.Metrics == nil {
		return
	}
	g.Metrics.ObserveGeneration(string(res.State), string(KindOf(err)), g.now().Sub(started))
}

func (g *Generator) addCredits(direction string, n int) {
	if g.Metrics != nil {
		g.Metrics.AddCredits(direction, n)
	}
}

// publish is best effort; metering consumers reconcile from the ledger.
func (g *Generator) publish(ctx context.Context, typ string, res *Result, amount int) {
	if g.Events == nil {
		return
	}
	e := events.Metering{
		Type:      typ,
		RequestID: res.RequestID.String(),
		AccountID: res.Charge.AccountID.String(),
		Amount:    amount,
		State:     string(res.State),
		Betslips:  len(res.Betslips),
	}
	if !res.Charge.Exempt {
		bal := res.Charge.BalanceAfter
		e.BalanceAfter = &bal
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := g.Events.Publish(pctx, e); err != nil {
		g.logger().Warn("publish metering event", "type", typ, "request_id", res.RequestID, "error", err)
	}
}
