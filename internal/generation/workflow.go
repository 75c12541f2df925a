// Package generation orchestrates one metered barcode generation attempt:
// check balance, debit, encode, render, and on post-debit failure compensate
// the ledger. Each attempt is a short-lived sequential pipeline; no lock is
// held across steps and the ledger is re-read on every attempt.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cardgen/internal/aamva"
	"cardgen/internal/audit"
	"cardgen/internal/ledger"
	"cardgen/internal/platform/metrics"
	dErrors "cardgen/pkg/domain-errors"
)

// State labels the lifecycle of one generation attempt.
type State string

const (
	StateIdle           State = "idle"
	StateBalanceChecked State = "balance_checked"
	StateDebited        State = "debited"
	StateEncoded        State = "encoded"
	StateRendered       State = "rendered"
	StateFailed         State = "failed"
)

// Ledger is the balance collaborator. Debit and Credit are single opaque
// round-trips that may fail independently; they are never retried here
// because a balance mutation without a deduplication token is not idempotent.
type Ledger interface {
	Balance(ctx context.Context, accountID ledger.AccountID) (ledger.Credits, error)
	Debit(ctx context.Context, accountID ledger.AccountID, amount ledger.Credits) (ledger.Credits, error)
	Credit(ctx context.Context, accountID ledger.AccountID, amount ledger.Credits) (ledger.Credits, error)
}

// Renderer is the symbol-rendering collaborator.
type Renderer interface {
	Render(ctx context.Context, record aamva.EncodedRecord, errorCorrectionLevel, columns int) ([]byte, error)
}

// Request binds one AttributeSet to the render parameters for one attempt.
type Request struct {
	Attributes           aamva.AttributeSet
	ErrorCorrectionLevel int
	Columns              int
}

// Result is the terminal outcome of a successful attempt.
type Result struct {
	State   State
	Record  aamva.EncodedRecord
	Image   []byte
	Balance ledger.Credits // balance after the debit
}

// Workflow runs metered generation attempts.
type Workflow struct {
	ledger   Ledger
	renderer Renderer
	cost     ledger.Credits

	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor audit.Publisher
	tracer  trace.Tracer

	// compensationTimeout bounds the refund call, which runs on a
	// cancellation-immune context so caller abandonment cannot leave a
	// charge without a refund attempt.
	compensationTimeout time.Duration
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

// WithMetrics sets the Prometheus metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) {
		w.metrics = m
	}
}

// WithAuditPublisher sets the audit event publisher.
func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(w *Workflow) {
		w.auditor = publisher
	}
}

// WithCompensationTimeout overrides the bound on the compensating credit.
func WithCompensationTimeout(d time.Duration) Option {
	return func(w *Workflow) {
		if d > 0 {
			w.compensationTimeout = d
		}
	}
}

// New creates a workflow charging cost credits per attempt.
func New(ledgerSvc Ledger, renderer Renderer, cost ledger.Credits, opts ...Option) (*Workflow, error) {
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if cost <= 0 {
		return nil, fmt.Errorf("generation cost must be positive")
	}

	w := &Workflow{
		ledger:              ledgerSvc,
		renderer:            renderer,
		cost:                cost,
		tracer:              otel.Tracer("cardgen/generation"),
		compensationTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Cost returns the fixed per-attempt charge.
func (w *Workflow) Cost() ledger.Credits {
	return w.cost
}

// Generate runs one attempt to a terminal state. Every failure is a typed
// domain error; none are retried here. After a successful debit, any failure
// triggers exactly one compensating credit: if the refund succeeds the
// original failure code is returned (charged and refunded); if the refund
// itself fails the error is CodeCompensationFailed, the one condition that
// leaves the ledger inconsistent, and it is never hidden behind a generic
// failure code.
func (w *Workflow) Generate(ctx context.Context, accountID ledger.AccountID, req Request) (*Result, error) {
	ctx, span := w.tracer.Start(ctx, "generation.attempt")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", string(accountID)))

	attempt := &attempt{state: StateIdle}

	// Idle -> BalanceChecked. The ledger is authoritative; the read here is
	// only an early gate, the debit re-checks atomically.
	balance, err := w.ledger.Balance(ctx, accountID)
	if err != nil {
		return nil, w.fail(ctx, span, attempt, accountID, err)
	}
	if balance < w.cost {
		err := dErrors.Newf(dErrors.CodeInsufficientCredits,
			"balance %s is below the generation cost %s", balance, w.cost)
		return nil, w.fail(ctx, span, attempt, accountID, err)
	}
	attempt.transition(StateBalanceChecked)

	// BalanceChecked -> Debited.
	newBalance, err := w.ledger.Debit(ctx, accountID, w.cost)
	if err != nil {
		return nil, w.fail(ctx, span, attempt, accountID, err)
	}
	attempt.transition(StateDebited)

	// Debited -> Encoded. Encoding is total; no failure path under the
	// encoder's contract.
	record := aamva.Encode(req.Attributes)
	attempt.transition(StateEncoded)

	// Encoded -> Rendered.
	renderStart := time.Now()
	image, err := w.renderer.Render(ctx, record, req.ErrorCorrectionLevel, req.Columns)
	if w.metrics != nil {
		w.metrics.ObserveRenderDuration(time.Since(renderStart))
	}
	if err != nil {
		err = w.compensate(ctx, accountID, err)
		return nil, w.fail(ctx, span, attempt, accountID, err)
	}
	attempt.transition(StateRendered)

	if w.metrics != nil {
		w.metrics.IncGenerationAttempts("success")
		w.metrics.AddCreditsDebited(w.cost.Float64())
	}
	w.emitAudit(ctx, audit.EventGenerationSucceeded, accountID,
		"cost", w.cost.String(),
		"new_balance", newBalance.String(),
	)

	return &Result{
		State:   StateRendered,
		Record:  record,
		Image:   image,
		Balance: newBalance,
	}, nil
}

// compensate credits back the debited amount after a post-debit failure. It
// runs on a context immune to caller cancellation: an abandoned request must
// still be refunded.
func (w *Workflow) compensate(ctx context.Context, accountID ledger.AccountID, cause error) error {
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.compensationTimeout)
	defer cancel()

	if _, refundErr := w.ledger.Credit(refundCtx, accountID, w.cost); refundErr != nil {
		if w.metrics != nil {
			w.metrics.IncRefundFailures()
		}
		w.emitAudit(ctx, audit.EventRefundFailed, accountID,
			"cost", w.cost.String(),
			"cause", cause.Error(),
			"refund_error", refundErr.Error(),
		)
		if w.logger != nil {
			w.logger.ErrorContext(ctx, "compensating credit failed; ledger is inconsistent",
				"account_id", accountID,
				"amount", w.cost.String(),
				"cause", cause.Error(),
				"refund_error", refundErr.Error(),
			)
		}
		return dErrors.Wrap(refundErr, dErrors.CodeCompensationFailed,
			fmt.Sprintf("refund of %s failed after post-debit failure: %v", w.cost, cause))
	}

	if w.metrics != nil {
		w.metrics.AddCreditsRefunded(w.cost.Float64())
	}
	w.emitAudit(ctx, audit.EventCreditsRefunded, accountID,
		"cost", w.cost.String(),
		"cause", cause.Error(),
	)
	return cause
}

func (w *Workflow) fail(ctx context.Context, span trace.Span, a *attempt, accountID ledger.AccountID, err error) error {
	a.transition(StateFailed)
	span.RecordError(err)
	span.SetAttributes(attribute.String("generation.failure_code", string(dErrors.CodeOf(err))))

	if w.metrics != nil {
		w.metrics.IncGenerationAttempts(string(dErrors.CodeOf(err)))
	}
	w.emitAudit(ctx, audit.EventGenerationFailed, accountID,
		"code", string(dErrors.CodeOf(err)),
		"reason", err.Error(),
	)
	if w.logger != nil {
		w.logger.WarnContext(ctx, "generation attempt failed",
			"account_id", accountID,
			"state", string(a.state),
			"code", string(dErrors.CodeOf(err)),
			"error", err.Error(),
		)
	}
	return err
}

func (w *Workflow) emitAudit(ctx context.Context, event audit.EventType, accountID ledger.AccountID, kv ...string) {
	if w.auditor == nil {
		return
	}
	w.auditor.Emit(ctx, audit.Event{
		Type:      event,
		AccountID: string(accountID),
		Details:   audit.Details(kv...),
	})
}

// attempt tracks the single-use state machine for one generation request.
// Terminal states (Rendered, Failed) accept no further transitions.
type attempt struct {
	state State
}

func (a *attempt) transition(next State) {
	if a.state == StateRendered || a.state == StateFailed {
		return
	}
	a.state = next
}
