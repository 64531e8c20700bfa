package gate

import (
	"context"
	"log/slog"
	"time"

	otelx "github.com/md-rashed-zaman/visadesk/libs/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Source reports whether an applicant has completed payment for their visa application.
type Source interface {
	HasCompletedPayment(ctx context.Context, userID string) (bool, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context, userID string) (bool, error)

func (f SourceFunc) HasCompletedPayment(ctx context.Context, userID string) (bool, error) {
	return f(ctx, userID)
}

// Result is the gate as seen by one page load.
type Result struct {
	Open     bool   `json:"open"`
	Degraded bool   `json:"degraded"`
	Warning  string `json:"warning,omitempty"`
}

type Outcome string

const (
	OutcomeOpen     Outcome = "open"
	OutcomeClosed   Outcome = "closed"
	OutcomeDegraded Outcome = "degraded"
)

func (r Result) Outcome() Outcome {
	switch {
	case r.Degraded:
		return OutcomeDegraded
	case r.Open:
		return OutcomeOpen
	default:
		return OutcomeClosed
	}
}

const DegradedWarning = "We could not confirm your payment status right now. You can continue scheduling; your payment will be verified before your appointment."

const defaultTimeout = 3 * time.Second

// Policy turns the payment signal into a gate. A failed or slow read opens the gate
// with a warning instead of blocking the applicant.
type Policy struct {
	source  Source
	logger  *slog.Logger
	timeout time.Duration
	observe func(Outcome)
}

func NewPolicy(source Source, logger *slog.Logger, timeout time.Duration) *Policy {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{source: source, logger: logger, timeout: timeout}
}

// WithObserver registers fn to be called with the outcome of every check.
func (p *Policy) WithObserver(fn func(Outcome)) *Policy {
	p.observe = fn
	return p
}

func (p *Policy) Check(ctx context.Context, userID string) Result {
	ctx, span := otelx.Tracer("gate").Start(ctx, "gate.check")
	defer span.End()

	res := p.read(ctx, userID)
	span.SetAttributes(attribute.String("gate.outcome", string(res.Outcome())))
	if p.observe != nil {
		p.observe(res.Outcome())
	}
	return res
}

func (p *Policy) read(ctx context.Context, userID string) Result {
	if p.source == nil {
		p.logger.Warn("payment gate has no source; failing open", "user_id", userID)
		return Result{Open: true, Degraded: true, Warning: DegradedWarning}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	completed, err := p.source.HasCompletedPayment(ctx, userID)
	if err != nil {
		p.logger.Warn("payment status read failed; failing open", "user_id", userID, "err", err)
		return Result{Open: true, Degraded: true, Warning: DegradedWarning}
	}
	return Result{Open: completed}
}
