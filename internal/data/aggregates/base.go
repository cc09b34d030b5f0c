package aggregates

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/trainforge-backend/internal/domain/aggregates"
	"github.com/yungbote/trainforge-backend/internal/platform/dbctx"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
)

const (
	tracerName = "trainforge/aggregates"
	// defaultWriteAttempts covers one rerun after a serialization failure or a busy sqlite file.
	defaultWriteAttempts = 2
)

// TxRunner opens the transaction an aggregate write runs in.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "no database configured", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
	// MaxAttempts bounds reruns of a write that failed with a retryable code. Zero means 2.
	MaxAttempts int
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = defaultWriteAttempts
	}
	return d
}

// executeWrite runs fn in a fresh transaction, rerunning it while the failure is
// retryable and ctx is still live. fn must not keep state across runs.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	ctx, span := otel.Tracer(tracerName).Start(ctx, op)
	defer span.End()

	var mapped error
	attempt := 1
	for ; ; attempt++ {
		mapped = MapError(op, deps.Runner.InTx(ctx, fn))
		if mapped == nil || !domainagg.CodeOf(mapped).Retryable() || attempt >= deps.MaxAttempts || ctx.Err() != nil {
			break
		}
		deps.Hooks.IncRetry(op)
		deps.Log.Debug("aggregate write retrying", "op", op, "attempt", attempt, "error", mapped)
	}

	status := aggregateErrorStatus(mapped)
	if domainagg.IsCode(mapped, domainagg.CodeConflict) {
		deps.Hooks.IncConflict(op)
	}
	span.SetAttributes(
		attribute.String("aggregate.status", status),
		attribute.Int("aggregate.attempts", attempt),
	)
	if mapped != nil {
		span.RecordError(mapped)
		span.SetStatus(codes.Error, status)
		deps.Log.Debug("aggregate write failed", "op", op, "status", status, "error", mapped)
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	if code := domainagg.CodeOf(err); code != "" {
		return string(code)
	}
	if code := domainagg.CodeOf(MapError("aggregate.status", err)); code != "" {
		return string(code)
	}
	return "failure"
}
