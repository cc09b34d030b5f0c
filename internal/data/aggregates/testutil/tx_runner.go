package testutil

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/trainforge-backend/internal/data/aggregates"
	"github.com/yungbote/trainforge-backend/internal/platform/dbctx"
)

// InjectedTxRunner wraps a real transaction (or none, when DB is nil) and lets tests
// fail it at a chosen point. Failures after the body still roll back every write the
// body made.
type InjectedTxRunner struct {
	DB *gorm.DB

	FailBegin     error
	FailAfterBody error

	mu        sync.Mutex
	begins    int
	commits   int
	rollbacks int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.begins++
	failBegin, failAfter := r.FailBegin, r.FailAfterBody
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	run := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		return failAfter
	}

	var err error
	if r.DB == nil {
		err = run(dbctx.Context{Ctx: ctx})
	} else {
		err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return run(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.rollbacks++
		return err
	}
	r.commits++
	return nil
}

// Counts returns begin, commit and rollback totals.
func (r *InjectedTxRunner) Counts() (begins, commits, rollbacks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.begins, r.commits, r.rollbacks
}

// ErrInjected is the default failure tests inject after the body.
var ErrInjected = errors.New("injected failure")
