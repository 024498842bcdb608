// Package txn models the deterministic execution environment the engine runs in:
// every state-mutating operation executes as one serialized, all-or-nothing unit.
//
// Mutations register undo closures with OnRollback; observations are queued with
// AfterCommit. A failing unit replays its undo closures in reverse order and drops
// its queued observations. The open unit travels in the context, so a collaborator
// that calls back into the engine with the context it was handed joins the unit
// as a nested call (with its own savepoint) instead of blocking on the executor.
package txn

import (
	"context"
	"sync"
	"sync/atomic"
)

type ctxKey struct{}

// Unit is an open atomic unit. It is confined to the goroutine executing it.
type Unit struct {
	owner  *Executor
	undo   []func()
	commit []func()
	depth  int
	closed atomic.Bool
}

// Executor is the single serialization point for a set of state owners. Units hold
// it exclusively; readers share it through View.
type Executor struct {
	mu sync.RWMutex
}

// NewExecutor returns an Executor with no open unit.
func NewExecutor() *Executor {
	return &Executor{}
}

// Do runs fn as an atomic unit. If ctx already carries a unit opened by this
// executor, fn runs nested inside it: on error only fn's own effects are undone
// and the outer unit decides the final outcome.
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if u, ok := e.open(ctx); ok {
		return u.nested(ctx, fn)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	u := &Unit{owner: e}
	ctx = context.WithValue(ctx, ctxKey{}, u)

	defer func() {
		defer u.closed.Store(true)
		if r := recover(); r != nil {
			u.revertTo(0, 0)
			panic(r)
		}
		if err != nil {
			u.revertTo(0, 0)
			return
		}
		hooks := u.commit
		u.undo, u.commit = nil, nil
		for _, h := range hooks {
			h()
		}
	}()

	return fn(ctx)
}

// View runs fn with the executor shared, so fn only observes committed state. When
// ctx carries an open unit of this executor (a collaborator or an after-commit hook
// reading back), fn runs inside that unit and sees its effects.
func (e *Executor) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := e.open(ctx); ok {
		return fn(ctx)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(ctx)
}

// open returns the unit in ctx if this executor opened it and it has not finished yet.
func (e *Executor) open(ctx context.Context) (*Unit, bool) {
	u, ok := FromContext(ctx)
	if !ok || u.owner != e || u.closed.Load() {
		return nil, false
	}
	return u, true
}

func (u *Unit) nested(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	undoMark, commitMark := len(u.undo), len(u.commit)
	u.depth++
	defer func() {
		u.depth--
		if r := recover(); r != nil {
			u.revertTo(undoMark, commitMark)
			panic(r)
		}
		if err != nil {
			u.revertTo(undoMark, commitMark)
		}
	}()
	return fn(ctx)
}

func (u *Unit) revertTo(undoMark, commitMark int) {
	for i := len(u.undo) - 1; i >= undoMark; i-- {
		u.undo[i]()
	}
	u.undo = u.undo[:undoMark]
	u.commit = u.commit[:commitMark]
}

// FromContext returns the unit open in ctx, if any.
func FromContext(ctx context.Context) (*Unit, bool) {
	u, ok := ctx.Value(ctxKey{}).(*Unit)
	return u, ok
}

// Depth is 0 for the outermost call and grows with every reentrant call.
func (u *Unit) Depth() int {
	return u.depth
}

// OnRollback registers f to run if the enclosing unit (or savepoint) fails.
// Outside of a unit the mutation is already final and f is discarded.
func OnRollback(ctx context.Context, f func()) {
	if u, ok := FromContext(ctx); ok && !u.closed.Load() {
		u.undo = append(u.undo, f)
	}
}

// AfterCommit queues f until the outermost unit commits. Outside of a unit f runs immediately.
func AfterCommit(ctx context.Context, f func()) {
	if u, ok := FromContext(ctx); ok && !u.closed.Load() {
		u.commit = append(u.commit, f)
		return
	}
	f()
}
