package application

import (
	"context"
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	escrow "github.com/cristianortiz/multiCurrencyAuction/internal/escrow/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/logger"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/metrics"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/txn"
	"github.com/shopspring/decimal"
)

var log = logger.GetLogger()

// Engine is the settlement engine: the single entry point for create, bid, end and
// withdraw. Every operation runs as one atomic unit on the executor; observations
// are published only after the unit commits.
type Engine struct {
	exec      *txn.Executor
	registry  *domain.Registry
	escrow    *escrow.Ledger
	custody   domain.AssetCustody
	payments  domain.PaymentInstruments
	clock     domain.Clock
	publisher domain.Publisher
}

// Deps groups the engine's collaborators.
type Deps struct {
	Valuer    domain.Valuer
	Custody   domain.AssetCustody
	Payments  domain.PaymentInstruments
	Clock     domain.Clock
	Publisher domain.Publisher
	// MinIncrement is the flat increment in common units (USD * 10^8).
	MinIncrement decimal.Decimal
}

// NewEngine creates an engine with empty registry and escrow ledger.
func NewEngine(deps Deps) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = domain.SystemClock
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = domain.Publishers{}
	}
	ledger := escrow.NewLedger()
	return &Engine{
		exec:      txn.NewExecutor(),
		registry:  domain.NewRegistry(deps.Valuer, ledger, deps.Custody, deps.Payments, deps.MinIncrement),
		escrow:    ledger,
		custody:   deps.Custody,
		payments:  deps.Payments,
		clock:     clock,
		publisher: publisher,
	}
}

// run executes fn as an atomic unit and records the operation's latency and outcome.
func (e *Engine) run(ctx context.Context, operation string, fn func(ctx context.Context, now time.Time) error) error {
	start := time.Now()
	err := e.exec.Do(ctx, func(ctx context.Context) error {
		return fn(ctx, e.clock.Now())
	})
	metrics.ObserveOperation(operation, time.Since(start).Seconds(), err)
	return err
}

// publish queues ev for delivery once the outermost unit commits.
func (e *Engine) publish(ctx context.Context, ev domain.Event) {
	txn.AfterCommit(ctx, func() {
		e.publisher.Publish(context.WithoutCancel(ctx), ev)
	})
}

func reason(err error) string {
	if kind := errkind.Of(err); kind != nil {
		return kind.Error()
	}
	return "internal"
}
