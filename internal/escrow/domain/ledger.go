package domain

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/txn"
	"github.com/shopspring/decimal"
)

var ErrInvalidCredit = errkind.New(errkind.ErrInvalidArgument, "escrow credit must be a positive amount")

// Key addresses one refundable balance. Balances are kept in raw instrument units.
type Key struct {
	AuctionID  ids.AuctionID
	Account    ids.Account
	Instrument ids.InstrumentID
}

// Entry is a Key with its current balance.
type Entry struct {
	Key
	Amount decimal.Decimal
}

// Ledger maps (auction, account, instrument) to a withdrawable raw amount.
// Mutations made inside a txn unit are reverted if the unit fails.
type Ledger struct {
	mu       sync.RWMutex
	balances map[Key]decimal.Decimal
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[Key]decimal.Decimal)}
}

// Credit adds amount to the entry, creating it if absent. Credits accumulate.
func (l *Ledger) Credit(ctx context.Context, key Key, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidCredit, amount)
	}

	l.mu.Lock()
	prev, existed := l.balances[key]
	l.balances[key] = prev.Add(amount)
	l.mu.Unlock()

	txn.OnRollback(ctx, func() { l.restore(key, prev, existed) })
	return nil
}

// Withdraw zeroes the entry and returns what it held. The entry is zeroed before the
// caller gets the amount back, so any transfer the caller makes afterwards cannot
// observe (and re-withdraw) the old balance. A zero balance returns zero, no error.
func (l *Ledger) Withdraw(ctx context.Context, key Key) decimal.Decimal {
	l.mu.Lock()
	amount, existed := l.balances[key]
	if !existed || amount.IsZero() {
		l.mu.Unlock()
		return decimal.Zero
	}
	delete(l.balances, key)
	l.mu.Unlock()

	txn.OnRollback(ctx, func() { l.restore(key, amount, true) })
	return amount
}

// Balance returns the withdrawable amount for key (zero when absent).
func (l *Ledger) Balance(key Key) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[key]
}

// Entries lists the non-zero balances of one auction, ordered by account then instrument.
func (l *Ledger) Entries(auctionID ids.AuctionID) []Entry {
	l.mu.RLock()
	out := make([]Entry, 0)
	for k, v := range l.balances {
		if k.AuctionID == auctionID && !v.IsZero() {
			out = append(out, Entry{Key: k, Amount: v})
		}
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Account != out[j].Account {
			return out[i].Account < out[j].Account
		}
		return out[i].Instrument < out[j].Instrument
	})
	return out
}

// Total sums the outstanding balances of one auction in one instrument.
func (l *Ledger) Total(auctionID ids.AuctionID, instrument ids.InstrumentID) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := decimal.Zero
	for k, v := range l.balances {
		if k.AuctionID == auctionID && k.Instrument == instrument {
			total = total.Add(v)
		}
	}
	return total
}

func (l *Ledger) restore(key Key, amount decimal.Decimal, existed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !existed {
		delete(l.balances, key)
		return
	}
	l.balances[key] = amount
}
