package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/txn"
	"github.com/shopspring/decimal"
)

// Token is one payment instrument: balances in raw units, plus allowances granted to
// the custodian. The native instrument skips the allowance check on Pull, the way
// value attached to a call needs no approval.
type Token struct {
	mu         sync.RWMutex
	id         ids.InstrumentID
	symbol     string
	decimals   int32
	native     bool
	custodian  ids.Account
	balances   map[ids.Account]decimal.Decimal
	allowances map[ids.Account]decimal.Decimal
}

func newToken(id ids.InstrumentID, symbol string, decimals int32, native bool, custodian ids.Account) *Token {
	return &Token{
		id:         id,
		symbol:     symbol,
		decimals:   decimals,
		native:     native,
		custodian:  custodian,
		balances:   make(map[ids.Account]decimal.Decimal),
		allowances: make(map[ids.Account]decimal.Decimal),
	}
}

func (t *Token) ID() ids.InstrumentID { return t.id }

func (t *Token) Symbol() string { return t.symbol }

func (t *Token) Decimals() int32 { return t.decimals }

func (t *Token) Native() bool { return t.native }

// Mint credits amount to account out of thin air.
func (t *Token) Mint(account ids.Account, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] = t.balances[account].Add(amount)
	return nil
}

// Approve sets the custodian's allowance over owner's balance.
func (t *Token) Approve(owner ids.Account, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allowances[owner] = amount
	return nil
}

func (t *Token) BalanceOf(account ids.Account) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balances[account]
}

func (t *Token) Allowance(owner ids.Account) decimal.Decimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowances[owner]
}

// Pull moves amount from from to the custodian, spending allowance for non-native tokens.
func (t *Token) Pull(ctx context.Context, from ids.Account, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if from == t.custodian {
		return fmt.Errorf("%w: %s pull from %s", ErrCustodianSource, t.symbol, from)
	}
	t.mu.Lock()
	prevAllowance := t.allowances[from]
	if !t.native && prevAllowance.LessThan(amount) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s allowance %s < %s", ErrInsufficientAllowance, t.symbol, prevAllowance, amount)
	}
	if t.balances[from].LessThan(amount) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s balance %s < %s", ErrInsufficientBalance, t.symbol, t.balances[from], amount)
	}
	if !t.native {
		t.allowances[from] = prevAllowance.Sub(amount)
	}
	t.move(from, t.custodian, amount)
	t.mu.Unlock()

	txn.OnRollback(ctx, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.move(t.custodian, from, amount)
		if !t.native {
			t.allowances[from] = prevAllowance
		}
	})
	return nil
}

// Push moves amount from the custodian to to.
func (t *Token) Push(ctx context.Context, to ids.Account, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	t.mu.Lock()
	if t.balances[t.custodian].LessThan(amount) {
		t.mu.Unlock()
		return fmt.Errorf("%w: custodian holds %s %s, needs %s", ErrInsufficientBalance, t.balances[t.custodian], t.symbol, amount)
	}
	t.move(t.custodian, to, amount)
	t.mu.Unlock()

	txn.OnRollback(ctx, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.move(to, t.custodian, amount)
	})
	return nil
}

// move must be called with t.mu held.
func (t *Token) move(from, to ids.Account, amount decimal.Decimal) {
	t.balances[from] = t.balances[from].Sub(amount)
	t.balances[to] = t.balances[to].Add(amount)
}

func checkAmount(amount decimal.Decimal) error {
	if amount.IsNegative() || !amount.Equal(amount.Truncate(0)) {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	return nil
}

// Bank is the set of deployed instruments. It implements domain.PaymentInstruments.
type Bank struct {
	mu        sync.RWMutex
	custodian ids.Account
	tokens    map[ids.InstrumentID]*Token
}

func NewBank(custodian ids.Account) *Bank {
	return &Bank{custodian: custodian, tokens: make(map[ids.InstrumentID]*Token)}
}

// DeployNative registers the native currency under ids.Native.
func (b *Bank) DeployNative(symbol string, decimals int32) (*Token, error) {
	return b.deploy(ids.Native, symbol, decimals, true)
}

// DeployToken registers a fungible token.
func (b *Bank) DeployToken(id ids.InstrumentID, symbol string, decimals int32) (*Token, error) {
	return b.deploy(id, symbol, decimals, false)
}

func (b *Bank) deploy(id ids.InstrumentID, symbol string, decimals int32, native bool) (*Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tokens[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrInstrumentExists, id)
	}
	t := newToken(id, symbol, decimals, native, b.custodian)
	b.tokens[id] = t
	return t, nil
}

// Token returns the deployed instrument.
func (b *Bank) Token(id ids.InstrumentID) (*Token, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tokens[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstrument, id)
	}
	return t, nil
}

// Instrument implements domain.PaymentInstruments.
func (b *Bank) Instrument(id ids.InstrumentID) (domain.PaymentInstrument, error) {
	t, err := b.Token(id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Tokens lists deployed instruments by id.
func (b *Bank) Tokens() []*Token {
	b.mu.RLock()
	out := make([]*Token, 0, len(b.tokens))
	for _, t := range b.tokens {
		out = append(out, t)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
