package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/auction/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/ledger/memory"
	pricing "github.com/cristianortiz/multiCurrencyAuction/internal/pricing/domain"
	"github.com/cristianortiz/multiCurrencyAuction/internal/pricing/infra/oracle"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdA ids.InstrumentID = "USDA"
	usdB ids.InstrumentID = "USDB"
	tokC ids.InstrumentID = "TOKC"

	seller  ids.Account = "seller"
	alice   ids.Account = "alice"
	bob     ids.Account = "bob"
	charlie ids.Account = "charlie"
)

var (
	day    = 24 * time.Hour
	art    = ids.AssetRef{Collection: "art", TokenID: "1"}
	usd    = func(v int64) decimal.Decimal { return decimal.New(v, pricing.CommonUnitDecimals) }
	plenty = decimal.New(1, 30)
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventName())
	}
	return out
}

// hookedInstruments wraps every instrument so tests can fail pushes, hold them, or
// call back into the engine from inside a pull or a push.
type hookedInstruments struct {
	bank       *memory.Bank
	failPush   bool
	beforePush func()
	onPush     func(ctx context.Context)
	onPull     func(ctx context.Context)
}

func (h *hookedInstruments) Instrument(id ids.InstrumentID) (domain.PaymentInstrument, error) {
	pi, err := h.bank.Instrument(id)
	if err != nil {
		return nil, err
	}
	return &hookedInstrument{PaymentInstrument: pi, hooks: h}, nil
}

type hookedInstrument struct {
	domain.PaymentInstrument
	hooks *hookedInstruments
}

func (h *hookedInstrument) Pull(ctx context.Context, from ids.Account, amount decimal.Decimal) error {
	if err := h.PaymentInstrument.Pull(ctx, from, amount); err != nil {
		return err
	}
	if cb := h.hooks.onPull; cb != nil {
		h.hooks.onPull = nil
		cb(ctx)
	}
	return nil
}

func (h *hookedInstrument) Push(ctx context.Context, to ids.Account, amount decimal.Decimal) error {
	if hold := h.hooks.beforePush; hold != nil {
		h.hooks.beforePush = nil
		hold()
	}
	if h.hooks.failPush {
		return fmt.Errorf("recipient %s rejected the transfer", to)
	}
	if err := h.PaymentInstrument.Push(ctx, to, amount); err != nil {
		return err
	}
	if cb := h.hooks.onPush; cb != nil {
		h.hooks.onPush = nil
		cb(ctx)
	}
	return nil
}

type engineFixture struct {
	engine   *Engine
	bank     *memory.Bank
	assets   *memory.Assets
	prices   *pricing.Normalizer
	feeds    map[ids.InstrumentID]*oracle.Feed
	hooks    *hookedInstruments
	clock    *testClock
	recorder *recorder
}

func newEngineFixture(t *testing.T, minIncrement decimal.Decimal) *engineFixture {
	t.Helper()

	f := &engineFixture{
		bank:     memory.NewBank(ids.Engine),
		assets:   memory.NewAssets(ids.Engine),
		prices:   pricing.NewNormalizer(),
		feeds:    map[ids.InstrumentID]*oracle.Feed{},
		clock:    &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		recorder: &recorder{},
	}
	f.hooks = &hookedInstruments{bank: f.bank}

	_, err := f.bank.DeployNative("ETH", 18)
	require.NoError(t, err)
	f.feeds[ids.Native] = oracle.NewUSDFeed(decimal.NewFromInt(1), 18)

	for _, tok := range []struct {
		id       ids.InstrumentID
		decimals int32
	}{{usdA, 6}, {usdB, 6}, {tokC, 18}} {
		_, err := f.bank.DeployToken(tok.id, string(tok.id), tok.decimals)
		require.NoError(t, err)
		f.feeds[tok.id] = oracle.NewUSDFeed(decimal.NewFromInt(1), tok.decimals)
	}
	for id, feed := range f.feeds {
		f.prices.Register(id, feed)
	}

	f.engine = NewEngine(Deps{
		Valuer:       f.prices,
		Custody:      f.assets,
		Payments:     f.hooks,
		Clock:        f.clock,
		Publisher:    f.recorder,
		MinIncrement: minIncrement,
	})
	return f
}

func (f *engineFixture) token(t *testing.T, id ids.InstrumentID) *memory.Token {
	t.Helper()
	tok, err := f.bank.Token(id)
	require.NoError(t, err)
	return tok
}

// fund mints and approves plenty of id for every account.
func (f *engineFixture) fund(t *testing.T, id ids.InstrumentID, accounts ...ids.Account) {
	t.Helper()
	tok := f.token(t, id)
	for _, acc := range accounts {
		require.NoError(t, tok.Mint(acc, plenty))
		require.NoError(t, tok.Approve(acc, plenty))
	}
}

func (f *engineFixture) createAuction(t *testing.T, reserve decimal.Decimal, duration time.Duration) ids.AuctionID {
	t.Helper()
	asset := ids.AssetRef{Collection: "art", TokenID: f.engine.NextAuctionID(context.Background()).String()}
	require.NoError(t, f.assets.Mint(asset, seller))
	require.NoError(t, f.assets.Approve(asset, seller))

	created, err := f.engine.CreateAuction(context.Background(), CreateAuctionDTO{
		Seller:       seller,
		Asset:        asset,
		ReserveValue: reserve,
		Duration:     duration,
	})
	require.NoError(t, err)
	return created.AuctionID
}

func (f *engineFixture) bid(id ids.AuctionID, bidder ids.Account, instrument ids.InstrumentID, amount decimal.Decimal) (domain.BidAccepted, error) {
	return f.engine.PlaceBid(context.Background(), PlaceBidDTO{
		AuctionID:  id,
		Bidder:     bidder,
		Instrument: instrument,
		Amount:     amount,
	})
}

func TestEngine_MultiCurrencyOutbidAndSettle(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	ctx := context.Background()
	f.fund(t, usdA, alice)
	f.fund(t, usdB, bob)
	f.fund(t, tokC, charlie)

	require.NoError(t, f.assets.Mint(art, seller))
	require.NoError(t, f.assets.Approve(art, seller))
	created, err := f.engine.CreateAuction(ctx, CreateAuctionDTO{
		Seller:       seller,
		Asset:        art,
		ReserveValue: usd(1000),
		Duration:     day,
	})
	require.NoError(t, err)
	id := created.AuctionID
	assert.Equal(t, ids.AuctionID(1), id)

	owner, err := f.assets.OwnerOf(art)
	require.NoError(t, err)
	assert.Equal(t, ids.Engine, owner)

	bidA := decimal.New(1010, 6)
	bidB := decimal.New(1025, 6)
	bidC := decimal.New(1040, 18)

	ev, err := f.bid(id, alice, usdA, bidA)
	require.NoError(t, err)
	assert.True(t, ev.Value.Equal(usd(1010)), "got %s", ev.Value)
	assert.Nil(t, ev.Outbid)

	ev, err = f.bid(id, bob, usdB, bidB)
	require.NoError(t, err)
	assert.True(t, ev.Value.Equal(usd(1025)))
	require.NotNil(t, ev.Outbid)
	assert.Equal(t, alice, ev.Outbid.Account)

	owed, err := f.engine.FundsToWithdraw(ctx, id, alice, usdA)
	require.NoError(t, err)
	assert.True(t, owed.Equal(bidA), "alice owed %s", owed)

	ev, err = f.bid(id, charlie, tokC, bidC)
	require.NoError(t, err)
	assert.True(t, ev.Value.Equal(usd(1040)))

	owed, err = f.engine.FundsToWithdraw(ctx, id, bob, usdB)
	require.NoError(t, err)
	assert.True(t, owed.Equal(bidB))

	state, err := f.engine.Auction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, charlie, state.HighestBidder)
	assert.Equal(t, 3, state.BidCount)
	assert.Equal(t, string(domain.StateActive), state.State)
	assert.True(t, state.MinimumNextValue.Equal(usd(1050)))

	_, err = f.engine.EndAuction(ctx, id, bob)
	require.ErrorIs(t, err, domain.ErrAuctionStillActive)

	f.clock.Advance(day)
	ended, err := f.engine.EndAuction(ctx, id, bob)
	require.NoError(t, err)
	assert.Equal(t, charlie, ended.Winner)
	assert.True(t, ended.FinalValue.Equal(usd(1040)))
	assert.Equal(t, tokC, ended.Instrument)

	owner, err = f.assets.OwnerOf(art)
	require.NoError(t, err)
	assert.Equal(t, charlie, owner)
	assert.True(t, f.token(t, tokC).BalanceOf(seller).Equal(bidC))
	assert.True(t, f.token(t, tokC).BalanceOf(ids.Engine).IsZero())

	// the refunds are still in custody until withdrawn
	assert.True(t, f.token(t, usdA).BalanceOf(ids.Engine).Equal(bidA))
	assert.True(t, f.token(t, usdB).BalanceOf(ids.Engine).Equal(bidB))

	paid, err := f.engine.Withdraw(ctx, id, usdA, alice)
	require.NoError(t, err)
	assert.True(t, paid.Equal(bidA))
	paid, err = f.engine.Withdraw(ctx, id, usdB, bob)
	require.NoError(t, err)
	assert.True(t, paid.Equal(bidB))

	assert.True(t, f.token(t, usdA).BalanceOf(alice).Equal(plenty))
	assert.True(t, f.token(t, usdB).BalanceOf(bob).Equal(plenty))
	assert.True(t, f.token(t, usdA).BalanceOf(ids.Engine).IsZero())
	assert.True(t, f.token(t, usdB).BalanceOf(ids.Engine).IsZero())

	assert.Equal(t, []string{
		"auction_created", "bid_accepted", "bid_accepted", "bid_accepted",
		"auction_ended", "funds_withdrawn", "funds_withdrawn",
	}, f.recorder.names())
}

func TestEngine_NativeBidsBelowIncrementRejected(t *testing.T) {
	// $0.01 increment with the native instrument priced at $1
	f := newEngineFixture(t, decimal.New(1, pricing.CommonUnitDecimals-2))
	ctx := context.Background()
	native := f.token(t, ids.Native)
	for _, acc := range []ids.Account{alice, bob, charlie} {
		require.NoError(t, native.Mint(acc, decimal.New(1, 18)))
	}

	id := f.createAuction(t, decimal.Zero, day)

	_, err := f.bid(id, alice, ids.Native, decimal.New(2, 17))
	require.NoError(t, err)
	_, err = f.bid(id, bob, ids.Native, decimal.New(25, 16))
	require.NoError(t, err)

	_, err = f.bid(id, charlie, ids.Native, decimal.New(201, 15))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBidTooLow)
	assert.ErrorIs(t, err, errkind.ErrValueTooLow)
	assert.True(t, native.BalanceOf(charlie).Equal(decimal.New(1, 18)), "rejected bid must not keep funds")

	f.clock.Advance(day + time.Second)
	_, err = f.engine.EndAuction(ctx, id, charlie)
	require.NoError(t, err)

	paid, err := f.engine.Withdraw(ctx, id, ids.Native, alice)
	require.NoError(t, err)
	assert.True(t, paid.Equal(decimal.New(2, 17)))
	assert.True(t, native.BalanceOf(alice).Equal(decimal.New(1, 18)))
	assert.True(t, native.BalanceOf(seller).Equal(decimal.New(25, 16)))
}

func TestEngine_NoBidsReturnsAssetToSeller(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	ctx := context.Background()
	id := f.createAuction(t, usd(500), time.Hour)

	f.clock.Advance(time.Hour)
	ended, err := f.engine.EndAuction(ctx, id, alice)
	require.NoError(t, err)
	assert.True(t, ended.Winner.IsZero())
	assert.True(t, ended.FinalValue.Equal(usd(500)))
	assert.True(t, ended.Amount.IsZero())

	owner, err := f.assets.OwnerOf(ids.AssetRef{Collection: "art", TokenID: "1"})
	require.NoError(t, err)
	assert.Equal(t, seller, owner)
	for _, tok := range f.bank.Tokens() {
		assert.True(t, tok.BalanceOf(seller).IsZero(), "unexpected payout in %s", tok.ID())
	}
}

func TestEngine_SettlementIdempotence(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	ctx := context.Background()
	f.fund(t, usdA, alice)
	id := f.createAuction(t, usd(100), time.Hour)
	_, err := f.bid(id, alice, usdA, decimal.New(200, 6))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.engine.EndAuction(ctx, id, alice)
	require.NoError(t, err)
	sellerBalance := f.token(t, usdA).BalanceOf(seller)

	_, err = f.engine.EndAuction(ctx, id, alice)
	require.ErrorIs(t, err, domain.ErrAuctionAlreadySettled)
	assert.ErrorIs(t, err, errkind.ErrStateConflict)
	assert.True(t, f.token(t, usdA).BalanceOf(seller).Equal(sellerBalance))

	_, err = f.bid(id, alice, usdA, decimal.New(500, 6))
	require.ErrorIs(t, err, errkind.ErrStateConflict)

	state, err := f.engine.Auction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StateSettled), state.State)
	assert.NotNil(t, state.SettledAt)
}

func TestEngine_NoBidAfterExpiry(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	f.fund(t, usdA, alice)
	id := f.createAuction(t, usd(100), time.Hour)

	f.clock.Advance(time.Hour)
	_, err := f.bid(id, alice, usdA, decimal.New(1000, 6))
	require.ErrorIs(t, err, domain.ErrAuctionExpired)
	assert.True(t, f.token(t, usdA).BalanceOf(alice).Equal(plenty))

	state, err := f.engine.Auction(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StateExpired), state.State)
}

func TestEngine_WithdrawNothingOwed(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	id := f.createAuction(t, usd(100), time.Hour)

	paid, err := f.engine.Withdraw(context.Background(), id, usdA, alice)
	require.NoError(t, err)
	assert.True(t, paid.IsZero())
	assert.Equal(t, []string{"auction_created"}, f.recorder.names())

	_, err = f.engine.Withdraw(context.Background(), 42, usdA, alice)
	require.ErrorIs(t, err, errkind.ErrNotFound)
}

func TestEngine_OutbidTwiceAccumulates(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	ctx := context.Background()
	f.fund(t, usdA, alice, bob)
	f.fund(t, usdB, alice)
	id := f.createAuction(t, usd(100), time.Hour)

	steps := []struct {
		bidder     ids.Account
		instrument ids.InstrumentID
		dollars    int64
	}{
		{alice, usdA, 200},
		{bob, usdA, 300},
		{alice, usdA, 400},
		{bob, usdA, 500},
		{alice, usdB, 600},
	}
	prev := usd(100)
	for _, s := range steps {
		ev, err := f.bid(id, s.bidder, s.instrument, decimal.New(s.dollars, 6))
		require.NoError(t, err)
		assert.True(t, ev.Value.GreaterThanOrEqual(prev.Add(usd(10))))
		prev = ev.Value
	}

	owedA, err := f.engine.FundsToWithdraw(ctx, id, alice, usdA)
	require.NoError(t, err)
	assert.True(t, owedA.Equal(decimal.New(600, 6)), "alice usdA %s", owedA)
	owedB, err := f.engine.FundsToWithdraw(ctx, id, bob, usdA)
	require.NoError(t, err)
	assert.True(t, owedB.Equal(decimal.New(800, 6)), "bob usdA %s", owedB)

	entries, err := f.engine.EscrowEntries(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, alice, entries[0].Account)
	assert.Equal(t, bob, entries[1].Account)

	// escrow conservation: custody holds exactly the refunds plus the standing bid
	assert.True(t, f.token(t, usdA).BalanceOf(ids.Engine).Equal(f.engine.EscrowTotal(ctx, id, usdA)))
	assert.True(t, f.token(t, usdB).BalanceOf(ids.Engine).Equal(decimal.New(600, 6)))
}

func TestEngine_PriceChangeAffectsLaterBids(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	f.fund(t, ids.Native, alice, bob)
	id := f.createAuction(t, usd(100), time.Hour)

	_, err := f.bid(id, alice, ids.Native, decimal.New(200, 18))
	require.NoError(t, err)

	// native drops to $0.50: 400 native is worth $200, not enough over $200 + $10
	f.feeds[ids.Native].SetAnswer(decimal.New(50, pricing.CommonUnitDecimals-2))
	_, err = f.bid(id, bob, ids.Native, decimal.New(400, 18))
	require.ErrorIs(t, err, errkind.ErrValueTooLow)

	ev, err := f.bid(id, bob, ids.Native, decimal.New(420, 18))
	require.NoError(t, err)
	assert.True(t, ev.Value.Equal(usd(210)))
}

func TestEngine_UnknownInstrumentRejected(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	id := f.createAuction(t, usd(100), time.Hour)

	_, err := f.bid(id, alice, "DOGE", decimal.NewFromInt(1000))
	require.ErrorIs(t, err, errkind.ErrNotFound)

	// deployed but without a quote source: the pull is reverted
	tok, err := f.bank.DeployToken("NOQUOTE", "NQ", 6)
	require.NoError(t, err)
	require.NoError(t, tok.Mint(alice, decimal.New(1, 12)))
	require.NoError(t, tok.Approve(alice, decimal.New(1, 12)))
	_, err = f.bid(id, alice, "NOQUOTE", decimal.New(1, 12))
	require.ErrorIs(t, err, pricing.ErrUnknownInstrument)
	assert.True(t, tok.BalanceOf(alice).Equal(decimal.New(1, 12)))
	assert.True(t, tok.Allowance(alice).Equal(decimal.New(1, 12)))
}

func TestEngine_CreateRequiresApprovedAsset(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	require.NoError(t, f.assets.Mint(art, seller))

	_, err := f.engine.CreateAuction(context.Background(), CreateAuctionDTO{
		Seller:       seller,
		Asset:        art,
		ReserveValue: usd(1),
		Duration:     time.Hour,
	})
	require.ErrorIs(t, err, errkind.ErrTransferFailed)
	require.ErrorIs(t, err, memory.ErrAssetNotApproved)
	assert.Equal(t, ids.AuctionID(1), f.engine.NextAuctionID(context.Background()))
	assert.Empty(t, f.engine.Auctions(context.Background()))
	assert.Empty(t, f.recorder.names())
}

func TestEngine_FailedPayoutRollsBackSettlement(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	ctx := context.Background()
	f.fund(t, usdA, alice)
	id := f.createAuction(t, usd(100), time.Hour)
	_, err := f.bid(id, alice, usdA, decimal.New(150, 6))
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	f.hooks.failPush = true
	_, err = f.engine.EndAuction(ctx, id, alice)
	require.ErrorIs(t, err, errkind.ErrTransferFailed)

	owner, err := f.assets.OwnerOf(ids.AssetRef{Collection: "art", TokenID: "1"})
	require.NoError(t, err)
	assert.Equal(t, ids.Engine, owner, "asset transfer must be reverted")
	state, err := f.engine.Auction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StateExpired), state.State)
	assert.NotContains(t, f.recorder.names(), "auction_ended")

	f.hooks.failPush = false
	_, err = f.engine.EndAuction(ctx, id, alice)
	require.NoError(t, err)
	assert.True(t, f.token(t, usdA).BalanceOf(seller).Equal(decimal.New(150, 6)))
}

func TestEngine_FailedRefundKeepsEscrow(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	ctx := context.Background()
	f.fund(t, usdA, alice, bob)
	id := f.createAuction(t, usd(100), time.Hour)
	_, err := f.bid(id, alice, usdA, decimal.New(150, 6))
	require.NoError(t, err)
	_, err = f.bid(id, bob, usdA, decimal.New(170, 6))
	require.NoError(t, err)

	f.hooks.failPush = true
	_, err = f.engine.Withdraw(ctx, id, usdA, alice)
	require.ErrorIs(t, err, errkind.ErrTransferFailed)

	owed, err := f.engine.FundsToWithdraw(ctx, id, alice, usdA)
	require.NoError(t, err)
	assert.True(t, owed.Equal(decimal.New(150, 6)))
}

func TestEngine_ReentrantWithdrawPaysOnce(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	ctx := context.Background()
	f.fund(t, usdA, alice, bob)
	id := f.createAuction(t, usd(100), time.Hour)
	_, err := f.bid(id, alice, usdA, decimal.New(150, 6))
	require.NoError(t, err)
	_, err = f.bid(id, bob, usdA, decimal.New(170, 6))
	require.NoError(t, err)

	var (
		reentered bool
		again     decimal.Decimal
		againErr  error
	)
	f.hooks.onPush = func(ctx context.Context) {
		reentered = true
		again, againErr = f.engine.Withdraw(ctx, id, usdA, alice)
	}

	paid, err := f.engine.Withdraw(ctx, id, usdA, alice)
	require.NoError(t, err)
	require.True(t, reentered)
	require.NoError(t, againErr)
	assert.True(t, again.IsZero())
	assert.True(t, paid.Equal(decimal.New(150, 6)))
	assert.True(t, f.token(t, usdA).BalanceOf(alice).Equal(plenty))
	assert.True(t, f.token(t, usdA).BalanceOf(ids.Engine).Equal(decimal.New(170, 6)))
}

func TestEngine_ReentrantEndFails(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	ctx := context.Background()
	f.fund(t, usdA, alice)
	id := f.createAuction(t, usd(100), time.Hour)
	_, err := f.bid(id, alice, usdA, decimal.New(150, 6))
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	var againErr error
	f.hooks.onPush = func(ctx context.Context) {
		_, againErr = f.engine.EndAuction(ctx, id, seller)
	}

	_, err = f.engine.EndAuction(ctx, id, seller)
	require.NoError(t, err)
	require.ErrorIs(t, againErr, domain.ErrAuctionAlreadySettled)
	assert.True(t, f.token(t, usdA).BalanceOf(seller).Equal(decimal.New(150, 6)))
	assert.Equal(t, 1, countOf(f.recorder.names(), "auction_ended"))
}

func TestEngine_ConcurrentBidsStaySerialized(t *testing.T) {
	f := newEngineFixture(t, usd(1))
	ctx := context.Background()
	bidders := make([]ids.Account, 8)
	for i := range bidders {
		bidders[i] = ids.Account(fmt.Sprintf("bidder-%d", i))
	}
	f.fund(t, usdA, bidders...)
	id := f.createAuction(t, usd(10), time.Hour)

	var wg sync.WaitGroup
	for i, b := range bidders {
		wg.Add(1)
		go func(i int, b ids.Account) {
			defer wg.Done()
			for round := 0; round < 10; round++ {
				_, _ = f.bid(id, b, usdA, decimal.New(int64(20+round*10+i), 6))
			}
		}(i, b)
	}
	wg.Wait()

	state, err := f.engine.Auction(ctx, id)
	require.NoError(t, err)
	require.False(t, state.HighestBidder.IsZero())

	held := f.token(t, usdA).BalanceOf(ids.Engine)
	assert.True(t, held.Equal(f.engine.EscrowTotal(ctx, id, usdA).Add(state.HighestBidAmount)),
		"custody %s != escrow %s + standing %s", held, f.engine.EscrowTotal(ctx, id, usdA), state.HighestBidAmount)
	assert.Equal(t, state.BidCount, countOf(f.recorder.names(), "bid_accepted"))
}

func TestEngine_CustodyAccountCannotBid(t *testing.T) {
	f := newEngineFixture(t, decimal.New(1, pricing.CommonUnitDecimals-2))
	ctx := context.Background()
	native := f.token(t, ids.Native)
	require.NoError(t, native.Mint(alice, decimal.New(2, 18)))

	first := f.createAuction(t, decimal.Zero, time.Hour)
	second := f.createAuction(t, decimal.Zero, time.Hour)
	_, err := f.bid(first, alice, ids.Native, decimal.New(1, 18))
	require.NoError(t, err)
	_, err = f.bid(second, alice, ids.Native, decimal.New(2, 17))
	require.NoError(t, err)

	// the custody balance already holds alice's first bid
	_, err = f.bid(second, ids.Engine, ids.Native, decimal.New(3, 17))
	require.ErrorIs(t, err, domain.ErrCustodyAccount)
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)

	_, err = f.engine.CreateAuction(ctx, CreateAuctionDTO{
		Seller:       ids.Engine,
		Asset:        ids.AssetRef{Collection: "art", TokenID: "1"},
		ReserveValue: decimal.Zero,
		Duration:     time.Hour,
	})
	require.ErrorIs(t, err, domain.ErrCustodyAccount)

	f.clock.Advance(time.Hour)
	_, err = f.engine.EndAuction(ctx, second, seller)
	require.NoError(t, err)
	_, err = f.engine.EndAuction(ctx, first, seller)
	require.NoError(t, err)

	assert.True(t, native.BalanceOf(seller).Equal(decimal.New(12, 17)), "seller got %s", native.BalanceOf(seller))
	assert.True(t, native.BalanceOf(ids.Engine).IsZero())
	for _, id := range []ids.AuctionID{first, second} {
		owner, err := f.assets.OwnerOf(ids.AssetRef{Collection: "art", TokenID: id.String()})
		require.NoError(t, err)
		assert.Equal(t, alice, owner)
	}
}

func TestEngine_QueriesWaitForOpenSettlement(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	ctx := context.Background()
	f.fund(t, usdA, alice)
	id := f.createAuction(t, usd(100), time.Hour)
	_, err := f.bid(id, alice, usdA, decimal.New(150, 6))
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	pushing := make(chan struct{})
	release := make(chan struct{})
	f.hooks.failPush = true
	f.hooks.beforePush = func() {
		close(pushing)
		<-release
	}

	ended := make(chan error)
	go func() {
		_, err := f.engine.EndAuction(ctx, id, alice)
		ended <- err
	}()
	<-pushing

	seen := make(chan *AuctionStateDTO)
	go func() {
		state, _ := f.engine.Auction(ctx, id)
		seen <- state
	}()

	select {
	case state := <-seen:
		t.Fatalf("query returned state %q while settlement was open", state.State)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.ErrorIs(t, <-ended, errkind.ErrTransferFailed)
	state := <-seen
	require.NotNil(t, state)
	assert.Equal(t, string(domain.StateExpired), state.State)
	assert.Nil(t, state.SettledAt)
}

func TestEngine_BidPlacedDuringPullIsOutbidInTurn(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	ctx := context.Background()
	f.fund(t, usdA, alice, bob)
	id := f.createAuction(t, usd(100), time.Hour)

	var nestedErr error
	f.hooks.onPull = func(ctx context.Context) {
		_, nestedErr = f.engine.PlaceBid(ctx, PlaceBidDTO{
			AuctionID:  id,
			Bidder:     bob,
			Instrument: usdA,
			Amount:     decimal.New(300, 6),
		})
	}

	ev, err := f.bid(id, alice, usdA, decimal.New(500, 6))
	require.NoError(t, err)
	require.NoError(t, nestedErr)

	// alice's bid is judged against bob's, which landed while her funds were being pulled
	require.NotNil(t, ev.Outbid)
	assert.Equal(t, bob, ev.Outbid.Account)
	owed, err := f.engine.FundsToWithdraw(ctx, id, bob, usdA)
	require.NoError(t, err)
	assert.True(t, owed.Equal(decimal.New(300, 6)))

	state, err := f.engine.Auction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice, state.HighestBidder)
	assert.Equal(t, 2, state.BidCount)
	assert.True(t, f.token(t, usdA).BalanceOf(ids.Engine).Equal(decimal.New(800, 6)))
	assert.Equal(t, []string{"auction_created", "bid_accepted", "bid_accepted"}, f.recorder.names())
}

func TestEngine_LosingBidDuringPullRevertsBoth(t *testing.T) {
	f := newEngineFixture(t, usd(10))
	f.fund(t, usdA, alice, bob)
	id := f.createAuction(t, usd(100), time.Hour)

	var nestedErr error
	f.hooks.onPull = func(ctx context.Context) {
		_, nestedErr = f.engine.PlaceBid(ctx, PlaceBidDTO{
			AuctionID:  id,
			Bidder:     bob,
			Instrument: usdA,
			Amount:     decimal.New(300, 6),
		})
	}

	_, err := f.bid(id, alice, usdA, decimal.New(200, 6))
	require.ErrorIs(t, err, domain.ErrBidTooLow)
	require.NoError(t, nestedErr)

	// the nested bid joined the failed unit, so it is undone with it
	state, err := f.engine.Auction(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, state.HighestBidder.IsZero())
	assert.Equal(t, 0, state.BidCount)
	assert.True(t, f.token(t, usdA).BalanceOf(alice).Equal(plenty))
	assert.True(t, f.token(t, usdA).BalanceOf(bob).Equal(plenty))
	assert.Equal(t, []string{"auction_created"}, f.recorder.names())
}

func countOf(names []string, name string) int {
	n := 0
	for _, s := range names {
		if s == name {
			n++
		}
	}
	return n
}
