// Package memory is an in-process ledger: a non-fungible asset registry and a set of
// payment instruments (the native currency plus fungible tokens). It stands in for the
// external registries the engine talks to, and journals every mutation into the open
// txn unit so a failed engine operation reverts ledger effects too.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/txn"
)

// Assets tracks ownership and engine approvals of non-fungible items.
type Assets struct {
	mu        sync.RWMutex
	custodian ids.Account
	owners    map[ids.AssetRef]ids.Account
	approved  map[ids.AssetRef]bool
}

// NewAssets creates a registry whose custody transfers move items to and from custodian.
func NewAssets(custodian ids.Account) *Assets {
	return &Assets{
		custodian: custodian,
		owners:    make(map[ids.AssetRef]ids.Account),
		approved:  make(map[ids.AssetRef]bool),
	}
}

// Mint creates a new item owned by owner.
func (a *Assets) Mint(asset ids.AssetRef, owner ids.Account) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.owners[asset]; ok {
		return fmt.Errorf("%w: %s", ErrAssetExists, asset)
	}
	a.owners[asset] = owner
	return nil
}

// Approve lets the custodian take asset from its current owner.
func (a *Assets) Approve(asset ids.AssetRef, owner ids.Account) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	current, ok := a.owners[asset]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	if current != owner {
		return fmt.Errorf("%w: %s", ErrNotAssetOwner, asset)
	}
	a.approved[asset] = true
	return nil
}

// OwnerOf returns the current owner.
func (a *Assets) OwnerOf(asset ids.AssetRef) (ids.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	owner, ok := a.owners[asset]
	if !ok {
		return ids.NoAccount, fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	return owner, nil
}

// TransferToEngine moves asset from its approved owner into custody.
func (a *Assets) TransferToEngine(ctx context.Context, asset ids.AssetRef, from ids.Account) error {
	if from == a.custodian {
		return fmt.Errorf("%w: %s", ErrCustodianSource, asset)
	}
	a.mu.Lock()
	owner, ok := a.owners[asset]
	switch {
	case !ok:
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	case owner != from:
		a.mu.Unlock()
		return fmt.Errorf("%w: %s owned by %s", ErrNotAssetOwner, asset, owner)
	case !a.approved[asset]:
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAssetNotApproved, asset)
	}
	a.owners[asset] = a.custodian
	delete(a.approved, asset)
	a.mu.Unlock()

	txn.OnRollback(ctx, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.owners[asset] = owner
		a.approved[asset] = true
	})
	return nil
}

// TransferFromEngine releases asset from custody to to.
func (a *Assets) TransferFromEngine(ctx context.Context, asset ids.AssetRef, to ids.Account) error {
	a.mu.Lock()
	owner, ok := a.owners[asset]
	if !ok {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	if owner != a.custodian {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s is not in custody", ErrNotAssetOwner, asset)
	}
	a.owners[asset] = to
	a.mu.Unlock()

	txn.OnRollback(ctx, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.owners[asset] = owner
	})
	return nil
}
