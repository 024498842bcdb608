// Package ids holds the identity types shared by the auction, escrow and pricing contexts.
package ids

import (
	"fmt"
	"strconv"

	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
)

var ErrInvalidAuctionID = errkind.New(errkind.ErrInvalidArgument, "invalid auction id")

// AuctionID is the monotonically increasing handle of an auction record, starting at 1.
type AuctionID uint64

func (id AuctionID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseAuctionID parses the decimal form produced by AuctionID.String.
func ParseAuctionID(s string) (AuctionID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidAuctionID, s)
	}
	return AuctionID(v), nil
}

// Account identifies a participant (seller, bidder, or the engine itself).
type Account string

// NoAccount is the zero identity, used for "no highest bidder".
const NoAccount Account = ""

// Engine is the account that holds assets and bid funds in custody.
const Engine Account = "auction-engine"

func (a Account) String() string { return string(a) }

// IsZero reports whether a is the empty identity.
func (a Account) IsZero() bool { return a == NoAccount }

// IsEngine reports whether a is the custody account.
func (a Account) IsEngine() bool { return a == Engine }

// InstrumentID identifies a payment instrument (native currency or a fungible token).
type InstrumentID string

// Native is the reserved identifier of the ledger's native currency.
const Native InstrumentID = "native"

func (i InstrumentID) String() string { return string(i) }

// AssetRef points at one non-fungible item: the collection it belongs to and its id there.
type AssetRef struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
}

func (a AssetRef) String() string {
	return a.Collection + "#" + a.TokenID
}

// IsZero reports whether a references nothing.
func (a AssetRef) IsZero() bool { return a.Collection == "" && a.TokenID == "" }
