package ids

import (
	"testing"

	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuctionID(t *testing.T) {
	id, err := ParseAuctionID("42")
	require.NoError(t, err)
	assert.Equal(t, AuctionID(42), id)
	assert.Equal(t, "42", id.String())

	_, err = ParseAuctionID("-1")
	require.ErrorIs(t, err, ErrInvalidAuctionID)
	assert.ErrorIs(t, err, errkind.ErrInvalidArgument)
}

func TestAssetRef(t *testing.T) {
	ref := AssetRef{Collection: "punks", TokenID: "7"}
	assert.Equal(t, "punks#7", ref.String())
	assert.False(t, ref.IsZero())
	assert.True(t, AssetRef{}.IsZero())
}
