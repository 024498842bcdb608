package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", c.HTTP.Addr)
	assert.False(t, c.DB.Enabled)
	assert.True(t, decimal.NewFromInt(10).Equal(c.Auction.MinIncrementUSD))
	assert.Equal(t, int32(18), c.Auction.NativeDecimals)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MIN_INCREMENT_USD", "0.01")
	t.Setenv("NATIVE_PRICE_USD", "1")
	t.Setenv("PERSISTENCE_ENABLED", "true")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "bob")
	t.Setenv("DB_PASSWORD", "secret")

	c, err := Load()
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("0.01").Equal(c.Auction.MinIncrementUSD))
	assert.True(t, c.DB.Enabled)
	assert.Equal(t, "postgres://bob:secret@db:5432/auctions?sslmode=disable", c.PostgresDSN())
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"negative increment", "MIN_INCREMENT_USD", "-1"},
		{"zero native price", "NATIVE_PRICE_USD", "0"},
		{"malformed decimal", "NATIVE_PRICE_USD", "abc"},
		{"decimals out of range", "NATIVE_DECIMALS", "77"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			require.Error(t, err)
		})
	}
}
