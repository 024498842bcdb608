package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/cristianortiz/multiCurrencyAuction/internal/shared/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []byte) ([]byte, bool) {
	t.Helper()
	select {
	case msg, ok := <-ch:
		return msg, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil, false
	}
}

func TestHub_BroadcastReachesOnlyFollowers(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	a1 := hub.NewClient(nil, 1)
	a2 := hub.NewClient(nil, 1)
	b := hub.NewClient(nil, 2)
	require.NotEqual(t, a1.ID, a2.ID)
	for _, c := range []*Client{a1, a2, b} {
		hub.RegisterClient(c)
	}

	hub.BroadcastToAuction(ids.AuctionID(1), []byte("update"))

	for _, c := range []*Client{a1, a2} {
		msg, ok := receive(t, c.Send)
		require.True(t, ok)
		assert.Equal(t, "update", string(msg))
	}
	assert.Empty(t, b.Send)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	c := hub.NewClient(nil, 7)
	hub.RegisterClient(c)
	hub.UnregisterClient(c)

	_, ok := receive(t, c.Send)
	assert.False(t, ok)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := hub.NewClient(nil, 3)
	hub.RegisterClient(c)
	// a broadcast round-trip guarantees the registration was processed
	hub.BroadcastToAuction(3, []byte("ping"))
	_, ok := receive(t, c.Send)
	require.True(t, ok)

	cancel()
	<-done
	_, ok = receive(t, c.Send)
	assert.False(t, ok)
}
