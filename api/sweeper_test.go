package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/advice"
	"github.com/warp/ledger-engine/api"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/store"
	"github.com/warp/ledger-engine/pipeline"
)

func TestSweeper_SurfacesOverdueRequestsWithoutTraffic(t *testing.T) {
	// An overdue request should produce its warning on the next sweep even
	// if no client ever reads the session again.
	ctx := context.Background()
	m := store.NewMemory()
	p := pipeline.New(m, advice.DefaultConfig())

	sid := ledger.SessionID("swept")
	require.NoError(t, m.CreateSession(ctx, ledger.Session{ID: sid, CreatedAt: time.Now()}))
	_, err := p.CreateTransaction(ctx, ledger.Transaction{
		SessionID: sid,
		Date:      time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC),
		Amount:    ledger.NewMoney(100),
		Type:      ledger.Deposit,
	})
	require.NoError(t, err)

	req := ledger.PaymentRequest{
		SessionID: sid, Description: "Rent share",
		DueDate:          time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
		Amount:           ledger.NewMoney(400),
		NumberOfRequests: 1,
	}
	require.NoError(t, m.AppendRequest(ctx, &req))

	sweeper := api.NewAnalyticsSweeper(m, p)
	sweeper.RunNow()

	msgs, err := m.ListMessages(ctx, sid)
	require.NoError(t, err)
	var found bool
	for _, msg := range msgs {
		if msg.Type == ledger.MessageWarning && msg.Text == `Payment request "Rent share" was not filled before its due date` {
			found = true
		}
	}
	assert.True(t, found, "expected an overdue warning after the sweep")

	// A second sweep must not duplicate it.
	sweeper.RunNow()
	again, err := m.ListMessages(ctx, sid)
	require.NoError(t, err)
	assert.Len(t, again, len(msgs))
}

func TestSweeper_StartStop(t *testing.T) {
	p := pipeline.New(store.NewMemory(), advice.DefaultConfig())
	sweeper := api.NewAnalyticsSweeper(p.Store, p)
	sweeper.CheckInterval = 10 * time.Millisecond

	sweeper.Start()
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()

	// A second Stop must be a no-op, not a panic.
	sweeper.Stop()
}

func TestSweeper_Restart(t *testing.T) {
	p := pipeline.New(store.NewMemory(), advice.DefaultConfig())
	sweeper := api.NewAnalyticsSweeper(p.Store, p)
	sweeper.CheckInterval = 10 * time.Millisecond

	sweeper.Start()
	sweeper.Stop()
	sweeper.Start()
	sweeper.Stop()
}

func TestSweeper_DisabledDoesNotStart(t *testing.T) {
	p := pipeline.New(store.NewMemory(), advice.DefaultConfig())
	sweeper := api.NewAnalyticsSweeper(p.Store, p)
	sweeper.Enabled = false

	sweeper.Start()
	sweeper.Stop()
}
