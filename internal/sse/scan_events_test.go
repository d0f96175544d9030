package sse

import (
	"context"
	"testing"
	"time"

	"ms-volunteer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitReachesOnlyEventSubscribers(t *testing.T) {
	e := NewScanEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e1 := e.SubscribeToEvent(ctx, "E1")
	e2 := e.SubscribeToEvent(ctx, "E2")

	e.EmitScan(models.ScanEvent{SessionID: "s1", EventID: "E1", Result: models.InvalidScan("E1", models.ReasonMalformedTicket)})

	select {
	case got := <-e1:
		assert.Equal(t, "s1", got.SessionID)
		assert.Equal(t, models.OutcomeInvalid, got.Result.Outcome)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}

	select {
	case <-e2:
		t.Fatal("other event's subscriber received event")
	default:
	}
}

func TestSlowClientDoesNotBlock(t *testing.T) {
	e := NewScanEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := e.SubscribeToEvent(ctx, "E1")

	for i := 0; i < clientBuffer*3; i++ {
		e.EmitScan(models.ScanEvent{EventID: "E1"})
	}
	assert.Len(t, ch, clientBuffer)
}

func TestUnsubscribeOnContextDone(t *testing.T) {
	e := NewScanEventEmitter()
	ctx, cancel := context.WithCancel(context.Background())
	ch := e.SubscribeToEvent(ctx, "E1")
	require.Equal(t, 1, e.ClientCount("E1"))

	cancel()

	require.Eventually(t, func() bool { return e.ClientCount("E1") == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-ch
	assert.False(t, open)

	assert.NotPanics(t, func() { e.EmitScan(models.ScanEvent{EventID: "E1"}) })
}
