package checkin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ms-volunteer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.ScanEvent
}

func (s *recordingSink) EmitScan(event models.ScanEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func newTestController(t *testing.T) (*Controller, *recordingSink, string) {
	ctx := context.Background()
	store := openStore(t)
	reg := &models.Registration{RegistrationID: "R1", UserID: "U1", EventID: "E1"}
	require.NoError(t, store.Insert(ctx, reg))

	sink := &recordingSink{}
	c := NewController(NewVerifier(store, nil, nil), NewLocalGate(), sink, 0, nil)
	return c, sink, ticketFor(t, "U1", "E1", "R1")
}

func TestSessionScanLocksUntilAcknowledged(t *testing.T) {
	ctx := context.Background()
	c, sink, payload := newTestController(t)

	s, err := c.Open(ctx, "E1", "op-1")
	require.NoError(t, err)
	assert.False(t, s.Locked)

	result, processed, err := c.Scan(ctx, s.ID, payload)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, models.OutcomeAccepted, result.Outcome)

	// The camera keeps reporting the same code while the result is on screen.
	_, processed, err = c.Scan(ctx, s.ID, payload)
	require.NoError(t, err)
	assert.False(t, processed)

	current, err := c.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, current.Locked)
	require.NotNil(t, current.LastResult)
	assert.Equal(t, models.OutcomeAccepted, current.LastResult.Outcome)

	require.NoError(t, c.Acknowledge(ctx, s.ID))

	result, processed, err = c.Scan(ctx, s.ID, payload)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, models.OutcomeAlreadyAttended, result.Outcome)

	require.Len(t, sink.events, 2)
	assert.Equal(t, s.ID, sink.events[0].SessionID)
	assert.Equal(t, "E1", sink.events[0].EventID)
}

func TestSessionOneDecisionPerScanUnderBurst(t *testing.T) {
	ctx := context.Background()
	c, sink, payload := newTestController(t)
	s, err := c.Open(ctx, "E1", "op-1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	processedCount := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, processed, err := c.Scan(ctx, s.ID, payload)
			assert.NoError(t, err)
			if processed {
				mu.Lock()
				processedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, processedCount)
	assert.Len(t, sink.events, 1)
}

func TestSessionAutoDismiss(t *testing.T) {
	ctx := context.Background()
	c, _, payload := newTestController(t)
	gate := NewLocalGate()
	now := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }
	c.Gate = gate
	c.AutoDismiss = 3 * time.Second

	s, err := c.Open(ctx, "E1", "op-1")
	require.NoError(t, err)

	_, processed, err := c.Scan(ctx, s.ID, "garbage")
	require.NoError(t, err)
	assert.True(t, processed)

	_, processed, err = c.Scan(ctx, s.ID, payload)
	require.NoError(t, err)
	assert.False(t, processed)

	now = now.Add(3 * time.Second)
	result, processed, err := c.Scan(ctx, s.ID, payload)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, models.OutcomeAccepted, result.Outcome)
}

func TestSessionUnknownAndClosed(t *testing.T) {
	ctx := context.Background()
	c, _, payload := newTestController(t)

	_, _, err := c.Scan(ctx, "nope", payload)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, c.Acknowledge(ctx, "nope"), ErrSessionNotFound)
	assert.ErrorIs(t, c.Close(ctx, "nope"), ErrSessionNotFound)

	_, err = c.Open(ctx, "", "op-1")
	assert.ErrorIs(t, err, ErrEventRequired)

	s, err := c.Open(ctx, "E1", "op-1")
	require.NoError(t, err)
	_, _, err = c.Scan(ctx, s.ID, payload)
	require.NoError(t, err)
	require.NoError(t, c.Close(ctx, s.ID))

	_, err = c.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	locked, err := c.Gate.Locked(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestSessionClosedDuringScan(t *testing.T) {
	ctx := context.Background()
	c, _, payload := newTestController(t)
	s, err := c.Open(ctx, "E1", "op-1")
	require.NoError(t, err)

	// Simulate Close landing between lookup and verification.
	c.mu.Lock()
	c.sessions[s.ID].closed = true
	c.mu.Unlock()

	_, processed, err := c.Scan(ctx, s.ID, payload)
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.False(t, processed)
}

type failingGate struct{ *LocalGate }

func (g *failingGate) Acquire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis unavailable")
}

func TestSessionGateFailure(t *testing.T) {
	ctx := context.Background()
	c, _, payload := newTestController(t)
	c.Gate = &failingGate{LocalGate: NewLocalGate()}

	s, err := c.Open(ctx, "E1", "op-1")
	require.NoError(t, err)

	_, processed, err := c.Scan(ctx, s.ID, payload)
	assert.Error(t, err)
	assert.False(t, processed)
}

func TestSessionVerifierFailureUnlocks(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("FindByRegistrationID", ctx, "R1").Return(nil, errors.New("db down"))
	c := NewController(NewVerifier(store, nil, nil), nil, nil, 0, nil)

	s, err := c.Open(ctx, "E1", "op-1")
	require.NoError(t, err)

	_, processed, err := c.Scan(ctx, s.ID, ticketFor(t, "U1", "E1", "R1"))
	assert.Error(t, err)
	assert.False(t, processed)

	locked, err := c.Gate.Locked(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestCloseAll(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestController(t)
	a, err := c.Open(ctx, "E1", "op-1")
	require.NoError(t, err)
	b, err := c.Open(ctx, "E1", "op-2")
	require.NoError(t, err)

	c.CloseAll(ctx)

	_, err = c.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = c.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLocalGate(t *testing.T) {
	ctx := context.Background()
	g := NewLocalGate()
	now := time.Now()
	g.now = func() time.Time { return now }

	ok, err := g.Acquire(ctx, "s1", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = g.Acquire(ctx, "s1", 0)
	assert.False(t, ok)

	ok, _ = g.Acquire(ctx, "s2", time.Second)
	assert.True(t, ok, "sessions lock independently")

	now = now.Add(time.Hour)
	locked, _ := g.Locked(ctx, "s1")
	assert.True(t, locked, "no ttl holds until release")
	locked, _ = g.Locked(ctx, "s2")
	assert.False(t, locked)

	require.NoError(t, g.Release(ctx, "s1"))
	ok, _ = g.Acquire(ctx, "s1", 0)
	assert.True(t, ok)
}
