package checkin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ms-volunteer/internal/logger"
	"ms-volunteer/internal/models"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("check-in session not found")
	ErrSessionClosed   = errors.New("check-in session is closed")
	ErrEventRequired   = errors.New("event id is required to open a session")
)

// ResultSink receives every decision so operator displays can show it.
type ResultSink interface {
	EmitScan(event models.ScanEvent)
}

// Session is one operator's check-in run for a single event.
type Session struct {
	ID         string             `json:"session_id"`
	EventID    string             `json:"event_id"`
	OperatorID string             `json:"operator_id,omitempty"`
	OpenedAt   time.Time          `json:"opened_at"`
	Locked     bool               `json:"locked"`
	LastResult *models.ScanResult `json:"last_result,omitempty"`

	closed bool
}

// Controller sequences scans within sessions: one decision per physical scan, and no
// further scans until the operator acknowledges the displayed result or it auto-dismisses.
type Controller struct {
	Verifier    *Verifier
	Gate        Gate
	Sink        ResultSink
	AutoDismiss time.Duration
	Logger      *logger.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	newID    func() string
}

func NewController(verifier *Verifier, gate Gate, sink ResultSink, autoDismiss time.Duration, log *logger.Logger) *Controller {
	if gate == nil {
		gate = NewLocalGate()
	}
	return &Controller{
		Verifier:    verifier,
		Gate:        gate,
		Sink:        sink,
		AutoDismiss: autoDismiss,
		Logger:      log,
		sessions:    make(map[string]*Session),
		newID:       uuid.NewString,
	}
}

// Open starts an unlocked session for eventID.
func (c *Controller) Open(ctx context.Context, eventID, operatorID string) (*Session, error) {
	if eventID == "" {
		return nil, ErrEventRequired
	}

	s := &Session{
		ID:         c.newID(),
		EventID:    eventID,
		OperatorID: operatorID,
		OpenedAt:   time.Now().UTC(),
	}
	// A reused id must not inherit a stale lock.
	if err := c.Gate.Release(ctx, s.ID); err != nil {
		return nil, fmt.Errorf("reset scan gate: %w", err)
	}

	c.mu.Lock()
	c.sessions[s.ID] = s
	c.mu.Unlock()

	c.Logger.LogScan(s.ID, "OPEN", fmt.Sprintf("event %s, operator %s", eventID, operatorID))
	snapshot := *s
	return &snapshot, nil
}

// Get returns a snapshot of the session including its current lock state.
func (c *Controller) Get(ctx context.Context, sessionID string) (*Session, error) {
	s, err := c.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	locked, err := c.Gate.Locked(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read scan gate: %w", err)
	}

	c.mu.Lock()
	snapshot := *s
	c.mu.Unlock()
	snapshot.Locked = locked
	return &snapshot, nil
}

// Scan handles one raw scanner input. processed is false when the session is locked and the
// input was ignored. On an infrastructure error the session is unlocked again.
func (c *Controller) Scan(ctx context.Context, sessionID, raw string) (result models.ScanResult, processed bool, err error) {
	s, err := c.lookup(sessionID)
	if err != nil {
		return models.ScanResult{}, false, err
	}

	acquired, err := c.Gate.Acquire(ctx, sessionID, c.AutoDismiss)
	if err != nil {
		return models.ScanResult{}, false, fmt.Errorf("acquire scan gate: %w", err)
	}
	if !acquired {
		c.Logger.Debug("SCAN", fmt.Sprintf("session %s locked, scan ignored", sessionID))
		return models.ScanResult{}, false, nil
	}

	c.mu.Lock()
	closed := s.closed
	c.mu.Unlock()
	if closed {
		_ = c.Gate.Release(ctx, sessionID)
		return models.ScanResult{}, false, ErrSessionClosed
	}

	result, err = c.Verifier.verify(ctx, sessionID, raw, s.EventID)
	if err != nil {
		if releaseErr := c.Gate.Release(ctx, sessionID); releaseErr != nil {
			c.Logger.Error("SCAN", fmt.Sprintf("Failed to unlock session %s: %v", sessionID, releaseErr))
		}
		return models.ScanResult{}, false, err
	}

	c.mu.Lock()
	s.LastResult = &result
	c.mu.Unlock()

	if c.Sink != nil {
		c.Sink.EmitScan(models.ScanEvent{SessionID: sessionID, EventID: s.EventID, Result: result})
	}
	return result, true, nil
}

// Acknowledge unlocks the session after the operator dismisses the displayed result.
func (c *Controller) Acknowledge(ctx context.Context, sessionID string) error {
	if _, err := c.lookup(sessionID); err != nil {
		return err
	}
	if err := c.Gate.Release(ctx, sessionID); err != nil {
		return fmt.Errorf("release scan gate: %w", err)
	}
	c.Logger.LogScan(sessionID, "ACK", "session unlocked")
	return nil
}

// Close ends the session. Nothing about it is retained.
func (c *Controller) Close(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	if ok {
		s.closed = true
		delete(c.sessions, sessionID)
	}
	c.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	if err := c.Gate.Release(ctx, sessionID); err != nil {
		return fmt.Errorf("release scan gate: %w", err)
	}
	c.Logger.LogScan(sessionID, "CLOSE", "session ended")
	return nil
}

// CloseAll ends every open session, for shutdown.
func (c *Controller) CloseAll(ctx context.Context) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		if err := c.Close(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			c.Logger.Warn("SCAN", fmt.Sprintf("Failed to close session %s: %v", id, err))
		}
	}
}

func (c *Controller) lookup(sessionID string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}
