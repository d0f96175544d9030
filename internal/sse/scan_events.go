package sse

import (
	"context"
	"sync"

	"ms-volunteer/internal/models"
)

const clientBuffer = 10

// ScanEventEmitter fans scan results out to SSE clients watching an event.
type ScanEventEmitter struct {
	mu      sync.RWMutex
	clients map[string][]chan models.ScanEvent
}

func NewScanEventEmitter() *ScanEventEmitter {
	return &ScanEventEmitter{clients: make(map[string][]chan models.ScanEvent)}
}

// SubscribeToEvent registers a client for eventID. The channel is closed once ctx is done.
func (e *ScanEventEmitter) SubscribeToEvent(ctx context.Context, eventID string) <-chan models.ScanEvent {
	clientChan := make(chan models.ScanEvent, clientBuffer)

	e.mu.Lock()
	e.clients[eventID] = append(e.clients[eventID], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(eventID, clientChan)
	}()

	return clientChan
}

// EmitScan implements checkin.ResultSink.
func (e *ScanEventEmitter) EmitScan(event models.ScanEvent) {
	// Held for the sends so removeClient cannot close a channel mid-send.
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, clientChan := range e.clients[event.EventID] {
		// Slow clients miss events rather than stall the scanner.
		select {
		case clientChan <- event:
		default:
		}
	}
}

func (e *ScanEventEmitter) removeClient(eventID string, clientChan chan models.ScanEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[eventID]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[eventID]) == 0 {
		delete(e.clients, eventID)
	}
}

func (e *ScanEventEmitter) ClientCount(eventID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[eventID])
}
