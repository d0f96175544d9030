package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event is a read-only copy of an event owned by the event-management service.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID        string    `bun:"id,pk" json:"id"`
	Title     string    `bun:"title,notnull" json:"title"`
	StartTime time.Time `bun:"start_time,notnull" json:"start_time"`
	Capacity  *int      `bun:"capacity" json:"capacity,omitempty"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
