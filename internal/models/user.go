package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// IsOperator reports whether the role may run check-in and read rosters.
func (r Role) IsOperator() bool {
	return r == RoleAdmin || r == RoleModerator
}

// User is a read-only copy of an identity owned by the identity service.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Role      Role      `bun:"role,notnull" json:"role"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
