package model

import "time"

// ActorRole distinguishes the two kinds of account that can sign in.
type ActorRole string

const (
	RoleParent ActorRole = "parent"
	RoleChild  ActorRole = "child"
)

// Valid reports whether r is one of the known roles.
func (r ActorRole) Valid() bool {
	return r == RoleParent || r == RoleChild
}

type Parent struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Child struct {
	ID           int64     `json:"id"`
	ParentID     int64     `json:"parent_id"`
	Name         string    `json:"name"`
	Age          int       `json:"age"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Points       int       `json:"points"`
	CreatedAt    time.Time `json:"created_at"`
}
