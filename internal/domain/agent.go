package domain

import "time"

// AgentRole enumerates operator roles.
type AgentRole string

const (
	AgentRoleAdmin AgentRole = "ADMIN"
	AgentRoleAgent AgentRole = "AGENT"
)

// Agent models a support operator able to own and act on tickets.
type Agent struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
