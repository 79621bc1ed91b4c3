package model

import "time"

type AuditEntry struct {
	ID         int64     `json:"id,omitempty"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    int64     `json:"actor_id,omitempty"`
	ActorEmail string    `json:"actor_email,omitempty"`
	ActorIP    string    `json:"actor_ip,omitempty"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
}

type AuditQuery struct {
	Action  string
	ActorID int64
	Status  string
	Page    int
	Limit   int
}
