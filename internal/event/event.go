package event

import "time"

type Type string

const (
	TypeUserRegistered  Type = "user.registered"
	TypeLoginSucceeded  Type = "login.succeeded"
	TypeLoginFailed     Type = "login.failed"
	TypeAccountLocked   Type = "account.locked"
	TypeLogout          Type = "user.logout"
	TypePasswordChanged Type = "password.changed"
	TypeProfileUpdated  Type = "profile.updated"
	TypeAccountDeleted  Type = "account.deleted"
)

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    int64     `json:"actor_id,omitempty"`
	ActorEmail string    `json:"actor_email,omitempty"`
	ActorIP    string    `json:"actor_ip,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
