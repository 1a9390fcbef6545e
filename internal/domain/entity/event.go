package entity

import "time"

// EventKind names what changed in a session.
type EventKind string

const (
	EventSession   EventKind = "session"
	EventPortfolio EventKind = "portfolio"
	EventCopied    EventKind = "copied"
	EventClosed    EventKind = "closed"
)

// SessionEvent is pushed to subscribers on every recomputation.
type SessionEvent struct {
	Kind EventKind `json:"kind"`
	Seq  uint64    `json:"seq"`
	At   time.Time `json:"at"`
}
