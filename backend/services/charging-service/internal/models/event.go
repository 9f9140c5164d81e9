package models

import "time"

// SessionEventType names a committed session transition.
type SessionEventType string

const (
	EventSessionReserved  SessionEventType = "SessionReserved"
	EventSessionCancelled SessionEventType = "SessionCancelled"
	EventSessionExpired   SessionEventType = "SessionExpired"
	EventSessionStarted   SessionEventType = "SessionStarted"
	EventSessionCompleted SessionEventType = "SessionCompleted"
	EventPileUpdated      SessionEventType = "PileUpdated"
)

// SessionEvent is emitted after a transaction touching a pile commits.
type SessionEvent struct {
	Type       SessionEventType
	Session    *Session
	PileID     int64
	LocationID int64
	PileStatus PileStatus
	At         time.Time
}
