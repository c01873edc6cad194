package export

import "time"

// Event records a completed export. It carries metadata only, never the exported rows.
type Event struct {
	Timestamp time.Time `json:"ts"`
	SessionID string    `json:"session_id"`
	Address   string    `json:"address"`
	Filename  string    `json:"filename"`
	Rows      int       `json:"rows"`
}

// EventRecord bundles an event with the log index it originated from.
type EventRecord struct {
	Index uint64
	Event Event
}

// NewEvent describes a produced artifact.
func NewEvent(a *Artifact) Event {
	return Event{
		Timestamp: a.CreatedAt,
		SessionID: a.SessionID,
		Address:   a.Address,
		Filename:  a.Filename,
		Rows:      a.Rows,
	}
}
