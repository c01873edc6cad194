// Package export gates CSV downloads behind an external completion signal.
package export

import (
	"time"

	"github.com/vadiminshakov/stakeview/internal/csvexport"
	"github.com/vadiminshakov/stakeview/internal/domain"
)

// Phase is the state of an export gate.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseAwaitingCompletion
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingCompletion:
		return "awaiting_completion"
	default:
		return "unknown"
	}
}

// Artifact is a produced CSV download.
type Artifact struct {
	SessionID string
	Address   string
	Filename  string
	Content   string
	Rows      int
	CreatedAt time.Time
}

// Gate defers CSV production until the completion signal of the current export session.
// Transitions return a new Gate; the receiver is never modified.
type Gate struct {
	phase     Phase
	sessionID string
	now       func() time.Time
}

// Phase returns the current phase.
func (g Gate) Phase() Phase {
	return g.phase
}

// SessionID returns the id of the export session being awaited, empty when idle.
func (g Gate) SessionID() string {
	return g.sessionID
}

// Awaiting reports whether the gate waits for a completion signal.
func (g Gate) Awaiting() bool {
	return g.phase == PhaseAwaitingCompletion
}

// Request opens an export session. It is a no-op while a session is already open.
func (g Gate) Request(sessionID string) Gate {
	if g.phase == PhaseAwaitingCompletion || sessionID == "" {
		return g
	}
	g.phase = PhaseAwaitingCompletion
	g.sessionID = sessionID
	return g
}

// Complete handles the completion signal of sessionID and renders records, the
// dataset current at signal time. Signals for any other session, or while idle,
// return the gate unchanged and a nil artifact.
func (g Gate) Complete(sessionID, address string, records []domain.Record) (Gate, *Artifact) {
	if g.phase != PhaseAwaitingCompletion || sessionID != g.sessionID {
		return g, nil
	}

	artifact := &Artifact{
		SessionID: sessionID,
		Address:   address,
		Filename:  csvexport.Filename(address),
		Content:   csvexport.ToCSV(records),
		Rows:      len(records),
		CreatedAt: g.clock(),
	}

	g.phase = PhaseIdle
	g.sessionID = ""
	return g, artifact
}

// Cancel closes the open session without producing anything.
func (g Gate) Cancel() Gate {
	if g.phase != PhaseAwaitingCompletion {
		return g
	}
	g.phase = PhaseIdle
	g.sessionID = ""
	return g
}

// WithClock overrides the artifact timestamp source.
func (g Gate) WithClock(now func() time.Time) Gate {
	g.now = now
	return g
}

func (g Gate) clock() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now().UTC()
}
