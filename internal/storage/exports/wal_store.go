// Package exports keeps the durable audit log of completed CSV exports.
package exports

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/stakeview/internal/export"
)

const (
	defaultDir    = "./wal/exports"
	segmentLimit  = 1000
	maxSegments   = 100
	filePrefix    = "export_"
	sessionPrefix = "session:"
)

var (
	// ErrDuplicateSession is returned when a session already produced its export.
	ErrDuplicateSession = errors.New("export session already logged")
	// ErrClosed is returned by every operation on a nil or closed store.
	ErrClosed = errors.New("export log is closed")
)

// WALStore is an append-only log of export events keyed by session id.
// A session is logged at most once, also across restarts.
type WALStore struct {
	mu       sync.RWMutex
	wal      *gowal.Wal
	sessions map[string]uint64 // session id -> log index
}

// NewWALStore opens the log under dir and indexes the sessions already in it.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultDir
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           filePrefix,
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open export log in %s", dir)
	}

	s := &WALStore{wal: wal, sessions: make(map[string]uint64)}
	for rec := range wal.Iterator() {
		if session, ok := strings.CutPrefix(rec.Key, sessionPrefix); ok {
			s.sessions[session] = rec.Index
		}
	}

	return s, nil
}

// Save logs ev as the single export of its session.
func (s *WALStore) Save(ev export.Event) error {
	if ev.SessionID == "" {
		return errors.New("export event has no session id")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encode export event")
	}

	if s == nil {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wal == nil {
		return ErrClosed
	}

	if idx, logged := s.sessions[ev.SessionID]; logged {
		return errors.Wrapf(ErrDuplicateSession, "session %s at index %d", ev.SessionID, idx)
	}

	idx := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(idx, sessionPrefix+ev.SessionID, payload); err != nil {
		return errors.Wrapf(err, "append export of session %s", ev.SessionID)
	}
	s.sessions[ev.SessionID] = idx
	return nil
}

// Logged reports whether session already has an export in the log.
func (s *WALStore) Logged(session string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[session]
	return ok
}

// EventsAfter returns the exports logged after index, oldest first.
func (s *WALStore) EventsAfter(index uint64) ([]export.EventRecord, error) {
	if s == nil {
		return nil, ErrClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wal == nil {
		return nil, ErrClosed
	}

	var out []export.EventRecord
	for idx := index + 1; idx <= s.wal.CurrentIndex(); idx++ {
		ev, ok, err := s.read(idx)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, export.EventRecord{Index: idx, Event: ev})
		}
	}
	return out, nil
}

// CurrentIndex is the index of the last logged export, 0 for an empty log.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wal == nil {
		return 0
	}
	return s.wal.CurrentIndex()
}

// Close flushes and closes the log. Later calls return ErrClosed.
func (s *WALStore) Close() error {
	if s == nil {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wal == nil {
		return ErrClosed
	}
	err := s.wal.Close()
	s.wal = nil
	return err
}

// read decodes the entry at idx. Entries rotated out of the log come back with
// an empty key and are reported as not ok, like entries under any other key.
func (s *WALStore) read(idx uint64) (export.Event, bool, error) {
	key, payload, err := s.wal.Get(idx)
	if err != nil {
		return export.Event{}, false, errors.Wrapf(err, "read export at index %d", idx)
	}
	if !strings.HasPrefix(key, sessionPrefix) {
		return export.Event{}, false, nil
	}
	var ev export.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return export.Event{}, false, errors.Wrapf(err, "decode export at index %d", idx)
	}
	return ev, true, nil
}
