package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/stakeview/internal/export"
)

const (
	exportPollInterval = 2 * time.Second
	heartbeatInterval  = 30 * time.Second
	reconnectDelayMS   = 5000
)

// exportFeed writes completed exports to one SSE subscriber. The SSE id of an
// event is its log index, so a reconnecting browser resumes via Last-Event-ID.
type exportFeed struct {
	w       http.ResponseWriter
	flusher http.Flusher
	store   exportStore
	address string // lower-cased filter, empty for all validators
	cursor  uint64
}

// drain sends every export logged after the cursor.
func (f *exportFeed) drain() (int, error) {
	records, err := f.store.EventsAfter(f.cursor)
	if err != nil {
		return 0, err
	}
	return f.send(records)
}

// send writes records the subscriber asked for and advances the cursor past all of them.
func (f *exportFeed) send(records []export.EventRecord) (int, error) {
	sent := 0
	for _, rec := range records {
		f.cursor = rec.Index
		if !f.wants(rec.Event) {
			continue
		}
		payload, err := json.Marshal(rec.Event)
		if err != nil {
			return sent, err
		}
		fmt.Fprintf(f.w, "id: %d\nevent: export\ndata: %s\n\n", rec.Index, payload)
		sent++
	}
	if sent > 0 {
		f.flusher.Flush()
	}
	return sent, nil
}

func (f *exportFeed) wants(ev export.Event) bool {
	return f.address == "" || strings.ToLower(ev.Address) == f.address
}

// resumeIndex reads the position to resume from: Last-Event-ID wins over ?after.
func resumeIndex(r *http.Request) (uint64, error) {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("after")
	}
	if raw == "" {
		return 0, nil
	}
	idx, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid resume position %q", raw)
	}
	return idx, nil
}

func (s *Server) handleExportStream(w http.ResponseWriter, r *http.Request) {
	if s.Exports == nil {
		writeError(w, http.StatusServiceUnavailable, "export log not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	cursor, err := resumeIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	feed := &exportFeed{
		w:       w,
		flusher: flusher,
		store:   s.Exports,
		address: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("address"))),
		cursor:  cursor,
	}
	logger := s.logger.With(zap.Uint64("from", cursor), zap.String("address", feed.address))

	// the backlog is read before any byte is written so a broken log still gets a proper status
	backlog, err := s.Exports.EventsAfter(cursor)
	if err != nil {
		logger.Error("export stream backlog", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read export log")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: %d\n\n", reconnectDelayMS)
	flusher.Flush()

	if len(backlog) > 0 {
		if _, err := feed.send(backlog); err != nil {
			logger.Warn("export stream backlog send", zap.Error(err))
			return
		}
	}
	logger.Debug("export subscriber attached")

	poll := time.NewTicker(exportPollInterval)
	defer poll.Stop()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug("export subscriber gone", zap.Uint64("cursor", feed.cursor))
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case <-poll.C:
			if _, err := feed.drain(); err != nil {
				logger.Warn("export stream poll", zap.Error(err))
			}
		}
	}
}
