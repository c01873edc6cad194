package exports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/stakeview/internal/export"
)

func event(session string, rows int) export.Event {
	return export.Event{
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		SessionID: session,
		Address:   "0x4838b106fce9647bdf1e7877bf73ce8b0bad5f97",
		Filename:  "validator-0x4838b106-rewards.csv",
		Rows:      rows,
	}
}

func TestWALStore_SaveAndRead(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(event("s1", 2)))
	require.NoError(t, store.Save(event("s2", 0)))
	assert.Equal(t, uint64(2), store.CurrentIndex())

	all, err := store.EventsAfter(0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(1), all[0].Index)
	assert.Equal(t, "s1", all[0].Event.SessionID)
	assert.Equal(t, 2, all[0].Event.Rows)
	assert.True(t, all[0].Event.Timestamp.Equal(event("s1", 2).Timestamp))

	tail, err := store.EventsAfter(1)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "s2", tail[0].Event.SessionID)

	none, err := store.EventsAfter(2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWALStore_RejectsEventWithoutSession(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.Error(t, store.Save(event("", 1)))
	assert.Equal(t, uint64(0), store.CurrentIndex())
}

func TestWALStore_NilStore(t *testing.T) {
	var store *WALStore
	assert.Error(t, store.Save(event("s1", 1)))
	_, err := store.EventsAfter(0)
	assert.Error(t, err)
	assert.Equal(t, uint64(0), store.CurrentIndex())
	assert.Error(t, store.Close())
}

func TestWALStore_RejectsSecondExportOfSession(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(event("s1", 2)))
	assert.True(t, store.Logged("s1"))
	assert.False(t, store.Logged("s2"))

	err = store.Save(event("s1", 5))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateSession)
	assert.Equal(t, uint64(1), store.CurrentIndex())

	all, err := store.EventsAfter(0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].Event.Rows)
}

func TestWALStore_SessionsSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save(event("s1", 1)))
	require.NoError(t, store.Save(event("s2", 3)))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.True(t, reopened.Logged("s1"))
	assert.True(t, reopened.Logged("s2"))
	assert.ErrorIs(t, reopened.Save(event("s2", 3)), ErrDuplicateSession)
	require.NoError(t, reopened.Save(event("s3", 4)))
	assert.Equal(t, uint64(3), reopened.CurrentIndex())
}

func TestWALStore_ClosedStore(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Save(event("s1", 1)), ErrClosed)
	_, err = store.EventsAfter(0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.Close(), ErrClosed)
}
