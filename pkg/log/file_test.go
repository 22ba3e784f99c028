package log

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, path string, filter Filter) []Event {
	t.Helper()
	r, err := NewFilteredReader(path, filter)
	require.NoError(t, err)
	defer r.Close()

	var events []Event
	require.NoError(t, r.Each(func(e Event) error {
		events = append(events, e)
		return nil
	}))
	return events
}

func TestFileLoggerCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captures", "2026", "session.mlog")

	l, err := NewFileLogger(path)
	require.NoError(t, err)
	l.Log(Event{Timestamp: time.Now(), ConnectionID: "conn-1"})
	require.NoError(t, l.Close())

	assert.FileExists(t, path)
	assert.Equal(t, 1, l.Written())
	assert.NoError(t, l.Err())
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.mlog")

	for _, id := range []string{"conn-1", "conn-2"} {
		l, err := NewFileLogger(path)
		require.NoError(t, err)
		l.Log(Event{Timestamp: time.Now(), ConnectionID: id, Link: NewLinkEvent("NOTIFY", make([]byte, 20))})
		require.NoError(t, l.Close())
	}

	events := readAll(t, path, Filter{})
	require.Len(t, events, 2)
	assert.Equal(t, "conn-1", events[0].ConnectionID)
	assert.Equal(t, "conn-2", events[1].ConnectionID)
	assert.Equal(t, 20, events[1].Link.Size)
}

func TestFileLoggerConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.mlog")
	l, err := NewFileLogger(path)
	require.NoError(t, err)

	const writers, each = 10, 100
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				l.Log(Event{Timestamp: time.Now(), ConnectionID: string(rune('A' + i))})
			}
		}()
	}
	wg.Wait()
	require.NoError(t, l.Close())

	assert.Equal(t, writers*each, l.Written())
	assert.Len(t, readAll(t, path, Filter{}), writers*each)
}

func TestFileLoggerClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.mlog")
	l, err := NewFileLogger(path)
	require.NoError(t, err)

	l.Log(Event{Timestamp: time.Now()})
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "second close")

	l.Log(Event{Timestamp: time.Now()})
	assert.Equal(t, 1, l.Written(), "events after close are dropped")
}

func TestFileLoggerOpenFails(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewFileLogger(filepath.Join(blocker, "session.mlog"))
	assert.Error(t, err)
}
