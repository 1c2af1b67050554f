package vfsarchive

import "testing"

func TestReaperScheduleAndCancel(t *testing.T) {
	// Exercises globalReaper's bookkeeping directly rather than waiting on
	// its real one-second ticker, to keep this test fast and deterministic.
	f := &FileSource{path: "scratch-for-reaper-test.zip"}

	globalReaper.schedule(f, 0)
	globalReaper.mu.Lock()
	_, pending := globalReaper.pending[f]
	globalReaper.mu.Unlock()
	if !pending {
		t.Fatal("schedule did not register the FileSource as pending")
	}

	globalReaper.cancel(f)
	globalReaper.mu.Lock()
	_, stillPending := globalReaper.pending[f]
	globalReaper.mu.Unlock()
	if stillPending {
		t.Fatal("cancel did not remove the FileSource from pending")
	}

	// Canceling something never scheduled must be a harmless no-op.
	globalReaper.cancel(&FileSource{path: "never-scheduled.zip"})
}
