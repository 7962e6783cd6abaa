package audit

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
)

type captureInserter struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (c *captureInserter) Insert(_ context.Context, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	return c.err
}

func (c *captureInserter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func TestAsyncRecorderWritesEntries(t *testing.T) {
	store := &captureInserter{}
	recorder := NewAsyncRecorder(store, testLogger(), nil, 8)

	recorder.Record(context.Background(), Entry{
		OrgID: "org-1", UserID: "user-1",
		Action: ActionEnvCreated, Message: "Environment variable created",
	})
	recorder.Close()

	if store.count() != 1 {
		t.Fatalf("wrote %d entries, want 1", store.count())
	}
	store.mu.Lock()
	entry := store.entries[0]
	store.mu.Unlock()
	if entry.Action != ActionEnvCreated || entry.OrgID != "org-1" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt must be stamped on record")
	}
}

func TestAsyncRecorderNeverBlocksWhenFull(t *testing.T) {
	block := make(chan struct{})
	store := &slowInserter{release: block}
	recorder := NewAsyncRecorder(store, testLogger(), nil, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			recorder.Record(context.Background(), Entry{Action: ActionEnvViewed})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}
	close(block)
	recorder.Close()
}

func TestAsyncRecorderRecordAfterClose(t *testing.T) {
	store := &captureInserter{}
	recorder := NewAsyncRecorder(store, testLogger(), nil, 8)
	recorder.Close()

	// Must drop silently, not panic on the closed queue.
	recorder.Record(context.Background(), Entry{Action: ActionEnvCreated})

	if store.count() != 0 {
		t.Errorf("wrote %d entries after close, want 0", store.count())
	}
}

type slowInserter struct {
	release chan struct{}
}

func (s *slowInserter) Insert(context.Context, Entry) error {
	<-s.release
	return nil
}

func TestAsyncRecorderSurvivesWriteFailure(t *testing.T) {
	store := &captureInserter{err: errors.New("insert failed")}
	recorder := NewAsyncRecorder(store, testLogger(), nil, 8)

	recorder.Record(context.Background(), Entry{Action: ActionOrgUpdated})
	recorder.Record(context.Background(), Entry{Action: ActionRoleCreated})
	recorder.Close()

	// Both writes attempted despite the first failing.
	if store.count() != 2 {
		t.Errorf("attempted %d writes, want 2", store.count())
	}
}
