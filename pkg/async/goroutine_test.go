package async

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
)

func TestSafeGoRunsTask(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	done := make(chan struct{})

	SafeGo(logger, time.Second, "test task", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestSafeGoRecoversPanic(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	done := make(chan struct{})

	SafeGo(logger, time.Second, "panicking task", func(ctx context.Context) error {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
	// Reaching here without the test process dying is the assertion.
}

func TestSafeGoSwallowsError(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	done := make(chan struct{})

	SafeGo(logger, time.Second, "failing task", func(ctx context.Context) error {
		close(done)
		return errors.New("smtp unreachable")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}
