// Package async provides safe goroutine helpers for fire-and-forget work.
package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
)

// SafeGo executes a function in a goroutine with panic recovery, a timeout,
// and error logging. Use this instead of bare `go func()` for side work that
// must never crash or block a request (mail, provider mirroring).
//
// The task gets a fresh context detached from the request so it survives the
// response being written.
func SafeGo(logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("panic in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithField("task", taskName).WithError(err).Warn("background task failed")
		}
	}()
}
