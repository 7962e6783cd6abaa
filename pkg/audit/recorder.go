package audit

import (
	"context"
	"sync"
	"time"

	"github.com/EnvSync-Cloud/envsync-api/pkg/observability"
)

// Recorder accepts entries for eventual persistence. Record must never
// block a request or surface an error to its caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Inserter is the persistence dependency of the async recorder
type Inserter interface {
	Insert(ctx context.Context, entry Entry) error
}

// AsyncRecorder queues entries to a single background writer. A full queue
// drops the entry with a log line rather than applying backpressure.
type AsyncRecorder struct {
	store   Inserter
	logger  *observability.Logger
	metrics *observability.Metrics

	queue     chan Entry
	wg        sync.WaitGroup
	closeOnce sync.Once

	// mu orders Record against Close so a late Record drops the entry
	// instead of sending on a closed channel
	mu     sync.RWMutex
	closed bool
}

// NewAsyncRecorder creates and starts the recorder
func NewAsyncRecorder(store Inserter, logger *observability.Logger, metrics *observability.Metrics, queueSize int) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	r := &AsyncRecorder{
		store:   store,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan Entry, queueSize),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record queues the entry. Call it only after the described mutation has
// succeeded.
func (r *AsyncRecorder) Record(_ context.Context, entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.WithField("action", string(entry.Action)).
			Error("audit entry recorded after shutdown, dropped")
		return
	}

	select {
	case r.queue <- entry:
		if r.metrics != nil {
			r.metrics.AuditQueueDepth.Set(float64(len(r.queue)))
		}
	default:
		if r.metrics != nil {
			r.metrics.AuditDropped.Inc()
		}
		r.logger.WithFields(map[string]interface{}{
			"action": string(entry.Action),
			"org_id": entry.OrgID,
		}).Error("audit queue full, entry dropped")
	}
}

func (r *AsyncRecorder) run() {
	defer r.wg.Done()
	for entry := range r.queue {
		// Fresh context per write: the originating request is long gone.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.store.Insert(ctx, entry); err != nil {
			r.logger.WithField("action", string(entry.Action)).WithError(err).Error("audit write failed")
		}
		cancel()
		if r.metrics != nil {
			r.metrics.AuditQueueDepth.Set(float64(len(r.queue)))
		}
	}
}

// Close drains the queue and stops the writer. Record calls arriving
// afterwards are dropped with a log line.
func (r *AsyncRecorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.queue)
	})
	r.wg.Wait()
}

// NopRecorder discards all entries. Used in tests.
type NopRecorder struct{}

// Record discards the entry
func (NopRecorder) Record(context.Context, Entry) {}
