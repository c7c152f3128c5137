// Package dedup guarantees at most one in-flight enrichment per key and
// keeps a bounded-attempt queue of deferred enrichment requests.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
	"github.com/SurajPatil2645/VentureFlow/internal/common/utils"
	"github.com/google/uuid"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
)

// Key derives the dedup key for a subject and URL.
func Key(subjectID, url string) string {
	if subjectID == "" {
		subjectID = "unknown"
	}
	return subjectID + "::" + url
}

// Request is a queued enrichment request.
type Request struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	SubjectID  string    `json:"subjectId,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Attempt    int       `json:"attempt"`
}

// Key returns the dedup key of the request.
func (r Request) Key() string {
	return Key(r.SubjectID, r.URL)
}

// Callback processes one queued request. A nil error removes it from the queue.
type Callback func(ctx context.Context, req Request) error

// Config bounds how long and how often a request may be tried.
type Config struct {
	Timeout     time.Duration
	MaxAttempts int
}

// DrainReport summarises one Drain pass.
type DrainReport struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Dropped   int `json:"dropped"`
	Skipped   int `json:"skipped"`
}

// QueueItem is the monitoring view of a queued request.
type QueueItem struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	SubjectID string `json:"subjectId,omitempty"`
	AgeMillis int64  `json:"age"`
	Attempt   int    `json:"attempt"`
}

// Status is a snapshot of the queue and the processing markers.
type Status struct {
	QueuedRequests     int         `json:"queuedRequests"`
	ProcessingRequests int         `json:"processingRequests"`
	Items              []QueueItem `json:"items"`
}

// Queue holds processing markers and queued requests.
type Queue struct {
	config Config
	clock  utils.Clock
	logger logging.Logger

	processing      sync.Map
	processingCount atomic.Int64

	mu       sync.Mutex
	requests map[string]*Request
	order    []string
}

// NewQueue creates a queue. Zero config values fall back to the defaults.
func NewQueue(config Config, clock utils.Clock, logger logging.Logger) *Queue {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if clock == nil {
		clock = utils.RealClock{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Queue{
		config:   config,
		clock:    clock,
		logger:   logger.WithFields(logging.Field{Key: "component", Value: "dedup"}),
		requests: make(map[string]*Request),
	}
}

// Enqueue records a request with attempt 0 and returns its id. It neither
// admits nor deduplicates.
func (q *Queue) Enqueue(url, subjectID string) string {
	req := &Request{
		ID:         uuid.NewString(),
		URL:        url,
		SubjectID:  subjectID,
		EnqueuedAt: q.clock.Now(),
	}

	q.mu.Lock()
	q.requests[req.ID] = req
	q.order = append(q.order, req.ID)
	q.mu.Unlock()

	q.logger.Info("Enrichment queued",
		logging.String("request_id", req.ID),
		logging.String("dedup_key", req.Key()),
	)
	return req.ID
}

// IsProcessing reports whether key is currently marked.
func (q *Queue) IsProcessing(key string) bool {
	_, ok := q.processing.Load(key)
	return ok
}

// TryMarkProcessing marks key and returns true only if it was unmarked.
func (q *Queue) TryMarkProcessing(key string) bool {
	if _, loaded := q.processing.LoadOrStore(key, q.clock.Now()); loaded {
		q.logger.Debug("Already processing", logging.String("dedup_key", key))
		return false
	}
	q.processingCount.Add(1)
	return true
}

// UnmarkProcessing clears the marker for key. Unmarking an unmarked key is a no-op.
func (q *Queue) UnmarkProcessing(key string) {
	if _, loaded := q.processing.LoadAndDelete(key); loaded {
		q.processingCount.Add(-1)
	}
}

// Drain makes one pass over the queued requests in enqueue order. Requests
// past the timeout or out of attempts are dropped, requests whose key is
// being processed are left queued, and everything else is handed to cb while
// its key is marked. The queue lock is never held while cb runs.
func (q *Queue) Drain(ctx context.Context, cb Callback) DrainReport {
	var report DrainReport

	q.mu.Lock()
	ids := make([]string, len(q.order))
	copy(ids, q.order)
	q.mu.Unlock()

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		req, ok := q.claim(id, &report)
		if !ok {
			continue
		}

		q.process(ctx, req, cb, &report)
	}

	return report
}

// claim applies the drop and skip rules to one request and, if it should
// run, bumps its attempt counter and marks its key.
func (q *Queue) claim(id string, report *DrainReport) (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	req, ok := q.requests[id]
	if !ok {
		return Request{}, false
	}

	age := q.clock.Now().Sub(req.EnqueuedAt)
	if age > q.config.Timeout {
		q.logger.Warn("Enrichment request timed out", logging.String("request_id", id), logging.Duration("age", age))
		q.removeLocked(id)
		report.Dropped++
		return Request{}, false
	}
	if req.Attempt >= q.config.MaxAttempts {
		q.logger.Warn("Enrichment request out of attempts", logging.String("request_id", id))
		q.removeLocked(id)
		report.Dropped++
		return Request{}, false
	}

	key := req.Key()
	if q.IsProcessing(key) {
		report.Skipped++
		return Request{}, false
	}

	req.Attempt++
	if !q.TryMarkProcessing(key) {
		report.Skipped++
		return Request{}, false
	}
	return *req, true
}

// process runs cb for a claimed request and settles it in the queue before
// the key is unmarked, so no other drain can pick it up in between.
func (q *Queue) process(ctx context.Context, req Request, cb Callback, report *DrainReport) {
	defer q.UnmarkProcessing(req.Key())

	if err := invoke(ctx, req, cb); err != nil {
		report.Failed++
		q.logger.Warn("Queued enrichment failed",
			logging.String("request_id", req.ID),
			logging.Int("attempt", req.Attempt),
			logging.Err(err),
		)
		if req.Attempt >= q.config.MaxAttempts {
			q.remove(req.ID)
			report.Dropped++
		}
		return
	}

	q.remove(req.ID)
	report.Succeeded++
}

func invoke(ctx context.Context, req Request, cb Callback) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("enrichment callback panicked: %v", r)
		}
	}()
	return cb(ctx, req)
}

func (q *Queue) remove(id string) {
	q.mu.Lock()
	q.removeLocked(id)
	q.mu.Unlock()
}

func (q *Queue) removeLocked(id string) {
	if _, ok := q.requests[id]; !ok {
		return
	}
	delete(q.requests, id)
	for i, existing := range q.order {
		if existing == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// Status returns a snapshot for monitoring.
func (q *Queue) Status() Status {
	now := q.clock.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]QueueItem, 0, len(q.order))
	for _, id := range q.order {
		req := q.requests[id]
		items = append(items, QueueItem{
			ID:        req.ID,
			URL:       req.URL,
			SubjectID: req.SubjectID,
			AgeMillis: now.Sub(req.EnqueuedAt).Milliseconds(),
			Attempt:   req.Attempt,
		})
	}

	return Status{
		QueuedRequests:     len(q.order),
		ProcessingRequests: int(q.processingCount.Load()),
		Items:              items,
	}
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Clear empties the queue. Processing markers stay with their owners, who
// remove them when they finish.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.requests = make(map[string]*Request)
	q.order = nil
	q.mu.Unlock()

	q.logger.Info("Enrichment queue cleared")
}
