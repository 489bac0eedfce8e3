package resilience

import (
	"context"
	"sync"
)

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// MaxConcurrent is the maximum number of concurrent in-flight calls.
	// Default: 10
	MaxConcurrent int

	// MaxQueueLength is the maximum number of calls allowed to wait for a
	// slot. A call arriving when both the slots and the queue are full fails
	// immediately with ErrBulkheadFull.
	// Default: 25
	MaxQueueLength int
}

// Bulkhead limits concurrent operations per dependency with a bounded
// wait queue. It is process-wide shared state: one instance guards one
// dependency across all concurrent orders.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}

	mu        sync.Mutex
	active    int
	maxActive int
	queued    int
	rejected  int64
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	// Apply defaults
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	if config.MaxQueueLength <= 0 {
		config.MaxQueueLength = 25
	}

	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Acquire acquires a slot, queueing if all slots are busy.
// Returns ErrBulkheadFull when the queue is also at capacity.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	// Fast path: try non-blocking acquire
	select {
	case b.sem <- struct{}{}:
		b.markAcquired()
		return nil
	default:
		// Fall through to queueing logic
	}

	b.mu.Lock()
	if b.queued >= b.config.MaxQueueLength {
		b.rejected++
		b.mu.Unlock()
		return ErrBulkheadFull
	}
	b.queued++
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.queued--
		b.mu.Unlock()
	}()

	select {
	case b.sem <- struct{}{}:
		b.markAcquired()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) markAcquired() {
	b.mu.Lock()
	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}
	b.mu.Unlock()
}

// Release releases a slot in the bulkhead.
func (b *Bulkhead) Release() {
	select {
	case <-b.sem:
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	default:
		// Semaphore was empty, this shouldn't happen in normal usage
	}
}

// Execute runs the operation within the bulkhead.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()

	return op(ctx)
}

// Metrics returns current bulkhead metrics.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BulkheadMetrics{
		Active:        b.active,
		MaxActive:     b.maxActive,
		Queued:        b.queued,
		Available:     b.config.MaxConcurrent - b.active,
		MaxConcurrent: b.config.MaxConcurrent,
		Rejected:      b.rejected,
	}
}

// BulkheadMetrics contains bulkhead statistics.
type BulkheadMetrics struct {
	Active        int
	MaxActive     int
	Queued        int
	Available     int
	MaxConcurrent int
	Rejected      int64
}
