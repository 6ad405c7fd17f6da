package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/thisisjab/gelfpush/entity"
)

// Delivery ships normalized messages downstream. Deliveries receive whole
// batches; buffering happens in the delivery manager.
type Delivery interface {
	DeliveryName() string
	Deliver(ctx context.Context, msgs ...entity.GelfMessage) error
}

// deliveryManager buffers decoded messages and flushes them to every
// configured delivery. Never disable buffering and scheduled flushing
// together.
type deliveryManager struct {
	deliveries []Delivery
	logger     *slog.Logger
	buffer     []entity.GelfMessage
	bufferMu   sync.Mutex
	wg         sync.WaitGroup

	// bufferMaxSize defines the maximum items the buffer holds before an
	// immediate flush. Zero disables size-based flushing.
	bufferMaxSize uint

	// flushInterval defines the interval at which the buffer is flushed.
	// Zero disables scheduled flushing.
	flushInterval time.Duration
}

func newDeliveryManager(logger *slog.Logger, deliveries []Delivery, bufferMaxSize uint, flushInterval time.Duration) *deliveryManager {
	return &deliveryManager{
		logger:        logger,
		deliveries:    deliveries,
		bufferMaxSize: bufferMaxSize,
		buffer:        make([]entity.GelfMessage, 0, bufferMaxSize),
		flushInterval: flushInterval,
	}
}

func (dm *deliveryManager) run(ctx context.Context) {
	var ticker *time.Ticker

	if dm.flushInterval > 0 {
		ticker = time.NewTicker(dm.flushInterval)
		defer ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			dm.flushBuffer(context.WithoutCancel(ctx))
			dm.wg.Wait()
			return
		// A nil ticker has no channel to read from, so substitute one that
		// blocks forever when scheduled flushing is disabled.
		case <-func() <-chan time.Time {
			if ticker != nil {
				return ticker.C
			}
			return make(chan time.Time)
		}():
			dm.flushBuffer(ctx)
		}
	}
}

// drain flushes whatever is buffered and waits for in-flight deliveries.
// Called when the pipeline ends without a cancellation, so buffered messages
// are not lost.
func (dm *deliveryManager) drain(ctx context.Context) {
	dm.flushBuffer(ctx)
	dm.wg.Wait()
}

func (dm *deliveryManager) flushBuffer(ctx context.Context) {
	var toFlush []entity.GelfMessage

	dm.bufferMu.Lock()
	if len(dm.buffer) > 0 {
		toFlush = dm.buffer
		dm.buffer = make([]entity.GelfMessage, 0, dm.bufferMaxSize)
	}
	dm.bufferMu.Unlock()

	if len(toFlush) > 0 {
		dm.deliverBatch(ctx, toFlush)
	}
}

func (dm *deliveryManager) deliverBatch(ctx context.Context, batch []entity.GelfMessage) {
	for _, d := range dm.deliveries {
		dm.wg.Go(func() {
			if err := d.Deliver(ctx, batch...); err != nil {
				dm.logger.Error("failed to deliver batch", "delivery", d.DeliveryName(), "count", len(batch), "error", err)
				return
			}

			dm.logger.Debug("delivered batch", "delivery", d.DeliveryName(), "count", len(batch))
		})
	}
}

func (dm *deliveryManager) addMessages(ctx context.Context, msgs ...entity.GelfMessage) {
	if len(msgs) == 0 {
		return
	}

	var toFlush []entity.GelfMessage

	dm.bufferMu.Lock()
	dm.buffer = append(dm.buffer, msgs...)

	// Check if buffer reached flush size
	if dm.bufferMaxSize > 0 && uint(len(dm.buffer)) >= dm.bufferMaxSize {
		toFlush = dm.buffer
		dm.buffer = make([]entity.GelfMessage, 0, dm.bufferMaxSize)
	}
	dm.bufferMu.Unlock()

	// Flush asynchronously if needed
	if toFlush != nil {
		dm.deliverBatch(ctx, toFlush)
	}
}
