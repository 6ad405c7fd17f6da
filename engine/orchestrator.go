package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/thisisjab/gelfpush/entity"
)

type Config struct {
	Sources    map[string]LogSource
	Codecs     map[string]Codec
	Transforms map[string]Transform
	Deliveries []Delivery

	DeliveryFlushInterval time.Duration
	RawBufferMaxSize      uint
	DeliveryBufferMaxSize uint
	CodecWorkersCount     uint
}

// Engine orchestrates the pipeline: feed sources fan into a raw payload
// channel, codec workers decode and transform records, and the delivery
// manager batches messages out to every delivery.
type Engine struct {
	cfg             Config
	logger          *slog.Logger
	deliveryManager *deliveryManager
}

func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Engine{
		cfg:             cfg,
		logger:          logger,
		deliveryManager: newDeliveryManager(logger, cfg.Deliveries, cfg.DeliveryBufferMaxSize, cfg.DeliveryFlushInterval),
	}, nil
}

func (c Config) validate() error {
	if len(c.Sources) == 0 {
		return errors.New("no feed sources are configured")
	}

	if len(c.Deliveries) == 0 {
		return errors.New("no deliveries are configured")
	}

	for name, src := range c.Sources {
		if _, ok := c.Codecs[src.CodecName()]; !ok {
			return errors.New("source `" + name + "` references unknown codec `" + src.CodecName() + "`")
		}
		for _, tName := range src.TransformNames() {
			if _, ok := c.Transforms[tName]; !ok {
				return errors.New("source `" + name + "` references unknown transform `" + tName + "`")
			}
		}
	}

	if c.DeliveryBufferMaxSize == 0 && c.DeliveryFlushInterval == 0 {
		return errors.New("delivery buffer max size and flush interval cannot both be zero")
	}

	if c.CodecWorkersCount == 0 {
		return errors.New("codec workers cannot be zero")
	}

	return nil
}

func (e *Engine) Run(ctx context.Context) error {
	// Start consuming payloads from all sources.
	// rawPayloads will contain raw records from all sources.
	rawPayloads := e.consumePayloads(ctx)

	var wg sync.WaitGroup
	decoded := make(chan entity.GelfMessage, e.cfg.RawBufferMaxSize)

	cm := newCodecManager(e.logger, e.cfg.Sources, e.cfg.Codecs, e.cfg.Transforms, e.cfg.CodecWorkersCount)

	// Delivery manager handles buffering and periodic flushes.
	wg.Go(func() { e.deliveryManager.run(ctx) })
	// Codec manager handles the fan-out pattern.
	wg.Go(func() { cm.run(ctx, rawPayloads, decoded) })

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case msg, ok := <-decoded:
			if !ok {
				// All sources are done. Flush what the delivery manager
				// still buffers before reporting a clean stop.
				e.deliveryManager.drain(context.WithoutCancel(ctx))
				return nil
			}
			e.deliveryManager.addMessages(ctx, msg)
		}
	}
}

func (e *Engine) consumePayloads(ctx context.Context) <-chan entity.RawPayload {
	rawPayloads := make(chan entity.RawPayload, e.cfg.RawBufferMaxSize)
	e.logger.Info("created incoming payloads channel.", "size", e.cfg.RawBufferMaxSize)

	var sourceWg sync.WaitGroup

	// Spawn sources
	for n, s := range e.cfg.Sources {
		sourceWg.Add(1)
		go func(name string, src LogSource) {
			defer sourceWg.Done()
			err := src.Provide(ctx, rawPayloads)

			if err != nil {
				e.logger.Error("failed to start feed source.", "name", name, "error", err)
			}
		}(n, s)
	}

	go func() {
		sourceWg.Wait()
		close(rawPayloads)
	}()

	return rawPayloads
}
