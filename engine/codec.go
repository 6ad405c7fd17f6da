package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/thisisjab/gelfpush/entity"
)

// Codec is an interface that defines the contract for record codecs: one raw
// feed payload in, one normalized message out. A codec must be safe for
// concurrent use; the worker pool calls it from many goroutines.
type Codec interface {
	Name() string
	Decode(payload entity.RawPayload) (entity.GelfMessage, error)
}

// Transform mutates a decoded message before delivery.
type Transform interface {
	Name() string
	Transform(msg entity.GelfMessage) (entity.GelfMessage, error)
}

type codecManager struct {
	sources      map[string]LogSource
	codecs       map[string]Codec
	transforms   map[string]Transform
	logger       *slog.Logger
	workersCount uint
	wg           sync.WaitGroup
}

func newCodecManager(logger *slog.Logger, sources map[string]LogSource, codecs map[string]Codec, transforms map[string]Transform, workersCount uint) *codecManager {
	return &codecManager{
		sources:      sources,
		codecs:       codecs,
		transforms:   transforms,
		logger:       logger,
		workersCount: workersCount,
	}
}

func (cm *codecManager) run(ctx context.Context, payloads <-chan entity.RawPayload, results chan<- entity.GelfMessage) {
	spawnWorker := func(workerID uint) {
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-payloads:
				if !ok {
					// The payloads channel is closed and empty. No more work.
					return
				}

				msg, ok := cm.decodePayload(p)
				if !ok {
					continue
				}
				msg.ID = uuid.New()

				cm.logger.Debug("decoded record", "worker_id", workerID, "message_id", msg.ID, "source", p.Source)

				select {
				case results <- msg:
				case <-ctx.Done():
					// If we can't send because context is cancelled, exit.
					return
				}
			}
		}
	}

	for i := uint(0); i < cm.workersCount; i++ {
		cm.wg.Go(func() {
			spawnWorker(i)
		})
	}

	cm.wg.Wait()
	close(results)
}

// decodePayload runs the source's codec and transform chain. A record that
// fails to decode is logged and dropped whole; decoding has no partial
// success mode.
func (cm *codecManager) decodePayload(p entity.RawPayload) (entity.GelfMessage, bool) {
	src, ok := cm.sources[p.Source]
	if !ok {
		cm.logger.Error("source not found", "source", p.Source)
		return entity.GelfMessage{}, false
	}

	c, ok := cm.codecs[src.CodecName()]
	if !ok {
		cm.logger.Error("codec not found", "codec", src.CodecName(), "source", p.Source)
		return entity.GelfMessage{}, false
	}

	msg, err := c.Decode(p)
	if err != nil {
		cm.logger.Error("failed to decode record", "source", p.Source, "received", p.Received, "error", err)
		return entity.GelfMessage{}, false
	}

	for _, tName := range src.TransformNames() {
		t := cm.transforms[tName]
		if t == nil {
			cm.logger.Warn("transform not found", "transform", tName)
			continue
		}

		transformed, err := t.Transform(msg)
		if err != nil {
			cm.logger.Error("failed to transform message", "transform", tName, "error", err)
			continue
		}

		msg = transformed
	}

	return msg, true
}
