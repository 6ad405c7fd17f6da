package engine

import (
	"context"

	"github.com/thisisjab/gelfpush/entity"
)

// LogSource is an interface that defines the contract for feed sources
// (providers of raw Logpush payloads).
type LogSource interface {
	SourceName() string
	Provide(ctx context.Context, payloads chan<- entity.RawPayload) error

	// CodecName names the codec decoding this source's payloads.
	CodecName() string

	// TransformNames lists transforms applied to decoded messages, in order.
	TransformNames() []string
}
