package entity

import (
	"time"

	"github.com/google/uuid"
)

// RawPayload is one feed record as handed off by a log source: the raw bytes
// of a single Logpush JSON event, before any decoding.
type RawPayload struct {
	Source   string    `json:"source"`
	Data     []byte    `json:"data"`
	Received time.Time `json:"received"`
}

// GelfMessage is the normalized output of the codec. Timestamp is epoch
// seconds with fractional precision. Fields holds only scalar values
// (int64, float64, bool, string); arrays and nested objects never pass
// through the codec.
type GelfMessage struct {
	ID           uuid.UUID      `json:"id"`
	Host         string         `json:"host"`
	ShortMessage string         `json:"short_message"`
	Timestamp    float64        `json:"timestamp"`
	Fields       map[string]any `json:"fields"`
}
