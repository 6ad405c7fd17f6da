package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/thisisjab/gelfpush/entity"
)

type GelfTCPDeliveryConfig struct {
	Name string `yaml:"-"`

	Addr    string        `yaml:"addr"`
	Timeout time.Duration `yaml:"timeout"`
}

// GelfTCPDelivery ships messages to a GELF TCP input. Frames are the GELF
// 1.1 TCP encoding: one JSON document per message, terminated by a null
// byte. A connection is opened per batch; GELF TCP inputs tolerate
// short-lived connections and this keeps the delivery stateless.
type GelfTCPDelivery struct {
	cfg GelfTCPDeliveryConfig
}

func NewGelfTCPDelivery(cfg GelfTCPDeliveryConfig) (*GelfTCPDelivery, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("gelf tcp delivery `%s` has no address", cfg.Name)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &GelfTCPDelivery{cfg: cfg}, nil
}

func (d *GelfTCPDelivery) DeliveryName() string {
	return d.cfg.Name
}

func (d *GelfTCPDelivery) Deliver(ctx context.Context, msgs ...entity.GelfMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", d.cfg.Addr)
	if err != nil {
		return fmt.Errorf("cannot connect to gelf input: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline) //nolint:errcheck
	}

	for _, msg := range msgs {
		frame, err := encodeFrame(msg)
		if err != nil {
			return fmt.Errorf("cannot encode message %s: %w", msg.ID, err)
		}

		if _, err := conn.Write(frame); err != nil {
			return fmt.Errorf("cannot write frame: %w", err)
		}
	}

	return nil
}

// encodeFrame renders one GELF 1.1 document. Message fields become
// underscore-prefixed additional fields per the GELF spec; the reserved _id
// name is remapped to _record_id.
func encodeFrame(msg entity.GelfMessage) ([]byte, error) {
	doc := make(map[string]any, len(msg.Fields)+4)
	doc["version"] = "1.1"
	doc["host"] = msg.Host
	doc["short_message"] = msg.ShortMessage
	doc["timestamp"] = msg.Timestamp

	for name, value := range msg.Fields {
		if name == "id" {
			name = "record_id"
		}
		doc["_"+name] = value
	}

	frame, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	return append(frame, 0), nil
}
