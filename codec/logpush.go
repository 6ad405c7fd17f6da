package codec

import (
	"fmt"
	"strings"
	"time"

	"github.com/thisisjab/gelfpush/entity"
	"github.com/thisisjab/gelfpush/fault"
	"github.com/thisisjab/gelfpush/record"
)

type LogpushCodecConfig struct {
	Name string `yaml:"-"`

	// MessageSummaryFields is a comma-separated list of field names rendered
	// into the short message, in list order.
	MessageSummaryFields string `yaml:"message_summary_fields"`

	// MessageFields is a comma-separated list restricting which record fields
	// are copied into the message. Empty means all fields.
	MessageFields string `yaml:"message_fields"`

	// UseNowTimestamp forces the message timestamp to wall-clock time instead
	// of deriving it from the record.
	UseNowTimestamp bool `yaml:"use_now_timestamp"`

	// DestinationHost is attached verbatim as the message host.
	DestinationHost string `yaml:"destination_host"`

	// Schema defaults to the Cloudflare Logpush HTTP requests schema.
	Schema FieldSchema `yaml:"schema"`
}

// LogpushCodec decodes one Cloudflare Logpush JSON event into a GelfMessage.
// A decode either fully succeeds or fails with a fault; there is no partial
// output. Array-valued fields are silently dropped.
//
// Decode is a pure function of the payload and the config (aside from the
// wall-clock fallback), so one codec is safe for any number of concurrent
// callers.
type LogpushCodec struct {
	cfg           LogpushCodecConfig
	schema        FieldSchema
	summaryFields []string
	include       map[string]struct{} // nil means include everything
}

// NewLogpushCodec creates a new instance of LogpushCodec.
func NewLogpushCodec(cfg LogpushCodecConfig) (*LogpushCodec, error) {
	schema := cfg.Schema
	if schema.isEmpty() {
		schema = DefaultFieldSchema()
	}

	c := &LogpushCodec{
		cfg:           cfg,
		schema:        schema,
		summaryFields: splitFieldList(cfg.MessageSummaryFields),
	}

	if names := splitFieldList(cfg.MessageFields); len(names) > 0 {
		c.include = make(map[string]struct{}, len(names))
		for _, n := range names {
			c.include[n] = struct{}{}
		}
	}

	return c, nil
}

func (c *LogpushCodec) Name() string {
	return c.cfg.Name
}

// Decode parses one raw Logpush event and builds the normalized message.
func (c *LogpushCodec) Decode(payload entity.RawPayload) (entity.GelfMessage, error) {
	rec, err := record.Parse(payload.Data)
	if err != nil {
		return entity.GelfMessage{}, fault.New(fault.MalformedRecordCode, "record is not valid JSON").WithOriginal(err)
	}

	msg := entity.GelfMessage{
		Host:         c.cfg.DestinationHost,
		ShortMessage: c.buildSummary(rec),
		Fields:       make(map[string]any),
	}

	msg.Timestamp, err = c.resolveTimestamp(rec)
	if err != nil {
		return entity.GelfMessage{}, err
	}

	for _, f := range rec.Fields() {
		if c.include != nil {
			if _, ok := c.include[f.Name]; !ok {
				continue
			}
		}

		// Array support is deferred; drop without error.
		if f.Value.Kind() == record.KindArray {
			continue
		}

		if c.schema.isTimestampField(f.Name) {
			ts, err := convertTimestamp(f.Name, f.Value)
			if err != nil {
				return entity.GelfMessage{}, err
			}
			msg.Fields[f.Name] = ts
			continue
		}

		if c.schema.isStatusField(f.Name) {
			if class, ok := statusClass(f.Value); ok {
				msg.Fields[f.Name+"Class"] = class
			}
		}

		if f.Name == c.schema.ResponseTimeField && f.Value.IsNumber() {
			msg.Fields[f.Name+"Millis"] = f.Value.Number() / 1_000_000
		}

		scalar, err := scalarValue(f.Name, f.Value)
		if err != nil {
			return entity.GelfMessage{}, err
		}
		msg.Fields[f.Name] = scalar
	}

	return msg, nil
}

// buildSummary renders the configured summary fields present in the record,
// in configured order, as "name: value" pairs joined with " | ". The result
// looks like:
//
//	ClientRequestHost: domain.com:8080 | ClientRequestPath: /api/metrics | EdgeResponseBytes: 911
func (c *LogpushCodec) buildSummary(rec *record.Record) string {
	var parts []string
	for _, name := range c.summaryFields {
		if v, ok := rec.Get(name); ok {
			parts = append(parts, name+": "+v.Display())
		}
	}
	return strings.Join(parts, " | ")
}

func (c *LogpushCodec) resolveTimestamp(rec *record.Record) (float64, error) {
	if c.cfg.UseNowTimestamp {
		return float64(time.Now().Unix()), nil
	}

	// The primary timestamp may sit below the top level in some feed
	// versions, so search the whole tree.
	if v, ok := rec.Find(c.schema.PrimaryTimestampField); ok {
		return convertTimestamp(c.schema.PrimaryTimestampField, v)
	}

	return float64(time.Now().Unix()), nil
}

// maxPlausibleEpochSeconds splits integer timestamps into seconds and
// nanoseconds. Anything above it (~year 5138 in seconds) is taken as
// nanoseconds since epoch.
const maxPlausibleEpochSeconds int64 = 100_000_000_000

// convertTimestamp applies the feed's timestamp encodings: RFC3339 text
// (2019-10-07T16:00:00Z, sub-second truncated), Unix seconds (1570464000),
// or Unix nanoseconds (1570465372184306580, kept fractional).
func convertTimestamp(name string, v record.Value) (float64, error) {
	switch v.Kind() {
	case record.KindString:
		t, err := time.Parse(time.RFC3339, v.Str())
		if err != nil {
			return 0, fault.New(fault.InvalidTimestampCode,
				fmt.Sprintf("field `%s` holds unparseable timestamp `%s`", name, v.Str())).WithOriginal(err)
		}
		return float64(t.Unix()), nil

	case record.KindInt:
		if n := v.Int(); n > maxPlausibleEpochSeconds {
			return float64(n) / 1_000_000_000, nil
		}
		return float64(v.Int()), nil
	}

	return 0, fault.New(fault.InvalidTimestampCode,
		fmt.Sprintf("field `%s` holds a %s value `%s`, expected an RFC3339 string or an integer", name, v.Kind(), v.Display()))
}

// statusClass buckets an HTTP status code by its leading digit. Values
// outside [100, 600) and non-numeric values produce no class.
func statusClass(v record.Value) (string, bool) {
	if !v.IsNumber() {
		return "", false
	}

	switch status := int(v.Number()); {
	case status >= 100 && status < 200:
		return "1xx", true
	case status >= 200 && status < 300:
		return "2xx", true
	case status >= 300 && status < 400:
		return "3xx", true
	case status >= 400 && status < 500:
		return "4xx", true
	case status >= 500 && status < 600:
		return "5xx", true
	}
	return "", false
}

// scalarValue coerces a record value to one of the four scalar kinds a
// message field may hold. Nulls and nested objects have no scalar mapping
// and fail the whole decode.
func scalarValue(name string, v record.Value) (any, error) {
	switch v.Kind() {
	case record.KindBool:
		return v.Bool(), nil
	case record.KindInt:
		return v.Int(), nil
	case record.KindFloat:
		return v.Float(), nil
	case record.KindString:
		return v.Str(), nil
	}

	return nil, fault.New(fault.UnsupportedFieldTypeCode,
		fmt.Sprintf("field `%s` has kind %s, which has no scalar mapping", name, v.Kind()))
}

func splitFieldList(s string) []string {
	var names []string
	for part := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
