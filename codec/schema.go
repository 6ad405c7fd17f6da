package codec

import "slices"

// FieldSchema names the feed fields that get special handling. The names are
// part of the vendor's Logpush schema and can drift between schema versions,
// so they live in configuration instead of the codec itself.
type FieldSchema struct {
	// PrimaryTimestampField is the field the message timestamp is derived
	// from when use_now_timestamp is off. Looked up anywhere in the record.
	PrimaryTimestampField string `yaml:"primary_timestamp_field"`

	// TimestampFields are converted in place with the same conversion rule
	// the primary timestamp uses.
	TimestampFields []string `yaml:"timestamp_fields"`

	// StatusFields get an additional "<name>Class" bucket field ("2xx" etc.).
	StatusFields []string `yaml:"status_fields"`

	// ResponseTimeField holds nanoseconds and gets an additional
	// "<name>Millis" field.
	ResponseTimeField string `yaml:"response_time_field"`
}

// DefaultFieldSchema returns the Cloudflare Logpush HTTP requests schema.
func DefaultFieldSchema() FieldSchema {
	return FieldSchema{
		PrimaryTimestampField: "EdgeStartTimestamp",
		TimestampFields:       []string{"EdgeEndTimestamp", "EdgeStartTimestamp"},
		StatusFields:          []string{"CacheResponseStatus", "EdgeResponseStatus", "OriginResponseStatus"},
		ResponseTimeField:     "OriginResponseTime",
	}
}

func (s FieldSchema) isEmpty() bool {
	return s.PrimaryTimestampField == "" && len(s.TimestampFields) == 0 &&
		len(s.StatusFields) == 0 && s.ResponseTimeField == ""
}

func (s FieldSchema) isTimestampField(name string) bool {
	return slices.Contains(s.TimestampFields, name)
}

func (s FieldSchema) isStatusField(name string) bool {
	return slices.Contains(s.StatusFields, name)
}
