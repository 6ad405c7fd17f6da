package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/thisisjab/gelfpush/entity"
	"github.com/thisisjab/gelfpush/fault"
	"github.com/thisisjab/gelfpush/querier"
)

type ClickHouseDeliveryConfig struct {
	Name string `yaml:"-"`

	Addr     []string `yaml:"addr"`
	Database string   `yaml:"database"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
}

// ClickHouseDelivery archives normalized messages so they stay searchable
// through the query API after they have been shipped downstream. It is both
// an engine delivery and the querier behind the API.
type ClickHouseDelivery struct {
	conn    driver.Conn
	cfg     ClickHouseDeliveryConfig
	builder *querier.SQLQueryBuilder
}

// filterFieldPattern whitelists filterable columns plus fields.* JSON paths.
var filterFieldPattern = regexp.MustCompile(`^(host|short_message|timestamp|fields\.[A-Za-z0-9_][A-Za-z0-9_.]*)$`)

func NewClickHouseDelivery(cfg ClickHouseDeliveryConfig) (*ClickHouseDelivery, error) {
	builder := querier.NewSQLQueryBuilder(querier.SQLOptions{
		TableName:                "gelf_messages",
		AllowedSortFields:        []string{"host", "timestamp"},
		AllowedFilterFieldsRegex: filterFieldPattern,
		SelectColumns:            []string{"id", "host", "timestamp", "short_message", "toJSONString(fields)"},
	})

	return &ClickHouseDelivery{cfg: cfg, builder: builder}, nil
}

func setupClickHouseTables(ctx context.Context, conn driver.Conn) error {
	// fields is the open-ended scalar map, so it uses the JSON type.
	return conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS gelf_messages (
			id UUID,
			host String,
			timestamp DateTime64(9),
			short_message String,
			fields JSON
		)
		ENGINE = MergeTree
		ORDER BY (host, timestamp, id)
		PARTITION BY toYYYYMM(timestamp)
	`)
}

func (d *ClickHouseDelivery) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: d.cfg.Addr,
		Auth: clickhouse.Auth{
			Database: d.cfg.Database,
			Username: d.cfg.Username,
			Password: d.cfg.Password,
		},
		Settings: clickhouse.Settings{
			"allow_experimental_json_type": 1, // This is for supporting JSON columns
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return fmt.Errorf("failed to connect: %v", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping the database: %w", err)
	}

	d.conn = conn

	// A single table, so no migration tooling yet
	if err := setupClickHouseTables(ctx, conn); err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	return nil
}

func (d *ClickHouseDelivery) Close() error {
	return d.conn.Close()
}

func (d *ClickHouseDelivery) DeliveryName() string {
	return d.cfg.Name
}

func (d *ClickHouseDelivery) Deliver(ctx context.Context, msgs ...entity.GelfMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	batch, err := d.conn.PrepareBatch(ctx, "INSERT INTO gelf_messages (id, host, timestamp, short_message, fields)")
	if err != nil {
		return fmt.Errorf("couldn't prepare batch: %w", err)
	}

	for _, msg := range msgs {
		err = batch.Append(msg.ID, msg.Host, epochToTime(msg.Timestamp), msg.ShortMessage, msg.Fields)

		if err != nil {
			return fmt.Errorf("couldn't append message to batch: %w", err)
		}
	}

	err = batch.Send()
	if err != nil {
		return fmt.Errorf("couldn't send batch: %w", err)
	}

	return nil
}

// Query searches the archive. The response cursor is the timestamp of the
// last row; passing it back resumes the search from that point.
func (d *ClickHouseDelivery) Query(ctx context.Context, req querier.QueryRequest) (querier.QueryResponse, error) {
	q := req.Query

	if q.Cursor != "" {
		start, err := time.Parse(time.RFC3339Nano, q.Cursor)
		if err != nil {
			return querier.QueryResponse{}, fault.New(fault.BadInputCode, "").
				WithMetadata(fault.FieldErrorsMetadata{"cursor": []string{"Cursor is not valid."}})
		}
		q.Start = start
	}

	built, err := d.builder.Build(q)
	if err != nil {
		return querier.QueryResponse{}, fault.New(fault.BadInputCode, err.Error())
	}

	rows, err := d.conn.Query(ctx, built.Query, built.Args...)
	if err != nil {
		return querier.QueryResponse{}, fmt.Errorf("archive query failed: %w", err)
	}
	defer rows.Close()

	var resp querier.QueryResponse
	var lastTimestamp time.Time

	for rows.Next() {
		var (
			id         uuid.UUID
			host       string
			ts         time.Time
			shortMsg   string
			fieldsJSON string
		)

		if err := rows.Scan(&id, &host, &ts, &shortMsg, &fieldsJSON); err != nil {
			return querier.QueryResponse{}, fmt.Errorf("cannot scan row: %w", err)
		}

		fields := make(map[string]any)
		if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
			return querier.QueryResponse{}, fmt.Errorf("cannot decode fields column: %w", err)
		}

		resp.Messages = append(resp.Messages, entity.GelfMessage{
			ID:           id,
			Host:         host,
			Timestamp:    timeToEpoch(ts),
			ShortMessage: shortMsg,
			Fields:       fields,
		})
		lastTimestamp = ts
	}
	if err := rows.Err(); err != nil {
		return querier.QueryResponse{}, fmt.Errorf("archive query failed: %w", err)
	}

	if len(resp.Messages) > 0 {
		resp.Cursor = lastTimestamp.Format(time.RFC3339Nano)
	}

	return resp, nil
}

func epochToTime(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

func timeToEpoch(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
