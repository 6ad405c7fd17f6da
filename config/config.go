package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/thisisjab/gelfpush/api"
	"github.com/thisisjab/gelfpush/codec"
	"github.com/thisisjab/gelfpush/delivery"
	"github.com/thisisjab/gelfpush/engine"
	"github.com/thisisjab/gelfpush/source"
	"github.com/thisisjab/gelfpush/transform"
	"go.yaml.in/yaml/v3"
)

type Config struct {
	Logger     LoggerConfig      `yaml:"logger"`
	API        api.Config        `yaml:"api"`
	Archive    *ArchiveConfig    `yaml:"archive"`
	Deliveries []DeliveryConfig  `yaml:"deliveries"`
	Codecs     []CodecConfig     `yaml:"codecs"`
	Transforms []TransformConfig `yaml:"transforms"`
	Sources    []SourceConfig    `yaml:"sources"`

	RawBufferSize         uint          `yaml:"raw_buffer_size"`
	DeliveryFlushInterval time.Duration `yaml:"delivery_flush_interval"`
	DeliveryBufferSize    uint          `yaml:"delivery_buffer_size"`
	CodecWorkersCount     uint          `yaml:"codec_workers_count"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Type   string `yaml:"type"`
	Output string `yaml:"output"`
}

// ArchiveConfig is a ClickHouse delivery that doubles as the query API's
// search backend.
type ArchiveConfig struct {
	Config any `yaml:"config"`
}

type DeliveryConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Config any    `yaml:"config"`
}

type CodecConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Config any    `yaml:"config"`
}

type TransformConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Config any    `yaml:"config"`
}

type SourceConfig struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Codec      string   `yaml:"codec"`
	Transforms []string `yaml:"transforms"`
	Config     any      `yaml:"config"`
}

func (cfg Config) Parse(ctx context.Context) (*engine.Config, *slog.Logger, error) {
	logger, err := parseLoggerConfig(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create logger: %w", err)
	}

	deliveries := make([]engine.Delivery, 0, len(cfg.Deliveries)+1)
	for _, dc := range cfg.Deliveries {
		d, err := parseDeliveryConfig(ctx, dc)
		if err != nil {
			return nil, logger, fmt.Errorf("cannot create delivery `%s`: %w", dc.Name, err)
		}
		deliveries = append(deliveries, d)
	}

	if cfg.Archive != nil {
		archive, err := cfg.ParseArchive(ctx)
		if err != nil {
			return nil, logger, fmt.Errorf("cannot create archive: %w", err)
		}
		deliveries = append(deliveries, archive)
	}

	codecs := make(map[string]engine.Codec, len(cfg.Codecs))
	for _, cc := range cfg.Codecs {
		c, err := parseCodecConfig(cc)
		if err != nil {
			return nil, logger, fmt.Errorf("cannot create codec `%s`: %w", cc.Name, err)
		}
		codecs[cc.Name] = c
	}

	transforms := make(map[string]engine.Transform, len(cfg.Transforms))
	for _, tc := range cfg.Transforms {
		t, err := parseTransformConfig(tc)
		if err != nil {
			return nil, logger, fmt.Errorf("cannot create transform `%s`: %w", tc.Name, err)
		}
		transforms[tc.Name] = t
	}

	sources := make(map[string]engine.LogSource, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		s, err := parseSourceConfig(ctx, logger, sc)
		if err != nil {
			return nil, logger, fmt.Errorf("cannot create source `%s`: %w", sc.Name, err)
		}
		sources[sc.Name] = s
	}

	return &engine.Config{
		Sources:               sources,
		Codecs:                codecs,
		Transforms:            transforms,
		Deliveries:            deliveries,
		RawBufferMaxSize:      cfg.RawBufferSize,
		DeliveryFlushInterval: cfg.DeliveryFlushInterval,
		DeliveryBufferMaxSize: cfg.DeliveryBufferSize,
		CodecWorkersCount:     cfg.CodecWorkersCount,
	}, logger, nil
}

// ParseArchive builds and connects the ClickHouse archive. The query API
// uses it as its search backend; the pipeline uses it as one more delivery.
func (cfg Config) ParseArchive(ctx context.Context) (*delivery.ClickHouseDelivery, error) {
	if cfg.Archive == nil {
		return nil, fmt.Errorf("no archive is configured")
	}

	var chConfig delivery.ClickHouseDeliveryConfig
	if err := remarshal(cfg.Archive.Config, &chConfig); err != nil {
		return nil, fmt.Errorf("cannot parse archive config: %w", err)
	}
	chConfig.Name = "archive"

	d, err := delivery.NewClickHouseDelivery(chConfig)
	if err != nil {
		return nil, err
	}

	if err := d.Connect(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// ParseLogger exposes the logger alone, for binaries that don't need the
// whole pipeline.
func (cfg Config) ParseLogger() (*slog.Logger, error) {
	return parseLoggerConfig(cfg.Logger)
}

func parseLoggerConfig(cfg LoggerConfig) (*slog.Logger, error) {
	var handler slog.Handler

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	w := os.Stdout
	switch cfg.Type {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case "colored-text":
		handler = tint.NewHandler(w, &tint.Options{Level: level, AddSource: true})
	default:
		return nil, fmt.Errorf("invalid log type: %s", cfg.Type)
	}

	return slog.New(handler), nil
}

func parseDeliveryConfig(ctx context.Context, cfg DeliveryConfig) (engine.Delivery, error) {
	switch cfg.Type {
	case "gelf-tcp":
		var gelfConfig delivery.GelfTCPDeliveryConfig

		if err := remarshal(cfg.Config, &gelfConfig); err != nil {
			return nil, fmt.Errorf("cannot parse gelf tcp delivery config: %w", err)
		}
		gelfConfig.Name = cfg.Name

		return delivery.NewGelfTCPDelivery(gelfConfig)

	case "clickhouse":
		var chConfig delivery.ClickHouseDeliveryConfig

		if err := remarshal(cfg.Config, &chConfig); err != nil {
			return nil, fmt.Errorf("cannot parse clickhouse delivery config: %w", err)
		}
		chConfig.Name = cfg.Name

		d, err := delivery.NewClickHouseDelivery(chConfig)
		if err != nil {
			return nil, err
		}

		if err := d.Connect(ctx); err != nil {
			return nil, err
		}

		return d, nil

	default:
		return nil, fmt.Errorf("invalid delivery type: %s", cfg.Type)
	}
}

func parseCodecConfig(cfg CodecConfig) (engine.Codec, error) {
	switch cfg.Type {
	case "logpush":
		var logpushConfig codec.LogpushCodecConfig

		if err := remarshal(cfg.Config, &logpushConfig); err != nil {
			return nil, fmt.Errorf("cannot parse logpush codec config: %w", err)
		}
		logpushConfig.Name = cfg.Name

		return codec.NewLogpushCodec(logpushConfig)

	default:
		return nil, fmt.Errorf("invalid codec type: %s", cfg.Type)
	}
}

func parseTransformConfig(cfg TransformConfig) (engine.Transform, error) {
	switch cfg.Type {
	case "lua":
		var luaConfig transform.LuaTransformConfig

		if err := remarshal(cfg.Config, &luaConfig); err != nil {
			return nil, fmt.Errorf("cannot parse lua transform config: %w", err)
		}
		luaConfig.Name = cfg.Name

		return transform.NewLuaTransform(luaConfig)

	default:
		return nil, fmt.Errorf("invalid transform type: %s", cfg.Type)
	}
}

func parseSourceConfig(ctx context.Context, logger *slog.Logger, cfg SourceConfig) (engine.LogSource, error) {
	switch cfg.Type {
	case "file":
		var fileConfig source.FileLogSourceConfig

		if err := remarshal(cfg.Config, &fileConfig); err != nil {
			return nil, fmt.Errorf("cannot parse file source config: %w", err)
		}
		fileConfig.Name = cfg.Name
		fileConfig.Codec = cfg.Codec
		fileConfig.TransformNames = cfg.Transforms

		return source.NewFileLogSource(logger, fileConfig)

	case "s3":
		var s3Config source.S3LogSourceConfig

		if err := remarshal(cfg.Config, &s3Config); err != nil {
			return nil, fmt.Errorf("cannot parse s3 source config: %w", err)
		}
		s3Config.Name = cfg.Name
		s3Config.Codec = cfg.Codec
		s3Config.TransformNames = cfg.Transforms

		return source.NewS3LogSource(ctx, logger, s3Config)

	default:
		return nil, fmt.Errorf("invalid source type: %s", cfg.Type)
	}
}

// remarshal takes an input value, marshals it to YAML, and then unmarshals it into a new value of the same type.
// This is useful for converting generic interfaces (like map[string]any) into concrete struct types.
// The output parameter must be a pointer to the target type.
func remarshal(input any, output any) error {
	// Marshal the input to YAML
	yamlBytes, err := yaml.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}

	// Unmarshal the YAML into the output
	if err := yaml.Unmarshal(yamlBytes, output); err != nil {
		return fmt.Errorf("failed to unmarshal from YAML: %w", err)
	}

	return nil
}
