package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/thisisjab/gelfpush/entity"
)

type S3LogSourceConfig struct {
	Name           string   `yaml:"-"`
	Codec          string   `yaml:"-"`
	TransformNames []string `yaml:"-"`

	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`

	// Endpoint overrides the S3 endpoint, for S3-compatible stores.
	Endpoint string `yaml:"endpoint"`

	PollInterval time.Duration `yaml:"poll_interval"`
}

// S3LogSource polls a bucket for new Logpush objects. Logpush object keys
// sort lexically by time, so polling resumes from the last key seen. Objects
// ending in .gz are decompressed; each line becomes one payload.
type S3LogSource struct {
	cfg     S3LogSourceConfig
	logger  *slog.Logger
	client  *s3.Client
	lastKey string
}

// NewS3LogSource creates a new S3LogSource instance. Credentials come from
// the default AWS chain (env, shared config, instance role).
func NewS3LogSource(ctx context.Context, logger *slog.Logger, cfg S3LogSourceConfig) (*S3LogSource, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 source `%s` has no bucket", cfg.Name)
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Minute
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("cannot load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3LogSource{
		cfg:    cfg,
		logger: logger,
		client: client,
	}, nil
}

func (s *S3LogSource) SourceName() string {
	return s.cfg.Name
}

func (s *S3LogSource) CodecName() string {
	return s.cfg.Codec
}

func (s *S3LogSource) TransformNames() []string {
	return s.cfg.TransformNames
}

func (s *S3LogSource) Provide(ctx context.Context, payloads chan<- entity.RawPayload) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.poll(ctx, payloads); err != nil {
				s.logger.Error("bucket poll failed.", "source", s.cfg.Name, "bucket", s.cfg.Bucket, "error", err)
			}
		}
	}
}

func (s *S3LogSource) poll(ctx context.Context, payloads chan<- entity.RawPayload) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:     aws.String(s.cfg.Bucket),
		Prefix:     aws.String(s.cfg.Prefix),
		StartAfter: aws.String(s.lastKey),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("cannot list objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if err := s.readObject(ctx, key, payloads); err != nil {
				return fmt.Errorf("cannot read object `%s`: %w", key, err)
			}
			s.lastKey = key
		}
	}

	return nil
}

func (s *S3LogSource) readObject(ctx context.Context, key string, payloads chan<- entity.RawPayload) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer out.Body.Close()

	var body io.Reader = out.Body
	if strings.HasSuffix(key, ".gz") {
		gz, err := gzip.NewReader(out.Body)
		if err != nil {
			return fmt.Errorf("cannot open gzip stream: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	received := time.Now()
	count := 0

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		data := make([]byte, len(line))
		copy(data, line)

		select {
		case payloads <- entity.RawPayload{Source: s.cfg.Name, Data: data, Received: received}:
			count++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	s.logger.Debug("read bucket object.", "key", key, "records", count)
	return nil
}
