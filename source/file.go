package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/thisisjab/gelfpush/entity"
)

type FileLogSourceConfig struct {
	Name           string   `yaml:"-"`
	Codec          string   `yaml:"-"`
	TransformNames []string `yaml:"-"`
	Path           string   `yaml:"path"`
}

// FileLogSource tails a Logpush drop file, emitting one payload per appended
// line. It watches the file for changes and reads new lines as they are
// written.
type FileLogSource struct {
	cfg    FileLogSourceConfig
	logger *slog.Logger
}

// NewFileLogSource creates a new FileLogSource instance.
func NewFileLogSource(logger *slog.Logger, cfg FileLogSourceConfig) (*FileLogSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file source `%s` has no path", cfg.Name)
	}

	return &FileLogSource{
		logger: logger,
		cfg:    cfg,
	}, nil
}

func (f *FileLogSource) SourceName() string {
	return f.cfg.Name
}

func (f *FileLogSource) CodecName() string {
	return f.cfg.Codec
}

func (f *FileLogSource) TransformNames() []string {
	return f.cfg.TransformNames
}

func (f *FileLogSource) Provide(ctx context.Context, payloads chan<- entity.RawPayload) error {
	file, err := os.Open(f.cfg.Path)
	if err != nil {
		return fmt.Errorf("cannot open file: %w", err)
	}
	defer file.Close()

	// Always seek to the end of the file
	// Note that when file is read (when notified by fsnotify), the cursor will move to end of file
	_, err = file.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(f.cfg.Path); err != nil {
		return fmt.Errorf("cannot add file to watcher: %w", err)
	}

	reader := bufio.NewReader(file)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				f.logger.Debug("fsnotify watcher channel is closed.")
				return nil
			}
			if !event.Has(fsnotify.Write) {
				// TODO: handle file rotation. Logpush drops that get rotated
				// by an external downloader change inode, and the watcher
				// tracks inodes; the file must be reopened when that happens.
				f.logger.Debug("received unhandled event from fsnotify.", "event", event.String())
				continue
			}

			for {
				line, err := reader.ReadBytes('\n')
				if len(line) > 0 {
					payloads <- entity.RawPayload{
						Source:   f.SourceName(),
						Data:     line,
						Received: time.Now(),
					}
				}
				if err == io.EOF {
					break
				}
				if err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
