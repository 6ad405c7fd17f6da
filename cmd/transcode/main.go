// Command transcode runs a single Logpush record through the codec and
// prints the resulting message as JSON. Useful for checking a codec config
// against real records without standing up the whole pipeline.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/thisisjab/gelfpush/codec"
	"github.com/thisisjab/gelfpush/entity"
)

func main() {
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
		}),
	)

	summaryFields := flag.String("summary-fields", "", "comma-separated fields rendered into the short message")
	messageFields := flag.String("fields", "", "comma-separated fields copied into the message (empty means all)")
	host := flag.String("host", "cloudflare-logpush", "host reported on the message")
	useNow := flag.Bool("use-now", false, "stamp messages with wall-clock time instead of the record timestamp")
	flag.Parse()

	c, err := codec.NewLogpushCodec(codec.LogpushCodecConfig{
		Name:                 "transcode",
		MessageSummaryFields: *summaryFields,
		MessageFields:        *messageFields,
		UseNowTimestamp:      *useNow,
		DestinationHost:      *host,
	})
	if err != nil {
		logger.Error("cannot create codec.", "error", err)
		os.Exit(1)
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		logger.Error("cannot read record from stdin.", "error", err)
		os.Exit(1)
	}

	msg, err := c.Decode(entity.RawPayload{
		Source:   "stdin",
		Data:     data,
		Received: time.Now(),
	})
	if err != nil {
		logger.Error("cannot decode record.", "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		logger.Error("cannot render message.", "error", err)
		os.Exit(1)
	}

	fmt.Println(string(out))
}
