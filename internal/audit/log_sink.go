package audit

import (
	"context"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Messages used for the two halves of a record in the log stream.
const (
	RequestMessage  = "http request"
	ResponseMessage = "http response"
)

// LogSink writes each entry as a single structured log line. slog handlers
// serialize writes, so lines from concurrent requests never interleave.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink writing to logger. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With(slog.String("component", "audit"))}
}

// Append logs the entry at info level.
func (s *LogSink) Append(ctx context.Context, e Entry) error {
	attrs := []slog.Attr{
		slog.String("correlation_id", e.CorrelationID),
		slog.String("method", e.Method),
		slog.String("path", e.Path),
		slog.String("query", e.Query),
		slog.Any("headers", e.Headers),
		slog.String("body", e.Body),
		slog.Time("timestamp", e.Timestamp),
	}

	msg := RequestMessage
	if e.Phase == PhaseResponse {
		msg = ResponseMessage
		attrs = append(attrs,
			slog.Int("status", e.Status),
			slog.Float64("elapsed_ms", float64(e.Elapsed.Microseconds())/1000),
		)
	} else {
		attrs = append(attrs, slog.String("remote_addr", e.RemoteAddr))
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
	return nil
}

// FileConfig describes a rotating audit log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewFileLogger returns a JSON logger writing to a size-rotated file, along
// with the closer for the file.
func NewFileLogger(cfg FileConfig) (*slog.Logger, io.Closer) {
	rotator := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(rotator, nil)), rotator
}
