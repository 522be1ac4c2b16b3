package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Sink persists completed reports.
type Sink interface {
	Write(ctx context.Context, r Report) error
}

// FileSink writes one JSON file per report into a directory.
type FileSink struct {
	dir    string
	logger zerolog.Logger
}

// NewFileSink returns a directory-backed report sink.
func NewFileSink(dir string, logger zerolog.Logger) *FileSink {
	return &FileSink{dir: dir, logger: logger}
}

// Write implements Sink. The write is atomic: rename from a temp file.
func (s *FileSink) Write(ctx context.Context, r Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Session.ID == "" {
		return fmt.Errorf("report session id must not be empty")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(s.dir, ".report-*.json")
	if err != nil {
		return err
	}
	cleanup := func() {
		_ = os.Remove(tempFile.Name())
	}

	encoder := json.NewEncoder(tempFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		_ = tempFile.Close()
		cleanup()
		return err
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		cleanup()
		return err
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return err
	}

	finalPath := filepath.Join(s.dir, r.Session.ID+".json")
	if err := os.Rename(tempFile.Name(), finalPath); err != nil {
		cleanup()
		return err
	}

	s.logger.Info().
		Str("session", r.Session.ID).
		Str("path", finalPath).
		Bool("rto_met", r.Performance.RTOMet).
		Msg("report written")
	return nil
}

// LogSink logs reports instead of persisting them, for dry runs.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink returns a logging-only report sink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Write implements Sink.
func (s *LogSink) Write(_ context.Context, r Report) error {
	s.logger.Info().
		Str("session", r.Session.ID).
		Str("kind", string(r.Session.Kind)).
		Float64("actual_seconds", r.Performance.ActualSeconds).
		Float64("estimated_seconds", r.Performance.EstimatedSeconds).
		Bool("rto_met", r.Performance.RTOMet).
		Strs("recommendations", r.Recommendations).
		Msg("[DRY-RUN] report")
	return nil
}
