package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const snapshotSuffix = ".snap"

// FileStore keeps snapshots on the local filesystem, one directory per
// service, one file per snapshot named by its Unix-nano timestamp.
type FileStore struct {
	root   string
	logger zerolog.Logger
	now    func() time.Time
}

// FileStoreOption customizes FileStore behavior.
type FileStoreOption func(*FileStore)

// WithClock overrides the time source (primarily for testing).
func WithClock(now func() time.Time) FileStoreOption {
	return func(s *FileStore) {
		s.now = now
	}
}

// NewFileStore returns a filesystem-backed snapshot store rooted at dir.
func NewFileStore(dir string, logger zerolog.Logger, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		root:   dir,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot implements Store. The write is atomic: content lands in a temp
// file first and is renamed into place.
func (s *FileStore) Snapshot(ctx context.Context, service string, data io.Reader) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}
	if service == "" {
		return Meta{}, fmt.Errorf("backup: service must not be empty")
	}

	dir := filepath.Join(s.root, service)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Meta{}, err
	}

	tempFile, err := os.CreateTemp(dir, ".snap-*")
	if err != nil {
		return Meta{}, err
	}
	cleanup := func() {
		_ = os.Remove(tempFile.Name())
	}

	size, err := io.Copy(tempFile, data)
	if err != nil {
		_ = tempFile.Close()
		cleanup()
		return Meta{}, err
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		cleanup()
		return Meta{}, err
	}
	if err := tempFile.Close(); err != nil {
		cleanup()
		return Meta{}, err
	}

	takenAt := s.now().UTC()
	finalPath := filepath.Join(dir, strconv.FormatInt(takenAt.UnixNano(), 10)+snapshotSuffix)
	if err := os.Rename(tempFile.Name(), finalPath); err != nil {
		cleanup()
		return Meta{}, err
	}

	s.logger.Info().
		Str("service", service).
		Str("location", finalPath).
		Int64("bytes", size).
		Msg("snapshot taken")

	return Meta{
		Service:   service,
		Location:  finalPath,
		TakenAt:   takenAt,
		SizeBytes: size,
	}, nil
}

// Latest implements Store.
func (s *FileStore) Latest(ctx context.Context, service string) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}

	dir := filepath.Join(s.root, service)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, fmt.Errorf("%w for service %s", ErrNoSnapshot, service)
		}
		return Meta{}, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapshotSuffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return Meta{}, fmt.Errorf("%w for service %s", ErrNoSnapshot, service)
	}
	sort.Strings(names)
	name := names[len(names)-1]

	nanos, err := strconv.ParseInt(strings.TrimSuffix(name, snapshotSuffix), 10, 64)
	if err != nil {
		return Meta{}, fmt.Errorf("backup: malformed snapshot name %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return Meta{}, err
	}

	return Meta{
		Service:   service,
		Location:  path,
		TakenAt:   time.Unix(0, nanos).UTC(),
		SizeBytes: info.Size(),
	}, nil
}

// Open implements Store.
func (s *FileStore) Open(ctx context.Context, service string) (io.ReadCloser, Meta, error) {
	meta, err := s.Latest(ctx, service)
	if err != nil {
		return nil, Meta{}, err
	}
	file, err := os.Open(meta.Location)
	if err != nil {
		return nil, Meta{}, err
	}
	return file, meta, nil
}
