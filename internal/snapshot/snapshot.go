// Package snapshot writes the table to tab-separated files, either on a
// fixed interval with retention or on demand.
package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sweeney/radio-telemetry/internal/metrics"
	"github.com/sweeney/radio-telemetry/internal/table"
)

// DefaultKeep is the number of auto-saved files retained.
const DefaultKeep = 9

// DefaultInterval is the auto-save period.
const DefaultInterval = 10 * time.Second

// MinInterval is the shortest auto-save period: file names have one-second
// resolution, so faster saves would overwrite each other.
const MinInterval = time.Second

// FileMode is the permission of snapshot and export files.
const FileMode fs.FileMode = 0o644

const (
	filePrefix = "data_"
	fileSuffix = ".txt"
	nameLayout = "20060102-150405"
)

// IsAutoSaveName reports whether name matches the auto-save pattern that
// retention applies to.
func IsAutoSaveName(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}

// PersistenceError reports a failed snapshot write or delete.
// It never affects in-memory state.
type PersistenceError struct {
	Op   string // "write", "list", "prune"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("snapshot %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// WriteTable serializes rows as a header line followed by one
// tab-separated line per row, in the order given.
func WriteTable(w io.Writer, rows []table.Row) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(table.Headers[:], "\t"))
	bw.WriteByte('\n')
	for _, r := range rows {
		f := r.Fields()
		bw.WriteString(strings.Join(f[:], "\t"))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// FileName returns the auto-save file name for t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(nameLayout) + fileSuffix
}

// Store auto-saves into a single existing directory.
type Store struct {
	dir     string
	keep    int
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Prom
}

// NewStore checks that dir exists and is a directory. It is never created.
// keep <= 0 selects DefaultKeep. m may be nil.
func NewStore(dir string, keep int, logger *slog.Logger, m *metrics.Prom) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot dir %s: not a directory", dir)
	}
	if keep <= 0 {
		keep = DefaultKeep
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:     dir,
		keep:    keep,
		now:     time.Now,
		logger:  logger,
		metrics: m,
	}, nil
}

// Dir returns the retention directory.
func (s *Store) Dir() string {
	return s.dir
}

// AutoSave writes rows to a new timestamped file and then prunes old files
// so at most keep remain. The returned path is set whenever the write
// succeeded, even if pruning then failed.
func (s *Store) AutoSave(rows []table.Row) (string, error) {
	path := filepath.Join(s.dir, FileName(s.now()))

	start := time.Now()
	if err := writeAtomic(path, rows); err != nil {
		s.metrics.Inc(metrics.SnapshotFailures, 1)
		return "", err
	}
	s.metrics.Observe(metrics.SnapshotSeconds, time.Since(start).Seconds())
	s.metrics.Inc(metrics.SnapshotsWritten, 1)
	s.logger.Debug("snapshot written", "path", path, "rows", len(rows))

	if err := s.prune(); err != nil {
		s.metrics.Inc(metrics.SnapshotFailures, 1)
		return path, err
	}
	return path, nil
}

// Export writes rows to path. Retention does not apply.
func (s *Store) Export(path string, rows []table.Row) error {
	return Export(path, rows)
}

// Export writes rows to an arbitrary path.
func Export(path string, rows []table.Row) error {
	if path == "" {
		return &PersistenceError{Op: "write", Path: path, Err: errors.New("empty path")}
	}
	return writeAtomic(path, rows)
}

type snapshotFile struct {
	name    string
	modTime time.Time
}

// Files lists auto-saved files oldest first.
func (s *Store) Files() ([]string, error) {
	files, err := s.list()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}

func (s *Store) list() ([]snapshotFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Path: s.dir, Err: err}
	}

	var files []snapshotFile
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !IsAutoSaveName(name) {
			continue
		}
		info, err := e.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &PersistenceError{Op: "list", Path: filepath.Join(s.dir, name), Err: err}
		}
		files = append(files, snapshotFile{name: name, modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.Before(files[j].modTime)
		}
		return files[i].name < files[j].name
	})
	return files, nil
}

func (s *Store) prune() error {
	files, err := s.list()
	if err != nil {
		return err
	}
	if len(files) <= s.keep {
		return nil
	}

	var errs []error
	for _, f := range files[:len(files)-s.keep] {
		path := filepath.Join(s.dir, f.name)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, &PersistenceError{Op: "prune", Path: path, Err: err})
			continue
		}
		s.metrics.Inc(metrics.SnapshotsPruned, 1)
		s.logger.Debug("snapshot pruned", "path", path)
	}
	return errors.Join(errs...)
}

// writeAtomic writes to a temp file in the target directory and renames it
// into place, so a reader never sees a partial snapshot.
func writeAtomic(path string, rows []table.Row) error {
	fail := func(err error) error {
		return &PersistenceError{Op: "write", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fail(err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		return fail(err)
	}
	if err := WriteTable(tmp, rows); err != nil {
		tmp.Close()
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fail(err)
	}
	return nil
}
