// Package archive stores every ingested sample in SQLite.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sweeney/radio-telemetry/internal/ingest"
	"github.com/sweeney/radio-telemetry/internal/metrics"
	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

const schema = `
CREATE TABLE IF NOT EXISTS samples (
  id            TEXT PRIMARY KEY,
  ts_ns         INTEGER NOT NULL,
  temperature_c REAL NOT NULL,
  humidity_pct  REAL NOT NULL,
  pressure_hpa  REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_samples_ts ON samples(ts_ns);
`

// insertTimeout bounds one insert so a locked database never stalls ingestion.
const insertTimeout = 500 * time.Millisecond

// Open opens (creating if needed) the SQLite file at path.
func Open(path string) (*sql.DB, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	// Single writer: the ingestion goroutine.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func buildDSN(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := []string{
		"_busy_timeout=250",
		"_journal_mode=WAL",
	}
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// Archive is an ingest.Sink that inserts one row per sample. Failures are
// logged and counted; they never reach the pipeline.
type Archive struct {
	ingest.NopSink

	db      *sql.DB
	logger  *slog.Logger
	metrics *metrics.Prom
}

// New creates the schema and returns the sink. m may be nil.
func New(db *sql.DB, logger *slog.Logger, m *metrics.Prom) (*Archive, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("exec schema: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{db: db, logger: logger, metrics: m}, nil
}

// OnSampleAppended stores s.
func (a *Archive) OnSampleAppended(s telemetry.Sample) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	if err := a.Insert(ctx, s); err != nil {
		a.metrics.Inc(metrics.ArchiveFailures, 1)
		a.logger.Error("archive insert failed", "error", err)
	}
}

// Insert stores one sample.
func (a *Archive) Insert(ctx context.Context, s telemetry.Sample) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO samples (id, ts_ns, temperature_c, humidity_pct, pressure_hpa) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(),
		s.Timestamp.UnixNano(),
		s.Temperature, s.Humidity, s.Pressure,
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// Since returns samples received at or after t, oldest first.
func (a *Archive) Since(ctx context.Context, t time.Time) ([]telemetry.Sample, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT ts_ns, temperature_c, humidity_pct, pressure_hpa FROM samples WHERE ts_ns >= ? ORDER BY ts_ns ASC, rowid ASC`,
		t.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []telemetry.Sample
	for rows.Next() {
		var (
			ns int64
			s  telemetry.Sample
		)
		if err := rows.Scan(&ns, &s.Temperature, &s.Humidity, &s.Pressure); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.Timestamp = time.Unix(0, ns).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Count returns the number of stored samples.
func (a *Archive) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}
