// Package web provides the HTTP surface of the telemetry host.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sweeney/radio-telemetry/internal/history"
	"github.com/sweeney/radio-telemetry/internal/ingest"
	"github.com/sweeney/radio-telemetry/internal/metrics"
	"github.com/sweeney/radio-telemetry/internal/snapshot"
	"github.com/sweeney/radio-telemetry/internal/status"
	"github.com/sweeney/radio-telemetry/internal/table"
	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

// recentRows is how many table rows the index page shows.
const recentRows = 20

// DataSource exposes the pipeline's read side.
type DataSource interface {
	Series() (history.Series, ingest.Bounds, bool)
	Rows() []table.Row
}

// ArchiveSource is the read side of the sample archive.
type ArchiveSource interface {
	Since(ctx context.Context, t time.Time) ([]telemetry.Sample, error)
	Count(ctx context.Context) (int, error)
}

// Options configures the optional parts of the server.
type Options struct {
	// ExportDir is the only directory exports are written to. Empty
	// disables POST /export.
	ExportDir string
	// Archive backs /archive.json. Nil disables it.
	Archive ArchiveSource
}

// errExportName rejects export names that are not a plain file name.
var errExportName = errors.New("export name must be a plain file name")

// Server serves the status page, JSON views, table export and metrics.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	data       DataSource
	logger     *slog.Logger
	exportDir  string
	archive    ArchiveSource
	export     func(path string, rows []table.Row) error
	now        func() time.Time
}

// New creates a Server. m may be nil, in which case /metrics is not served.
func New(addr string, tracker *status.Tracker, data DataSource, m *metrics.Prom, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		tracker: tracker,
		data:    data,
		logger:    logger,
		exportDir: opts.ExportDir,
		archive:   opts.Archive,
		export:    snapshot.Export,
		now:       time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/history.json", s.handleHistory)
	mux.HandleFunc("/archive.json", s.handleArchive)
	mux.HandleFunc("/export", s.handleExport)
	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	rows := s.data.Rows()
	if len(rows) > recentRows {
		rows = rows[:recentRows]
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap, rows); err != nil {
		s.logger.Warn("render index", "error", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	series, bounds, ok := s.data.Series()
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatHistory(series, bounds, ok))
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.NotFound(w, r)
		return
	}
	raw := r.URL.Query().Get("since")
	if raw == "" {
		http.Error(w, "missing since", http.StatusBadRequest)
		return
	}
	since, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		http.Error(w, "since must be RFC3339", http.StatusBadRequest)
		return
	}

	samples, err := s.archive.Since(r.Context(), since)
	if err != nil {
		s.logger.Error("archive query failed", "since", since, "error", err)
		http.Error(w, "archive query failed", http.StatusInternalServerError)
		return
	}
	total, err := s.archive.Count(r.Context())
	if err != nil {
		s.logger.Error("archive count failed", "error", err)
		http.Error(w, "archive query failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(formatArchive(since, total, samples))
}

// exportPath resolves name inside the export directory.
func (s *Server) exportPath(name string) (string, error) {
	switch {
	case name == "", name == ".", name == "..":
		return "", errExportName
	case strings.ContainsAny(name, `/\`), filepath.Base(name) != name:
		return "", errExportName
	case strings.HasPrefix(name, "."):
		return "", fmt.Errorf("%w: hidden files are not allowed", errExportName)
	case snapshot.IsAutoSaveName(name):
		return "", fmt.Errorf("%w: %q is reserved for auto-saves", errExportName, name)
	}
	return filepath.Join(s.exportDir, name), nil
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.exportDir == "" {
		http.Error(w, "export disabled", http.StatusForbidden)
		return
	}
	name := r.FormValue("name")
	if name == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	path, err := s.exportPath(name)
	if err != nil {
		s.logger.Warn("export refused", "name", name, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows := s.data.Rows()
	if err := s.export(path, rows); err != nil {
		s.logger.Error("export failed", "path", path, "error", err)
		s.tracker.SetNotice(err, s.now())
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	s.logger.Info("table exported", "path", path, "rows", len(rows))
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatExport(path, len(rows)))
}
