// Command telemetry-host ingests readings from the relay's serial link,
// keeps the rolling history and the reading table, saves periodic snapshots
// and serves the operator status page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/radio-telemetry/internal/archive"
	"github.com/sweeney/radio-telemetry/internal/config"
	"github.com/sweeney/radio-telemetry/internal/ingest"
	"github.com/sweeney/radio-telemetry/internal/logging"
	"github.com/sweeney/radio-telemetry/internal/metrics"
	"github.com/sweeney/radio-telemetry/internal/radio"
	"github.com/sweeney/radio-telemetry/internal/snapshot"
	"github.com/sweeney/radio-telemetry/internal/status"
	"github.com/sweeney/radio-telemetry/internal/web"
)

var version = "dev"

const appName = "telemetry-host"

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "YAML config file")
	device := flag.String("device", "", "Serial device from the relay (overrides config)")
	dir := flag.String("snapshot-dir", "", "Snapshot directory, must exist (overrides config)")
	httpAddr := flag.String("http", "", "HTTP status address, e.g. :8080 (overrides config)")

	flag.Parse()

	if err := run(*configPath, *device, *dir, *httpAddr); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, device, dir, httpAddr string) error {
	cfg, err := config.Load(configPath, config.RoleHost, func(c *config.Config) {
		if device != "" {
			c.Host.Link.Device = device
		}
		if dir != "" {
			c.Snapshot.Dir = dir
		}
		if httpAddr != "" {
			c.HTTP.Addr = httpAddr
		}
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.Log, version, appName)
	prom := metrics.New()

	store, err := snapshot.NewStore(cfg.Snapshot.Dir, cfg.Snapshot.Keep, logger, prom)
	if err != nil {
		return fmt.Errorf("snapshot store: %w", err)
	}

	link, err := radio.Open(cfg.Host.Link)
	if err != nil {
		return fmt.Errorf("open link: %w", err)
	}
	defer link.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		Device:             cfg.Host.Link.Device,
		Baud:               cfg.Host.Link.Baud,
		PollMs:             cfg.Host.PollPeriod.Milliseconds(),
		SnapshotDir:        cfg.Snapshot.Dir,
		SnapshotIntervalMs: cfg.Snapshot.Interval.Milliseconds(),
		SnapshotKeep:       cfg.Snapshot.Keep,
		ArchivePath:        cfg.Archive.Path,
		HTTPAddr:           cfg.HTTP.Addr,
	})

	sinks := ingest.MultiSink{tracker}
	var archiveSrc web.ArchiveSource
	if cfg.Archive.Path != "" {
		db, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer db.Close()
		arc, err := archive.New(db, logger, prom)
		if err != nil {
			return fmt.Errorf("init archive: %w", err)
		}
		sinks = append(sinks, arc)
		archiveSrc = arc
	}

	pipeline := ingest.New(link, ingest.Options{
		HistoryCapacity: cfg.Host.HistoryCapacity,
		FragmentMaxAge:  cfg.Host.FragmentMaxAge,
	}, sinks, logger, prom)

	logger.Info("started",
		"device", cfg.Host.Link.Device,
		"baud", cfg.Host.Link.Baud,
		"poll", cfg.Host.PollPeriod,
		"snapshot_dir", store.Dir(),
		"snapshot_interval", cfg.Snapshot.Interval,
		"snapshot_keep", cfg.Snapshot.Keep,
	)

	pollTicker := time.NewTicker(cfg.Host.PollPeriod)
	defer pollTicker.Stop()
	saveTicker := time.NewTicker(cfg.Snapshot.Interval)
	defer saveTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, ctx := errgroup.WithContext(context.Background())

	var srv *web.Server
	if cfg.HTTP.Addr != "" {
		srv = web.New(cfg.HTTP.Addr, tracker, pipeline, prom, logger, web.Options{
			ExportDir: cfg.Snapshot.ExportDir,
			Archive:   archiveSrc,
		})
		g.Go(func() error {
			logger.Info("http status server listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		err := runLoop(ctx, pipeline, store, tracker, logger, time.Now, pollTicker.C, saveTicker.C, sigCh)
		if srv != nil {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if serr := srv.Shutdown(sctx); serr != nil {
				logger.Warn("http shutdown", "error", serr)
			}
		}
		return err
	})

	return g.Wait()
}

// runLoop polls the link and saves snapshots until a signal arrives or ctx
// is cancelled. Both happen on this goroutine, so a snapshot always sees
// the table between two polls.
func runLoop(ctx context.Context, pipeline *ingest.Pipeline, store *snapshot.Store, tracker *status.Tracker, logger *slog.Logger, now func() time.Time, pollTick, saveTick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			c := pipeline.Counts()
			logger.Info("shutting down",
				"signal", s.String(),
				"ingested", c.Ingested,
				"malformed", c.Malformed,
				"poll_failed", c.PollFailed,
			)
			return nil

		case <-ctx.Done():
			return nil

		case <-pollTick:
			pipeline.Poll(now())
			tracker.Update(pipeline.Counts())

		case <-saveTick:
			save(store, pipeline, tracker, logger, now())
		}
	}
}

// save writes one auto-save snapshot. A failure is reported to the operator
// and never stops ingestion; the next successful save clears the notice.
func save(store *snapshot.Store, pipeline *ingest.Pipeline, tracker *status.Tracker, logger *slog.Logger, at time.Time) {
	path, err := store.AutoSave(pipeline.Rows())
	if path != "" {
		tracker.SetSaved(path, at)
	}
	if err != nil {
		logger.Error("snapshot failed", "dir", store.Dir(), "error", err)
		tracker.SetNotice(err, at)
		return
	}
	tracker.ClearNotice()
	logger.Info("snapshot saved", "path", path)
}
