package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Latest        *LatestJSON  `json:"latest,omitempty"`
	History       HistoryJSON  `json:"history"`
	TableRows     int          `json:"table_rows"`
	Counts        CountsJSON   `json:"counts"`
	Snapshot      SnapshotJSON `json:"snapshot"`
	Notice        *NoticeJSON  `json:"notice,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// LatestJSON is the newest reading.
type LatestJSON struct {
	Timestamp   string  `json:"timestamp"`
	Temperature float64 `json:"temperature_c"`
	Humidity    float64 `json:"humidity_pct"`
	Pressure    float64 `json:"pressure_hpa"`
}

// HistoryJSON describes the rolling window.
type HistoryJSON struct {
	Length int    `json:"length"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

// CountsJSON is the JSON representation of ingestion counts.
type CountsJSON struct {
	Ingested   int `json:"ingested"`
	Malformed  int `json:"malformed"`
	PollFailed int `json:"poll_failed"`
}

// SnapshotJSON reports the last successful auto-save.
type SnapshotJSON struct {
	LastSaved string `json:"last_saved,omitempty"`
	Path      string `json:"path,omitempty"`
}

// NoticeJSON is the operator notice.
type NoticeJSON struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// ConfigJSON is the JSON representation of host config.
type ConfigJSON struct {
	Device             string `json:"device"`
	Baud               int    `json:"baud"`
	PollMs             int64  `json:"poll_ms"`
	SnapshotDir        string `json:"snapshot_dir"`
	SnapshotIntervalMs int64  `json:"snapshot_interval_ms"`
	SnapshotKeep       int    `json:"snapshot_keep"`
	ArchivePath        string `json:"archive_path,omitempty"`
	HTTPAddr           string `json:"http_addr"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		History: HistoryJSON{
			Length: snap.HistoryLen,
			Start:  formatTime(snap.Bounds.Start),
			End:    formatTime(snap.Bounds.End),
		},
		TableRows: snap.TableRows,
		Counts: CountsJSON{
			Ingested:   snap.Counts.Ingested,
			Malformed:  snap.Counts.Malformed,
			PollFailed: snap.Counts.PollFailed,
		},
		Snapshot: SnapshotJSON{
			LastSaved: formatTime(snap.LastSaved),
			Path:      snap.LastSavePath,
		},
		Config: ConfigJSON{
			Device:             snap.Config.Device,
			Baud:               snap.Config.Baud,
			PollMs:             snap.Config.PollMs,
			SnapshotDir:        snap.Config.SnapshotDir,
			SnapshotIntervalMs: snap.Config.SnapshotIntervalMs,
			SnapshotKeep:       snap.Config.SnapshotKeep,
			ArchivePath:        snap.Config.ArchivePath,
			HTTPAddr:           snap.Config.HTTPAddr,
		},
	}

	if snap.HasLatest {
		inner.Latest = &LatestJSON{
			Timestamp:   formatTime(snap.Latest.Timestamp),
			Temperature: snap.Latest.Temperature,
			Humidity:    snap.Latest.Humidity,
			Pressure:    snap.Latest.Pressure,
		}
	}
	if snap.Notice != nil {
		inner.Notice = &NoticeJSON{
			Timestamp: formatTime(snap.Notice.Time),
			Message:   snap.Notice.Message,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
