package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/radio-telemetry/internal/history"
	"github.com/sweeney/radio-telemetry/internal/ingest"
	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

// HistoryJSON is the plot data: three metric series over the current
// window plus the time-axis bounds.
type HistoryJSON struct {
	Start       string          `json:"start,omitempty"`
	End         string          `json:"end,omitempty"`
	Temperature []history.Point `json:"temperature"`
	Humidity    []history.Point `json:"humidity"`
	Pressure    []history.Point `json:"pressure"`
}

// ExportJSON acknowledges an on-demand export.
type ExportJSON struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

// ArchiveJSON is a slice of the archive starting at Since.
type ArchiveJSON struct {
	Since   string       `json:"since"`
	Total   int          `json:"total"`
	Samples []SampleJSON `json:"samples"`
}

// SampleJSON is one archived sample.
type SampleJSON struct {
	Timestamp   string  `json:"timestamp"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
}

func formatHistory(series history.Series, bounds ingest.Bounds, ok bool) []byte {
	hj := HistoryJSON{
		Temperature: series.Temperature,
		Humidity:    series.Humidity,
		Pressure:    series.Pressure,
	}
	if hj.Temperature == nil {
		hj.Temperature = []history.Point{}
	}
	if hj.Humidity == nil {
		hj.Humidity = []history.Point{}
	}
	if hj.Pressure == nil {
		hj.Pressure = []history.Point{}
	}
	if ok {
		hj.Start = bounds.Start.UTC().Format(time.RFC3339)
		hj.End = bounds.End.UTC().Format(time.RFC3339)
	}

	data, _ := json.MarshalIndent(hj, "", "  ")
	return data
}

func formatExport(path string, rows int) []byte {
	data, _ := json.Marshal(ExportJSON{Path: path, Rows: rows})
	return data
}

func formatArchive(since time.Time, total int, samples []telemetry.Sample) []byte {
	aj := ArchiveJSON{
		Since:   since.UTC().Format(time.RFC3339Nano),
		Total:   total,
		Samples: make([]SampleJSON, len(samples)),
	}
	for i, s := range samples {
		aj.Samples[i] = SampleJSON{
			Timestamp:   s.Timestamp.UTC().Format(time.RFC3339Nano),
			Temperature: s.Temperature,
			Humidity:    s.Humidity,
			Pressure:    s.Pressure,
		}
	}
	data, _ := json.Marshal(aj)
	return data
}
