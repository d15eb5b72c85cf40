// Package transmit implements the sensing node's read → encode → send cycle.
package transmit

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sweeney/radio-telemetry/internal/radio"
	"github.com/sweeney/radio-telemetry/internal/sensor"
	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

// Reader produces a complete reading or an error.
type Reader interface {
	Read(ctx context.Context) (telemetry.Reading, error)
}

// Outcome is the result of one cycle.
type Outcome string

const (
	OutcomeSent        Outcome = "SENT"
	OutcomeSkipped     Outcome = "SKIPPED"      // incomplete reading, nothing sent
	OutcomeWriteFailed Outcome = "WRITE_FAILED" // link unavailable this cycle
)

// Counts tracks cycle outcomes since startup.
type Counts struct {
	Sent        int
	Skipped     int
	WriteFailed int
}

// Loop runs one transmission per Cycle call. It never retries within a
// cycle; the next period is the retry.
type Loop struct {
	reader    Reader
	link      radio.Writer
	precision telemetry.Precision
	logger    *slog.Logger
	counts    Counts
}

// New creates a transmit loop writing to link.
func New(reader Reader, link radio.Writer, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		reader:    reader,
		link:      link,
		precision: telemetry.DefaultPrecision,
		logger:    logger,
	}
}

// Cycle reads the sensors and, only if the reading is complete, sends one line.
func (l *Loop) Cycle(ctx context.Context) Outcome {
	r, err := l.reader.Read(ctx)
	if err != nil {
		l.counts.Skipped++
		var inc *sensor.IncompleteError
		if errors.As(err, &inc) {
			l.logger.Warn("invalid sensor readings, skipping send",
				"failed", inc.Buses(),
				"error", err,
			)
		} else {
			l.logger.Warn("sensor read failed, skipping send", "error", err)
		}
		return OutcomeSkipped
	}

	line := l.precision.Encode(r)
	if err := l.link.Write(line); err != nil {
		l.counts.WriteFailed++
		l.logger.Warn("send failed", "error", err)
		return OutcomeWriteFailed
	}

	l.counts.Sent++
	l.logger.Info("sent",
		"temperature", r.Temperature,
		"pressure", r.Pressure,
		"humidity", r.Humidity,
	)
	return OutcomeSent
}

// Counts returns a copy of the outcome counters.
func (l *Loop) Counts() Counts {
	return l.counts
}
