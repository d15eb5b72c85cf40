// Package table holds every ingested sample as display text.
package table

import (
	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

// TimestampLayout renders receipt times in rows.
const TimestampLayout = "2006-01-02 15:04:05"

// Headers are the column names, in column order.
var Headers = [4]string{"Timestamp", "Temperature (°C)", "Humidity (%)", "Pressure (hPa)"}

// Row is one sample rendered as four text fields.
type Row struct {
	Timestamp   string `json:"timestamp"`
	Temperature string `json:"temperature"`
	Humidity    string `json:"humidity"`
	Pressure    string `json:"pressure"`
}

// Fields returns the row in column order.
func (r Row) Fields() [4]string {
	return [4]string{r.Timestamp, r.Temperature, r.Humidity, r.Pressure}
}

// RowFor renders s using the wire precision so exported values match
// what the sensing node transmitted.
func RowFor(s telemetry.Sample, p telemetry.Precision) Row {
	return Row{
		Timestamp:   s.Timestamp.Format(TimestampLayout),
		Temperature: telemetry.FormatValue(s.Temperature, p.Temperature),
		Humidity:    telemetry.FormatValue(s.Humidity, p.Humidity),
		Pressure:    telemetry.FormatValue(s.Pressure, p.Pressure),
	}
}

// Table is unbounded and stored in insertion order. Readers get rows
// newest first, which is the display order.
// Not safe for concurrent use; the caller synchronizes.
type Table struct {
	rows      []Row
	precision telemetry.Precision
}

// New creates an empty table.
func New() *Table {
	return &Table{precision: telemetry.DefaultPrecision}
}

// Insert renders s, stores it, and returns the new row.
func (t *Table) Insert(s telemetry.Sample) Row {
	row := RowFor(s, t.precision)
	t.rows = append(t.rows, row)
	return row
}

// Rows returns a copy of all rows in display order (newest first).
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	n := len(t.rows)
	for i, r := range t.rows {
		out[n-1-i] = r
	}
	return out
}

// Len returns the row count.
func (t *Table) Len() int {
	return len(t.rows)
}
