package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/radio-telemetry/internal/status"
	"github.com/sweeney/radio-telemetry/internal/table"
	"github.com/sweeney/radio-telemetry/internal/telemetry"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Format(table.TimestampLayout)
	},
	"value": func(v float64, prec int) string {
		return telemetry.FormatValue(v, prec)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Telemetry Host</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.rows th { width: auto; }
.notice { border: 1px solid #c00; background: #fee; padding: 0.5em 1em; }
.waiting { color: orange; }
</style>
</head>
<body>
<h1>Telemetry Host</h1>

{{if .Notice}}<p class="notice">Persistence failure at {{stamp .Notice.Time}}: {{.Notice.Message}}</p>{{end}}

<h2>Latest Reading</h2>
<table>
{{if .HasLatest}}<tr><th>Temperature</th><td>{{value .Latest.Temperature .Precision.Temperature}} °C</td></tr>
<tr><th>Humidity</th><td>{{value .Latest.Humidity .Precision.Humidity}} %</td></tr>
<tr><th>Pressure</th><td>{{value .Latest.Pressure .Precision.Pressure}} hPa</td></tr>
<tr><th>Received</th><td>{{stamp .Latest.Timestamp}}</td></tr>
{{else}}<tr><td class="waiting">waiting for data</td></tr>{{end}}
</table>

<h2>History</h2>
<table>
<tr><th>Samples</th><td>{{.HistoryLen}}</td></tr>
<tr><th>Window</th><td>{{if .HistoryLen}}{{stamp .Bounds.Start}} to {{stamp .Bounds.End}}{{else}}empty{{end}}</td></tr>
<tr><th>Table rows</th><td>{{.TableRows}}</td></tr>
<tr><th>Malformed lines</th><td>{{.Counts.Malformed}}</td></tr>
<tr><th>Poll failures</th><td>{{.Counts.PollFailed}}</td></tr>
</table>

<h2>Snapshots</h2>
<table>
<tr><th>Directory</th><td>{{.Config.SnapshotDir}}</td></tr>
<tr><th>Last saved</th><td>{{stamp .LastSaved}}</td></tr>
<tr><th>Interval</th><td>{{.Config.SnapshotIntervalMs}}ms (keep {{.Config.SnapshotKeep}})</td></tr>
</table>
<form method="post" action="/export">
<input type="text" name="name" placeholder="export.txt" size="40">
<button type="submit">Export</button>
</form>

<h2>Recent Rows</h2>
<table class="rows">
<tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr><td>{{.Timestamp}}</td><td>{{.Temperature}}</td><td>{{.Humidity}}</td><td>{{.Pressure}}</td></tr>
{{end}}</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Device</th><td>{{.Config.Device}} @ {{.Config.Baud}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
{{if .Config.ArchivePath}}<tr><th>Archive</th><td>{{.Config.ArchivePath}}</td></tr>{{end}}
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/history.json">History</a> · <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, rows []table.Row) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime    time.Duration
		Precision telemetry.Precision
		Headers   [4]string
		Rows      []table.Row
	}{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		Precision: telemetry.DefaultPrecision,
		Headers:   table.Headers,
		Rows:      rows,
	}
	return indexTmpl.Execute(w, data)
}
