package telemetry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// LineTerminator ends every wire line.
const LineTerminator = "\r\n"

// ErrMalformed is returned for any line that is not three finite decimal fields.
var ErrMalformed = errors.New("malformed telemetry line")

// DecodeError describes a rejected line. It always wraps ErrMalformed.
type DecodeError struct {
	Line   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: %s (%q)", ErrMalformed, e.Reason, e.Line)
}

func (e *DecodeError) Unwrap() error {
	return ErrMalformed
}

// Precision controls how many decimals each field is rendered with.
// A negative value selects the shortest representation that parses back exactly.
type Precision struct {
	Temperature int
	Pressure    int
	Humidity    int
}

// DefaultPrecision renders temperature the way the BME280 driver reports it
// (two decimals) and the other fields in shortest form.
var DefaultPrecision = Precision{Temperature: 2, Pressure: -1, Humidity: -1}

// FormatValue renders a single field as bare decimal text.
func FormatValue(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// Encode renders r as "temperature,pressure,humidity\r\n" using DefaultPrecision.
func Encode(r Reading) []byte {
	return DefaultPrecision.Encode(r)
}

// Encode renders r as a terminated wire line.
func (p Precision) Encode(r Reading) []byte {
	var b strings.Builder
	b.WriteString(FormatValue(r.Temperature, p.Temperature))
	b.WriteByte(',')
	b.WriteString(FormatValue(r.Pressure, p.Pressure))
	b.WriteByte(',')
	b.WriteString(FormatValue(r.Humidity, p.Humidity))
	b.WriteString(LineTerminator)
	return []byte(b.String())
}

// Decode parses one wire line (with or without its terminator).
// Field order on the wire is temperature, pressure, humidity.
func Decode(line []byte) (Reading, error) {
	text := strings.TrimSpace(string(line))
	fields := strings.Split(text, ",")
	if len(fields) != 3 {
		return Reading{}, &DecodeError{Line: text, Reason: fmt.Sprintf("want 3 fields, got %d", len(fields))}
	}

	var vals [3]float64
	for i, f := range fields {
		v, err := parseField(strings.TrimSpace(f))
		if err != nil {
			return Reading{}, &DecodeError{Line: text, Reason: fmt.Sprintf("field %d: %v", i+1, err)}
		}
		vals[i] = v
	}

	return Reading{
		Temperature: vals[0],
		Pressure:    vals[1],
		Humidity:    vals[2],
	}, nil
}

// parseField accepts plain decimal numbers only: no hex, no underscores, no NaN/Inf.
func parseField(f string) (float64, error) {
	if f == "" {
		return 0, errors.New("empty")
	}
	for _, c := range f {
		switch {
		case c >= '0' && c <= '9':
		case c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E':
		default:
			return 0, fmt.Errorf("unexpected character %q", c)
		}
	}
	v, err := strconv.ParseFloat(f, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not finite")
	}
	return v, nil
}
