package telemetry

import (
	"errors"
	"testing"
)

func TestEncodeScenario(t *testing.T) {
	got := string(Encode(Reading{Temperature: 23.50, Pressure: 1012, Humidity: 45.2}))
	if got != "23.50,1012,45.2\r\n" {
		t.Errorf("Encode: got %q, want %q", got, "23.50,1012,45.2\r\n")
	}
}

func TestDecodeScenario(t *testing.T) {
	r, err := Decode([]byte("23.50,1012,45.2\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Temperature != 23.5 {
		t.Errorf("Temperature: got %v, want 23.5", r.Temperature)
	}
	if r.Pressure != 1012 {
		t.Errorf("Pressure: got %v, want 1012", r.Pressure)
	}
	if r.Humidity != 45.2 {
		t.Errorf("Humidity: got %v, want 45.2", r.Humidity)
	}
}

func TestRoundTrip(t *testing.T) {
	readings := []Reading{
		{Temperature: 23.5, Pressure: 1012, Humidity: 45.2},
		{Temperature: -12.25, Pressure: 987.654321, Humidity: 0},
		{Temperature: 0, Pressure: 0, Humidity: 100},
		{Temperature: 41.07, Pressure: 1100.01, Humidity: 99.99847412109375},
		{Temperature: 21.37, Pressure: 1013.25, Humidity: 38.61322021484375},
	}

	for _, r := range readings {
		got, err := Decode(Encode(r))
		if err != nil {
			t.Fatalf("Decode(Encode(%+v)): %v", r, err)
		}
		if got != r {
			t.Errorf("round trip: got %+v, want %+v", got, r)
		}
	}
}

func TestRoundTripShortestPrecision(t *testing.T) {
	p := Precision{Temperature: -1, Pressure: -1, Humidity: -1}
	r := Reading{Temperature: 23.456789, Pressure: 1012.3456, Humidity: 45.678901}

	got, err := Decode(p.Encode(r))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != r {
		t.Errorf("round trip: got %+v, want %+v", got, r)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"fragment", "23.5,"},
		{"one field", "23.5"},
		{"two fields", "23.5,1012"},
		{"four fields", "23.5,1012,45.2,1"},
		{"trailing comma", "23.5,1012,45.2,"},
		{"unit suffix", "23.5C,1012,45.2"},
		{"word", "abc,1012,45.2"},
		{"empty field", "23.5,,45.2"},
		{"nan", "NaN,1012,45.2"},
		{"inf", "23.5,Inf,45.2"},
		{"hex", "0x1p4,1012,45.2"},
		{"underscore", "23.5,1_012,45.2"},
		{"overflow", "1e999,1012,45.2"},
		{"binary noise", "\x00\xff\x10"},
		{"lone sign", "-,1012,45.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.line))
			if err == nil {
				t.Fatalf("expected error for %q", tt.line)
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Errorf("expected *DecodeError, got %T", err)
			}
		})
	}
}

func TestDecodeToleratesSpaces(t *testing.T) {
	r, err := Decode([]byte(" 23.5, 1012 ,45.2 "))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Humidity != 45.2 {
		t.Errorf("Humidity: got %v, want 45.2", r.Humidity)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    float64
		prec int
		want string
	}{
		{23.5, 2, "23.50"},
		{1012, -1, "1012"},
		{45.2, -1, "45.2"},
		{-0.5, 1, "-0.5"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.v, tt.prec); got != tt.want {
			t.Errorf("FormatValue(%v, %d): got %q, want %q", tt.v, tt.prec, got, tt.want)
		}
	}
}
