// Package telemetry contains the reading types and the line-oriented wire codec
// shared by the sensing node, the relay and the host.
// This package has NO external dependencies (no serial, sensors, OS, or time.Sleep).
package telemetry

import "time"

// Reading is one complete environmental measurement from the sensing node.
type Reading struct {
	Temperature float64 // °C
	Pressure    float64 // hPa
	Humidity    float64 // %RH
}

// Sample is a Reading stamped with the host-local receipt time.
type Sample struct {
	Timestamp   time.Time
	Temperature float64
	Humidity    float64
	Pressure    float64
}

// Stamp turns a decoded reading into a sample received at t.
func Stamp(r Reading, t time.Time) Sample {
	return Sample{
		Timestamp:   t,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Pressure:    r.Pressure,
	}
}

// Reading returns the measurement part of the sample.
func (s Sample) Reading() Reading {
	return Reading{
		Temperature: s.Temperature,
		Pressure:    s.Pressure,
		Humidity:    s.Humidity,
	}
}
