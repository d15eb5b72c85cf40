package sensor

import "errors"

// ClimateResult is one scripted ReadClimate outcome.
type ClimateResult struct {
	Temperature float64
	Pressure    float64
	Err         error
}

// FakeClimateBus is a test double that returns scripted climate values.
type FakeClimateBus struct {
	// Results contains scripted outcomes; each ReadClimate consumes the next.
	// When exhausted, the last result repeats.
	Results []ClimateResult

	// Block, if set, makes ReadClimate wait until it is closed.
	Block chan struct{}

	// Calls counts ReadClimate invocations.
	Calls int

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// ReadClimate returns the next scripted result.
func (f *FakeClimateBus) ReadClimate() (float64, float64, error) {
	f.Calls++
	if f.Block != nil {
		<-f.Block
	}
	if len(f.Results) == 0 {
		return 0, 0, errors.New("no results configured")
	}
	r := f.Results[f.index]
	if f.index < len(f.Results)-1 {
		f.index++
	}
	return r.Temperature, r.Pressure, r.Err
}

// Close marks the bus as closed.
func (f *FakeClimateBus) Close() error {
	f.Closed = true
	return nil
}

// HumidityResult is one scripted ReadHumidity outcome.
type HumidityResult struct {
	Humidity float64
	Err      error
}

// FakeHumidityBus is a test double that returns scripted humidity values.
type FakeHumidityBus struct {
	Results []HumidityResult
	Block   chan struct{}
	Calls   int
	Closed  bool

	index int
}

// ReadHumidity returns the next scripted result.
func (f *FakeHumidityBus) ReadHumidity() (float64, error) {
	f.Calls++
	if f.Block != nil {
		<-f.Block
	}
	if len(f.Results) == 0 {
		return 0, errors.New("no results configured")
	}
	r := f.Results[f.index]
	if f.index < len(f.Results)-1 {
		f.index++
	}
	return r.Humidity, r.Err
}

// Close marks the bus as closed.
func (f *FakeHumidityBus) Close() error {
	f.Closed = true
	return nil
}
