package radio

// FakeLink is a test double that replays scripted input and records writes.
type FakeLink struct {
	// Chunks contains scripted Poll results; each Poll consumes the next.
	// When exhausted, Poll returns no data.
	Chunks [][]byte

	// Written contains every successful Write payload.
	Written [][]byte

	// WriteError, if set, will be returned by Write.
	WriteError error

	// PollError, if set, will be returned by Poll.
	PollError error

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// NewFakeLink creates a FakeLink that will deliver chunks in order.
func NewFakeLink(chunks ...string) *FakeLink {
	f := &FakeLink{}
	for _, c := range chunks {
		f.Chunks = append(f.Chunks, []byte(c))
	}
	return f
}

// Write records p.
func (f *FakeLink) Write(p []byte) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Written = append(f.Written, append([]byte(nil), p...))
	return nil
}

// Poll returns the next scripted chunk.
func (f *FakeLink) Poll() ([]byte, error) {
	if f.PollError != nil {
		return nil, f.PollError
	}
	if f.index >= len(f.Chunks) {
		return nil, nil
	}
	c := f.Chunks[f.index]
	f.index++
	return c, nil
}

// Close marks the link as closed.
func (f *FakeLink) Close() error {
	f.Closed = true
	return nil
}

// Remaining returns how many scripted chunks have not been polled.
func (f *FakeLink) Remaining() int {
	return len(f.Chunks) - f.index
}
