package capture

import (
	"sync"
)

// MockSource plays back pre-recorded rows for testing. Rows can be pushed while a
// reader is polling; the source keeps running until Finish is called.
type MockSource struct {
	mu       sync.Mutex
	lines    []string
	index    int
	running  bool
	closed   bool
	err      error
	autoStop bool
}

// NewMockSource creates a running MockSource holding lines. When autoStop is
// true the source stops running as soon as the last row has been read.
func NewMockSource(lines []string, autoStop bool) *MockSource {
	return &MockSource{
		lines:    append([]string(nil), lines...),
		running:  true,
		autoStop: autoStop,
	}
}

// ReadLine returns the next pushed row or ok=false when none is pending.
func (s *MockSource) ReadLine() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", false, ErrSourceClosed
	}
	if s.err != nil {
		return "", false, s.err
	}
	if s.index >= len(s.lines) {
		return "", false, nil
	}

	line := s.lines[s.index]
	s.index++
	if s.autoStop && s.index >= len(s.lines) {
		s.running = false
	}
	return line, true, nil
}

// Push appends rows as if the writer produced them.
func (s *MockSource) Push(lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, lines...)
}

// Finish marks the producer as exited.
func (s *MockSource) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// Stop is Finish, satisfying the stopper used on cancellation.
func (s *MockSource) Stop() error {
	s.Finish()
	return nil
}

// SetError makes every following ReadLine fail with err.
func (s *MockSource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Running reports whether the simulated producer is alive.
func (s *MockSource) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Pending returns the number of pushed rows not read yet.
func (s *MockSource) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) - s.index
}

// Close closes the source.
func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
