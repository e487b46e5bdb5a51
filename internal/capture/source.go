// Package capture provides line sources over the face-tracking engine's output file.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

// ErrSourceClosed is returned when reading from a closed source.
var ErrSourceClosed = errors.New("source is closed")

// Source yields raw output rows in the order they were written.
type Source interface {
	// ReadLine returns the next complete row without its line terminator.
	// ok is false when no complete row is available yet.
	ReadLine() (line string, ok bool, err error)

	// Close releases the underlying file.
	Close() error
}

// Upstream reports whether the producer of a Source is still alive.
type Upstream interface {
	Running() bool
}

// Tailer follows a file that another process appends to. It reads strictly
// front to back and holds an incomplete trailing row until its newline arrives.
type Tailer struct {
	file    *os.File
	reader  *bufio.Reader
	partial strings.Builder
	lines   int
}

// OpenTailer opens path for tailing from its beginning.
func OpenTailer(path string) (*Tailer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Tailer{file: f, reader: bufio.NewReader(f)}, nil
}

// ReadLine returns the next complete row, or ok=false when the writer has not
// finished one yet.
func (t *Tailer) ReadLine() (string, bool, error) {
	if t.file == nil {
		return "", false, ErrSourceClosed
	}

	chunk, err := t.reader.ReadString('\n')
	t.partial.WriteString(chunk)
	if errors.Is(err, io.EOF) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", t.file.Name(), err)
	}

	return t.take(), true, nil
}

// Lines returns the number of complete rows returned so far.
func (t *Tailer) Lines() int {
	return t.lines
}

// Close closes the file.
func (t *Tailer) Close() error {
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

func (t *Tailer) take() string {
	line := strings.TrimRight(t.partial.String(), "\r\n")
	t.partial.Reset()
	t.lines++
	return line
}

// FileSource replays a finished recording. It is its own Upstream: it stops
// running once the end of the file has been reached or Stop is called.
type FileSource struct {
	*Tailer
	done atomic.Bool
}

// OpenFile opens a recorded output file for replay.
func OpenFile(path string) (*FileSource, error) {
	t, err := OpenTailer(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{Tailer: t}, nil
}

// ReadLine returns the next row. A final row without a trailing newline is
// returned as a complete row.
func (s *FileSource) ReadLine() (string, bool, error) {
	if s.done.Load() {
		return "", false, nil
	}

	line, ok, err := s.Tailer.ReadLine()
	if err != nil || ok {
		return line, ok, err
	}

	s.done.Store(true)
	if s.partial.Len() > 0 {
		return s.take(), true, nil
	}
	return "", false, nil
}

// Running reports whether unread rows may remain.
func (s *FileSource) Running() bool {
	return !s.done.Load()
}

// Stop ends the replay early. It is safe to call from another goroutine.
func (s *FileSource) Stop() error {
	s.done.Store(true)
	return nil
}
