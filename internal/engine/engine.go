// Package engine manages the external face-tracking process that writes the
// per-frame output file the classifier consumes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/timeutil"
)

// Executable names searched for by Locate.
const (
	ExecutableName        = "FeatureExtraction"
	ExecutableNameWindows = "FeatureExtraction.exe"
)

var (
	// ErrNotFound is returned when no engine executable can be located.
	ErrNotFound = errors.New("feature extraction executable not found")

	// ErrNoOutput is returned when the engine never creates its output file.
	ErrNoOutput = errors.New("engine output file did not appear")

	// ErrNotStarted is returned by Stop before Start.
	ErrNotStarted = errors.New("engine not started")
)

// Config describes how the engine is launched.
type Config struct {
	Executable string
	Device     int
	OutDir     string
	OutName    string
	Verbose    bool
}

// OutputPath returns the file the engine writes rows to.
func (c Config) OutputPath() string {
	return filepath.Join(c.OutDir, c.OutName+".csv")
}

// Args returns the command line arguments passed to the engine.
func (c Config) Args() []string {
	return []string{
		"-device", strconv.Itoa(c.Device),
		"-out_dir", c.OutDir,
		"-pose",
		"-2Dfp",
		"-of", c.OutName,
	}
}

// Locate walks root and returns the first engine executable found.
func Locate(root string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped, not fatal.
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if name := d.Name(); name == ExecutableName || name == ExecutableNameWindows {
			if d.Type().IsRegular() {
				found = path
				return fs.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search %s: %w", root, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w under %s", ErrNotFound, root)
	}
	return found, nil
}

// Engine is a handle on one run of the face-tracking process.
type Engine struct {
	config Config
	log    logrus.FieldLogger

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

// New creates an engine handle. The process is not started until Start.
func New(config Config, log logrus.FieldLogger) *Engine {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Engine{config: config, log: log}
}

// OutputPath returns the file this engine writes to.
func (e *Engine) OutputPath() string {
	return e.config.OutputPath()
}

// Start removes any stale output file and launches the engine.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd != nil {
		return fmt.Errorf("engine already started")
	}

	out := e.config.OutputPath()
	if err := os.Remove(out); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale output %s: %w", out, err)
	}

	cmd := exec.Command(e.config.Executable, e.config.Args()...)
	// Leaving Stdin nil connects it to the null device.
	if e.config.Verbose {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", e.config.Executable, err)
	}

	e.cmd = cmd
	e.done = make(chan struct{})
	e.log.WithFields(logrus.Fields{
		"pid":    cmd.Process.Pid,
		"output": out,
	}).Info("engine started")

	go e.wait(cmd, e.done)
	return nil
}

func (e *Engine) wait(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	e.mu.Lock()
	e.waitErr = err
	e.mu.Unlock()

	if err != nil {
		e.log.WithError(err).Debug("engine exited")
	} else {
		e.log.Info("engine exited")
	}
	close(done)
}

// Running reports whether the engine process is still alive.
func (e *Engine) Running() bool {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Done is closed when the process exits. It is nil before Start.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Err returns the process exit error once it has exited.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waitErr
}

// Stop kills the process and waits for it to exit. Stopping an engine that has
// already exited is not an error.
func (e *Engine) Stop() error {
	e.mu.Lock()
	cmd, done := e.cmd, e.done
	e.mu.Unlock()

	if cmd == nil {
		return ErrNotStarted
	}

	select {
	case <-done:
		return nil
	default:
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill engine: %w", err)
	}
	<-done
	return nil
}

// WaitForOutput polls until path exists. It gives up with ErrNoOutput after
// timeout, or with the context error when ctx is cancelled.
func WaitForOutput(ctx context.Context, clock timeutil.Clock, path string, interval, timeout time.Duration) error {
	start := clock.Now()
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if timeout > 0 && clock.Since(start) >= timeout {
			return fmt.Errorf("%w after %v: %s", ErrNoOutput, timeout, path)
		}
		clock.Sleep(interval)
	}
}
