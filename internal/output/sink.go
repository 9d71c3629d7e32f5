package output

import (
	"fmt"
	"io"
	"os"

	"github.com/seulgie/asteroid-data-processor/internal/logger"
)

// stdout is the destination for writers without a path. Tests replace it
// to capture output.
var stdout io.Writer = os.Stdout

// sink abstracts where serialized bytes go. File sinks stage bytes in a
// temporary file that is renamed into place on Commit and removed on
// Abort; the stdout sink commits trivially.
type sink interface {
	io.Writer
	Commit() error
	Abort()
}

// openSink opens the destination for an output path. An empty path
// means stdout.
func openSink(path string) (sink, error) {
	if path == "" {
		return stdoutSink{w: stdout}, nil
	}
	return newFileSink(path)
}

// stdoutSink writes directly to standard output.
type stdoutSink struct {
	w io.Writer
}

func (s stdoutSink) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s stdoutSink) Commit() error               { return nil }
func (s stdoutSink) Abort()                      {}

// fileSink stages output in <path>.tmp and renames it over the target
// path on Commit. A failed write never leaves a partial file at the
// target path.
type fileSink struct {
	f        *os.File
	path     string
	tempPath string
}

func newFileSink(path string) (*fileSink, error) {
	tempPath := path + ".tmp"

	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}

	return &fileSink{
		f:        f,
		path:     path,
		tempPath: tempPath,
	}, nil
}

func (s *fileSink) Write(p []byte) (int, error) {
	return s.f.Write(p)
}

// Commit closes the staged file and renames it over the target path.
func (s *fileSink) Commit() error {
	if err := s.f.Close(); err != nil {
		s.remove()
		return fmt.Errorf("closing output file: %w", err)
	}

	if err := os.Rename(s.tempPath, s.path); err != nil {
		// Clean up the temp file if rename failed
		s.remove()
		return fmt.Errorf("replacing output file: %w", err)
	}

	return nil
}

// Abort discards the staged file.
func (s *fileSink) Abort() {
	if err := s.f.Close(); err != nil {
		logger.Warn("failed to close staged output", "path", s.tempPath, "error", err.Error())
	}
	s.remove()
}

func (s *fileSink) remove() {
	if err := os.Remove(s.tempPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove staged output", "path", s.tempPath, "error", err.Error())
	}
}
