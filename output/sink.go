// Package output provides the destinations a response is written to.
package output

import (
	"fmt"
	"io"
	"os"
)

// Sink receives response output.
type Sink interface {
	io.Writer

	// IsFile reports whether output goes to a file rather than stdout.
	IsFile() bool
}

// Describe returns the phrase used in logs for the sink's destination.
func Describe(s Sink) string {
	if s.IsFile() {
		return "the file"
	}
	return "stdout"
}

// FileSink writes to a file. The file is created (or truncated) once by
// NewFileSink; every Write then opens it for appending and closes it again
// before returning, so no handle outlives a single write.
type FileSink struct {
	path string
}

// NewFileSink creates or truncates the file at path and returns a sink for it.
// It fails when the file cannot be created or written.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close output file: %w", err)
	}
	return &FileSink{path: path}, nil
}

// Path returns the file path of the sink.
func (s *FileSink) Path() string { return s.path }

// IsFile implements Sink.
func (s *FileSink) IsFile() bool { return true }

// Write appends p to the file.
func (s *FileSink) Write(p []byte) (n int, err error) {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return 0, fmt.Errorf("open output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}()
	return f.Write(p)
}

// StdoutSink writes to the process's standard output, or to W when set.
type StdoutSink struct {
	W io.Writer
}

// IsFile implements Sink.
func (s StdoutSink) IsFile() bool { return false }

// Write implements io.Writer.
func (s StdoutSink) Write(p []byte) (int, error) {
	if s.W != nil {
		return s.W.Write(p)
	}
	return os.Stdout.Write(p)
}
