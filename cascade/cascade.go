// Package cascade resolves a value from an ordered list of candidate sources.
//
// Sources are tried strictly in order. A source that cannot produce text or
// whose text fails validation is recorded and skipped; the first validated
// value wins and later sources are never consulted. When every source is
// exhausted the field either falls back to a default, resolves as absent, or
// fails with an *ExhaustedError.
package cascade

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrUnavailable reports that a source had nothing to offer: a path or value
// that was not provided, a missing file, an unset variable.
var ErrUnavailable = errors.New("source unavailable")

// ErrExhausted is matched by every *ExhaustedError.
var ErrExhausted = errors.New("all sources exhausted")

// Validator turns raw source text into a value or rejects it.
type Validator[T any] func(text string) (T, error)

// Source produces raw candidate text and names where it came from.
type Source struct {
	Label string
	Fetch func() (string, error)
}

// Resolved is a field value tagged with its provenance.
// Present is false only for an optional field whose sources were exhausted.
type Resolved[T any] struct {
	Value   T
	Source  string
	Present bool
}

// Attempt records why a source did not produce the field.
type Attempt struct {
	Source string
	Err    error
}

// ExhaustedError is returned when no source yields a valid value.
type ExhaustedError struct {
	Field    string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	return "Failed to fetch the " + e.Field
}

// Unwrap lets errors.Is match ErrExhausted.
func (e *ExhaustedError) Unwrap() error {
	return ErrExhausted
}

// Detail lists the recorded attempts, one per line.
func (e *ExhaustedError) Detail() string {
	var b strings.Builder
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "%s: %v\n", a.Source, a.Err)
	}
	return b.String()
}

// Field describes how one value is resolved.
type Field[T any] struct {
	// Name is used in diagnostics, e.g. "API key".
	Name     string
	Sources  []Source
	Validate Validator[T]

	// Optional fields resolve as absent instead of failing.
	Optional bool

	// Fallback, when set, supplies the value once every source is exhausted.
	// It takes precedence over Optional.
	Fallback func() Resolved[T]
}

// Resolve walks the sources in order and returns the first validated value.
func (f Field[T]) Resolve(logger *slog.Logger) (Resolved[T], error) {
	if logger == nil {
		logger = slog.Default()
	}

	var attempts []Attempt
	for _, src := range f.Sources {
		text, err := src.Fetch()
		if err != nil {
			logger.Debug("Failed to obtain field from source",
				"field", f.Name, "source", src.Label, "error", err)
			attempts = append(attempts, Attempt{Source: src.Label, Err: err})
			continue
		}

		v, err := f.Validate(text)
		if err != nil {
			logger.Debug("Rejected field value from source",
				"field", f.Name, "source", src.Label, "error", err)
			attempts = append(attempts, Attempt{Source: src.Label, Err: err})
			continue
		}

		logger.Debug("Resolved field", "field", f.Name, "source", src.Label)
		return Resolved[T]{Value: v, Source: src.Label, Present: true}, nil
	}

	if f.Fallback != nil {
		r := f.Fallback()
		r.Present = true
		logger.Debug("Resolved field from fallback", "field", f.Name, "source", r.Source)
		return r, nil
	}

	if f.Optional {
		logger.Info("Ignored field for not being fetched successfully", "field", f.Name)
		return Resolved[T]{}, nil
	}

	return Resolved[T]{}, &ExhaustedError{Field: f.Name, Attempts: attempts}
}
