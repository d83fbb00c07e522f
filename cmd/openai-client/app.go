package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/c360studio/openai-client/cascade"
	"github.com/c360studio/openai-client/config"
	"github.com/c360studio/openai-client/fields"
	"github.com/c360studio/openai-client/openai"
	"github.com/c360studio/openai-client/output"
)

// App wires field resolution to the request pipeline.
type App struct {
	cfg    *config.Config
	sys    fields.System
	logger *slog.Logger
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, sys fields.System, logger *slog.Logger) *App {
	return &App{cfg: cfg, sys: sys, logger: logger}
}

// Run resolves the fields, sends the request and writes the response.
func (a *App) Run(ctx context.Context, in fields.Inputs) error {
	resolver := fields.NewResolver(a.cfg, fields.WithSystem(a.sys), fields.WithLogger(a.logger))

	f, err := resolver.Resolve(in)
	if err != nil {
		return err
	}

	req, err := openai.NewRequest(a.cfg.API.BaseURL, f.Method.Value, f.Path.Value, f.Parameter.Value)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	client := openai.NewClient(f.Key.Value, f.Organization.Value,
		openai.WithTimeout(a.cfg.API.Timeout),
		openai.WithLogger(a.logger))

	resp, err := client.Send(ctx, req)
	if err != nil {
		return err
	}

	if err := openai.ResolveResponse(resp, f.Output.Value, a.logger); err != nil {
		return err
	}

	a.logger.Info("Wrote the API response", "output", output.Describe(f.Output.Value))
	return nil
}

// printError writes err to w one cause per line, innermost first.
func printError(w io.Writer, err error, verbose bool) {
	lines := errorChain(err, verbose)
	for i, line := range lines {
		if i == 0 {
			fmt.Fprintf(w, "Error: %s\n", line)
			continue
		}
		fmt.Fprintf(w, "  %s\n", line)
	}
}

// errorChain flattens err into its messages, innermost first. Each wrapper
// contributes only the text it added. A *ResponseError contributes its
// layers and an *ExhaustedError its attempts when verbose.
func errorChain(err error, verbose bool) []string {
	var outer []string

	for err != nil {
		switch e := err.(type) {
		case *openai.ResponseError:
			layers := e.Layers()
			for i := len(layers) - 1; i >= 0; i-- {
				if layers[i] != "" {
					outer = append(outer, layers[i])
				}
			}
			return reversed(outer)
		case *cascade.ExhaustedError:
			outer = append(outer, e.Error())
			if verbose {
				attempts := strings.Split(strings.TrimSuffix(e.Detail(), "\n"), "\n")
				for i := len(attempts) - 1; i >= 0; i-- {
					if attempts[i] != "" {
						outer = append(outer, attempts[i])
					}
				}
			}
			return reversed(outer)
		}

		msg := err.Error()
		next := errors.Unwrap(err)
		if next != nil {
			msg = strings.TrimSuffix(msg, ": "+next.Error())
		}
		outer = append(outer, msg)
		err = next
	}

	return reversed(outer)
}

func reversed(s []string) []string {
	out := make([]string, 0, len(s))
	for i := len(s) - 1; i >= 0; i-- {
		out = append(out, s[i])
	}
	return out
}
