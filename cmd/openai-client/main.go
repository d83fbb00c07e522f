// Package main provides the openai-client binary entry point.
// It sends one request to the OpenAI API, with credentials and parameters
// gathered from flags, the environment and well-known files, and prints the
// response as pretty JSON or as the data lines of an event stream.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/openai-client/config"
	"github.com/c360studio/openai-client/fields"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "openai-client"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var verbose bool
	cmd := rootCmd(stdout, stderr, &verbose)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		printError(stderr, err, verbose)
		return 1
	}
	return 0
}

func rootCmd(stdout, stderr io.Writer, verbose *bool) *cobra.Command {
	var (
		configPath string
		in         fields.Inputs
	)

	cmd := &cobra.Command{
		Use:   appName + " [flags] PATH",
		Short: "Send one request to the OpenAI API",
		Long: `openai-client sends a single request to the OpenAI API and prints the response.

The API key is read from --key-file, $OPENAI_API_KEY or the first of
openai.env, .openai_profile, .env (in the working directory, then in the
home directory) that contains one. The organization ID is looked up the same
way, plus --org-file and $OPENAI_ORG_KEY, and is omitted when none is found.

Request parameters are read from --parameter-file or a default file such as
openai.json. Without --method the request is a POST when parameters were
found and a GET otherwise.

JSON responses are pretty-printed; event streams are written one data line
at a time until [DONE].`,
		Example: `  openai-client models
  openai-client -p chat.json chat/completions
  openai-client -o reply.json -p chat.json https://api.openai.com/v1/chat/completions`,
		Args:          cobra.ExactArgs(1),
		Version:       fmt.Sprintf("%s (build: %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Path = args[0]
			logger := newLogger(stderr, *verbose)
			slog.SetDefault(logger)

			cfg, err := config.NewLoader(logger).Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			sys := fields.OSSystem()
			sys.Stdout = stdout
			return NewApp(cfg, sys, logger).Run(cmd.Context(), in)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.Flags().StringVarP(&in.KeyFile, "key-file", "k", "", "File containing the API key")
	cmd.Flags().StringVarP(&in.Method, "method", "m", "", "HTTP method (default POST with parameters, GET without)")
	cmd.Flags().StringVarP(&in.OrgFile, "org-file", "g", "", "File containing the organization ID")
	cmd.Flags().StringVarP(&in.OutputFile, "output-file", "o", "", "File to write the response to (default stdout)")
	cmd.Flags().StringVarP(&in.ParameterFile, "parameter-file", "p", "", "JSON file holding the request parameters")
	cmd.Flags().BoolVarP(verbose, "verbose", "v", false, "Log every resolution step with source locations")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	return cmd
}

// newLogger logs to w. Only warnings and errors are shown unless verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelWarn,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}
	if verbose {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
