package cascade

import (
	"fmt"
)

// ReadFileFunc reads a whole file, like os.ReadFile.
type ReadFileFunc func(name string) ([]byte, error)

// LookupEnvFunc looks up an environment variable, like os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// File reads the file at path. An empty path is unavailable.
func File(read ReadFileFunc, path string) Source {
	return Source{
		Label: fmt.Sprintf("file %q", path),
		Fetch: func() (string, error) {
			if path == "" {
				return "", fmt.Errorf("file path not provided: %w", ErrUnavailable)
			}
			data, err := read(path)
			if err != nil {
				return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
			}
			return string(data), nil
		},
	}
}

// Env reads the environment variable name. An unset variable is unavailable.
func Env(lookup LookupEnvFunc, name string) Source {
	return Source{
		Label: fmt.Sprintf("variable `%s`", name),
		Fetch: func() (string, error) {
			v, ok := lookup(name)
			if !ok {
				return "", fmt.Errorf("variable %s not set: %w", name, ErrUnavailable)
			}
			return v, nil
		},
	}
}

// Literal offers a value that was already parsed, such as a command-line
// argument. An empty value is unavailable.
func Literal(label, value string) Source {
	return Source{
		Label: label,
		Fetch: func() (string, error) {
			if value == "" {
				return "", fmt.Errorf("%s not provided: %w", label, ErrUnavailable)
			}
			return value, nil
		},
	}
}
