package fields

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/openai-client/cascade"
)

// System is the filesystem and environment access used while resolving.
type System struct {
	ReadFile  cascade.ReadFileFunc
	LookupEnv cascade.LookupEnvFunc
	HomeDir   func() (string, error)
	// Glob expands a file pattern into matching paths.
	Glob func(pattern string) ([]string, error)
	// Stdout receives output when no output file can be used.
	Stdout io.Writer
}

// OSSystem returns a System backed by the operating system.
func OSSystem() System {
	return System{
		ReadFile:  os.ReadFile,
		LookupEnv: os.LookupEnv,
		HomeDir:   os.UserHomeDir,
		Glob: func(pattern string) ([]string, error) {
			return doublestar.FilepathGlob(pattern)
		},
		Stdout: os.Stdout,
	}
}

// withDefaults fills unset members from OSSystem.
func (s System) withDefaults() System {
	d := OSSystem()
	if s.ReadFile == nil {
		s.ReadFile = d.ReadFile
	}
	if s.LookupEnv == nil {
		s.LookupEnv = d.LookupEnv
	}
	if s.HomeDir == nil {
		s.HomeDir = d.HomeDir
	}
	if s.Glob == nil {
		s.Glob = d.Glob
	}
	if s.Stdout == nil {
		s.Stdout = d.Stdout
	}
	return s
}

// expandPaths turns configured file entries into concrete paths: a leading
// ~/ becomes the home directory and glob patterns become their sorted matches.
// Entries that cannot be expanded are kept literally so their failure shows
// up as an unavailable source.
func (s System) expandPaths(entries []string) []string {
	var out []string
	for _, entry := range entries {
		p := s.expandHome(entry)
		if !hasMeta(p) {
			out = append(out, p)
			continue
		}
		matches, err := s.Glob(p)
		if err != nil || len(matches) == 0 {
			out = append(out, p)
			continue
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out
}

func (s System) expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := s.HomeDir()
	if err != nil || home == "" {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
