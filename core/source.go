package core

import (
	"os"

	"github.com/joho/godotenv"
)

// Source supplies configuration values by key. Sources are consulted in
// order by ResolveConfig; the first source that defines a key wins.
type Source interface {
	// Lookup returns the value for key and whether the source defines it.
	Lookup(key string) (string, bool)
}

// MapSource is an in-memory Source, used for explicit overrides and tests.
type MapSource map[string]string

// Lookup implements Source.
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// envSource reads from the process environment.
type envSource struct{}

// EnvSource returns a Source backed by the process environment.
func EnvSource() Source {
	return envSource{}
}

func (envSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// dotenvSource reads a KEY=VALUE file. A missing file is an empty source,
// not an error; a present but unparseable file fails every lookup silently
// the same way (the resolver treats the key as undefined).
type dotenvSource struct {
	values map[string]string
}

// DotenvSource returns a Source backed by the dotenv file at path. The file
// is read once at construction; '#' comments and blank lines are ignored and
// later keys override earlier ones within the file.
func DotenvSource(path string) Source {
	values, err := godotenv.Read(path)
	if err != nil {
		return dotenvSource{}
	}
	return dotenvSource{values: values}
}

func (s dotenvSource) Lookup(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// lookup walks the source chain and returns the first defined value.
func lookup(sources []Source, key string) (string, bool) {
	for _, src := range sources {
		if v, ok := src.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}
