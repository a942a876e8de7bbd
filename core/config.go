package core

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Environment keys recognized by the resolver. The same keys are honored in
// dotenv files.
const (
	EnvAPIKey             = "VENICE_API_KEY"
	EnvBaseURL            = "VENICE_BASE_URL"
	EnvTimeout            = "VENICE_TIMEOUT"
	EnvMaxRetries         = "VENICE_MAX_RETRIES"
	EnvRetryBackoffFactor = "VENICE_RETRY_BACKOFF_FACTOR"
	EnvRetryStatusCodes   = "VENICE_RETRY_STATUS_CODES"
	EnvPoolConnections    = "VENICE_POOL_CONNECTIONS"
	EnvPoolMaxSize        = "VENICE_POOL_MAXSIZE"
	EnvUseGlobalConfig    = "VENICE_USE_GLOBAL_CONFIG"
)

// Defaults applied when no source defines a value.
const (
	DefaultBaseURL          = "https://api.venice.ai/api/v1"
	DefaultTimeout          = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultBackoffFactor    = 500 * time.Millisecond
	DefaultPoolConnections  = 10
	DefaultPoolMaxSize      = 20
	DefaultMetricsRetention = 10000
)

// DefaultRetryStatusCodes returns the status codes retried by default.
func DefaultRetryStatusCodes() map[int]bool {
	return map[int]bool{408: true, 429: true, 500: true, 502: true, 503: true, 504: true}
}

// Config holds the resolved transport configuration. It is immutable after
// construction; build one with LoadConfig or ResolveConfig.
type Config struct {
	// APIKey authenticates every request. Required.
	APIKey Secret

	// BaseURL is the API root all paths resolve against.
	BaseURL string

	// Timeout bounds each request, including streaming lifetimes.
	Timeout time.Duration

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// RetryBackoffFactor scales the exponential inter-attempt delay.
	RetryBackoffFactor time.Duration

	// RetryStatusCodes are the HTTP statuses that trigger a retry.
	RetryStatusCodes map[int]bool

	// PoolConnections sizes the per-host idle connection pool.
	PoolConnections int

	// PoolMaxSize caps idle connections across all hosts.
	PoolMaxSize int

	// UseGlobalConfig records whether the global dotenv layer was consulted.
	UseGlobalConfig bool

	// MetricsRetention bounds the rate-limit event buffer.
	MetricsRetention int
}

// Override supplies an explicit value to LoadConfig. Explicit values take
// precedence over every file and environment layer.
type Override func(MapSource)

// WithAPIKey sets the API key explicitly.
func WithAPIKey(key string) Override {
	return func(m MapSource) { m[EnvAPIKey] = key }
}

// WithBaseURL sets the API base URL explicitly.
func WithBaseURL(u string) Override {
	return func(m MapSource) { m[EnvBaseURL] = u }
}

// WithTimeout sets the request timeout explicitly.
func WithTimeout(d time.Duration) Override {
	return func(m MapSource) { m[EnvTimeout] = strconv.FormatFloat(d.Seconds(), 'f', -1, 64) }
}

// WithMaxRetries sets the retry count explicitly.
func WithMaxRetries(n int) Override {
	return func(m MapSource) { m[EnvMaxRetries] = strconv.Itoa(n) }
}

// WithRetryBackoffFactor sets the backoff coefficient explicitly.
func WithRetryBackoffFactor(d time.Duration) Override {
	return func(m MapSource) {
		m[EnvRetryBackoffFactor] = strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
	}
}

// WithRetryStatusCodes sets the retryable status codes explicitly.
func WithRetryStatusCodes(codes ...int) Override {
	return func(m MapSource) {
		parts := make([]string, len(codes))
		for i, c := range codes {
			parts[i] = strconv.Itoa(c)
		}
		m[EnvRetryStatusCodes] = strings.Join(parts, ",")
	}
}

// WithPoolConnections sets the per-host pool size explicitly.
func WithPoolConnections(n int) Override {
	return func(m MapSource) { m[EnvPoolConnections] = strconv.Itoa(n) }
}

// WithPoolMaxSize sets the total pool cap explicitly.
func WithPoolMaxSize(n int) Override {
	return func(m MapSource) { m[EnvPoolMaxSize] = strconv.Itoa(n) }
}

// WithUseGlobalConfig forces the global dotenv layer on or off.
func WithUseGlobalConfig(on bool) Override {
	return func(m MapSource) {
		if on {
			m[EnvUseGlobalConfig] = "1"
		} else {
			m[EnvUseGlobalConfig] = "0"
		}
	}
}

// truthy reports whether v is a recognized truthy literal for the global
// config gate.
func truthy(v string) bool {
	switch v {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	}
	return false
}

// LocalEnvPath is the dotenv file consulted in the working directory.
const LocalEnvPath = ".env"

// GlobalEnvPath returns the platform-specific global dotenv location:
// $XDG_CONFIG_HOME/venice/.env (falling back to ~/.config) on Unix,
// %APPDATA%\venice\.env on Windows. The file need not exist.
func GlobalEnvPath() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", newConfigError("APPDATA is not set", nil)
		}
		return filepath.Join(appData, "venice", ".env"), nil
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", newConfigError("cannot determine home directory", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "venice", ".env"), nil
}

// LoadConfig builds a Config from the standard source chain: explicit
// overrides, then the process environment, then ./.env. When
// VENICE_USE_GLOBAL_CONFIG resolves truthy across those layers, the global
// dotenv under the platform config directory is consulted last.
func LoadConfig(overrides ...Override) (Config, error) {
	explicit := MapSource{}
	for _, o := range overrides {
		o(explicit)
	}

	sources := []Source{explicit, EnvSource(), DotenvSource(LocalEnvPath)}

	useGlobal := false
	if v, ok := lookup(sources, EnvUseGlobalConfig); ok && truthy(v) {
		useGlobal = true
		if path, err := GlobalEnvPath(); err == nil {
			sources = append(sources, DotenvSource(path))
		}
	}

	cfg, err := ResolveConfig(sources...)
	if err != nil {
		return Config{}, err
	}
	cfg.UseGlobalConfig = useGlobal
	return cfg, nil
}

// ResolveConfig merges the given sources in precedence order (first wins)
// and validates the result. It reads files and the environment only through
// the sources it is given and never touches the network.
func ResolveConfig(sources ...Source) (Config, error) {
	cfg := Config{
		BaseURL:            DefaultBaseURL,
		Timeout:            DefaultTimeout,
		MaxRetries:         DefaultMaxRetries,
		RetryBackoffFactor: DefaultBackoffFactor,
		RetryStatusCodes:   DefaultRetryStatusCodes(),
		PoolConnections:    DefaultPoolConnections,
		PoolMaxSize:        DefaultPoolMaxSize,
		MetricsRetention:   DefaultMetricsRetention,
	}

	if v, ok := lookup(sources, EnvAPIKey); ok {
		cfg.APIKey = NewSecret(v)
	}
	if v, ok := lookup(sources, EnvBaseURL); ok {
		cfg.BaseURL = v
	}
	if v, ok := lookup(sources, EnvTimeout); ok {
		d, err := parseSeconds(EnvTimeout, v)
		if err != nil {
			return Config{}, err
		}
		cfg.Timeout = d
	}
	if v, ok := lookup(sources, EnvMaxRetries); ok {
		n, err := parseNonNegativeInt(EnvMaxRetries, v)
		if err != nil {
			return Config{}, err
		}
		cfg.MaxRetries = n
	}
	if v, ok := lookup(sources, EnvRetryBackoffFactor); ok {
		d, err := parseSeconds(EnvRetryBackoffFactor, v)
		if err != nil {
			return Config{}, err
		}
		cfg.RetryBackoffFactor = d
	}
	if v, ok := lookup(sources, EnvRetryStatusCodes); ok {
		codes, err := parseStatusCodes(EnvRetryStatusCodes, v)
		if err != nil {
			return Config{}, err
		}
		cfg.RetryStatusCodes = codes
	}
	if v, ok := lookup(sources, EnvPoolConnections); ok {
		n, err := parseNonNegativeInt(EnvPoolConnections, v)
		if err != nil {
			return Config{}, err
		}
		cfg.PoolConnections = n
	}
	if v, ok := lookup(sources, EnvPoolMaxSize); ok {
		n, err := parseNonNegativeInt(EnvPoolMaxSize, v)
		if err != nil {
			return Config{}, err
		}
		cfg.PoolMaxSize = n
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate enforces the Config invariants: key present, base URL well-formed
// with an http or https scheme, numerics non-negative.
func (c Config) validate() error {
	if c.APIKey.IsEmpty() {
		return newConfigError(
			"no API key provided: set "+EnvAPIKey+" or pass WithAPIKey", nil)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return configValueError(EnvBaseURL, c.BaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return newConfigError(
			fmt.Sprintf("base URL must be http(s) with a host, got %q", c.BaseURL), nil)
	}

	if c.Timeout < 0 || c.RetryBackoffFactor < 0 {
		return newConfigError("timeout and backoff factor must be non-negative", nil)
	}
	if c.MaxRetries < 0 || c.PoolConnections < 0 || c.PoolMaxSize < 0 {
		return newConfigError("retry and pool settings must be non-negative", nil)
	}
	return nil
}

// parseSeconds parses a decimal seconds value into a duration.
func parseSeconds(key, v string) (time.Duration, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return 0, configValueError(key, v, err)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// parseNonNegativeInt parses a non-negative integer value.
func parseNonNegativeInt(key, v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, configValueError(key, v, err)
	}
	return n, nil
}

// parseStatusCodes parses a comma-separated status code list.
func parseStatusCodes(key, v string) (map[int]bool, error) {
	codes := make(map[int]bool)
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 100 || n > 599 {
			return nil, configValueError(key, v, err)
		}
		codes[n] = true
	}
	return codes, nil
}
