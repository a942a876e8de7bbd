package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdirTemp moves the test into an empty temp dir so a developer's own .env
// never leaks into resolution.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testChdir(t, dir)
	return dir
}

// testChdir changes the working directory to dir and restores the previous
// working directory when the test completes. Equivalent to testing.T.Chdir,
// which is unavailable on this toolchain.
func testChdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(old)
	})
}

// clearVeniceEnv unsets every recognized key for the duration of the test.
func clearVeniceEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvAPIKey, EnvBaseURL, EnvTimeout, EnvMaxRetries,
		EnvRetryBackoffFactor, EnvRetryStatusCodes,
		EnvPoolConnections, EnvPoolMaxSize, EnvUseGlobalConfig,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	chdirTemp(t)
	clearVeniceEnv(t)
	t.Setenv(EnvAPIKey, "test-key")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if got := cfg.APIKey.Expose(); got != "test-key" {
		t.Errorf("APIKey = %q, want %q", got, "test-key")
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RetryBackoffFactor != 500*time.Millisecond {
		t.Errorf("RetryBackoffFactor = %v, want 500ms", cfg.RetryBackoffFactor)
	}
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !cfg.RetryStatusCodes[code] {
			t.Errorf("RetryStatusCodes missing %d", code)
		}
	}
	if cfg.PoolConnections != 10 || cfg.PoolMaxSize != 20 {
		t.Errorf("pool = (%d, %d), want (10, 20)", cfg.PoolConnections, cfg.PoolMaxSize)
	}
}

func TestLoadConfigMissingAPIKey(t *testing.T) {
	chdirTemp(t)
	clearVeniceEnv(t)

	_, err := LoadConfig()
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("LoadConfig() error = %v, want ErrConfig", err)
	}
}

// Precedence: explicit > environment > local dotenv > global dotenv.
func TestLoadConfigPrecedence(t *testing.T) {
	dir := chdirTemp(t)
	clearVeniceEnv(t)

	globalHome := filepath.Join(dir, "xdg")
	t.Setenv("XDG_CONFIG_HOME", globalHome)
	writeFile(t, filepath.Join(globalHome, "venice", ".env"), "VENICE_API_KEY=G\n")
	writeFile(t, filepath.Join(dir, ".env"), "VENICE_API_KEY=L\n")
	t.Setenv(EnvAPIKey, "E")
	t.Setenv(EnvUseGlobalConfig, "1")

	t.Run("explicit wins", func(t *testing.T) {
		cfg, err := LoadConfig(WithAPIKey("X"))
		if err != nil {
			t.Fatal(err)
		}
		if got := cfg.APIKey.Expose(); got != "X" {
			t.Errorf("APIKey = %q, want X", got)
		}
	})

	t.Run("environment beats files", func(t *testing.T) {
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatal(err)
		}
		if got := cfg.APIKey.Expose(); got != "E" {
			t.Errorf("APIKey = %q, want E", got)
		}
	})

	t.Run("local dotenv beats global", func(t *testing.T) {
		os.Unsetenv(EnvAPIKey)
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatal(err)
		}
		if got := cfg.APIKey.Expose(); got != "L" {
			t.Errorf("APIKey = %q, want L", got)
		}
	})

	t.Run("global is last resort", func(t *testing.T) {
		os.Unsetenv(EnvAPIKey)
		if err := os.Remove(filepath.Join(dir, ".env")); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatal(err)
		}
		if got := cfg.APIKey.Expose(); got != "G" {
			t.Errorf("APIKey = %q, want G", got)
		}
	})

	t.Run("global invisible when gate unset", func(t *testing.T) {
		os.Unsetenv(EnvAPIKey)
		os.Unsetenv(EnvUseGlobalConfig)
		_, err := LoadConfig()
		if !errors.Is(err, ErrConfig) {
			t.Fatalf("LoadConfig() error = %v, want ErrConfig", err)
		}
	})
}

func TestGlobalConfigGateLiterals(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"YES", true},
		{"0", false},
		{"false", false},
		{"True", false},
		{"on", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run("value "+tt.value, func(t *testing.T) {
			if got := truthy(tt.value); got != tt.want {
				t.Errorf("truthy(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

// The gate may also come from the local dotenv, not just the environment.
func TestGlobalConfigGateFromLocalDotenv(t *testing.T) {
	dir := chdirTemp(t)
	clearVeniceEnv(t)

	globalHome := filepath.Join(dir, "xdg")
	t.Setenv("XDG_CONFIG_HOME", globalHome)
	writeFile(t, filepath.Join(globalHome, "venice", ".env"), "VENICE_API_KEY=G\n")
	writeFile(t, filepath.Join(dir, ".env"), "VENICE_USE_GLOBAL_CONFIG=yes\n")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.APIKey.Expose(); got != "G" {
		t.Errorf("APIKey = %q, want G", got)
	}
	if !cfg.UseGlobalConfig {
		t.Error("UseGlobalConfig = false, want true")
	}
}

func TestResolveConfigCoercion(t *testing.T) {
	base := map[string]string{EnvAPIKey: "k"}

	tests := []struct {
		name    string
		extra   map[string]string
		check   func(t *testing.T, cfg Config)
		wantErr bool
	}{
		{
			name:  "timeout seconds",
			extra: map[string]string{EnvTimeout: "12"},
			check: func(t *testing.T, cfg Config) {
				if cfg.Timeout != 12*time.Second {
					t.Errorf("Timeout = %v, want 12s", cfg.Timeout)
				}
			},
		},
		{
			name:  "fractional backoff",
			extra: map[string]string{EnvRetryBackoffFactor: "0.25"},
			check: func(t *testing.T, cfg Config) {
				if cfg.RetryBackoffFactor != 250*time.Millisecond {
					t.Errorf("RetryBackoffFactor = %v, want 250ms", cfg.RetryBackoffFactor)
				}
			},
		},
		{
			name:  "status code list",
			extra: map[string]string{EnvRetryStatusCodes: "500, 503"},
			check: func(t *testing.T, cfg Config) {
				if !cfg.RetryStatusCodes[500] || !cfg.RetryStatusCodes[503] {
					t.Errorf("RetryStatusCodes = %v, want {500,503}", cfg.RetryStatusCodes)
				}
				if cfg.RetryStatusCodes[429] {
					t.Error("default codes should be replaced, found 429")
				}
			},
		},
		{
			name:    "bad integer",
			extra:   map[string]string{EnvMaxRetries: "many"},
			wantErr: true,
		},
		{
			name:    "negative retries",
			extra:   map[string]string{EnvMaxRetries: "-1"},
			wantErr: true,
		},
		{
			name:    "bad status code",
			extra:   map[string]string{EnvRetryStatusCodes: "500,nope"},
			wantErr: true,
		},
		{
			name:    "bad base URL scheme",
			extra:   map[string]string{EnvBaseURL: "ftp://api.venice.ai"},
			wantErr: true,
		},
		{
			name:    "base URL without host",
			extra:   map[string]string{EnvBaseURL: "https://"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := MapSource{}
			for k, v := range base {
				src[k] = v
			}
			for k, v := range tt.extra {
				src[k] = v
			}

			cfg, err := ResolveConfig(src)
			if tt.wantErr {
				if !errors.Is(err, ErrConfig) {
					t.Fatalf("ResolveConfig() error = %v, want ErrConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveConfig() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestDotenvSourceParsing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, "# comment\n\nVENICE_API_KEY=first\nVENICE_API_KEY=second\nVENICE_TIMEOUT=9\n")

	src := DotenvSource(path)
	if v, ok := src.Lookup(EnvAPIKey); !ok || v != "second" {
		t.Errorf("Lookup(api key) = (%q, %v), want later key to win", v, ok)
	}
	if v, ok := src.Lookup(EnvTimeout); !ok || v != "9" {
		t.Errorf("Lookup(timeout) = (%q, %v), want 9", v, ok)
	}
	if _, ok := src.Lookup(EnvBaseURL); ok {
		t.Error("Lookup(base url) found a value in a file that has none")
	}
}

func TestDotenvSourceMissingFile(t *testing.T) {
	src := DotenvSource(filepath.Join(t.TempDir(), "no-such.env"))
	if _, ok := src.Lookup(EnvAPIKey); ok {
		t.Error("missing file should be an empty source")
	}
}
