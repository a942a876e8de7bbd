package core

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// CredentialScope selects which dotenv file a credential operation targets.
type CredentialScope int

const (
	// ScopeLocal targets ./.env in the working directory.
	ScopeLocal CredentialScope = iota
	// ScopeGlobal targets the platform config directory dotenv.
	ScopeGlobal
)

// CredentialPath returns the dotenv path for a scope.
func CredentialPath(scope CredentialScope) (string, error) {
	if scope == ScopeGlobal {
		return GlobalEnvPath()
	}
	return LocalEnvPath, nil
}

// ReadCredential returns the API key stored in the scoped dotenv file.
// A missing file or missing key yields an empty string without error.
func ReadCredential(scope CredentialScope) (string, error) {
	path, err := CredentialPath(scope)
	if err != nil {
		return "", err
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", newConfigError("cannot read "+path, err)
	}
	return values[EnvAPIKey], nil
}

// WriteCredential stores the API key in the scoped dotenv file, preserving
// any other keys already present. Parent directories are created for the
// global scope.
func WriteCredential(scope CredentialScope, apiKey string) error {
	path, err := CredentialPath(scope)
	if err != nil {
		return err
	}

	if scope == ScopeGlobal {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return newConfigError("cannot create config directory for "+path, err)
		}
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return newConfigError("cannot read "+path, err)
		}
		values = map[string]string{}
	}
	values[EnvAPIKey] = apiKey

	if err := godotenv.Write(values, path); err != nil {
		return newConfigError("cannot write "+path, err)
	}
	return nil
}

// ResolveCredential finds the first API key across the standard layers:
// environment, local dotenv, then global dotenv when the gate is truthy
// (the gate is read from the environment, then the local dotenv).
// It returns the key and the layer that supplied it ("env", "local",
// "global"), or empty strings when no layer defines one.
func ResolveCredential() (apiKey, layer string, err error) {
	if v := os.Getenv(EnvAPIKey); v != "" {
		return v, "env", nil
	}

	if v, readErr := ReadCredential(ScopeLocal); readErr != nil {
		return "", "", readErr
	} else if v != "" {
		return v, "local", nil
	}

	if gate, ok := lookup([]Source{EnvSource(), DotenvSource(LocalEnvPath)}, EnvUseGlobalConfig); ok && truthy(gate) {
		v, readErr := ReadCredential(ScopeGlobal)
		if readErr != nil {
			return "", "", readErr
		}
		if v != "" {
			return v, "global", nil
		}
	}
	return "", "", nil
}
