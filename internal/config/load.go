package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	base := Default()
	var pathWarnings []Warning
	if strings.TrimSpace(explicitPath) == "" {
		if legacy, ok := legacyFallback(resolvedPath); ok {
			pathWarnings = append(pathWarnings, Warning{
				Message: fmt.Sprintf("using legacy config path %q; move settings to %q", legacy, resolvedPath),
			})
			resolvedPath = legacy
		}
	}

	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg, warnings, finalizeErr := finalize(base, []Warning{{
				Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
			}})
			if finalizeErr != nil {
				return Loaded{}, finalizeErr
			}
			return Loaded{
				Path:     resolvedPath,
				Config:   cfg,
				Warnings: warnings,
				Exists:   false,
			}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	cfg, warnings, err := Parse(string(content), base)
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: append(pathWarnings, warnings...),
		Exists:   true,
	}, nil
}
