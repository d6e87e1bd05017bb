package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const legacyFileName = "settingsV3.ini"

// ResolvePath returns the config location: the explicit --config value, then
// $XDG_CONFIG_HOME/markermatic/config.jsonc, then ~/.config/markermatic/config.jsonc.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "markermatic", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "markermatic", "config.jsonc"), nil
}

// legacyFallback returns settingsV3.ini beside the JSONC path when only the
// legacy file exists.
func legacyFallback(jsoncPath string) (string, bool) {
	if _, err := os.Stat(jsoncPath); err == nil {
		return "", false
	}
	legacy := filepath.Join(filepath.Dir(jsoncPath), legacyFileName)
	if _, err := os.Stat(legacy); err != nil {
		return "", false
	}
	return legacy, true
}
