package config

import "strings"

const legacyFormatWarning = "legacy settingsV3.ini format is deprecated; migrate to JSONC"

// Parse reads configuration content as JSONC (preferred) or legacy INI format,
// then applies MARKERMATIC_* environment overrides and validates the result.
//
// JSONC is selected when the first non-whitespace character is `{`.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return finalize(base, nil)
	}

	if strings.HasPrefix(trimmed, "{") {
		cfg, warnings, err := parseJSONC(content, base)
		if err != nil {
			return Config{}, nil, err
		}
		return finalize(cfg, warnings)
	}

	cfg, warnings, err := parseLegacy(content, base)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append([]Warning{{Message: legacyFormatWarning}}, warnings...)
	return finalize(cfg, warnings)
}

func finalize(cfg Config, warnings []Warning) (Config, []Warning, error) {
	if err := applyEnv(&cfg); err != nil {
		return Config{}, nil, err
	}
	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validatedWarnings...), nil
}
