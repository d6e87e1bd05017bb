package config

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// parseLegacy imports the [main] section of a settingsV3.ini file.
// Keys outside [main] and unknown keys produce warnings, never errors.
func parseLegacy(content string, base Config) (Config, []Warning, error) {
	cfg := base
	warnings := make([]Warning, 0)

	section := ""
	dawPortsSet := false
	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return Config{}, nil, fmt.Errorf("line %d: malformed section header %q", lineNo, line)
			}
			section = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			continue
		}

		key, value, ok := cutKeyValue(line)
		if !ok {
			return Config{}, nil, fmt.Errorf("line %d: expected key = value", lineNo)
		}
		if section != "main" {
			warnings = append(warnings, Warning{Line: lineNo, Message: fmt.Sprintf("ignoring key %q outside [main]", key)})
			continue
		}

		var err error
		switch key {
		case "default_ip":
			cfg.Console.IP = value
		case "repeater_ip":
			cfg.Repeater.IP = value
		case "console_type":
			cfg.Console.Type = value
		case "daw_type":
			cfg.DAW.Type = value
		case "default_digico_send_port":
			cfg.Console.SendPort, err = legacyInt(value)
		case "default_digico_receive_port":
			cfg.Console.ReceivePort, err = legacyInt(value)
		case "default_reaper_send_port":
			cfg.DAW.SendPort, err = legacyInt(value)
			dawPortsSet = true
		case "default_reaper_receive_port":
			cfg.DAW.ReceivePort, err = legacyInt(value)
			dawPortsSet = true
		case "default_repeater_send_port":
			cfg.Repeater.SendPort, err = legacyInt(value)
		case "default_repeater_receive_port":
			cfg.Repeater.ReceivePort, err = legacyInt(value)
		case "forwarder_enabled":
			cfg.Repeater.Enabled, err = legacyBool(value)
		case "name_only_match":
			cfg.NameOnlyMatch, err = legacyBool(value)
		case "window_pos_x", "window_pos_y", "window_size_x", "window_size_y", "always_on_top":
		default:
			warnings = append(warnings, Warning{Line: lineNo, Message: fmt.Sprintf("unknown key %q", key)})
		}
		if err != nil {
			return Config{}, nil, fmt.Errorf("line %d: %s: %w", lineNo, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, nil, fmt.Errorf("scan legacy config: %w", err)
	}

	if !dawPortsSet && cfg.DAW.Type != base.DAW.Type {
		cfg.DAW.SendPort, cfg.DAW.ReceivePort = DAWPortDefaults(cfg.DAW.Type)
	}

	return cfg, warnings, nil
}

func cutKeyValue(line string) (string, string, bool) {
	idx := strings.IndexAny(line, "=:")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.ToLower(strings.TrimSpace(line[:idx]))
	value := strings.TrimSpace(line[idx+1:])
	return key, value, key != ""
}

func legacyInt(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", value)
	}
	return n, nil
}

// legacyBool accepts the spellings Python's ConfigParser.getboolean accepts.
func legacyBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "1", "yes", "true", "on":
		return true, nil
	case "0", "no", "false", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", value)
	}
}
