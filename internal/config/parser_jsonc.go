package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Console         *jsoncConsole         `json:"console"`
	DAW             *jsoncDAW             `json:"daw"`
	Repeater        *jsoncRepeater        `json:"repeater"`
	NameOnlyMatch   *bool                 `json:"name_only_match"`
	Mode            *string               `json:"mode"`
	ExternalControl *jsoncExternalControl `json:"external_control"`
	Heartbeat       *jsoncHeartbeat       `json:"heartbeat"`
	ShutdownTimeout *int                  `json:"shutdown_timeout_ms"`
}

type jsoncConsole struct {
	Type        *string `json:"type"`
	IP          *string `json:"ip"`
	SendPort    *int    `json:"send_port"`
	ReceivePort *int    `json:"receive_port"`
}

type jsoncDAW struct {
	Type        *string `json:"type"`
	IP          *string `json:"ip"`
	SendPort    *int    `json:"send_port"`
	ReceivePort *int    `json:"receive_port"`
}

type jsoncRepeater struct {
	Enabled     *bool   `json:"enabled"`
	IP          *string `json:"ip"`
	SendPort    *int    `json:"send_port"`
	ReceivePort *int    `json:"receive_port"`
}

type jsoncExternalControl struct {
	OSCPort    *int    `json:"osc_port"`
	MIDIPort   *string `json:"midi_port"`
	MMCEnabled *bool   `json:"mmc_enabled"`
}

type jsoncHeartbeat struct {
	TickMS       *int `json:"tick_ms"`
	ProbeEvery   *int `json:"probe_every"`
	NudgeAfter   *int `json:"nudge_after"`
	TimeoutAfter *int `json:"timeout_after"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	if err := validateSchema([]byte(normalized)); err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings := payload.applyTo(&cfg)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) []Warning {
	warnings := make([]Warning, 0)

	if payload.Console != nil {
		if payload.Console.Type != nil {
			cfg.Console.Type = strings.TrimSpace(*payload.Console.Type)
		}
		if payload.Console.IP != nil {
			cfg.Console.IP = strings.TrimSpace(*payload.Console.IP)
		}
		if payload.Console.SendPort != nil {
			cfg.Console.SendPort = *payload.Console.SendPort
		}
		if payload.Console.ReceivePort != nil {
			cfg.Console.ReceivePort = *payload.Console.ReceivePort
		}
	}

	if payload.DAW != nil {
		if payload.DAW.Type != nil {
			cfg.DAW.Type = strings.TrimSpace(*payload.DAW.Type)
			send, receive := DAWPortDefaults(cfg.DAW.Type)
			if payload.DAW.SendPort == nil {
				cfg.DAW.SendPort = send
			}
			if payload.DAW.ReceivePort == nil {
				cfg.DAW.ReceivePort = receive
			}
		}
		if payload.DAW.IP != nil {
			cfg.DAW.IP = strings.TrimSpace(*payload.DAW.IP)
		}
		if payload.DAW.SendPort != nil {
			cfg.DAW.SendPort = *payload.DAW.SendPort
		}
		if payload.DAW.ReceivePort != nil {
			cfg.DAW.ReceivePort = *payload.DAW.ReceivePort
		}
	}

	if payload.Repeater != nil {
		if payload.Repeater.Enabled != nil {
			cfg.Repeater.Enabled = *payload.Repeater.Enabled
		}
		if payload.Repeater.IP != nil {
			cfg.Repeater.IP = strings.TrimSpace(*payload.Repeater.IP)
		}
		if payload.Repeater.SendPort != nil {
			cfg.Repeater.SendPort = *payload.Repeater.SendPort
		}
		if payload.Repeater.ReceivePort != nil {
			cfg.Repeater.ReceivePort = *payload.Repeater.ReceivePort
		}
	}

	if payload.NameOnlyMatch != nil {
		cfg.NameOnlyMatch = *payload.NameOnlyMatch
	}
	if payload.Mode != nil {
		cfg.InitialMode = strings.TrimSpace(*payload.Mode)
	}

	if payload.ExternalControl != nil {
		if payload.ExternalControl.OSCPort != nil {
			cfg.ExternalControl.OSCPort = *payload.ExternalControl.OSCPort
		}
		if payload.ExternalControl.MIDIPort != nil {
			cfg.ExternalControl.MIDIPort = strings.TrimSpace(*payload.ExternalControl.MIDIPort)
		}
		if payload.ExternalControl.MMCEnabled != nil {
			cfg.ExternalControl.MMCEnabled = *payload.ExternalControl.MMCEnabled
		}
	}

	if payload.Heartbeat != nil {
		if payload.Heartbeat.TickMS != nil {
			cfg.Heartbeat.TickMS = *payload.Heartbeat.TickMS
		}
		if payload.Heartbeat.ProbeEvery != nil {
			cfg.Heartbeat.ProbeEvery = *payload.Heartbeat.ProbeEvery
		}
		if payload.Heartbeat.NudgeAfter != nil {
			cfg.Heartbeat.NudgeAfter = *payload.Heartbeat.NudgeAfter
		}
		if payload.Heartbeat.TimeoutAfter != nil {
			cfg.Heartbeat.TimeoutAfter = *payload.Heartbeat.TimeoutAfter
		}
	}

	if payload.ShutdownTimeout != nil {
		cfg.ShutdownTimeout = *payload.ShutdownTimeout
	}

	if cfg.Repeater.Enabled && cfg.Console.Type != ConsoleDiGiCo {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("repeater.enabled has no effect for console type %q", cfg.Console.Type)})
	}

	return warnings
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' || ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			switch content[i+1] {
			case '/':
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			case '*':
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
