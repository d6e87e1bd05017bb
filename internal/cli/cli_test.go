package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/markermatic.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/markermatic.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
	require.False(t, parsed.Debug)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantErr   string
		wantCmd   Command
		wantArgs  []string
		wantHelp  bool
		wantPath  string
		wantDebug bool
	}{
		{
			name:     "help short flag",
			args:     []string{"-h"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "help long flag",
			args:     []string{"--help"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantCmd: CommandVersion,
		},
		{
			name:      "debug run",
			args:      []string{"--debug", "run"},
			wantCmd:   CommandRun,
			wantDebug: true,
		},
		{
			name:    "config after command",
			args:    []string{"status", "--config", "/tmp/cfg"},
			wantErr: "unexpected arguments after command",
		},
		{
			name:    "missing config path",
			args:    []string{"--config"},
			wantErr: "requires a path",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown flag",
		},
		{
			name:    "unknown command",
			args:    []string{"bogus"},
			wantErr: "unknown command",
		},
		{
			name:    "extra args after command",
			args:    []string{"doctor", "extra"},
			wantErr: "unexpected arguments",
		},
		{
			name:     "mode takes one argument",
			args:     []string{"mode", "Recording"},
			wantCmd:  CommandMode,
			wantArgs: []string{"Recording"},
		},
		{
			name:    "mode without argument",
			args:    []string{"mode"},
			wantErr: "requires 1 argument",
		},
		{
			name:    "transport with two arguments",
			args:    []string{"transport", "play", "stop"},
			wantErr: "unexpected arguments",
		},
		{
			name:     "transport with config",
			args:     []string{"--config", "/tmp/cfg", "transport", "rec"},
			wantCmd:  CommandTransport,
			wantArgs: []string{"rec"},
			wantPath: "/tmp/cfg",
		},
		{
			name:    "marker without name",
			args:    []string{"marker"},
			wantCmd: CommandMarker,
		},
		{
			name:     "marker name keeps flags verbatim",
			args:     []string{"marker", "Verse", "--2"},
			wantCmd:  CommandMarker,
			wantArgs: []string{"Verse", "--2"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
			require.Equal(t, tc.wantDebug, parsed.Debug)
			if len(tc.wantArgs) == 0 {
				require.Empty(t, parsed.Args)
			} else {
				require.Equal(t, tc.wantArgs, parsed.Args)
			}
		})
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("markermatic")
	for _, cmd := range []string{"run", "status", "reconnect", "mode", "transport", "marker", "doctor"} {
		require.Contains(t, text, cmd)
	}
	require.Contains(t, text, "--config PATH")
	require.Contains(t, text, "--debug")
}
