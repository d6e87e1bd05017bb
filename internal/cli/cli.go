package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun       Command = "run"
	CommandStatus    Command = "status"
	CommandReconnect Command = "reconnect"
	CommandMode      Command = "mode"
	CommandTransport Command = "transport"
	CommandMarker    Command = "marker"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

// commandArity is the number of positional arguments each command takes:
// an exact count, or -1 for "zero or more".
var commandArity = map[Command]int{
	CommandRun:       0,
	CommandStatus:    0,
	CommandReconnect: 0,
	CommandMode:      1,
	CommandTransport: 1,
	CommandMarker:    -1,
	CommandDoctor:    0,
	CommandVersion:   0,
	CommandHelp:      0,
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	Debug      bool
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--debug":
			parsed.Debug = true
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			arity, ok := commandArity[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			rest := args[i+1:]
			switch {
			case arity < 0:
				parsed.Args = rest
			case len(rest) > arity:
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			case len(rest) < arity:
				return Parsed{}, fmt.Errorf("command %q requires %d argument(s)", arg, arity)
			default:
				parsed.Args = rest
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--debug] <command> [args]

Commands:
  run                      Start the bridge and serve control requests until interrupted
  status                   Print bridge state, playback mode and connections
  reconnect                Reload the config file and restart the running bridge
  mode <mode>              Set playback mode: Recording, PlaybackTrack, PlaybackNoTrack
  transport <action>       Send play, stop or rec to the DAW
  marker [name]            Drop a marker at the DAW playhead
  doctor                   Run configuration and network checks
  version                  Print version information
  help                     Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/markermatic/config.jsonc)
  --debug         Log protocol traffic at debug level
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
