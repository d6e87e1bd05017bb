package console

import (
	"strings"

	"github.com/markermatic/markermatic/internal/cue"
)

// MarkerFromConsole names markers placed by a console without a name.
const MarkerFromConsole = "Marker from Console"

type macroKind int

const (
	macroNone macroKind = iota
	macroTransport
	macroMarker
	macroMode
)

// macroAction is what a recalled macro name asks the bridge to do.
type macroAction struct {
	kind   macroKind
	action cue.TransportAction
	mode   cue.PlaybackMode
}

var macroVocabulary = buildMacroVocabulary()

func buildMacroVocabulary() map[string]macroAction {
	vocab := map[string]macroAction{}

	transportPrefixes := []string{"", "daw,", "daw, ", "reaper,", "reaper, ", "reaper "}
	transportWords := map[string]macroAction{
		"rec":    {kind: macroTransport, action: cue.ActionRecord},
		"record": {kind: macroTransport, action: cue.ActionRecord},
		"stop":   {kind: macroTransport, action: cue.ActionStop},
		"play":   {kind: macroTransport, action: cue.ActionPlay},
		"marker": {kind: macroMarker},
	}
	for _, prefix := range transportPrefixes {
		for word, act := range transportWords {
			vocab[prefix+word] = act
		}
	}

	modeWords := map[string]cue.PlaybackMode{
		"rec":         cue.ModeRecording,
		"record":      cue.ModeRecording,
		"recording":   cue.ModeRecording,
		"track":       cue.ModePlaybackTrack,
		"tracking":    cue.ModePlaybackTrack,
		"pb track":    cue.ModePlaybackTrack,
		"no track":    cue.ModePlaybackNoTrack,
		"no tracking": cue.ModePlaybackNoTrack,
	}
	for _, prefix := range []string{"mode,", "mode "} {
		for word, mode := range modeWords {
			vocab[prefix+word] = macroAction{kind: macroMode, mode: mode}
		}
	}
	return vocab
}

// classifyMacro matches a macro name against the vocabulary by exact,
// case-insensitive equality.
func classifyMacro(name string) macroAction {
	return macroVocabulary[strings.ToLower(name)]
}
