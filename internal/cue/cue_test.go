package cue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCueString(t *testing.T) {
	require.Equal(t, "12.03 Verse 2", Cue{Label: "12.03", Name: "Verse 2"}.String())
	require.Equal(t, "Verse 2", Cue{Name: "Verse 2"}.String())
	require.Equal(t, "Verse 2", Cue{Label: "  ", Name: "Verse 2"}.String())
}

func TestParseModeMatrix(t *testing.T) {
	tests := []struct {
		raw     string
		want    PlaybackMode
		wantErr bool
	}{
		{raw: "Recording", want: ModeRecording},
		{raw: "rec", want: ModeRecording},
		{raw: "PlaybackTrack", want: ModePlaybackTrack},
		{raw: "track", want: ModePlaybackTrack},
		{raw: "PB Track", want: ModePlaybackTrack},
		{raw: "no track", want: ModePlaybackNoTrack},
		{raw: "no_tracking", want: ModePlaybackNoTrack},
		{raw: "playbacknotrack", want: ModePlaybackNoTrack},
		{raw: "shuffle", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseMode(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseTransportAction(t *testing.T) {
	for raw, want := range map[string]TransportAction{
		"play":   ActionPlay,
		"STOP":   ActionStop,
		"rec":    ActionRecord,
		"Record": ActionRecord,
	} {
		got, err := ParseTransportAction(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	_, err := ParseTransportAction("rewind")
	require.Error(t, err)
}

func TestTransportStatePlaying(t *testing.T) {
	require.True(t, StatePlaying.Playing())
	require.True(t, StateRecording.Playing())
	require.False(t, StateStopped.Playing())
	require.False(t, StateStopping.Playing())
}

func TestCapabilitiesHas(t *testing.T) {
	caps := Capabilities{CapCueNumber, CapRepeater}
	require.True(t, caps.Has(CapRepeater))
	require.False(t, caps.Has(CapSeparateReceivePort))
	require.False(t, Capabilities(nil).Has(CapCueNumber))
}

func TestConnectionStatusString(t *testing.T) {
	require.Equal(t, "disconnected", ConnectionStatus{}.String())
	require.Equal(t, "connected", ConnectionStatus{Connected: true}.String())
	require.Equal(t, "connected (SD12)", ConnectionStatus{Connected: true, Label: "SD12"}.String())
}

func TestStripLeadingToken(t *testing.T) {
	require.Equal(t, "Verse 2", StripLeadingToken("12.03 Verse 2"))
	require.Equal(t, "", StripLeadingToken("Verse"))
	require.Equal(t, "Verse 2", MatchTarget("7 Verse 2", true))
	require.Equal(t, "7 Verse 2", MatchTarget("7 Verse 2", false))
}

func TestMarkerMatchesIgnoresRelabelInNameOnlyMode(t *testing.T) {
	target := MatchTarget(Cue{Label: "12.03", Name: "Verse 2"}.String(), true)
	require.True(t, MarkerMatches("99 Verse 2", target, true))
	require.False(t, MarkerMatches("99 Verse 3", target, true))

	full := MatchTarget("12.03 Verse 2", false)
	require.False(t, MarkerMatches("99 Verse 2", full, false))
	require.True(t, MarkerMatches("12.03 Verse 2", full, false))
}

func TestMarkerMatchesNeverMatchesEmptyTarget(t *testing.T) {
	target := MatchTarget(Cue{Label: "7"}.String(), true)
	require.Equal(t, "", target)
	require.False(t, MarkerMatches("Intro", target, true))
	require.False(t, MarkerMatches("3", target, true))
	require.False(t, MarkerMatches("", "", false))
}
