package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateStopped

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateStarting, next)

	next, err = Transition(next, EventStarted)
	require.NoError(t, err)
	require.Equal(t, StateRunning, next)

	next, err = Transition(next, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateStopping, next)

	next, err = Transition(next, EventStopped)
	require.NoError(t, err)
	require.Equal(t, StateStopped, next)
}

func TestTransitionFailureAlwaysTearsDown(t *testing.T) {
	for _, state := range []State{StateStarting, StateRunning} {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateStopping, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "stopped stop invalid", state: StateStopped, event: EventStop, want: StateStopped, wantErr: true},
		{name: "stopped started invalid", state: StateStopped, event: EventStarted, want: StateStopped, wantErr: true},
		{name: "stopped fail invalid", state: StateStopped, event: EventFail, want: StateStopped, wantErr: true},
		{name: "starting start invalid", state: StateStarting, event: EventStart, want: StateStarting, wantErr: true},
		{name: "starting stop valid", state: StateStarting, event: EventStop, want: StateStopping, wantErr: false},
		{name: "running start invalid", state: StateRunning, event: EventStart, want: StateRunning, wantErr: true},
		{name: "running stopped invalid", state: StateRunning, event: EventStopped, want: StateRunning, wantErr: true},
		{name: "stopping start invalid", state: StateStopping, event: EventStart, want: StateStopping, wantErr: true},
		{name: "stopping stop invalid", state: StateStopping, event: EventStop, want: StateStopping, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}
