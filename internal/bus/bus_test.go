package bus

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/markermatic/markermatic/internal/cue"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToTypedSubscribers(t *testing.T) {
	b := New(nil)

	var got []cue.Cue
	unsubscribe := Subscribe(b, func(evt CueLoaded) { got = append(got, evt.Cue) })
	defer unsubscribe()

	var markers []string
	Subscribe(b, func(evt PlaceMarker) { markers = append(markers, evt.Name) })

	b.Publish(CueLoaded{Cue: cue.Cue{Label: "1", Name: "Intro"}})
	b.Publish(PlaceMarker{Name: "Marker from Console"})
	b.Publish(CueLoaded{Cue: cue.Cue{Label: "2", Name: "Verse"}})

	require.Equal(t, []cue.Cue{{Label: "1", Name: "Intro"}, {Label: "2", Name: "Verse"}}, got)
	require.Equal(t, []string{"Marker from Console"}, markers)
}

func TestUnsubscribeDetachesOnlyThatHandler(t *testing.T) {
	b := New(nil)

	first, second := 0, 0
	unsubscribe := Subscribe(b, func(ShutdownRequested) { first++ })
	Subscribe(b, func(ShutdownRequested) { second++ })
	require.Equal(t, 2, b.SubscriberCount(TopicShutdownRequested))

	b.Publish(ShutdownRequested{})
	unsubscribe()
	unsubscribe()
	b.Publish(ShutdownRequested{})

	require.Equal(t, 1, first)
	require.Equal(t, 2, second)
	require.Equal(t, 1, b.SubscriberCount(TopicShutdownRequested))
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	b := New(nil)
	b.Publish(RequestDawRestart{DAW: "Reaper"})
	b.Publish(nil)
	require.Zero(t, b.SubscriberCount(TopicRequestDawRestart))
}

func TestHandlerMayPublishReentrantly(t *testing.T) {
	b := New(nil)

	var modes []cue.PlaybackMode
	Subscribe(b, func(evt PlaybackModeChanged) { modes = append(modes, evt.Mode) })
	Subscribe(b, func(evt TransportRequested) {
		if evt.Action == cue.ActionRecord {
			b.Publish(PlaybackModeChanged{Mode: cue.ModeRecording})
		}
	})

	b.Publish(TransportRequested{Action: cue.ActionRecord})
	require.Equal(t, []cue.PlaybackMode{cue.ModeRecording}, modes)
}

func TestHandlerMayUnsubscribeDuringDelivery(t *testing.T) {
	b := New(nil)

	calls := 0
	var unsubscribe func()
	unsubscribe = Subscribe(b, func(PlaceMarker) {
		calls++
		unsubscribe()
	})

	b.Publish(PlaceMarker{})
	b.Publish(PlaceMarker{})
	require.Equal(t, 1, calls)
}

func TestPanickingSubscriberDoesNotStopDelivery(t *testing.T) {
	var logBuf bytes.Buffer
	b := New(slog.New(slog.NewJSONHandler(&logBuf, nil)))

	delivered := false
	Subscribe(b, func(PlaceMarker) { panic("boom") })
	Subscribe(b, func(PlaceMarker) { delivered = true })

	require.NotPanics(t, func() { b.Publish(PlaceMarker{Name: "x"}) })
	require.True(t, delivered)
	require.Contains(t, logBuf.String(), "bus subscriber panicked")
	require.Contains(t, logBuf.String(), `"topic":"place_marker"`)
}

func TestConcurrentPublishersPreserveOwnOrder(t *testing.T) {
	b := New(nil)

	var mu sync.Mutex
	perPublisher := map[string][]int{}
	Subscribe(b, func(evt PlaceMarker) {
		mu.Lock()
		defer mu.Unlock()
		var n int
		var who string
		who, n = evt.Name[:1], int(evt.Name[1]-'0')
		perPublisher[who] = append(perPublisher[who], n)
	})

	var wg sync.WaitGroup
	for _, who := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(who string) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				b.Publish(PlaceMarker{Name: who + string(rune('0'+i))})
			}
		}(who)
	}
	wg.Wait()

	for _, who := range []string{"a", "b", "c"} {
		require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, perPublisher[who], who)
	}
}
