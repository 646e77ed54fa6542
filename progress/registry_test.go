package progress

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink is a fake Sink that keeps every delivered event.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *recordingSink) Deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *recordingSink) snapshot() ([]Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...), s.closed
}

func TestRegistry_PublishWithoutSubscriberIsDropped(t *testing.T) {
	r := NewRegistry(hclog.NewNullLogger())
	assert.NotPanics(t, func() {
		r.Publish("nobody", Percent(10))
		r.Publish("nobody", Done("x.mp3"))
	})
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_TerminalEventDetaches(t *testing.T) {
	r := NewRegistry(hclog.NewNullLogger())
	sink := &recordingSink{}
	r.Subscribe("job1", sink)

	r.Publish("job1", Percent(0))
	r.Publish("job1", Percent(50))
	r.Publish("job1", Done("job1_320kbps.mp3"))
	r.Publish("job1", Percent(99))

	events, closed := sink.snapshot()
	require.Len(t, events, 3)
	assert.Equal(t, KindDone, events[2].Kind)
	assert.Equal(t, "job1_320kbps.mp3", events[2].Artifact)
	assert.True(t, closed)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_LastSubscriberWins(t *testing.T) {
	r := NewRegistry(hclog.NewNullLogger())
	first := &recordingSink{}
	second := &recordingSink{}

	firstSub := r.Subscribe("job", first)
	r.Subscribe("job", second)
	r.Publish("job", Percent(12))

	firstEvents, firstClosed := first.snapshot()
	secondEvents, _ := second.snapshot()
	assert.Empty(t, firstEvents)
	assert.True(t, firstClosed)
	require.Len(t, secondEvents, 1)

	// The displaced subscription must not detach the current one.
	r.Unsubscribe(firstSub)
	assert.Equal(t, 1, r.Len())
	r.Publish("job", Percent(20))
	secondEvents, _ = second.snapshot()
	assert.Len(t, secondEvents, 2)
}

func TestRegistry_Unsubscribe(t *testing.T) {
	r := NewRegistry(hclog.NewNullLogger())
	sink := &recordingSink{}
	sub := r.Subscribe("job", sink)

	r.Unsubscribe(sub)
	r.Unsubscribe(sub)
	r.Publish("job", Percent(5))

	events, _ := sink.snapshot()
	assert.Empty(t, events)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ConcurrentJobs(t *testing.T) {
	r := NewRegistry(hclog.NewNullLogger())
	sinks := make([]*recordingSink, 20)
	for i := range sinks {
		sinks[i] = &recordingSink{}
		r.Subscribe(fmt.Sprintf("job-%d", i), sinks[i])
	}

	var wg sync.WaitGroup
	for i := range sinks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("job-%d", i)
			for p := 0; p <= 100; p += 10 {
				r.Publish(id, Percent(float64(p)))
			}
			r.Publish(id, Done(id))
		}(i)
	}
	wg.Wait()

	for _, s := range sinks {
		events, closed := s.snapshot()
		require.Len(t, events, 12)
		assert.True(t, closed)
		assert.True(t, events[len(events)-1].Terminal())
		for i := 1; i < len(events)-1; i++ {
			assert.GreaterOrEqual(t, events[i].Percent, events[i-1].Percent)
		}
	}
}

func TestChanSink_TerminalSurvivesFullBuffer(t *testing.T) {
	sink := NewChanSink(2)
	sink.Deliver(Percent(1))
	sink.Deliver(Percent(2))
	sink.Deliver(Percent(3)) // dropped
	sink.Deliver(Error("boom"))
	sink.Close()
	sink.Deliver(Percent(4)) // after close, ignored

	var got []Event
	for ev := range sink.Events() {
		got = append(got, ev)
	}
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Percent)
	assert.Equal(t, KindError, got[1].Kind)
}

func TestEvent_JSON(t *testing.T) {
	b, err := json.Marshal(Percent(42.5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"progress","percent":42.5}`, string(b))

	b, err = json.Marshal(Done("song_320kbps.mp3"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"done","done":true,"percent":100,"fileName":"song_320kbps.mp3"}`, string(b))

	b, err = json.Marshal(Error("fetch failed"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","error":"fetch failed"}`, string(b))

	assert.Equal(t, 100.0, Percent(140).Percent)
	assert.Equal(t, 0.0, Percent(-3).Percent)
}
