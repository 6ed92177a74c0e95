package journal

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-gridworld/internal/game"
	"github.com/pixil98/go-gridworld/internal/messaging"
	"github.com/pixil98/go-gridworld/internal/sim"
	"github.com/pixil98/go-testutil"
)

type fakeBus struct {
	mu      sync.Mutex
	subject string
	handler func([]byte)
}

func (b *fakeBus) Subscribe(subject string, handler func([]byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subject = subject
	b.handler = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.handler = nil
	}, nil
}

func (b *fakeBus) publish(data []byte) {
	b.mu.Lock()
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h(data)
	}
}

func (b *fakeBus) ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handler != nil
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC)
	w := NewWriter(dir, "events", WithClock(func() time.Time { return now }))

	pos := game.Position{X: 3, Y: 4}
	exp := []sim.Event{
		{Kind: sim.EventAgentConnected, AgentID: "agent-1", Position: &pos, Agents: 1, Time: now},
		{Kind: sim.EventTimestep, TimeStep: 1, Agents: 1, Time: now},
		{Kind: sim.EventAgentDisconnected, AgentID: "agent-1", TimeStep: 1, Time: now},
	}
	for _, e := range exp {
		if err := w.WriteLine(mustJSON(t, e)); err != nil {
			t.Fatalf("writing: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}

	got, err := ReadFile(w.PathForHour(now))
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	testutil.AssertEqual(t, "count", len(got), 3)
	for i := range exp {
		testutil.AssertEqual(t, "kind", got[i].Kind, exp[i].Kind)
		testutil.AssertEqual(t, "agent", got[i].AgentID, exp[i].AgentID)
		testutil.AssertEqual(t, "step", got[i].TimeStep, exp[i].TimeStep)
	}
	testutil.AssertEqual(t, "position", *got[0].Position, pos)

	if err := w.WriteLine([]byte(`{}`)); !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected os.ErrClosed after close, got %v", err)
	}
}

func TestWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	w := NewWriter(dir, "events", WithClock(func() time.Time { return now }))

	first := now
	if err := w.WriteLine([]byte(`{"kind":"timestep","timeStep":1}`)); err != nil {
		t.Fatalf("writing: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.WriteLine([]byte(`{"kind":"timestep","timeStep":2}`)); err != nil {
		t.Fatalf("writing: %v", err)
	}
	if err := w.WriteLine([]byte(`{"kind":"timestep","timeStep":3}`)); err != nil {
		t.Fatalf("writing: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}

	tests := map[string]struct {
		at       time.Time
		expSteps []int
	}{
		"first hour":  {at: first, expSteps: []int{1}},
		"second hour": {at: now, expSteps: []int{2, 3}},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ReadFile(w.PathForHour(tt.at))
			if err != nil {
				t.Fatalf("reading: %v", err)
			}
			testutil.AssertEqual(t, "count", len(got), len(tt.expSteps))
			for i, step := range tt.expSteps {
				testutil.AssertEqual(t, "step", got[i].TimeStep, step)
			}
		})
	}
}

func TestWriter_RejectsNewlines(t *testing.T) {
	w := NewWriter(t.TempDir(), "events")
	defer w.Close()

	err := w.WriteLine([]byte("{}\n{}"))
	testutil.AssertErrorContains(t, err, "contains a newline")
}

func TestRecorder_RecordsEvents(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	bus := &fakeBus{}
	r := NewRecorder(dir, bus, WithClock(func() time.Time { return now }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Start(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !bus.ready() {
		if time.Now().After(deadline) {
			t.Fatal("recorder never subscribed")
		}
		time.Sleep(time.Millisecond)
	}
	testutil.AssertEqual(t, "subject", bus.subject, messaging.AllEventsSubject)

	bus.publish(mustJSON(t, sim.Event{Kind: sim.EventAgentConnected, AgentID: "agent-1"}))
	bus.publish(mustJSON(t, sim.Event{Kind: sim.EventAgentMoved, AgentID: "agent-1"}))

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("recorder did not stop")
	}

	got, err := ReadFile(r.w.PathForHour(now))
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	testutil.AssertEqual(t, "count", len(got), 2)
	testutil.AssertEqual(t, "first", got[0].Kind, sim.EventAgentConnected)
	testutil.AssertEqual(t, "second", got[1].Kind, sim.EventAgentMoved)
}
