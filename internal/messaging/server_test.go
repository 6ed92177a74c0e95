package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func startTestServer(t *testing.T) *NatsServer {
	t.Helper()
	s, err := NewNatsServer(WithPort(-1))
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	readyCtx, readyCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer readyCancel()
	if err := s.WaitReady(readyCtx); err != nil {
		t.Fatalf("waiting for server: %v", err)
	}
	return s
}

func TestNatsServer_NotStarted(t *testing.T) {
	s, err := NewNatsServer(WithPort(-1))
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	if err := s.Publish("a", []byte("x")); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted from Publish, got %v", err)
	}
	if _, err := s.Subscribe("a", func([]byte) {}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted from Subscribe, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.WaitReady(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNatsPublisher_Subjects(t *testing.T) {
	s := startTestServer(t)
	pub := NewNatsPublisher(s)

	agentMsgs := make(chan []byte, 4)
	unsub, err := s.Subscribe(AgentSubject("agent-1"), func(data []byte) { agentMsgs <- data })
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer unsub()

	events := make(chan []byte, 4)
	unsubEvents, err := s.Subscribe(AllEventsSubject, func(data []byte) { events <- data })
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer unsubEvents()

	if err := pub.PublishToAgent("agent-2", []byte("not mine")); err != nil {
		t.Fatalf("publishing: %v", err)
	}
	if err := pub.PublishToAgent("agent-1", []byte("hello")); err != nil {
		t.Fatalf("publishing: %v", err)
	}
	if err := pub.PublishEvent("agent_moved", []byte("moved")); err != nil {
		t.Fatalf("publishing: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("flushing: %v", err)
	}

	select {
	case got := <-agentMsgs:
		testutil.AssertEqual(t, "agent message", string(got), "hello")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for agent message")
	}
	select {
	case got := <-events:
		testutil.AssertEqual(t, "event", string(got), "moved")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	select {
	case got := <-agentMsgs:
		t.Errorf("unexpected agent message %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubjects(t *testing.T) {
	testutil.AssertEqual(t, "agent", AgentSubject("agent-7"), "agent.agent-7.observation")
	testutil.AssertEqual(t, "event", EventSubject("timestep"), "world.events.timestep")
}
