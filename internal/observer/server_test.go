package observer

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pixil98/go-gridworld/internal/driver"
	"github.com/pixil98/go-gridworld/internal/game"
	"github.com/pixil98/go-gridworld/internal/messaging"
	"github.com/pixil98/go-gridworld/internal/sim"
	"github.com/pixil98/go-gridworld/internal/terrain"
	"github.com/pixil98/go-testutil"
)

// wildcardBus delivers every publish to every subscriber.
type wildcardBus struct {
	mu   sync.Mutex
	next int
	subs map[int]func([]byte)
}

func (b *wildcardBus) Subscribe(_ string, handler func([]byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func([]byte))
	}
	id := b.next
	b.next++
	b.subs[id] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}, nil
}

func (b *wildcardBus) Publish(_ string, data []byte) error {
	b.mu.Lock()
	var handlers []func([]byte)
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()
	for _, h := range handlers {
		h(data)
	}
	return nil
}

type testEnv struct {
	drv   *driver.Driver
	sim   *sim.Simulation
	world *game.World
	srv   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	world := game.NewWorld(terrain.NewGrid(8, terrain.Grass), rand.New(rand.NewPCG(7, 8)))
	bus := &wildcardBus{}
	simulation := sim.NewSimulation(world, messaging.NewNatsPublisher(bus))
	drv := driver.NewDriver([]driver.Ticker{simulation}, driver.WithTickLength(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = drv.Start(ctx)
	}()

	s := NewServer("", drv, simulation, bus)
	mux := http.NewServeMux()
	mux.Handle("/ws", s.Handler())
	mux.HandleFunc("/state", s.handleState)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return &testEnv{drv: drv, sim: simulation, world: world, srv: srv}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	return f
}

func sendCommand(t *testing.T, conn *websocket.Conn, cmd string) {
	t.Helper()
	if err := conn.WriteJSON(command{Command: cmd}); err != nil {
		t.Fatalf("writing command: %v", err)
	}
}

func TestServer_SnapshotThenEvents(t *testing.T) {
	e := newTestEnv(t)
	conn := e.dial(t)

	first := readFrame(t, conn)
	testutil.AssertEqual(t, "type", first.Type, "snapshot")
	if first.State == nil {
		t.Fatal("expected state in snapshot")
	}
	testutil.AssertEqual(t, "size", first.State.World.Size, 8)
	testutil.AssertEqual(t, "rows", len(first.State.World.Tiles), 8)
	testutil.AssertEqual(t, "agents", len(first.State.World.Agents), 0)

	err := e.drv.Do(context.Background(), func(ctx context.Context) error {
		_, err := e.sim.Join(ctx, "agent-1")
		return err
	})
	if err != nil {
		t.Fatalf("joining: %v", err)
	}

	f := readFrame(t, conn)
	testutil.AssertEqual(t, "type", f.Type, "event")
	var ev sim.Event
	if err := json.Unmarshal(f.Event, &ev); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	testutil.AssertEqual(t, "kind", ev.Kind, sim.EventAgentConnected)
	testutil.AssertEqual(t, "agent", ev.AgentID, "agent-1")
}

func TestServer_Commands(t *testing.T) {
	e := newTestEnv(t)
	conn := e.dial(t)
	readFrame(t, conn)

	sendCommand(t, conn, "step")
	ev := readFrame(t, conn)
	testutil.AssertEqual(t, "event type", ev.Type, "event")
	ack := readFrame(t, conn)
	testutil.AssertEqual(t, "ack type", ack.Type, "ack")
	testutil.AssertEqual(t, "ack command", ack.Command, "step")
	testutil.AssertEqual(t, "time step", e.sim.TimeStep(), 1)

	tests := []struct {
		cmd       string
		expType   string
		expPaused bool
	}{
		{cmd: "pause", expType: "ack", expPaused: true},
		{cmd: "RESUME", expType: "ack", expPaused: false},
		{cmd: "snapshot", expType: "snapshot", expPaused: false},
		{cmd: "rewind", expType: "error", expPaused: false},
	}
	for _, tt := range tests {
		sendCommand(t, conn, tt.cmd)
		f := readFrame(t, conn)
		testutil.AssertEqual(t, tt.cmd+" type", f.Type, tt.expType)
		testutil.AssertEqual(t, tt.cmd+" paused", f.Paused, tt.expPaused)
		testutil.AssertEqual(t, tt.cmd+" driver paused", e.drv.Paused(), tt.expPaused)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("writing: %v", err)
	}
	f := readFrame(t, conn)
	testutil.AssertEqual(t, "bad command", f.Error, "invalid command")
}

func TestServer_StateEndpoint(t *testing.T) {
	e := newTestEnv(t)

	resp, err := http.Get(e.srv.URL + "/state")
	if err != nil {
		t.Fatalf("requesting state: %v", err)
	}
	defer resp.Body.Close()

	testutil.AssertEqual(t, "status", resp.StatusCode, http.StatusOK)
	var f Frame
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	testutil.AssertEqual(t, "type", f.Type, "snapshot")
	testutil.AssertEqual(t, "size", f.State.World.Size, 8)
}
