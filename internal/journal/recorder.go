package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/pixil98/go-gridworld/internal/messaging"
	"github.com/pixil98/go-gridworld/internal/protocol"
	"github.com/pixil98/go-gridworld/internal/sim"
)

type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

// Recorder writes every world event to the journal until stopped.
type Recorder struct {
	bus Subscriber
	w   *Writer
}

func NewRecorder(dir string, bus Subscriber, opts ...WriterOpt) *Recorder {
	return &Recorder{
		bus: bus,
		w:   NewWriter(dir, "events", opts...),
	}
}

func (r *Recorder) Start(ctx context.Context) error {
	unsub, err := r.bus.Subscribe(messaging.AllEventsSubject, func(data []byte) {
		if err := r.w.WriteLine(data); err != nil {
			slog.WarnContext(ctx, "writing journal entry", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing journal: %w", err)
	}

	slog.InfoContext(ctx, "journal recording", "dir", r.w.baseDir)
	<-ctx.Done()
	unsub()

	if err := r.w.Close(); err != nil {
		return fmt.Errorf("closing journal: %w", err)
	}
	return nil
}

// ReadFile decodes every event in one journal file.
func ReadFile(path string) ([]sim.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer dec.Close()

	var events []sim.Event
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 4096), protocol.MaxMessageSize)
	for scanner.Scan() {
		var e sim.Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("decoding journal line %d: %w", len(events)+1, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	return events, nil
}
