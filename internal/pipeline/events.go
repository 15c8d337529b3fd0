package pipeline

import (
	"sync/atomic"
	"time"

	vlog "github.com/donghaozhang/video-agent-skill-sub001/internal/log"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/types"
)

// EventKind names a lifecycle event.
type EventKind string

const (
	EventBatchStart    EventKind = "batch_start"
	EventStepComplete  EventKind = "step_complete"
	EventBatchComplete EventKind = "batch_complete"
	EventChainComplete EventKind = "chain_complete"
)

// Event is one lifecycle notification. Result is set for step_complete, Run
// for chain_complete.
type Event struct {
	Kind   EventKind
	Batch  int
	Group  string
	Steps  []types.Step
	Result *StepResult
	Run    *RunResult
	Time   time.Time
}

// Sink consumes lifecycle events. Handle is called from a single goroutine.
type Sink interface {
	Handle(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Handle(ev Event) { f(ev) }

const eventBuffer = 256

// notifier delivers events to a sink without blocking the scheduler. Events
// are dropped when the buffer is full.
type notifier struct {
	sink    Sink
	ch      chan Event
	done    chan struct{}
	dropped atomic.Int64
}

func newNotifier(sink Sink) *notifier {
	if sink == nil {
		return nil
	}
	n := &notifier{sink: sink, ch: make(chan Event, eventBuffer), done: make(chan struct{})}
	go n.loop()
	return n
}

func (n *notifier) loop() {
	defer close(n.done)
	for ev := range n.ch {
		n.deliver(ev)
	}
}

func (n *notifier) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			vlog.Warn("event sink panicked", "event", ev.Kind, "panic", r)
		}
	}()
	n.sink.Handle(ev)
}

func (n *notifier) emit(ev Event) {
	if n == nil {
		return
	}
	ev.Time = time.Now()
	select {
	case n.ch <- ev:
	default:
		n.dropped.Add(1)
	}
}

// close flushes pending events and waits for the sink to drain.
func (n *notifier) close() {
	if n == nil {
		return
	}
	close(n.ch)
	<-n.done
	if d := n.dropped.Load(); d > 0 {
		vlog.Warn("dropped progress events", "count", d)
	}
}
