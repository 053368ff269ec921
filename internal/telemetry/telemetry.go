// Package telemetry reports generation run progress. Reporters receive one
// event per produced or failed record; the generator treats them as
// fire-and-forget sinks.
package telemetry

import (
	"sync"
	"time"

	"github.com/sdrforge/wavesynth/internal/logging"
)

// Event is a single generation progress sample.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	RecordID    string    `json:"recordId"`
	Scheme      string    `json:"scheme"`
	Scenario    string    `json:"scenario"`
	Samples     int       `json:"samples"`
	BandwidthHz float64   `json:"bandwidthHz"`
	Err         string    `json:"err,omitempty"`
}

// Reporter captures telemetry events.
type Reporter interface {
	Report(ev Event)
}

// StdoutReporter logs each event through the structured logger.
type StdoutReporter struct {
	logger logging.Logger
}

// NewStdoutReporter builds a stdout reporter with the provided logger.
func NewStdoutReporter(logger logging.Logger) StdoutReporter {
	if logger == nil {
		logger = logging.Default()
	}
	return StdoutReporter{logger: logger}
}

func (r StdoutReporter) Report(ev Event) {
	fields := []logging.Field{
		{Key: "subsystem", Value: "telemetry"},
		{Key: "record_id", Value: ev.RecordID},
		{Key: "scheme", Value: ev.Scheme},
	}
	if ev.Scenario != "" {
		fields = append(fields, logging.Field{Key: "scenario", Value: ev.Scenario})
	}
	if ev.Samples != 0 {
		fields = append(fields, logging.Field{Key: "samples", Value: ev.Samples})
	}
	if ev.BandwidthHz != 0 {
		fields = append(fields, logging.Field{Key: "bandwidth_hz", Value: ev.BandwidthHz})
	}
	if ev.Err != "" {
		r.logger.Warn("record failed", append(fields, logging.Field{Key: "error", Value: ev.Err})...)
		return
	}
	r.logger.Info("record produced", fields...)
}

// Collector keeps a bounded event history and fans events out to
// subscribers. It backs tests and any embedding progress UI.
type Collector struct {
	mu           sync.RWMutex
	history      []Event
	historyLimit int
	subscribers  map[chan Event]struct{}
}

// NewCollector builds a collector retaining at most historyLimit events.
func NewCollector(historyLimit int) *Collector {
	if historyLimit <= 0 {
		historyLimit = 500
	}
	return &Collector{
		historyLimit: historyLimit,
		subscribers:  make(map[chan Event]struct{}),
	}
}

// Report implements Reporter and records a new event.
func (c *Collector) Report(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	c.mu.Lock()
	c.history = append(c.history, ev)
	if len(c.history) > c.historyLimit {
		c.history = c.history[len(c.history)-c.historyLimit:]
	}
	for ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
	c.mu.Unlock()
}

// History returns a copy of stored events.
func (c *Collector) History() []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Event, len(c.history))
	copy(out, c.history)
	return out
}

// Subscribe registers a listener for live updates.
func (c *Collector) Subscribe() (chan Event, func()) {
	ch := make(chan Event, 16)
	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()
	cancel := func() {
		c.mu.Lock()
		delete(c.subscribers, ch)
		close(ch)
		c.mu.Unlock()
	}
	return ch, cancel
}

// MultiReporter fans events out to multiple destinations.
type MultiReporter []Reporter

// Report forwards the event to each configured reporter.
func (m MultiReporter) Report(ev Event) {
	for _, r := range m {
		if r != nil {
			r.Report(ev)
		}
	}
}
