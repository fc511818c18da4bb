// Package recording writes the planner and servo event stream to a
// JSON-Lines file for later replay or plotting, covering five event
// kinds: target, base, diff_control, control, and state, plus raw for
// unparsed feeder payloads.
package recording

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Kind identifies the category of a recorded event.
type Kind string

const (
	KindTarget      Kind = "target"
	KindBase        Kind = "base"
	KindDiffControl Kind = "diff_control"
	KindControl     Kind = "control"
	KindState       Kind = "state"
	// KindRaw records an unparsed feeder payload, for a raw MQTT
	// capture alongside the parsed target/control stream.
	KindRaw Kind = "raw"
)

// Event is one line of a recording: a kind, one or more 6-tuple poses
// (a single pose for most kinds, a series of poses for a planner
// control update), and the wall-clock time it was produced.
type Event struct {
	Kind Kind        `json:"kind"`
	Pos  interface{} `json:"pos"`
	Time float64     `json:"time"`
}

// Recorder appends Events to a file, one JSON object per line. It is
// safe for concurrent use by multiple goroutines.
type Recorder struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

// New creates (or truncates) path and returns a Recorder writing to it.
func New(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "recording: open %s", path)
	}
	return &Recorder{f: f, w: bufio.NewWriter(f)}, nil
}

// Log appends one event. Pos is a single pose (a [6]float64 or a
// 6-element slice), a [][6]float64 (a commanded series), or, for
// KindRaw, the raw feeder payload.
func (r *Recorder) Log(kind Kind, pos interface{}, t float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := json.Marshal(Event{Kind: kind, Pos: pos, Time: t})
	if err != nil {
		return errors.Wrap(err, "recording: marshal event")
	}
	if _, err := r.w.Write(b); err != nil {
		return errors.Wrap(err, "recording: write event")
	}
	return r.w.WriteByte('\n')
}

// Close flushes buffered events and closes the underlying file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Flush(); err != nil {
		return errors.Wrap(err, "recording: flush")
	}
	return r.f.Close()
}

// Load reads back a recording written by Recorder, in order.
func Load(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "recording: open %s", path)
	}
	defer f.Close()

	var out []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, errors.Wrapf(err, "recording: decode %s", path)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "recording: scan %s", path)
	}
	return out, nil
}
