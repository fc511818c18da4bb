package target

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// ReplayFeeder emits a prerecorded list of Messages, preserving their
// original inter-arrival deltas measured against wall time:
//
//	t_emit(i) = t_emit(i-1) + (msgs[i].Time - msgs[i-1].Time)
//
// The first message is emitted immediately and fixes the origin. If a
// sink call plus the intervening sleep overshoots the target delta, the
// next message is emitted immediately rather than trying to catch up
// further (busy-waiting only ever narrows the gap, never widens it).
type ReplayFeeder struct {
	msgs []Message

	mu      sync.Mutex
	sink    Sink
	stopped atomic.Bool
	done    chan struct{}
}

// NewReplayFeeder returns a ReplayFeeder over msgs, which must be
// ordered by Time ascending.
func NewReplayFeeder(msgs []Message) *ReplayFeeder {
	return &ReplayFeeder{msgs: msgs, done: make(chan struct{})}
}

func (f *ReplayFeeder) SetSink(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink = s
}

// Start begins pacing delivery on its own goroutine.
func (f *ReplayFeeder) Start() error {
	go f.run()
	return nil
}

func (f *ReplayFeeder) run() {
	defer close(f.done)

	if len(f.msgs) == 0 {
		return
	}

	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()

	jPrev := f.msgs[0].Time
	tPrev := time.Now()
	for _, m := range f.msgs {
		if f.stopped.Load() {
			return
		}

		delta := time.Duration((m.Time - jPrev) * float64(time.Second))
		// busy-wait for the target emission time rather than
		// time.Sleep: it needs sub-millisecond pacing fidelity that
		// sleep scheduling can't reliably hit.
		target := tPrev.Add(delta)
		for time.Now().Before(target) {
			if f.stopped.Load() {
				return
			}
		}

		jPrev = m.Time
		tPrev = time.Now()
		if sink != nil {
			sink(m)
		}
	}
}

// Stop cooperatively requests the feeder to halt between messages.
func (f *ReplayFeeder) Stop() {
	f.stopped.Store(true)
}

// Join blocks until the replay has delivered every message, or Stop was
// called.
func (f *ReplayFeeder) Join() {
	<-f.done
}

// wireReplayMessage is one line of a recorded JSON-Lines target file:
// the same pos/ori/pad schema as the live feed, plus the recorded
// absolute wall-clock time.
type wireReplayMessage struct {
	Pos struct{ X, Y, Z float64 } `json:"pos"`
	Ori struct{ X, Y, Z float64 } `json:"ori"`
	Pad *struct {
		B0 int  `json:"b0"`
		BA bool `json:"bA"`
	} `json:"pad"`
	Time float64 `json:"time"`
}

// LoadReplay reads a JSON-Lines file of recorded TargetMessages, one
// object per line, in file order.
func LoadReplay(path string) ([]Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "target: open replay file %s", path)
	}
	defer f.Close()

	var out []Message
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var w wireReplayMessage
		if err := json.Unmarshal(line, &w); err != nil {
			return nil, errors.Wrapf(err, "target: decode replay line in %s", path)
		}
		m := Message{
			Pos:  Vec3{X: w.Pos.X, Y: w.Pos.Y, Z: w.Pos.Z},
			Ori:  Vec3{X: w.Ori.X, Y: w.Ori.Y, Z: w.Ori.Z},
			Time: w.Time,
		}
		if w.Pad != nil {
			m.Pad = &Pad{B0: w.Pad.B0, BA: w.Pad.BA}
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "target: scan replay file %s", path)
	}
	return out, nil
}
