// Package target defines the teleoperation target message and the
// Feeder contract shared by the live MQTT feeder and the replay feeder:
// set_sink, start, stop, join, with neither variant ever blocking the
// sink for more than the cost of one callback invocation.
package target

// Vec3 is a bare 3-tuple, used for both position (mm) and orientation
// (degrees or radians, per the session's configured angle unit).
type Vec3 struct {
	X, Y, Z float64
}

// Pad carries the two digital teleoperation controls carried alongside
// every pose sample. B0 gates command emission: nonzero freezes the
// robot in place. BA requests an origin reset: the planner re-anchors
// on the next qualifying message.
type Pad struct {
	B0 int
	BA bool
}

// Message is one sample from a teleoperation target stream: a pose in
// the source frame, optional pad state, and the wall-clock time (for
// live feeds) or recorded time (for replay) it was produced at, in
// seconds.
type Message struct {
	Pos  Vec3
	Ori  Vec3
	Pad  *Pad
	Time float64
}

// Sink receives target messages one at a time, in order. Implementations
// must return before the feeder proceeds to the next message; a Sink
// that blocks indefinitely stalls the feeder's pacing.
type Sink func(Message)

// Feeder delivers a homogeneous stream of Messages to a single
// registered Sink. The two variants (LiveFeeder, ReplayFeeder) share
// this one contract and differ only in where messages come from and how
// they're paced.
type Feeder interface {
	// SetSink registers the callback invoked for every message. It must
	// be called before Start.
	SetSink(Sink)
	// Start begins delivering messages; it does not block.
	Start() error
	// Stop cooperatively requests the feeder to halt between messages.
	Stop()
	// Join blocks until the feeder's delivery loop has exited, whether
	// from Stop, exhausting a replay source, or an unrecoverable error.
	Join()
}
