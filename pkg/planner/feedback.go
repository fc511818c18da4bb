package planner

import (
	"sync/atomic"

	"github.com/armteleop/cobotservo/pkg/pose"
)

// SharedFeedback is a lock-free single-writer/multi-reader snapshot of
// the robot's most recently executed pose. The servo goroutine calls Set
// once per tick; the planner goroutine calls Get whenever it needs to
// anchor a new target. Readers always see a complete, self-consistent
// Pose, never a torn write.
type SharedFeedback struct {
	snap atomic.Pointer[feedbackSnapshot]
}

type feedbackSnapshot struct {
	pose  pose.Pose
	valid bool
}

// NewSharedFeedback returns a SharedFeedback with no pose recorded yet.
func NewSharedFeedback() *SharedFeedback {
	f := &SharedFeedback{}
	f.snap.Store(&feedbackSnapshot{})
	return f
}

// Set publishes p as the robot's current pose and marks the feedback
// valid.
func (f *SharedFeedback) Set(p pose.Pose) {
	f.snap.Store(&feedbackSnapshot{pose: p, valid: true})
}

// Get returns the most recently published pose and whether any pose has
// been published yet.
func (f *SharedFeedback) Get() (pose.Pose, bool) {
	s := f.snap.Load()
	return s.pose, s.valid
}

// Valid reports whether the servo loop has published at least one pose.
func (f *SharedFeedback) Valid() bool {
	return f.snap.Load().valid
}
