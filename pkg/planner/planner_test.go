package planner

import (
	"testing"

	"github.com/armteleop/cobotservo/pkg/pose"
	"github.com/armteleop/cobotservo/pkg/target"
	"github.com/armteleop/cobotservo/pkg/transform"
)

func newTestPlanner(t *testing.T) (*Planner, *SharedFeedback, *Handoff[pose.Series]) {
	t.Helper()
	fb := NewSharedFeedback()
	ho := NewHandoff[pose.Series]()
	cfg := Config{
		Transform:       transform.Identity(),
		ScaleMqttVsReal: 1,
		InputAngleUnit:  "deg",
		ControlInterval: 0.05,
		RobotInterval:   0.008,
		VLimPos:         200,
		VLimRot:         200,
	}
	p := New(cfg, fb, ho)
	return p, fb, ho
}

func msgAt(x, y, z float64) target.Message {
	var m target.Message
	m.Pos.X, m.Pos.Y, m.Pos.Z = x, y, z
	return m
}

func TestArmsOnFirstTargetAfterFeedback(t *testing.T) {
	p, fb, _ := newTestPlanner(t)
	fb.Set(pose.Pose{})

	if p.State() != StateReset {
		t.Fatalf("expected StateReset before first target")
	}
	p.OnTarget(msgAt(0, 0, 0))
	if p.State() != StateArmed {
		t.Fatalf("expected StateArmed after first target with valid feedback")
	}
}

func TestDropsTargetsBeforeFeedbackWithoutWait(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	// feedback never set, WaitForRobot defaults to false
	p.OnTarget(msgAt(0, 0, 0))
	if p.State() != StateReset {
		t.Fatalf("expected to remain in StateReset with no feedback")
	}
}

func TestStationaryTargetProducesNoSeries(t *testing.T) {
	p, fb, ho := newTestPlanner(t)
	fb.Set(pose.Pose{})
	p.OnTarget(msgAt(0, 0, 0)) // arm

	p.OnTarget(msgAt(0, 0, 0)) // unchanged target
	if _, ok := ho.Take(); ok {
		t.Error("expected no series for a stationary target")
	}
}

func TestXStepProducesSeriesEndingAtTarget(t *testing.T) {
	p, fb, ho := newTestPlanner(t)
	fb.Set(pose.Pose{})
	p.OnTarget(msgAt(0, 0, 0)) // arm

	p.OnTarget(msgAt(10, 0, 0)) // 10mm x-step
	series, ok := ho.Take()
	if !ok {
		t.Fatal("expected a published series")
	}
	if len(series) == 0 {
		t.Fatal("expected a non-empty series")
	}
	last := series[len(series)-1]
	if last.X < 9.9 || last.X > 10.1 {
		t.Errorf("last series pose X = %v, want ~10", last.X)
	}
}

func TestLargeStepStretchesTimeAndStillReachesTarget(t *testing.T) {
	p, fb, ho := newTestPlanner(t)
	fb.Set(pose.Pose{})
	p.OnTarget(msgAt(0, 0, 0))

	p.OnTarget(msgAt(100, 0, 0)) // requires stretching beyond one control interval
	series, ok := ho.Take()
	if !ok {
		t.Fatal("expected a published series")
	}
	// 100mm at 200mm/s implies 0.5s, well beyond the 0.05s default table
	if len(series) < 100 {
		t.Errorf("expected a long stretched series, got length %d", len(series))
	}
	last := series[len(series)-1]
	if last.X < 99.9 || last.X > 100.1 {
		t.Errorf("last series pose X = %v, want ~100", last.X)
	}
}

func TestHeldButtonSuppressesMotion(t *testing.T) {
	p, fb, ho := newTestPlanner(t)
	fb.Set(pose.Pose{})
	p.OnTarget(msgAt(0, 0, 0))

	m := msgAt(10, 0, 0)
	m.Pad = &target.Pad{B0: 1}
	p.OnTarget(m)
	if _, ok := ho.Take(); ok {
		t.Error("expected no series while the hold button is engaged")
	}
}

func TestResetButtonReturnsToResetState(t *testing.T) {
	p, fb, _ := newTestPlanner(t)
	fb.Set(pose.Pose{})
	p.OnTarget(msgAt(0, 0, 0))
	if p.State() != StateArmed {
		t.Fatal("expected StateArmed")
	}

	m := msgAt(5, 0, 0)
	m.Pad = &target.Pad{BA: true}
	p.OnTarget(m)
	if p.State() != StateReset {
		t.Error("expected StateReset after the reset button fires")
	}
}

func TestResetIsIdempotent(t *testing.T) {
	p, _, _ := newTestPlanner(t)
	p.Reset()
	p.Reset()
	if p.State() != StateReset {
		t.Error("Reset should be idempotent")
	}
}

func TestSeriesPreemptionKeepsOnlyNewest(t *testing.T) {
	p, fb, ho := newTestPlanner(t)
	fb.Set(pose.Pose{})
	p.OnTarget(msgAt(0, 0, 0))

	p.OnTarget(msgAt(5, 0, 0))
	p.OnTarget(msgAt(20, 0, 0)) // second update before the servo loop drains the handoff

	series, ok := ho.Take()
	if !ok {
		t.Fatal("expected a published series")
	}
	last := series[len(series)-1]
	if last.X < 19.9 || last.X > 20.1 {
		t.Errorf("expected only the newest series to survive, last X = %v, want ~20", last.X)
	}
	if _, ok := ho.Take(); ok {
		t.Error("expected the handoff to be empty after a single Take")
	}
}
