package servo

import (
	"context"
	"testing"
	"time"

	"github.com/armteleop/cobotservo/pkg/planner"
	"github.com/armteleop/cobotservo/pkg/pose"
	"github.com/armteleop/cobotservo/pkg/vendorrobot"
)

func newTestDriver(t *testing.T, robot vendorrobot.Robot) (*Driver, *planner.Handoff[pose.Series], *planner.SharedFeedback) {
	t.Helper()
	handoff := planner.NewHandoff[pose.Series]()
	feedback := planner.NewSharedFeedback()
	cfg := Config{
		Interval:     time.Millisecond,
		SlaveSubMode: 0x201,
		SettleDelay:  0,
	}
	return New(robot, handoff, feedback, cfg), handoff, feedback
}

func TestDriverRunsSeriesAndPublishesFeedback(t *testing.T) {
	robot := vendorrobot.NewDummyRobot(vendorrobot.DummyAbs)
	d, handoff, feedback := newTestDriver(t, robot)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// give Run a moment to complete startup (Start/Enable/default move/
	// slave mode) before publishing a series.
	time.Sleep(20 * time.Millisecond)
	handoff.Publish(pose.Series{
		{X: 1}, {X: 2}, {X: 3},
	})

	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if d.TickCount() == 0 {
		t.Error("expected at least one tick to have moved the robot")
	}
	p, ok := feedback.Get()
	if !ok {
		t.Fatal("expected feedback to be published")
	}
	if p.X != 3 {
		t.Errorf("final feedback X = %v, want 3 (last series entry)", p.X)
	}
}

func TestDriverRecoversFromTransientFault(t *testing.T) {
	robot := vendorrobot.NewDummyRobot(vendorrobot.DummyAbs)
	d, handoff, _ := newTestDriver(t, robot)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	robot.FailNext = &vendorrobot.Fault{Kind: vendorrobot.FaultTransient}
	handoff.Publish(pose.Series{{X: 1}, {X: 2}})

	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("expected the driver to recover and keep running, got error: %v", err)
	}
}

func TestDriverPacesSlaveSubMode0x101(t *testing.T) {
	handoff := planner.NewHandoff[pose.Series]()
	feedback := planner.NewSharedFeedback()
	cfg := Config{
		Interval:       time.Millisecond,
		SlaveSubMode:   0x101,
		SettleDelay:    0,
		PacingInterval: 30 * time.Millisecond,
	}
	robot := vendorrobot.NewDummyRobot(vendorrobot.DummyAbs)
	d := New(robot, handoff, feedback, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	handoff.Publish(pose.Series{{X: 1}, {X: 2}, {X: 3}})

	for d.TickCount() < 3 {
		time.Sleep(time.Millisecond)
		if time.Since(start) > time.Second {
			t.Fatal("timed out waiting for three ticks")
		}
	}
	elapsed := time.Since(start)
	cancel()
	<-done

	// three ticks at a 30ms external wait should take at least ~60ms
	// between the first and the last, well above the 1ms ticker period.
	if elapsed < 60*time.Millisecond {
		t.Errorf("three ticks in 0x101 completed in %v, want >= ~60ms given PacingInterval", elapsed)
	}
}

func TestDriverStopsOnFatalFault(t *testing.T) {
	robot := vendorrobot.NewDummyRobot(vendorrobot.DummyAbs)
	d, handoff, _ := newTestDriver(t, robot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	robot.FailNext = &vendorrobot.Fault{Kind: vendorrobot.FaultFatal}
	handoff.Publish(pose.Series{{X: 1}})

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected Run to return an error for a fatal fault")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after a fatal fault")
	}
}
