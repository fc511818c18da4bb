// Package servo runs the high-rate control loop that drives a
// vendorrobot.Robot from the pose series the planner publishes,
// handling automatic fault recovery and publishing feedback back to the
// planner.
package servo

import (
	"context"
	"fmt"
	"time"

	"github.com/armteleop/cobotservo/internal/logging"
	"github.com/armteleop/cobotservo/pkg/planner"
	"github.com/armteleop/cobotservo/pkg/pose"
	"github.com/armteleop/cobotservo/pkg/recording"
	"github.com/armteleop/cobotservo/pkg/vendorrobot"
)

// Config holds the servo loop's fixed parameters.
type Config struct {
	// Interval is the target tick period, typically 8ms.
	Interval time.Duration
	// SlaveSubMode is the vendor slave sub-mode to enter: 0x001, 0x101,
	// or 0x201.
	SlaveSubMode int
	// DefaultFig is the arm-configuration branch selector used for
	// every commanded pose unless the pose overrides it.
	DefaultFig int
	// SettleDelay is how long to wait after the blocking move to the
	// default pose completes, absorbing controller-side settling before
	// slave mode is entered.
	SettleDelay time.Duration
	// PacingInterval is the external wait applied between slvMove calls
	// when SlaveSubMode is 0x101, whose per-call cadence is paced by the
	// caller rather than by the controller (0x201) or a buffer-full
	// retry (0x001).
	PacingInterval time.Duration
}

// Driver is the tick loop described by the package doc.
type Driver struct {
	robot    vendorrobot.Robot
	handoff  *planner.Handoff[pose.Series]
	feedback *planner.SharedFeedback
	recorder *recording.Recorder
	cfg      Config

	tickCount  uint64
	errorCount uint64
}

// New builds a Driver. handoff is read every tick for a freshly
// published series; feedback is written every tick with the robot's
// reported pose.
func New(robot vendorrobot.Robot, handoff *planner.Handoff[pose.Series], feedback *planner.SharedFeedback, cfg Config) *Driver {
	return &Driver{robot: robot, handoff: handoff, feedback: feedback, cfg: cfg}
}

// SetRecorder attaches an optional event recorder. Pass nil to disable
// recording.
func (d *Driver) SetRecorder(r *recording.Recorder) {
	d.recorder = r
}

// Run opens the session, enables the arm, moves it to its default
// pose, enters slave mode, and then runs the tick loop until ctx is
// cancelled or an unrecoverable fault occurs. It always tears the
// session down on return.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.robot.Start(); err != nil {
		return fmt.Errorf("servo: start: %w", err)
	}
	defer d.robot.Stop()

	if err := d.robot.Enable(); err != nil {
		return fmt.Errorf("servo: enable: %w", err)
	}
	defer d.robot.Disable()

	if err := d.robot.MoveAbsoluteBlocking(d.robot.DefaultPose()); err != nil {
		return fmt.Errorf("servo: move to default pose: %w", err)
	}
	// the controller reports the move complete slightly before the arm
	// has mechanically settled; wait SettleDelay before entering slave
	// mode.
	time.Sleep(d.cfg.SettleDelay)

	if err := d.robot.EnterSlaveMode(d.cfg.SlaveSubMode); err != nil {
		return fmt.Errorf("servo: enter slave mode: %w", err)
	}
	defer d.robot.LeaveSlaveMode()

	return d.loop(ctx)
}

func (d *Driver) loop(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	var series pose.Series
	i := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if next, ok := d.handoff.Take(); ok {
			series = next
			i = 0
		}

		if i < len(series) {
			if err := d.tickMove(series[i]); err != nil {
				return err
			}
			i++
		} else {
			d.tickIdle()
		}
	}
}

// tickMove commands one setpoint from the active series. On a fault it
// classifies and either lets the inline 0x001 buffer retry happen
// inside vendorrobot.Robot.MoveSlave, runs automatic recovery for a
// transient fault, or returns the fault for fatal/protocol-lost faults.
func (d *Driver) tickMove(p pose.Pose) error {
	cur, err := d.robot.MoveSlave(pose.Figured{Pose: p, Fig: d.cfg.DefaultFig})
	if err == nil {
		d.tickCount++
		d.feedback.Set(cur)
		d.recordControl(p)
		if d.cfg.SlaveSubMode == 0x101 && d.cfg.PacingInterval > 0 {
			time.Sleep(d.cfg.PacingInterval)
		}
		return nil
	}

	fault, ok := err.(vendorrobot.Fault)
	if !ok {
		d.errorCount++
		return fmt.Errorf("servo: move_slave: %w", err)
	}

	logging.L().Sugar().Warnf("servo: fault on move_slave: %v", fault)
	d.errorCount++

	if fault.Kind == vendorrobot.FaultFatal || fault.Kind == vendorrobot.FaultProtocolLost {
		return fmt.Errorf("servo: unrecoverable fault: %w", fault)
	}

	recovered, rerr := d.robot.TryAutomaticRecover(fault)
	if rerr != nil {
		return fmt.Errorf("servo: automatic recovery failed: %w", rerr)
	}
	if !recovered {
		return fmt.Errorf("servo: automatic recovery declined: %w", fault)
	}

	logging.L().Sugar().Info("servo: recovered from transient fault")
	cur, cerr := d.robot.CurrentPose()
	if cerr == nil {
		d.feedback.Set(cur)
	}
	return nil
}

func (d *Driver) tickIdle() {
	cur, err := d.robot.CurrentPose()
	if err != nil {
		return
	}
	d.feedback.Set(cur)
	d.recordState(cur)
}

func (d *Driver) recordControl(p pose.Pose) {
	if d.recorder == nil {
		return
	}
	arr := p.Array()
	d.recorder.Log(recording.KindControl, arr[:], wallClock())
}

func (d *Driver) recordState(p pose.Pose) {
	if d.recorder == nil {
		return
	}
	arr := p.Array()
	d.recorder.Log(recording.KindState, arr[:], wallClock())
}

func wallClock() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// TickCount and ErrorCount are diagnostics: the number of setpoints
// successfully commanded (idle and faulted ticks are not counted), and
// the number of slvMove calls that ended in a fault (recovered or not).
func (d *Driver) TickCount() uint64  { return d.tickCount }
func (d *Driver) ErrorCount() uint64 { return d.errorCount }
