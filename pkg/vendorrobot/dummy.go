package vendorrobot

import (
	"sync"

	"github.com/armteleop/cobotservo/pkg/pose"
)

// DummyMode selects how DummyRobot interprets a MoveSlave setpoint,
// useful for exercising the servo driver against inputs of different
// shapes without a real controller.
type DummyMode int

const (
	// DummyAbs treats every MoveSlave setpoint as absolute, matching
	// how the real controller's slave modes behave.
	DummyAbs DummyMode = iota
	// DummyDiff accumulates every MoveSlave setpoint onto the current
	// pose.
	DummyDiff
)

// DummyRobot is an in-memory stand-in for Robot, used in tests and for
// running the servo loop without hardware attached.
type DummyRobot struct {
	mu          sync.Mutex
	mode        DummyMode
	defaultPose pose.Figured
	current     pose.Pose
	inSlaveMode bool
	slaveSubMode int

	// FailNext, if non-nil, is returned (and cleared) by the next call
	// to MoveSlave, for exercising fault handling in tests.
	FailNext *Fault
}

// NewDummyRobot returns a DummyRobot starting at the origin pose.
func NewDummyRobot(mode DummyMode) *DummyRobot {
	return &DummyRobot{
		mode:        mode,
		defaultPose: pose.Figured{Fig: int(pose.FigurePreserve)},
	}
}

func (d *DummyRobot) Start() error { return nil }
func (d *DummyRobot) Enable() error { return nil }

func (d *DummyRobot) DefaultPose() pose.Figured {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.defaultPose
}

func (d *DummyRobot) MoveAbsoluteBlocking(p pose.Figured) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = p.Pose
	return nil
}

func (d *DummyRobot) CurrentPose() (pose.Pose, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current, nil
}

func (d *DummyRobot) EnterSlaveMode(mode int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inSlaveMode = true
	d.slaveSubMode = mode
	return nil
}

func (d *DummyRobot) LeaveSlaveMode() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inSlaveMode = false
	return nil
}

func (d *DummyRobot) MoveSlave(p pose.Figured) (pose.Pose, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.FailNext != nil {
		f := *d.FailNext
		d.FailNext = nil
		if f.Kind == FaultTransient || IsAutomaticallyRecoverable(f.Code) {
			d.inSlaveMode = false
		}
		return d.current, f
	}
	if !d.inSlaveMode {
		return d.current, Fault{Kind: FaultFatal, Code: faultNotInSlaveMode, Description: "not in slave mode"}
	}

	switch d.mode {
	case DummyDiff:
		d.current = d.current.Add(p.Pose)
	default:
		d.current = p.Pose
	}
	return d.current, nil
}

func (d *DummyRobot) IsInRange(pose.Figured) (bool, error) {
	return true, nil
}

func (d *DummyRobot) TryAutomaticRecover(f Fault) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f.Kind != FaultTransient {
		return false, nil
	}
	d.inSlaveMode = true
	return true, nil
}

func (d *DummyRobot) Disable() error { return nil }
func (d *DummyRobot) Stop() error    { return nil }
