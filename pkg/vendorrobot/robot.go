package vendorrobot

import "github.com/armteleop/cobotservo/pkg/pose"

// Robot is the capability contract the servo driver needs from an arm,
// independent of whether it's a real controller over b-CAP or a dummy
// used for testing. Every method may return a Fault; callers use its
// Kind to decide whether to retry inline, run automatic recovery, or
// give up.
type Robot interface {
	// Start opens the underlying session (dial, handshake, acquire
	// controller/robot handles).
	Start() error
	// Enable clears safety/teaching-pendant errors, takes axis
	// control, and energises the motors.
	Enable() error
	// DefaultPose returns the pose the arm should move to before
	// entering slave mode.
	DefaultPose() pose.Figured
	// MoveAbsoluteBlocking issues a point-to-point move and blocks
	// until the arm reaches it.
	MoveAbsoluteBlocking(p pose.Figured) error
	// CurrentPose reads the arm's current TCP pose.
	CurrentPose() (pose.Pose, error)
	// EnterSlaveMode configures the slave output format and switches
	// the arm into the given slave sub-mode (0x001, 0x101, or 0x201).
	EnterSlaveMode(mode int) error
	// LeaveSlaveMode returns the arm to mode 0x000.
	LeaveSlaveMode() error
	// MoveSlave commands one slave-mode setpoint and returns the
	// arm's reported position.
	MoveSlave(p pose.Figured) (pose.Pose, error)
	// IsInRange reports whether p is within the arm's soft limits and
	// reachable without passing through a singularity.
	IsInRange(p pose.Figured) (bool, error)
	// TryAutomaticRecover attempts the standard recovery procedure for
	// a Fault, returning true if it succeeded and slave mode was
	// re-entered. For a fault whose Kind is not FaultTransient it
	// returns (false, nil) without attempting recovery.
	TryAutomaticRecover(f Fault) (bool, error)
	// Disable de-energises the motors and releases axis control.
	Disable() error
	// Stop tears down the session.
	Stop() error
}
