// Package pose defines the Cartesian TCP pose type and the angle
// normalisation rules shared by the planner and servo driver.
package pose

import (
	"fmt"
	"math"
)

// FigureMode selects how the controller auto-resolves arm configuration
// (shoulder/elbow/wrist branch) when a Pose's Figure is left automatic.
type FigureMode int

const (
	// FigurePreserve prefers branch continuity with the previous pose.
	FigurePreserve FigureMode = -2
	// FigureAvoidError prefers any branch that stays reachable.
	FigureAvoidError FigureMode = -3
)

// Pose is the ordered 6-tuple (x, y, z, rx, ry, rz): position in
// millimetres, rotation in degrees.
type Pose struct {
	X, Y, Z    float64
	RX, RY, RZ float64
}

// Figured extends Pose with the arm-configuration branch selector.
type Figured struct {
	Pose
	Fig int
}

// Array returns the pose as a 6-element array in (x,y,z,rx,ry,rz) order,
// the wire order used by the vendor protocol and by recording events.
func (p Pose) Array() [6]float64 {
	return [6]float64{p.X, p.Y, p.Z, p.RX, p.RY, p.RZ}
}

// FromArray builds a Pose from a 6-element (x,y,z,rx,ry,rz) array.
func FromArray(a [6]float64) Pose {
	return Pose{X: a[0], Y: a[1], Z: a[2], RX: a[3], RY: a[4], RZ: a[5]}
}

// Add returns the element-wise sum of two poses.
func (p Pose) Add(o Pose) Pose {
	return Pose{
		X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z,
		RX: p.RX + o.RX, RY: p.RY + o.RY, RZ: p.RZ + o.RZ,
	}
}

// Sub returns the element-wise difference p - o.
func (p Pose) Sub(o Pose) Pose {
	return Pose{
		X: p.X - o.X, Y: p.Y - o.Y, Z: p.Z - o.Z,
		RX: p.RX - o.RX, RY: p.RY - o.RY, RZ: p.RZ - o.RZ,
	}
}

// Scale returns every component of p multiplied by k.
func (p Pose) Scale(k float64) Pose {
	return Pose{
		X: p.X * k, Y: p.Y * k, Z: p.Z * k,
		RX: p.RX * k, RY: p.RY * k, RZ: p.RZ * k,
	}
}

// Wrap360 normalises an angle in degrees into [0, 360).
func Wrap360(deg float64) float64 {
	r := mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}

// Wrap180 normalises an angle in degrees into [-180, 180).
func Wrap180(deg float64) float64 {
	return mod(deg+180, 360) - 180
}

// mod is the floored modulo: the result always has the same sign as b.
func mod(a, b float64) float64 {
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

// Norm360 returns p with its rotational components wrapped into [0, 360).
// Position components are left untouched, matching
// mqtt_control_utils/angle.py's norm_pose_360.
func (p Pose) Norm360() Pose {
	return Pose{
		X: p.X, Y: p.Y, Z: p.Z,
		RX: Wrap360(p.RX), RY: Wrap360(p.RY), RZ: Wrap360(p.RZ),
	}
}

// Norm180 returns p with its rotational components wrapped into [-180, 180).
func (p Pose) Norm180() Pose {
	return Pose{
		X: p.X, Y: p.Y, Z: p.Z,
		RX: Wrap180(p.RX), RY: Wrap180(p.RY), RZ: Wrap180(p.RZ),
	}
}

// MaxAbsPos returns the largest absolute value among the position axes.
func (p Pose) MaxAbsPos() float64 {
	return maxAbs(p.X, p.Y, p.Z)
}

// MaxAbsRot returns the largest absolute value among the rotation axes.
func (p Pose) MaxAbsRot() float64 {
	return maxAbs(p.RX, p.RY, p.RZ)
}

func maxAbs(vs ...float64) float64 {
	m := 0.0
	for _, v := range vs {
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}

// Series is a nonempty ordered sequence of commanded poses, one per
// consecutive control tick. It is produced by a single Planner update
// and consumed atomically by the Servo Driver.
type Series []Pose

// Validate reports whether s satisfies the PoseSeries invariant: it must
// be nonempty and no longer than the ramp-plus-dwell bound for the given
// target/robot intervals: n = floor(2T/h) ramp samples plus ceil(n/2)
// dwell samples.
func (s Series) Validate(targetInterval, robotInterval float64) error {
	if len(s) == 0 {
		return fmt.Errorf("pose series must be nonempty")
	}
	n := int(2 * targetInterval / robotInterval)
	maxLen := n + (n+1)/2
	if len(s) > maxLen {
		return fmt.Errorf("pose series length %d exceeds bound %d for target_interval=%v robot_interval=%v", len(s), maxLen, targetInterval, robotInterval)
	}
	return nil
}
