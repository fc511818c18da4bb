// Package planner turns a stream of teleoperation target poses into
// commanded pose series for the servo driver. It tracks an anchor pose
// pair (the target frame's origin and the robot's origin at the moment
// teleoperation was armed) and expresses every subsequent target as a
// relative motion from that anchor, so the operator's physical starting
// position never has to coincide with the robot's.
package planner

import (
	"math"
	"sync"
	"time"

	"github.com/armteleop/cobotservo/pkg/interp"
	"github.com/armteleop/cobotservo/pkg/pose"
	"github.com/armteleop/cobotservo/pkg/recording"
	"github.com/armteleop/cobotservo/pkg/target"
	"github.com/armteleop/cobotservo/pkg/transform"
)

// State is the planner's two-state machine: Reset waits for an anchor
// pose pair, Armed emits commanded series for every qualifying target
// update.
type State int

const (
	StateReset State = iota
	StateArmed
)

func (s State) String() string {
	if s == StateArmed {
		return "armed"
	}
	return "reset"
}

// Config holds every tunable the planner needs, independent of how it
// was sourced (CLI flags, defaults, a config file).
type Config struct {
	// Transform maps the teleoperation source frame onto the robot
	// frame before any scaling or normalisation.
	Transform transform.Transform
	// ScaleMqttVsReal scales the transformed position by a constant
	// factor, e.g. to map a VR controller's reach onto the robot's.
	ScaleMqttVsReal float64
	// InputAngleUnit is "deg" or "rad"; "rad" inputs are converted to
	// degrees before normalisation.
	InputAngleUnit string
	// UseAllTarget recomputes a control series on every target update,
	// even when the target pose hasn't changed since the last one.
	UseAllTarget bool
	// WaitForRobot blocks OnTarget until the servo loop has published
	// at least one feedback pose, instead of silently dropping targets
	// received before that point. Used for deterministic replay runs.
	WaitForRobot bool
	// ControlInterval is the average spacing between target updates;
	// it sizes the default (non-stretched) factor table.
	ControlInterval float64
	// RobotInterval is the servo loop's tick period.
	RobotInterval float64
	// VLimPos and VLimRot bound the average linear/rotational speed a
	// commanded series is allowed to imply.
	VLimPos, VLimRot float64
}

// Planner is the target-to-series state machine described by the
// package doc. It is safe for concurrent calls to OnTarget and Reset,
// though in practice OnTarget is driven by a single feeder goroutine.
type Planner struct {
	cfg      Config
	feedback *SharedFeedback
	handoff  *Handoff[pose.Series]
	recorder *recording.Recorder

	defaultFactors []float64

	mu         sync.Mutex
	state      State
	baseRobot  pose.Pose
	baseTarget pose.Pose
	lastTarget pose.Pose
}

// New builds a Planner wired to feedback (written by the servo loop)
// and handoff (read by the servo loop), starting in StateReset.
func New(cfg Config, feedback *SharedFeedback, handoff *Handoff[pose.Series]) *Planner {
	p := &Planner{
		cfg:            cfg,
		feedback:       feedback,
		handoff:        handoff,
		defaultFactors: interp.Factors(cfg.ControlInterval, cfg.RobotInterval),
	}
	p.Reset()
	return p
}

// SetRecorder attaches an optional event recorder. Pass nil to disable
// recording.
func (p *Planner) SetRecorder(r *recording.Recorder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recorder = r
}

// Reset returns the planner to StateReset: the next qualifying target
// will re-anchor the target/robot origin pair before any motion is
// commanded again.
func (p *Planner) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateReset
	p.lastTarget = pose.Pose{}
}

// State reports the planner's current state.
func (p *Planner) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func wallClock() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// OnTarget consumes one teleoperation sample. It is the planner's only
// externally driven transition: arming the state machine on the first
// sample after a Reset, then emitting a commanded pose.Series on the
// handoff for every sample that moves the target and isn't paused by
// the hold button.
func (p *Planner) OnTarget(msg target.Message) {
	targetPose := p.toRobotFrame(msg)

	if p.recorder != nil {
		arr := targetPose.Array()
		p.recorder.Log(recording.KindTarget, arr[:], msg.Time)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateReset {
		if !p.awaitFeedback() {
			return
		}
		robotPose, _ := p.feedback.Get()
		p.baseRobot = robotPose
		p.baseTarget = targetPose
		p.lastTarget = targetPose
		p.state = StateArmed
		return
	}

	changed := p.cfg.UseAllTarget || targetPose != p.lastTarget
	p.lastTarget = targetPose
	if changed {
		if msg.Pad != nil && msg.Pad.B0 != 0 {
			// hold button engaged: track the target but don't move the robot
		} else {
			p.emitSeries(targetPose)
		}
	}

	if msg.Pad != nil && msg.Pad.BA {
		p.state = StateReset
		p.lastTarget = pose.Pose{}
	}
}

// awaitFeedback reports whether the servo loop has published a pose.
// When WaitForRobot is set (deterministic replay), it blocks until one
// arrives instead of dropping the sample. Caller holds p.mu.
func (p *Planner) awaitFeedback() bool {
	if p.feedback.Valid() {
		return true
	}
	if !p.cfg.WaitForRobot {
		return false
	}
	p.mu.Unlock()
	defer p.mu.Lock()
	for !p.feedback.Valid() {
		time.Sleep(time.Millisecond)
	}
	return true
}

// emitSeries computes the commanded pose series for a new target pose
// and publishes it on the handoff. Caller holds p.mu.
func (p *Planner) emitSeries(targetPose pose.Pose) {
	robotPose, _ := p.feedback.Get()

	targetRel := targetPose.Sub(p.baseTarget).Norm360()
	robotRel := robotPose.Sub(p.baseRobot).Norm360()
	diffControl := targetRel.Sub(robotRel).Norm180()

	base := p.baseRobot.Add(robotRel).Norm360()
	if p.recorder != nil {
		t := wallClock()
		arr := base.Array()
		p.recorder.Log(recording.KindBase, arr[:], t)
		darr := diffControl.Array()
		p.recorder.Log(recording.KindDiffControl, darr[:], t)
	}

	reqDuration := interp.RequiredDuration(diffControl.MaxAbsPos(), diffControl.MaxAbsRot(), p.cfg.VLimPos, p.cfg.VLimRot)
	factors := interp.FactorsForMotion(p.defaultFactors, reqDuration, p.cfg.ControlInterval, p.cfg.RobotInterval)

	series := make(pose.Series, len(factors))
	for i, f := range factors {
		series[i] = base.Add(diffControl.Scale(f)).Norm360()
	}
	p.handoff.Publish(series)

	if p.recorder != nil {
		rows := make([][6]float64, len(series))
		for i, s := range series {
			rows[i] = s.Array()
		}
		p.recorder.Log(recording.KindControl, rows, wallClock())
	}
}

// toRobotFrame converts a raw teleoperation Message into the robot
// frame: axis transform, scale, angle-unit conversion, and wrap-to-360
// normalisation.
func (p *Planner) toRobotFrame(msg target.Message) pose.Pose {
	rx, ry, rz := msg.Ori.X, msg.Ori.Y, msg.Ori.Z
	if p.cfg.InputAngleUnit == "rad" {
		rx *= 180 / math.Pi
		ry *= 180 / math.Pi
		rz *= 180 / math.Pi
	}

	raw := pose.Pose{X: msg.Pos.X, Y: msg.Pos.Y, Z: msg.Pos.Z, RX: rx, RY: ry, RZ: rz}
	out := p.cfg.Transform.Apply(raw)

	out.X *= p.cfg.ScaleMqttVsReal
	out.Y *= p.cfg.ScaleMqttVsReal
	out.Z *= p.cfg.ScaleMqttVsReal

	return out.Norm360()
}
