// Package appconfig binds the cobotservo CLI surface to a single Config
// struct, following the flag-with-default pattern robot runner configs
// in this family use, expanded to every option the servo bridge needs
// and bound through pflag rather than bare env lookups.
package appconfig

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// FeederKind selects which Target Feeder variant a run uses.
type FeederKind string

const (
	FeederMQTT   FeederKind = "mqtt"
	FeederReplay FeederKind = "replay"
)

// Config is every tunable the servo bridge's CLI surface exposes, plus
// the ambient options (logging, recording) a production deployment
// needs.
type Config struct {
	// Feeder selects "mqtt" or "replay".
	Feeder string
	// BrokerHost / BrokerPort address the MQTT broker for the live
	// feeder.
	BrokerHost string
	BrokerPort int
	// ReplayPath is the JSON-Lines file a replay run reads targets
	// from.
	ReplayPath string
	// RecordPath, if non-empty, writes planner/servo events to a
	// JSON-Lines file for offline inspection.
	RecordPath string
	// SaveFeedPath, if non-empty, additionally records the raw MQTT
	// payloads of the live feeder to a JSON-Lines file. The replay
	// feeder does not write to it.
	SaveFeedPath string

	// RobotHost / RobotPort address the vendor controller.
	RobotHost string
	RobotPort int
	// DummyRobot runs against an in-memory stand-in instead of dialing
	// a real controller, for development and CI.
	DummyRobot bool

	// SlaveSubMode selects 0x001, 0x101, or 0x201.
	SlaveSubMode int
	// FigureMode selects the arm-configuration auto-resolution mode
	// ("preserve" or "avoid-error").
	FigureMode string

	// VLimPos and VLimRot bound commanded speed, mm/s and deg/s.
	VLimPos float64
	VLimRot float64
	// ScaleMqttVsReal scales teleoperation position deltas onto the
	// robot's reach.
	ScaleMqttVsReal float64
	// InputAngleUnit is "deg" or "rad"; defaults to "rad".
	InputAngleUnit string

	// ControlInterval is the average spacing between target updates,
	// seconds.
	ControlInterval float64
	// RobotInterval is the servo loop's tick period, seconds.
	RobotInterval float64
	// PacingInterval paces slave sub-mode 0x101's external wait; defaults
	// to RobotInterval.
	PacingInterval float64

	// UseAllTarget disables the idempotent-target skip in the planner.
	UseAllTarget bool
	// WaitForRobot makes the planner block for the first feedback pose
	// instead of dropping pre-feedback targets; used for deterministic
	// replay runs.
	WaitForRobot bool

	// LogLevel and LogJSON configure internal/logging.
	LogLevel string
	LogJSON  bool

	// TelemetryAddr, if non-empty, serves a WebSocket status feed
	// (pkg/telemetry) on this address for external observers. Optional;
	// nothing in the control pipeline reads it back.
	TelemetryAddr string
}

// Default returns a Config populated with the production deployment's
// defaults.
func Default() Config {
	return Config{
		Feeder:          string(FeederMQTT),
		BrokerHost:      "192.168.207.22",
		BrokerPort:      1883,
		RobotHost:       "192.168.5.45",
		RobotPort:       5007,
		SlaveSubMode:    0x201,
		FigureMode:      "preserve",
		VLimPos:         200,
		VLimRot:         200,
		ScaleMqttVsReal: 1.0,
		InputAngleUnit:  "rad",
		ControlInterval: 0.05,
		RobotInterval:   0.008,
		LogLevel:        "info",
	}
}

// BindFlags registers every Config field on fs: broker host/port,
// recording paths, feeder kind, slave sub-mode, figure mode, velocity
// limits, coordinate scale, angle unit, dummy-robot switch.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Feeder, "feeder", c.Feeder, "target feeder: mqtt or replay")
	fs.StringVar(&c.BrokerHost, "broker-host", c.BrokerHost, "MQTT broker host")
	fs.IntVar(&c.BrokerPort, "broker-port", c.BrokerPort, "MQTT broker port")
	fs.StringVar(&c.ReplayPath, "replay-path", c.ReplayPath, "JSON-Lines replay file (feeder=replay)")
	fs.StringVar(&c.RecordPath, "record-path", c.RecordPath, "JSON-Lines output recording path (optional)")
	fs.StringVar(&c.SaveFeedPath, "save-feed-path", c.SaveFeedPath, "JSON-Lines raw feed capture path (optional)")

	fs.StringVar(&c.RobotHost, "robot-host", c.RobotHost, "vendor controller host")
	fs.IntVar(&c.RobotPort, "robot-port", c.RobotPort, "vendor controller port")
	fs.BoolVar(&c.DummyRobot, "dummy-robot", c.DummyRobot, "use an in-memory dummy robot instead of dialing a controller")

	fs.IntVar(&c.SlaveSubMode, "slave-sub-mode", c.SlaveSubMode, "slave sub-mode: 0x1, 0x101, or 0x201")
	fs.StringVar(&c.FigureMode, "figure-mode", c.FigureMode, "arm-configuration auto mode: preserve or avoid-error")

	fs.Float64Var(&c.VLimPos, "v-lim-pos", c.VLimPos, "position velocity limit, mm/s")
	fs.Float64Var(&c.VLimRot, "v-lim-rot", c.VLimRot, "rotation velocity limit, deg/s")
	fs.Float64Var(&c.ScaleMqttVsReal, "scale", c.ScaleMqttVsReal, "teleoperation-to-robot position scale factor")
	fs.StringVar(&c.InputAngleUnit, "angle-unit", c.InputAngleUnit, "input angle unit: rad or deg")

	fs.Float64Var(&c.ControlInterval, "control-interval", c.ControlInterval, "average target update spacing, seconds")
	fs.Float64Var(&c.RobotInterval, "robot-interval", c.RobotInterval, "servo tick period, seconds")
	fs.Float64Var(&c.PacingInterval, "pacing-interval", c.PacingInterval, "external wait used by slave sub-mode 0x101; defaults to robot-interval")

	fs.BoolVar(&c.UseAllTarget, "use-all-target", c.UseAllTarget, "recompute a series on every target, even unchanged ones")
	fs.BoolVar(&c.WaitForRobot, "wait-for-robot", c.WaitForRobot, "block for first feedback pose instead of dropping pre-feedback targets")

	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.BoolVar(&c.LogJSON, "log-json", c.LogJSON, "emit structured JSON logs instead of console output")

	fs.StringVar(&c.TelemetryAddr, "telemetry-addr", c.TelemetryAddr, "optional host:port to serve a WebSocket status feed on")
}

// Validate reports a misuse-class configuration error: a programmer
// fault surfaced immediately at startup rather than discovered mid-run.
func (c *Config) Validate() error {
	if c.Feeder != string(FeederMQTT) && c.Feeder != string(FeederReplay) {
		return fmt.Errorf("appconfig: unknown feeder %q, want %q or %q", c.Feeder, FeederMQTT, FeederReplay)
	}
	if c.Feeder == string(FeederReplay) && c.ReplayPath == "" {
		return fmt.Errorf("appconfig: --replay-path is required when --feeder=replay")
	}
	if c.InputAngleUnit != "rad" && c.InputAngleUnit != "deg" {
		return fmt.Errorf("appconfig: unknown angle unit %q, want \"rad\" or \"deg\"", c.InputAngleUnit)
	}
	switch c.SlaveSubMode {
	case 0x001, 0x101, 0x201:
	default:
		return fmt.Errorf("appconfig: unknown slave sub-mode 0x%x, want 0x1, 0x101, or 0x201", c.SlaveSubMode)
	}
	if c.FigureMode != "preserve" && c.FigureMode != "avoid-error" {
		return fmt.Errorf("appconfig: unknown figure mode %q, want \"preserve\" or \"avoid-error\"", c.FigureMode)
	}
	if c.VLimPos <= 0 || c.VLimRot <= 0 {
		return fmt.Errorf("appconfig: velocity limits must be positive, got v-lim-pos=%v v-lim-rot=%v", c.VLimPos, c.VLimRot)
	}
	if c.ControlInterval <= 0 || c.RobotInterval <= 0 {
		return fmt.Errorf("appconfig: control-interval and robot-interval must be positive")
	}
	if c.PacingInterval == 0 {
		c.PacingInterval = c.RobotInterval
	}
	return nil
}

// RobotIntervalDuration returns RobotInterval as a time.Duration.
func (c *Config) RobotIntervalDuration() time.Duration {
	return time.Duration(c.RobotInterval * float64(time.Second))
}
