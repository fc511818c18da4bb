package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/armteleop/cobotservo/internal/appconfig"
	"github.com/armteleop/cobotservo/internal/logging"
	"github.com/armteleop/cobotservo/pkg/planner"
	"github.com/armteleop/cobotservo/pkg/pose"
	"github.com/armteleop/cobotservo/pkg/recording"
	"github.com/armteleop/cobotservo/pkg/servo"
	"github.com/armteleop/cobotservo/pkg/target"
	"github.com/armteleop/cobotservo/pkg/telemetry"
	"github.com/armteleop/cobotservo/pkg/transform"
	"github.com/armteleop/cobotservo/pkg/vendorrobot"
)

// defaultSourceTransform is the default live-feed axis convention: the
// teleoperation source frame and the robot frame differ in their y/z
// handedness.
var defaultSourceTransform = map[string]string{
	"x": "-x", "y": "z", "z": "y",
	"xd": "-xd", "yd": "zd", "zd": "yd",
}

// defaultArmPose is the fixed pose the servo driver moves to before
// entering slave mode.
var defaultArmPose = pose.Pose{X: 560, Y: 150, Z: 460, RX: 180, RY: 0, RZ: 90}

func figureModeInt(mode string) int {
	if mode == "avoid-error" {
		return int(pose.FigureAvoidError)
	}
	return int(pose.FigurePreserve)
}

// runSession wires the feeder, planner, and servo driver together and
// runs them until ctx is cancelled or a component returns a fatal
// error. It owns the session-scoped recorder and robot connection.
func runSession(ctx context.Context, c appconfig.Config, feeder target.Feeder) error {
	sid := sessionID()
	log := logging.L().With(zap.String("session_id", sid))
	log.Info("starting cobotservo session")

	var recorder *recording.Recorder
	if c.RecordPath != "" {
		r, err := recording.New(c.RecordPath)
		if err != nil {
			return errors.Wrap(err, "session: open recorder")
		}
		defer r.Close()
		recorder = r
	}

	var feedRecorder *recording.Recorder
	if c.SaveFeedPath != "" {
		r, err := recording.New(c.SaveFeedPath)
		if err != nil {
			return errors.Wrap(err, "session: open feed recorder")
		}
		defer r.Close()
		feedRecorder = r
	}
	if live, ok := feeder.(*target.LiveFeeder); ok && feedRecorder != nil {
		live.SetRecorder(feedRecorder)
	}

	xform, err := transform.New(defaultSourceTransform)
	if err != nil {
		return errors.Wrap(err, "session: build coordinate transform")
	}

	feedback := planner.NewSharedFeedback()
	handoff := planner.NewHandoff[pose.Series]()

	plannerCfg := planner.Config{
		Transform:       xform,
		ScaleMqttVsReal: c.ScaleMqttVsReal,
		InputAngleUnit:  c.InputAngleUnit,
		UseAllTarget:    c.UseAllTarget,
		WaitForRobot:    c.WaitForRobot,
		ControlInterval: c.ControlInterval,
		RobotInterval:   c.RobotInterval,
		VLimPos:         c.VLimPos,
		VLimRot:         c.VLimRot,
	}
	p := planner.New(plannerCfg, feedback, handoff)
	if recorder != nil {
		p.SetRecorder(recorder)
	}

	robot, err := buildRobot(c)
	if err != nil {
		return errors.Wrap(err, "session: build robot")
	}

	driverCfg := servo.Config{
		Interval:       c.RobotIntervalDuration(),
		SlaveSubMode:   c.SlaveSubMode,
		DefaultFig:     figureModeInt(c.FigureMode),
		SettleDelay:    time.Second,
		PacingInterval: time.Duration(c.PacingInterval * float64(time.Second)),
	}
	driver := servo.New(robot, handoff, feedback, driverCfg)
	if recorder != nil {
		driver.SetRecorder(recorder)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var telemetryHub *telemetry.Hub
	if c.TelemetryAddr != "" {
		telemetryHub = telemetry.NewHub()
		srv := &http.Server{Addr: c.TelemetryAddr, Handler: telemetryHub}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("telemetry server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
		defer telemetryHub.Close()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		feeder.SetSink(p.OnTarget)
		if err := feeder.Start(); err != nil {
			return errors.Wrap(err, "session: start feeder")
		}
		<-gctx.Done()
		feeder.Stop()
		feeder.Join()
		return nil
	})

	g.Go(func() error {
		err := driver.Run(gctx)
		if err != nil {
			return errors.Wrap(err, "session: servo driver")
		}
		return nil
	})

	if telemetryHub != nil {
		g.Go(func() error {
			publishTelemetry(gctx, sid, p, feedback, driver, telemetryHub)
			return nil
		})
	}

	err = g.Wait()
	log.Info("session stopped",
		zap.Uint64("ticks", driver.TickCount()),
		zap.Uint64("errors", driver.ErrorCount()),
	)
	return err
}

// publishTelemetry pushes a Status snapshot to the telemetry hub at a
// fixed, low rate — it reports on the session for external observers,
// it is not in the servo tick's critical path.
func publishTelemetry(ctx context.Context, sid string, p *planner.Planner, feedback *planner.SharedFeedback, driver *servo.Driver, hub *telemetry.Hub) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		robotPose, _ := feedback.Get()
		hub.Publish(telemetry.Status{
			SessionID:    sid,
			Time:         time.Now(),
			PlannerState: p.State().String(),
			RobotPose:    robotPose,
			TickCount:    driver.TickCount(),
			ErrorCount:   driver.ErrorCount(),
		})
	}
}

// buildRobot constructs the vendorrobot.Robot for a session: a dummy
// in-memory robot when requested (development, CI), otherwise a real
// vendor connection. The initial dial's retry happens inside
// BCAPRobot.Start, which servo.Driver.Run calls as the first step of
// the session lifecycle.
func buildRobot(c appconfig.Config) (vendorrobot.Robot, error) {
	if c.DummyRobot {
		return vendorrobot.NewDummyRobot(vendorrobot.DummyAbs), nil
	}
	return vendorrobot.NewBCAPRobot(c.RobotHost, c.RobotPort, defaultArmPose, figureModeInt(c.FigureMode), c.SlaveSubMode), nil
}
