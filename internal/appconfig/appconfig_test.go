package appconfig

import "testing"

func TestValidateDefaultConfigIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() on default config: %v", err)
	}
}

func TestValidateRejectsUnknownFeeder(t *testing.T) {
	c := Default()
	c.Feeder = "carrier-pigeon"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown feeder")
	}
}

func TestValidateRequiresReplayPath(t *testing.T) {
	c := Default()
	c.Feeder = string(FeederReplay)
	c.ReplayPath = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing replay-path")
	}
	c.ReplayPath = "session.jsonl"
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() with replay-path set: %v", err)
	}
}

func TestValidateRejectsUnknownAngleUnit(t *testing.T) {
	c := Default()
	c.InputAngleUnit = "gradians"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown angle unit")
	}
}

func TestValidateRejectsUnknownSlaveSubMode(t *testing.T) {
	c := Default()
	c.SlaveSubMode = 0x999
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown slave sub-mode")
	}
	for _, mode := range []int{0x001, 0x101, 0x201} {
		c.SlaveSubMode = mode
		if err := c.Validate(); err != nil {
			t.Errorf("Validate() with slave-sub-mode=0x%x: %v", mode, err)
		}
	}
}

func TestValidateRejectsUnknownFigureMode(t *testing.T) {
	c := Default()
	c.FigureMode = "spin-to-win"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown figure mode")
	}
}

func TestValidateRejectsNonPositiveVelocityLimits(t *testing.T) {
	c := Default()
	c.VLimPos = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for zero v-lim-pos")
	}
	c = Default()
	c.VLimRot = -1
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for negative v-lim-rot")
	}
}

func TestValidateRejectsNonPositiveIntervals(t *testing.T) {
	c := Default()
	c.ControlInterval = 0
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for zero control-interval")
	}
	c = Default()
	c.RobotInterval = -0.1
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for negative robot-interval")
	}
}

func TestValidateDefaultsPacingIntervalToRobotInterval(t *testing.T) {
	c := Default()
	c.PacingInterval = 0
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate(): %v", err)
	}
	if c.PacingInterval != c.RobotInterval {
		t.Errorf("PacingInterval = %v, want %v (RobotInterval)", c.PacingInterval, c.RobotInterval)
	}
}

func TestRobotIntervalDuration(t *testing.T) {
	c := Default()
	c.RobotInterval = 0.008
	if got, want := c.RobotIntervalDuration().Seconds(), 0.008; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("RobotIntervalDuration() = %v, want %v", got, want)
	}
}
