package vendorrobot

import (
	"testing"

	"github.com/armteleop/cobotservo/pkg/pose"
)

func TestDummyRobotRejectsMoveOutsideSlaveMode(t *testing.T) {
	d := NewDummyRobot(DummyAbs)
	_, err := d.MoveSlave(pose.Figured{Pose: pose.Pose{X: 1}})
	if err == nil {
		t.Fatal("expected an error when not in slave mode")
	}
	f, ok := err.(Fault)
	if !ok || f.Kind != FaultFatal {
		t.Errorf("expected FaultFatal, got %v", err)
	}
}

func TestDummyRobotAbsoluteMove(t *testing.T) {
	d := NewDummyRobot(DummyAbs)
	if err := d.EnterSlaveMode(0x201); err != nil {
		t.Fatalf("EnterSlaveMode: %v", err)
	}
	got, err := d.MoveSlave(pose.Figured{Pose: pose.Pose{X: 10, Y: 20}})
	if err != nil {
		t.Fatalf("MoveSlave: %v", err)
	}
	if got.X != 10 || got.Y != 20 {
		t.Errorf("got %+v, want X=10 Y=20", got)
	}
}

func TestDummyRobotRecoveryReentersSlaveMode(t *testing.T) {
	d := NewDummyRobot(DummyAbs)
	d.EnterSlaveMode(0x201)
	d.FailNext = &Fault{Kind: FaultTransient, Code: faultMotorOff}

	_, err := d.MoveSlave(pose.Figured{Pose: pose.Pose{X: 1}})
	if err == nil {
		t.Fatal("expected the injected fault")
	}
	f := err.(Fault)

	ok, err := d.TryAutomaticRecover(f)
	if err != nil || !ok {
		t.Fatalf("TryAutomaticRecover = (%v, %v), want (true, nil)", ok, err)
	}

	if _, err := d.MoveSlave(pose.Figured{Pose: pose.Pose{X: 5}}); err != nil {
		t.Errorf("expected slave mode restored after recovery, got %v", err)
	}
}

func TestDummyRobotDoesNotRecoverFatalFaults(t *testing.T) {
	d := NewDummyRobot(DummyAbs)
	ok, err := d.TryAutomaticRecover(Fault{Kind: FaultFatal, Code: hresult(0x81234567)})
	if err != nil || ok {
		t.Errorf("TryAutomaticRecover(fatal) = (%v, %v), want (false, nil)", ok, err)
	}
}
