package vendorrobot

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/armteleop/cobotservo/pkg/bcap"
	"github.com/armteleop/cobotservo/pkg/pose"
)

// BCAPRobot drives a real arm over pkg/bcap, matching the Denso Cobotta
// Pro 900 control sequence: ManualReset/ClearError/Takearm/ExtSpeed/
// Motor to enable, slvRecvFormat/slvChangeMode to enter slave mode,
// slvMove per tick, and the same three-trial motor-on recovery loop on
// a transient fault.
type BCAPRobot struct {
	host string
	port int

	defaultPose  pose.Figured
	defaultFig   int
	slaveSubMode int

	client *bcap.Client
	ctrl   bcap.Handle
	rob    bcap.Handle
}

// NewBCAPRobot returns a BCAPRobot targeting host:port, with the given
// default pose/figure and slave sub-mode (0x001, 0x101, or 0x201).
func NewBCAPRobot(host string, port int, defaultPose pose.Pose, defaultFig int, slaveSubMode int) *BCAPRobot {
	return &BCAPRobot{
		host:         host,
		port:         port,
		defaultPose:  pose.Figured{Pose: defaultPose, Fig: defaultFig},
		defaultFig:   defaultFig,
		slaveSubMode: slaveSubMode,
	}
}

// Start dials the controller, retrying the initial connect up to three
// times with exponential backoff before giving up: the 5s dial timeout
// is a per-attempt budget, not a one-shot deadline.
func (r *BCAPRobot) Start() error {
	var client *bcap.Client
	dial := func() error {
		c, err := bcap.Dial(r.host, r.port, 5*time.Second, 400*time.Millisecond)
		if err != nil {
			return err
		}
		client = c
		return nil
	}
	if err := backoff.Retry(dial, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)); err != nil {
		return err
	}
	r.client = client

	ctrl, err := client.ControllerConnect("", "CaoProv.DENSO.VRC9", "localhost", "")
	if err != nil {
		return r.fault(err)
	}
	r.ctrl = ctrl

	rob, err := client.ControllerGetRobot(ctrl, "Robot")
	if err != nil {
		return r.fault(err)
	}
	r.rob = rob
	return nil
}

func (r *BCAPRobot) Enable() error {
	if err := r.controllerExec("ManualReset"); err != nil {
		return err
	}
	if err := r.controllerExec("ClearError"); err != nil {
		return err
	}
	if err := r.robotExec("Takearm", 0, 0); err != nil {
		return err
	}
	if err := r.robotExec("ExtSpeed", 20); err != nil {
		return err
	}
	return r.robotExec("Motor", 1)
}

func (r *BCAPRobot) DefaultPose() pose.Figured {
	return r.defaultPose
}

func (r *BCAPRobot) MoveAbsoluteBlocking(p pose.Figured) error {
	fig := p.Fig
	if fig == 0 {
		fig = r.defaultFig
	}
	cmd := fmt.Sprintf("@E P(%v, %v, %v, %v, %v, %v, %d)", p.X, p.Y, p.Z, p.RX, p.RY, p.RZ, fig)
	return r.fault(r.client.RobotMove(r.rob, 2, cmd))
}

func (r *BCAPRobot) CurrentPose() (pose.Pose, error) {
	var cur [7]float64
	if err := r.client.RobotExecute(r.rob, "CurPos", &cur); err != nil {
		return pose.Pose{}, r.fault(err)
	}
	return pose.FromArray([6]float64{cur[0], cur[1], cur[2], cur[3], cur[4], cur[5]}), nil
}

func (r *BCAPRobot) EnterSlaveMode(mode int) error {
	if err := r.controllerExec("ManualReset"); err != nil {
		return err
	}
	if err := r.robotExec("slvRecvFormat", 0x0011, 1); err != nil {
		return err
	}
	if err := r.controllerExec("ClearError"); err != nil {
		return err
	}
	r.slaveSubMode = mode
	return r.robotExec("slvChangeMode", mode)
}

func (r *BCAPRobot) LeaveSlaveMode() error {
	return r.robotExec("slvChangeMode", 0x000)
}

func (r *BCAPRobot) MoveSlave(p pose.Figured) (pose.Pose, error) {
	fig := p.Fig
	if fig == 0 {
		fig = r.defaultFig
	}
	var result [6]float64
	err := r.client.RobotExecute(r.rob, "slvMove", &result,
		p.X, p.Y, p.Z, p.RX, p.RY, p.RZ, fig)
	if err != nil {
		if r.slaveSubMode == 0x001 {
			if bf, ok := err.(*bcap.Fault); ok && bf.Code == faultBufFull {
				// mode 0x001's buffer-overflow retry: resend the same
				// setpoint rather than treating it as a fault.
				return r.MoveSlave(p)
			}
		}
		return pose.Pose{}, r.fault(err)
	}
	return pose.FromArray(result), nil
}

func (r *BCAPRobot) IsInRange(p pose.Figured) (bool, error) {
	fig := p.Fig
	if fig == 0 {
		fig = r.defaultFig
	}
	var code int
	err := r.client.RobotExecute(r.rob, "OutRange", &code, p.X, p.Y, p.Z, p.RX, p.RY, p.RZ, fig)
	if err != nil {
		return false, r.fault(err)
	}
	return code == 0, nil
}

// TryAutomaticRecover runs the documented recovery sequence for a
// transient fault: ManualReset, ClearError, then a single trial budget
// shared across energising the motor and re-entering the previous slave
// sub-mode. If slvChangeMode fails with E_MOTOR_OFF, the motor dropped
// again before the mode change completed, so the whole motor-on
// sequence is redone against the same remaining trial budget rather
// than retrying slvChangeMode in isolation.
func (r *BCAPRobot) TryAutomaticRecover(f Fault) (bool, error) {
	if f.Kind != FaultTransient {
		return false, nil
	}

	if err := r.controllerExec("ManualReset"); err != nil {
		return false, err
	}
	if err := r.controllerExec("ClearError"); err != nil {
		return false, err
	}

	const maxTrials = 3
	trial := 0
	for {
		for {
			trial++
			err := r.robotExec("Motor", 1, 0)
			if err == nil {
				break
			}
			mf, ok := asFault(err)
			if !ok || mf.Code != faultMotorOnWhileOffTrans || trial == maxTrials {
				return false, err
			}
			r.controllerExec("ClearError")
			time.Sleep(time.Millisecond)
		}

		err := r.robotExec("slvChangeMode", r.slaveSubMode)
		if err == nil {
			break
		}
		mf, ok := asFault(err)
		if !ok || mf.Code != faultMotorOff || trial == maxTrials {
			return false, err
		}
		r.controllerExec("ClearError")
		time.Sleep(time.Millisecond)
	}

	time.Sleep(time.Second)
	return true, nil
}

func (r *BCAPRobot) Disable() error {
	if err := r.robotExec("Motor", 0); err != nil {
		if f, ok := asFault(err); !ok || f.Code != -2147023170 {
			return err
		}
	}
	return r.robotExec("Givearm")
}

func (r *BCAPRobot) Stop() error {
	if r.rob != 0 {
		r.client.RobotRelease(r.rob)
		r.rob = 0
	}
	if r.ctrl != 0 {
		r.client.ControllerDisconnect(r.ctrl)
		r.ctrl = 0
	}
	if r.client != nil {
		err := r.client.Close()
		r.client = nil
		return err
	}
	return nil
}

func (r *BCAPRobot) controllerExec(funcName string, args ...interface{}) error {
	return r.fault(r.client.ControllerExecute(r.ctrl, funcName, nil, args...))
}

func (r *BCAPRobot) robotExec(funcName string, args ...interface{}) error {
	return r.fault(r.client.RobotExecute(r.rob, funcName, nil, args...))
}

// fault wraps a transport-level error into a classified Fault. A nil
// error passes through. A *bcap.Fault is classified by HRESULT; a
// connection-level error becomes FaultProtocolLost.
func (r *BCAPRobot) fault(err error) error {
	if err == nil {
		return nil
	}
	if bf, ok := err.(*bcap.Fault); ok {
		return r.describeAndClassify(bf)
	}
	return Fault{Kind: FaultProtocolLost, Description: err.Error()}
}

func (r *BCAPRobot) describeAndClassify(bf *bcap.Fault) Fault {
	desc := bf.Description
	if desc == "" && r.client != nil {
		var got string
		if err := r.client.ControllerExecute(r.ctrl, "GetErrorDescription", &got, bf.Code); err == nil {
			desc = got
		}
	}
	return Classify(bf.Code, desc)
}

func asFault(err error) (Fault, bool) {
	f, ok := err.(Fault)
	return f, ok
}
