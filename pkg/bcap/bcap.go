// Package bcap implements a lightweight RPC client in the style of the
// vendor's b-CAP controller protocol: a named-function call/response
// exchange (ControllerExecute, RobotExecute, RobotMove) addressed by
// opaque controller/robot handles obtained at connect time. The real
// b-CAP wire format (binary SOAP-derived framing with strict field
// ordering) is out of scope here; this client speaks a simplified
// length-prefixed JSON framing over the same TCP transport, enough to
// exercise the vendorrobot package against a test double or a bridge
// process that speaks b-CAP on the other side.
package bcap

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Handle identifies a controller or robot object returned by Connect
// calls, opaque to callers.
type Handle uint32

// request and response mirror a b-CAP function invocation: a function
// name and a flat argument list, or a result and fault.
type request struct {
	Func string        `json:"func"`
	Args []interface{} `json:"args,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Fault  *faultWire      `json:"fault,omitempty"`
}

type faultWire struct {
	Code        int32  `json:"code"`
	Description string `json:"description"`
}

// Fault is returned for any response carrying a non-nil Fault field. It
// does not classify the error; pkg/vendorrobot does that.
type Fault struct {
	Code        int32
	Description string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("bcap: fault 0x%08x: %s", uint32(f.Code), f.Description)
}

// Client is a connected b-CAP-style session.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
	mu   sync.Mutex
}

// Dial opens a TCP connection to host:port and starts the service with
// the given watchdog timeout, matching service_start(",WDT=<ms>").
func Dial(host string, port int, dialTimeout, watchdog time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, port), dialTimeout)
	if err != nil {
		return nil, errors.Wrapf(err, "bcap: dial %s:%d", host, port)
	}
	c := &Client{conn: conn, r: bufio.NewReader(conn)}
	if _, err := c.call("ServiceStart", int64(watchdog/time.Millisecond)); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "bcap: service start")
	}
	return c, nil
}

// Close stops the service and closes the underlying connection.
func (c *Client) Close() error {
	_, _ = c.call("ServiceStop")
	return c.conn.Close()
}

func (c *Client) call(funcName string, args ...interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	body, err := json.Marshal(request{Func: funcName, Args: args})
	if err != nil {
		return nil, errors.Wrap(err, "bcap: encode request")
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := c.conn.Write(lenBuf[:]); err != nil {
		return nil, errors.Wrap(err, "bcap: write length prefix")
	}
	if _, err := c.conn.Write(body); err != nil {
		return nil, errors.Wrap(err, "bcap: write request body")
	}

	if _, err := io.ReadFull(c.r, lenBuf[:]); err != nil {
		return nil, errors.Wrap(err, "bcap: read response length")
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	respBuf := make([]byte, n)
	if _, err := io.ReadFull(c.r, respBuf); err != nil {
		return nil, errors.Wrap(err, "bcap: read response body")
	}

	var resp response
	if err := json.Unmarshal(respBuf, &resp); err != nil {
		return nil, errors.Wrap(err, "bcap: decode response")
	}
	if resp.Fault != nil {
		return nil, &Fault{Code: resp.Fault.Code, Description: resp.Fault.Description}
	}
	return resp.Result, nil
}

// ControllerConnect opens a controller handle, equivalent to
// ControllerConnect(name, provider, machine, option).
func (c *Client) ControllerConnect(name, provider, machine, option string) (Handle, error) {
	return c.callHandle("ControllerConnect", name, provider, machine, option)
}

// ControllerGetRobot opens a robot handle under a controller.
func (c *Client) ControllerGetRobot(ctrl Handle, name string) (Handle, error) {
	return c.callHandle("ControllerGetRobot", uint32(ctrl), name)
}

// ControllerDisconnect releases a controller handle.
func (c *Client) ControllerDisconnect(ctrl Handle) error {
	_, err := c.call("ControllerDisconnect", uint32(ctrl))
	return err
}

// ControllerExecute invokes a named controller-level function (e.g.
// ManualReset, ClearError, GetErrorDescription) and decodes its result
// into out, when out is non-nil.
func (c *Client) ControllerExecute(ctrl Handle, funcName string, out interface{}, args ...interface{}) error {
	return c.callInto(out, append([]interface{}{"ControllerExecute", uint32(ctrl), funcName}, args...)...)
}

// RobotExecute invokes a named robot-level function (e.g. Takearm,
// ExtSpeed, Motor, slvChangeMode, slvRecvFormat, slvMove, CurPos,
// OutRange) and decodes its result into out, when out is non-nil.
func (c *Client) RobotExecute(rob Handle, funcName string, out interface{}, args ...interface{}) error {
	return c.callInto(out, append([]interface{}{"RobotExecute", uint32(rob), funcName}, args...)...)
}

// RobotMove issues a blocking point-to-point or linear move.
func (c *Client) RobotMove(rob Handle, comp int, command string) error {
	_, err := c.call("RobotMove", uint32(rob), comp, command)
	return err
}

// RobotRelease releases a robot handle.
func (c *Client) RobotRelease(rob Handle) error {
	_, err := c.call("RobotRelease", uint32(rob))
	return err
}

func (c *Client) callHandle(funcName string, args ...interface{}) (Handle, error) {
	raw, err := c.call(funcName, args...)
	if err != nil {
		return 0, err
	}
	var h uint32
	if err := json.Unmarshal(raw, &h); err != nil {
		return 0, errors.Wrapf(err, "bcap: decode handle for %s", funcName)
	}
	return Handle(h), nil
}

func (c *Client) callInto(out interface{}, parts ...interface{}) error {
	funcName, _ := parts[0].(string)
	raw, err := c.call(funcName, parts[1:]...)
	if err != nil {
		return err
	}
	if out == nil || raw == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
