package target

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/armteleop/cobotservo/internal/logging"
	"github.com/armteleop/cobotservo/pkg/recording"
)

// wirePad and wireMessage mirror the JSON payload published to
// webxr/pose: pos:{x,y,z}, ori:{x,y,z}, optional pad:{b0,bA}. The
// rotational xd/yd/zd channels are parsed into Ori's three fields by
// name only (x,y,z) rather than hardcoded to zero.
type wireMessage struct {
	Pos struct{ X, Y, Z float64 } `json:"pos"`
	Ori struct{ X, Y, Z float64 } `json:"ori"`
	Pad *struct {
		B0 int  `json:"b0"`
		BA bool `json:"bA"`
	} `json:"pad"`
}

// LiveFeederConfig holds the MQTT connection parameters for LiveFeeder.
type LiveFeederConfig struct {
	Host      string
	Port      int
	Topic     string
	Keepalive time.Duration
	ClientID  string
}

// LiveFeeder subscribes to a teleoperation topic on an MQTT broker and
// stamps each incoming payload with local wall time. Connection loss is
// logged; the feeder adds no retry logic of its own. The MQTT client's
// built-in auto-reconnect is enabled, and the topic is resubscribed on
// each reconnect. Until then the session sees a stall.
type LiveFeeder struct {
	cfg      LiveFeederConfig
	recorder *recording.Recorder

	mu     sync.Mutex
	sink   Sink
	client mqtt.Client
	done   chan struct{}
}

// NewLiveFeeder returns a LiveFeeder that will subscribe to cfg.Topic
// (default "webxr/pose") once Start is called.
func NewLiveFeeder(cfg LiveFeederConfig) *LiveFeeder {
	if cfg.Topic == "" {
		cfg.Topic = "webxr/pose"
	}
	if cfg.Keepalive == 0 {
		cfg.Keepalive = 60 * time.Second
	}
	return &LiveFeeder{cfg: cfg, done: make(chan struct{})}
}

// SetRecorder attaches an optional JSON-Lines recorder that appends
// every raw message received as it arrives. Pass nil to disable.
func (f *LiveFeeder) SetRecorder(r *recording.Recorder) {
	f.recorder = r
}

func (f *LiveFeeder) SetSink(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink = s
}

// Start connects to the broker and subscribes to cfg.Topic, resubscribing
// automatically on every (re)connect.
func (f *LiveFeeder) Start() error {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL(f.cfg.Host, f.cfg.Port)).
		SetKeepAlive(f.cfg.Keepalive).
		SetAutoReconnect(true).
		SetOnConnectHandler(f.onConnect).
		SetConnectionLostHandler(f.onConnectionLost)
	if f.cfg.ClientID != "" {
		opts.SetClientID(f.cfg.ClientID)
	}

	f.client = mqtt.NewClient(opts)
	tok := f.client.Connect()
	if !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		return errors.Wrap(tok.Error(), "target: mqtt connect")
	}
	return nil
}

func (f *LiveFeeder) onConnect(c mqtt.Client) {
	logging.Sugar().Infow("target: mqtt connected, subscribing", "topic", f.cfg.Topic)
	tok := c.Subscribe(f.cfg.Topic, 1, f.onMessage)
	tok.Wait()
	if err := tok.Error(); err != nil {
		logging.Sugar().Errorw("target: mqtt subscribe failed", "topic", f.cfg.Topic, "err", err)
	}
}

func (f *LiveFeeder) onConnectionLost(_ mqtt.Client, err error) {
	// session treats a broker disconnect as a stall: no new targets
	// arrive, the planner freezes on its current anchors, and the
	// session continues rather than tearing down.
	logging.Sugar().Warnw("target: mqtt connection lost", "err", err)
}

func (f *LiveFeeder) onMessage(_ mqtt.Client, msg mqtt.Message) {
	t := wallClock()

	if f.recorder != nil {
		_ = f.recorder.Log(recording.KindRaw, json.RawMessage(msg.Payload()), t)
	}

	var w wireMessage
	if err := json.Unmarshal(msg.Payload(), &w); err != nil {
		logging.Sugar().Warnw("target: malformed mqtt payload, skipping", "err", err)
		return
	}

	m := Message{
		Pos:  Vec3{X: w.Pos.X, Y: w.Pos.Y, Z: w.Pos.Z},
		Ori:  Vec3{X: w.Ori.X, Y: w.Ori.Y, Z: w.Ori.Z},
		Time: t,
	}
	if w.Pad != nil {
		m.Pad = &Pad{B0: w.Pad.B0, BA: w.Pad.BA}
	}

	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()
	if sink != nil {
		sink(m)
	}
}

// Stop disconnects from the broker.
func (f *LiveFeeder) Stop() {
	f.mu.Lock()
	c := f.client
	f.mu.Unlock()
	if c != nil && c.IsConnected() {
		c.Disconnect(250)
	}
	select {
	case <-f.done:
	default:
		close(f.done)
	}
}

// Join blocks until Stop has been called. The MQTT client's own
// goroutines are managed internally by paho; Join only reports the
// feeder's own lifecycle.
func (f *LiveFeeder) Join() {
	<-f.done
}

func wallClock() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func brokerURL(host string, port int) string {
	if port == 0 {
		port = 1883
	}
	return fmt.Sprintf("tcp://%s:%d", host, port)
}
