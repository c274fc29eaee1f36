package scale

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/shot-stopper/internal/mailbox"
)

// Link timing. The heartbeat cadence matches the scale's session
// timeout with margin; a reading older than staleAfter means the
// bridge stopped streaming even if the broker session is up.
const (
	defaultStaleAfter     = 3 * time.Second
	defaultHeartbeatEvery = 2750 * time.Millisecond
	connectTimeout        = 10 * time.Second
)

// Link is a Scale bridged over MQTT: a gateway near the scale streams
// weight readings to scale/<id>/weight and accepts commands on
// scale/<id>/command. Readings arrive on a paho callback goroutine and
// cross into the control loop through a mailbox slot; everything else
// on the Link is owned by the control loop.
type Link struct {
	broker  string
	scaleID string

	staleAfter     time.Duration
	heartbeatEvery time.Duration
	now            func() time.Time

	client  paho.Client
	connect paho.Token

	sample        mailbox.Slot[reading] // producer: paho message handler
	weight        float64
	sampleAt      time.Time
	lastHeartbeat time.Time
}

type reading struct {
	grams float64
	at    time.Time
}

// NewLink creates a link to the scale bridge at broker. No connection
// is attempted until Connect.
func NewLink(broker, scaleID string) *Link {
	return &Link{
		broker:         broker,
		scaleID:        scaleID,
		staleAfter:     defaultStaleAfter,
		heartbeatEvery: defaultHeartbeatEvery,
		now:            time.Now,
	}
}

func (l *Link) weightTopic() string  { return "scale/" + l.scaleID + "/weight" }
func (l *Link) commandTopic() string { return "scale/" + l.scaleID + "/command" }

// ensureClient builds the paho client if it does not exist. Idempotent:
// if a lower layer tore the client down, the next Connect re-creates
// it without disturbing an existing healthy one.
func (l *Link) ensureClient() {
	if l.client != nil {
		return
	}

	opts := paho.NewClientOptions().
		AddBroker(l.broker).
		SetClientID("shot-stopper-scale-" + l.scaleID).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOnConnectHandler(func(c paho.Client) {
			token := c.Subscribe(l.weightTopic(), 0, l.onWeight)
			go func() {
				if token.WaitTimeout(connectTimeout) && token.Error() != nil {
					log.Printf("scale: subscribe %s: %v", l.weightTopic(), token.Error())
				}
			}()
		})

	l.client = paho.NewClient(opts)
}

// onWeight runs on the paho callback goroutine. It only parses and
// puts; the control loop consumes via NewWeightAvailable.
func (l *Link) onWeight(_ paho.Client, msg paho.Message) {
	grams, err := strconv.ParseFloat(strings.TrimSpace(string(msg.Payload())), 64)
	if err != nil {
		log.Printf("scale: bad weight payload %q: %v", msg.Payload(), err)
		return
	}
	l.sample.Put(reading{grams: grams, at: l.now()})
}

// Connect begins a non-blocking connection attempt if none is active.
func (l *Link) Connect() error {
	l.ensureClient()
	if l.client.IsConnected() || l.connect != nil {
		return nil
	}
	l.connect = l.client.Connect()
	return nil
}

// Advance steps the connection attempt: if the in-flight token has
// completed, record the outcome and clear it.
func (l *Link) Advance() {
	if l.connect == nil {
		return
	}
	if !l.connect.WaitTimeout(0) {
		return
	}
	if err := l.connect.Error(); err != nil {
		log.Printf("scale: connect: %v", err)
	}
	l.connect = nil
}

// Connecting reports whether a connection attempt is in flight.
func (l *Link) Connecting() bool {
	return l.connect != nil
}

// Connected reports whether weight data is flowing: the broker session
// is up and a reading arrived within the staleness window.
func (l *Link) Connected() bool {
	if l.client == nil || !l.client.IsConnected() {
		return false
	}
	if l.sample.Dirty() {
		return true
	}
	return !l.sampleAt.IsZero() && l.now().Sub(l.sampleAt) < l.staleAfter
}

// NewWeightAvailable consumes a pending reading, if any.
func (l *Link) NewWeightAvailable() bool {
	r, ok := l.sample.Take()
	if !ok {
		return false
	}
	l.weight = r.grams
	l.sampleAt = r.at
	return true
}

// Weight returns the last consumed reading in grams.
func (l *Link) Weight() float64 { return l.weight }

// HeartbeatDue reports whether the keep-alive cadence has elapsed.
func (l *Link) HeartbeatDue() bool {
	return l.now().Sub(l.lastHeartbeat) >= l.heartbeatEvery
}

// Heartbeat publishes a keep-alive to the bridge.
func (l *Link) Heartbeat() error {
	l.lastHeartbeat = l.now()
	return l.command("ping")
}

// Tare zeroes the scale.
func (l *Link) Tare() error { return l.command("tare") }

// ResetTimer resets the scale's shot timer display.
func (l *Link) ResetTimer() error { return l.command("timer/reset") }

// StartTimer starts the scale's shot timer display.
func (l *Link) StartTimer() error { return l.command("timer/start") }

// StopTimer stops the scale's shot timer display.
func (l *Link) StopTimer() error { return l.command("timer/stop") }

// command publishes fire-and-forget: the control loop must never wait
// on the radio, and a lost QoS0 command is recoverable by the user.
func (l *Link) command(name string) error {
	if l.client == nil || !l.client.IsConnected() {
		return fmt.Errorf("scale: not connected, dropping %q", name)
	}
	l.client.Publish(l.commandTopic(), 0, false, name)
	return nil
}

// Close tears the link down. A later Connect re-creates it.
func (l *Link) Close() error {
	if l.client != nil && l.client.IsConnected() {
		l.client.Disconnect(250)
	}
	l.client = nil
	l.connect = nil
	return nil
}
