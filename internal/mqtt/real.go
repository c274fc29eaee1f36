package mqtt

import (
	"fmt"
	"log"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/shot-stopper/internal/logic"
	"github.com/sweeney/shot-stopper/internal/mailbox"
)

const outboxCapacity = 256

// RealClient publishes to an actual MQTT broker and feeds remote
// setpoint writes into the control loop's mailbox. Publishes while the
// broker is unreachable are queued in a bounded outbox and replayed on
// reconnect.
type RealClient struct {
	client paho.Client
	queue  *outbox
}

// NewRealClient connects to the broker and subscribes to the setpoint
// topics. Writes received there are routed into box from paho's
// callback goroutine; the control loop drains them between ticks.
func NewRealClient(broker string, box *mailbox.Box) (*RealClient, error) {
	c := &RealClient{queue: newOutbox(outboxCapacity)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("shot-stopper").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(client paho.Client) {
			token := client.Subscribe(TopicSetPrefix+"#", 1, func(_ paho.Client, msg paho.Message) {
				field := strings.TrimPrefix(msg.Topic(), TopicSetPrefix)
				if err := mailbox.Route(box, field, string(msg.Payload())); err != nil {
					log.Printf("mqtt: setpoint %s: %v", field, err)
				}
			})
			go func() {
				if token.WaitTimeout(10*time.Second) && token.Error() != nil {
					log.Printf("mqtt: subscribe setpoints: %v", token.Error())
				}
			}()
			c.replay(client)
		})

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return c, nil
}

// replay flushes the outbox after a reconnect.
func (c *RealClient) replay(client paho.Client) {
	for _, msg := range c.queue.drain() {
		token := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Printf("mqtt: replay %s: %v", msg.topic, token.Error())
		}
	}
}

// publish dispatches without waiting: the caller is the control loop,
// which must not stall on the broker. Delivery failures are logged from
// a watcher goroutine.
func (c *RealClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.client.IsConnected() {
		c.queue.push(queuedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		return fmt.Errorf("not connected, queued (%d pending)", c.queue.len())
	}

	token := c.client.Publish(topic, qos, retained, payload)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Printf("mqtt: publish %s: %v", topic, token.Error())
		}
	}()
	return nil
}

// PublishShot sends a shot lifecycle or calibration event.
func (c *RealClient) PublishShot(event logic.Event) error {
	payload, err := FormatShotPayload(event)
	if err != nil {
		return fmt.Errorf("format shot payload: %w", err)
	}

	// QoS 1: shot outcomes should survive a flaky link
	return c.publish(TopicShots, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return c.publish(TopicSystem, 1, event.Retained, payload)
}

// PublishStatus sends a retained status snapshot at QoS 0; the next
// snapshot supersedes a lost one.
func (c *RealClient) PublishStatus(payload []byte) error {
	return c.publish(TopicStatus, 0, true, payload)
}

// IsConnected reports whether the broker session is up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
