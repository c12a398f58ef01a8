package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/hydroquebec/pkg/log"
	"github.com/raterudder/hydroquebec/pkg/sensor"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

// publisher is the part of mqtt.Client the bridge needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Bridge registers sensors with Home Assistant through MQTT discovery and
// polls them on a fixed cadence. It implements sensor.Platform.
type Bridge struct {
	broker   string
	username string
	password string
	clientID string

	discoveryPrefix string
	statePrefix     string
	scanInterval    time.Duration
	publishTimeout  time.Duration

	client publisher
	conn   mqtt.Client

	mu        sync.Mutex
	sensors   []*sensor.Sensor
	published map[string]float64
}

var _ sensor.Platform = (*Bridge)(nil)

// Configured registers the MQTT flags and returns the Bridge they configure.
// Connect must be called before sensors are added.
func Configured() *Bridge {
	b := newBridge(nil)
	broker := lflag.String("mqtt-broker", "tcp://localhost:1883", "MQTT broker Home Assistant listens on")
	username := lflag.String("mqtt-username", "", "MQTT username")
	password := lflag.String("mqtt-password", "", "MQTT password")
	clientID := lflag.String("mqtt-client-id", "hydroquebec", "MQTT client id")
	discoveryPrefix := lflag.String("ha-discovery-prefix", "homeassistant", "Home Assistant MQTT discovery prefix")
	statePrefix := lflag.String("ha-state-prefix", "hydroquebec", "Prefix for the sensor state topics")
	scanInterval := lflag.Duration("scan-interval", 30*time.Second, "How often every sensor is updated")

	lflag.Do(func() {
		b.broker = *broker
		b.username = *username
		b.password = *password
		b.clientID = *clientID
		b.discoveryPrefix = *discoveryPrefix
		b.statePrefix = *statePrefix
		b.scanInterval = *scanInterval
	})
	return b
}

func newBridge(client publisher) *Bridge {
	return &Bridge{
		client:          client,
		discoveryPrefix: "homeassistant",
		statePrefix:     "hydroquebec",
		scanInterval:    30 * time.Second,
		publishTimeout:  10 * time.Second,
		published:       map[string]float64{},
	}
}

// Connect dials the broker. The availability topic is set to online on every
// (re)connect and to offline by the broker when the connection drops.
func (b *Bridge) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.broker)
	opts.SetClientID(b.clientID)
	opts.SetUsername(b.username)
	opts.SetPassword(b.password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetWill(b.availabilityTopic(), payloadOffline, 1, true)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Ctx(ctx).InfoContext(ctx, "mqtt connected", slog.String("broker", b.broker))
		c.Publish(b.availabilityTopic(), 1, true, payloadOnline)
		// the broker may have lost retained states, republish everything
		b.mu.Lock()
		b.published = map[string]float64{}
		b.mu.Unlock()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Ctx(ctx).ErrorContext(ctx, "mqtt connection lost", slog.Any("error", err))
	})

	conn := mqtt.NewClient(opts)
	token := conn.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	b.conn = conn
	b.client = conn
	return nil
}

// Close marks the bridge offline and disconnects.
func (b *Bridge) Close() {
	if b.conn == nil {
		return
	}
	b.conn.Publish(b.availabilityTopic(), 1, true, payloadOffline).WaitTimeout(b.publishTimeout)
	b.conn.Disconnect(250)
}

// AddSensors implements sensor.Platform by publishing a discovery config for
// each sensor.
func (b *Bridge) AddSensors(ctx context.Context, sensors []*sensor.Sensor, update bool) error {
	if b.client == nil {
		return errors.New("mqtt not connected")
	}

	for _, s := range sensors {
		device := Device{
			Identifiers:  []string{"hydroquebec_" + s.Contract()},
			Name:         s.AccountName(),
			Manufacturer: "Hydro-Québec",
			Model:        "Contract " + s.Contract(),
		}
		payload, err := json.Marshal(b.discoveryConfig(s, device))
		if err != nil {
			return fmt.Errorf("failed to marshal discovery config for %s: %w", s.Field(), err)
		}
		if err := b.publish(b.discoveryTopic(s), true, payload); err != nil {
			return fmt.Errorf("failed to publish discovery config for %s: %w", s.Field(), err)
		}
		log.Ctx(ctx).DebugContext(ctx, "published discovery config", slog.String("sensor", s.ObjectID()))
	}
	if err := b.publish(b.availabilityTopic(), true, []byte(payloadOnline)); err != nil {
		return fmt.Errorf("failed to publish availability: %w", err)
	}

	b.mu.Lock()
	b.sensors = append(b.sensors, sensors...)
	b.mu.Unlock()

	if update {
		for _, s := range sensors {
			b.updateSensor(ctx, s)
		}
	}
	return nil
}

// Sensors returns every sensor added so far.
func (b *Bridge) Sensors() []*sensor.Sensor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*sensor.Sensor(nil), b.sensors...)
}

// Run updates every sensor once per scan interval until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.Poll(ctx)
		}
	}
}

// Poll updates every sensor once, publishing the states that changed.
func (b *Bridge) Poll(ctx context.Context) {
	for _, s := range b.Sensors() {
		b.updateSensor(ctx, s)
	}
}

func (b *Bridge) updateSensor(ctx context.Context, s *sensor.Sensor) {
	s.Update(ctx)

	v, ok := s.State()
	if !ok {
		return
	}

	b.mu.Lock()
	last, seen := b.published[s.ObjectID()]
	b.mu.Unlock()
	if seen && last == v {
		return
	}

	if err := b.publish(b.stateTopic(s), true, []byte(strconv.FormatFloat(v, 'f', -1, 64))); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to publish sensor state", slog.String("sensor", s.ObjectID()), slog.Any("error", err))
		return
	}

	b.mu.Lock()
	b.published[s.ObjectID()] = v
	b.mu.Unlock()
}

func (b *Bridge) publish(topic string, retained bool, payload []byte) error {
	token := b.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(b.publishTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	return token.Error()
}
