package mqttcmd

import (
	"context"
	"encoding/json"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"time"
)

const (
	DefaultBroker   = "tcp://localhost:1883"
	DefaultClientID = "skidsteer"
	DefaultTopic    = "donkey_teleop"

	disconnectQuiesce = 250 // milliseconds
)

var connectTimeout = 5 * time.Second

type Config struct {
	Broker   string `toml:"broker" env:"SKIDSTEER_MQTT_BROKER"`
	ClientID string `toml:"client_id" env:"SKIDSTEER_MQTT_CLIENT_ID"`
	Topic    string `toml:"topic" env:"SKIDSTEER_MQTT_TOPIC"`
	QoS      byte   `toml:"qos" env:"SKIDSTEER_MQTT_QOS"`
}

// DriveStamped mirrors the JSON form of an ackermann_msgs/AckermannDriveStamped.
type DriveStamped struct {
	Drive struct {
		Speed         float64 `json:"speed"`
		SteeringAngle float64 `json:"steering_angle"`
	} `json:"drive"`
}

type Callbacks struct {
	Drive func(speed, steeringAngle float64)
}

type Connection struct {
	Config *Config

	client mqtt.Client
	lost   chan error
}

func (c *Config) setDefaults() {
	if c.Broker == "" {
		c.Broker = DefaultBroker
	}
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
}

func Connect(cfg Config) (*Connection, error) {
	cfg.setDefaults()
	c := &Connection{
		Config: &cfg,
		lost:   make(chan error, 1),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	// reconnects are handled by the caller re-opening the connection
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOrderMatters(true)
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.WithField("err", err).Warn("mqtt connection lost")
		select {
		case c.lost <- err:
		default:
		}
	}

	c.client = mqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errors.Errorf("timed out connecting to %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "unable to connect to %s", cfg.Broker)
	}
	log.WithField("broker", cfg.Broker).Info("connected to mqtt broker")
	return c, nil
}

func (c *Connection) Start(ctx context.Context, cb Callbacks) error {
	token := c.client.Subscribe(c.Config.Topic, c.Config.QoS, func(client mqtt.Client, msg mqtt.Message) {
		handleMessage(msg, cb)
	})
	if !token.WaitTimeout(connectTimeout) {
		return errors.Errorf("timed out subscribing to %s", c.Config.Topic)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "unable to subscribe to %s", c.Config.Topic)
	}
	log.WithField("topic", c.Config.Topic).Info("mqtt subscribed, waiting for drive commands")

	select {
	case <-ctx.Done():
		c.client.Unsubscribe(c.Config.Topic).WaitTimeout(connectTimeout)
		return ctx.Err()
	case err := <-c.lost:
		return errors.Wrap(err, "mqtt connection lost")
	}
}

func (c *Connection) Close() error {
	if c.client == nil {
		return errors.New("mqtt client not connected")
	}
	c.client.Disconnect(disconnectQuiesce)
	return nil
}

func handleMessage(msg mqtt.Message, cb Callbacks) {
	var ds DriveStamped
	if err := json.Unmarshal(msg.Payload(), &ds); err != nil {
		log.WithField("err", err).
			WithField("topic", msg.Topic()).
			Warn("unable to unmarshal drive message")
		return
	}
	if cb.Drive == nil {
		return
	}
	cb.Drive(ds.Drive.Speed, ds.Drive.SteeringAngle)
}
