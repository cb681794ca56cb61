package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Nom-nom-hub/World-CSS/pkg/config"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	publishTimeout  = 10 * time.Second
	disconnectQuiet = 250 // ms

	statusOnline  = "online"
	statusOffline = "offline"
)

// pahoClient publishes through a Paho connection and keeps a retained
// online/offline status for the service under {prefix}/status/{service}.
type pahoClient struct {
	client      pahomqtt.Client
	broker      string
	statusTopic string
	logger      *slog.Logger
}

// NewClient builds a Paho-backed client. The broker receives an "offline"
// last will on the status topic, and "online" is published on every
// (re)connect.
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	clientID := cfg.MQTTClientID
	if clientID == "" {
		clientID = fmt.Sprintf("%s-%s", cfg.ServiceName, uuid.NewString()[:8])
	}

	c := &pahoClient{
		broker:      cfg.MQTTAddress(),
		statusTopic: StatusTopic(cfg.MQTTTopicPrefix, cfg.ServiceName),
		logger:      logger.With("component", "mqtt", "client_id", clientID),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(c.broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetMaxReconnectInterval(30*time.Second).
		SetBinaryWill(c.statusTopic, []byte(statusOffline), 1, true)
	if cfg.MQTTUser != "" {
		opts.SetUsername(cfg.MQTTUser)
		opts.SetPassword(cfg.MQTTPassword)
	}

	opts.SetOnConnectHandler(func(pc pahomqtt.Client) {
		c.logger.Info("Connected to MQTT broker", "broker", c.broker)
		// Paho runs this on its own goroutine, so waiting here is fine.
		t := pc.Publish(c.statusTopic, 1, true, []byte(statusOnline))
		if t.WaitTimeout(publishTimeout) && t.Error() != nil {
			c.logger.Warn("Failed to publish online status", "topic", c.statusTopic, "error", t.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.logger.Info("MQTT reconnecting")
	})

	c.client = pahomqtt.NewClient(opts)
	return c
}

// Connect blocks until the broker accepts the connection or ctx ends.
func (c *pahoClient) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to MQTT broker", "broker", c.broker)

	token := c.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to connect to MQTT broker %s: %w", c.broker, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connecting to MQTT broker %s: %w", c.broker, ctx.Err())
	}
}

// Disconnect marks the service offline and closes the connection.
func (c *pahoClient) Disconnect() {
	if c.client.IsConnected() {
		// A clean disconnect suppresses the will, so publish it ourselves.
		if err := c.Publish(c.statusTopic, 1, true, []byte(statusOffline)); err != nil {
			c.logger.Warn("Failed to publish offline status", "error", err)
		}
	}
	c.logger.Info("Disconnecting from MQTT broker")
	c.client.Disconnect(disconnectQuiet)
}

func (c *pahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing to topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	c.logger.Debug("Published message", "topic", topic, "size", len(payload), "retained", retained)
	return nil
}

func (c *pahoClient) IsConnected() bool {
	return c.client.IsConnected()
}
