package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const connectTimeout = 5 * time.Second

// mqttClient is the part of mqtt.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes each sample as JSON to a topic (QoS 0, not retained).
type MQTT struct {
	client mqttClient
	topic  string
}

// DialMQTT connects to broker with a unique client ID.
func DialMQTT(broker, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("manipulator-" + uuid.NewString()).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return newMQTT(client, topic), nil
}

func newMQTT(client mqttClient, topic string) *MQTT {
	return &MQTT{client: client, topic: topic}
}

// Record publishes s without waiting for delivery. A publish that already
// failed by the time Record returns is reported.
func (m *MQTT) Record(s Sample) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}

	token := m.client.Publish(m.topic, 0, false, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt publish: %w", err)
		}
	default:
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
