package uplink

import (
	"context"
	"time"

	"codeberg.org/mutker/wattlog/internal/errors"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const disconnectQuiesceMS = 250

type MQTTTransport struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
}

var _ Transport = (*MQTTTransport)(nil)

// NewMQTTTransport connects to the broker in cfg.MQTT.
func NewMQTTTransport(cfg Config) (*MQTTTransport, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID(cfg.MQTT.ClientID).
		SetConnectTimeout(cfg.Timeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, errors.New().WithData(ErrConnectFailed, cfg.MQTT.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrap(ErrConnectFailed, err)
	}

	return NewMQTTTransportWithClient(client, cfg), nil
}

// NewMQTTTransportWithClient uses an already connected client.
func NewMQTTTransportWithClient(client mqtt.Client, cfg Config) *MQTTTransport {
	return &MQTTTransport{
		client:  client,
		topic:   cfg.MQTT.Topic,
		qos:     cfg.MQTT.QoS,
		timeout: cfg.Timeout,
	}
}

// Send publishes the payload unchanged. MQTT 3.1.1 has no message headers,
// so the batch id only appears in the client's logs.
func (t *MQTTTransport) Send(ctx context.Context, payload []byte, _ string) error {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return errFactory.Wrap(ErrSendFailed, err)
	}
	if !t.client.IsConnectionOpen() {
		return errFactory.WithData(ErrSendFailed, "broker connection is not open")
	}

	token := t.client.Publish(t.topic, t.qos, false, payload)
	if !token.WaitTimeout(t.timeout) {
		return errFactory.WithData(ErrSendFailed, "publish timed out")
	}
	if err := token.Error(); err != nil {
		return errFactory.Wrap(ErrSendFailed, err)
	}

	return nil
}

func (t *MQTTTransport) Close() error {
	t.client.Disconnect(disconnectQuiesceMS)
	return nil
}
