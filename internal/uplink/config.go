package uplink

import (
	"net/url"
	"time"

	"codeberg.org/mutker/wattlog/internal/errors"
	"codeberg.org/mutker/wattlog/internal/retry"
)

const (
	TransportHTTP = "http"
	TransportMQTT = "mqtt"

	DefaultURL       = "http://localhost:5000/upload"
	DefaultBatchSize = 5
	DefaultTimeout   = 10 * time.Second

	DefaultMQTTBroker   = "tcp://localhost:1883"
	DefaultMQTTTopic    = "wattlog/readings"
	DefaultMQTTClientID = "energyd"
)

type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
}

type Config struct {
	Transport  string
	URL        string
	BatchSize  int
	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
	MQTT       MQTTConfig
}

func DefaultConfig() Config {
	return Config{
		Transport:  TransportHTTP,
		URL:        DefaultURL,
		BatchSize:  DefaultBatchSize,
		MaxRetries: retry.DefaultMaxAttempts,
		Backoff:    retry.DefaultDelay,
		Timeout:    DefaultTimeout,
		MQTT: MQTTConfig{
			Broker:   DefaultMQTTBroker,
			Topic:    DefaultMQTTTopic,
			ClientID: DefaultMQTTClientID,
		},
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch c.Transport {
	case TransportHTTP:
		u, err := url.Parse(c.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errFactory.WithData(ErrInvalidConfig, "upload url must be absolute")
		}
	case TransportMQTT:
		if c.MQTT.Broker == "" || c.MQTT.Topic == "" {
			return errFactory.WithData(ErrInvalidConfig, "mqtt broker and topic are required")
		}
		if c.MQTT.QoS > 2 {
			return errFactory.WithData(ErrInvalidConfig, "mqtt qos must be 0, 1 or 2")
		}
	default:
		return errFactory.WithData(ErrUnknownTransport, c.Transport)
	}

	if c.BatchSize < 1 {
		return errFactory.WithData(ErrInvalidConfig, "batch size must be positive")
	}
	if c.MaxRetries < 1 {
		return errFactory.WithData(ErrInvalidConfig, "max retries must be at least 1")
	}
	if c.Backoff < 0 || c.Timeout <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "backoff and timeout must be positive")
	}

	return nil
}

// Policy builds the retry policy described by c.
func (c Config) Policy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = c.MaxRetries
	p.Delay = c.Backoff
	return p
}

// NewTransport builds the transport selected by c.Transport.
func NewTransport(c Config) (Transport, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if c.Transport == TransportMQTT {
		return NewMQTTTransport(c)
	}
	return NewHTTPTransport(c), nil
}
