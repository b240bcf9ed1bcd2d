package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"airwatch/internal/config"
	"airwatch/internal/modules/airquality/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var ErrNotConnected = errors.New("mqtt client not connected")

// Publisher sends telemetry to the measurements topic. Collectors without
// direct database access use it to feed readings into the archive.
type Publisher struct {
	client mqtt.Client
	topic  string
	logger *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, clientID string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		topic:  cfg.MQTTTopic,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)

	p.client = mqtt.NewClient(opts)
	return p
}

func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return ErrStopped
	default:
	}
	if p.client.IsConnected() {
		return nil
	}
	if err := waitToken(ctx, p.client.Connect(), p.stopCh); err != nil {
		p.client.Disconnect(0)
		return err
	}
	p.logger.Info("mqtt publisher connected", "topic", p.topic)
	return nil
}

// PublishTelemetry validates t and publishes it with QoS 1.
func (p *Publisher) PublishTelemetry(ctx context.Context, t types.Telemetry) error {
	if err := validateTelemetry(t); err != nil {
		return fmt.Errorf("invalid telemetry: %w", err)
	}
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	token := p.client.Publish(p.topic, 1, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("publish timeout for topic %s", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish telemetry: %w", err)
	}

	p.logger.Debug("published telemetry", "topic", p.topic, "sensor_id", t.SensorID, "date", t.Date)
	return nil
}

func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.client.Disconnect(250)
}
