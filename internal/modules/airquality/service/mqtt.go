package service

import (
	"context"
	"log/slog"

	"airwatch/internal/modules/airquality/types"
)

// MQTTSubscriber is the part of the MQTT subscriber the service attaches to.
type MQTTSubscriber interface {
	SetMessageHandler(handler func(ctx context.Context, telemetry types.Telemetry) error)
}

// Register attaches the telemetry handler. Call it before connecting so that
// queued messages delivered right after CONNACK are not dropped.
func (s *Service) Register(subscriber MQTTSubscriber, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	subscriber.SetMessageHandler(func(ctx context.Context, telemetry types.Telemetry) error {
		logger.DebugContext(ctx, "processing telemetry message",
			"sensor_id", telemetry.SensorID,
			"date", telemetry.Date,
		)

		if err := s.StoreTelemetry(ctx, telemetry); err != nil {
			logger.ErrorContext(ctx, "failed to store telemetry",
				"sensor_id", telemetry.SensorID,
				"error", err,
			)
			return err
		}

		logger.DebugContext(ctx, "stored telemetry", "sensor_id", telemetry.SensorID)
		return nil
	})
}
