package mqtt

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"airwatch/internal/config"
	"airwatch/internal/modules/airquality/types"
)

func newTestSubscriber(t *testing.T) (*Subscriber, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	cfg := config.Config{
		MQTTBroker:   "localhost",
		MQTTPort:     1883,
		MQTTTopic:    "airwatch/measurements",
		MQTTClientID: "test",
	}
	s := NewSubscriber(cfg, logger)
	t.Cleanup(s.cancel)
	return s, &buf
}

func TestHandleMessage_DeliversValidTelemetry(t *testing.T) {
	s, _ := newTestSubscriber(t)

	var got []types.Telemetry
	s.SetMessageHandler(func(ctx context.Context, telemetry types.Telemetry) error {
		if ctx == nil {
			t.Error("handler got nil context")
		}
		got = append(got, telemetry)
		return nil
	})

	s.handleMessage("airwatch/measurements", []byte(`{"sensor_id":2747,"station_code":"MpKrakAlKras","date":"2025-03-01 10:00:00","value":41.2}`))
	s.handleMessage("airwatch/measurements", []byte(`{"sensor_id":2747,"date":"2025-03-01 11:00:00","value":null}`))

	if len(got) != 2 {
		t.Fatalf("handler called %d times, want 2", len(got))
	}
	if got[0].SensorID != 2747 || got[0].StationCode != "MpKrakAlKras" || got[0].Value == nil || *got[0].Value != 41.2 {
		t.Errorf("first telemetry = %+v", got[0])
	}
	if got[1].Value != nil {
		t.Errorf("second telemetry value = %v, want nil", *got[1].Value)
	}
}

func TestHandleMessage_DropsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantLog string
	}{
		{name: "not json", payload: `sensor=1`, wantLog: "failed to parse telemetry message"},
		{name: "missing sensor", payload: `{"date":"2025-03-01 10:00:00","value":1}`, wantLog: "sensor_id must be positive"},
		{name: "negative sensor", payload: `{"sensor_id":-4,"date":"2025-03-01 10:00:00"}`, wantLog: "sensor_id must be positive"},
		{name: "missing date", payload: `{"sensor_id":1,"value":1}`, wantLog: "date is required"},
		{name: "malformed date", payload: `{"sensor_id":1,"date":"01/03/2025"}`, wantLog: "not in YYYY-MM-DD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, buf := newTestSubscriber(t)
			called := false
			s.SetMessageHandler(func(context.Context, types.Telemetry) error {
				called = true
				return nil
			})

			s.handleMessage("airwatch/measurements", []byte(tt.payload))

			if called {
				t.Error("handler called for invalid payload")
			}
			if !strings.Contains(buf.String(), tt.wantLog) {
				t.Errorf("log = %q, want it to contain %q", buf.String(), tt.wantLog)
			}
		})
	}
}

func TestHandleMessage_LogsHandlerError(t *testing.T) {
	s, buf := newTestSubscriber(t)
	s.SetMessageHandler(func(context.Context, types.Telemetry) error {
		return errors.New("unknown sensor")
	})

	s.handleMessage("airwatch/measurements", []byte(`{"sensor_id":9,"date":"2025-03-01 10:00:00","value":3}`))

	out := buf.String()
	if !strings.Contains(out, "message handler failed") || !strings.Contains(out, "unknown sensor") {
		t.Errorf("log = %q, want handler failure", out)
	}
}

func TestHandleMessage_WithoutHandler(t *testing.T) {
	s, _ := newTestSubscriber(t)
	s.handleMessage("airwatch/measurements", []byte(`{"sensor_id":9,"date":"2025-03-01 10:00:00"}`))
}

func TestConnect_AfterDisconnect(t *testing.T) {
	s, _ := newTestSubscriber(t)
	s.Disconnect()
	s.Disconnect()

	if err := s.Connect(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Connect() after Disconnect = %v, want ErrStopped", err)
	}
	if s.ctx.Err() == nil {
		t.Error("handler context not cancelled by Disconnect")
	}
}

func TestPublisher_RejectsBeforeSending(t *testing.T) {
	cfg := config.Config{MQTTBroker: "localhost", MQTTPort: 1883, MQTTTopic: "airwatch/measurements"}
	p := NewPublisher(cfg, "test-publish", slog.New(slog.DiscardHandler))

	if err := p.PublishTelemetry(context.Background(), types.Telemetry{SensorID: 0, Date: "2025-03-01 10:00:00"}); err == nil || !strings.Contains(err.Error(), "invalid telemetry") {
		t.Errorf("PublishTelemetry() with bad sensor = %v, want invalid telemetry", err)
	}
	if err := p.PublishTelemetry(context.Background(), types.Telemetry{SensorID: 1, Date: "2025-03-01 10:00:00"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishTelemetry() while disconnected = %v, want ErrNotConnected", err)
	}

	p.Disconnect()
	if err := p.Connect(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Connect() after Disconnect = %v, want ErrStopped", err)
	}
}
