// Command publish sends one measurement to the MQTT telemetry topic.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"airwatch/internal/config"
	"airwatch/internal/logging"
	"airwatch/internal/modules/airquality/types"
	"airwatch/internal/mqtt"
)

type telemetryPublisher interface {
	Connect(ctx context.Context) error
	PublishTelemetry(ctx context.Context, t types.Telemetry) error
	Disconnect()
}

var newPublisher = func(cfg config.Config) telemetryPublisher {
	return mqtt.NewPublisher(cfg, cfg.MQTTClientID+"-publish", logging.New(cfg, "dev", "publish"))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sensorID := fs.Int("sensor", 0, "sensor id")
	station := fs.String("station", "", "station code")
	date := fs.String("date", "", "measurement time, YYYY-MM-DD HH:MM:SS (default now)")
	value := fs.String("value", "", "measured value; empty publishes null")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	t, err := telemetryFromFlags(*sensorID, *station, *date, *value, time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "publish: %v\n", err)
		return 2
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}

	pub := newPublisher(cfg)
	defer pub.Disconnect()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := pub.Connect(connectCtx); err != nil {
		fmt.Fprintf(stderr, "connect: %v\n", err)
		return 1
	}
	if err := pub.PublishTelemetry(ctx, t); err != nil {
		fmt.Fprintf(stderr, "publish: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "published sensor %d at %s to %s\n", t.SensorID, t.Date, cfg.MQTTTopic)
	return 0
}

func telemetryFromFlags(sensorID int, station, date, value string, now time.Time) (types.Telemetry, error) {
	if sensorID <= 0 {
		return types.Telemetry{}, fmt.Errorf("-sensor must be a positive id")
	}
	if date == "" {
		date = now.Format(time.DateTime)
	}
	t := types.Telemetry{SensorID: sensorID, StationCode: station, Date: date}
	if value != "" {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return types.Telemetry{}, fmt.Errorf("invalid -value %q", value)
		}
		t.Value = &v
	}
	return t, nil
}
