package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"airwatch/internal/config"
	"airwatch/internal/db"
	"airwatch/internal/httpapi"
	"airwatch/internal/migrate"
	"airwatch/internal/modules/airquality"
	"airwatch/internal/modules/airquality/service"
	"airwatch/internal/modules/airquality/views"
	"airwatch/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"dbDriver", cfg.DBDriver,
		"sqlitePath", cfg.SQLitePath,
		"dbMaxOpenConns", cfg.DBMaxOpenConns,
		"dbMaxIdleConns", cfg.DBMaxIdleConns,
		"dbConnMaxLifetime", cfg.DBConnMaxLifetime,
		"dbLogSQL", cfg.DBLogSQL,
		"giosBaseURL", cfg.GIOSBaseURL,
		"upstreamTimeout", cfg.UpstreamTimeout,
		"geocoder", cfg.Geocoder,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	dbConn, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return err
	}

	var ok int
	if err := dbConn.GetContext(ctx, &ok, `SELECT 1`); err != nil {
		return err
	}
	if ok != 1 {
		return errors.New("database connection failed")
	}
	logger.Info("database connection successful")

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	// The telemetry handler is attached inside RegisterFeature, before
	// Connect, so messages queued by the broker right after CONNACK are
	// not dropped.
	var subscriber *mqtt.Subscriber
	var telemetry service.MQTTSubscriber
	if cfg.MQTTEnabled {
		subscriber = mqtt.NewSubscriber(cfg, logger)
		telemetry = subscriber
	}

	mux := httpapi.NewMux(dbConn, cfg.StaticDir)
	airquality.RegisterFeature(mux, dbConn, cfg, telemetry, logger)

	if subscriber != nil {
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
