package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/gpellegrini/irrigo/internal/actuator"
	httpapi "github.com/gpellegrini/irrigo/internal/api/http"
	"github.com/gpellegrini/irrigo/internal/api/mqttcmd"
	"github.com/gpellegrini/irrigo/internal/config"
	"github.com/gpellegrini/irrigo/internal/engine"
	"github.com/gpellegrini/irrigo/internal/forecast"
	"github.com/gpellegrini/irrigo/internal/history"
	"github.com/gpellegrini/irrigo/internal/metrics"
	"github.com/gpellegrini/irrigo/internal/notify"
	"github.com/gpellegrini/irrigo/pkg/mqttbus"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("main: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("main: timezone %q: %v", cfg.Site.Timezone, err)
	}

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Broker is optional: without it valve commands are no-ops and the local
	// forecast source is unavailable.
	var (
		localSource forecast.Source
		act         actuator.Actuator = actuator.Noop{}
		mqttClient  mqtt.Client
	)
	if cfg.MQTT.Host != "" {
		client, err := mqttbus.Connect(ctx, &mqttbus.Config{
			Host:     cfg.MQTT.Host,
			Port:     cfg.MQTT.Port,
			User:     cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			ClientID: cfg.MQTT.ClientID,
		})
		if err != nil {
			log.Fatalf("main: mqtt connect: %v", err)
		}
		mqttClient = client
		act = actuator.NewMQTT(mqttbus.NewPublisher(client), cfg.MQTT.ValveTopic)

		if cfg.Weather.StateTopic != "" {
			cache, err := mqttbus.NewStateCache(client, cfg.Weather.StateTopic)
			if err != nil {
				log.Fatalf("main: state cache: %v", err)
			}
			defer cache.Close()
			localSource = forecast.NewStateSource(cache, cfg.Site.Latitude, cfg.Site.Longitude, loc)
		}
	}

	httpClient := &http.Client{Timeout: cfg.Weather.FetchTimeout}
	var remote forecast.Source
	if cfg.Weather.APIKey != "" {
		remote = forecast.NewOpenWeatherSource(httpClient, cfg.Weather.APIKey,
			cfg.Site.Latitude, cfg.Site.Longitude, loc)
	}
	source := &forecast.Chain{Local: localSource, Remote: remote}

	var recorder history.Recorder = history.NoopRecorder{}
	if cfg.Influx.URL != "" {
		recorder = history.NewInfluxRecorder(history.InfluxConfig{
			URL:    cfg.Influx.URL,
			Token:  cfg.Influx.Token,
			Org:    cfg.Influx.Org,
			Bucket: cfg.Influx.Bucket,
		})
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Pushover.Token != "" && cfg.Pushover.UserKey != "" {
		notifier = notify.NewPushover(cfg.Pushover.Token, cfg.Pushover.UserKey,
			cfg.Pushover.Device, cfg.Pushover.Priority)
	}

	eng := engine.New(engine.Config{
		Latitude:       cfg.Site.Latitude,
		Altitude:       cfg.Site.Altitude,
		SunriseOffset:  cfg.Schedule.SunriseOffset,
		Cycles:         cfg.Schedule.Cycles,
		LowThreshold:   *cfg.Schedule.LowThreshold,
		HighThreshold:  *cfg.Schedule.HighThreshold,
		RecheckMinutes: cfg.Schedule.RecheckMinutes,
		ForecastDays:   cfg.Schedule.ForecastDays,
		RefreshMinutes: cfg.Schedule.RefreshMinutes,
		FetchTimeout:   cfg.Weather.FetchTimeout,
		SolarRadiation: cfg.Schedule.SolarRadiation,
	}, cfg.ModelZones(), engine.Deps{
		Source:   source,
		Store:    history.NewFileStore(cfg.History.Path),
		Recorder: recorder,
		Notifier: notifier,
		Actuator: act,
	})

	if err := eng.Start(ctx); err != nil {
		log.Fatalf("main: engine start: %v", err)
	}
	defer eng.Stop()

	if mqttClient != nil {
		consumer := mqttbus.NewConsumer(mqttClient, mqttcmd.TopicFilter, mqttcmd.NewHandler(eng))
		go consumer.Run(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName:               "irrigod",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})
	app.Use(logger.New())
	app.Use(recover.New())
	httpapi.RegisterRoutes(app, eng)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr); err != nil {
			log.Printf("main: fiber server stopped: %v", err)
		}
	}()
	log.Printf("main: listening on %s", cfg.HTTP.Addr)

	<-ctx.Done()
	log.Printf("main: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("main: shutdown: %v", err)
	}
}
