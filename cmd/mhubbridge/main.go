// MHUB Bridge - HDAnywhere MHUB matrix integration
//
// This is the main entry point for the bridge. It polls one MHUB hub over
// its HTTP API, exposes the hub's outputs, volume, mute and power as
// entities, and publishes them over MQTT (with Home Assistant discovery),
// a REST API and a WebSocket event stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nerrad567/mhub-bridge/internal/api"
	"github.com/nerrad567/mhub-bridge/internal/entity"
	"github.com/nerrad567/mhub-bridge/internal/entry"
	"github.com/nerrad567/mhub-bridge/internal/infrastructure/config"
	"github.com/nerrad567/mhub-bridge/internal/infrastructure/database"
	"github.com/nerrad567/mhub-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/mhub-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/mhub-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/mhub-bridge/internal/mhub"
	"github.com/nerrad567/mhub-bridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting MHUB bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if err := loadDotEnv(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS, migrations.Dir); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Config entry
	entries := entry.NewSQLiteRepository(db.DB)
	flow, err := entry.NewFlow(entry.FlowOptions{
		Repository: entries,
		NewFetcher: func(host string) entry.Fetcher {
			return mhub.NewClient(host, mhub.ClientOptions{UserAgent: cfg.Device.UserAgent})
		},
		SetupTimeout: cfg.Device.SetupTimeoutDuration(),
		Logger:       log.Component("setup"),
	})
	if err != nil {
		return fmt.Errorf("creating setup flow: %w", err)
	}
	ent, err := flow.Resolve(ctx, cfg.Device.Host)
	if err != nil {
		return fmt.Errorf("resolving config entry: %w", err)
	}
	log.Info("config entry loaded", "id", ent.ID, "host", ent.Host, "title", ent.Title)

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Device client and refresh coordinator
	hubLog := log.Component("mhub").With("host", ent.Host)
	client := mhub.NewClient(ent.Host, mhub.ClientOptions{
		UserAgent: cfg.Device.UserAgent,
		Logger:    hubLog,
	})
	coordOpts := mhub.CoordinatorOptions{
		Client:       client,
		ScanInterval: cfg.Device.ScanIntervalDuration(),
		FetchTimeout: cfg.Device.FetchTimeoutDuration(),
		ProbeTimeout: cfg.Device.ProbeTimeoutDuration(),
		Logger:       hubLog,
	}
	if influxClient != nil {
		coordOpts.Observer = cycleRecorder{influx: influxClient}
	}
	coord, err := mhub.NewCoordinator(coordOpts)
	if err != nil {
		return fmt.Errorf("creating coordinator: %w", err)
	}
	defer func() {
		log.Info("stopping coordinator")
		coord.Stop()
	}()

	if refreshErr := coord.FirstRefresh(ctx); refreshErr != nil {
		return fmt.Errorf("first refresh: %w", refreshErr)
	}
	caps := coord.Capabilities()
	log.Info("hub connected",
		"host", ent.Host,
		"model", caps.Model,
		"firmware", caps.Firmware,
		"outputs", caps.OutputCount,
		"supports_power", caps.SupportsPower,
	)

	dispatcher, err := mhub.NewDispatcher(mhub.DispatcherOptions{
		Client:         client,
		Refresher:      coord,
		CommandTimeout: cfg.Device.CommandTimeoutDuration(),
		Logger:         hubLog,
	})
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	defer dispatcher.Close()

	// WebSocket hub runs before the registry so startup states reach it.
	wsHub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go wsHub.Run(ctx)

	// MQTT (optional)
	var mqttClient *mqtt.Client
	var publisher *entity.MQTTPublisher
	if cfg.MQTT.Enabled {
		topics := mqtt.Topics{EntryID: ent.ID}
		mqttClient, err = mqtt.Connect(cfg.MQTT, topics.Availability())
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		publisher, err = entity.NewMQTTPublisher(entity.MQTTPublisherOptions{
			Client:           mqttClient,
			Topics:           topics,
			QoS:              mqttClient.QoS(),
			DiscoveryEnabled: cfg.Discovery.Enabled,
			DiscoveryPrefix:  cfg.Discovery.Prefix,
			NodeID:           cfg.Discovery.NodeID,
			Logger:           log.Component("mqtt"),
		})
		if err != nil {
			return fmt.Errorf("creating MQTT publisher: %w", err)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Entities
	deviceInfo := func() entity.DeviceInfo {
		return entity.DeviceInfo{EntryID: ent.ID, Title: ent.Title, Caps: coord.Capabilities()}
	}
	regOpts := entity.RegistryOptions{
		Coordinator: coord,
		Dispatcher:  dispatcher,
		Logger:      log.Component("entity"),
	}
	if influxClient != nil {
		regOpts.Metrics = influxClient
	}
	if publisher != nil {
		regOpts.OnAdd = func(added []entity.Entity) {
			if pubErr := publisher.PublishDiscovery(added, deviceInfo()); pubErr != nil {
				log.Warn("publishing discovery for new outputs failed", "error", pubErr)
			}
		}
	}
	registry, err := entity.NewRegistry(regOpts)
	if err != nil {
		return fmt.Errorf("creating entity registry: %w", err)
	}
	registry.AddPublisher(wsHub)
	if publisher != nil {
		registry.AddPublisher(publisher)
	}

	registry.Start()
	defer func() {
		log.Info("stopping entity registry")
		registry.Stop()
	}()
	log.Info("entities created", "count", len(registry.Entities()), "outputs", registry.Outputs())

	if publisher != nil {
		if pubErr := publisher.PublishDiscovery(registry.Entities(), deviceInfo()); pubErr != nil {
			log.Warn("publishing discovery failed", "error", pubErr)
		}
		if subErr := publisher.Subscribe(ctx, registry); subErr != nil {
			return fmt.Errorf("subscribing to commands: %w", subErr)
		}
		defer func() {
			if unsubErr := publisher.Unsubscribe(); unsubErr != nil {
				log.Warn("error unsubscribing commands", "error", unsubErr)
			}
		}()

		// The broker may have lost retained state while we were away.
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
			if pubErr := publisher.PublishDiscovery(registry.Entities(), deviceInfo()); pubErr != nil {
				log.Warn("publishing discovery failed", "error", pubErr)
			}
			registry.PublishAll()
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	}
	registry.PublishAll()

	coord.Start(ctx)
	log.Info("refresh scheduler started", "interval", cfg.Device.ScanIntervalDuration())

	// HTTP API
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Logger:    log.Component("api"),
		Entry:     ent,
		Device:    coord,
		Entities:  registry,
		Entries:   entries,
		Validator: flow,
		Hub:       wsHub,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	log.Info("API server listening", "addr", server.Addr())

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API server, MQTT command
	// subscription, registry, MQTT (publishes offline), dispatcher,
	// coordinator, InfluxDB, database.

	log.Info("MHUB bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses MHUB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("MHUB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadDotEnv loads .env (or MHUB_ENV_FILE) into the environment. A missing
// file is not an error; variables already set are not overwritten.
func loadDotEnv() error {
	path := ".env"
	if p := os.Getenv("MHUB_ENV_FILE"); p != "" {
		path = p
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient are nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
