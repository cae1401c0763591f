package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tbrandt/iiobridge/internal/config"
	"github.com/tbrandt/iiobridge/internal/configdb"
	"github.com/tbrandt/iiobridge/internal/engine"
	"github.com/tbrandt/iiobridge/internal/hwmon"
	"github.com/tbrandt/iiobridge/internal/mqtt"
	"github.com/tbrandt/iiobridge/internal/sensor"
	"github.com/tbrandt/iiobridge/internal/transmission"
)

// version is injected at build time via ldflags
var version = "dev"

func main() {
	cfg := parseFlags()
	logger := setupLogger(cfg.Verbose)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	logger.WithFields(logrus.Fields{
		"version":    version,
		"device_id":  cfg.DeviceID,
		"scan_root":  cfg.ScanRoot,
		"record_dir": cfg.RecordDir,
		"debounce":   cfg.DebounceWindow,
	}).Info("Starting iiobridge")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("Shutdown signal received")
		cancel()
	}()

	// Outbound side -------------------------------------------------------
	var (
		publisher sensor.Publisher
		mqttTx    *transmission.MQTTTransmitter
	)
	if cfg.HasMQTT() {
		client, err := mqtt.NewClient(cfg.MQTTUrl, cfg.DeviceID, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create MQTT client")
		}
		defer client.Disconnect(250)
		mqttTx = transmission.NewMQTTTransmitter(client, cfg.DeviceID, cfg.DiscoveryPrefix, logger)
		publisher = mqttTx
		logger.Info("MQTT transmitter ready")
	} else {
		publisher = transmission.NewLogTransmitter(logger)
		logger.Warn("No MQTT broker configured; readings will only be logged")
	}

	// Reconciliation engine -----------------------------------------------
	scanner := hwmon.NewScanner(cfg.ScanRoot, nil)
	store := configdb.NewDirStore(cfg.RecordDir, logger)
	eng := engine.New(scanner, store, publisher, logger, engine.Options{
		DefaultPollRate: cfg.DefaultPollRate,
		DebounceWindow:  cfg.DebounceWindow,
	})

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return eng.Run(ctx)
	})
	if mqttTx != nil {
		grp.Go(func() error {
			return availabilityLoop(ctx, mqttTx, logger)
		})
	}

	if err := grp.Wait(); err != nil && err != context.Canceled {
		logger.WithError(err).Warn("background group exited")
	}
	logger.Info("iiobridge stopped")
}

// availabilityLoop keeps the retained availability topic fresh so
// consumers notice both startup and shutdown.
func availabilityLoop(ctx context.Context, tx *transmission.MQTTTransmitter, logger *logrus.Logger) error {
	if err := tx.PublishAvailability(true); err != nil {
		logger.WithError(err).Warn("availability publish failed")
	}
	ticker := time.NewTicker(config.AvailabilityInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := tx.PublishAvailability(false); err != nil {
				logger.WithError(err).Debug("offline availability publish failed")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := tx.PublishAvailability(true); err != nil {
				logger.WithError(err).Warn("availability publish failed")
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Helpers & Flags
// -----------------------------------------------------------------------------

func parseFlags() *config.Config {
	cfg := config.GetDefaultConfig()

	showVersion := flag.Bool("version", false, "Show version and exit")
	configFile := flag.String("config", getEnv("IIOBRIDGE_CONFIG", ""), "Optional YAML config file")

	flag.StringVar(&cfg.MQTTUrl, "mqtt-url", getEnv("IIOBRIDGE_MQTT_URL", cfg.MQTTUrl), "MQTT URL")
	flag.StringVar(&cfg.DeviceID, "device-id", getEnv("IIOBRIDGE_DEVICE_ID", defaultDeviceID()), "Device identifier")
	flag.StringVar(&cfg.DiscoveryPrefix, "discovery-prefix", getEnv("IIOBRIDGE_DISCOVERY_PREFIX", cfg.DiscoveryPrefix), "HA discovery prefix")
	flag.StringVar(&cfg.ScanRoot, "scan-root", getEnv("IIOBRIDGE_SCAN_ROOT", cfg.ScanRoot), "IIO device tree root")
	flag.StringVar(&cfg.RecordDir, "record-dir", getEnv("IIOBRIDGE_RECORD_DIR", cfg.RecordDir), "Sensor configuration record directory")
	flag.BoolVar(&cfg.Verbose, "verbose", getEnv("IIOBRIDGE_VERBOSE", "false") == "true", "Verbose logging")

	debounceStr := flag.String("debounce-window", getEnv("IIOBRIDGE_DEBOUNCE_WINDOW", ""), "Change debounce window (e.g. 1s)")
	pollRateStr := flag.String("default-poll-rate", getEnv("IIOBRIDGE_DEFAULT_POLL_RATE", ""), "Default sensor poll rate (e.g. 500ms)")

	flag.Parse()

	if *showVersion {
		fmt.Printf("iiobridged %s\n", version)
		os.Exit(0)
	}

	if *configFile != "" {
		if err := cfg.LoadFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "cannot load config file: %v\n", err)
			os.Exit(1)
		}
	}

	// Duration overrides
	if *debounceStr != "" {
		if d, err := time.ParseDuration(*debounceStr); err == nil && d > 0 {
			cfg.DebounceWindow = d
		}
	}
	if *pollRateStr != "" {
		if d, err := time.ParseDuration(*pollRateStr); err == nil && d > 0 {
			cfg.DefaultPollRate = d
		}
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultDeviceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "iiobridge"
}

func setupLogger(verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}
