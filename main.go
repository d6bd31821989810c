package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/glyphnode/cmd"
	"github.com/smazurov/glyphnode/internal/api"
	"github.com/smazurov/glyphnode/internal/config"
	"github.com/smazurov/glyphnode/internal/events"
	"github.com/smazurov/glyphnode/internal/glyph"
	"github.com/smazurov/glyphnode/internal/led"
	"github.com/smazurov/glyphnode/internal/logging"
	"github.com/smazurov/glyphnode/internal/metrics"
	"github.com/smazurov/glyphnode/internal/metrics/collectors"
	"github.com/smazurov/glyphnode/internal/metrics/exporters"
	"github.com/smazurov/glyphnode/internal/mqtt"
	"github.com/smazurov/glyphnode/internal/resources"
	"github.com/smazurov/glyphnode/internal/systemd"
	"github.com/smazurov/glyphnode/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port       string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigin string `help:"Allowed CORS origin" default:"" toml:"server.cors_origin" env:"SERVER_CORS_ORIGIN"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// LED settings
	LEDBackend           string `help:"LED backend (auto, sysfs, i2c, noop)" default:"auto" toml:"led.backend" env:"LED_BACKEND"`
	LEDSysfsPath         string `help:"Glyph LED sysfs directory" default:"" toml:"led.sysfs_path" env:"LED_SYSFS_PATH"`
	LEDZones             int    `help:"Number of LED zones" default:"5" toml:"led.zones" env:"LED_ZONES"`
	LEDI2CBus            string `help:"I2C bus name" default:"" toml:"led.i2c.bus" env:"LED_I2C_BUS"`
	LEDI2CAddress        int    `help:"I2C device address" default:"0" toml:"led.i2c.address" env:"LED_I2C_ADDRESS"`
	LEDI2CBaseRegister   int    `help:"First PWM register" default:"0" toml:"led.i2c.base_register" env:"LED_I2C_BASE_REGISTER"`
	LEDI2CUpdateRegister int    `help:"Latch register, -1 for none" default:"-1" toml:"led.i2c.update_register" env:"LED_I2C_UPDATE_REGISTER"`

	// Brightness settings
	BrightnessMax     int `help:"Largest brightness ceiling" default:"4095" toml:"brightness.max" env:"BRIGHTNESS_MAX"`
	BrightnessDefault int `help:"Brightness ceiling at startup" default:"4095" toml:"brightness.default" env:"BRIGHTNESS_DEFAULT"`

	// Glyph engine settings
	ResourcesDir          string `help:"Animation and tunables directory" default:"" toml:"glyph.resources_dir" env:"GLYPH_RESOURCES_DIR"`
	MaxPatternBrightness  int    `help:"Largest pattern value" default:"4095" toml:"glyph.max_pattern_brightness" env:"GLYPH_MAX_PATTERN_BRIGHTNESS"`
	EssentialFloorPercent int    `help:"Essential LED floor in percent" default:"60" toml:"glyph.essential_floor_percent" env:"GLYPH_ESSENTIAL_FLOOR_PERCENT"`
	FrameIntervalUs       int    `help:"Frame interval in microseconds" default:"16666" toml:"glyph.frame_interval_us" env:"GLYPH_FRAME_INTERVAL_US"`
	ProgressStepMs        int    `help:"Progress bar step in milliseconds" default:"22" toml:"glyph.progress_step_ms" env:"GLYPH_PROGRESS_STEP_MS"`
	MusicHoldMs           int    `help:"Music flash on-time in milliseconds" default:"106" toml:"glyph.music_hold_ms" env:"GLYPH_MUSIC_HOLD_MS"`
	AdmissionTimeoutMs    int    `help:"Longest admission wait in milliseconds" default:"2500" toml:"glyph.admission_timeout_ms" env:"GLYPH_ADMISSION_TIMEOUT_MS"`
	ChargingDismissMs     int    `help:"Hide the charging bar after this long, 0 to keep it" default:"0" toml:"glyph.charging_dismiss_ms" env:"GLYPH_CHARGING_DISMISS_MS"`
	VolumeDismissMs       int    `help:"Hide the volume bar after this long, 0 to keep it" default:"1500" toml:"glyph.volume_dismiss_ms" env:"GLYPH_VOLUME_DISMISS_MS"`

	// Power supply settings
	PowerEnabled    bool   `help:"Show the charging bar on plug-in" default:"false" toml:"power.enabled" env:"POWER_ENABLED"`
	PowerSupplyPath string `help:"power_supply sysfs directory" default:"/sys/class/power_supply/battery" toml:"power.supply_path" env:"POWER_SUPPLY_PATH"`
	PowerIntervalMs int    `help:"Power supply poll interval in milliseconds" default:"5000" toml:"power.interval_ms" env:"POWER_INTERVAL_MS"`

	// MQTT settings
	MQTTBroker   string `help:"MQTT broker URL, empty to disable" default:"" toml:"mqtt.broker" env:"MQTT_BROKER"`
	MQTTClientID string `help:"MQTT client ID" default:"glyphnode" toml:"mqtt.client_id" env:"MQTT_CLIENT_ID"`
	MQTTUsername string `help:"MQTT username" default:"" toml:"mqtt.username" env:"MQTT_USERNAME"`
	MQTTPassword string `help:"MQTT password" default:"" toml:"mqtt.password" env:"MQTT_PASSWORD"`
	MQTTPrefix   string `help:"MQTT topic prefix" default:"glyphnode" toml:"mqtt.prefix" env:"MQTT_PREFIX"`
	MQTTQoS      int    `help:"MQTT QoS (0-2)" default:"1" toml:"mqtt.qos" env:"MQTT_QOS"`

	// Observability settings
	ObsPrometheusEnabled bool `help:"Enable Prometheus" default:"true" toml:"obs.prometheus_enabled" env:"OBS_PROMETHEUS_ENABLED"`
	ObsSSEEnabled        bool `help:"Enable SSE" default:"true" toml:"obs.sse_enabled" env:"OBS_SSE_ENABLED"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingGlyph     string `help:"Glyph engine logging level" default:"info" toml:"logging.glyph" env:"LOGGING_GLYPH"`
	LoggingAPI       string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingMQTT      string `help:"MQTT logging level" default:"info" toml:"logging.mqtt" env:"LOGGING_MQTT"`
	LoggingLED       string `help:"LED backend logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
	LoggingResources string `help:"Resources logging level" default:"info" toml:"logging.resources" env:"LOGGING_RESOURCES"`
	LoggingPower     string `help:"Power supply logging level" default:"info" toml:"logging.power" env:"LOGGING_POWER"`
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"glyph":     opts.LoggingGlyph,
				"api":       opts.LoggingAPI,
				"mqtt":      opts.LoggingMQTT,
				"led":       opts.LoggingLED,
				"resources": opts.LoggingResources,
				"power":     opts.LoggingPower,
			},
		})
		logger := logging.GetLogger("main")
		logger.Info("Starting glyphnode", "version", version.String())

		// Create event bus for in-process event handling
		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.UTC().Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		sink, err := led.New(led.Config{
			Backend:   opts.LEDBackend,
			SysfsPath: opts.LEDSysfsPath,
			Zones:     opts.LEDZones,
			I2C: led.I2CConfig{
				Bus:            opts.LEDI2CBus,
				Address:        uint16(opts.LEDI2CAddress),
				BaseRegister:   byte(opts.LEDI2CBaseRegister),
				UpdateRegister: opts.LEDI2CUpdateRegister,
				MaxValue:       opts.MaxPatternBrightness,
			},
		}, logging.GetLogger("led"))
		if err != nil {
			logger.Error("Failed to open LED backend", "backend", opts.LEDBackend, "error", err)
			os.Exit(1)
		}
		logger.Info("LED backend ready", "backend", sink.Name())

		ceiling, err := led.NewCeiling(opts.BrightnessMax, opts.BrightnessDefault)
		if err != nil {
			logger.Error("Invalid brightness settings", "error", err)
			os.Exit(1)
		}
		metrics.SetBrightness(ceiling.Brightness())

		res, err := resources.Open(opts.ResourcesDir)
		if err != nil {
			logger.Error("Failed to load resources", "dir", opts.ResourcesDir, "error", err)
			os.Exit(1)
		}

		engine, err := glyph.New(glyph.Options{
			Sink:                  sink,
			Resources:             res,
			Brightness:            ceiling,
			EventBus:              eventBus,
			MaxPatternBrightness:  opts.MaxPatternBrightness,
			EssentialFloorPercent: opts.EssentialFloorPercent,
			Timing: glyph.Timing{
				Frame:        time.Duration(opts.FrameIntervalUs) * time.Microsecond,
				ProgressStep: time.Duration(opts.ProgressStepMs) * time.Millisecond,
				MusicHold:    time.Duration(opts.MusicHoldMs) * time.Millisecond,
				Admission:    time.Duration(opts.AdmissionTimeoutMs) * time.Millisecond,
			},
			AutoDismiss: glyph.AutoDismiss{
				Charging: time.Duration(opts.ChargingDismissMs) * time.Millisecond,
				Volume:   time.Duration(opts.VolumeDismissMs) * time.Millisecond,
			},
		})
		if err != nil {
			logger.Error("Failed to create glyph engine", "error", err)
			os.Exit(1)
		}

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			CORSOrigin:   opts.CORSOrigin,
			Glyph:        engine,
			Brightness:   ceiling,
			Catalog:      res,
			EventBus:     eventBus,
		}
		if opts.ObsPrometheusEnabled {
			apiOpts.PrometheusHandler = exporters.HTTPHandler(nil)
		}
		server := api.NewServer(apiOpts)

		var sseExporter *exporters.SSEExporter
		if opts.ObsSSEEnabled {
			sseExporter = exporters.NewSSEExporter(eventBus, exporters.DefaultStatsInterval)
		}

		var power *collectors.PowerCollector
		if opts.PowerEnabled {
			power = collectors.NewPowerCollector(
				opts.PowerSupplyPath,
				time.Duration(opts.PowerIntervalMs)*time.Millisecond,
				chargingHandler(engine, logger),
			)
		}

		notifier := systemd.NewNotifier()
		ctx, cancel := context.WithCancel(context.Background())

		var tunablesWatcher *config.Watcher[resources.Tunables]
		var mqttClient *mqtt.Client
		var bridge *mqtt.Bridge

		hooks.OnStart(func() {
			if res.Dir() != "" {
				tunablesWatcher, err = res.Watch(config.WithDebounce[resources.Tunables](500 * time.Millisecond))
				if err != nil {
					logger.Warn("Tunables hot reload disabled", "error", err)
				}
			}

			if sseExporter != nil {
				sseExporter.Start(ctx)
			}

			if power != nil {
				if startErr := power.Start(ctx); startErr != nil {
					logger.Warn("Power supply monitoring disabled", "error", startErr)
					power = nil
				}
			}

			if opts.MQTTBroker != "" {
				mqttClient, err = mqtt.Connect(mqtt.Config{
					Broker:   opts.MQTTBroker,
					ClientID: opts.MQTTClientID,
					Username: opts.MQTTUsername,
					Password: opts.MQTTPassword,
					Prefix:   opts.MQTTPrefix,
					QoS:      byte(opts.MQTTQoS),
				}, logging.GetLogger("mqtt"))
				if err != nil {
					logger.Warn("MQTT unavailable, continuing without it", "error", err)
				} else {
					bridge = mqtt.NewBridge(mqttClient, engine, eventBus, opts.MQTTPrefix, logging.GetLogger("mqtt"))
					if startErr := bridge.Start(ctx); startErr != nil {
						logger.Warn("Failed to start MQTT bridge", "error", startErr)
						bridge = nil
					}
				}
			}

			if _, wdErr := notifier.StartWatchdog(ctx); wdErr != nil {
				logger.Warn("Failed to start systemd watchdog", "error", wdErr)
			}
			if notifyErr := notifier.Ready(); notifyErr != nil {
				logger.Debug("Systemd notify failed", "error", notifyErr)
			}
			_ = notifier.Status("Serving on %s, LED backend %s", opts.Port, sink.Name())

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			_ = notifier.Stopping()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if stopErr := server.Stop(shutdownCtx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Event sources go first so nothing new reaches the engine
			if bridge != nil {
				bridge.Stop()
			}
			if mqttClient != nil {
				_ = mqttClient.Close()
			}
			if power != nil {
				_ = power.Stop()
			}
			if tunablesWatcher != nil {
				_ = tunablesWatcher.Stop()
			}

			if closeErr := engine.Close(); closeErr != nil {
				logger.Error("Error stopping glyph engine", "error", closeErr)
			}
			if sseExporter != nil {
				sseExporter.Stop()
			}
			notifier.StopWatchdog()
			cancel()

			if closeErr := sink.Close(); closeErr != nil {
				logger.Warn("Error closing LED backend", "error", closeErr)
			}
		})
	})

	cli.Root().Use = version.Name
	cli.Root().Version = version.String()
	cli.Root().AddCommand(cmd.CreateValidateCmd())
	cli.Root().AddCommand(cmd.CreatePlayCmd())

	// Run the CLI
	cli.Run()
}

// chargingHandler shows the charging bar while the charger is plugged in and
// hides it on unplug.
func chargingHandler(svc glyph.Service, logger *slog.Logger) func(prev, cur collectors.PowerState) {
	return func(prev, cur collectors.PowerState) {
		ctx := context.Background()
		switch {
		case cur.Charging && (!prev.Charging || cur.Capacity != prev.Capacity):
			outcome, err := svc.PlayCharging(ctx, cur.Capacity, false)
			logger.Debug("Charging bar updated", "capacity", cur.Capacity, "outcome", outcome, "error", err)
		case !cur.Charging && prev.Charging:
			outcome, err := svc.DismissCharging(ctx)
			logger.Debug("Charging bar dismissed", "outcome", outcome, "error", err)
		}
	}
}
