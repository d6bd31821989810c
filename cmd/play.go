package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/smazurov/glyphnode/internal/glyph"
	"github.com/smazurov/glyphnode/internal/led"
	"github.com/smazurov/glyphnode/internal/logging"
	"github.com/smazurov/glyphnode/internal/resources"
	"github.com/spf13/cobra"
)

type playFlags struct {
	resourcesDir string
	backend      string
	sysfsPath    string
	brightness   int
	duration     time.Duration
	logLevel     string
}

// CreatePlayCmd creates the play command, which drives the LEDs directly
// without starting the server.
func CreatePlayCmd() *cobra.Command {
	var flags playFlags

	cmd := &cobra.Command{
		Use:   "play <csv|call|charging|volume|music|essential> [arg]",
		Short: "Play one animation and exit",
		Long: `Runs a single playback on the local LEDs and waits for it to finish. ` +
			`csv and call take an animation name, charging and volume a level in percent, ` +
			`music a band. The call loop and the essential LED are held for --duration.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Initialize(logging.Config{Level: flags.logLevel, Format: "text"})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			engine, closeAll, err := openEngine(flags)
			if err != nil {
				return err
			}
			defer closeAll()

			outcome, err := runPlayback(ctx, engine, args, flags.duration)
			fmt.Fprintln(cmd.OutOrStdout(), outcome)
			return err
		},
	}

	cmd.Flags().StringVarP(&flags.resourcesDir, "resources", "r", "", "Resources directory (empty for built-in defaults)")
	cmd.Flags().StringVar(&flags.backend, "backend", led.BackendAuto, "LED backend: auto, sysfs, i2c or noop")
	cmd.Flags().StringVar(&flags.sysfsPath, "sysfs-path", "", "Glyph LED sysfs directory")
	cmd.Flags().IntVar(&flags.brightness, "brightness", glyph.DefaultMaxPatternBrightness, "Brightness ceiling")
	cmd.Flags().DurationVar(&flags.duration, "duration", 5*time.Second, "How long to hold call and essential playback")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "warn", "Logging level")
	return cmd
}

func openEngine(flags playFlags) (*glyph.Engine, func(), error) {
	logger := logging.GetLogger("play")

	res, err := resources.Open(flags.resourcesDir)
	if err != nil {
		return nil, nil, err
	}
	sink, err := led.New(led.Config{Backend: flags.backend, SysfsPath: flags.sysfsPath}, logger)
	if err != nil {
		return nil, nil, err
	}
	ceiling, err := led.NewCeiling(glyph.DefaultMaxPatternBrightness, flags.brightness)
	if err != nil {
		sink.Close()
		return nil, nil, err
	}
	engine, err := glyph.New(glyph.Options{
		Sink:       sink,
		Resources:  res,
		Brightness: ceiling,
		Logger:     logging.GetLogger("glyph"),
	})
	if err != nil {
		sink.Close()
		return nil, nil, err
	}
	return engine, func() {
		engine.Close()
		sink.Close()
	}, nil
}

func runPlayback(ctx context.Context, engine *glyph.Engine, args []string, hold time.Duration) (glyph.Outcome, error) {
	kind, arg := args[0], ""
	if len(args) > 1 {
		arg = args[1]
	}
	needArg := func() error {
		if arg == "" {
			return fmt.Errorf("%s needs an argument", kind)
		}
		return nil
	}

	switch kind {
	case "csv":
		if err := needArg(); err != nil {
			return glyph.OutcomeFailed, err
		}
		return engine.RunCSV(ctx, arg, true)
	case "charging", "volume":
		if err := needArg(); err != nil {
			return glyph.OutcomeFailed, err
		}
		level, err := strconv.Atoi(arg)
		if err != nil {
			return glyph.OutcomeFailed, fmt.Errorf("invalid level %q", arg)
		}
		if kind == "charging" {
			return engine.PlayCharging(ctx, level, true)
		}
		return engine.PlayVolume(ctx, level, true)
	case "music":
		if err := needArg(); err != nil {
			return glyph.OutcomeFailed, err
		}
		return engine.PlayMusic(ctx, arg)
	case "call":
		if err := needArg(); err != nil {
			return glyph.OutcomeFailed, err
		}
		outcome, err := engine.PlayCall(ctx, arg)
		if err != nil || outcome != glyph.OutcomeStarted {
			return outcome, err
		}
		wait(ctx, hold)
		return engine.StopCall(context.Background())
	case "essential":
		outcome, err := engine.RunEssential(ctx)
		if err != nil || outcome != glyph.OutcomeCompleted {
			return outcome, err
		}
		wait(ctx, hold)
		return engine.StopEssential(context.Background())
	default:
		return glyph.OutcomeFailed, fmt.Errorf("unknown playback kind %q", kind)
	}
}

func wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
