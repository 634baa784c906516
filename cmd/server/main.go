// Package main provides the box server entry point.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/bertibox/bertibox/internal/app/notification"
	"github.com/bertibox/bertibox/internal/app/player"
	"github.com/bertibox/bertibox/internal/infra/audio"
	"github.com/bertibox/bertibox/internal/infra/config"
	"github.com/bertibox/bertibox/internal/infra/logger"
	"github.com/bertibox/bertibox/internal/infra/rfid"
	"github.com/bertibox/bertibox/internal/infra/store"
)

var (
	app        = kingpin.New("bertibox-server", "BertiBox RFID jukebox server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func init() {
	app.Command("start", "Start the box (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main box logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	// Open the database
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	// Create audio engine
	engine, err := audio.New(cfg.Audio.Type, cfg.Audio.Settings)
	if err != nil {
		return fmt.Errorf("failed to create audio engine: %w", err)
	}
	defer engine.Close()

	// Create reader hardware and presence detector
	hw, err := rfid.NewHardware(cfg.Reader.Type, cfg.Reader.Settings)
	if err != nil {
		return fmt.Errorf("failed to create reader: %w", err)
	}
	detector := rfid.NewDetector(hw, cfg.PollInterval(), cfg.TagTimeout())

	// Create notification manager and session controller
	notifier := notification.NewManager()
	ctrl, err := player.NewController(player.Config{
		MediaDir:        cfg.Box.MediaDir,
		MonitorInterval: cfg.MonitorInterval(),
		DefaultVolume:   cfg.Audio.DefaultVolume,
	}, st, engine, notifier)
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	// Playlist edits made while a tag is playing take effect on the
	// next track transition.
	st.OnMutation(ctrl.NotifyPlaylistMutated)

	ctrl.Start(detector.Events())
	detector.Start()

	executeHooks(cfg.Box.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	zlog.Info().Msg("Received shutdown signal...")

	// Stop producers before consumers: detector first, then the
	// controller, then the audio engine and store via defers.
	detector.Stop()
	if err := hw.Close(); err != nil {
		zlog.Error().Msgf("Failed to close reader: %v", err)
	}
	ctrl.Close()
	notifier.Close()

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Box.Hooks.OnStopped, "on_stopped")

	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
