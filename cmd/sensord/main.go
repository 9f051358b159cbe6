//go:build darwin

// sensord reads the Apple Silicon accelerometer and writes decimated samples
// to a POSIX shared memory ring for stepd and stepdash.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/taigrr/stepcounter/internal/config"
	"github.com/taigrr/stepcounter/sensor"
	"github.com/taigrr/stepcounter/shm"
)

var version = "dev"

func main() {
	var (
		cfgPath    string
		decimation int
		logLevel   string
	)
	cmd := &cobra.Command{
		Use:   "sensord",
		Short: "Accelerometer sample daemon",
		Long: `sensord reads the accelerometer of Apple Silicon MacBooks via IOKit HID,
keeps one report in --decimation (about 25 Hz by default) and writes the
samples to POSIX shared memory for stepd and stepdash.

Requires root privileges (sudo).`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("decimation") {
				cfg.Decimation = decimation
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "YAML config file")
	cmd.Flags().IntVar(&decimation, "decimation", sensor.DefaultDecimation, "keep one in N IMU reports")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := fang.Execute(ctx, cmd); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if os.Geteuid() != 0 {
		return fmt.Errorf("sensord requires root privileges, run with: sudo sensord")
	}
	log := cfg.Logger(os.Stderr)

	ring, err := shm.CreateRing(shm.NameAccel)
	if err != nil {
		return fmt.Errorf("creating accel shm: %w", err)
	}
	defer ring.Close()
	defer ring.Unlink()

	log.Info("streaming accelerometer", "shm", shm.NameAccel, "decimation", cfg.Decimation)
	err = sensor.Run(ctx, sensor.Config{
		AccelRing:  ring,
		Decimation: cfg.Decimation,
	})
	log.Info("stopped", "samples", ring.Total())
	return err
}
