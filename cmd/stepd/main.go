//go:build darwin

// stepd counts steps from the samples sensord writes to shared memory and
// publishes the running count for other programs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/taigrr/stepcounter/chime"
	"github.com/taigrr/stepcounter/internal/config"
	"github.com/taigrr/stepcounter/pedometer"
	"github.com/taigrr/stepcounter/shm"
)

var version = "dev"

type runFlags struct {
	cfgPath   string
	tick      string
	passEvery int
	chime     bool
	goal      uint64
	logLevel  string
}

func main() {
	root := &cobra.Command{
		Use:          "stepd",
		Short:        "Step counting daemon",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(runCmd(), statusCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := fang.Execute(ctx, root); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Count steps from sensord's sample ring",
		Long: `run drains the accelerometer ring written by sensord once per tick, runs
the step detector and publishes the count to shared memory. The count
resets at local midnight.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(rf.cfgPath)
			if err != nil {
				return err
			}
			fl := cmd.Flags()
			if fl.Changed("tick") {
				cfg.Tick = rf.tick
			}
			if fl.Changed("pass-every") {
				cfg.PassEvery = rf.passEvery
			}
			if fl.Changed("chime") {
				cfg.Chime = rf.chime
			}
			if fl.Changed("log-level") {
				cfg.LogLevel = rf.logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, rf.goal)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&rf.cfgPath, "config", "c", "", "YAML config file")
	f.StringVar(&rf.tick, "tick", "1s", "scheduler period")
	f.IntVar(&rf.passEvery, "pass-every", 1, "run a detection pass every N ticks")
	f.BoolVar(&rf.chime, "chime", false, "beep on every step")
	f.Uint64Var(&rf.goal, "goal", 0, "play a tone every GOAL steps (0 disables)")
	f.StringVar(&rf.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, goal uint64) error {
	log := cfg.Logger(os.Stderr)

	ring, err := shm.OpenRing(shm.NameAccel)
	if err != nil {
		return fmt.Errorf("opening accel shm (is sensord running?): %w", err)
	}
	defer ring.Close()

	snap, err := shm.CreateSnapshot(shm.NameSteps)
	if err != nil {
		return fmt.Errorf("creating steps shm: %w", err)
	}
	defer snap.Close()
	defer snap.Unlink()

	var player *chime.Player
	if cfg.Chime || goal > 0 {
		player = chime.New(-1)
		defer player.Close()
	}

	eng := pedometer.New(append(cfg.EngineOptions(),
		pedometer.WithLogger(log),
		pedometer.WithStepHook(func(s pedometer.Step) {
			if player == nil {
				return
			}
			var err error
			switch {
			case goal > 0 && s.Total%goal == 0:
				err = player.Goal()
			case cfg.Chime:
				err = player.Step()
			}
			if err != nil {
				log.Warn("chime failed", "err", err)
			}
		}),
	)...)
	src := shm.NewSource(ring, cfg.SampleShift, eng.Ring().Cap(), log)

	log.Info("counting steps",
		"tick", cfg.TickInterval(),
		"threshold", cfg.Engine.Threshold,
		"window", cfg.Engine.Window(),
		"max_duration", cfg.Engine.MaxDuration,
		"min_interval", cfg.Engine.MinInterval,
	)
	snap.Publish(shm.StepStatus{Config: eng.Config()})

	t := time.NewTicker(cfg.TickInterval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			st := eng.Stats()
			log.Info("stopped", "steps", eng.Steps(), "passes", st.Passes,
				"too_long", st.TooLong, "too_soon", st.TooSoon, "overruns", st.Overruns)
			return nil
		case now := <-t.C:
			if n := eng.Tick(now, src); n > 0 {
				log.Info("steps", "added", n, "total", eng.Steps())
			}
			snap.Publish(shm.StepStatus{Steps: eng.Steps(), Config: eng.Config()})
		}
	}
}

func statusCmd() *cobra.Command {
	var (
		follow   bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the step count published by stepd run",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := shm.OpenSnapshot(shm.NameSteps)
			if err != nil {
				return fmt.Errorf("opening steps shm (is stepd running?): %w", err)
			}
			defer snap.Close()

			out := cmd.OutOrStdout()
			st, last, ok := snap.Read(0)
			if ok {
				printStatus(out, st)
			} else if !follow {
				return fmt.Errorf("no step status published yet")
			}
			if !follow {
				return nil
			}
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", interval)
			}
			t := time.NewTicker(interval)
			defer t.Stop()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-t.C:
					var ok bool
					if st, last, ok = snap.Read(last); ok {
						printStatus(out, st)
					}
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing updates")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval with --follow")
	return cmd
}

func printStatus(w io.Writer, st shm.StepStatus) {
	fmt.Fprintf(w, "%s steps=%d threshold=%d window=%d max_duration=%d min_interval=%d\n",
		time.Now().Format(time.TimeOnly), st.Steps, st.Config.Threshold, st.Config.Window(),
		st.Config.MaxDuration, st.Config.MinInterval)
}
