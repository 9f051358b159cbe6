// stepreplay runs the step detector over recorded accelerometer CSV files
// and reports the count, rejection statistics and cadence.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/taigrr/stepcounter/internal/config"
	"github.com/taigrr/stepcounter/pedometer"
	"github.com/taigrr/stepcounter/replay"
)

var version = "dev"

type options struct {
	cfgPath  string
	batch    int
	shift    uint
	set      []string
	verbose  bool
	start    string
	rate     float64
	logLevel string
}

func main() {
	var opts options
	cmd := &cobra.Command{
		Use:   "stepreplay [flags] FILE...",
		Short: "Replay accelerometer recordings through the step detector",
		Long: `stepreplay feeds recorded accelerometer samples to the step detector the
way the sensor FIFO would, one batch per scheduler tick, and prints the
resulting step count, rejected pulses and cadence.

Recordings are CSV with "x,y,z" or "t,x,y,z" per line; "-" reads stdin.`,
		Version:      version,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &opts)
			if err != nil {
				return err
			}
			for _, path := range args {
				if err := replayFile(cmd.OutOrStdout(), path, cfg, &opts); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.cfgPath, "config", "c", "", "YAML config file")
	f.IntVarP(&opts.batch, "batch", "b", replay.FIFODepth, "samples delivered per tick")
	f.UintVar(&opts.shift, "shift", 0, "right shift applied to raw counts (overrides config)")
	f.StringArrayVar(&opts.set, "set", nil, "override a detector setting, e.g. --set threshold=14")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log every step decision")
	f.StringVar(&opts.start, "start", "", "wall clock of the first sample (RFC 3339, default now)")
	f.Float64Var(&opts.rate, "rate", replay.SampleRate, "sample rate in Hz for cadence")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(opts.cfgPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("shift") {
		cfg.SampleShift = opts.shift
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	for _, kv := range opts.set {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: expected field=value", kv)
		}
		field, err := pedometer.ParseField(name)
		if err != nil {
			return nil, fmt.Errorf("--set %q: %w", kv, err)
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("--set %q: %w", kv, err)
		}
		if cfg.Engine, err = cfg.Engine.Set(field, n); err != nil {
			return nil, fmt.Errorf("--set %q: %w", kv, err)
		}
	}
	if opts.rate <= 0 {
		return nil, fmt.Errorf("--rate must be positive, got %g", opts.rate)
	}
	return cfg, cfg.Validate()
}

func replayFile(w io.Writer, path string, cfg *config.Config, opts *options) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening recording: %w", err)
		}
		defer f.Close()
		r = f
	}
	samples, err := replay.Parse(r, cfg.SampleShift)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	now := time.Now()
	if opts.start != "" {
		if now, err = time.Parse(time.RFC3339, opts.start); err != nil {
			return fmt.Errorf("--start: %w", err)
		}
	}

	log := cfg.Logger(os.Stderr).With("file", path)
	var (
		steps []pedometer.Step
		mags  = make([]float64, 0, len(samples))
	)
	eng := pedometer.New(append(cfg.EngineOptions(),
		pedometer.WithLogger(log),
		pedometer.WithStepHook(func(s pedometer.Step) { steps = append(steps, s) }),
		pedometer.WithTrace(func(tr pedometer.Trace) { mags = append(mags, float64(tr.Magnitude)) }),
	)...)

	src := replay.NewSource(samples, opts.batch)
	tick := cfg.TickInterval()
	ticks := 0
	for !src.Done() {
		eng.Tick(now, src)
		now = now.Add(tick)
		ticks++
	}
	// Flush whatever the last tick left pending.
	eng.Detect()

	st := eng.Stats()
	c := replay.StepCadence(steps, opts.rate)
	fmt.Fprintf(w, "%s: %d samples, %d ticks, %d passes\n", path, len(samples), ticks, st.Passes)
	fmt.Fprintf(w, "  steps      %d\n", eng.Steps())
	fmt.Fprintf(w, "  rejected   too long %d, too soon %d\n", st.TooLong, st.TooSoon)
	if st.Overruns > 0 {
		fmt.Fprintf(w, "  overruns   %d samples lost, raise capacity or lower pass_every\n", st.Overruns)
	}
	if c.Steps >= 2 {
		fmt.Fprintf(w, "  interval   %.1f ± %.1f samples\n", c.MeanInterval, c.StdInterval)
		fmt.Fprintf(w, "  cadence    %.0f steps/min\n", c.PerMinute)
	}
	if f := replay.DominantFrequency(mags, opts.rate); f > 0 {
		fmt.Fprintf(w, "  dominant   %.2f Hz (%.0f /min)\n", f, f*60)
	}
	return nil
}
