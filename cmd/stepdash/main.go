//go:build darwin

// stepdash is a terminal dashboard that runs the step detector on samples
// from sensord and shows the count, the filter signals and the settings
// pages.
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
	"github.com/taigrr/stepcounter/internal/face"
	"github.com/taigrr/stepcounter/pedometer"
	"github.com/taigrr/stepcounter/shm"
)

var version = "dev"

// history is the number of traced samples kept for the plots, about ten
// seconds at 25 Hz.
const history = 250

func main() {
	var (
		cfgPath string
		beep    bool
	)
	cmd := &cobra.Command{
		Use:   "stepdash",
		Short: "Live step counter dashboard",
		Long: `stepdash reads accelerometer samples from shared memory (created by
sensord), runs the step detector and displays a live terminal dashboard
with the step count, magnitude and high-pass plots, and settings pages
for tuning the detector.

Run sensord first in another terminal (with sudo).`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("chime") {
				cfg.Chime = beep
			}
			return run(cmd.Context(), cfg, cfgPath)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "YAML config file (w saves settings back to it)")
	cmd.Flags().BoolVar(&beep, "chime", false, "beep on steps and settings changes")

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, cfgPath string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The dashboard owns the terminal; log lines would tear the frame.
	log := cfg.Logger(io.Discard)

	ring, err := shm.OpenRing(shm.NameAccel)
	if err != nil {
		return fmt.Errorf("opening accel shm (is sensord running?): %w", err)
	}
	defer ring.Close()

	var (
		mags, hps []float64
		active    bool
		events    []stepEvent
		status    string
	)

	playStep := func() {}
	if cfg.Chime {
		player := chime.New(-1)
		defer player.Close()
		playStep = chimer(player, &status)
	}

	eng := pedometer.New(append(cfg.EngineOptions(),
		pedometer.WithLogger(log),
		pedometer.WithTrace(func(tr pedometer.Trace) {
			mags = appendCapped(mags, float64(tr.Magnitude))
			hps = appendCapped(hps, float64(tr.HighPass))
			active = tr.Active
		}),
		pedometer.WithStepHook(func(s pedometer.Step) {
			events = append(events, stepEvent{at: time.Now(), step: s})
			if len(events) > 5 {
				events = events[len(events)-5:]
			}
			playStep()
		}),
	)...)
	src := shm.NewSource(ring, cfg.SampleShift, eng.Ring().Cap(), log)
	f := face.New(eng, face.WithBeep(playStep))

	restore, err := rawMode(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	defer restore()
	keys := readKeys(ctx)

	fmt.Print(altOn + hideCur)
	defer fmt.Print(showCur + altOff + "\n")

	tick := time.NewTicker(cfg.TickInterval())
	defer tick.Stop()
	draw := time.NewTicker(100 * time.Millisecond)
	defer draw.Stop()

	tStart := time.Now()
	startTotal := ring.Total()
	var frames int

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-tick.C:
			eng.Tick(now, src)
			continue
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			var quit bool
			status, quit = handleKey(k, f, eng, cfg, cfgPath)
			if quit {
				return nil
			}
		case <-draw.C:
			frames++
		}

		elapsed := time.Since(tStart)
		rate := 0.0
		if elapsed >= time.Second {
			rate = float64(ring.Total()-startTotal) / elapsed.Seconds()
		}
		fmt.Print(home + render(view{
			elapsed:  elapsed,
			steps:    eng.Steps(),
			cfg:      eng.Config(),
			stats:    eng.Stats(),
			page:     f.Page(),
			field:    f.Field(),
			blink:    frames%10 < 5,
			mags:     mags,
			hps:      hps,
			active:   active,
			events:   events,
			rate:     rate,
			status:   status,
			canWrite: cfgPath != "",
		}))
	}
}

// handleKey applies one key press and returns a status line and whether to
// quit.
func handleKey(k byte, f *face.Face, eng *pedometer.Engine, cfg *config.Config, cfgPath string) (string, bool) {
	switch k {
	case 'q', 'Q':
		return "", true
	case 'e', '\r', '\n':
		f.Press(face.Enter)
	case 'n', '\t':
		f.Press(face.Next)
	case '+', '=', 'k':
		f.Press(face.Advance)
	case '-', '_', 'j':
		f.Press(face.Retreat)
	case 'x':
		if f.Press(face.Exit) {
			return "settings applied, counter reset", false
		}
	case 'r':
		eng.Reset()
		return "counter reset", false
	case 'w':
		if cfgPath == "" {
			return "no --config file to save to", false
		}
		cfg.Engine = eng.Config()
		if err := cfg.Save(cfgPath); err != nil {
			return red + err.Error() + rst, false
		}
		return "saved " + cfgPath, false
	}
	return "", false
}

// tone plays the step chime.
type tone interface {
	Step() error
}

// chimer returns a func that plays t and reports a failure in *status.
func chimer(t tone, status *string) func() {
	return func() {
		if err := t.Step(); err != nil {
			*status = red + "chime: " + err.Error() + rst
		}
	}
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > history {
		s = append(s[:0], s[len(s)-history:]...)
	}
	return s
}
