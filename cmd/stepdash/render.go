//go:build darwin

package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/taigrr/stepcounter/pedometer"
)

// ANSI escape codes.
const (
	rst     = "\033[0m"
	bold    = "\033[1m"
	dim     = "\033[2m"
	red     = "\033[31m"
	grn     = "\033[32m"
	yel     = "\033[33m"
	cyn     = "\033[36m"
	bwht    = "\033[97m"
	inv     = "\033[7m"
	hideCur = "\033[?25l"
	showCur = "\033[?25h"
	altOn   = "\033[?1049h"
	altOff  = "\033[?1049l"
	home    = "\033[2J\033[H"

	width  = 76
	blocks = " ▁▂▃▄▅▆▇█"
)

// stepEvent is an accepted step as shown in the event list.
type stepEvent struct {
	at   time.Time
	step pedometer.Step
}

// view is everything one frame shows.
type view struct {
	elapsed  time.Duration
	steps    uint64
	cfg      pedometer.Config
	stats    pedometer.Stats
	page     int // 0 = counter, else settings page number
	field    pedometer.Field
	blink    bool
	mags     []float64
	hps      []float64
	active   bool
	events   []stepEvent
	rate     float64
	status   string
	canWrite bool
}

func render(v view) string {
	var b strings.Builder
	gw := width - 4

	line := func(content string) {
		pad := max(0, width-visLen(content))
		fmt.Fprintf(&b, "%s│%s%s%s│%s\n", dim, rst, content, strings.Repeat(" ", pad), rst)
	}
	sep := func(label string) {
		if label != "" {
			rest := width - visLen(label) - 1
			fmt.Fprintf(&b, "%s├─%s%s┤%s\n", dim, label, strings.Repeat("─", rest), rst)
		} else {
			fmt.Fprintf(&b, "%s├%s┤%s\n", dim, strings.Repeat("─", width), rst)
		}
	}

	title := " STEP COUNTER "
	fmt.Fprintf(&b, "%s┌─%s%s%s%s%s┐%s\n", dim, rst, bwht, title, rst, dim+strings.Repeat("─", width-len(title)-1), rst)
	line(fmt.Sprintf(" %s%7.1fs%s  %5.1f Hz  passes:%d",
		dim, v.elapsed.Seconds(), rst, v.rate, v.stats.Passes))

	if v.page == 0 {
		sep(" Steps today ")
		line(fmt.Sprintf("  %s%s%8d%s", bwht, bold, v.steps, rst))
	} else {
		sep(fmt.Sprintf(" Settings %d/%d ", v.page, pedometer.NumFields))
		for _, f := range pedometer.Fields() {
			bd := f.Bounds()
			val := fmt.Sprintf("%3d", v.cfg.Get(f))
			mark := "  "
			if f == v.field {
				mark = yel + "▶ " + rst
				if v.blink {
					val = inv + val + rst
				}
			}
			line(fmt.Sprintf(" %s%-13s %s  %s[%d..%d step %d]%s",
				mark, f, val, dim, bd.Min, bd.Max, bd.Step, rst))
		}
	}

	sep(" Magnitude 10s ")
	if len(v.mags) > 0 {
		line(fmt.Sprintf("  %s%s%s", grn, sparkline(downsample(v.mags, gw), gw, 0), rst))
	} else {
		line(fmt.Sprintf("  %swaiting for samples...%s", dim, rst))
	}

	sep(fmt.Sprintf(" High-pass (threshold %d, window %d) ", v.cfg.Threshold, v.cfg.Window()))
	if len(v.hps) > 0 {
		ceil := math.Max(float64(v.cfg.Threshold)*2, 1)
		col := cyn
		if v.active {
			col = red
		}
		line(fmt.Sprintf("  %s%s%s", col, sparkline(downsample(v.hps, gw), gw, ceil), rst))
		peak := 0.0
		for _, h := range v.hps {
			peak = math.Max(peak, h)
		}
		line(fmt.Sprintf("  %speak %+.0f  (threshold is half scale)%s", dim, peak, rst))
	} else {
		line("")
		line("")
	}

	sep(" Validation ")
	line(fmt.Sprintf(" accepted:%s%d%s  too long:%d  too soon:%d  overruns:%d",
		grn, v.stats.Accepted, rst, v.stats.TooLong, v.stats.TooSoon, v.stats.Overruns))
	line(fmt.Sprintf(" %smax duration %d  min interval %d samples%s",
		dim, v.cfg.MaxDuration, v.cfg.MinInterval, rst))

	sep(" Steps ")
	start := max(0, len(v.events)-5)
	for i := len(v.events) - 1; i >= start; i-- {
		ev := v.events[i]
		line(fmt.Sprintf(" %s%s%s %s●%s #%-6d seq:%-8d dur:%d",
			dim, ev.at.Format("15:04:05.000"), rst, yel, rst, ev.step.Total, ev.step.Seq, ev.step.Duration))
	}
	for range max(0, 5-(len(v.events)-start)) {
		line("")
	}

	sep("")
	if v.status != "" {
		line(" " + v.status)
	} else {
		line("")
	}
	help := " e:settings  n:next  +/-:adjust  x:exit settings  r:reset  q:quit"
	if v.canWrite {
		help += "  w:save"
	}
	line(dim + help + rst)
	fmt.Fprintf(&b, "%s└%s┘%s\n", dim, strings.Repeat("─", width), rst)

	return b.String()
}

func sparkline(data []float64, width int, ceil float64) string {
	if len(data) == 0 {
		return strings.Repeat(" ", width)
	}
	d := data
	if len(d) < width {
		pad := make([]float64, width-len(d))
		d = append(pad, d...)
	} else if len(d) > width {
		d = d[len(d)-width:]
	}
	if ceil <= 0 {
		for _, v := range d {
			ceil = math.Max(ceil, math.Abs(v))
		}
	}
	if ceil <= 0 {
		ceil = 1
	}
	blk := []rune(blocks)
	var b strings.Builder
	for _, v := range d {
		frac := math.Min(1, math.Max(0, v)/ceil)
		b.WriteRune(blk[min(8, int(frac*8))])
	}
	return b.String()
}

// downsample keeps the peak of each of width buckets.
func downsample(data []float64, width int) []float64 {
	n := len(data)
	if n <= width {
		return data
	}
	step := float64(n) / float64(width)
	out := make([]float64, width)
	for c := range width {
		si := int(float64(c) * step)
		ei := int(float64(c+1) * step)
		mx := data[si]
		for j := si + 1; j < ei && j < n; j++ {
			mx = math.Max(mx, data[j])
		}
		out[c] = mx
	}
	return out
}

func visLen(s string) int {
	n := 0
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\033':
			inEsc = true
		case inEsc:
			if r == 'm' {
				inEsc = false
			}
		default:
			n++
		}
	}
	return n
}
