package app

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]uint64
	Order      []string

	FPS        float64
	frameCount int
	fpsTime    float64
	lastTick   float64
	ticked     bool
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]uint64),
	}
}

func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = time.Now()
	if !slices.Contains(p.Order, name) {
		p.Order = append(p.Order, name)
	}
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.StartTimes[name]; ok {
		p.Scopes[name] = time.Since(start)
	}
}

func (p *Profiler) SetCount(name string, count uint64) {
	p.Counts[name] = count
}

// Tick records a presented frame at time now (seconds) and refreshes FPS
// once per second.
func (p *Profiler) Tick(now float64) {
	if !p.ticked {
		p.lastTick, p.ticked = now, true
		return
	}
	p.fpsTime += now - p.lastTick
	p.lastTick = now
	p.frameCount++
	if p.fpsTime >= 1.0 {
		p.FPS = float64(p.frameCount) / p.fpsTime
		p.frameCount = 0
		p.fpsTime = 0
	}
}

func (p *Profiler) Reset() {
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "FPS: %.1f\n", p.FPS)
	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		fmt.Fprintf(&sb, "  %-15s: %.2f ms\n", name, ms)
	}

	sb.WriteString("\nStats:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-15s: %d\n", k, p.Counts[k])
	}
	return sb.String()
}
