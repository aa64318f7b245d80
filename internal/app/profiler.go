package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler collects coarse host-side timings and counters for the
// periodic debug stats log. Scopes keep insertion order for stable output.
type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
	}
}

func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = time.Now()
	for _, n := range p.Order {
		if n == name {
			return
		}
	}
	p.Order = append(p.Order, name)
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.StartTimes[name]; ok {
		p.Scopes[name] += time.Since(start)
	}
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

func (p *Profiler) Reset() {
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder
	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		sb.WriteString(fmt.Sprintf("  %-15s: %.2f ms\n", name, ms))
	}

	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		sb.WriteString("Stats:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %-15s: %d\n", k, p.Counts[k]))
		}
	}
	return sb.String()
}
