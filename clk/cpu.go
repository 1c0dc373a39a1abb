package clk

import (
	"fmt"
)

// DefaultLatencyUS is the idle exit latency CPUs are held to while their
// clock is switched.
const DefaultLatencyUS = 250

// CPUConfig describes a CPU clock. It has no hardware of its own; rate
// changes go to its parent. With LowPowerControl set, the CPUs are kept out
// of deep idle and brought to a rendezvous around every switch, because the
// hardware may be gating their clock on its own.
type CPUConfig struct {
	CPUs            []int
	LowPowerControl bool
	LatencyUS       int
}

type cpuClock struct {
	cpus     []int
	lowPower bool
	latency  int
}

func (t *Tree) setupCPU(n *node, c *CPUConfig) error {
	if c == nil {
		c = &CPUConfig{}
	}
	cc := &cpuClock{cpus: c.CPUs, lowPower: c.LowPowerControl, latency: c.LatencyUS}
	if cc.latency == 0 {
		cc.latency = DefaultLatencyUS
	}
	if cc.lowPower && t.cpu == nil {
		return fmt.Errorf("low power control without CPU control")
	}
	n.cpu = cc
	return nil
}

// quiesce prepares every low-power CPU clock on path for a switch. The
// returned function undoes it and must always be called.
func (t *Tree) quiesce(path []hop) (func(), error) {
	var cpus []int
	latency := 0
	for _, h := range path {
		n := t.nodes[h.id]
		if n.kind != KindCPU || !n.cpu.lowPower {
			continue
		}
		cpus = append(cpus, n.cpu.cpus...)
		if latency == 0 || n.cpu.latency < latency {
			latency = n.cpu.latency
		}
	}
	if len(cpus) == 0 {
		return func() {}, nil
	}
	release, err := t.cpu.BlockIdle(cpus, latency)
	if err != nil {
		return nil, fmt.Errorf("couldn't hold CPUs %v out of idle: %w", cpus, err)
	}
	if err := t.cpu.Rendezvous(cpus); err != nil {
		release()
		return nil, fmt.Errorf("couldn't reach CPUs %v: %w", cpus, err)
	}
	return release, nil
}
