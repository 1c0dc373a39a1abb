package clk

import (
	"fmt"
	"sort"
)

const (
	measureTicks   = 0x10000
	measureXORate  = 4800000
	measurePolls   = 20000
	measureStart   = 1 << 20
	measureActive  = 1 << 25
	measureDebugEn = 1 << 16
)

// MeasureConfig describes a debug mux feeding a frequency counter that is
// clocked from XO/4.
type MeasureConfig struct {
	Regs Regs
	// Mux selects the clock routed to the counter.
	Mux     uint32
	MuxMask uint32
	// XOCBCR gates the counter's XO/4 reference.
	XOCBCR uint32
	Ctl    uint32
	Status uint32
	// Sel maps clock names to mux selectors.
	Sel map[string]uint32
}

// Measurer counts the real frequency of clocks behind a debug mux. It never
// changes any clock's state.
type Measurer struct {
	t   *Tree
	cfg MeasureConfig
}

func NewMeasurer(t *Tree, cfg MeasureConfig) (*Measurer, error) {
	for name := range cfg.Sel {
		if _, err := t.lookup(name); err != nil {
			return nil, fmt.Errorf("debug mux: %w", err)
		}
	}
	return &Measurer{t: t, cfg: cfg}, nil
}

// Clocks returns the measurable clock names, sorted.
func (m *Measurer) Clocks() []string {
	c := make([]string, 0, len(m.cfg.Sel))
	for n := range m.cfg.Sel {
		c = append(c, n)
	}
	sort.Strings(c)
	return c
}

// Measure routes name to the counter and returns its measured rate in Hz.
func (m *Measurer) Measure(name string) (uint64, error) {
	sel, ok := m.cfg.Sel[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s can't be measured", ErrNotFound, name)
	}
	m.t.mu.Lock()
	defer m.t.mu.Unlock()

	c := &m.cfg
	r := c.Regs
	rmw(r, c.Mux, c.MuxMask|measureDebugEn, sel&c.MuxMask|measureDebugEn)
	setBits(r, c.XOCBCR, cbcrEnable)
	r.Barrier()
	defer func() {
		clearBits(r, c.XOCBCR, cbcrEnable)
		clearBits(r, c.Mux, measureDebugEn)
		r.Barrier()
	}()

	r.Write32(c.Ctl, measureTicks)
	err := pollUntil(r, name, "measure", ErrMeasureTimeout, measurePolls, 1, func() bool {
		return r.Read32(c.Status)&measureActive == 0
	})
	if err != nil {
		return 0, err
	}
	r.Write32(c.Ctl, measureStart|measureTicks)
	err = pollUntil(r, name, "measure", ErrMeasureTimeout, measurePolls, 1, func() bool {
		return r.Read32(c.Status)&measureActive != 0
	})
	if err != nil {
		return 0, err
	}
	count := uint64(r.Read32(c.Status) & BM(24, 0))
	r.Write32(c.Ctl, measureTicks)
	return (count*10 + 15) * measureXORate / (measureTicks*10 + 35), nil
}
