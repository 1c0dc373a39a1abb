package soc

import (
	"fmt"
	"sort"
	"sync"
)

// Access is one entry of a Mem's access log: either a register write or,
// when Delay is non-zero, a delay.
type Access struct {
	Off   uint32
	Val   uint32
	Delay int
}

func (a Access) String() string {
	if a.Delay != 0 {
		return fmt.Sprintf("delay %dus", a.Delay)
	}
	return fmt.Sprintf("%#x <- %#x", a.Off, a.Val)
}

// Mem is a register block backed by ordinary memory. Hooks stand in for the
// hardware: they run after every write to their offset and may change any
// register with Set.
type Mem struct {
	name string

	mu     sync.Mutex
	regs   map[uint32]uint32
	hooks  map[uint32]func(m *Mem, val uint32)
	log    []Access
	writes int
}

func NewMem(name string) *Mem {
	return &Mem{
		name:  name,
		regs:  map[uint32]uint32{},
		hooks: map[uint32]func(m *Mem, val uint32){},
	}
}

func (m *Mem) Name() string {
	return m.name
}

func (m *Mem) Read32(off uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[off]
}

func (m *Mem) Write32(off uint32, val uint32) {
	m.mu.Lock()
	m.regs[off] = val
	m.writes++
	m.log = append(m.log, Access{Off: off, Val: val})
	h := m.hooks[off]
	m.mu.Unlock()
	if h != nil {
		h(m, val)
	}
}

func (m *Mem) Barrier() {}

func (m *Mem) Delay(us int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, Access{Delay: us})
}

// Set changes a register the way hardware would: not logged, not counted,
// no hooks.
func (m *Mem) Set(off uint32, val uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[off] = val
}

// Update sets the bits of mask in off to those of val, like Set.
func (m *Mem) Update(off uint32, mask uint32, val uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[off] = m.regs[off]&^mask | val&mask
}

// OnWrite installs the hook for off, replacing any earlier one.
func (m *Mem) OnWrite(off uint32, fn func(m *Mem, val uint32)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[off] = fn
}

func (m *Mem) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Log returns a copy of every write and delay so far.
func (m *Mem) Log() []Access {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Access(nil), m.log...)
}

// WritesTo returns the values written to off, oldest first.
func (m *Mem) WritesTo(off uint32) []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var v []uint32
	for _, a := range m.log {
		if a.Delay == 0 && a.Off == off {
			v = append(v, a.Val)
		}
	}
	return v
}

func (m *Mem) ResetLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = nil
	m.writes = 0
}

// Dump returns the non-zero registers in offset order.
func (m *Mem) Dump() []Access {
	m.mu.Lock()
	defer m.mu.Unlock()
	var d []Access
	for off, v := range m.regs {
		if v != 0 {
			d = append(d, Access{Off: off, Val: v})
		}
	}
	sort.Slice(d, func(i, j int) bool { return d[i].Off < d[j].Off })
	return d
}
