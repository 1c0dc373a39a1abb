package clk

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Jon-Bright/clkctl/soc"
	"github.com/Jon-Bright/clkctl/vdd"
)

const (
	xoRate = 19200000

	gpllVote     = 0x45000
	branchVote   = 0x45004
	gpll0Status  = 0x21000
	gpll6Status  = 0x37000
	cpllMode     = 0x1000
	gpuPLLMode   = 0x4000
	gfxCMD       = 0x2000
	gfxCBCR      = 0x2100
	camCMD       = 0x3000
	camCBCR      = 0x3100
	csiCBCR      = 0x3104
	pclkCMD      = 0x5000
	cpuMuxCMD    = 0x6000
	keepCBCR     = 0x7000
	gpuCBCR      = 0x7004
	debugMux     = 0x74000
	debugCtl     = 0x74004
	debugStatus  = 0x74008
	xoDiv4CBCR   = 0x30034
	spmOffset    = 0x50
	spmEventBit  = 4
	lockBit      = 1 << 16
	measureCount = 1365333
)

var srMasks = PLLMasks{
	VCO:        BM(29, 28),
	PreDiv:     BIT(12),
	PostDiv:    BM(9, 8),
	MNEn:       BIT(24),
	MainOutput: BIT(0),
}

type railEvent struct {
	rail   string
	level  vdd.Level
	writes int
}

type fakeCPU struct {
	calls    []string
	blockErr error
}

func (f *fakeCPU) BlockIdle(cpus []int, us int) (func(), error) {
	if f.blockErr != nil {
		return nil, f.blockErr
	}
	f.calls = append(f.calls, fmt.Sprintf("block %v %d", cpus, us))
	return func() { f.calls = append(f.calls, "release") }, nil
}

func (f *fakeCPU) Rendezvous(cpus []int) error {
	f.calls = append(f.calls, fmt.Sprintf("rendezvous %v", cpus))
	return nil
}

// fixture is a small clock tree over simulated registers. The hooks play
// the hardware: PLLs lock, generators latch and gates report their state
// unless the test marks a register as stuck.
type fixture struct {
	m      *soc.Mem
	spm    *soc.Mem
	tree   *Tree
	cpu    *fakeCPU
	rails  map[string]*vdd.Rail
	events []railEvent
	fail   map[string]bool
	stuck  map[uint32]bool
}

func (f *fixture) regulator(name string) vdd.Regulator {
	return vdd.RegulatorFunc(func(l vdd.Level, v int) error {
		if f.fail[name] {
			return errors.New("regulator busy")
		}
		f.events = append(f.events, railEvent{name, l, f.m.Writes()})
		return nil
	})
}

func (f *fixture) hookPLL(mode uint32) {
	f.m.OnWrite(mode, func(m *soc.Mem, v uint32) {
		if v&pllModeMask == pllModeMask && !f.stuck[mode+0x1C] {
			m.Update(mode+0x1C, lockBit, lockBit)
		} else if v&pllModeMask != pllModeMask {
			m.Update(mode+0x1C, lockBit, 0)
		}
		if v&pllUpdate != 0 && !f.stuck[mode] {
			m.Update(mode, pllUpdate, 0)
		}
	})
}

func (f *fixture) hookRCG(cmd uint32) {
	f.m.OnWrite(cmd, func(m *soc.Mem, v uint32) {
		if v&cmdUpdate != 0 && !f.stuck[cmd] {
			m.Update(cmd, cmdUpdate, 0)
		}
	})
}

func (f *fixture) hookCBCR(cbcr uint32) {
	f.m.OnWrite(cbcr, func(m *soc.Mem, v uint32) {
		if v&cbcrEnable != 0 {
			m.Update(cbcr, cbcrOff, 0)
		} else {
			m.Update(cbcr, cbcrOff, cbcrOff)
		}
	})
}

func (f *fixture) hooks() {
	f.m.OnWrite(gpllVote, func(m *soc.Mem, v uint32) {
		m.Update(gpll0Status, BIT(17), v<<17)
		m.Update(gpll6Status, BIT(17), v<<10)
	})
	f.m.OnWrite(debugCtl, func(m *soc.Mem, v uint32) {
		if v&measureStart != 0 {
			m.Update(debugStatus, measureActive|BM(24, 0), measureActive|measureCount)
		} else {
			m.Update(debugStatus, measureActive, 0)
		}
	})
	f.hookPLL(cpllMode)
	f.hookPLL(gpuPLLMode)
	for _, cmd := range []uint32{gfxCMD, camCMD, pclkCMD, cpuMuxCMD} {
		f.hookRCG(cmd)
	}
	for _, cbcr := range []uint32{gfxCBCR, camCBCR, csiCBCR, keepCBCR, gpuCBCR} {
		f.hookCBCR(cbcr)
	}
}

func configs(m, spm *soc.Mem) []Config {
	gpll0 := NewVote(m, gpllVote, BIT(0))
	ahb := NewVote(m, branchVote, BIT(10))
	csi := NewGate(m, csiCBCR)
	return []Config{
		{Name: "xo", Kind: KindFixed, Rate: xoRate},
		{Name: "gpll0", Kind: KindVotePLL, Parent: "xo", Rate: 800000000,
			VotePLL: &VotePLLConfig{Vote: gpll0, Client: 1, Status: gpll0Status, StatusMask: BIT(17)}},
		{Name: "gpll0_ao", Kind: KindVotePLL, Parent: "xo", Rate: 800000000,
			VotePLL: &VotePLLConfig{Vote: gpll0, Client: 2, Status: gpll0Status, StatusMask: BIT(17)}},
		{Name: "gpll6", Kind: KindVotePLL, Parent: "xo", Rate: 600000000,
			VotePLL: &VotePLLConfig{Vote: NewVote(m, gpllVote, BIT(7)), Status: gpll6Status, StatusMask: BIT(17)}},
		{Name: "cpll", Kind: KindPLL, Parent: "xo", Rail: "vdd_pll", Fmax: []uint64{0, 1000000000, 1300000000},
			PLL: &PLLConfig{
				Regs: m, Mode: cpllMode, L: 0x1004, M: 0x1008, N: 0x100C, UserCtl: 0x1010, ConfigCtl: 0x1014, Status: 0x101C,
				ConfigCtlVal: 0x4c015765,
				Masks:        srMasks,
				Freqs: []PLLFreq{
					{Rate: 768000000, L: 40, N: 1},
					{Rate: 998400000, L: 52, N: 1},
					{Rate: 1209600000, L: 63, N: 1},
				},
				SPM: &SPM{Regs: spm, Offset: spmOffset, Event: spmEventBit},
			}},
		{Name: "gpu_pll", Kind: KindPLL, Parent: "xo",
			PLL: &PLLConfig{
				Regs: m, Mode: gpuPLLMode, L: 0x4004, M: 0x4008, N: 0x400C, UserCtl: 0x4010, ConfigCtl: 0x4014, Status: 0x401C,
				Masks: srMasks,
				Slew:  true,
				Freqs: []PLLFreq{
					{Rate: 921600000, L: 48, N: 16},
					{Rate: 926400000, L: 48, M: 4, N: 16},
					{Rate: 930000000, L: 48, M: 7, N: 16},
					{Rate: 1000000000, L: 52, M: 1, N: 12},
				},
			}},
		{Name: "gfx_src", Kind: KindRCG, Rail: "vdd_dig", Fmax: []uint64{0, 150000000, 200000000, 400000000},
			RCG: &RCGConfig{Regs: m, CMD: gfxCMD, Freqs: []RCGFreq{
				{Rate: 19200000, Src: "xo", Sel: 0, Div2: 2},
				{Rate: 100000000, Src: "gpll0", Sel: 1, Div2: 16},
				{Rate: 150000000, Src: "gpll6", Sel: 2, Div2: 8},
				{Rate: 200000000, Src: "gpll0", Sel: 1, Div2: 8},
			}}},
		{Name: "gfx", Kind: KindBranch, Parent: "gfx_src", Branch: &BranchConfig{Regs: m, CBCR: gfxCBCR}},
		{Name: "cam_src", Kind: KindRCG,
			RCG: &RCGConfig{Regs: m, CMD: camCMD, MND: true, Freqs: []RCGFreq{
				{Rate: 40000000, Src: "gpll0", Sel: 1, Div2: 20, M: 1, N: 2},
				{Rate: 80000000, Src: "gpll0", Sel: 1, Div2: 20},
			}}},
		{Name: "cam_gate", Kind: KindBranch, Parent: "cam_src", Branch: &BranchConfig{Regs: m, CBCR: camCBCR}},
		{Name: "cam_a", Kind: KindBranch, Parent: "cam_gate", Branch: &BranchConfig{HasSibling: true}},
		{Name: "cam_b", Kind: KindBranch, Parent: "cam_gate", Branch: &BranchConfig{HasSibling: true}},
		{Name: "csi_a", Kind: KindBranch, Parent: "cam_src", Branch: &BranchConfig{HasSibling: true, Gate: csi, Client: 1}},
		{Name: "csi_b", Kind: KindBranch, Parent: "cam_src", Branch: &BranchConfig{HasSibling: true, Gate: csi, Client: 2}},
		{Name: "ahb_a", Kind: KindVoteBranch, Branch: &BranchConfig{Vote: ahb, Client: 1}},
		{Name: "ahb_b", Kind: KindVoteBranch, Branch: &BranchConfig{Vote: ahb, Client: 2}},
		{Name: "dsi_pll", Kind: KindExternal},
		{Name: "pclk_src", Kind: KindRCG, Parent: "dsi_pll", RCG: &RCGConfig{Regs: m, CMD: pclkCMD, Pixel: true, Ratio: 2}},
		{Name: "cpu_mux", Kind: KindRCG,
			RCG: &RCGConfig{Regs: m, CMD: cpuMuxCMD, SafeRate: 400000000, Freqs: []RCGFreq{
				{Rate: 400000000, Src: "gpll0_ao", Sel: 4, Div2: 4},
				{Rate: 768000000, Src: "cpll", Sel: 5, Div2: 2, SrcRate: 768000000},
				{Rate: 998400000, Src: "cpll", Sel: 5, Div2: 2, SrcRate: 998400000},
				{Rate: 1209600000, Src: "cpll", Sel: 5, Div2: 2, SrcRate: 1209600000},
			}}},
		{Name: "cpu", Kind: KindCPU, Parent: "cpu_mux", Rail: "vdd_cpu", Fmax: []uint64{400000000, 998400000, 1209600000},
			CPU: &CPUConfig{CPUs: []int{0, 1}, LowPowerControl: true}},
		{Name: "keep_br", Kind: KindBranch, Parent: "gpll6", KeepParent: true, Branch: &BranchConfig{Regs: m, CBCR: keepCBCR}},
		{Name: "gpu_br", Kind: KindBranch, Parent: "cpll", Branch: &BranchConfig{Regs: m, CBCR: gpuCBCR}},
	}
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		m:     soc.NewMem("gcc"),
		spm:   soc.NewMem("spm"),
		cpu:   &fakeCPU{},
		rails: map[string]*vdd.Rail{},
		fail:  map[string]bool{},
		stuck: map[uint32]bool{},
	}
	f.hooks()
	var rails []*vdd.Rail
	for _, r := range []struct {
		name   string
		levels int
	}{{"vdd_dig", 4}, {"vdd_pll", 3}, {"vdd_cpu", 3}} {
		rail := vdd.NewRail(r.name, r.levels)
		values := make([]int, r.levels)
		for i := range values {
			values[i] = i
		}
		if err := rail.AddSupply(r.name, f.regulator(r.name), values); err != nil {
			t.Fatalf("Failed AddSupply: %v", err)
		}
		f.rails[r.name] = rail
		rails = append(rails, rail)
	}
	tree, err := New(configs(f.m, f.spm), Options{Rails: rails, CPU: f.cpu})
	if err != nil {
		t.Fatalf("Failed New: %v", err)
	}
	f.tree = tree
	return f
}

func (f *fixture) get(t *testing.T, name string) Clock {
	c, err := f.tree.Get(name)
	if err != nil {
		t.Fatalf("Failed Get(%s): %v", name, err)
	}
	return c
}

func (f *fixture) depth(t *testing.T, name string) int {
	return f.get(t, name).EnableCount()
}

func (f *fixture) level(name string) vdd.Level {
	l, _ := f.rails[name].Level()
	return l
}

func TestNewRejectsBadConfigs(t *testing.T) {
	m := soc.NewMem("gcc")
	tests := []struct {
		name string
		cfgs []Config
	}{
		{"duplicate", []Config{{Name: "xo", Kind: KindFixed}, {Name: "xo", Kind: KindFixed}}},
		{"unnamed", []Config{{Kind: KindFixed}}},
		{"unknown parent", []Config{{Name: "a", Kind: KindAlias, Parent: "b"}}},
		{"unknown rail", []Config{{Name: "xo", Kind: KindFixed, Rail: "vdd_mx"}}},
		{"loop", []Config{{Name: "a", Kind: KindAlias, Parent: "b"}, {Name: "b", Kind: KindAlias, Parent: "a"}}},
		{"unsorted", []Config{{Name: "xo", Kind: KindFixed}, {Name: "r", Kind: KindRCG, RCG: &RCGConfig{Regs: m, Freqs: []RCGFreq{
			{Rate: 2, Src: "xo"}, {Rate: 1, Src: "xo"},
		}}}}},
		{"missing safe rate", []Config{{Name: "xo", Kind: KindFixed}, {Name: "r", Kind: KindRCG, RCG: &RCGConfig{Regs: m, SafeRate: 5, Freqs: []RCGFreq{
			{Rate: 1, Src: "xo"},
		}}}}},
		{"cpu without control", []Config{{Name: "xo", Kind: KindFixed}, {Name: "c", Kind: KindCPU, Parent: "xo", CPU: &CPUConfig{LowPowerControl: true}}}},
	}
	for _, test := range tests {
		if _, err := New(test.cfgs, Options{}); err == nil {
			t.Errorf("%s: New succeeded, want error", test.name)
		}
	}
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	if _, err := f.tree.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(nope), got: %v, want %v", err, ErrNotFound)
	}
	c := f.get(t, "gfx")
	if c.Name() != "gfx" || c.Kind() != KindBranch {
		t.Errorf("gfx, got: %s %v, want gfx branch", c.Name(), c.Kind())
	}
	p, ok := c.Parent()
	if !ok || p.Name() != "gfx_src" {
		t.Errorf("gfx parent, got: %v %v, want gfx_src", p, ok)
	}
	if names := f.tree.Names(); len(names) != 22 || names[0] != "xo" {
		t.Errorf("Names, got: %v, want 22 names starting with xo", names)
	}
}
