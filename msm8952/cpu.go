package msm8952

import (
	"fmt"
	"sort"

	"github.com/Jon-Bright/clkctl/clk"
	"github.com/Jon-Bright/clkctl/dtcfg"
)

// A53 PLL registers, relative to each PLL's block.
const (
	APCS_PLL_MODE       = 0x0
	APCS_PLL_L_VAL      = 0x4
	APCS_PLL_M_VAL      = 0x8
	APCS_PLL_N_VAL      = 0xC
	APCS_PLL_USER_CTL   = 0x10
	APCS_PLL_CONFIG_CTL = 0x14
	APCS_PLL_STATUS     = 0x1C

	APCS_PLL_CONFIG_CTL_VAL = 0x4c015765

	// The mux's CMD_RCGR is at the start of its block.
	APCS_MUX_CMD_RCGR = 0x0
)

const gpll0AORate = 800000000

var apcsMasks = clk.PLLMasks{
	VCO:        clk.BM(29, 28),
	PreDiv:     clk.BIT(12),
	PostDiv:    clk.BM(9, 8),
	MNEn:       clk.BIT(24),
	MainOutput: clk.BIT(0),
}

// apcs is an A53 PLL table entry. None of them use the pre or post divider.
func apcs(rate uint64, l, m, n uint32) clk.PLLFreq {
	return clk.PLLFreq{Rate: rate, L: l, M: m, N: n}
}

var c0PLLFreqs = []clk.PLLFreq{
	apcs(249600000, 13, 0, 1),
	apcs(307200000, 16, 0, 1),
	apcs(345600000, 18, 0, 1),
	apcs(384000000, 20, 0, 1),
	apcs(403200000, 21, 0, 1),
	apcs(460800000, 24, 0, 1),
	apcs(499200000, 26, 0, 1),
	apcs(518400000, 27, 0, 1),
	apcs(652800000, 34, 0, 1),
	apcs(806400000, 42, 0, 1),
	apcs(844800000, 44, 0, 1),
	apcs(883200000, 46, 0, 1),
	apcs(921600000, 48, 0, 1),
	apcs(998400000, 52, 0, 1),
	apcs(1094400000, 57, 0, 1),
	apcs(1209600000, 63, 0, 1),
}

var c1PLLFreqs = []clk.PLLFreq{
	apcs(345600000, 18, 0, 1),
	apcs(422400000, 22, 0, 1),
	apcs(499200000, 26, 0, 1),
	apcs(652800000, 34, 0, 1),
	apcs(729600000, 38, 0, 1),
	apcs(806400000, 42, 0, 1),
	apcs(844800000, 44, 0, 1),
	apcs(883200000, 46, 0, 1),
	apcs(960000000, 50, 0, 1),
	apcs(1036800000, 54, 0, 1),
	apcs(1094400000, 57, 0, 1),
	apcs(1113600000, 58, 0, 1),
	apcs(1190400000, 62, 0, 1),
	apcs(1267200000, 66, 0, 1),
	apcs(1344000000, 70, 0, 1),
	apcs(1420800000, 74, 0, 1),
	apcs(1440000000, 75, 0, 1),
	apcs(1459200000, 76, 0, 1),
	apcs(1497600000, 78, 0, 1),
	apcs(1516800000, 79, 0, 1),
	apcs(1536000000, 80, 0, 1),
	apcs(1651200000, 86, 0, 1),
}

var cciPLLFreqs = []clk.PLLFreq{
	apcs(307200000, 16, 0, 1),
	apcs(403200000, 21, 0, 1),
	apcs(600000000, 31, 1, 4),
}

var (
	sr2Fmax = []uint64{0, 1000000000, 1900000000}
	hfFmax  = []uint64{0, 1000000000, 2000000000}
)

// cluster describes one mux of the A53 subsystem and the clocks behind it.
type cluster struct {
	// dt is the mux's name in device tree properties.
	dt      string
	mux     string
	pll     string
	cpu     string
	rail    string
	pllRail string
	pllFmax []uint64
	freqs   []clk.PLLFreq
	safe    uint64
	spmOff  uint32
	spmBit  uint
	// lowPower clusters gate their own clock when idle.
	lowPower bool
}

// clusters is in device tree mux order: big, LITTLE, CCI.
var clusters = []cluster{
	{dt: "c1", mux: "a53ssmux_bc", pll: "a53ss_c1_pll", cpu: "a53_bc_clk", rail: "vdd_c1",
		pllRail: "vdd_hf_pll", pllFmax: hfFmax, freqs: c1PLLFreqs, safe: 400000000, spmOff: 0x50, spmBit: 4, lowPower: true},
	{dt: "c0", mux: "a53ssmux_lc", pll: "a53ss_c0_pll", cpu: "a53_lc_clk", rail: "vdd_c0",
		pllRail: "vdd_sr2_pll", pllFmax: sr2Fmax, freqs: c0PLLFreqs, safe: 200000000, spmOff: 0x50, spmBit: 4, lowPower: true},
	{dt: "cci", mux: "a53ssmux_cci", pll: "a53ss_cci_pll", cpu: "cci_clk", rail: "vdd_cci",
		pllRail: "vdd_sr2_pll", pllFmax: sr2Fmax, freqs: cciPLLFreqs, safe: 200000000, spmOff: 0x40, spmBit: 0},
}

// muxSources binds the device tree's clock-names to clocks of the tree.
var muxSources = map[string]string{
	"clk-c0-4":  "gpll0_ao_clk_src",
	"clk-c0-5":  "a53ss_c0_pll",
	"clk-c1-4":  "gpll0_ao_clk_src",
	"clk-c1-5":  "a53ss_c1_pll",
	"clk-cci-4": "gpll0_ao_clk_src",
	"clk-cci-2": "a53ss_cci_pll",
}

// clusterOf maps a CPU's MPIDR-style reg value to the mux clocking it.
func clusterOf(reg uint32) (string, bool) {
	switch {
	case reg|0x3 == 0x3:
		return "c0", true
	case reg|0x103 == 0x103:
		return "c1", true
	}
	return "", false
}

// cpuPlan is what the device tree says about one mux.
type cpuPlan struct {
	points  []dtcfg.Point
	sources map[uint32]string
}

// muxFreqs builds a mux's frequency table. The PLL contributes every rate
// of its table, GPLL0 its whole, half and quarter rate; rates above the
// voltage plan are left out, except the safe rate.
func (c *cluster) muxFreqs(p cpuPlan) ([]clk.RCGFreq, error) {
	if len(p.points) == 0 {
		return nil, fmt.Errorf("%s: empty voltage plan", c.dt)
	}
	max := p.points[len(p.points)-1].Rate
	sels := make([]int, 0, len(p.sources))
	for sel := range p.sources {
		sels = append(sels, int(sel))
	}
	sort.Ints(sels)
	var fs []clk.RCGFreq
	for _, s := range sels {
		sel := uint32(s)
		name := p.sources[sel]
		src, ok := muxSources[name]
		switch {
		case !ok:
			return nil, fmt.Errorf("%s: unknown source %s", c.dt, name)
		case src == c.pll:
			for _, pf := range c.freqs {
				if pf.Rate <= max {
					fs = append(fs, clk.RCGFreq{Rate: pf.Rate, Src: src, Sel: sel, Div2: 2, SrcRate: pf.Rate})
				}
			}
		case src == "gpll0_ao_clk_src":
			for _, div2 := range []uint32{2, 4, 8} {
				rate := gpll0AORate * 2 / uint64(div2)
				if rate <= max || rate == c.safe {
					fs = append(fs, clk.RCGFreq{Rate: rate, Src: src, Sel: sel, Div2: div2})
				}
			}
		default:
			return nil, fmt.Errorf("%s: %s can't feed this mux", c.dt, src)
		}
	}
	sort.SliceStable(fs, func(i, j int) bool {
		return fs[i].Rate < fs[j].Rate
	})
	out := fs[:0]
	for i, e := range fs {
		if i > 0 && e.Rate == out[len(out)-1].Rate {
			continue
		}
		out = append(out, e)
	}
	for _, e := range out {
		if e.Rate == c.safe {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%s: no source for safe rate %d Hz", c.dt, c.safe)
}

// cpuConfigs returns the A53 PLLs, muxes and CPU clocks. cpus lists the
// logical CPUs of each cluster.
func cpuConfigs(hw *Hardware, plans map[string]cpuPlan, cpus map[string][]int) ([]clk.Config, error) {
	var cfgs []clk.Config
	for i := range clusters {
		c := &clusters[i]
		plan, ok := plans[c.dt]
		if !ok {
			return nil, fmt.Errorf("no voltage plan for %s", c.dt)
		}
		freqs, err := c.muxFreqs(plan)
		if err != nil {
			return nil, err
		}
		pllRegs, muxRegs, spmRegs := hw.PLL[c.dt], hw.Mux[c.dt], hw.SPM[c.dt]
		if pllRegs == nil || muxRegs == nil {
			return nil, fmt.Errorf("no registers for %s", c.dt)
		}
		pll := &clk.PLLConfig{
			Regs:         pllRegs,
			Mode:         APCS_PLL_MODE,
			L:            APCS_PLL_L_VAL,
			M:            APCS_PLL_M_VAL,
			N:            APCS_PLL_N_VAL,
			UserCtl:      APCS_PLL_USER_CTL,
			ConfigCtl:    APCS_PLL_CONFIG_CTL,
			Status:       APCS_PLL_STATUS,
			ConfigCtlVal: APCS_PLL_CONFIG_CTL_VAL,
			Masks:        apcsMasks,
			Freqs:        c.freqs,
		}
		if spmRegs != nil {
			pll.SPM = &clk.SPM{Regs: spmRegs, Offset: c.spmOff, Event: c.spmBit}
		}
		fmax := make([]uint64, len(plan.points))
		for j, p := range plan.points {
			fmax[j] = p.Rate
		}
		cfgs = append(cfgs,
			clk.Config{Name: c.pll, Kind: clk.KindPLL, Parent: "xo_a_clk_src", Rail: c.pllRail, Fmax: c.pllFmax, PLL: pll},
			clk.Config{Name: c.mux, Kind: clk.KindRCG,
				RCG: &clk.RCGConfig{Regs: muxRegs, CMD: APCS_MUX_CMD_RCGR, Freqs: freqs, SafeRate: c.safe}},
			clk.Config{Name: c.cpu, Kind: clk.KindCPU, Parent: c.mux, Rail: c.rail, Fmax: fmax,
				CPU: &clk.CPUConfig{CPUs: cpus[c.dt], LowPowerControl: c.lowPower}},
		)
	}
	return cfgs, nil
}
