package msm8952

import (
	"sync"

	"github.com/Jon-Bright/clkctl/clk"
	"github.com/Jon-Bright/clkctl/dtcfg"
	"github.com/Jon-Bright/clkctl/soc"
)

const (
	pllModeOn   = 0x7
	pllUpdate   = 1 << 22
	apcsPLLLock = 1 << 16
	cbcrOff     = 1 << 31
	cmdRootOff  = 1 << 31
	cmdUpdate   = 1 << 0
	measureGo   = 1 << 20
	measureDone = 1 << 25
	measureXO   = 4800000
)

var gccRCGs = []uint32{
	APSS_AHB_CMD_RCGR, GFX3D_CMD_RCGR, CAMSS_TOP_AHB_CMD_RCGR, CSI0_CMD_RCGR,
	VCODEC0_CMD_RCGR, BLSP1_QUP1_I2C_APPS_CMD_RCGR, BLSP1_QUP1_SPI_APPS_CMD_RCGR,
	SDCC1_APPS_CMD_RCGR, SDCC1_ICE_CORE_CMD_RCGR, PDM2_CMD_RCGR, MDP_CMD_RCGR,
	ESC0_CMD_RCGR, VSYNC_CMD_RCGR, PCLK0_CMD_RCGR, BYTE0_CMD_RCGR,
}

var gccCBCRs = []uint32{
	OXILI_GFX3D_CBCR, OXILI_GMEM_CBCR, OXILI_AHB_CBCR, OXILI_TIMER_CBCR, BIMC_GFX_CBCR,
	CAMSS_TOP_AHB_CBCR, CAMSS_CSI0_CBCR, VENUS0_VCODEC0_CBCR,
	BLSP1_QUP1_I2C_APPS_CBCR, BLSP1_QUP1_SPI_APPS_CBCR, SDCC1_APPS_CBCR, SDCC1_ICE_CORE_CBCR,
	PDM2_CBCR, MDSS_PCLK0_CBCR, MDSS_BYTE0_CBCR, MDSS_MDP_CBCR, MDSS_VSYNC_CBCR, MDSS_ESC0_CBCR,
	GCC_XO_DIV4_CBCR,
}

// voted maps an enable-vote register's bits to the CBCRs they gate.
var voted = map[uint32]map[uint]uint32{
	APCS_CLOCK_BRANCH_ENA_VOTE: {10: BLSP1_AHB_CBCR},
	APCS_SMMU_CLOCK_BRANCH_ENA_VOTE: {
		1: APSS_TCU_CBCR,
		2: GFX_TCU_CBCR,
		3: GFX_TBU_CBCR,
	},
}

// Sim is an MSM8952 made of memory. Its hooks play the hardware's part:
// PLLs lock, RCG updates complete, branches report their state and the
// frequency counter counts whatever Sync last saw.
type Sim struct {
	GCC                   *soc.Mem
	PLL, Mux, SPM         map[string]*soc.Mem
	Efuse, Efuse1, Efuse2 *soc.Mem

	mu    sync.Mutex
	rates map[uint32]uint64
}

// NewSim returns a simulated SoC in the state the boot loader leaves it:
// GPLL0 voted on, the LITTLE and big PLLs running and every mux on GPLL0.
// The fuses read as bin and version.
func NewSim(bin, version int) *Sim {
	s := &Sim{
		GCC:    soc.NewMem("cc_base"),
		PLL:    map[string]*soc.Mem{},
		Mux:    map[string]*soc.Mem{},
		SPM:    map[string]*soc.Mem{},
		Efuse:  soc.NewMem("efuse"),
		Efuse1: soc.NewMem("efuse1"),
		Efuse2: soc.NewMem("efuse2"),
		rates:  map[uint32]uint64{},
	}
	s.Efuse.Set(0, uint32(bin&0x7)<<2)
	s.Efuse1.Set(0, uint32(version&0x1)<<29)
	s.Efuse2.Set(0, uint32(version>>1&0x3)<<18)

	s.gcc()
	for _, c := range clusters {
		pll := soc.NewMem("apcs_" + c.dt + "_pll_base")
		pllHook(pll, APCS_PLL_MODE, APCS_PLL_STATUS, apcsPLLLock)
		mux := soc.NewMem("apcs-" + c.dt + "-rcg-base")
		mux.OnWrite(APCS_MUX_CMD_RCGR, rcgHook(APCS_MUX_CMD_RCGR))
		s.PLL[c.dt], s.Mux[c.dt] = pll, mux
		s.SPM[c.dt] = soc.NewMem("spm_" + c.dt + "_base")
	}

	// LITTLE at 998.4 MHz, big at 1094.4 MHz, CCI PLL off. Muxes on
	// GPLL0: c0 and c1 at 400 MHz, CCI at 200 MHz.
	for dt, l := range map[string]uint32{"c0": 52, "c1": 57} {
		s.PLL[dt].Set(APCS_PLL_L_VAL, l)
		s.PLL[dt].Set(APCS_PLL_N_VAL, 1)
		s.PLL[dt].Set(APCS_PLL_MODE, pllModeOn)
		s.PLL[dt].Set(APCS_PLL_STATUS, apcsPLLLock)
	}
	s.Mux["c0"].Set(APCS_MUX_CMD_RCGR+4, clk.BVAL(10, 8, 4)|3)
	s.Mux["c1"].Set(APCS_MUX_CMD_RCGR+4, clk.BVAL(10, 8, 4)|3)
	s.Mux["cci"].Set(APCS_MUX_CMD_RCGR+4, clk.BVAL(10, 8, 4)|7)
	return s
}

func (s *Sim) gcc() {
	g := s.GCC
	g.OnWrite(APCS_GPLL_ENA_VOTE, func(m *soc.Mem, v uint32) {
		active := func(bit uint) uint32 {
			if v&clk.BIT(bit) != 0 {
				return GPLL_STATUS_ACTIVE
			}
			return 0
		}
		m.Update(GPLL0_STATUS, GPLL_STATUS_ACTIVE, active(0))
		m.Update(GPLL6_STATUS, GPLL_STATUS_ACTIVE, active(7))
		if v&clk.BIT(5) != 0 {
			m.Update(GPLL4_MODE, GPLL4_ACTIVE, GPLL4_ACTIVE)
		} else {
			m.Update(GPLL4_MODE, GPLL4_ACTIVE, 0)
		}
	})
	g.Set(APCS_GPLL_ENA_VOTE, clk.BIT(0))
	g.Set(GPLL0_STATUS, GPLL_STATUS_ACTIVE)

	pllHook(g, GPLL3_MODE, GPLL3_MODE+0x24, ALPHA_PLL_LOCK)
	for _, cmd := range gccRCGs {
		g.Set(cmd, cmdRootOff)
		g.OnWrite(cmd, rcgHook(cmd))
	}
	for _, cbcr := range gccCBCRs {
		cbcr := cbcr
		g.Set(cbcr, cbcrOff)
		g.OnWrite(cbcr, func(m *soc.Mem, v uint32) {
			if v&1 != 0 {
				m.Update(cbcr, cbcrOff, 0)
			} else {
				m.Update(cbcr, cbcrOff, cbcrOff)
			}
		})
	}
	for reg, bits := range voted {
		bits := bits
		for _, cbcr := range bits {
			g.Set(cbcr, cbcrOff)
		}
		g.OnWrite(reg, func(m *soc.Mem, v uint32) {
			for bit, cbcr := range bits {
				if v&clk.BIT(bit) != 0 {
					m.Update(cbcr, cbcrOff, 0)
				} else {
					m.Update(cbcr, cbcrOff, cbcrOff)
				}
			}
		})
	}
	g.OnWrite(CLOCK_FRQ_MEASURE_CTL, s.count)
}

// pllHook makes the PLL at mode lock whenever it's fully out of reset and
// finish every slew step at once.
func pllHook(m *soc.Mem, mode, status, lock uint32) {
	m.OnWrite(mode, func(m *soc.Mem, v uint32) {
		if v&pllModeOn == pllModeOn {
			m.Update(status, lock, lock)
		} else {
			m.Update(status, lock, 0)
		}
		if v&pllUpdate != 0 {
			m.Update(mode, pllUpdate, 0)
		}
	})
}

// rcgHook completes every update of the RCG at cmd and turns its root on.
func rcgHook(cmd uint32) func(m *soc.Mem, v uint32) {
	return func(m *soc.Mem, v uint32) {
		if v&cmdUpdate != 0 {
			m.Update(cmd, cmdUpdate|cmdRootOff, 0)
		}
	}
}

func (s *Sim) count(m *soc.Mem, v uint32) {
	if v&measureGo == 0 {
		m.Update(CLOCK_FRQ_MEASURE_STATUS, measureDone, 0)
		return
	}
	sel := m.Read32(GCC_DEBUG_CLK_CTL) & 0x1FF
	s.mu.Lock()
	rate := s.rates[sel]
	s.mu.Unlock()
	ticks := uint64(v & clk.BM(19, 0))
	var n uint64
	if c := rate * (ticks*10 + 35) / measureXO; c > 15 {
		n = (c - 15) / 10
	}
	m.Set(CLOCK_FRQ_MEASURE_STATUS, measureDone|uint32(n)&clk.BM(24, 0))
}

// Sync points the frequency counter at the rates t currently has. Clocks
// that are off count nothing.
func (s *Sim) Sync(t *clk.Tree) {
	rates := map[uint32]uint64{}
	for _, st := range t.Status() {
		if sel, ok := debugSel[st.Name]; ok && st.Enabled > 0 {
			rates[sel] = st.Rate
		}
	}
	s.mu.Lock()
	s.rates = rates
	s.mu.Unlock()
}

// Hardware returns the simulated blocks as the controller sees them.
func (s *Sim) Hardware() *Hardware {
	hw := newHardware()
	hw.GCC = s.GCC
	for dt := range s.PLL {
		hw.PLL[dt], hw.Mux[dt], hw.SPM[dt] = s.PLL[dt], s.Mux[dt], s.SPM[dt]
	}
	hw.Efuse, hw.Efuse1, hw.Efuse2 = s.Efuse, s.Efuse1, s.Efuse2
	return hw
}

// SimPlans are the bin 0 voltage plans of SimDT, as rate and microvolt
// pairs.
var SimPlans = map[string][]uint32{
	"c0":  {200000000, 900000, 400000000, 900000, 806400000, 950000, 998400000, 1000000, 1209600000, 1100000},
	"c1":  {400000000, 900000, 883200000, 950000, 1190400000, 1025000, 1344000000, 1100000, 1651200000, 1200000},
	"cci": {200000000, 900000, 307200000, 950000, 600000000, 1050000},
}

// SimDT returns a flattened device tree for the simulator: the GCC node with
// thermal thresholds and the CPU clock node with SimPlans.
func SimDT() []byte {
	return dtcfg.Encode(simTree())
}

func simTree() dtcfg.Tree {
	cpu := []dtcfg.Prop{
		{Name: "compatible", Val: dtcfg.StringList(CPU_COMPATIBLE)},
		{Name: "clock-names", Val: dtcfg.StringList("clk-c0-4", "clk-c0-5", "clk-c1-4", "clk-c1-5", "clk-cci-4", "clk-cci-2", "xo_a")},
	}
	for _, c := range clusters {
		cpu = append(cpu, dtcfg.Prop{Name: "qcom,speed0-bin-v0-" + c.dt, Val: dtcfg.Cells(SimPlans[c.dt]...)})
	}
	return dtcfg.Tree{
		Props: []dtcfg.Prop{
			{Name: "compatible", Val: dtcfg.StringList("qcom,msm8952-sim")},
			{Name: "#address-cells", Val: dtcfg.Cells(1)},
			{Name: "#size-cells", Val: dtcfg.Cells(1)},
		},
		Children: []dtcfg.Tree{
			{
				Name: "qcom,gcc@1800000",
				Props: []dtcfg.Prop{
					{Name: "compatible", Val: dtcfg.StringList(GCC_COMPATIBLE)},
					{Name: "qcom,pll-disable-threshold", Val: dtcfg.Cells(10)},
					{Name: "qcom,pll-enable-threshold", Val: dtcfg.Cells(5)},
				},
			},
			{Name: "qcom,cpu-clock-8939@b111050", Props: cpu},
		},
	}
}
