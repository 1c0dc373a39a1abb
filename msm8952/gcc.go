// Package msm8952 holds the clock tables of the MSM8952 global clock
// controller and its A53 CPU clock controller, and brings both up.
package msm8952

import (
	"github.com/Jon-Bright/clkctl/clk"
	"github.com/Jon-Bright/clkctl/vdd"
)

// Device tree compatible strings of the two controllers.
const (
	GCC_COMPATIBLE = "qcom,gcc-8952"
	CPU_COMPATIBLE = "qcom,cpu-clock-8952"
)

// GCC register offsets.
const (
	GPLL0_MODE   = 0x21000
	GPLL0_STATUS = 0x2101C
	GPLL3_MODE   = 0x22000
	GPLL4_MODE   = 0x24000
	GPLL6_MODE   = 0x37000
	GPLL6_STATUS = 0x3701C

	APCS_GPLL_ENA_VOTE              = 0x45000
	APCS_CLOCK_BRANCH_ENA_VOTE      = 0x45004
	APCS_SMMU_CLOCK_BRANCH_ENA_VOTE = 0x4500C

	BLSP1_AHB_CBCR               = 0x01008
	BLSP1_QUP1_I2C_APPS_CBCR     = 0x02008
	BLSP1_QUP1_I2C_APPS_CMD_RCGR = 0x0200C
	BLSP1_QUP1_SPI_APPS_CBCR     = 0x02004
	BLSP1_QUP1_SPI_APPS_CMD_RCGR = 0x02024
	GFX_TBU_CBCR                 = 0x12010
	APSS_TCU_CBCR                = 0x12018
	GFX_TCU_CBCR                 = 0x12020
	GCC_XO_DIV4_CBCR             = 0x30034
	SDCC1_APPS_CMD_RCGR          = 0x42004
	SDCC1_APPS_CBCR              = 0x42018
	SDCC1_ICE_CORE_CMD_RCGR      = 0x5D000
	SDCC1_ICE_CORE_CBCR          = 0x5D014
	PDM2_CBCR                    = 0x4400C
	PDM2_CMD_RCGR                = 0x44010
	APSS_AHB_CMD_RCGR            = 0x46000
	CSI0_CMD_RCGR                = 0x4E020
	CAMSS_CSI0_CBCR              = 0x4E03C
	CAMSS_TOP_AHB_CMD_RCGR       = 0x5A000
	CAMSS_TOP_AHB_CBCR           = 0x56004
	VCODEC0_CMD_RCGR             = 0x4C000
	VENUS0_VCODEC0_CBCR          = 0x4C01C
	PCLK0_CMD_RCGR               = 0x4D000
	MDP_CMD_RCGR                 = 0x4D014
	VSYNC_CMD_RCGR               = 0x4D02C
	BYTE0_CMD_RCGR               = 0x4D044
	ESC0_CMD_RCGR                = 0x4D05C
	MDSS_PCLK0_CBCR              = 0x4D084
	MDSS_MDP_CBCR                = 0x4D088
	MDSS_VSYNC_CBCR              = 0x4D090
	MDSS_BYTE0_CBCR              = 0x4D094
	MDSS_ESC0_CBCR               = 0x4D098
	GFX3D_CMD_RCGR               = 0x59000
	OXILI_GFX3D_CBCR             = 0x59020
	OXILI_GMEM_CBCR              = 0x59024
	OXILI_AHB_CBCR               = 0x59028
	BIMC_GFX_CBCR                = 0x59034
	OXILI_TIMER_CBCR             = 0x59040

	GCC_DEBUG_CLK_CTL        = 0x74000
	CLOCK_FRQ_MEASURE_CTL    = 0x74004
	CLOCK_FRQ_MEASURE_STATUS = 0x74008
	GCC_SPARE3_REG           = 0x7E004

	GPLL_STATUS_ACTIVE      = 1 << 17
	GPLL4_ACTIVE            = 1 << 30
	ALPHA_PLL_LOCK          = 1 << 31
	GMEM_SLEEP_WAKEUP_MASK  = 0xFF0
	GMEM_HW_DYNAMIC_DISABLE = 0x1
	XO_RATE                 = 19200000
)

// Mux source selectors.
const (
	xoSel           = 0
	gpll0Sel        = 1
	gpll3Sel        = 2
	gpll0OutMainSel = 1
	gpll4Sel        = 2
	gpll6Sel        = 2
	gpll6AuxSel     = 3
)

// Soft vote clients of the shared GPLL0 enable bit.
const (
	gpll0VotePrimary = 1 << 0
	gpll0VoteACPU    = 1 << 1
)

// Levels of vdd_dig.
const (
	DigNone vdd.Level = iota
	DigLower
	DigLow
	DigNominal
	DigNomPlus
	DigHigh
	numDigLevels
)

// Levels of the SR2 and HF PLL rails.
const (
	PLLOff vdd.Level = iota
	PLLSVS
	PLLNom
	PLLTurbo
	numPLLLevels
)

var digCorners = []int{vdd.CornerNone, vdd.CornerSVS, vdd.CornerSVSPlus, vdd.CornerNom, vdd.CornerNomPlus, vdd.CornerTurbo}

var (
	pllMicrovolts = []int{0, 1800000, 1800000, 1800000}
	pllCorners    = []int{vdd.CornerNone, vdd.CornerSVS, vdd.CornerNom, vdd.CornerTurbo}
)

func digFmax(m map[vdd.Level]uint64) []uint64 {
	f := make([]uint64, numDigLevels)
	for l, r := range m {
		f[l] = r
	}
	return f
}

// f is an RCG table entry with the divider written the way the hardware
// documentation writes it, in halves.
func f(rate uint64, src string, sel uint32, div2 uint32, m, n uint32) clk.RCGFreq {
	return clk.RCGFreq{Rate: rate, Src: src, Sel: sel, Div2: div2, M: m, N: n}
}

var gpll3Masks = clk.PLLMasks{
	VCO:        clk.BM(21, 20),
	PostDiv:    clk.BM(11, 8),
	MNEn:       clk.BIT(24),
	MainOutput: 0xF,
}

// gpll3 is fused to divide its VCO by two, so every entry keeps PostDiv 1.
var gpll3Freqs = []clk.PLLFreq{
	{Rate: 930000000, L: 48, M: 7, N: 16, PostDiv: 1},
	{Rate: 1000000000, L: 52, M: 1, N: 12, PostDiv: 1},
	{Rate: 1050000000, L: 54, M: 11, N: 16, PostDiv: 1},
	{Rate: 1100000000, L: 57, M: 7, N: 24, PostDiv: 1},
}

var gfx3dFreqs = []clk.RCGFreq{
	f(19200000, "xo_clk_src", xoSel, 2, 0, 0),
	f(50000000, "gpll0_clk_src", gpll0Sel, 32, 0, 0),
	f(80000000, "gpll0_clk_src", gpll0Sel, 20, 0, 0),
	f(100000000, "gpll0_clk_src", gpll0Sel, 16, 0, 0),
	f(160000000, "gpll0_clk_src", gpll0Sel, 10, 0, 0),
	f(200000000, "gpll0_clk_src", gpll0Sel, 8, 0, 0),
	f(228570000, "gpll0_clk_src", gpll0Sel, 7, 0, 0),
	f(240000000, "gpll6_aux_clk_src", gpll6AuxSel, 9, 0, 0),
	f(266670000, "gpll0_clk_src", gpll0Sel, 6, 0, 0),
	f(400000000, "gpll0_clk_src", gpll0Sel, 4, 0, 0),
	{Rate: 465000000, Src: "gpll3_clk_src", Sel: gpll3Sel, Div2: 2, SrcRate: 930000000},
	{Rate: 500000000, Src: "gpll3_clk_src", Sel: gpll3Sel, Div2: 2, SrcRate: 1000000000},
	{Rate: 550000000, Src: "gpll3_clk_src", Sel: gpll3Sel, Div2: 2, SrcRate: 1100000000},
}

var apssAHBFreqs = []clk.RCGFreq{
	f(19200000, "xo_a_clk_src", xoSel, 2, 0, 0),
	f(50000000, "gpll0_clk_src", gpll0Sel, 32, 0, 0),
	f(100000000, "gpll0_clk_src", gpll0Sel, 16, 0, 0),
	f(133330000, "gpll0_clk_src", gpll0Sel, 12, 0, 0),
}

var camssTopAHBFreqs = []clk.RCGFreq{
	f(40000000, "gpll0_clk_src", gpll0Sel, 20, 1, 2),
	f(61540000, "gpll0_clk_src", gpll0Sel, 26, 0, 0),
	f(80000000, "gpll0_clk_src", gpll0Sel, 20, 0, 0),
}

var csiFreqs = []clk.RCGFreq{
	f(100000000, "gpll0_clk_src", gpll0Sel, 16, 0, 0),
	f(160000000, "gpll0_clk_src", gpll0Sel, 10, 0, 0),
	f(200000000, "gpll0_clk_src", gpll0Sel, 8, 0, 0),
}

var vcodec0Freqs = []clk.RCGFreq{
	f(133330000, "gpll0_clk_src", gpll0Sel, 12, 0, 0),
	f(180000000, "gpll6_clk_src", gpll6Sel, 12, 0, 0),
	f(228570000, "gpll0_clk_src", gpll0Sel, 7, 0, 0),
	f(266670000, "gpll0_clk_src", gpll0Sel, 6, 0, 0),
	f(308570000, "gpll6_clk_src", gpll6Sel, 7, 0, 0),
}

var qupI2CFreqs = []clk.RCGFreq{
	f(19200000, "xo_clk_src", xoSel, 2, 0, 0),
	f(50000000, "gpll0_clk_src", gpll0Sel, 32, 0, 0),
}

var qupSPIFreqs = []clk.RCGFreq{
	f(960000, "xo_clk_src", xoSel, 20, 1, 2),
	f(4800000, "xo_clk_src", xoSel, 8, 0, 0),
	f(9600000, "xo_clk_src", xoSel, 4, 0, 0),
	f(16000000, "gpll0_clk_src", gpll0Sel, 20, 1, 5),
	f(19200000, "xo_clk_src", xoSel, 2, 0, 0),
	f(25000000, "gpll0_clk_src", gpll0Sel, 32, 1, 2),
	f(50000000, "gpll0_clk_src", gpll0Sel, 32, 0, 0),
}

var sdcc1AppsFreqs = []clk.RCGFreq{
	f(144000, "xo_clk_src", xoSel, 32, 3, 25),
	f(400000, "xo_clk_src", xoSel, 24, 1, 4),
	f(20000000, "gpll0_clk_src", gpll0Sel, 20, 1, 4),
	f(25000000, "gpll0_clk_src", gpll0Sel, 32, 1, 2),
	f(50000000, "gpll0_clk_src", gpll0Sel, 32, 0, 0),
	f(100000000, "gpll0_clk_src", gpll0Sel, 16, 0, 0),
	f(177770000, "gpll0_clk_src", gpll0Sel, 9, 0, 0),
	f(192000000, "gpll4_clk_src", gpll4Sel, 12, 0, 0),
	f(200000000, "gpll0_clk_src", gpll0Sel, 8, 0, 0),
	f(384000000, "gpll4_clk_src", gpll4Sel, 6, 0, 0),
}

var sdcc1ICEFreqs = []clk.RCGFreq{
	f(100000000, "gpll0_out_main_clk_src", gpll0OutMainSel, 16, 0, 0),
	f(200000000, "gpll0_out_main_clk_src", gpll0OutMainSel, 8, 0, 0),
}

var mdpFreqs = []clk.RCGFreq{
	f(50000000, "gpll0_clk_src", gpll0Sel, 32, 0, 0),
	f(80000000, "gpll0_clk_src", gpll0Sel, 20, 0, 0),
	f(100000000, "gpll0_clk_src", gpll0Sel, 16, 0, 0),
	f(145450000, "gpll0_clk_src", gpll0Sel, 11, 0, 0),
	f(160000000, "gpll0_clk_src", gpll0Sel, 10, 0, 0),
	f(177780000, "gpll0_clk_src", gpll0Sel, 9, 0, 0),
	f(200000000, "gpll0_clk_src", gpll0Sel, 8, 0, 0),
	f(266670000, "gpll0_clk_src", gpll0Sel, 6, 0, 0),
	f(320000000, "gpll0_clk_src", gpll0Sel, 5, 0, 0),
}

var xoOnlyFreqs = []clk.RCGFreq{
	f(19200000, "xo_clk_src", xoSel, 2, 0, 0),
}

var pdm2Freqs = []clk.RCGFreq{
	f(64000000, "gpll0_clk_src", gpll0Sel, 25, 0, 0),
}

// gccConfigs returns the GCC clocks. Every register lives in g.
func gccConfigs(g clk.Regs) []clk.Config {
	gpll0 := clk.NewVote(g, APCS_GPLL_ENA_VOTE, clk.BIT(0))
	rcg := func(cmd uint32, mnd bool, freqs []clk.RCGFreq) *clk.RCGConfig {
		return &clk.RCGConfig{Regs: g, CMD: cmd, MND: mnd, Freqs: freqs}
	}
	br := func(cbcr uint32) *clk.BranchConfig {
		return &clk.BranchConfig{Regs: g, CBCR: cbcr}
	}
	// Siblings on one CBCR share its gate, each with a bit of its own.
	gates := map[uint32]*clk.Vote{}
	members := map[uint32]uint{}
	sib := func(cbcr uint32) *clk.BranchConfig {
		if gates[cbcr] == nil {
			gates[cbcr] = clk.NewGate(g, cbcr)
		}
		client := clk.BIT(members[cbcr])
		members[cbcr]++
		return &clk.BranchConfig{HasSibling: true, Gate: gates[cbcr], Client: client}
	}
	voteBr := func(cbcr, reg uint32, bit uint) *clk.BranchConfig {
		return &clk.BranchConfig{Regs: g, CBCR: cbcr, Vote: clk.NewVote(g, reg, clk.BIT(bit))}
	}
	return []clk.Config{
		{Name: "xo_clk_src", Kind: clk.KindFixed, Rate: XO_RATE},
		{Name: "xo_a_clk_src", Kind: clk.KindFixed, Rate: XO_RATE},

		{Name: "gpll0_clk_src", Kind: clk.KindVotePLL, Parent: "xo_clk_src", Rate: 800000000,
			VotePLL: &clk.VotePLLConfig{Vote: gpll0, Client: gpll0VotePrimary, Status: GPLL0_STATUS, StatusMask: GPLL_STATUS_ACTIVE}},
		// Active-only: doesn't hold XO on.
		{Name: "gpll0_ao_clk_src", Kind: clk.KindVotePLL, Parent: "xo_a_clk_src", Rate: 800000000,
			VotePLL: &clk.VotePLLConfig{Vote: gpll0, Client: gpll0VoteACPU, Status: GPLL0_STATUS, StatusMask: GPLL_STATUS_ACTIVE}},
		{Name: "gpll0_out_aux_clk_src", Kind: clk.KindAlias, Parent: "gpll0_clk_src"},
		{Name: "gpll0_out_main_clk_src", Kind: clk.KindAlias, Parent: "gpll0_clk_src"},
		{Name: "gpll0_thermal_clk_src", Kind: clk.KindAlias, Parent: "gpll0_ao_clk_src"},
		{Name: "gpll6_clk_src", Kind: clk.KindVotePLL, Parent: "xo_a_clk_src", Rate: 1080000000,
			VotePLL: &clk.VotePLLConfig{Vote: clk.NewVote(g, APCS_GPLL_ENA_VOTE, clk.BIT(7)), Status: GPLL6_STATUS, StatusMask: GPLL_STATUS_ACTIVE}},
		{Name: "gpll6_thermal_clk_src", Kind: clk.KindAlias, Parent: "gpll6_clk_src"},
		{Name: "gpll6_aux_clk_src", Kind: clk.KindAlias, Parent: "gpll6_clk_src"},
		{Name: "gpll6_out_main_clk_src", Kind: clk.KindAlias, Parent: "gpll6_clk_src"},
		{Name: "gpll4_clk_src", Kind: clk.KindVotePLL, Parent: "xo_clk_src", Rate: 1152000000,
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigNominal: 1400000000}),
			VotePLL: &clk.VotePLLConfig{Vote: clk.NewVote(g, APCS_GPLL_ENA_VOTE, clk.BIT(5)), Status: GPLL4_MODE, StatusMask: GPLL4_ACTIVE}},
		{Name: "gpll3_clk_src", Kind: clk.KindPLL, Parent: "xo_clk_src",
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigNominal: 1400000000}),
			PLL: &clk.PLLConfig{
				Regs: g, Mode: GPLL3_MODE, L: GPLL3_MODE + 0x4, M: GPLL3_MODE + 0x8, N: GPLL3_MODE + 0xC,
				UserCtl: GPLL3_MODE + 0x10, ConfigCtl: GPLL3_MODE + 0x18, Status: GPLL3_MODE + 0x24,
				ConfigCtlVal: 0x4001055b,
				LockMask:     ALPHA_PLL_LOCK,
				Masks:        gpll3Masks,
				Freqs:        gpll3Freqs,
				Slew:         true,
			}},

		// The DSI PHY PLL belongs to the display driver.
		{Name: "dsi0_pixel_pll", Kind: clk.KindExternal},
		{Name: "dsi0_byte_pll", Kind: clk.KindExternal},

		{Name: "apss_ahb_clk_src", Kind: clk.KindRCG, RCG: rcg(APSS_AHB_CMD_RCGR, false, apssAHBFreqs)},
		{Name: "gfx3d_clk_src", Kind: clk.KindRCG, RCG: rcg(GFX3D_CMD_RCGR, false, gfx3dFreqs),
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 240000000, DigLow: 400000000, DigNominal: 465000000, DigNomPlus: 500000000, DigHigh: 550000000})},
		{Name: "camss_top_ahb_clk_src", Kind: clk.KindRCG, RCG: rcg(CAMSS_TOP_AHB_CMD_RCGR, true, camssTopAHBFreqs),
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 40000000, DigLow: 61540000, DigNominal: 80000000})},
		{Name: "csi0_clk_src", Kind: clk.KindRCG, RCG: rcg(CSI0_CMD_RCGR, false, csiFreqs),
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 100000000, DigLow: 160000000, DigNominal: 200000000})},
		{Name: "vcodec0_clk_src", Kind: clk.KindRCG, RCG: rcg(VCODEC0_CMD_RCGR, true, vcodec0Freqs),
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 133330000, DigLow: 180000000, DigNominal: 228570000, DigNomPlus: 266670000, DigHigh: 308570000})},
		{Name: "blsp1_qup1_i2c_apps_clk_src", Kind: clk.KindRCG, RCG: rcg(BLSP1_QUP1_I2C_APPS_CMD_RCGR, false, qupI2CFreqs),
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 50000000})},
		{Name: "blsp1_qup1_spi_apps_clk_src", Kind: clk.KindRCG, RCG: rcg(BLSP1_QUP1_SPI_APPS_CMD_RCGR, true, qupSPIFreqs),
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 25000000, DigNominal: 50000000})},
		{Name: "sdcc1_apps_clk_src", Kind: clk.KindRCG, RCG: rcg(SDCC1_APPS_CMD_RCGR, true, sdcc1AppsFreqs),
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 100000000, DigNominal: 384000000})},
		{Name: "sdcc1_ice_core_clk_src", Kind: clk.KindRCG, RCG: rcg(SDCC1_ICE_CORE_CMD_RCGR, true, sdcc1ICEFreqs),
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 100000000, DigNominal: 200000000})},
		{Name: "pdm2_clk_src", Kind: clk.KindRCG, RCG: rcg(PDM2_CMD_RCGR, false, pdm2Freqs),
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 64000000})},
		{Name: "mdp_clk_src", Kind: clk.KindRCG, RCG: rcg(MDP_CMD_RCGR, false, mdpFreqs),
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 160000000, DigNominal: 266670000, DigHigh: 320000000})},
		{Name: "esc0_clk_src", Kind: clk.KindRCG, RCG: rcg(ESC0_CMD_RCGR, false, xoOnlyFreqs),
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 19200000})},
		{Name: "vsync_clk_src", Kind: clk.KindRCG, RCG: rcg(VSYNC_CMD_RCGR, false, xoOnlyFreqs),
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 19200000})},
		{Name: "pclk0_clk_src", Kind: clk.KindRCG, Parent: "dsi0_pixel_pll",
			RCG:  &clk.RCGConfig{Regs: g, CMD: PCLK0_CMD_RCGR, Pixel: true, Ratio: 1},
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 160000000, DigNominal: 250000000})},
		{Name: "byte0_clk_src", Kind: clk.KindRCG, Parent: "dsi0_byte_pll",
			RCG:  &clk.RCGConfig{Regs: g, CMD: BYTE0_CMD_RCGR, Pixel: true, Ratio: 1},
			Rail: "vdd_dig", Fmax: digFmax(map[vdd.Level]uint64{DigLower: 120000000, DigNominal: 187500000})},

		{Name: "gcc_oxili_gfx3d_clk", Kind: clk.KindBranch, Parent: "gfx3d_clk_src", Branch: br(OXILI_GFX3D_CBCR)},
		{Name: "gcc_oxili_ahb_clk", Kind: clk.KindBranch, Branch: sib(OXILI_AHB_CBCR)},
		{Name: "gcc_oxili_timer_clk", Kind: clk.KindBranch, Parent: "xo_clk_src", Branch: br(OXILI_TIMER_CBCR)},
		{Name: "gcc_bimc_gfx_clk", Kind: clk.KindBranch, Branch: sib(BIMC_GFX_CBCR)},
		// The camera AHB source stays up once used.
		{Name: "gcc_camss_top_ahb_clk", Kind: clk.KindBranch, Parent: "camss_top_ahb_clk_src", KeepParent: true, Branch: sib(CAMSS_TOP_AHB_CBCR)},
		{Name: "gcc_camss_csi0_clk", Kind: clk.KindBranch, Parent: "csi0_clk_src", Branch: sib(CAMSS_CSI0_CBCR)},
		{Name: "gcc_venus0_vcodec0_clk", Kind: clk.KindBranch, Parent: "vcodec0_clk_src", Branch: br(VENUS0_VCODEC0_CBCR)},
		{Name: "gcc_blsp1_qup1_i2c_apps_clk", Kind: clk.KindBranch, Parent: "blsp1_qup1_i2c_apps_clk_src", Branch: br(BLSP1_QUP1_I2C_APPS_CBCR)},
		{Name: "gcc_blsp1_qup1_spi_apps_clk", Kind: clk.KindBranch, Parent: "blsp1_qup1_spi_apps_clk_src", Branch: br(BLSP1_QUP1_SPI_APPS_CBCR)},
		{Name: "gcc_sdcc1_apps_clk", Kind: clk.KindBranch, Parent: "sdcc1_apps_clk_src", Branch: br(SDCC1_APPS_CBCR)},
		{Name: "gcc_sdcc1_ice_core_clk", Kind: clk.KindBranch, Parent: "sdcc1_ice_core_clk_src", Branch: br(SDCC1_ICE_CORE_CBCR)},
		{Name: "gcc_pdm2_clk", Kind: clk.KindBranch, Parent: "pdm2_clk_src", Branch: br(PDM2_CBCR)},
		{Name: "gcc_mdss_pclk0_clk", Kind: clk.KindBranch, Parent: "pclk0_clk_src", Branch: br(MDSS_PCLK0_CBCR)},
		{Name: "gcc_mdss_byte0_clk", Kind: clk.KindBranch, Parent: "byte0_clk_src", Branch: br(MDSS_BYTE0_CBCR)},
		{Name: "gcc_mdss_mdp_clk", Kind: clk.KindBranch, Parent: "mdp_clk_src", Branch: br(MDSS_MDP_CBCR)},
		{Name: "gcc_mdss_vsync_clk", Kind: clk.KindBranch, Parent: "vsync_clk_src", Branch: br(MDSS_VSYNC_CBCR)},
		{Name: "gcc_mdss_esc0_clk", Kind: clk.KindBranch, Parent: "esc0_clk_src", Branch: br(MDSS_ESC0_CBCR)},

		{Name: "gcc_blsp1_ahb_clk", Kind: clk.KindVoteBranch, Branch: voteBr(BLSP1_AHB_CBCR, APCS_CLOCK_BRANCH_ENA_VOTE, 10)},
		{Name: "gcc_apss_tcu_clk", Kind: clk.KindVoteBranch, Branch: voteBr(APSS_TCU_CBCR, APCS_SMMU_CLOCK_BRANCH_ENA_VOTE, 1)},
		{Name: "gcc_gfx_tcu_clk", Kind: clk.KindVoteBranch, Branch: voteBr(GFX_TCU_CBCR, APCS_SMMU_CLOCK_BRANCH_ENA_VOTE, 2)},
		{Name: "gcc_gfx_tbu_clk", Kind: clk.KindVoteBranch, Branch: voteBr(GFX_TBU_CBCR, APCS_SMMU_CLOCK_BRANCH_ENA_VOTE, 3)},
	}
}

// debugSel routes GCC clocks to the frequency counter.
var debugSel = map[string]uint32{
	"gcc_bimc_gfx_clk":            0x002d,
	"gcc_apss_tcu_clk":            0x0050,
	"gcc_gfx_tbu_clk":             0x0052,
	"gcc_gfx_tcu_clk":             0x0053,
	"gcc_sdcc1_apps_clk":          0x0068,
	"gcc_sdcc1_ice_core_clk":      0x006a,
	"gcc_blsp1_ahb_clk":           0x0088,
	"gcc_blsp1_qup1_spi_apps_clk": 0x008a,
	"gcc_blsp1_qup1_i2c_apps_clk": 0x008b,
	"gcc_camss_top_ahb_clk":       0x00a9,
	"gcc_camss_csi0_clk":          0x00c0,
	"gcc_pdm2_clk":                0x00d2,
	"gcc_oxili_timer_clk":         0x01e9,
	"gcc_oxili_gfx3d_clk":         0x01ea,
	"gcc_oxili_ahb_clk":           0x01eb,
	"gcc_venus0_vcodec0_clk":      0x01f1,
	"gcc_mdss_pclk0_clk":          0x01f8,
	"gcc_mdss_mdp_clk":            0x01f9,
	"gcc_mdss_vsync_clk":          0x01fb,
	"gcc_mdss_byte0_clk":          0x01fc,
	"gcc_mdss_esc0_clk":           0x01fd,
}

func measureConfig(g clk.Regs) clk.MeasureConfig {
	return clk.MeasureConfig{
		Regs:    g,
		Mux:     GCC_DEBUG_CLK_CTL,
		MuxMask: 0x1FF,
		XOCBCR:  GCC_XO_DIV4_CBCR,
		Ctl:     CLOCK_FRQ_MEASURE_CTL,
		Status:  CLOCK_FRQ_MEASURE_STATUS,
		Sel:     debugSel,
	}
}
