package msm8952

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/Jon-Bright/clkctl/clk"
	"github.com/Jon-Bright/clkctl/dtcfg"
	"github.com/Jon-Bright/clkctl/soc"
	"github.com/Jon-Bright/clkctl/thermal"
	"github.com/Jon-Bright/clkctl/vdd"
)

// Supplies hands out the regulator behind a named supply.
type Supplies func(name string) (vdd.Regulator, error)

// Config is everything Probe needs besides the registers.
type Config struct {
	// GCC is the global clock controller's device tree node. It may be nil,
	// which leaves the thermal gate off.
	GCC *dtcfg.Node
	// CPU is the A53 clock controller's node, holding the voltage plans and
	// mux sources.
	CPU      *dtcfg.Node
	Supplies Supplies
	CPUCtl   clk.CPUControl
	// CPURegs maps logical CPUs to their reg value; Online lists the CPUs
	// that get a clock vote at boot. Nil Online means all of them.
	CPURegs []uint32
	Online  []int
	// SpeedBin and PVSVersion override the fuses when not negative.
	SpeedBin   int
	PVSVersion int
}

// Controller is a probed clock controller.
type Controller struct {
	Tree     *clk.Tree
	Measurer *clk.Measurer
	// Gate is nil when the device tree sets no thermal thresholds.
	Gate       *thermal.Gate
	SpeedBin   int
	PVSVersion int
	Plans      map[string]string

	pm []clk.Clock
}

func (c *Config) speedBin(hw *Hardware) (int, int) {
	bin, version := soc.SpeedBin(hw.Efuse, hw.Efuse1, hw.Efuse2)
	if c.SpeedBin >= 0 {
		bin = c.SpeedBin
	}
	if c.PVSVersion >= 0 {
		version = c.PVSVersion
	}
	return bin, version
}

func newRail(name string, levels int, sup Supplies, supplies map[string][]int, order ...string) (*vdd.Rail, error) {
	r := vdd.NewRail(name, levels)
	for _, s := range order {
		reg, err := sup(s)
		if err != nil {
			return nil, fmt.Errorf("couldn't get %s regulator: %v", s, err)
		}
		if err := r.AddSupply(s, reg, supplies[s]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func rails(sup Supplies, plans map[string]cpuPlan) ([]*vdd.Rail, error) {
	dig, err := newRail("vdd_dig", int(numDigLevels), sup, map[string][]int{"vdd_dig": digCorners}, "vdd_dig")
	if err != nil {
		return nil, err
	}
	sr2, err := newRail("vdd_sr2_pll", int(numPLLLevels), sup,
		map[string][]int{"vdd_sr2_pll": pllMicrovolts, "vdd_sr2_dig": pllCorners}, "vdd_sr2_pll", "vdd_sr2_dig")
	if err != nil {
		return nil, err
	}
	hf, err := newRail("vdd_hf_pll", int(numPLLLevels), sup,
		map[string][]int{"vdd_hf_pll": pllMicrovolts, "vdd_hf_dig": pllCorners}, "vdd_hf_pll", "vdd_hf_dig")
	if err != nil {
		return nil, err
	}
	rs := []*vdd.Rail{dig, sr2, hf}
	for _, c := range clusters {
		p := plans[c.dt]
		uv := make([]int, len(p.points))
		for i, pt := range p.points {
			uv[i] = pt.UV
		}
		supply := "vdd-" + c.dt
		r, err := newRail(c.rail, len(uv), sup, map[string][]int{supply: uv}, supply)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return rs, nil
}

// cpuClusters sorts logical CPUs into clusters by their reg value.
func cpuClusters(regs []uint32) map[string][]int {
	m := map[string][]int{}
	for cpu, reg := range regs {
		if c, ok := clusterOf(reg); ok {
			m[c] = append(m[c], cpu)
		}
	}
	return m
}

// Probe builds the clock tree, adopts the boot state and brings the
// controller to its start-of-day configuration.
func Probe(hw *Hardware, cfg Config) (*Controller, error) {
	if cfg.CPU == nil {
		return nil, fmt.Errorf("no CPU clock controller node")
	}
	if cfg.CPUCtl == nil {
		return nil, fmt.Errorf("no CPU control")
	}
	ctl := &Controller{Plans: map[string]string{}}
	ctl.SpeedBin, ctl.PVSVersion = cfg.speedBin(hw)

	plans := map[string]cpuPlan{}
	for _, c := range clusters {
		pts, prop, err := cfg.CPU.Plan(c.dt, ctl.SpeedBin, ctl.PVSVersion)
		if err != nil {
			return nil, fmt.Errorf("couldn't load voltage plan for %s: %w", c.dt, err)
		}
		if want := fmt.Sprintf("qcom,speed%d-bin-v%d-%s", ctl.SpeedBin, ctl.PVSVersion, c.dt); prop != want {
			glog.Errorf("couldn't load voltage plan %s, using safe plan %s", want, prop)
		}
		ctl.Plans[c.dt] = prop
		plans[c.dt] = cpuPlan{points: pts, sources: cfg.CPU.MuxSources(c.dt)}
	}

	rs, err := rails(cfg.Supplies, plans)
	if err != nil {
		return nil, err
	}
	cpus := cpuClusters(cfg.CPURegs)
	cfgs := gccConfigs(hw.GCC)
	cc, err := cpuConfigs(hw, plans, cpus)
	if err != nil {
		return nil, err
	}
	cfgs = append(cfgs, cc...)
	t, err := clk.New(cfgs, clk.Options{Rails: rs, CPU: cfg.CPUCtl})
	if err != nil {
		return nil, fmt.Errorf("couldn't build clock tree: %w", err)
	}
	ctl.Tree = t

	// The CPU clock code relies on GPLL0 being voted on from the start.
	hw.GCC.Write32(APCS_GPLL_ENA_VOTE, hw.GCC.Read32(APCS_GPLL_ENA_VOTE)|clk.BIT(0))
	t.Handoff()

	if err := ctl.gccDefaults(hw); err != nil {
		return nil, err
	}
	if ctl.Measurer, err = clk.NewMeasurer(t, measureConfig(hw.GCC)); err != nil {
		return nil, err
	}
	if err := ctl.thermalGate(cfg.GCC); err != nil {
		glog.Errorf("thermal gate not available: %v", err)
	}
	if err := ctl.cpuDefaults(cfg); err != nil {
		return nil, err
	}
	glog.Infof("registered clocks, speed bin %d PVS version %d", ctl.SpeedBin, ctl.PVSVersion)
	return ctl, nil
}

func (ctl *Controller) must(name string) clk.Clock {
	c, err := ctl.Tree.Get(name)
	if err != nil {
		// Only called with names from the tables above.
		panic(err)
	}
	return c
}

func (ctl *Controller) gccDefaults(hw *Hardware) error {
	ahb := ctl.must("apss_ahb_clk_src")
	if err := ahb.SetRate(XO_RATE); err != nil {
		return fmt.Errorf("couldn't set %s: %w", ahb.Name(), err)
	}
	if err := ahb.Enable(); err != nil {
		return fmt.Errorf("couldn't enable %s: %w", ahb.Name(), err)
	}
	if err := ctl.must("xo_a_clk_src").Enable(); err != nil {
		return err
	}

	// GMEM gets zero sleep and wakeup cycles, and no hardware dynamic
	// gating.
	g := hw.GCC
	v := g.Read32(OXILI_GMEM_CBCR)
	g.Write32(OXILI_GMEM_CBCR, v&^GMEM_SLEEP_WAKEUP_MASK)
	g.Write32(GCC_SPARE3_REG, GMEM_HW_DYNAMIC_DISABLE)
	return nil
}

func (ctl *Controller) thermalGate(n *dtcfg.Node) error {
	if n == nil {
		return nil
	}
	thr, ok, err := n.Thresholds()
	if err != nil || !ok {
		return err
	}
	ctl.Gate, err = thermal.NewGate(thr, ctl.must("gpll0_thermal_clk_src"), ctl.must("gpll6_thermal_clk_src"))
	return err
}

// configPLL forces a cluster PLL to be reprogrammed: the cluster moves to
// its safe rate on GPLL0, the PLL drops to its lowest rate and the cluster
// goes back to where it was.
func (ctl *Controller) configPLL(c *cluster) error {
	cpu, pll := ctl.must(c.cpu), ctl.must(c.pll)
	rate := cpu.Rate()
	if err := cpu.SetRate(c.safe); err != nil {
		return fmt.Errorf("couldn't park %s: %w", c.cpu, err)
	}
	low, err := pll.RoundRate(1)
	if err != nil {
		return err
	}
	if err := pll.SetRate(low); err != nil {
		return fmt.Errorf("couldn't reprogram %s: %w", c.pll, err)
	}
	if rate == 0 {
		return nil
	}
	if err := cpu.SetRate(rate); err != nil {
		return fmt.Errorf("couldn't restore %s to %d Hz: %w", c.cpu, rate, err)
	}
	return nil
}

func (ctl *Controller) cpuDefaults(cfg Config) error {
	cci := ctl.must("cci_clk")
	if r := cci.Rate(); r != 0 {
		if err := cci.SetRate(r); err != nil {
			return fmt.Errorf("couldn't set %s: %w", cci.Name(), err)
		}
	}
	for i := range clusters {
		c := &clusters[i]
		if c.dt == "cci" {
			continue
		}
		if err := ctl.configPLL(c); err != nil {
			return err
		}
	}

	// Hold every online CPU's clock on, and the CCI's once per CPU, so
	// whatever manages CPU frequency later finds them prepared.
	online := cfg.Online
	if online == nil {
		for cpu := range cfg.CPURegs {
			online = append(online, cpu)
		}
	}
	for _, cpu := range online {
		if cpu < 0 || cpu >= len(cfg.CPURegs) {
			glog.Warningf("no reg for cpu %d", cpu)
			continue
		}
		dt, ok := clusterOf(cfg.CPURegs[cpu])
		if !ok {
			glog.Warningf("cpu %d (reg %#x) in no cluster", cpu, cfg.CPURegs[cpu])
			continue
		}
		for i := range clusters {
			if clusters[i].dt != dt {
				continue
			}
			if err := ctl.must(clusters[i].cpu).Enable(); err != nil {
				glog.Errorf("couldn't turn on cpu %d clock: %v", cpu, err)
			}
		}
		if err := cci.Enable(); err != nil {
			glog.Errorf("couldn't turn on %s: %v", cci.Name(), err)
		}
	}
	ctl.pm = []clk.Clock{ctl.must("a53_lc_clk"), ctl.must("a53_bc_clk"), cci}
	return nil
}

// Prepare takes an extra enable on the CPU clocks before suspend.
func (ctl *Controller) Prepare() error {
	for i, c := range ctl.pm {
		if err := c.Enable(); err != nil {
			for j := i - 1; j >= 0; j-- {
				ctl.pm[j].Disable() // Ignore error
			}
			return fmt.Errorf("couldn't hold %s for suspend: %w", c.Name(), err)
		}
	}
	return nil
}

// Resume drops the enables Prepare took.
func (ctl *Controller) Resume() error {
	var first error
	for _, c := range ctl.pm {
		if err := c.Disable(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
