// Command clockd brings up the MSM8952 clock controller and serves a debug
// console for it.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/Jon-Bright/clkctl/dtcfg"
	"github.com/Jon-Bright/clkctl/msm8952"
	"github.com/Jon-Bright/clkctl/soc"
	"github.com/Jon-Bright/clkctl/thermal"
	"github.com/Jon-Bright/clkctl/vdd"
)

const CPU_ONLINE_FILE = "/sys/devices/system/cpu/online"

var dtb = flag.String("dtb", dtcfg.FDT_FILE, "The flattened device tree to read the clock configuration from. Ignored with -sim unless set explicitly.")
var listen = flag.String("listen", "127.0.0.1:24601", "The address the debug console listens on. Empty disables the console.")
var sim = flag.Bool("sim", false, "Run against simulated registers instead of /dev/mem")
var regulator = flag.String("regulator", "sysfs", "How supplies are driven: one of sysfs, pmic, log")
var regulatorDir = flag.String("regulator-dir", "/sys/devices/platform", "The directory holding one reg-virt-consumer.<supply> directory per supply, for -regulator=sysfs")
var i2cBus = flag.Int("i2cbus", 0, "The I2C bus the PMIC is on, for -regulator=pmic")
var i2cAddr = flag.Int("i2caddr", 0x08, "The PMIC's I2C address, for -regulator=pmic")
var thermalZones = flag.String("thermal-zones", thermal.ZONES_DIR, "The directory holding the thermal zones")
var thermalPoll = flag.Duration("thermal-poll", 2*time.Second, "How often the thermal zones are read. 0 only checks once at start.")
var speedBin = flag.Int("speed-bin", -1, "Use this speed bin instead of the fused one. -1 means use the fuses.")
var pvsVersion = flag.Int("pvs-version", -1, "Use this PVS version instead of the fused one. -1 means use the fuses.")

// pmicSupply is where one supply lives in the PMIC. Corner supplies have a
// zero step and take the corner code directly.
type pmicSupply struct {
	reg        uint8
	base, step int
}

var pmicSupplies = map[string]pmicSupply{
	"vdd_dig":     {0x40, 0, 0},
	"vdd_sr2_dig": {0x41, 0, 0},
	"vdd_hf_dig":  {0x42, 0, 0},
	"vdd_sr2_pll": {0x48, 1500000, 12500},
	"vdd_hf_pll":  {0x49, 1500000, 12500},
	"vdd-c0":      {0x50, 500000, 5000},
	"vdd-c1":      {0x51, 500000, 5000},
	"vdd-cci":     {0x52, 500000, 5000},
}

func supplies(kind string) (msm8952.Supplies, error) {
	switch kind {
	case "sysfs":
		return func(name string) (vdd.Regulator, error) {
			dir := filepath.Join(*regulatorDir, "reg-virt-consumer."+name)
			if _, err := os.Stat(dir); err != nil {
				return nil, fmt.Errorf("no consumer for %s: %v", name, err)
			}
			return &soc.SysfsRegulator{Dir: dir}, nil
		}, nil
	case "pmic":
		return func(name string) (vdd.Regulator, error) {
			s, ok := pmicSupplies[name]
			if !ok {
				return nil, fmt.Errorf("supply %s not on the PMIC", name)
			}
			return &soc.PMIC{Bus: *i2cBus, Addr: *i2cAddr, Reg: s.reg, Base: s.base, Step: s.step}, nil
		}, nil
	case "log":
		return func(name string) (vdd.Regulator, error) {
			return vdd.RegulatorFunc(func(l vdd.Level, v int) error {
				glog.Infof("supply %s: level %d, %d", name, l, v)
				return nil
			}), nil
		}, nil
	}
	return nil, fmt.Errorf("unrecognized regulator type: %s", kind)
}

// simCPUs stands in for CPU idle control when the CPUs being clocked
// aren't the ones we run on.
type simCPUs struct{}

func (simCPUs) BlockIdle(cpus []int, us int) (func(), error) {
	glog.V(2).Infof("sim: holding cpus %v to %dus latency", cpus, us)
	return func() {}, nil
}

func (simCPUs) Rendezvous(cpus []int) error {
	glog.V(2).Infof("sim: rendezvous with cpus %v", cpus)
	return nil
}

// parseCPUList parses the kernel's CPU list format, e.g. "0-3,6".
func parseCPUList(s string) ([]int, error) {
	var cpus []int
	for _, r := range strings.Split(strings.TrimSpace(s), ",") {
		if r == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(r, "-")
		first, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("bad cpu list %q: %v", s, err)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(hi); err != nil {
				return nil, fmt.Errorf("bad cpu list %q: %v", s, err)
			}
		}
		if last < first {
			return nil, fmt.Errorf("bad cpu range %q", r)
		}
		for c := first; c <= last; c++ {
			cpus = append(cpus, c)
		}
	}
	return cpus, nil
}

func onlineCPUs() []int {
	b, err := os.ReadFile(CPU_ONLINE_FILE)
	if err != nil {
		glog.Warningf("couldn't read online CPUs, assuming all: %v", err)
		return nil
	}
	cpus, err := parseCPUList(string(b))
	if err != nil {
		glog.Warningf("%v, assuming all CPUs online", err)
		return nil
	}
	return cpus
}

// blocks collects the register regions the device tree names, filling in
// the rest from the SoC's known layout.
func blocks(s *soc.SoC, nodes ...*dtcfg.Node) map[string]soc.Block {
	b := map[string]soc.Block{}
	for k, v := range s.Blocks {
		b[k] = v
	}
	for _, n := range nodes {
		if n == nil || !n.Has("reg") {
			continue
		}
		regs, err := n.Regs()
		if err != nil {
			glog.Warningf("ignoring %s registers: %v", n.Name(), err)
			continue
		}
		for k, v := range regs {
			b[k] = v
		}
	}
	return b
}

func loadDT() (*dtcfg.DT, error) {
	dtbSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "dtb" {
			dtbSet = true
		}
	})
	if *sim && !dtbSet {
		return dtcfg.Parse(msm8952.SimDT())
	}
	return dtcfg.Load(*dtb)
}

func main() {
	flag.Parse()
	defer glog.Flush()

	dt, err := loadDT()
	if err != nil {
		glog.Fatalf("Failed loading device tree: %v", err)
	}
	gcc, ok := dt.Find(msm8952.GCC_COMPATIBLE)
	if !ok {
		glog.Warningf("no %s node, running without thermal gate", msm8952.GCC_COMPATIBLE)
	}
	cpu, ok := dt.Find(msm8952.CPU_COMPATIBLE)
	if !ok {
		glog.Fatalf("No %s node in device tree", msm8952.CPU_COMPATIBLE)
	}

	var s *soc.SoC
	var simHW *msm8952.Sim
	var hw *msm8952.Hardware
	cfg := msm8952.Config{
		GCC:        gcc,
		CPU:        cpu,
		SpeedBin:   *speedBin,
		PVSVersion: *pvsVersion,
	}
	if *sim {
		s, _ = soc.Lookup("qcom,msm8952-sim")
		simHW = msm8952.NewSim(0, 0)
		hw = simHW.Hardware()
		cfg.CPUCtl = simCPUs{}
		if *regulator == "sysfs" {
			*regulator = "log"
		}
	} else {
		if s, err = soc.Detect(); err != nil {
			glog.Fatalf("Failed detecting SoC: %v", err)
		}
		if hw, err = msm8952.Map(blocks(s, gcc, cpu)); err != nil {
			glog.Fatalf("Failed mapping registers: %v", err)
		}
		cfg.CPUCtl = &soc.CPUControl{}
		cfg.Online = onlineCPUs()
	}
	glog.Infof("Running on %s", s.Name)
	cfg.CPURegs = s.CPURegs
	if cfg.Supplies, err = supplies(*regulator); err != nil {
		glog.Fatalf("Failed setting up supplies: %v", err)
	}

	ctl, err := msm8952.Probe(hw, cfg)
	if err != nil {
		glog.Fatalf("Failed probing clocks: %v", err)
	}
	if ctl.Gate != nil {
		watchThermal(ctl.Gate, &thermal.Zones{Dir: *thermalZones}, *thermalPoll)
	}
	watchSuspend(ctl)

	if *listen == "" {
		select {}
	}
	srv, err := NewServer(*listen, ctl, simHW)
	if err != nil {
		glog.Fatalf("Failed creating server: %v", err)
	}
	srv.handleConnections()
}
