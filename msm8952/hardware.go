package msm8952

import (
	"fmt"

	"github.com/Jon-Bright/clkctl/clk"
	"github.com/Jon-Bright/clkctl/soc"
	"github.com/golang/glog"
)

// Hardware is the set of register blocks the controller drives. The A53
// maps are keyed by the mux's device tree name (c0, c1, cci).
type Hardware struct {
	GCC clk.Regs
	PLL map[string]clk.Regs
	Mux map[string]clk.Regs
	SPM map[string]clk.Regs
	// The efuse words are optional; without them the speed bin is 0.
	Efuse, Efuse1, Efuse2 soc.Reader
}

func newHardware() *Hardware {
	return &Hardware{
		PLL: map[string]clk.Regs{},
		Mux: map[string]clk.Regs{},
		SPM: map[string]clk.Regs{},
	}
}

// Map maps every block the controller needs from /dev/mem.
func Map(blocks map[string]soc.Block) (*Hardware, error) {
	hw := newHardware()
	get := func(name string) (*soc.Regs, error) {
		b, ok := blocks[name]
		if !ok {
			return nil, fmt.Errorf("missing register block %s", name)
		}
		return soc.MapRegs(name, b)
	}
	r, err := get("cc_base")
	if err != nil {
		return nil, err
	}
	hw.GCC = r
	for _, c := range clusters {
		if hw.PLL[c.dt], err = get(fmt.Sprintf("apcs_%s_pll_base", c.dt)); err != nil {
			return nil, err
		}
		if hw.Mux[c.dt], err = get(fmt.Sprintf("apcs-%s-rcg-base", c.dt)); err != nil {
			return nil, err
		}
		if hw.SPM[c.dt], err = get(fmt.Sprintf("spm_%s_base", c.dt)); err != nil {
			return nil, err
		}
	}
	// Fuses are optional: a missing block just means no binning.
	fuse := func(name string) soc.Reader {
		if _, ok := blocks[name]; !ok {
			return nil
		}
		r, err := get(name)
		if err != nil {
			glog.Warningf("couldn't read %s, defaulting to 0: %v", name, err)
			return nil
		}
		return r
	}
	hw.Efuse, hw.Efuse1, hw.Efuse2 = fuse("efuse"), fuse("efuse1"), fuse("efuse2")
	return hw, nil
}
