package soc

import (
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/Jon-Bright/clkctl/vdd"
	"github.com/golang/glog"
	"github.com/platinasystems/i2c"
)

// SysfsRegulator drives a regulator through a reg-virt-consumer device,
// which exposes min_microvolts and max_microvolts files.
type SysfsRegulator struct {
	Dir string
	// MaxUV, when non-zero, is written as the ceiling instead of the
	// requested value.
	MaxUV int

	mu   sync.Mutex
	last int
}

func (r *SysfsRegulator) write(name string, v int) error {
	f := filepath.Join(r.Dir, name)
	if err := ioutil.WriteFile(f, []byte(strconv.Itoa(v)), 0644); err != nil {
		return fmt.Errorf("couldn't write %d to %s: %v", v, f, err)
	}
	return nil
}

func (r *SysfsRegulator) Set(l vdd.Level, uv int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := uv
	if r.MaxUV > max {
		max = r.MaxUV
	}
	// The consumer rejects min > max, so the order depends on direction.
	if uv >= r.last {
		if err := r.write("max_microvolts", max); err != nil {
			return err
		}
		if err := r.write("min_microvolts", uv); err != nil {
			return err
		}
	} else {
		if err := r.write("min_microvolts", uv); err != nil {
			return err
		}
		if err := r.write("max_microvolts", max); err != nil {
			return err
		}
	}
	r.last = uv
	return nil
}

// pmicLock serialises transactions on the shared buses.
var pmicLock sync.Mutex

// PMIC programs a voltage selector register on an SMBus PMIC. With Step
// zero the value is written as is (corner codes); otherwise microvolts are
// converted to a selector, rounding up.
type PMIC struct {
	Bus  int
	Addr int
	Reg  uint8
	Base int
	Step int
}

func (p *PMIC) selector(value int) (uint16, error) {
	if p.Step == 0 {
		return uint16(value), nil
	}
	if value < p.Base {
		return 0, fmt.Errorf("%duV below PMIC floor %duV", value, p.Base)
	}
	sel := (value - p.Base + p.Step - 1) / p.Step
	if sel > 0xffff {
		return 0, fmt.Errorf("%duV out of PMIC range", value)
	}
	return uint16(sel), nil
}

func (p *PMIC) Set(l vdd.Level, value int) error {
	sel, err := p.selector(value)
	if err != nil {
		return err
	}
	pmicLock.Lock()
	defer pmicLock.Unlock()

	var bus i2c.Bus
	if err := bus.Open(p.Bus); err != nil {
		return fmt.Errorf("couldn't open i2c bus %d: %v", p.Bus, err)
	}
	defer bus.Close()
	if err := bus.ForceSlaveAddress(p.Addr); err != nil {
		return fmt.Errorf("couldn't address PMIC %#x: %v", p.Addr, err)
	}
	var data i2c.SMBusData
	data[0] = byte(sel)
	data[1] = byte(sel >> 8)
	if err := bus.Do(i2c.Write, p.Reg, i2c.WordData, &data); err != nil {
		return fmt.Errorf("couldn't write PMIC register %#x: %v", p.Reg, err)
	}
	glog.V(2).Infof("PMIC %d/%#x reg %#x <- %#x (level %d)", p.Bus, p.Addr, p.Reg, sel, l)
	return nil
}
