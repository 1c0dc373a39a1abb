package clk

import (
	"fmt"
	"math/bits"

	"github.com/golang/glog"
)

// Mode register bits shared by the SR and SR2 PLLs.
const (
	pllOutCtrl  = 1 << 0
	pllBypassNL = 1 << 1
	pllResetN   = 1 << 2
	pllModeMask = pllOutCtrl | pllBypassNL | pllResetN
	pllUpdate   = 1 << 22
)

const (
	pllLockPolls = 200
	pllSlewPolls = 200
)

// PLLFreq is one programmable PLL rate: rate = ref * (L + M/N). VCO, PreDiv
// and PostDiv are field values for the USER_CTL register.
type PLLFreq struct {
	Rate    uint64
	L, M, N uint32
	VCO     uint32
	PreDiv  uint32
	PostDiv uint32
}

// PLLMasks locate the fields of a PLL's USER_CTL register.
type PLLMasks struct {
	VCO        uint32
	PreDiv     uint32
	PostDiv    uint32
	MNEn       uint32
	MainOutput uint32
}

// SPM is a power manager's force-event control. The event has to be cleared
// while the PLL runs and set again once it is off.
type SPM struct {
	Regs   Regs
	Offset uint32
	Event  uint
}

type PLLConfig struct {
	Regs Regs
	// Register offsets within Regs.
	Mode, L, M, N, UserCtl, ConfigCtl, Status uint32
	// ConfigCtlVal is written to ConfigCtl on every reprogram when non-zero.
	ConfigCtlVal uint32
	LockMask     uint32
	Masks        PLLMasks
	// Freqs must be sorted by rate.
	Freqs []PLLFreq
	SPM   *SPM
	// Slew PLLs retune glitch-free by stepping M while L and N are unchanged.
	Slew bool
}

type pll struct {
	PLLConfig
	freqs []PLLFreq
	cur   int
}

func (t *Tree) setupPLL(n *node, c *PLLConfig) error {
	if c == nil || c.Regs == nil {
		return fmt.Errorf("pll without registers")
	}
	for i := 1; i < len(c.Freqs); i++ {
		if c.Freqs[i].Rate <= c.Freqs[i-1].Rate {
			return fmt.Errorf("pll table not sorted at %d Hz", c.Freqs[i].Rate)
		}
	}
	p := &pll{PLLConfig: *c, freqs: c.Freqs, cur: -1}
	if p.LockMask == 0 {
		p.LockMask = BIT(16)
	}
	n.pll = p
	return nil
}

func (p *pll) lookup(rate uint64) (int, bool) {
	for i, f := range p.freqs {
		if f.Rate == rate {
			return i, true
		}
	}
	return -1, false
}

func (p *pll) round(rate uint64) (int, error) {
	if len(p.freqs) == 0 {
		return -1, ErrRateUnsupported
	}
	for i, f := range p.freqs {
		if f.Rate >= rate {
			return i, nil
		}
	}
	return len(p.freqs) - 1, nil
}

func field(mask, val uint32) uint32 {
	return val << uint(bits.TrailingZeros32(mask)) & mask
}

func (p *pll) spmEvent(set bool) {
	s := p.SPM
	if s == nil {
		return
	}
	if set {
		setBits(s.Regs, s.Offset, BIT(s.Event))
		s.Regs.Barrier()
		setBits(s.Regs, s.Offset+4, BIT(s.Event))
		s.Regs.Barrier()
		return
	}
	clearBits(s.Regs, s.Offset+4, BIT(s.Event))
	s.Regs.Barrier()
	clearBits(s.Regs, s.Offset, BIT(s.Event))
	s.Regs.Barrier()
}

// program writes f's dividers. The PLL must be off.
func (p *pll) program(f *PLLFreq) {
	r := p.Regs
	r.Write32(p.L, f.L)
	r.Write32(p.M, f.M)
	r.Write32(p.N, f.N)
	m := p.Masks
	v := r.Read32(p.UserCtl)
	v &^= m.VCO | m.PreDiv | m.PostDiv | m.MNEn
	v |= field(m.VCO, f.VCO) | field(m.PreDiv, f.PreDiv) | field(m.PostDiv, f.PostDiv)
	if f.M != 0 {
		v |= m.MNEn
	}
	v |= m.MainOutput
	r.Write32(p.UserCtl, v)
	if p.ConfigCtlVal != 0 {
		r.Write32(p.ConfigCtl, p.ConfigCtlVal)
	}
}

// start takes the PLL out of bypass, releases reset, turns the output on
// and waits for lock.
func (p *pll) start(name string) error {
	r := p.Regs
	mode := r.Read32(p.Mode) &^ pllModeMask
	mode |= pllBypassNL
	r.Write32(p.Mode, mode)
	r.Barrier()
	r.Delay(2)
	mode |= pllResetN
	r.Write32(p.Mode, mode)
	r.Delay(50)
	mode |= pllOutCtrl
	r.Write32(p.Mode, mode)
	r.Barrier()
	return pollUntil(r, name, "lock", ErrLockTimeout, pllLockPolls, 1, func() bool {
		return r.Read32(p.Status)&p.LockMask != 0
	})
}

func (p *pll) stop() {
	r := p.Regs
	mode := r.Read32(p.Mode)
	r.Write32(p.Mode, mode&^pllOutCtrl)
	r.Write32(p.Mode, mode&^pllModeMask)
	r.Barrier()
}

func (t *Tree) pllEnable(n *node) error {
	p := n.pll
	p.spmEvent(false)
	if err := p.start(n.name); err != nil {
		p.stop()
		p.spmEvent(true)
		return err
	}
	return nil
}

func (t *Tree) pllDisable(n *node) {
	n.pll.stop()
	n.pll.spmEvent(true)
}

// canSlew reports whether the PLL can go from a to b by changing M alone.
func canSlew(a, b *PLLFreq) bool {
	return a.L == b.L && a.N == b.N && a.VCO == b.VCO && a.PreDiv == b.PreDiv && a.PostDiv == b.PostDiv
}

func (t *Tree) pllSetRate(n *node, i int) error {
	p := n.pll
	f := &p.freqs[i]
	if p.Slew && n.depth > 0 && p.cur >= 0 && canSlew(&p.freqs[p.cur], f) {
		return t.pllSlew(n, i)
	}
	if n.depth == 0 {
		p.program(f)
		p.cur = i
		n.rate = f.Rate
		return nil
	}
	r := p.Regs
	r.Write32(p.Mode, r.Read32(p.Mode)&^pllModeMask)
	r.Barrier()
	p.program(f)
	if err := p.start(n.name); err != nil {
		return err
	}
	p.cur = i
	n.rate = f.Rate
	return nil
}

// pllSlew walks M through every table entry between the current rate and
// entry i that shares the current L and N, waiting for each step to settle.
// On a timeout the PLL is left at the last step that completed.
func (t *Tree) pllSlew(n *node, i int) error {
	p := n.pll
	r := p.Regs
	step := 1
	if i < p.cur {
		step = -1
	}
	from := p.freqs[p.cur]
	for j := p.cur + step; ; j += step {
		f := &p.freqs[j]
		if j != i && !canSlew(&from, f) {
			continue
		}
		r.Write32(p.M, f.M)
		if f.M != 0 {
			setBits(r, p.UserCtl, p.Masks.MNEn)
		}
		setBits(r, p.Mode, pllUpdate)
		r.Barrier()
		err := pollUntil(r, n.name, "slew", ErrSlewTimeout, pllSlewPolls, 1, func() bool {
			return r.Read32(p.Mode)&pllUpdate == 0
		})
		if err != nil {
			return err
		}
		glog.V(2).Infof("clk %s: slewed to %d", n.name, f.Rate)
		p.cur = j
		n.rate = f.Rate
		if j == i {
			return nil
		}
	}
}

// handoffPLL reads back what the boot loader left in the PLL.
func (t *Tree) handoffPLL(n *node) bool {
	p := n.pll
	r := p.Regs
	l, m, nv := r.Read32(p.L), r.Read32(p.M), r.Read32(p.N)
	p.cur = -1
	for i, f := range p.freqs {
		if f.L == l && f.M == m && (m == 0 || f.N == nv) {
			p.cur = i
			break
		}
	}
	if p.cur >= 0 {
		n.rate = p.freqs[p.cur].Rate
	} else {
		ref := t.rateOf(n.parent)
		n.rate = ref * uint64(l)
		if m != 0 && nv != 0 {
			n.rate += ref * uint64(m) / uint64(nv)
		}
		glog.Warningf("clk %s: L=%d M=%d N=%d matches no table entry, running at %d Hz", n.name, l, m, nv, n.rate)
	}
	return r.Read32(p.Mode)&pllModeMask == pllModeMask
}
