package clk

import (
	"fmt"

	"github.com/golang/glog"
)

// Root clock generator registers, relative to CMD_RCGR.
const (
	rcgCfg = 0x4
	rcgM   = 0x8
	rcgN   = 0xC
	rcgD   = 0x10

	cmdUpdate  = 1 << 0
	cmdRootOff = 1 << 31

	rcgUpdatePolls = 500
)

var (
	cfgDivMask  = BM(4, 0)
	cfgSrcMask  = BM(10, 8)
	cfgModeMask = BM(13, 12)
	cfgDualEdge = BVAL(13, 12, 2)
)

// RCGFreq is one frequency-plan entry. Div2 is twice the divider, so
// half-integer dividers can be expressed; zero bypasses the divider.
type RCGFreq struct {
	Rate uint64
	Src  string
	Sel  uint32
	Div2 uint32
	M, N uint32
	// SrcRate, when set, is the rate Src has to run at for this entry.
	SrcRate uint64
}

type RCGConfig struct {
	Regs Regs
	CMD  uint32
	// MND generators have M/N/D counters after the divider.
	MND bool
	// Freqs must be sorted by rate.
	Freqs []RCGFreq
	// SafeRate names the entry to park on while the current source is
	// being retuned.
	SafeRate uint64
	// Pixel generators have no table. They run at their parent's rate
	// divided by Ratio, and their parent is retuned to change it.
	Pixel bool
	Ratio uint64
}

type rcgFreq struct {
	RCGFreq
	src ID
	cfg uint32
}

type rcg struct {
	regs  Regs
	cmd   uint32
	mnd   bool
	pixel bool
	ratio uint64
	freqs []rcgFreq
	safe  int
	cur   int
}

func (t *Tree) setupRCG(n *node, c *RCGConfig) error {
	if c == nil || c.Regs == nil {
		return fmt.Errorf("rcg without registers")
	}
	rc := &rcg{regs: c.Regs, cmd: c.CMD, mnd: c.MND, pixel: c.Pixel, ratio: c.Ratio, safe: -1, cur: -1}
	n.rcg = rc
	if rc.pixel {
		if n.parent == NoParent {
			return fmt.Errorf("pixel rcg without parent")
		}
		if rc.ratio == 0 {
			rc.ratio = 1
		}
		return nil
	}
	for i, f := range c.Freqs {
		if i > 0 && f.Rate <= c.Freqs[i-1].Rate {
			return fmt.Errorf("frequency table not sorted at %d Hz", f.Rate)
		}
		src, err := t.lookup(f.Src)
		if err != nil {
			return err
		}
		e := rcgFreq{RCGFreq: f, src: src}
		if f.Div2 != 0 {
			e.cfg = BVAL(4, 0, f.Div2-1)
		}
		e.cfg |= BVAL(10, 8, f.Sel)
		if rc.mnd && f.N != 0 {
			e.cfg |= cfgDualEdge
		}
		rc.freqs = append(rc.freqs, e)
		if f.Rate == c.SafeRate {
			rc.safe = i
		}
	}
	if c.SafeRate != 0 && rc.safe < 0 {
		return fmt.Errorf("safe rate %d Hz not in table", c.SafeRate)
	}
	return nil
}

func (rc *rcg) round(rate uint64) (int, error) {
	if len(rc.freqs) == 0 {
		return -1, ErrRateUnsupported
	}
	for i := range rc.freqs {
		if rc.freqs[i].Rate >= rate {
			return i, nil
		}
	}
	return len(rc.freqs) - 1, nil
}

func nVal(f *rcgFreq) uint32 {
	if f.N == 0 {
		return 0
	}
	return ^(f.N - f.M)
}

func (rc *rcg) write(f *rcgFreq) {
	r := rc.regs
	if !rc.mnd {
		rmw(r, rc.cmd+rcgCfg, cfgDivMask|cfgSrcMask, f.cfg)
		return
	}
	r.Write32(rc.cmd+rcgM, f.M)
	r.Write32(rc.cmd+rcgN, nVal(f))
	r.Write32(rc.cmd+rcgD, ^f.N)
	rmw(r, rc.cmd+rcgCfg, cfgDivMask|cfgSrcMask|cfgModeMask, f.cfg)
}

// update latches the new configuration and waits for the hardware to
// acknowledge it by clearing the bit.
func (rc *rcg) update(name string) error {
	r := rc.regs
	setBits(r, rc.cmd, cmdUpdate)
	return pollUntil(r, name, "update", ErrUpdateTimeout, rcgUpdatePolls, 1, func() bool {
		return r.Read32(rc.cmd)&cmdUpdate == 0
	})
}

// rcgSetRate moves n to entry i. An entry that needs its source at another
// rate first parks n on the safe entry, if n runs from that source, then
// retunes the source.
func (t *Tree) rcgSetRate(n *node, i int) error {
	rc := n.rcg
	f := &rc.freqs[i]
	if f.SrcRate != 0 && t.rateOf(f.src) != f.SrcRate {
		if rc.safe >= 0 && rc.cur >= 0 && rc.cur != rc.safe && n.parent == f.src {
			if err := t.rcgSwitch(n, rc.safe); err != nil {
				return err
			}
		}
		if err := t.setRate(f.src, f.SrcRate); err != nil {
			return fmt.Errorf("couldn't retune %s for %s: %w", t.nodes[f.src].name, n.name, err)
		}
	}
	return t.rcgSwitch(n, i)
}

// rcgSwitch programs entry i. A new source is running before the generator
// selects it, and the old one is let go only once the switch has latched.
func (t *Tree) rcgSwitch(n *node, i int) error {
	rc := n.rcg
	f := &rc.freqs[i]
	old := n.parent
	switching := old != f.src
	if switching {
		if err := t.enable(f.src); err != nil {
			return err
		}
	}
	rc.write(f)
	if err := rc.update(n.name); err != nil {
		if switching {
			t.release(f.src)
		}
		return err
	}
	if switching {
		n.parent = f.src
		if n.parentHeld {
			t.release(old)
		} else {
			t.release(f.src)
		}
	}
	rc.cur = i
	n.rate = f.Rate
	glog.V(2).Infof("clk %s: %d Hz from %s", n.name, f.Rate, t.nodes[f.src].name)
	return nil
}

func (t *Tree) release(id ID) {
	if err := t.disable(id); err != nil {
		glog.Warningf("clk %s: %v", t.nodes[id].name, err)
	}
}

// handoffRCG matches the generator's configuration against its table and
// adopts the matching entry's source as its parent.
func (t *Tree) handoffRCG(n *node) bool {
	rc := n.rcg
	r := rc.regs
	on := r.Read32(rc.cmd)&cmdRootOff == 0
	if rc.pixel {
		return on
	}
	cfg := r.Read32(rc.cmd + rcgCfg)
	rc.cur = -1
	for i := range rc.freqs {
		f := &rc.freqs[i]
		if f.cfg&(cfgDivMask|cfgSrcMask) != cfg&(cfgDivMask|cfgSrcMask) {
			continue
		}
		if rc.mnd && cfg&cfgModeMask != 0 {
			if r.Read32(rc.cmd+rcgM) != f.M || r.Read32(rc.cmd+rcgN) != nVal(f) {
				continue
			}
		} else if rc.mnd && f.N != 0 {
			continue
		}
		if f.SrcRate != 0 && t.rateOf(f.src) != f.SrcRate {
			continue
		}
		rc.cur = i
		break
	}
	if rc.cur < 0 {
		glog.Warningf("clk %s: configuration %#x matches no table entry", n.name, cfg)
		n.rate = 0
		return on
	}
	n.parent = rc.freqs[rc.cur].src
	n.rate = rc.freqs[rc.cur].Rate
	return on
}
