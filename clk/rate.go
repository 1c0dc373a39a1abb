package clk

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/Jon-Bright/clkctl/vdd"
)

// hop is one node on the way from a clock to the node that owns its rate.
// scale is that node's rate divided by the requesting clock's rate.
type hop struct {
	id    ID
	scale uint64
}

// ratePath follows pass-through clocks up to the node that actually
// generates the rate. The owner is the last hop.
func (t *Tree) ratePath(id ID) ([]hop, error) {
	var path []hop
	scale := uint64(1)
	for {
		n := t.nodes[id]
		path = append(path, hop{id, scale})
		switch n.kind {
		case KindBranch:
			if n.branch.sibling {
				return nil, fmt.Errorf("%w: %s has siblings", ErrNotPermitted, n.name)
			}
		case KindVoteBranch:
			return nil, fmt.Errorf("%w: %s is a vote", ErrNotPermitted, n.name)
		case KindRCG:
			if !n.rcg.pixel {
				return path, nil
			}
			scale *= n.rcg.ratio
		case KindAlias, KindCPU:
		default:
			return path, nil
		}
		if n.parent == NoParent {
			return nil, fmt.Errorf("%w: %s has no source", ErrRateUnsupported, n.name)
		}
		id = n.parent
	}
}

func isPassThrough(n *node) bool {
	switch n.kind {
	case KindAlias, KindBranch, KindVoteBranch, KindCPU:
		return true
	case KindRCG:
		return n.rcg.pixel
	}
	return false
}

func (t *Tree) rateOf(id ID) uint64 {
	div := uint64(1)
	for id != NoParent {
		n := t.nodes[id]
		if !isPassThrough(n) {
			return n.rate / div
		}
		if n.kind == KindRCG {
			div *= n.rcg.ratio
		}
		id = n.parent
	}
	return 0
}

func (t *Tree) roundRate(id ID, rate uint64) (uint64, error) {
	path, err := t.ratePath(id)
	if err != nil {
		return 0, err
	}
	own := path[len(path)-1]
	r, err := t.roundOwn(t.nodes[own.id], rate*own.scale)
	if err != nil {
		return 0, err
	}
	return r / own.scale, nil
}

func (t *Tree) roundOwn(n *node, rate uint64) (uint64, error) {
	switch n.kind {
	case KindFixed, KindVotePLL:
		return n.rate, nil
	case KindExternal:
		return rate, nil
	case KindPLL:
		i, err := n.pll.round(rate)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", n.name, err)
		}
		return n.pll.freqs[i].Rate, nil
	case KindRCG:
		i, err := n.rcg.round(rate)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", n.name, err)
		}
		return n.rcg.freqs[i].Rate, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrRateUnsupported, n.name)
}

// resolve picks the rate n will be programmed to for a request. PLLs only
// accept rates straight out of their table.
func (t *Tree) resolve(n *node, rate uint64) (uint64, error) {
	switch n.kind {
	case KindFixed, KindVotePLL:
		if rate != n.rate {
			return 0, fmt.Errorf("%w: %s runs at %d Hz only", ErrRateUnsupported, n.name, n.rate)
		}
		return rate, nil
	case KindExternal:
		if rate == 0 {
			return 0, fmt.Errorf("%w: %s can't run at 0 Hz", ErrRateUnsupported, n.name)
		}
		return rate, nil
	case KindPLL:
		if _, ok := n.pll.lookup(rate); !ok {
			return 0, fmt.Errorf("%w: %s has no %d Hz entry", ErrUnsupportedFrequency, n.name, rate)
		}
		return rate, nil
	}
	return t.roundOwn(n, rate)
}

// current reports whether n's hardware already runs at rate.
func (t *Tree) current(n *node, rate uint64) bool {
	switch n.kind {
	case KindPLL:
		return n.pll.cur >= 0 && n.pll.freqs[n.pll.cur].Rate == rate
	case KindRCG:
		return n.rcg.cur >= 0 && n.rcg.freqs[n.rcg.cur].Rate == rate
	}
	return n.rate == rate
}

// setRate moves id to the rounded rate. Every rail on the path is raised
// before the hardware is touched and lowered only after it has been
// reprogrammed. A failed reprogram leaves the raised levels in place.
func (t *Tree) setRate(id ID, rate uint64) error {
	path, err := t.ratePath(id)
	if err != nil {
		return err
	}
	own := path[len(path)-1]
	o := t.nodes[own.id]
	target, err := t.resolve(o, rate*own.scale)
	if err != nil {
		return err
	}
	base := target / own.scale

	levels := make([]vdd.Level, len(path))
	for i, h := range path {
		n := t.nodes[h.id]
		if n.rail == nil {
			continue
		}
		if levels[i], err = vdd.Required(n.fmax, base*h.scale); err != nil {
			return fmt.Errorf("%s: %w", n.name, err)
		}
	}
	for i, h := range path {
		n := t.nodes[h.id]
		if n.rail == nil || levels[i] <= n.level {
			continue
		}
		if err := n.rail.Vote(n.name, levels[i]); err != nil {
			return fmt.Errorf("couldn't raise %s for %s: %w", n.rail.Name(), n.name, err)
		}
		n.level = levels[i]
	}

	if !t.current(o, target) {
		release, err := t.quiesce(path)
		if err != nil {
			return err
		}
		err = t.program(o, target)
		release()
		if err != nil {
			return err
		}
		glog.V(1).Infof("clk %s: rate %d", o.name, target)
	}

	for i, h := range path {
		n := t.nodes[h.id]
		if n.rail == nil || levels[i] >= n.level {
			continue
		}
		// The rail keeps the lower vote even when the drop fails, so the
		// node follows it; the next raise must vote again.
		if err := n.rail.Vote(n.name, levels[i]); err != nil {
			glog.Warningf("couldn't lower %s for %s: %v", n.rail.Name(), n.name, err)
		}
		n.level = levels[i]
	}
	return nil
}

func (t *Tree) program(n *node, rate uint64) error {
	switch n.kind {
	case KindPLL:
		i, _ := n.pll.lookup(rate)
		return t.pllSetRate(n, i)
	case KindRCG:
		i, err := n.rcg.round(rate)
		if err != nil {
			return err
		}
		return t.rcgSetRate(n, i)
	case KindExternal:
		n.rate = rate
	}
	return nil
}
