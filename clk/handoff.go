package clk

import (
	"github.com/golang/glog"

	"github.com/Jon-Bright/clkctl/vdd"
)

// Handoff adopts the state the boot loader left behind. Every clock's
// hardware is read back first; clocks found running are then enabled from
// the top of the tree down without touching their registers again, and every
// clock with a known rate registers its voltage requirement.
func (t *Tree) Handoff() {
	t.mu.Lock()
	defer t.mu.Unlock()

	on := make([]bool, len(t.nodes))
	for _, n := range t.nodes {
		if n.kind != KindRCG {
			on[n.id] = t.handoffRead(n)
		}
	}
	for _, n := range t.nodes {
		if n.kind == KindRCG {
			on[n.id] = t.handoffRCG(n)
		}
	}

	done := make([]bool, len(t.nodes))
	for _, n := range t.nodes {
		var chain []ID
		for id := n.id; id != NoParent && !done[id]; id = t.nodes[id].parent {
			chain = append(chain, id)
		}
		for i := len(chain) - 1; i >= 0; i-- {
			t.adopt(t.nodes[chain[i]], on[chain[i]])
			done[chain[i]] = true
		}
	}
}

func (t *Tree) handoffRead(n *node) bool {
	switch n.kind {
	case KindPLL:
		return t.handoffPLL(n)
	case KindVotePLL:
		return n.vpll.vote.adopt(n.vpll.client)
	case KindBranch, KindVoteBranch:
		return t.handoffBranch(n)
	}
	return false
}

func (t *Tree) adopt(n *node, on bool) {
	rate := t.rateOf(n.id)
	if on {
		if n.parent != NoParent {
			t.hold(n.parent, n.name)
			n.parentHeld = true
		}
		n.depth = 1
		glog.Infof("clk %s: handed off enabled at %d Hz", n.name, rate)
	}
	if n.rail == nil || rate == 0 {
		return
	}
	l, err := vdd.Required(n.fmax, rate)
	if err != nil {
		glog.Warningf("clk %s: %v", n.name, err)
		return
	}
	if err := n.rail.Vote(n.name, l); err != nil {
		glog.Errorf("clk %s: couldn't vote %s level %d: %v", n.name, n.rail.Name(), l, err)
		return
	}
	n.level = l
}

// hold counts an enable on id and the ancestors it brings up for child, a
// clock found running. Registers are only read: an ancestor found off is
// logged and counted as on.
func (t *Tree) hold(id ID, child string) {
	for n := t.nodes[id]; ; n = t.nodes[n.parent] {
		n.depth++
		if n.depth > 1 {
			return
		}
		if !t.claim(n) {
			glog.Warningf("clk %s: off under running %s, counted as on", n.name, child)
		}
		if n.parent == NoParent {
			return
		}
		n.parentHeld = true
	}
}

// claim books n's vote, if it has one, without writing it. It reports
// false when n's hardware is off.
func (t *Tree) claim(n *node) bool {
	switch n.kind {
	case KindPLL:
		return false
	case KindVotePLL:
		return n.vpll.vote.claim(n.vpll.client)
	case KindBranch, KindVoteBranch:
		b := n.branch
		switch {
		case b.gate != nil:
			return b.gate.claim(b.client)
		case b.vote != nil:
			return b.vote.claim(b.client)
		}
		return b.sibling
	}
	return true
}
