package clk

import (
	"fmt"

	"github.com/golang/glog"
)

// enable raises id's enable depth, first enabling every ancestor that isn't
// already held on its behalf. The walk is iterative: it collects the chain of
// nodes that need work, then enables them from the top down.
func (t *Tree) enable(id ID) error {
	chain := []ID{id}
	for n := t.nodes[id]; n.depth == 0 && !n.parentHeld && n.parent != NoParent; n = t.nodes[n.parent] {
		chain = append(chain, n.parent)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		n := t.nodes[chain[i]]
		if n.depth == 0 {
			if err := t.hwEnable(n); err != nil {
				t.unwind(chain[i+1:])
				return fmt.Errorf("couldn't enable %s: %w", n.name, err)
			}
			glog.V(2).Infof("clk %s: enabled", n.name)
		}
		n.depth++
		if i < len(chain)-1 {
			n.parentHeld = true
		}
	}
	return nil
}

// unwind undoes a failed enable walk. chain holds the nodes that were already
// enabled above the failure, child first; all but the last were marked as
// holding their parent.
func (t *Tree) unwind(chain []ID) {
	for i, id := range chain {
		n := t.nodes[id]
		if i < len(chain)-1 {
			n.parentHeld = false
		}
		n.depth--
		if n.depth == 0 {
			t.hwDisable(n)
		}
	}
}

// disable drops id's enable depth. When it reaches zero the node's hardware
// is turned off and, unless the node keeps its parent, the walk continues to
// the parent it was holding.
func (t *Tree) disable(id ID) error {
	n := t.nodes[id]
	if n.depth == 0 {
		return fmt.Errorf("%w: %s", ErrNotEnabled, n.name)
	}
	for {
		n.depth--
		if n.depth > 0 {
			return nil
		}
		t.hwDisable(n)
		glog.V(2).Infof("clk %s: disabled", n.name)
		if n.keepParent || !n.parentHeld {
			return nil
		}
		n.parentHeld = false
		n = t.nodes[n.parent]
	}
}

func (t *Tree) hwEnable(n *node) error {
	switch n.kind {
	case KindPLL:
		return t.pllEnable(n)
	case KindVotePLL:
		return t.votePLLEnable(n)
	case KindBranch, KindVoteBranch:
		return t.branchEnable(n)
	}
	return nil
}

func (t *Tree) hwDisable(n *node) {
	switch n.kind {
	case KindPLL:
		t.pllDisable(n)
	case KindVotePLL:
		t.votePLLDisable(n)
	case KindBranch, KindVoteBranch:
		t.branchDisable(n)
	}
}
