package clk

import (
	"fmt"

	"github.com/golang/glog"
)

const (
	cbcrEnable = 1 << 0
	cbcrOff    = 1 << 31

	branchHaltPolls = 200
)

// BranchConfig describes a gate. Plain branches own CBCR's enable bit. Vote
// branches turn on through a shared Vote and only read CBCR for status.
// Branches with HasSibling share one enable between them: with a Gate, the
// first sibling on sets it and the last one off clears it; without one they
// rely on their parent's gate and never touch hardware themselves.
type BranchConfig struct {
	Regs       Regs
	CBCR       uint32
	HasSibling bool
	// NoHalt skips waiting for CBCR to report the clock running.
	NoHalt bool
	Vote   *Vote
	// Gate is the enable shared by a group of siblings, from NewGate.
	Gate *Vote
	// Client is this clock's bit in Vote or Gate. Zero means 1.
	Client uint32
}

// NewGate returns the enable bit of cbcr as a gate siblings can share.
func NewGate(r Regs, cbcr uint32) *Vote {
	return NewVote(r, cbcr, cbcrEnable)
}

type branch struct {
	regs    Regs
	cbcr    uint32
	sibling bool
	halt    bool
	vote    *Vote
	gate    *Vote
	client  uint32
}

func (t *Tree) setupBranch(n *node, c *BranchConfig) error {
	if c == nil {
		c = &BranchConfig{HasSibling: true}
	}
	b := &branch{
		regs:    c.Regs,
		cbcr:    c.CBCR,
		sibling: c.HasSibling,
		halt:    !c.NoHalt && c.Regs != nil,
		vote:    c.Vote,
		client:  c.Client,
	}
	switch {
	case n.kind == KindVoteBranch:
		if b.vote == nil {
			return fmt.Errorf("vote branch without vote")
		}
		if b.client == 0 {
			b.client = 1
		}
		b.sibling = false
	case b.sibling && c.Gate != nil:
		b.gate = c.Gate
		b.regs, b.cbcr = c.Gate.Regs, c.Gate.Reg
		b.halt = !c.NoHalt
		if b.client == 0 {
			b.client = 1
		}
	case !b.sibling && b.regs == nil:
		return fmt.Errorf("branch without registers")
	}
	if b.sibling && b.gate == nil {
		b.halt = false
	}
	n.branch = b
	return nil
}

func (t *Tree) branchEnable(n *node) error {
	b := n.branch
	switch {
	case b.gate != nil:
		b.gate.add(b.client)
	case b.sibling:
		return nil
	case b.vote != nil:
		b.vote.add(b.client)
	default:
		setBits(b.regs, b.cbcr, cbcrEnable)
		b.regs.Barrier()
	}
	if !b.halt {
		return nil
	}
	err := pollUntil(b.regs, n.name, "halt", ErrLockTimeout, branchHaltPolls, 1, func() bool {
		return b.regs.Read32(b.cbcr)&cbcrOff == 0
	})
	if err != nil {
		glog.Warningf("clk %s: status stuck off after enable", n.name)
	}
	return nil
}

func (t *Tree) branchDisable(n *node) {
	b := n.branch
	switch {
	case b.gate != nil:
		b.gate.remove(b.client)
	case b.sibling:
	case b.vote != nil:
		b.vote.remove(b.client)
	default:
		clearBits(b.regs, b.cbcr, cbcrEnable)
		b.regs.Barrier()
	}
}

func (t *Tree) handoffBranch(n *node) bool {
	b := n.branch
	switch {
	case b.gate != nil:
		return b.gate.adopt(b.client)
	case b.vote != nil:
		return b.vote.adopt(b.client)
	case b.regs == nil:
		return false
	}
	return b.regs.Read32(b.cbcr)&cbcrEnable != 0
}
