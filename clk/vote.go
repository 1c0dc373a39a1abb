package clk

import (
	"fmt"
)

const votePLLPolls = 200

// Vote is a hardware enable-vote bit shared by several logical clocks. The
// bit is set while at least one client holds it. Clients are identified by
// distinct bits of a mask; votes are only changed with the tree locked.
type Vote struct {
	Regs    Regs
	Reg     uint32
	Mask    uint32
	clients uint32
}

func NewVote(r Regs, reg, mask uint32) *Vote {
	return &Vote{Regs: r, Reg: reg, Mask: mask}
}

// add records client's vote and reports whether it turned the bit on.
func (v *Vote) add(client uint32) bool {
	was := v.clients
	v.clients |= client
	if was != 0 || v.clients == 0 {
		return false
	}
	setBits(v.Regs, v.Reg, v.Mask)
	v.Regs.Barrier()
	return true
}

// remove drops client's vote and reports whether that turned the bit off.
func (v *Vote) remove(client uint32) bool {
	was := v.clients
	v.clients &^= client
	if was == 0 || v.clients != 0 {
		return false
	}
	clearBits(v.Regs, v.Reg, v.Mask)
	v.Regs.Barrier()
	return true
}

// adopt credits a vote found set at boot to client. Only the first client
// to ask gets it; the hardware can't say who voted.
func (v *Vote) adopt(client uint32) bool {
	if v.clients != 0 || v.Regs.Read32(v.Reg)&v.Mask == 0 {
		return false
	}
	v.clients = client
	return true
}

// claim records client's vote without writing the register and reports
// whether the bit is set in hardware.
func (v *Vote) claim(client uint32) bool {
	v.clients |= client
	return v.Regs.Read32(v.Reg)&v.Mask != 0
}

type VotePLLConfig struct {
	Vote *Vote
	// Client is this clock's bit in Vote. Zero means 1.
	Client uint32
	// Status is the register reporting the PLL active; it lives in the same
	// block as the vote.
	Status     uint32
	StatusMask uint32
}

type votePLL struct {
	vote   *Vote
	client uint32
	status uint32
	mask   uint32
}

func (t *Tree) setupVotePLL(n *node, c *VotePLLConfig) error {
	if c == nil || c.Vote == nil {
		return fmt.Errorf("vote pll without vote")
	}
	v := &votePLL{vote: c.Vote, client: c.Client, status: c.Status, mask: c.StatusMask}
	if v.client == 0 {
		v.client = 1
	}
	n.vpll = v
	return nil
}

func (t *Tree) votePLLEnable(n *node) error {
	v := n.vpll
	if !v.vote.add(v.client) || v.mask == 0 {
		return nil
	}
	r := v.vote.Regs
	err := pollUntil(r, n.name, "vote lock", ErrLockTimeout, votePLLPolls, 1, func() bool {
		return r.Read32(v.status)&v.mask != 0
	})
	if err != nil {
		v.vote.remove(v.client)
	}
	return err
}

func (t *Tree) votePLLDisable(n *node) {
	n.vpll.vote.remove(n.vpll.client)
}
