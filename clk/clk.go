// Package clk models a SoC clock tree: a static graph of PLLs, root clock
// generators, gates and votes, held in one arena and serialised by one lock.
// Rate changes keep the voltage rails ahead of the frequency; enables walk up
// the parent chain so a clock never runs from a stopped source.
package clk

import (
	"fmt"
	"sync"

	"github.com/Jon-Bright/clkctl/vdd"
)

type Kind int

const (
	KindFixed Kind = iota
	KindExternal
	KindAlias
	KindPLL
	KindVotePLL
	KindRCG
	KindBranch
	KindVoteBranch
	KindCPU
)

var kindNames = [...]string{
	KindFixed:      "fixed",
	KindExternal:   "external",
	KindAlias:      "alias",
	KindPLL:        "pll",
	KindVotePLL:    "vote-pll",
	KindRCG:        "rcg",
	KindBranch:     "branch",
	KindVoteBranch: "vote-branch",
	KindCPU:        "cpu",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ID is a node's index in its tree's arena.
type ID int

const NoParent ID = -1

// Config describes one clock. The kind-specific field matching Kind must be
// set; the others are ignored.
type Config struct {
	Name   string
	Kind   Kind
	Parent string
	// Rate is the constant rate of fixed clocks and vote PLLs, and the
	// initial rate of external ones.
	Rate uint64
	// Rail and Fmax tie the clock's rate to a voltage rail. Fmax is indexed
	// by the rail's levels.
	Rail string
	Fmax []uint64
	// KeepParent leaves the parent enabled after this clock's last disable.
	KeepParent bool

	PLL     *PLLConfig
	VotePLL *VotePLLConfig
	RCG     *RCGConfig
	Branch  *BranchConfig
	CPU     *CPUConfig
}

type node struct {
	id         ID
	name       string
	kind       Kind
	parent     ID
	parentHeld bool
	keepParent bool
	depth      int
	rate       uint64

	rail  *vdd.Rail
	fmax  []uint64
	level vdd.Level

	pll    *pll
	vpll   *votePLL
	rcg    *rcg
	branch *branch
	cpu    *cpuClock
}

// CPUControl pins CPUs out of deep idle and synchronises with them.
type CPUControl interface {
	BlockIdle(cpus []int, latencyUS int) (release func(), err error)
	Rendezvous(cpus []int) error
}

type Options struct {
	Rails []*vdd.Rail
	CPU   CPUControl
}

// Tree owns every clock node and the hardware they control.
type Tree struct {
	mu     sync.Mutex
	nodes  []*node
	byName map[string]ID
	rails  map[string]*vdd.Rail
	cpu    CPUControl
}

// New builds a tree from cfgs. Parents may be listed in any order, but the
// graph must be acyclic.
func New(cfgs []Config, opts Options) (*Tree, error) {
	t := &Tree{
		byName: make(map[string]ID, len(cfgs)),
		rails:  make(map[string]*vdd.Rail, len(opts.Rails)),
		cpu:    opts.CPU,
	}
	for _, r := range opts.Rails {
		t.rails[r.Name()] = r
	}
	for i, c := range cfgs {
		if c.Name == "" {
			return nil, fmt.Errorf("clock %d has no name", i)
		}
		if _, ok := t.byName[c.Name]; ok {
			return nil, fmt.Errorf("clock %s defined twice", c.Name)
		}
		t.byName[c.Name] = ID(i)
		t.nodes = append(t.nodes, &node{id: ID(i), name: c.Name, kind: c.Kind, parent: NoParent})
	}
	for i, c := range cfgs {
		if err := t.setup(t.nodes[i], c); err != nil {
			return nil, fmt.Errorf("couldn't set up %s: %w", c.Name, err)
		}
	}
	for _, n := range t.nodes {
		if err := t.checkChain(n.id); err != nil {
			return nil, err
		}
		if n.rcg != nil {
			for _, f := range n.rcg.freqs {
				if err := t.checkChain(f.src); err != nil {
					return nil, err
				}
			}
		}
	}
	return t, nil
}

func (t *Tree) lookup(name string) (ID, error) {
	id, ok := t.byName[name]
	if !ok {
		return NoParent, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return id, nil
}

func (t *Tree) setup(n *node, c Config) error {
	if c.Parent != "" {
		p, err := t.lookup(c.Parent)
		if err != nil {
			return err
		}
		n.parent = p
	}
	n.keepParent = c.KeepParent
	if c.Rail != "" {
		r, ok := t.rails[c.Rail]
		if !ok {
			return fmt.Errorf("unknown rail %s", c.Rail)
		}
		if len(c.Fmax) > r.NumLevels() {
			return fmt.Errorf("fmax has %d levels, rail %s has %d", len(c.Fmax), c.Rail, r.NumLevels())
		}
		n.rail = r
		n.fmax = c.Fmax
	}
	switch c.Kind {
	case KindFixed, KindExternal:
		n.rate = c.Rate
	case KindAlias:
		if n.parent == NoParent {
			return fmt.Errorf("alias without parent")
		}
	case KindPLL:
		return t.setupPLL(n, c.PLL)
	case KindVotePLL:
		n.rate = c.Rate
		return t.setupVotePLL(n, c.VotePLL)
	case KindRCG:
		return t.setupRCG(n, c.RCG)
	case KindBranch, KindVoteBranch:
		return t.setupBranch(n, c.Branch)
	case KindCPU:
		if n.parent == NoParent {
			return fmt.Errorf("cpu clock without parent")
		}
		return t.setupCPU(n, c.CPU)
	default:
		return fmt.Errorf("unknown kind %v", c.Kind)
	}
	return nil
}

// checkChain makes sure walking up from id ends at a root.
func (t *Tree) checkChain(id ID) error {
	steps := 0
	for n := id; n != NoParent; n = t.nodes[n].parent {
		steps++
		if steps > len(t.nodes) {
			return fmt.Errorf("parent loop through %s", t.nodes[id].name)
		}
	}
	return nil
}

// Clock is a handle on one node of a Tree.
type Clock struct {
	t  *Tree
	id ID
}

func (t *Tree) Get(name string) (Clock, error) {
	id, err := t.lookup(name)
	if err != nil {
		return Clock{}, err
	}
	return Clock{t, id}, nil
}

// Names returns every clock name in definition order.
func (t *Tree) Names() []string {
	n := make([]string, len(t.nodes))
	for i, nd := range t.nodes {
		n[i] = nd.name
	}
	return n
}

func (c Clock) node() *node {
	return c.t.nodes[c.id]
}

func (c Clock) Name() string {
	return c.node().name
}

func (c Clock) Kind() Kind {
	return c.node().kind
}

func (c Clock) Enable() error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	return c.t.enable(c.id)
}

func (c Clock) Disable() error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	return c.t.disable(c.id)
}

func (c Clock) SetRate(rate uint64) error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	return c.t.setRate(c.id, rate)
}

// RoundRate reports the rate SetRate(rate) would produce. It has no side
// effects.
func (c Clock) RoundRate(rate uint64) (uint64, error) {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	return c.t.roundRate(c.id, rate)
}

func (c Clock) Rate() uint64 {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	return c.t.rateOf(c.id)
}

// EnableCount returns the clock's enable depth.
func (c Clock) EnableCount() int {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	return c.node().depth
}

func (c Clock) Parent() (Clock, bool) {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	p := c.node().parent
	if p == NoParent {
		return Clock{}, false
	}
	return Clock{c.t, p}, true
}

// Status is a snapshot of one clock for diagnostics.
type Status struct {
	Name    string
	Kind    Kind
	Parent  string
	Rate    uint64
	Enabled int
	Rail    string
	Level   vdd.Level
}

func (t *Tree) Status() []Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := make([]Status, len(t.nodes))
	for i, n := range t.nodes {
		s[i] = Status{
			Name:    n.name,
			Kind:    n.kind,
			Rate:    t.rateOf(n.id),
			Enabled: n.depth,
			Level:   n.level,
		}
		if n.parent != NoParent {
			s[i].Parent = t.nodes[n.parent].name
		}
		if n.rail != nil {
			s[i].Rail = n.rail.Name()
		}
	}
	return s
}

// Rails returns the rails the tree was built with.
func (t *Tree) Rails() []*vdd.Rail {
	r := make([]*vdd.Rail, 0, len(t.rails))
	for _, rl := range t.rails {
		r = append(r, rl)
	}
	return r
}
