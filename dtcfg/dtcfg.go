// Package dtcfg pulls clock controller configuration out of a flattened
// device tree: register regions, CPU voltage plans, mux sources and thermal
// thresholds.
package dtcfg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/platinasystems/fdt"

	"github.com/Jon-Bright/clkctl/soc"
	"github.com/Jon-Bright/clkctl/thermal"
)

const FDT_FILE = "/sys/firmware/fdt"

const (
	fdtMagic      = 0xd00dfeed
	fdtHeaderSize = 40
)

var ErrNoProperty = errors.New("no such property")

type DT struct {
	t *fdt.Tree
}

func Load(file string) (*DT, error) {
	if file == "" {
		file = FDT_FILE
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("couldn't read device tree: %v", err)
	}
	return Parse(b)
}

// Parse checks the blob's header and builds the tree.
func Parse(b []byte) (*DT, error) {
	if len(b) < fdtHeaderSize {
		return nil, fmt.Errorf("device tree too short: %d bytes", len(b))
	}
	if m := binary.BigEndian.Uint32(b); m != fdtMagic {
		return nil, fmt.Errorf("bad device tree magic %#x", m)
	}
	if size := binary.BigEndian.Uint32(b[4:]); int(size) > len(b) {
		return nil, fmt.Errorf("device tree claims %d bytes, have %d", size, len(b))
	}
	t := &fdt.Tree{Debug: false, IsLittleEndian: false}
	t.Parse(b)
	if t.RootNode == nil {
		return nil, fmt.Errorf("device tree has no root node")
	}
	return &DT{t}, nil
}

func (d *DT) Root() *Node {
	return &Node{d.t.RootNode}
}

// Compatible returns the root node's compatible list.
func (d *DT) Compatible() []string {
	return d.Root().Strings("compatible")
}

// Find returns the first node, in name order, compatible with compat.
func (d *DT) Find(compat string) (*Node, bool) {
	var found *fdt.Node
	walk(d.t.RootNode, func(n *fdt.Node) bool {
		for _, c := range strings.Split(strings.TrimRight(string(n.Properties["compatible"]), "\x00"), "\x00") {
			if c == compat {
				found = n
				return false
			}
		}
		return true
	})
	if found == nil {
		return nil, false
	}
	return &Node{found}, true
}

// walk visits n and its descendants depth first, children in name order,
// until fn returns false.
func walk(n *fdt.Node, fn func(n *fdt.Node) bool) bool {
	if !fn(n) {
		return false
	}
	names := make([]string, 0, len(n.Children))
	byName := make(map[string]*fdt.Node, len(n.Children))
	for _, c := range n.Children {
		names = append(names, c.Name)
		byName[c.Name] = c
	}
	sort.Strings(names)
	for _, name := range names {
		if !walk(byName[name], fn) {
			return false
		}
	}
	return true
}

type Node struct {
	n *fdt.Node
}

func (n *Node) Name() string {
	return n.n.Name
}

func (n *Node) Has(prop string) bool {
	_, ok := n.n.Properties[prop]
	return ok
}

// Strings decodes a NUL-separated string list property.
func (n *Node) Strings(prop string) []string {
	b, ok := n.n.Properties[prop]
	if !ok || len(b) == 0 {
		return nil
	}
	return strings.Split(strings.TrimRight(string(b), "\x00"), "\x00")
}

// U32s decodes a property of 32-bit cells.
func (n *Node) U32s(prop string) ([]uint32, error) {
	b, ok := n.n.Properties[prop]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProperty, prop)
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%s: length %d isn't a whole number of cells", prop, len(b))
	}
	v := make([]uint32, len(b)/4)
	for i := range v {
		v[i] = binary.BigEndian.Uint32(b[4*i:])
	}
	return v, nil
}

func (n *Node) U32(prop string) (uint32, error) {
	v, err := n.U32s(prop)
	if err != nil {
		return 0, err
	}
	if len(v) != 1 {
		return 0, fmt.Errorf("%s: %d cells, want 1", prop, len(v))
	}
	return v[0], nil
}

// Regs pairs the node's reg regions with its reg-names. Addresses and sizes
// are one cell each.
func (n *Node) Regs() (map[string]soc.Block, error) {
	reg, err := n.U32s("reg")
	if err != nil {
		return nil, err
	}
	names := n.Strings("reg-names")
	if len(reg) != 2*len(names) {
		return nil, fmt.Errorf("%d reg cells for %d reg-names", len(reg), len(names))
	}
	b := make(map[string]soc.Block, len(names))
	for i, name := range names {
		b[name] = soc.Block{Phys: uintptr(reg[2*i]), Size: int(reg[2*i+1])}
	}
	return b, nil
}

// Point is one step of a CPU voltage plan.
type Point struct {
	Rate uint64
	UV   int
}

func planProp(bin, version int, mux string) string {
	return fmt.Sprintf("qcom,speed%d-bin-v%d-%s", bin, version, mux)
}

// Plan reads mux's voltage plan for the given speed bin and PVS version,
// falling back to the bin 0 version 0 plan. The property actually used is
// returned alongside.
func (n *Node) Plan(mux string, bin, version int) ([]Point, string, error) {
	prop := planProp(bin, version, mux)
	p, err := n.plan(prop)
	if err == nil {
		return p, prop, nil
	}
	fallback := planProp(0, 0, mux)
	if fallback == prop {
		return nil, "", err
	}
	p, ferr := n.plan(fallback)
	if ferr != nil {
		return nil, "", fmt.Errorf("couldn't load %s (%v) or %s: %w", prop, err, fallback, ferr)
	}
	return p, fallback, nil
}

func (n *Node) plan(prop string) ([]Point, error) {
	v, err := n.U32s(prop)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 || len(v)%2 != 0 {
		return nil, fmt.Errorf("%s: bad length %d", prop, len(v))
	}
	p := make([]Point, len(v)/2)
	for i := range p {
		p[i] = Point{Rate: uint64(v[2*i]), UV: int(v[2*i+1])}
	}
	return p, nil
}

// MuxSources finds the clock-names entries "clk-<mux>-<sel>" and returns
// them keyed by selector.
func (n *Node) MuxSources(mux string) map[uint32]string {
	s := map[uint32]string{}
	for _, name := range n.Strings("clock-names") {
		rest, ok := strings.CutPrefix(name, "clk-")
		if !ok {
			continue
		}
		i := strings.LastIndexByte(rest, '-')
		if i < 0 || rest[:i] != mux {
			continue
		}
		var sel uint32
		if _, err := fmt.Sscanf(rest[i+1:], "%d", &sel); err != nil || sel > 7 {
			continue
		}
		s[sel] = name
	}
	return s
}

// Thresholds reads the PLL thermal vote thresholds. ok is false when the
// node doesn't configure them.
func (n *Node) Thresholds() (thr thermal.Thresholds, ok bool, err error) {
	if !n.Has("qcom,pll-disable-threshold") || !n.Has("qcom,pll-enable-threshold") {
		return thr, false, nil
	}
	dis, err := n.U32("qcom,pll-disable-threshold")
	if err != nil {
		return thr, false, err
	}
	en, err := n.U32("qcom,pll-enable-threshold")
	if err != nil {
		return thr, false, err
	}
	thr = thermal.Thresholds{Enable: int(int32(en)), Disable: int(int32(dis))}
	if err := thr.Validate(); err != nil {
		return thr, false, err
	}
	return thr, true, nil
}
