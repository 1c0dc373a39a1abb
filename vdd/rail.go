// Package vdd tracks voltage rails shared by many clocks. A rail holds the
// highest level any of its clients currently needs and is moved through one
// or more backing regulators.
package vdd

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/golang/glog"
)

var (
	ErrNoLevelForRate = errors.New("no voltage level for rate")
	ErrRail           = errors.New("voltage rail error")
)

// Level indexes a rail's level table. Level 0 is the lowest.
type Level int

// Corner codes understood by the RPM voltage processor.
const (
	CornerNone      = 0
	CornerRetention = 16
	CornerSVS       = 128
	CornerSVSPlus   = 192
	CornerNom       = 256
	CornerNomPlus   = 320
	CornerTurbo     = 384
)

// A Regulator applies one supply's value for a level. value is whatever the
// supply is programmed in: microvolts or a corner code.
type Regulator interface {
	Set(l Level, value int) error
}

// RegulatorFunc adapts a function to a Regulator.
type RegulatorFunc func(l Level, value int) error

func (f RegulatorFunc) Set(l Level, value int) error {
	return f(l, value)
}

type supply struct {
	name   string
	reg    Regulator
	values []int
}

type Rail struct {
	name      string
	numLevels int

	mu       sync.Mutex
	supplies []supply
	cur      Level
	applied  bool
	votes    map[string]Level
}

func NewRail(name string, numLevels int) *Rail {
	return &Rail{
		name:      name,
		numLevels: numLevels,
		votes:     map[string]Level{},
	}
}

func (r *Rail) Name() string {
	return r.name
}

func (r *Rail) NumLevels() int {
	return r.numLevels
}

// AddSupply attaches a backing regulator. values holds the regulator's
// setting for every level of the rail.
func (r *Rail) AddSupply(name string, reg Regulator, values []int) error {
	if len(values) != r.numLevels {
		return fmt.Errorf("supply %s for rail %s has %d values, want %d", name, r.name, len(values), r.numLevels)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.supplies = append(r.supplies, supply{name, reg, values})
	return nil
}

// Level returns the level the rail is currently held at, and whether any
// level has been applied to the regulators yet.
func (r *Rail) Level() (Level, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur, r.applied
}

// Votes returns a copy of every client's last committed requirement.
func (r *Rail) Votes() map[string]Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := make(map[string]Level, len(r.votes))
	for c, l := range r.votes {
		v[c] = l
	}
	return v
}

// Clients returns the names of clients with a recorded requirement, sorted.
func (r *Rail) Clients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := make([]string, 0, len(r.votes))
	for n := range r.votes {
		c = append(c, n)
	}
	sort.Strings(c)
	return c
}

// Vote records client's requirement and moves the rail to the maximum over
// all clients. A failed raise forgets the new requirement. A failed drop
// keeps it: the rail simply stays higher than needed.
func (r *Rail) Vote(client string, l Level) error {
	if l < 0 || int(l) >= r.numLevels {
		return fmt.Errorf("%w: %s has no level %d", ErrRail, r.name, l)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	old, had := r.votes[client]
	r.votes[client] = l
	target := r.maxLocked()
	if r.applied && target == r.cur {
		return nil
	}
	raising := !r.applied || target > r.cur
	if err := r.applyLocked(target); err != nil {
		if raising {
			if had {
				r.votes[client] = old
			} else {
				delete(r.votes, client)
			}
		}
		return err
	}
	return nil
}

func (r *Rail) maxLocked() Level {
	var m Level
	for _, l := range r.votes {
		if l > m {
			m = l
		}
	}
	return m
}

// applyLocked programs every supply in order. When one fails, the supplies
// already moved are put back to the previous level.
func (r *Rail) applyLocked(target Level) error {
	for i, s := range r.supplies {
		err := s.reg.Set(target, s.values[target])
		if err == nil {
			continue
		}
		if r.applied {
			for j := i - 1; j >= 0; j-- {
				p := r.supplies[j]
				if rerr := p.reg.Set(r.cur, p.values[r.cur]); rerr != nil {
					glog.Errorf("rail %s: couldn't restore supply %s to level %d: %v", r.name, p.name, r.cur, rerr)
				}
			}
		}
		return fmt.Errorf("%w: %s supply %s to level %d: %v", ErrRail, r.name, s.name, target, err)
	}
	glog.V(2).Infof("rail %s: level %d -> %d", r.name, r.cur, target)
	r.cur = target
	r.applied = true
	return nil
}

// Required returns the lowest level whose fmax covers rate. fmax is indexed
// by level; zero entries mark levels the clock can't use. A zero rate needs
// no voltage and maps to level 0.
func Required(fmax []uint64, rate uint64) (Level, error) {
	if rate == 0 {
		return 0, nil
	}
	for l, f := range fmax {
		if f != 0 && rate <= f {
			return Level(l), nil
		}
	}
	return 0, fmt.Errorf("%w: %d Hz", ErrNoLevelForRate, rate)
}
