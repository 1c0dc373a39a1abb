// Package thermal keeps PLLs voted on while the SoC is cold. Sensors report
// threshold crossings; the gate votes once any sensor is below the enable
// threshold and withdraws the vote once every sensor has warmed past the
// disable threshold.
package thermal

import (
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// MaxSensors is the number of sensors the gate can track.
const MaxSensors = 64

type Trip int

const (
	// TripLow means the sensor fell to or below the enable threshold.
	TripLow Trip = iota
	// TripHigh means the sensor rose to or above the disable threshold.
	TripHigh
)

func (t Trip) String() string {
	switch t {
	case TripLow:
		return "low"
	case TripHigh:
		return "high"
	}
	return fmt.Sprintf("Trip(%d)", int(t))
}

// Thresholds are in degrees Celsius.
type Thresholds struct {
	Enable  int
	Disable int
}

func (t Thresholds) Validate() error {
	if t.Disable <= t.Enable {
		return fmt.Errorf("disable threshold %d must be above enable threshold %d", t.Disable, t.Enable)
	}
	return nil
}

// Classify maps a temperature onto a crossing. ok is false between the two
// thresholds, where nothing changes.
func (t Thresholds) Classify(temp int) (trip Trip, ok bool) {
	switch {
	case temp <= t.Enable:
		return TripLow, true
	case temp >= t.Disable:
		return TripHigh, true
	}
	return 0, false
}

// Voter is one enable vote the gate holds, typically a PLL clock.
type Voter interface {
	Name() string
	Enable() error
	Disable() error
}

type Gate struct {
	thr    Thresholds
	voters []Voter

	mu     sync.Mutex
	status uint64
	voted  bool
}

func NewGate(thr Thresholds, voters ...Voter) (*Gate, error) {
	if err := thr.Validate(); err != nil {
		return nil, err
	}
	if len(voters) == 0 {
		return nil, fmt.Errorf("thermal gate without voters")
	}
	return &Gate{thr: thr, voters: voters}, nil
}

func (g *Gate) Thresholds() Thresholds {
	return g.thr
}

// Notify records a crossing on sensor and moves the vote if the set of cold
// sensors became empty or stopped being empty.
func (g *Gate) Notify(sensor int, trip Trip) error {
	if sensor < 0 || sensor >= MaxSensors {
		return fmt.Errorf("sensor %d out of range", sensor)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	glog.V(1).Infof("thermal: sensor %d tripped %v", sensor, trip)
	switch trip {
	case TripLow:
		g.status |= 1 << uint(sensor)
	case TripHigh:
		g.status &^= 1 << uint(sensor)
	default:
		return fmt.Errorf("unknown trip %v", trip)
	}
	return g.applyLocked()
}

// Sample seeds the gate from one reading per sensor, as taken at boot.
func (g *Gate) Sample(temps map[int]int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for sensor, temp := range temps {
		if sensor < 0 || sensor >= MaxSensors {
			glog.Warningf("thermal: ignoring sensor %d", sensor)
			continue
		}
		if temp <= g.thr.Enable {
			g.status |= 1 << uint(sensor)
		}
	}
	return g.applyLocked()
}

func (g *Gate) applyLocked() error {
	switch {
	case g.status != 0 && !g.voted:
		for i, v := range g.voters {
			if err := v.Enable(); err != nil {
				for j := i - 1; j >= 0; j-- {
					if derr := g.voters[j].Disable(); derr != nil {
						glog.Errorf("thermal: couldn't drop %s vote: %v", g.voters[j].Name(), derr)
					}
				}
				return fmt.Errorf("couldn't vote %s on: %w", v.Name(), err)
			}
		}
		g.voted = true
		glog.Infof("thermal: cold sensors %#x, PLLs voted on", g.status)
	case g.status == 0 && g.voted:
		for _, v := range g.voters {
			if err := v.Disable(); err != nil {
				glog.Errorf("thermal: couldn't drop %s vote: %v", v.Name(), err)
			}
		}
		g.voted = false
		glog.Infof("thermal: all sensors warm, PLL votes dropped")
	}
	return nil
}

// State returns the cold sensor mask and whether the vote is held.
func (g *Gate) State() (status uint64, voted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status, g.voted
}
