package main

import (
	"time"

	"github.com/golang/glog"

	"github.com/Jon-Bright/clkctl/thermal"
)

// watchThermal seeds the gate from one reading of every zone and, with a
// non-zero poll, keeps feeding it crossings in the background.
func watchThermal(g *thermal.Gate, z *thermal.Zones, poll time.Duration) {
	temps, err := z.Read()
	if err != nil {
		glog.Errorf("couldn't read thermal zones: %v", err)
	} else if err := g.Sample(temps); err != nil {
		glog.Errorf("thermal boot check failed: %v", err)
	}
	if poll <= 0 {
		return
	}
	c := thermal.NewCrossings(g.Thresholds())
	c.Update(temps)
	go func() {
		for range time.Tick(poll) {
			temps, err := z.Read()
			if err != nil {
				glog.Errorf("couldn't read thermal zones: %v", err)
				continue
			}
			for _, ev := range c.Update(temps) {
				if err := g.Notify(ev.Sensor, ev.Trip); err != nil {
					glog.Errorf("thermal: sensor %d %v: %v", ev.Sensor, ev.Trip, err)
				}
			}
		}
	}()
}
