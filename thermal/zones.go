package thermal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const ZONES_DIR = "/sys/class/thermal"

// Zones reads the kernel's thermal zones. Zone N is sensor N.
type Zones struct {
	Dir string
}

func (z *Zones) dir() string {
	if z.Dir == "" {
		return ZONES_DIR
	}
	return z.Dir
}

// Read returns every zone's temperature in degrees Celsius.
func (z *Zones) Read() (map[int]int, error) {
	files, err := filepath.Glob(filepath.Join(z.dir(), "thermal_zone*", "temp"))
	if err != nil {
		return nil, err
	}
	temps := make(map[int]int, len(files))
	for _, f := range files {
		zone := filepath.Base(filepath.Dir(f))
		n, err := strconv.Atoi(strings.TrimPrefix(zone, "thermal_zone"))
		if err != nil {
			continue
		}
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("couldn't read %s: %v", f, err)
		}
		mc, err := strconv.Atoi(strings.TrimSpace(string(b)))
		if err != nil {
			return nil, fmt.Errorf("couldn't parse %s: %v", f, err)
		}
		temps[n] = mc / 1000
	}
	return temps, nil
}

// Event is a threshold crossing on one sensor.
type Event struct {
	Sensor int
	Trip   Trip
}

// Crossings turns periodic readings into threshold crossings, reporting
// each sensor only when its side of the thresholds changes.
type Crossings struct {
	thr  Thresholds
	last map[int]Trip
}

func NewCrossings(thr Thresholds) *Crossings {
	return &Crossings{thr: thr, last: map[int]Trip{}}
}

// Update returns the crossings in temps, ordered by sensor.
func (c *Crossings) Update(temps map[int]int) []Event {
	sensors := make([]int, 0, len(temps))
	for s := range temps {
		sensors = append(sensors, s)
	}
	sort.Ints(sensors)
	var ev []Event
	for _, s := range sensors {
		trip, ok := c.thr.Classify(temps[s])
		if !ok {
			continue
		}
		if last, seen := c.last[s]; seen && last == trip {
			continue
		}
		c.last[s] = trip
		ev = append(ev, Event{s, trip})
	}
	return ev
}
