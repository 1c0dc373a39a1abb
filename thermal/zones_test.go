package thermal

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func writeZone(t *testing.T, dir string, zone int, temp string) {
	d := filepath.Join(dir, "thermal_zone"+strconv.Itoa(zone))
	if err := os.MkdirAll(d, 0755); err != nil {
		t.Fatalf("Failed MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(d, "temp"), []byte(temp), 0644); err != nil {
		t.Fatalf("Failed WriteFile: %v", err)
	}
}

func TestZonesRead(t *testing.T) {
	dir := t.TempDir()
	writeZone(t, dir, 0, "45000\n")
	writeZone(t, dir, 3, "-4500\n")
	z := &Zones{Dir: dir}
	temps, err := z.Read()
	if err != nil {
		t.Fatalf("Failed Read: %v", err)
	}
	want := map[int]int{0: 45, 3: -4}
	if len(temps) != len(want) {
		t.Fatalf("Read, got: %v, want %v", temps, want)
	}
	for s, w := range want {
		if temps[s] != w {
			t.Errorf("sensor %d, got: %d, want %d", s, temps[s], w)
		}
	}

	writeZone(t, dir, 5, "warm")
	if _, err := z.Read(); err == nil {
		t.Errorf("Read accepted a bad temperature")
	}
}

func TestCrossings(t *testing.T) {
	c := NewCrossings(thr)
	steps := []struct {
		temps map[int]int
		want  []Event
	}{
		{map[int]int{0: 20, 1: 7}, []Event{{0, TripHigh}}},
		{map[int]int{0: 20, 1: 4}, []Event{{1, TripLow}}},
		{map[int]int{0: 3, 1: 8}, []Event{{0, TripLow}}},
		{map[int]int{0: 3, 1: 10}, []Event{{1, TripHigh}}},
		{map[int]int{0: 3, 1: 10}, nil},
	}
	for i, s := range steps {
		got := c.Update(s.temps)
		if len(got) != len(s.want) {
			t.Errorf("step %d, got: %v, want %v", i, got, s.want)
			continue
		}
		for j := range got {
			if got[j] != s.want[j] {
				t.Errorf("step %d event %d, got: %v, want %v", i, j, got[j], s.want[j])
			}
		}
	}
}
