package clk

import (
	"errors"
	"testing"
)

func newMeasurer(t *testing.T, f *fixture) *Measurer {
	m, err := NewMeasurer(f.tree, MeasureConfig{
		Regs:    f.m,
		Mux:     debugMux,
		MuxMask: 0x1FF,
		XOCBCR:  xoDiv4CBCR,
		Ctl:     debugCtl,
		Status:  debugStatus,
		Sel:     map[string]uint32{"gfx": 0x1ea, "cpu": 0x16a},
	})
	if err != nil {
		t.Fatalf("Failed NewMeasurer: %v", err)
	}
	return m
}

func TestMeasure(t *testing.T) {
	f := newFixture(t)
	m := newMeasurer(t, f)
	got, err := m.Measure("gfx")
	if err != nil {
		t.Fatalf("Failed Measure: %v", err)
	}
	if want := uint64(99994745); got != want {
		t.Errorf("Measure, got: %d, want %d", got, want)
	}
	mux := f.m.WritesTo(debugMux)
	if len(mux) != 2 || mux[0] != 0x1ea|measureDebugEn || mux[1] != 0x1ea {
		t.Errorf("mux writes, got: %#x, want [%#x %#x]", mux, 0x1ea|measureDebugEn, 0x1ea)
	}
	if got := f.m.Read32(xoDiv4CBCR); got != 0 {
		t.Errorf("xo/4 left on: %#x", got)
	}
	if got := f.depth(t, "gfx"); got != 0 {
		t.Errorf("gfx depth after measuring, got: %d, want 0", got)
	}
	if names := m.Clocks(); len(names) != 2 || names[0] != "cpu" {
		t.Errorf("Clocks, got: %v, want [cpu gfx]", names)
	}
}

func TestMeasureErrors(t *testing.T) {
	f := newFixture(t)
	m := newMeasurer(t, f)
	if _, err := m.Measure("cam_a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Measure(cam_a), got: %v, want %v", err, ErrNotFound)
	}
	f.m.OnWrite(debugCtl, nil)
	f.m.Set(debugStatus, measureActive)
	if _, err := m.Measure("gfx"); !errors.Is(err, ErrMeasureTimeout) {
		t.Errorf("Measure with a dead counter, got: %v, want %v", err, ErrMeasureTimeout)
	}
	if _, err := NewMeasurer(f.tree, MeasureConfig{Sel: map[string]uint32{"nope": 1}}); !errors.Is(err, ErrNotFound) {
		t.Errorf("NewMeasurer with unknown clock, got: %v, want %v", err, ErrNotFound)
	}
}
