package soc

import (
	"testing"
)

func fuse(v uint32) *Mem {
	m := NewMem("efuse")
	m.Set(0, v)
	return m
}

func TestSpeedBin(t *testing.T) {
	tests := []struct {
		name        string
		efuse       Reader
		efuse1      Reader
		efuse2      Reader
		wantBin     int
		wantVersion int
	}{
		{"no fuses", nil, nil, nil, 0, 0},
		{"bin only", fuse(0x5 << 2), nil, nil, 5, 0},
		{"bin and version", fuse(0x3<<2 | 0x3), fuse(1 << 29), fuse(0x2 << 18), 3, 5},
		{"version high bits only", fuse(0), fuse(0), fuse(0x3 << 18), 0, 6},
		{"missing efuse2", fuse(0x7 << 2), fuse(1 << 29), nil, 7, 0},
	}
	for _, test := range tests {
		bin, version := SpeedBin(test.efuse, test.efuse1, test.efuse2)
		if bin != test.wantBin || version != test.wantVersion {
			t.Errorf("%s: got: bin %d version %d, want bin %d version %d", test.name, bin, version, test.wantBin, test.wantVersion)
		}
	}
}

func TestMemHooks(t *testing.T) {
	m := NewMem("gcc")
	m.OnWrite(0x10, func(m *Mem, v uint32) {
		m.Set(0x10, v&^1)
		m.Set(0x14, 1)
	})
	m.Write32(0x10, 0x3)
	if got := m.Read32(0x10); got != 0x2 {
		t.Errorf("hooked register, got: %#x, want %#x", got, 0x2)
	}
	if got := m.Read32(0x14); got != 1 {
		t.Errorf("side register, got: %#x, want 1", got)
	}
	m.Delay(5)
	m.Write32(0x20, 7)
	if got := m.Writes(); got != 2 {
		t.Errorf("writes, got: %d, want 2", got)
	}
	log := m.Log()
	want := []Access{{Off: 0x10, Val: 0x3}, {Delay: 5}, {Off: 0x20, Val: 7}}
	if len(log) != len(want) {
		t.Fatalf("log, got: %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d], got: %v, want %v", i, log[i], want[i])
		}
	}
	if got := m.WritesTo(0x10); len(got) != 1 || got[0] != 3 {
		t.Errorf("WritesTo(0x10), got: %v, want [3]", got)
	}
}
