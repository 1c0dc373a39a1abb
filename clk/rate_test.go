package clk

import (
	"errors"
	"testing"
)

func TestRoundRate(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		clock   string
		rate    uint64
		want    uint64
		wantErr error
	}{
		{"gfx_src", 1, 19200000, nil},
		{"gfx_src", 120000000, 150000000, nil},
		{"gfx_src", 200000000, 200000000, nil},
		{"gfx_src", 999000000, 200000000, nil},
		{"gfx", 120000000, 150000000, nil},
		{"cpll", 800000000, 998400000, nil},
		{"cpu", 1000000000, 1209600000, nil},
		{"gpll0", 1, 800000000, nil},
		{"pclk_src", 74250000, 74250000, nil},
		{"cam_a", 40000000, 0, ErrNotPermitted},
		{"ahb_a", 1, 0, ErrNotPermitted},
	}
	for _, test := range tests {
		got, err := f.get(t, test.clock).RoundRate(test.rate)
		if test.wantErr != nil {
			if !errors.Is(err, test.wantErr) {
				t.Errorf("RoundRate(%s, %d) error, got: %v, want %v", test.clock, test.rate, err, test.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("RoundRate(%s, %d) failed: %v", test.clock, test.rate, err)
			continue
		}
		if got != test.want {
			t.Errorf("RoundRate(%s, %d), got: %d, want %d", test.clock, test.rate, got, test.want)
		}
	}
	if got := f.m.Writes(); got != 0 {
		t.Errorf("RoundRate wrote %d registers, want 0", got)
	}
	if len(f.events) != 0 {
		t.Errorf("RoundRate moved rails: %v", f.events)
	}
}

func TestSetRateVoltageOrder(t *testing.T) {
	f := newFixture(t)
	c := f.get(t, "gfx_src")
	if err := c.SetRate(150000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	if got := f.level("vdd_dig"); got != 1 {
		t.Errorf("level at 150MHz, got: %d, want 1", got)
	}

	f.m.ResetLog()
	f.events = nil
	if err := c.SetRate(200000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	if len(f.events) != 1 || f.events[0].level != 2 || f.events[0].writes != 0 {
		t.Errorf("raise, got: %v, want one raise to 2 before any write", f.events)
	}
	if got := c.Rate(); got != 200000000 {
		t.Errorf("rate, got: %d, want 200000000", got)
	}
	if p, _ := c.Parent(); p.Name() != "gpll0" {
		t.Errorf("parent, got: %s, want gpll0", p.Name())
	}
	cfg := f.m.Read32(gfxCMD + rcgCfg)
	if got, want := cfg&(cfgDivMask|cfgSrcMask), BVAL(4, 0, 7)|BVAL(10, 8, 1); got != want {
		t.Errorf("cfg, got: %#x, want %#x", got, want)
	}

	f.m.ResetLog()
	f.events = nil
	if err := c.SetRate(100000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	if len(f.events) != 1 || f.events[0].level != 1 || f.events[0].writes == 0 {
		t.Errorf("drop, got: %v, want one drop to 1 after the writes", f.events)
	}
	if got := f.rails["vdd_dig"].Votes()["gfx_src"]; got != 1 {
		t.Errorf("vote, got: %d, want 1", got)
	}
}

func TestSetRateIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.get(t, "gfx_src")
	if err := c.SetRate(200000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	f.m.ResetLog()
	f.events = nil
	if err := c.SetRate(190000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	if got := f.m.Writes(); got != 0 {
		t.Errorf("repeat SetRate wrote %d registers, want 0", got)
	}
	if len(f.events) != 0 {
		t.Errorf("repeat SetRate moved rails: %v", f.events)
	}
}

func TestSetRateRaiseFailure(t *testing.T) {
	f := newFixture(t)
	c := f.get(t, "gfx_src")
	if err := c.SetRate(100000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	f.m.ResetLog()
	f.fail["vdd_dig"] = true
	if err := c.SetRate(200000000); err == nil {
		t.Fatalf("SetRate succeeded with the rail failing")
	}
	if got := f.m.Writes(); got != 0 {
		t.Errorf("failed raise wrote %d registers, want 0", got)
	}
	if got := c.Rate(); got != 100000000 {
		t.Errorf("rate, got: %d, want 100000000", got)
	}
}

func TestSetRateAfterFailedDrop(t *testing.T) {
	f := newFixture(t)
	c := f.get(t, "gfx_src")
	dig := f.rails["vdd_dig"]
	if err := c.SetRate(200000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	f.fail["vdd_dig"] = true
	if err := c.SetRate(100000000); err != nil {
		t.Fatalf("SetRate failed on a failing drop: %v", err)
	}
	if got := f.level("vdd_dig"); got != 2 {
		t.Errorf("level after failed drop, got: %d, want 2", got)
	}
	// Another client's vote lets the rail settle on the lower requirement.
	f.fail["vdd_dig"] = false
	if err := dig.Vote("other", 0); err != nil {
		t.Fatalf("Failed Vote: %v", err)
	}
	if got := f.level("vdd_dig"); got != 1 {
		t.Errorf("level after recompute, got: %d, want 1", got)
	}
	f.m.ResetLog()
	f.events = nil
	if err := c.SetRate(200000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	if len(f.events) != 1 || f.events[0].level != 2 || f.events[0].writes != 0 {
		t.Errorf("raise, got: %v, want one raise to 2 before any write", f.events)
	}
	if got := f.level("vdd_dig"); got != 2 {
		t.Errorf("level at 200MHz, got: %d, want 2", got)
	}
}

func TestSetRateNoLevel(t *testing.T) {
	f := newFixture(t)
	c := f.get(t, "cpu")
	// The rail table stops short of what the mux can produce.
	f.tree.nodes[c.id].fmax = []uint64{400000000, 998400000}
	if err := c.SetRate(1209600000); err == nil {
		t.Fatalf("SetRate succeeded without a voltage level")
	}
	if got := f.m.Writes(); got != 0 {
		t.Errorf("SetRate wrote %d registers, want 0", got)
	}
}

func TestUpdateTimeout(t *testing.T) {
	f := newFixture(t)
	c := f.get(t, "gfx_src")
	if err := c.SetRate(150000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	f.stuck[gfxCMD] = true
	err := c.SetRate(200000000)
	if !errors.Is(err, ErrUpdateTimeout) {
		t.Fatalf("SetRate, got: %v, want %v", err, ErrUpdateTimeout)
	}
	if got := c.Rate(); got != 150000000 {
		t.Errorf("rate after timeout, got: %d, want 150000000", got)
	}
	if p, _ := c.Parent(); p.Name() != "gpll6" {
		t.Errorf("parent after timeout, got: %s, want gpll6", p.Name())
	}
	if got := f.level("vdd_dig"); got != 2 {
		t.Errorf("level after timeout, got: %d, want 2", got)
	}
	if got := f.depth(t, "gpll0"); got != 0 {
		t.Errorf("new source depth after timeout, got: %d, want 0", got)
	}
	if got := f.m.Read32(gpllVote); got != 0 {
		t.Errorf("vote after timeout, got: %#x, want 0", got)
	}
}

func TestRCGSwitchWhileEnabled(t *testing.T) {
	f := newFixture(t)
	gfx := f.get(t, "gfx")
	if err := gfx.SetRate(150000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	if err := gfx.Enable(); err != nil {
		t.Fatalf("Failed Enable: %v", err)
	}
	if err := gfx.SetRate(200000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	if got := f.depth(t, "gpll0"); got != 1 {
		t.Errorf("new source depth, got: %d, want 1", got)
	}
	if got := f.depth(t, "gpll6"); got != 0 {
		t.Errorf("old source depth, got: %d, want 0", got)
	}
	if got := f.m.Read32(gpllVote); got != BIT(0) {
		t.Errorf("vote, got: %#x, want %#x", got, BIT(0))
	}
	if err := gfx.Disable(); err != nil {
		t.Fatalf("Failed Disable: %v", err)
	}
	if got := f.depth(t, "gpll0"); got != 0 {
		t.Errorf("source depth after disable, got: %d, want 0", got)
	}
}

func TestMNDRate(t *testing.T) {
	f := newFixture(t)
	c := f.get(t, "cam_src")
	if err := c.SetRate(40000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	regs := []struct {
		off  uint32
		want uint32
	}{
		{camCMD + rcgM, 1},
		{camCMD + rcgN, ^uint32(1)},
		{camCMD + rcgD, ^uint32(2)},
		{camCMD + rcgCfg, BVAL(4, 0, 19) | BVAL(10, 8, 1) | BVAL(13, 12, 2)},
	}
	for _, r := range regs {
		if got := f.m.Read32(r.off); got != r.want {
			t.Errorf("reg %#x, got: %#x, want %#x", r.off, got, r.want)
		}
	}
	if err := c.SetRate(80000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	if got := f.m.Read32(camCMD+rcgCfg) & cfgModeMask; got != 0 {
		t.Errorf("mode without N, got: %#x, want 0", got)
	}
}

func TestPixelFollowsParent(t *testing.T) {
	f := newFixture(t)
	c := f.get(t, "pclk_src")
	if err := c.SetRate(74250000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	if got := f.get(t, "dsi_pll").Rate(); got != 148500000 {
		t.Errorf("parent rate, got: %d, want 148500000", got)
	}
	if got := c.Rate(); got != 74250000 {
		t.Errorf("rate, got: %d, want 74250000", got)
	}
	if got := f.m.WritesTo(pclkCMD); len(got) != 0 {
		t.Errorf("pixel clock latched an update: %#x", got)
	}
}

func TestFixedRate(t *testing.T) {
	f := newFixture(t)
	c := f.get(t, "gpll0")
	if err := c.SetRate(800000000); err != nil {
		t.Errorf("SetRate to own rate failed: %v", err)
	}
	if err := c.SetRate(600000000); !errors.Is(err, ErrRateUnsupported) {
		t.Errorf("SetRate, got: %v, want %v", err, ErrRateUnsupported)
	}
}

func TestCPUSwitchParksOnSafeSource(t *testing.T) {
	f := newFixture(t)
	cpu := f.get(t, "cpu")
	if err := cpu.SetRate(768000000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	if err := cpu.Enable(); err != nil {
		t.Fatalf("Failed Enable: %v", err)
	}
	f.m.ResetLog()
	f.cpu.calls = nil
	if err := cpu.SetRate(998400000); err != nil {
		t.Fatalf("Failed SetRate: %v", err)
	}
	var sels []uint32
	for _, v := range f.m.WritesTo(cpuMuxCMD + rcgCfg) {
		sels = append(sels, v&cfgSrcMask>>8)
	}
	if len(sels) != 2 || sels[0] != 4 || sels[1] != 5 {
		t.Errorf("mux sources, got: %v, want [4 5]", sels)
	}
	if got := f.m.WritesTo(0x1004); len(got) != 1 || got[0] != 52 {
		t.Errorf("pll L, got: %v, want [52]", got)
	}
	want := []string{"block [0 1] 250", "rendezvous [0 1]", "release"}
	if len(f.cpu.calls) != len(want) {
		t.Fatalf("cpu calls, got: %v, want %v", f.cpu.calls, want)
	}
	for i := range want {
		if f.cpu.calls[i] != want[i] {
			t.Errorf("cpu call %d, got: %s, want %s", i, f.cpu.calls[i], want[i])
		}
	}
	if got := cpu.Rate(); got != 998400000 {
		t.Errorf("rate, got: %d, want 998400000", got)
	}
	if got := f.depth(t, "gpll0_ao"); got != 0 {
		t.Errorf("safe source depth, got: %d, want 0", got)
	}
	if got := f.depth(t, "cpll"); got != 1 {
		t.Errorf("pll depth, got: %d, want 1", got)
	}
}

func TestCPUIdleBlockFailure(t *testing.T) {
	f := newFixture(t)
	cpu := f.get(t, "cpu")
	f.cpu.blockErr = errors.New("no qos")
	if err := cpu.SetRate(768000000); err == nil {
		t.Fatalf("SetRate succeeded without idle control")
	}
	if got := f.m.Writes(); got != 0 {
		t.Errorf("SetRate wrote %d registers, want 0", got)
	}
	if got := cpu.Rate(); got != 0 {
		t.Errorf("rate, got: %d, want 0", got)
	}
}
