package vdd

import (
	"errors"
	"testing"
)

type setting struct {
	l     Level
	value int
}

type recorder struct {
	sets []setting
	fail bool
}

func (r *recorder) Set(l Level, value int) error {
	if r.fail {
		return errors.New("regulator busy")
	}
	r.sets = append(r.sets, setting{l, value})
	return nil
}

func newTestRail(t *testing.T) (*Rail, *recorder) {
	r := NewRail("vdd_dig", 4)
	rec := &recorder{}
	if err := r.AddSupply("vdd_dig", rec, []int{0, CornerSVS, CornerNom, CornerTurbo}); err != nil {
		t.Fatalf("Failed AddSupply: %v", err)
	}
	return r, rec
}

func TestRequired(t *testing.T) {
	fmax := []uint64{0, 100000000, 200000000, 0, 400000000}
	tests := []struct {
		rate    uint64
		want    Level
		wantErr bool
	}{
		{0, 0, false},
		{1, 1, false},
		{100000000, 1, false},
		{100000001, 2, false},
		{200000000, 2, false},
		{300000000, 4, false},
		{400000000, 4, false},
		{400000001, 0, true},
	}
	for _, test := range tests {
		got, err := Required(fmax, test.rate)
		if test.wantErr {
			if !errors.Is(err, ErrNoLevelForRate) {
				t.Errorf("Required(%d) error, got: %v, want %v", test.rate, err, ErrNoLevelForRate)
			}
			continue
		}
		if err != nil {
			t.Errorf("Required(%d) failed: %v", test.rate, err)
			continue
		}
		if got != test.want {
			t.Errorf("Required(%d), got: %d, want %d", test.rate, got, test.want)
		}
	}
}

func TestVoteHoldsMaximum(t *testing.T) {
	r, rec := newTestRail(t)
	tests := []struct {
		client string
		level  Level
		want   Level
	}{
		{"a", 1, 1},
		{"b", 3, 3},
		{"a", 2, 3},
		{"b", 0, 2},
		{"a", 0, 0},
	}
	for i, test := range tests {
		if err := r.Vote(test.client, test.level); err != nil {
			t.Fatalf("%d: Vote(%s, %d) failed: %v", i, test.client, test.level, err)
		}
		if got, _ := r.Level(); got != test.want {
			t.Errorf("%d: level after Vote(%s, %d), got: %d, want %d", i, test.client, test.level, got, test.want)
		}
	}
	want := []int{CornerSVS, CornerTurbo, CornerNom, 0}
	if len(rec.sets) != len(want) {
		t.Fatalf("regulator writes, got: %v, want values %v", rec.sets, want)
	}
	for i, s := range rec.sets {
		if s.value != want[i] {
			t.Errorf("write %d, got: %d, want %d", i, s.value, want[i])
		}
	}
}

func TestVoteSameLevelDoesNotTouchRegulator(t *testing.T) {
	r, rec := newTestRail(t)
	r.Vote("a", 2)
	r.Vote("b", 1)
	r.Vote("a", 2)
	if len(rec.sets) != 1 {
		t.Errorf("regulator writes, got: %d, want 1", len(rec.sets))
	}
}

func TestFailedRaiseForgetsRequirement(t *testing.T) {
	r, rec := newTestRail(t)
	if err := r.Vote("a", 1); err != nil {
		t.Fatalf("Failed Vote: %v", err)
	}
	rec.fail = true
	err := r.Vote("a", 3)
	if !errors.Is(err, ErrRail) {
		t.Fatalf("Vote error, got: %v, want %v", err, ErrRail)
	}
	if got, _ := r.Level(); got != 1 {
		t.Errorf("level after failed raise, got: %d, want 1", got)
	}
	if got := r.Votes()["a"]; got != 1 {
		t.Errorf("vote after failed raise, got: %d, want 1", got)
	}
}

func TestFailedDropStaysHigh(t *testing.T) {
	r, rec := newTestRail(t)
	if err := r.Vote("a", 3); err != nil {
		t.Fatalf("Failed Vote: %v", err)
	}
	rec.fail = true
	if err := r.Vote("a", 1); err == nil {
		t.Fatalf("Vote succeeded with a failing regulator")
	}
	if got, _ := r.Level(); got != 3 {
		t.Errorf("level after failed drop, got: %d, want 3", got)
	}
	rec.fail = false
	if err := r.Vote("b", 0); err != nil {
		t.Fatalf("Failed Vote: %v", err)
	}
	if got, _ := r.Level(); got != 1 {
		t.Errorf("level after recompute, got: %d, want 1", got)
	}
}

func TestSupplyRollback(t *testing.T) {
	r := NewRail("vdd_sr2_pll", 3)
	first := &recorder{}
	second := &recorder{}
	r.AddSupply("vdd_sr2_pll", first, []int{0, 1800000, 1800000})
	r.AddSupply("vdd_sr2_dig", second, []int{CornerNone, CornerSVS, CornerNom})
	if err := r.Vote("pll", 1); err != nil {
		t.Fatalf("Failed Vote: %v", err)
	}
	second.fail = true
	if err := r.Vote("pll", 2); err == nil {
		t.Fatalf("Vote succeeded with a failing second supply")
	}
	last := first.sets[len(first.sets)-1]
	if last.l != 1 {
		t.Errorf("first supply after rollback, got: level %d, want 1", last.l)
	}
}

func TestBadLevel(t *testing.T) {
	r, _ := newTestRail(t)
	if err := r.Vote("a", 4); !errors.Is(err, ErrRail) {
		t.Errorf("Vote(4) error, got: %v, want %v", err, ErrRail)
	}
	if err := r.AddSupply("short", &recorder{}, []int{0}); err == nil {
		t.Errorf("AddSupply accepted a short value table")
	}
}
