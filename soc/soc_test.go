package soc

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestDetect(t *testing.T) {
	dir, err := ioutil.TempDir("", "soc")
	if err != nil {
		t.Fatalf("Failed TempDir: %v", err)
	}
	defer os.RemoveAll(dir)

	tests := []struct {
		compat  string
		want    string
		wantErr bool
	}{
		{"qcom,msm8952-mtp\x00qcom,msm8952\x00qcom,mtp\x00", "MSM8952", false},
		{"qcom,apq8052\x00", "APQ8052", false},
		{"brcm,bcm2711\x00", "", true},
	}
	for i, test := range tests {
		f := filepath.Join(dir, "compatible")
		if err := ioutil.WriteFile(f, []byte(test.compat), 0644); err != nil {
			t.Fatalf("Failed WriteFile: %v", err)
		}
		s, err := detectFrom(f)
		if test.wantErr {
			if err == nil {
				t.Errorf("%d: detect succeeded, got: %v, want error", i, s.Name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%d: detect failed: %v", i, err)
			continue
		}
		if s.Name != test.want {
			t.Errorf("%d: detect, got: %s, want %s", i, s.Name, test.want)
		}
		if _, ok := s.Blocks["cc_base"]; !ok {
			t.Errorf("%d: no cc_base block", i)
		}
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup("qcom,msm8952-sim"); !ok {
		t.Errorf("Lookup(qcom,msm8952-sim) failed")
	}
	if len(Compatibles()) != len(socVariants) {
		t.Errorf("Compatibles, got: %d, want %d", len(Compatibles()), len(socVariants))
	}
}
