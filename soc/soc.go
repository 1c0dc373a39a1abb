// Package soc provides the hardware side of the clock controller: register
// blocks, fuses, CPU idle control and regulator backends.
package soc

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"sort"
)

const COMPATIBLE_FILE = "/proc/device-tree/compatible"

// Block is a physical register block.
type Block struct {
	Phys uintptr
	Size int
}

type SoC struct {
	Name   string
	Compat string
	Blocks map[string]Block
	// CPURegs maps logical CPU numbers to the MPIDR-style "reg" value of
	// their device tree node.
	CPURegs []uint32
}

// Detect works out which SoC we're running on from the root compatible
// strings of the live device tree.
func Detect() (*SoC, error) {
	return detectFrom(COMPATIBLE_FILE)
}

func detectFrom(file string) (*SoC, error) {
	b, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("couldn't read compatible: %v", err)
	}
	for _, c := range bytes.Split(b, []byte{0}) {
		if s, ok := socVariants[string(c)]; ok {
			v := s
			return &v, nil
		}
	}
	return nil, fmt.Errorf("couldn't identify SoC from %q", bytes.ReplaceAll(b, []byte{0}, []byte{' '}))
}

// Lookup returns the known SoC for a compatible string.
func Lookup(compat string) (*SoC, bool) {
	s, ok := socVariants[compat]
	if !ok {
		return nil, false
	}
	return &s, true
}

// Compatibles lists every SoC this package knows, sorted.
func Compatibles() []string {
	c := make([]string, 0, len(socVariants))
	for k := range socVariants {
		c = append(c, k)
	}
	sort.Strings(c)
	return c
}

const (
	GCC_BASE_8952  = 0x01800000
	GCC_SIZE_8952  = 0x80000
	APCS_BASE_8952 = 0x0b000000
)

var msm8952Blocks = map[string]Block{
	"cc_base":           {GCC_BASE_8952, GCC_SIZE_8952},
	"apcs_c1_pll_base":  {APCS_BASE_8952 + 0x016000, 0x40},
	"apcs_c0_pll_base":  {APCS_BASE_8952 + 0x116000, 0x40},
	"apcs_cci_pll_base": {APCS_BASE_8952 + 0x1d0000, 0x40},
	"apcs-c1-rcg-base":  {APCS_BASE_8952 + 0x011050, 0x10},
	"apcs-c0-rcg-base":  {APCS_BASE_8952 + 0x111050, 0x10},
	"apcs-cci-rcg-base": {APCS_BASE_8952 + 0x1d1050, 0x10},
	"spm_c1_base":       {APCS_BASE_8952 + 0x012000, 0x1000},
	"spm_c0_base":       {APCS_BASE_8952 + 0x112000, 0x1000},
	"spm_cci_base":      {APCS_BASE_8952 + 0x1d2000, 0x1000},
	"meas":              {APCS_BASE_8952 + 0x01101c, 0x4},
	"efuse":             {0x00058098, 0x4},
	"efuse1":            {0x0005c00c, 0x4},
	"efuse2":            {0x00058004, 0x4},
}

var msm8952CPUs = []uint32{0x100, 0x101, 0x102, 0x103, 0x0, 0x1, 0x2, 0x3}

var socVariants = map[string]SoC{
	"qcom,msm8952": {
		Name:    "MSM8952",
		Compat:  "qcom,msm8952",
		Blocks:  msm8952Blocks,
		CPURegs: msm8952CPUs,
	},
	"qcom,apq8052": {
		Name:    "APQ8052",
		Compat:  "qcom,apq8052",
		Blocks:  msm8952Blocks,
		CPURegs: msm8952CPUs,
	},
	"qcom,msm8952-sim": {
		Name:    "MSM8952 simulator",
		Compat:  "qcom,msm8952-sim",
		Blocks:  msm8952Blocks,
		CPURegs: msm8952CPUs,
	},
}
