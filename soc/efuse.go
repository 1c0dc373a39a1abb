package soc

import (
	"github.com/golang/glog"
)

// Reader reads a 32-bit register.
type Reader interface {
	Read32(off uint32) uint32
}

// SpeedBin decodes the speed bin and PVS version from the efuse words.
// Missing fuse blocks are nil and leave the fields at 0.
func SpeedBin(efuse, efuse1, efuse2 Reader) (bin, version int) {
	if efuse == nil {
		glog.Infof("no speed/PVS binning available, defaulting to 0")
		return 0, 0
	}
	bin = int(efuse.Read32(0)>>2) & 0x7
	if efuse1 == nil || efuse2 == nil {
		glog.Infof("no PVS version available, defaulting to 0")
	} else {
		version = int(efuse1.Read32(0)>>29&0x1) | int(efuse2.Read32(0)>>18&0x3)<<1
	}
	glog.Infof("speed bin: %d PVS version: %d", bin, version)
	return bin, version
}
