package soc

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

const MEM_FILE = "/dev/mem"

// Regs is a mapped register block. All accesses are 32 bits wide and go
// straight to the device.
type Regs struct {
	name string
	mm   mmap.MMap
	offs uintptr
	size int
}

// MapRegs opens /dev/mem and uses mmap to map a physical register block into
// our address space. Since the mapping has to start at a page boundary, the
// physical address is rounded down to the nearest page boundary and the
// difference is kept as an offset.
func MapRegs(name string, b Block) (*Regs, error) {
	f, err := os.OpenFile(MEM_FILE, os.O_RDWR|os.O_SYNC, os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s: %v", MEM_FILE, err)
	}
	defer f.Close() // Ignore error

	pageSize := uintptr(unix.Getpagesize())
	pagemask := ^(pageSize - 1)
	mapAddr := b.Phys & pagemask
	size := b.Size + int(b.Phys-mapAddr)
	glog.V(1).Infof("MapRegion(f, %d, RDWR, 0, %08X) for %s, physAddr %08X", size, mapAddr, name, b.Phys)
	mm, err := mmap.MapRegion(f, size, mmap.RDWR, 0, int64(mapAddr))
	if err != nil {
		return nil, fmt.Errorf("couldn't map %s (%08X, %v): %v", name, b.Phys, b.Size, err)
	}
	return &Regs{name, mm, b.Phys & (pageSize - 1), b.Size}, nil
}

func (r *Regs) Name() string {
	return r.name
}

func (r *Regs) reg(off uint32) *uint32 {
	if off&3 != 0 || int(off)+4 > r.size {
		panic(fmt.Sprintf("%s: register offset %#x outside %d byte block", r.name, off, r.size))
	}
	return (*uint32)(unsafe.Pointer(&r.mm[r.offs+uintptr(off)]))
}

func (r *Regs) Read32(off uint32) uint32 {
	return atomic.LoadUint32(r.reg(off))
}

func (r *Regs) Write32(off uint32, val uint32) {
	atomic.StoreUint32(r.reg(off), val)
}

// Barrier reads back from the block, which can't complete before the
// block's earlier posted writes have.
func (r *Regs) Barrier() {
	atomic.LoadUint32(r.reg(0))
}

// Delay busy-waits for short settle times and sleeps for long ones.
func (r *Regs) Delay(us int) {
	Delay(us)
}

func (r *Regs) Close() error {
	return r.mm.Unmap()
}

func Delay(us int) {
	d := time.Duration(us) * time.Microsecond
	if us >= 100 {
		time.Sleep(d)
		return
	}
	start := time.Now()
	for time.Since(start) < d {
	}
}
