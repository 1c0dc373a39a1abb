package soc

import (
	"encoding/binary"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

const CPU_DMA_LATENCY_FILE = "/dev/cpu_dma_latency"

// CPUControl blocks deep idle through the PM QoS CPU latency device and
// runs rendezvous on chosen CPUs. The kernel's userspace latency request is
// system wide, so the CPU list only matters for the rendezvous.
type CPUControl struct {
	LatencyFile string
}

func (c *CPUControl) latencyFile() string {
	if c.LatencyFile == "" {
		return CPU_DMA_LATENCY_FILE
	}
	return c.LatencyFile
}

// BlockIdle holds a latency request of us microseconds until release is
// called.
func (c *CPUControl) BlockIdle(cpus []int, us int) (func(), error) {
	f, err := os.OpenFile(c.latencyFile(), os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("couldn't open %s: %v", c.latencyFile(), err)
	}
	b := make([]byte, 4)
	binary.NativeEndian.PutUint32(b, uint32(us))
	if _, err := f.Write(b); err != nil {
		f.Close() // Ignore error
		return nil, fmt.Errorf("couldn't request %dus latency: %v", us, err)
	}
	glog.V(2).Infof("latency request %dus for cpus %v", us, cpus)
	return func() {
		if err := f.Close(); err != nil {
			glog.Warningf("couldn't drop latency request: %v", err)
		}
	}, nil
}

// Rendezvous gets a thread scheduled on every CPU in cpus and returns once
// all of them have run. A CPU that has to wake up to run the thread has
// seen any latency request made before the call.
func (c *CPUControl) Rendezvous(cpus []int) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(cpus))
	for _, cpu := range cpus {
		wg.Add(1)
		go func(cpu int) {
			defer wg.Done()
			// The thread keeps its pinned affinity, so it's never handed
			// back to the scheduler: the goroutine exits still locked and
			// the runtime throws the thread away.
			runtime.LockOSThread()
			var set unix.CPUSet
			set.Zero()
			set.Set(cpu)
			if err := unix.SchedSetaffinity(0, &set); err != nil {
				errs <- fmt.Errorf("couldn't run on cpu %d: %v", cpu, err)
			}
		}(cpu)
	}
	wg.Wait()
	close(errs)
	return <-errs
}
