package main

import (
	"os"
	"os/signal"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"

	"github.com/Jon-Bright/clkctl/msm8952"
)

// watchSuspend runs the suspend hooks on signals from the power manager:
// SIGUSR1 before suspend, SIGUSR2 after resume.
func watchSuspend(ctl *msm8952.Controller) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, unix.SIGUSR1, unix.SIGUSR2)
	go func() {
		for sig := range c {
			switch sig {
			case unix.SIGUSR1:
				glog.Infof("Suspend prepare")
				if err := ctl.Prepare(); err != nil {
					glog.Errorf("Failed suspend prepare: %v", err)
				}
			case unix.SIGUSR2:
				glog.Infof("Resume")
				if err := ctl.Resume(); err != nil {
					glog.Errorf("Failed resume: %v", err)
				}
			}
		}
	}()
}
