package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/parms"

	"github.com/Jon-Bright/clkctl/clk"
	"github.com/Jon-Bright/clkctl/msm8952"
)

// Server is the debug console: one command per line, answered with OK, one
// or more value lines, or ERR.
type Server struct {
	ctl *msm8952.Controller
	l   net.Listener
	// sim is nil on real hardware.
	sim *msm8952.Sim
}

func NewServer(addr string, ctl *msm8952.Controller, sim *msm8952.Sim) (*Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	glog.Infof("Listening on %s", l.Addr())
	return &Server{ctl: ctl, l: l, sim: sim}, nil
}

func (s *Server) clock(parm *parms.Parms) (clk.Clock, error) {
	name := parm.ByName["-clk"]
	if name == "" {
		return clk.Clock{}, fmt.Errorf("missing -clk")
	}
	return s.ctl.Tree.Get(name)
}

func parseRate(parm *parms.Parms) (uint64, error) {
	if parm.ByName["-rate"] == "" {
		return 0, fmt.Errorf("missing -rate")
	}
	r, err := strconv.ParseUint(parm.ByName["-rate"], 0, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing rate: %v", err)
	}
	return r, nil
}

func (s *Server) list(w io.Writer, verbose bool) {
	if !verbose {
		for _, n := range s.ctl.Tree.Names() {
			fmt.Fprintln(w, n)
		}
		return
	}
	for _, st := range s.ctl.Tree.Status() {
		fmt.Fprintf(w, "%s %v rate=%d enabled=%d", st.Name, st.Kind, st.Rate, st.Enabled)
		if st.Parent != "" {
			fmt.Fprintf(w, " parent=%s", st.Parent)
		}
		if st.Rail != "" {
			fmt.Fprintf(w, " rail=%s:%d", st.Rail, st.Level)
		}
		fmt.Fprintln(w)
	}
}

func (s *Server) rails(w io.Writer) {
	rails := s.ctl.Tree.Rails()
	sort.Slice(rails, func(i, j int) bool { return rails[i].Name() < rails[j].Name() })
	for _, r := range rails {
		l, ok := r.Level()
		if !ok {
			fmt.Fprintf(w, "%s unset\n", r.Name())
			continue
		}
		votes := r.Votes()
		var vs []string
		for _, c := range r.Clients() {
			vs = append(vs, fmt.Sprintf("%s:%d", c, votes[c]))
		}
		fmt.Fprintf(w, "%s %d %s\n", r.Name(), l, strings.Join(vs, " "))
	}
}

func (s *Server) measure(w io.Writer, parm *parms.Parms) error {
	m := s.ctl.Measurer
	name := parm.ByName["-clk"]
	if name == "" {
		for _, n := range m.Clocks() {
			fmt.Fprintln(w, n)
		}
		return nil
	}
	if s.sim != nil {
		s.sim.Sync(s.ctl.Tree)
	}
	r, err := m.Measure(name)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, r)
	return nil
}

// command runs one console command. Commands that only act reply OK;
// queries write their own reply.
func (s *Server) command(cmd string, args []string, w io.Writer) (ok bool, err error) {
	flag, args := flags.New(args, "-v")
	parm, args := parms.New(args, "-clk", "-rate")
	switch cmd {
	case "LIST":
		s.list(w, flag.ByName["-v"])
	case "RATE":
		c, err := s.clock(parm)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(w, c.Rate())
	case "ROUND":
		c, err := s.clock(parm)
		if err != nil {
			return false, err
		}
		r, err := parseRate(parm)
		if err != nil {
			return false, err
		}
		rr, err := c.RoundRate(r)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(w, rr)
	case "SET_RATE":
		c, err := s.clock(parm)
		if err != nil {
			return false, err
		}
		r, err := parseRate(parm)
		if err != nil {
			return false, err
		}
		return true, c.SetRate(r)
	case "ENABLE":
		c, err := s.clock(parm)
		if err != nil {
			return false, err
		}
		return true, c.Enable()
	case "DISABLE":
		c, err := s.clock(parm)
		if err != nil {
			return false, err
		}
		return true, c.Disable()
	case "MEASURE":
		return false, s.measure(w, parm)
	case "RAILS":
		s.rails(w)
	case "THERMAL":
		g := s.ctl.Gate
		if g == nil {
			fmt.Fprintln(w, "off")
			return false, nil
		}
		status, voted := g.State()
		thr := g.Thresholds()
		fmt.Fprintf(w, "enable=%d disable=%d cold=%#x voted=%v\n", thr.Enable, thr.Disable, status, voted)
	case "PM":
		if len(args) != 1 {
			return false, fmt.Errorf("PM takes prepare or post")
		}
		switch args[0] {
		case "prepare":
			return true, s.ctl.Prepare()
		case "post":
			return true, s.ctl.Resume()
		}
		return false, fmt.Errorf("unknown PM event: %s", args[0])
	default:
		return false, fmt.Errorf("unknown command: %s", cmd)
	}
	return false, nil
}

func (s *Server) handleConnection(c net.Conn) {
	glog.Infof("Handling connection from %v", c.RemoteAddr())
	defer c.Close()
	r := bufio.NewReader(c)
	w := bufio.NewWriter(c)
	for {
		l, err := r.ReadString('\n')
		if err == io.EOF {
			glog.V(1).Infof("EOF for connection %v", c.RemoteAddr())
			return
		}
		if err != nil {
			glog.Errorf("Error reading string for connection %v: %v", c.RemoteAddr(), err)
			return
		}
		t := strings.Fields(l)
		if len(t) == 0 {
			continue
		}
		glog.V(1).Infof("Got line '%s'", strings.TrimSpace(l))
		cmd := strings.ToUpper(t[0])
		if cmd == "QUIT" {
			return
		}
		ok, err := s.command(cmd, t[1:], w)
		if err != nil {
			es := fmt.Sprintf("%s failed: %v", cmd, err)
			glog.Error(es)
			w.WriteString("ERR: " + es + "\n")
		} else if ok {
			w.WriteString("OK\n")
		}
		if err := w.Flush(); err != nil {
			glog.Errorf("error writing reply: %v", err)
			return
		}
	}
}

func (s *Server) handleConnections() {
	for {
		conn, err := s.l.Accept()
		if err != nil {
			glog.Errorf("Error accepting connection: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}
