package clk

// Regs is a block of 32-bit hardware registers. Accesses are synchronous and
// can't fail; Delay busy-waits.
type Regs interface {
	Read32(off uint32) uint32
	Write32(off uint32, val uint32)
	Barrier()
	Delay(us int)
}

// BIT and BM build masks the way the register manuals describe fields.
func BIT(n uint) uint32 {
	return 1 << n
}

func BM(msb, lsb uint) uint32 {
	return (^uint32(0) >> (31 - msb)) &^ (1<<lsb - 1)
}

// BVAL places val into the field msb:lsb.
func BVAL(msb, lsb uint, val uint32) uint32 {
	return val << lsb & BM(msb, lsb)
}

// rmw replaces the bits of mask in off with those of val.
func rmw(r Regs, off uint32, mask uint32, val uint32) {
	v := r.Read32(off)
	r.Write32(off, v&^mask|val&mask)
}

func setBits(r Regs, off uint32, bits uint32) {
	r.Write32(off, r.Read32(off)|bits)
}

func clearBits(r Regs, off uint32, bits uint32) {
	r.Write32(off, r.Read32(off)&^bits)
}

// pollUntil calls done up to maxIters times, waiting interval microseconds
// after each miss. It reports a *TimeoutError wrapping kind when done never
// returns true.
func pollUntil(r Regs, clock, op string, kind error, maxIters, interval int, done func() bool) error {
	for i := 0; i < maxIters; i++ {
		if done() {
			return nil
		}
		r.Delay(interval)
	}
	if done() {
		return nil
	}
	return &TimeoutError{Clock: clock, Op: op, Iters: maxIters, Err: kind}
}
