package baseband

// TicksPerSecond is the rate of the low-power hardware clock that due-times
// are expressed in.
const TicksPerSecond = 32768

// Usecs is a duration in microseconds. All radio timing inside the engines is
// computed in microseconds.
type Usecs uint32

// Time is an instant on the hardware clock: a 32768 Hz tick count plus a
// microsecond offset from the first whole microsecond of that tick. The
// instant is exact: t.Add(a).Add(b).Sub(t) is always a+b.
type Time struct {
	Ticks uint32
	Usec  uint8
}

// wrapUsecs is the length of a full turn of the tick counter. 2^32 ticks are
// a whole number of microseconds.
const wrapUsecs = (1 << 32) / TicksPerSecond * 1000000

// tickStart returns the first whole microsecond inside tick.
func tickStart(tick uint64) uint64 {
	return (tick*1000000 + TicksPerSecond - 1) / TicksPerSecond
}

// lastTick returns the last tick whose first whole microsecond is at or
// before us.
func lastTick(us uint64) uint64 {
	return us * TicksPerSecond / 1000000
}

// usecs returns t as microseconds since the counter last wrapped.
func (t Time) usecs() uint64 {
	return tickStart(uint64(t.Ticks)) + uint64(t.Usec)
}

func timeAt(us uint64) Time {
	us %= wrapUsecs
	tick := lastTick(us)
	return Time{Ticks: uint32(tick), Usec: uint8(us - tickStart(tick))}
}

// Add returns the instant d microseconds after t.
func (t Time) Add(d Usecs) Time {
	return timeAt(t.usecs() + uint64(d))
}

// Sub returns t-u in microseconds. The tick counter may have wrapped between
// the two instants as long as they are less than half a wrap apart.
func (t Time) Sub(u Time) int64 {
	d := int64((t.usecs() + 2*wrapUsecs - u.usecs()) % wrapUsecs)
	if d >= wrapUsecs/2 {
		d -= wrapUsecs
	}
	return d
}

// Before reports whether t is earlier than u.
func (t Time) Before(u Time) bool {
	return t.Sub(u) < 0
}

// Interval is a BLE interval in 0.625ms units, as used by the advertising and
// scan interval parameters.
type Interval uint32

// NewInterval returns a new interval, based on an interval in milliseconds.
func NewInterval(intervalMillis uint32) Interval {
	// Convert an interval to units of 0.625ms.
	return Interval(intervalMillis * 8 / 5)
}

// Usecs returns the interval in microseconds.
func (i Interval) Usecs() Usecs {
	return Usecs(i) * 625
}

// RemainingScanDuration returns how long the scanner may keep its receiver
// open, measured from ref. The window left in the operation is reduced by the
// preamble and access address time of phy and by the setup delay, clamped so it
// does not overrun the next operation, and limited to maxPeriod when non-zero.
//
// A zero result means scanning must stop now. In that case *elapsed is set to
// the operation's maximum duration so later calls keep returning zero.
func RemainingScanDuration(op *Operation, phy PHY, elapsed *Usecs, ref Time, setup, maxPeriod Usecs) Usecs {
	guard := PreambleAAUsecs(phy)
	if *elapsed >= op.MaxDuration || op.MaxDuration-*elapsed < guard {
		*elapsed = op.MaxDuration
		return 0
	}
	window := op.MaxDuration - *elapsed

	if op.Next != nil {
		gap := op.Next.Due.Sub(ref) - int64(setup)
		if gap <= 0 {
			*elapsed = op.MaxDuration
			return 0
		}
		if gap < int64(window) {
			window = Usecs(gap)
		}
	}

	if window < guard || window-guard <= setup {
		*elapsed = op.MaxDuration
		return 0
	}
	dur := window - guard - setup

	if maxPeriod != 0 && dur > maxPeriod {
		dur = maxPeriod
	}
	return dur
}

// AlignedOffset rounds gap up to the next multiple of unit.
func AlignedOffset(gap, unit Usecs) Usecs {
	if unit == 0 {
		return gap
	}
	return (gap + unit - 1) / unit * unit
}

// Offset units of the AUX_PTR field.
const (
	AuxOffsetUnit30  Usecs = 30
	AuxOffsetUnit300 Usecs = 300

	// auxOffsetLimit30 is the first offset that no longer fits the 13-bit
	// offset field in 30µs units.
	auxOffsetLimit30 Usecs = 245700
)

// AuxOffsetUnit returns the AUX_PTR offset granularity that can express gap.
func AuxOffsetUnit(gap Usecs) Usecs {
	if gap < auxOffsetLimit30 {
		return AuxOffsetUnit30
	}
	return AuxOffsetUnit300
}
