package baseband

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeAddSub(t *testing.T) {
	starts := []Time{
		{},
		{Ticks: 12345, Usec: 17},
		{Ticks: 0xfffffff0, Usec: 30}, // wraps
	}
	for _, start := range starts {
		for _, d := range []Usecs{0, 1, 30, 31, 150, 1000, 625000, 10000000} {
			end := start.Add(d)
			assert.Equal(t, int64(d), end.Sub(start), "start %v + %d", start, d)
			assert.Equal(t, -int64(d), start.Sub(end))
			assert.True(t, end.Usec < 32, "sub-tick offset %d", end.Usec)
			if d > 0 {
				assert.True(t, start.Before(end))
				assert.False(t, end.Before(start))
			}
		}
	}
}

func TestTimeAddComposes(t *testing.T) {
	starts := []Time{{}, {Ticks: 777}, {Ticks: 0xffffff00}}
	steps := []Usecs{1, 31, 150, 625, 1500, 245700}
	for _, start := range starts {
		for _, a := range steps {
			for _, b := range steps {
				got := start.Add(a).Add(b)
				assert.Equal(t, int64(a+b), got.Sub(start), "start %v + %d + %d", start, a, b)
				assert.Equal(t, start.Add(a+b), got)
			}
		}
	}
	assert.Equal(t, int64(62), Time{}.Add(31).Add(31).Sub(Time{}))
}

func TestTimeCadenceDoesNotDrift(t *testing.T) {
	due := Time{Ticks: 100}
	ref := due
	for i := 1; i <= 2000; i++ {
		ref = ref.Add(625)
		if got := ref.Sub(due); got != int64(625*i) {
			t.Fatalf("step %d: %d µs after due, want %d", i, got, 625*i)
		}
	}
	// 1250000 µs is exactly 40960 ticks.
	assert.Equal(t, Time{Ticks: 100 + 40960}, ref)
}

func TestTimeWholeTicks(t *testing.T) {
	tests := []struct {
		d    Usecs
		want Time
	}{
		{0, Time{}},
		{30, Time{Ticks: 0, Usec: 30}},
		{31, Time{Ticks: 1, Usec: 0}},
		{61, Time{Ticks: 1, Usec: 30}},
		{62, Time{Ticks: 2, Usec: 0}},
		{1000000, Time{Ticks: TicksPerSecond}},
	}
	for _, tc := range tests {
		if got := (Time{}).Add(tc.d); got != tc.want {
			t.Errorf("Add(%d) = %+v, want %+v", tc.d, got, tc.want)
		}
	}
}

func TestNewInterval(t *testing.T) {
	assert.Equal(t, Interval(160), NewInterval(100))
	assert.Equal(t, Usecs(100000), NewInterval(100).Usecs())
	assert.Equal(t, Interval(32), NewInterval(20))
}

func TestRemainingScanDuration(t *testing.T) {
	ref := Time{Ticks: 1000}
	next := func(d int) *Operation {
		return &Operation{Due: ref.Add(Usecs(d))}
	}
	tests := []struct {
		name      string
		phy       PHY
		max       Usecs
		elapsed   Usecs
		next      *Operation
		maxPeriod Usecs
		want      Usecs
	}{
		{"full window", PHY1M, 10000, 0, nil, 0, 10000 - 40 - 100},
		{"partly used", PHY1M, 10000, 4000, nil, 0, 6000 - 40 - 100},
		{"coded guard", PHYCoded, 10000, 0, nil, 0, 10000 - 336 - 100},
		{"2M guard", PHY2M, 10000, 0, nil, 0, 10000 - 24 - 100},
		{"used up", PHY1M, 10000, 10000, nil, 0, 0},
		{"overused", PHY1M, 10000, 12000, nil, 0, 0},
		{"below guard", PHY1M, 10000, 9970, nil, 0, 0},
		{"guard plus setup", PHY1M, 10000, 9860, nil, 0, 0},
		{"one past guard plus setup", PHY1M, 10000, 9859, nil, 0, 1},
		{"max period", PHY1M, 10000, 0, nil, 5000, 5000},
		{"max period not reached", PHY1M, 10000, 8000, nil, 5000, 2000 - 140},
		{"next operation", PHY1M, 10000, 0, next(3000), 0, 3000 - 100 - 140},
		{"next operation far", PHY1M, 10000, 0, next(50000), 0, 10000 - 140},
		{"next operation overdue", PHY1M, 10000, 0, next(50), 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			op := &Operation{MaxDuration: tc.max, Next: tc.next}
			elapsed := tc.elapsed
			got := RemainingScanDuration(op, tc.phy, &elapsed, ref, 100, tc.maxPeriod)
			assert.Equal(t, tc.want, got)
			if got == 0 {
				assert.Equal(t, tc.max, elapsed)
			} else {
				assert.Equal(t, tc.elapsed, elapsed)
			}
		})
	}
}

func TestRemainingScanDurationMonotonic(t *testing.T) {
	op := &Operation{MaxDuration: 30000}
	prev := Usecs(1 << 31)
	for e := Usecs(0); e <= 31000; e += 7 {
		elapsed := e
		d := RemainingScanDuration(op, PHY1M, &elapsed, Time{}, 100, 0)
		if d > prev {
			t.Fatalf("duration grew from %d to %d at elapsed %d", prev, d, e)
		}
		if d > 0 && Usecs(d)+e > op.MaxDuration {
			t.Fatalf("duration %d at elapsed %d overruns the operation", d, e)
		}
		prev = d
	}
	if prev != 0 {
		t.Errorf("expected exhausted scan, got %d", prev)
	}
}

func TestAlignedOffset(t *testing.T) {
	tests := []struct {
		gap, unit, want Usecs
	}{
		{0, 30, 0},
		{1, 30, 30},
		{30, 30, 30},
		{31, 30, 60},
		{500, 30, 510},
		{245701, 300, 246000},
		{77, 0, 77},
	}
	for _, tc := range tests {
		if got := AlignedOffset(tc.gap, tc.unit); got != tc.want {
			t.Errorf("AlignedOffset(%d, %d) = %d, want %d", tc.gap, tc.unit, got, tc.want)
		}
	}
	assert.Equal(t, AuxOffsetUnit30, AuxOffsetUnit(245699))
	assert.Equal(t, AuxOffsetUnit300, AuxOffsetUnit(245700))
}
