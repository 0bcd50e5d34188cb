package scdb

// PeriodTracker keeps track of the verification period window. Periods are
// fixed windows of the chain: period n covers heights [n*length,
// (n+1)*length), so every node agrees on the boundaries no matter at which
// height it started following. It only knows heights; clearing the SCDB
// when a period ends is up to the caller.
type PeriodTracker struct {
	length uint32

	// first height of the current period, always a multiple of length
	start int32

	// last height passed to Advance, -1 before the first call
	last int32
}

// NewPeriodTracker returns a tracker whose first period starts at height 0.
func NewPeriodTracker(length uint32) PeriodTracker {
	return PeriodTracker{length: length, last: -1}
}

// periodStart returns the first height of the period holding height.
func (p *PeriodTracker) periodStart(height int32) int32 {
	if p.length == 0 || height < 0 {
		return 0
	}
	return height - int32(int64(height)%int64(p.length))
}

// Advance moves the tracker to height and reports whether a period ended
// on the way there. When one did, the period holding height becomes the
// current one. Heights must be strictly increasing.
func (p *PeriodTracker) Advance(height int32) (bool, error) {
	if height <= p.last {
		return false, errNonMonotonicHeight(height, p.last)
	}
	p.last = height
	if !p.Elapsed(height) {
		return false, nil
	}
	p.start = p.periodStart(height)
	return true, nil
}

// Elapsed tells if height lies past the end of the current period.
func (p *PeriodTracker) Elapsed(height int32) bool {
	return p.periodStart(height) > p.start
}

// BlocksLeft returns how many blocks are left in the current period as seen
// from height.
func (p *PeriodTracker) BlocksLeft(height int32) uint32 {
	passed := int64(height) - int64(p.start)
	if passed < 0 {
		return p.length
	}
	if passed >= int64(p.length) {
		return 0
	}
	return p.length - uint32(passed)
}

// Start is the first height of the current period.
func (p *PeriodTracker) Start() int32 { return p.start }

// Last is the last height passed to Advance.
func (p *PeriodTracker) Last() int32 { return p.last }

// Length is the number of blocks in a period.
func (p *PeriodTracker) Length() uint32 { return p.length }

// Reset puts the tracker back to a fresh period starting at 0.
func (p *PeriodTracker) Reset() {
	p.start = 0
	p.last = -1
}
