// Package progress converts completed/total task counts into a monotonic
// percentage.
//
// While a stage is running the value is ceil(99*completed/total), so it never
// reaches 100 before the caller finishes its post-processing and calls Finish.
package progress

// Reporter tracks completed units and emits whole percentages.
// It is not safe for concurrent use; the stage controller goroutine owns it.
type Reporter struct {
	total     int
	completed int
	last      int
	finished  bool
	muted     bool
	emit      func(percent int)
}

// New returns a reporter for total units. emit may be nil.
func New(total int, emit func(percent int)) *Reporter {
	if emit == nil {
		emit = func(int) {}
	}
	return &Reporter{total: max(total, 0), emit: emit}
}

// Step records one completed unit and emits the new percentage if it
// increased.
func (r *Reporter) Step() {
	if r.finished || r.completed >= r.total {
		return
	}
	r.completed++
	if r.muted {
		return
	}

	// Integer ceiling of 99*completed/total.
	pct := (99*r.completed + r.total - 1) / r.total
	if pct > r.last {
		r.last = pct
		r.emit(pct)
	}
}

// Suppress stops further emission. Used once the abort latch is set.
func (r *Reporter) Suppress() {
	r.muted = true
}

// Finish emits 100 exactly once unless the reporter was suppressed.
func (r *Reporter) Finish() {
	if r.finished || r.muted {
		return
	}
	r.finished = true
	r.last = 100
	r.emit(100)
}

// Completed returns the number of recorded units.
func (r *Reporter) Completed() int {
	return r.completed
}

// Total returns the number of expected units.
func (r *Reporter) Total() int {
	return r.total
}

// Percent returns the last emitted value.
func (r *Reporter) Percent() int {
	return r.last
}
