package prints

import "prefcore/internal/domain"

// ring is a fixed-capacity ring buffer of trade prints. Oldest entries are
// evicted on overflow. Prints arrive in time order, so the buffer stays
// time-monotonic without sorting.
type ring struct {
	buf   []domain.TradePrint
	start int
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]domain.TradePrint, capacity)}
}

func (r *ring) push(p domain.TradePrint) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = p
		r.count++
		return
	}
	r.buf[r.start] = p
	r.start = (r.start + 1) % len(r.buf)
}

// evictBefore drops prints older than the cutoff from the front.
func (r *ring) evictBefore(cutoff int64) {
	for r.count > 0 && r.buf[r.start].Timestamp.UnixNano() < cutoff {
		r.start = (r.start + 1) % len(r.buf)
		r.count--
	}
}

// each calls fn over the buffered prints in time order.
func (r *ring) each(fn func(domain.TradePrint)) {
	for i := 0; i < r.count; i++ {
		fn(r.buf[(r.start+i)%len(r.buf)])
	}
}

func (r *ring) len() int { return r.count }
