// Package ringbuf provides a fixed-size rolling window over float64 values.
// It backs every windowed indicator. The window keeps the last n values and
// Sum adds them up from the buffer on each call, so long series do not
// accumulate the drift of an incrementally maintained sum.
package ringbuf

// Window is a circular buffer holding the most recent n values.
// It is not safe for concurrent use.
type Window struct {
	buf   []float64
	idx   int // next write position
	count int // total values pushed
}

// New creates a window of the given size. Minimum size is 1.
func New(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{buf: make([]float64, size)}
}

// Push appends v, overwriting the oldest value once the window is full.
func (w *Window) Push(v float64) {
	w.buf[w.idx] = v
	w.idx = (w.idx + 1) % len(w.buf)
	w.count++
}

// Full reports whether the window holds its full size of values.
func (w *Window) Full() bool { return w.count >= len(w.buf) }

// Len returns the number of values currently held.
func (w *Window) Len() int {
	if w.count < len(w.buf) {
		return w.count
	}
	return len(w.buf)
}

// Sum returns the sum of the held values, recomputed over the buffer.
func (w *Window) Sum() float64 {
	n := w.Len()
	s := 0.0
	for i := 0; i < n; i++ {
		s += w.buf[i]
	}
	return s
}

// Mean returns the average of a full window. ok is false until the
// window is full.
func (w *Window) Mean() (mean float64, ok bool) {
	if !w.Full() {
		return 0, false
	}
	return w.Sum() / float64(len(w.buf)), true
}
