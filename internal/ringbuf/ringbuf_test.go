package ringbuf

import (
	"math"
	"testing"
)

func TestWindow_FillAndEvict(t *testing.T) {
	w := New(3)

	for _, v := range []float64{1, 2, 3} {
		w.Push(v)
	}
	if !w.Full() {
		t.Fatal("expected window to be full after 3 pushes")
	}

	w.Push(4)
	if w.Len() != 3 {
		t.Fatalf("expected len=3, got %d", w.Len())
	}
	if w.Sum() != 9 {
		t.Fatalf("expected sum of [2 3 4]=9, got %v", w.Sum())
	}
}

func TestWindow_MeanRequiresFull(t *testing.T) {
	w := New(4)
	w.Push(10)
	w.Push(20)

	if _, ok := w.Mean(); ok {
		t.Fatal("mean should not be ready on partial window")
	}
	if w.Len() != 2 {
		t.Errorf("expected len=2, got %d", w.Len())
	}
	if w.Sum() != 30 {
		t.Errorf("expected partial sum=30, got %v", w.Sum())
	}

	w.Push(30)
	w.Push(40)
	m, ok := w.Mean()
	if !ok || m != 25 {
		t.Fatalf("expected mean=25, got %v ok=%v", m, ok)
	}
}

func TestWindow_NoDriftOverLongSeries(t *testing.T) {
	w := New(5)
	for i := 0; i < 100000; i++ {
		w.Push(0.1 * float64(i%7))
	}
	// The last five pushes are i = 99995..99999, i%7 = 0,1,2,3,4.
	want := 0.1 * (0 + 1 + 2 + 3 + 4)
	if math.Abs(w.Sum()-want) > 1e-12 {
		t.Errorf("sum drifted: got %.15f, want %.15f", w.Sum(), want)
	}
}

func TestWindow_SumAfterLargeValueLeaves(t *testing.T) {
	w := New(2)
	w.Push(1e16)
	w.Push(1)
	w.Push(1)
	// An incrementally maintained sum would have lost the 1 added next to 1e16.
	if w.Sum() != 2 {
		t.Errorf("expected sum=2 once 1e16 leaves the window, got %v", w.Sum())
	}
}

func TestWindow_MinimumSize(t *testing.T) {
	w := New(0)
	w.Push(7)
	if !w.Full() || w.Len() != 1 {
		t.Fatalf("expected a full one-value window, len=%d", w.Len())
	}
	if m, ok := w.Mean(); !ok || m != 7 {
		t.Errorf("expected mean=7, got %v ok=%v", m, ok)
	}
}
