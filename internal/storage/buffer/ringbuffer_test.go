package buffer

import (
	"fmt"
	"testing"
	"time"

	"github.com/xtxerr/rrdb/internal/storage/types"
	"github.com/xtxerr/rrdb/internal/testutil"
)

func sample(ts int64, v ...float64) types.Sample {
	return types.Sample{TimestampMs: ts, Values: v}
}

func TestSampleRing_Basic(t *testing.T) {
	r := New(10)

	if r.Cap() != 10 {
		t.Errorf("expected capacity=10, got %d", r.Cap())
	}
	if r.Len() != 0 {
		t.Error("new ring should be empty")
	}
	if r.Position() != -1 {
		t.Errorf("expected position=-1, got %d", r.Position())
	}
	if oldest, newest := r.TimeRange(); oldest != 0 || newest != 0 || r.IsFull() {
		t.Error("empty ring has no range")
	}
}

func TestSampleRing_ZeroCapacity(t *testing.T) {
	r := New(0)
	if r.Cap() != 1 {
		t.Errorf("expected capacity=1, got %d", r.Cap())
	}
}

func TestSampleRing_PushInOrder(t *testing.T) {
	r := New(5)

	for i := 0; i < 3; i++ {
		if r.Push(sample(int64(i)*1000, float64(i))) {
			t.Errorf("push %d should not evict", i)
		}
	}

	got := r.Samples()
	if len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}
	for i, s := range got {
		if s.Values[0] != float64(i) {
			t.Errorf("sample %d: expected %d, got %v", i, i, s.Values[0])
		}
	}
	if r.Position() != 2 {
		t.Errorf("expected position=2, got %d", r.Position())
	}
}

func TestSampleRing_Overwrite(t *testing.T) {
	r := New(5)

	for i := 0; i < 12; i++ {
		evicted := r.Push(sample(int64(i), float64(i)))
		if want := i >= 5; evicted != want {
			t.Errorf("push %d: evicted=%v, want %v", i, evicted, want)
		}
		if r.Len() > r.Cap() {
			t.Fatalf("length %d exceeds capacity %d", r.Len(), r.Cap())
		}
	}

	got := r.Samples()
	if len(got) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(got))
	}
	for i, s := range got {
		if want := float64(7 + i); s.Values[0] != want {
			t.Errorf("sample %d: expected %v, got %v", i, want, s.Values[0])
		}
	}

	if !r.IsFull() {
		t.Error("ring should be full")
	}

	oldest, latest := r.TimeRange()
	if oldest != 7 || latest != 11 {
		t.Errorf("expected range 7..11, got %d..%d", oldest, latest)
	}
	if r.Duration() != 4*time.Millisecond {
		t.Errorf("expected span 4ms, got %v", r.Duration())
	}

	if r.Position() != 1 {
		t.Errorf("expected position=1, got %d", r.Position())
	}

	stats := r.Stats()
	if stats.PushCount != 12 || stats.DropCount != 7 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestSampleRing_SamplesAreCopies(t *testing.T) {
	r := New(2)
	r.Push(sample(1, 1))

	got := r.Samples()
	got[0].Values[0] = 99

	again := r.Samples()
	if again[0].Values[0] != 1 {
		t.Error("Samples must not expose ring storage")
	}
}

func TestRestore(t *testing.T) {
	orig := New(4)
	for i := 0; i < 7; i++ {
		orig.Push(sample(int64(i), float64(i)))
	}

	restored := Restore(orig.Cap(), orig.Samples(), orig.Pushed())

	if restored.Position() != orig.Position() {
		t.Errorf("position %d, want %d", restored.Position(), orig.Position())
	}
	a, b := orig.Samples(), restored.Samples()
	if len(a) != len(b) {
		t.Fatalf("len %d, want %d", len(b), len(a))
	}
	for i := range a {
		if a[i].TimestampMs != b[i].TimestampMs || a[i].Values[0] != b[i].Values[0] {
			t.Errorf("sample %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}

	// Pushing continues from the same slot.
	orig.Push(sample(7, 7))
	restored.Push(sample(7, 7))
	if restored.Position() != orig.Position() {
		t.Errorf("position after push %d, want %d", restored.Position(), orig.Position())
	}
}

func TestRestoreTruncates(t *testing.T) {
	samples := []types.Sample{sample(1, 1), sample(2, 2), sample(3, 3)}
	r := Restore(2, samples, 0)

	got := r.Samples()
	if len(got) != 2 || got[0].TimestampMs != 2 || got[1].TimestampMs != 3 {
		t.Errorf("unexpected samples %+v", got)
	}
}

func TestSampleRing_Concurrent(t *testing.T) {
	r := New(100)

	gt := testutil.NewGoroutineTest(t)
	for g := 0; g < 4; g++ {
		gt.Go(func() error {
			for i := 0; i < 250; i++ {
				r.Push(sample(int64(g*1000+i), float64(i)))
				if n := len(r.Samples()); n > r.Cap() {
					return fmt.Errorf("snapshot of %d samples exceeds capacity", n)
				}
			}
			return nil
		})
	}
	gt.Wait()

	if r.Len() != 100 {
		t.Errorf("expected len=100, got %d", r.Len())
	}
	if r.Pushed() != 1000 {
		t.Errorf("expected 1000 pushes, got %d", r.Pushed())
	}
}
