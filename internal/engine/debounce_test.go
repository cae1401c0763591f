package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

// fireRecorder collects the changed sets a debouncer delivers.
type fireRecorder struct {
	mu    sync.Mutex
	fires [][]string
}

func (f *fireRecorder) fire(_ context.Context, changed *ChangedSet) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fires = append(f.fires, changed.Members())
}

func (f *fireRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fires)
}

func (f *fireRecorder) last() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.fires) == 0 {
		return nil
	}
	return f.fires[len(f.fires)-1]
}

// settle gives the debouncer goroutine a moment to pick up channel sends
// or timer fires driven by the fake clock.
func settle() { time.Sleep(20 * time.Millisecond) }

func startDebouncer(t *testing.T, clock clockz.Clock, window time.Duration) (*fireRecorder, chan string) {
	t.Helper()
	rec := &fireRecorder{}
	notifications := make(chan string)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	deb := NewDebouncer(window, clock, testLogger(), rec.fire)
	go func() {
		defer close(done)
		_ = deb.Run(ctx, notifications)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return rec, notifications
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	clock := clockz.NewFakeClock()
	rec, notifications := startDebouncer(t, clock, time.Second)

	notifications <- "/records/a"
	notifications <- "/records/b"
	notifications <- "/records/c"
	notifications <- "/records/b" // duplicate
	settle()

	if rec.count() != 0 {
		t.Fatalf("fired before window elapsed: %d", rec.count())
	}

	clock.Advance(1100 * time.Millisecond)
	clock.BlockUntilReady()
	settle()

	if rec.count() != 1 {
		t.Fatalf("fire count = %d, want exactly 1", rec.count())
	}
	got := rec.last()
	want := []string{"/records/a", "/records/b", "/records/c"}
	if len(got) != len(want) {
		t.Fatalf("changed set = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("changed set = %v, want %v", got, want)
		}
	}
}

func TestDebouncerReArmRestartsWindow(t *testing.T) {
	clock := clockz.NewFakeClock()
	rec, notifications := startDebouncer(t, clock, time.Second)

	notifications <- "/records/a"
	settle()
	clock.Advance(600 * time.Millisecond)
	clock.BlockUntilReady()
	settle()

	// Second notification inside the window restarts it.
	notifications <- "/records/b"
	settle()
	clock.Advance(600 * time.Millisecond)
	clock.BlockUntilReady()
	settle()

	if rec.count() != 0 {
		t.Fatalf("fired before restarted window elapsed: %d", rec.count())
	}

	clock.Advance(500 * time.Millisecond)
	clock.BlockUntilReady()
	settle()

	if rec.count() != 1 {
		t.Fatalf("fire count = %d, want 1", rec.count())
	}
	if got := rec.last(); len(got) != 2 {
		t.Fatalf("changed set = %v, want both members", got)
	}
}

func TestDebouncerDiscardsSetBetweenFires(t *testing.T) {
	clock := clockz.NewFakeClock()
	rec, notifications := startDebouncer(t, clock, time.Second)

	notifications <- "/records/a"
	settle()
	clock.Advance(1100 * time.Millisecond)
	clock.BlockUntilReady()
	settle()

	notifications <- "/records/b"
	settle()
	clock.Advance(1100 * time.Millisecond)
	clock.BlockUntilReady()
	settle()

	if rec.count() != 2 {
		t.Fatalf("fire count = %d, want 2", rec.count())
	}
	got := rec.last()
	if len(got) != 1 || got[0] != "/records/b" {
		t.Fatalf("second set = %v, want only /records/b", got)
	}
}

func TestDebouncerStopsOnClosedChannel(t *testing.T) {
	clock := clockz.NewFakeClock()
	rec := &fireRecorder{}
	notifications := make(chan string)
	deb := NewDebouncer(time.Second, clock, testLogger(), rec.fire)

	done := make(chan error, 1)
	go func() {
		done <- deb.Run(context.Background(), notifications)
	}()

	close(notifications)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v on closed channel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after channel close")
	}
}
