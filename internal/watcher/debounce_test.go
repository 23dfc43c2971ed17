package watcher

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_Add_SingleFile(t *testing.T) {
	var mu sync.Mutex
	var got []string
	d := NewDebouncer(20*time.Millisecond, func(path string) {
		mu.Lock()
		got = append(got, path)
		mu.Unlock()
	})

	d.Add("/a")
	if d.PendingCount() != 1 {
		t.Errorf("expected 1 pending, got %d", d.PendingCount())
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "/a" {
		t.Errorf("expected one callback for /a, got %v", got)
	}
	if d.PendingCount() != 0 {
		t.Errorf("expected nothing pending, got %d", d.PendingCount())
	}
}

func TestDebouncer_Add_CoalescesRapidEvents(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func(string) { calls.Add(1) })

	for i := 0; i < 5; i++ {
		d.Add("/a")
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if calls.Load() != 1 {
		t.Errorf("expected 1 callback, got %d", calls.Load())
	}
}

func TestDebouncer_Touch(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(20*time.Millisecond, func(string) { calls.Add(1) })

	d.Touch("/unknown")
	if d.PendingCount() != 0 {
		t.Errorf("Touch must not schedule unknown paths")
	}

	d.Add("/a")
	d.Touch("/a")
	time.Sleep(100 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("expected 1 callback, got %d", calls.Load())
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func(string) { calls.Add(1) })

	d.Add("/a")
	d.Add("/b")
	d.Cancel("/a")
	d.Cancel("/missing")
	time.Sleep(100 * time.Millisecond)

	if calls.Load() != 1 {
		t.Errorf("expected 1 callback, got %d", calls.Load())
	}
}

func TestDebouncer_CancelAll(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func(string) { calls.Add(1) })

	d.Add("/a")
	d.Add("/b")
	d.CancelAll()
	time.Sleep(100 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("expected no callbacks, got %d", calls.Load())
	}
	if d.PendingCount() != 0 {
		t.Errorf("expected nothing pending, got %d", d.PendingCount())
	}
}

func TestDebouncer_NilCallback(t *testing.T) {
	d := NewDebouncer(time.Millisecond, nil)
	d.Add("/a")
	time.Sleep(20 * time.Millisecond)
}

func TestDebouncer_ConcurrentAccess(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(100*time.Millisecond, func(string) { calls.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				d.Add("/shared")
				d.Touch("/shared")
			}
		}()
	}
	wg.Wait()
	time.Sleep(300 * time.Millisecond)

	if calls.Load() != 1 {
		t.Errorf("expected 1 callback, got %d", calls.Load())
	}
}
