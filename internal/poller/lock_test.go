package poller

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerLock_ReleaseWithoutAcquire(t *testing.T) {
	l := NewSchedulerLock(nil)

	if err := l.Release(); !errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("expected ErrLockNotHeld, got %v", err)
	}

	l.Acquire()
	if err := l.Release(); err != nil {
		t.Fatalf("paired release failed: %v", err)
	}
	if err := l.Release(); !errors.Is(err, ErrLockNotHeld) {
		t.Fatalf("double release must fail, got %v", err)
	}
}

func TestSchedulerLock_Serializes(t *testing.T) {
	l := NewSchedulerLock(nil)

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Acquire()
			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			if err := l.Release(); err != nil {
				t.Errorf("release: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInside.Load() != 1 {
		t.Errorf("expected mutual exclusion, max inside = %d", maxInside.Load())
	}
	if l.Held() {
		t.Error("lock should be free")
	}
}

func TestSchedulerLock_NotReentrant(t *testing.T) {
	l := NewSchedulerLock(nil)
	l.Acquire()

	acquired := make(chan struct{})
	go func() {
		l.Acquire()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire must block while lock is held")
	case <-time.After(20 * time.Millisecond):
	}

	if err := l.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	<-acquired
	_ = l.Release()
}

func TestLockType_String(t *testing.T) {
	if LockNone.String() != "none" || LockScheduler.String() != "scheduler" {
		t.Error("unexpected lock type names")
	}
}
