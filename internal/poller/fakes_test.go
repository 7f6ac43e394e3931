package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/housekeeper/internal/abort"
	"github.com/shaiso/housekeeper/internal/telemetry"
)

type fakeLeader struct {
	leader atomic.Bool
}

func newFakeLeader(leader bool) *fakeLeader {
	l := &fakeLeader{}
	l.leader.Store(leader)
	return l
}

func (l *fakeLeader) IsLeader() bool { return l.leader.Load() }

// countingLock — SchedulerLock со счётчиками вызовов.
type countingLock struct {
	inner    *SchedulerLock
	acquires atomic.Int32
	releases atomic.Int32
}

func newCountingLock() *countingLock {
	return &countingLock{inner: NewSchedulerLock(nil)}
}

func (l *countingLock) Acquire() {
	l.acquires.Add(1)
	l.inner.Acquire()
}

func (l *countingLock) Release() error {
	l.releases.Add(1)
	return l.inner.Release()
}

// brokenLock нарушает протокол: Release всегда неуспешен.
type brokenLock struct{}

func (brokenLock) Acquire()       {}
func (brokenLock) Release() error { return ErrLockNotHeld }

type recordingNotifier struct {
	mu   sync.Mutex
	errs []error
	tags []map[string]string
}

func (n *recordingNotifier) Notify(_ context.Context, err error, tags map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
	n.tags = append(n.tags, tags)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errs)
}

type abortCall struct {
	reason abort.Reason
	cause  error
}

type recordingAborter struct {
	mu    sync.Mutex
	calls []abortCall
}

func (a *recordingAborter) Abort(_ context.Context, reason abort.Reason, cause error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, abortCall{reason: reason, cause: cause})
}

func (a *recordingAborter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type harness struct {
	leader   *fakeLeader
	lock     *countingLock
	notifier *recordingNotifier
	aborter  *recordingAborter
}

func newHarness(leader bool) *harness {
	return &harness{
		leader:   newFakeLeader(leader),
		lock:     newCountingLock(),
		notifier: &recordingNotifier{},
		aborter:  &recordingAborter{},
	}
}

func (h *harness) config(name string, interval time.Duration, action Action) Config {
	return Config{
		Name:       name,
		Interval:   interval,
		LockType:   LockScheduler,
		Lock:       h.lock,
		Action:     action,
		Leadership: h.leader,
		Notifier:   h.notifier,
		Abort:      h.aborter,
		Logger:     telemetry.DiscardLogger(),
	}
}

func mustNew(t *testing.T, cfg Config) *Poller {
	t.Helper()
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// waitFor опрашивает cond до таймаута.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
