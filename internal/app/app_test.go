package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/housekeeper/internal/leader"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForLog(t *testing.T, buf *syncBuffer, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), msg) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("log %q not written; got:\n%s", msg, buf.String())
}

func TestWatchLeadership_LogsTransitions(t *testing.T) {
	buf := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))
	state := leader.NewStatic(false)
	changes := state.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watchLeadership(ctx, changes, logger)
		close(done)
	}()

	state.Set(true)
	waitForLog(t, buf, "leadership acquired")

	state.Set(false)
	waitForLog(t, buf, "leadership lost")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchLeadership did not return after cancel")
	}
}
