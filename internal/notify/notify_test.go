package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/housekeeper/internal/mq"
	"github.com/shaiso/housekeeper/internal/telemetry"
)

type fakePublisher struct {
	payloads []mq.FailurePayload
	err      error
}

func (p *fakePublisher) PublishFailure(_ context.Context, payload mq.FailurePayload) error {
	p.payloads = append(p.payloads, payload)
	return p.err
}

func TestNotifier_PublishesAndCounts(t *testing.T) {
	pub := &fakePublisher{}
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	n := New(Config{Logger: telemetry.DiscardLogger(), Metrics: metrics, Publisher: pub})

	n.Notify(context.Background(), errors.New("store timeout"), map[string]string{
		"source": "poller",
		"poller": "mail-record-cleaner",
	})

	if len(pub.payloads) != 1 {
		t.Fatalf("expected 1 published payload, got %d", len(pub.payloads))
	}
	if pub.payloads[0].Error != "store timeout" {
		t.Errorf("unexpected error text: %q", pub.payloads[0].Error)
	}
	if pub.payloads[0].Tags["poller"] != "mail-record-cleaner" {
		t.Errorf("tags not propagated: %v", pub.payloads[0].Tags)
	}
	if got := testutil.ToFloat64(metrics.Notifications.WithLabelValues("poller")); got != 1 {
		t.Errorf("expected notification counted, got %v", got)
	}
}

func TestNotifier_PublishFailureIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	n := New(Config{Logger: telemetry.DiscardLogger(), Publisher: pub})

	// не должно паниковать
	n.Notify(context.Background(), errors.New("boom"), nil)

	if len(pub.payloads) != 1 {
		t.Fatalf("expected publish attempt, got %d", len(pub.payloads))
	}
}

func TestNotifier_CanceledContextStillPublishes(t *testing.T) {
	pub := &fakePublisher{}
	n := New(Config{Logger: telemetry.DiscardLogger(), Publisher: pub})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Notify(ctx, errors.New("boom"), map[string]string{"source": "poller"})

	if len(pub.payloads) != 1 {
		t.Fatalf("expected publish despite canceled ctx, got %d", len(pub.payloads))
	}
}

func TestNotifier_NilErrorIgnored(t *testing.T) {
	pub := &fakePublisher{}
	n := New(Config{Logger: telemetry.DiscardLogger(), Publisher: pub})

	n.Notify(context.Background(), nil, nil)

	if len(pub.payloads) != 0 {
		t.Fatalf("nil error must not be published")
	}
}
