package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pharma-redistribution-api-server/internal/models"
	"pharma-redistribution-api-server/internal/store"
	"pharma-redistribution-api-server/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecorder struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, entry models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return r.err
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type fakeDispatcher struct {
	mu      sync.Mutex
	targets []string
}

func (d *fakeDispatcher) Notify(_ context.Context, facilityID string, _ models.NotificationEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets = append(d.targets, facilityID)
	return nil
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.targets)
}

func commit(t *testing.T, st *memstore.Store, events ...models.OutboxEvent) {
	t.Helper()
	err := st.Execute(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Outbox().Append(ctx, events...)
	})
	require.NoError(t, err)
}

func sampleEvents(at time.Time) []models.OutboxEvent {
	return []models.OutboxEvent{
		NewAudit("u-b", "APPROVE_REDISTRIBUTION", "redistribution", "RDR-1", "approved", at),
		NewNotification("fac-a", models.NotificationEvent{Type: models.NotificationRedistributionApproved, DrugID: "lot-1"}, at),
		NewNotification("fac-b", models.NotificationEvent{Type: models.NotificationRedistributionApproved, DrugID: "lot-1"}, at),
	}
}

func TestRelay_DeliversEachEventOnce(t *testing.T) {
	st := memstore.New()
	evs := sampleEvents(time.Now())
	commit(t, st, evs...)
	rec, disp := &fakeRecorder{}, &fakeDispatcher{}
	relay := NewRelay(st.Outbox(), rec, disp, RelayConfig{}, zap.NewNop())

	for _, ev := range evs {
		relay.Deliver(context.Background(), ev)
		relay.Deliver(context.Background(), ev)
	}

	assert.Equal(t, 1, rec.count())
	assert.ElementsMatch(t, []string{"fac-a", "fac-b"}, disp.targets)
	for _, ev := range st.OutboxEvents() {
		assert.True(t, ev.Delivered, ev.ID)
	}
}

func TestRelay_SweepPicksUpOldUndelivered(t *testing.T) {
	st := memstore.New()
	old := sampleEvents(time.Now().Add(-time.Hour))
	fresh := NewAudit("u-a", "DISPENSE_STOCK", "inventory", "lot-9", "dispensed", time.Now())
	commit(t, st, append(old, fresh)...)
	rec, disp := &fakeRecorder{}, &fakeDispatcher{}
	relay := NewRelay(st.Outbox(), rec, disp, RelayConfig{SweepAge: time.Minute}, zap.NewNop())

	require.NoError(t, relay.Sweep(context.Background()))

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 2, disp.count())

	require.NoError(t, relay.Sweep(context.Background()))
	assert.Equal(t, 1, rec.count(), "delivered events are not swept again")
}

func TestRelay_SinkFailureDoesNotPropagate(t *testing.T) {
	st := memstore.New()
	evs := sampleEvents(time.Now())
	commit(t, st, evs...)
	rec := &fakeRecorder{err: errors.New("mongo unavailable")}
	disp := &fakeDispatcher{}
	relay := NewRelay(st.Outbox(), rec, disp, RelayConfig{}, zap.NewNop())

	assert.NotPanics(t, func() {
		for _, ev := range evs {
			relay.Deliver(context.Background(), ev)
		}
	})
	assert.Equal(t, 2, disp.count())
}

func TestRelay_RunDrainsPublishedEvents(t *testing.T) {
	st := memstore.New()
	evs := sampleEvents(time.Now())
	commit(t, st, evs...)
	rec, disp := &fakeRecorder{}, &fakeDispatcher{}
	relay := NewRelay(st.Outbox(), rec, disp, RelayConfig{Workers: 2, SweepInterval: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	relay.Publish(evs...)
	assert.Eventually(t, func() bool {
		return rec.count() == 1 && disp.count() == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRelay_PublishNeverBlocks(t *testing.T) {
	st := memstore.New()
	relay := NewRelay(st.Outbox(), &fakeRecorder{}, &fakeDispatcher{}, RelayConfig{QueueSize: 1}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		relay.Publish(sampleEvents(time.Now())...)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full queue")
	}
}
