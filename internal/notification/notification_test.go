package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pharma-redistribution-api-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	sent map[string][][]byte
	err  error
}

func (s *fakeSender) SendToFacility(facilityID string, message []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.sent == nil {
		s.sent = map[string][][]byte{}
	}
	s.sent[facilityID] = append(s.sent[facilityID], message)
	return 1, nil
}

type brokenDeduper struct{}

func (brokenDeduper) Claim(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func (brokenDeduper) Release(context.Context, string) error {
	return errors.New("redis: connection refused")
}

func approved(drugID string) models.NotificationEvent {
	return models.NotificationEvent{
		Type:      models.NotificationRedistributionApproved,
		RequestID: "RDR-1",
		DrugID:    drugID,
		DrugName:  "Amoxicillin",
		Quantity:  30,
	}
}

func TestNotify_SuppressesRepeatsInsideWindow(t *testing.T) {
	sender := &fakeSender{}
	dedup := NewMemoryDeduper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	dedup.now = func() time.Time { return now }
	svc := NewService(sender, dedup, 24*time.Hour, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, "fac-a", approved("lot-1")))
	require.NoError(t, svc.Notify(ctx, "fac-a", approved("lot-1")))
	require.NoError(t, svc.Notify(ctx, "fac-b", approved("lot-1")))
	require.NoError(t, svc.Notify(ctx, "fac-a", approved("lot-2")))

	assert.Len(t, sender.sent["fac-a"], 2)
	assert.Len(t, sender.sent["fac-b"], 1)

	now = now.Add(24*time.Hour + time.Second)
	require.NoError(t, svc.Notify(ctx, "fac-a", approved("lot-1")))
	assert.Len(t, sender.sent["fac-a"], 3)
}

func TestNotify_DistinctTypesAreNotDuplicates(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, NewMemoryDeduper(), 0, zap.NewNop())
	ctx := context.Background()

	created := approved("lot-1")
	created.Type = models.NotificationRedistributionCreated
	require.NoError(t, svc.Notify(ctx, "fac-b", created))
	require.NoError(t, svc.Notify(ctx, "fac-b", approved("lot-1")))

	assert.Len(t, sender.sent["fac-b"], 2)
}

func TestNotify_PayloadShape(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, NewMemoryDeduper(), time.Hour, zap.NewNop())

	require.NoError(t, svc.Notify(context.Background(), "fac-a", approved("lot-1")))

	var got struct {
		Event string                   `json:"event"`
		Data  models.NotificationEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(sender.sent["fac-a"][0], &got))
	assert.Equal(t, "REDISTRIBUTION_APPROVED", got.Event)
	assert.Equal(t, "lot-1", got.Data.DrugID)
	assert.Equal(t, 30, got.Data.Quantity)
}

func TestNotify_DedupFailureFailsOpen(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, brokenDeduper{}, time.Hour, zap.NewNop())

	require.NoError(t, svc.Notify(context.Background(), "fac-a", approved("lot-1")))
	require.NoError(t, svc.Notify(context.Background(), "fac-a", approved("lot-1")))

	assert.Len(t, sender.sent["fac-a"], 2)
}

func TestNotify_SenderErrorIsReturned(t *testing.T) {
	sender := &fakeSender{err: errors.New("broken pipe")}
	svc := NewService(sender, NewMemoryDeduper(), time.Hour, zap.NewNop())

	err := svc.Notify(context.Background(), "fac-a", approved("lot-1"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fac-a")
}

func TestNotify_FailedSendDoesNotSuppressRetry(t *testing.T) {
	sender := &fakeSender{err: errors.New("broken pipe")}
	svc := NewService(sender, NewMemoryDeduper(), time.Hour, zap.NewNop())
	ctx := context.Background()

	require.Error(t, svc.Notify(ctx, "fac-a", approved("lot-1")))

	sender.err = nil
	require.NoError(t, svc.Notify(ctx, "fac-a", approved("lot-1")))
	assert.Len(t, sender.sent["fac-a"], 1)

	// a delivered event is still suppressed
	require.NoError(t, svc.Notify(ctx, "fac-a", approved("lot-1")))
	assert.Len(t, sender.sent["fac-a"], 1)
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "notify:fac-a:lot-1:REDISTRIBUTION_APPROVED", DedupKey("fac-a", approved("lot-1")))
}
