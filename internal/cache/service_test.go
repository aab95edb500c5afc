package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkax "github.com/ariefcatur/go-shop-orders.git/internal/kafka"
	"github.com/ariefcatur/go-shop-orders.git/internal/shop"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis: embed interface, method yang tidak di-override panic kalau kepakai.
type fakeRedis struct {
	redis.Cmdable

	seen     map[string]bool  // Exists -> 1
	setErr   map[string]error // inject error per key
	sets     []string         // key yang berhasil di-Set, urut
	pageKeys []string         // hasil SCAN
	dels     []string
}

func (f *fakeRedis) Set(_ context.Context, key string, _ interface{}, _ time.Duration) *redis.StatusCmd {
	if err := f.setErr[key]; err != nil {
		return redis.NewStatusResult("", err)
	}
	f.sets = append(f.sets, key)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if f.seen[keys[0]] {
		return redis.NewIntResult(1, nil)
	}
	return redis.NewIntResult(0, nil)
}

func (f *fakeRedis) Scan(_ context.Context, _ uint64, _ string, _ int64) *redis.ScanCmd {
	return redis.NewScanCmdResult(f.pageKeys, 0, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.dels = append(f.dels, keys...)
	return redis.NewIntResult(int64(len(keys)), nil)
}

func placedMessage(t *testing.T, eventID, orderID, userID string) kafkago.Message {
	t.Helper()
	env := shop.Envelope{
		EventID:      eventID,
		EventType:    shop.EventOrderPlaced,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload: kafkax.MustMarshal(shop.OrderPlacedPayload{
			OrderID:    orderID,
			UserID:     userID,
			Status:     "pending",
			TotalCents: 100,
		}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleOrderPlacedWarmsThenMarks(t *testing.T) {
	f := &fakeRedis{pageKeys: []string{"products:page:1:size:20:search:"}}
	s := &Service{Redis: f, ServiceName: "cacher-test"}

	err := s.HandleOrderPlaced(context.Background(), placedMessage(t, "ev1", "o1", "u1"))
	require.NoError(t, err)

	require.Equal(t, []string{"order_status:o1", "dedup:cacher:ev1"}, f.sets,
		"dedup mark must come after the cache warm")
	assert.Equal(t, []string{"products:page:1:size:20:search:"}, f.dels)
}

// Warm gagal -> error keluar dan event belum ditandai, redelivery mengulang.
func TestHandleOrderPlacedFailureLeavesUnmarked(t *testing.T) {
	f := &fakeRedis{setErr: map[string]error{"order_status:o1": errors.New("redis down")}}
	s := &Service{Redis: f, ServiceName: "cacher-test"}

	err := s.HandleOrderPlaced(context.Background(), placedMessage(t, "ev1", "o1", "u1"))
	require.Error(t, err)
	assert.NotContains(t, f.sets, "dedup:cacher:ev1")
}

func TestHandleOrderPlacedSkipsSeenEvent(t *testing.T) {
	f := &fakeRedis{seen: map[string]bool{"dedup:cacher:ev1": true}}
	s := &Service{Redis: f, ServiceName: "cacher-test"}

	err := s.HandleOrderPlaced(context.Background(), placedMessage(t, "ev1", "o1", "u1"))
	require.NoError(t, err)
	assert.Empty(t, f.sets)
	assert.Empty(t, f.dels)
}

func TestHandleOrderPlacedIgnoresOtherEvents(t *testing.T) {
	f := &fakeRedis{}
	s := &Service{Redis: f, ServiceName: "cacher-test"}

	env := shop.Envelope{EventID: "ev2", EventType: "ProductRestocked", EventVersion: 1}
	err := s.HandleOrderPlaced(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(env)})
	require.NoError(t, err)
	assert.Empty(t, f.sets)
}
