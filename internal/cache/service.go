package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	kafkax "github.com/ariefcatur/go-shop-orders.git/internal/kafka"
	"github.com/ariefcatur/go-shop-orders.git/internal/redisx"
	"github.com/ariefcatur/go-shop-orders.git/internal/shop"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Service merawat cache setelah order commit: status order di-warm,
// halaman katalog di-drop karena stok sudah berubah.
type Service struct {
	Redis       redis.Cmdable
	ServiceName string
}

// HandleOrderPlaced dipasang sebagai handler consumer.
// Dedup key ditulis paling akhir: kalau warm cache gagal, event belum
// ditandai selesai dan redelivery berikutnya mengulang kerjanya.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env shop.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != shop.EventOrderPlaced {
		return nil // ignore
	}

	// dedup via event_id; error redis dianggap belum pernah lihat
	dkey := fmt.Sprintf(redisx.KeyDedup, "cacher", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[shop.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}

	skey := fmt.Sprintf(redisx.KeyOrderStatus, p.OrderID)
	body := kafkax.MustMarshal(shop.OrderStatus{UserID: p.UserID, Status: shop.Status(p.Status)})
	if err := s.Redis.Set(ctx, skey, body, redisx.TTLStatusCache).Err(); err != nil {
		return err
	}

	// stok berubah -> semua halaman katalog yang ke-cache sudah basi
	if err := redisx.DeleteByPrefix(ctx, s.Redis, redisx.KeyProductPagePrefix); err != nil {
		log.Printf("invalidate product pages: %v", err)
	}

	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}
