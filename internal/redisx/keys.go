package redisx

import "time"

const (
	// Cache halaman katalog: products:page:{page}:size:{size}:search:{search}
	KeyProductPage = "products:page:%d:size:%d:search:%s"

	// Prefix utk invalidasi halaman katalog (SCAN + DEL)
	KeyProductPagePrefix = "products:page:"

	// Cache status order: order_status:{order_id} -> {"user_id":"...","status":"..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLProductPage = time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
