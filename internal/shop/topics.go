package shop

const (
	TopicOrderPlaced = "shop.order.placed"
)

// Partition key = order_id, event utk 1 order tetap berurutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
