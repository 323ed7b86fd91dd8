package orders

const (
	TopicOrderPaid      = "order.paid"
	TopicOrderStatus    = "order.status.changed"
	TopicOrderCancelled = "order.cancelled"
	TopicStockUpdated   = "catalog.stock.updated"
)

// Partition key = order_id so all events of one order keep their order.
func PartitionKey(id string) []byte { return []byte(id) }
