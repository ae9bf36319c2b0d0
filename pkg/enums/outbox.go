package enums

// OutboxEventType names a domain event stored in the transactional outbox.
type OutboxEventType string

const (
	EventOrderCreated   OutboxEventType = "order.created"
	EventOrderPaid      OutboxEventType = "order.paid"
	EventOrderDelivered OutboxEventType = "order.delivered"
	EventOrderCancelled OutboxEventType = "order.cancelled"
	EventReturnApproved OutboxEventType = "order.return_approved"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)
