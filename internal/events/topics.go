package events

const (
	TopicReservationCreated  = "stock.reservation.created"
	TopicReservationReleased = "stock.reservation.released"
	TopicReservationExtended = "stock.reservation.extended"
	TopicReservationExpired  = "stock.reservation.expired"
	TopicPaymentRecorded     = "credit.payment.recorded"
	TopicCreditClosed        = "credit.closed"
)

// AllTopics is what the audit consumer subscribes to.
var AllTopics = []string{
	TopicReservationCreated,
	TopicReservationReleased,
	TopicReservationExtended,
	TopicReservationExpired,
	TopicPaymentRecorded,
	TopicCreditClosed,
}

// Partition key = entity id, so events for one reservation/credit stay ordered.
func PartitionKey(id string) []byte { return []byte(id) }
