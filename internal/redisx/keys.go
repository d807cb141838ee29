package redisx

import "time"

const (
	// Idempotency for reservation create: idem:reserve:{reference_type}:{reference_id} -> reservation_id
	KeyIdemReserve = "idem:reserve:%s:%s"

	// Cache reserved quantity per item+location: stock:reserved:{item_id}:{location_type}:{location_id}
	KeyReservedQty = "stock:reserved:%s:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Distributed lock for the expiry sweep worker.
	KeySweepLock = "lock:reservation-sweep"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLReservedQty = 30 * time.Second
	TTLDedup       = 48 * time.Hour
)
