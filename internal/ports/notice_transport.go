package ports

import "context"

// NoticeDelivery is the payload handed to the outbound transport for each
// granted notice. Delivery mechanics (email, push) live behind the port.
type NoticeDelivery struct {
	CID             int    `json:"cid"`
	PID             int    `json:"pid"`
	BusinessName    string `json:"business_name"`
	BusinessAddress string `json:"business_address"`
}

// Port: outbound notice delivery. Dispatch is fire-and-forget from the
// core's perspective: errors are logged by the caller, never retried, and
// never block the scheduling loop.
type NoticeTransport interface {
	Deliver(ctx context.Context, notices []NoticeDelivery) error
}
