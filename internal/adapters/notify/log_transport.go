package notify

import (
	"context"
	"log"

	"foodshare-service/internal/ports"
)

// LogTransport writes notices to the process log. Used when no redis queue
// is configured (local runs, tests).
type LogTransport struct{}

func (LogTransport) Deliver(_ context.Context, notices []ports.NoticeDelivery) error {
	for _, n := range notices {
		log.Printf(
			"notify: cid=%d pid=%d business=%q address=%q",
			n.CID, n.PID, n.BusinessName, n.BusinessAddress,
		)
	}
	return nil
}
