package engagement

import (
	"context"
	"time"
)

// LedgerEntry is the durable record of one confirmed send. Entries are
// append-only and immutable; the ledger is the sole source of truth for
// idempotency.
type LedgerEntry struct {
	ID                string
	RecipientID       string
	Kind              string
	DedupKey          string
	SentAt            time.Time
	Channel           string
	ExternalMessageID string
}

// Ledger is the append-with-uniqueness-constraint store of confirmed sends.
//
// Append must fail with ErrLedgerConflict when an entry with the same
// (recipient_id, kind, dedup_key) already exists, so concurrent runs cannot
// record the same logical notification twice. Exists bounds the lookup by
// since when non-zero; a zero since means "ever".
type Ledger interface {
	Append(ctx context.Context, entry *LedgerEntry) error
	Exists(ctx context.Context, recipientID, kind, dedupKey string, since time.Time) (bool, error)
}
