package engagement

import (
	"context"
	"fmt"
	"time"
)

// DedupFilter cross-references candidates against the ledger's windowed
// history. It is read-only by contract: the only ledger write happens in the
// coordinator, after a confirmed send.
//
// The dedup key is a structured field matched exactly against an indexed
// column, never a substring probe into message bodies.
type DedupFilter struct {
	ledger Ledger
	policy Policy
}

// NewDedupFilter creates a filter over the given ledger.
func NewDedupFilter(ledger Ledger, policy Policy) *DedupFilter {
	return &DedupFilter{ledger: ledger, policy: policy}
}

// AlreadySent reports whether a matching ledger entry exists inside the
// candidate kind's governing window. Once-ever kinds are checked against the
// full history.
func (f *DedupFilter) AlreadySent(ctx context.Context, c Candidate) (bool, error) {
	var since time.Time
	if window := f.policy.windowFor(c.Kind); window > 0 {
		since = c.TriggerTime.Add(-window)
	}

	exists, err := f.ledger.Exists(ctx, c.Recipient.ID, string(c.Kind), c.DedupKey, since)
	if err != nil {
		return false, fmt.Errorf("check ledger for %s/%s: %w", c.Kind, c.DedupKey, err)
	}
	return exists, nil
}
