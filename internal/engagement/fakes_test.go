package engagement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/giftist/engage/internal/domain"
)

// fakeStore is an in-memory EligibilityStore.
type fakeStore struct {
	recipients   []domain.Recipient
	events       []domain.RegistryEvent
	contributors map[string][]domain.Recipient

	listErr error
}

func (s *fakeStore) ListEngageable(context.Context) ([]domain.Recipient, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.recipients, nil
}

func (s *fakeStore) ListEventsBetween(_ context.Context, from, to time.Time) ([]domain.RegistryEvent, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.RegistryEvent
	for _, e := range s.events {
		if !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) ListEventsEndedBetween(_ context.Context, from, to time.Time) ([]domain.RegistryEvent, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.RegistryEvent
	for _, e := range s.events {
		if !e.Date.Before(from) && e.Date.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) ListUpcomingEvents(_ context.Context, recipientID string, now time.Time, horizon time.Duration, limit int) ([]domain.RegistryEvent, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.RegistryEvent
	for _, e := range s.events {
		if e.OwnerID != recipientID {
			continue
		}
		if e.Date.Before(now) || e.Date.After(now.Add(horizon)) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) ListContributors(_ context.Context, eventID string) ([]domain.Recipient, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.contributors[eventID], nil
}

func (s *fakeStore) GetRecipient(_ context.Context, id string) (*domain.Recipient, error) {
	for i := range s.recipients {
		if s.recipients[i].ID == id {
			return &s.recipients[i], nil
		}
	}
	return nil, ErrRecipientNotFound
}

func (s *fakeStore) GetRecipientByShareID(_ context.Context, shareID string) (*domain.Recipient, error) {
	for i := range s.recipients {
		if s.recipients[i].ShareID == shareID {
			return &s.recipients[i], nil
		}
	}
	return nil, ErrRecipientNotFound
}

// fakeLedger is an in-memory Ledger enforcing the uniqueness constraint.
type fakeLedger struct {
	mu      sync.Mutex
	entries map[string]LedgerEntry

	appendErr error
	existsErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[string]LedgerEntry)}
}

func ledgerKey(recipientID, kind, dedupKey string) string {
	return recipientID + "|" + kind + "|" + dedupKey
}

func (l *fakeLedger) Append(_ context.Context, entry *LedgerEntry) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(entry.RecipientID, entry.Kind, entry.DedupKey)
	if _, exists := l.entries[key]; exists {
		return ErrLedgerConflict
	}
	l.entries[key] = *entry
	return nil
}

func (l *fakeLedger) Exists(_ context.Context, recipientID, kind, dedupKey string, since time.Time) (bool, error) {
	if l.existsErr != nil {
		return false, l.existsErr
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[ledgerKey(recipientID, kind, dedupKey)]
	if !ok {
		return false, nil
	}
	if since.IsZero() {
		return true, nil
	}
	return !entry.SentAt.Before(since), nil
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// fakeChannel records outbound messages.
type fakeChannel struct {
	mu      sync.Mutex
	sent    []OutboundMessage
	sendErr error
}

func (c *fakeChannel) Name() string { return "fake" }

func (c *fakeChannel) Send(_ context.Context, msg OutboundMessage) (string, error) {
	if c.sendErr != nil {
		return "", c.sendErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return fmt.Sprintf("msg-%d", len(c.sent)), nil
}

func (c *fakeChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// testRecipient returns a valid engageable recipient. Callers mutate fields
// as needed.
func testRecipient(id string) domain.Recipient {
	return domain.Recipient{
		ID:       id,
		Name:     "Ada",
		Phone:    "+15550100",
		ShareID:  "share-" + id,
		Timezone: "UTC",
		Tier:     domain.TierStandard,
		SignupAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive: true,
	}
}
