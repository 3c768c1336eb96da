package engagement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftist/engage/internal/domain"
)

func TestDedupFilter_WindowedKind(t *testing.T) {
	ledger := newFakeLedger()
	filter := NewDedupFilter(ledger, DefaultPolicy())

	r := testRecipient("u1")
	candidate := Candidate{
		Recipient:   &r,
		Kind:        domain.KindDailyEngagement,
		TriggerTime: testNow,
		DedupKey:    dayBucket(testNow),
	}

	seen, err := filter.AlreadySent(context.Background(), candidate)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, ledger.Append(context.Background(), &LedgerEntry{
		ID:          "l1",
		RecipientID: "u1",
		Kind:        string(domain.KindDailyEngagement),
		DedupKey:    candidate.DedupKey,
		SentAt:      testNow,
	}))

	seen, err = filter.AlreadySent(context.Background(), candidate)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestDedupFilter_WindowExpiry(t *testing.T) {
	ledger := newFakeLedger()
	filter := NewDedupFilter(ledger, DefaultPolicy())

	r := testRecipient("u1")
	require.NoError(t, ledger.Append(context.Background(), &LedgerEntry{
		ID:          "l1",
		RecipientID: "u1",
		Kind:        string(domain.KindListViewed),
		DedupKey:    "bob",
		SentAt:      testNow.Add(-48 * time.Hour),
	}))

	candidate := Candidate{
		Recipient:   &r,
		Kind:        domain.KindListViewed,
		TriggerTime: testNow,
		DedupKey:    "bob",
	}

	// The old entry has aged out of the 24h view window.
	seen, err := filter.AlreadySent(context.Background(), candidate)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestDedupFilter_OnceEverKind(t *testing.T) {
	ledger := newFakeLedger()
	filter := NewDedupFilter(ledger, DefaultPolicy())

	r := testRecipient("u1")
	require.NoError(t, ledger.Append(context.Background(), &LedgerEntry{
		ID:          "l1",
		RecipientID: "u1",
		Kind:        string(domain.KindLifecycleNudge),
		DedupKey:    "day1-items",
		SentAt:      testNow.Add(-365 * 24 * time.Hour),
	}))

	candidate := Candidate{
		Recipient:   &r,
		Kind:        domain.KindLifecycleNudge,
		TriggerTime: testNow,
		DedupKey:    "day1-items",
	}

	// Once-ever kinds never age out.
	seen, err := filter.AlreadySent(context.Background(), candidate)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestDedupFilter_DistinctKeysIndependent(t *testing.T) {
	ledger := newFakeLedger()
	filter := NewDedupFilter(ledger, DefaultPolicy())

	r := testRecipient("u1")
	require.NoError(t, ledger.Append(context.Background(), &LedgerEntry{
		ID:          "l1",
		RecipientID: "u1",
		Kind:        string(domain.KindCircleEventReminder),
		DedupKey:    "e1:7",
		SentAt:      testNow,
	}))

	candidate := Candidate{
		Recipient:   &r,
		Kind:        domain.KindCircleEventReminder,
		TriggerTime: testNow,
		DedupKey:    "e1:1",
	}

	seen, err := filter.AlreadySent(context.Background(), candidate)
	require.NoError(t, err)
	assert.False(t, seen)
}
