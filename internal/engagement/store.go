package engagement

import (
	"context"
	"errors"
	"time"

	"github.com/giftist/engage/internal/domain"
)

// ErrRecipientNotFound is returned by store lookups for unknown recipients.
var ErrRecipientNotFound = errors.New("recipient not found")

// EligibilityStore is the engine's read-only view over user, event and
// contribution state. It is injected into evaluators and the coordinator so
// tests can substitute an in-memory fake; the engine never writes through it.
type EligibilityStore interface {
	// ListEngageable returns active recipients with a phone number who have
	// not opted out of proactive messaging.
	ListEngageable(ctx context.Context) ([]domain.Recipient, error)

	// ListEventsBetween returns registry events dated within [from, to].
	ListEventsBetween(ctx context.Context, from, to time.Time) ([]domain.RegistryEvent, error)

	// ListEventsEndedBetween returns registry events whose date has passed
	// within [from, to).
	ListEventsEndedBetween(ctx context.Context, from, to time.Time) ([]domain.RegistryEvent, error)

	// ListUpcomingEvents returns a recipient's next events dated within
	// [now, now+horizon], ordered by date, at most limit entries.
	ListUpcomingEvents(ctx context.Context, recipientID string, now time.Time, horizon time.Duration, limit int) ([]domain.RegistryEvent, error)

	// ListContributors returns the distinct recipients who contributed to an
	// event.
	ListContributors(ctx context.Context, eventID string) ([]domain.Recipient, error)

	GetRecipient(ctx context.Context, id string) (*domain.Recipient, error)
	GetRecipientByShareID(ctx context.Context, shareID string) (*domain.Recipient, error)
}
