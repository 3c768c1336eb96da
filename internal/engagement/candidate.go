// Package engagement implements the windowed, idempotent notification
// dispatch engine: stage evaluators compute candidates from the eligibility
// store, the dedup filter drops already-sent ones against the ledger, and
// the dispatcher sends survivors through the messaging channel.
package engagement

import (
	"time"

	"github.com/giftist/engage/internal/domain"
)

// Payload carries the kind-specific content of a candidate. The set of
// implementations is closed: one variant per notification kind.
type Payload interface {
	Kind() domain.NotificationKind
}

// EventSummary is a compact upcoming-event line used in payloads.
type EventSummary struct {
	Name     string
	DaysLeft int
}

// DailyEngagementPayload nudges an inactive recipient.
type DailyEngagementPayload struct {
	DisplayName string
	ItemCount   int
}

func (DailyEngagementPayload) Kind() domain.NotificationKind { return domain.KindDailyEngagement }

// GoldDailyPayload is the premium-tier daily check-in.
type GoldDailyPayload struct {
	DisplayName    string
	UpcomingEvents []EventSummary
	ItemCount      int
	CircleCount    int
}

func (GoldDailyPayload) Kind() domain.NotificationKind { return domain.KindGoldDailyEngagement }

// EventReminderPayload counts down to a registry event.
type EventReminderPayload struct {
	DisplayName string
	EventName   string
	DaysLeft    int
	ItemCount   int
}

func (EventReminderPayload) Kind() domain.NotificationKind { return domain.KindCircleEventReminder }

// FollowupRole distinguishes who a follow-up is addressed to.
type FollowupRole string

// Follow-up roles.
const (
	FollowupOwner       FollowupRole = "owner"
	FollowupContributor FollowupRole = "contributor"
)

// PostEventFollowupPayload thanks participants after an event has passed.
type PostEventFollowupPayload struct {
	DisplayName string
	EventName   string
	Role        FollowupRole
}

func (PostEventFollowupPayload) Kind() domain.NotificationKind { return domain.KindPostEventFollowup }

// SeasonalReminderPayload announces an upcoming calendar occasion.
type SeasonalReminderPayload struct {
	DisplayName  string
	OccasionName string
	OccasionDate time.Time
	DaysLeft     int
}

func (SeasonalReminderPayload) Kind() domain.NotificationKind { return domain.KindSeasonalReminder }

// LifecycleNudgePayload is a signup-age milestone prompt.
type LifecycleNudgePayload struct {
	DisplayName string
	Milestone   string
	ItemCount   int
	EventCount  int
	CircleCount int
}

func (LifecycleNudgePayload) Kind() domain.NotificationKind { return domain.KindLifecycleNudge }

// ListViewedPayload tells a recipient their wishlist was viewed.
type ListViewedPayload struct {
	DisplayName string
	ViewerName  string
}

func (ListViewedPayload) Kind() domain.NotificationKind { return domain.KindListViewed }

// Candidate is a computed, not-yet-sent notification. Candidates are
// ephemeral: recomputed fresh each run and never persisted.
type Candidate struct {
	Recipient   *domain.Recipient
	Kind        domain.NotificationKind
	TriggerTime time.Time
	DedupKey    string
	Payload     Payload
}

// dayBucket formats t as a date-only dedup key component.
func dayBucket(t time.Time) string {
	return t.Format("2006-01-02")
}
