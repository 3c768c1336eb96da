package engagement

import (
	"time"

	"github.com/giftist/engage/internal/domain"
)

// MilestoneCondition gates a lifecycle milestone on the recipient's current
// state.
type MilestoneCondition string

// Milestone conditions.
const (
	ConditionFewItems MilestoneCondition = "few_items"
	ConditionNoEvents MilestoneCondition = "no_events"
	ConditionNoCircle MilestoneCondition = "no_circle"
)

// Milestone is one lifecycle nudge: fires once ever, at signup age AfterDays
// or later, while the condition still holds.
type Milestone struct {
	Slug      string             `koanf:"slug"`
	AfterDays int                `koanf:"after_days"`
	Condition MilestoneCondition `koanf:"condition"`
	MaxItems  int                `koanf:"max_items"`
}

// Policy holds every eligibility threshold as a named, tunable parameter.
// The source of these rules kept them as literals scattered through the
// funnel; here they are configuration.
type Policy struct {
	// InactivityInterval is how long a recipient must be inactive before the
	// daily engagement stage considers them.
	InactivityInterval time.Duration `koanf:"inactivity_interval"`

	// DailyWindow bounds dedup for the day-bucketed kinds.
	DailyWindow time.Duration `koanf:"daily_window"`

	// ViewWindow bounds dedup for list-view notifications per viewer.
	ViewWindow time.Duration `koanf:"view_window"`

	// ReminderOffsets are days-before-event marks; each (event, offset) pair
	// is a distinct notification instance.
	ReminderOffsets []int `koanf:"reminder_offsets"`

	// FollowupWindow is the trailing window after an event date during which
	// the follow-up stage picks it up.
	FollowupWindow time.Duration `koanf:"followup_window"`

	// SeasonalLead is how far before a calendar occasion the seasonal stage
	// starts firing.
	SeasonalLead time.Duration `koanf:"seasonal_lead"`

	// Milestones are the lifecycle nudges in firing order.
	Milestones []Milestone `koanf:"milestones"`
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		InactivityInterval: 24 * time.Hour,
		DailyWindow:        24 * time.Hour,
		ViewWindow:         24 * time.Hour,
		ReminderOffsets:    []int{7, 1},
		FollowupWindow:     72 * time.Hour,
		SeasonalLead:       14 * 24 * time.Hour,
		Milestones: []Milestone{
			{Slug: "day1-items", AfterDays: 1, Condition: ConditionFewItems, MaxItems: 3},
			{Slug: "day3-events", AfterDays: 3, Condition: ConditionNoEvents},
			{Slug: "day5-circle", AfterDays: 5, Condition: ConditionNoCircle},
		},
	}
}

// windowFor returns the dedup window for a kind. Zero means the dedup key is
// checked against the full ledger history (once-ever kinds).
func (p Policy) windowFor(kind domain.NotificationKind) time.Duration {
	if kind.OnceEver() {
		return 0
	}
	if kind == domain.KindListViewed {
		return p.ViewWindow
	}
	return p.DailyWindow
}
