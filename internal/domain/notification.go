package domain

// NotificationKind identifies one logical notification family. Kinds form a
// closed enumeration; every kind has exactly one payload variant in the
// engagement package.
type NotificationKind string

// Notification kinds.
const (
	KindDailyEngagement     NotificationKind = "DAILY_ENGAGEMENT"
	KindGoldDailyEngagement NotificationKind = "GOLD_DAILY_ENGAGEMENT"
	KindCircleEventReminder NotificationKind = "CIRCLE_EVENT_REMINDER"
	KindPostEventFollowup   NotificationKind = "POST_EVENT_FOLLOWUP"
	KindSeasonalReminder    NotificationKind = "SEASONAL_REMINDER"
	KindLifecycleNudge      NotificationKind = "LIFECYCLE_NUDGE"
	KindListViewed          NotificationKind = "LIST_VIEWED"
)

// Valid reports whether k is a known kind.
func (k NotificationKind) Valid() bool {
	switch k {
	case KindDailyEngagement, KindGoldDailyEngagement, KindCircleEventReminder,
		KindPostEventFollowup, KindSeasonalReminder, KindLifecycleNudge, KindListViewed:
		return true
	}
	return false
}

// OnceEver reports whether entries of this kind never expire for dedup
// purposes. Windowed kinds re-fire after their window closes; once-ever
// kinds carry the instance identity inside the dedup key itself.
func (k NotificationKind) OnceEver() bool {
	switch k {
	case KindCircleEventReminder, KindPostEventFollowup, KindSeasonalReminder, KindLifecycleNudge:
		return true
	}
	return false
}
