package domain

import "time"

// RegistryEvent is a gifting occasion a recipient owns (birthday, wedding,
// holiday). Read-only from the engine's point of view.
type RegistryEvent struct {
	ID        string
	OwnerID   string
	Name      string
	Date      time.Time
	ItemCount int
	CreatedAt time.Time
}

// DaysUntil returns the whole number of days from now until date, rounding
// up so "tomorrow morning" counts as one day away.
func DaysUntil(now, date time.Time) int {
	d := date.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// DaysUntil counts the days from now until the event date.
func (e *RegistryEvent) DaysUntil(now time.Time) int {
	return DaysUntil(now, e.Date)
}

// Contribution records money put toward an item on someone's registry.
// The engine only reads contributions to find follow-up recipients.
type Contribution struct {
	ID            string
	EventID       string
	ContributorID string
	Amount        float64
	CreatedAt     time.Time
}
