package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOccasion_DateIn(t *testing.T) {
	tests := []struct {
		name     string
		occasion Occasion
		year     int
		expected time.Time
	}{
		{
			name:     "fixed date",
			occasion: Occasion{Month: time.February, Day: 14},
			year:     2026,
			expected: time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "second sunday of may 2026",
			occasion: Occasion{Month: time.May, Weekday: time.Sunday, Nth: 2},
			year:     2026,
			expected: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "second sunday of may 2025",
			occasion: Occasion{Month: time.May, Weekday: time.Sunday, Nth: 2},
			year:     2025,
			expected: time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "third sunday of june 2026",
			occasion: Occasion{Month: time.June, Weekday: time.Sunday, Nth: 3},
			year:     2026,
			expected: time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "first monday when month starts on monday",
			occasion: Occasion{Month: time.June, Weekday: time.Monday, Nth: 1},
			year:     2026,
			expected: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.occasion.DateIn(tt.year, time.UTC)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestOccasion_NextFrom(t *testing.T) {
	valentines := Occasion{Slug: "valentines-day", Month: time.February, Day: 14}

	before := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2026, valentines.NextFrom(before).Year())

	after := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2027, valentines.NextFrom(after).Year())
}
