package engagement

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/giftist/engage/internal/domain"
)

// SeasonalReminderStage fires for calendar-anchored gifting occasions,
// independent of any specific registry event. Each recipient gets at most
// one reminder per occasion per year.
type SeasonalReminderStage struct {
	policy    Policy
	occasions []domain.Occasion
}

// NewSeasonalReminderStage creates the seasonal evaluator over the given
// occasion calendar. A nil calendar uses the built-in defaults.
func NewSeasonalReminderStage(policy Policy, occasions []domain.Occasion) *SeasonalReminderStage {
	if occasions == nil {
		occasions = domain.DefaultOccasions
	}
	return &SeasonalReminderStage{policy: policy, occasions: occasions}
}

// Kind returns the stage's notification kind.
func (s *SeasonalReminderStage) Kind() domain.NotificationKind {
	return domain.KindSeasonalReminder
}

// Evaluate emits candidates keyed occasionSlug:year for every occasion
// inside its lead window.
func (s *SeasonalReminderStage) Evaluate(ctx context.Context, now time.Time, store EligibilityStore) (Evaluation, error) {
	type upcoming struct {
		occ  domain.Occasion
		date time.Time
	}
	var due []upcoming
	for _, occ := range s.occasions {
		next := occ.NextFrom(now)
		if next.Sub(now) <= s.policy.SeasonalLead {
			due = append(due, upcoming{occ: occ, date: next})
		}
	}
	if len(due) == 0 {
		return Evaluation{}, nil
	}

	recipients, err := store.ListEngageable(ctx)
	if err != nil {
		return Evaluation{}, fmt.Errorf("list engageable recipients: %w", err)
	}

	set := newCandidateSet()
	ev := Evaluation{Evaluated: len(recipients)}

	for i := range recipients {
		r := &recipients[i]
		if err := checkRecipient(r); err != nil {
			ev.Failed++
			continue
		}
		for _, u := range due {
			set.add(Candidate{
				Recipient:   r,
				Kind:        domain.KindSeasonalReminder,
				TriggerTime: now,
				DedupKey:    u.occ.Slug + ":" + strconv.Itoa(u.date.Year()),
				Payload: SeasonalReminderPayload{
					DisplayName:  r.DisplayName(),
					OccasionName: u.occ.Name,
					OccasionDate: u.date,
					DaysLeft:     domain.DaysUntil(now, u.date),
				},
			})
		}
	}

	ev.Candidates = set.out
	return ev, nil
}
