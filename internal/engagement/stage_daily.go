package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/giftist/engage/internal/domain"
)

// DailyEngagementStage nudges recipients who have been inactive for at least
// the configured interval and have nothing on their list yet.
type DailyEngagementStage struct {
	policy Policy
}

// NewDailyEngagementStage creates the daily engagement evaluator.
func NewDailyEngagementStage(policy Policy) *DailyEngagementStage {
	return &DailyEngagementStage{policy: policy}
}

// Kind returns the stage's notification kind.
func (s *DailyEngagementStage) Kind() domain.NotificationKind {
	return domain.KindDailyEngagement
}

// Evaluate produces one candidate per inactive recipient, keyed by the UTC
// day bucket so at most one fires per day.
func (s *DailyEngagementStage) Evaluate(ctx context.Context, now time.Time, store EligibilityStore) (Evaluation, error) {
	recipients, err := store.ListEngageable(ctx)
	if err != nil {
		return Evaluation{}, fmt.Errorf("list engageable recipients: %w", err)
	}

	cutoff := now.Add(-s.policy.InactivityInterval)
	set := newCandidateSet()
	ev := Evaluation{Evaluated: len(recipients)}

	for i := range recipients {
		r := &recipients[i]
		if err := checkRecipient(r); err != nil {
			ev.Failed++
			continue
		}
		if r.HasActiveGold(now) {
			// Gold recipients get the premium stage instead.
			continue
		}
		if r.LastActiveAt != nil && r.LastActiveAt.After(cutoff) {
			continue
		}
		if r.ItemCount > 0 {
			continue
		}

		set.add(Candidate{
			Recipient:   r,
			Kind:        domain.KindDailyEngagement,
			TriggerTime: now,
			DedupKey:    dayBucket(now.UTC()),
			Payload: DailyEngagementPayload{
				DisplayName: r.DisplayName(),
				ItemCount:   r.ItemCount,
			},
		})
	}

	ev.Candidates = set.out
	return ev, nil
}

// GoldDailyStage is the premium daily check-in: same shape as the standard
// stage but restricted to active gold subscribers and keyed by the
// recipient's local day so "today" follows their timezone.
type GoldDailyStage struct {
	policy  Policy
	horizon time.Duration
}

// NewGoldDailyStage creates the premium daily evaluator.
func NewGoldDailyStage(policy Policy) *GoldDailyStage {
	return &GoldDailyStage{policy: policy, horizon: 30 * 24 * time.Hour}
}

// Kind returns the stage's notification kind.
func (s *GoldDailyStage) Kind() domain.NotificationKind {
	return domain.KindGoldDailyEngagement
}

// Evaluate produces one candidate per active gold recipient per local day.
func (s *GoldDailyStage) Evaluate(ctx context.Context, now time.Time, store EligibilityStore) (Evaluation, error) {
	recipients, err := store.ListEngageable(ctx)
	if err != nil {
		return Evaluation{}, fmt.Errorf("list engageable recipients: %w", err)
	}

	set := newCandidateSet()
	ev := Evaluation{Evaluated: len(recipients)}

	for i := range recipients {
		r := &recipients[i]
		if !r.HasActiveGold(now) {
			continue
		}
		if err := checkRecipient(r); err != nil {
			ev.Failed++
			continue
		}

		events, err := store.ListUpcomingEvents(ctx, r.ID, now, s.horizon, 5)
		if err != nil {
			ev.Failed++
			continue
		}
		summaries := make([]EventSummary, 0, len(events))
		for j := range events {
			summaries = append(summaries, EventSummary{
				Name:     events[j].Name,
				DaysLeft: events[j].DaysUntil(now),
			})
		}

		set.add(Candidate{
			Recipient:   r,
			Kind:        domain.KindGoldDailyEngagement,
			TriggerTime: now,
			DedupKey:    dayBucket(now.In(r.Location())),
			Payload: GoldDailyPayload{
				DisplayName:    r.DisplayName(),
				UpcomingEvents: summaries,
				ItemCount:      r.ItemCount,
				CircleCount:    r.CircleCount,
			},
		})
	}

	ev.Candidates = set.out
	return ev, nil
}
