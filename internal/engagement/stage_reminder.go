package engagement

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/giftist/engage/internal/domain"
)

// EventReminderStage counts down to registry events. Each configured offset
// is its own notification instance: a 7-day and a 1-day reminder for the
// same event carry distinct dedup keys and both fire.
type EventReminderStage struct {
	policy Policy
}

// NewEventReminderStage creates the event reminder evaluator.
func NewEventReminderStage(policy Policy) *EventReminderStage {
	return &EventReminderStage{policy: policy}
}

// Kind returns the stage's notification kind.
func (s *EventReminderStage) Kind() domain.NotificationKind {
	return domain.KindCircleEventReminder
}

// Evaluate scans events inside the largest configured lead window. For each
// offset whose mark the event has reached, it emits one candidate keyed
// eventID:offset. Firing on "days left <= offset" rather than exact equality
// means a missed trigger day still produces the reminder on the next run.
func (s *EventReminderStage) Evaluate(ctx context.Context, now time.Time, store EligibilityStore) (Evaluation, error) {
	if len(s.policy.ReminderOffsets) == 0 {
		return Evaluation{}, nil
	}

	offsets := append([]int(nil), s.policy.ReminderOffsets...)
	sort.Sort(sort.Reverse(sort.IntSlice(offsets)))
	maxOffset := offsets[0]

	events, err := store.ListEventsBetween(ctx, now, now.Add(time.Duration(maxOffset)*24*time.Hour))
	if err != nil {
		return Evaluation{}, fmt.Errorf("list upcoming events: %w", err)
	}

	set := newCandidateSet()
	ev := Evaluation{Evaluated: len(events)}

	for i := range events {
		event := &events[i]
		daysLeft := event.DaysUntil(now)
		if daysLeft <= 0 {
			continue
		}

		owner, err := store.GetRecipient(ctx, event.OwnerID)
		if err != nil {
			ev.Failed++
			continue
		}
		if err := checkRecipient(owner); err != nil {
			ev.Failed++
			continue
		}

		for _, offset := range offsets {
			if daysLeft > offset {
				continue
			}
			set.add(Candidate{
				Recipient:   owner,
				Kind:        domain.KindCircleEventReminder,
				TriggerTime: now,
				DedupKey:    event.ID + ":" + strconv.Itoa(offset),
				Payload: EventReminderPayload{
					DisplayName: owner.DisplayName(),
					EventName:   event.Name,
					DaysLeft:    daysLeft,
					ItemCount:   event.ItemCount,
				},
			})
		}
	}

	ev.Candidates = set.out
	return ev, nil
}
