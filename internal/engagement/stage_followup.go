package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/giftist/engage/internal/domain"
)

// PostEventFollowupStage reaches out after an event date has passed: once to
// the owner, once to each contributor, within the trailing window.
type PostEventFollowupStage struct {
	policy Policy
}

// NewPostEventFollowupStage creates the follow-up evaluator.
func NewPostEventFollowupStage(policy Policy) *PostEventFollowupStage {
	return &PostEventFollowupStage{policy: policy}
}

// Kind returns the stage's notification kind.
func (s *PostEventFollowupStage) Kind() domain.NotificationKind {
	return domain.KindPostEventFollowup
}

// Evaluate emits candidates keyed by event ID; the recipient dimension of
// the ledger key keeps owner and contributor follow-ups independent.
func (s *PostEventFollowupStage) Evaluate(ctx context.Context, now time.Time, store EligibilityStore) (Evaluation, error) {
	events, err := store.ListEventsEndedBetween(ctx, now.Add(-s.policy.FollowupWindow), now)
	if err != nil {
		return Evaluation{}, fmt.Errorf("list ended events: %w", err)
	}

	set := newCandidateSet()
	ev := Evaluation{Evaluated: len(events)}

	for i := range events {
		event := &events[i]

		owner, err := store.GetRecipient(ctx, event.OwnerID)
		if err != nil {
			ev.Failed++
		} else if err := checkRecipient(owner); err != nil {
			ev.Failed++
		} else {
			set.add(s.candidate(owner, event, FollowupOwner, now))
		}

		contributors, err := store.ListContributors(ctx, event.ID)
		if err != nil {
			ev.Failed++
			continue
		}
		for j := range contributors {
			c := &contributors[j]
			if err := checkRecipient(c); err != nil {
				ev.Failed++
				continue
			}
			if c.ID == event.OwnerID {
				continue
			}
			set.add(s.candidate(c, event, FollowupContributor, now))
		}
	}

	ev.Candidates = set.out
	return ev, nil
}

func (s *PostEventFollowupStage) candidate(r *domain.Recipient, event *domain.RegistryEvent, role FollowupRole, now time.Time) Candidate {
	return Candidate{
		Recipient:   r,
		Kind:        domain.KindPostEventFollowup,
		TriggerTime: now,
		DedupKey:    event.ID,
		Payload: PostEventFollowupPayload{
			DisplayName: r.DisplayName(),
			EventName:   event.Name,
			Role:        role,
		},
	}
}
