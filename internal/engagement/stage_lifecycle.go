package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/giftist/engage/internal/domain"
)

// LifecycleNudgeStage prompts recipients as their signup age crosses
// configured milestones. Each milestone fires exactly once ever.
type LifecycleNudgeStage struct {
	policy Policy
}

// NewLifecycleNudgeStage creates the lifecycle evaluator.
func NewLifecycleNudgeStage(policy Policy) *LifecycleNudgeStage {
	return &LifecycleNudgeStage{policy: policy}
}

// Kind returns the stage's notification kind.
func (s *LifecycleNudgeStage) Kind() domain.NotificationKind {
	return domain.KindLifecycleNudge
}

// Evaluate emits one candidate per due milestone whose condition still
// holds, keyed by the milestone slug.
func (s *LifecycleNudgeStage) Evaluate(ctx context.Context, now time.Time, store EligibilityStore) (Evaluation, error) {
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

		age := now.Sub(r.SignupAt)
		for _, m := range s.policy.Milestones {
			if age < time.Duration(m.AfterDays)*24*time.Hour {
				continue
			}
			if !milestoneApplies(m, r) {
				continue
			}
			set.add(Candidate{
				Recipient:   r,
				Kind:        domain.KindLifecycleNudge,
				TriggerTime: now,
				DedupKey:    m.Slug,
				Payload: LifecycleNudgePayload{
					DisplayName: r.DisplayName(),
					Milestone:   m.Slug,
					ItemCount:   r.ItemCount,
					EventCount:  r.EventCount,
					CircleCount: r.CircleCount,
				},
			})
		}
	}

	ev.Candidates = set.out
	return ev, nil
}

func milestoneApplies(m Milestone, r *domain.Recipient) bool {
	switch m.Condition {
	case ConditionFewItems:
		return r.ItemCount < m.MaxItems
	case ConditionNoEvents:
		return r.EventCount == 0
	case ConditionNoCircle:
		return r.CircleCount == 0
	}
	return false
}
