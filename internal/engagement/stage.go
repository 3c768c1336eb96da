package engagement

import (
	"context"
	"time"

	"github.com/giftist/engage/internal/domain"
)

// StageEvaluator encodes one funnel rule. Evaluators are pure with respect
// to the clock and the store: no sends, no writes. A per-recipient
// eligibility failure is counted, never propagated.
type StageEvaluator interface {
	Kind() domain.NotificationKind
	Evaluate(ctx context.Context, now time.Time, store EligibilityStore) (Evaluation, error)
}

// Evaluation is one evaluator pass: the surviving candidates plus how many
// subjects were examined and how many were skipped for bad data.
type Evaluation struct {
	Candidates []Candidate
	Evaluated  int
	Failed     int
}

// candidateSet accumulates candidates while guaranteeing an evaluator never
// emits two with the same (recipient, kind, dedup key) in one pass.
type candidateSet struct {
	seen map[string]struct{}
	out  []Candidate
}

func newCandidateSet() *candidateSet {
	return &candidateSet{seen: make(map[string]struct{})}
}

func (s *candidateSet) add(c Candidate) {
	key := c.Recipient.ID + "\x00" + string(c.Kind) + "\x00" + c.DedupKey
	if _, dup := s.seen[key]; dup {
		return
	}
	s.seen[key] = struct{}{}
	s.out = append(s.out, c)
}

// checkRecipient validates the fields every stage needs before a candidate
// can be dispatched.
func checkRecipient(r *domain.Recipient) error {
	if r.ID == "" {
		return &EligibilityError{RecipientID: r.ID, Reason: "missing id"}
	}
	if r.Phone == "" {
		return &EligibilityError{RecipientID: r.ID, Reason: "missing phone"}
	}
	return nil
}
