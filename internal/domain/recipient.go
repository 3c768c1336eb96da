package domain

import "time"

// SubscriptionTier represents a recipient's paid tier.
type SubscriptionTier string

// Subscription tiers.
const (
	TierStandard SubscriptionTier = "standard"
	TierGold     SubscriptionTier = "gold"
)

// Recipient is the engine's read-only view of a user. It is owned by the
// external user store; the engine never writes it.
type Recipient struct {
	ID            string
	Name          string
	Phone         string
	Email         string
	ShareID       string
	Timezone      string
	Tier          SubscriptionTier
	TierExpiresAt *time.Time
	SignupAt      time.Time
	LastActiveAt  *time.Time
	LastInboundAt *time.Time
	OptedOut      bool
	IsActive      bool
	ItemCount     int
	EventCount    int
	CircleCount   int
}

// DisplayName returns the recipient's name or a neutral fallback.
func (r *Recipient) DisplayName() string {
	if r.Name == "" {
		return "there"
	}
	return r.Name
}

// HasActiveGold reports whether the recipient's gold subscription is active
// at the given instant.
func (r *Recipient) HasActiveGold(now time.Time) bool {
	if r.Tier != TierGold {
		return false
	}
	return r.TierExpiresAt == nil || r.TierExpiresAt.After(now)
}

// Location resolves the recipient's IANA timezone, falling back to UTC.
func (r *Recipient) Location() *time.Location {
	if r.Timezone != "" {
		if loc, err := time.LoadLocation(r.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}
