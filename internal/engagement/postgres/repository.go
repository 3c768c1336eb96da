// Package postgres provides the PostgreSQL implementation of the engagement
// ledger and eligibility store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/giftist/engage/internal/domain"
	"github.com/giftist/engage/internal/engagement"
)

const uniqueViolation = "23505"

// Repository implements engagement.Ledger and engagement.EligibilityStore
// over the product database. Only the notification ledger belongs to this
// service; users, events and contributions are read-only product tables.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const recipientColumns = `
	u.id, u.name, u.phone, u.email, u.share_id, u.timezone,
	u.tier, u.tier_expires_at, u.signup_at, u.last_active_at, u.last_inbound_at,
	u.opted_out, u.is_active,
	(SELECT COUNT(*) FROM registry_items i WHERE i.owner_id = u.id) AS item_count,
	(SELECT COUNT(*) FROM registry_events e WHERE e.owner_id = u.id) AS event_count,
	(SELECT COUNT(*) FROM circle_members c WHERE c.user_id = u.id) AS circle_count`

// Append inserts a ledger entry. A duplicate (recipient_id, kind, dedup_key)
// maps the unique violation to engagement.ErrLedgerConflict.
func (r *Repository) Append(ctx context.Context, entry *engagement.LedgerEntry) error {
	query := `
		INSERT INTO notification_ledger (id, recipient_id, kind, dedup_key, sent_at, channel, external_message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.RecipientID,
		entry.Kind,
		entry.DedupKey,
		entry.SentAt,
		entry.Channel,
		entry.ExternalMessageID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return engagement.ErrLedgerConflict
		}
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// Exists reports whether a matching ledger entry exists. A zero since checks
// the full history.
func (r *Repository) Exists(ctx context.Context, recipientID, kind, dedupKey string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM notification_ledger
			WHERE recipient_id = $1 AND kind = $2 AND dedup_key = $3 AND sent_at >= $4
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, recipientID, kind, dedupKey, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("check ledger: %w", err)
	}
	return exists, nil
}

// ListEngageable returns active, opted-in recipients with a phone number.
func (r *Repository) ListEngageable(ctx context.Context) ([]domain.Recipient, error) {
	query := `
		SELECT ` + recipientColumns + `
		FROM users u
		WHERE u.is_active AND NOT u.opted_out AND u.phone <> ''
		ORDER BY u.signup_at
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list engageable recipients: %w", err)
	}
	defer rows.Close()

	return scanRecipients(rows)
}

// ListEventsBetween returns registry events dated within [from, to].
func (r *Repository) ListEventsBetween(ctx context.Context, from, to time.Time) ([]domain.RegistryEvent, error) {
	query := `
		SELECT id, owner_id, name, event_date, item_count, created_at
		FROM registry_events
		WHERE event_date BETWEEN $1 AND $2
		ORDER BY event_date
	`
	return r.queryEvents(ctx, query, from, to)
}

// ListEventsEndedBetween returns registry events whose date passed within
// [from, to).
func (r *Repository) ListEventsEndedBetween(ctx context.Context, from, to time.Time) ([]domain.RegistryEvent, error) {
	query := `
		SELECT id, owner_id, name, event_date, item_count, created_at
		FROM registry_events
		WHERE event_date >= $1 AND event_date < $2
		ORDER BY event_date
	`
	return r.queryEvents(ctx, query, from, to)
}

// ListUpcomingEvents returns a recipient's next events within the horizon.
func (r *Repository) ListUpcomingEvents(ctx context.Context, recipientID string, now time.Time, horizon time.Duration, limit int) ([]domain.RegistryEvent, error) {
	query := `
		SELECT id, owner_id, name, event_date, item_count, created_at
		FROM registry_events
		WHERE owner_id = $1 AND event_date BETWEEN $2 AND $3
		ORDER BY event_date
		LIMIT $4
	`
	rows, err := r.db.Query(ctx, query, recipientID, now, now.Add(horizon), limit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListContributors returns the distinct recipients who contributed to an
// event.
func (r *Repository) ListContributors(ctx context.Context, eventID string) ([]domain.Recipient, error) {
	query := `
		SELECT DISTINCT ON (u.id) ` + recipientColumns + `
		FROM users u
		JOIN contributions co ON co.contributor_id = u.id
		WHERE co.event_id = $1
	`
	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list contributors: %w", err)
	}
	defer rows.Close()

	return scanRecipients(rows)
}

// GetRecipient retrieves a recipient by ID.
func (r *Repository) GetRecipient(ctx context.Context, id string) (*domain.Recipient, error) {
	query := `
		SELECT ` + recipientColumns + `
		FROM users u
		WHERE u.id = $1
	`
	return r.getRecipient(ctx, query, id)
}

// GetRecipientByShareID retrieves a recipient by their public share link ID.
func (r *Repository) GetRecipientByShareID(ctx context.Context, shareID string) (*domain.Recipient, error) {
	query := `
		SELECT ` + recipientColumns + `
		FROM users u
		WHERE u.share_id = $1
	`
	return r.getRecipient(ctx, query, shareID)
}

func (r *Repository) getRecipient(ctx context.Context, query string, arg any) (*domain.Recipient, error) {
	var rec domain.Recipient
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&rec.ID,
		&rec.Name,
		&rec.Phone,
		&rec.Email,
		&rec.ShareID,
		&rec.Timezone,
		&rec.Tier,
		&rec.TierExpiresAt,
		&rec.SignupAt,
		&rec.LastActiveAt,
		&rec.LastInboundAt,
		&rec.OptedOut,
		&rec.IsActive,
		&rec.ItemCount,
		&rec.EventCount,
		&rec.CircleCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, engagement.ErrRecipientNotFound
		}
		return nil, fmt.Errorf("get recipient: %w", err)
	}
	return &rec, nil
}

func (r *Repository) queryEvents(ctx context.Context, query string, from, to time.Time) ([]domain.RegistryEvent, error) {
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanRecipients(rows pgx.Rows) ([]domain.Recipient, error) {
	recipients := make([]domain.Recipient, 0)
	for rows.Next() {
		var rec domain.Recipient
		err := rows.Scan(
			&rec.ID,
			&rec.Name,
			&rec.Phone,
			&rec.Email,
			&rec.ShareID,
			&rec.Timezone,
			&rec.Tier,
			&rec.TierExpiresAt,
			&rec.SignupAt,
			&rec.LastActiveAt,
			&rec.LastInboundAt,
			&rec.OptedOut,
			&rec.IsActive,
			&rec.ItemCount,
			&rec.EventCount,
			&rec.CircleCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		recipients = append(recipients, rec)
	}
	return recipients, rows.Err()
}

func scanEvents(rows pgx.Rows) ([]domain.RegistryEvent, error) {
	events := make([]domain.RegistryEvent, 0)
	for rows.Next() {
		var ev domain.RegistryEvent
		err := rows.Scan(
			&ev.ID,
			&ev.OwnerID,
			&ev.Name,
			&ev.Date,
			&ev.ItemCount,
			&ev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
