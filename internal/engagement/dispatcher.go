package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/giftist/engage/internal/domain"
)

// Channel delivers a rendered message over a concrete transport. Send returns
// the provider's message identifier for the ledger.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg OutboundMessage) (string, error)
}

// OutboundMessage is a channel-agnostic message. When Session is true the
// recipient has an open inbound session and the channel may deliver Body as
// free-form text; otherwise the channel must fall back to the pre-approved
// Template with TemplateParams.
type OutboundMessage struct {
	To             string
	Body           string
	Template       string
	TemplateParams []string
	Session        bool
}

// HourRange is a half-open [From, To) range of local hours.
type HourRange struct {
	From int `koanf:"from"`
	To   int `koanf:"to"`
}

// SendWindow restricts proactive sends to polite local hours. Weekdays are
// limited to the configured ranges; weekends are unrestricted. Reactive
// notifications bypass the window entirely.
type SendWindow struct {
	Enabled       bool        `koanf:"enabled"`
	WeekdayRanges []HourRange `koanf:"weekday_ranges"`
}

// DefaultSendWindow returns the production send window: lunch break and
// evenings on weekdays, any time on weekends.
func DefaultSendWindow() SendWindow {
	return SendWindow{
		Enabled: true,
		WeekdayRanges: []HourRange{
			{From: 12, To: 13},
			{From: 17, To: 22},
		},
	}
}

// Allows reports whether a proactive send is permitted at the recipient's
// local time.
func (w SendWindow) Allows(local time.Time) bool {
	if !w.Enabled {
		return true
	}
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	hour := local.Hour()
	for _, r := range w.WeekdayRanges {
		if hour >= r.From && hour < r.To {
			return true
		}
	}
	return false
}

// sessionLifetime is how long after an inbound message the provider keeps a
// free-form messaging session open.
const sessionLifetime = 24 * time.Hour

// Dispatcher renders a candidate and hands it to the channel. It does not
// touch the ledger; recording a successful send is the coordinator's job.
type Dispatcher struct {
	channel  Channel
	renderer *Renderer
	window   SendWindow
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher for the given channel.
func NewDispatcher(channel Channel, renderer *Renderer, window SendWindow, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		channel:  channel,
		renderer: renderer,
		window:   window,
		logger:   logger,
	}
}

// Dispatch sends one candidate. On success it returns the ledger entry to
// append. Proactive kinds outside the recipient's send window return
// ErrOutsideSendWindow unwrapped so the caller can count them as skipped
// rather than failed.
func (d *Dispatcher) Dispatch(ctx context.Context, c Candidate) (*LedgerEntry, error) {
	if c.Kind != domain.KindListViewed {
		local := c.TriggerTime.In(c.Recipient.Location())
		if !d.window.Allows(local) {
			return nil, ErrOutsideSendWindow
		}
	}

	body, err := d.renderer.Render(c.Payload)
	if err != nil {
		return nil, NewPermanentDispatchError(fmt.Errorf("render %s: %w", c.Kind, err))
	}
	template, params := d.renderer.TemplateArgs(c.Payload)

	msg := OutboundMessage{
		To:             c.Recipient.Phone,
		Body:           body,
		Template:       template,
		TemplateParams: params,
		Session:        d.hasOpenSession(c),
	}

	externalID, err := d.channel.Send(ctx, msg)
	if err != nil {
		return nil, err
	}

	d.logger.DebugContext(ctx, "notification dispatched",
		slog.String("recipient_id", c.Recipient.ID),
		slog.String("kind", string(c.Kind)),
		slog.String("channel", d.channel.Name()),
		slog.Bool("session", msg.Session))

	return &LedgerEntry{
		ID:                uuid.NewString(),
		RecipientID:       c.Recipient.ID,
		Kind:              string(c.Kind),
		DedupKey:          c.DedupKey,
		SentAt:            c.TriggerTime,
		Channel:           d.channel.Name(),
		ExternalMessageID: externalID,
	}, nil
}

func (d *Dispatcher) hasOpenSession(c Candidate) bool {
	last := c.Recipient.LastInboundAt
	return last != nil && c.TriggerTime.Sub(*last) < sessionLifetime
}
