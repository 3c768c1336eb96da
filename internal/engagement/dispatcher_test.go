package engagement

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giftist/engage/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(t *testing.T, channel Channel, window SendWindow) *Dispatcher {
	t.Helper()
	renderer, err := NewRenderer()
	require.NoError(t, err)
	return NewDispatcher(channel, renderer, window, testLogger())
}

func dailyCandidate(r *domain.Recipient, at time.Time) Candidate {
	return Candidate{
		Recipient:   r,
		Kind:        domain.KindDailyEngagement,
		TriggerTime: at,
		DedupKey:    dayBucket(at),
		Payload: DailyEngagementPayload{
			DisplayName: r.DisplayName(),
		},
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	channel := &fakeChannel{}
	d := newTestDispatcher(t, channel, SendWindow{})

	r := testRecipient("u1")
	entry, err := d.Dispatch(context.Background(), dailyCandidate(&r, testNow))
	require.NoError(t, err)

	assert.Equal(t, "u1", entry.RecipientID)
	assert.Equal(t, string(domain.KindDailyEngagement), entry.Kind)
	assert.Equal(t, "fake", entry.Channel)
	assert.Equal(t, "msg-1", entry.ExternalMessageID)
	assert.NotEmpty(t, entry.ID)

	require.Len(t, channel.sent, 1)
	msg := channel.sent[0]
	assert.Equal(t, r.Phone, msg.To)
	assert.Contains(t, msg.Body, "Ada")
	assert.Equal(t, "daily_nudge", msg.Template)
	assert.False(t, msg.Session)
}

func TestDispatcher_SendWindow(t *testing.T) {
	window := DefaultSendWindow()

	tests := []struct {
		name    string
		at      time.Time
		allowed bool
	}{
		{"weekday lunch", time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC), true},
		{"weekday evening", time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC), true},
		{"weekday morning", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), false},
		{"weekday late night", time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC), false},
		{"saturday morning", time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC), true},
		{"sunday late night", time.Date(2026, 3, 8, 23, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel := &fakeChannel{}
			d := newTestDispatcher(t, channel, window)

			r := testRecipient("u1")
			_, err := d.Dispatch(context.Background(), dailyCandidate(&r, tt.at))
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrOutsideSendWindow)
				assert.Zero(t, channel.sentCount())
			}
		})
	}
}

func TestDispatcher_SendWindowUsesRecipientTimezone(t *testing.T) {
	channel := &fakeChannel{}
	d := newTestDispatcher(t, channel, DefaultSendWindow())

	// 17:30 UTC on a Monday is 09:30 in Los Angeles: blocked there, open in
	// London.
	at := time.Date(2026, 3, 2, 17, 30, 0, 0, time.UTC)

	la := testRecipient("u1")
	la.Timezone = "America/Los_Angeles"
	_, err := d.Dispatch(context.Background(), dailyCandidate(&la, at))
	assert.ErrorIs(t, err, ErrOutsideSendWindow)

	london := testRecipient("u2")
	london.Timezone = "Europe/London"
	_, err = d.Dispatch(context.Background(), dailyCandidate(&london, at))
	assert.NoError(t, err)
}

func TestDispatcher_ReactiveKindBypassesWindow(t *testing.T) {
	channel := &fakeChannel{}
	d := newTestDispatcher(t, channel, DefaultSendWindow())

	r := testRecipient("u1")
	// 3 AM on a weekday.
	at := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)

	_, err := d.Dispatch(context.Background(), Candidate{
		Recipient:   &r,
		Kind:        domain.KindListViewed,
		TriggerTime: at,
		DedupKey:    "bob",
		Payload:     ListViewedPayload{DisplayName: "Ada", ViewerName: "Bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, channel.sentCount())
}

func TestDispatcher_SessionSelection(t *testing.T) {
	channel := &fakeChannel{}
	d := newTestDispatcher(t, channel, SendWindow{})

	recent := testNow.Add(-2 * time.Hour)
	r := testRecipient("u1")
	r.LastInboundAt = &recent

	_, err := d.Dispatch(context.Background(), dailyCandidate(&r, testNow))
	require.NoError(t, err)
	assert.True(t, channel.sent[0].Session)

	stale := testNow.Add(-30 * time.Hour)
	r2 := testRecipient("u2")
	r2.LastInboundAt = &stale

	_, err = d.Dispatch(context.Background(), dailyCandidate(&r2, testNow))
	require.NoError(t, err)
	assert.False(t, channel.sent[1].Session)
}

func TestDispatcher_ChannelError(t *testing.T) {
	channel := &fakeChannel{sendErr: NewPermanentDispatchError(assert.AnError)}
	d := newTestDispatcher(t, channel, SendWindow{})

	r := testRecipient("u1")
	entry, err := d.Dispatch(context.Background(), dailyCandidate(&r, testNow))
	require.Error(t, err)
	assert.Nil(t, entry)
	assert.False(t, isRetryable(err))
}
