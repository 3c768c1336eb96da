package engagement

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/giftist/engage/internal/domain"
	"github.com/giftist/engage/internal/pkg/httputil"
)

// Handler exposes the engine's HTTP surface: the cron trigger and the
// list-view tracker.
type Handler struct {
	coordinator *Coordinator
	store       EligibilityStore
	validator   *validator.Validate
	cronSecret  string
	logger      *slog.Logger

	now func() time.Time
}

// NewHandler creates an engagement handler.
func NewHandler(coordinator *Coordinator, store EligibilityStore, cronSecret string, logger *slog.Logger) *Handler {
	return &Handler{
		coordinator: coordinator,
		store:       store,
		validator:   validator.New(),
		cronSecret:  cronSecret,
		logger:      logger,
		now:         time.Now,
	}
}

// RegisterRoutes registers engagement routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/cron/engagement", h.TriggerRun)
	r.Post("/track-view", h.TrackView)
}

// TriggerRun handles GET /cron/engagement. The caller authenticates with the
// shared cron secret; an optional stage parameter limits the run to one
// stage.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		httputil.Error(w, http.StatusUnauthorized, "invalid or missing cron secret")
		return
	}

	now := h.now()
	stage := r.URL.Query().Get("stage")
	if stage != "" {
		kind := domain.NotificationKind(strings.ToUpper(stage))
		report, err := h.coordinator.RunOne(r.Context(), kind, now)
		if err != nil {
			if errors.Is(err, ErrUnknownStage) {
				httputil.Error(w, http.StatusBadRequest, "unknown stage: "+stage)
				return
			}
			httputil.HandleError(r.Context(), w, err, nil)
			return
		}
		httputil.JSON(w, http.StatusOK, report)
		return
	}

	report := h.coordinator.RunAll(r.Context(), now)
	httputil.JSON(w, http.StatusOK, report)
}

// TrackViewRequest is the body of a list-view ping.
type TrackViewRequest struct {
	ShareID    string `json:"share_id" validate:"required"`
	ViewerName string `json:"viewer_name" validate:"max=100"`
}

// TrackView handles POST /track-view. The endpoint sits on the public share
// page path, so it always answers 200; a notification failure must never
// leak to the viewer.
func (h *Handler) TrackView(w http.ResponseWriter, r *http.Request) {
	defer httputil.JSON(w, http.StatusOK, map[string]bool{"ok": true})

	var req TrackViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.DebugContext(r.Context(), "track-view: malformed body", slog.Any("error", err))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.logger.DebugContext(r.Context(), "track-view: invalid request", slog.Any("error", err))
		return
	}

	recipient, err := h.store.GetRecipientByShareID(r.Context(), req.ShareID)
	if err != nil {
		if !errors.Is(err, ErrRecipientNotFound) {
			h.logger.ErrorContext(r.Context(), "track-view: recipient lookup failed",
				slog.String("share_id", req.ShareID),
				slog.Any("error", err))
		}
		return
	}
	if recipient.OptedOut || !recipient.IsActive {
		return
	}

	candidate := viewCandidate(recipient, req.ViewerName, h.now())
	if err := h.coordinator.RunAdHoc(r.Context(), candidate); err != nil {
		h.logger.WarnContext(r.Context(), "track-view: notification failed",
			slog.String("recipient_id", recipient.ID),
			slog.Any("error", err))
	}
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

// viewCandidate builds the list-view notification. The dedup key combines
// the normalized viewer identity with the day bucket: distinct viewers each
// get through the debounce window, repeat visits from the same viewer
// collapse, and a view after the window closes appends a fresh ledger entry
// instead of colliding with the stale one.
func viewCandidate(recipient *domain.Recipient, viewerName string, now time.Time) Candidate {
	normalized := strings.ToLower(strings.TrimSpace(viewerName))
	display := strings.TrimSpace(viewerName)
	if normalized == "" || normalized == "anonymous" {
		normalized = "anonymous"
		display = "Someone"
	}
	return Candidate{
		Recipient:   recipient,
		Kind:        domain.KindListViewed,
		TriggerTime: now,
		DedupKey:    normalized + ":" + dayBucket(now.UTC()),
		Payload: ListViewedPayload{
			DisplayName: recipient.DisplayName(),
			ViewerName:  display,
		},
	}
}
