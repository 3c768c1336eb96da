package engagement

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/giftist/engage/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var templateFiles = map[domain.NotificationKind]string{
	domain.KindDailyEngagement:     "daily_engagement",
	domain.KindGoldDailyEngagement: "gold_daily",
	domain.KindCircleEventReminder: "event_reminder",
	domain.KindPostEventFollowup:   "post_event_followup",
	domain.KindSeasonalReminder:    "seasonal_reminder",
	domain.KindLifecycleNudge:      "lifecycle_nudge",
	domain.KindListViewed:          "list_viewed",
}

// Renderer turns payloads into message text for the channel.
type Renderer struct {
	templates map[domain.NotificationKind]*template.Template
}

// NewRenderer loads and parses all message templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":      titleCase,
		"upper":      strings.ToUpper,
		"lower":      strings.ToLower,
		"formatDate": formatDate,
		"plural":     pluralSuffix,
	}

	r := &Renderer{templates: make(map[domain.NotificationKind]*template.Template)}

	for kind, name := range templateFiles {
		filename := fmt.Sprintf("templates/%s.tmpl", name)
		content, err := templatesFS.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", filename, err)
		}
		tmpl, err := template.New(name).Funcs(funcMap).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[kind] = tmpl
	}

	return r, nil
}

// Render produces the free-form message body for a payload.
func (r *Renderer) Render(p Payload) (string, error) {
	tmpl, ok := r.templates[p.Kind()]
	if !ok {
		return "", fmt.Errorf("no template for kind %s", p.Kind())
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render %s: %w", p.Kind(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// TemplateArgs returns the pre-approved channel template name and its
// positional parameters for out-of-session sends.
func (r *Renderer) TemplateArgs(p Payload) (string, []string) {
	switch v := p.(type) {
	case DailyEngagementPayload:
		return "daily_nudge", []string{v.DisplayName, strconv.Itoa(v.ItemCount)}
	case GoldDailyPayload:
		return "gold_daily", []string{v.DisplayName}
	case EventReminderPayload:
		return "event_countdown", []string{v.DisplayName, v.EventName, strconv.Itoa(v.DaysLeft)}
	case PostEventFollowupPayload:
		return "post_event_followup", []string{v.DisplayName, v.EventName}
	case SeasonalReminderPayload:
		return "seasonal_reminder", []string{v.DisplayName, v.OccasionName}
	case LifecycleNudgePayload:
		return "lifecycle_nudge", []string{v.DisplayName}
	case ListViewedPayload:
		return "list_viewed", []string{v.DisplayName, v.ViewerName}
	}
	return "", nil
}

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}

func formatDate(t time.Time) string {
	return t.Format("January 2")
}

// pluralSuffix returns "s" unless n is exactly one.
func pluralSuffix(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
