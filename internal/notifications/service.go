package notifications

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"creativeflow/internal/config"
)

const userAgent = "creativeflow/0.1.0"

// Event names a notification type.
type Event string

const (
	EventApprovalRequested Event = "approval_requested"
	EventRunFailed         Event = "run_failed"
	EventTest              Event = "test"
)

// Payload carries event fields keyed by name.
type Payload map[string]any

// ApprovalAsset is a finished suggestion awaiting human review.
type ApprovalAsset struct {
	RunID    string
	Index    int
	Title    string
	Script   string
	Language string
	AssetRef string
	Kind     string
}

// Payload renders the asset as an approval event payload.
func (a ApprovalAsset) Payload() Payload {
	return Payload{
		"runId":    a.RunID,
		"index":    a.Index,
		"title":    a.Title,
		"script":   a.Script,
		"language": a.Language,
		"assetRef": a.AssetRef,
		"kind":     a.Kind,
	}
}

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	Name() string
}

// NewService builds the notifier selected by notifications.provider.
func NewService(cfg *config.Config) Service {
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch cfg.Notifications.Provider {
	case config.NotifySlack:
		if url := strings.TrimSpace(cfg.Notifications.SlackWebhookURL); url != "" {
			return &slackService{webhookURL: url, client: client}
		}
	case config.NotifyNtfy:
		if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
			return &ntfyService{endpoint: topic, client: client}
		}
	}
	return noopService{}
}

type message struct {
	title    string
	body     string
	link     string
	tags     []string
	priority string
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventApprovalRequested:
		title := text(payload, "title")
		if title == "" {
			title = fmt.Sprintf("Suggestion %d", intValue(payload, "index")+1)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "🎬 Ready for review: %s", title)
		if lang := text(payload, "language"); lang != "" {
			fmt.Fprintf(&b, " [%s]", lang)
		}
		if script := text(payload, "script"); script != "" {
			b.WriteString("\n\n")
			b.WriteString(script)
		}
		return message{
			title: "Creative - Approval Needed",
			body:  b.String(),
			link:  text(payload, "assetRef"),
			tags:  []string{"creativeflow", "approval", firstNonEmpty(text(payload, "kind"), "audio")},
		}, true
	case EventRunFailed:
		var b strings.Builder
		b.WriteString("❌ Run failed")
		if runID := text(payload, "runId"); runID != "" {
			b.WriteString(" (")
			b.WriteString(runID)
			b.WriteString(")")
		}
		b.WriteString(": ")
		b.WriteString(firstNonEmpty(text(payload, "error"), "unknown"))
		return message{
			title:    "Creative - Error",
			body:     b.String(),
			tags:     []string{"creativeflow", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Creative - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"creativeflow", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func text(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func intValue(payload Payload, key string) int {
	if v, ok := payload[key].(int); ok {
		return v
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) Name() string                                  { return config.NotifyNone }
