package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"creativeflow/internal/config"
	"creativeflow/internal/services"
)

type slackService struct {
	webhookURL string
	client     *http.Client
}

type slackMessage struct {
	Text string `json:"text"`
}

func (s *slackService) Name() string { return config.NotifySlack }

func (s *slackService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n%s", msg.title, msg.body)
	if msg.link != "" {
		fmt.Fprintf(&b, "\n<%s|Open asset>", msg.link)
	}
	body, err := json.Marshal(slackMessage{Text: b.String()})
	if err != nil {
		return fmt.Errorf("encode slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrNotifyFailed, "notify", "slack", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrNotifyFailed, "notify", "slack", fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
