package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordExecutor posts to a discord webhook. *discordgo.Session satisfies it.
type DiscordExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// newDiscordSession returns a token-less session; webhook execution is
// authorised by the webhook token alone.
func newDiscordSession() DiscordExecutor {
	s, err := discordgo.New("")
	if err != nil {
		zap.L().Warn("alerts: discord session unavailable", zap.Error(err))
		return nil
	}
	return s
}

// deliver sends webhook notifications for a to all configured targets.
// Errors are logged but do not affect the caller.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		target := wh.URL()
		if target == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = e.sendSlack(target, a)
		case "teams":
			err = e.sendTeams(target, a)
		case "discord":
			err = e.sendDiscord(target, a)
		case "http":
			err = e.sendHTTP(target, a)
		default:
			zap.L().Warn("alerts: unknown webhook type, skipping", zap.String("type", wh.Type))
			continue
		}

		if err != nil {
			zap.L().Error("alerts: webhook delivery failed",
				zap.String("type", wh.Type),
				zap.String("rule", a.RuleName),
				zap.Error(err))
		} else {
			zap.L().Debug("alerts: webhook delivered",
				zap.String("type", wh.Type),
				zap.String("rule", a.RuleName),
				zap.String("state", a.State))
		}
	}
}

func (e *Engine) sendSlack(target string, a *Alert) error {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s* %s", severityLabel(a.Severity), a.Message),
	})
	return e.post(target, body)
}

func (e *Engine) sendTeams(target string, a *Alert) error {
	payload := map[string]any{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    a.RuleName,
		"title":      fmt.Sprintf("Predictor Alert: %s", a.RuleName),
		"text":       a.Message,
	}
	body, _ := json.Marshal(payload)
	return e.post(target, body)
}

func (e *Engine) sendHTTP(target string, a *Alert) error {
	body, _ := json.Marshal(map[string]any{"alert": a})
	return e.post(target, body)
}

func (e *Engine) sendDiscord(target string, a *Alert) error {
	if e.discord == nil {
		return fmt.Errorf("discord session unavailable")
	}
	id, token, err := parseDiscordWebhook(target)
	if err != nil {
		return err
	}
	color, _ := strconv.ParseInt(severityColor(a.Severity), 16, 32)
	_, err = e.discord.WebhookExecute(id, token, false, &discordgo.WebhookParams{
		Username: "crazy-time-predictor",
		Embeds: []*discordgo.MessageEmbed{{
			Title:       fmt.Sprintf("%s %s (%s)", severityLabel(a.Severity), a.RuleName, a.State),
			Description: a.Message,
			Color:       int(color),
			Timestamp:   a.FiredAt.Format(time.RFC3339),
		}},
	})
	if err != nil {
		return fmt.Errorf("discord execute: %w", err)
	}
	return nil
}

// parseDiscordWebhook splits https://discord.com/api/webhooks/{id}/{token}.
func parseDiscordWebhook(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse discord webhook: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("parse discord webhook: no id/token in %q", u.Path)
}

func (e *Engine) post(target string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case "critical":
		return "[CRITICAL]"
	case "warning":
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case "critical":
		return "FF4F6A"
	case "warning":
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
