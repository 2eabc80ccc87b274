package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/huangang/ouranotify/internal/models"
	"github.com/huangang/ouranotify/internal/services/retry"
	"github.com/huangang/ouranotify/pkg/logger"
)

// Discord limits.
const (
	maxContentLen     = 2000
	maxEmbedsPerPost  = 10
	defaultEmbedColor = models.ColorTeal
)

type EmbedFooter struct {
	Text string `json:"text"`
}

type DiscordEmbed struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []models.Field `json:"fields,omitempty"`
	Footer      *EmbedFooter   `json:"footer,omitempty"`
}

// DiscordMessage is the body shared by webhook executes, channel messages
// and interaction edits.
type DiscordMessage struct {
	Content  string         `json:"content,omitempty"`
	Username string         `json:"username,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds,omitempty"`
}

// NotificationAdapter delivers one message to a Discord destination.
type NotificationAdapter interface {
	Name() string
	Send(ctx context.Context, msg *DiscordMessage) error
}

// DiscordError is a non-2xx answer from Discord.
type DiscordError struct {
	StatusCode int
	Body       string
}

func (e *DiscordError) Error() string {
	body := e.Body
	if len(body) > 500 {
		body = body[:500] + "..."
	}
	return fmt.Sprintf("discord returned status %d: %s", e.StatusCode, body)
}

func embedFromSection(s models.Section) DiscordEmbed {
	e := DiscordEmbed{
		Title:       s.Title,
		Description: s.Description,
		Color:       s.Color,
		Fields:      s.Fields,
	}
	if e.Color == 0 {
		e.Color = defaultEmbedColor
	}
	if s.Footer != "" {
		e.Footer = &EmbedFooter{Text: s.Footer}
	}
	return e
}

// buildMessages turns text and sections into the posts Discord accepts:
// content is split at 2000 characters and embeds go out ten at a time.
// The last text part travels with the first batch of embeds.
func buildMessages(username, content string, sections []models.Section) []DiscordMessage {
	var parts []string
	if content != "" {
		parts = splitMessage(content, maxContentLen)
	}

	var msgs []DiscordMessage
	if len(sections) == 0 {
		for _, p := range parts {
			msgs = append(msgs, DiscordMessage{Content: p, Username: username})
		}
		return msgs
	}

	lead := ""
	if len(parts) > 0 {
		for _, p := range parts[:len(parts)-1] {
			msgs = append(msgs, DiscordMessage{Content: p, Username: username})
		}
		lead = parts[len(parts)-1]
	}

	for i := 0; i < len(sections); i += maxEmbedsPerPost {
		end := i + maxEmbedsPerPost
		if end > len(sections) {
			end = len(sections)
		}
		msg := DiscordMessage{Username: username}
		for _, s := range sections[i:end] {
			msg.Embeds = append(msg.Embeds, embedFromSection(s))
		}
		if i == 0 {
			msg.Content = lead
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// splitMessage splits a long message into chunks, preferring newline
// breaks and never cutting a UTF-8 sequence.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var parts []string
	remaining := msg

	for len(remaining) > 0 {
		if len(remaining) <= maxLen {
			parts = append(parts, remaining)
			break
		}

		breakPoint := maxLen
		for breakPoint > 0 && !utf8.RuneStart(remaining[breakPoint]) {
			breakPoint--
		}
		for i := breakPoint - 1; i > maxLen/2; i-- {
			if remaining[i] == '\n' {
				breakPoint = i + 1
				break
			}
		}

		parts = append(parts, remaining[:breakPoint])
		remaining = remaining[breakPoint:]
	}

	return parts
}

// discordTransport sends JSON to Discord with the shared retry policy.
type discordTransport struct {
	client *http.Client
	policy retry.Policy
}

// retryAfter reads the retry_after seconds Discord puts in a 429 body.
func retryAfter(body []byte) time.Duration {
	var doc struct {
		RetryAfter *float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &doc); err != nil || doc.RetryAfter == nil || *doc.RetryAfter <= 0 {
		return 0
	}
	return time.Duration(*doc.RetryAfter * float64(time.Second))
}

func (t *discordTransport) do(ctx context.Context, method, url string, header http.Header, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return t.policy.Do(ctx, func(attempt int) error {
		logger.Debug().Str("method", method).Int("bytes", len(body)).Int("attempt", attempt).Msg("[Notification] request")

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range header {
			req.Header[k] = v
		}

		resp, err := t.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.Transient(err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		dErr := &DiscordError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
		if resp.StatusCode == http.StatusTooManyRequests {
			return retry.TransientAfter(dErr, retryAfter(respBody))
		}
		if retry.IsRetryableStatus(resp.StatusCode) {
			return retry.Transient(dErr)
		}
		return dErr
	})
}

// webhookAdapter executes an incoming webhook.
type webhookAdapter struct {
	transport *discordTransport
	url       string
}

func (a *webhookAdapter) Name() string { return "webhook" }

func (a *webhookAdapter) Send(ctx context.Context, msg *DiscordMessage) error {
	return a.transport.do(ctx, http.MethodPost, a.url, nil, msg)
}

// channelAdapter posts as the bot user into one channel.
type channelAdapter struct {
	transport *discordTransport
	apiBase   string
	token     string
	channelID models.ChannelID
}

func (a *channelAdapter) Name() string { return "channel:" + string(a.channelID) }

func (a *channelAdapter) Send(ctx context.Context, msg *DiscordMessage) error {
	// Bot messages carry the bot's own name.
	out := *msg
	out.Username = ""
	header := http.Header{"Authorization": {"Bot " + a.token}}
	return a.transport.do(ctx, http.MethodPost, fmt.Sprintf("%s/channels/%s/messages", a.apiBase, a.channelID), header, &out)
}

// interactionAdapter edits the deferred response of an interaction and
// sends any further messages as follow-ups.
type interactionAdapter struct {
	transport *discordTransport
	apiBase   string
	appID     string
	token     string
	edited    bool
}

func (a *interactionAdapter) Name() string { return "interaction" }

func (a *interactionAdapter) Send(ctx context.Context, msg *DiscordMessage) error {
	out := *msg
	out.Username = ""
	base := fmt.Sprintf("%s/webhooks/%s/%s", a.apiBase, a.appID, a.token)
	if !a.edited {
		a.edited = true
		return a.transport.do(ctx, http.MethodPatch, base+"/messages/@original", nil, &out)
	}
	return a.transport.do(ctx, http.MethodPost, base, nil, &out)
}

var ErrNoDestination = errors.New("no discord destination configured")
