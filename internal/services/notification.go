package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/huangang/ouranotify/internal/config"
	"github.com/huangang/ouranotify/internal/models"
	"github.com/huangang/ouranotify/internal/services/retry"
	"github.com/huangang/ouranotify/pkg/logger"
)

const defaultDiscordAPI = "https://discord.com/api/v10"

// NotificationService delivers text and report sections to Discord. The
// webhook is the default destination; a bot token enables posting to
// arbitrary channels and answering interactions.
type NotificationService struct {
	transport *discordTransport
	webhook   NotificationAdapter
	username  string
	botToken  string
	apiBase   string
}

type NotificationOption func(*NotificationService)

func WithNotificationHTTPClient(hc *http.Client) NotificationOption {
	return func(s *NotificationService) { s.transport.client = hc }
}

func WithNotificationRetry(p retry.Policy) NotificationOption {
	return func(s *NotificationService) { s.transport.policy = p }
}

func WithDiscordAPIBase(base string) NotificationOption {
	return func(s *NotificationService) { s.apiBase = strings.TrimRight(base, "/") }
}

func NewNotificationService(cfg config.DiscordConfig, opts ...NotificationOption) *NotificationService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = defaultDiscordAPI
	}

	s := &NotificationService{
		transport: &discordTransport{
			client: &http.Client{Timeout: timeout},
			policy: retry.NewPolicy("discord", cfg.MaxRetries, cfg.RetryBackoff),
		},
		username: cfg.Username,
		botToken: cfg.BotToken,
		apiBase:  strings.TrimRight(apiBase, "/"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.WebhookURL != "" {
		s.webhook = &webhookAdapter{transport: s.transport, url: cfg.WebhookURL}
	}
	return s
}

// HasBot reports whether a bot token is configured.
func (s *NotificationService) HasBot() bool {
	return s.botToken != ""
}

func (s *NotificationService) deliver(ctx context.Context, adapter NotificationAdapter, msgs []DiscordMessage) error {
	if adapter == nil {
		return ErrNoDestination
	}
	for i := range msgs {
		if err := adapter.Send(ctx, &msgs[i]); err != nil {
			logger.Errorf("[Notification] %s: message %d/%d failed: %v", adapter.Name(), i+1, len(msgs), err)
			return fmt.Errorf("send to %s: %w", adapter.Name(), err)
		}
	}
	logger.Infof("[Notification] %s: sent %d message(s)", adapter.Name(), len(msgs))
	return nil
}

// SendMessage posts text through the webhook, split at Discord's limit.
func (s *NotificationService) SendMessage(ctx context.Context, content string) error {
	return s.deliver(ctx, s.webhook, buildMessages(s.username, content, nil))
}

// SendHealthReport posts a titled report through the webhook. The first
// post carries the title; with no sections only the title is sent.
func (s *NotificationService) SendHealthReport(ctx context.Context, title string, sections []models.Section) error {
	return s.deliver(ctx, s.webhook, buildMessages(s.username, title, sections))
}

// SendToChannel posts into a channel as the bot. Without a bot token or a
// channel the webhook is used instead.
func (s *NotificationService) SendToChannel(ctx context.Context, channelID *models.ChannelID, reply models.Reply) error {
	var adapter NotificationAdapter = s.webhook
	if s.botToken != "" && channelID != nil && *channelID != "" {
		adapter = &channelAdapter{transport: s.transport, apiBase: s.apiBase, token: s.botToken, channelID: *channelID}
	} else if channelID != nil {
		logger.Debugf("[Notification] No bot token, sending channel %s message through webhook", *channelID)
	}
	return s.deliver(ctx, adapter, buildMessages(s.username, reply.Content, reply.Sections))
}

// EditInteractionResponse replaces the deferred "thinking" message of an
// interaction with reply; overflow goes out as follow-ups.
func (s *NotificationService) EditInteractionResponse(ctx context.Context, appID, token string, reply models.Reply) error {
	msgs := buildMessages("", reply.Content, reply.Sections)
	if len(msgs) == 0 {
		msgs = []DiscordMessage{{Content: ":white_check_mark: Done."}}
	}
	adapter := &interactionAdapter{transport: s.transport, apiBase: s.apiBase, appID: appID, token: token}
	return s.deliver(ctx, adapter, msgs)
}
