package slackadapter

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
	"github.com/kirillkom/leave-policy-bot/internal/core/usecase"
)

var mentionPattern = regexp.MustCompile(`<@[^>]+>`)

const (
	responseInChannel = "in_channel"
	responseEphemeral = "ephemeral"
)

// Poster is the part of the Slack Web API the bot writes through.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Responder answers a slash command through its response URL.
type Responder func(ctx context.Context, responseURL string, msg *slack.WebhookMessage) error

// Acker acknowledges socket mode envelopes.
type Acker interface {
	Ack(req socketmode.Request, payload ...interface{})
}

// Observer receives per-answer telemetry.
type Observer interface {
	RecordAnswer(service, endpoint, contextSource string, sourceCount int, degraded bool, duration time.Duration)
	RecordRateLimited(service, scope string)
}

type Config struct {
	ServiceName  string
	SlashCommand string
	CountryCode  string
	AnswerWait   time.Duration
}

type Bot struct {
	conversations ports.ConversationHandler
	poster        Poster
	respond       Responder
	observer      Observer
	cfg           Config
}

func NewBot(conversations ports.ConversationHandler, poster Poster, respond Responder, observer Observer, cfg Config) *Bot {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "leavebot-slack"
	}
	if cfg.SlashCommand == "" {
		cfg.SlashCommand = "/leave-policy"
	}
	if cfg.AnswerWait <= 0 {
		cfg.AnswerWait = 2 * time.Minute
	}
	if respond == nil {
		respond = slack.PostWebhookContext
	}
	return &Bot{
		conversations: conversations,
		poster:        poster,
		respond:       respond,
		observer:      observer,
		cfg:           cfg,
	}
}

// Run consumes socket mode events until ctx is done or the client stops.
func (b *Bot) Run(ctx context.Context, client *socketmode.Client) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.RunContext(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case evt, ok := <-client.Events:
			if !ok {
				return nil
			}
			b.Dispatch(ctx, client, evt)
		}
	}
}

// Dispatch acknowledges evt and hands it to the matching handler in the background.
func (b *Bot) Dispatch(ctx context.Context, acker Acker, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		slog.Info("slack_connecting")
	case socketmode.EventTypeConnected:
		slog.Info("slack_connected")
	case socketmode.EventTypeConnectionError:
		slog.Warn("slack_connection_error")
	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			acker.Ack(*evt.Request)
		}
		if apiEvent.Type != slackevents.CallbackEvent {
			return
		}
		switch inner := apiEvent.InnerEvent.Data.(type) {
		case *slackevents.AppMentionEvent:
			go b.HandleAppMention(ctx, inner)
		case *slackevents.MessageEvent:
			go b.HandleDirectMessage(ctx, inner)
		}
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		if evt.Request != nil {
			acker.Ack(*evt.Request)
		}
		go b.HandleSlashCommand(ctx, cmd)
	}
}

func (b *Bot) HandleAppMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	question := strings.TrimSpace(mentionPattern.ReplaceAllString(ev.Text, ""))
	text, _ := b.answer(ctx, "slack_mention", domain.Inquiry{
		Channel:   ev.Channel,
		Requester: ev.User,
		Text:      question,
	})

	threadTS := ev.ThreadTimeStamp
	if threadTS == "" {
		threadTS = ev.TimeStamp
	}
	b.post(ctx, ev.Channel, slack.MsgOptionText(text, false), slack.MsgOptionTS(threadTS))
}

// HandleDirectMessage answers messages in direct conversations only. Bot
// messages and edits are ignored.
func (b *Bot) HandleDirectMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	if ev.ChannelType != "im" || ev.BotID != "" || ev.SubType != "" {
		return
	}
	text, _ := b.answer(ctx, "slack_dm", domain.Inquiry{
		Channel:   ev.Channel,
		Requester: ev.User,
		Text:      strings.TrimSpace(ev.Text),
	})
	b.post(ctx, ev.Channel, slack.MsgOptionText(text, false))
}

func (b *Bot) HandleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	if cmd.Command != "" && cmd.Command != b.cfg.SlashCommand {
		return
	}
	question := strings.TrimSpace(cmd.Text)
	text, answered := b.answer(ctx, "slack_command", domain.Inquiry{
		Channel:   cmd.ChannelID,
		Requester: cmd.UserID,
		Text:      question,
	})
	responseType := responseInChannel
	if question == "" || !answered {
		responseType = responseEphemeral
	}

	msg := &slack.WebhookMessage{Text: text, ResponseType: responseType}
	if err := b.respond(ctx, cmd.ResponseURL, msg); err != nil {
		slog.Error("slack_respond_failed", "channel", cmd.ChannelID, "error", err)
	}
}

// answer runs the inquiry and always yields user-facing text. answered is
// false when the text explains a rejection or failure.
func (b *Bot) answer(ctx context.Context, endpoint string, inquiry domain.Inquiry) (text string, answered bool) {
	if inquiry.CountryCode == "" {
		inquiry.CountryCode = b.cfg.CountryCode
	}
	ctx, cancel := context.WithTimeout(ctx, b.cfg.AnswerWait)
	defer cancel()

	started := time.Now()
	reply, err := b.conversations.Handle(ctx, inquiry)
	if err != nil {
		var limited *domain.RateLimitError
		if errors.As(err, &limited) {
			if b.observer != nil {
				b.observer.RecordRateLimited(b.cfg.ServiceName, "requester")
			}
			return usecase.RateLimitMessage(limited.RetryAfter), false
		}
		slog.Error("slack_answer_failed", "endpoint", endpoint, "channel", inquiry.Channel, "error", err)
		return usecase.MessageFailure, false
	}
	if b.observer != nil && inquiry.Text != "" {
		b.observer.RecordAnswer(b.cfg.ServiceName, endpoint, string(reply.ContextSource), len(reply.Sources), reply.Degraded, time.Since(started))
	}
	return reply.Text, !reply.Degraded
}

func (b *Bot) post(ctx context.Context, channel string, options ...slack.MsgOption) {
	if _, _, err := b.poster.PostMessageContext(ctx, channel, options...); err != nil {
		slog.Error("slack_post_failed", "channel", channel, "error", err)
	}
}
