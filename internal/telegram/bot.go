// ABOUTME: Telegram long-polling transport feeding messages to the conversation controller
// ABOUTME: Each update runs in its own goroutine; replies thread back to the triggering message

package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/harmonie-ai/harmonie/internal/conversation"
	"github.com/harmonie-ai/harmonie/internal/dedupe"
	"github.com/harmonie-ai/harmonie/internal/persona"
)

const (
	updateTimeoutSeconds = 30

	// Telegram can redeliver updates after a reconnect; remember IDs
	// long enough to cover the long-poll window generously.
	dedupeTTL     = 10 * time.Minute
	dedupeMaxSize = 4096

	// shutdownGracePeriod bounds how long Run waits for in-flight
	// turns after cancellation.
	shutdownGracePeriod = 15 * time.Second
)

// Messages shown to the user when a turn cannot produce a reply.
const (
	declinedMessage = "I'd rather not answer that one. Let's talk about something else 💛"
	failureMessage  = "Sorry, I couldn't come up with a reply just now. Please try again in a moment."
)

// sender is the slice of the Telegram API the message path needs.
// *tgbotapi.BotAPI satisfies it.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot runs the Telegram front of the harmonie service. It owns no
// conversational state; every message is handed to the controller.
type Bot struct {
	api     *tgbotapi.BotAPI
	send    sender
	ctrl    *conversation.Controller
	persona *persona.Persona
	seen    *dedupe.Cache
	logger  *slog.Logger
}

// New creates a Bot and verifies the token against the Telegram API.
func New(token string, ctrl *conversation.Controller, p *persona.Persona, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Bot{
		api:     api,
		send:    api,
		ctrl:    ctrl,
		persona: p,
		seen:    dedupe.New(dedupeTTL, dedupeMaxSize),
		logger:  logger.With("component", "telegram"),
	}, nil
}

// Username returns the bot account's Telegram username.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Run long-polls for updates until ctx is cancelled. Each update is
// handled in its own goroutine so a slow model call never blocks other
// users' turns.
func (b *Bot) Run(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = updateTimeoutSeconds

	updates := b.api.GetUpdatesChan(updateConfig)
	b.logger.Info("telegram bot started", "username", b.Username())

	// Turns started before shutdown get to finish saving; WithoutCancel
	// keeps them alive past ctx while drainTurns bounds the wait.
	turnCtx := context.WithoutCancel(ctx)
	var inFlight sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.drainTurns(&inFlight)
			b.seen.Close()
			b.logger.Info("telegram bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			if b.seen.CheckAndMark(strconv.Itoa(update.UpdateID)) {
				b.logger.Debug("skipping redelivered update", "update_id", update.UpdateID)
				continue
			}
			inFlight.Add(1)
			go func(msg *tgbotapi.Message) {
				defer inFlight.Done()
				b.handleMessage(turnCtx, msg)
			}(update.Message)
		}
	}
}

// drainTurns waits for in-flight turns, giving up after the grace period.
func (b *Bot) drainTurns(wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGracePeriod):
		b.logger.Warn("shutdown grace period elapsed with turns still in flight")
	}
}

// handleMessage runs one turn for an incoming text message.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userName := ""
	userID := ""
	if msg.From != nil {
		userName = msg.From.FirstName
		userID = strconv.FormatInt(msg.From.ID, 10)
	}
	logger := b.logger.With("user_id", userID)

	if msg.IsCommand() && msg.Command() == "start" {
		greeting := b.persona.RenderGreeting(userName, msg.Text)
		b.reply(logger, msg, greeting, false)
		return
	}

	result, err := b.ctrl.HandleTurn(ctx, userID, userName, msg.Text)

	// A malformed provider response is treated as transient: retry the
	// turn once before giving up.
	if result == nil && conversation.KindOf(err) == conversation.KindMalformed {
		logger.Warn("malformed provider response, retrying turn once", "error", err)
		result, err = b.ctrl.HandleTurn(ctx, userID, userName, msg.Text)
	}

	if result == nil {
		switch conversation.KindOf(err) {
		case conversation.KindSafetyBlocked:
			logger.Info("turn declined by safety filter")
			b.reply(logger, msg, declinedMessage, false)
		default:
			logger.Error("turn failed", "error", err)
			b.reply(logger, msg, failureMessage, false)
		}
		return
	}

	if err != nil {
		// Content success with a persistence warning: the user still
		// gets the reply, the context loss is only logged.
		logger.Warn("reply delivered without persistence", "error", err)
	}

	b.reply(logger, msg, result.Reply, true)
}

// reply sends text back threaded to the triggering message. Model output
// is rendered from Markdown to Telegram HTML; if Telegram rejects the
// rendered entities the reply falls back to plain text so the user never
// loses an answer to a formatting quirk.
func (b *Bot) reply(logger *slog.Logger, msg *tgbotapi.Message, text string, rendered bool) {
	if rendered {
		if html, err := RenderHTML(text); err == nil {
			out := tgbotapi.NewMessage(msg.Chat.ID, html)
			out.ReplyToMessageID = msg.MessageID
			out.ParseMode = tgbotapi.ModeHTML
			if _, err := b.send.Send(out); err == nil {
				return
			}
			logger.Warn("html reply rejected, falling back to plain text")
		}
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if _, err := b.send.Send(out); err != nil {
		logger.Error("sending reply failed", "error", err)
	}
}
