// Package bot implements the Telegram operator interface: status and
// auth commands for the promotion pipeline plus on-demand news, market,
// and weather lookups.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"promobot/internal/ai"
	"promobot/internal/config"
	"promobot/internal/markets"
	"promobot/internal/model"
	"promobot/internal/news"
	"promobot/internal/scheduler"
	"promobot/internal/source"
	"promobot/internal/weather"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// sessionControl is the slice of the source session the operator
// commands need.
type sessionControl interface {
	State() source.State
	HasPendingAuth() bool
	SubmitCode(ctx context.Context, code string) error
	ForceNewAuth(ctx context.Context) error
	SearchContent(ctx context.Context, criteria source.Criteria) ([]model.ContentItem, error)
}

type queueStatus interface {
	Size(category model.Category) int
}

type newsProvider interface {
	Fetch(ctx context.Context, category string) ([]news.Article, error)
}

type quoteProvider interface {
	CoinPrice(ctx context.Context, coinID string) (*markets.CoinQuote, error)
	DollarRate(ctx context.Context) (*markets.ExchangeRate, error)
}

type weatherProvider interface {
	Current(ctx context.Context, location string) (*weather.Current, error)
}

// Bot is the Telegram bot. It also implements scheduler.Deliverer so the
// periodic jobs share its outbound path.
type Bot struct {
	api     telegramAPI
	cfg     *config.Config
	session sessionControl
	queues  queueStatus
	promos  *scheduler.Promotions
	news    newsProvider
	markets quoteProvider
	weather weatherProvider
	ai      ai.Responder
	log     *slog.Logger
}

// Deps carries the collaborators the bot commands act on. News, markets,
// weather, and AI are optional; their commands report unavailability when
// nil.
type Deps struct {
	Session sessionControl
	Queues  queueStatus
	Promos  *scheduler.Promotions
	News    newsProvider
	Markets quoteProvider
	Weather weatherProvider
	AI      ai.Responder
}

// New creates a Bot with the given Telegram token and collaborators.
func New(token string, cfg *config.Config, deps Deps, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newWithAPI(api, cfg, deps, log), nil
}

func newWithAPI(api telegramAPI, cfg *config.Config, deps Deps, log *slog.Logger) *Bot {
	return &Bot{
		api:     api,
		cfg:     cfg,
		session: deps.Session,
		queues:  deps.Queues,
		promos:  deps.Promos,
		news:    deps.News,
		markets: deps.Markets,
		weather: deps.Weather,
		ai:      deps.AI,
		log:     log,
	}
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			msg := update.Message
			if !msg.IsCommand() {
				if b.cfg.IsAIChat(msg.Chat.ID) {
					// Model responses can take tens of seconds; keep the
					// update loop free.
					go b.handleChat(ctx, msg)
				}
				continue
			}
			if !b.cfg.IsUserAllowed(msg.From.ID) {
				b.reply(msg.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, msg)
		}
	}
}

// SendMessage sends a titled text message to the given chat.
func (b *Bot) SendMessage(chatID int64, title, body string) error {
	msg := tgbotapi.NewMessage(chatID, title+"\n\n"+body)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendPhoto sends a photo with the title and body as caption.
func (b *Bot) SendPhoto(chatID int64, title, body string, photo []byte, filename string) error {
	if filename == "" {
		filename = "photo.jpg"
	}
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: filename, Bytes: photo})
	msg.Caption = title + "\n\n" + body
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "promostatus":
		b.handlePromoStatus(chatID)
	case "promosearch":
		b.handlePromoSearch(ctx, chatID, args)
	case "promoconfig":
		b.handlePromoConfig(chatID)
	case "promoenable":
		b.handlePromoToggle(chatID, true)
	case "promodisable":
		b.handlePromoToggle(chatID, false)
	case "authcode":
		b.handleAuthCode(ctx, chatID, args)
	case "authreset":
		b.handleAuthReset(ctx, chatID)
	case "news":
		b.handleNews(ctx, chatID, args)
	case "crypto":
		b.handleCrypto(ctx, chatID, args)
	case "dollar":
		b.handleDollar(ctx, chatID)
	case "weather":
		b.handleWeather(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

// handleChat relays a plain message in an AI-enabled chat to the
// configured responder chain.
func (b *Bot) handleChat(ctx context.Context, msg *tgbotapi.Message) {
	if b.ai == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	answer, err := b.ai.Respond(ctx, msg.Text)
	if err != nil {
		b.log.Error("ai respond", "chat_id", msg.Chat.ID, "error", err)
		return
	}
	b.reply(msg.Chat.ID, answer)
}
