package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promobot/internal/config"
	"promobot/internal/filter"
	"promobot/internal/markets"
	"promobot/internal/scheduler"
	"promobot/internal/source"
)

// authResetTimeout bounds how long /authreset waits for the new login to
// complete before handing control back to the operator.
const authResetTimeout = 5 * time.Second

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Promo Relay Bot!

I watch source channels for promotions and repost fresh deals to your
category channels, plus news, crypto, and weather on demand.

Quick start:
1. /promostatus — pipeline state and queue sizes
2. /authcode <code> — complete source login when asked
3. /news tech — latest tech headline

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Promotion pipeline:
/promostatus — session state, queues, and switch
/promosearch <category> — search sources now, show matches
/promoconfig — per-category schedule and limits
/promoenable — turn periodic posting on
/promodisable — turn periodic posting off

Source authentication:
/authcode <code> — submit the 5-digit login code
/authreset — discard the session and log in again

Lookups:
/news <category> — latest headline (tech, ai, space, economy, brazil, agro)
/crypto <coin> — coin quote (btc, eth, sol, ada, doge)
/dollar — USD-BRL exchange rate
/weather <city> — current conditions`)
}

func (b *Bot) handlePromoStatus(chatID int64) {
	sizes := make(map[string]int, len(b.cfg.Promotions))
	for _, c := range b.cfg.Promotions {
		sizes[string(c.Category)] = b.queues.Size(c.Category)
	}
	b.reply(chatID, FormatStatus(b.session.State(), b.session.HasPendingAuth(), b.promos.Enabled(), b.cfg.Promotions, sizes))
}

// handlePromoSearch runs an on-demand source search for one category and
// reports the items that pass the category keywords. Nothing is enqueued
// or marked seen; this is a dry run.
func (b *Bot) handlePromoSearch(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /promosearch <category>")
		return
	}
	cat, ok := config.CategoryByName(args)
	if !ok {
		b.reply(chatID, fmt.Sprintf("Unknown category %q. See /promoconfig for the list.", args))
		return
	}

	var settings *config.CategorySettings
	for i := range b.cfg.Promotions {
		if b.cfg.Promotions[i].Category == cat {
			settings = &b.cfg.Promotions[i]
			break
		}
	}
	if settings == nil {
		b.reply(chatID, fmt.Sprintf("Category %q has no sources or channels configured.", args))
		return
	}

	items, err := b.session.SearchContent(ctx, source.Criteria{Sources: settings.Sources, Limit: 10})
	if err != nil {
		if errors.Is(err, source.ErrAuthPending) {
			b.reply(chatID, "Source login pending. Submit the code with /authcode <code>.")
			return
		}
		b.reply(chatID, fmt.Sprintf("Search failed: %v", err))
		return
	}

	matched := items[:0]
	for _, item := range items {
		if filter.MatchKeywords(item.Text, settings.Keywords) {
			matched = append(matched, item)
		}
	}
	b.reply(chatID, FormatSearchResults(settings.Name, matched))
}

func (b *Bot) handlePromoConfig(chatID int64) {
	b.reply(chatID, FormatSchedule(b.cfg.Promotions))
}

func (b *Bot) handlePromoToggle(chatID int64, enable bool) {
	b.promos.SetEnabled(enable)
	if enable {
		b.reply(chatID, "Periodic promotion posting enabled.")
	} else {
		b.reply(chatID, "Periodic promotion posting disabled. Running ticks finish; no new ticks will post.")
	}
}

func (b *Bot) handleAuthCode(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /authcode <5-digit code>")
		return
	}

	err := b.session.SubmitCode(ctx, args)
	switch {
	case err == nil:
		b.reply(chatID, "Source login complete. The promotion pipeline is live.")
	case errors.Is(err, source.ErrCodeInvalid):
		b.reply(chatID, "That doesn't look like a login code. Send the 5 digits, e.g. /authcode 12345.")
	case errors.Is(err, source.ErrNoPendingAuth):
		b.reply(chatID, "No login is waiting for a code right now.")
	case errors.Is(err, source.ErrCodeRejected):
		b.reply(chatID, "Code rejected. Check the code and try /authcode again.")
	case errors.Is(err, source.ErrAuthFailed):
		b.reply(chatID, "Too many rejected codes. Use /authreset to request a fresh code.")
	default:
		b.reply(chatID, fmt.Sprintf("Login failed: %v", err))
	}
}

func (b *Bot) handleAuthReset(ctx context.Context, chatID int64) {
	// The reset re-runs the login flow, which blocks waiting for a code.
	// Bound the wait so this handler returns and /authcode can be
	// processed; a timeout with a pending request is the expected path.
	resetCtx, cancel := context.WithTimeout(ctx, authResetTimeout)
	defer cancel()

	err := b.session.ForceNewAuth(resetCtx)
	switch {
	case err == nil:
		b.reply(chatID, "Session discarded and re-established.")
	case errors.Is(err, source.ErrAuthTimeout) && b.session.HasPendingAuth():
		b.reply(chatID, "Session discarded. A new login code was requested; submit it with /authcode <code>.")
	default:
		b.reply(chatID, fmt.Sprintf("Reset failed: %v", err))
	}
}

func (b *Bot) handleNews(ctx context.Context, chatID int64, args string) {
	if b.news == nil {
		b.reply(chatID, "News lookups are not configured.")
		return
	}
	if args == "" {
		b.reply(chatID, "Usage: /news <category> (tech, ai, space, economy, brazil, agro)")
		return
	}

	articles, err := b.news.Fetch(ctx, args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to fetch news: %v", err))
		return
	}
	if len(articles) == 0 {
		b.reply(chatID, fmt.Sprintf("No articles available for %q right now.", args))
		return
	}
	b.reply(chatID, scheduler.FormatArticle(articles[0]))
}

func (b *Bot) handleCrypto(ctx context.Context, chatID int64, args string) {
	if b.markets == nil {
		b.reply(chatID, "Market lookups are not configured.")
		return
	}
	if args == "" {
		b.reply(chatID, "Usage: /crypto <coin> (btc, eth, sol, ada, doge)")
		return
	}

	id, name, ok := markets.ResolveCoin(args)
	if !ok {
		b.reply(chatID, fmt.Sprintf("Unknown coin %q.", args))
		return
	}
	quote, err := b.markets.CoinPrice(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to fetch %s quote: %v", name, err))
		return
	}
	b.reply(chatID, scheduler.FormatCoinLine(name, quote))
}

func (b *Bot) handleDollar(ctx context.Context, chatID int64) {
	if b.markets == nil {
		b.reply(chatID, "Market lookups are not configured.")
		return
	}
	rate, err := b.markets.DollarRate(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to fetch dollar rate: %v", err))
		return
	}
	b.reply(chatID, scheduler.FormatDollar(rate))
}

func (b *Bot) handleWeather(ctx context.Context, chatID int64, args string) {
	if b.weather == nil {
		b.reply(chatID, "Weather lookups are not configured.")
		return
	}
	if args == "" {
		b.reply(chatID, "Usage: /weather <city>")
		return
	}
	current, err := b.weather.Current(ctx, args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to fetch weather: %v", err))
		return
	}
	b.reply(chatID, FormatWeather(current))
}
