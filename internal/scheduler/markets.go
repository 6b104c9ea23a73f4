package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"promobot/internal/markets"
)

// QuoteSource provides market quotes.
type QuoteSource interface {
	CoinPrice(ctx context.Context, coinID string) (*markets.CoinQuote, error)
	DollarRate(ctx context.Context) (*markets.ExchangeRate, error)
}

// scheduledCoins are the coins included in the periodic crypto post, in
// display order.
var scheduledCoins = []string{"bitcoin", "ethereum", "solana"}

// Markets posts periodic crypto and USD-BRL quotes.
type Markets struct {
	cryptoChats []int64
	dollarChats []int64
	source      QuoteSource
	sender      Deliverer
	log         *slog.Logger
	interval    time.Duration
}

func NewMarkets(cryptoChats, dollarChats []int64, source QuoteSource, sender Deliverer, interval time.Duration, log *slog.Logger) *Markets {
	return &Markets{
		cryptoChats: cryptoChats,
		dollarChats: dollarChats,
		source:      source,
		sender:      sender,
		log:         log,
		interval:    interval,
	}
}

// Run blocks until ctx is cancelled.
func (m *Markets) Run(ctx context.Context) {
	if len(m.cryptoChats) == 0 && len(m.dollarChats) == 0 {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info("market jobs started", "crypto_chats", len(m.cryptoChats), "dollar_chats", len(m.dollarChats))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Markets) tick(ctx context.Context) {
	if len(m.cryptoChats) > 0 {
		m.postCrypto(ctx)
	}
	if len(m.dollarChats) > 0 {
		m.postDollar(ctx)
	}
}

// postCrypto builds one message with every scheduled coin. Coins whose
// quote fails are skipped; the post goes out with whatever succeeded.
func (m *Markets) postCrypto(ctx context.Context) {
	var lines []string
	for _, id := range scheduledCoins {
		quote, err := m.source.CoinPrice(ctx, id)
		if err != nil {
			m.log.Error("fetch coin quote", "coin", id, "error", err)
			continue
		}
		_, name, _ := markets.ResolveCoin(id)
		lines = append(lines, FormatCoinLine(name, quote))
	}
	if len(lines) == 0 {
		return
	}

	body := strings.Join(lines, "\n")
	for _, chatID := range m.cryptoChats {
		if err := m.sender.SendMessage(chatID, "🪙 Crypto update", body); err != nil {
			m.log.Error("send crypto update", "chat_id", chatID, "error", err)
		}
	}
}

func (m *Markets) postDollar(ctx context.Context) {
	rate, err := m.source.DollarRate(ctx)
	if err != nil {
		m.log.Error("fetch dollar rate", "error", err)
		return
	}

	body := FormatDollar(rate)
	for _, chatID := range m.dollarChats {
		if err := m.sender.SendMessage(chatID, "💵 Dollar update", body); err != nil {
			m.log.Error("send dollar update", "chat_id", chatID, "error", err)
		}
	}
}

// FormatCoinLine renders one coin quote line. Shared with the on-demand
// crypto command.
func FormatCoinLine(name string, q *markets.CoinQuote) string {
	arrow := "📈"
	if q.Change24h < 0 {
		arrow = "📉"
	}
	return fmt.Sprintf("%s *%s*: $%.2f (%+.2f%% 24h)", arrow, name, q.USD, q.Change24h)
}

// FormatDollar renders the USD-BRL quote.
func FormatDollar(r *markets.ExchangeRate) string {
	return fmt.Sprintf("*USD-BRL*: R$ %.4f (%+.2f%%)\nHigh: R$ %.4f • Low: R$ %.4f",
		r.Bid, r.PctChange, r.High, r.Low)
}
