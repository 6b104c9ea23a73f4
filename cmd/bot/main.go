package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"promobot/internal/ai"
	"promobot/internal/bot"
	"promobot/internal/cache"
	"promobot/internal/config"
	"promobot/internal/fetch"
	"promobot/internal/markets"
	"promobot/internal/news"
	"promobot/internal/queue"
	"promobot/internal/scheduler"
	"promobot/internal/source"
	"promobot/internal/storage"
	"promobot/internal/weather"
)

// authInitTimeout bounds the interactive wait for a login code at startup.
// Past it the bot comes up anyway and the code arrives via /authcode.
const authInitTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	httpClient := &http.Client{Timeout: 30 * time.Second}

	gateway := source.NewGateway(cfg.SourceAPIURL, cfg.SourceAPIKey, httpClient)
	session := source.NewSession(gateway, store, cfg.SourcePhone, log)

	dedup := storage.NewDedup(store, cache.DefaultTTL)
	go dedup.Run(ctx, time.Hour)

	queues := queue.NewStore()
	fetcher := fetch.New(session, dedup, queues, log)

	promos := scheduler.NewPromotions(cfg.Promotions, queues, fetcher, session, nil, log)
	promos.SetEnabled(cfg.PromotionsEnabled)

	deps := bot.Deps{
		Session: session,
		Queues:  queues,
		Promos:  promos,
	}

	if len(cfg.News) > 0 {
		deps.News = news.NewProvider(httpClient, log)
	}
	// On-demand market lookups need no configuration, so the client is
	// always available.
	deps.Markets = markets.NewClient(httpClient, cfg.CoinGeckoKey)
	if cfg.WeatherAPIKey != "" {
		deps.Weather = weather.NewClient(cfg.WeatherAPIKey, httpClient)
	}
	if responder := buildResponder(cfg, log); responder != nil {
		deps.AI = responder
	}

	b, err := bot.New(cfg.TelegramBotToken, cfg, deps, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}
	promos.SetDeliverer(b)

	log.Info("starting bot")

	// Try to bring the source session up before the jobs start. A pending
	// login code is not fatal: the operator completes it with /authcode.
	initCtx, initCancel := context.WithTimeout(ctx, authInitTimeout)
	if err := session.Initialize(initCtx); err != nil {
		log.Warn("source session not ready", "state", session.State(), "error", err)
	}
	initCancel()

	go promos.Run(ctx)

	if deps.News != nil {
		seen := cache.NewMemory(cache.DefaultTTL)
		go seen.Run(ctx, time.Hour)
		newsJobs := scheduler.NewNews(cfg.News, deps.News, seen, b, log)
		go newsJobs.Run(ctx)
	}

	if len(cfg.CryptoChannels) > 0 || len(cfg.DollarChannels) > 0 {
		marketJobs := scheduler.NewMarkets(cfg.CryptoChannels, cfg.DollarChannels, deps.Markets, b, cfg.MarketInterval, log)
		go marketJobs.Run(ctx)
	}

	b.Run(ctx)

	session.Disconnect(context.Background())
	log.Info("bot stopped")
}

// buildResponder assembles the chat responder chain: OpenAI first when a
// key is set, Ollama as fallback when a host is set.
func buildResponder(cfg *config.Config, log *slog.Logger) ai.Responder {
	var providers []ai.Responder
	if cfg.OpenAIKey != "" {
		providers = append(providers, ai.NewOpenAI("", cfg.OpenAIKey, cfg.OpenAIModel))
	}
	if cfg.OllamaHost != "" {
		providers = append(providers, ai.NewOllama(cfg.OllamaHost, cfg.OllamaModel))
	}
	if len(providers) == 0 {
		return nil
	}
	return ai.NewFallback(log, providers...)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
