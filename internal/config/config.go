// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"promobot/internal/model"
)

// CategorySettings is the full configuration of one promotion category:
// scheduling, filtering, and display attributes plus the channel lists
// loaded from the environment.
type CategorySettings struct {
	Category     model.Category
	Name         string
	Emoji        string
	Keywords     []string
	Interval     time.Duration
	MaxAge       time.Duration
	MaxPerTick   int
	Destinations []int64
	Sources      []string
}

// promotionKeywords are matched against every category.
var promotionKeywords = []string{"promo", "desconto", "% off", "oferta", "cupom", "sale"}

// categoryDefaults is the single source of truth for per-category settings.
// Env var names derive from the category: PROMO_<CATEGORY>_CHANNEL_IDS and
// PROMO_<CATEGORY>_SOURCES.
var categoryDefaults = []CategorySettings{
	{Category: model.CategoryGeneral, Name: "General", Emoji: "🎯", Interval: 5 * time.Minute, MaxAge: 30 * time.Minute, MaxPerTick: 2},
	{Category: model.CategoryTech, Name: "Tech", Emoji: "💻", Keywords: []string{"notebook", "ssd", "smartphone", "monitor"}, Interval: 5 * time.Minute, MaxAge: 30 * time.Minute, MaxPerTick: 2},
	{Category: model.CategoryGaming, Name: "Gaming", Emoji: "🎮", Keywords: []string{"game", "jogo", "console", "steam"}, Interval: 10 * time.Minute, MaxAge: 60 * time.Minute, MaxPerTick: 2},
	{Category: model.CategoryFitness, Name: "Fitness", Emoji: "🏋️", Keywords: []string{"whey", "creatina", "suplemento", "treino"}, Interval: 15 * time.Minute, MaxAge: 120 * time.Minute, MaxPerTick: 1},
	{Category: model.CategoryAutomotive, Name: "Automotive", Emoji: "🚗", Keywords: []string{"pneu", "carro", "moto", "automotivo"}, Interval: 15 * time.Minute, MaxAge: 120 * time.Minute, MaxPerTick: 1},
	{Category: model.CategoryFashion, Name: "Fashion", Emoji: "👗", Keywords: []string{"tênis", "camiseta", "roupa", "moda"}, Interval: 15 * time.Minute, MaxAge: 120 * time.Minute, MaxPerTick: 1},
	{Category: model.CategoryHome, Name: "Home", Emoji: "🏠", Keywords: []string{"casa", "cozinha", "eletrodoméstico"}, Interval: 15 * time.Minute, MaxAge: 120 * time.Minute, MaxPerTick: 1},
	{Category: model.CategoryBugs, Name: "Bugs", Emoji: "🐛", Keywords: []string{"bug", "erro de preço", "precificação"}, Interval: 2 * time.Minute, MaxAge: 15 * time.Minute, MaxPerTick: 3},
	{Category: model.CategoryAliexpress, Name: "AliExpress", Emoji: "🛒", Keywords: []string{"aliexpress", "importado"}, Interval: 10 * time.Minute, MaxAge: 60 * time.Minute, MaxPerTick: 2},
	{Category: model.CategoryCoupons, Name: "Coupons", Emoji: "🎫", Keywords: []string{"cupom", "código", "voucher"}, Interval: 5 * time.Minute, MaxAge: 30 * time.Minute, MaxPerTick: 3},
}

// newsCategories lists the news domains that can be wired to channels via
// NEWS_<CATEGORY>_CHANNEL_IDS.
var newsCategories = []string{"tech", "ai", "space", "economy", "brazil", "agro"}

// ChannelList binds a named feature to a set of destination channels.
type ChannelList struct {
	Name     string
	Channels []int64
}

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64

	// Promotion pipeline.
	PromotionsEnabled bool
	SourceAPIURL      string
	SourceAPIKey      string
	SourcePhone       string
	Promotions        []CategorySettings

	// News channels.
	News []ChannelList

	// Market channels.
	CryptoChannels []int64
	DollarChannels []int64
	MarketInterval time.Duration
	CoinGeckoKey   string

	// Weather.
	WeatherAPIKey string

	// AI chat relay.
	OpenAIKey   string
	OpenAIModel string
	OllamaHost  string
	OllamaModel string
	AIChats     []int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/bot.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	allowedUsers, err := parseIDList(os.Getenv("ALLOWED_USERS"))
	if err != nil {
		return nil, fmt.Errorf("ALLOWED_USERS: %w", err)
	}

	cfg := &Config{
		TelegramBotToken:  token,
		DatabasePath:      dbPath,
		LogLevel:          logLevel,
		AllowedUsers:      allowedUsers,
		PromotionsEnabled: os.Getenv("PROMOTIONS_ENABLED") != "false",
		SourceAPIURL:      os.Getenv("SOURCE_API_URL"),
		SourceAPIKey:      os.Getenv("SOURCE_API_KEY"),
		SourcePhone:       os.Getenv("SOURCE_PHONE_NUMBER"),
		WeatherAPIKey:     os.Getenv("WEATHER_API_KEY"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OllamaHost:        os.Getenv("OLLAMA_HOST"),
		OllamaModel:       envOrDefault("OLLAMA_MODEL", "llama3"),
		MarketInterval:    time.Hour,
		CoinGeckoKey:      os.Getenv("COINGECKO_API_KEY"),
	}

	cfg.Promotions, err = loadPromotions()
	if err != nil {
		return nil, err
	}

	for _, name := range newsCategories {
		envKey := fmt.Sprintf("NEWS_%s_CHANNEL_IDS", strings.ToUpper(name))
		ids, err := parseIDList(os.Getenv(envKey))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envKey, err)
		}
		if len(ids) == 0 {
			continue
		}
		cfg.News = append(cfg.News, ChannelList{Name: name, Channels: ids})
	}

	if cfg.CryptoChannels, err = parseIDList(os.Getenv("CRYPTO_CHANNEL_IDS")); err != nil {
		return nil, fmt.Errorf("CRYPTO_CHANNEL_IDS: %w", err)
	}
	if cfg.DollarChannels, err = parseIDList(os.Getenv("DOLLAR_CHANNEL_IDS")); err != nil {
		return nil, fmt.Errorf("DOLLAR_CHANNEL_IDS: %w", err)
	}
	if cfg.AIChats, err = parseIDList(os.Getenv("AI_CHAT_IDS")); err != nil {
		return nil, fmt.Errorf("AI_CHAT_IDS: %w", err)
	}

	return cfg, nil
}

// loadPromotions builds the active category list. A category missing either
// its destination list or its source list is inert and left out entirely.
func loadPromotions() ([]CategorySettings, error) {
	var active []CategorySettings
	for _, def := range categoryDefaults {
		upper := strings.ToUpper(string(def.Category))

		envKey := fmt.Sprintf("PROMO_%s_CHANNEL_IDS", upper)
		dests, err := parseIDList(os.Getenv(envKey))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envKey, err)
		}
		sources := parseList(os.Getenv(fmt.Sprintf("PROMO_%s_SOURCES", upper)))

		if len(dests) == 0 || len(sources) == 0 {
			continue
		}

		cs := def
		cs.Destinations = dests
		cs.Sources = sources
		cs.Keywords = append(append([]string{}, promotionKeywords...), def.Keywords...)
		if kw := parseList(os.Getenv(fmt.Sprintf("PROMO_%s_KEYWORDS", upper))); len(kw) > 0 {
			cs.Keywords = kw
		}
		active = append(active, cs)
	}
	return active, nil
}

// CategoryDefaults returns the built-in descriptor table, used for display.
func CategoryDefaults() []CategorySettings {
	out := make([]CategorySettings, len(categoryDefaults))
	copy(out, categoryDefaults)
	return out
}

// CategoryByName resolves a category from user input, matching the enum
// value or the display name case-insensitively.
func CategoryByName(s string) (model.Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, def := range categoryDefaults {
		if s == string(def.Category) || s == strings.ToLower(def.Name) {
			return def.Category, true
		}
	}
	return "", false
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// IsAIChat reports whether plain messages in the given chat should be
// relayed to the AI responder.
func (c *Config) IsAIChat(chatID int64) bool {
	for _, id := range c.AIChats {
		if id == chatID {
			return true
		}
	}
	return false
}

func parseList(value string) []string {
	var out []string
	for _, s := range strings.Split(value, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func parseIDList(value string) ([]int64, error) {
	var out []int64
	for _, s := range parseList(value) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ID %q", s)
		}
		out = append(out, id)
	}
	return out, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
