package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"promobot/internal/config"
	"promobot/internal/markets"
	"promobot/internal/model"
	"promobot/internal/news"
	"promobot/internal/queue"
	"promobot/internal/scheduler"
	"promobot/internal/source"
	"promobot/internal/weather"
)

// --- mocks ---

type sentMsg struct {
	ChatID int64
	Text   string
}

type mockAPI struct {
	mu   sync.Mutex
	sent []sentMsg
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.mu.Lock()
		m.sent = append(m.sent, sentMsg{ChatID: msg.ChatID, Text: msg.Text})
		m.mu.Unlock()
	}
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(tgbotapi.UpdatesChannel)
}

func (m *mockAPI) StopReceivingUpdates() {}

func (m *mockAPI) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Text
}

type mockSession struct {
	state      source.State
	pending    bool
	submitErr  error
	resetErr   error
	items      []model.ContentItem
	searchErr  error
	submitted  []string
	resetCalls int
}

func (m *mockSession) State() source.State   { return m.state }
func (m *mockSession) HasPendingAuth() bool  { return m.pending }

func (m *mockSession) SubmitCode(_ context.Context, code string) error {
	m.submitted = append(m.submitted, code)
	return m.submitErr
}

func (m *mockSession) ForceNewAuth(_ context.Context) error {
	m.resetCalls++
	return m.resetErr
}

func (m *mockSession) SearchContent(_ context.Context, _ source.Criteria) ([]model.ContentItem, error) {
	return m.items, m.searchErr
}

type mockNews struct {
	articles []news.Article
	err      error
}

func (m *mockNews) Fetch(_ context.Context, _ string) ([]news.Article, error) {
	return m.articles, m.err
}

type mockQuotes struct {
	quote *markets.CoinQuote
	rate  *markets.ExchangeRate
	err   error
}

func (m *mockQuotes) CoinPrice(_ context.Context, _ string) (*markets.CoinQuote, error) {
	return m.quote, m.err
}

func (m *mockQuotes) DollarRate(_ context.Context) (*markets.ExchangeRate, error) {
	return m.rate, m.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Promotions: []config.CategorySettings{
			{
				Category:     model.CategoryTech,
				Name:         "Tech",
				Emoji:        "💻",
				Keywords:     []string{"promo"},
				Interval:     5 * time.Minute,
				MaxAge:       30 * time.Minute,
				MaxPerTick:   2,
				Destinations: []int64{-100},
				Sources:      []string{"@deals"},
			},
		},
	}
}

type mockWeather struct {
	current *weather.Current
	err     error
}

func (m *mockWeather) Current(_ context.Context, _ string) (*weather.Current, error) {
	return m.current, m.err
}

func newTestBot(api *mockAPI, cfg *config.Config, deps Deps) *Bot {
	if deps.Queues == nil {
		deps.Queues = queue.NewStore()
	}
	if deps.Promos == nil {
		deps.Promos = scheduler.NewPromotions(cfg.Promotions, queue.NewStore(), nil, nil, nil, testLogger())
	}
	return newWithAPI(api, cfg, deps, testLogger())
}

func command(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 7},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])},
		},
	}
}

// --- tests ---

func TestHandleAuthCode(t *testing.T) {
	tests := []struct {
		name      string
		args      string
		submitErr error
		wantReply string
	}{
		{
			name:      "success",
			args:      "12345",
			wantReply: "login complete",
		},
		{
			name:      "missing args",
			args:      "",
			wantReply: "Usage",
		},
		{
			name:      "invalid format",
			args:      "12345",
			submitErr: source.ErrCodeInvalid,
			wantReply: "doesn't look like a login code",
		},
		{
			name:      "no pending auth",
			args:      "12345",
			submitErr: source.ErrNoPendingAuth,
			wantReply: "No login is waiting",
		},
		{
			name:      "rejected",
			args:      "12345",
			submitErr: source.ErrCodeRejected,
			wantReply: "Code rejected",
		},
		{
			name:      "too many failures",
			args:      "12345",
			submitErr: source.ErrAuthFailed,
			wantReply: "Too many rejected codes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{}
			session := &mockSession{submitErr: tt.submitErr}
			b := newTestBot(api, testConfig(), Deps{Session: session})

			b.handleAuthCode(context.Background(), 1, tt.args)

			if got := api.lastText(); !strings.Contains(got, tt.wantReply) {
				t.Errorf("reply = %q, want it to contain %q", got, tt.wantReply)
			}
		})
	}
}

func TestHandleAuthReset(t *testing.T) {
	api := &mockAPI{}
	session := &mockSession{}
	b := newTestBot(api, testConfig(), Deps{Session: session})

	b.handleAuthReset(context.Background(), 1)

	if session.resetCalls != 1 {
		t.Errorf("ForceNewAuth called %d times, want 1", session.resetCalls)
	}
	if got := api.lastText(); !strings.Contains(got, "re-established") {
		t.Errorf("reply = %q, want success message", got)
	}
}

func TestHandleAuthResetPendingCode(t *testing.T) {
	api := &mockAPI{}
	session := &mockSession{resetErr: source.ErrAuthTimeout, pending: true}
	b := newTestBot(api, testConfig(), Deps{Session: session})

	b.handleAuthReset(context.Background(), 1)

	if got := api.lastText(); !strings.Contains(got, "new login code was requested") {
		t.Errorf("reply = %q, want pending-code message", got)
	}
}

func TestHandlePromoStatus(t *testing.T) {
	api := &mockAPI{}
	session := &mockSession{state: source.StateAuthenticated}
	cfg := testConfig()
	q := queue.NewStore()
	q.EnqueueMany(model.CategoryTech, []model.ContentItem{{ID: "a/1", Text: "promo"}})
	b := newTestBot(api, cfg, Deps{Session: session, Queues: q})

	b.handlePromoStatus(1)

	got := api.lastText()
	for _, want := range []string{"authenticated", "Tech: 1 queued", "Posting: on"} {
		if !strings.Contains(got, want) {
			t.Errorf("status = %q, want it to contain %q", got, want)
		}
	}
}

func TestHandlePromoStatusPendingAuth(t *testing.T) {
	api := &mockAPI{}
	session := &mockSession{state: source.StateCodeRequested, pending: true}
	b := newTestBot(api, testConfig(), Deps{Session: session})

	b.handlePromoStatus(1)

	if got := api.lastText(); !strings.Contains(got, "/authcode") {
		t.Errorf("status = %q, want the authcode hint", got)
	}
}

func TestHandlePromoSearch(t *testing.T) {
	api := &mockAPI{}
	session := &mockSession{
		state: source.StateAuthenticated,
		items: []model.ContentItem{
			{ID: "a/1", Source: "@deals", Text: "mega promo ssd", PublishedAt: time.Now()},
			{ID: "a/2", Source: "@deals", Text: "unrelated chatter", PublishedAt: time.Now()},
		},
	}
	b := newTestBot(api, testConfig(), Deps{Session: session})

	b.handlePromoSearch(context.Background(), 1, "tech")

	got := api.lastText()
	if !strings.Contains(got, "1 matching") {
		t.Errorf("reply = %q, want one keyword match", got)
	}
	if strings.Contains(got, "unrelated chatter") {
		t.Errorf("reply = %q, keyword filter leaked a non-match", got)
	}
}

func TestHandlePromoSearchUnknownCategory(t *testing.T) {
	api := &mockAPI{}
	b := newTestBot(api, testConfig(), Deps{Session: &mockSession{}})

	b.handlePromoSearch(context.Background(), 1, "sports")

	if got := api.lastText(); !strings.Contains(got, "Unknown category") {
		t.Errorf("reply = %q, want unknown-category message", got)
	}
}

func TestHandlePromoSearchUnconfiguredCategory(t *testing.T) {
	api := &mockAPI{}
	b := newTestBot(api, testConfig(), Deps{Session: &mockSession{}})

	b.handlePromoSearch(context.Background(), 1, "gaming")

	if got := api.lastText(); !strings.Contains(got, "no sources or channels") {
		t.Errorf("reply = %q, want unconfigured message", got)
	}
}

func TestHandlePromoSearchAuthPending(t *testing.T) {
	api := &mockAPI{}
	session := &mockSession{searchErr: source.ErrAuthPending}
	b := newTestBot(api, testConfig(), Deps{Session: session})

	b.handlePromoSearch(context.Background(), 1, "tech")

	if got := api.lastText(); !strings.Contains(got, "/authcode") {
		t.Errorf("reply = %q, want the authcode hint", got)
	}
}

func TestHandlePromoToggle(t *testing.T) {
	api := &mockAPI{}
	b := newTestBot(api, testConfig(), Deps{Session: &mockSession{}})

	b.handlePromoToggle(1, false)
	if b.promos.Enabled() {
		t.Error("promotions still enabled after /promodisable")
	}
	if got := api.lastText(); !strings.Contains(got, "disabled") {
		t.Errorf("reply = %q, want disabled confirmation", got)
	}

	b.handlePromoToggle(1, true)
	if !b.promos.Enabled() {
		t.Error("promotions still disabled after /promoenable")
	}
}

func TestHandleNews(t *testing.T) {
	api := &mockAPI{}
	provider := &mockNews{articles: []news.Article{
		{Title: "Big launch", Summary: "Details", URL: "https://example.com/1", SourceName: "The Verge - Tech"},
	}}
	b := newTestBot(api, testConfig(), Deps{Session: &mockSession{}, News: provider})

	b.handleNews(context.Background(), 1, "tech")

	got := api.lastText()
	if !strings.Contains(got, "Big launch") || !strings.Contains(got, "https://example.com/1") {
		t.Errorf("reply = %q, want the article", got)
	}
}

func TestHandleNewsUnconfigured(t *testing.T) {
	api := &mockAPI{}
	b := newTestBot(api, testConfig(), Deps{Session: &mockSession{}})

	b.handleNews(context.Background(), 1, "tech")

	if got := api.lastText(); !strings.Contains(got, "not configured") {
		t.Errorf("reply = %q, want unavailability message", got)
	}
}

func TestHandleCrypto(t *testing.T) {
	api := &mockAPI{}
	quotes := &mockQuotes{quote: &markets.CoinQuote{USD: 64000.50, Change24h: 2.1}}
	b := newTestBot(api, testConfig(), Deps{Session: &mockSession{}, Markets: quotes})

	b.handleCrypto(context.Background(), 1, "btc")

	got := api.lastText()
	if !strings.Contains(got, "Bitcoin") || !strings.Contains(got, "64000.50") {
		t.Errorf("reply = %q, want the bitcoin quote", got)
	}
}

func TestHandleCryptoUnknownCoin(t *testing.T) {
	api := &mockAPI{}
	b := newTestBot(api, testConfig(), Deps{Session: &mockSession{}, Markets: &mockQuotes{}})

	b.handleCrypto(context.Background(), 1, "shiba")

	if got := api.lastText(); !strings.Contains(got, "Unknown coin") {
		t.Errorf("reply = %q, want unknown-coin message", got)
	}
}

func TestHandleDollar(t *testing.T) {
	api := &mockAPI{}
	quotes := &mockQuotes{rate: &markets.ExchangeRate{Bid: 5.4321, PctChange: -0.3, High: 5.5, Low: 5.4}}
	b := newTestBot(api, testConfig(), Deps{Session: &mockSession{}, Markets: quotes})

	b.handleDollar(context.Background(), 1)

	if got := api.lastText(); !strings.Contains(got, "5.4321") {
		t.Errorf("reply = %q, want the rate", got)
	}
}

func TestHandleWeather(t *testing.T) {
	api := &mockAPI{}
	provider := &mockWeather{current: &weather.Current{
		Location:  "Curitiba",
		Condition: "Partly cloudy",
		TempC:     21.5,
		FeelsC:    20.0,
		Humidity:  60,
		WindKph:   12,
	}}
	b := newTestBot(api, testConfig(), Deps{Session: &mockSession{}, Weather: provider})

	b.handleWeather(context.Background(), 1, "Curitiba")

	got := api.lastText()
	if !strings.Contains(got, "Curitiba") || !strings.Contains(got, "21.5") {
		t.Errorf("reply = %q, want the conditions", got)
	}
}

func TestHandleWeatherUnconfigured(t *testing.T) {
	api := &mockAPI{}
	b := newTestBot(api, testConfig(), Deps{Session: &mockSession{}})

	b.handleWeather(context.Background(), 1, "Curitiba")

	if got := api.lastText(); !strings.Contains(got, "not configured") {
		t.Errorf("reply = %q, want unavailability message", got)
	}
}

func TestHandleCommandAccessControl(t *testing.T) {
	api := &mockAPI{}
	cfg := testConfig()
	cfg.AllowedUsers = []int64{99}
	b := newTestBot(api, cfg, Deps{Session: &mockSession{}})

	msg := command(1, "/promostatus")

	// Simulate what Run does for a denied user.
	if !cfg.IsUserAllowed(msg.From.ID) {
		b.reply(msg.Chat.ID, "Access denied.")
	}

	if got := api.lastText(); got != "Access denied." {
		t.Errorf("reply = %q, want access denied", got)
	}
}

func TestHandleCommandUnknown(t *testing.T) {
	api := &mockAPI{}
	b := newTestBot(api, testConfig(), Deps{Session: &mockSession{}})

	b.handleCommand(context.Background(), command(1, "/frobnicate"))

	if got := api.lastText(); !strings.Contains(got, "Unknown command") {
		t.Errorf("reply = %q, want unknown-command message", got)
	}
}

func TestSearchFailure(t *testing.T) {
	api := &mockAPI{}
	session := &mockSession{searchErr: errors.New("gateway down")}
	b := newTestBot(api, testConfig(), Deps{Session: session})

	b.handlePromoSearch(context.Background(), 1, "tech")

	if got := api.lastText(); !strings.Contains(got, "Search failed") {
		t.Errorf("reply = %q, want failure message", got)
	}
}
