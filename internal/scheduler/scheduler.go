// Package scheduler runs the periodic jobs: promotion dispatch per
// category, news posts, and market quotes.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"promobot/internal/config"
	"promobot/internal/fetch"
	"promobot/internal/model"
)

// Deliverer is the outbound capability: send a formatted message, with or
// without an image attachment, to a destination channel.
type Deliverer interface {
	SendMessage(chatID int64, title, body string) error
	SendPhoto(chatID int64, title, body string, photo []byte, filename string) error
}

// Fetcher triggers one promotion discovery cycle.
type Fetcher interface {
	Execute(ctx context.Context, c fetch.Criteria) int
}

// Queue is the queue-store capability the dispatcher needs.
type Queue interface {
	Dequeue(category model.Category, max int) []model.ContentItem
	Size(category model.Category) int
}

// MediaDownloader fetches media bytes for delivery; nil bytes mean the
// download failed and delivery should fall back to text.
type MediaDownloader interface {
	DownloadMedia(ctx context.Context, ref string) ([]byte, string)
}

// defaultSendDelay paces deliveries inside one tick to avoid
// destination-side rate limiting.
const defaultSendDelay = 2 * time.Second

// Promotions runs one independent periodic job per configured category.
// A tick runs synchronously inside its category loop, so two ticks of the
// same category never overlap; ticks of different categories interleave
// freely since they touch disjoint queue partitions.
type Promotions struct {
	configs   []config.CategorySettings
	queue     Queue
	fetcher   Fetcher
	media     MediaDownloader
	sender    Deliverer
	log       *slog.Logger
	enabled   atomic.Bool
	sendDelay time.Duration
}

// NewPromotions creates the promotion dispatcher. Inert categories are
// expected to be filtered out of configs already.
func NewPromotions(configs []config.CategorySettings, q Queue, f Fetcher, media MediaDownloader, sender Deliverer, log *slog.Logger) *Promotions {
	p := &Promotions{
		configs:   configs,
		queue:     q,
		fetcher:   f,
		media:     media,
		sender:    sender,
		log:       log,
		sendDelay: defaultSendDelay,
	}
	p.enabled.Store(true)
	return p
}

// SetDeliverer binds the outbound sender. The bot and the dispatcher
// reference each other, so the sender is attached after both exist and
// before Run.
func (p *Promotions) SetDeliverer(sender Deliverer) {
	p.sender = sender
}

// SetEnabled flips the global safety switch. Disabling lets a running tick
// finish but makes every following tick a no-op.
func (p *Promotions) SetEnabled(v bool) {
	p.enabled.Store(v)
}

// Enabled reports the current state of the safety switch.
func (p *Promotions) Enabled() bool {
	return p.enabled.Load()
}

// SetSendDelay overrides the inter-item delivery delay (useful for testing).
func (p *Promotions) SetSendDelay(d time.Duration) {
	p.sendDelay = d
}

// Run starts one job per category and blocks until ctx is cancelled.
// If the safety switch is off at setup, nothing is scheduled.
func (p *Promotions) Run(ctx context.Context) {
	if !p.enabled.Load() {
		p.log.Warn("promotions disabled, not scheduling")
		return
	}
	if len(p.configs) == 0 {
		p.log.Warn("no promotion categories configured")
		return
	}

	var wg sync.WaitGroup
	for _, cfg := range p.configs {
		wg.Add(1)
		go func(cfg config.CategorySettings) {
			defer wg.Done()
			p.runCategory(ctx, cfg)
		}(cfg)
	}

	names := make([]string, 0, len(p.configs))
	for _, cfg := range p.configs {
		names = append(names, string(cfg.Category))
	}
	p.log.Info("promotion jobs started", "categories", strings.Join(names, ","))

	wg.Wait()
}

func (p *Promotions) runCategory(ctx context.Context, cfg config.CategorySettings) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processCategory(ctx, cfg)
		}
	}
}

// processCategory is one tick: lazy refill when the queue is empty, then a
// bounded drain per destination channel. Per-item failures are logged and
// absorbed; nothing here aborts the remaining items or channels.
func (p *Promotions) processCategory(ctx context.Context, cfg config.CategorySettings) {
	if !p.enabled.Load() {
		return
	}

	if p.queue.Size(cfg.Category) == 0 {
		p.fetcher.Execute(ctx, fetch.Criteria{
			Category: cfg.Category,
			Sources:  cfg.Sources,
			Keywords: cfg.Keywords,
			MaxAge:   cfg.MaxAge,
			Limit:    20,
		})
	}

	if p.queue.Size(cfg.Category) == 0 {
		p.log.Debug("no promotions available", "category", cfg.Category)
		return
	}

	sent, failed := 0, 0
	for _, chatID := range cfg.Destinations {
		items := p.queue.Dequeue(cfg.Category, cfg.MaxPerTick)
		if len(items) == 0 {
			break
		}
		for _, item := range items {
			if err := p.deliver(ctx, chatID, cfg, item); err != nil {
				failed++
				p.log.Error("deliver promotion", "category", cfg.Category, "chat_id", chatID, "id", item.ID, "error", err)
			} else {
				sent++
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(p.sendDelay):
			}
		}
	}

	if sent > 0 || failed > 0 {
		p.log.Info("promotion tick finished", "category", cfg.Category, "sent", sent, "failed", failed)
	}
}

// deliver sends one promotion. Photo media is attached when the download
// succeeds; otherwise the item degrades to text with a media indicator.
func (p *Promotions) deliver(ctx context.Context, chatID int64, cfg config.CategorySettings, item model.ContentItem) error {
	title := fmt.Sprintf("%s New %s promotion!", cfg.Emoji, cfg.Name)
	body := formatPromotionBody(item)

	if item.Media != nil && item.Media.Kind == model.MediaPhoto {
		if data, filename := p.media.DownloadMedia(ctx, item.Media.Ref); data != nil {
			if err := p.sender.SendPhoto(chatID, title, body, data, filename); err == nil {
				return nil
			} else {
				p.log.Warn("send with photo failed, falling back to text", "chat_id", chatID, "error", err)
			}
		}
	}

	if item.Media != nil {
		body += "\n\n" + mediaIndicator(item.Media.Kind)
	}
	return p.sender.SendMessage(chatID, title, body)
}

// maxPromotionText keeps promotion bodies inside delivery-side limits.
const maxPromotionText = 1800

func formatPromotionBody(item model.ContentItem) string {
	text := item.Text
	if len(text) > maxPromotionText {
		text = text[:maxPromotionText] + "..."
	}

	var b strings.Builder
	b.WriteString(text)
	if text != "" {
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "📢 %s • %s",
		strings.TrimPrefix(item.Source, "@"),
		item.PublishedAt.Format("2006-01-02 15:04 UTC"))
	return b.String()
}

func mediaIndicator(kind model.MediaKind) string {
	switch kind {
	case model.MediaPhoto:
		return "📸 has photo attachment"
	case model.MediaVideo:
		return "🎥 has video attachment"
	case model.MediaDocument:
		return "📄 has document attachment"
	default:
		return "📎 has attachment"
	}
}
