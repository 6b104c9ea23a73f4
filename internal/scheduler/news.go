package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"promobot/internal/config"
	"promobot/internal/news"
)

// ArticleSource provides fresh articles for a named news category.
type ArticleSource interface {
	Fetch(ctx context.Context, category string) ([]news.Article, error)
}

// SeenURLs remembers recently posted article URLs so restarts inside the
// TTL window do not repost.
type SeenURLs interface {
	Has(url string) bool
	Mark(url string)
}

const defaultNewsInterval = 30 * time.Minute

// News posts one fresh article per category per tick to every bound
// channel. Each configured category runs its own loop.
type News struct {
	channels []config.ChannelList
	source   ArticleSource
	seen     SeenURLs
	sender   Deliverer
	log      *slog.Logger
	interval time.Duration
}

func NewNews(channels []config.ChannelList, source ArticleSource, seen SeenURLs, sender Deliverer, log *slog.Logger) *News {
	return &News{
		channels: channels,
		source:   source,
		seen:     seen,
		sender:   sender,
		log:      log,
		interval: defaultNewsInterval,
	}
}

// SetInterval overrides the tick interval (useful for testing).
func (n *News) SetInterval(d time.Duration) {
	n.interval = d
}

// Run blocks until ctx is cancelled.
func (n *News) Run(ctx context.Context) {
	if len(n.channels) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, list := range n.channels {
		wg.Add(1)
		go func(list config.ChannelList) {
			defer wg.Done()
			ticker := time.NewTicker(n.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					n.post(ctx, list)
				}
			}
		}(list)
	}
	n.log.Info("news jobs started", "categories", len(n.channels))
	wg.Wait()
}

// post picks the first article not seen yet and sends it to every channel
// in the list. No unseen article means the tick is a quiet no-op.
func (n *News) post(ctx context.Context, list config.ChannelList) {
	articles, err := n.source.Fetch(ctx, list.Name)
	if err != nil {
		n.log.Error("fetch news", "category", list.Name, "error", err)
		return
	}

	for _, a := range articles {
		if n.seen.Has(a.URL) {
			continue
		}
		n.seen.Mark(a.URL)

		title := fmt.Sprintf("📰 %s news", list.Name)
		body := FormatArticle(a)
		for _, chatID := range list.Channels {
			if err := n.sender.SendMessage(chatID, title, body); err != nil {
				n.log.Error("send news", "category", list.Name, "chat_id", chatID, "error", err)
			}
		}
		return
	}
	n.log.Debug("no fresh articles", "category", list.Name)
}

// FormatArticle renders one article for delivery. Shared with the
// on-demand news command.
func FormatArticle(a news.Article) string {
	body := fmt.Sprintf("*%s*", a.Title)
	if a.Summary != "" {
		body += "\n\n" + a.Summary
	}
	body += fmt.Sprintf("\n\n%s • %s", a.SourceName, a.URL)
	return body
}
