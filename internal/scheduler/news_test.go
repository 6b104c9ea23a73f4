package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"promobot/internal/cache"
	"promobot/internal/config"
	"promobot/internal/news"
)

type mockArticles struct {
	articles []news.Article
	err      error
}

func (m *mockArticles) Fetch(_ context.Context, _ string) ([]news.Article, error) {
	return m.articles, m.err
}

func techChannels(ids ...int64) config.ChannelList {
	return config.ChannelList{Name: "tech", Channels: ids}
}

func article(title, url string) news.Article {
	return news.Article{
		Title:       title,
		Summary:     "summary of " + title,
		URL:         url,
		SourceName:  "The Verge - Tech",
		PublishedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNewsPostsFirstUnseenArticle(t *testing.T) {
	src := &mockArticles{articles: []news.Article{
		article("Old story", "https://example.com/old"),
		article("New story", "https://example.com/new"),
	}}
	seen := cache.NewMemory(time.Hour)
	seen.Mark("https://example.com/old")
	sender := &mockSender{}
	n := NewNews([]config.ChannelList{techChannels(-200, -201)}, src, seen, sender, testLogger())

	n.post(context.Background(), techChannels(-200, -201))

	msgs := sender.getMessages()
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages, want 2 (one per channel)", len(msgs))
	}
	for _, m := range msgs {
		if !strings.Contains(m.Body, "New story") {
			t.Errorf("Body = %q, want the unread article", m.Body)
		}
	}
	if !seen.Has("https://example.com/new") {
		t.Error("posted article not marked seen")
	}
}

func TestNewsSkipsTickWhenAllSeen(t *testing.T) {
	src := &mockArticles{articles: []news.Article{
		article("Only story", "https://example.com/only"),
	}}
	seen := cache.NewMemory(time.Hour)
	seen.Mark("https://example.com/only")
	sender := &mockSender{}
	n := NewNews([]config.ChannelList{techChannels(-200)}, src, seen, sender, testLogger())

	n.post(context.Background(), techChannels(-200))

	if len(sender.getMessages()) != 0 {
		t.Errorf("sent %d messages, want 0", len(sender.getMessages()))
	}
}

func TestNewsFetchFailure(t *testing.T) {
	src := &mockArticles{err: errors.New("feed down")}
	sender := &mockSender{}
	n := NewNews([]config.ChannelList{techChannels(-200)}, src, cache.NewMemory(time.Hour), sender, testLogger())

	n.post(context.Background(), techChannels(-200))

	if len(sender.getMessages()) != 0 {
		t.Errorf("sent %d messages after fetch failure, want 0", len(sender.getMessages()))
	}
}

func TestNewsPostsOncePerTick(t *testing.T) {
	src := &mockArticles{articles: []news.Article{
		article("First", "https://example.com/1"),
		article("Second", "https://example.com/2"),
	}}
	seen := cache.NewMemory(time.Hour)
	sender := &mockSender{}
	n := NewNews([]config.ChannelList{techChannels(-200)}, src, seen, sender, testLogger())

	n.post(context.Background(), techChannels(-200))

	msgs := sender.getMessages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1 (one article per tick)", len(msgs))
	}
	if !strings.Contains(msgs[0].Body, "First") {
		t.Errorf("Body = %q, want the first article", msgs[0].Body)
	}
}

func TestFormatArticle(t *testing.T) {
	got := FormatArticle(article("Big launch", "https://example.com/launch"))
	for _, want := range []string{"Big launch", "summary of Big launch", "The Verge - Tech", "https://example.com/launch"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatArticle = %q, want it to contain %q", got, want)
		}
	}
}
