package news

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Sample Feed</title>
    <item>
      <title> First headline </title>
      <link>https://example.com/1</link>
      <description><![CDATA[<p>Lead <b>paragraph</b> of the story.</p>]]></description>
      <pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Second headline</title>
      <link>https://example.com/2</link>
      <description>Short summary</description>
    </item>
  </channel>
</rss>`

type mockHTTP struct {
	responses map[string]string
	status    int
	err       error
}

func (m *mockHTTP) Do(req *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == 0 {
		status = http.StatusOK
	}
	body := m.responses[req.URL.String()]
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchParsesFeed(t *testing.T) {
	client := &mockHTTP{responses: map[string]string{
		"https://www.theverge.com/rss/tech/index.xml": sampleRSS,
	}}
	p := NewProvider(client, testLogger())

	articles, err := p.Fetch(context.Background(), "tech")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}

	first := articles[0]
	if first.Title != "First headline" {
		t.Errorf("Title = %q, want trimmed headline", first.Title)
	}
	if first.Summary != "Lead paragraph of the story." {
		t.Errorf("Summary = %q, want tags stripped", first.Summary)
	}
	if first.URL != "https://example.com/1" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.SourceName != "The Verge - Tech" {
		t.Errorf("SourceName = %q", first.SourceName)
	}
	if first.PublishedAt.IsZero() {
		t.Error("PublishedAt is zero, want parsed pubDate")
	}
}

func TestFetchUnknownCategory(t *testing.T) {
	p := NewProvider(&mockHTTP{}, testLogger())
	if _, err := p.Fetch(context.Background(), "sports"); err == nil {
		t.Error("Fetch with unknown category succeeded, want error")
	}
}

func TestFetchSkipsFailingFeeds(t *testing.T) {
	// The economy category has multiple feeds; only one responds.
	client := &mockHTTP{responses: map[string]string{
		"https://br.investing.com/rss/news_14.rss": sampleRSS,
	}}
	p := NewProvider(client, testLogger())

	articles, err := p.Fetch(context.Background(), "economy")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(articles) != 2 {
		t.Errorf("got %d articles, want 2 from the one working feed", len(articles))
	}
}

func TestFetchAllFeedsDown(t *testing.T) {
	p := NewProvider(&mockHTTP{err: errors.New("dns failure")}, testLogger())

	articles, err := p.Fetch(context.Background(), "tech")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("got %d articles from dead feeds, want 0", len(articles))
	}
}

func TestSummarizeTruncates(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	got := summarize(string(long))
	if len(got) != 303 {
		t.Errorf("len = %d, want 303 (300 chars plus ellipsis)", len(got))
	}
}
