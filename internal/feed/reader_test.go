package feed

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"newsindex/internal/ident"
)

func serveXML(t *testing.T, body []byte, contentType string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func rssFeed(items ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>test</title>` +
		strings.Join(items, "") + `</channel></rss>`
}

func rssItem(link, title string, published time.Time) string {
	return fmt.Sprintf(
		"<item><title>%s</title><link>%s</link><description>short description</description><pubDate>%s</pubDate></item>",
		title, link, published.Format(time.RFC1123Z),
	)
}

func TestReaderStopsAtKnownLink(t *testing.T) {
	t.Parallel()

	now := time.Now()
	body := rssFeed(
		rssItem("http://news.example.md/politics/item-4", "Item four", now.Add(-1*time.Minute)),
		rssItem("http://news.example.md/politics/item-3", "Item three", now.Add(-2*time.Minute)),
		rssItem("http://news.example.md/politics/item-2", "Item two", now.Add(-3*time.Minute)),
		rssItem("http://news.example.md/politics/item-1", "Item one", now.Add(-4*time.Minute)),
	)
	srv := serveXML(t, []byte(body), "application/rss+xml")

	r := NewReader(srv.Client(), nil, nil)
	entries, err := r.Read(context.Background(), srv.URL, ReadOptions{
		StopLinkHash: ident.LinkHash("http://news.example.md/politics/item-2"),
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Link != "http://news.example.md/politics/item-3" {
		t.Fatalf("expected oldest accepted entry first, got %q", entries[0].Link)
	}
	if entries[1].Link != "http://news.example.md/politics/item-4" {
		t.Fatalf("expected newest entry last, got %q", entries[1].Link)
	}
}

func TestReaderLimit(t *testing.T) {
	t.Parallel()

	now := time.Now()
	body := rssFeed(
		rssItem("http://news.example.md/politics/item-3", "Item three", now.Add(-1*time.Minute)),
		rssItem("http://news.example.md/politics/item-2", "Item two", now.Add(-2*time.Minute)),
		rssItem("http://news.example.md/politics/item-1", "Item one", now.Add(-3*time.Minute)),
	)
	srv := serveXML(t, []byte(body), "application/rss+xml")

	r := NewReader(srv.Client(), nil, nil)
	entries, err := r.Read(context.Background(), srv.URL, ReadOptions{Limit: 2})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// The newest two survive the cap; the oldest is dropped.
	if entries[0].Link != "http://news.example.md/politics/item-2" {
		t.Fatalf("unexpected first entry %q", entries[0].Link)
	}
}

func TestReaderMaxAgeCutsTail(t *testing.T) {
	t.Parallel()

	now := time.Now()
	body := rssFeed(
		rssItem("http://news.example.md/politics/item-4", "Item four", now.Add(-10*time.Minute)),
		rssItem("http://news.example.md/politics/item-3", "Item three", now.Add(-20*time.Minute)),
		rssItem("http://news.example.md/politics/item-2", "Item two", now.Add(-2*time.Hour)),
		rssItem("http://news.example.md/politics/item-1", "Item one", now.Add(-30*time.Minute)),
	)
	srv := serveXML(t, []byte(body), "application/rss+xml")

	r := NewReader(srv.Client(), nil, nil)
	entries, err := r.Read(context.Background(), srv.URL, ReadOptions{MaxAge: time.Hour})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	// Acceptance stops at the first too-old entry even when newer ones
	// follow it in the document.
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Link != "http://news.example.md/politics/item-3" {
		t.Fatalf("unexpected first entry %q", entries[0].Link)
	}
}

func TestReaderDecodesDeclaredEncoding(t *testing.T) {
	t.Parallel()

	var body bytes.Buffer
	body.WriteString(`<?xml version="1.0" encoding="windows-1251"?><rss version="2.0"><channel><title>test</title><item><title>`)
	body.Write([]byte{0xcf, 0xf0, 0xe8, 0xe2, 0xe5, 0xf2}) // "Привет" in windows-1251
	body.WriteString(`</title><link>http://news.example.ru/politics/privet</link><description>d</description></item></channel></rss>`)
	srv := serveXML(t, body.Bytes(), "application/rss+xml")

	r := NewReader(srv.Client(), nil, nil)
	entries, err := r.Read(context.Background(), srv.URL, ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Title != "Привет" {
		t.Fatalf("expected decoded title, got %q", entries[0].Title)
	}
}

func TestReaderDropsBrokenEntries(t *testing.T) {
	t.Parallel()

	now := time.Now()
	body := rssFeed(
		rssItem("http://news.example.md/politics/good", "Good &lt;b&gt;markup&lt;/b&gt; title", now.Add(-1*time.Minute)),
		rssItem("http://news.example.md/politics/bad", "Mojibake � title", now.Add(-2*time.Minute)),
		rssItem("http://x/politics/short-host", "Short host", now.Add(-3*time.Minute)),
	)
	srv := serveXML(t, []byte(body), "application/rss+xml")

	r := NewReader(srv.Client(), nil, nil)
	entries, err := r.Read(context.Background(), srv.URL, ReadOptions{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Link != "http://news.example.md/politics/good" {
		t.Fatalf("unexpected surviving entry %q", entries[0].Link)
	}
	if entries[0].Title != "Good markup title" {
		t.Fatalf("expected markup stripped from title, got %q", entries[0].Title)
	}
}
