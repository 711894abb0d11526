package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"newsindex/internal/domain"
	"newsindex/internal/ident"
	"newsindex/internal/textutil"
)

const (
	defaultLimit    = 20
	defaultMaxAge   = 24 * time.Hour
	fetchTimeout    = 5 * time.Second
	maxFeedBody     = 10 << 20
	decodeMarker    = "�"
	readerUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/42.0.2311.135 Safari/537.36"
)

var xmlEncodingDecl = regexp.MustCompile(`(?i)^(\s*<\?xml[^>]*?encoding=["'])([^"']+)(["'])`)

// ReadOptions bounds one feed read.
type ReadOptions struct {
	// StopLinkHash halts acceptance once an entry's link hash matches it
	// (the item was processed in a prior cycle).
	StopLinkHash string
	// Limit caps accepted entries; defaults to 20.
	Limit int
	// MaxAge halts acceptance once an entry is older than this; defaults
	// to 24h.
	MaxAge time.Duration
}

// Reader fetches a feed URL, recovers its character encoding and yields
// normalized entries in oldest-to-newest order.
type Reader struct {
	client    *http.Client
	parser    *gofeed.Parser
	encodings map[string][]string
	logger    *slog.Logger
}

// NewReader wires an HTTP client and the per-host encoding override table
// (encoding label -> hosts known to use it).
func NewReader(client *http.Client, encodings map[string][]string, logger *slog.Logger) *Reader {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Reader{
		client:    client,
		parser:    gofeed.NewParser(),
		encodings: encodings,
		logger:    logger,
	}
}

// Read fetches and parses the feed, applying the stop-hash, age-cutoff and
// limit rules per entry in feed (newest-first) order. Accepted entries come
// back reversed, oldest first, so downstream work treats older items first.
func (r *Reader) Read(ctx context.Context, feedURL string, opts ReadOptions) ([]domain.RawEntry, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = defaultMaxAge
	}

	content, err := r.fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	parsed, err := r.parser.ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	now := time.Now()
	var entries []domain.RawEntry
	for _, item := range parsed.Items {
		entry, ok := r.normalizeEntry(item, now)
		if !ok {
			continue
		}
		if opts.StopLinkHash != "" && ident.LinkHash(entry.Link) == opts.StopLinkHash {
			break
		}
		if now.Sub(entry.PublishedAt) > opts.MaxAge {
			break
		}
		entries = append(entries, entry)
		if len(entries) == opts.Limit {
			break
		}
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// fetch downloads the document and returns it as UTF-8 text. Encoding
// resolution order: per-host override table, then transport-declared charset,
// then XML-declared encoding; each later source overrides the previous.
func (r *Reader) fetch(ctx context.Context, feedURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", readerUserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 399 {
		return "", fmt.Errorf("feed %s: bad status code %d", feedURL, resp.StatusCode)
	}

	body := bufio.NewReaderSize(resp.Body, 4096)
	dec := NewDecodingReader(body)

	if enc := r.hostEncoding(feedURL); enc != "" {
		_ = dec.SetEncoding(enc)
	}
	if _, params, mErr := mime.ParseMediaType(resp.Header.Get("Content-Type")); mErr == nil {
		if cs := params["charset"]; cs != "" {
			if sErr := dec.SetEncoding(cs); sErr != nil {
				r.debug("ignoring transport charset", "charset", cs, "err", sErr)
			}
		}
	}
	if declared := declaredEncoding(body); declared != "" {
		if sErr := dec.SetEncoding(declared); sErr != nil {
			r.debug("ignoring declared encoding", "encoding", declared, "err", sErr)
		}
	}

	raw, err := io.ReadAll(io.LimitReader(dec, maxFeedBody))
	if err != nil {
		return "", fmt.Errorf("read feed body: %w", err)
	}

	content := string(raw)
	if dec.Encoding() != "" {
		// The stream is UTF-8 now; a stale declaration would make the XML
		// parser decode it a second time.
		content = xmlEncodingDecl.ReplaceAllString(content, "${1}utf-8${3}")
	}
	return content, nil
}

// declaredEncoding peeks the document head for an XML encoding declaration.
// The declaration is ASCII under every encoding in the override table, so
// peeking the raw bytes ahead of the decoder is safe.
func declaredEncoding(body *bufio.Reader) string {
	head, _ := body.Peek(1024)
	m := xmlEncodingDecl.FindSubmatch(head)
	if m == nil {
		return ""
	}
	return string(m[2])
}

// hostEncoding resolves the override table by exact host or parent-domain
// suffix match.
func (r *Reader) hostEncoding(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Host)
	for enc, hosts := range r.encodings {
		for _, h := range hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return enc
			}
		}
	}
	return ""
}

// normalizeEntry validates and cleans one parsed item. Entries with a bad
// host, an empty title or a decode-failure marker are dropped.
func (r *Reader) normalizeEntry(item *gofeed.Item, now time.Time) (domain.RawEntry, bool) {
	link, err := ident.NormalizeURL(item.Link)
	if err != nil {
		r.debug("feed item invalid link", "link", item.Link, "err", err)
		return domain.RawEntry{}, false
	}

	title := strings.TrimSpace(strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(item.Title))
	if title == "" {
		return domain.RawEntry{}, false
	}
	if strings.Contains(title, decodeMarker) {
		r.warn("feed item invalid title", "link", link, "title", title)
		return domain.RawEntry{}, false
	}

	content := item.Content
	if ext, ok := item.Extensions["yandex"]["full-text"]; ok && len(ext) > 0 && ext[0].Value != "" {
		content = ext[0].Value
	}

	entry := domain.RawEntry{
		Title:       textutil.Normalize(textutil.StripHTML(title)),
		Link:        link,
		Summary:     textutil.Normalize(textutil.StripHTML(item.Description)),
		Content:     textutil.Normalize(textutil.StripHTML(content)),
		PublishedAt: r.publishedAt(item, now),
	}
	return entry, true
}

// publishedAt defends recency ordering against absent, unparsable or future
// publish dates by defaulting them to now.
func (r *Reader) publishedAt(item *gofeed.Item, now time.Time) time.Time {
	var ts time.Time
	switch {
	case item.PublishedParsed != nil:
		ts = *item.PublishedParsed
	case item.Published != "":
		parsed, err := dateparse.ParseAny(item.Published)
		if err != nil {
			return now
		}
		ts = parsed
	case item.UpdatedParsed != nil:
		ts = *item.UpdatedParsed
	default:
		return now
	}
	if ts.After(now) {
		return now
	}
	return ts
}

func (r *Reader) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Reader) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
