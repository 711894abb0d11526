package feed

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"newsindex/internal/domain"
	"newsindex/internal/ident"
	"newsindex/internal/ports"
	"newsindex/internal/textutil"
)

const (
	readTimeout = 10 * time.Second
	itemTimeout = 120 * time.Second
)

// ItemProcessor ingests one page candidate end to end (the content pipeline).
type ItemProcessor interface {
	ProcessItem(ctx context.Context, page *domain.Page) error
}

// Manager orchestrates one feed's read cycle: load cursor, read entries, map
// them to page candidates, submit each to the content pipeline behind its own
// timeout, and persist the new cursor. Item failures never abort the cycle.
type Manager struct {
	reader    *Reader
	feeds     ports.FeedStore
	processor ItemProcessor
	limit     int
	maxAge    time.Duration
	logger    *slog.Logger
}

// NewManager wires the reader, the cursor store and the per-item processor.
func NewManager(reader *Reader, feeds ports.FeedStore, processor ItemProcessor, limit int, maxAge time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		reader:    reader,
		feeds:     feeds,
		processor: processor,
		limit:     limit,
		maxAge:    maxAge,
		logger:    logger,
	}
}

// ProcessFeedID resolves the feed record first, then runs a cycle.
func (m *Manager) ProcessFeedID(ctx context.Context, feedID string) error {
	fd, err := m.feeds.Feed(ctx, feedID)
	if err != nil {
		return err
	}
	if fd == nil {
		return errors.New("feed not found: " + feedID)
	}
	return m.ProcessFeed(ctx, *fd)
}

// ProcessFeed runs one read cycle for an already-loaded feed record. The
// cursor is owned exclusively by this call for its duration; callers must not
// run concurrent cycles for the same feed.
func (m *Manager) ProcessFeed(ctx context.Context, fd domain.Feed) error {
	m.logger.Info("feed cycle", "feed", fd.ID, "url", fd.URL)

	readCtx, cancel := context.WithTimeout(ctx, readTimeout)
	entries, err := m.reader.Read(readCtx, fd.URL, ReadOptions{
		StopLinkHash: fd.Cursor.LastLinkHash,
		Limit:        m.limit,
		MaxAge:       m.maxAge,
	})
	cancel()
	if err != nil {
		m.logger.Error("feed read failed", "feed", fd.ID, "err", err)
		cursor := domain.FeedCursor{
			LastLinkHash: fd.Cursor.LastLinkHash,
			LastReadAt:   time.Now(),
			LastError:    err.Error(),
		}
		if saveErr := m.feeds.SaveCursor(ctx, fd.ID, cursor); saveErr != nil {
			return saveErr
		}
		return err
	}

	var lastLink string
	for _, entry := range entries {
		page := m.toPage(entry, fd)

		itemCtx, cancelItem := context.WithTimeout(ctx, itemTimeout)
		itemErr := m.processor.ProcessItem(itemCtx, page)
		cancelItem()

		switch {
		case itemErr == nil:
			lastLink = entry.Link
		case errors.Is(itemErr, context.DeadlineExceeded):
			m.logger.Error("item timeout", "link", entry.Link)
		case errors.Is(itemErr, domain.ErrInvalidItem):
			m.logger.Debug("item invalid", "link", entry.Link, "err", itemErr)
		case errors.Is(itemErr, domain.ErrDuplicatePage):
			m.logger.Debug("item already ingested", "link", entry.Link)
			lastLink = entry.Link
		default:
			m.logger.Error("item error", "link", entry.Link, "err", itemErr)
		}
	}

	if lastLink == "" {
		return nil
	}

	cursor := domain.FeedCursor{
		LastLinkHash: ident.LinkHash(lastLink),
		LastReadAt:   time.Now(),
	}
	return m.feeds.SaveCursor(ctx, fd.ID, cursor)
}

// toPage maps a raw entry onto the page shape, applying the language-aware
// title/content cleanup and the feed record's market hints.
func (m *Manager) toPage(entry domain.RawEntry, fd domain.Feed) *domain.Page {
	lang := strings.ToLower(fd.Lang)
	page := &domain.Page{
		URL:         entry.Link,
		Title:       textutil.CleanTitle(entry.Title, lang),
		Summary:     textutil.CleanContent(entry.Summary, lang),
		Content:     textutil.CleanContent(entry.Content, lang),
		Country:     strings.ToLower(fd.Country),
		Lang:        lang,
		WebsiteID:   fd.WebsiteID,
		PublishedAt: entry.PublishedAt,
	}
	if page.Content != "" &&
		(page.Summary == "" || utf8.RuneCountInString(page.Summary) < 100 && len(page.Summary) < len(page.Content)) {
		page.Summary = page.Content
	}
	return page
}
