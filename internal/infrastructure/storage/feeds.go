package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"newsindex/internal/domain"
)

const feedColumns = `id, url, country, lang, content_type, website_id, enabled,
	last_link_hash, last_read_at, last_error`

// Feed loads one feed record; a missing feed returns (nil, nil).
func (s *Store) Feed(ctx context.Context, id string) (*domain.Feed, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+feedColumns+` FROM feeds WHERE id = $1`, id)
	feed, err := scanFeed(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query feed %s: %w", id, err)
	}
	return feed, nil
}

// ListEnabledFeeds returns every feed the scheduler should read.
func (s *Store) ListEnabledFeeds(ctx context.Context) ([]domain.Feed, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+feedColumns+` FROM feeds WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query enabled feeds: %w", err)
	}
	defer rows.Close()

	var feeds []domain.Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		feeds = append(feeds, *feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feeds: %w", err)
	}
	return feeds, nil
}

// SaveCursor persists the read position. An empty LastLinkHash keeps the
// stored one, so an error cursor never loses the last good position.
func (s *Store) SaveCursor(ctx context.Context, feedID string, cursor domain.FeedCursor) error {
	builder := psql.Update("feeds").
		Set("last_read_at", cursor.LastReadAt).
		Set("last_error", cursor.LastError).
		Where("id = ?", feedID)
	if cursor.LastLinkHash != "" {
		builder = builder.Set("last_link_hash", cursor.LastLinkHash)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build cursor update: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("save cursor for feed %s: %w", feedID, err)
	}
	return nil
}

func scanFeed(row pgx.Row) (*domain.Feed, error) {
	var feed domain.Feed
	var lastReadAt sql.NullTime
	err := row.Scan(
		&feed.ID,
		&feed.URL,
		&feed.Country,
		&feed.Lang,
		&feed.ContentType,
		&feed.WebsiteID,
		&feed.Enabled,
		&feed.Cursor.LastLinkHash,
		&lastReadAt,
		&feed.Cursor.LastError,
	)
	if err != nil {
		return nil, err
	}
	if lastReadAt.Valid {
		feed.Cursor.LastReadAt = lastReadAt.Time
	}
	return &feed, nil
}
