package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"newsindex/internal/domain"
)

const pageColumns = `id, url, host, path, title, summary, country, lang,
	category, topics, quotes, image_id, video_id, story_id, website_id,
	published_at`

// Page loads one page; a missing page returns (nil, nil).
func (s *Store) Page(ctx context.Context, id string) (*domain.Page, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = $1`, id)

	var page domain.Page
	var topics []byte
	err := row.Scan(
		&page.ID,
		&page.URL,
		&page.Host,
		&page.Path,
		&page.Title,
		&page.Summary,
		&page.Country,
		&page.Lang,
		&page.Category,
		&topics,
		&page.Quotes,
		&page.ImageID,
		&page.VideoID,
		&page.StoryID,
		&page.WebsiteID,
		&page.PublishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query page %s: %w", id, err)
	}
	if err := json.Unmarshal(topics, &page.Topics); err != nil {
		return nil, fmt.Errorf("decode page %s topics: %w", id, err)
	}
	return &page, nil
}

// CreatePage inserts the page and rejects a second insertion of the same ID
// with domain.ErrDuplicatePage.
func (s *Store) CreatePage(ctx context.Context, page *domain.Page) error {
	topics, err := json.Marshal(page.Topics)
	if err != nil {
		return fmt.Errorf("encode page %s topics: %w", page.ID, err)
	}
	if page.Topics == nil {
		topics = []byte("[]")
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO pages (`+pageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING`,
		page.ID,
		page.URL,
		page.Host,
		page.Path,
		page.Title,
		page.Summary,
		page.Country,
		page.Lang,
		page.Category,
		topics,
		emptyIfNil(page.Quotes),
		page.ImageID,
		page.VideoID,
		page.StoryID,
		page.WebsiteID,
		page.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert page %s: %w", page.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicatePage
	}
	return nil
}

// SetPageStory binds the page to a story.
func (s *Store) SetPageStory(ctx context.Context, pageID, storyID string) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE pages SET story_id = $2 WHERE id = $1`, pageID, storyID); err != nil {
		return fmt.Errorf("set page %s story: %w", pageID, err)
	}
	return nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
