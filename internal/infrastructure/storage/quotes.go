package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"newsindex/internal/domain"
)

// Quote loads one quote; a missing quote returns (nil, nil).
func (s *Store) Quote(ctx context.Context, id string) (*domain.Quote, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, quote_text, author_id, author_name, page_id, story_id,
			topics, category, country, lang
		FROM quotes WHERE id = $1`, id)

	var quote domain.Quote
	var topics []byte
	err := row.Scan(
		&quote.ID,
		&quote.Text,
		&quote.Author.ID,
		&quote.Author.Name,
		&quote.PageID,
		&quote.StoryID,
		&topics,
		&quote.Category,
		&quote.Country,
		&quote.Lang,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query quote %s: %w", id, err)
	}
	if err := json.Unmarshal(topics, &quote.Topics); err != nil {
		return nil, fmt.Errorf("decode quote %s topics: %w", id, err)
	}
	return &quote, nil
}

// CreateQuote inserts the quote; an existing ID is left untouched.
func (s *Store) CreateQuote(ctx context.Context, quote *domain.Quote) error {
	if quote.Author.ID == "" || quote.Country == "" || quote.Lang == "" {
		return fmt.Errorf("quote %s misses author or locale", quote.ID)
	}

	topics, err := json.Marshal(quote.Topics)
	if err != nil {
		return fmt.Errorf("encode quote %s topics: %w", quote.ID, err)
	}
	if quote.Topics == nil {
		topics = []byte("[]")
	}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO quotes (id, quote_text, author_id, author_name, page_id,
			story_id, topics, category, country, lang)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		quote.ID,
		quote.Text,
		quote.Author.ID,
		quote.Author.Name,
		quote.PageID,
		quote.StoryID,
		topics,
		quote.Category,
		quote.Country,
		quote.Lang,
	); err != nil {
		return fmt.Errorf("insert quote %s: %w", quote.ID, err)
	}
	return nil
}

// SetQuoteStory binds the quote to a story.
func (s *Store) SetQuoteStory(ctx context.Context, quoteID, storyID string) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE quotes SET story_id = $2 WHERE id = $1`, quoteID, storyID); err != nil {
		return fmt.Errorf("set quote %s story: %w", quoteID, err)
	}
	return nil
}
