package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"newsindex/internal/domain"
)

// Story loads one story; a missing story returns (nil, nil).
func (s *Store) Story(ctx context.Context, id string) (*domain.Story, error) {
	storyID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid story id %q: %w", id, err)
	}

	row := s.pool.QueryRow(ctx, `
		SELECT id, title, summary, count_news, category, topics, quotes, videos,
			news, image_id, image_host, important_key, webpage_id, country, lang,
			created_at
		FROM stories WHERE id = $1`, storyID)

	var story domain.Story
	var rawID int64
	var topics []byte
	var importantKey sql.NullString
	err = row.Scan(
		&rawID,
		&story.Title,
		&story.Summary,
		&story.CountNews,
		&story.Category,
		&topics,
		&story.Quotes,
		&story.Videos,
		&story.News,
		&story.ImageID,
		&story.ImageHost,
		&importantKey,
		&story.WebpageID,
		&story.Country,
		&story.Lang,
		&story.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query story %s: %w", id, err)
	}

	story.ID = strconv.FormatInt(rawID, 10)
	story.ImportantKey = importantKey.String
	if err := json.Unmarshal(topics, &story.Topics); err != nil {
		return nil, fmt.Errorf("decode story %s topics: %w", id, err)
	}
	return &story, nil
}

// CreateStory inserts the story and returns its assigned ID.
func (s *Store) CreateStory(ctx context.Context, story *domain.Story) (string, error) {
	topics, err := json.Marshal(story.Topics)
	if err != nil {
		return "", fmt.Errorf("encode story topics: %w", err)
	}

	var importantKey *string
	if story.ImportantKey != "" {
		importantKey = &story.ImportantKey
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO stories (title, summary, count_news, category, topics,
			quotes, videos, news, image_id, image_host, important_key,
			webpage_id, country, lang, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		story.Title,
		story.Summary,
		story.CountNews,
		story.Category,
		topics,
		emptyIfNil(story.Quotes),
		emptyIfNil(story.Videos),
		emptyIfNil(story.News),
		story.ImageID,
		story.ImageHost,
		importantKey,
		story.WebpageID,
		story.Country,
		story.Lang,
		story.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert story: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// UpdateStory applies the merge mutation in one statement: counter
// increment, quote/video set-unions and a one-way importance promotion via
// COALESCE, so a concurrent promotion is never overwritten.
func (s *Store) UpdateStory(ctx context.Context, update domain.StoryUpdate) error {
	storyID, err := strconv.ParseInt(update.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid story id %q: %w", update.ID, err)
	}

	builder := psql.Update("stories").Where("id = ?", storyID)
	if update.CountNewsDelta != 0 {
		builder = builder.Set("count_news",
			squirrel.Expr("count_news + ?", update.CountNewsDelta))
	}
	if len(update.AddQuotes) > 0 {
		builder = builder.Set("quotes", squirrel.Expr(
			"(SELECT array_agg(DISTINCT q) FROM unnest(quotes || ?::text[]) q)",
			update.AddQuotes))
	}
	if len(update.AddVideos) > 0 {
		builder = builder.Set("videos", squirrel.Expr(
			"(SELECT array_agg(DISTINCT v) FROM unnest(videos || ?::text[]) v)",
			update.AddVideos))
	}
	if update.ImportantKey != "" {
		builder = builder.Set("important_key",
			squirrel.Expr("COALESCE(important_key, ?)", update.ImportantKey))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build story update: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update story %s: %w", update.ID, err)
	}
	return nil
}
