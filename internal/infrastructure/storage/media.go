package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"newsindex/internal/domain"
)

// Image loads one image; a missing image returns (nil, nil).
func (s *Store) Image(ctx context.Context, id string) (*domain.Image, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, dhash, width, height, length, websites
		FROM images WHERE id = $1`, id)

	var image domain.Image
	var websites []int64
	err := row.Scan(
		&image.ID,
		&image.DHash,
		&image.Width,
		&image.Height,
		&image.Length,
		&websites,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query image %s: %w", id, err)
	}
	image.Websites = toInts(websites)
	return &image, nil
}

// CreateImage inserts the image; an existing ID is left untouched.
func (s *Store) CreateImage(ctx context.Context, image *domain.Image) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO images (id, dhash, width, height, length, websites)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		image.ID,
		image.DHash,
		image.Width,
		image.Height,
		image.Length,
		toInt64s(image.Websites),
	); err != nil {
		return fmt.Errorf("insert image %s: %w", image.ID, err)
	}
	return nil
}

// AddWebsiteToImage unions one website into the image's website set.
func (s *Store) AddWebsiteToImage(ctx context.Context, imageID string, websiteID int) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE images
		SET websites = (SELECT array_agg(DISTINCT w)
			FROM unnest(array_append(websites, $2::bigint)) w)
		WHERE id = $1`, imageID, int64(websiteID)); err != nil {
		return fmt.Errorf("add website to image %s: %w", imageID, err)
	}
	return nil
}

// Video loads one video; a missing video returns (nil, nil).
func (s *Store) Video(ctx context.Context, id string) (*domain.Video, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, source_id, source_type, width, height, websites
		FROM videos WHERE id = $1`, id)

	var video domain.Video
	var websites []int64
	err := row.Scan(
		&video.ID,
		&video.SourceID,
		&video.SourceType,
		&video.Width,
		&video.Height,
		&websites,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query video %s: %w", id, err)
	}
	video.Websites = toInts(websites)
	return &video, nil
}

// CreateVideo inserts the video; an existing ID is left untouched.
func (s *Store) CreateVideo(ctx context.Context, video *domain.Video) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO videos (id, source_id, source_type, width, height, websites)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		video.ID,
		video.SourceID,
		video.SourceType,
		video.Width,
		video.Height,
		toInt64s(video.Websites),
	); err != nil {
		return fmt.Errorf("insert video %s: %w", video.ID, err)
	}
	return nil
}

// AddWebsiteToVideo unions one website into the video's website set.
func (s *Store) AddWebsiteToVideo(ctx context.Context, videoID string, websiteID int) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE videos
		SET websites = (SELECT array_agg(DISTINCT w)
			FROM unnest(array_append(websites, $2::bigint)) w)
		WHERE id = $1`, videoID, int64(websiteID)); err != nil {
		return fmt.Errorf("add website to video %s: %w", videoID, err)
	}
	return nil
}
