// Package storage persists the newsindex entities in Postgres. Counter
// increments and website/quote/video unions happen inside single UPDATE
// statements so concurrent writers never under-count.
package storage

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"newsindex/internal/ports"
)

// psql builds queries with Postgres placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Store bundles all entity repositories over one connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ ports.FeedStore = (*Store)(nil)
var _ ports.PageStore = (*Store)(nil)
var _ ports.StoryStore = (*Store)(nil)
var _ ports.QuoteStore = (*Store)(nil)
var _ ports.ImageStore = (*Store)(nil)
var _ ports.VideoStore = (*Store)(nil)

// New wires a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS feeds (
	id             text PRIMARY KEY,
	url            text NOT NULL,
	country        text NOT NULL,
	lang           text NOT NULL,
	content_type   text NOT NULL DEFAULT '',
	website_id     bigint NOT NULL,
	enabled        boolean NOT NULL DEFAULT true,
	last_link_hash text NOT NULL DEFAULT '',
	last_read_at   timestamptz,
	last_error     text NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS pages (
	id           text PRIMARY KEY,
	url          text NOT NULL,
	host         text NOT NULL,
	path         text NOT NULL,
	title        text NOT NULL,
	summary      text NOT NULL,
	country      text NOT NULL,
	lang         text NOT NULL,
	category     int NOT NULL DEFAULT 0,
	topics       jsonb NOT NULL DEFAULT '[]',
	quotes       text[] NOT NULL DEFAULT '{}',
	image_id     text NOT NULL DEFAULT '',
	video_id     text NOT NULL DEFAULT '',
	story_id     text NOT NULL DEFAULT '',
	website_id   bigint NOT NULL,
	published_at timestamptz NOT NULL,
	created_at   timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS stories (
	id            bigserial PRIMARY KEY,
	title         text NOT NULL,
	summary       text NOT NULL,
	count_news    int NOT NULL,
	category      int NOT NULL DEFAULT 0,
	topics        jsonb NOT NULL DEFAULT '[]',
	quotes        text[] NOT NULL DEFAULT '{}',
	videos        text[] NOT NULL DEFAULT '{}',
	news          text[] NOT NULL DEFAULT '{}',
	image_id      text NOT NULL,
	image_host    text NOT NULL DEFAULT '',
	important_key text,
	webpage_id    text NOT NULL,
	country       text NOT NULL,
	lang          text NOT NULL,
	created_at    timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS quotes (
	id          text PRIMARY KEY,
	quote_text  text NOT NULL,
	author_id   text NOT NULL,
	author_name text NOT NULL DEFAULT '',
	page_id     text NOT NULL,
	story_id    text NOT NULL DEFAULT '',
	topics      jsonb NOT NULL DEFAULT '[]',
	category    int NOT NULL DEFAULT 0,
	country     text NOT NULL,
	lang        text NOT NULL,
	created_at  timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS images (
	id       text PRIMARY KEY,
	dhash    text NOT NULL,
	width    int NOT NULL DEFAULT 0,
	height   int NOT NULL DEFAULT 0,
	length   int NOT NULL DEFAULT 0,
	websites bigint[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS videos (
	id          text PRIMARY KEY,
	source_id   text NOT NULL,
	source_type text NOT NULL DEFAULT '',
	width       int NOT NULL DEFAULT 0,
	height      int NOT NULL DEFAULT 0,
	websites    bigint[] NOT NULL DEFAULT '{}'
);
`

// EnsureSchema creates the tables when they are absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func toInts(values []int64) []int {
	if values == nil {
		return nil
	}
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}

func toInt64s(values []int) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}
