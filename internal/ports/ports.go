package ports

import (
	"context"
	"time"

	"newsindex/internal/domain"
)

// FeedStore loads feed records and persists read cursors.
type FeedStore interface {
	Feed(ctx context.Context, id string) (*domain.Feed, error)
	ListEnabledFeeds(ctx context.Context) ([]domain.Feed, error)
	SaveCursor(ctx context.Context, feedID string, cursor domain.FeedCursor) error
}

// PageStore persists web pages. Create must reject a second insertion of the
// same ID; lookups return (nil, nil) for missing entities.
type PageStore interface {
	Page(ctx context.Context, id string) (*domain.Page, error)
	CreatePage(ctx context.Context, page *domain.Page) error
	SetPageStory(ctx context.Context, pageID, storyID string) error
}

// StoryStore persists stories. UpdateStory applies increments and set-unions
// atomically at the data layer so concurrent merges cannot under-count.
type StoryStore interface {
	Story(ctx context.Context, id string) (*domain.Story, error)
	CreateStory(ctx context.Context, story *domain.Story) (string, error)
	UpdateStory(ctx context.Context, update domain.StoryUpdate) error
}

// QuoteStore persists quotes keyed by their deterministic ID.
type QuoteStore interface {
	Quote(ctx context.Context, id string) (*domain.Quote, error)
	CreateQuote(ctx context.Context, quote *domain.Quote) error
	SetQuoteStory(ctx context.Context, quoteID, storyID string) error
}

// ImageStore persists deduplicated images; AddWebsite is a set-union.
type ImageStore interface {
	Image(ctx context.Context, id string) (*domain.Image, error)
	CreateImage(ctx context.Context, image *domain.Image) error
	AddWebsiteToImage(ctx context.Context, imageID string, websiteID int) error
}

// VideoStore persists deduplicated videos; AddWebsite is a set-union.
type VideoStore interface {
	Video(ctx context.Context, id string) (*domain.Video, error)
	CreateVideo(ctx context.Context, video *domain.Video) error
	AddWebsiteToVideo(ctx context.Context, videoID string, websiteID int) error
}

// PageHit is a search result row, trimmed to what clustering needs.
type PageHit struct {
	ID       string
	Title    string
	Summary  string
	Host     string
	Country  string
	Lang     string
	Category domain.TopicCategory
	Topics   []domain.Topic
	Quotes   []string
	ImageID  string
	VideoID  string
	StoryID  string
	Score    float64
}

// PageQuery scopes a title search to one market with a relevance floor.
type PageQuery struct {
	Query    string
	Country  string
	Lang     string
	MinScore float64
}

// SearchIndex is the full-text search collaborator. Indexing is at-least-once
// with latency, which is why clustering settles before dependent reads.
type SearchIndex interface {
	SearchPages(ctx context.Context, query PageQuery) ([]PageHit, error)
	IndexPage(ctx context.Context, page *domain.Page) error
	UpdatePageStory(ctx context.Context, pageID, storyID string) error
}

// TopicExtractor is the linguistic collaborator's entity endpoint.
type TopicExtractor interface {
	ExtractTopics(ctx context.Context, text, lang, country string) ([]domain.Topic, error)
}

// QuoteExtractor detects attributed quotes given known person mentions.
type QuoteExtractor interface {
	ExtractQuotes(ctx context.Context, text, lang string, persons []domain.PersonMention) ([]domain.RawQuote, error)
}

// ExploredPage is the fetched article page: canonical metadata plus media
// candidates discovered in the document.
type ExploredPage struct {
	URL         string
	Canonical   string
	Title       string
	Description string
	Content     string
	Images      []domain.ImageCandidate
	Videos      []domain.VideoCandidate
}

// PageExplorer fetches and dissects the article page behind a feed link.
type PageExplorer interface {
	Explore(ctx context.Context, pageURL, lang string) (*ExploredPage, error)
}

// Rendition is one resized encoding of a source image.
type Rendition struct {
	Name string
	Body []byte
}

// RenditionNames lists every rendition produced for a stored image, in
// generation order.
var RenditionNames = []string{"master", "large", "medium", "square"}

// ImageProcessor hashes and resizes raw image bytes. DHash must reject
// payloads below the minimum byte size with domain.ErrTooSmallImage.
type ImageProcessor interface {
	DHash(data []byte) (string, error)
	Renditions(data []byte, width int) ([]Rendition, error)
}

// ObjectStore is content-addressable public storage for image renditions.
// Copy must retry internally on a throttling response.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte) error
	Copy(ctx context.Context, sourceKey, destKey string) error
}

// Scheduler fires the recurring ingestion job.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
