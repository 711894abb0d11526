package domain

import "time"

// TopicCategory enumerates the entity classes produced by the linguistic service.
type TopicCategory int

const (
	CategoryPerson TopicCategory = 1
	CategoryPlace  TopicCategory = 2
	CategoryGroup  TopicCategory = 3
	CategoryBrand  TopicCategory = 4
	CategoryArts   TopicCategory = 5
)

// Mention is one occurrence of a topic inside the source text.
type Mention struct {
	Index int
	Text  string
}

// Topic is an extracted entity reference attached to a page or story.
type Topic struct {
	ID       string
	Key      string
	Name     string
	Abbr     string
	Category TopicCategory
	Country  string
	Lang     string
	Rating   int
	Mentions []Mention
}

// RawEntry is one syndication item after reader normalization. It is
// short-lived: the feed manager maps it into a Page candidate and drops it.
type RawEntry struct {
	Title       string
	Link        string
	Summary     string
	Content     string
	PublishedAt time.Time
}

// Page is the canonical unit of content. The ID is a pure function of the
// normalized URL; core fields are immutable after creation, only StoryID,
// Quotes, ImageID and VideoID are mutated later.
type Page struct {
	ID          string
	URL         string
	Host        string
	Path        string
	Title       string
	Summary     string
	Content     string
	PageContent string
	Country     string
	Lang        string
	Category    TopicCategory
	Topics      []Topic
	Quotes      []string
	ImageID     string
	VideoID     string
	StoryID     string
	WebsiteID   int
	PublishedAt time.Time
}

// Culture scopes lookups to one market.
type Culture struct {
	Country string
	Lang    string
}

// Key returns the locale key used for importance promotion ("md_ro" etc).
func (c Culture) Key() string {
	return c.Country + "_" + c.Lang
}
