package domain

import "time"

// StoryMaxAge is the staleness window: a story older than this accepts no
// further merges.
const StoryMaxAge = 24 * time.Hour

// Story is a cluster of related pages about one event across sources.
type Story struct {
	ID           string
	Title        string
	Summary      string
	CountNews    int
	Category     TopicCategory
	Topics       []Topic
	Quotes       []string
	Videos       []string
	News         []string
	ImageID      string
	ImageHost    string
	ImportantKey string
	WebpageID    string
	Country      string
	Lang         string
	CreatedAt    time.Time
}

// Frozen reports whether the story's membership window has closed.
func (s *Story) Frozen(now time.Time) bool {
	return s.CreatedAt.Before(now.Add(-StoryMaxAge))
}

// StoryUpdate describes an incremental mutation of a stored story. AddQuotes
// and AddVideos are set-unions, CountNewsDelta a field-level increment, so the
// data layer can apply them without read-modify-write races.
type StoryUpdate struct {
	ID             string
	CountNewsDelta int
	AddQuotes      []string
	AddVideos      []string
	ImportantKey   string
}
