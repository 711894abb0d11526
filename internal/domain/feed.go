package domain

import "time"

// Feed describes one syndication source together with its read cursor.
type Feed struct {
	ID          string
	URL         string
	Country     string
	Lang        string
	ContentType string
	WebsiteID   int
	Enabled     bool
	Cursor      FeedCursor
}

// FeedCursor is per-feed progress state. LastLinkHash is the hash of the most
// recently processed item's canonical link; during a read every item at or
// before it in newest-first feed order is skipped.
type FeedCursor struct {
	LastLinkHash string
	LastReadAt   time.Time
	LastError    string
}
