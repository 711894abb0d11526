package domain

// QuoteAuthor is the attributed speaker of a quote. An author without an ID
// cannot be linked and fails the quote (data-integrity rule).
type QuoteAuthor struct {
	ID   string
	Name string
}

// RawQuote is a detection straight from the quote extractor: a text span with
// its offset into the analyzed text and its attributed author.
type RawQuote struct {
	Text   string
	Index  int
	Author QuoteAuthor
}

// Quote is an attribution-bound text span tied to topics and one page. The ID
// derives deterministically from content and author, so repeated detections
// link to the existing entity instead of duplicating it.
type Quote struct {
	ID       string
	Text     string
	Author   QuoteAuthor
	PageID   string
	StoryID  string
	Topics   []Topic
	Category TopicCategory
	Country  string
	Lang     string
}

// PersonMention keys a person topic by one of its text-mention offsets; the
// quote extractor uses these to attribute speakers.
type PersonMention struct {
	ID    string
	Key   string
	Name  string
	Abbr  string
	Index int
}
