package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"newsindex/internal/domain"
	"newsindex/internal/ident"
	"newsindex/internal/ports"
)

type fakeExplorer struct {
	page *ports.ExploredPage
	err  error
}

func (f *fakeExplorer) Explore(_ context.Context, _, _ string) (*ports.ExploredPage, error) {
	return f.page, f.err
}

type fakePageStore struct {
	pages   map[string]*domain.Page
	created []*domain.Page
}

func (s *fakePageStore) Page(_ context.Context, id string) (*domain.Page, error) {
	return s.pages[id], nil
}

func (s *fakePageStore) CreatePage(_ context.Context, page *domain.Page) error {
	if s.pages == nil {
		s.pages = map[string]*domain.Page{}
	}
	if _, ok := s.pages[page.ID]; ok {
		return domain.ErrDuplicatePage
	}
	s.pages[page.ID] = page
	s.created = append(s.created, page)
	return nil
}

func (s *fakePageStore) SetPageStory(_ context.Context, pageID, storyID string) error {
	if page, ok := s.pages[pageID]; ok {
		page.StoryID = storyID
	}
	return nil
}

type fakeQuoteStore struct {
	quotes  map[string]*domain.Quote
	created []*domain.Quote
}

func (s *fakeQuoteStore) Quote(_ context.Context, id string) (*domain.Quote, error) {
	return s.quotes[id], nil
}

func (s *fakeQuoteStore) CreateQuote(_ context.Context, quote *domain.Quote) error {
	if s.quotes == nil {
		s.quotes = map[string]*domain.Quote{}
	}
	s.quotes[quote.ID] = quote
	s.created = append(s.created, quote)
	return nil
}

func (s *fakeQuoteStore) SetQuoteStory(_ context.Context, quoteID, storyID string) error {
	if quote, ok := s.quotes[quoteID]; ok {
		quote.StoryID = storyID
	}
	return nil
}

type fakeTopicExtractor struct {
	topics []domain.Topic
	err    error
}

func (f *fakeTopicExtractor) ExtractTopics(_ context.Context, _, _, _ string) ([]domain.Topic, error) {
	return f.topics, f.err
}

type fakeQuoteExtractor struct {
	quotes  []domain.RawQuote
	err     error
	persons []domain.PersonMention
}

func (f *fakeQuoteExtractor) ExtractQuotes(_ context.Context, _, _ string, persons []domain.PersonMention) ([]domain.RawQuote, error) {
	f.persons = persons
	return f.quotes, f.err
}

type fakeSearchIndex struct {
	hits    []ports.PageHit
	indexed []string
}

func (f *fakeSearchIndex) SearchPages(_ context.Context, _ ports.PageQuery) ([]ports.PageHit, error) {
	return f.hits, nil
}

func (f *fakeSearchIndex) IndexPage(_ context.Context, page *domain.Page) error {
	f.indexed = append(f.indexed, page.ID)
	return nil
}

func (f *fakeSearchIndex) UpdatePageStory(_ context.Context, _, _ string) error {
	return nil
}

type fakeClusterer struct {
	pages []string
	err   error
}

func (f *fakeClusterer) ProcessPage(_ context.Context, page *domain.Page) error {
	f.pages = append(f.pages, page.ID)
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type pipelineEnv struct {
	pipeline *Pipeline
	explorer *fakeExplorer
	pages    *fakePageStore
	quotes   *fakeQuoteStore
	topics   *fakeTopicExtractor
	quotesEx *fakeQuoteExtractor
	search   *fakeSearchIndex
	cluster  *fakeClusterer
	images   *fakeImageStore
	videos   *fakeVideoStore
	objects  *fakeObjectStore
}

func newPipelineEnv(explored *ports.ExploredPage) *pipelineEnv {
	env := &pipelineEnv{
		explorer: &fakeExplorer{page: explored},
		pages:    &fakePageStore{pages: map[string]*domain.Page{}},
		quotes:   &fakeQuoteStore{quotes: map[string]*domain.Quote{}},
		topics:   &fakeTopicExtractor{},
		quotesEx: &fakeQuoteExtractor{},
		search:   &fakeSearchIndex{},
		cluster:  &fakeClusterer{},
		images:   &fakeImageStore{images: map[string]*domain.Image{}},
		videos:   &fakeVideoStore{videos: map[string]*domain.Video{}},
		objects:  &fakeObjectStore{},
	}
	logger := testLogger()
	media := NewMediaResolver(env.images, env.videos, &fakeImageProcessor{}, env.objects, logger)
	env.pipeline = New(Deps{
		Explorer: env.explorer,
		Pages:    env.pages,
		Quotes:   env.quotes,
		Topics:   env.topics,
		QuotesEx: env.quotesEx,
		Media:    media,
		Search:   env.search,
		Cluster:  env.cluster,
		Logger:   logger,
	})
	return env
}

const longSummary = "Guvernul a anunțat marți un program amplu de investiții în infrastructura rutieră, cu finanțare europeană planificată pe durata următorilor patru ani și lucrări în toate raioanele."

func testCandidate() *domain.Page {
	return &domain.Page{
		URL:       "http://news.example.md/politics/program-investitii",
		Title:     "Guvernul anunță un program de investiții",
		Summary:   longSummary,
		Country:   "md",
		Lang:      "ro",
		WebsiteID: 7,
	}
}

func TestProcessItemIngestsPage(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(&ports.ExploredPage{})
	page := testCandidate()

	if err := env.pipeline.ProcessItem(context.Background(), page); err != nil {
		t.Fatalf("ProcessItem: %v", err)
	}

	wantID := ident.PageID("http://news.example.md/politics/program-investitii")
	if page.ID != wantID {
		t.Fatalf("page id = %q, want %q", page.ID, wantID)
	}
	if len(env.pages.created) != 1 {
		t.Fatalf("expected 1 created page, got %d", len(env.pages.created))
	}
	if page.Host != "news.example.md" || page.Path != "/politics/program-investitii" {
		t.Fatalf("unexpected host/path %s%s", page.Host, page.Path)
	}
	if len(env.search.indexed) != 1 || env.search.indexed[0] != wantID {
		t.Fatalf("expected page indexed, got %v", env.search.indexed)
	}
	if len(env.cluster.pages) != 1 || env.cluster.pages[0] != wantID {
		t.Fatalf("expected page clustered, got %v", env.cluster.pages)
	}
}

func TestProcessItemCanonicalWins(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(&ports.ExploredPage{
		Canonical: "https://news.example.md/politics/program-investitii-canonic",
	})
	page := testCandidate()

	if err := env.pipeline.ProcessItem(context.Background(), page); err != nil {
		t.Fatalf("ProcessItem: %v", err)
	}
	if page.URL != "http://news.example.md/politics/program-investitii-canonic" {
		t.Fatalf("expected canonical url, got %q", page.URL)
	}
	if page.ID != ident.PageID(page.URL) {
		t.Fatalf("page id not derived from canonical url")
	}
}

func TestProcessItemRejectsShortPath(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(&ports.ExploredPage{})
	page := testCandidate()
	page.URL = "http://news.example.md/a"

	err := env.pipeline.ProcessItem(context.Background(), page)
	if !errors.Is(err, domain.ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}
	if len(env.pages.created) != 0 {
		t.Fatal("unexpected page creation")
	}
}

func TestProcessItemRejectsShortSummary(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(&ports.ExploredPage{})
	page := testCandidate()
	page.Summary = "Prea scurt."

	err := env.pipeline.ProcessItem(context.Background(), page)
	if !errors.Is(err, domain.ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}
}

func TestProcessItemSummaryMinimumCountsRunes(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(&ports.ExploredPage{})
	page := testCandidate()
	// 66 characters but over 100 bytes of UTF-8; the minimum counts
	// characters, not bytes.
	page.Summary = "Правительство объявило о масштабной программе инвестиций в дороги."

	err := env.pipeline.ProcessItem(context.Background(), page)
	if !errors.Is(err, domain.ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}
}

func TestProcessItemDuplicate(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(&ports.ExploredPage{})
	page := testCandidate()
	id := ident.PageID(page.URL)
	env.pages.pages[id] = &domain.Page{ID: id}

	err := env.pipeline.ProcessItem(context.Background(), page)
	if !errors.Is(err, domain.ErrDuplicatePage) {
		t.Fatalf("expected ErrDuplicatePage, got %v", err)
	}
}

func TestProcessItemTitleFromExploredPage(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(&ports.ExploredPage{
		Title: "Guvernul anunță un program de investiții",
	})
	page := testCandidate()
	page.Title = "Guvernul anun�� un program"

	if err := env.pipeline.ProcessItem(context.Background(), page); err != nil {
		t.Fatalf("ProcessItem: %v", err)
	}
	if strings.Contains(page.Title, "�") {
		t.Fatalf("marker survived in title %q", page.Title)
	}
	if page.Title != "Guvernul anunță un program de investiții" {
		t.Fatalf("unexpected title %q", page.Title)
	}
}

func TestProcessItemUndecodableTitle(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(&ports.ExploredPage{})
	page := testCandidate()
	page.Title = "Guvernul anun�� un program"

	err := env.pipeline.ProcessItem(context.Background(), page)
	if !errors.Is(err, domain.ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}
}

func TestProcessItemClusteringFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(&ports.ExploredPage{})
	env.cluster.err = errors.New("search down")
	page := testCandidate()

	if err := env.pipeline.ProcessItem(context.Background(), page); err != nil {
		t.Fatalf("ProcessItem: %v", err)
	}
	if len(env.pages.created) != 1 {
		t.Fatal("expected page persisted despite clustering failure")
	}
}

func TestProcessItemClusteringRefusalIsSwallowed(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(&ports.ExploredPage{})
	env.cluster.err = fmt.Errorf("%w: page p-1", domain.ErrNoStoryImage)
	page := testCandidate()

	if err := env.pipeline.ProcessItem(context.Background(), page); err != nil {
		t.Fatalf("ProcessItem: %v", err)
	}
	if len(env.pages.created) != 1 {
		t.Fatal("expected page persisted despite clustering refusal")
	}
}

func TestProcessItemQuotes(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(&ports.ExploredPage{})
	env.topics.topics = []domain.Topic{
		{
			ID:       "t-president",
			Key:      "maia-sandu",
			Name:     "Maia Sandu",
			Category: domain.CategoryPerson,
			Mentions: []domain.Mention{{Index: 45, Text: "Maia Sandu"}},
		},
		{
			ID:       "t-gov",
			Key:      "guvern",
			Name:     "Guvern",
			Category: domain.CategoryGroup,
			Mentions: []domain.Mention{{Index: 400, Text: "Guvernul"}},
		},
	}
	env.quotesEx.quotes = []domain.RawQuote{
		{
			Text:   "vom continua investițiile",
			Index:  40,
			Author: domain.QuoteAuthor{ID: "t-president", Name: "Maia Sandu"},
		},
		{
			Text:  "fara autor",
			Index: 10,
		},
	}
	page := testCandidate()

	if err := env.pipeline.ProcessItem(context.Background(), page); err != nil {
		t.Fatalf("ProcessItem: %v", err)
	}

	if len(env.quotesEx.persons) != 1 || env.quotesEx.persons[0].ID != "t-president" {
		t.Fatalf("unexpected person mentions %v", env.quotesEx.persons)
	}
	if len(env.quotes.created) != 1 {
		t.Fatalf("expected 1 quote created, got %d", len(env.quotes.created))
	}
	quote := env.quotes.created[0]
	if quote.ID != ident.QuoteID("vom continua investițiile", "t-president") {
		t.Fatalf("unexpected quote id %q", quote.ID)
	}
	// Only the topic mentioned inside the quote span is attached.
	if len(quote.Topics) != 1 || quote.Topics[0].ID != "t-president" {
		t.Fatalf("unexpected quote topics %v", quote.Topics)
	}
	if len(page.Quotes) != 1 || page.Quotes[0] != quote.ID {
		t.Fatalf("unexpected page quote refs %v", page.Quotes)
	}
}

func TestSetTopicsVotesCategory(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(&ports.ExploredPage{})
	env.topics.topics = []domain.Topic{
		{ID: "a", Category: domain.CategoryPlace},
		{ID: "b", Category: domain.CategoryGroup},
		{ID: "c", Category: domain.CategoryGroup},
		{ID: "d", Category: domain.CategoryPlace},
	}
	page := testCandidate()

	if err := env.pipeline.setTopics(context.Background(), page, "text"); err != nil {
		t.Fatalf("setTopics: %v", err)
	}
	// Two-way tie: the category that reached the top count first wins.
	if page.Category != domain.CategoryGroup {
		t.Fatalf("category = %d, want group", page.Category)
	}
}

func TestSetTopicsCapsCount(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(&ports.ExploredPage{})
	for i := 0; i < 14; i++ {
		env.topics.topics = append(env.topics.topics, domain.Topic{ID: string(rune('a' + i))})
	}
	page := testCandidate()

	if err := env.pipeline.setTopics(context.Background(), page, "text"); err != nil {
		t.Fatalf("setTopics: %v", err)
	}
	if len(page.Topics) != 10 {
		t.Fatalf("expected 10 topics, got %d", len(page.Topics))
	}
}

func TestNormalizeItemSummaryBackfill(t *testing.T) {
	t.Parallel()

	env := newPipelineEnv(nil)

	t.Run("description beats shorter summary", func(t *testing.T) {
		page := testCandidate()
		page.Summary = "Rezumat scurt din feed."
		explored := &ports.ExploredPage{
			Description: "Descrierea paginii este mai lungă decât rezumatul venit din feed și îl înlocuiește.",
		}
		env.pipeline.normalizeItem(page, explored)
		if !strings.HasPrefix(page.Summary, "Descrierea paginii") {
			t.Fatalf("summary = %q", page.Summary)
		}
	})

	t.Run("content beats short summary", func(t *testing.T) {
		page := testCandidate()
		page.Summary = "Rezumat scurt din feed."
		page.Content = longSummary
		env.pipeline.normalizeItem(page, &ports.ExploredPage{})
		if page.Summary != longSummary {
			t.Fatalf("summary = %q", page.Summary)
		}
	})

	t.Run("page body adopted only when it covers the title", func(t *testing.T) {
		related := "Guvernul anunță un program de investiții în infrastructura rutieră a țării. " + longSummary
		page := testCandidate()
		page.Summary = "Rezumat scurt din feed."
		env.pipeline.normalizeItem(page, &ports.ExploredPage{Content: related})
		if page.Summary != page.PageContent {
			t.Fatalf("expected page body adopted, got %q", page.Summary)
		}

		unrelated := "Vremea se menține instabilă în weekend, cu ploi de scurtă durată și descărcări electrice în jumătatea de nord, anunță meteorologii serviciului de stat."
		page = testCandidate()
		page.Summary = "Rezumat scurt din feed."
		env.pipeline.normalizeItem(page, &ports.ExploredPage{Content: unrelated})
		if page.Summary == page.PageContent {
			t.Fatal("unrelated page body must not replace the summary")
		}
	})
}
