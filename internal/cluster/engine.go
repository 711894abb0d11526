// Package cluster groups freshly ingested pages into cross-source stories.
// A page either merges into the story of an already-clustered search match or
// seeds a new story once enough related pages have accumulated.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"newsindex/internal/domain"
	"newsindex/internal/ident"
	"newsindex/internal/ports"
)

const (
	searchTimeout = 5 * time.Second
	writeTimeout  = 30 * time.Second
	// settleDelay lets the search index absorb a story write before the
	// next page queries it.
	settleDelay = 3 * time.Second

	maxStoryTopics  = 6
	minTopicRating  = 2
	maxEmbeddedNews = 5
)

// Limits holds the market-dependent clustering thresholds. The small market
// gets a lower bar: fewer sources cover any one event there.
type Limits struct {
	MinScore           float64
	MinStoryNews       int
	ImportantNewsCount int
	SmallMarketCountry string
}

func (l Limits) minStoryNews(country string) int {
	if country == l.SmallMarketCountry {
		return l.MinStoryNews - 1
	}
	return l.MinStoryNews
}

func (l Limits) importantNewsCount(country string) int {
	if country == l.SmallMarketCountry {
		return l.ImportantNewsCount - 4
	}
	return l.ImportantNewsCount
}

// Engine implements story clustering over the search and storage
// collaborators.
type Engine struct {
	stories     ports.StoryStore
	pages       ports.PageStore
	quotes      ports.QuoteStore
	search      ports.SearchIndex
	objects     ports.ObjectStore
	limits      Limits
	logger      *slog.Logger
	now         func() time.Time
	settleDelay time.Duration

	mu    sync.Mutex
	locks map[string]*storyLock
}

// NewEngine constructs the engine.
func NewEngine(stories ports.StoryStore, pages ports.PageStore, quotes ports.QuoteStore,
	search ports.SearchIndex, objects ports.ObjectStore, limits Limits, logger *slog.Logger) *Engine {
	return &Engine{
		stories:     stories,
		pages:       pages,
		quotes:      quotes,
		search:      search,
		objects:     objects,
		limits:      limits,
		logger:      logger,
		now:         time.Now,
		settleDelay: settleDelay,
		locks:       map[string]*storyLock{},
	}
}

// ProcessPage clusters one newly persisted page. Pages without topics are
// never clustered. The first search match already holding a story wins the
// merge; otherwise the page and its matches seed a new story once the
// market's minimum size is reached. A refused merge or creation comes back
// as a domain sentinel (ErrStoryTooOld, ErrNoStoryTopics, ErrNoStoryImage).
func (e *Engine) ProcessPage(ctx context.Context, page *domain.Page) error {
	if len(page.Topics) == 0 {
		return nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	hits, err := e.search.SearchPages(searchCtx, ports.PageQuery{
		Query:    page.Title,
		Country:  page.Country,
		Lang:     page.Lang,
		MinScore: e.limits.MinScore,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("search related pages: %w", err)
	}

	related := hits[:0]
	for _, hit := range hits {
		if hit.ID == page.ID {
			continue
		}
		related = append(related, hit)
	}

	for _, hit := range related {
		if hit.StoryID != "" {
			return e.mergeIntoStory(ctx, hit.StoryID, page)
		}
	}

	members := append([]ports.PageHit{pageHit(page)}, related...)
	if len(members) < e.limits.minStoryNews(page.Country) {
		return nil
	}
	return e.createStory(ctx, page, members)
}

// mergeIntoStory applies the update path: counter increment, quote and video
// unions, one-way importance promotion, story ID propagation.
func (e *Engine) mergeIntoStory(ctx context.Context, storyID string, page *domain.Page) error {
	unlock := e.lockStory(storyID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	story, err := e.stories.Story(ctx, storyID)
	if err != nil {
		return fmt.Errorf("load story %s: %w", storyID, err)
	}
	if story == nil {
		e.logger.Warn("story vanished before merge", "story", storyID, "page", page.ID)
		return nil
	}
	if story.Frozen(e.now()) {
		return fmt.Errorf("%w: story %s, page %s", domain.ErrStoryTooOld, storyID, page.ID)
	}

	update := domain.StoryUpdate{
		ID:             story.ID,
		CountNewsDelta: 1,
		AddQuotes:      page.Quotes,
	}
	if page.VideoID != "" {
		update.AddVideos = []string{page.VideoID}
	}
	newCount := story.CountNews + 1
	if story.ImportantKey == "" && newCount >= e.limits.importantNewsCount(story.Country) {
		update.ImportantKey = domain.Culture{Country: story.Country, Lang: story.Lang}.Key()
	}

	if err := e.stories.UpdateStory(ctx, update); err != nil {
		return fmt.Errorf("update story %s: %w", story.ID, err)
	}
	if update.ImportantKey != "" {
		e.logger.Info("story promoted to important", "story", story.ID, "count", newCount)
	}

	if err := e.propagateStoryID(ctx, story.ID, page.ID, page.Quotes); err != nil {
		return err
	}
	page.StoryID = story.ID

	e.logger.Info("merged page into story", "story", story.ID, "page", page.ID, "count", newCount)
	return e.settle(ctx)
}

// createStory applies the create path over the accumulated candidate set.
// Members are anchored by summary length: the longest summary's page supplies
// the story summary and leads the ordering used for image and news selection.
func (e *Engine) createStory(ctx context.Context, page *domain.Page, members []ports.PageHit) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	sortBySummaryLength(members)

	topics := rateTopics(members)
	if len(topics) == 0 {
		return fmt.Errorf("%w: page %s", domain.ErrNoStoryTopics, page.ID)
	}

	imageID, imageHost := pickImage(members)
	if imageID == "" {
		return fmt.Errorf("%w: page %s", domain.ErrNoStoryImage, page.ID)
	}

	story := &domain.Story{
		Title:     selectTitle(members, members[0].Summary),
		Summary:   members[0].Summary,
		CountNews: len(members),
		Category:  voteCategory(members),
		Topics:    topics,
		Quotes:    gatherQuotes(members),
		Videos:    gatherVideos(members),
		News:      embeddedNews(members),
		ImageID:   imageID,
		ImageHost: imageHost,
		WebpageID: members[0].ID,
		Country:   page.Country,
		Lang:      page.Lang,
		CreatedAt: e.now(),
	}
	if story.CountNews >= e.limits.importantNewsCount(page.Country) {
		story.ImportantKey = domain.Culture{Country: page.Country, Lang: page.Lang}.Key()
	}

	id, err := e.stories.CreateStory(ctx, story)
	if err != nil {
		return fmt.Errorf("create story: %w", err)
	}
	story.ID = id

	if err := e.copyStoryImage(ctx, imageID); err != nil {
		e.logger.Error("story image copy failed", "story", id, "image", imageID, "err", err)
	}

	for _, member := range members {
		if err := e.propagateStoryID(ctx, id, member.ID, member.Quotes); err != nil {
			e.logger.Error("story id propagation failed", "story", id, "page", member.ID, "err", err)
		}
	}
	page.StoryID = id

	e.logger.Info("created story", "story", id, "count", story.CountNews, "title", story.Title)
	return e.settle(ctx)
}

// propagateStoryID writes the story binding onto a page, its quotes and the
// search index.
func (e *Engine) propagateStoryID(ctx context.Context, storyID, pageID string, quoteIDs []string) error {
	if err := e.pages.SetPageStory(ctx, pageID, storyID); err != nil {
		return fmt.Errorf("bind page %s to story %s: %w", pageID, storyID, err)
	}
	for _, quoteID := range quoteIDs {
		if err := e.quotes.SetQuoteStory(ctx, quoteID, storyID); err != nil {
			return fmt.Errorf("bind quote %s to story %s: %w", quoteID, storyID, err)
		}
	}
	if err := e.search.UpdatePageStory(ctx, pageID, storyID); err != nil {
		return fmt.Errorf("reindex page %s story: %w", pageID, err)
	}
	return nil
}

// copyStoryImage copies every rendition of the representative image from the
// news prefix into story-scoped storage. The copies are idempotent.
func (e *Engine) copyStoryImage(ctx context.Context, imageID string) error {
	for _, name := range ports.RenditionNames {
		source := ident.ImageKey("news", imageID, name)
		dest := ident.ImageKey("stories", imageID, name)
		if err := e.objects.Copy(ctx, source, dest); err != nil {
			return fmt.Errorf("copy %s: %w", source, err)
		}
	}
	return nil
}

func (e *Engine) settle(ctx context.Context) error {
	select {
	case <-time.After(e.settleDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// storyLock is a reference-counted mutex; the count lets lockStory drop the
// map entry once the last holder releases it.
type storyLock struct {
	mu   sync.Mutex
	refs int
}

// lockStory serializes merges into one story inside this process. Entries
// are evicted as soon as nobody holds or waits on them, so the map stays
// bounded by the number of in-flight merges.
func (e *Engine) lockStory(id string) func() {
	e.mu.Lock()
	lock, ok := e.locks[id]
	if !ok {
		lock = &storyLock{}
		e.locks[id] = lock
	}
	lock.refs++
	e.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		e.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(e.locks, id)
		}
		e.mu.Unlock()
	}
}

func pageHit(page *domain.Page) ports.PageHit {
	return ports.PageHit{
		ID:       page.ID,
		Title:    page.Title,
		Summary:  page.Summary,
		Host:     page.Host,
		Country:  page.Country,
		Lang:     page.Lang,
		Category: page.Category,
		Topics:   page.Topics,
		Quotes:   page.Quotes,
		ImageID:  page.ImageID,
		VideoID:  page.VideoID,
		StoryID:  page.StoryID,
	}
}
