// Package pipeline validates, enriches and persists one page candidate at a
// time: canonical identity, text cleanup, summary backfill, linguistic
// annotations, media resolution and the clustering hand-off.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"newsindex/internal/domain"
	"newsindex/internal/ident"
	"newsindex/internal/ports"
	"newsindex/internal/textutil"
)

const (
	exploreTimeout  = 10 * time.Second
	extractTimeout  = 30 * time.Second
	clusterTimeout  = 90 * time.Second
	minSummaryLen   = 100
	shortSummaryLen = 300
	maxTopics       = 10
	minPathLen      = 4
	decodeMarker    = "�"
	// summarySimilarity guards against adopting an unrelated page block
	// (comment threads, "you may also like") as the summary.
	summarySimilarity = 0.8
)

// Clusterer receives freshly persisted pages for story assignment.
type Clusterer interface {
	ProcessPage(ctx context.Context, page *domain.Page) error
}

// Deps wires all collaborators into the pipeline.
type Deps struct {
	Explorer ports.PageExplorer
	Pages    ports.PageStore
	Quotes   ports.QuoteStore
	Topics   ports.TopicExtractor
	QuotesEx ports.QuoteExtractor
	Media    *MediaResolver
	Search   ports.SearchIndex
	Cluster  Clusterer
	Logger   *slog.Logger
}

// Pipeline implements the per-item ingestion workflow.
type Pipeline struct {
	explorer ports.PageExplorer
	pages    ports.PageStore
	quotes   ports.QuoteStore
	topics   ports.TopicExtractor
	quotesEx ports.QuoteExtractor
	media    *MediaResolver
	search   ports.SearchIndex
	cluster  Clusterer
	logger   *slog.Logger
}

// New constructs the pipeline.
func New(deps Deps) *Pipeline {
	return &Pipeline{
		explorer: deps.Explorer,
		pages:    deps.Pages,
		quotes:   deps.Quotes,
		topics:   deps.Topics,
		quotesEx: deps.QuotesEx,
		media:    deps.Media,
		search:   deps.Search,
		cluster:  deps.Cluster,
		logger:   deps.Logger,
	}
}

// ProcessItem runs the full pipeline for one page candidate. Validation
// failures return domain.ErrInvalidItem; an already-known page returns
// domain.ErrDuplicatePage. A clustering failure never fails the item.
func (p *Pipeline) ProcessItem(ctx context.Context, page *domain.Page) error {
	exploreCtx, cancel := context.WithTimeout(ctx, exploreTimeout)
	explored, err := p.explorer.Explore(exploreCtx, page.URL, page.Lang)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Exploration is best-effort under its budget; a slow page is
			// skipped without failing the feed cycle.
			p.logger.Error("explore timeout", "url", page.URL)
			return nil
		}
		return fmt.Errorf("explore %s: %w", page.URL, err)
	}
	if explored == nil {
		return nil
	}

	if err := p.resolveURL(page, explored); err != nil {
		return err
	}
	if err := p.resolveTitle(page, explored); err != nil {
		return err
	}
	p.normalizeItem(page, explored)

	page.ID = ident.PageID(page.URL)

	if utf8.RuneCountInString(page.Summary) < minSummaryLen {
		return fmt.Errorf("%w: summary too short for %s", domain.ErrInvalidItem, page.URL)
	}

	existing, err := p.pages.Page(ctx, page.ID)
	if err != nil {
		return fmt.Errorf("lookup page %s: %w", page.ID, err)
	}
	if existing != nil {
		return domain.ErrDuplicatePage
	}

	p.annotate(ctx, page)

	p.media.ResolveImage(ctx, page, explored.Images)
	p.media.ResolveVideo(ctx, page, explored.Videos)

	if err := p.pages.CreatePage(ctx, page); err != nil {
		return fmt.Errorf("create page %s: %w", page.ID, err)
	}
	if err := p.search.IndexPage(ctx, page); err != nil {
		p.logger.Error("index page failed", "page", page.ID, "err", err)
	}
	p.logger.Info("added news", "url", page.URL, "page", page.ID)

	clusterCtx, cancelCluster := context.WithTimeout(ctx, clusterTimeout)
	defer cancelCluster()
	if err := p.cluster.ProcessPage(clusterCtx, page); err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			p.logger.Error("clustering timeout", "url", page.URL)
		case errors.Is(err, domain.ErrStoryTooOld),
			errors.Is(err, domain.ErrNoStoryTopics),
			errors.Is(err, domain.ErrNoStoryImage):
			p.logger.Debug("page left unclustered", "url", page.URL, "reason", err)
		default:
			p.logger.Error("clustering failed", "url", page.URL, "err", err)
		}
	}
	return nil
}

// resolveURL recomputes the canonical URL from the explored page, falling
// back to the originally supplied URL, and rejects degenerate paths.
func (p *Pipeline) resolveURL(page *domain.Page, explored *ports.ExploredPage) error {
	original := page.URL

	href := explored.Canonical
	if href == "" {
		href = explored.URL
	}
	if href == "" {
		href = original
	}

	resolved, err := ident.NormalizeURL(href)
	if err != nil {
		resolved, err = ident.NormalizeURL(original)
		if err != nil {
			return fmt.Errorf("%w: unusable url %s", domain.ErrInvalidItem, original)
		}
	}
	page.URL = ident.DecodeURL(resolved)

	u, err := url.Parse(resolved)
	if err != nil || len(u.Path) < minPathLen {
		return fmt.Errorf("%w: url path too short %s", domain.ErrInvalidItem, resolved)
	}
	page.Host = u.Host
	page.Path = u.Path
	return nil
}

// resolveTitle accepts the fetched page's title as a replacement for a feed
// title carrying a decode-failure marker, but only if the replacement is
// itself clean.
func (p *Pipeline) resolveTitle(page *domain.Page, explored *ports.ExploredPage) error {
	if !strings.Contains(page.Title, decodeMarker) {
		return nil
	}
	if explored.Title != "" && !strings.Contains(explored.Title, decodeMarker) {
		page.Title = explored.Title
		return nil
	}
	return fmt.Errorf("%w: undecodable title %s", domain.ErrInvalidItem, page.URL)
}

// normalizeItem applies the universal cleanup to every text field and runs
// the summary backfill policy.
func (p *Pipeline) normalizeItem(page *domain.Page, explored *ports.ExploredPage) {
	for i := range explored.Images {
		explored.Images[i].Src = ident.DecodeURL(explored.Images[i].Src)
	}
	for i := range explored.Videos {
		explored.Videos[i].SourceID = ident.DecodeURL(explored.Videos[i].SourceID)
	}

	page.Title = textutil.CleanTitle(page.Title, page.Lang)
	page.Summary = textutil.CleanContent(page.Summary, page.Lang)
	page.Content = textutil.CleanContent(page.Content, page.Lang)
	page.PageContent = textutil.CleanPageContent(textutil.CleanContent(explored.Content, page.Lang))

	// Backfill order: page description beats a shorter summary; raw entry
	// content beats a short summary; the fetched body is adopted last and
	// only when it clearly covers the title.
	if explored.Description != "" &&
		(page.Summary == "" || len(explored.Description) > len(page.Summary)) {
		page.Summary = explored.Description
	}
	if page.Content != "" &&
		(page.Summary == "" || utf8.RuneCountInString(page.Summary) < shortSummaryLen && len(page.Summary) < len(page.Content)) {
		page.Summary = page.Content
	}
	if page.PageContent != "" &&
		(page.Summary == "" || utf8.RuneCountInString(page.Summary) < shortSummaryLen && len(page.Summary) < len(page.PageContent)) {
		if textutil.NewSimilarity(page.PageContent).Search(page.Title) > summarySimilarity {
			page.Summary = page.PageContent
		}
	}

	page.Summary = textutil.CleanContent(page.Summary, page.Lang)
}

// annotate asks the linguistic collaborator for topics and quotes under a
// shared budget; a timeout is logged and the item continues bare.
func (p *Pipeline) annotate(ctx context.Context, page *domain.Page) {
	extractCtx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	text := page.Title + "\n" + firstNonEmpty(page.Content, page.Summary)

	if err := p.setTopics(extractCtx, page, text); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			p.logger.Error("topic extraction timeout", "page", page.ID)
			return
		}
		p.logger.Error("topic extraction failed", "page", page.ID, "err", err)
		return
	}
	if err := p.setQuotes(extractCtx, page, text); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			p.logger.Error("quote extraction timeout", "page", page.ID)
			return
		}
		p.logger.Error("quote extraction failed", "page", page.ID, "err", err)
	}
}

// setTopics retains the top extracted topics and votes the page category as
// the most frequent category among topics that carry one; the first seen
// wins a tie.
func (p *Pipeline) setTopics(ctx context.Context, page *domain.Page, text string) error {
	topics, err := p.topics.ExtractTopics(ctx, text, page.Lang, page.Country)
	if err != nil {
		return err
	}
	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	page.Topics = topics

	counts := map[domain.TopicCategory]int{}
	max := -1
	for _, topic := range topics {
		if topic.Category == 0 {
			continue
		}
		counts[topic.Category]++
		if counts[topic.Category] > max {
			max = counts[topic.Category]
			page.Category = topic.Category
		}
	}
	return nil
}

// setQuotes detects attributed quotes, binds each to the topics whose
// mentions fall inside its span, and links or creates the quote entity.
func (p *Pipeline) setQuotes(ctx context.Context, page *domain.Page, text string) error {
	persons := personMentions(page.Topics)
	if len(persons) == 0 {
		return nil
	}

	raw, err := p.quotesEx.ExtractQuotes(ctx, text, page.Lang, persons)
	if err != nil {
		return err
	}

	for _, rq := range raw {
		if rq.Author.ID == "" {
			p.logger.Error("invalid quote: no attributed author",
				"page", page.ID, "text", rq.Text)
			continue
		}

		quote := &domain.Quote{
			ID:       ident.QuoteID(rq.Text, rq.Author.ID),
			Text:     rq.Text,
			Author:   rq.Author,
			PageID:   page.ID,
			Category: page.Category,
			Country:  page.Country,
			Lang:     page.Lang,
			Topics:   topicsInSpan(page.Topics, rq.Index, len(rq.Text)),
		}

		existing, lookupErr := p.quotes.Quote(ctx, quote.ID)
		if lookupErr != nil {
			p.logger.Error("quote lookup failed", "quote", quote.ID, "err", lookupErr)
			continue
		}
		if existing == nil {
			if createErr := p.quotes.CreateQuote(ctx, quote); createErr != nil {
				p.logger.Error("quote create failed", "quote", quote.ID, "err", createErr)
				continue
			}
		}
		page.Quotes = appendUnique(page.Quotes, quote.ID)
	}
	return nil
}

// personMentions keys each person topic by its text-mention offsets.
func personMentions(topics []domain.Topic) []domain.PersonMention {
	var persons []domain.PersonMention
	for _, topic := range topics {
		if topic.Category != domain.CategoryPerson {
			continue
		}
		for _, mention := range topic.Mentions {
			persons = append(persons, domain.PersonMention{
				ID:    topic.ID,
				Key:   topic.Key,
				Name:  topic.Name,
				Abbr:  topic.Abbr,
				Index: mention.Index,
			})
		}
	}
	return persons
}

// topicsInSpan selects topics with at least one mention inside the quote's
// text span.
func topicsInSpan(topics []domain.Topic, index, length int) []domain.Topic {
	var matched []domain.Topic
	for _, topic := range topics {
		for _, mention := range topic.Mentions {
			if mention.Index >= index && mention.Index < index+length {
				matched = append(matched, topic)
				break
			}
		}
	}
	return matched
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
