// Package search adapts the meilisearch engine as the page search
// collaborator used for clustering.
package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meilisearch/meilisearch-go"

	"newsindex/internal/domain"
	"newsindex/internal/ports"
)

const searchLimit = 20

// pageDocument is the indexed shape of a page.
type pageDocument struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Summary  string          `json:"summary"`
	Host     string          `json:"host"`
	Country  string          `json:"country"`
	Lang     string          `json:"lang"`
	Category int             `json:"category,omitempty"`
	Topics   []topicDocument `json:"topics,omitempty"`
	Quotes   []string        `json:"quotes,omitempty"`
	ImageID  string          `json:"imageId,omitempty"`
	VideoID  string          `json:"videoId,omitempty"`
	StoryID  string          `json:"storyId,omitempty"`
	Score    float64         `json:"_rankingScore,omitempty"`
}

type topicDocument struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Abbr     string `json:"abbr,omitempty"`
	Category int    `json:"category,omitempty"`
	Country  string `json:"country"`
	Lang     string `json:"lang"`
}

// Index adapts a meilisearch index to ports.SearchIndex.
type Index struct {
	index meilisearch.IndexManager
}

var _ ports.SearchIndex = (*Index)(nil)

// NewIndex wraps one meilisearch index.
func NewIndex(client meilisearch.ServiceManager, name string) *Index {
	return &Index{index: client.Index(name)}
}

// EnsureFilters declares the attributes the clustering queries filter on.
func (i *Index) EnsureFilters() error {
	if _, err := i.index.UpdateFilterableAttributes(&[]interface{}{"country", "lang"}); err != nil {
		return fmt.Errorf("update filterable attributes: %w", err)
	}
	return nil
}

// SearchPages runs a title query scoped to one market and keeps hits at or
// above the relevance floor.
func (i *Index) SearchPages(ctx context.Context, query ports.PageQuery) ([]ports.PageHit, error) {
	request := &meilisearch.SearchRequest{
		Query:            query.Query,
		Limit:            searchLimit,
		Filter:           fmt.Sprintf("country = %q AND lang = %q", query.Country, query.Lang),
		ShowRankingScore: true,
	}

	result, err := i.index.SearchWithContext(ctx, query.Query, request)
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}

	hits := make([]ports.PageHit, 0, len(result.Hits))
	for _, raw := range result.Hits {
		doc, err := decodeHit(raw)
		if err != nil {
			return nil, err
		}
		if doc.Score < query.MinScore {
			continue
		}
		hits = append(hits, doc.toHit())
	}
	return hits, nil
}

// IndexPage writes the page's search entry.
func (i *Index) IndexPage(ctx context.Context, page *domain.Page) error {
	doc := documentFromPage(page)
	if _, err := i.index.AddDocumentsWithContext(ctx, []pageDocument{doc}, nil); err != nil {
		return fmt.Errorf("index page %s: %w", page.ID, err)
	}
	return nil
}

// UpdatePageStory patches only the story binding of an indexed page.
func (i *Index) UpdatePageStory(ctx context.Context, pageID, storyID string) error {
	patch := []map[string]any{{"id": pageID, "storyId": storyID}}
	if _, err := i.index.UpdateDocumentsWithContext(ctx, patch, nil); err != nil {
		return fmt.Errorf("update page %s story: %w", pageID, err)
	}
	return nil
}

func decodeHit(raw any) (pageDocument, error) {
	var doc pageDocument
	encoded, err := json.Marshal(raw)
	if err != nil {
		return doc, fmt.Errorf("encode hit: %w", err)
	}
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return doc, fmt.Errorf("decode hit: %w", err)
	}
	return doc, nil
}

func documentFromPage(page *domain.Page) pageDocument {
	doc := pageDocument{
		ID:       page.ID,
		Title:    page.Title,
		Summary:  page.Summary,
		Host:     page.Host,
		Country:  page.Country,
		Lang:     page.Lang,
		Category: int(page.Category),
		Quotes:   page.Quotes,
		ImageID:  page.ImageID,
		VideoID:  page.VideoID,
		StoryID:  page.StoryID,
	}
	for _, topic := range page.Topics {
		doc.Topics = append(doc.Topics, topicDocument{
			ID:       topic.ID,
			Key:      topic.Key,
			Name:     topic.Name,
			Abbr:     topic.Abbr,
			Category: int(topic.Category),
			Country:  topic.Country,
			Lang:     topic.Lang,
		})
	}
	return doc
}

func (d pageDocument) toHit() ports.PageHit {
	hit := ports.PageHit{
		ID:       d.ID,
		Title:    d.Title,
		Summary:  d.Summary,
		Host:     d.Host,
		Country:  d.Country,
		Lang:     d.Lang,
		Category: domain.TopicCategory(d.Category),
		Quotes:   d.Quotes,
		ImageID:  d.ImageID,
		VideoID:  d.VideoID,
		StoryID:  d.StoryID,
		Score:    d.Score,
	}
	for _, topic := range d.Topics {
		hit.Topics = append(hit.Topics, domain.Topic{
			ID:       topic.ID,
			Key:      topic.Key,
			Name:     topic.Name,
			Abbr:     topic.Abbr,
			Category: domain.TopicCategory(topic.Category),
			Country:  topic.Country,
			Lang:     topic.Lang,
		})
	}
	return hit
}
