// Package extractor talks to the external linguistic service for named
// entity and quote detection.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"newsindex/internal/domain"
	"newsindex/internal/ports"
)

// Client is the HTTP client for the extraction service.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.TopicExtractor = (*Client)(nil)
var _ ports.QuoteExtractor = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type entityResponse struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Abbr     string `json:"abbr"`
	Type     string `json:"type"`
	Country  string `json:"country"`
	Lang     string `json:"lang"`
	Concepts []struct {
		Index int `json:"index"`
	} `json:"concepts"`
}

// entityCategories maps the service's entity type names onto category codes.
var entityCategories = map[string]domain.TopicCategory{
	"person": domain.CategoryPerson,
	"place":  domain.CategoryPlace,
	"group":  domain.CategoryGroup,
	"brand":  domain.CategoryBrand,
	"arts":   domain.CategoryArts,
}

// ExtractTopics sends the text for named entity extraction and maps the
// entities onto topics with their mention offsets.
func (c *Client) ExtractTopics(ctx context.Context, text, lang, country string) ([]domain.Topic, error) {
	payload := map[string]any{
		"text":    text,
		"lang":    lang,
		"country": country,
	}

	var resp struct {
		Entities []entityResponse `json:"entities"`
	}
	if err := c.post(ctx, "/entities", payload, &resp); err != nil {
		return nil, err
	}

	topics := make([]domain.Topic, 0, len(resp.Entities))
	for _, entity := range resp.Entities {
		topic := domain.Topic{
			ID:       entity.ID,
			Key:      entity.Key,
			Name:     entity.Name,
			Abbr:     entity.Abbr,
			Category: entityCategories[entity.Type],
			Country:  entity.Country,
			Lang:     entity.Lang,
		}
		if topic.Key == "" {
			topic.Key = entity.Slug
		}
		if topic.Country == "" {
			topic.Country = country
		}
		if topic.Lang == "" {
			topic.Lang = lang
		}
		for _, concept := range entity.Concepts {
			topic.Mentions = append(topic.Mentions, domain.Mention{Index: concept.Index})
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

// ExtractQuotes sends the text with the known person mentions and returns
// attributed quotes with their text offsets.
func (c *Client) ExtractQuotes(ctx context.Context, text, lang string, persons []domain.PersonMention) ([]domain.RawQuote, error) {
	type personPayload struct {
		ID    string `json:"id"`
		Key   string `json:"key"`
		Name  string `json:"name"`
		Abbr  string `json:"abbr,omitempty"`
		Index int    `json:"index"`
	}

	payload := map[string]any{
		"text":    text,
		"lang":    lang,
		"persons": make([]personPayload, 0, len(persons)),
	}
	for _, person := range persons {
		payload["persons"] = append(payload["persons"].([]personPayload), personPayload{
			ID:    person.ID,
			Key:   person.Key,
			Name:  person.Name,
			Abbr:  person.Abbr,
			Index: person.Index,
		})
	}

	var resp struct {
		Quotes []struct {
			Text   string `json:"text"`
			Index  int    `json:"index"`
			Author struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"author"`
		} `json:"quotes"`
	}
	if err := c.post(ctx, "/quotes", payload, &resp); err != nil {
		return nil, err
	}

	quotes := make([]domain.RawQuote, 0, len(resp.Quotes))
	for _, quote := range resp.Quotes {
		quotes = append(quotes, domain.RawQuote{
			Text:  quote.Text,
			Index: quote.Index,
			Author: domain.QuoteAuthor{
				ID:   quote.Author.ID,
				Name: quote.Author.Name,
			},
		})
	}
	return quotes, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
