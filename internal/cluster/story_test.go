package cluster

import (
	"fmt"
	"testing"

	"newsindex/internal/domain"
	"newsindex/internal/ports"
)

func TestRateTopicsKeepsSharedOnes(t *testing.T) {
	t.Parallel()

	members := []ports.PageHit{
		{Topics: []domain.Topic{{ID: "a"}, {ID: "b"}, {ID: "c"}}},
		{Topics: []domain.Topic{{ID: "b"}, {ID: "c"}}},
		{Topics: []domain.Topic{{ID: "c"}, {ID: "d"}}},
	}

	topics := rateTopics(members)
	if len(topics) != 2 {
		t.Fatalf("expected 2 shared topics, got %d", len(topics))
	}
	if topics[0].ID != "c" || topics[0].Rating != 3 {
		t.Fatalf("unexpected top topic %+v", topics[0])
	}
	if topics[1].ID != "b" || topics[1].Rating != 2 {
		t.Fatalf("unexpected second topic %+v", topics[1])
	}
}

func TestRateTopicsCap(t *testing.T) {
	t.Parallel()

	var shared []domain.Topic
	for i := 0; i < 9; i++ {
		shared = append(shared, domain.Topic{ID: fmt.Sprintf("t-%d", i)})
	}
	members := []ports.PageHit{{Topics: shared}, {Topics: shared}}

	topics := rateTopics(members)
	if len(topics) != maxStoryTopics {
		t.Fatalf("expected %d topics, got %d", maxStoryTopics, len(topics))
	}
	// Equal ratings keep first-seen order.
	if topics[0].ID != "t-0" {
		t.Fatalf("unexpected first topic %q", topics[0].ID)
	}
}

func TestSortBySummaryLength(t *testing.T) {
	t.Parallel()

	members := []ports.PageHit{
		{ID: "short", Summary: "aa"},
		{ID: "long", Summary: "aaaaaaaa"},
		{ID: "mid-1", Summary: "aaaa"},
		{ID: "mid-2", Summary: "bbbb"},
	}
	sortBySummaryLength(members)

	if members[0].ID != "long" {
		t.Fatalf("unexpected anchor %q", members[0].ID)
	}
	// Stable: equal lengths keep their relative order.
	if members[1].ID != "mid-1" || members[2].ID != "mid-2" {
		t.Fatalf("unexpected order %q, %q", members[1].ID, members[2].ID)
	}
}

func TestVoteCategoryTie(t *testing.T) {
	t.Parallel()

	members := []ports.PageHit{
		{Category: domain.CategoryPlace},
		{Category: domain.CategoryGroup},
		{Category: domain.CategoryGroup},
		{Category: domain.CategoryPlace},
		{Category: 0},
	}
	if got := voteCategory(members); got != domain.CategoryGroup {
		t.Fatalf("category = %d, want group", got)
	}
}

func TestEmbeddedNewsCap(t *testing.T) {
	t.Parallel()

	var members []ports.PageHit
	for i := 0; i < 8; i++ {
		members = append(members, ports.PageHit{ID: fmt.Sprintf("p-%d", i)})
	}

	news := embeddedNews(members)
	if len(news) != maxEmbeddedNews {
		t.Fatalf("expected %d ids, got %d", maxEmbeddedNews, len(news))
	}
	// The anchor itself is not embedded.
	if news[0] != "p-1" {
		t.Fatalf("unexpected first id %q", news[0])
	}
}

func TestGatherQuotesDedup(t *testing.T) {
	t.Parallel()

	members := []ports.PageHit{
		{Quotes: []string{"q-1", "q-2"}},
		{Quotes: []string{"q-2", "q-3"}},
	}
	quotes := gatherQuotes(members)
	if len(quotes) != 3 {
		t.Fatalf("expected 3 quotes, got %v", quotes)
	}
}
