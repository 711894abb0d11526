package cluster

import (
	"sort"

	"newsindex/internal/domain"
	"newsindex/internal/ports"
)

const (
	minTitleLength = 40
	maxTitleLength = 170
	maxUpperRatio  = 20.0
	// titleSimilarity is the overlap a member title must have with the
	// story summary to be eligible.
	titleSimilarity = 0.9
)

// sortBySummaryLength orders members longest-summary first. The sort is
// stable so equal summaries keep their search ranking.
func sortBySummaryLength(members []ports.PageHit) {
	sort.SliceStable(members, func(i, j int) bool {
		return len(members[i].Summary) > len(members[j].Summary)
	})
}

// rateTopics groups member topics by ID, rates each by its occurrence count
// across members and keeps the top shared ones. A topic seen once is noise.
func rateTopics(members []ports.PageHit) []domain.Topic {
	var ordered []domain.Topic
	index := map[string]int{}
	for _, member := range members {
		for _, topic := range member.Topics {
			if at, ok := index[topic.ID]; ok {
				ordered[at].Rating++
				continue
			}
			topic.Rating = 1
			index[topic.ID] = len(ordered)
			ordered = append(ordered, topic)
		}
	}

	shared := ordered[:0]
	for _, topic := range ordered {
		if topic.Rating >= minTopicRating {
			shared = append(shared, topic)
		}
	}
	sort.SliceStable(shared, func(i, j int) bool {
		return shared[i].Rating > shared[j].Rating
	})
	if len(shared) > maxStoryTopics {
		shared = shared[:maxStoryTopics]
	}
	return shared
}

// pickImage returns the first member image in set order with its host.
func pickImage(members []ports.PageHit) (string, string) {
	for _, member := range members {
		if member.ImageID != "" {
			return member.ImageID, member.Host
		}
	}
	return "", ""
}

// voteCategory picks the most frequent member category; the first seen wins
// a tie.
func voteCategory(members []ports.PageHit) domain.TopicCategory {
	counts := map[domain.TopicCategory]int{}
	var winner domain.TopicCategory
	max := -1
	for _, member := range members {
		if member.Category == 0 {
			continue
		}
		counts[member.Category]++
		if counts[member.Category] > max {
			max = counts[member.Category]
			winner = member.Category
		}
	}
	return winner
}

func gatherQuotes(members []ports.PageHit) []string {
	var quotes []string
	seen := map[string]bool{}
	for _, member := range members {
		for _, id := range member.Quotes {
			if seen[id] {
				continue
			}
			seen[id] = true
			quotes = append(quotes, id)
		}
	}
	return quotes
}

func gatherVideos(members []ports.PageHit) []string {
	var videos []string
	seen := map[string]bool{}
	for _, member := range members {
		if member.VideoID == "" || seen[member.VideoID] {
			continue
		}
		seen[member.VideoID] = true
		videos = append(videos, member.VideoID)
	}
	return videos
}

// embeddedNews returns the member page IDs carried on the story record after
// the anchor, capped so oversized clusters stay bounded.
func embeddedNews(members []ports.PageHit) []string {
	var news []string
	for _, member := range members[1:] {
		news = append(news, member.ID)
		if len(news) == maxEmbeddedNews {
			break
		}
	}
	return news
}
