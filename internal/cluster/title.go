package cluster

import (
	"unicode/utf8"

	"newsindex/internal/ports"
	"newsindex/internal/textutil"
)

// selectTitle picks the story headline: the shortest member title of sane
// length and casing that still covers the chosen summary. Falls back to the
// first member's own title when nothing qualifies.
func selectTitle(members []ports.PageHit, summary string) string {
	similarity := textutil.NewSimilarity(summary)

	best := ""
	bestLen := 0
	for _, member := range members {
		title := member.Title
		length := utf8.RuneCountInString(title)
		if length < minTitleLength || length > maxTitleLength {
			continue
		}
		if textutil.UpperRatio(title) >= maxUpperRatio {
			continue
		}
		if similarity.Search(title) < titleSimilarity {
			continue
		}
		if best == "" || length < bestLen {
			best = title
			bestLen = length
		}
	}
	if best == "" {
		return members[0].Title
	}
	return best
}
