package domain

// Image is a deduplicated news picture. The ID collapses visually identical
// re-encodings (perceptual hash + byte length), so several sites share one
// entity and only the website set grows.
type Image struct {
	ID       string
	DHash    string
	Width    int
	Height   int
	Length   int
	Websites []int
}

// Video is a deduplicated video attachment keyed by its source identifier.
type Video struct {
	ID         string
	SourceID   string
	SourceType string
	Width      int
	Height     int
	Websites   []int
}

// VideoCandidate is a finder result before identity assignment.
type VideoCandidate struct {
	SourceID   string
	SourceType string
	Width      int
	Height     int
}

// ImageCandidate is a page image before perceptual-hash identity assignment.
type ImageCandidate struct {
	Src    string
	Width  int
	Height int
	Data   []byte
	DHash  string
}
