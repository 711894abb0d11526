// Package videofinder extracts embedded video sources from article pages of
// sites that publish their players without standard markup. Each finder owns
// one site family.
package videofinder

import (
	"regexp"
	"strconv"

	"newsindex/internal/domain"
)

// Finder extracts video candidates from one site's page body.
type Finder interface {
	Name() string
	Match(pageURL string) bool
	Find(pageURL, body string) []domain.VideoCandidate
}

// Registry keeps the ordered finder list; the first matching finder handles
// the page.
type Registry struct {
	finders []Finder
}

// NewRegistry builds a registry with the built-in finders.
func NewRegistry() *Registry {
	return &Registry{finders: []Finder{
		protvFinder{},
		fiveTVFinder{},
		stirileFinder{},
		jurnalTVFinder{},
		zvezdaFinder{},
	}}
}

// Register appends a finder.
func (r *Registry) Register(finder Finder) {
	r.finders = append(r.finders, finder)
}

// Find returns the candidates of the first finder claiming the page, or nil
// when no finder matches.
func (r *Registry) Find(pageURL, body string) []domain.VideoCandidate {
	for _, finder := range r.finders {
		if finder.Match(pageURL) {
			return finder.Find(pageURL, body)
		}
	}
	return nil
}

var (
	protvHost   = regexp.MustCompile(`^http://(\w+\.)?(protv|inprofunzime)\.md`)
	protvFile   = regexp.MustCompile(`(?i)var mobile_file\s*=\s*'(http://m\.protv\.md/mobile/\d+.mp4)'`)
	fiveTVHost  = regexp.MustCompile(`^http://(\w+\.)?5-tv\.ru`)
	fiveTVFile  = regexp.MustCompile(`(?i)"url":\s*"(http://img\.5-tv\.ru/shared/files/\d+/1_\d+.mp4)"`)
	stirileHost = regexp.MustCompile(`^http://(\w+\.)?stirileprotv\.ro`)
	stirileFile = regexp.MustCompile(`(?i)<video\s+width='(\d+)'\s+height='(\d+)'\s+controls\s+><source\s+src='(http://vid1.stirileprotv.ro/\d+/\d+/\d+/\d+-2\.mp4)'`)
	jurnalHost  = regexp.MustCompile(`^http://(\w+\.)?jurnaltv\.md`)
	jurnalFile  = regexp.MustCompile(`(?i)videoUrl\s*:\s*"http://video\.jurnaltv\.md/gallery_video/(\d+)\.mp4"`)
	zvezdaHost  = regexp.MustCompile(`^http://(\w+\.)?tvzvezda\.ru`)
	zvezdaFile  = regexp.MustCompile(`(?i)http://mp4zvezda\.cdnvideo\.ru/mp4/(\w+)\.mp4`)
)

type protvFinder struct{}

func (protvFinder) Name() string              { return "protv.md" }
func (protvFinder) Match(pageURL string) bool { return protvHost.MatchString(pageURL) }

func (protvFinder) Find(_, body string) []domain.VideoCandidate {
	result := protvFile.FindStringSubmatch(body)
	if result == nil {
		return nil
	}
	return []domain.VideoCandidate{{SourceID: result[1], SourceType: "URL"}}
}

type fiveTVFinder struct{}

func (fiveTVFinder) Name() string              { return "5-tv.ru" }
func (fiveTVFinder) Match(pageURL string) bool { return fiveTVHost.MatchString(pageURL) }

func (fiveTVFinder) Find(_, body string) []domain.VideoCandidate {
	result := fiveTVFile.FindStringSubmatch(body)
	if result == nil {
		return nil
	}
	return []domain.VideoCandidate{{SourceID: result[1], SourceType: "URL"}}
}

type stirileFinder struct{}

func (stirileFinder) Name() string              { return "stirileprotv.ro" }
func (stirileFinder) Match(pageURL string) bool { return stirileHost.MatchString(pageURL) }

func (stirileFinder) Find(_, body string) []domain.VideoCandidate {
	result := stirileFile.FindStringSubmatch(body)
	if result == nil {
		return nil
	}
	return []domain.VideoCandidate{{
		Width:      atoi(result[1]),
		Height:     atoi(result[2]),
		SourceID:   result[3],
		SourceType: "URL",
	}}
}

type jurnalTVFinder struct{}

func (jurnalTVFinder) Name() string              { return "jurnaltv.md" }
func (jurnalTVFinder) Match(pageURL string) bool { return jurnalHost.MatchString(pageURL) }

func (jurnalTVFinder) Find(_, body string) []domain.VideoCandidate {
	result := jurnalFile.FindStringSubmatch(body)
	if result == nil {
		return nil
	}
	return []domain.VideoCandidate{{
		Width:      640,
		Height:     358,
		SourceID:   "http://video.jurnaltv.md/gallery_video/" + result[1] + ".mp4",
		SourceType: "URL",
	}}
}

type zvezdaFinder struct{}

func (zvezdaFinder) Name() string              { return "tvzvezda.ru" }
func (zvezdaFinder) Match(pageURL string) bool { return zvezdaHost.MatchString(pageURL) }

func (zvezdaFinder) Find(_, body string) []domain.VideoCandidate {
	result := zvezdaFile.FindStringSubmatch(body)
	if result == nil {
		return nil
	}
	return []domain.VideoCandidate{{
		Width:      640,
		Height:     358,
		SourceID:   "http://mp4zvezda.cdnvideo.ru/mp4/" + result[1] + ".mp4",
		SourceType: "URL",
	}}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
