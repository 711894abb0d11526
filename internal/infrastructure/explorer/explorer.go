// Package explorer fetches the article page behind a feed link and dissects
// it: canonical URL, metadata, readable body text, image and video
// candidates.
package explorer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"

	"newsindex/internal/domain"
	"newsindex/internal/infrastructure/videofinder"
	"newsindex/internal/ports"
)

const (
	pageTimeout  = 3 * time.Second
	imageTimeout = 1500 * time.Millisecond

	maxImages      = 3
	minImageWidth  = 300
	minImageHeight = 180
	minImageRatio  = 0.5
	maxImageRatio  = 2.2

	maxPageBody  = 5 << 20
	maxImageBody = 3 << 20

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_2) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/42.0.2311.135 Safari/537.36"
)

// extraVideoSrc admits iframe players of providers without oEmbed markup.
var extraVideoSrc = regexp.MustCompile(`(?i)\.canal2\.md/|\.prime\.md/`)

// Explorer implements ports.PageExplorer over plain HTTP and goquery.
type Explorer struct {
	client  *http.Client
	finders *videofinder.Registry
	logger  *slog.Logger
}

var _ ports.PageExplorer = (*Explorer)(nil)

// New constructs an explorer using the given video finder registry.
func New(finders *videofinder.Registry, logger *slog.Logger) *Explorer {
	return &Explorer{
		client:  &http.Client{},
		finders: finders,
		logger:  logger,
	}
}

// Explore fetches and dissects one article page. The page fetch runs under
// its own sub-timeout inside the caller's budget.
func (e *Explorer) Explore(ctx context.Context, pageURL, lang string) (*ports.ExploredPage, error) {
	body, finalURL, err := e.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(finalURL)
	if err != nil {
		return nil, fmt.Errorf("parse final url %s: %w", finalURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse page %s: %w", finalURL, err)
	}

	page := &ports.ExploredPage{
		URL:         finalURL,
		Canonical:   resolveRef(base, doc.Find(`link[rel="canonical"]`).AttrOr("href", "")),
		Title:       pageTitle(doc),
		Description: pageDescription(doc),
		Content:     readableContent(body, base),
	}
	page.Images = e.collectImages(ctx, doc, base)
	page.Videos = e.collectVideos(doc, finalURL, string(body))
	return page, nil
}

func (e *Explorer) fetchPage(ctx context.Context, pageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", fmt.Errorf("fetch page %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		return nil, "", fmt.Errorf("read page %s: %w", pageURL, err)
	}
	return body, resp.Request.URL.String(), nil
}

func pageTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	}
	return title
}

func pageDescription(doc *goquery.Document) string {
	description := strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	if description == "" {
		description = strings.TrimSpace(doc.Find(`meta[property="og:description"]`).AttrOr("content", ""))
	}
	return description
}

// readableContent extracts the article body text. An unreadable page yields
// an empty content, not an error.
func readableContent(body []byte, base *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), base)
	if err != nil {
		return ""
	}
	var text strings.Builder
	if err := article.RenderText(&text); err != nil {
		return ""
	}
	return strings.TrimSpace(text.String())
}

// collectImages downloads candidate images in markup order and keeps the
// first acceptable ones: jpeg, large enough, sane aspect ratio.
func (e *Explorer) collectImages(ctx context.Context, doc *goquery.Document, base *url.URL) []domain.ImageCandidate {
	var candidates []domain.ImageCandidate
	seen := map[string]bool{}

	for _, src := range imageSources(doc, base) {
		if len(candidates) == maxImages {
			break
		}
		if seen[src] {
			continue
		}
		seen[src] = true

		candidate, err := e.fetchImage(ctx, src)
		if err != nil {
			e.logger.Debug("image candidate rejected", "src", src, "err", err)
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates
}

// imageSources lists candidate URLs in preference order: social metadata
// first, then document images.
func imageSources(doc *goquery.Document, base *url.URL) []string {
	var sources []string
	add := func(ref string) {
		if resolved := resolveRef(base, ref); resolved != "" {
			sources = append(sources, resolved)
		}
	}

	doc.Find(`meta[property="og:image"], meta[name="twitter:image"]`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("content", ""))
	})
	add(doc.Find(`link[rel="image_src"]`).AttrOr("href", ""))
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("src", ""))
	})
	return sources
}

func (e *Explorer) fetchImage(ctx context.Context, src string) (domain.ImageCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, imageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return domain.ImageCandidate{}, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.ImageCandidate{}, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.ImageCandidate{}, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBody))
	if err != nil {
		return domain.ImageCandidate{}, fmt.Errorf("read image: %w", err)
	}

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.ImageCandidate{}, fmt.Errorf("identify image: %w", err)
	}
	if format != "jpeg" {
		return domain.ImageCandidate{}, fmt.Errorf("unsupported image format %s", format)
	}
	if config.Width < minImageWidth || config.Height < minImageHeight {
		return domain.ImageCandidate{}, fmt.Errorf("image too small: %dx%d", config.Width, config.Height)
	}
	ratio := float64(config.Width) / float64(config.Height)
	if ratio < minImageRatio || ratio > maxImageRatio {
		return domain.ImageCandidate{}, fmt.Errorf("bad image ratio: %.2f", ratio)
	}

	return domain.ImageCandidate{
		Src:    src,
		Width:  config.Width,
		Height: config.Height,
		Data:   data,
	}, nil
}

// collectVideos asks the site-specific finders first, then falls back to
// admitted iframe players. At most one candidate survives.
func (e *Explorer) collectVideos(doc *goquery.Document, pageURL, body string) []domain.VideoCandidate {
	if found := e.finders.Find(pageURL, body); len(found) > 0 {
		return found[:1]
	}

	var videos []domain.VideoCandidate
	doc.Find("iframe[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := s.AttrOr("src", "")
		if !extraVideoSrc.MatchString(src) {
			return true
		}
		videos = append(videos, domain.VideoCandidate{
			SourceID:   src,
			SourceType: "IFRAME",
		})
		return false
	})
	return videos
}

func resolveRef(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	resolved, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	return resolved.String()
}
