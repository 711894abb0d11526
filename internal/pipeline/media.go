package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"newsindex/internal/domain"
	"newsindex/internal/ident"
	"newsindex/internal/ports"
)

const (
	// maxImageCandidates bounds per-item hashing and upload work.
	maxImageCandidates = 2
	uploadConcurrency  = 4
)

// MediaResolver deduplicates page media against the stores and uploads image
// renditions to public object storage.
type MediaResolver struct {
	images    ports.ImageStore
	videos    ports.VideoStore
	processor ports.ImageProcessor
	store     ports.ObjectStore
	logger    *slog.Logger
}

// NewMediaResolver constructs a resolver.
func NewMediaResolver(images ports.ImageStore, videos ports.VideoStore,
	processor ports.ImageProcessor, store ports.ObjectStore, logger *slog.Logger) *MediaResolver {
	return &MediaResolver{
		images:    images,
		videos:    videos,
		processor: processor,
		store:     store,
		logger:    logger,
	}
}

// ResolveImage hashes the candidates, takes the first hashable two, and binds
// the page to the first one accepted: a known image already carrying this
// website is skipped, a known image from elsewhere gains the website, a new
// image is rendered and uploaded. Failures are logged and never fail the item.
func (m *MediaResolver) ResolveImage(ctx context.Context, page *domain.Page, candidates []domain.ImageCandidate) {
	hashed := candidates[:0]
	for _, candidate := range candidates {
		dhash, err := m.processor.DHash(candidate.Data)
		if err != nil {
			if errors.Is(err, domain.ErrTooSmallImage) {
				m.logger.Debug("image candidate too small", "src", candidate.Src)
			} else {
				m.logger.Error("image hash failed", "src", candidate.Src, "err", err)
			}
			continue
		}
		candidate.DHash = dhash
		hashed = append(hashed, candidate)
		if len(hashed) == maxImageCandidates {
			break
		}
	}

	for _, candidate := range hashed {
		id := ident.ImageID(candidate.DHash, len(candidate.Data))

		existing, err := m.images.Image(ctx, id)
		if err != nil {
			m.logger.Error("image lookup failed", "image", id, "err", err)
			continue
		}
		if existing != nil && containsInt(existing.Websites, page.WebsiteID) {
			// The same website republishing an image is a strong duplicate
			// signal; try the next candidate instead.
			continue
		}

		if existing == nil {
			if err := m.uploadRenditions(ctx, id, candidate); err != nil {
				m.logger.Error("image upload failed", "image", id, "err", err)
				continue
			}
			image := &domain.Image{
				ID:       id,
				DHash:    candidate.DHash,
				Width:    candidate.Width,
				Height:   candidate.Height,
				Length:   len(candidate.Data),
				Websites: []int{page.WebsiteID},
			}
			if err := m.images.CreateImage(ctx, image); err != nil {
				m.logger.Error("image create failed", "image", id, "err", err)
				continue
			}
		} else {
			if err := m.images.AddWebsiteToImage(ctx, id, page.WebsiteID); err != nil {
				m.logger.Error("image website update failed", "image", id, "err", err)
				continue
			}
		}

		page.ImageID = id
		return
	}
}

// uploadRenditions stores every rendition of the candidate under the image's
// news prefix.
func (m *MediaResolver) uploadRenditions(ctx context.Context, id string, candidate domain.ImageCandidate) error {
	renditions, err := m.processor.Renditions(candidate.Data, candidate.Width)
	if err != nil {
		return fmt.Errorf("render image %s: %w", id, err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(uploadConcurrency)
	for _, rendition := range renditions {
		group.Go(func() error {
			key := ident.ImageKey("news", id, rendition.Name)
			if err := m.store.Put(groupCtx, key, rendition.Body); err != nil {
				return fmt.Errorf("put %s: %w", key, err)
			}
			return nil
		})
	}
	return group.Wait()
}

// ResolveVideo binds the page to the first video candidate. A page never
// carries a video without an image to poster it with.
func (m *MediaResolver) ResolveVideo(ctx context.Context, page *domain.Page, candidates []domain.VideoCandidate) {
	if len(candidates) == 0 {
		return
	}
	if page.ImageID == "" {
		m.logger.Warn("video without image", "url", page.URL)
		return
	}

	candidate := candidates[0]
	id := ident.VideoID(candidate.SourceID)

	existing, err := m.videos.Video(ctx, id)
	if err != nil {
		m.logger.Error("video lookup failed", "video", id, "err", err)
		return
	}
	if existing != nil {
		if containsInt(existing.Websites, page.WebsiteID) {
			return
		}
		if err := m.videos.AddWebsiteToVideo(ctx, id, page.WebsiteID); err != nil {
			m.logger.Error("video website update failed", "video", id, "err", err)
			return
		}
		page.VideoID = id
		return
	}

	video := &domain.Video{
		ID:         id,
		SourceID:   candidate.SourceID,
		SourceType: candidate.SourceType,
		Width:      candidate.Width,
		Height:     candidate.Height,
		Websites:   []int{page.WebsiteID},
	}
	if err := m.videos.CreateVideo(ctx, video); err != nil {
		m.logger.Error("video create failed", "video", id, "err", err)
		return
	}
	page.VideoID = id
}

func containsInt(list []int, value int) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
