// Package ident computes the content-addressable identities used for
// deduplication: page IDs from normalized URLs, image IDs from perceptual
// hashes and video IDs from source identifiers. Every function here is pure;
// nothing is random or time-based.
package ident

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const minHostLength = 3

var utmParam = regexp.MustCompile(`^utm_\w+`)

// LinkHash fingerprints a canonical link for feed-cursor bookkeeping.
func LinkHash(link string) string {
	sum := md5.Sum([]byte(link))
	return hex.EncodeToString(sum[:])
}

// PageID derives the page identity from its normalized URL. Two URLs that
// normalize identically always map to the same ID.
func PageID(normalizedURL string) string {
	return LinkHash(normalizedURL)
}

// ImageID derives a content identity from the perceptual hash and byte
// length. Visually identical images of different encodings collide here on
// purpose: this is a content identity, not a byte identity.
func ImageID(dhash string, length int) string {
	return fmt.Sprintf("%s%x", strings.ToLower(dhash), length)
}

// VideoID derives the video identity from its source identifier.
func VideoID(sourceID string) string {
	return LinkHash(sourceID)
}

// QuoteID derives a quote identity from its text and attributed author.
func QuoteID(text, authorID string) string {
	return LinkHash(authorID + "|" + text)
}

// ImageKey builds the object-storage key for one rendition of an image. The
// first four ID characters shard the namespace.
func ImageKey(prefix, imageID, rendition string) string {
	return fmt.Sprintf("%s/%s/%s/%s.jpg", prefix, imageID[:4], rendition, imageID)
}

// NormalizeURL canonicalizes a feed link: fixes a doubled leading path
// separator, validates the host, forces the http scheme, strips utm_* query
// parameters and the fragment. It deliberately keeps www, trailing slashes
// and directory-index names.
func NormalizeURL(link string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}

	path := u.Path
	if strings.HasPrefix(path, "//") {
		path = path[1:]
	}

	host := strings.ReplaceAll(u.Host, "/", "")
	if len(host) < minHostLength {
		return "", fmt.Errorf("invalid link host %q", u.Host)
	}

	query := u.Query()
	for name := range query {
		if utmParam.MatchString(strings.ToLower(name)) {
			delete(query, name)
		}
	}

	out := url.URL{
		Scheme:   "http",
		Host:     strings.ToLower(host),
		Path:     path,
		RawQuery: query.Encode(),
	}
	return out.String(), nil
}

// DecodeURL best-effort unescapes percent-encoded sequences; a URL that does
// not decode is returned as-is. A literal "+" stays a plus, it is not a
// query-style space.
func DecodeURL(link string) string {
	decoded, err := url.PathUnescape(link)
	if err != nil {
		return link
	}
	return decoded
}
