// Package textutil implements the universal title/content cleanup shared by
// the feed reader, the content pipeline and the clustering engine: HTML
// decoding and stripping, whitespace normalization, language-specific
// character correction and the INVALID_TITLE / INVALID_CONTENT rule tables.
package textutil

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()

	multiSpace   = regexp.MustCompile(` {2,}`)
	multiWhite   = regexp.MustCompile(`\s{2,}`)
	spacePunct   = regexp.MustCompile(` ([,;:])`)
	multiNewline = regexp.MustCompile(`\n{2,}`)
	spaceNewline = regexp.MustCompile(`\s+\n`)
	newlineSpace = regexp.MustCompile(`\n[ \t]+`)
	sentenceEnd  = regexp.MustCompile(`[.!?:]$`)
)

// romanianCorrect maps cedilla variants to the comma-below forms used in
// modern Romanian orthography.
var romanianCorrect = strings.NewReplacer(
	"ş", "ș", "Ş", "Ș",
	"ţ", "ț", "Ţ", "Ț",
)

// Correct fixes language-specific character variants.
func Correct(text, lang string) string {
	if text == "" {
		return text
	}
	if lang == "ro" {
		return romanianCorrect.Replace(text)
	}
	return text
}

// Normalize collapses whitespace while keeping single newlines.
func Normalize(text string) string {
	if text == "" {
		return text
	}
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "\t", " ")
	text = multiNewline.ReplaceAllString(text, "\n")
	text = spaceNewline.ReplaceAllString(text, "\n")
	text = newlineSpace.ReplaceAllString(text, "\n")
	text = multiNewline.ReplaceAllString(text, "\n")
	text = strings.ReplaceAll(text, " ", " ")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// StripHTML removes markup and comments, returning decoded plain text.
func StripHTML(text string) string {
	text = html.UnescapeString(text)
	text = stripPolicy.Sanitize(text)
	return html.UnescapeString(text)
}

// CleanTitle normalizes a headline and applies the INVALID_TITLE rules until
// none matches, so a title carrying both a bracketed media tag and a
// site-name suffix loses both.
func CleanTitle(text, lang string) string {
	if text == "" {
		return text
	}
	text = html.UnescapeString(text)
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, " ", " ")
	text = multiWhite.ReplaceAllString(strings.TrimSpace(text), " ")
	text = Correct(strings.TrimSpace(text), lang)

	for changed := true; changed; {
		changed = false
		for _, rule := range invalidTitle {
			loc := rule.re.FindStringIndex(text)
			if loc == nil {
				continue
			}
			switch rule.action {
			case actionStart:
				text = strings.TrimSpace(text[loc[1]:])
			case actionEnd:
				text = strings.TrimSpace(text[:loc[0]])
			}
			changed = true
			break
		}
	}
	return strings.TrimSpace(text)
}

// CleanContent normalizes article text and applies the INVALID_CONTENT rules.
// An empty result means the text matched a reject-whole-text rule.
func CleanContent(text, lang string) string {
	if text == "" {
		return text
	}
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = StripHTML(text)
	text = strings.ReplaceAll(text, " ", " ")
	text = multiSpace.ReplaceAllString(strings.TrimSpace(text), " ")
	text = spacePunct.ReplaceAllString(strings.TrimSpace(text), "$1")
	text = Correct(strings.TrimSpace(text), lang)

	for _, rule := range invalidContent {
		loc := rule.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		switch rule.action {
		case actionInvalid:
			return ""
		case actionStart:
			text = strings.TrimSpace(text[loc[1]:])
		case actionEnd:
			return strings.TrimSpace(text[:loc[0]])
		}
	}
	return strings.TrimSpace(text)
}

// CleanPageContent drops navigation debris from extracted page bodies: lines
// shorter than 50 chars, and lines under 100 chars that do not end a sentence.
func CleanPageContent(text string) string {
	if text == "" {
		return text
	}
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		n := len([]rune(line))
		if n < 50 || (n < 100 && !sentenceEnd.MatchString(line)) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// CountUpperLetters counts cased upper-case letters.
func CountUpperLetters(text string) int {
	count := 0
	for _, r := range text {
		if unicode.IsUpper(r) {
			count++
		}
	}
	return count
}

// CountLetters counts letters, ignoring digits and punctuation.
func CountLetters(text string) int {
	count := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			count++
		}
	}
	return count
}

// UpperRatio returns the percentage of letters that are upper-case.
func UpperRatio(text string) float64 {
	letters := CountLetters(text)
	if letters == 0 {
		letters = 1
	}
	return float64(CountUpperLetters(text)) / float64(letters) * 100
}
