package textutil

import "regexp"

// ruleAction tells the cleaner what to do with a matched pattern.
type ruleAction int

const (
	// actionInvalid rejects the whole text.
	actionInvalid ruleAction = iota
	// actionStart strips the matched prefix.
	actionStart
	// actionEnd truncates the text at the match.
	actionEnd
)

type cleanRule struct {
	re     *regexp.Regexp
	action ruleAction
}

// invalidContent lists boilerplate markers collected from real feeds:
// "read more" tails, share widgets, related-article blocks. Order matters.
var invalidContent = []cleanRule{
	{regexp.MustCompile(`(?i)^Cite[șs]te mai mult`), actionInvalid},
	{regexp.MustCompile(`(?i)^Moldova Azi - breaking news`), actionInvalid},
	{regexp.MustCompile(`(?i)Adresa ta de email nu va fi`), actionInvalid},
	{regexp.MustCompile(`(?i)Все права защищены`), actionInvalid},
	{regexp.MustCompile(`(?i)^(foto|фото)\s*:\s*(noi\.md)`), actionStart},
	{regexp.MustCompile(`(?i)^cite[sș]te [sș]tirea complet[aă] pe (a1\.ro)`), actionStart},
	{regexp.MustCompile(`(?i)^/КРОСС/`), actionStart},
	{regexp.MustCompile(`(?i)^comentarii,\s+`), actionStart},
	{regexp.MustCompile(`(?i)Похожие статьи`), actionEnd},
	{regexp.MustCompile(`(?i)Чита[йи]те также`), actionEnd},
	{regexp.MustCompile(`(?i)\bRelated (Posts|Articles|News|Stories)\b`), actionEnd},
	{regexp.MustCompile(`(?i)\bhistorias relacionadas\b`), actionEnd},
	{regexp.MustCompile(`(?i)\bCite[sș]te [sș]i:`), actionEnd},
	{regexp.MustCompile(`(?i)\bDalší články k tématu\b`), actionEnd},
	{regexp.MustCompile(`(?i)Още по темата`), actionEnd},
	{regexp.MustCompile(`(?i)\bDe acela[şs]i autor\b`), actionEnd},
	{regexp.MustCompile(`(?i)(?:^|\s)[sș]tiri pe aceea[sș]i tem[aă]\b`), actionEnd},
	{regexp.MustCompile(`(?i)([(\[][ ]*)?\bcite[sș]te mai (departe|mult)\b`), actionEnd},
	{regexp.MustCompile(`(?i)([(\[][ ]*)?\bcite[sș]te articolul pe\b`), actionEnd},
	{regexp.MustCompile(`(?i)Dac[ăa] [tţ]i-a pl[aă]cut articolul\b`), actionEnd},
	{regexp.MustCompile(`(?i)Be the first of your friends`), actionEnd},
	{regexp.MustCompile(`(?i)\bTags:`), actionEnd},
	{regexp.MustCompile(`(?i)Alte articole( \w+)? pe aceeasi tema`), actionEnd},
	{regexp.MustCompile(`(?i)\bNOTA: Va rugam sa comentati la obiect`), actionEnd},
	{regexp.MustCompile(`(?i)\bNOT[AĂ]: V[ăa] rug[ăa]m s[ăa] folosi[tț]i`), actionEnd},
	{regexp.MustCompile(`Post-ul `), actionEnd},
	{regexp.MustCompile(`(?i)See more at`), actionEnd},
	{regexp.MustCompile(`(?i)\sPostat pe \d+`), actionEnd},
	{regexp.MustCompile(`\[\.\.\.\]$`), actionEnd},
	{regexp.MustCompile(`(,\s*)?-\s*hotnews,`), actionEnd},
	{regexp.MustCompile(`(?i), stiri, realitatea`), actionEnd},
	{regexp.MustCompile(`\sFigyelem!`), actionEnd},
	{regexp.MustCompile(`\sThe post `), actionEnd},
	{regexp.MustCompile(`\sArticolul .+ apare `), actionEnd},
}

// invalidTitle strips clickbait decorations around headlines: bracketed
// media tags, site-name suffixes after separators, live/breaking prefixes.
var invalidTitle = []cleanRule{
	{regexp.MustCompile(`(?i)\s(//|\||/)\s*.{2,15}$`), actionEnd},
	{regexp.MustCompile(`(?i)^\(\s*(video|foto|doc|doc[,-]\s*foto|video[,-]\s*foto|audio|galerie foto|ВИДЕО)\s*\)\s*[:/-]?`), actionStart},
	{regexp.MustCompile(`(?i)^.{2,15}(//|\||/)\s`), actionStart},
	{regexp.MustCompile(`(?i)^(BREAKING NEWS|LIVE|RECENZE|Primele Stiri|VIDEO ZF Live)\s*[:/-]`), actionStart},
	{regexp.MustCompile(`(?i)-?\s*\((foto|video)\)$`), actionEnd},
	{regexp.MustCompile(`(?i)\s+-\s*(foto|video)$`), actionEnd},
}
