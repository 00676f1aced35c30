// fields.go extracts individual BibTeX fields from a cleaned reference.
//
// Extraction order is fixed and determines the field order in the output:
// author, title, year, pages, volume, number, doi, url, isbn, then the venue
// field that fits the entry type (journal / booktitle / school /
// institution), then publisher.
package bbl

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shinji-kodama/bbl2bib/internal/model"
)

var (
	yearRegex = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

	// pagesRegex accepts any run of hyphens or en/em dashes between the two
	// numbers; BibTeX styles typeset page ranges as "12--34".
	pagesRegex = regexp.MustCompile(`\b(\d+)\s*[-–—]+\s*(\d+)\b`)

	volumeRegex = regexp.MustCompile(`(?i)\bvolume\s+(\d+)\b`)
	numberRegex = regexp.MustCompile(`(?i)\bnumber\s+(\d+)\b`)
	doiRegex    = regexp.MustCompile(`(?i)(?:doi:\s*|https?://(?:dx\.)?doi\.org/)([^\s,]+)`)
	urlRegex    = regexp.MustCompile(`https?://[^\s,]+`)
	isbnRegex   = regexp.MustCompile(`(?i)ISBN[:\s]+([0-9X-]+)`)

	// authorRegexes are tried in order against the start of the text.
	authorRegexes = []*regexp.Regexp{
		// Initials then surname: "D. E. Knuth and A. Einstein".
		regexp.MustCompile(`^([A-Z]\.\s*(?:[A-Z]\.\s*)?[A-Z][a-z]+(?:\s+(?:and|,)\s+[A-Z]\.\s*(?:[A-Z]\.\s*)?[A-Z][a-z]+)*)`),
		// Full first names: "John Smith and Jane Doe".
		regexp.MustCompile(`^([A-Z][a-z]+\s+[A-Z][a-z]+(?:\s+(?:and|,)\s+[A-Z][a-z]+\s+[A-Z][a-z]+)*)`),
		// Initials with a generational suffix: "M. L. King Jr.".
		regexp.MustCompile(`^([A-Z]\.\s*(?:[A-Z]\.\s*)?[A-Z][a-z]+(?:\s+(?:Jr\.|Sr\.|III|II))?(?:\s+(?:and|,)\s+[A-Z]\.\s*(?:[A-Z]\.\s*)?[A-Z][a-z]+(?:\s+(?:Jr\.|Sr\.|III|II))?)*)`),
	}

	commaSeparatorRegex = regexp.MustCompile(`\s*,\s*`)
	andSeparatorRegex   = regexp.MustCompile(`\s+and\s+`)
	startsUpperRegex    = regexp.MustCompile(`^[A-Z]`)
	capitalWordRegex    = regexp.MustCompile(`[A-Z][a-z]+`)

	quotedRegex       = regexp.MustCompile("[\"`]([^\"`]+)[\"`]")
	latexCommandRegex = regexp.MustCompile(`\\[a-zA-Z]+\{([^}]+)\}`)
	bracedRegex       = regexp.MustCompile(`\{([^}]+)\}`)

	// journalSegmentRegex captures the comma/period-delimited segment that
	// contains the word "journal" ("Journal of Logic", "The Computer Journal").
	journalSegmentRegex = regexp.MustCompile(`(?i)([^,.\d]*\bjournal\b[^,.\d]*)`)
	journalAfterInRegex = regexp.MustCompile(`(?i)\bin[:\s]+([^,\d]+)(?:,|\d)`)

	booktitleRegex = []*regexp.Regexp{
		regexp.MustCompile(`(?i)in[:\s]+([^,]+)(?:,|\.)`),
		regexp.MustCompile(`(?i)Proceedings of[:\s]+([^,]+)(?:,|\.)`),
	}

	schoolRegex      = regexp.MustCompile(`(?i)(?:thesis|dissertation),\s*([^,]+)`)
	institutionRegex = regexp.MustCompile(`(?i)(?:technical report|tech\. rep\.)[^,]*,\s*([^,]+)`)
	publisherRegex   = regexp.MustCompile(`(?i)(?:publisher|press)[:\s]+([^,]+)(?:,|\.)`)
)

// titleStopWords mark a period-delimited segment as venue information
// rather than a title.
var titleStopWords = []string{"journal", "conference", "proceedings", "vol", "pp", "publisher", "press", "isbn"}

// knownPublishers are matched case-insensitively anywhere in the text.
var knownPublishers = []string{
	"Springer", "Elsevier", "Wiley", "IEEE", "ACM", "MIT Press",
	"Cambridge University Press", "Oxford University Press",
	"Academic Press", "Addison-Wesley", "McGraw-Hill",
}

// extractFields fills entry.Fields from text. italics are the italicised
// spans of the raw item, used as a fallback journal name.
func (p *Parser) extractFields(entry *model.Entry, text string, italics []string) {
	authors := extractAuthors(text)
	if authors != "" {
		entry.Set("author", authors)
	}

	if title := extractTitle(text, authors != ""); title != "" {
		entry.Set("title", title)
	}

	if year := yearRegex.FindString(text); year != "" {
		entry.Set("year", year)
	}

	if m := pagesRegex.FindStringSubmatch(text); m != nil {
		entry.Set("pages", m[1]+"--"+m[2])
	}

	if m := volumeRegex.FindStringSubmatch(text); m != nil {
		entry.Set("volume", m[1])
	}

	if m := numberRegex.FindStringSubmatch(text); m != nil {
		entry.Set("number", m[1])
	}

	if m := doiRegex.FindStringSubmatch(text); m != nil {
		entry.Set("doi", m[1])
	}

	if url := urlRegex.FindString(text); url != "" {
		entry.Set("url", url)
	}

	if m := isbnRegex.FindStringSubmatch(text); m != nil {
		entry.Set("isbn", m[1])
	}

	switch entry.Type {
	case model.TypeArticle:
		if journal := extractJournal(text, italics); journal != "" {
			entry.Set("journal", journal)
		}
	case model.TypeInProceedings, model.TypeInCollection:
		if booktitle := extractBooktitle(text); booktitle != "" {
			entry.Set("booktitle", booktitle)
		}
	case model.TypePhDThesis, model.TypeMastersThesis:
		if m := schoolRegex.FindStringSubmatch(text); m != nil {
			entry.Set("school", strings.TrimSpace(m[1]))
		}
	case model.TypeTechReport:
		if m := institutionRegex.FindStringSubmatch(text); m != nil {
			entry.Set("institution", strings.TrimSpace(m[1]))
		}
	}

	if publisher := p.extractPublisher(text); publisher != "" {
		entry.Set("publisher", publisher)
	}
}

// extractAuthors returns the author list with separators normalised to
// " and ", or "" when the text does not start with something name-like.
func extractAuthors(text string) string {
	for _, re := range authorRegexes {
		if m := re.FindStringSubmatch(text); m != nil {
			authors := commaSeparatorRegex.ReplaceAllString(m[1], " and ")
			authors = andSeparatorRegex.ReplaceAllString(authors, " and ")
			return strings.TrimSpace(authors)
		}
	}

	// Fallback: everything before the first period, if it looks like names.
	first, _, _ := strings.Cut(text, ".")
	first = strings.TrimSpace(first)
	if startsUpperRegex.MatchString(first) &&
		utf8.RuneCountInString(first) < 100 &&
		strings.Contains(first, " ") &&
		capitalWordRegex.MatchString(first) {
		return first
	}
	return ""
}

// extractTitle returns the most title-like segment of text.
//
// When authors were found, the search starts after the first period. A
// quoted span wins; otherwise the first period-delimited segment longer than
// ten characters that does not look like venue information is used.
func extractTitle(text string, hasAuthors bool) string {
	working := text
	if hasAuthors {
		if idx := strings.Index(text, "."); idx > 0 {
			working = strings.TrimSpace(text[idx+1:])
		}
	}

	if m := quotedRegex.FindStringSubmatch(working); m != nil {
		return m[1]
	}

	for _, part := range strings.Split(working, ".") {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) <= 10 || containsAny(strings.ToLower(part), titleStopWords) {
			continue
		}
		part = latexCommandRegex.ReplaceAllString(part, "$1")
		part = bracedRegex.ReplaceAllString(part, "$1")
		return strings.TrimSpace(part)
	}
	return ""
}

// extractJournal returns the journal name of an article. Standard styles set
// the journal in italics, so the first italicised span that is not a
// proceedings title wins. Otherwise the segment naming a "journal" is used,
// and finally the text following "in".
func extractJournal(text string, italics []string) string {
	for _, span := range italics {
		lower := strings.ToLower(span)
		if strings.Contains(lower, "proceedings") || strings.Contains(lower, "conference") {
			continue
		}
		return span
	}

	if m := journalSegmentRegex.FindStringSubmatch(text); m != nil {
		if journal := strings.TrimSpace(m[1]); journal != "" {
			return journal
		}
	}

	if m := journalAfterInRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractBooktitle returns the text after "In" or "Proceedings of" up to the
// next comma or period.
func extractBooktitle(text string) string {
	for _, re := range booktitleRegex {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// extractPublisher returns the first known publisher mentioned in text, or
// the value following "publisher:" / "press:".
func (p *Parser) extractPublisher(text string) string {
	lower := strings.ToLower(text)
	for _, pub := range p.publishers {
		if strings.Contains(lower, strings.ToLower(pub)) {
			return pub
		}
	}

	if m := publisherRegex.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
