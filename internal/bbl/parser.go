package bbl

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/shinji-kodama/bbl2bib/internal/model"
)

// Patterns used while splitting and cleaning the document. They are compiled
// once at package init; regexp.Regexp is safe for concurrent use, so one
// Parser may be shared across goroutines.
var (
	// bibitemRegex matches \bibitem{key} and \bibitem[label]{key}.
	// Group 1 is the optional label, group 2 the citation key.
	bibitemRegex = regexp.MustCompile(`\\bibitem(?:\[([^\]]*)\])?\{([^}]+)\}`)

	newblockRegex = regexp.MustCompile(`\\newblock\s*`)

	// fontCommandRegex matches \emph{x}, \textit{x} and \textbf{x}.
	fontCommandRegex = regexp.MustCompile(`\\(?:emph|textit|textbf)\{([^}]+)\}`)

	// fontSwitchRegex matches old-style font switches such as {\em x},
	// which is what the standard .bst styles emit.
	fontSwitchRegex = regexp.MustCompile(`\{\\(?:em|it|bf|sc|sl)\s+([^}]*)\}`)

	// italicRegex finds the spans a style set in italics; these are the
	// journal or book title candidates.
	italicRegex = regexp.MustCompile(`\\(?:emph|textit)\{([^}]+)\}|\{\\(?:em|it)\s+([^}]*)\}`)
)

// endEnvironment terminates the thebibliography environment. Anything after
// it in the last item is not part of the reference.
const endEnvironment = `\end{thebibliography}`

// Options tunes the parser heuristics.
type Options struct {
	// ExtraPublishers are checked before the built-in publisher list when
	// looking for a publisher name in the reference text.
	ExtraPublishers []string
}

// Parser converts .bbl content into bibliography entries.
//
// A Parser holds no per-document state, so a single instance can parse
// many files, including concurrently.
type Parser struct {
	publishers []string
}

// NewParser creates a Parser with the given options.
func NewParser(opts Options) *Parser {
	publishers := make([]string, 0, len(opts.ExtraPublishers)+len(knownPublishers))
	for _, p := range opts.ExtraPublishers {
		if p = strings.TrimSpace(p); p != "" {
			publishers = append(publishers, p)
		}
	}
	publishers = append(publishers, knownPublishers...)
	return &Parser{publishers: publishers}
}

// ParseFile reads and parses the .bbl file at path.
func (p *Parser) ParseFile(path string) ([]model.Entry, error) {
	// #nosec G304 -- the path is an input file named by the user
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	entries, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return entries, nil
}

// Parse reads a whole .bbl document from r and returns its entries in
// document order. Items whose text is empty after cleaning are skipped.
//
// Invalid UTF-8 byte sequences are dropped rather than rejected, since .bbl
// files produced by old toolchains are frequently in a legacy encoding.
func (p *Parser) Parse(r io.Reader) ([]model.Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return p.ParseString(string(data)), nil
}

// ParseString parses a .bbl document held in memory.
func (p *Parser) ParseString(content string) []model.Entry {
	content = strings.ToValidUTF8(content, "")

	// Each match index slice holds: [start, end, labelStart, labelEnd, keyStart, keyEnd].
	// An item's text runs from the end of its \bibitem to the start of the next one.
	locs := bibitemRegex.FindAllStringSubmatchIndex(content, -1)

	entries := make([]model.Entry, 0, len(locs))
	for i, loc := range locs {
		label := ""
		if loc[2] >= 0 {
			// natbib labels often wrap across lines.
			label = strings.Join(strings.Fields(content[loc[2]:loc[3]]), " ")
		}
		key := strings.TrimSpace(content[loc[4]:loc[5]])

		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		text := content[loc[1]:end]
		if idx := strings.Index(text, endEnvironment); idx >= 0 {
			text = text[:idx]
		}

		if entry, ok := p.parseItem(key, label, text); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// parseItem builds an Entry from the raw text of one \bibitem.
// The second return value is false when nothing is left after cleaning.
func (p *Parser) parseItem(key, label, raw string) (model.Entry, bool) {
	italics := findItalics(raw)
	text := cleanText(raw)
	if text == "" || key == "" {
		return model.Entry{}, false
	}

	entryType := detectEntryType(text)
	entry := model.Entry{
		Type:    entryType,
		CiteKey: key,
		Label:   label,
		RawText: text,
	}
	p.extractFields(&entry, text, italics)
	return entry, true
}

// cleanText removes LaTeX markup that carries no field information, turns
// ties into spaces and normalises whitespace. A trailing period is dropped.
func cleanText(text string) string {
	text = newblockRegex.ReplaceAllString(text, " ")
	text = fontCommandRegex.ReplaceAllString(text, "$1")
	text = fontSwitchRegex.ReplaceAllString(text, "$1")
	text = untie(text)
	text = strings.Join(strings.Fields(text), " ")
	text = strings.TrimRight(text, ".")
	return strings.TrimSpace(text)
}

// untie replaces LaTeX ties ("~") with spaces. A "~" right after "/" or a
// backslash is part of a URL path or an accent and is kept.
func untie(text string) string {
	if !strings.Contains(text, "~") {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '~' && (i == 0 || (text[i-1] != '/' && text[i-1] != '\\')) {
			sb.WriteByte(' ')
			continue
		}
		sb.WriteByte(text[i])
	}
	return sb.String()
}

// findItalics returns the italicised spans of raw, in order, with ties
// removed and whitespace collapsed.
func findItalics(raw string) []string {
	var spans []string
	for _, m := range italicRegex.FindAllStringSubmatch(raw, -1) {
		span := m[1]
		if span == "" {
			span = m[2]
		}
		span = strings.Join(strings.Fields(untie(span)), " ")
		if span != "" {
			spans = append(spans, span)
		}
	}
	return spans
}

// detectEntryType infers the BibTeX entry type from keywords in text.
// The checks run in priority order and the first match wins.
func detectEntryType(text string) model.EntryType {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "phd thesis") || strings.Contains(lower, "doctoral dissertation"):
		return model.TypePhDThesis
	case strings.Contains(lower, "master") && strings.Contains(lower, "thesis"):
		return model.TypeMastersThesis
	case strings.Contains(lower, "technical report") || strings.Contains(lower, "tech. rep."):
		return model.TypeTechReport
	case strings.Contains(lower, "in proceedings") || strings.Contains(lower, "conference"):
		return model.TypeInProceedings
	// "in:" is matched case-sensitively; a capitalised "In " only counts
	// when editors are mentioned.
	case strings.Contains(text, "in:") ||
		(strings.Contains(text, "In ") && (strings.Contains(lower, "editor") || strings.Contains(lower, "eds."))):
		return model.TypeInCollection
	case containsAny(lower, journalIndicators):
		return model.TypeArticle
	case strings.Contains(lower, "http") || strings.Contains(lower, "www."):
		return model.TypeMisc
	case containsAny(lower, bookIndicators):
		return model.TypeBook
	case volumeRegex.MatchString(text) || pagesRegex.MatchString(text):
		return model.TypeArticle
	default:
		return model.TypeMisc
	}
}

var (
	journalIndicators = []string{"journal", "vol.", "volume", "pp.", "pages", "issue"}
	bookIndicators    = []string{"publisher", "press", "isbn", "edition"}
)

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
