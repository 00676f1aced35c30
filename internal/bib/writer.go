// Package bib renders bibliography entries as a BibTeX .bib database.
//
// Three output styles are supported (see model.FormatStyle):
//
//   - standard: every extracted field, in extraction order
//   - minimal: only the fields BibTeX requires for the entry type
//   - full: every field plus "%" comment lines with the bibitem label and
//     the cleaned source text the fields were extracted from
//
// Field values are always brace-delimited. Unbalanced braces in a value are
// dropped so the generated file always parses.
package bib

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/moby/sys/atomicwriter"

	"github.com/shinji-kodama/bbl2bib/internal/model"
)

// Header is written at the top of every generated file.
const Header = "% Generated by bbl2bib"

// requiredFields lists, per entry type, the fields kept by the minimal style.
var requiredFields = map[model.EntryType][]string{
	model.TypeArticle:       {"author", "title", "journal", "year"},
	model.TypeBook:          {"author", "title", "publisher", "year"},
	model.TypeInProceedings: {"author", "title", "booktitle", "year"},
	model.TypeInCollection:  {"author", "title", "booktitle", "year"},
	model.TypePhDThesis:     {"author", "title", "school", "year"},
	model.TypeMastersThesis: {"author", "title", "school", "year"},
	model.TypeTechReport:    {"author", "title", "institution", "year"},
	model.TypeMisc:          {"author", "title", "year"},
}

// Writer renders entries in a given style.
type Writer struct {
	// Style selects which fields and comments are emitted.
	// The zero value behaves like model.StyleStandard.
	Style model.FormatStyle
}

// NewWriter creates a Writer for the given style.
func NewWriter(style model.FormatStyle) *Writer {
	return &Writer{Style: style}
}

// WriteString renders entries, including the file header, as a string.
func (w *Writer) WriteString(entries []model.Entry) (string, error) {
	var sb strings.Builder
	if err := w.Write(&sb, entries); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write renders entries, including the file header, to out. Every entry is
// validated first; nothing is written when one is invalid.
func (w *Writer) Write(out io.Writer, entries []model.Entry) error {
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return fmt.Errorf("invalid entry %d: %w", i+1, err)
		}
	}

	bw := bufio.NewWriter(out)

	fmt.Fprintf(bw, "%s\n\n", Header)
	for i := range entries {
		if i > 0 {
			bw.WriteString("\n")
		}
		w.writeEntry(bw, &entries[i])
	}

	return bw.Flush()
}

// WriteFile renders entries to path. The content is written to a temporary
// file in the same directory and renamed into place, so an existing file is
// either fully replaced or left untouched, including when an entry is invalid.
func (w *Writer) WriteFile(path string, entries []model.Entry) error {
	content, err := w.WriteString(entries)
	if err != nil {
		return err
	}
	if err := atomicwriter.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// writeEntry renders one entry:
//
//	@article{knuth1984,
//	  author = {D. E. Knuth},
//	  title  = {Literate programming},
//	}
func (w *Writer) writeEntry(bw *bufio.Writer, e *model.Entry) {
	if w.Style == model.StyleFull {
		// A line break would end the comment and leak text into the entry.
		if label := oneLine(e.Label); label != "" {
			fmt.Fprintf(bw, "%% label: %s\n", label)
		}
		if source := oneLine(e.RawText); source != "" {
			fmt.Fprintf(bw, "%% source: %s\n", source)
		}
	}

	fields := w.selectFields(e)

	// Pad names to the longest one so the "=" signs line up.
	width := 0
	for _, f := range fields {
		if len(f.Name) > width {
			width = len(f.Name)
		}
	}

	fmt.Fprintf(bw, "@%s{%s,\n", e.Type, e.CiteKey)
	for _, f := range fields {
		fmt.Fprintf(bw, "  %-*s = {%s},\n", width, f.Name, BalanceBraces(f.Value))
	}
	bw.WriteString("}\n")
}

// selectFields returns the fields of e that the writer's style emits.
func (w *Writer) selectFields(e *model.Entry) []model.Field {
	if w.Style != model.StyleMinimal {
		return e.Fields
	}

	required, ok := requiredFields[e.Type]
	if !ok {
		required = requiredFields[model.TypeMisc]
	}

	// Keep the order of the required list, not extraction order, so minimal
	// output is uniform across entries of the same type.
	fields := make([]model.Field, 0, len(required))
	for _, name := range required {
		if v, ok := e.Get(name); ok {
			fields = append(fields, model.Field{Name: name, Value: v})
		}
	}
	return fields
}

// oneLine collapses every run of whitespace, line breaks included, into a
// single space.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// BalanceBraces drops every "{" without a matching "}" and every "}"
// without a matching "{", leaving the rest of s untouched.
func BalanceBraces(s string) string {
	if !strings.ContainsAny(s, "{}") {
		return s
	}

	// First pass: find the byte offsets of unmatched braces.
	var open []int
	drop := make(map[int]bool)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			open = append(open, i)
		case '}':
			if len(open) == 0 {
				drop[i] = true
			} else {
				open = open[:len(open)-1]
			}
		}
	}
	for _, i := range open {
		drop[i] = true
	}
	if len(drop) == 0 {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if !drop[i] {
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
