// Package model defines the domain types for the bbl2bib CLI.
//
// All entities in this package represent the core data structures shared by
// the parser (internal/bbl), the writer (internal/bib), and the CLI layer.
package model

import (
	"fmt"
	"strings"
)

// EntryType represents the BibTeX entry type of a bibliography item
// (the word after "@" in a .bib file).
//
// The .bbl format does not record the original entry type, so the parser
// infers it from keywords found in the formatted reference text.
type EntryType string

const (
	// TypeArticle is a journal article.
	TypeArticle EntryType = "article"

	// TypeBook is a book with an explicit publisher.
	TypeBook EntryType = "book"

	// TypeInProceedings is a paper in conference proceedings.
	TypeInProceedings EntryType = "inproceedings"

	// TypeInCollection is a part of a book with its own title,
	// typically an edited volume.
	TypeInCollection EntryType = "incollection"

	// TypePhDThesis is a doctoral dissertation.
	TypePhDThesis EntryType = "phdthesis"

	// TypeMastersThesis is a master's thesis.
	TypeMastersThesis EntryType = "mastersthesis"

	// TypeTechReport is a report published by an institution.
	TypeTechReport EntryType = "techreport"

	// TypeMisc is the fallback type when nothing more specific is detected.
	TypeMisc EntryType = "misc"
)

// String returns the string representation of EntryType.
// This method satisfies the fmt.Stringer interface.
func (t EntryType) String() string {
	return string(t)
}

// IsValid checks whether the EntryType value is one of the
// predefined entry types.
func (t EntryType) IsValid() bool {
	switch t {
	case TypeArticle, TypeBook, TypeInProceedings, TypeInCollection,
		TypePhDThesis, TypeMastersThesis, TypeTechReport, TypeMisc:
		return true
	default:
		return false
	}
}

// FormatStyle controls how much of an entry the bib writer emits.
type FormatStyle string

const (
	// StyleStandard emits every extracted field. This is the default.
	StyleStandard FormatStyle = "standard"

	// StyleMinimal emits only the fields BibTeX requires for the entry type.
	StyleMinimal FormatStyle = "minimal"

	// StyleFull emits every extracted field plus comment lines carrying
	// the optional bibitem label and the cleaned source text.
	StyleFull FormatStyle = "full"
)

// String returns the string representation of FormatStyle.
func (s FormatStyle) String() string {
	return string(s)
}

// IsValid checks whether the FormatStyle value is one of the
// predefined styles.
func (s FormatStyle) IsValid() bool {
	switch s {
	case StyleStandard, StyleMinimal, StyleFull:
		return true
	default:
		return false
	}
}

// ParseFormatStyle converts a string to a FormatStyle.
// An empty string yields StyleStandard.
func ParseFormatStyle(s string) (FormatStyle, error) {
	if strings.TrimSpace(s) == "" {
		return StyleStandard, nil
	}
	style := FormatStyle(strings.ToLower(strings.TrimSpace(s)))
	if !style.IsValid() {
		return "", fmt.Errorf("invalid format style: %q (valid: standard, minimal, full)", s)
	}
	return style, nil
}

// Field is a single "name = {value}" pair of a bibliography entry.
type Field struct {
	// Name is the lowercase BibTeX field name (e.g., "author", "year").
	Name string `json:"name"`

	// Value is the field content without surrounding braces.
	Value string `json:"value"`
}

// Entry represents one bibliography item reconstructed from a \bibitem.
//
// Fields is an ordered slice rather than a map: the writer emits fields in
// the order the parser extracted them, which keeps output deterministic.
type Entry struct {
	// Type is the inferred BibTeX entry type.
	Type EntryType `json:"type"`

	// CiteKey is the citation key from \bibitem{key}.
	CiteKey string `json:"citeKey"`

	// Label is the optional label from \bibitem[label]{key}.
	// Empty when the bibitem has no optional argument.
	Label string `json:"label,omitempty"`

	// Fields holds the extracted fields in extraction order.
	Fields []Field `json:"fields,omitempty"`

	// RawText is the cleaned reference text the fields were extracted from.
	RawText string `json:"rawText,omitempty"`
}

// Get returns the value of the named field and whether it is present.
func (e *Entry) Get(name string) (string, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Has reports whether the named field is present.
func (e *Entry) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Set assigns a field value. An existing field keeps its position and has
// its value replaced; a new field is appended.
func (e *Entry) Set(name, value string) {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			e.Fields[i].Value = value
			return
		}
	}
	e.Fields = append(e.Fields, Field{Name: name, Value: value})
}

// Validate checks the invariants every entry handed to the writer must hold.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.CiteKey) == "" {
		return fmt.Errorf("entry: cite key must not be empty")
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("entry %q: invalid entry type %q", e.CiteKey, e.Type)
	}
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if f.Name == "" {
			return fmt.Errorf("entry %q: field name must not be empty", e.CiteKey)
		}
		if seen[f.Name] {
			return fmt.Errorf("entry %q: duplicate field %q", e.CiteKey, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// ExitCode defines standard CLI exit codes.
// These codes allow scripts and CI systems to programmatically determine
// the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	// setup also uses it when the interpreter is missing or too old.
	ExitGeneralError ExitCode = 1

	// ExitInputNotFound indicates a required input file does not exist.
	ExitInputNotFound ExitCode = 2

	// ExitParseError indicates an input or config file could not be parsed.
	ExitParseError ExitCode = 3
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// WrapExitCode creates a CLIError whose code is the raw exit status of a
// failed child process. Statuses outside 1-255 (e.g., -1 for a process
// killed by a signal) are mapped to ExitGeneralError.
func WrapExitCode(status int, message string, err error) *CLIError {
	code := ExitCode(status)
	if status < 1 || status > 255 {
		code = ExitGeneralError
	}
	return &CLIError{Code: code, Message: message, Err: err}
}
