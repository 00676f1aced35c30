package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEntryType_String verifies that EntryType values produce the exact
// words written after "@" in .bib output.
func TestEntryType_String(t *testing.T) {
	tests := []struct {
		entryType EntryType
		expected  string
	}{
		{TypeArticle, "article"},
		{TypeBook, "book"},
		{TypeInProceedings, "inproceedings"},
		{TypeInCollection, "incollection"},
		{TypePhDThesis, "phdthesis"},
		{TypeMastersThesis, "mastersthesis"},
		{TypeTechReport, "techreport"},
		{TypeMisc, "misc"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.entryType.String())
			assert.True(t, tt.entryType.IsValid())
		})
	}
}

// TestParseFormatStyle checks the accepted --format values and that an
// empty value falls back to the standard style.
func TestParseFormatStyle(t *testing.T) {
	tests := []struct {
		input    string
		expected FormatStyle
		hasError bool
	}{
		{"standard", StyleStandard, false},
		{"minimal", StyleMinimal, false},
		{"FULL", StyleFull, false},
		{"", StyleStandard, false},
		{"verbose", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseFormatStyle(tt.input)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestEntry_SetPreservesOrder verifies that Set appends new fields and
// replaces existing ones in place, so field order stays stable.
func TestEntry_SetPreservesOrder(t *testing.T) {
	e := Entry{Type: TypeArticle, CiteKey: "knuth84"}
	e.Set("author", "D. E. Knuth")
	e.Set("title", "Literate Programming")
	e.Set("year", "1984")
	e.Set("title", "Literate programming")

	require.Len(t, e.Fields, 3)
	assert.Equal(t, Field{Name: "author", Value: "D. E. Knuth"}, e.Fields[0])
	assert.Equal(t, Field{Name: "title", Value: "Literate programming"}, e.Fields[1])
	assert.Equal(t, Field{Name: "year", Value: "1984"}, e.Fields[2])

	v, ok := e.Get("year")
	assert.True(t, ok)
	assert.Equal(t, "1984", v)
	assert.False(t, e.Has("journal"))
}

// TestEntry_Validate covers the invariants checked before writing.
func TestEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		wantErr string
	}{
		{
			name:  "valid entry",
			entry: Entry{Type: TypeBook, CiteKey: "k", Fields: []Field{{Name: "title", Value: "T"}}},
		},
		{
			name:    "empty cite key",
			entry:   Entry{Type: TypeBook, CiteKey: " "},
			wantErr: "cite key must not be empty",
		},
		{
			name:    "invalid type",
			entry:   Entry{Type: "manual", CiteKey: "k"},
			wantErr: "invalid entry type",
		},
		{
			name: "duplicate field",
			entry: Entry{Type: TypeMisc, CiteKey: "k", Fields: []Field{
				{Name: "year", Value: "2001"}, {Name: "year", Value: "2002"},
			}},
			wantErr: "duplicate field",
		},
		{
			name:    "empty field name",
			entry:   Entry{Type: TypeMisc, CiteKey: "k", Fields: []Field{{Value: "x"}}},
			wantErr: "field name must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitInputNotFound, "input file does not exist")
		assert.Equal(t, ExitInputNotFound, err.Code)
		assert.Equal(t, "input file does not exist", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("permission denied")
		err := WrapCLIError(ExitGeneralError, "failed to write output", inner)
		assert.Equal(t, ExitGeneralError, err.Code)
		assert.Contains(t, err.Error(), "permission denied")
		assert.Equal(t, inner, err.Unwrap())
	})

	t.Run("errors.Is chain", func(t *testing.T) {
		inner := errors.New("permission denied")
		err := WrapCLIError(ExitGeneralError, "failed to write output", inner)
		assert.True(t, errors.Is(err, inner))
	})
}

// TestWrapExitCode verifies that child process statuses are carried through
// unchanged when they are valid exit codes.
func TestWrapExitCode(t *testing.T) {
	tests := []struct {
		status   int
		expected ExitCode
	}{
		{2, ExitCode(2)},
		{127, ExitCode(127)},
		{255, ExitCode(255)},
		{0, ExitGeneralError},
		{-1, ExitGeneralError},
		{300, ExitGeneralError},
	}

	for _, tt := range tests {
		err := WrapExitCode(tt.status, "pip failed", nil)
		assert.Equal(t, tt.expected, err.Code, "status %d", tt.status)
	}
}
