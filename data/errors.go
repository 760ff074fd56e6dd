package data

import (
	"fmt"
	"strings"
)

// ValidationError reports a defective input row with enough context to point
// at the offending source line and fields.
type ValidationError struct {
	// Row is the 1-based index of the row within its source.
	Row    int
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("row %d: field(s) %s: %s", e.Row, strings.Join(e.Fields, ", "), e.Reason)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// UnsupportedFormatError rejects an input file whose extension is not in the
// recognized set for its role.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type %q for %s", e.Ext, e.Path)
}

// TemplateMissingError means the claim form template does not exist; no
// output is written in that case.
type TemplateMissingError struct {
	Path string
}

func (e *TemplateMissingError) Error() string {
	return fmt.Sprintf("template file %q is missing; provide the blank claim form", e.Path)
}
