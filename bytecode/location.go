package bytecode

import "fmt"

// SourceLocation represents a position in source code.
// Filename and source text are stored once on the Code object.
type SourceLocation struct {
	Line      int // 1-based line number
	Column    int // 1-based column number
	EndColumn int // 1-based column of the last byte of the token, 0 if unset
}

// String returns a formatted string representation of the source location.
func (s SourceLocation) String() string {
	if s.EndColumn > s.Column {
		return fmt.Sprintf("%d:%d-%d", s.Line, s.Column, s.EndColumn)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsZero returns true if the location has not been set.
func (s SourceLocation) IsZero() bool {
	return s.Line == 0 && s.Column == 0
}
