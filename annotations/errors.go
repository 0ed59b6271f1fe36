package annotations

import "fmt"

// ParseError reports a malformed row in an annotation file. Parsing stops at
// the first ParseError; rows are never skipped, since a dropped instance
// would silently bias the scores.
type ParseError struct {
	// Source names the file or stream being parsed.
	Source string
	// Line is the 1-based line number of the offending row.
	Line int
	// Reason describes what is wrong with the row.
	Reason string
	// Err is the underlying conversion error, if any.
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s:%d: %s: %v", e.Source, e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnknownSubstrateError reports a substrate that is not in the catalog. It is
// only returned under the strict policy.
type UnknownSubstrateError struct {
	Source    string
	Line      int
	Substrate string
}

func (e *UnknownSubstrateError) Error() string {
	return fmt.Sprintf("%s:%d: unknown substrate %q", e.Source, e.Line, e.Substrate)
}
