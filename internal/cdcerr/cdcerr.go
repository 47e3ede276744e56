// Package cdcerr defines the fatal error kinds of spec §7. Every error the
// pipeline can return is one of these kinds; there is no in-stream recovery,
// so callers only need to distinguish them for logging and exit-code
// purposes, not for retry logic.
package cdcerr

import "fmt"

// Kind discriminates the §7 error taxonomy.
type Kind int

const (
	// Transport is an I/O failure against MySQL or the downstream sink.
	Transport Kind = iota
	// ParseColumn is a row-image column that could not be parsed as the
	// requested type.
	ParseColumn
	// ColumnNotFound is a column the domain mapper asked for that the
	// schema resolver doesn't know.
	ColumnNotFound
	// UnsupportedValue is a value variant that cannot be coerced to what
	// the caller requested (e.g. a JSON-diff where a primitive was
	// expected).
	UnsupportedValue
	// OutputEncoding is a serializer failing to encode an aggregate.
	OutputEncoding
	// Synchronization is the emitter task ending unexpectedly, so the
	// driver could not join it.
	Synchronization
	// PositionMissing is SHOW MASTER STATUS returning no rows (binary
	// logging disabled on the server).
	PositionMissing
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case ParseColumn:
		return "parse-column"
	case ColumnNotFound:
		return "column-not-found"
	case UnsupportedValue:
		return "unsupported-value"
	case OutputEncoding:
		return "output-encoding"
	case Synchronization:
		return "synchronization"
	case PositionMissing:
		return "position-missing"
	default:
		return fmt.Sprintf("cdcerr.Kind(%d)", int(k))
	}
}

// Error is a fatal pipeline error tagged with its Kind, plus the diagnostic
// fields §7 asks ParseColumn/ColumnNotFound/UnsupportedValue to carry:
// Table, Column, ValueKind (a free-form description of what was seen, e.g.
// "json-diff"), and TargetType (what the caller wanted to coerce it to).
type Error struct {
	Kind       Kind
	Table      string
	Column     string
	ValueKind  string
	TargetType string
	Cause      error
}

func (e *Error) Error() string {
	var diag string
	switch {
	case e.Table != "" && e.Column != "" && e.ValueKind != "" && e.TargetType != "":
		diag = fmt.Sprintf(" (%s.%s: %s as %s)", e.Table, e.Column, e.ValueKind, e.TargetType)
	case e.Table != "" && e.Column != "":
		diag = fmt.Sprintf(" (%s.%s)", e.Table, e.Column)
	case e.Column != "":
		diag = fmt.Sprintf(" (%s)", e.Column)
	}
	if e.Cause != nil {
		return fmt.Sprintf("cdcerr: %s%s: %v", e.Kind, diag, e.Cause)
	}
	return fmt.Sprintf("cdcerr: %s%s", e.Kind, diag)
}

func (e *Error) Unwrap() error { return e.Cause }

// As reports whether err is a *Error and, if so, its Kind.
func As(err error) (Kind, bool) {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind, true
	}
	return 0, false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// NewTransport wraps cause as a Transport error.
func NewTransport(cause error) error {
	return &Error{Kind: Transport, Cause: cause}
}

// NewParseColumn reports that column of table could not be parsed from
// valueKind as targetType.
func NewParseColumn(table, column, valueKind, targetType string, cause error) error {
	return &Error{Kind: ParseColumn, Table: table, Column: column, ValueKind: valueKind, TargetType: targetType, Cause: cause}
}

// NewColumnNotFound reports that column of table is unknown to the schema
// resolver.
func NewColumnNotFound(table, column string) error {
	return &Error{Kind: ColumnNotFound, Table: table, Column: column}
}

// NewUnsupportedValue reports that column of table holds a value variant
// (valueKind) that cannot be coerced to targetType.
func NewUnsupportedValue(table, column, valueKind, targetType string) error {
	return &Error{Kind: UnsupportedValue, Table: table, Column: column, ValueKind: valueKind, TargetType: targetType}
}

// NewOutputEncoding wraps cause as an OutputEncoding error.
func NewOutputEncoding(cause error) error {
	return &Error{Kind: OutputEncoding, Cause: cause}
}

// NewSynchronization wraps cause as a Synchronization error.
func NewSynchronization(cause error) error {
	return &Error{Kind: Synchronization, Cause: cause}
}

// NewPositionMissing reports that SHOW MASTER STATUS returned no rows.
func NewPositionMissing() error {
	return &Error{Kind: PositionMissing}
}
