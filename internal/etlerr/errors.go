// Package etlerr defines the terminal error kinds of a load run.
package etlerr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies a failure by the stage that produced it.
type Kind string

const (
	KindSourceRead  Kind = "source_read"
	KindFormat      Kind = "format"
	KindSchema      Kind = "schema"
	KindTransaction Kind = "transaction"
)

// Error is a run failure with enough context to be logged on its own.
type Error struct {
	Kind    Kind
	Op      string
	Table   string
	Elapsed time.Duration
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(" error")
	if e.Op != "" {
		b.WriteString(" during ")
		b.WriteString(e.Op)
	}
	if e.Table != "" {
		fmt.Fprintf(&b, " on %s", e.Table)
	}
	if e.Elapsed > 0 {
		fmt.Fprintf(&b, " after %s", e.Elapsed.Round(time.Millisecond))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// SourceRead reports a missing or unparseable input file.
func SourceRead(path string, err error) *Error {
	return &Error{Kind: KindSourceRead, Op: "read " + path, Err: err}
}

// Format reports a field whose text cannot be coerced to its column type.
func Format(field, value string, err error) *Error {
	return &Error{Kind: KindFormat, Op: fmt.Sprintf("parse %s %q", field, value), Err: err}
}

// Schema reports a missing or incompatible target table.
func Schema(op, table string, elapsed time.Duration, err error) *Error {
	return &Error{Kind: KindSchema, Op: op, Table: table, Elapsed: elapsed, Err: err}
}

// Transaction reports a statement or commit failure inside the load transaction.
func Transaction(op, table string, elapsed time.Duration, err error) *Error {
	return &Error{Kind: KindTransaction, Op: op, Table: table, Elapsed: elapsed, Err: err}
}

// IsKind reports whether err, or anything it wraps, is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
