package kiwi

import (
	"errors"
	"fmt"

	"github.com/kiwigo/kiwi/dict"
	"github.com/kiwigo/kiwi/hangul"
)

// ErrorKind classifies a kiwi.Error (spec §7).
type ErrorKind int

const (
	ErrInvalidUnicode ErrorKind = iota
	ErrIO
	ErrFormat
	ErrUnknownMorpheme
	ErrInvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidUnicode:
		return "invalid_unicode"
	case ErrIO:
		return "io_error"
	case ErrFormat:
		return "format_error"
	case ErrUnknownMorpheme:
		return "unknown_morpheme"
	case ErrInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error is the structured error type every exported kiwi function returns
// (spec §7). It satisfies errors.Is/errors.As against a wrapped cause via
// Unwrap, and against another *Error by Kind.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kiwi: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("kiwi: %s", e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports Kind equality against another *Error, so errors.Is(err,
// &Error{Kind: ErrInvalidUnicode}) works without comparing Msg/Err.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	return ok && te.Kind == e.Kind
}

func newError(k ErrorKind, msg string) *Error {
	return &Error{Kind: k, Msg: msg}
}

// wrapError lifts an error from one of the underlying packages (dict,
// hangul) into a *kiwi.Error, preserving the original as the wrapped cause.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var de *dict.Error
	if errors.As(err, &de) {
		return &Error{Kind: fromDictKind(de.Kind), Msg: de.Msg, Err: err}
	}
	if errors.Is(err, hangul.ErrInvalidUnicode) {
		return &Error{Kind: ErrInvalidUnicode, Msg: "invalid unicode in input", Err: err}
	}
	return &Error{Kind: ErrInvalidArgument, Msg: err.Error(), Err: err}
}

func fromDictKind(k dict.ErrorKind) ErrorKind {
	switch k {
	case dict.ErrFormat:
		return ErrFormat
	case dict.ErrUnknownMorpheme:
		return ErrUnknownMorpheme
	case dict.ErrIOWrap:
		return ErrIO
	default:
		return ErrInvalidArgument
	}
}
