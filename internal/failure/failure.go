package failure

import (
	"errors"
	"fmt"
)

// Kind classifies why an extraction failed. Callers map kinds to their own
// transport-level responses (exit codes, HTTP statuses).
type Kind string

const (
	// InvalidInput covers malformed URLs, disallowed schemes and blocked hosts.
	InvalidInput Kind = "invalid_input"
	// FetchFailed covers non-2xx responses, transport errors and timeouts.
	FetchFailed Kind = "fetch_failed"
	// ContentTooLarge means the declared or actual payload exceeded its ceiling.
	ContentTooLarge Kind = "content_too_large"
	// ExtractionFailed means the target was reachable but had no usable content.
	ExtractionFailed Kind = "extraction_failed"
	// NoItemsFound means a feed parsed but contained no entries.
	NoItemsFound Kind = "no_items_found"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error. A nil err yields nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
