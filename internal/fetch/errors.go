package fetch

import "fmt"

// ErrorKind classifies adapter failures so the resolver can log and degrade
// without inspecting provider-specific errors.
type ErrorKind int

const (
	// KindNotFound means the entity does not exist upstream (bad ticker,
	// unknown sector). Trying another source may still help.
	KindNotFound ErrorKind = iota
	// KindUnavailable covers network errors, timeouts and 5xx responses.
	KindUnavailable
	// KindRateLimited means the provider itself signaled throttling,
	// distinct from our own limiter refusing the call.
	KindRateLimited
	// KindMalformed means the response arrived but lacked expected fields.
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate_limited"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error is the only error type adapters may return.
type Error struct {
	Kind   ErrorKind
	Source string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Source, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(source, format string, v ...any) *Error {
	return &Error{Kind: KindNotFound, Source: source, Msg: fmt.Sprintf(format, v...)}
}

func Unavailable(source, format string, v ...any) *Error {
	return &Error{Kind: KindUnavailable, Source: source, Msg: fmt.Sprintf(format, v...)}
}

func UnavailableErr(source string, err error, format string, v ...any) *Error {
	return &Error{Kind: KindUnavailable, Source: source, Msg: fmt.Sprintf(format, v...), Err: err}
}

func RateLimited(source, format string, v ...any) *Error {
	return &Error{Kind: KindRateLimited, Source: source, Msg: fmt.Sprintf(format, v...)}
}

func Malformed(source, format string, v ...any) *Error {
	return &Error{Kind: KindMalformed, Source: source, Msg: fmt.Sprintf(format, v...)}
}
