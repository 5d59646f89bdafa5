package extract

import (
	"errors"
	"fmt"
)

// Failure kinds. Every dropin failure wraps exactly one of these.
//
// ErrMalformedResponse covers both a body that is not valid JSON and a data
// object of the wrong shape. Only the first is retried: a second fetch of
// well-formed JSON returns the same shape.
var (
	ErrProviderUnreachable     = errors.New("provider unreachable")
	ErrMalformedResponse       = errors.New("malformed provider response")
	ErrProviderReportedFailure = errors.New("provider reported failure")
	ErrEmptyResult             = errors.New("provider returned no media")
	ErrAssetFetch              = errors.New("asset download failed")
)

// Failure is the error a dropin returns for a URL it could not archive.
// errors.Is matches both the kind and the underlying cause.
type Failure struct {
	Kind   error
	Dropin string
	URL    string
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s: %v for %s", f.Dropin, f.Kind, f.URL)
	if f.Reason != "" {
		msg += ": " + f.Reason
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() []error {
	errs := []error{f.Kind}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}
