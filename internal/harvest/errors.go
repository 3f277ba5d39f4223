package harvest

import (
	"errors"
	"fmt"
	"rewardfeed/internal/fetcher"
)

// ErrNoLinksFound is the outcome of a run whose page had no reward links,
// it is not a failure and nothing is published.
var ErrNoLinksFound = errors.New("no reward links found")

// ConfigurationError is a configuration problem detected before any network
// activity happens.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// FetchError is a failure to obtain the source page.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Kind returns the fetcher error kind, or KindTransport if the cause is not
// a fetcher error.
func (e *FetchError) Kind() fetcher.ErrorKind {
	var fetchErr *fetcher.Error
	if errors.As(e.Err, &fetchErr) {
		return fetchErr.Kind
	}
	return fetcher.KindTransport
}

// PublishError is a failure to write the snapshot, the previous snapshot is
// still the visible one.
type PublishError struct {
	Err error
}

func (e *PublishError) Error() string {
	return e.Err.Error()
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

const (
	ExitOK            = 0
	ExitUnknown       = 1
	ExitConfiguration = 2
	ExitFetch         = 3
	ExitPublish       = 4
)

// ExitCode maps the error a run ended with to a process exit code.
func ExitCode(err error) int {
	if err == nil || errors.Is(err, ErrNoLinksFound) {
		return ExitOK
	}

	var configErr *ConfigurationError
	if errors.As(err, &configErr) {
		return ExitConfiguration
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return ExitFetch
	}
	var publishErr *PublishError
	if errors.As(err, &publishErr) {
		return ExitPublish
	}
	return ExitUnknown
}
