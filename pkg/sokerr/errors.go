// Package sokerr defines the typed error kinds surfaced by the search core,
// per the error handling design: every fallible operation returns a result
// carrying either success or one of these typed errors, never a raised
// exception used as control flow.
package sokerr

import (
	"errors"
	"fmt"
)

// Kind classifies a core error for JSON serialization and retry decisions.
type Kind string

const (
	KindDomainNotAllowed Kind = "domain_not_allowed"
	KindFetchTimeout     Kind = "fetch_timeout"
	KindFetchTransport   Kind = "fetch_transport"
	KindFetchHTTP        Kind = "fetch_http"
	KindFetchParse       Kind = "fetch_parse"
	KindQueryInvalid     Kind = "query_invalid"
	KindIndexCorrupt     Kind = "index_corrupt"
)

// Error is the typed error carried by core operations. It is never used for
// control flow on its own; CacheMiss, for instance, is not represented here
// because it is a normal control path, not an error.
type Error struct {
	Err     error
	Details string
	Kind    Kind
	Status  int // relevant only for KindFetchHTTP
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Details)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
	}

	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// DomainNotAllowed builds the error returned for a direct-navigation URL
// whose host is not in the registry, with a human-readable message listing
// the first few registered hosts.
func DomainNotAllowed(host string, knownHosts []string) *Error {
	sample := knownHosts
	if len(sample) > 5 {
		sample = sample[:5]
	}

	return &Error{
		Kind:    KindDomainNotAllowed,
		Details: fmt.Sprintf("host %q is not in the allow-list; known hosts include %v", host, sample),
	}
}

func FetchTimeout(err error) *Error {
	return &Error{Kind: KindFetchTimeout, Err: err}
}

func FetchTransport(err error) *Error {
	return &Error{Kind: KindFetchTransport, Err: err}
}

func FetchHTTP(status int) *Error {
	return &Error{Kind: KindFetchHTTP, Status: status, Details: fmt.Sprintf("unexpected status %d", status)}
}

func FetchParse(err error) *Error {
	return &Error{Kind: KindFetchParse, Err: err}
}

func QueryInvalid(reason string) *Error {
	return &Error{Kind: KindQueryInvalid, Details: reason}
}

func IndexCorrupt(reason string) *Error {
	return &Error{Kind: KindIndexCorrupt, Details: reason}
}

// As is a thin wrapper around errors.As for *Error, used by callers that want
// to branch on Kind without importing errors directly.
func As(err error) (*Error, bool) {
	var se *Error

	ok := errors.As(err, &se)

	return se, ok
}

// JSON is the stable boundary shape for converting a core error to JSON.
type JSON struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// ToJSON converts any error into the stable {error, code, details?} shape.
// Errors that are not *Error are reported under a generic "internal" code.
func ToJSON(err error) JSON {
	if se, ok := As(err); ok {
		return JSON{Error: se.Error(), Code: string(se.Kind), Details: se.Details}
	}

	return JSON{Error: err.Error(), Code: "internal"}
}
