package gdsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

// Kind is the closed set of failure classes a request can end in.
type Kind int

const (
	KindClientError Kind = iota + 1
	KindServerError
	KindTimeout
	KindEndpointNotFound
	KindMalformedBody
	KindInvalidURL
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindClientError:
		return "client_error"
	case KindServerError:
		return "server_error"
	case KindTimeout:
		return "timeout"
	case KindEndpointNotFound:
		return "endpoint_not_found"
	case KindMalformedBody:
		return "malformed_body"
	case KindInvalidURL:
		return "invalid_url"
	default:
		return "unknown"
	}
}

// ErrorType names the concrete error, e.g. HTTPNotFound. Two errors with
// the same type group together in error reporting.
type ErrorType string

// Error types.
const (
	TypeHTTPClientError         ErrorType = "HTTPClientError"
	TypeHTTPServerError         ErrorType = "HTTPServerError"
	TypeHTTPBadRequest          ErrorType = "HTTPBadRequest"
	TypeHTTPUnauthorized        ErrorType = "HTTPUnauthorized"
	TypeHTTPForbidden           ErrorType = "HTTPForbidden"
	TypeHTTPNotFound            ErrorType = "HTTPNotFound"
	TypeHTTPConflict            ErrorType = "HTTPConflict"
	TypeHTTPGone                ErrorType = "HTTPGone"
	TypeHTTPPreconditionFailed  ErrorType = "HTTPPreconditionFailed"
	TypeHTTPPayloadTooLarge     ErrorType = "HTTPPayloadTooLarge"
	TypeHTTPUnprocessableEntity ErrorType = "HTTPUnprocessableEntity"
	TypeHTTPTooManyRequests     ErrorType = "HTTPTooManyRequests"
	TypeHTTPInternalServerError ErrorType = "HTTPInternalServerError"
	TypeHTTPBadGateway          ErrorType = "HTTPBadGateway"
	TypeHTTPUnavailable         ErrorType = "HTTPUnavailable"
	TypeHTTPGatewayTimeout      ErrorType = "HTTPGatewayTimeout"
	TypeTimedOutException       ErrorType = "TimedOutException"
	TypeEndpointNotFound        ErrorType = "EndpointNotFound"
	TypeInvalidResponseBody     ErrorType = "InvalidResponseBody"
	TypeInvalidURL              ErrorType = "InvalidURL"
)

const (
	fingerprintPrefix     = "gdsapi."
	maxErrorBodyInMessage = 512
)

// Sentinels for errors.Is. Every *Error matches its kind sentinel and, for
// the common statuses, a status sentinel as well.
var (
	ErrHTTPClient          = errors.New("http client error")
	ErrHTTPServer          = errors.New("http server error")
	ErrTimedOut            = errors.New("request timed out")
	ErrEndpointNotFound    = errors.New("endpoint not found")
	ErrMalformedBody       = errors.New("malformed response body")
	ErrInvalidURL          = errors.New("invalid url")
	ErrBadRequest          = errors.New("bad request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrGone                = errors.New("gone")
	ErrUnprocessableEntity = errors.New("unprocessable entity")
	ErrTooManyRequests     = errors.New("too many requests")
	ErrBadGateway          = errors.New("bad gateway")
	ErrUnavailable         = errors.New("service unavailable")
	ErrGatewayTimeout      = errors.New("gateway timeout")
)

var statusTypes = map[int]ErrorType{
	http.StatusBadRequest:            TypeHTTPBadRequest,
	http.StatusUnauthorized:          TypeHTTPUnauthorized,
	http.StatusForbidden:             TypeHTTPForbidden,
	http.StatusNotFound:              TypeHTTPNotFound,
	http.StatusConflict:              TypeHTTPConflict,
	http.StatusGone:                  TypeHTTPGone,
	http.StatusPreconditionFailed:    TypeHTTPPreconditionFailed,
	http.StatusRequestEntityTooLarge: TypeHTTPPayloadTooLarge,
	http.StatusUnprocessableEntity:   TypeHTTPUnprocessableEntity,
	http.StatusTooManyRequests:       TypeHTTPTooManyRequests,
	http.StatusInternalServerError:   TypeHTTPInternalServerError,
	http.StatusBadGateway:            TypeHTTPBadGateway,
	http.StatusServiceUnavailable:    TypeHTTPUnavailable,
	http.StatusGatewayTimeout:        TypeHTTPGatewayTimeout,
}

var typeSentinels = map[ErrorType]error{
	TypeHTTPBadRequest:          ErrBadRequest,
	TypeHTTPUnauthorized:        ErrUnauthorized,
	TypeHTTPForbidden:           ErrForbidden,
	TypeHTTPNotFound:            ErrNotFound,
	TypeHTTPConflict:            ErrConflict,
	TypeHTTPGone:                ErrGone,
	TypeHTTPUnprocessableEntity: ErrUnprocessableEntity,
	TypeHTTPTooManyRequests:     ErrTooManyRequests,
	TypeHTTPBadGateway:          ErrBadGateway,
	TypeHTTPUnavailable:         ErrUnavailable,
	TypeHTTPGatewayTimeout:      ErrGatewayTimeout,
}

// Error is the single error type returned by the client for failed
// requests. Code is zero for transport failures.
type Error struct {
	Kind    Kind
	Type    ErrorType
	Code    int
	Method  string
	URL     string
	Body    []byte
	Details any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Type)

	if e.URL != "" {
		msg += fmt.Sprintf(": %s %s", e.Method, redactURL(e.URL))
	}

	if e.Code != 0 {
		msg += fmt.Sprintf(" returned %d", e.Code)
	}

	if len(e.Body) > 0 {
		body := e.Body
		if len(body) > maxErrorBodyInMessage {
			body = body[:maxErrorBodyInMessage]
		}

		msg += fmt.Sprintf(": %s", body)
	} else if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}

	return msg
}

// Unwrap exposes the kind sentinel, the status sentinel and the cause.
func (e *Error) Unwrap() []error {
	errs := []error{kindSentinel(e.Kind)}

	if sentinel, ok := typeSentinels[e.Type]; ok {
		errs = append(errs, sentinel)
	}

	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}

// Fingerprint groups errors by concrete type for error reporting.
func (e *Error) Fingerprint() []string {
	return []string{fingerprintPrefix + string(e.Type)}
}

// ReportingContext is the payload attached when the error is reported.
func (e *Error) ReportingContext() map[string]interface{} {
	return map[string]interface{}{
		"fingerprint": e.Fingerprint(),
		"extra": map[string]interface{}{
			"code":          e.Code,
			"error_details": e.Details,
		},
	}
}

// ErrorDetails returns the decoded error body, or the raw body as a string.
func (e *Error) ErrorDetails() any {
	return e.Details
}

// ClassifyStatus maps a status code to an error type. It is total over
// 400-599 and returns "" for anything else.
func ClassifyStatus(code int) (Kind, ErrorType) {
	if t, ok := statusTypes[code]; ok {
		return kindForStatus(code), t
	}

	switch {
	case code >= 400 && code < 500:
		return KindClientError, TypeHTTPClientError
	case code >= 500 && code < 600:
		return KindServerError, TypeHTTPServerError
	default:
		return 0, ""
	}
}

// NewHTTPError builds the typed error for a non-success response.
func NewHTTPError(code int, method, rawURL string, body []byte) *Error {
	kind, typ := ClassifyStatus(code)
	if typ == "" {
		kind, typ = KindServerError, TypeHTTPServerError
	}

	return &Error{
		Kind:    kind,
		Type:    typ,
		Code:    code,
		Method:  method,
		URL:     rawURL,
		Body:    body,
		Details: decodeDetails(body),
	}
}

// NewMalformedBodyError reports a success response whose body is not JSON.
func NewMalformedBodyError(code int, method, rawURL string, body []byte, cause error) *Error {
	return &Error{
		Kind:   KindMalformedBody,
		Type:   TypeInvalidResponseBody,
		Code:   code,
		Method: method,
		URL:    rawURL,
		Body:   body,
		Err:    cause,
	}
}

// ClassifyTransport maps a failure that produced no response. A cancelled
// context is not a transport failure; use TransportError when the caller
// may have cancelled.
func ClassifyTransport(method, rawURL string, cause error) *Error {
	e := &Error{Method: method, URL: rawURL, Err: cause}

	switch {
	case isTimeout(cause):
		e.Kind, e.Type = KindTimeout, TypeTimedOutException
	case isInvalidURL(cause):
		e.Kind, e.Type = KindInvalidURL, TypeInvalidURL
	default:
		e.Kind, e.Type = KindEndpointNotFound, TypeEndpointNotFound
	}

	return e
}

// TransportError is ClassifyTransport, except that a cancelled context
// comes back as the cancellation itself rather than an *Error.
func TransportError(method, rawURL string, cause error) error {
	if errors.Is(cause, context.Canceled) {
		return fmt.Errorf("%s %s: %w", method, redactURL(rawURL), cause)
	}

	return ClassifyTransport(method, rawURL, cause)
}

// Classify returns the typed error for a status code or transport failure,
// or nil for a success.
func Classify(code int, method, rawURL string, body []byte, transportErr error) *Error {
	if transportErr != nil {
		return ClassifyTransport(method, rawURL, transportErr)
	}

	if code >= 200 && code < 400 {
		return nil
	}

	return NewHTTPError(code, method, rawURL, body)
}

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether err is any 4xx.
func IsClientError(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}

// IsServerError reports whether err is any 5xx.
func IsServerError(err error) bool {
	return errors.Is(err, ErrHTTPServer)
}

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimedOut)
}

// AsError extracts the *Error from a wrapped chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}

	return nil, false
}

func kindForStatus(code int) Kind {
	if code >= 500 {
		return KindServerError
	}

	return KindClientError
}

func kindSentinel(k Kind) error {
	switch k {
	case KindClientError:
		return ErrHTTPClient
	case KindServerError:
		return ErrHTTPServer
	case KindTimeout:
		return ErrTimedOut
	case KindEndpointNotFound:
		return ErrEndpointNotFound
	case KindMalformedBody:
		return ErrMalformedBody
	default:
		return ErrInvalidURL
	}
}

func decodeDetails(body []byte) any {
	if len(body) == 0 {
		return nil
	}

	var details any
	if err := json.Unmarshal(body, &details); err != nil {
		return string(body)
	}

	return details
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

func isInvalidURL(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return false
	}

	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return false
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError

	return !errors.As(err, &opErr) && !errors.As(err, &dnsErr) && urlErr.Op == "parse"
}

func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}

	return u.Redacted()
}
